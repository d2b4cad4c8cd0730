package observability

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	dto "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cardoc/cardoc-go/internal/conf"
	"github.com/cardoc/cardoc-go/internal/diagnosis"
)

// TestNewMetricsConcurrency verifies that every instance gets a private
// registry, so concurrent construction never collides.
func TestNewMetricsConcurrency(t *testing.T) {
	t.Parallel()
	const numGoroutines = 20

	var wg sync.WaitGroup
	for range numGoroutines {
		wg.Go(func() {
			m, err := NewMetrics()
			if !assert.NoError(t, err) {
				return
			}
			assert.NotNil(t, m.Registry())
			assert.NotNil(t, m.Analysis)
			assert.NotNil(t, m.HTTP)
			assert.NotNil(t, m.Collaborators)
		})
	}
	wg.Wait()
}

func TestHandlerExposesAnalysisMetrics(t *testing.T) {
	t.Parallel()
	m, err := NewMetrics()
	require.NoError(t, err)

	m.Analysis.ObserveAudio(diagnosis.FailedAudio("x", time.Now(), diagnosis.FailureDecode, "Audio file is silent"), time.Millisecond)

	mux := http.NewServeMux()
	m.RegisterHandlers(mux)
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", http.NoBody))

	require.Equal(t, http.StatusOK, rec.Code)
	body, err := io.ReadAll(rec.Body)
	require.NoError(t, err)
	assert.True(t, strings.Contains(string(body), `cardoc_analyses_total{modality="audio",outcome="decode"} 1`))
	assert.Contains(t, string(body), "go_goroutines")
}

func TestNewEndpointRequiresListener(t *testing.T) {
	t.Parallel()
	m, err := NewMetrics()
	require.NoError(t, err)

	settings := &conf.Settings{}
	settings.Metrics.Enabled = true
	_, err = NewEndpoint(settings, m)
	require.Error(t, err)

	settings.Metrics.Listen = "127.0.0.1:0"
	e, err := NewEndpoint(settings, m)
	require.NoError(t, err)
	assert.Same(t, m, e.GetMetrics())
}

func findFamily(families []*dto.MetricFamily, name string) *dto.MetricFamily {
	for _, f := range families {
		if f.GetName() == name {
			return f
		}
	}
	return nil
}

func TestRegistryGathersDurationHistogram(t *testing.T) {
	t.Parallel()
	m, err := NewMetrics()
	require.NoError(t, err)

	m.Analysis.ObserveAudio(diagnosis.FailedAudio("x", time.Now(), diagnosis.FailureValidation, "File must be an audio file"), 40*time.Millisecond)
	m.Analysis.ObserveAudio(diagnosis.FailedAudio("y", time.Now(), diagnosis.FailureDecode, "Audio file is silent"), 80*time.Millisecond)

	families, err := m.Registry().Gather()
	require.NoError(t, err)

	family := findFamily(families, "cardoc_analysis_duration_seconds")
	require.NotNil(t, family)
	assert.Equal(t, dto.MetricType_HISTOGRAM, family.GetType())
	require.Len(t, family.GetMetric(), 1)

	metric := family.GetMetric()[0]
	require.Len(t, metric.GetLabel(), 1)
	assert.Equal(t, "modality", metric.GetLabel()[0].GetName())
	assert.Equal(t, "audio", metric.GetLabel()[0].GetValue())
	assert.Equal(t, uint64(2), metric.GetHistogram().GetSampleCount())
	assert.InDelta(t, 0.12, metric.GetHistogram().GetSampleSum(), 1e-9)
}
