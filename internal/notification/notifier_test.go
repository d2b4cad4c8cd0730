package notification

import (
	"context"
	"sync"
	"testing"

	stypes "github.com/nicholas-fedor/shoutrrr/pkg/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cardoc/cardoc-go/internal/conf"
	"github.com/cardoc/cardoc-go/internal/errors"
	"github.com/cardoc/cardoc-go/internal/faults"
)

type fakeSender struct {
	mu     sync.Mutex
	bodies []string
	titles []string
	errs   []error
}

func (f *fakeSender) Send(message string, params *stypes.Params) []error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.bodies = append(f.bodies, message)
	if params != nil {
		title, _ := params.Title()
		f.titles = append(f.titles, title)
	}
	return f.errs
}

func TestParseUrgency(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in   string
		want faults.Level
	}{
		{"", faults.LevelCritical},
		{"critical", faults.LevelCritical},
		{" Warning ", faults.LevelWarning},
		{"normal", faults.LevelNormal},
	}
	for _, tt := range tests {
		got, err := ParseUrgency(tt.in)
		require.NoError(t, err, tt.in)
		assert.Equal(t, tt.want, got, tt.in)
	}

	_, err := ParseUrgency("panic")
	require.Error(t, err)
	assert.True(t, errors.IsCategory(err, errors.CategoryConfiguration))
}

func TestShouldNotify(t *testing.T) {
	t.Parallel()

	critical := newNotifier(&fakeSender{}, faults.LevelCritical)
	assert.True(t, critical.ShouldNotify(faults.LevelCritical))
	assert.False(t, critical.ShouldNotify(faults.LevelWarning))
	assert.False(t, critical.ShouldNotify(faults.LevelNormal))

	warning := newNotifier(&fakeSender{}, faults.LevelWarning)
	assert.True(t, warning.ShouldNotify(faults.LevelCritical))
	assert.True(t, warning.ShouldNotify(faults.LevelWarning))
	assert.False(t, warning.ShouldNotify(faults.LevelNormal))

	var disabled *Notifier
	assert.False(t, disabled.ShouldNotify(faults.LevelCritical))
}

func TestNotifySendsTitledMessage(t *testing.T) {
	t.Parallel()

	fs := &fakeSender{}
	n := newNotifier(fs, faults.LevelWarning)

	sent, err := n.Notify(t.Context(), "engine_sound", faults.LevelCritical, "Rod knock detected")
	require.NoError(t, err)
	assert.True(t, sent)
	require.Len(t, fs.bodies, 1)
	assert.Equal(t, "Rod knock detected", fs.bodies[0])
	assert.Equal(t, "CarDoc: critical engine_sound", fs.titles[0])
}

func TestNotifySkipsBelowThreshold(t *testing.T) {
	t.Parallel()

	fs := &fakeSender{}
	n := newNotifier(fs, faults.LevelCritical)

	sent, err := n.Notify(t.Context(), "dashboard_scan", faults.LevelWarning, "Check engine light")
	require.NoError(t, err)
	assert.False(t, sent)
	assert.Empty(t, fs.bodies)
}

func TestNotifyDeliveryFailure(t *testing.T) {
	t.Parallel()

	fs := &fakeSender{errs: []error{nil, errors.NewStd("connection refused")}}
	n := newNotifier(fs, faults.LevelNormal)

	sent, err := n.Notify(t.Context(), "engine_sound", faults.LevelNormal, "ok")
	require.Error(t, err)
	assert.False(t, sent)
	assert.True(t, errors.IsCategory(err, errors.CategoryNotification))
	assert.Contains(t, err.Error(), "connection refused")
}

func TestNotifyCanceledContext(t *testing.T) {
	t.Parallel()

	fs := &fakeSender{}
	n := newNotifier(fs, faults.LevelNormal)

	ctx, cancel := context.WithCancel(t.Context())
	cancel()

	sent, err := n.Notify(ctx, "engine_sound", faults.LevelCritical, "x")
	require.ErrorIs(t, err, context.Canceled)
	assert.False(t, sent)
	assert.Empty(t, fs.bodies)
}

func TestNew(t *testing.T) {
	t.Parallel()

	t.Run("disabled", func(t *testing.T) {
		t.Parallel()
		n, err := New(&conf.NotificationSettings{Enabled: false, URLs: []string{"logger://"}})
		require.NoError(t, err)
		assert.Nil(t, n)
	})

	t.Run("no urls", func(t *testing.T) {
		t.Parallel()
		_, err := New(&conf.NotificationSettings{Enabled: true})
		require.Error(t, err)
		assert.True(t, errors.IsCategory(err, errors.CategoryConfiguration))
	})

	t.Run("unknown scheme hides url", func(t *testing.T) {
		t.Parallel()
		_, err := New(&conf.NotificationSettings{
			Enabled: true,
			URLs:    []string{"nosuchservice://token-secret@host"},
		})
		require.Error(t, err)
		assert.True(t, errors.IsCategory(err, errors.CategoryConfiguration))
		assert.NotContains(t, err.Error(), "token-secret")
	})

	t.Run("bad urgency", func(t *testing.T) {
		t.Parallel()
		_, err := New(&conf.NotificationSettings{
			Enabled:    true,
			URLs:       []string{"logger://"},
			MinUrgency: "sometimes",
		})
		require.Error(t, err)
	})

	t.Run("logger service", func(t *testing.T) {
		t.Parallel()
		n, err := New(&conf.NotificationSettings{
			Enabled:    true,
			URLs:       []string{"logger://"},
			MinUrgency: "warning",
		})
		require.NoError(t, err)
		require.NotNil(t, n)
		assert.Equal(t, faults.LevelWarning, n.MinUrgency())
	})
}
