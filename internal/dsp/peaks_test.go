package dsp

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"gonum.org/v1/gonum/stat"
)

func TestFindPeaks(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		x        []float64
		height   float64
		distance int
		want     []int
	}{
		{"plateau midpoint", []float64{0, 1, 1, 1, 0, 2, 0}, 0, 1, []int{2, 5}},
		{"edges excluded", []float64{5, 1, 5}, 0, 1, nil},
		{"height filter", []float64{0, 1, 0, 3, 0}, 2, 1, []int{3}},
		{"distance keeps highest", []float64{0, 3, 0, 2, 0, 5, 0}, 0, 3, []int{1, 5}},
		{"rising plateau is not a peak", []float64{0, 1, 1, 2, 0}, 0, 1, []int{3}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, FindPeaks(tt.x, tt.height, tt.distance))
		})
	}
}

func TestLocalMax(t *testing.T) {
	t.Parallel()

	got := LocalMax([]float64{3, 1, 2, 2, 0, 4})
	assert.Equal(t, []bool{false, false, true, false, false, true}, got)
}

func TestPeakPick(t *testing.T) {
	t.Parallel()

	x := []float64{0, 0, 1, 0, 0, 0, 0.9, 0.2, 0, 0, 0.05, 0}
	got := PeakPick(x, PeakPickParams{PreMax: 1, PostMax: 1, PreAvg: 4, PostAvg: 5, Delta: 0.07, Wait: 1})
	assert.Equal(t, []int{2, 6}, got)
}

func TestStats(t *testing.T) {
	t.Parallel()

	assert.InDelta(t, 2, Median([]float64{3, 1, 2}), 0)
	assert.InDelta(t, 2.5, Median([]float64{4, 1, 3, 2}), 0)
	assert.True(t, math.IsNaN(Median(nil)))

	assert.InDelta(t, 1.3, Percentile([]float64{4, 3, 2, 1}, 10), 1e-12)
	assert.InDelta(t, 4, Percentile([]float64{4, 3, 2, 1}, 100), 0)
	// rank interpolation, not the empirical CDF step
	assert.InDelta(t, 1, stat.Quantile(0.1, stat.Empirical, []float64{1, 2, 3, 4}, nil), 0)

	x := []float64{2, 4, 4, 4, 5, 5, 7, 9}
	assert.InDelta(t, 5, Mean(x), 0)
	assert.InDelta(t, 2, Std(x), 1e-12)
	assert.InDelta(t, math.Sqrt(32.0/7), SampleStd(x), 1e-12)
	assert.Zero(t, Mean(nil))
	assert.Zero(t, Std(nil))
	assert.Zero(t, SampleStd([]float64{3}))
	assert.InDelta(t, 40, Sum(x), 0)

	assert.Equal(t, 1, ArgMax([]float64{1, 3, 3, 2}))
	assert.Equal(t, -1, ArgMax(nil))
	assert.Equal(t, 0, ArgMax([]float64{7}))

	assert.InDelta(t, 1.23, Round(1.2345, 2), 0)
	assert.InDelta(t, -0.5, Round(-0.45, 1), 1e-12)
}
