package cpuspec

import (
	"runtime"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDeterminePerformanceCores(t *testing.T) {
	t.Parallel()

	tests := map[string]int{
		"12th Gen Intel(R) Core(TM) i9-12900K":    8,
		"13th Gen Intel(R) Core(TM) i5-13600K":    6,
		"Intel(R) Core(TM) i3-14100":              4,
		"Intel(R) Core(TM) Ultra 5 225":           4,
		"Intel(R) Core(TM) Ultra 7 265K":          8,
		"Apple M1":                                4,
		"Apple M2 Max":                            12,
		"Apple M1 Ultra":                          16,
		"Apple M4":                                6,
		"AMD Ryzen 7 5800X 8-Core Processor":      0,
		"Intel(R) Core(TM) i7-8700 CPU @ 3.20GHz": 0,
	}
	for brand, want := range tests {
		assert.Equal(t, want, determinePerformanceCores(brand), brand)
	}
}

func TestWorkerCount(t *testing.T) {
	t.Parallel()

	assert.Equal(t, 3, CPUSpec{}.WorkerCount(3))
	assert.Equal(t, 1, CPUSpec{PhysicalCores: 1}.WorkerCount(0))
	assert.Equal(t, runtime.NumCPU(), CPUSpec{PhysicalCores: 4096}.WorkerCount(0))
	assert.GreaterOrEqual(t, GetCPUSpec().WorkerCount(0), 1)
}
