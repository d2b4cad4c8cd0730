// Package dsp holds the signal-processing primitives used by feature
// extraction: short-time spectra, filterbanks, framing, peak picking and
// summary statistics on top of gonum's transform and statistics kernels.
// All functions are deterministic for a given input.
package dsp

import (
	"math/bits"

	"gonum.org/v1/gonum/dsp/fourier"
)

// FFT is a complex forward transform plan for one size. The plan keeps
// scratch space, so each goroutine needs its own.
type FFT struct {
	plan *fourier.CmplxFFT
}

// NewFFT returns a plan for size n, which must be positive.
func NewFFT(n int) *FFT {
	if n <= 0 {
		panic("dsp: FFT size must be positive")
	}
	return &FFT{plan: fourier.NewCmplxFFT(n)}
}

// Size returns the transform length.
func (f *FFT) Size() int { return f.plan.Len() }

// Transform computes the forward DFT of x in place. len(x) must equal Size.
func (f *FFT) Transform(x []complex128) {
	f.plan.Coefficients(x, x)
}

// NextPow2 returns the smallest power of two >= n.
func NextPow2(n int) int {
	if n <= 1 {
		return 1
	}
	return 1 << bits.Len(uint(n-1))
}
