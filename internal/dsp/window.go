package dsp

import "math"

// Hann returns a Hann window of length n. A periodic window is the first n
// points of a symmetric window of length n+1, the form used for spectral
// analysis.
func Hann(n int, periodic bool) []float64 {
	w := make([]float64, n)
	if n == 1 {
		w[0] = 1
		return w
	}
	denom := float64(n - 1)
	if periodic {
		denom = float64(n)
	}
	for i := range w {
		w[i] = 0.5 - 0.5*math.Cos(2*math.Pi*float64(i)/denom)
	}
	return w
}

// ConvolveSame returns the linear convolution of a and w cropped to len(a),
// centred on the full result.
func ConvolveSame(a, w []float64) []float64 {
	out := make([]float64, len(a))
	start := (len(w) - 1) / 2
	for i := range out {
		k := i + start
		var acc float64
		for j, wj := range w {
			idx := k - j
			if idx < 0 {
				break
			}
			if idx >= len(a) {
				continue
			}
			acc += a[idx] * wj
		}
		out[i] = acc
	}
	return out
}
