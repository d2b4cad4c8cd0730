package dsp

import (
	"math"

	"gonum.org/v1/gonum/floats"
)

// SpectralCentroid returns the magnitude-weighted mean frequency per frame.
// Frames with no energy yield 0.
func SpectralCentroid(s *Spectrogram) []float64 {
	freqs := s.Frequencies()
	out := make([]float64, s.Frames())
	for t, row := range s.Magnitude {
		total := floats.Sum(row)
		if total <= 0 {
			continue
		}
		var acc float64
		for k, m := range row {
			acc += freqs[k] * (m / total)
		}
		out[t] = acc
	}
	return out
}

// SpectralBandwidth returns the second-order spread around each frame's
// centroid: (Σ p_k |f_k - c|²)^(1/2) with p the frame's normalised magnitude.
func SpectralBandwidth(s *Spectrogram, centroid []float64) []float64 {
	freqs := s.Frequencies()
	out := make([]float64, s.Frames())
	for t, row := range s.Magnitude {
		total := floats.Sum(row)
		if total <= 0 {
			continue
		}
		var acc float64
		for k, m := range row {
			d := freqs[k] - centroid[t]
			acc += (m / total) * d * d
		}
		out[t] = math.Sqrt(acc)
	}
	return out
}

// SpectralRolloff returns, per frame, the lowest bin frequency at which the
// cumulative magnitude reaches rollPercent of the frame total.
func SpectralRolloff(s *Spectrogram, rollPercent float64) []float64 {
	freqs := s.Frequencies()
	out := make([]float64, s.Frames())
	cum := make([]float64, s.Bins())
	for t, row := range s.Magnitude {
		var acc float64
		for k, m := range row {
			acc += m
			cum[k] = acc
		}
		threshold := rollPercent * acc
		for k, c := range cum {
			if c >= threshold {
				out[t] = freqs[k]
				break
			}
		}
	}
	return out
}

// SpectralFlatness returns the ratio of geometric to arithmetic mean of the
// power spectrum per frame, with every bin floored at amin. Silent frames
// are perfectly flat (1).
func SpectralFlatness(s *Spectrogram, amin float64) []float64 {
	out := make([]float64, s.Frames())
	for t, row := range s.Magnitude {
		var logSum, linSum float64
		for _, m := range row {
			p := max(m*m, amin)
			logSum += math.Log(p)
			linSum += p
		}
		n := float64(len(row))
		out[t] = math.Exp(logSum/n) / (linSum / n)
	}
	return out
}
