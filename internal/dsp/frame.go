package dsp

import "math"

// PadCenter returns y with pad zeros added on both ends.
func PadCenter(y []float64, pad int) []float64 {
	out := make([]float64, len(y)+2*pad)
	copy(out[pad:], y)
	return out
}

// FrameCount returns the number of full frames of length frame taken every
// hop samples from a signal of n samples.
func FrameCount(n, frame, hop int) int {
	if n < frame {
		return 0
	}
	return 1 + (n-frame)/hop
}

// RMS returns the root-mean-square energy of centred, zero-padded frames.
// The result has 1 + len(y)/hop entries.
func RMS(y []float64, frameLength, hop int) []float64 {
	padded := PadCenter(y, frameLength/2)
	n := FrameCount(len(padded), frameLength, hop)
	out := make([]float64, n)
	for t := range n {
		frame := padded[t*hop : t*hop+frameLength]
		var sum float64
		for _, v := range frame {
			sum += v * v
		}
		out[t] = math.Sqrt(sum / float64(frameLength))
	}
	return out
}
