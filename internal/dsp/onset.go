package dsp

import "math"

// Aggregate reduces one frame of per-band values to a single number.
type Aggregate func([]float64) float64

// Onset envelope constants
const (
	OnsetMels  = 128
	onsetAmin  = 1e-10
	onsetTopDB = 80.0
	onsetLag   = 1
)

// OnsetStrength returns the spectral-flux onset envelope of s: the
// positive first difference of a 128-band log-power mel spectrogram,
// reduced across bands by agg. The envelope is shifted to line up with the
// centred frames and has one value per frame of s.
func OnsetStrength(s *Spectrogram, agg Aggregate) []float64 {
	fb := MelFilterbank(s.SampleRate, s.NFFT, OnsetMels, 0, float64(s.SampleRate)/2)
	mel := ApplyFilterbank(s.Power(), fb)
	PowerToDB(mel, 1.0, onsetAmin, onsetTopDB)

	frames := len(mel)
	env := make([]float64, frames)
	pad := onsetLag + s.NFFT/(2*s.Hop)
	flux := make([]float64, OnsetMels)
	for t := onsetLag; t < frames; t++ {
		out := t - onsetLag + pad
		if out >= frames {
			break
		}
		for m := range flux {
			flux[m] = max(0, mel[t][m]-mel[t-onsetLag][m])
		}
		env[out] = agg(flux)
	}
	return env
}

// DefaultOnsetParams are the peak-picking windows for a 512-sample hop at
// 22.05 kHz: 30 ms before the maximum, 100 ms averaging, 30 ms wait.
func DefaultOnsetParams(sampleRate, hop int) PeakPickParams {
	frames := func(seconds float64) int {
		return int(math.Floor(seconds * float64(sampleRate) / float64(hop)))
	}
	return PeakPickParams{
		PreMax:  frames(0.03),
		PostMax: 1,
		PreAvg:  frames(0.10),
		PostAvg: frames(0.10) + 1,
		Delta:   0.07,
		Wait:    frames(0.03),
	}
}

// OnsetDetect normalises env to [0,1] and returns the frames picked as onsets.
func OnsetDetect(env []float64, params PeakPickParams) []int {
	if len(env) == 0 {
		return nil
	}
	lo, hi := math.Inf(1), math.Inf(-1)
	for _, v := range env {
		lo = min(lo, v)
		hi = max(hi, v)
	}
	norm := make([]float64, len(env))
	scale := hi - lo
	for i, v := range env {
		if scale > 0 {
			norm[i] = (v - lo) / scale
		}
	}
	if !anyNonZero(norm) {
		return nil
	}
	return PeakPick(norm, params)
}
