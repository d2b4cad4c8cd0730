package dsp

import "math"

const (
	melFSp       = 200.0 / 3
	melMinLogHz  = 1000.0
	melMinLogMel = melMinLogHz / melFSp
)

var melLogStep = math.Log(6.4) / 27.0

// HzToMel converts Hz to the Slaney mel scale: linear below 1 kHz,
// logarithmic above.
func HzToMel(hz float64) float64 {
	if hz >= melMinLogHz {
		return melMinLogMel + math.Log(hz/melMinLogHz)/melLogStep
	}
	return hz / melFSp
}

// MelToHz is the inverse of HzToMel.
func MelToHz(mel float64) float64 {
	if mel >= melMinLogMel {
		return melMinLogHz * math.Exp(melLogStep*(mel-melMinLogMel))
	}
	return melFSp * mel
}

// MelFilterbank returns nMels triangular filters over the nFFT/2+1 STFT
// bins, spaced evenly on the Slaney mel scale between fmin and fmax and
// area-normalised. The result is indexed [mel][bin].
func MelFilterbank(sampleRate, nFFT, nMels int, fmin, fmax float64) [][]float64 {
	fftFreqs := FFTFrequencies(sampleRate, nFFT)

	lo, hi := HzToMel(fmin), HzToMel(fmax)
	melF := make([]float64, nMels+2)
	for i := range melF {
		melF[i] = MelToHz(lo + (hi-lo)*float64(i)/float64(nMels+1))
	}

	weights := make([][]float64, nMels)
	for i := range nMels {
		row := make([]float64, len(fftFreqs))
		lowerDiff := melF[i+1] - melF[i]
		upperDiff := melF[i+2] - melF[i+1]
		enorm := 2.0 / (melF[i+2] - melF[i])
		for k, f := range fftFreqs {
			lower := (f - melF[i]) / lowerDiff
			upper := (melF[i+2] - f) / upperDiff
			row[k] = max(0, min(lower, upper)) * enorm
		}
		weights[i] = row
	}
	return weights
}

// ApplyFilterbank projects every power frame through fb, giving [frame][filter].
func ApplyFilterbank(power, fb [][]float64) [][]float64 {
	out := make([][]float64, len(power))
	for t, frame := range power {
		row := make([]float64, len(fb))
		for i, filter := range fb {
			var acc float64
			for k, w := range filter {
				if w != 0 {
					acc += w * frame[k]
				}
			}
			row[i] = acc
		}
		out[t] = row
	}
	return out
}

// PowerToDB converts power values to decibels relative to ref in place,
// flooring at amin and clipping everything more than topDB below the peak.
func PowerToDB(x [][]float64, ref, amin, topDB float64) {
	refDB := 10 * math.Log10(max(amin, ref))
	peak := math.Inf(-1)
	for _, row := range x {
		for i, v := range row {
			row[i] = 10*math.Log10(max(amin, v)) - refDB
			peak = max(peak, row[i])
		}
	}
	if topDB <= 0 {
		return
	}
	floor := peak - topDB
	for _, row := range x {
		for i, v := range row {
			row[i] = max(v, floor)
		}
	}
}
