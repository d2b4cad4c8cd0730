package dsp

import "math"

// ChromaFilterbank returns a 12-bin pitch-class filterbank over the
// nFFT/2+1 STFT bins, indexed [chroma][bin] with row 0 at C. Each bin's
// weights are Gaussian in pitch-class distance, L2 normalised per bin and
// weighted by a Gaussian over octaves centred on octave 5 (width 2).
// Tuning is assumed to be A440.
func ChromaFilterbank(sampleRate, nFFT int) [][]float64 {
	const (
		nChroma   = 12
		ctrOctave = 5.0
		octWidth  = 2.0
	)

	// frequency in chroma bins for every FFT bin but DC
	frqBins := make([]float64, nFFT)
	a440Base := 440.0 / 16
	for k := 1; k < nFFT; k++ {
		f := float64(k) * float64(sampleRate) / float64(nFFT)
		frqBins[k] = nChroma * math.Log2(f/a440Base)
	}
	frqBins[0] = frqBins[1] - 1.5*nChroma

	binWidth := make([]float64, nFFT)
	for k := range nFFT - 1 {
		binWidth[k] = max(frqBins[k+1]-frqBins[k], 1.0)
	}
	binWidth[nFFT-1] = 1

	half := math.Round(nChroma / 2.0)
	wts := make([][]float64, nChroma)
	for c := range wts {
		wts[c] = make([]float64, nFFT)
	}
	for k := range nFFT {
		var norm float64
		for c := range nChroma {
			d := frqBins[k] - float64(c)
			d = math.Mod(d+half+10*nChroma, nChroma)
			if d < 0 {
				d += nChroma
			}
			d -= half
			v := math.Exp(-0.5 * math.Pow(2*d/binWidth[k], 2))
			wts[c][k] = v
			norm += v * v
		}
		norm = math.Sqrt(norm)
		octave := math.Exp(-0.5 * math.Pow((frqBins[k]/nChroma-ctrOctave)/octWidth, 2))
		for c := range nChroma {
			if norm > 0 {
				wts[c][k] /= norm
			}
			wts[c][k] *= octave
		}
	}

	// rotate so that row 0 is C rather than A, and keep the positive bins
	bins := nFFT/2 + 1
	out := make([][]float64, nChroma)
	for c := range nChroma {
		out[c] = append([]float64(nil), wts[(c+3)%nChroma][:bins]...)
	}
	return out
}

// Chroma projects power frames onto fb and scales each frame so its
// largest pitch class is 1. Silent frames stay zero. Indexed [frame][chroma].
func Chroma(power, fb [][]float64) [][]float64 {
	out := ApplyFilterbank(power, fb)
	for _, row := range out {
		var peak float64
		for _, v := range row {
			peak = max(peak, math.Abs(v))
		}
		if peak <= 0 {
			continue
		}
		for i := range row {
			row[i] /= peak
		}
	}
	return out
}
