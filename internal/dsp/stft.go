package dsp

import "math/cmplx"

// Spectrogram is the magnitude of a centred short-time Fourier transform.
// Magnitude is indexed [frame][bin] with NFFT/2+1 bins per frame.
type Spectrogram struct {
	Magnitude  [][]float64
	SampleRate int
	NFFT       int
	Hop        int
}

// NewSpectrogram computes the STFT of y with a periodic Hann window of
// length nFFT. The signal is zero padded by nFFT/2 on both sides so frame t
// is centred on sample t*hop, giving 1 + len(y)/hop frames.
func NewSpectrogram(y []float64, sampleRate, nFFT, hop int) *Spectrogram {
	plan := NewFFT(nFFT)
	window := Hann(nFFT, true)
	padded := PadCenter(y, nFFT/2)
	frames := FrameCount(len(padded), nFFT, hop)
	bins := nFFT/2 + 1

	mag := make([][]float64, frames)
	buf := make([]complex128, nFFT)
	for t := range frames {
		seg := padded[t*hop : t*hop+nFFT]
		for i, v := range seg {
			buf[i] = complex(v*window[i], 0)
		}
		plan.Transform(buf)

		row := make([]float64, bins)
		for k := range bins {
			row[k] = cmplx.Abs(buf[k])
		}
		mag[t] = row
	}

	return &Spectrogram{Magnitude: mag, SampleRate: sampleRate, NFFT: nFFT, Hop: hop}
}

// Frames returns the number of time frames.
func (s *Spectrogram) Frames() int { return len(s.Magnitude) }

// Bins returns the number of frequency bins per frame.
func (s *Spectrogram) Bins() int { return s.NFFT/2 + 1 }

// Frequencies returns the centre frequency in Hz of every bin.
func (s *Spectrogram) Frequencies() []float64 {
	return FFTFrequencies(s.SampleRate, s.NFFT)
}

// Power returns |X|² indexed [frame][bin].
func (s *Spectrogram) Power() [][]float64 {
	out := make([][]float64, len(s.Magnitude))
	for t, row := range s.Magnitude {
		p := make([]float64, len(row))
		for k, m := range row {
			p[k] = m * m
		}
		out[t] = p
	}
	return out
}

// MeanPower averages |X|² over time for every bin.
func (s *Spectrogram) MeanPower() []float64 {
	out := make([]float64, s.Bins())
	if len(s.Magnitude) == 0 {
		return out
	}
	for _, row := range s.Magnitude {
		for k, m := range row {
			out[k] += m * m
		}
	}
	n := float64(len(s.Magnitude))
	for k := range out {
		out[k] /= n
	}
	return out
}

// FFTFrequencies returns k*sampleRate/nFFT for k in [0, nFFT/2].
func FFTFrequencies(sampleRate, nFFT int) []float64 {
	out := make([]float64, nFFT/2+1)
	for k := range out {
		out[k] = float64(k) * float64(sampleRate) / float64(nFFT)
	}
	return out
}
