package myaudio

import "time"

// SampleRate is the analysis sample rate every clip is converted to.
const SampleRate = 22050

// Waveform is a mono clip with amplitudes in [-1, 1].
type Waveform struct {
	Samples    []float64
	SampleRate int
	// Format is the container the clip was decoded from ("wav", "flac", "mp3", ...).
	Format string
}

// Duration returns the clip length.
func (w *Waveform) Duration() time.Duration {
	if w.SampleRate == 0 {
		return 0
	}
	return time.Duration(float64(len(w.Samples)) / float64(w.SampleRate) * float64(time.Second))
}

// Seconds returns the clip length in seconds.
func (w *Waveform) Seconds() float64 {
	if w.SampleRate == 0 {
		return 0
	}
	return float64(len(w.Samples)) / float64(w.SampleRate)
}

// downmix averages interleaved channels into one.
func downmix(interleaved []float64, channels int) []float64 {
	if channels <= 1 {
		return interleaved
	}
	frames := len(interleaved) / channels
	out := make([]float64, frames)
	for i := range frames {
		var acc float64
		for c := range channels {
			acc += interleaved[i*channels+c]
		}
		out[i] = acc / float64(channels)
	}
	return out
}

// clampUnit limits samples to [-1, 1] in place.
func clampUnit(samples []float64) {
	for i, v := range samples {
		samples[i] = max(-1, min(1, v))
	}
}

func isSilent(samples []float64) bool {
	for _, v := range samples {
		if v != 0 {
			return false
		}
	}
	return true
}

// getAudioDivisor returns the full-scale value for signed PCM of bitDepth bits.
func getAudioDivisor(bitDepth int) (float64, error) {
	switch bitDepth {
	case 8:
		return 128.0, nil
	case 16:
		return 32768.0, nil
	case 24:
		return 8388608.0, nil
	case 32:
		return 2147483648.0, nil
	default:
		return 0, errUnsupportedBitDepth
	}
}
