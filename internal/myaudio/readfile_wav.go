package myaudio

import (
	"bytes"

	"github.com/go-audio/wav"

	"github.com/cardoc/cardoc-go/internal/errors"
)

var (
	errInvalidWAV          = errors.NewStd("input is not a valid WAV audio file")
	errUnsupportedBitDepth = errors.NewStd("unsupported audio bit depth")
)

// readWAV decodes a PCM WAV buffer into mono samples at its native rate.
func readWAV(data []byte) (samples []float64, sampleRate int, err error) {
	decoder := wav.NewDecoder(bytes.NewReader(data))
	decoder.ReadInfo()
	if !decoder.IsValidFile() {
		return nil, 0, errInvalidWAV
	}

	divisor, err := getAudioDivisor(int(decoder.BitDepth))
	if err != nil {
		return nil, 0, err
	}

	buf, err := decoder.FullPCMBuffer()
	if err != nil {
		return nil, 0, err
	}

	channels := max(1, int(decoder.NumChans))
	interleaved := make([]float64, len(buf.Data))
	for i, s := range buf.Data {
		if decoder.BitDepth == 8 {
			// 8-bit WAV is unsigned with a 128 midpoint
			s -= 128
		}
		interleaved[i] = float64(s) / divisor
	}

	return downmix(interleaved, channels), int(decoder.SampleRate), nil
}
