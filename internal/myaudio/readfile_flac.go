package myaudio

import (
	"bytes"
	"encoding/binary"
	"io"

	"github.com/tphakala/flac"
)

// readFLAC decodes a FLAC buffer into mono samples at its native rate.
func readFLAC(data []byte) (samples []float64, sampleRate int, err error) {
	decoder, err := flac.NewDecoder(bytes.NewReader(data))
	if err != nil {
		return nil, 0, err
	}

	divisor, err := getAudioDivisor(decoder.BitsPerSample)
	if err != nil {
		return nil, 0, err
	}

	channels := max(1, decoder.NChannels)
	bytesPerSample := decoder.BitsPerSample / 8
	interleaved := make([]float64, 0, int(decoder.TotalSamples)*channels)

	for {
		frame, err := decoder.Next()
		if err == io.EOF {
			break
		} else if err != nil {
			return nil, 0, err
		}

		for i := 0; i+bytesPerSample <= len(frame); i += bytesPerSample {
			var sample int32
			switch decoder.BitsPerSample {
			case 8:
				sample = int32(int8(frame[i]))
			case 16:
				sample = int32(int16(binary.LittleEndian.Uint16(frame[i:])))
			case 24:
				sample = int32(frame[i]) | int32(frame[i+1])<<8 | int32(int8(frame[i+2]))<<16
			case 32:
				sample = int32(binary.LittleEndian.Uint32(frame[i:]))
			}
			interleaved = append(interleaved, float64(sample)/divisor)
		}
	}

	return downmix(interleaved, channels), decoder.SampleRate, nil
}
