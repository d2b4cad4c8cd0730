package myaudio

import (
	"encoding/binary"
	"math"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/go-audio/audio"
	"github.com/go-audio/wav"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cardoc/cardoc-go/internal/errors"
	"github.com/cardoc/cardoc-go/internal/logger"
)

// encodeWAV writes interleaved 16-bit PCM to a temporary WAV file and
// returns its bytes.
func encodeWAV(t *testing.T, samples []int, sampleRate, channels int) []byte {
	t.Helper()

	path := filepath.Join(t.TempDir(), "clip.wav")
	f, err := os.Create(path)
	require.NoError(t, err)

	enc := wav.NewEncoder(f, sampleRate, 16, channels, 1)
	buf := &audio.IntBuffer{
		Format:         &audio.Format{NumChannels: channels, SampleRate: sampleRate},
		Data:           samples,
		SourceBitDepth: 16,
	}
	require.NoError(t, enc.Write(buf))
	require.NoError(t, enc.Close())
	require.NoError(t, f.Close())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	return data
}

func sineInt16(freq float64, sampleRate, n, channels int) []int {
	out := make([]int, 0, n*channels)
	for i := range n {
		v := int(16000 * math.Sin(2*math.Pi*freq*float64(i)/float64(sampleRate)))
		for range channels {
			out = append(out, v)
		}
	}
	return out
}

func testDecoder(t *testing.T, opts ...DecoderOption) *Decoder {
	t.Helper()
	base := []DecoderOption{WithLogger(logger.NewNopLogger())}
	return NewDecoder(append(base, opts...)...)
}

func TestValidateFormat(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name        string
		contentType string
		filename    string
		wantMsg     string
	}{
		{"wav ok", "audio/wav", "engine.wav", ""},
		{"uppercase extension", "audio/mpeg", "ENGINE.MP3", ""},
		{"content type parameters", "audio/ogg; codecs=opus", "idle.ogg", ""},
		{"no filename", "audio/flac", "", ""},
		{"not audio", "text/plain", "notes.txt", "File must be an audio file"},
		{"unsupported audio", "audio/aac", "clip.aac",
			"Unsupported audio format. Supported formats: ['audio/wav', 'audio/mpeg', 'audio/mp4', 'audio/x-m4a', 'audio/ogg', 'audio/flac']"},
		{"extension mismatch", "audio/wav", "clip.mp3", "File extension .mp3 doesn't match content type audio/wav"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			err := ValidateFormat(tt.contentType, tt.filename)
			if tt.wantMsg == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Equal(t, tt.wantMsg, err.Error())
			assert.True(t, errors.IsValidation(err))
		})
	}
}

func TestContentTypeForFile(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "audio/wav", ContentTypeForFile("/clips/idle.WAV"))
	assert.Equal(t, "audio/mp4", ContentTypeForFile("cold-start.m4a"))
	assert.Equal(t, "audio/flac", ContentTypeForFile("rev.flac"))
	assert.Empty(t, ContentTypeForFile("notes.txt"))
	assert.Empty(t, ContentTypeForFile("noext"))
}

func TestDecode_RejectsBeforeDecoding(t *testing.T) {
	t.Parallel()

	// garbage bytes would fail decoding; the validation error must win
	_, err := testDecoder(t).Decode(t.Context(), []byte("not audio"), "text/plain", "x.txt")
	require.Error(t, err)
	assert.True(t, errors.IsValidation(err))
	assert.False(t, errors.IsCategory(err, errors.CategoryAudioDecode))
}

func TestDecode_WAVResampledAndDownmixed(t *testing.T) {
	t.Parallel()

	data := encodeWAV(t, sineInt16(440, 44100, 44100, 2), 44100, 2)

	wf, err := testDecoder(t).Decode(t.Context(), data, "audio/wav", "idle.wav")
	require.NoError(t, err)

	assert.Equal(t, SampleRate, wf.SampleRate)
	assert.Equal(t, "wav", wf.Format)
	assert.InDelta(t, SampleRate, len(wf.Samples), 2)
	assert.InDelta(t, 1.0, wf.Seconds(), 0.01)

	peak := 0.0
	for _, v := range wf.Samples {
		peak = max(peak, math.Abs(v))
	}
	assert.InDelta(t, 16000.0/32768.0, peak, 0.02)
}

func TestDecode_Failures(t *testing.T) {
	t.Parallel()

	silent := encodeWAV(t, make([]int, 22050), 22050, 1)

	tests := []struct {
		name     string
		data     []byte
		sentinel error
	}{
		{"empty buffer", nil, ErrEmpty},
		{"corrupt wav", []byte("RIFF....WAVEjunkjunkjunk"), ErrUnreadable},
		{"silent clip", silent, ErrSilent},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			_, err := testDecoder(t).Decode(t.Context(), tt.data, "audio/wav", "clip.wav")
			require.Error(t, err)
			assert.ErrorIs(t, err, tt.sentinel)
			assert.Equal(t, tt.sentinel.Error(), err.Error())
			assert.True(t, errors.IsCategory(err, errors.CategoryAudioDecode))
		})
	}
}

type recordingObserver struct {
	formats []string
	errs    []error
}

func (r *recordingObserver) RecordDecode(format string, _ time.Duration, err error) {
	r.formats = append(r.formats, format)
	r.errs = append(r.errs, err)
}

func TestDecode_ExternalRemovesTempFile(t *testing.T) {
	t.Parallel()

	tmp := t.TempDir()
	obs := &recordingObserver{}
	dec := testDecoder(t,
		WithFFmpegPath(filepath.Join(tmp, "missing-ffmpeg")),
		WithTempDir(tmp),
		WithDecodeObserver(obs))

	_, err := dec.Decode(t.Context(), []byte{0xFF, 0xFB, 0x90, 0x00}, "audio/mpeg", "clip.mp3")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrUnreadable)

	entries, err := os.ReadDir(tmp)
	require.NoError(t, err)
	assert.Empty(t, entries, "staged input must be removed")

	require.Len(t, obs.formats, 1)
	assert.Equal(t, "mp3", obs.formats[0])
	assert.Error(t, obs.errs[0])
}

func TestResampleAudio(t *testing.T) {
	t.Parallel()

	in := []float64{0, 1, 0, -1, 0, 1, 0, -1}
	assert.Equal(t, in, ResampleAudio(in, 22050, 22050))
	assert.Len(t, ResampleAudio(in, 44100, 22050), 4)
	assert.Len(t, ResampleAudio(in, 11025, 22050), 16)
	assert.Len(t, ResampleAudio([]float64{0.5, 0.5}, 11025, 22050), 4)

	up := ResampleAudio([]float64{0.25, 0.25, 0.25, 0.25, 0.25}, 16000, 22050)
	for _, v := range up {
		assert.InDelta(t, 0.25, v, 1e-12)
	}
}

func TestParseFloat32LE(t *testing.T) {
	t.Parallel()

	raw := make([]byte, 10)
	binary.LittleEndian.PutUint32(raw[0:], math.Float32bits(0.5))
	binary.LittleEndian.PutUint32(raw[4:], math.Float32bits(-1))
	got := parseFloat32LE(raw)
	assert.Equal(t, []float64{0.5, -1}, got)
}

func TestTailWriter_KeepsLastBytes(t *testing.T) {
	t.Parallel()

	w := newTailWriter(8)
	_, err := w.Write([]byte("hello "))
	require.NoError(t, err)
	n, err := w.Write([]byte("world"))
	require.NoError(t, err)
	assert.Equal(t, 5, n)
	assert.Equal(t, "lo world", w.String())

	_, err = w.Write([]byte("0123456789abc"))
	require.NoError(t, err)
	assert.Equal(t, "56789abc", w.String())
}

func TestClampAndDownmix(t *testing.T) {
	t.Parallel()

	s := []float64{1.5, -2, 0.3}
	clampUnit(s)
	assert.Equal(t, []float64{1, -1, 0.3}, s)
	assert.Equal(t, []float64{0.5, 0}, downmix([]float64{1, 0, 0.5, -0.5}, 2))
}
