package myaudio

import (
	"context"
	"path/filepath"
	"strings"
	"time"

	"github.com/cardoc/cardoc-go/internal/conf"
	"github.com/cardoc/cardoc-go/internal/errors"
	"github.com/cardoc/cardoc-go/internal/logger"
)

// DecodeObserver receives decode outcomes, typically a metrics recorder.
type DecodeObserver interface {
	RecordDecode(format string, duration time.Duration, err error)
}

// Decoder turns uploaded audio bytes into analysis waveforms.
type Decoder struct {
	ffmpegPath string
	tempDir    string
	log        logger.Logger
	observer   DecodeObserver
}

// DecoderOption configures a Decoder.
type DecoderOption func(*Decoder)

// WithFFmpegPath sets the ffmpeg binary used for compressed formats.
func WithFFmpegPath(path string) DecoderOption {
	return func(d *Decoder) { d.ffmpegPath = path }
}

// WithTempDir sets the staging directory for external decoding.
func WithTempDir(dir string) DecoderOption {
	return func(d *Decoder) { d.tempDir = dir }
}

// WithLogger overrides the module logger.
func WithLogger(log logger.Logger) DecoderOption {
	return func(d *Decoder) { d.log = log }
}

// WithDecodeObserver registers an observer for decode outcomes.
func WithDecodeObserver(o DecodeObserver) DecoderOption {
	return func(d *Decoder) { d.observer = o }
}

// NewDecoder builds a Decoder. The ffmpeg path defaults to the binary found
// on PATH.
func NewDecoder(opts ...DecoderOption) *Decoder {
	d := &Decoder{log: GetLogger()}
	for _, opt := range opts {
		opt(d)
	}
	if d.ffmpegPath == "" {
		d.ffmpegPath = conf.ResolveFfmpegPath("")
	}
	return d
}

// NewDecoderFromSettings builds a Decoder from the analysis settings.
func NewDecoderFromSettings(settings *conf.Settings, opts ...DecoderOption) *Decoder {
	base := []DecoderOption{
		WithFFmpegPath(conf.ResolveFfmpegPath(settings.Analysis.FfmpegPath)),
		WithTempDir(settings.Analysis.TempDir),
	}
	return NewDecoder(append(base, opts...)...)
}

// Decode validates the declared format and decodes data into a mono
// waveform at SampleRate with samples clamped to [-1, 1].
//
// Validation failures carry errors.CategoryValidation. Unreadable, empty
// and all-zero clips fail with errors.CategoryAudioDecode wrapping
// ErrUnreadable, ErrEmpty and ErrSilent respectively.
func (d *Decoder) Decode(ctx context.Context, data []byte, contentType, filename string) (*Waveform, error) {
	if err := ValidateFormat(contentType, filename); err != nil {
		return nil, err
	}
	format, _ := lookupFormat(contentType)
	name := formatName(format, filename)

	start := time.Now()
	wf, err := d.decode(ctx, data, format, name)
	if d.observer != nil {
		d.observer.RecordDecode(name, time.Since(start), err)
	}
	return wf, err
}

func (d *Decoder) decode(ctx context.Context, data []byte, format audioFormat, name string) (*Waveform, error) {
	log := d.log.WithContext(ctx)

	if len(data) == 0 {
		return nil, decodeError(ErrEmpty, nil, name, "read_input")
	}

	var (
		samples    []float64
		sourceRate = SampleRate
		err        error
	)
	switch format.decoder {
	case decoderWAV:
		samples, sourceRate, err = readWAV(data)
	case decoderFLAC:
		samples, sourceRate, err = readFLAC(data)
	default:
		samples, err = d.decodeExternal(ctx, data, format.extensions[0])
	}
	if err != nil {
		log.Warn("audio decode failed",
			logger.String("format", name),
			logger.Int("input_bytes", len(data)),
			logger.Error(err))
		if errors.IsCategory(err, errors.CategoryConfiguration) {
			return nil, err
		}
		return nil, decodeError(ErrUnreadable, err, name, "decode")
	}

	if sourceRate <= 0 {
		return nil, decodeError(ErrUnreadable, errors.NewStd("invalid sample rate"), name, "decode")
	}
	samples = ResampleAudio(samples, sourceRate, SampleRate)

	if len(samples) == 0 {
		return nil, decodeError(ErrEmpty, nil, name, "decode")
	}
	clampUnit(samples)
	if isSilent(samples) {
		return nil, decodeError(ErrSilent, nil, name, "decode")
	}

	log.Debug("audio decoded",
		logger.String("format", name),
		logger.Int("source_sample_rate", sourceRate),
		logger.Int("samples", len(samples)))

	return &Waveform{Samples: samples, SampleRate: SampleRate, Format: name}, nil
}

// formatName is the short format label used in logs and metrics.
func formatName(format audioFormat, filename string) string {
	if ext := strings.TrimPrefix(strings.ToLower(filepath.Ext(filename)), "."); ext != "" {
		return ext
	}
	if len(format.extensions) > 0 {
		return strings.TrimPrefix(format.extensions[0], ".")
	}
	return "unknown"
}
