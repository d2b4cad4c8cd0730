// Package diagnosis is the entry point of the analysis core. It runs the
// signal loaders and feature extractors, fuses their scores and assembles
// the immutable results handed to downstream collaborators.
package diagnosis

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/cardoc/cardoc-go/internal/errors"
	"github.com/cardoc/cardoc-go/internal/features"
	"github.com/cardoc/cardoc-go/internal/logger"
	"github.com/cardoc/cardoc-go/internal/myaudio"
	"github.com/cardoc/cardoc-go/internal/vision"
)

// Observer receives every finished analysis, typically a metrics recorder.
type Observer interface {
	ObserveAudio(result *AudioResult, elapsed time.Duration)
	ObserveImage(result *ImageResult, elapsed time.Duration)
}

// Analyzer runs audio and image analyses. It holds no per-request state and
// is safe for concurrent use.
type Analyzer struct {
	decoder  *myaudio.Decoder
	audio    *features.Extractor
	images   *vision.Extractor
	log      logger.Logger
	now      func() time.Time
	newID    func() string
	observer Observer
}

// Option configures an Analyzer.
type Option func(*Analyzer)

// WithDecoder sets the audio decoder.
func WithDecoder(d *myaudio.Decoder) Option {
	return func(a *Analyzer) { a.decoder = d }
}

// WithLogger sets the logger used by the analyzer and its extractors.
func WithLogger(log logger.Logger) Option {
	return func(a *Analyzer) { a.log = log }
}

// WithClock sets the source of analysis timestamps.
func WithClock(now func() time.Time) Option {
	return func(a *Analyzer) { a.now = now }
}

// WithIDGenerator sets the source of analysis identifiers.
func WithIDGenerator(newID func() string) Option {
	return func(a *Analyzer) { a.newID = newID }
}

// WithObserver registers an observer for finished analyses.
func WithObserver(o Observer) Option {
	return func(a *Analyzer) { a.observer = o }
}

// NewAnalyzer returns an Analyzer with a default decoder, the wall clock
// and random UUIDs unless overridden.
func NewAnalyzer(opts ...Option) *Analyzer {
	a := &Analyzer{
		log:   GetLogger(),
		now:   time.Now,
		newID: uuid.NewString,
	}
	for _, opt := range opts {
		opt(a)
	}
	if a.decoder == nil {
		a.decoder = myaudio.NewDecoder()
	}
	a.audio = features.NewExtractor(a.log.Module("features"))
	a.images = vision.NewExtractor(a.log.Module("vision"))
	return a
}

// GetLogger returns the diagnosis logger.
func GetLogger() logger.Logger {
	return logger.Global().Module("diagnosis")
}

// AnalyzeAudio validates, decodes and analyses an engine-sound clip. The
// result is always complete; err is non-nil only when the clip was rejected
// or could not be decoded, and then carries errors.CategoryValidation or
// errors.CategoryAudioDecode.
func (a *Analyzer) AnalyzeAudio(ctx context.Context, data []byte, contentType, filename string) (*AudioResult, error) {
	start := time.Now()
	log := a.log.WithContext(ctx)
	id := a.newID()

	var result *AudioResult
	defer func() {
		if a.observer != nil {
			a.observer.ObserveAudio(result, time.Since(start))
		}
	}()

	wf, err := a.decoder.Decode(ctx, data, contentType, filename)
	if err != nil {
		kind, message := audioFailure(err)
		log.Warn("audio analysis failed",
			logger.String("analysis_id", id),
			logger.String("content_type", contentType),
			logger.String("failure_kind", string(kind)),
			logger.Error(err))
		result = FailedAudio(id, a.now(), kind, message)
		return result, err
	}

	result = AssembleAudio(id, a.now(), wf, a.audio.Extract(wf.Samples, wf.SampleRate))

	log.Info("audio analysis completed",
		logger.String("analysis_id", id),
		logger.Float64("duration_seconds", result.Metadata.DurationSeconds),
		logger.Int("faults", len(result.DetectedFaults)),
		logger.Float64("confidence", result.OverallConfidence),
		logger.String("urgency", string(result.UrgencyLevel)),
		logger.Duration("elapsed", time.Since(start)))
	return result, nil
}

// AnalyzeImage decodes and analyses a dashboard photo. The caller is
// expected to have checked the content type. err is non-nil only when the
// buffer could not be decoded.
func (a *Analyzer) AnalyzeImage(ctx context.Context, data []byte) (*ImageResult, error) {
	start := time.Now()
	log := a.log.WithContext(ctx)
	id := a.newID()

	var result *ImageResult
	defer func() {
		if a.observer != nil {
			a.observer.ObserveImage(result, time.Since(start))
		}
	}()

	frame, err := vision.Decode(data)
	if err != nil {
		log.Warn("image analysis failed",
			logger.String("analysis_id", id),
			logger.Int("input_bytes", len(data)),
			logger.Error(err))
		result = FailedImage(id, a.now(), FailureDecode, vision.MsgUndecodable)
		return result, err
	}

	result = AssembleImage(id, a.now(), frame, a.images.Extract(frame))

	log.Info("image analysis completed",
		logger.String("analysis_id", id),
		logger.String("dimensions", result.Metadata.ImageDimensions),
		logger.Int("lights", len(result.DetectedLights)),
		logger.Bool("dashboard_detected", result.DashboardDetected),
		logger.Float64("confidence", result.OverallConfidence),
		logger.Duration("elapsed", time.Since(start)))
	return result, nil
}

// audioFailure maps a decode error to its failure kind and user message.
func audioFailure(err error) (FailureKind, string) {
	switch {
	case errors.IsValidation(err):
		return FailureValidation, err.Error()
	case errors.Is(err, myaudio.ErrEmpty):
		return FailureDecode, myaudio.MsgEmptyAudio
	case errors.Is(err, myaudio.ErrSilent):
		return FailureDecode, myaudio.MsgSilentAudio
	default:
		return FailureDecode, myaudio.MsgUnreadable
	}
}
