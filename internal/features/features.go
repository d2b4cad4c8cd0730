// Package features extracts the audio descriptors used for fault matching:
// recording quality, the averaged frequency profile, decibel statistics,
// high-energy anomaly regions and qualitative sound patterns.
//
// Every extractor is a pure function over an immutable waveform or
// spectrogram. Extract runs them concurrently and guards each one, so a
// failing sub-computation degrades to its neutral default instead of
// aborting the analysis.
package features

import (
	"fmt"
	"runtime/debug"

	"golang.org/x/sync/errgroup"

	"github.com/cardoc/cardoc-go/internal/dsp"
	"github.com/cardoc/cardoc-go/internal/errors"
	"github.com/cardoc/cardoc-go/internal/logger"
)

// Analysis frame parameters shared by every extractor
const (
	NFFT      = 2048
	HopLength = 512
)

// Features bundles all audio descriptors of one clip.
type Features struct {
	Quality   Quality          `json:"audio_quality"`
	Spectrum  FrequencyProfile `json:"frequency_analysis"`
	Patterns  []Pattern        `json:"sound_patterns"`
	Decibels  Decibels         `json:"decibel_analysis"`
	Anomalies Anomalies        `json:"anomaly_analysis"`
}

// Extractor computes Features. The zero value is not usable; use NewExtractor.
type Extractor struct {
	log logger.Logger
}

// NewExtractor returns an Extractor logging to log, or to the module logger
// when log is nil.
func NewExtractor(log logger.Logger) *Extractor {
	if log == nil {
		log = GetLogger()
	}
	return &Extractor{log: log}
}

// GetLogger returns the features logger.
func GetLogger() logger.Logger {
	return logger.Global().Module("features")
}

// Extract computes every descriptor of y sampled at sampleRate. It never
// fails: each extractor that errors or panics is replaced by its fallback.
func (e *Extractor) Extract(y []float64, sampleRate int) *Features {
	spec := guard(e.log, "stft", func(error) *dsp.Spectrogram { return nil }, func() (*dsp.Spectrogram, error) {
		if len(y) == 0 {
			return nil, errors.NewStd("empty waveform")
		}
		return dsp.NewSpectrogram(y, sampleRate, NFFT, HopLength), nil
	})

	f := &Features{}
	var g errgroup.Group
	g.Go(func() error {
		f.Quality = guard(e.log, "audio_quality", FailedQuality, func() (Quality, error) {
			return AssessQuality(y, sampleRate)
		})
		return nil
	})
	g.Go(func() error {
		f.Spectrum = guard(e.log, "frequency_spectrum", FailedSpectrum, func() (FrequencyProfile, error) {
			return AnalyzeSpectrum(spec)
		})
		return nil
	})
	g.Go(func() error {
		f.Patterns = DetectPatterns(e.log, y, spec)
		return nil
	})
	g.Go(func() error {
		f.Decibels = guard(e.log, "decibel_levels", FailedDecibels, func() (Decibels, error) {
			return AnalyzeDecibels(y)
		})
		return nil
	})
	g.Go(func() error {
		f.Anomalies = guard(e.log, "anomaly_duration", FailedAnomalies, func() (Anomalies, error) {
			return AnalyzeAnomalies(y, sampleRate)
		})
		return nil
	})
	_ = g.Wait()

	return f
}

// guard runs fn and converts an error or panic into fallback(err), logging
// the failure as a feature-extraction error.
func guard[T any](log logger.Logger, operation string, fallback func(error) T, fn func() (T, error)) (out T) {
	defer func() {
		if r := recover(); r != nil {
			err := errors.Newf("%s panicked: %v", operation, r).
				Component("features").
				Category(errors.CategoryFeatureExtraction).
				Context("operation", operation).
				Build()
			log.Error("feature extraction panicked",
				logger.String("operation", operation),
				logger.Error(err),
				logger.String("stack", string(debug.Stack())))
			out = fallback(err)
		}
	}()

	out, err := fn()
	if err != nil {
		ee := errors.New(fmt.Errorf("%s: %w", operation, err)).
			Component("features").
			Category(errors.CategoryFeatureExtraction).
			Context("operation", operation).
			Build()
		log.Warn("feature extraction failed",
			logger.String("operation", operation),
			logger.Error(ee))
		return fallback(err)
	}
	return out
}
