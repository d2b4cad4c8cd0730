package vision

import (
	"fmt"
	"runtime/debug"

	"golang.org/x/sync/errgroup"

	"github.com/cardoc/cardoc-go/internal/errors"
	"github.com/cardoc/cardoc-go/internal/logger"
)

// Features bundles all image descriptors of one photo.
type Features struct {
	Dashboard Dashboard `json:"dashboard"`
	Lights    []Light   `json:"detected_lights"`
	Quality   Quality   `json:"image_quality"`
}

// Extractor computes Features. Use NewExtractor.
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

// GetLogger returns the vision logger.
func GetLogger() logger.Logger {
	return logger.Global().Module("vision")
}

// Extract runs the dashboard, light and quality detectors concurrently. A
// detector that fails degrades to its neutral result.
func (e *Extractor) Extract(f *Frame) *Features {
	out := &Features{}
	var g errgroup.Group
	g.Go(func() error {
		out.Dashboard = guard(e.log, "dashboard_detection", func(error) Dashboard { return Dashboard{} },
			func() (Dashboard, error) { return DetectDashboard(f), nil })
		return nil
	})
	g.Go(func() error {
		out.Lights = guard(e.log, "warning_lights", func(error) []Light { return []Light{} },
			func() ([]Light, error) { return DetectLights(f), nil })
		return nil
	})
	g.Go(func() error {
		out.Quality = guard(e.log, "image_quality", FailedQuality, func() (Quality, error) {
			return AssessQuality(f)
		})
		return nil
	})
	_ = g.Wait()

	e.log.Debug("image features extracted",
		logger.String("dimensions", f.Dimensions()),
		logger.Bool("dashboard_detected", out.Dashboard.Detected),
		logger.Float64("edge_density", out.Dashboard.EdgeDensity),
		logger.Int("circles", out.Dashboard.Circles),
		logger.Int("lights", len(out.Lights)))
	return out
}

func guard[T any](log logger.Logger, operation string, fallback func(error) T, fn func() (T, error)) (out T) {
	defer func() {
		if r := recover(); r != nil {
			err := errors.Newf("%s panicked: %v", operation, r).
				Component("vision").
				Category(errors.CategoryFeatureExtraction).
				Context("operation", operation).
				Build()
			log.Error("image analysis panicked",
				logger.String("operation", operation),
				logger.Error(err),
				logger.String("stack", string(debug.Stack())))
			out = fallback(err)
		}
	}()

	out, err := fn()
	if err != nil {
		ee := errors.New(fmt.Errorf("%s: %w", operation, err)).
			Component("vision").
			Category(errors.CategoryFeatureExtraction).
			Context("operation", operation).
			Build()
		log.Warn("image analysis failed",
			logger.String("operation", operation),
			logger.Error(ee))
		return fallback(ee)
	}
	return out
}
