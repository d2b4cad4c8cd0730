// Package service runs complete diagnoses: the core analysis, its
// narration, tutorial lookup, archival of the upload, persistence and the
// outbound notifications, with results cached by upload content.
package service

import (
	"context"
	"encoding/json"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/cardoc/cardoc-go/internal/archive"
	"github.com/cardoc/cardoc-go/internal/datastore"
	"github.com/cardoc/cardoc-go/internal/diagnosis"
	"github.com/cardoc/cardoc-go/internal/errors"
	"github.com/cardoc/cardoc-go/internal/faults"
	"github.com/cardoc/cardoc-go/internal/logger"
	"github.com/cardoc/cardoc-go/internal/mqtt"
	"github.com/cardoc/cardoc-go/internal/narration"
	"github.com/cardoc/cardoc-go/internal/observability/metrics"
	"github.com/cardoc/cardoc-go/internal/resultcache"
	"github.com/cardoc/cardoc-go/internal/tutorials"
)

// ErrPersistenceDisabled is returned by lookups when no datastore is configured.
var ErrPersistenceDisabled = errors.NewStd("diagnosis persistence is disabled")

// Analyzer runs the core analyses.
type Analyzer interface {
	AnalyzeAudio(ctx context.Context, data []byte, contentType, filename string) (*diagnosis.AudioResult, error)
	AnalyzeImage(ctx context.Context, data []byte) (*diagnosis.ImageResult, error)
}

// Narrator interprets analysis results. It never fails.
type Narrator interface {
	EngineSound(ctx context.Context, result *diagnosis.AudioResult) *narration.Narrative
	Dashboard(ctx context.Context, result *diagnosis.ImageResult) *narration.Narrative
}

// TutorialSearcher finds repair videos for keywords.
type TutorialSearcher interface {
	Search(ctx context.Context, keywords []string, maxResults int) ([]tutorials.Tutorial, error)
}

// Notifier alerts about urgent results. It reports whether a message was sent.
type Notifier interface {
	Notify(ctx context.Context, diagnosisType string, urgency faults.Level, message string) (bool, error)
}

// Publisher announces finished diagnoses.
type Publisher interface {
	Publish(ctx context.Context, s *mqtt.Summary) error
}

// Diagnoser runs diagnoses end to end. Only the Analyzer is required;
// every other collaborator is skipped when unset.
type Diagnoser struct {
	analyzer  Analyzer
	narrator  Narrator
	tutorials TutorialSearcher
	cache     resultcache.Cache
	archive   archive.Target
	store     datastore.Interface
	notifier  Notifier
	publisher Publisher
	recorder  metrics.Recorder
	log       logger.Logger
	now       func() time.Time
	newID     func() string

	maxTutorials int
	closers      []func() error
}

// Option configures a Diagnoser.
type Option func(*Diagnoser)

// WithNarrator sets the narrator.
func WithNarrator(n Narrator) Option {
	return func(d *Diagnoser) { d.narrator = n }
}

// WithTutorials sets the tutorial searcher and the number of tutorials
// attached to each response.
func WithTutorials(s TutorialSearcher, maxResults int) Option {
	return func(d *Diagnoser) {
		d.tutorials = s
		d.maxTutorials = maxResults
	}
}

// WithCache sets the result cache.
func WithCache(c resultcache.Cache) Option {
	return func(d *Diagnoser) { d.cache = c }
}

// WithArchive sets where raw uploads are kept.
func WithArchive(t archive.Target) Option {
	return func(d *Diagnoser) { d.archive = t }
}

// WithStore sets the datastore. The store must already be open.
func WithStore(s datastore.Interface) Option {
	return func(d *Diagnoser) { d.store = s }
}

// WithNotifier sets the urgent-result notifier.
func WithNotifier(n Notifier) Option {
	return func(d *Diagnoser) { d.notifier = n }
}

// WithPublisher sets the summary publisher.
func WithPublisher(p Publisher) Option {
	return func(d *Diagnoser) { d.publisher = p }
}

// WithRecorder sets the collaborator metrics recorder.
func WithRecorder(r metrics.Recorder) Option {
	return func(d *Diagnoser) { d.recorder = r }
}

// WithLogger replaces the service logger.
func WithLogger(log logger.Logger) Option {
	return func(d *Diagnoser) { d.log = log }
}

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(d *Diagnoser) { d.now = now }
}

// WithIDGenerator replaces the diagnostic id generator.
func WithIDGenerator(newID func() string) Option {
	return func(d *Diagnoser) { d.newID = newID }
}

// WithCloser registers a function run by Close.
func WithCloser(fn func() error) Option {
	return func(d *Diagnoser) { d.closers = append(d.closers, fn) }
}

// New returns a Diagnoser around analyzer.
func New(analyzer Analyzer, opts ...Option) *Diagnoser {
	d := &Diagnoser{
		analyzer:     analyzer,
		narrator:     narration.NewWithGenerator(nil, 0),
		cache:        resultcache.Disabled{},
		recorder:     metrics.NewNoOpRecorder(),
		log:          GetLogger(),
		now:          time.Now,
		newID:        uuid.NewString,
		maxTutorials: tutorials.DefaultMaxResults,
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// GetLogger returns the service logger.
func GetLogger() logger.Logger {
	return logger.Global().Module("service")
}

// Close releases the collaborators registered with WithCloser, in reverse
// order.
func (d *Diagnoser) Close() error {
	var errs []error
	for i := len(d.closers) - 1; i >= 0; i-- {
		if err := d.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	d.closers = nil
	return errors.Join(errs...)
}

// cachedAnalysis is the content-addressed part of a diagnosis.
type cachedAnalysis struct {
	Audio     *diagnosis.AudioResult `json:"audio,omitempty"`
	Image     *diagnosis.ImageResult `json:"image,omitempty"`
	Narrative *narration.Narrative   `json:"narrative"`
	Tutorials []tutorials.Tutorial   `json:"tutorials"`
}

// DiagnoseEngineSound analyses an engine recording for userID. A clip that
// is rejected or cannot be decoded yields an errors.CategoryValidation error
// whose message starts with "Audio analysis failed".
func (d *Diagnoser) DiagnoseEngineSound(ctx context.Context, userID string, data []byte, contentType, filename string) (*Response, error) {
	if err := validateUser(userID); err != nil {
		return nil, err
	}

	key := resultcache.Key(datastore.TypeEngineSound, data)
	analysis, cached := d.cacheGet(ctx, key)
	if !cached {
		result, err := d.analyzer.AnalyzeAudio(ctx, data, contentType, filename)
		if err != nil || !result.AnalysisSuccessful {
			message := "audio could not be analysed"
			if result != nil && result.ErrorMessage != "" {
				message = result.ErrorMessage
			}
			d.recordFailure(ctx, userID, datastore.TypeEngineSound)
			return nil, analysisError(err, "Audio analysis failed: "+message)
		}

		analysis = &cachedAnalysis{Audio: result}
		analysis.Narrative = d.narrate(func() *narration.Narrative {
			return d.narrator.EngineSound(ctx, result)
		})
		keywords := orDefault(analysis.Narrative.RepairKeywords, orDefault(result.RepairKeywords, defaultEngineKeywords))
		analysis.Tutorials = d.searchTutorials(ctx, keywords)
		d.cacheSet(ctx, key, analysis)
	}

	resp := d.respond(userID, datastore.TypeEngineSound, analysis, cached)
	d.finish(ctx, resp, archive.BucketEngineSounds, audioExt(filename, contentType), data)
	return resp, nil
}

// DiagnoseDashboard analyses a dashboard photo for userID. An undecodable
// image yields an errors.CategoryValidation error.
func (d *Diagnoser) DiagnoseDashboard(ctx context.Context, userID string, data []byte) (*Response, error) {
	if err := validateUser(userID); err != nil {
		return nil, err
	}

	key := resultcache.Key(datastore.TypeDashboardScan, data)
	analysis, cached := d.cacheGet(ctx, key)
	if !cached {
		result, err := d.analyzer.AnalyzeImage(ctx, data)
		if err != nil || !result.Successful() {
			message := "image could not be analysed"
			if result != nil && result.ErrorMessage != "" {
				message = result.ErrorMessage
			}
			d.recordFailure(ctx, userID, datastore.TypeDashboardScan)
			return nil, analysisError(err, "Image analysis failed: "+message)
		}

		analysis = &cachedAnalysis{Image: result}
		analysis.Narrative = d.narrate(func() *narration.Narrative {
			return d.narrator.Dashboard(ctx, result)
		})
		keywords := orDefault(analysis.Narrative.RepairKeywords, orDefault(result.RepairKeywords, defaultDashboardKeywords))
		analysis.Tutorials = d.searchTutorials(ctx, keywords)
		d.cacheSet(ctx, key, analysis)
	}

	ext := "jpg"
	if analysis.Image != nil && analysis.Image.Metadata.Format == "png" {
		ext = "png"
	}
	resp := d.respond(userID, datastore.TypeDashboardScan, analysis, cached)
	d.finish(ctx, resp, archive.BucketDashboardImages, ext, data)
	return resp, nil
}

// respond builds the client response for a fresh diagnostic id.
func (d *Diagnoser) respond(userID, diagnosisType string, a *cachedAnalysis, cached bool) *Response {
	n := a.Narrative
	issues, recommendations := defaultEngineIssues, defaultEngineRecommendations
	if diagnosisType == datastore.TypeDashboardScan {
		issues, recommendations = defaultDashboardIssues, defaultDashboardRecommend
	}
	found := a.Tutorials
	if found == nil {
		found = []tutorials.Tutorial{}
	}

	return &Response{
		DiagnosticID:    d.newID(),
		UserID:          userID,
		DiagnosisType:   diagnosisType,
		Status:          datastore.StatusCompleted,
		DetectedIssues:  orDefault(n.DetectedIssues, issues),
		ConfidenceScore: ConfidenceScore(n.Confidence),
		UrgencyLevel:    ClientUrgency(n.Urgency),
		AnalysisResults: AnalysisResults{
			Audio:                   a.Audio,
			Image:                   a.Image,
			Narrative:               n,
			SafeToDrive:             n.Assessment.SafeToDrive,
			ImmediateActionRequired: n.Assessment.ImmediateActionRequired,
			SafetyAssessment:        n.Safety,
		},
		Recommendations:  orDefault(n.Recommendations, recommendations),
		YouTubeTutorials: found,
		CreatedAt:        d.now().UTC(),
		Cached:           cached,
	}
}

// finish archives the upload, stores the record and sends the outbound
// messages. Failures are logged and recorded but never fail the diagnosis.
func (d *Diagnoser) finish(ctx context.Context, resp *Response, bucket, ext string, data []byte) {
	log := d.log.WithContext(ctx)

	if d.archive != nil {
		key, err := archive.Key(bucket, resp.UserID, resp.DiagnosticID, ext)
		if err == nil {
			err = d.timed(metrics.OpArchive, func() error {
				return archive.Store(ctx, d.archive, key, data)
			})
		}
		if err == nil {
			resp.AnalysisResults.ArchivePath = d.archive.Name() + ":" + key
		}
	}

	if d.store != nil {
		record, err := d.record(resp)
		if err == nil {
			err = d.timed(metrics.OpDbInsert, func() error {
				return d.store.Save(ctx, record)
			})
		}
		if err != nil {
			log.Error("failed to persist diagnosis",
				logger.String("diagnostic_id", resp.DiagnosticID),
				logger.Error(err))
		}
	}

	n := resp.AnalysisResults.Narrative
	if d.notifier != nil {
		var sent bool
		err := d.timed(metrics.OpNotify, func() error {
			var err error
			sent, err = d.notifier.Notify(ctx, resp.DiagnosisType, n.Urgency, notificationMessage(resp))
			return err
		})
		if err != nil {
			log.Warn("failed to send diagnosis notification",
				logger.String("diagnostic_id", resp.DiagnosticID),
				logger.Error(err))
		} else if sent {
			log.Info("diagnosis notification sent",
				logger.String("diagnostic_id", resp.DiagnosticID),
				logger.String("urgency", string(n.Urgency)))
		}
	}

	if d.publisher != nil {
		err := d.timed(metrics.OpMQTTPublish, func() error {
			return d.publisher.Publish(ctx, &mqtt.Summary{
				DiagnosticID: resp.DiagnosticID,
				UserID:       resp.UserID,
				Type:         resp.DiagnosisType,
				Status:       resp.Status,
				Urgency:      resp.UrgencyLevel,
				Confidence:   resp.ConfidenceScore,
				Issues:       resp.DetectedIssues,
				CreatedAt:    resp.CreatedAt,
			})
		})
		if err != nil {
			log.Warn("failed to publish diagnosis summary",
				logger.String("diagnostic_id", resp.DiagnosticID),
				logger.Error(err))
		}
	}

	log.Info("diagnosis completed",
		logger.String("diagnostic_id", resp.DiagnosticID),
		logger.String("diagnosis_type", resp.DiagnosisType),
		logger.String("urgency", resp.UrgencyLevel),
		logger.Float64("confidence", resp.ConfidenceScore),
		logger.Int("tutorials", len(resp.YouTubeTutorials)),
		logger.Bool("cached", resp.Cached))
}

func (d *Diagnoser) record(resp *Response) (*datastore.DiagnosticRecord, error) {
	body, err := json.Marshal(resp)
	if err != nil {
		return nil, errors.New(err).
			Component("service").
			Category(errors.CategoryGeneric).
			Context("operation", "encode_response").
			Build()
	}
	return &datastore.DiagnosticRecord{
		ID:            resp.DiagnosticID,
		UserID:        resp.UserID,
		DiagnosisType: resp.DiagnosisType,
		Status:        resp.Status,
		UrgencyLevel:  resp.UrgencyLevel,
		Confidence:    resp.ConfidenceScore,
		ArchivePath:   resp.AnalysisResults.ArchivePath,
		Result:        string(body),
		CreatedAt:     resp.CreatedAt,
	}, nil
}

// recordFailure stores a failed diagnosis so it shows up in the history.
func (d *Diagnoser) recordFailure(ctx context.Context, userID, diagnosisType string) {
	if d.store == nil {
		return
	}
	record := &datastore.DiagnosticRecord{
		ID:            d.newID(),
		UserID:        userID,
		DiagnosisType: diagnosisType,
		Status:        datastore.StatusFailed,
		CreatedAt:     d.now().UTC(),
	}
	err := d.timed(metrics.OpDbInsert, func() error {
		return d.store.Save(ctx, record)
	})
	if err != nil {
		d.log.WithContext(ctx).Warn("failed to persist failed diagnosis", logger.Error(err))
	}
}

func (d *Diagnoser) narrate(fn func() *narration.Narrative) *narration.Narrative {
	start := time.Now()
	n := fn()
	d.recorder.RecordDuration(metrics.OpNarration, time.Since(start).Seconds())
	d.recorder.RecordOperation(metrics.OpNarration, n.Source)
	return n
}

func (d *Diagnoser) searchTutorials(ctx context.Context, keywords []string) []tutorials.Tutorial {
	if d.tutorials == nil {
		d.recorder.RecordOperation(metrics.OpTutorialSearch, metrics.StatusSkipped)
		return []tutorials.Tutorial{}
	}
	var found []tutorials.Tutorial
	err := d.timed(metrics.OpTutorialSearch, func() error {
		var err error
		found, err = d.tutorials.Search(ctx, keywords, d.maxTutorials)
		return err
	})
	if err != nil {
		d.log.WithContext(ctx).Warn("tutorial search failed",
			logger.String("keywords", strings.Join(keywords, ", ")),
			logger.Error(err))
		return []tutorials.Tutorial{}
	}
	return found
}

func (d *Diagnoser) cacheGet(ctx context.Context, key string) (*cachedAnalysis, bool) {
	start := time.Now()
	body, ok, err := d.cache.Get(ctx, key)
	d.recorder.RecordDuration(metrics.OpCacheGet, time.Since(start).Seconds())
	if err != nil {
		metrics.RecordOutcome(d.recorder, metrics.OpCacheGet, 0, err)
		d.log.WithContext(ctx).Warn("result cache lookup failed", logger.Error(err))
		return nil, false
	}
	if !ok {
		d.recorder.RecordOperation(metrics.OpCacheGet, metrics.StatusMiss)
		return nil, false
	}

	var a cachedAnalysis
	if err := json.Unmarshal(body, &a); err != nil || a.Narrative == nil {
		d.recorder.RecordOperation(metrics.OpCacheGet, metrics.StatusMiss)
		d.log.WithContext(ctx).Warn("discarding unreadable cache entry", logger.String("key", key))
		return nil, false
	}
	d.recorder.RecordOperation(metrics.OpCacheGet, metrics.StatusHit)
	return &a, true
}

func (d *Diagnoser) cacheSet(ctx context.Context, key string, a *cachedAnalysis) {
	body, err := json.Marshal(a)
	if err != nil {
		return
	}
	err = d.timed(metrics.OpCacheSet, func() error {
		return d.cache.Set(ctx, key, body)
	})
	if err != nil {
		d.log.WithContext(ctx).Warn("result cache store failed", logger.Error(err))
	}
}

// timed runs fn and records its outcome under operation.
func (d *Diagnoser) timed(operation string, fn func() error) error {
	start := time.Now()
	err := fn()
	metrics.RecordOutcome(d.recorder, operation, time.Since(start).Seconds(), err)
	return err
}

func validateUser(userID string) error {
	if strings.TrimSpace(userID) == "" {
		return errors.Newf("user_id is required").
			Component("service").
			Category(errors.CategoryValidation).
			Context("field", "user_id").
			Build()
	}
	return nil
}

func analysisError(cause error, message string) error {
	if cause == nil {
		cause = errors.NewStd(message)
	}
	return errors.New(fmt.Errorf("%s: %w", message, cause)).
		Component("service").
		Category(errors.CategoryValidation).
		Context("message", message).
		Build()
}

// Message returns the client-facing message of a diagnosis error.
func Message(err error) string {
	var ee *errors.EnhancedError
	if errors.As(err, &ee) {
		if msg, ok := ee.GetContext()["message"].(string); ok && msg != "" {
			return msg
		}
	}
	return err.Error()
}

func notificationMessage(resp *Response) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Urgency: %s (confidence %.0f%%)\n", resp.UrgencyLevel, resp.ConfidenceScore*100)
	fmt.Fprintf(&b, "Issues: %s\n", strings.Join(resp.DetectedIssues, "; "))
	if len(resp.Recommendations) > 0 {
		fmt.Fprintf(&b, "Next step: %s\n", resp.Recommendations[0])
	}
	fmt.Fprintf(&b, "Diagnosis: %s", resp.DiagnosticID)
	return b.String()
}

// audioExt picks the archive extension from the upload name, then its
// content type.
func audioExt(filename, contentType string) string {
	if ext := strings.TrimPrefix(strings.ToLower(filepath.Ext(filename)), "."); ext != "" {
		return ext
	}
	switch {
	case strings.Contains(contentType, "flac"):
		return "flac"
	case strings.Contains(contentType, "mpeg"), strings.Contains(contentType, "mp3"):
		return "mp3"
	case strings.Contains(contentType, "ogg"):
		return "ogg"
	default:
		return "wav"
	}
}
