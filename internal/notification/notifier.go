// Package notification pushes urgent diagnosis results to the shoutrrr
// services listed in the configuration.
package notification

import (
	"context"
	"fmt"
	"io"
	"log"
	"slices"
	"strings"
	"time"

	shoutrrr "github.com/nicholas-fedor/shoutrrr"
	stypes "github.com/nicholas-fedor/shoutrrr/pkg/types"

	"github.com/cardoc/cardoc-go/internal/conf"
	"github.com/cardoc/cardoc-go/internal/errors"
	"github.com/cardoc/cardoc-go/internal/faults"
	"github.com/cardoc/cardoc-go/internal/logger"
)

// DefaultTimeout bounds one delivery when the configuration leaves it unset.
const DefaultTimeout = 10 * time.Second

// sender is the subset of *router.ServiceRouter the notifier uses.
type sender interface {
	Send(message string, params *stypes.Params) []error
}

// Notifier delivers messages for results at or above a minimum urgency.
type Notifier struct {
	sender     sender
	minUrgency faults.Level
	log        logger.Logger
}

// GetLogger returns the notification logger.
func GetLogger() logger.Logger {
	return logger.Global().Module("notification")
}

// New builds a Notifier from settings. It returns nil, nil when
// notifications are disabled.
func New(settings *conf.NotificationSettings) (*Notifier, error) {
	if settings == nil || !settings.Enabled {
		return nil, nil
	}
	if len(settings.URLs) == 0 {
		return nil, configError("at least one notification URL is required", "urls")
	}

	minUrgency, err := ParseUrgency(settings.MinUrgency)
	if err != nil {
		return nil, err
	}

	router, err := shoutrrr.CreateSender(slices.Clone(settings.URLs)...)
	if err != nil {
		// the raw error echoes the service URL, which carries tokens
		return nil, errors.Newf("invalid notification URL: %d configured", len(settings.URLs)).
			Component("notification").
			Category(errors.CategoryConfiguration).
			Context("operation", "create_sender").
			Build()
	}
	timeout := settings.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	router.Timeout = timeout
	router.SetLogger(log.New(io.Discard, "", 0))

	return newNotifier(router, minUrgency), nil
}

func newNotifier(s sender, minUrgency faults.Level) *Notifier {
	return &Notifier{sender: s, minUrgency: minUrgency, log: GetLogger()}
}

// ParseUrgency maps a configured urgency name to a level. An empty name
// selects critical.
func ParseUrgency(name string) (faults.Level, error) {
	switch faults.Level(strings.ToLower(strings.TrimSpace(name))) {
	case "", faults.LevelCritical:
		return faults.LevelCritical, nil
	case faults.LevelWarning:
		return faults.LevelWarning, nil
	case faults.LevelNormal:
		return faults.LevelNormal, nil
	default:
		return "", configError(fmt.Sprintf("unknown urgency %q", name), "min_urgency")
	}
}

func rank(l faults.Level) int {
	switch l {
	case faults.LevelCritical:
		return 2
	case faults.LevelWarning:
		return 1
	default:
		return 0
	}
}

// MinUrgency returns the lowest urgency that triggers a notification.
func (n *Notifier) MinUrgency() faults.Level {
	return n.minUrgency
}

// ShouldNotify reports whether a result of the given urgency is sent.
func (n *Notifier) ShouldNotify(urgency faults.Level) bool {
	if n == nil {
		return false
	}
	return rank(urgency) >= rank(n.minUrgency)
}

// Title formats the notification title for a diagnosis.
func Title(diagnosisType string, urgency faults.Level) string {
	return fmt.Sprintf("CarDoc: %s %s", urgency, diagnosisType)
}

// Notify sends message when urgency reaches the configured minimum. It
// reports whether a notification was delivered.
func (n *Notifier) Notify(ctx context.Context, diagnosisType string, urgency faults.Level, message string) (bool, error) {
	if !n.ShouldNotify(urgency) {
		return false, nil
	}
	if err := ctx.Err(); err != nil {
		return false, err
	}

	params := stypes.Params{}
	params.SetTitle(Title(diagnosisType, urgency))

	start := time.Now()
	for _, err := range n.sender.Send(message, &params) {
		if err == nil {
			continue
		}
		ee := errors.New(err).
			Component("notification").
			Category(errors.CategoryNotification).
			Context("operation", "send").
			Context("diagnosis_type", diagnosisType).
			Build()
		n.log.Warn("notification delivery failed",
			logger.String("diagnosis_type", diagnosisType),
			logger.String("urgency", string(urgency)),
			logger.Error(ee))
		return false, ee
	}

	n.log.Info("notification sent",
		logger.String("diagnosis_type", diagnosisType),
		logger.String("urgency", string(urgency)),
		logger.Duration("elapsed", time.Since(start)))
	return true, nil
}

func configError(msg, field string) error {
	return errors.Newf("%s", msg).
		Component("notification").
		Category(errors.CategoryConfiguration).
		Context("field", field).
		Build()
}
