// conf/validate.go

package conf

import (
	"fmt"
	"net"
	"net/url"
	"slices"
	"strings"
)

// ValidationError represents a collection of validation errors
type ValidationError struct {
	Errors []string
}

func (ve ValidationError) Error() string {
	return fmt.Sprintf("Validation errors: %v", ve.Errors)
}

// ValidateSettings validates the entire Settings struct
func ValidateSettings(settings *Settings) error {
	ve := ValidationError{}

	validators := []func(*Settings) error{
		validateAnalysisSettings,
		validateWebServerSettings,
		validateCacheSettings,
		validateOutputSettings,
		validateArchiveSettings,
		validateNotificationSettings,
		validateMQTTSettings,
		validateNarrationSettings,
		validateTutorialSettings,
		validateSentrySettings,
	}
	for _, validate := range validators {
		if err := validate(settings); err != nil {
			ve.Errors = append(ve.Errors, err.Error())
		}
	}

	if len(ve.Errors) > 0 {
		return ve
	}
	return nil
}

func validateAnalysisSettings(s *Settings) error {
	if s.Analysis.MaxUploadBytes <= 0 {
		return fmt.Errorf("analysis.max_upload_bytes must be positive, got %d", s.Analysis.MaxUploadBytes)
	}
	if s.Analysis.Workers < 0 {
		return fmt.Errorf("analysis.workers must not be negative, got %d", s.Analysis.Workers)
	}
	return nil
}

func validateWebServerSettings(s *Settings) error {
	if !s.WebServer.Enabled {
		return nil
	}
	if _, _, err := net.SplitHostPort(s.WebServer.Listen); err != nil {
		return fmt.Errorf("webserver.listen %q is not host:port: %w", s.WebServer.Listen, err)
	}
	return nil
}

func validateCacheSettings(s *Settings) error {
	if !s.Cache.Enabled {
		return nil
	}
	switch s.Cache.Backend {
	case CacheBackendMemory:
	case CacheBackendRedis:
		if s.Cache.Redis.Addr == "" {
			return fmt.Errorf("cache.redis.addr is required for the redis backend")
		}
	default:
		return fmt.Errorf("cache.backend must be %q or %q, got %q", CacheBackendMemory, CacheBackendRedis, s.Cache.Backend)
	}
	if s.Cache.TTL <= 0 {
		return fmt.Errorf("cache.ttl must be positive")
	}
	return nil
}

func validateOutputSettings(s *Settings) error {
	if s.Output.SQLite.Enabled && s.Output.MySQL.Enabled {
		return fmt.Errorf("only one of output.sqlite and output.mysql can be enabled")
	}
	if s.Output.SQLite.Enabled && s.Output.SQLite.Path == "" {
		return fmt.Errorf("output.sqlite.path is required")
	}
	if s.Output.MySQL.Enabled && (s.Output.MySQL.Host == "" || s.Output.MySQL.Database == "") {
		return fmt.Errorf("output.mysql.host and output.mysql.database are required")
	}
	return nil
}

func validateArchiveSettings(s *Settings) error {
	if !s.Archive.Enabled {
		return nil
	}
	switch s.Archive.Target {
	case ArchiveTargetLocal:
		if s.Archive.Path == "" {
			return fmt.Errorf("archive.path is required for the local target")
		}
	case ArchiveTargetFTP:
		if s.Archive.FTP.Host == "" {
			return fmt.Errorf("archive.ftp.host is required for the ftp target")
		}
	case ArchiveTargetSFTP:
		if s.Archive.SFTP.Host == "" {
			return fmt.Errorf("archive.sftp.host is required for the sftp target")
		}
		if s.Archive.SFTP.Password == "" && s.Archive.SFTP.KeyFile == "" {
			return fmt.Errorf("archive.sftp needs a password or key_file")
		}
	default:
		return fmt.Errorf("archive.target must be local, ftp or sftp, got %q", s.Archive.Target)
	}
	return nil
}

var urgencyLevels = []string{"normal", "warning", "critical"}

func validateNotificationSettings(s *Settings) error {
	if !s.Notification.Enabled {
		return nil
	}
	if len(s.Notification.URLs) == 0 {
		return fmt.Errorf("notification.urls must list at least one service URL")
	}
	if !slices.Contains(urgencyLevels, strings.ToLower(s.Notification.MinUrgency)) {
		return fmt.Errorf("notification.min_urgency must be one of %v, got %q", urgencyLevels, s.Notification.MinUrgency)
	}
	return nil
}

func validateMQTTSettings(s *Settings) error {
	if !s.MQTT.Enabled {
		return nil
	}
	u, err := url.Parse(s.MQTT.Broker)
	if err != nil || u.Host == "" {
		return fmt.Errorf("mqtt.broker %q is not a valid broker URL", s.MQTT.Broker)
	}
	if s.MQTT.Topic == "" {
		return fmt.Errorf("mqtt.topic is required")
	}
	if s.MQTT.QoS > 2 {
		return fmt.Errorf("mqtt.qos must be 0, 1 or 2, got %d", s.MQTT.QoS)
	}
	return nil
}

func validateNarrationSettings(s *Settings) error {
	if !s.Narration.Enabled {
		return nil
	}
	if s.Narration.APIKey == "" {
		return fmt.Errorf("narration.api_key is required when narration is enabled")
	}
	if s.Narration.Temperature < 0 || s.Narration.Temperature > 2 {
		return fmt.Errorf("narration.temperature must be within [0, 2], got %g", s.Narration.Temperature)
	}
	return nil
}

func validateTutorialSettings(s *Settings) error {
	if !s.Tutorials.Enabled {
		return nil
	}
	if s.Tutorials.APIKey == "" {
		return fmt.Errorf("tutorials.api_key is required when tutorial search is enabled")
	}
	if s.Tutorials.MaxResults < 1 || s.Tutorials.MaxResults > 50 {
		return fmt.Errorf("tutorials.max_results must be within [1, 50], got %d", s.Tutorials.MaxResults)
	}
	if s.Tutorials.RequestsPerSecond <= 0 {
		return fmt.Errorf("tutorials.requests_per_second must be positive")
	}
	return nil
}

func validateSentrySettings(s *Settings) error {
	if !s.Sentry.Enabled {
		return nil
	}
	if s.Sentry.DSN == "" {
		return fmt.Errorf("sentry.dsn is required when sentry is enabled")
	}
	if s.Sentry.SampleRate < 0 || s.Sentry.SampleRate > 1 {
		return fmt.Errorf("sentry.sample_rate must be within [0, 1]")
	}
	return nil
}
