// env.go - environment variable bindings for CarDoc
package conf

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/viper"

	"github.com/cardoc/cardoc-go/internal/errors"
)

// envBinding maps a config key to extra environment variable names
type envBinding struct {
	ConfigKey string
	EnvVars   []string
	Validate  func(string) error
}

// getEnvBindings lists keys that also answer to conventional variable names
func getEnvBindings() []envBinding {
	return []envBinding{
		{"narration.api_key", []string{"CARDOC_NARRATION_API_KEY", "GEMINI_API_KEY"}, nil},
		{"tutorials.api_key", []string{"CARDOC_TUTORIALS_API_KEY", "YOUTUBE_API_KEY"}, nil},
		{"sentry.dsn", []string{"CARDOC_SENTRY_DSN", "SENTRY_DSN"}, nil},
		{"cache.redis.addr", []string{"CARDOC_CACHE_REDIS_ADDR", "REDIS_ADDR"}, nil},
		{"output.mysql.password", []string{"CARDOC_OUTPUT_MYSQL_PASSWORD", "MYSQL_PASSWORD"}, nil},
		{"analysis.max_upload_bytes", []string{"CARDOC_ANALYSIS_MAX_UPLOAD_BYTES"}, validateEnvPositiveInt},
		{"analysis.workers", []string{"CARDOC_ANALYSIS_WORKERS"}, validateEnvNonNegativeInt},
	}
}

// bindEnvVars enables CARDOC_* overrides and the explicit bindings above.
func bindEnvVars(v *viper.Viper) error {
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	var problems []string
	for _, binding := range getEnvBindings() {
		args := append([]string{binding.ConfigKey}, binding.EnvVars...)
		if err := v.BindEnv(args...); err != nil {
			problems = append(problems, fmt.Sprintf("bind %s: %v", binding.ConfigKey, err))
			continue
		}
		if binding.Validate == nil {
			continue
		}
		if raw := v.GetString(binding.ConfigKey); raw != "" {
			if err := binding.Validate(raw); err != nil {
				problems = append(problems, fmt.Sprintf("%s: %v", binding.ConfigKey, err))
			}
		}
	}

	if len(problems) > 0 {
		return errors.Newf("invalid environment configuration: %s", strings.Join(problems, "; ")).
			Component("conf").
			Category(errors.CategoryConfiguration).
			Build()
	}
	return nil
}

func validateEnvPositiveInt(value string) error {
	n, err := strconv.ParseInt(value, 10, 64)
	if err != nil {
		return fmt.Errorf("must be an integer, got %q", value)
	}
	if n <= 0 {
		return fmt.Errorf("must be positive, got %d", n)
	}
	return nil
}

func validateEnvNonNegativeInt(value string) error {
	n, err := strconv.Atoi(value)
	if err != nil {
		return fmt.Errorf("must be an integer, got %q", value)
	}
	if n < 0 {
		return fmt.Errorf("must not be negative, got %d", n)
	}
	return nil
}
