// config.go: settings struct for CarDoc and the functions to load and save it.
package conf

import (
	"embed"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/cardoc/cardoc-go/internal/errors"
	"github.com/cardoc/cardoc-go/internal/logger"
)

//go:embed config.yaml
var configFiles embed.FS

// MainSettings contains general application settings.
type MainSettings struct {
	Name string `yaml:"name" mapstructure:"name"` // instance name, shown in notifications
}

// AnalysisSettings controls decoding limits of the analysis core.
type AnalysisSettings struct {
	FfmpegPath     string `yaml:"ffmpeg_path" mapstructure:"ffmpeg_path"`           // empty means look up ffmpeg in PATH
	TempDir        string `yaml:"temp_dir" mapstructure:"temp_dir"`                 // staging directory for external decoding
	MaxUploadBytes int64  `yaml:"max_upload_bytes" mapstructure:"max_upload_bytes"` // largest accepted upload
	Workers        int    `yaml:"workers" mapstructure:"workers"`                   // batch workers, 0 = derive from CPU
}

// WebServerSettings contains settings for the HTTP API.
type WebServerSettings struct {
	Enabled     bool     `yaml:"enabled" mapstructure:"enabled"`
	Listen      string   `yaml:"listen" mapstructure:"listen"`             // host:port
	BodyLimit   string   `yaml:"body_limit" mapstructure:"body_limit"`     // echo body limit, e.g. "25M"
	CORSOrigins []string `yaml:"cors_origins" mapstructure:"cors_origins"` // allowed origins, empty disables CORS
	Debug       bool     `yaml:"debug" mapstructure:"debug"`
}

// RedisSettings configures the redis cache backend.
type RedisSettings struct {
	Addr     string `yaml:"addr" mapstructure:"addr"`
	Password string `yaml:"password" mapstructure:"password"`
	DB       int    `yaml:"db" mapstructure:"db"`
}

// CacheSettings configures the analysis result cache.
type CacheSettings struct {
	Enabled bool          `yaml:"enabled" mapstructure:"enabled"`
	Backend string        `yaml:"backend" mapstructure:"backend"` // memory or redis
	TTL     time.Duration `yaml:"ttl" mapstructure:"ttl"`
	Redis   RedisSettings `yaml:"redis" mapstructure:"redis"`
}

// SQLiteSettings contains settings for SQLite output.
type SQLiteSettings struct {
	Enabled bool   `yaml:"enabled" mapstructure:"enabled"`
	Path    string `yaml:"path" mapstructure:"path"`
}

// MySQLSettings contains settings for MySQL output.
type MySQLSettings struct {
	Enabled  bool   `yaml:"enabled" mapstructure:"enabled"`
	Username string `yaml:"username" mapstructure:"username"`
	Password string `yaml:"password" mapstructure:"password"`
	Database string `yaml:"database" mapstructure:"database"`
	Host     string `yaml:"host" mapstructure:"host"`
	Port     string `yaml:"port" mapstructure:"port"`
}

// OutputSettings selects the persistence backend.
type OutputSettings struct {
	SQLite SQLiteSettings `yaml:"sqlite" mapstructure:"sqlite"`
	MySQL  MySQLSettings  `yaml:"mysql" mapstructure:"mysql"`
}

// FTPSettings configures the ftp archive target.
type FTPSettings struct {
	Host     string        `yaml:"host" mapstructure:"host"`
	Port     int           `yaml:"port" mapstructure:"port"`
	Username string        `yaml:"username" mapstructure:"username"`
	Password string        `yaml:"password" mapstructure:"password"`
	Path     string        `yaml:"path" mapstructure:"path"`
	Timeout  time.Duration `yaml:"timeout" mapstructure:"timeout"`
}

// SFTPSettings configures the sftp archive target.
type SFTPSettings struct {
	Host           string        `yaml:"host" mapstructure:"host"`
	Port           int           `yaml:"port" mapstructure:"port"`
	Username       string        `yaml:"username" mapstructure:"username"`
	Password       string        `yaml:"password" mapstructure:"password"`
	KeyFile        string        `yaml:"key_file" mapstructure:"key_file"`
	KnownHostsFile string        `yaml:"known_hosts_file" mapstructure:"known_hosts_file"`
	Path           string        `yaml:"path" mapstructure:"path"`
	Timeout        time.Duration `yaml:"timeout" mapstructure:"timeout"`
}

// ArchiveSettings controls where raw uploads are kept.
type ArchiveSettings struct {
	Enabled bool         `yaml:"enabled" mapstructure:"enabled"`
	Target  string       `yaml:"target" mapstructure:"target"` // local, ftp or sftp
	Path    string       `yaml:"path" mapstructure:"path"`     // local archive directory
	FTP     FTPSettings  `yaml:"ftp" mapstructure:"ftp"`
	SFTP    SFTPSettings `yaml:"sftp" mapstructure:"sftp"`
}

// NotificationSettings configures shoutrrr push notifications.
type NotificationSettings struct {
	Enabled    bool          `yaml:"enabled" mapstructure:"enabled"`
	URLs       []string      `yaml:"urls" mapstructure:"urls"`               // shoutrrr service URLs
	MinUrgency string        `yaml:"min_urgency" mapstructure:"min_urgency"` // normal, warning or critical
	Timeout    time.Duration `yaml:"timeout" mapstructure:"timeout"`
}

// MQTTSettings contains settings for publishing results over MQTT.
type MQTTSettings struct {
	Enabled  bool   `yaml:"enabled" mapstructure:"enabled"`
	Broker   string `yaml:"broker" mapstructure:"broker"` // tcp://host:1883
	ClientID string `yaml:"client_id" mapstructure:"client_id"`
	Topic    string `yaml:"topic" mapstructure:"topic"` // base topic
	Username string `yaml:"username" mapstructure:"username"`
	Password string `yaml:"password" mapstructure:"password"`
	QoS      byte   `yaml:"qos" mapstructure:"qos"`
	Retain   bool   `yaml:"retain" mapstructure:"retain"`
}

// NarrationSettings configures the Gemini narration client.
type NarrationSettings struct {
	Enabled     bool          `yaml:"enabled" mapstructure:"enabled"`
	APIKey      string        `yaml:"api_key" mapstructure:"api_key"`
	Model       string        `yaml:"model" mapstructure:"model"`
	Temperature float64       `yaml:"temperature" mapstructure:"temperature"`
	MaxTokens   int           `yaml:"max_tokens" mapstructure:"max_tokens"`
	Timeout     time.Duration `yaml:"timeout" mapstructure:"timeout"`
}

// TutorialSettings configures the YouTube tutorial search.
type TutorialSettings struct {
	Enabled           bool          `yaml:"enabled" mapstructure:"enabled"`
	APIKey            string        `yaml:"api_key" mapstructure:"api_key"`
	MaxResults        int           `yaml:"max_results" mapstructure:"max_results"`
	RequestsPerSecond float64       `yaml:"requests_per_second" mapstructure:"requests_per_second"`
	Burst             int           `yaml:"burst" mapstructure:"burst"`
	Timeout           time.Duration `yaml:"timeout" mapstructure:"timeout"`
}

// SentrySettings configures error telemetry.
type SentrySettings struct {
	Enabled     bool    `yaml:"enabled" mapstructure:"enabled"`
	DSN         string  `yaml:"dsn" mapstructure:"dsn"`
	Environment string  `yaml:"environment" mapstructure:"environment"`
	SampleRate  float64 `yaml:"sample_rate" mapstructure:"sample_rate"`
}

// MetricsSettings toggles the /metrics endpoint. An empty Listen serves it
// from the API server.
type MetricsSettings struct {
	Enabled bool   `yaml:"enabled" mapstructure:"enabled"`
	Listen  string `yaml:"listen" mapstructure:"listen"` // separate host:port, optional
}

// Settings is the root of the configuration tree.
type Settings struct {
	Debug        bool                 `yaml:"debug" mapstructure:"debug"`
	Main         MainSettings         `yaml:"main" mapstructure:"main"`
	Logging      logger.LoggingConfig `yaml:"logging" mapstructure:"logging"`
	Analysis     AnalysisSettings     `yaml:"analysis" mapstructure:"analysis"`
	WebServer    WebServerSettings    `yaml:"webserver" mapstructure:"webserver"`
	Cache        CacheSettings        `yaml:"cache" mapstructure:"cache"`
	Output       OutputSettings       `yaml:"output" mapstructure:"output"`
	Archive      ArchiveSettings      `yaml:"archive" mapstructure:"archive"`
	Notification NotificationSettings `yaml:"notification" mapstructure:"notification"`
	MQTT         MQTTSettings         `yaml:"mqtt" mapstructure:"mqtt"`
	Narration    NarrationSettings    `yaml:"narration" mapstructure:"narration"`
	Tutorials    TutorialSettings     `yaml:"tutorials" mapstructure:"tutorials"`
	Sentry       SentrySettings       `yaml:"sentry" mapstructure:"sentry"`
	Metrics      MetricsSettings      `yaml:"metrics" mapstructure:"metrics"`
}

var (
	settingsInstance *Settings
	settingsMutex    sync.RWMutex
)

// Load reads .env, the config file and CARDOC_* environment variables
// into a validated Settings and stores it as the current instance.
func Load() (*Settings, error) {
	// a missing .env is normal outside development
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		return nil, errors.New(err).
			Component("conf").
			Category(errors.CategoryConfiguration).
			Context("operation", "load_dotenv").
			Build()
	}

	configPaths, err := GetDefaultConfigPaths()
	if err != nil {
		return nil, err
	}

	settings, err := load(viper.GetViper(), configPaths)
	if err != nil {
		return nil, err
	}

	settingsMutex.Lock()
	settingsInstance = settings
	settingsMutex.Unlock()
	return settings, nil
}

// load initializes v, reads or creates the config file in configPaths and
// unmarshals it. It does not touch the package-level instance.
func load(v *viper.Viper, configPaths []string) (*Settings, error) {
	if err := initViper(v, configPaths); err != nil {
		return nil, err
	}

	settings := &Settings{}
	if err := v.Unmarshal(settings); err != nil {
		return nil, errors.New(err).
			Component("conf").
			Category(errors.CategoryConfiguration).
			Context("operation", "unmarshal_config").
			Build()
	}

	if err := ValidateSettings(settings); err != nil {
		return nil, errors.New(err).
			Component("conf").
			Category(errors.CategoryConfiguration).
			Context("operation", "validate_config").
			Build()
	}

	return settings, nil
}

// initViper sets defaults, environment bindings and reads the config file.
func initViper(v *viper.Viper, configPaths []string) error {
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	for _, path := range configPaths {
		v.AddConfigPath(path)
	}

	setDefaultConfig(v)

	if err := bindEnvVars(v); err != nil {
		return err
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if errors.As(err, &notFound) {
			return createDefaultConfig(v, configPaths)
		}
		return errors.New(err).
			Component("conf").
			Category(errors.CategoryConfiguration).
			Context("operation", "read_config").
			Build()
	}
	return nil
}

// createDefaultConfig writes the embedded config.yaml to the first config path
func createDefaultConfig(v *viper.Viper, configPaths []string) error {
	if len(configPaths) == 0 {
		return errors.Newf("no config path available").
			Component("conf").
			Category(errors.CategoryConfiguration).
			Build()
	}
	configPath := filepath.Join(configPaths[0], "config.yaml")

	defaultConfig, err := getDefaultConfig()
	if err != nil {
		return err
	}

	if err := os.MkdirAll(filepath.Dir(configPath), 0o755); err != nil {
		return errors.New(err).
			Component("conf").
			Category(errors.CategoryFileIO).
			Context("path", configPath).
			Build()
	}
	if err := os.WriteFile(configPath, defaultConfig, 0o600); err != nil {
		return errors.New(err).
			Component("conf").
			Category(errors.CategoryFileIO).
			Context("path", configPath).
			Build()
	}

	logger.Global().Module("conf").Info("created default config file", logger.String("path", configPath))
	return v.ReadInConfig()
}

// getDefaultConfig returns the embedded default config.yaml.
func getDefaultConfig() ([]byte, error) {
	data, err := fs.ReadFile(configFiles, "config.yaml")
	if err != nil {
		return nil, errors.New(err).
			Component("conf").
			Category(errors.CategoryConfiguration).
			Context("operation", "read_embedded_config").
			Build()
	}
	return data, nil
}

// GetSettings returns the current settings instance, nil before Load.
func GetSettings() *Settings {
	settingsMutex.RLock()
	defer settingsMutex.RUnlock()
	return settingsInstance
}

// SaveYAMLConfig writes settings to configPath through a temp file and rename.
// Comments in the existing file are not preserved.
func SaveYAMLConfig(configPath string, settings *Settings) error {
	yamlData, err := yaml.Marshal(settings)
	if err != nil {
		return errors.New(err).
			Component("conf").
			Category(errors.CategoryConfiguration).
			Context("operation", "marshal_config").
			Build()
	}

	tempFile, err := os.CreateTemp(filepath.Dir(configPath), "config-*.yaml")
	if err != nil {
		return errors.New(err).
			Component("conf").
			Category(errors.CategoryFileIO).
			Context("path", configPath).
			Build()
	}
	tempFileName := tempFile.Name()
	defer os.Remove(tempFileName)

	if _, err := tempFile.Write(yamlData); err != nil {
		_ = tempFile.Close()
		return errors.New(err).
			Component("conf").
			Category(errors.CategoryFileIO).
			Context("path", tempFileName).
			Build()
	}
	if err := tempFile.Close(); err != nil {
		return errors.New(err).
			Component("conf").
			Category(errors.CategoryFileIO).
			Context("path", tempFileName).
			Build()
	}

	if err := os.Rename(tempFileName, configPath); err != nil {
		// rename fails across devices; copy instead
		if err := moveFile(tempFileName, configPath); err != nil {
			return err
		}
	}
	return nil
}
