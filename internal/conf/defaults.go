// conf/defaults.go default values for settings
package conf

import (
	"time"

	"github.com/spf13/viper"
)

// setDefaultConfig registers every key so environment overrides reach Unmarshal.
func setDefaultConfig(v *viper.Viper) {
	v.SetDefault("debug", false)

	v.SetDefault("main.name", "CarDoc")

	v.SetDefault("logging.default_level", "info")
	v.SetDefault("logging.timezone", "Local")
	v.SetDefault("logging.console.enabled", true)
	v.SetDefault("logging.console.level", "info")
	v.SetDefault("logging.file_output.enabled", false)
	v.SetDefault("logging.file_output.path", "logs/cardoc.log")
	v.SetDefault("logging.file_output.level", "info")

	v.SetDefault("analysis.ffmpeg_path", "")
	v.SetDefault("analysis.temp_dir", "")
	v.SetDefault("analysis.max_upload_bytes", 25*1024*1024)
	v.SetDefault("analysis.workers", 0)

	v.SetDefault("webserver.enabled", true)
	v.SetDefault("webserver.listen", ":8080")
	v.SetDefault("webserver.body_limit", "25M")
	v.SetDefault("webserver.cors_origins", []string{})
	v.SetDefault("webserver.debug", false)

	v.SetDefault("cache.enabled", true)
	v.SetDefault("cache.backend", CacheBackendMemory)
	v.SetDefault("cache.ttl", time.Hour)
	v.SetDefault("cache.redis.addr", "localhost:6379")
	v.SetDefault("cache.redis.password", "")
	v.SetDefault("cache.redis.db", 0)

	v.SetDefault("output.sqlite.enabled", true)
	v.SetDefault("output.sqlite.path", "cardoc.db")
	v.SetDefault("output.mysql.enabled", false)
	v.SetDefault("output.mysql.username", "cardoc")
	v.SetDefault("output.mysql.password", "")
	v.SetDefault("output.mysql.database", "cardoc")
	v.SetDefault("output.mysql.host", "localhost")
	v.SetDefault("output.mysql.port", "3306")

	v.SetDefault("archive.enabled", false)
	v.SetDefault("archive.target", ArchiveTargetLocal)
	v.SetDefault("archive.path", "uploads/")
	v.SetDefault("archive.ftp.host", "")
	v.SetDefault("archive.ftp.port", 21)
	v.SetDefault("archive.ftp.username", "")
	v.SetDefault("archive.ftp.password", "")
	v.SetDefault("archive.ftp.path", "/cardoc")
	v.SetDefault("archive.ftp.timeout", 30*time.Second)
	v.SetDefault("archive.sftp.host", "")
	v.SetDefault("archive.sftp.port", 22)
	v.SetDefault("archive.sftp.username", "")
	v.SetDefault("archive.sftp.password", "")
	v.SetDefault("archive.sftp.key_file", "")
	v.SetDefault("archive.sftp.known_hosts_file", "")
	v.SetDefault("archive.sftp.path", "/cardoc")
	v.SetDefault("archive.sftp.timeout", 30*time.Second)

	v.SetDefault("notification.enabled", false)
	v.SetDefault("notification.urls", []string{})
	v.SetDefault("notification.min_urgency", "critical")
	v.SetDefault("notification.timeout", 10*time.Second)

	v.SetDefault("mqtt.enabled", false)
	v.SetDefault("mqtt.broker", "tcp://localhost:1883")
	v.SetDefault("mqtt.client_id", "cardoc")
	v.SetDefault("mqtt.topic", "cardoc/diagnoses")
	v.SetDefault("mqtt.username", "")
	v.SetDefault("mqtt.password", "")
	v.SetDefault("mqtt.qos", 1)
	v.SetDefault("mqtt.retain", false)

	v.SetDefault("narration.enabled", false)
	v.SetDefault("narration.api_key", "")
	v.SetDefault("narration.model", "gemini-2.0-flash")
	v.SetDefault("narration.temperature", 0.3)
	v.SetDefault("narration.max_tokens", 2048)
	v.SetDefault("narration.timeout", 60*time.Second)

	v.SetDefault("tutorials.enabled", false)
	v.SetDefault("tutorials.api_key", "")
	v.SetDefault("tutorials.max_results", 5)
	v.SetDefault("tutorials.requests_per_second", 5.0)
	v.SetDefault("tutorials.burst", 3)
	v.SetDefault("tutorials.timeout", 15*time.Second)

	v.SetDefault("sentry.enabled", false)
	v.SetDefault("sentry.dsn", "")
	v.SetDefault("sentry.environment", "production")
	v.SetDefault("sentry.sample_rate", 1.0)

	v.SetDefault("metrics.enabled", true)
	v.SetDefault("metrics.listen", "")
}
