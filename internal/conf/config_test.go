package conf

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

func TestLoad_CreatesDefaultConfig(t *testing.T) {
	dir := t.TempDir()

	settings, err := load(viper.New(), []string{dir})
	require.NoError(t, err)

	assert.FileExists(t, filepath.Join(dir, "config.yaml"))
	assert.Equal(t, "CarDoc", settings.Main.Name)
	assert.Equal(t, CacheBackendMemory, settings.Cache.Backend)
	assert.Equal(t, time.Hour, settings.Cache.TTL)
	assert.Equal(t, int64(25*1024*1024), settings.Analysis.MaxUploadBytes)
	assert.True(t, settings.Output.SQLite.Enabled)
	assert.Equal(t, "critical", settings.Notification.MinUrgency)
	assert.Equal(t, 30*time.Second, settings.Archive.SFTP.Timeout)
	require.NotNil(t, settings.Logging.Console)
	assert.True(t, settings.Logging.Console.Enabled)
}

func TestLoad_EnvironmentOverrides(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("CARDOC_CACHE_BACKEND", "redis")
	t.Setenv("REDIS_ADDR", "cache.internal:6380")
	t.Setenv("GEMINI_API_KEY", "gemini-test-key")
	t.Setenv("CARDOC_NARRATION_ENABLED", "true")

	settings, err := load(viper.New(), []string{dir})
	require.NoError(t, err)

	assert.Equal(t, CacheBackendRedis, settings.Cache.Backend)
	assert.Equal(t, "cache.internal:6380", settings.Cache.Redis.Addr)
	assert.True(t, settings.Narration.Enabled)
	assert.Equal(t, "gemini-test-key", settings.Narration.APIKey)
}

func TestLoad_InvalidEnvironmentValue(t *testing.T) {
	t.Setenv("CARDOC_ANALYSIS_WORKERS", "-3")

	_, err := load(viper.New(), []string{t.TempDir()})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "analysis.workers")
}

func TestLoad_ReadsExistingFile(t *testing.T) {
	dir := t.TempDir()
	content := []byte("main:\n  name: Garage\nwebserver:\n  listen: \"127.0.0.1:9000\"\ntutorials:\n  max_results: 8\n")
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), content, 0o600))

	settings, err := load(viper.New(), []string{dir})
	require.NoError(t, err)

	assert.Equal(t, "Garage", settings.Main.Name)
	assert.Equal(t, "127.0.0.1:9000", settings.WebServer.Listen)
	assert.Equal(t, 8, settings.Tutorials.MaxResults)
	// untouched keys keep their defaults
	assert.Equal(t, "cardoc.db", settings.Output.SQLite.Path)
}

func TestSaveYAMLConfig_RoundTrip(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")

	settings := &Settings{
		Main:      MainSettings{Name: "Bay 3"},
		Analysis:  AnalysisSettings{MaxUploadBytes: 1024},
		WebServer: WebServerSettings{Listen: ":8081"},
	}
	require.NoError(t, SaveYAMLConfig(path, settings))

	data, err := os.ReadFile(path)
	require.NoError(t, err)

	var decoded Settings
	require.NoError(t, yaml.Unmarshal(data, &decoded))
	assert.Equal(t, "Bay 3", decoded.Main.Name)
	assert.Equal(t, int64(1024), decoded.Analysis.MaxUploadBytes)

	matches, err := filepath.Glob(filepath.Join(dir, "config-*.yaml"))
	require.NoError(t, err)
	assert.Empty(t, matches, "temporary file should be cleaned up")
}

func TestGetDefaultConfig_Embedded(t *testing.T) {
	t.Parallel()

	data, err := getDefaultConfig()
	require.NoError(t, err)

	var decoded Settings
	require.NoError(t, yaml.Unmarshal(data, &decoded))
	assert.Equal(t, "CarDoc", decoded.Main.Name)
	assert.Equal(t, ArchiveTargetLocal, decoded.Archive.Target)
}
