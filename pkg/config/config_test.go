package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew_RequiredFieldMissing(t *testing.T) {
	t.Setenv("DATABASE_FILE_PATH", "")
	t.Setenv("CONFIG_FILE", "/nonexistent/config.yaml")

	cfg, err := New()
	assert.Nil(t, cfg)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "missing required config")
	assert.Contains(t, err.Error(), "DATABASE_FILE_PATH")
	assert.Contains(t, err.Error(), "database_file_path")
}

func TestNew_WithEnvVar(t *testing.T) {
	t.Setenv("DATABASE_FILE_PATH", "/tmp/test.db")
	t.Setenv("CONFIG_FILE", "/nonexistent/config.yaml")

	cfg, err := New()
	require.NoError(t, err)
	assert.Equal(t, "/tmp/test.db", cfg.DatabaseFilePath)
}

func TestNew_WithConfigFile(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")

	configContent := `
database_file_path: /data/shelfwatch.db
server_port: 8080
database_debug: true
ollama_url: http://ollama:11434
scraper_timeout: 5s
`
	err := os.WriteFile(configPath, []byte(configContent), 0644)
	require.NoError(t, err)

	t.Setenv("CONFIG_FILE", configPath)

	cfg, err := New()
	require.NoError(t, err)
	assert.Equal(t, "/data/shelfwatch.db", cfg.DatabaseFilePath)
	assert.Equal(t, 8080, cfg.ServerPort)
	assert.True(t, cfg.DatabaseDebug)
	assert.True(t, cfg.OllamaEnabled())
	assert.Equal(t, 5*time.Second, cfg.ScraperTimeout)
}

func TestNew_EnvVarOverridesConfigFile(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")

	configContent := `
database_file_path: /data/from-file.db
server_port: 8080
`
	err := os.WriteFile(configPath, []byte(configContent), 0644)
	require.NoError(t, err)

	t.Setenv("CONFIG_FILE", configPath)
	t.Setenv("DATABASE_FILE_PATH", "/data/from-env.db")
	t.Setenv("SERVER_PORT", "9090")
	t.Setenv("WATCHLIST_INTERVAL_MINUTES", "15")

	cfg, err := New()
	require.NoError(t, err)
	assert.Equal(t, "/data/from-env.db", cfg.DatabaseFilePath)
	assert.Equal(t, 9090, cfg.ServerPort)
	assert.Equal(t, 15*time.Minute, cfg.WatchlistInterval())
}

func TestNew_Defaults(t *testing.T) {
	t.Setenv("DATABASE_FILE_PATH", "/tmp/test.db")
	t.Setenv("CONFIG_FILE", "/nonexistent/config.yaml")

	cfg, err := New()
	require.NoError(t, err)

	assert.Equal(t, 5, cfg.DatabaseConnectRetryCount)
	assert.Equal(t, 2*time.Second, cfg.DatabaseConnectRetryDelay)
	assert.False(t, cfg.DatabaseDebug)
	assert.Equal(t, "0.0.0.0", cfg.ServerHost)
	assert.Equal(t, 3689, cfg.ServerPort)
	assert.Equal(t, 360, cfg.WatchlistIntervalMinutes)
	assert.Equal(t, 2, cfg.WorkerProcesses)
	assert.Equal(t, 30*time.Second, cfg.ScraperTimeout)
	assert.Equal(t, 6*time.Hour, cfg.ScraperCacheTTL)
	assert.Equal(t, "https://openlibrary.org", cfg.OpenLibraryURL)
	assert.Equal(t, "llama3", cfg.OllamaModel)
	assert.InDelta(t, 0.2, cfg.OllamaTemperature, 0.0001)
	assert.True(t, cfg.MetricsEnabled)
	assert.False(t, cfg.OllamaEnabled())
	assert.Contains(t, cfg.ScraperUserAgent, "shelfwatch/")
}

func TestNewForTest(t *testing.T) {
	cfg := NewForTest()
	assert.Equal(t, ":memory:", cfg.DatabaseFilePath)
	assert.Equal(t, "127.0.0.1", cfg.ServerHost)
	assert.Equal(t, 360, cfg.WatchlistIntervalMinutes)
	assert.NotEmpty(t, cfg.JWTSecret)
}

func TestRetrieveSettings(t *testing.T) {
	cfg := NewForTest()
	cfg.RedisURL = "redis://localhost:6379"
	settings := NewService(cfg).RetrieveSettings("1.2.3")
	assert.True(t, settings.ScraperCacheEnabled)
	assert.False(t, settings.OllamaEnabled)
	assert.Equal(t, "1.2.3", settings.Version)
}

func TestToSnakeCase(t *testing.T) {
	assert.Equal(t, "database_file_path", toSnakeCase("DatabaseFilePath"))
	assert.Equal(t, "server_port", toSnakeCase("ServerPort"))
	assert.Equal(t, "watchlist_interval_minutes", toSnakeCase("WatchlistIntervalMinutes"))
}
