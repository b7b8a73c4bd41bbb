package config

import (
	"os"
	"path/filepath"
	"testing"

	"log/slog"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaultsWithoutFile(t *testing.T) {
	t.Setenv("RECOMMENDER_CONFIG", filepath.Join(t.TempDir(), "missing.yaml"))
	for _, key := range []string{"PORT", "DB_PATH", "LOG_LEVEL", "REDIS_ADDR", "OPENAI_MODEL"} {
		t.Setenv(key, "")
	}

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, "recommender.db", cfg.DBPath)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, "gpt-4o-mini", cfg.OpenAIModel)
	assert.NotEmpty(t, cfg.EvalSchedule)
	assert.NotEmpty(t, cfg.AnalyzeSchedule)
}

func TestLoadFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	body := []byte("port: \"9000\"\nlog_level: debug\nredis_addr: localhost:6379\n")
	require.NoError(t, os.WriteFile(path, body, 0600))
	t.Setenv("RECOMMENDER_CONFIG", path)

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "9000", cfg.Port)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, "localhost:6379", cfg.RedisAddr)
	// Unset keys keep their defaults.
	assert.Equal(t, "recommender.db", cfg.DBPath)
}

func TestLoadEnvOverridesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("port: \"9000\"\n"), 0600))
	t.Setenv("RECOMMENDER_CONFIG", path)
	t.Setenv("PORT", "7777")
	t.Setenv("DB_PATH", "/tmp/engine.db")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "7777", cfg.Port)
	assert.Equal(t, "/tmp/engine.db", cfg.DBPath)
}

func TestLoadRejectsBadLogLevel(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("log_level: loud\n"), 0600))
	t.Setenv("RECOMMENDER_CONFIG", path)

	_, err := Load()
	assert.Error(t, err)
}

func TestLoadRejectsMalformedYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("port: [unclosed\n"), 0600))
	t.Setenv("RECOMMENDER_CONFIG", path)

	_, err := Load()
	assert.Error(t, err)
}

func TestSlogLevel(t *testing.T) {
	tests := []struct {
		level string
		want  slog.Level
	}{
		{"debug", slog.LevelDebug},
		{"info", slog.LevelInfo},
		{"warn", slog.LevelWarn},
		{"error", slog.LevelError},
	}
	for _, tt := range tests {
		t.Run(tt.level, func(t *testing.T) {
			cfg := Config{LogLevel: tt.level}
			assert.Equal(t, tt.want, cfg.SlogLevel())
		})
	}
}
