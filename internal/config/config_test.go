package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func clearEnv(t *testing.T) {
	for _, key := range []string{
		"ANTHROPIC_API_KEY", "ANTHROPIC_BASE_URL", "LLM_MODEL", "PORT",
		"DATABASE_URL", "JWT_SECRET", "LOG_LEVEL", "ARCHITECT_CONFIG",
		"LLM_MAX_RETRIES", "LLM_TEMPERATURE",
	} {
		t.Setenv(key, "")
	}
}

func TestLoad_Defaults(t *testing.T) {
	clearEnv(t)
	t.Setenv("ANTHROPIC_API_KEY", "sk-test-key")

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "sk-test-key", cfg.LLM.APIKey)
	assert.Equal(t, "8080", cfg.Server.Port)
	assert.Equal(t, 3, cfg.LLM.MaxRetries)
	assert.Equal(t, 1, cfg.Pipeline.SpecialistConcurrency)
	assert.Equal(t, 5, cfg.Pipeline.MaxContinuations)
	assert.Empty(t, cfg.Database.URL)
}

func TestLoad_MissingAPIKey(t *testing.T) {
	clearEnv(t)

	_, err := Load("")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "APIKey")
}

func TestLoad_YAMLFileAndEnvOverrides(t *testing.T) {
	clearEnv(t)

	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	content := `
server:
  port: "9090"
llm:
  api_key: from-file-key
  model: claude-test
  timeout: 2m
  max_retries: 1
pipeline:
  specialist_concurrency: 4
  max_continuations: 2
log:
  level: debug
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	t.Setenv("PORT", "7070")
	t.Setenv("LLM_TEMPERATURE", "0.2")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "7070", cfg.Server.Port)
	assert.Equal(t, "from-file-key", cfg.LLM.APIKey)
	assert.Equal(t, "claude-test", cfg.LLM.Model)
	assert.Equal(t, 2*time.Minute, cfg.LLM.Timeout)
	assert.Equal(t, 1, cfg.LLM.MaxRetries)
	assert.InDelta(t, 0.2, cfg.LLM.Temperature, 0.0001)
	assert.Equal(t, 4, cfg.Pipeline.SpecialistConcurrency)
	assert.Equal(t, 2, cfg.Pipeline.MaxContinuations)
	// Untouched fields keep their defaults.
	assert.Equal(t, 2000, cfg.Pipeline.ContinuationTailChars)
	assert.Equal(t, "debug", cfg.Log.Level)
}

func TestLoad_InvalidValues(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
	}{
		{
			name: "non numeric retries",
			env:  map[string]string{"LLM_MAX_RETRIES": "many"},
		},
		{
			name: "temperature out of range",
			env:  map[string]string{"LLM_TEMPERATURE": "3.5"},
		},
		{
			name: "unknown log level",
			env:  map[string]string{"LOG_LEVEL": "verbose"},
		},
		{
			name: "short jwt secret",
			env:  map[string]string{"JWT_SECRET": "short"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clearEnv(t)
			t.Setenv("ANTHROPIC_API_KEY", "sk-test-key")
			for k, v := range tt.env {
				t.Setenv(k, v)
			}

			_, err := Load("")
			assert.Error(t, err)
		})
	}
}

func TestLoad_MissingFile(t *testing.T) {
	clearEnv(t)
	t.Setenv("ANTHROPIC_API_KEY", "sk-test-key")

	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "reading config file")
}
