package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.json")
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestDefault_IsValid(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.Validate())
	assert.Equal(t, 8*time.Second, cfg.Prober.Timeout.D())
	assert.Equal(t, 0.4, cfg.Prober.RelevanceThreshold)
	assert.Equal(t, 1000, cfg.Cache.Capacity)
	assert.Equal(t, 5, cfg.Breaker.FailureThreshold)
	assert.Equal(t, 30*time.Minute, cfg.Breaker.IdleTTL.D())
	assert.Equal(t, 3, cfg.Orchestrator.BatchConcurrency)
}

func TestLoadConfig_ValidJSON(t *testing.T) {
	path := writeConfig(t, `{
		"prober": {"timeout": "3s", "relevance_threshold": 0.35},
		"cache": {"capacity": 50},
		"orchestrator": {"enable_tier3": false},
		"logging": {"level": "debug"}
	}`)

	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	require.NotNil(t, cfg)

	assert.Equal(t, 3*time.Second, cfg.Prober.Timeout.D())
	assert.Equal(t, 0.35, cfg.Prober.RelevanceThreshold)
	assert.Equal(t, 50, cfg.Cache.Capacity)
	assert.False(t, cfg.Orchestrator.EnableTier3)
	assert.Equal(t, "debug", cfg.Logging.Level)

	// Unset fields keep defaults
	assert.Equal(t, 10*time.Second, cfg.Classifier.Timeout.D())
	assert.Equal(t, 0.3, cfg.Prober.Weights.Base)
}

func TestLoadConfig_InvalidJSON(t *testing.T) {
	path := writeConfig(t, `{ invalid json }`)

	cfg, err := LoadConfig(path)
	assert.Error(t, err)
	assert.Nil(t, cfg)
	assert.Contains(t, err.Error(), "failed to parse config JSON")
}

func TestLoadConfig_InvalidDuration(t *testing.T) {
	path := writeConfig(t, `{"prober": {"timeout": "soon"}}`)

	_, err := LoadConfig(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid duration")
}

func TestLoadConfig_FileNotFound(t *testing.T) {
	cfg, err := LoadConfig("/nonexistent/path/config.json")
	assert.Error(t, err)
	assert.Nil(t, cfg)
	assert.Contains(t, err.Error(), "failed to read config file")
}

func TestLoadConfig_EmptyPath(t *testing.T) {
	cfg, err := LoadConfig("")
	assert.Error(t, err)
	assert.Nil(t, cfg)
	assert.Contains(t, err.Error(), "config path is empty")
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("JOBCHECK_PROBER_TIMEOUT", "2s")
	t.Setenv("JOBCHECK_CACHE_CAPACITY", "42")
	t.Setenv("JOBCHECK_ORCHESTRATOR_ENABLE_TIER3", "false")
	t.Setenv("JOBCHECK_PROBER_WEIGHTS_JOB_ID_BOOST", "0.5")
	t.Setenv("JOBCHECK_SERVER_CORS_ORIGINS", "https://a.example,https://b.example")
	t.Setenv("JOBCHECK_LLM_API_KEY", "")
	t.Setenv("GEMINI_API_KEY", "fallback-key")

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, 2*time.Second, cfg.Prober.Timeout.D())
	assert.Equal(t, 42, cfg.Cache.Capacity)
	assert.False(t, cfg.Orchestrator.EnableTier3)
	assert.Equal(t, 0.5, cfg.Prober.Weights.JobIDBoost)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.Server.CORSOrigins)
	assert.Equal(t, "fallback-key", cfg.LLM.APIKey)
}

func TestLoad_EnvOverridesFile(t *testing.T) {
	path := writeConfig(t, `{"cache": {"capacity": 50}}`)
	t.Setenv("JOBCHECK_CACHE_CAPACITY", "75")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 75, cfg.Cache.Capacity)
}

func TestLoad_InvalidEnv(t *testing.T) {
	t.Setenv("JOBCHECK_CACHE_CAPACITY", "lots")

	_, err := Load("")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to read environment")
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name          string
		mutate        func(*Config)
		errorContains string
	}{
		{
			name:          "threshold out of range",
			mutate:        func(c *Config) { c.Prober.RelevanceThreshold = 1.5 },
			errorContains: "RelevanceThreshold",
		},
		{
			name:          "unknown log level",
			mutate:        func(c *Config) { c.Logging.Level = "verbose" },
			errorContains: "Level",
		},
		{
			name:          "unknown model tier",
			mutate:        func(c *Config) { c.Extraction.ModelTier = "huge" },
			errorContains: "ModelTier",
		},
		{
			name:          "zero capacity",
			mutate:        func(c *Config) { c.Cache.Capacity = 0 },
			errorContains: "Capacity",
		},
		{
			name:          "non-positive timeout",
			mutate:        func(c *Config) { c.Prober.Timeout = 0 },
			errorContains: "'prober.timeout' must be positive",
		},
		{
			name: "min ttl above max ttl",
			mutate: func(c *Config) {
				c.Cache.MinTTL = Duration(48 * time.Hour)
			},
			errorContains: "cache.min_ttl",
		},
		{
			name:          "relevance floor below prober threshold",
			mutate:        func(c *Config) { c.Orchestrator.RelevanceFloor = 0.1 },
			errorContains: "relevance_floor",
		},
		{
			name:          "total timeout shorter than tiers",
			mutate:        func(c *Config) { c.Orchestrator.TotalTimeout = Duration(5 * time.Second) },
			errorContains: "total_timeout",
		},
		{
			name:          "backoff inverted",
			mutate:        func(c *Config) { c.Orchestrator.BaseBackoff = Duration(time.Minute) },
			errorContains: "base_backoff",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			err := cfg.Validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.errorContains)
		})
	}
}

func TestDuration_MarshalText(t *testing.T) {
	d := Duration(90 * time.Second)
	text, err := d.MarshalText()
	require.NoError(t, err)
	assert.Equal(t, "1m30s", string(text))

	var back Duration
	require.NoError(t, back.UnmarshalText(text))
	assert.Equal(t, d, back)
}
