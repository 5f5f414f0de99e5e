package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	t.Chdir(t.TempDir())
	s, err := Load(New(), "")
	require.NoError(t, err)

	assert.Equal(t, "NVIDIA", s.Subject)
	assert.Equal(t, "0.0.0.0:8000", s.Server.Addr())
	assert.Equal(t, 60*time.Second, s.Orchestrator.ProviderTimeout)
	assert.Equal(t, "snowflake", s.Metrics.Backend)
	assert.Equal(t, 2020, s.Quarters.FirstYear)
	assert.Equal(t, 2024, s.Quarters.LastYear)
	assert.True(t, s.Search.DuckDuckGo)
}

func TestLoad_FileAndEnv(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
subject: AMD
server:
  port: 9090
orchestrator:
  parallel: true
  provider_timeout: 15s
quarters:
  first_year: 2022
  last_year: 2023
`), 0o644))

	t.Setenv("RESEARCH_LOG_LEVEL", "debug")
	t.Setenv("SERPAPI_API_KEY", "serp-key")
	t.Setenv("SNOWFLAKE_ACCOUNT", "acme-xy123")

	s, err := Load(New(), path)
	require.NoError(t, err)

	assert.Equal(t, "AMD", s.Subject)
	assert.Equal(t, 9090, s.Server.Port)
	assert.True(t, s.Orchestrator.Parallel)
	assert.Equal(t, 15*time.Second, s.Orchestrator.ProviderTimeout)
	assert.Equal(t, "debug", s.Log.Level)
	assert.Equal(t, "serp-key", s.Search.SerpAPIKey)
	assert.Equal(t, "acme-xy123", s.Snowflake.Account)
	assert.Equal(t, 2022, s.Quarters.FirstYear)
}

func TestLoad_RejectsInvertedYears(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("quarters:\n  first_year: 2024\n  last_year: 2020\n"), 0o644))

	_, err := Load(New(), path)
	assert.Error(t, err)
}
