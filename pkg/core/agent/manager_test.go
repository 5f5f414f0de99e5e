package agent

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"research_assistant/pkg/core/llm"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubProvider struct {
	name    string
	options map[string]interface{}
}

func (s *stubProvider) GenerateResponse(_ context.Context, prompt, _ string, options map[string]interface{}) (string, error) {
	s.options = options
	return s.name + ":" + prompt, nil
}

func (s *stubProvider) AdaptInstructions(raw string) string { return raw }

func newTestManager(cfg Config) (*Manager, *stubProvider, *stubProvider) {
	gemini := &stubProvider{name: "gemini"}
	qwen := &stubProvider{name: "qwen"}
	return NewManagerWithProviders(cfg, map[string]llm.Provider{"gemini": gemini, "qwen": qwen}), gemini, qwen
}

func TestManager_ProviderResolution(t *testing.T) {
	mgr, gemini, qwen := newTestManager(Config{
		ActiveProvider: "gemini",
		Agents: map[string]AgentConfig{
			RoleWeb: {Provider: "qwen"},
		},
	})

	assert.Same(t, gemini, mgr.GetProvider(RoleDocument))
	assert.Same(t, qwen, mgr.GetProvider(RoleWeb))

	require.NoError(t, mgr.SetGlobalProvider("qwen"))
	assert.Same(t, qwen, mgr.GetProvider(RoleDocument))
	assert.Equal(t, "qwen", mgr.GetActiveProvider())

	assert.Error(t, mgr.SetGlobalProvider("kimi"))
	assert.Equal(t, []string{"gemini", "qwen"}, mgr.Available())
}

func TestManager_UnknownActiveFallsBack(t *testing.T) {
	mgr, gemini, _ := newTestManager(Config{ActiveProvider: "missing"})
	assert.Same(t, gemini, mgr.GetProvider(RoleSynthesizer))
	assert.Equal(t, "gemini", mgr.GetActiveProvider())
}

func TestManager_ForRoleAppliesOptions(t *testing.T) {
	hot := 0.9
	mgr, gemini, _ := newTestManager(Config{
		ActiveProvider: "gemini",
		Agents: map[string]AgentConfig{
			RoleSynthesizer: {Model: "gemini-pro", Temperature: &hot},
			RoleWeb:         {GoogleSearch: true},
		},
	})

	out, err := mgr.ForRole(RoleWeb).Generate(context.Background(), "sys", "hello")
	require.NoError(t, err)
	assert.Equal(t, "gemini:hello", out)
	assert.Equal(t, 0.3, gemini.options["temperature"])
	assert.Equal(t, true, gemini.options["google_search"])

	_, err = mgr.ForRole(RoleSynthesizer).Generate(context.Background(), "sys", "hello")
	require.NoError(t, err)
	assert.Equal(t, 0.9, gemini.options["temperature"])
	assert.Equal(t, "gemini-pro", gemini.options["model"])
	assert.NotContains(t, gemini.options, "google_search")
}

func TestLoadConfig(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "models.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
active_provider: deepseek
agents:
  web:
    provider: qwen
    temperature: 0.5
    google_search: true
    description: Real-time market research
`), 0o644))

	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, "deepseek", cfg.ActiveProvider)
	require.Contains(t, cfg.Agents, "web")
	assert.Equal(t, "qwen", cfg.Agents["web"].Provider)
	require.NotNil(t, cfg.Agents["web"].Temperature)
	assert.Equal(t, 0.5, *cfg.Agents["web"].Temperature)
	assert.True(t, cfg.Agents["web"].GoogleSearch)

	missing, err := LoadConfig(filepath.Join(dir, "nope.yaml"))
	require.NoError(t, err)
	assert.Empty(t, missing.ActiveProvider)
}
