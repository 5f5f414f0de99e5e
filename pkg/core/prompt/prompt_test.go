package prompt

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	r := NewRegistry()
	require.NoError(t, LoadDefaults(r))

	assert.Equal(t, []string{
		PromptIDs.Document, PromptIDs.Metrics, PromptIDs.Synthesis, PromptIDs.Web,
	}, r.ListPrompts())

	pt, err := r.GetPrompt(PromptIDs.Document)
	require.NoError(t, err)
	assert.Equal(t, "research", pt.Category)
	assert.Len(t, pt.Variables, 3)
}

func TestRegistry_Render(t *testing.T) {
	r := NewRegistry()
	require.NoError(t, LoadDefaults(r))

	vars := NewContext().
		Set("Subject", "NVIDIA").
		Set("Query", "How did revenue develop?").
		Set("SearchResults", "General Search Results:\n- item")

	system, user, err := r.Render(PromptIDs.Web, vars)
	require.NoError(t, err)
	assert.Contains(t, system, "web research agent focused on NVIDIA")
	assert.Contains(t, user, "Question: How did revenue develop?")
	assert.Contains(t, user, "- item")
}

func TestRegistry_RenderMissingVariable(t *testing.T) {
	r := NewRegistry()
	require.NoError(t, LoadDefaults(r))

	_, _, err := r.Render(PromptIDs.Synthesis, NewContext().Set("Subject", "NVIDIA"))
	assert.Error(t, err)

	_, _, err = r.Render("research.unknown", NewContext())
	assert.Error(t, err)
}

func TestLoadFromDirectory_Overrides(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "research"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "research", "web.json"), []byte(`{
		"system_prompt": "custom {{.Subject}}",
		"user_prompt_template": "q={{.Query}}",
	}`), 0o644))

	r := NewRegistry()
	require.NoError(t, LoadDefaults(r))
	require.NoError(t, LoadFromDirectory(context.Background(), r, dir))

	system, user, err := r.Render(PromptIDs.Web, NewContext().Set("Subject", "AMD").Set("Query", "x"))
	require.NoError(t, err)
	assert.Equal(t, "custom AMD", system)
	assert.Equal(t, "q=x", user)

	assert.Error(t, LoadFromDirectory(context.Background(), r, filepath.Join(dir, "missing")))
}
