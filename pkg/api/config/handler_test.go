package config

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"research_assistant/pkg/core/agent"
	"research_assistant/pkg/core/llm"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type nopProvider struct{}

func (nopProvider) GenerateResponse(context.Context, string, string, map[string]interface{}) (string, error) {
	return "", nil
}

func (nopProvider) AdaptInstructions(raw string) string { return raw }

func newHandler() *Handler {
	mgr := agent.NewManagerWithProviders(agent.Config{ActiveProvider: "gemini"}, map[string]llm.Provider{
		"gemini":   nopProvider{},
		"deepseek": nopProvider{},
	})
	return NewHandler(mgr)
}

func TestHandleConfig(t *testing.T) {
	h := newHandler()
	rec := httptest.NewRecorder()
	h.HandleConfig(rec, httptest.NewRequest(http.MethodGet, "/api/config", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	var resp Response
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	assert.Equal(t, "gemini", resp.ActiveProvider)
	assert.Equal(t, []string{"deepseek", "gemini"}, resp.Available)
}

func TestHandleSwitch(t *testing.T) {
	h := newHandler()

	rec := httptest.NewRecorder()
	h.HandleSwitch(rec, httptest.NewRequest(http.MethodPost, "/api/config/switch", strings.NewReader(`{"provider":"deepseek"}`)))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "deepseek", h.AgentMgr.GetActiveProvider())

	rec = httptest.NewRecorder()
	h.HandleSwitch(rec, httptest.NewRequest(http.MethodPost, "/api/config/switch", strings.NewReader(`{"provider":"kimi"}`)))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "deepseek", h.AgentMgr.GetActiveProvider())

	rec = httptest.NewRecorder()
	h.HandleSwitch(rec, httptest.NewRequest(http.MethodPost, "/api/config/switch", strings.NewReader(`{`)))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
