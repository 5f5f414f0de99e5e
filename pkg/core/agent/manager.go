package agent

import (
	"context"
	"fmt"
	"os"
	"sort"
	"sync"

	"research_assistant/pkg/core/llm"

	"gopkg.in/yaml.v2"
)

// Agent roles that request language generation.
const (
	RoleDocument    = "document"
	RoleMetrics     = "metrics"
	RoleWeb         = "web"
	RoleSynthesizer = "synthesizer"
)

// defaultTemperatures mirrors how each role was tuned: analysis roles stay
// conservative, the web role is allowed slightly more variety.
var defaultTemperatures = map[string]float64{
	RoleDocument:    0.2,
	RoleMetrics:     0.2,
	RoleWeb:         0.3,
	RoleSynthesizer: 0.2,
}

type Config struct {
	ActiveProvider string                 `yaml:"active_provider"`
	Agents         map[string]AgentConfig `yaml:"agents"`
}

type AgentConfig struct {
	Provider     string   `yaml:"provider"` // Optional override
	Model        string   `yaml:"model"`
	Temperature  *float64 `yaml:"temperature"`
	Description  string   `yaml:"description"`
	GoogleSearch bool     `yaml:"google_search"` // Gemini only: ground answers in live search
}

// LoadConfig reads a models.yaml file. A missing file yields an empty config
// so the manager falls back to its default provider.
func LoadConfig(path string) (Config, error) {
	var cfg Config
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return cfg, fmt.Errorf("read model config %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parse model config %s: %w", path, err)
	}
	return cfg, nil
}

// Manager resolves which LLM provider serves each agent role. The active
// provider can be switched at runtime; lookups are safe for concurrent use.
type Manager struct {
	mu        sync.RWMutex
	config    Config
	providers map[string]llm.Provider
	fallback  string
}

// NewManager builds a manager with the built-in providers registered.
func NewManager(config Config) *Manager {
	return NewManagerWithProviders(config, map[string]llm.Provider{
		"gemini":   &llm.GeminiProvider{},
		"openai":   llm.NewOpenAIProvider(),
		"deepseek": llm.NewDeepSeekProvider(),
		"qwen":     &llm.QwenProvider{},
	})
}

// NewManagerWithProviders builds a manager over an explicit provider set.
func NewManagerWithProviders(config Config, providers map[string]llm.Provider) *Manager {
	fallback := "gemini"
	if _, ok := providers[fallback]; !ok {
		for _, name := range sortedKeys(providers) {
			fallback = name
			break
		}
	}
	return &Manager{config: config, providers: providers, fallback: fallback}
}

func (m *Manager) GetProvider(agentType string) llm.Provider {
	m.mu.RLock()
	defer m.mu.RUnlock()

	// 1. Check for agent-specific override
	if agentConfig, ok := m.config.Agents[agentType]; ok && agentConfig.Provider != "" {
		if p, ok := m.providers[agentConfig.Provider]; ok {
			return p
		}
	}

	// 2. Use global active provider
	if p, ok := m.providers[m.config.ActiveProvider]; ok {
		return p
	}

	// 3. Fallback
	return m.providers[m.fallback]
}

// optionsFor returns the call options configured for a role.
func (m *Manager) optionsFor(agentType string) map[string]interface{} {
	m.mu.RLock()
	defer m.mu.RUnlock()

	opts := map[string]interface{}{}
	if t, ok := defaultTemperatures[agentType]; ok {
		opts["temperature"] = t
	}
	if ac, ok := m.config.Agents[agentType]; ok {
		if ac.Model != "" {
			opts["model"] = ac.Model
		}
		if ac.Temperature != nil {
			opts["temperature"] = *ac.Temperature
		}
		if ac.GoogleSearch {
			opts["google_search"] = true
		}
	}
	return opts
}

// ExecutePrompt handles instruction adaptation before sending to the model
func (m *Manager) ExecutePrompt(ctx context.Context, agentType string, rawPrompt string, rawSystemPrompt string) (string, error) {
	provider := m.GetProvider(agentType)
	if provider == nil {
		return "", fmt.Errorf("no LLM provider available for agent %q", agentType)
	}
	return llm.Bind(provider, m.optionsFor(agentType)).Generate(ctx, rawSystemPrompt, rawPrompt)
}

// ForRole returns a Generator bound to a role. The provider is resolved on
// every call so a runtime switch applies to subsequent requests.
func (m *Manager) ForRole(agentType string) llm.Generator {
	return llm.GeneratorFunc(func(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
		return m.ExecutePrompt(ctx, agentType, userPrompt, systemPrompt)
	})
}

func (m *Manager) SetGlobalProvider(newProvider string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.providers[newProvider]; !ok {
		return fmt.Errorf("provider %s not found", newProvider)
	}
	m.config.ActiveProvider = newProvider
	return nil
}

func (m *Manager) GetActiveProvider() string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if _, ok := m.providers[m.config.ActiveProvider]; ok {
		return m.config.ActiveProvider
	}
	return m.fallback
}

// Available lists registered provider names, sorted.
func (m *Manager) Available() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return sortedKeys(m.providers)
}

func sortedKeys(providers map[string]llm.Provider) []string {
	names := make([]string, 0, len(providers))
	for name := range providers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
