// Package prompt provides a centralized prompt library for LLM interactions.
// Prompts are defined in .hjson or .json files and loaded at runtime,
// making it easy to update prompts without code changes. A default set is
// compiled into the binary.
package prompt

// PromptTemplate represents a reusable prompt with metadata
type PromptTemplate struct {
	ID             string           `json:"id"`                   // Unique identifier (e.g., "research.document")
	Name           string           `json:"name"`                 // Human-readable name
	Category       string           `json:"category"`             // Category derived from the folder when empty
	Description    string           `json:"description"`          // Description of prompt purpose
	SystemPrompt   string           `json:"system_prompt"`        // Go template for the system prompt
	UserPromptTmpl string           `json:"user_prompt_template"` // Go template for user prompt
	Variables      []PromptVariable `json:"variables"`            // Variables used in templates
	Version        string           `json:"version"`              // Version for tracking changes
}

// PromptVariable defines a variable used in a prompt template
type PromptVariable struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	Required    bool   `json:"required"`
}

// PromptExecutionContext holds runtime values for prompt execution
type PromptExecutionContext struct {
	Variables map[string]interface{} // Key-value pairs for template substitution
}

// NewContext creates a new execution context
func NewContext() *PromptExecutionContext {
	return &PromptExecutionContext{
		Variables: make(map[string]interface{}),
	}
}

// Set adds a variable to the context
func (c *PromptExecutionContext) Set(key string, value interface{}) *PromptExecutionContext {
	c.Variables[key] = value
	return c
}

// PromptIDs contains all known prompt identifiers
var PromptIDs = struct {
	Document  string
	Metrics   string
	Web       string
	Synthesis string
}{
	Document:  "research.document",
	Metrics:   "research.metrics",
	Web:       "research.web",
	Synthesis: "research.synthesis",
}
