// Package prompts manages the prompt templates used by the layout
// interpreter and exposed over MCP.
//
// Embedded defaults in code are the source of truth; sessions may carry
// per-session overrides. Resolution order for a session:
//  1. Session override (if set)
//  2. Embedded default
package prompts

// EmbeddedPrompt is a prompt template compiled into the binary.
type EmbeddedPrompt struct {
	Key         string   // Hierarchical key: interpreter.generate_typst
	Text        string   // The prompt text (Go template)
	Description string   // Human-readable description
	Variables   []string // Extracted template variables
	Hash        string   // SHA256 hash of the text for change detection
}

// ResolvedPrompt is the result of resolving a prompt for a session.
type ResolvedPrompt struct {
	Key        string   `json:"key"`
	Text       string   `json:"text"`
	Variables  []string `json:"variables,omitempty"`
	IsOverride bool     `json:"is_override"`
}
