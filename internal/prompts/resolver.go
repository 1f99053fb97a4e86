package prompts

import (
	"fmt"
	"log/slog"
	"sort"
	"sync"
)

// Resolver resolves prompts with session-level overrides.
type Resolver struct {
	mu        sync.RWMutex
	embedded  map[string]EmbeddedPrompt
	overrides map[string]map[string]string // session id -> key -> text
	logger    *slog.Logger
}

// NewResolver creates a resolver preloaded with the embedded defaults.
func NewResolver(logger *slog.Logger) *Resolver {
	if logger == nil {
		logger = slog.Default()
	}
	r := &Resolver{
		embedded:  make(map[string]EmbeddedPrompt),
		overrides: make(map[string]map[string]string),
		logger:    logger.With("component", "prompts"),
	}
	for _, p := range Defaults() {
		r.Register(p)
	}
	return r
}

// Register registers an embedded prompt.
func (r *Resolver) Register(prompt EmbeddedPrompt) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if prompt.Hash == "" {
		prompt.Hash = HashText(prompt.Text)
	}
	if prompt.Variables == nil {
		prompt.Variables = ExtractVariables(prompt.Text)
	}

	r.embedded[prompt.Key] = prompt
	r.logger.Debug("registered embedded prompt", "key", prompt.Key, "vars", prompt.Variables)
}

// SetOverride replaces the prompt text for one session. An empty text
// clears the override.
func (r *Resolver) SetOverride(sessionID, key, text string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.embedded[key]; !ok {
		return fmt.Errorf("prompt not found: %s", key)
	}
	if text == "" {
		delete(r.overrides[sessionID], key)
		return nil
	}
	if r.overrides[sessionID] == nil {
		r.overrides[sessionID] = make(map[string]string)
	}
	r.overrides[sessionID][key] = text
	return nil
}

// Resolve resolves a prompt for a session. sessionID may be empty for
// the embedded default.
func (r *Resolver) Resolve(key, sessionID string) (*ResolvedPrompt, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if sessionID != "" {
		if text, ok := r.overrides[sessionID][key]; ok {
			return &ResolvedPrompt{
				Key:        key,
				Text:       text,
				Variables:  ExtractVariables(text),
				IsOverride: true,
			}, nil
		}
	}

	embedded, ok := r.embedded[key]
	if !ok {
		return nil, fmt.Errorf("prompt not found: %s", key)
	}
	return &ResolvedPrompt{
		Key:       key,
		Text:      embedded.Text,
		Variables: embedded.Variables,
	}, nil
}

// List returns all embedded prompts sorted by key.
func (r *Resolver) List() []EmbeddedPrompt {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]EmbeddedPrompt, 0, len(r.embedded))
	for _, p := range r.embedded {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key < out[j].Key })
	return out
}

// DropSession removes all overrides for a disposed session.
func (r *Resolver) DropSession(sessionID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.overrides, sessionID)
}
