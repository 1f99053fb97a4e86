package session

import (
	"fmt"
	"log/slog"
	"sort"
	"sync"

	"github.com/google/uuid"

	"github.com/luoqiao6/pdf-to-typst-mcp/internal/model"
)

// Registry is the in-memory session index, optionally write-through to
// a sqlite Store. A nil store gives a purely ephemeral registry.
type Registry struct {
	mu       sync.RWMutex
	sessions map[string]*Session
	store    *Store
	logger   *slog.Logger
}

// NewRegistry builds a registry, loading any persisted sessions from
// store.
func NewRegistry(store *Store, logger *slog.Logger) (*Registry, error) {
	if logger == nil {
		logger = slog.Default()
	}
	r := &Registry{
		sessions: make(map[string]*Session),
		store:    store,
		logger:   logger.With("component", "session"),
	}
	if store != nil {
		loaded, err := store.LoadAll()
		if err != nil {
			return nil, err
		}
		for _, s := range loaded {
			r.sessions[s.ID] = s
		}
		if len(loaded) > 0 {
			r.logger.Info("restored sessions", "count", len(loaded))
		}
	}
	return r, nil
}

// Create registers a new session for pdfPath.
func (r *Registry) Create(pdfPath string, meta model.DocMeta) (*Session, error) {
	s := newSession(uuid.NewString(), pdfPath, meta)

	r.mu.Lock()
	r.sessions[s.ID] = s
	r.mu.Unlock()

	if r.store != nil {
		if err := r.store.SaveSession(s); err != nil {
			return nil, err
		}
	}
	r.logger.Debug("session created", "id", s.ID, "pdf", pdfPath, "pages", meta.Pages)
	return s, nil
}

// Get returns the session by ID.
func (r *Registry) Get(id string) (*Session, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.sessions[id]
	if !ok {
		return nil, fmt.Errorf("session %s not found", id)
	}
	return s, nil
}

// List returns snapshots of every session, oldest first.
func (r *Registry) List() []Snapshot {
	r.mu.RLock()
	all := make([]*Session, 0, len(r.sessions))
	for _, s := range r.sessions {
		all = append(all, s)
	}
	r.mu.RUnlock()

	out := make([]Snapshot, 0, len(all))
	for _, s := range all {
		out = append(out, s.Snapshot())
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.Before(out[j].CreatedAt)
		}
		return out[i].ID < out[j].ID
	})
	return out
}

// Dispose removes the session from the registry and the store.
func (r *Registry) Dispose(id string) error {
	r.mu.Lock()
	_, ok := r.sessions[id]
	delete(r.sessions, id)
	r.mu.Unlock()
	if !ok {
		return fmt.Errorf("session %s not found", id)
	}
	if r.store != nil {
		if err := r.store.DeleteSession(id); err != nil {
			return err
		}
	}
	r.logger.Debug("session disposed", "id", id)
	return nil
}

// Persist writes the session header back to the store, if any. Call
// after Advance, Fail, or SetRecords.
func (r *Registry) Persist(s *Session) error {
	if r.store == nil {
		return nil
	}
	return r.store.SaveSession(s)
}

// PersistPage writes one page's record and fragment through to the
// store, if any.
func (r *Registry) PersistPage(s *Session, page int) error {
	if r.store == nil {
		return nil
	}
	fragment, _ := s.Fragment(page)
	return r.store.SavePage(s.ID, page, s.Record(page), fragment)
}
