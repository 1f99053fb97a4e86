// Package assets collects extracted image payloads and writes them to
// the companion asset directory next to the rendered markup.
package assets

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
)

// Name returns the deterministic file name for an image extracted at
// (page, index).
func Name(page, index int, ext string) string {
	return fmt.Sprintf("image_p%d_%d.%s", page, index, ext)
}

type key struct {
	page, index int
}

type entry struct {
	name string
	data []byte
}

// Store is an append-only image store keyed by (page, index). Put is
// write-once: a second Put on the same key returns the existing name
// and keeps the first payload, so concurrent page workers on distinct
// keys never clobber each other.
type Store struct {
	mu      sync.Mutex
	entries map[key]entry
	order   []key
}

// NewStore returns an empty Store.
func NewStore() *Store {
	return &Store{entries: make(map[key]entry)}
}

// Put records a payload and returns its asset name.
func (s *Store) Put(page, index int, ext string, data []byte) string {
	s.mu.Lock()
	defer s.mu.Unlock()

	k := key{page: page, index: index}
	if e, ok := s.entries[k]; ok {
		return e.name
	}
	e := entry{name: Name(page, index, ext), data: data}
	s.entries[k] = e
	s.order = append(s.order, k)
	return e.name
}

// Len returns the number of stored assets.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}

// Names returns the asset names in insertion order.
func (s *Store) Names() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	names := make([]string, len(s.order))
	for i, k := range s.order {
		names[i] = s.entries[k].name
	}
	return names
}

// WriteDir flushes every payload into dir, creating it as needed.
func (s *Store) WriteDir(dir string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(s.entries) == 0 {
		return nil
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create asset dir: %w", err)
	}
	for _, k := range s.order {
		e := s.entries[k]
		if err := os.WriteFile(filepath.Join(dir, e.name), e.data, 0o644); err != nil {
			return fmt.Errorf("write asset %s: %w", e.name, err)
		}
	}
	return nil
}
