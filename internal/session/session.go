// Package session tracks in-flight and finished conversions: their
// lifecycle state, per-page records, and the Typst fragments assembled
// so far. Sessions survive restarts through the sqlite store.
package session

import (
	"fmt"
	"sync"
	"time"

	"github.com/luoqiao6/pdf-to-typst-mcp/internal/model"
)

// Status is a conversion lifecycle state. Transitions are forward-only;
// Failed is reachable from any non-terminal state; terminal states
// absorb.
type Status string

const (
	StatusCreated     Status = "created"
	StatusExtracting  Status = "extracting"
	StatusReconciling Status = "reconciling"
	StatusStructuring Status = "structuring"
	StatusRendering   Status = "rendering"
	StatusFinalized   Status = "finalized"
	StatusFailed      Status = "failed"
)

// statusOrder gives each forward state its pipeline position.
var statusOrder = map[Status]int{
	StatusCreated:     0,
	StatusExtracting:  1,
	StatusReconciling: 2,
	StatusStructuring: 3,
	StatusRendering:   4,
	StatusFinalized:   5,
}

// Terminal reports whether s absorbs all transitions.
func (s Status) Terminal() bool {
	return s == StatusFinalized || s == StatusFailed
}

// Valid reports whether s is a known status.
func (s Status) Valid() bool {
	if s == StatusFailed {
		return true
	}
	_, ok := statusOrder[s]
	return ok
}

// CanTransition reports whether from→to is a legal move.
func CanTransition(from, to Status) bool {
	if !from.Valid() || !to.Valid() {
		return false
	}
	if from.Terminal() {
		return false
	}
	if to == StatusFailed {
		return true
	}
	return statusOrder[to] == statusOrder[from]+1
}

// Session is one conversion's mutable state. All fields behind the
// mutex; callers use the accessor methods.
type Session struct {
	ID        string
	PDFPath   string
	Meta      model.DocMeta
	CreatedAt time.Time

	mu         sync.Mutex
	status     Status
	updatedAt  time.Time
	failReason string
	pageImages map[int][]byte
	records    []*model.PageRecord
	fragments  map[int]string
}

func newSession(id, pdfPath string, meta model.DocMeta) *Session {
	now := time.Now().UTC()
	return &Session{
		ID:         id,
		PDFPath:    pdfPath,
		Meta:       meta,
		CreatedAt:  now,
		status:     StatusCreated,
		updatedAt:  now,
		pageImages: make(map[int][]byte),
		fragments:  make(map[int]string),
	}
}

// Status returns the current lifecycle state.
func (s *Session) Status() Status {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.status
}

// UpdatedAt returns the last mutation time.
func (s *Session) UpdatedAt() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.updatedAt
}

// FailReason returns the diagnostic recorded with a Failed transition.
func (s *Session) FailReason() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.failReason
}

// Advance moves the session to the next state, enforcing the machine.
func (s *Session) Advance(to Status) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !CanTransition(s.status, to) {
		return fmt.Errorf("session %s: illegal transition %s -> %s", s.ID, s.status, to)
	}
	s.status = to
	s.updatedAt = time.Now().UTC()
	return nil
}

// Fail moves the session to Failed with a diagnostic. Failing a
// terminal session is an error.
func (s *Session) Fail(reason string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !CanTransition(s.status, StatusFailed) {
		return fmt.Errorf("session %s: illegal transition %s -> %s", s.ID, s.status, StatusFailed)
	}
	s.status = StatusFailed
	s.failReason = reason
	s.updatedAt = time.Now().UTC()
	return nil
}

// SetRecords stores the per-page pipeline records.
func (s *Session) SetRecords(records []*model.PageRecord) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records = records
	s.updatedAt = time.Now().UTC()
}

// Records returns the stored page records.
func (s *Session) Records() []*model.PageRecord {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.records
}

// Record returns the record for one page, or nil.
func (s *Session) Record(page int) *model.PageRecord {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, r := range s.records {
		if r.Page == page {
			return r
		}
	}
	return nil
}

// SetPageImage caches a rendered page snapshot. Images are not
// persisted; they can always be re-rendered from the source.
func (s *Session) SetPageImage(page int, data []byte) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pageImages[page] = data
}

// PageImage returns the cached snapshot for a page.
func (s *Session) PageImage(page int) ([]byte, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	data, ok := s.pageImages[page]
	return data, ok
}

// SetFragment stores the Typst fragment for one page.
func (s *Session) SetFragment(page int, text string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.fragments[page] = text
	s.updatedAt = time.Now().UTC()
}

// Fragment returns one page's fragment.
func (s *Session) Fragment(page int) (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	text, ok := s.fragments[page]
	return text, ok
}

// Fragments returns a copy of the page→fragment map.
func (s *Session) Fragments() map[int]string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(map[int]string, len(s.fragments))
	for k, v := range s.fragments {
		out[k] = v
	}
	return out
}

// Snapshot is the JSON-safe view handed to MCP/HTTP clients.
type Snapshot struct {
	ID         string        `json:"id"`
	PDFPath    string        `json:"pdf_path"`
	Status     Status        `json:"status"`
	Meta       model.DocMeta `json:"meta"`
	Pages      int           `json:"pages"`
	Fragments  int           `json:"fragments"`
	FailReason string        `json:"fail_reason,omitempty"`
	CreatedAt  time.Time     `json:"created_at"`
	UpdatedAt  time.Time     `json:"updated_at"`
}

// Snapshot returns the client view of the session.
func (s *Session) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return Snapshot{
		ID:         s.ID,
		PDFPath:    s.PDFPath,
		Status:     s.status,
		Meta:       s.Meta,
		Pages:      s.Meta.Pages,
		Fragments:  len(s.fragments),
		FailReason: s.failReason,
		CreatedAt:  s.CreatedAt,
		UpdatedAt:  s.updatedAt,
	}
}
