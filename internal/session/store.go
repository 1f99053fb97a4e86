package session

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"github.com/luoqiao6/pdf-to-typst-mcp/internal/model"
)

// Store persists sessions to sqlite so a restarted server can resume
// reviewing finished work. Page snapshot images are deliberately not
// persisted; they are re-rendered from the source PDF on demand.
type Store struct {
	db *sql.DB
}

// OpenStore opens (creating if needed) the session database at path.
// Use ":memory:" for an ephemeral store.
func OpenStore(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open session db: %w", err)
	}
	pragmas := []string{
		"PRAGMA foreign_keys = ON",
		"PRAGMA journal_mode = WAL",
		"PRAGMA busy_timeout = 10000",
		"PRAGMA synchronous = NORMAL",
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			db.Close()
			return nil, fmt.Errorf("session db pragma %q: %w", p, err)
		}
	}
	if err := migrate(db); err != nil {
		db.Close()
		return nil, err
	}
	return &Store{db: db}, nil
}

func migrate(db *sql.DB) error {
	schema := []string{
		`CREATE TABLE IF NOT EXISTS sessions (
			id TEXT PRIMARY KEY,
			pdf_path TEXT NOT NULL,
			title TEXT NOT NULL DEFAULT '',
			author TEXT NOT NULL DEFAULT '',
			page_count INTEGER NOT NULL DEFAULT 0,
			status TEXT NOT NULL,
			fail_reason TEXT NOT NULL DEFAULT '',
			created_at TEXT NOT NULL,
			updated_at TEXT NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS session_pages (
			session_id TEXT NOT NULL REFERENCES sessions(id) ON DELETE CASCADE,
			page INTEGER NOT NULL,
			record_json TEXT NOT NULL DEFAULT '',
			fragment TEXT NOT NULL DEFAULT '',
			PRIMARY KEY (session_id, page)
		)`,
	}
	for _, stmt := range schema {
		if _, err := db.Exec(stmt); err != nil {
			return fmt.Errorf("session db migrate: %w", err)
		}
	}
	return nil
}

// Close releases the database handle.
func (st *Store) Close() error {
	if st == nil || st.db == nil {
		return nil
	}
	return st.db.Close()
}

// SaveSession upserts the session header row.
func (st *Store) SaveSession(s *Session) error {
	snap := s.Snapshot()
	_, err := st.db.Exec(`
		INSERT INTO sessions (id, pdf_path, title, author, page_count, status, fail_reason, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			status = excluded.status,
			fail_reason = excluded.fail_reason,
			page_count = excluded.page_count,
			updated_at = excluded.updated_at`,
		snap.ID, snap.PDFPath, snap.Meta.Title, snap.Meta.Author, snap.Meta.Pages,
		string(snap.Status), snap.FailReason,
		snap.CreatedAt.Format(time.RFC3339Nano), snap.UpdatedAt.Format(time.RFC3339Nano))
	if err != nil {
		return fmt.Errorf("save session %s: %w", snap.ID, err)
	}
	return nil
}

// SavePage upserts one page's record and fragment.
func (st *Store) SavePage(sessionID string, page int, record *model.PageRecord, fragment string) error {
	recordJSON := ""
	if record != nil {
		b, err := json.Marshal(record)
		if err != nil {
			return fmt.Errorf("marshal page %d record: %w", page, err)
		}
		recordJSON = string(b)
	}
	_, err := st.db.Exec(`
		INSERT INTO session_pages (session_id, page, record_json, fragment)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(session_id, page) DO UPDATE SET
			record_json = CASE WHEN excluded.record_json != '' THEN excluded.record_json ELSE session_pages.record_json END,
			fragment = CASE WHEN excluded.fragment != '' THEN excluded.fragment ELSE session_pages.fragment END`,
		sessionID, page, recordJSON, fragment)
	if err != nil {
		return fmt.Errorf("save session %s page %d: %w", sessionID, page, err)
	}
	return nil
}

// DeleteSession removes the session and, via the foreign key cascade,
// its pages.
func (st *Store) DeleteSession(id string) error {
	if _, err := st.db.Exec(`DELETE FROM sessions WHERE id = ?`, id); err != nil {
		return fmt.Errorf("delete session %s: %w", id, err)
	}
	return nil
}

// LoadAll rehydrates every persisted session.
func (st *Store) LoadAll() ([]*Session, error) {
	rows, err := st.db.Query(`
		SELECT id, pdf_path, title, author, page_count, status, fail_reason, created_at, updated_at
		FROM sessions ORDER BY created_at`)
	if err != nil {
		return nil, fmt.Errorf("load sessions: %w", err)
	}
	defer rows.Close()

	var out []*Session
	for rows.Next() {
		var (
			id, pdfPath, title, author  string
			pageCount                   int
			status, failReason          string
			createdAtRaw, updatedAtRaw  string
		)
		if err := rows.Scan(&id, &pdfPath, &title, &author, &pageCount,
			&status, &failReason, &createdAtRaw, &updatedAtRaw); err != nil {
			return nil, fmt.Errorf("scan session row: %w", err)
		}
		s := newSession(id, pdfPath, model.DocMeta{Title: title, Author: author, Pages: pageCount})
		s.status = Status(status)
		s.failReason = failReason
		if t, err := time.Parse(time.RFC3339Nano, createdAtRaw); err == nil {
			s.CreatedAt = t
		}
		if t, err := time.Parse(time.RFC3339Nano, updatedAtRaw); err == nil {
			s.updatedAt = t
		}
		if err := st.loadPages(s); err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

func (st *Store) loadPages(s *Session) error {
	rows, err := st.db.Query(`
		SELECT page, record_json, fragment FROM session_pages
		WHERE session_id = ? ORDER BY page`, s.ID)
	if err != nil {
		return fmt.Errorf("load session %s pages: %w", s.ID, err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			page               int
			recordJSON, fragment string
		)
		if err := rows.Scan(&page, &recordJSON, &fragment); err != nil {
			return fmt.Errorf("scan session %s page row: %w", s.ID, err)
		}
		if recordJSON != "" {
			var rec model.PageRecord
			if err := json.Unmarshal([]byte(recordJSON), &rec); err != nil {
				return fmt.Errorf("decode session %s page %d record: %w", s.ID, page, err)
			}
			s.records = append(s.records, &rec)
		}
		if fragment != "" {
			s.fragments[page] = fragment
		}
	}
	return rows.Err()
}
