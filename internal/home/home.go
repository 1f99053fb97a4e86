// Package home owns the on-disk layout under ~/.pdf2typst: the config
// file, the session database, converted output, and cached page
// snapshots.
package home

import (
	"fmt"
	"os"
	"path/filepath"
)

const (
	// DefaultDirName is the default name for the pdf2typst home directory.
	DefaultDirName = ".pdf2typst"

	// OutputDirName is the subdirectory for converted documents.
	OutputDirName = "output"

	// SnapshotsDirName is the subdirectory for cached page snapshots.
	SnapshotsDirName = "snapshots"

	// ConfigFileName is the default config file name.
	ConfigFileName = "config.yaml"

	// SessionDBName is the sqlite session database file name.
	SessionDBName = "sessions.db"
)

// Dir represents the pdf2typst home directory structure.
type Dir struct {
	path string
}

// New creates a new Dir with the given path.
// If path is empty, uses the default (~/.pdf2typst).
func New(path string) (*Dir, error) {
	if path == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("get user home directory: %w", err)
		}
		path = filepath.Join(home, DefaultDirName)
	}

	return &Dir{path: path}, nil
}

// Path returns the root path of the home directory.
func (d *Dir) Path() string {
	return d.path
}

// ConfigPath returns the path to the default config file.
func (d *Dir) ConfigPath() string {
	return filepath.Join(d.path, ConfigFileName)
}

// SessionDBPath returns the path to the session database.
func (d *Dir) SessionDBPath() string {
	return filepath.Join(d.path, SessionDBName)
}

// OutputDir returns the directory for converted documents.
func (d *Dir) OutputDir() string {
	return filepath.Join(d.path, OutputDirName)
}

// SessionOutputDir returns the output directory for one session.
func (d *Dir) SessionOutputDir(sessionID string) string {
	return filepath.Join(d.OutputDir(), sessionID)
}

// SnapshotsDir returns the directory for a session's page snapshots.
func (d *Dir) SnapshotsDir(sessionID string) string {
	return filepath.Join(d.path, SnapshotsDirName, sessionID)
}

// SnapshotPath returns the path to a page snapshot.
// Page numbers are 1-indexed.
func (d *Dir) SnapshotPath(sessionID string, page int) string {
	return filepath.Join(d.SnapshotsDir(sessionID), fmt.Sprintf("page_%04d.png", page))
}

// EnsureExists creates the home directory and subdirectories if they
// don't exist.
func (d *Dir) EnsureExists() error {
	if err := os.MkdirAll(d.OutputDir(), 0o755); err != nil {
		return fmt.Errorf("create output directory: %w", err)
	}
	return nil
}

// EnsureSnapshotsDir creates the snapshot directory for a session.
func (d *Dir) EnsureSnapshotsDir(sessionID string) error {
	return os.MkdirAll(d.SnapshotsDir(sessionID), 0o755)
}

// Exists returns true if the home directory exists.
func (d *Dir) Exists() bool {
	_, err := os.Stat(d.path)
	return err == nil
}

// ConfigExists returns true if the config file exists in the home directory.
func (d *Dir) ConfigExists() bool {
	_, err := os.Stat(d.ConfigPath())
	return err == nil
}
