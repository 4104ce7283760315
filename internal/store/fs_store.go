package store

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
)

// FSStore implements the Store interface using filesystem-based
// persistence. Documents live under <baseDir>/results/<id>/result.json.
//
// Thread-safety: atomic file operations (rename) only, no locks.
type FSStore struct {
	baseDir string
}

// NewFSStore creates a new filesystem-based store.
// The baseDir will be created if it doesn't exist.
func NewFSStore(baseDir string) (*FSStore, error) {
	if err := os.MkdirAll(baseDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create base directory: %w", err)
	}
	return &FSStore{baseDir: baseDir}, nil
}

func (fs *FSStore) resultDir(id string) string {
	return filepath.Join(fs.baseDir, "results", id)
}

func (fs *FSStore) resultPath(id string) string {
	return filepath.Join(fs.resultDir(id), "result.json")
}

// SaveResult atomically saves a result using temp file + rename.
func (fs *FSStore) SaveResult(id string, doc *ResultDoc) error {
	if id == "" {
		return fmt.Errorf("id cannot be empty")
	}
	if doc == nil {
		return fmt.Errorf("result cannot be nil")
	}
	if err := doc.Validate(); err != nil {
		return fmt.Errorf("invalid result: %w", err)
	}

	if err := os.MkdirAll(fs.resultDir(id), 0755); err != nil {
		return fmt.Errorf("failed to create result directory: %w", err)
	}

	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to serialize result: %w", err)
	}

	tempPath := fs.resultPath(id) + ".tmp"
	if err := os.WriteFile(tempPath, data, 0644); err != nil {
		return fmt.Errorf("failed to write temp result file: %w", err)
	}

	finalPath := fs.resultPath(id)
	if err := os.Rename(tempPath, finalPath); err != nil {
		os.Remove(tempPath)
		return fmt.Errorf("failed to rename result file: %w", err)
	}

	slog.Debug("Result saved", "id", id, "path", finalPath)
	return nil
}

// LoadResult retrieves the result for the given id.
func (fs *FSStore) LoadResult(id string) (*ResultDoc, error) {
	if id == "" {
		return nil, fmt.Errorf("id cannot be empty")
	}

	path := fs.resultPath(id)
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil, &NotFoundError{ID: id}
	} else if err != nil {
		return nil, fmt.Errorf("failed to stat result file: %w", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read result file: %w", err)
	}

	var doc ResultDoc
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("failed to deserialize result: %w", err)
	}
	if err := doc.Validate(); err != nil {
		return nil, fmt.Errorf("stored result is invalid: %w", err)
	}
	return &doc, nil
}

// ListResults scans the results directory and returns metadata for
// every readable document. Unreadable entries are skipped with a log
// line rather than failing the whole listing.
func (fs *FSStore) ListResults() ([]ResultInfo, error) {
	root := filepath.Join(fs.baseDir, "results")
	entries, err := os.ReadDir(root)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan results directory: %w", err)
	}

	infos := make([]ResultInfo, 0, len(entries))
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		doc, err := fs.LoadResult(e.Name())
		if err != nil {
			slog.Warn("Skipping unreadable result", "id", e.Name(), "error", err)
			continue
		}
		infos = append(infos, doc.ToInfo())
	}
	return infos, nil
}

// DeleteResult removes the result directory for the given id.
func (fs *FSStore) DeleteResult(id string) error {
	if id == "" {
		return fmt.Errorf("id cannot be empty")
	}

	dir := fs.resultDir(id)
	if _, err := os.Stat(dir); os.IsNotExist(err) {
		return &NotFoundError{ID: id}
	} else if err != nil {
		return fmt.Errorf("failed to stat result directory: %w", err)
	}

	if err := os.RemoveAll(dir); err != nil {
		return fmt.Errorf("failed to delete result: %w", err)
	}

	slog.Debug("Result deleted", "id", id)
	return nil
}
