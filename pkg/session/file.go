package session

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/mCRL2org/ltsgraph/pkg/errors"
	"github.com/mCRL2org/ltsgraph/pkg/graph"
)

// Record is the persisted form of a document.
type Record struct {
	ID      string       `json:"id"`
	Name    string       `json:"name"`
	Created time.Time    `json:"created"`
	Layout  graph.Layout `json:"layout"`
}

// FileStore keeps document records as JSON files in a directory.
type FileStore struct {
	mu      sync.RWMutex
	baseDir string
}

// NewFileStore creates the directory if needed and returns a store over it.
func NewFileStore(baseDir string) (*FileStore, error) {
	if baseDir == "" {
		return nil, errors.New(errors.ErrCodeInvalidPath, "document directory is required")
	}
	if err := os.MkdirAll(baseDir, 0o700); err != nil {
		return nil, fmt.Errorf("create document dir: %w", err)
	}
	return &FileStore{baseDir: baseDir}, nil
}

// Path returns the base directory for document files.
func (s *FileStore) Path() string { return s.baseDir }

func (s *FileStore) recordPath(id string) string {
	return filepath.Join(s.baseDir, id+".json")
}

// Load reads the record with the given ID.
func (s *FileStore) Load(id string) (Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.load(s.recordPath(id))
}

func (s *FileStore) load(path string) (Record, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Record{}, errors.New(errors.ErrCodeSessionNotFound, "no saved document %s", filepath.Base(path))
		}
		return Record{}, fmt.Errorf("read document file: %w", err)
	}
	var rec Record
	if err := json.Unmarshal(data, &rec); err != nil {
		return Record{}, errors.Wrap(errors.ErrCodeInvalidFormat, err, "parse %s", filepath.Base(path))
	}
	return rec, nil
}

// Save writes rec, replacing any earlier record with the same ID.
func (s *FileStore) Save(rec Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := json.MarshalIndent(rec, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal document: %w", err)
	}

	path := s.recordPath(rec.ID)
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o600); err != nil {
		return fmt.Errorf("write document file: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("write document file: %w", err)
	}
	return nil
}

// Delete removes a record. Removing a missing record is not an error.
func (s *FileStore) Delete(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.Remove(s.recordPath(id)); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("remove document file: %w", err)
	}
	return nil
}

// List returns every readable record ordered by creation time. Unreadable
// files are skipped.
func (s *FileStore) List() ([]Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	entries, err := os.ReadDir(s.baseDir)
	if err != nil {
		return nil, fmt.Errorf("read document dir: %w", err)
	}

	var recs []Record
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".json") {
			continue
		}
		rec, err := s.load(filepath.Join(s.baseDir, entry.Name()))
		if err != nil {
			continue
		}
		recs = append(recs, rec)
	}
	slices.SortFunc(recs, func(a, b Record) int { return a.Created.Compare(b.Created) })
	return recs, nil
}
