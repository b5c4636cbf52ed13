// Package state persists which tasks have completed and when, so an
// interrupted run can resume. The backing file is a single JSON object
// mapping task key to a unix timestamp. A missing or corrupt file degrades
// to an empty state with a warning, never an error: corrupt state means a
// fresh run, not a crash.
package state

import (
	"encoding/json"
	"os"
	"path/filepath"

	"github.com/sysforge/sysforge/pkg/errors"
	"github.com/sysforge/sysforge/pkg/logging"
)

// Store records task completion. Only the orchestrator writes to it;
// tasks never touch the store directly.
type Store interface {
	// IsComplete reports whether a key has been recorded.
	IsComplete(key string) bool

	// CompletionTime returns the recorded timestamp for a key.
	CompletionTime(key string) (float64, bool)

	// MarkComplete records a key with the given unix timestamp and
	// persists the full mapping atomically.
	MarkComplete(key string, timestamp float64) error

	// ClearKey removes a single key.
	ClearKey(key string) error

	// Reset removes all entries.
	Reset() error

	// Completed returns a copy of the full mapping.
	Completed() map[string]float64
}

type fileStore struct {
	path    string
	entries map[string]float64
}

// NewFileStore loads (or initializes) a store backed by the given path.
func NewFileStore(path string) Store {
	s := &fileStore{path: path, entries: make(map[string]float64)}
	s.load()
	return s
}

// load reads the backing file. Absence and parse failures both yield an
// empty mapping; the latter logs a warning.
func (s *fileStore) load() {
	logger := logging.GetLogger("state")

	data, err := os.ReadFile(s.path)
	if err != nil {
		if !os.IsNotExist(err) {
			logger.Warn().Err(err).Str("path", s.path).Msg("Could not read state file, starting fresh")
		}
		return
	}

	var entries map[string]float64
	if err := json.Unmarshal(data, &entries); err != nil {
		logger.Warn().Err(err).Str("path", s.path).Msg("State file is corrupt, starting fresh")
		return
	}
	s.entries = entries
}

// save writes the mapping atomically: write to a temp file in the same
// directory, then rename over the target. A reader never observes a
// half-written file.
func (s *fileStore) save() error {
	if err := os.MkdirAll(filepath.Dir(s.path), 0755); err != nil {
		return errors.Wrap(err, errors.ErrStateWrite, "failed to create state directory")
	}

	data, err := json.MarshalIndent(s.entries, "", "  ")
	if err != nil {
		return errors.Wrap(err, errors.ErrStateWrite, "failed to encode state")
	}

	tmpPath := s.path + ".tmp"
	if err := os.WriteFile(tmpPath, data, 0644); err != nil {
		return errors.Wrap(err, errors.ErrStateWrite, "failed to write state temp file")
	}
	if err := os.Rename(tmpPath, s.path); err != nil {
		return errors.Wrap(err, errors.ErrStateWrite, "failed to replace state file")
	}
	return nil
}

func (s *fileStore) IsComplete(key string) bool {
	_, ok := s.entries[key]
	return ok
}

func (s *fileStore) CompletionTime(key string) (float64, bool) {
	ts, ok := s.entries[key]
	return ts, ok
}

func (s *fileStore) MarkComplete(key string, timestamp float64) error {
	s.entries[key] = timestamp
	return s.save()
}

func (s *fileStore) ClearKey(key string) error {
	if _, ok := s.entries[key]; !ok {
		return nil
	}
	delete(s.entries, key)
	return s.save()
}

func (s *fileStore) Reset() error {
	s.entries = make(map[string]float64)
	if err := os.Remove(s.path); err != nil && !os.IsNotExist(err) {
		return errors.Wrap(err, errors.ErrStateWrite, "failed to remove state file")
	}
	return nil
}

func (s *fileStore) Completed() map[string]float64 {
	out := make(map[string]float64, len(s.entries))
	for k, v := range s.entries {
		out[k] = v
	}
	return out
}
