// Package store implements C3, the Persistent Store: a debounced,
// atomic-rename JSON file writer shared by the pattern registry, the
// content-change predictor, and the session store. Grounded on the
// teacher's atomic-write-then-rename discipline, generalized with a
// debounce timer so repeated saves inside a short window coalesce into one
// write.
package store

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Store debounces and atomically persists a single JSON document backed by
// a caller-supplied snapshot function. One Store instance owns one file.
type Store struct {
	path          string
	debounce      time.Duration
	snapshot      func() (any, error)
	logger        *zap.Logger

	mu        sync.Mutex
	timer     *time.Timer
	pending   bool
	closed    bool
}

// New creates a Store writing to path, debouncing writes by debounce.
// snapshot is called at the moment a write actually happens (after the
// debounce window elapses or Flush is called), so it always serializes the
// latest state rather than whatever was current when Save was requested.
func New(path string, debounce time.Duration, snapshot func() (any, error), logger *zap.Logger) *Store {
	return &Store{
		path:     path,
		debounce: debounce,
		snapshot: snapshot,
		logger:   logger,
	}
}

// Save arms the debounce timer; repeated calls within the debounce window
// coalesce into a single eventual write.
func (s *Store) Save() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return
	}
	s.pending = true
	if s.timer != nil {
		return
	}
	s.timer = time.AfterFunc(s.debounce, s.fireDebounced)
}

func (s *Store) fireDebounced() {
	s.mu.Lock()
	s.timer = nil
	shouldWrite := s.pending
	s.pending = false
	s.mu.Unlock()

	if !shouldWrite {
		return
	}
	if err := s.writeNow(); err != nil && s.logger != nil {
		s.logger.Error("debounced persistence write failed", zap.String("path", s.path), zap.Error(err))
	}
}

// Flush cancels any pending debounce timer and writes immediately.
func (s *Store) Flush() error {
	s.mu.Lock()
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
	s.pending = false
	s.mu.Unlock()

	return s.writeNow()
}

// Close flushes any pending write and marks the store unusable for further
// Save calls.
func (s *Store) Close() error {
	err := s.Flush()
	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()
	return err
}

func (s *Store) writeNow() error {
	data, err := s.snapshot()
	if err != nil {
		return fmt.Errorf("snapshot state: %w", err)
	}
	return atomicWriteJSON(s.path, data)
}

// SaveJSON writes v to path immediately via atomic rename, for callers that
// persist infrequently enough not to need debouncing (e.g. one session
// snapshot per (domain, profile)).
func SaveJSON(path string, v any) error {
	return atomicWriteJSON(path, v)
}

// atomicWriteJSON marshals v and writes it to path via write-temp, fsync,
// rename, so a crash mid-write never leaves a torn file at path.
func atomicWriteJSON(path string, v any) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return fmt.Errorf("create directory %s: %w", dir, err)
	}

	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal json: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".tmp-*")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpPath := tmp.Name()

	success := false
	defer func() {
		if !success {
			_ = os.Remove(tmpPath)
		}
	}()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("write content: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("sync file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close temp file: %w", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		return fmt.Errorf("rename to final: %w", err)
	}

	success = true
	return nil
}

// LoadJSON reads and unmarshals the JSON document at path into dst. A
// missing file is not an error: dst is left untouched and ok is false.
func LoadJSON(path string, dst any) (ok bool, err error) {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("read %s: %w", path, err)
	}
	if err := json.Unmarshal(data, dst); err != nil {
		return false, fmt.Errorf("unmarshal %s: %w", path, err)
	}
	return true, nil
}
