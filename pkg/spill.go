// Package pkg provides small reusable utilities for retest.
package pkg

import (
	"encoding/gob"
	"fmt"
	"log/slog"
	"os"
	"sync"
)

// Spill is a generic append-only disk buffer for items of type T. A
// watch session can run for days and accumulate thousands of failure
// records; spilling them to a temp file keeps memory flat while still
// allowing random access for display. The file lives only for the
// process: Close removes it.
type Spill[T any] interface {
	Len() uint64
	Path() string
	Append(item T) error
	Get(index uint64) (T, error)
	Range(fn func(index uint64, item T) error) error
	Close() error
}

type spillImpl[T any] struct {
	path    string
	file    *os.File
	encoder *gob.Encoder
	mu      sync.Mutex
	length  uint64
}

// NewSpill creates a Spill backed by a fresh temp file. The prefix
// names the file for debuggability (e.g. "retest-failures").
func NewSpill[T any](prefix string) (Spill[T], error) {
	file, err := os.CreateTemp("", prefix+"-*.gob")
	if err != nil {
		return nil, fmt.Errorf("create spill file: %w", err)
	}

	slog.Debug("created spill", "path", file.Name())

	return &spillImpl[T]{
		path:    file.Name(),
		file:    file,
		encoder: gob.NewEncoder(file),
	}, nil
}

// Append encodes one item at the end of the buffer.
func (s *spillImpl[T]) Append(item T) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.encoder.Encode(item); err != nil {
		slog.Error("failed to encode spill item", "path", s.path, "index", s.length, "error", err)
		return fmt.Errorf("encode spill item: %w", err)
	}

	s.length++

	return nil
}

// Get decodes the item at index. Indexing past the end is an error.
func (s *spillImpl[T]) Get(index uint64) (T, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var zero T

	if index >= s.length {
		return zero, fmt.Errorf("spill index %d out of bounds (length %d)", index, s.length)
	}

	file, err := os.Open(s.path)
	if err != nil {
		return zero, fmt.Errorf("open spill file: %w", err)
	}

	defer func() {
		if err := file.Close(); err != nil {
			slog.Warn("failed to close spill file", "path", s.path, "error", err)
		}
	}()

	decoder := gob.NewDecoder(file)

	var item T

	// gob frames are sequential; decode forward to the requested index.
	for i := uint64(0); i <= index; i++ {
		if err := decoder.Decode(&item); err != nil {
			return zero, fmt.Errorf("decode spill item %d: %w", i, err)
		}
	}

	return item, nil
}

// Range calls fn for every item in append order, stopping at the first
// error.
func (s *spillImpl[T]) Range(fn func(index uint64, item T) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	file, err := os.Open(s.path)
	if err != nil {
		return fmt.Errorf("open spill file: %w", err)
	}

	defer func() {
		if err := file.Close(); err != nil {
			slog.Warn("failed to close spill file", "path", s.path, "error", err)
		}
	}()

	decoder := gob.NewDecoder(file)

	for i := uint64(0); i < s.length; i++ {
		var item T
		if err := decoder.Decode(&item); err != nil {
			return fmt.Errorf("decode spill item %d: %w", i, err)
		}

		if err := fn(i, item); err != nil {
			return err
		}
	}

	return nil
}

// Len returns the number of items appended so far.
func (s *spillImpl[T]) Len() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.length
}

// Path returns the backing file's path.
func (s *spillImpl[T]) Path() string {
	return s.path
}

// Close closes and removes the backing file.
func (s *spillImpl[T]) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.file == nil {
		return nil
	}

	if err := s.file.Close(); err != nil {
		slog.Error("failed to close spill", "path", s.path, "error", err)
		return err
	}

	s.file = nil

	if err := os.Remove(s.path); err != nil {
		slog.Warn("failed to remove spill file", "path", s.path, "error", err)
	}

	return nil
}
