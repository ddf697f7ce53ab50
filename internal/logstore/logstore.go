// Package logstore owns the bounded, persisted log of position entries.
package logstore

import (
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"sync"

	"github.com/musthaq16/walk-logger/internal/state"
	"github.com/musthaq16/walk-logger/types"
)

const (
	// DefaultCapacity is the maximum number of entries kept.
	DefaultCapacity = 100
	// DefaultKey is the storage key of the serialized log.
	DefaultKey = "logTable"
)

// ErrMalformed reports a stored log that could not be decoded.
var ErrMalformed = errors.New("logstore: malformed stored log")

// Store is an append-only log capped at a fixed capacity. Every mutation
// is written through to the backing state.Store.
type Store struct {
	mu       sync.Mutex
	backend  state.Store
	key      string
	capacity int
	entries  []types.LogEntry
}

// New returns an empty store. Call Load to pick up a persisted log.
func New(backend state.Store, key string, capacity int) *Store {
	if key == "" {
		key = DefaultKey
	}
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &Store{
		backend:  backend,
		key:      key,
		capacity: capacity,
		entries:  []types.LogEntry{},
	}
}

// Load replaces the in-memory log with the persisted one. An absent or
// malformed log loads as empty.
func (s *Store) Load() []types.LogEntry {
	s.mu.Lock()
	defer s.mu.Unlock()

	entries, err := s.read()
	switch {
	case errors.Is(err, state.ErrNotFound):
		entries = []types.LogEntry{}
	case err != nil:
		log.Printf("[logstore] %v, starting with an empty log", err)
		entries = []types.LogEntry{}
	}
	s.entries = s.trim(entries)
	return s.snapshot()
}

func (s *Store) read() ([]types.LogEntry, error) {
	data, err := s.backend.Get(s.key)
	if err != nil {
		return nil, err
	}
	var entries []types.LogEntry
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	if entries == nil {
		entries = []types.LogEntry{}
	}
	return entries, nil
}

// Append adds entry, evicting the oldest entries past capacity, and
// persists the result. The in-memory log is updated even when the write
// fails; the write error is returned.
func (s *Store) Append(entry types.LogEntry) ([]types.LogEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.entries = s.trim(append(s.entries, entry))
	return s.snapshot(), s.persist()
}

// Clear empties the log and persists the empty log.
func (s *Store) Clear() ([]types.LogEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.entries = []types.LogEntry{}
	return s.snapshot(), s.persist()
}

// Entries returns a copy of the log.
func (s *Store) Entries() []types.LogEntry {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshot()
}

func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}

func (s *Store) Capacity() int { return s.capacity }

func (s *Store) trim(entries []types.LogEntry) []types.LogEntry {
	if over := len(entries) - s.capacity; over > 0 {
		kept := make([]types.LogEntry, s.capacity)
		copy(kept, entries[over:])
		return kept
	}
	return entries
}

func (s *Store) persist() error {
	data, err := json.Marshal(s.entries)
	if err != nil {
		return fmt.Errorf("encode log: %w", err)
	}
	if err := s.backend.Put(s.key, data); err != nil {
		return fmt.Errorf("persist log: %w", err)
	}
	return nil
}

func (s *Store) snapshot() []types.LogEntry {
	out := make([]types.LogEntry, len(s.entries))
	copy(out, s.entries)
	return out
}
