package session

import (
	"context"
	"sync"
	"time"

	"github.com/studyarch/tutorflow/core"
)

// InMemoryStore is a volatile Store implementation holding records in a
// process local map. It is safe for concurrent access and best suited for
// tests or ephemeral demo servers. Each returned record is cloned to prevent
// external mutation of internal state.
type InMemoryStore struct {
	mu      sync.RWMutex
	records map[string]*Record
}

// NewInMemoryStore constructs an empty in-memory session store.
func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{records: make(map[string]*Record)}
}

// Get returns an existing record (clone) or creates a new one lazily.
func (s *InMemoryStore) Get(_ context.Context, sessionID string) (*Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if rec, ok := s.records[sessionID]; ok {
		return rec.Clone(), nil
	}
	rec := NewRecord(sessionID)
	s.records[sessionID] = rec
	return rec.Clone(), nil
}

// Save stores a clone of the provided record snapshot.
func (s *InMemoryStore) Save(_ context.Context, rec *Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	c := rec.Clone()
	c.UpdatedAt = time.Now().UTC()
	s.records[rec.ID] = c
	return nil
}

// SaveCheckpoint updates state and checkpoint of an existing or newly
// created record.
func (s *InMemoryStore) SaveCheckpoint(_ context.Context, sessionID string, cp Checkpoint, state *core.TutorState) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.records[sessionID]
	if !ok {
		rec = NewRecord(sessionID)
		s.records[sessionID] = rec
	}
	if state != nil {
		rec.State = state.Clone()
		rec.State.History = &core.History{Entries: state.History.Slice(0, state.History.Len())}
	}
	rec.Checkpoint = cp
	rec.UpdatedAt = time.Now().UTC()
	return nil
}

// Delete removes a session record.
func (s *InMemoryStore) Delete(_ context.Context, sessionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.records, sessionID)
	return nil
}
