package session

import (
	"context"
	"time"

	"github.com/studyarch/tutorflow/core"
)

// Checkpoint records how far a run got, persisted once per completed node so
// a restarted process can resume routing from durable state.
type Checkpoint struct {
	Generation uint64         `json:"generation"`
	Node       string         `json:"node"`
	Status     core.RunStatus `json:"status"`
	UpdatedAt  time.Time      `json:"updated_at"`
}

// Record is the persisted view of one tutoring session.
type Record struct {
	ID         string           `json:"id"`
	State      *core.TutorState `json:"state"`
	Checkpoint Checkpoint       `json:"checkpoint"`
	CreatedAt  time.Time        `json:"created_at"`
	UpdatedAt  time.Time        `json:"updated_at"`
}

// NewRecord constructs a fresh session record.
func NewRecord(id string) *Record {
	now := time.Now().UTC()
	return &Record{
		ID:        id,
		State:     core.NewTutorState(),
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// Clone returns a deep copy. History is copied here (unlike the intra-run
// state clone) because store snapshots outlive the run that produced them.
func (r *Record) Clone() *Record {
	c := *r
	if r.State != nil {
		c.State = r.State.Clone()
		c.State.History = &core.History{Entries: r.State.History.Slice(0, r.State.History.Len())}
	}
	return &c
}

// Store persists session records. Implementations must be safe for
// concurrent use; only the live run of a session writes to its record, but
// reads may come from any goroutine.
type Store interface {
	// Get returns an existing record or lazily creates one.
	Get(ctx context.Context, sessionID string) (*Record, error)
	// Save stores a snapshot of the record.
	Save(ctx context.Context, rec *Record) error
	// SaveCheckpoint updates state and checkpoint in one write.
	SaveCheckpoint(ctx context.Context, sessionID string, cp Checkpoint, state *core.TutorState) error
	// Delete removes a session record.
	Delete(ctx context.Context, sessionID string) error
}
