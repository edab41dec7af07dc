// Package content stores the study material the retrieve node searches:
// lesson snippets, worked examples, reference passages. The interface is
// deliberately small so the in-memory index can be swapped for a vector
// store without touching the graph.
package content

import (
	"context"

	"github.com/studyarch/tutorflow/core"
)

// Item is one stored piece of study material.
type Item struct {
	ID       string            `json:"id"`
	Title    string            `json:"title"`
	Body     string            `json:"body"`
	Topic    string            `json:"topic,omitempty"`
	Level    string            `json:"level,omitempty"`
	Metadata map[string]string `json:"metadata,omitempty"`
}

// Store indexes study material for retrieval.
type Store interface {
	// Add indexes an item; an empty ID gets one assigned. Returns the id.
	Add(ctx context.Context, item Item) (string, error)
	// Get returns a stored item by id.
	Get(ctx context.Context, id string) (*Item, error)
	// Search returns up to limit references ranked by relevance to query.
	Search(ctx context.Context, query string, limit int) ([]core.ContentRef, error)
	// Delete removes an item.
	Delete(ctx context.Context, id string) error
}
