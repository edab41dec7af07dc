package content

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/google/uuid"

	"github.com/studyarch/tutorflow/core"
)

// InMemoryStore is a naive process-local Store.
//
// Concurrency: protected by RWMutex.
// Search: linear scan with case-insensitive token matching; the score is the
// fraction of query tokens found in the item's title, topic or body.
// Suitable for tests and demos; swap for a vector index for production
// retrieval.
type InMemoryStore struct {
	mu    sync.RWMutex
	items map[string]Item
}

// NewInMemoryStore creates an empty in-memory content store.
func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{items: make(map[string]Item)}
}

// Add indexes an item, assigning an id when missing.
func (s *InMemoryStore) Add(_ context.Context, item Item) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if item.ID == "" {
		item.ID = uuid.NewString()
	}
	s.items[item.ID] = item
	return item.ID, nil
}

// Get returns a stored item by id.
func (s *InMemoryStore) Get(_ context.Context, id string) (*Item, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	item, ok := s.items[id]
	if !ok {
		return nil, fmt.Errorf("content item %q not found", id)
	}
	return &item, nil
}

// Search scores every item against the query tokens and returns the best
// matches, highest score first with id as tiebreak for determinism.
func (s *InMemoryStore) Search(_ context.Context, query string, limit int) ([]core.ContentRef, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if limit <= 0 {
		limit = 5
	}
	tokens := strings.Fields(strings.ToLower(query))

	refs := make([]core.ContentRef, 0, limit)
	for _, item := range s.items {
		score := scoreItem(item, tokens)
		if score <= 0 {
			continue
		}
		refs = append(refs, core.ContentRef{ID: item.ID, Title: item.Title, Score: score})
	}
	sort.Slice(refs, func(i, j int) bool {
		if refs[i].Score != refs[j].Score {
			return refs[i].Score > refs[j].Score
		}
		return refs[i].ID < refs[j].ID
	})
	if len(refs) > limit {
		refs = refs[:limit]
	}
	return refs, nil
}

func scoreItem(item Item, tokens []string) float64 {
	if len(tokens) == 0 {
		return 1.0
	}
	haystack := strings.ToLower(item.Title + " " + item.Topic + " " + item.Body)
	hits := 0
	for _, tok := range tokens {
		if strings.Contains(haystack, tok) {
			hits++
		}
	}
	return float64(hits) / float64(len(tokens))
}

// Delete removes an item by id.
func (s *InMemoryStore) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.items[id]; !ok {
		return fmt.Errorf("content item %q not found", id)
	}
	delete(s.items, id)
	return nil
}
