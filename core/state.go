package core

import "time"

// Intent is the classification of a student message. It is produced by the
// intent node and drives routing predicates.
type Intent string

const (
	// IntentUnknown means classification has not happened yet.
	IntentUnknown Intent = ""
	// IntentExplain requests an explanation of a concept.
	IntentExplain Intent = "explain"
	// IntentPractice requests practice questions on a topic.
	IntentPractice Intent = "practice"
	// IntentPlan requests a study plan for a learning goal.
	IntentPlan Intent = "plan"
	// IntentGeneral is the catch-all for open tutoring conversation.
	IntentGeneral Intent = "general"
)

// Difficulty levels, promoted/demoted by AdaptDifficulty.
const (
	DifficultyBeginner     = "beginner"
	DifficultyIntermediate = "intermediate"
	DifficultyAdvanced     = "advanced"
)

// HistoryEntry is one immutable record in the conversation arena. Index is
// stable for the lifetime of the session.
type HistoryEntry struct {
	Index     int       `json:"index"`
	Role      string    `json:"role"`
	Text      string    `json:"text"`
	Node      string    `json:"node,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// History is an append-only log of conversation entries with stable indices.
// Readers take slices by index range instead of copying the whole log, which
// bounds per-node state-copy cost. Append is only ever called by the node
// currently executing, so no locking is needed: at most one node runs per
// run, and at most one run owns a state value.
type History struct {
	Entries []HistoryEntry `json:"entries"`
}

// Append adds an entry and returns its stable index.
func (h *History) Append(role, text, node string) int {
	idx := len(h.Entries)
	h.Entries = append(h.Entries, HistoryEntry{
		Index:     idx,
		Role:      role,
		Text:      text,
		Node:      node,
		Timestamp: time.Now().UTC(),
	})
	return idx
}

// Len returns the number of entries.
func (h *History) Len() int { return len(h.Entries) }

// Slice returns a copy of entries in [from, to). Out-of-range bounds are
// clamped; an inverted range yields an empty slice.
func (h *History) Slice(from, to int) []HistoryEntry {
	if from < 0 {
		from = 0
	}
	if to > len(h.Entries) {
		to = len(h.Entries)
	}
	if from >= to {
		return []HistoryEntry{}
	}
	out := make([]HistoryEntry, to-from)
	copy(out, h.Entries[from:to])
	return out
}

// Tail returns a copy of the last n entries.
func (h *History) Tail(n int) []HistoryEntry {
	return h.Slice(len(h.Entries)-n, len(h.Entries))
}

// Messages converts an entry range into provider messages, skipping
// non-conversational roles.
func (h *History) Messages(from, to int) []Message {
	entries := h.Slice(from, to)
	msgs := make([]Message, 0, len(entries))
	for _, e := range entries {
		if e.Role != RoleUser && e.Role != RoleAssistant {
			continue
		}
		msgs = append(msgs, Message{Role: e.Role, Text: e.Text})
	}
	return msgs
}

// ContentRef points at stored study material relevant to the current topic.
type ContentRef struct {
	ID    string  `json:"id"`
	Title string  `json:"title,omitempty"`
	Score float64 `json:"score,omitempty"`
}

// TutorState is the payload threaded through graph nodes. It is mutated only
// by the node currently executing; nodes receive a clone and return it, so a
// superseded run can never corrupt the state a newer run observes. The
// History arena is shared across clones within a run (append-only, strictly
// sequential execution), while all other fields are copied.
type TutorState struct {
	Topic         string            `json:"topic,omitempty"`
	Intent        Intent            `json:"intent,omitempty"`
	Difficulty    string            `json:"difficulty,omitempty"`
	LearningStyle string            `json:"learning_style,omitempty"`
	ContentRefs   []ContentRef      `json:"content_refs,omitempty"`
	Artifacts     map[string]string `json:"artifacts,omitempty"`
	Goals         []string          `json:"goals,omitempty"`
	Completed     []string          `json:"completed,omitempty"`
	History       *History          `json:"history"`
}

// NewTutorState constructs a state with an empty history arena and
// intermediate difficulty, matching a fresh session.
func NewTutorState() *TutorState {
	return &TutorState{
		Difficulty: DifficultyIntermediate,
		Artifacts:  map[string]string{},
		History:    &History{},
	}
}

// Clone returns a copy safe for the next node to mutate. The history arena
// is shared (append-only); slices and maps are deep-copied.
func (s *TutorState) Clone() *TutorState {
	c := &TutorState{
		Topic:         s.Topic,
		Intent:        s.Intent,
		Difficulty:    s.Difficulty,
		LearningStyle: s.LearningStyle,
		ContentRefs:   make([]ContentRef, len(s.ContentRefs)),
		Artifacts:     make(map[string]string, len(s.Artifacts)),
		Goals:         append([]string(nil), s.Goals...),
		Completed:     append([]string(nil), s.Completed...),
		History:       s.History,
	}
	copy(c.ContentRefs, s.ContentRefs)
	for k, v := range s.Artifacts {
		c.Artifacts[k] = v
	}
	if c.History == nil {
		c.History = &History{}
	}
	return c
}

// AdaptDifficulty adjusts the difficulty level from a performance score in
// [0, 1]: scores of 0.9 and above promote one level, below 0.5 demote one.
func (s *TutorState) AdaptDifficulty(score float64) {
	switch {
	case score >= 0.9:
		if s.Difficulty == DifficultyBeginner {
			s.Difficulty = DifficultyIntermediate
		} else if s.Difficulty == DifficultyIntermediate {
			s.Difficulty = DifficultyAdvanced
		}
	case score < 0.5:
		if s.Difficulty == DifficultyAdvanced {
			s.Difficulty = DifficultyIntermediate
		} else if s.Difficulty == DifficultyIntermediate {
			s.Difficulty = DifficultyBeginner
		}
	}
}
