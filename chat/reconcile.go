package chat

import "sync"

// Merge appends incoming unless a message with the same id is already present.
// Order is arrival order; timestamps are never used to reorder.
func Merge(current []Message, incoming Message) []Message {
	for _, m := range current {
		if m.ID == incoming.ID {
			return current
		}
	}
	// Full slice expression: never write into spare capacity the caller may share.
	return append(current[:len(current):len(current)], incoming)
}

// Timeline is an indexed, concurrency-safe Merge.
type Timeline struct {
	mu       sync.RWMutex
	messages []Message
	index    map[int64]int
}

func NewTimeline() *Timeline {
	return &Timeline{index: make(map[int64]int)}
}

// Merge reports whether m was new.
func (t *Timeline) Merge(m Message) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.merge(m)
}

// MergeAll merges in order and returns the messages that were new.
func (t *Timeline) MergeAll(batch []Message) []Message {
	t.mu.Lock()
	defer t.mu.Unlock()
	var added []Message
	for _, m := range batch {
		if t.merge(m) {
			added = append(added, m)
		}
	}
	return added
}

func (t *Timeline) merge(m Message) bool {
	// The first copy of an id wins unchanged.
	if _, ok := t.index[m.ID]; ok {
		return false
	}
	t.index[m.ID] = len(t.messages)
	t.messages = append(t.messages, m)
	return true
}

// Snapshot returns a copy of the timeline.
func (t *Timeline) Snapshot() []Message {
	t.mu.RLock()
	defer t.mu.RUnlock()
	out := make([]Message, len(t.messages))
	copy(out, t.messages)
	return out
}

func (t *Timeline) Len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.messages)
}
