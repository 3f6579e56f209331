package chat

import (
	"iter"

	"github.com/KMohnishM/Deep-Shiva/internal/model/chat"
)

// Memory is the ordered turn log of one conversation. It is not safe for
// concurrent use; the owning Conversation serializes access.
type Memory struct {
	turns    []chat.Turn
	maxTurns int
}

// NewMemory returns an empty log. maxTurns > 0 caps the retained turns; odd
// caps are rounded up so the last exchange is always kept whole.
func NewMemory(maxTurns int) *Memory {
	if maxTurns < 0 {
		maxTurns = 0
	}
	if maxTurns%2 == 1 {
		maxTurns++
	}
	return &Memory{maxTurns: maxTurns}
}

// Append adds turns at the end and returns how many old turns were evicted.
// Eviction drops whole user/assistant pairs so the retained log still starts
// with a user turn.
func (m *Memory) Append(turns ...chat.Turn) int {
	m.turns = append(m.turns, turns...)

	if m.maxTurns == 0 || len(m.turns) <= m.maxTurns {
		return 0
	}

	drop := len(m.turns) - m.maxTurns
	if drop%2 == 1 {
		drop++
	}
	if drop > len(m.turns) {
		drop = len(m.turns)
	}
	m.turns = append([]chat.Turn(nil), m.turns[drop:]...)
	return drop
}

// Context yields every turn in insertion order. The sequence can be ranged
// over any number of times and reflects the log as it was when Context was called.
func (m *Memory) Context() iter.Seq[chat.Turn] {
	view := m.turns
	return func(yield func(chat.Turn) bool) {
		for _, turn := range view {
			if !yield(turn) {
				return
			}
		}
	}
}

// Len returns the number of retained turns.
func (m *Memory) Len() int {
	return len(m.turns)
}

// Snapshot returns a copy of the retained turns.
func (m *Memory) Snapshot() []chat.Turn {
	copied := make([]chat.Turn, len(m.turns))
	copy(copied, m.turns)
	return copied
}

// Clear drops every turn.
func (m *Memory) Clear() {
	m.turns = nil
}
