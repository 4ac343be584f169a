package core

import (
	"fmt"
	"sync"
)

// Conversation is the append-only ordered record of dialogue turns for one
// episode. Insertion order is chronological order; within a round the engine
// appends buyer turns before seller turns, ascending participant id.
//
// Contract:
//   - Append is O(1) and never fails
//   - History and Recent return defensive copies to avoid external mutation
type Conversation struct {
	mu    sync.RWMutex
	turns []Turn
}

// NewConversation constructs an empty conversation log.
func NewConversation() *Conversation { return &Conversation{} }

// Append adds a turn to the end of the log.
func (c *Conversation) Append(t Turn) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.turns = append(c.turns, t)
}

// Len returns the number of recorded turns.
func (c *Conversation) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.turns)
}

// History returns a copy of the full ordered turn sequence.
func (c *Conversation) History() []Turn {
	c.mu.RLock()
	defer c.mu.RUnlock()
	turns := make([]Turn, len(c.turns))
	copy(turns, c.turns)
	return turns
}

// Recent returns the last min(n, Len()) turns in original order. A negative
// n fails with ErrInvalidArgument.
func (c *Conversation) Recent(n int) ([]Turn, error) {
	if n < 0 {
		return nil, fmt.Errorf("%w: recent count must be non-negative, got %d", ErrInvalidArgument, n)
	}
	c.mu.RLock()
	defer c.mu.RUnlock()
	if n > len(c.turns) {
		n = len(c.turns)
	}
	turns := make([]Turn, n)
	copy(turns, c.turns[len(c.turns)-n:])
	return turns, nil
}
