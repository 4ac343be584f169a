package agent

import (
	"context"
	"sync"

	"github.com/hupe1980/negomesh/core"
)

// Scripted replays a fixed sequence of lines, one per Respond call, and
// sticks at the last line once the script is exhausted. Deterministic and
// handy for tests and examples.
type Scripted struct {
	mu    sync.Mutex
	lines []string
	next  int
}

var _ core.Responder = (*Scripted)(nil)

// NewScripted constructs a scripted responder from the given lines.
func NewScripted(lines ...string) *Scripted {
	return &Scripted{lines: append([]string(nil), lines...)}
}

// Respond implements core.Responder.
func (s *Scripted) Respond(ctx context.Context, _ []core.Turn, _ core.Observation) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.lines) == 0 {
		return "", nil
	}
	line := s.lines[s.next]
	if s.next < len(s.lines)-1 {
		s.next++
	}
	return line, nil
}
