package transcript

import (
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/hupe1980/negomesh/core"
)

// ErrNotFound is returned by Get for an unknown record id.
var ErrNotFound = errors.New("transcript: record not found")

// Record is the durable summary of one finished episode.
type Record struct {
	ID         string
	Turns      []core.Turn
	Outcome    core.Outcome
	FinalPrice float64
	Reward     float64
	Rounds     int
	Created    time.Time
}

// Clone returns a deep copy of the record.
func (r *Record) Clone() *Record {
	if r == nil {
		return nil
	}
	cp := *r
	cp.Turns = append([]core.Turn(nil), r.Turns...)
	return &cp
}

// Store is the persistence contract for episode records.
type Store interface {
	Save(rec *Record) error
	Get(id string) (*Record, error)
	List() ([]*Record, error)
}

// InMemoryStore is a volatile Store implementation keeping records in a
// process local map.
type InMemoryStore struct {
	mu      sync.RWMutex
	records map[string]*Record
}

var _ Store = (*InMemoryStore)(nil)

// NewInMemoryStore constructs an empty in-memory transcript store.
func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{records: make(map[string]*Record)}
}

// Save stores a clone of the record, overwriting any existing one with the
// same id. A zero Created timestamp is filled in.
func (s *InMemoryStore) Save(rec *Record) error {
	if rec == nil || rec.ID == "" {
		return errors.New("transcript: record needs a non-empty id")
	}
	cp := rec.Clone()
	if cp.Created.IsZero() {
		cp.Created = time.Now()
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records[cp.ID] = cp
	return nil
}

// Get returns a clone of the record with the given id.
func (s *InMemoryStore) Get(id string) (*Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rec, ok := s.records[id]
	if !ok {
		return nil, ErrNotFound
	}
	return rec.Clone(), nil
}

// List returns clones of all records ordered by creation time, oldest first.
func (s *InMemoryStore) List() ([]*Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*Record, 0, len(s.records))
	for _, rec := range s.records {
		out = append(out, rec.Clone())
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Created.Equal(out[j].Created) {
			return out[i].ID < out[j].ID
		}
		return out[i].Created.Before(out[j].Created)
	})
	return out, nil
}
