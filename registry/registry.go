// Package registry maps environment identifiers to factory functions and
// default configuration, gym-style. A process-wide Default registry is
// populated with the built-in negotiation environments at init time, before
// any user Register call; it is never auto-cleared.
package registry

import (
	"errors"
	"fmt"
	"iter"
	"regexp"
	"sync"

	"github.com/hupe1980/negomesh/core"
)

var (
	// ErrDuplicateID is returned when registering an id that already exists.
	ErrDuplicateID = errors.New("environment id already registered")
	// ErrUnknownID is returned when making an id that was never registered.
	ErrUnknownID = errors.New("unknown environment id")
)

// Environment identifiers follow {Task}_{description}-v{int}.
var idPattern = regexp.MustCompile(`^[A-Za-z][A-Za-z0-9]*_[A-Za-z0-9_]+-v[0-9]+$`)

// Params is the free-form keyword configuration merged from registered
// defaults and Make-time overrides.
type Params map[string]any

// Float reads a numeric parameter, accepting float64 and integer values.
func (p Params) Float(key string) (float64, bool) {
	switch v := p[key].(type) {
	case float64:
		return v, true
	case float32:
		return float64(v), true
	case int:
		return float64(v), true
	case int64:
		return float64(v), true
	default:
		return 0, false
	}
}

// Int reads an integer parameter, accepting int and float64 values.
func (p Params) Int(key string) (int, bool) {
	switch v := p[key].(type) {
	case int:
		return v, true
	case int64:
		return int(v), true
	case float64:
		return int(v), true
	default:
		return 0, false
	}
}

// String reads a string parameter.
func (p Params) String(key string) (string, bool) {
	v, ok := p[key].(string)
	return v, ok
}

// Clone returns a shallow copy.
func (p Params) Clone() Params {
	c := make(Params, len(p))
	for k, v := range p {
		c[k] = v
	}
	return c
}

// Factory constructs an episode from merged params.
type Factory func(p Params) (core.Episode, error)

// RegisterOptions carries the optional registration arguments.
type RegisterOptions struct {
	// Defaults is the keyword configuration merged under Make-time overrides.
	Defaults Params
	// MaxEpisodeSteps, when positive, caps the round budget: it is injected
	// as max_rounds unless the merged params already carry one.
	MaxEpisodeSteps int
}

type entry struct {
	factory         Factory
	defaults        Params
	maxEpisodeSteps int
}

// Registry is a mapping from environment id to factory and defaults. It is
// safe for concurrent use. Tests should work on their own instance (New) or
// snapshot the Default registry to avoid cross-test leakage.
type Registry struct {
	mu      sync.RWMutex
	entries map[string]*entry
	order   []string
}

// New constructs an empty registry.
func New() *Registry {
	return &Registry{entries: map[string]*entry{}}
}

// Register adds an environment factory under the given id. It fails with
// ErrDuplicateID if the id is already present and with ErrInvalidArgument on
// a malformed id or nil factory.
func (r *Registry) Register(id string, factory Factory, optFns ...func(o *RegisterOptions)) error {
	if !idPattern.MatchString(id) {
		return fmt.Errorf("%w: environment id %q does not match {Task}_{description}-v{int}", core.ErrInvalidArgument, id)
	}
	if factory == nil {
		return fmt.Errorf("%w: factory must not be nil", core.ErrInvalidArgument)
	}

	opts := RegisterOptions{}
	for _, fn := range optFns {
		fn(&opts)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.entries[id]; exists {
		return fmt.Errorf("%w: %s", ErrDuplicateID, id)
	}
	r.entries[id] = &entry{factory: factory, defaults: opts.Defaults.Clone(), maxEpisodeSteps: opts.MaxEpisodeSteps}
	r.order = append(r.order, id)
	return nil
}

// Make instantiates the environment registered under id, merging overrides
// over the registered defaults. It fails with ErrUnknownID for an absent id.
func (r *Registry) Make(id string, overrides Params) (core.Episode, error) {
	r.mu.RLock()
	e, ok := r.entries[id]
	r.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownID, id)
	}

	merged := e.defaults.Clone()
	for k, v := range overrides {
		merged[k] = v
	}
	if e.maxEpisodeSteps > 0 {
		if _, ok := merged["max_rounds"]; !ok {
			merged["max_rounds"] = e.maxEpisodeSteps
		}
	}
	return e.factory(merged)
}

// List produces a lazy, restartable sequence of registered ids in
// registration order.
func (r *Registry) List() iter.Seq[string] {
	return func(yield func(string) bool) {
		r.mu.RLock()
		ids := append([]string(nil), r.order...)
		r.mu.RUnlock()
		for _, id := range ids {
			if !yield(id) {
				return
			}
		}
	}
}

// Snapshot returns an independent copy of the registry, useful for tests
// that register temporary environments.
func (r *Registry) Snapshot() *Registry {
	r.mu.RLock()
	defer r.mu.RUnlock()
	c := New()
	for id, e := range r.entries {
		c.entries[id] = &entry{factory: e.factory, defaults: e.defaults.Clone(), maxEpisodeSteps: e.maxEpisodeSteps}
	}
	c.order = append([]string(nil), r.order...)
	return c
}

// Default is the process-wide registry. Built-ins are registered before any
// user Register call; there is no implicit teardown.
var Default = New()

// Register adds an environment factory to the Default registry.
func Register(id string, factory Factory, optFns ...func(o *RegisterOptions)) error {
	return Default.Register(id, factory, optFns...)
}

// Make instantiates an environment from the Default registry.
func Make(id string, overrides Params) (core.Episode, error) {
	return Default.Make(id, overrides)
}

// List sequences the Default registry's ids in registration order.
func List() iter.Seq[string] {
	return Default.List()
}
