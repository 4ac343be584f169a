// Package negomesh provides a high-level façade over the negotiation engine:
// environment registry, episode runner and transcript persistence. Most
// applications interact with this package by:
//  1. Creating a NegoMesh via New() (optionally overriding the registry,
//     transcript store or logger)
//  2. Building an environment from a registered id (Make) or a YAML scenario
//  3. Attaching Responders per participant and driving the episode to
//     completion with RunEpisode
//
// The façade delegates the episodic mechanics to env/runner while keeping
// setup ergonomics concise. All defaults are safe for local development and
// testing.
package negomesh

import (
	"context"
	"iter"

	"github.com/hupe1980/negomesh/config"
	"github.com/hupe1980/negomesh/core"
	"github.com/hupe1980/negomesh/logging"
	"github.com/hupe1980/negomesh/registry"
	"github.com/hupe1980/negomesh/runner"
	"github.com/hupe1980/negomesh/transcript"
)

// Options configures the NegoMesh instance.
type Options struct {
	// Registry resolves environment ids. Defaults to the package-level
	// registry with the built-in environments registered.
	Registry *registry.Registry

	// Transcripts receives a record for every finished episode. Defaults to
	// an in-memory store.
	Transcripts transcript.Store

	// Concurrent fans responder calls out per active participant.
	Concurrent bool

	// Logger (defaults to NoOp logger if nil).
	Logger logging.Logger
}

// NegoMesh is the high-level façade aggregating registry, runner and stores.
type NegoMesh struct {
	opts Options
}

// New creates a new NegoMesh instance with optional overrides.
func New(optFns ...func(o *Options)) *NegoMesh {
	opts := Options{
		Registry:    registry.Default,
		Transcripts: transcript.NewInMemoryStore(),
		Logger:      logging.NoOpLogger{},
	}

	for _, fn := range optFns {
		fn(&opts)
	}
	if opts.Registry == nil {
		opts.Registry = registry.Default
	}
	if opts.Logger == nil {
		opts.Logger = logging.NoOpLogger{}
	}

	return &NegoMesh{opts: opts}
}

// Register adds an environment factory under the given id.
func (m *NegoMesh) Register(id string, factory registry.Factory, optFns ...func(o *registry.RegisterOptions)) error {
	return m.opts.Registry.Register(id, factory, optFns...)
}

// Make builds a registered environment with parameter overrides.
func (m *NegoMesh) Make(id string, overrides registry.Params) (core.Episode, error) {
	return m.opts.Registry.Make(id, overrides)
}

// List yields the registered environment ids in registration order.
func (m *NegoMesh) List() iter.Seq[string] {
	return m.opts.Registry.List()
}

// Transcripts exposes the store finished episodes are written to.
func (m *NegoMesh) Transcripts() transcript.Store {
	return m.opts.Transcripts
}

// RunEpisode drives the environment to completion with the given responders.
// It is the synchronous one-call helper for the common case.
func (m *NegoMesh) RunEpisode(
	ctx context.Context,
	episode core.Episode,
	buyers map[int]core.Responder,
	sellers map[int]core.Responder,
	resetOpts core.ResetOptions,
) (*runner.Summary, error) {
	r, err := runner.New(episode, buyers, sellers, func(o *runner.Options) {
		o.Concurrent = m.opts.Concurrent
		o.Logger = m.opts.Logger
		o.Transcripts = m.opts.Transcripts
	})
	if err != nil {
		return nil, err
	}
	return r.Run(ctx, resetOpts)
}

// RunScenario loads nothing itself; it builds the scenario's environment from
// the façade's registry and runs it with the given responders.
func (m *NegoMesh) RunScenario(
	ctx context.Context,
	sc *config.Scenario,
	buyers map[int]core.Responder,
	sellers map[int]core.Responder,
) (*runner.Summary, error) {
	episode, err := sc.Build(m.opts.Registry)
	if err != nil {
		return nil, err
	}
	defer episode.Close()
	return m.RunEpisode(ctx, episode, buyers, sellers, sc.ResetOptions())
}
