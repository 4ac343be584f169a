package config

import (
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/hupe1980/negomesh/core"
	"github.com/hupe1980/negomesh/registry"
)

// Scenario is a declarative episode description: which registered environment
// to build, with which parameter overrides, and what to reset it with.
type Scenario struct {
	Name            string         `yaml:"name,omitempty"`
	Env             string         `yaml:"env"`
	Params          map[string]any `yaml:"params,omitempty"`
	Products        []core.Product `yaml:"products"`
	UserRequirement string         `yaml:"user_requirement,omitempty"`
	UserProfile     string         `yaml:"user_profile,omitempty"`
}

// Load reads and parses a scenario file from disk.
func Load(path string) (*Scenario, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open scenario: %w", err)
	}
	defer f.Close()
	return Parse(f)
}

// Parse decodes a scenario from YAML and validates it.
func Parse(r io.Reader) (*Scenario, error) {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)

	var sc Scenario
	if err := dec.Decode(&sc); err != nil {
		return nil, fmt.Errorf("decode scenario: %w", err)
	}
	if err := sc.Validate(); err != nil {
		return nil, err
	}
	return &sc, nil
}

// Validate checks the scenario for structural errors.
func (s *Scenario) Validate() error {
	if s.Env == "" {
		return fmt.Errorf("%w: scenario needs an env id", core.ErrInvalidArgument)
	}
	if len(s.Products) == 0 {
		return fmt.Errorf("%w: scenario needs at least one product", core.ErrInvalidArgument)
	}
	for i, p := range s.Products {
		if err := p.Validate(); err != nil {
			return fmt.Errorf("product %d: %w", i, err)
		}
	}
	return nil
}

// RegistryParams returns the parameter overrides for registry.Make.
func (s *Scenario) RegistryParams() registry.Params {
	if len(s.Params) == 0 {
		return nil
	}
	p := make(registry.Params, len(s.Params))
	for k, v := range s.Params {
		p[k] = v
	}
	return p
}

// ResetOptions converts the scenario's catalog and context into reset options.
func (s *Scenario) ResetOptions() core.ResetOptions {
	return core.ResetOptions{
		Products:        append([]core.Product(nil), s.Products...),
		UserRequirement: s.UserRequirement,
		UserProfile:     s.UserProfile,
	}
}

// Build instantiates the scenario's environment from the given registry (the
// package default when nil).
func (s *Scenario) Build(r *registry.Registry) (core.Episode, error) {
	if r == nil {
		return registry.Make(s.Env, s.RegistryParams())
	}
	return r.Make(s.Env, s.RegistryParams())
}
