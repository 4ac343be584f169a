package core

import "fmt"

// Product describes one negotiable item. Products are immutable after an
// episode reset. Fields the engine reads are typed; genuinely open-ended
// metadata goes into Attrs.
type Product struct {
	ID        string         `json:"id" yaml:"id"`
	Name      string         `json:"name" yaml:"name"`
	ListPrice float64        `json:"list_price" yaml:"list_price"`
	Features  []string       `json:"features,omitempty" yaml:"features,omitempty"`
	Attrs     map[string]any `json:"attrs,omitempty" yaml:"attrs,omitempty"`
}

// Validate reports whether the product is usable as episode input.
func (p Product) Validate() error {
	if p.ID == "" {
		return fmt.Errorf("%w: product id must not be empty", ErrInvalidArgument)
	}
	if p.ListPrice < 0 {
		return fmt.Errorf("%w: product %s list price must be non-negative, got %v", ErrInvalidArgument, p.ID, p.ListPrice)
	}
	return nil
}
