// Package logging provides a tiny abstraction over slog so downstream code
// can depend on a minimal interface (Logger) while allowing users to plug
// any structured logger. It also offers a richer NegotiationLogger with
// contextual helpers (episode, component) and domain specific logging
// helpers for rounds, settlements and model calls.
package logging
