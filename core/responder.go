package core

import "context"

// Responder is the agent collaborator contract. The engine never calls it;
// the caller (typically runner.Runner) invokes each participant's Responder
// once per round and feeds the produced texts into Episode.Step.
type Responder interface {
	Respond(ctx context.Context, history []Turn, obs Observation) (string, error)
}

// ResponderFunc adapts a plain function to the Responder interface.
type ResponderFunc func(ctx context.Context, history []Turn, obs Observation) (string, error)

// Respond implements Responder.
func (f ResponderFunc) Respond(ctx context.Context, history []Turn, obs Observation) (string, error) {
	return f(ctx, history, obs)
}

// PriceExtractor parses a numeric offer out of free-form action text. The
// second return is false when no price could be extracted; the engine then
// leaves the prior offer/ask unchanged rather than failing, since
// natural-language parsing is inherently lossy.
type PriceExtractor func(text string) (float64, bool)

// RejectionClassifier reports whether action text is an explicit walk-away.
// Classification is collaborator-supplied, not part of the engine core.
type RejectionClassifier func(text string) bool
