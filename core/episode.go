package core

import "io"

// Action is one participant's contribution to a round. Product may be empty
// when the episode negotiates a single product.
type Action struct {
	Role        Role
	Participant int
	Product     string
	Content     string
}

// Actions is the full action set for one Step call. Environments validate
// that it matches the active participant slots exactly.
type Actions []Action

// ActionSlot names a participant the environment expects an action from in
// the current round.
type ActionSlot struct {
	Role        Role   `json:"role"`
	Participant int    `json:"participant"`
	Product     string `json:"product,omitempty"`
}

// ResetOptions carries the reset-time overrides an episode accepts. The
// product set is mandatory; requirement and profile are free-form context
// surfaced to agent collaborators through the observation.
type ResetOptions struct {
	Products        []Product
	UserRequirement string
	UserProfile     string
}

// StepResult bundles everything a Step call returns. Exactly one of
// Terminated and Truncated is true on the terminal step; both are false
// while the episode is ongoing.
type StepResult struct {
	Observation Observation
	Reward      float64
	Terminated  bool
	Truncated   bool
	Info        Info
}

// Episode is the uniform episodic interface every environment composition
// implements. Step consumes already-produced action strings; invoking agent
// response generation is the caller's responsibility (see runner).
type Episode interface {
	// Reset initializes a fresh negotiation. It fails with ErrInvalidArgument
	// if no product is supplied.
	Reset(opts ResetOptions) (Observation, Info, error)

	// Step folds one round of actions into the state, evaluates termination
	// and computes the reward. It fails with ErrInvalidState on a terminated
	// or unreset episode and with ErrInvalidArgument on an action set that
	// does not match the active participants. A failed call leaves the
	// episode unchanged.
	Step(actions Actions) (StepResult, error)

	// Render writes a human-readable projection of the current state. It
	// never mutates the episode.
	Render(w io.Writer) error

	// Close releases engine-held resources. It is idempotent.
	Close() error
}
