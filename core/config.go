package core

import "fmt"

// SchedulingMode selects how a multi-participant coordinator advances.
type SchedulingMode string

const (
	// ModeParallel folds every active participant's action into the same round.
	ModeParallel SchedulingMode = "parallel"
	// ModeSequential runs one participant's full sub-negotiation before the next begins.
	ModeSequential SchedulingMode = "sequential"
)

// Weights scales the reward components. Missing weights default to zero;
// negative weights are permitted and deliberately not validated.
type Weights struct {
	BuyerSavings float64 `json:"buyer_savings" yaml:"buyer_savings"`
	SellerProfit float64 `json:"seller_profit" yaml:"seller_profit"`
	TimeCost     float64 `json:"time_cost" yaml:"time_cost"`
}

// DefaultWeights balances both sides with a mild time penalty.
var DefaultWeights = Weights{BuyerSavings: 1, SellerProfit: 1, TimeCost: 0.1}

// Config is the immutable per-episode configuration. It is fixed at
// construction; reset-time overrides are limited to the product set, user
// requirement and user profile (see ResetOptions).
type Config struct {
	// MaxRounds is the global round budget.
	MaxRounds int `json:"max_rounds" yaml:"max_rounds"`
	// MaxRoundsPerProduct bounds each product slice in multi-product
	// episodes. Zero means inherit MaxRounds.
	MaxRoundsPerProduct int `json:"max_rounds_per_product" yaml:"max_rounds_per_product"`
	// PriceTolerance is the maximum ask/offer gap still counted as agreement.
	PriceTolerance float64 `json:"price_tolerance" yaml:"price_tolerance"`
	// Weights scale the reward components.
	Weights Weights `json:"reward_weights" yaml:"reward_weights"`
	// Mode selects parallel or sequential coordination.
	Mode SchedulingMode `json:"scheduling_mode" yaml:"scheduling_mode"`
}

// DefaultConfig provides safe defaults for development and tests.
var DefaultConfig = Config{
	MaxRounds:      10,
	PriceTolerance: 0,
	Weights:        DefaultWeights,
	Mode:           ModeParallel,
}

// Validate checks the construction-time invariants.
func (c Config) Validate() error {
	if c.MaxRounds <= 0 {
		return fmt.Errorf("%w: max rounds must be positive, got %d", ErrInvalidArgument, c.MaxRounds)
	}
	if c.MaxRoundsPerProduct < 0 {
		return fmt.Errorf("%w: per-product round budget must be non-negative, got %d", ErrInvalidArgument, c.MaxRoundsPerProduct)
	}
	if c.PriceTolerance < 0 {
		return fmt.Errorf("%w: price tolerance must be non-negative, got %v", ErrInvalidArgument, c.PriceTolerance)
	}
	switch c.Mode {
	case ModeParallel, ModeSequential, "":
	default:
		return fmt.Errorf("%w: unknown scheduling mode %q", ErrInvalidArgument, c.Mode)
	}
	return nil
}
