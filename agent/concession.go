package agent

import (
	"context"
	"fmt"

	"github.com/hupe1980/negomesh/core"
)

// ConcessionBuyer opens low and raises its offer by a fixed increment each
// round, capped at Max. It walks away once the cap is reached and the seller
// still asks more than the cap.
type ConcessionBuyer struct {
	// Open is the first offer.
	Open float64
	// Max is the buyer's ceiling.
	Max float64
	// Increment is added to the offer every round.
	Increment float64
}

var _ core.Responder = (*ConcessionBuyer)(nil)

// Respond implements core.Responder.
func (b *ConcessionBuyer) Respond(ctx context.Context, _ []core.Turn, obs core.Observation) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	offer := b.Open + b.Increment*float64(obs.CurrentRound)
	if offer >= b.Max {
		offer = b.Max
		if obs.SellerPrice > b.Max {
			return fmt.Sprintf("That is above my budget, no deal. My final offer was $%.2f.", b.Max), nil
		}
	}
	// Accept a favorable ask outright.
	if obs.SellerPrice <= offer {
		offer = obs.SellerPrice
	}
	return fmt.Sprintf("I can offer $%.2f.", offer), nil
}

// ConcessionSeller opens at the list price and lowers its ask by a fixed
// decrement each round, floored at Min.
type ConcessionSeller struct {
	// Min is the seller's floor.
	Min float64
	// Decrement is subtracted from the ask every round.
	Decrement float64
}

var _ core.Responder = (*ConcessionSeller)(nil)

// Respond implements core.Responder.
func (s *ConcessionSeller) Respond(ctx context.Context, _ []core.Turn, obs core.Observation) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	ask := obs.SellerPrice - s.Decrement
	if ask < s.Min {
		ask = s.Min
	}
	// Meet a buyer offer at or above the floor.
	if obs.BuyerOffer != nil && *obs.BuyerOffer >= s.Min && *obs.BuyerOffer <= obs.SellerPrice && *obs.BuyerOffer >= ask {
		ask = *obs.BuyerOffer
	}
	return fmt.Sprintf("I can do $%.2f.", ask), nil
}
