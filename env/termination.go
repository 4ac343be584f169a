package env

import (
	"math"

	"github.com/hupe1980/negomesh/core"
)

// decision is the outcome of one termination policy evaluation.
type decision struct {
	outcome    core.Outcome
	finalPrice float64
}

// evaluate applies the termination policy to one negotiation lane after the
// round's actions have been folded into its state. First match wins:
//
//  1. round budget exhausted               -> truncated
//  2. buyer walk-away                      -> buyer_rejected
//  3. seller walk-away                     -> seller_rejected
//  4. |ask - offer| <= tolerance           -> deal_reached (final = ask)
//  5. otherwise                            -> ongoing
//
// The settlement price is always the seller's stated number so the final
// price stays well-defined when the tolerance is non-zero.
func evaluate(ps *core.PairState, buyerText, sellerText string, maxRounds int, tolerance float64, isRejection core.RejectionClassifier) decision {
	if ps.Round+1 >= maxRounds {
		return decision{outcome: core.OutcomeTruncated}
	}
	if isRejection(buyerText) {
		return decision{outcome: core.OutcomeBuyerRejected}
	}
	if isRejection(sellerText) {
		return decision{outcome: core.OutcomeSellerRejected}
	}
	if ps.LastOffer != nil && math.Abs(ps.AskingPrice-*ps.LastOffer) <= tolerance {
		return decision{outcome: core.OutcomeDealReached, finalPrice: ps.AskingPrice}
	}
	return decision{outcome: core.OutcomeOngoing}
}
