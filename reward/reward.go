// Package reward computes the weighted reward decomposition for negotiation
// outcomes. Compute is a pure function: no side effects, deterministic,
// callers may invoke it on every step including non-terminal ones.
package reward

import "github.com/hupe1980/negomesh/core"

// Breakdown is the decomposed reward for one state. The price-derived
// components are exactly zero unless the outcome is a reached deal.
type Breakdown struct {
	BuyerSavings float64 `json:"buyer_savings"`
	SellerProfit float64 `json:"seller_profit"`
	TimeCost     float64 `json:"time_cost"`
	Total        float64 `json:"total"`
}

// Compute maps a terminal or partial state to its weighted reward.
//
//	buyer savings = buyerMax - finalPrice   (0 unless deal)
//	seller profit = finalPrice - sellerMin  (0 unless deal)
//	time cost     = -roundsUsed * w.TimeCost
//	total         = w.BuyerSavings*savings + w.SellerProfit*profit + time cost
//
// Negative weights are permitted; missing weights are zero by construction.
func Compute(outcome core.Outcome, finalPrice, buyerMax, sellerMin float64, roundsUsed int, w core.Weights) Breakdown {
	var b Breakdown
	if outcome == core.OutcomeDealReached {
		b.BuyerSavings = buyerMax - finalPrice
		b.SellerProfit = finalPrice - sellerMin
	}
	b.TimeCost = -float64(roundsUsed) * w.TimeCost
	b.Total = w.BuyerSavings*b.BuyerSavings + w.SellerProfit*b.SellerProfit + b.TimeCost
	return b
}
