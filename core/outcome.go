package core

// Outcome classifies an episode or a single negotiation lane. All values
// except OutcomeOngoing are terminal: once set, the episode accepts no
// further Step calls.
type Outcome string

const (
	// OutcomeOngoing means the negotiation has not yet resolved.
	OutcomeOngoing Outcome = "ongoing"
	// OutcomeDealReached means ask and offer converged within the price tolerance.
	OutcomeDealReached Outcome = "deal_reached"
	// OutcomeNoDeal means the negotiation resolved without a deal and without
	// a single attributable rejection (losing lanes in competitive episodes,
	// mixed rejections at the episode level).
	OutcomeNoDeal Outcome = "no_deal"
	// OutcomeBuyerRejected means the buyer explicitly walked away.
	OutcomeBuyerRejected Outcome = "buyer_rejected"
	// OutcomeSellerRejected means the seller explicitly walked away.
	OutcomeSellerRejected Outcome = "seller_rejected"
	// OutcomeTruncated means the round budget was exhausted before resolution.
	OutcomeTruncated Outcome = "truncated"
)

// Terminal reports whether the outcome admits no further steps.
func (o Outcome) Terminal() bool { return o != OutcomeOngoing }

// Terminated reports whether the outcome counts as a natural termination
// (everything terminal except truncation).
func (o Outcome) Terminated() bool { return o.Terminal() && o != OutcomeTruncated }
