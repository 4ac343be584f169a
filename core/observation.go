package core

// Observation is the engine's view of the episode handed to callers after
// reset and every step. ConversationHistory is a defensive copy; mutating it
// does not affect the episode.
type Observation struct {
	ConversationHistory []Turn         `json:"conversation_history"`
	CurrentRound        int            `json:"current_round"`
	SellerPrice         float64        `json:"seller_price"`
	BuyerOffer          *float64       `json:"buyer_offer,omitempty"`
	Products            []Product      `json:"product_info"`
	EnvironmentInfo     map[string]any `json:"environment_info,omitempty"`
	// ActiveSlots lists the participants the environment expects actions
	// from in the next round. Empty once the episode is terminal.
	ActiveSlots []ActionSlot `json:"active_slots,omitempty"`
}

// Info is the diagnostic mapping returned alongside each reset and step.
// Multi-agent compositions populate the winner/current identifiers; Extra is
// the open-ended bag for composition-specific detail.
type Info struct {
	Status        Outcome        `json:"status"`
	SellerPrice   float64        `json:"seller_price"`
	BuyerSavings  float64        `json:"buyer_savings"`
	SellerProfit  float64        `json:"seller_profit"`
	RoundsUsed    int            `json:"rounds_used"`
	WinningSeller *int           `json:"winning_seller,omitempty"`
	WinningBuyer  *int           `json:"winning_buyer,omitempty"`
	CurrentBuyer  *int           `json:"current_buyer,omitempty"`
	Extra         map[string]any `json:"extra,omitempty"`
}
