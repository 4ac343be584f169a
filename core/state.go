package core

// PairKey identifies one (buyer, seller, product) negotiation lane.
type PairKey struct {
	Buyer   int
	Seller  int
	Product string
}

// PairState is the mutable record of one lane. AskingPrice is monotonically
// non-increasing over the episode; a parsed seller ask above the current ask
// is ignored rather than adopted. LastOffer stays nil until a buyer offer is
// successfully extracted.
type PairState struct {
	AskingPrice float64
	LastOffer   *float64
	Round       int
	Outcome     Outcome
	FinalPrice  float64
}

// FoldOffer records a newly extracted buyer offer.
func (p *PairState) FoldOffer(offer float64) {
	v := offer
	p.LastOffer = &v
}

// FoldAsk records a newly extracted seller ask, keeping the ask monotone
// non-increasing.
func (p *PairState) FoldAsk(ask float64) {
	if ask <= p.AskingPrice {
		p.AskingPrice = ask
	}
}

// State is the mutable per-episode negotiation record shared by all
// environment compositions. Round is the global round counter; each lane
// additionally tracks its own round for sequential and per-product budgets.
type State struct {
	Round    int
	Products []Product
	Buyers   []int
	Sellers  []int
	Pairs    map[PairKey]*PairState
}

// NewState initializes lanes for the full cross product of buyers, sellers
// and products, each asking at the product's list price, all outstanding.
func NewState(products []Product, buyers, sellers []int) *State {
	s := &State{
		Products: products,
		Buyers:   buyers,
		Sellers:  sellers,
		Pairs:    make(map[PairKey]*PairState, len(buyers)*len(sellers)*len(products)),
	}
	for _, p := range products {
		for _, b := range buyers {
			for _, sl := range sellers {
				s.Pairs[PairKey{Buyer: b, Seller: sl, Product: p.ID}] = &PairState{
					AskingPrice: p.ListPrice,
					Outcome:     OutcomeOngoing,
				}
			}
		}
	}
	return s
}

// Outstanding returns the keys of all unresolved lanes in deterministic
// order (product catalog order, ascending buyer id, ascending seller id).
func (s *State) Outstanding() []PairKey {
	keys := make([]PairKey, 0, len(s.Pairs))
	for _, p := range s.Products {
		for _, b := range s.Buyers {
			for _, sl := range s.Sellers {
				k := PairKey{Buyer: b, Seller: sl, Product: p.ID}
				if ps, ok := s.Pairs[k]; ok && ps.Outcome == OutcomeOngoing {
					keys = append(keys, k)
				}
			}
		}
	}
	return keys
}

// OutstandingProducts returns ids of products with at least one unresolved lane.
func (s *State) OutstandingProducts() []string {
	var ids []string
	for _, p := range s.Products {
		for _, k := range s.Outstanding() {
			if k.Product == p.ID {
				ids = append(ids, p.ID)
				break
			}
		}
	}
	return ids
}
