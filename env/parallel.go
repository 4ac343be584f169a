package env

import (
	"fmt"
	"io"
	"sort"

	"github.com/hupe1980/negomesh/core"
	"github.com/hupe1980/negomesh/logging"
	"github.com/hupe1980/negomesh/reward"
)

// Coordinator generalizes the single-pair machine to N buyers and M sellers
// under parallel scheduling: every active participant supplies an action in
// the same round and the termination policy is evaluated independently per
// outstanding (buyer, seller, product) lane. The round advances globally
// only after all active lanes have been evaluated.
type Coordinator struct {
	cfg       core.Config
	buyerMax  []float64
	sellerMin []float64
	extract   core.PriceExtractor
	classify  core.RejectionClassifier
	logger    logging.Logger
	extraEnv  map[string]any

	episodeID string
	conv      *core.Conversation
	state     *core.State
	product   core.Product
	status    core.Outcome
	started   bool
	closed    bool
	winner     *core.PairKey
	finalPrice float64
	userRequirement string
	userProfile     string
}

var _ core.Episode = (*Coordinator)(nil)

// NewCoordinator constructs a parallel multi-participant environment. Buyer
// and seller price bounds are indexed by participant id; constructing with
// zero buyers or zero sellers fails with ErrInvalidArgument.
func NewCoordinator(buyerMax, sellerMin []float64, optFns ...func(o *Options)) (*Coordinator, error) {
	if len(buyerMax) == 0 || len(sellerMin) == 0 {
		return nil, fmt.Errorf("%w: coordinator requires at least one buyer and one seller", core.ErrInvalidArgument)
	}
	for i, v := range buyerMax {
		if v < 0 {
			return nil, fmt.Errorf("%w: buyer %d max price must be non-negative, got %v", core.ErrInvalidArgument, i, v)
		}
	}
	for i, v := range sellerMin {
		if v < 0 {
			return nil, fmt.Errorf("%w: seller %d min price must be non-negative, got %v", core.ErrInvalidArgument, i, v)
		}
	}

	opts := buildOptions(optFns)
	opts.Config.Mode = core.ModeParallel
	if err := opts.Config.Validate(); err != nil {
		return nil, err
	}

	return &Coordinator{
		cfg:       opts.Config,
		buyerMax:  append([]float64(nil), buyerMax...),
		sellerMin: append([]float64(nil), sellerMin...),
		extract:   opts.Extractor,
		classify:  opts.Classifier,
		logger:    opts.Logger,
		extraEnv:  opts.EnvironmentInfo,
	}, nil
}

// Config returns the immutable episode configuration.
func (c *Coordinator) Config() core.Config { return c.cfg }

// EpisodeID returns the id assigned at the most recent Reset.
func (c *Coordinator) EpisodeID() string { return c.episodeID }

// Status returns the current episode outcome.
func (c *Coordinator) Status() core.Outcome { return c.status }

func (c *Coordinator) participantIDs() (buyers, sellers []int) {
	buyers = make([]int, len(c.buyerMax))
	for i := range buyers {
		buyers[i] = i
	}
	sellers = make([]int, len(c.sellerMin))
	for i := range sellers {
		sellers[i] = i
	}
	return buyers, sellers
}

// Reset initializes a fresh negotiation over a single product; multi-product
// compositions wrap the coordinator via MultiProduct.
func (c *Coordinator) Reset(opts core.ResetOptions) (core.Observation, core.Info, error) {
	if c.closed {
		return core.Observation{}, core.Info{}, fmt.Errorf("%w: episode is closed", core.ErrInvalidState)
	}
	if len(opts.Products) == 0 {
		return core.Observation{}, core.Info{}, fmt.Errorf("%w: product info is required", core.ErrInvalidArgument)
	}
	if len(opts.Products) != 1 {
		return core.Observation{}, core.Info{}, fmt.Errorf("%w: coordinator takes exactly one product, got %d", core.ErrInvalidArgument, len(opts.Products))
	}
	if err := opts.Products[0].Validate(); err != nil {
		return core.Observation{}, core.Info{}, err
	}

	buyers, sellers := c.participantIDs()

	c.episodeID = core.NewID()
	c.product = opts.Products[0]
	c.conv = core.NewConversation()
	c.state = core.NewState(opts.Products, buyers, sellers)
	c.status = core.OutcomeOngoing
	c.started = true
	c.winner = nil
	c.finalPrice = 0
	c.userRequirement = opts.UserRequirement
	c.userProfile = opts.UserProfile

	c.logger.Debug("episode reset episode_id=%s buyers=%d sellers=%d product=%s", c.episodeID, len(buyers), len(sellers), c.product.ID)

	return c.observation(), c.info(reward.Breakdown{}), nil
}

// activeParticipants returns the ids with at least one outstanding lane.
func (c *Coordinator) activeParticipants() (buyers, sellers []int) {
	bset := map[int]bool{}
	sset := map[int]bool{}
	for _, k := range c.state.Outstanding() {
		bset[k.Buyer] = true
		sset[k.Seller] = true
	}
	for b := range bset {
		buyers = append(buyers, b)
	}
	for s := range sset {
		sellers = append(sellers, s)
	}
	sort.Ints(buyers)
	sort.Ints(sellers)
	return buyers, sellers
}

// collectActions validates the action set against the active participants
// and indexes the texts by role and id.
func (c *Coordinator) collectActions(actions core.Actions) (buyerText, sellerText map[int]string, err error) {
	activeBuyers, activeSellers := c.activeParticipants()
	if len(actions) != len(activeBuyers)+len(activeSellers) {
		return nil, nil, fmt.Errorf("%w: expected %d actions, got %d", core.ErrInvalidArgument, len(activeBuyers)+len(activeSellers), len(actions))
	}

	buyerText = make(map[int]string, len(activeBuyers))
	sellerText = make(map[int]string, len(activeSellers))
	for _, a := range actions {
		if a.Product != "" && a.Product != c.product.ID {
			return nil, nil, fmt.Errorf("%w: unknown product %q", core.ErrInvalidArgument, a.Product)
		}
		switch a.Role {
		case core.RoleBuyer:
			if _, ok := buyerText[a.Participant]; ok {
				return nil, nil, fmt.Errorf("%w: duplicate action for buyer %d", core.ErrInvalidArgument, a.Participant)
			}
			buyerText[a.Participant] = a.Content
		case core.RoleSeller:
			if _, ok := sellerText[a.Participant]; ok {
				return nil, nil, fmt.Errorf("%w: duplicate action for seller %d", core.ErrInvalidArgument, a.Participant)
			}
			sellerText[a.Participant] = a.Content
		default:
			return nil, nil, fmt.Errorf("%w: unknown role %q", core.ErrInvalidArgument, a.Role)
		}
	}
	for _, b := range activeBuyers {
		if _, ok := buyerText[b]; !ok {
			return nil, nil, fmt.Errorf("%w: missing action for buyer %d", core.ErrInvalidArgument, b)
		}
	}
	for _, s := range activeSellers {
		if _, ok := sellerText[s]; !ok {
			return nil, nil, fmt.Errorf("%w: missing action for seller %d", core.ErrInvalidArgument, s)
		}
	}
	return buyerText, sellerText, nil
}

type laneDeal struct {
	key   core.PairKey
	price float64
}

// Step folds every active participant's action into the same round,
// evaluates each outstanding lane, performs winner selection among reached
// deals and advances the round globally.
func (c *Coordinator) Step(actions core.Actions) (core.StepResult, error) {
	if c.closed {
		return core.StepResult{}, fmt.Errorf("%w: episode is closed", core.ErrInvalidState)
	}
	if !c.started {
		return core.StepResult{}, fmt.Errorf("%w: episode has not been reset", core.ErrInvalidState)
	}
	if c.status.Terminal() {
		return core.StepResult{}, fmt.Errorf("%w: episode already resolved as %s", core.ErrInvalidState, c.status)
	}

	buyerText, sellerText, err := c.collectActions(actions)
	if err != nil {
		return core.StepResult{}, err
	}

	activeBuyers, activeSellers := c.activeParticipants()
	round := c.state.Round

	// Every participant speaks once per round; buyer turns precede seller
	// turns, ascending participant id.
	for _, b := range activeBuyers {
		c.conv.Append(core.Turn{Role: core.RoleBuyer, Participant: b, Product: c.product.ID, Content: buyerText[b], Round: round})
	}
	for _, s := range activeSellers {
		c.conv.Append(core.Turn{Role: core.RoleSeller, Participant: s, Product: c.product.ID, Content: sellerText[s], Round: round})
	}

	outstanding := c.state.Outstanding()
	var deals []laneDeal
	for _, k := range outstanding {
		ps := c.state.Pairs[k]
		if offer, ok := c.extract(buyerText[k.Buyer]); ok {
			ps.FoldOffer(offer)
		}
		if ask, ok := c.extract(sellerText[k.Seller]); ok {
			ps.FoldAsk(ask)
		}

		d := evaluate(ps, buyerText[k.Buyer], sellerText[k.Seller], c.cfg.MaxRounds, c.cfg.PriceTolerance, c.classify)
		switch d.outcome {
		case core.OutcomeOngoing:
		case core.OutcomeDealReached:
			deals = append(deals, laneDeal{key: k, price: d.finalPrice})
		default:
			ps.Outcome = d.outcome
		}
	}

	winner := c.selectWinner(deals)

	for _, k := range outstanding {
		c.state.Pairs[k].Round++
	}
	c.state.Round++

	var b reward.Breakdown
	if winner != nil {
		c.winner = &winner.key
		c.finalPrice = winner.price
		c.status = core.OutcomeDealReached
		b = reward.Compute(core.OutcomeDealReached, winner.price, c.buyerMax[winner.key.Buyer], c.sellerMin[winner.key.Seller], c.state.Round, c.cfg.Weights)
	} else if len(c.state.Outstanding()) == 0 {
		c.status = c.aggregateOutcome()
		b = reward.Compute(c.status, 0, 0, 0, c.state.Round, c.cfg.Weights)
	} else {
		b = reward.Compute(core.OutcomeOngoing, 0, 0, 0, c.state.Round, c.cfg.Weights)
	}

	c.logger.Debug("round completed episode_id=%s round=%d status=%s outstanding=%d", c.episodeID, c.state.Round, c.status, len(c.state.Outstanding()))

	return core.StepResult{
		Observation: c.observation(),
		Reward:      b.Total,
		Terminated:  c.status.Terminated(),
		Truncated:   c.status == core.OutcomeTruncated,
		Info:        c.info(b),
	}, nil
}

// selectWinner resolves competing deals reached in the same round and marks
// losing lanes. Sellers competing for a buyer: lowest settled price wins;
// buyers competing for the product: highest settled price wins; ties break
// by ascending participant id (the deterministic Outstanding order already
// yields that).
func (c *Coordinator) selectWinner(deals []laneDeal) *laneDeal {
	if len(deals) == 0 {
		return nil
	}

	// Cheapest seller per buyer.
	bestPerBuyer := map[int]laneDeal{}
	var buyerOrder []int
	for _, d := range deals {
		cur, ok := bestPerBuyer[d.key.Buyer]
		if !ok {
			bestPerBuyer[d.key.Buyer] = d
			buyerOrder = append(buyerOrder, d.key.Buyer)
			continue
		}
		if d.price < cur.price {
			bestPerBuyer[d.key.Buyer] = d
		}
	}
	sort.Ints(buyerOrder)

	// Highest-paying buyer takes the product.
	winner := bestPerBuyer[buyerOrder[0]]
	for _, bID := range buyerOrder[1:] {
		if d := bestPerBuyer[bID]; d.price > winner.price {
			winner = d
		}
	}

	wps := c.state.Pairs[winner.key]
	wps.Outcome = core.OutcomeDealReached
	wps.FinalPrice = winner.price

	// The product is resolved; every other lane leaves consideration.
	for _, k := range c.state.Outstanding() {
		if k != winner.key {
			c.state.Pairs[k].Outcome = core.OutcomeNoDeal
		}
	}
	return &winner
}

// aggregateOutcome classifies the episode once all lanes resolved without a
// winner: unanimous rejections keep their side, unanimous truncation stays
// truncated, anything mixed is no_deal.
func (c *Coordinator) aggregateOutcome() core.Outcome {
	counts := map[core.Outcome]int{}
	total := 0
	for _, ps := range c.state.Pairs {
		counts[ps.Outcome]++
		total++
	}
	for _, o := range []core.Outcome{core.OutcomeBuyerRejected, core.OutcomeSellerRejected, core.OutcomeTruncated} {
		if counts[o] == total {
			return o
		}
	}
	return core.OutcomeNoDeal
}

func (c *Coordinator) observation() core.Observation {
	outstanding := c.state.Outstanding()

	// Best visible prices: lowest outstanding ask, highest outstanding offer.
	sellerPrice := c.finalPrice
	var buyerOffer *float64
	if len(outstanding) > 0 {
		sellerPrice = 0
		for i, k := range outstanding {
			ps := c.state.Pairs[k]
			if i == 0 || ps.AskingPrice < sellerPrice {
				sellerPrice = ps.AskingPrice
			}
			if ps.LastOffer != nil && (buyerOffer == nil || *ps.LastOffer > *buyerOffer) {
				v := *ps.LastOffer
				buyerOffer = &v
			}
		}
	}

	lanes := map[string]any{}
	for k, ps := range c.state.Pairs {
		lane := map[string]any{
			"ask":     ps.AskingPrice,
			"round":   ps.Round,
			"outcome": string(ps.Outcome),
		}
		if ps.LastOffer != nil {
			lane["offer"] = *ps.LastOffer
		}
		if ps.Outcome == core.OutcomeDealReached {
			lane["final_price"] = ps.FinalPrice
		}
		lanes[fmt.Sprintf("buyer_%d/seller_%d", k.Buyer, k.Seller)] = lane
	}

	envInfo := map[string]any{"lanes": lanes}
	for k, v := range c.extraEnv {
		envInfo[k] = v
	}
	if e := c.userRequirement; e != "" {
		envInfo["user_requirement"] = e
	}
	if e := c.userProfile; e != "" {
		envInfo["user_profile"] = e
	}

	var slots []core.ActionSlot
	if c.status == core.OutcomeOngoing {
		buyers, sellers := c.activeParticipants()
		for _, b := range buyers {
			slots = append(slots, core.ActionSlot{Role: core.RoleBuyer, Participant: b, Product: c.product.ID})
		}
		for _, s := range sellers {
			slots = append(slots, core.ActionSlot{Role: core.RoleSeller, Participant: s, Product: c.product.ID})
		}
	}

	return core.Observation{
		ConversationHistory: c.conv.History(),
		CurrentRound:        c.state.Round,
		SellerPrice:         sellerPrice,
		BuyerOffer:          buyerOffer,
		Products:            []core.Product{c.product},
		EnvironmentInfo:     envInfo,
		ActiveSlots:         slots,
	}
}

func (c *Coordinator) info(b reward.Breakdown) core.Info {
	info := core.Info{
		Status:       c.status,
		SellerPrice:  c.finalPrice,
		BuyerSavings: b.BuyerSavings,
		SellerProfit: b.SellerProfit,
		RoundsUsed:   c.state.Round,
	}
	if c.winner == nil {
		// No settlement yet: report the best (lowest) ask on the table.
		first := true
		for _, ps := range c.state.Pairs {
			if first || ps.AskingPrice < info.SellerPrice {
				info.SellerPrice = ps.AskingPrice
				first = false
			}
		}
	}
	if c.winner != nil {
		if len(c.sellerMin) > 1 {
			s := c.winner.Seller
			info.WinningSeller = &s
		}
		if len(c.buyerMax) > 1 {
			bID := c.winner.Buyer
			info.WinningBuyer = &bID
		}
	}
	return info
}

// Render writes a human-readable projection of the current state.
func (c *Coordinator) Render(w io.Writer) error {
	if c.closed {
		_, err := fmt.Fprintln(w, "negotiation: closed")
		return err
	}
	if !c.started {
		_, err := fmt.Fprintln(w, "negotiation: uninitialized")
		return err
	}
	if _, err := fmt.Fprintf(w, "negotiation %s product=%s round=%d status=%s\n", c.episodeID, c.product.ID, c.state.Round, c.status); err != nil {
		return err
	}
	for _, p := range c.state.Products {
		for _, bID := range c.state.Buyers {
			for _, sID := range c.state.Sellers {
				k := core.PairKey{Buyer: bID, Seller: sID, Product: p.ID}
				ps := c.state.Pairs[k]
				offer := "-"
				if ps.LastOffer != nil {
					offer = fmt.Sprintf("%.2f", *ps.LastOffer)
				}
				if _, err := fmt.Fprintf(w, "  buyer=%d seller=%d ask=%.2f offer=%s outcome=%s\n", bID, sID, ps.AskingPrice, offer, ps.Outcome); err != nil {
					return err
				}
			}
		}
	}
	return nil
}

// Close releases the conversation log and state. Idempotent.
func (c *Coordinator) Close() error {
	if c.closed {
		return nil
	}
	c.closed = true
	c.conv = nil
	c.state = nil
	c.started = false
	return nil
}
