package env

import (
	"fmt"
	"io"

	"github.com/hupe1980/negomesh/core"
	"github.com/hupe1980/negomesh/logging"
	"github.com/hupe1980/negomesh/reward"
)

// SinglePair is the base episodic state machine for one buyer, one product
// and one seller. Coordinators embed it for their sub-negotiations.
type SinglePair struct {
	cfg      core.Config
	buyerMax float64
	sellerMin float64
	extract  core.PriceExtractor
	classify core.RejectionClassifier
	logger   logging.Logger
	buyerID  int
	sellerID int
	extraEnv map[string]any

	episodeID string
	conv      *core.Conversation
	state     *core.State
	product   core.Product
	status    core.Outcome
	started   bool
	closed    bool
	finalPrice float64
	userRequirement string
	userProfile     string
}

var _ core.Episode = (*SinglePair)(nil)

// NewSinglePair constructs a single buyer/seller environment with the given
// price bounds. The bounds are fixed for the environment's lifetime; the
// product set is supplied at Reset.
func NewSinglePair(buyerMax, sellerMin float64, optFns ...func(o *Options)) (*SinglePair, error) {
	if buyerMax < 0 || sellerMin < 0 {
		return nil, fmt.Errorf("%w: price bounds must be non-negative (buyer max %v, seller min %v)", core.ErrInvalidArgument, buyerMax, sellerMin)
	}

	opts := buildOptions(optFns)
	if err := opts.Config.Validate(); err != nil {
		return nil, err
	}

	return &SinglePair{
		cfg:       opts.Config,
		buyerMax:  buyerMax,
		sellerMin: sellerMin,
		extract:   opts.Extractor,
		classify:  opts.Classifier,
		logger:    opts.Logger,
		buyerID:   opts.BuyerID,
		sellerID:  opts.SellerID,
		extraEnv:  opts.EnvironmentInfo,
	}, nil
}

// Config returns the immutable episode configuration.
func (e *SinglePair) Config() core.Config { return e.cfg }

// Bounds returns the constructor-supplied buyer maximum and seller minimum.
func (e *SinglePair) Bounds() (buyerMax, sellerMin float64) { return e.buyerMax, e.sellerMin }

// EpisodeID returns the id assigned at the most recent Reset.
func (e *SinglePair) EpisodeID() string { return e.episodeID }

// Status returns the current episode outcome (ongoing until terminal).
func (e *SinglePair) Status() core.Outcome { return e.status }

// FinalPrice returns the settled price, zero unless a deal was reached.
func (e *SinglePair) FinalPrice() float64 { return e.finalPrice }

// Reset initializes a fresh negotiation from the supplied product. It fails
// with ErrInvalidArgument if product info is absent.
func (e *SinglePair) Reset(opts core.ResetOptions) (core.Observation, core.Info, error) {
	if e.closed {
		return core.Observation{}, core.Info{}, fmt.Errorf("%w: episode is closed", core.ErrInvalidState)
	}
	if len(opts.Products) == 0 {
		return core.Observation{}, core.Info{}, fmt.Errorf("%w: product info is required", core.ErrInvalidArgument)
	}
	if len(opts.Products) != 1 {
		return core.Observation{}, core.Info{}, fmt.Errorf("%w: single-pair episode takes exactly one product, got %d", core.ErrInvalidArgument, len(opts.Products))
	}
	if err := opts.Products[0].Validate(); err != nil {
		return core.Observation{}, core.Info{}, err
	}

	e.episodeID = core.NewID()
	e.product = opts.Products[0]
	e.conv = core.NewConversation()
	e.state = core.NewState(opts.Products, []int{e.buyerID}, []int{e.sellerID})
	e.status = core.OutcomeOngoing
	e.started = true
	e.finalPrice = 0
	e.userRequirement = opts.UserRequirement
	e.userProfile = opts.UserProfile

	e.logger.Debug("episode reset episode_id=%s product=%s ask=%v", e.episodeID, e.product.ID, e.product.ListPrice)

	return e.observation(), e.info(reward.Breakdown{}), nil
}

func (e *SinglePair) pairKey() core.PairKey {
	return core.PairKey{Buyer: e.buyerID, Seller: e.sellerID, Product: e.product.ID}
}

func (e *SinglePair) pair() *core.PairState { return e.state.Pairs[e.pairKey()] }

// StepPair is a convenience wrapper over Step for the common two-string case.
func (e *SinglePair) StepPair(buyerAction, sellerAction string) (core.StepResult, error) {
	return e.Step(core.Actions{
		{Role: core.RoleBuyer, Participant: e.buyerID, Content: buyerAction},
		{Role: core.RoleSeller, Participant: e.sellerID, Content: sellerAction},
	})
}

// Step folds one buyer and one seller action into the state, evaluates the
// termination policy and computes the reward.
func (e *SinglePair) Step(actions core.Actions) (core.StepResult, error) {
	if e.closed {
		return core.StepResult{}, fmt.Errorf("%w: episode is closed", core.ErrInvalidState)
	}
	if !e.started {
		return core.StepResult{}, fmt.Errorf("%w: episode has not been reset", core.ErrInvalidState)
	}
	if e.status.Terminal() {
		return core.StepResult{}, fmt.Errorf("%w: episode already resolved as %s", core.ErrInvalidState, e.status)
	}

	buyerText, sellerText, err := e.splitActions(actions)
	if err != nil {
		return core.StepResult{}, err
	}

	ps := e.pair()
	round := ps.Round

	if offer, ok := e.extract(buyerText); ok {
		ps.FoldOffer(offer)
	}
	if ask, ok := e.extract(sellerText); ok {
		ps.FoldAsk(ask)
	}

	e.conv.Append(core.Turn{Role: core.RoleBuyer, Participant: e.buyerID, Product: e.product.ID, Content: buyerText, Round: round})
	e.conv.Append(core.Turn{Role: core.RoleSeller, Participant: e.sellerID, Product: e.product.ID, Content: sellerText, Round: round})

	d := evaluate(ps, buyerText, sellerText, e.cfg.MaxRounds, e.cfg.PriceTolerance, e.classify)

	ps.Round++
	e.state.Round++

	if d.outcome.Terminal() {
		ps.Outcome = d.outcome
		ps.FinalPrice = d.finalPrice
		e.status = d.outcome
		e.finalPrice = d.finalPrice
	}

	b := reward.Compute(d.outcome, d.finalPrice, e.buyerMax, e.sellerMin, e.state.Round, e.cfg.Weights)

	e.logger.Debug("round completed episode_id=%s round=%d ask=%v status=%s", e.episodeID, e.state.Round, ps.AskingPrice, d.outcome)

	return core.StepResult{
		Observation: e.observation(),
		Reward:      b.Total,
		Terminated:  d.outcome.Terminated(),
		Truncated:   d.outcome == core.OutcomeTruncated,
		Info:        e.info(b),
	}, nil
}

// splitActions validates the action set against the pair's two slots without
// mutating anything.
func (e *SinglePair) splitActions(actions core.Actions) (buyerText, sellerText string, err error) {
	if len(actions) != 2 {
		return "", "", fmt.Errorf("%w: expected 2 actions, got %d", core.ErrInvalidArgument, len(actions))
	}
	var haveBuyer, haveSeller bool
	for _, a := range actions {
		if a.Product != "" && a.Product != e.product.ID {
			return "", "", fmt.Errorf("%w: unknown product %q", core.ErrInvalidArgument, a.Product)
		}
		switch {
		case a.Role == core.RoleBuyer && a.Participant == e.buyerID && !haveBuyer:
			buyerText, haveBuyer = a.Content, true
		case a.Role == core.RoleSeller && a.Participant == e.sellerID && !haveSeller:
			sellerText, haveSeller = a.Content, true
		default:
			return "", "", fmt.Errorf("%w: unexpected action for %s %d", core.ErrInvalidArgument, a.Role, a.Participant)
		}
	}
	return buyerText, sellerText, nil
}

func (e *SinglePair) observation() core.Observation {
	ps := e.pair()

	var offer *float64
	if ps.LastOffer != nil {
		v := *ps.LastOffer
		offer = &v
	}

	envInfo := map[string]any{}
	for k, v := range e.extraEnv {
		envInfo[k] = v
	}
	if e.userRequirement != "" {
		envInfo["user_requirement"] = e.userRequirement
	}
	if e.userProfile != "" {
		envInfo["user_profile"] = e.userProfile
	}

	var slots []core.ActionSlot
	if e.status == core.OutcomeOngoing {
		slots = []core.ActionSlot{
			{Role: core.RoleBuyer, Participant: e.buyerID, Product: e.product.ID},
			{Role: core.RoleSeller, Participant: e.sellerID, Product: e.product.ID},
		}
	}

	return core.Observation{
		ConversationHistory: e.conv.History(),
		CurrentRound:        e.state.Round,
		SellerPrice:         ps.AskingPrice,
		BuyerOffer:          offer,
		Products:            []core.Product{e.product},
		EnvironmentInfo:     envInfo,
		ActiveSlots:         slots,
	}
}

func (e *SinglePair) info(b reward.Breakdown) core.Info {
	return core.Info{
		Status:       e.status,
		SellerPrice:  e.pair().AskingPrice,
		BuyerSavings: b.BuyerSavings,
		SellerProfit: b.SellerProfit,
		RoundsUsed:   e.state.Round,
	}
}

// Render writes a human-readable projection of the current state.
func (e *SinglePair) Render(w io.Writer) error {
	if e.closed {
		_, err := fmt.Fprintln(w, "negotiation: closed")
		return err
	}
	if !e.started {
		_, err := fmt.Fprintln(w, "negotiation: uninitialized")
		return err
	}
	ps := e.pair()
	offer := "-"
	if ps.LastOffer != nil {
		offer = fmt.Sprintf("%.2f", *ps.LastOffer)
	}
	if _, err := fmt.Fprintf(w, "negotiation %s product=%s round=%d ask=%.2f offer=%s status=%s\n",
		e.episodeID, e.product.ID, e.state.Round, ps.AskingPrice, offer, e.status); err != nil {
		return err
	}
	recent, _ := e.conv.Recent(6)
	for _, t := range recent {
		if _, err := fmt.Fprintf(w, "  [%d] %s#%d: %s\n", t.Round, t.Role, t.Participant, t.Content); err != nil {
			return err
		}
	}
	return nil
}

// Close releases the conversation log and state. Idempotent.
func (e *SinglePair) Close() error {
	if e.closed {
		return nil
	}
	e.closed = true
	e.conv = nil
	e.state = nil
	e.started = false
	return nil
}
