package env

import (
	"fmt"
	"io"

	"github.com/hupe1980/negomesh/core"
	"github.com/hupe1980/negomesh/logging"
	"github.com/hupe1980/negomesh/reward"
)

// subResult records the terminal outcome of one completed sub-negotiation.
type subResult struct {
	Participant int
	Outcome     core.Outcome
	FinalPrice  float64
	Rounds      int
}

// Sequential runs the participants on the competing axis one at a time: a
// participant's sub-negotiation runs to its own terminal outcome under
// single-pair semantics before the next participant begins. Context from
// prior sub-negotiations is exposed read-only to later participants through
// the observation's environment_info; state mutation is strictly scoped to
// the currently active participant.
type Sequential struct {
	cfg       core.Config
	buyerMax  []float64
	sellerMin []float64
	extract   core.PriceExtractor
	classify  core.RejectionClassifier
	logger    logging.Logger
	extraEnv  map[string]any

	buyersCompete bool
	order         []int

	episodeID string
	conv      *core.Conversation
	products  []core.Product
	current   int
	sub       *SinglePair
	subTurns  int
	results   []subResult
	status    core.Outcome
	started   bool
	closed    bool
	winner     *subResult
	totalRounds int
	userRequirement string
	userProfile     string
}

var _ core.Episode = (*Sequential)(nil)

// NewSequential constructs a sequential multi-participant environment. One
// side must be singular; the other is the competing axis, ordered by
// registration order (slice index).
func NewSequential(buyerMax, sellerMin []float64, optFns ...func(o *Options)) (*Sequential, error) {
	if len(buyerMax) == 0 || len(sellerMin) == 0 {
		return nil, fmt.Errorf("%w: coordinator requires at least one buyer and one seller", core.ErrInvalidArgument)
	}
	if len(buyerMax) > 1 && len(sellerMin) > 1 {
		return nil, fmt.Errorf("%w: sequential scheduling supports a single competing axis (buyers or sellers)", core.ErrInvalidArgument)
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
	opts.Config.Mode = core.ModeSequential
	if err := opts.Config.Validate(); err != nil {
		return nil, err
	}

	buyersCompete := len(buyerMax) > 1 || len(sellerMin) == 1
	axis := len(buyerMax)
	if !buyersCompete {
		axis = len(sellerMin)
	}
	order := make([]int, axis)
	for i := range order {
		order[i] = i
	}

	return &Sequential{
		cfg:           opts.Config,
		buyerMax:      append([]float64(nil), buyerMax...),
		sellerMin:     append([]float64(nil), sellerMin...),
		extract:       opts.Extractor,
		classify:      opts.Classifier,
		logger:        opts.Logger,
		extraEnv:      opts.EnvironmentInfo,
		buyersCompete: buyersCompete,
		order:         order,
	}, nil
}

// Config returns the immutable episode configuration.
func (s *Sequential) Config() core.Config { return s.cfg }

// EpisodeID returns the id assigned at the most recent Reset.
func (s *Sequential) EpisodeID() string { return s.episodeID }

// Status returns the current episode outcome.
func (s *Sequential) Status() core.Outcome { return s.status }

// Reset initializes the episode and the first participant's sub-negotiation.
func (s *Sequential) Reset(opts core.ResetOptions) (core.Observation, core.Info, error) {
	if s.closed {
		return core.Observation{}, core.Info{}, fmt.Errorf("%w: episode is closed", core.ErrInvalidState)
	}
	if len(opts.Products) == 0 {
		return core.Observation{}, core.Info{}, fmt.Errorf("%w: product info is required", core.ErrInvalidArgument)
	}
	if len(opts.Products) != 1 {
		return core.Observation{}, core.Info{}, fmt.Errorf("%w: sequential coordinator takes exactly one product, got %d", core.ErrInvalidArgument, len(opts.Products))
	}
	if err := opts.Products[0].Validate(); err != nil {
		return core.Observation{}, core.Info{}, err
	}

	s.episodeID = core.NewID()
	s.conv = core.NewConversation()
	s.products = opts.Products
	s.current = 0
	s.results = nil
	s.status = core.OutcomeOngoing
	s.started = true
	s.winner = nil
	s.totalRounds = 0
	s.userRequirement = opts.UserRequirement
	s.userProfile = opts.UserProfile

	if err := s.startSub(); err != nil {
		s.started = false
		return core.Observation{}, core.Info{}, err
	}

	s.logger.Debug("episode reset episode_id=%s participants=%d product=%s", s.episodeID, len(s.order), s.products[0].ID)

	return s.observation(), s.info(reward.Breakdown{}), nil
}

// startSub creates and resets the sub-negotiation for the current
// participant, exposing prior results read-only.
func (s *Sequential) startSub() error {
	id := s.order[s.current]
	buyerID, sellerID := 0, 0
	buyerMax, sellerMin := s.buyerMax[0], s.sellerMin[0]
	if s.buyersCompete {
		buyerID = id
		buyerMax = s.buyerMax[id]
	} else {
		sellerID = id
		sellerMin = s.sellerMin[id]
	}

	envInfo := map[string]any{}
	for k, v := range s.extraEnv {
		envInfo[k] = v
	}
	if prev := s.previousResults(); len(prev) > 0 {
		envInfo["previous_results"] = prev
	}

	sub, err := NewSinglePair(buyerMax, sellerMin, func(o *Options) {
		o.Config = s.cfg
		o.Extractor = s.extract
		o.Classifier = s.classify
		o.Logger = s.logger
		o.BuyerID = buyerID
		o.SellerID = sellerID
		o.EnvironmentInfo = envInfo
	})
	if err != nil {
		return err
	}
	if _, _, err := sub.Reset(core.ResetOptions{Products: s.products, UserRequirement: s.userRequirement, UserProfile: s.userProfile}); err != nil {
		return err
	}
	s.sub = sub
	s.subTurns = 0
	return nil
}

// previousResults projects completed sub-negotiations for read-only exposure.
func (s *Sequential) previousResults() []map[string]any {
	prev := make([]map[string]any, 0, len(s.results))
	role := "buyer"
	if !s.buyersCompete {
		role = "seller"
	}
	for _, r := range s.results {
		prev = append(prev, map[string]any{
			"participant": r.Participant,
			"role":        role,
			"outcome":     string(r.Outcome),
			"final_price": r.FinalPrice,
			"rounds_used": r.Rounds,
		})
	}
	return prev
}

// Step forwards the action pair to the active sub-negotiation. When the sub
// resolves, the next participant begins from round zero; the episode itself
// terminates only after the last participant's sub-negotiation resolves.
func (s *Sequential) Step(actions core.Actions) (core.StepResult, error) {
	if s.closed {
		return core.StepResult{}, fmt.Errorf("%w: episode is closed", core.ErrInvalidState)
	}
	if !s.started {
		return core.StepResult{}, fmt.Errorf("%w: episode has not been reset", core.ErrInvalidState)
	}
	if s.status.Terminal() {
		return core.StepResult{}, fmt.Errorf("%w: episode already resolved as %s", core.ErrInvalidState, s.status)
	}

	res, err := s.sub.Step(actions)
	if err != nil {
		return core.StepResult{}, err
	}

	// Mirror the new turns into the episode-level transcript.
	hist := res.Observation.ConversationHistory
	for _, t := range hist[s.subTurns:] {
		s.conv.Append(t)
	}
	s.subTurns = len(hist)

	if !res.Terminated && !res.Truncated {
		res.Observation = s.decorate(res.Observation)
		res.Info.CurrentBuyer = s.currentParticipantInfo()
		return res, nil
	}

	// Sub-negotiation resolved.
	sub := subResult{
		Participant: s.order[s.current],
		Outcome:     s.sub.Status(),
		FinalPrice:  s.sub.FinalPrice(),
		Rounds:      res.Info.RoundsUsed,
	}
	s.results = append(s.results, sub)
	s.totalRounds += sub.Rounds
	s.logger.Debug("sub-negotiation resolved episode_id=%s participant=%d outcome=%s", s.episodeID, sub.Participant, sub.Outcome)

	if s.current+1 < len(s.order) {
		s.current++
		if err := s.startSub(); err != nil {
			return core.StepResult{}, err
		}
		obs := s.decorate(s.sub.observation())
		info := core.Info{
			Status:      core.OutcomeOngoing,
			SellerPrice: obs.SellerPrice,
			RoundsUsed:  s.totalRounds,
			Extra: map[string]any{
				"sub_outcome":     string(sub.Outcome),
				"sub_participant": sub.Participant,
			},
		}
		info.CurrentBuyer = s.currentParticipantInfo()
		return core.StepResult{
			Observation: obs,
			Reward:      res.Reward,
			Terminated:  false,
			Truncated:   false,
			Info:        info,
		}, nil
	}

	// Last participant resolved: select the winner and settle the episode.
	return s.finish(res)
}

// currentParticipantInfo reports the active competing participant when
// buyers are the competing axis.
func (s *Sequential) currentParticipantInfo() *int {
	if !s.buyersCompete || s.status.Terminal() {
		return nil
	}
	id := s.order[s.current]
	return &id
}

// finish selects the winner across completed sub-negotiations and produces
// the terminal step result. Buyers competing: highest settled price wins;
// sellers competing: lowest. Ties break by ascending participant id (the
// iteration order).
func (s *Sequential) finish(last core.StepResult) (core.StepResult, error) {
	for i := range s.results {
		r := s.results[i]
		if r.Outcome != core.OutcomeDealReached {
			continue
		}
		if s.winner == nil {
			s.winner = &s.results[i]
			continue
		}
		if s.buyersCompete && r.FinalPrice > s.winner.FinalPrice {
			s.winner = &s.results[i]
		}
		if !s.buyersCompete && r.FinalPrice < s.winner.FinalPrice {
			s.winner = &s.results[i]
		}
	}

	var b reward.Breakdown
	if s.winner != nil {
		s.status = core.OutcomeDealReached
		buyerMax, sellerMin := s.buyerMax[0], s.sellerMin[0]
		if s.buyersCompete {
			buyerMax = s.buyerMax[s.winner.Participant]
		} else {
			sellerMin = s.sellerMin[s.winner.Participant]
		}
		b = reward.Compute(core.OutcomeDealReached, s.winner.FinalPrice, buyerMax, sellerMin, s.totalRounds, s.cfg.Weights)
	} else {
		s.status = s.aggregateOutcome()
		b = reward.Compute(s.status, 0, 0, 0, s.totalRounds, s.cfg.Weights)
	}

	info := core.Info{
		Status:       s.status,
		SellerPrice:  last.Info.SellerPrice,
		BuyerSavings: b.BuyerSavings,
		SellerProfit: b.SellerProfit,
		RoundsUsed:   s.totalRounds,
		Extra:        map[string]any{"results": s.previousResults()},
	}
	if s.winner != nil {
		info.SellerPrice = s.winner.FinalPrice
		id := s.winner.Participant
		if s.buyersCompete {
			info.WinningBuyer = &id
		} else {
			info.WinningSeller = &id
		}
	}

	s.logger.Debug("episode settled episode_id=%s status=%s rounds=%d", s.episodeID, s.status, s.totalRounds)

	return core.StepResult{
		Observation: s.decorate(last.Observation),
		Reward:      b.Total,
		Terminated:  s.status.Terminated(),
		Truncated:   s.status == core.OutcomeTruncated,
		Info:        info,
	}, nil
}

// aggregateOutcome classifies a winnerless episode: unanimous sub outcomes
// keep their classification, anything mixed is no_deal.
func (s *Sequential) aggregateOutcome() core.Outcome {
	counts := map[core.Outcome]int{}
	for _, r := range s.results {
		counts[r.Outcome]++
	}
	for _, o := range []core.Outcome{core.OutcomeBuyerRejected, core.OutcomeSellerRejected, core.OutcomeTruncated} {
		if counts[o] == len(s.results) {
			return o
		}
	}
	return core.OutcomeNoDeal
}

// decorate layers episode-level context over a sub-negotiation observation.
// The conversation history is the episode-level transcript, so earlier
// participants' sub-negotiations remain visible after their sub resolves.
func (s *Sequential) decorate(obs core.Observation) core.Observation {
	if s.conv != nil {
		obs.ConversationHistory = s.conv.History()
	}
	if obs.EnvironmentInfo == nil {
		obs.EnvironmentInfo = map[string]any{}
	}
	if prev := s.previousResults(); len(prev) > 0 {
		obs.EnvironmentInfo["previous_results"] = prev
	}
	obs.EnvironmentInfo["scheduling_mode"] = string(core.ModeSequential)
	if s.status.Terminal() {
		obs.ActiveSlots = nil
	}
	return obs
}

func (s *Sequential) observation() core.Observation {
	return s.decorate(s.sub.observation())
}

func (s *Sequential) info(b reward.Breakdown) core.Info {
	info := core.Info{
		Status:       s.status,
		SellerPrice:  s.sub.pair().AskingPrice,
		BuyerSavings: b.BuyerSavings,
		SellerProfit: b.SellerProfit,
		RoundsUsed:   s.totalRounds,
	}
	info.CurrentBuyer = s.currentParticipantInfo()
	return info
}

// Render writes a human-readable projection of the current state.
func (s *Sequential) Render(w io.Writer) error {
	if s.closed {
		_, err := fmt.Fprintln(w, "negotiation: closed")
		return err
	}
	if !s.started {
		_, err := fmt.Fprintln(w, "negotiation: uninitialized")
		return err
	}
	if _, err := fmt.Fprintf(w, "sequential negotiation %s participant=%d/%d status=%s\n", s.episodeID, s.current+1, len(s.order), s.status); err != nil {
		return err
	}
	for _, r := range s.results {
		if _, err := fmt.Fprintf(w, "  participant=%d outcome=%s final=%.2f rounds=%d\n", r.Participant, r.Outcome, r.FinalPrice, r.Rounds); err != nil {
			return err
		}
	}
	return s.sub.Render(w)
}

// Close releases the active sub-negotiation and transcript. Idempotent.
func (s *Sequential) Close() error {
	if s.closed {
		return nil
	}
	s.closed = true
	if s.sub != nil {
		_ = s.sub.Close()
		s.sub = nil
	}
	s.conv = nil
	s.started = false
	return nil
}
