package env

import (
	"fmt"
	"io"

	"github.com/hupe1980/negomesh/core"
	"github.com/hupe1980/negomesh/logging"
)

// SubFactory builds the per-product sub-episode for a MultiProduct wrapper.
// The factory decides the underlying composition (single pair or a
// coordinator), so multi-product orthogonally wraps either scheduling mode.
type SubFactory func(product core.Product) (core.Episode, error)

// productSlice tracks one product's sub-episode and its last known info.
type productSlice struct {
	product core.Product
	episode core.Episode
	info    core.Info
	obs     core.Observation
	seen    int
	done    bool
}

// MultiProduct coordinates K independent product negotiations. Each product
// maintains its own state slice and round budget; the episode as a whole
// terminates only once every product has a terminal per-product outcome or
// the global round budget is exhausted.
type MultiProduct struct {
	cfg     core.Config
	factory SubFactory
	logger  logging.Logger

	episodeID string
	conv      *core.Conversation
	slices    []*productSlice
	rounds    int
	status    core.Outcome
	started   bool
	closed    bool
}

var _ core.Episode = (*MultiProduct)(nil)

// NewMultiProduct constructs a multi-product wrapper around the given
// per-product factory.
func NewMultiProduct(factory SubFactory, optFns ...func(o *Options)) (*MultiProduct, error) {
	if factory == nil {
		return nil, fmt.Errorf("%w: sub-episode factory is required", core.ErrInvalidArgument)
	}
	opts := buildOptions(optFns)
	if err := opts.Config.Validate(); err != nil {
		return nil, err
	}
	return &MultiProduct{cfg: opts.Config, factory: factory, logger: opts.Logger}, nil
}

// Config returns the immutable episode configuration.
func (m *MultiProduct) Config() core.Config { return m.cfg }

// EpisodeID returns the id assigned at the most recent Reset.
func (m *MultiProduct) EpisodeID() string { return m.episodeID }

// Status returns the current episode outcome.
func (m *MultiProduct) Status() core.Outcome { return m.status }

// Reset initializes one sub-episode per product.
func (m *MultiProduct) Reset(opts core.ResetOptions) (core.Observation, core.Info, error) {
	if m.closed {
		return core.Observation{}, core.Info{}, fmt.Errorf("%w: episode is closed", core.ErrInvalidState)
	}
	if len(opts.Products) == 0 {
		return core.Observation{}, core.Info{}, fmt.Errorf("%w: product info is required", core.ErrInvalidArgument)
	}
	seen := map[string]bool{}
	for _, p := range opts.Products {
		if err := p.Validate(); err != nil {
			return core.Observation{}, core.Info{}, err
		}
		if seen[p.ID] {
			return core.Observation{}, core.Info{}, fmt.Errorf("%w: duplicate product id %q", core.ErrInvalidArgument, p.ID)
		}
		seen[p.ID] = true
	}

	slices := make([]*productSlice, 0, len(opts.Products))
	for _, p := range opts.Products {
		sub, err := m.factory(p)
		if err != nil {
			return core.Observation{}, core.Info{}, err
		}
		obs, info, err := sub.Reset(core.ResetOptions{
			Products:        []core.Product{p},
			UserRequirement: opts.UserRequirement,
			UserProfile:     opts.UserProfile,
		})
		if err != nil {
			return core.Observation{}, core.Info{}, err
		}
		slices = append(slices, &productSlice{product: p, episode: sub, info: info, obs: obs})
	}

	m.episodeID = core.NewID()
	m.conv = core.NewConversation()
	m.slices = slices
	m.rounds = 0
	m.status = core.OutcomeOngoing
	m.started = true

	m.logger.Debug("episode reset episode_id=%s products=%d", m.episodeID, len(slices))

	return m.observation(), m.info(0, 0), nil
}

// Step routes each outstanding product's actions to its sub-episode and
// advances the global round once all slices are evaluated. The step reward
// is the sum over product slices.
func (m *MultiProduct) Step(actions core.Actions) (core.StepResult, error) {
	if m.closed {
		return core.StepResult{}, fmt.Errorf("%w: episode is closed", core.ErrInvalidState)
	}
	if !m.started {
		return core.StepResult{}, fmt.Errorf("%w: episode has not been reset", core.ErrInvalidState)
	}
	if m.status.Terminal() {
		return core.StepResult{}, fmt.Errorf("%w: episode already resolved as %s", core.ErrInvalidState, m.status)
	}

	grouped, err := m.groupActions(actions)
	if err != nil {
		return core.StepResult{}, err
	}

	var reward float64
	for _, sl := range m.slices {
		if sl.done {
			continue
		}
		res, err := sl.episode.Step(grouped[sl.product.ID])
		if err != nil {
			return core.StepResult{}, err
		}
		sl.info = res.Info
		sl.obs = res.Observation
		reward += res.Reward

		hist := res.Observation.ConversationHistory
		for _, t := range hist[sl.seen:] {
			m.conv.Append(t)
		}
		sl.seen = len(hist)

		if res.Terminated || res.Truncated {
			sl.done = true
			m.logger.Debug("product resolved episode_id=%s product=%s outcome=%s", m.episodeID, sl.product.ID, sl.info.Status)
		}
	}

	m.rounds++

	// Global budget exhausted: remaining slices truncate. Each unresolved
	// slice already stepped this round, so its rounds_used and time cost
	// reflect the truncation round; the wrapper only reclassifies its
	// status, it does not drive a terminal step through the sub-episode.
	if m.rounds >= m.cfg.MaxRounds {
		for _, sl := range m.slices {
			if !sl.done {
				sl.done = true
				sl.info.Status = core.OutcomeTruncated
				_ = sl.episode.Close()
			}
		}
	}

	allDone := true
	for _, sl := range m.slices {
		if !sl.done {
			allDone = false
			break
		}
	}
	if allDone {
		m.status = m.aggregateOutcome()
	}

	return core.StepResult{
		Observation: m.observation(),
		Reward:      reward,
		Terminated:  m.status.Terminated(),
		Truncated:   m.status == core.OutcomeTruncated,
		Info:        m.info(reward, m.rounds),
	}, nil
}

// groupActions splits the action set by product id, requiring explicit
// product tags and rejecting actions for resolved or unknown products.
func (m *MultiProduct) groupActions(actions core.Actions) (map[string]core.Actions, error) {
	valid := map[string]*productSlice{}
	for _, sl := range m.slices {
		valid[sl.product.ID] = sl
	}

	grouped := map[string]core.Actions{}
	for _, a := range actions {
		if a.Product == "" {
			return nil, fmt.Errorf("%w: multi-product actions must name a product", core.ErrInvalidArgument)
		}
		sl, ok := valid[a.Product]
		if !ok {
			return nil, fmt.Errorf("%w: unknown product %q", core.ErrInvalidArgument, a.Product)
		}
		if sl.done {
			return nil, fmt.Errorf("%w: product %q is already resolved", core.ErrInvalidArgument, a.Product)
		}
		grouped[a.Product] = append(grouped[a.Product], a)
	}
	// Validate each group against the slice's expected slots up front so no
	// sub-episode mutates before the whole action set is known to be valid.
	for _, sl := range m.slices {
		if sl.done {
			continue
		}
		group := grouped[sl.product.ID]
		if len(group) != len(sl.obs.ActiveSlots) {
			return nil, fmt.Errorf("%w: product %q expects %d actions, got %d", core.ErrInvalidArgument, sl.product.ID, len(sl.obs.ActiveSlots), len(group))
		}
		expected := map[core.ActionSlot]bool{}
		for _, slot := range sl.obs.ActiveSlots {
			slot.Product = sl.product.ID
			expected[slot] = true
		}
		for _, a := range group {
			slot := core.ActionSlot{Role: a.Role, Participant: a.Participant, Product: a.Product}
			if !expected[slot] {
				return nil, fmt.Errorf("%w: unexpected action for %s %d on product %q", core.ErrInvalidArgument, a.Role, a.Participant, a.Product)
			}
			delete(expected, slot)
		}
	}
	return grouped, nil
}

// aggregateOutcome classifies the finished episode: every product dealt is a
// deal, any truncated slice truncates the episode, anything else is no_deal.
func (m *MultiProduct) aggregateOutcome() core.Outcome {
	deals, truncated := 0, 0
	for _, sl := range m.slices {
		switch sl.info.Status {
		case core.OutcomeDealReached:
			deals++
		case core.OutcomeTruncated:
			truncated++
		}
	}
	switch {
	case deals == len(m.slices):
		return core.OutcomeDealReached
	case truncated > 0:
		return core.OutcomeTruncated
	default:
		return core.OutcomeNoDeal
	}
}

func (m *MultiProduct) observation() core.Observation {
	products := make([]core.Product, 0, len(m.slices))
	perProduct := map[string]any{}
	var slots []core.ActionSlot
	sellerPrice := 0.0
	first := true

	for _, sl := range m.slices {
		products = append(products, sl.product)
		perProduct[sl.product.ID] = map[string]any{
			"status":       string(sl.info.Status),
			"seller_price": sl.info.SellerPrice,
			"rounds_used":  sl.info.RoundsUsed,
		}
		if !sl.done {
			if first || sl.obs.SellerPrice < sellerPrice {
				sellerPrice = sl.obs.SellerPrice
				first = false
			}
			for _, slot := range sl.obs.ActiveSlots {
				slot.Product = sl.product.ID
				slots = append(slots, slot)
			}
		}
	}

	var hist []core.Turn
	if m.conv != nil {
		hist = m.conv.History()
	}

	return core.Observation{
		ConversationHistory: hist,
		CurrentRound:        m.rounds,
		SellerPrice:         sellerPrice,
		Products:            products,
		EnvironmentInfo:     map[string]any{"products": perProduct},
		ActiveSlots:         slots,
	}
}

func (m *MultiProduct) info(stepReward float64, rounds int) core.Info {
	perProduct := map[string]any{}
	savings, profit := 0.0, 0.0
	for _, sl := range m.slices {
		perProduct[sl.product.ID] = map[string]any{
			"status":        string(sl.info.Status),
			"seller_price":  sl.info.SellerPrice,
			"buyer_savings": sl.info.BuyerSavings,
			"seller_profit": sl.info.SellerProfit,
			"rounds_used":   sl.info.RoundsUsed,
		}
		savings += sl.info.BuyerSavings
		profit += sl.info.SellerProfit
	}
	return core.Info{
		Status:       m.status,
		BuyerSavings: savings,
		SellerProfit: profit,
		RoundsUsed:   rounds,
		Extra:        map[string]any{"products": perProduct, "step_reward": stepReward},
	}
}

// Render writes a human-readable projection of every product slice.
func (m *MultiProduct) Render(w io.Writer) error {
	if m.closed {
		_, err := fmt.Fprintln(w, "negotiation: closed")
		return err
	}
	if !m.started {
		_, err := fmt.Fprintln(w, "negotiation: uninitialized")
		return err
	}
	if _, err := fmt.Fprintf(w, "multi-product negotiation %s round=%d status=%s\n", m.episodeID, m.rounds, m.status); err != nil {
		return err
	}
	for _, sl := range m.slices {
		if _, err := fmt.Fprintf(w, "  product=%s status=%s price=%.2f rounds=%d\n", sl.product.ID, sl.info.Status, sl.info.SellerPrice, sl.info.RoundsUsed); err != nil {
			return err
		}
	}
	return nil
}

// Close releases all sub-episodes. Idempotent.
func (m *MultiProduct) Close() error {
	if m.closed {
		return nil
	}
	m.closed = true
	for _, sl := range m.slices {
		_ = sl.episode.Close()
	}
	m.slices = nil
	m.conv = nil
	m.started = false
	return nil
}
