package runner

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/hupe1980/negomesh/core"
	"github.com/hupe1980/negomesh/logging"
	"github.com/hupe1980/negomesh/transcript"
)

// Options holds dependency and configuration overrides passed to New().
type Options struct {
	// Concurrent fans responder calls out to one goroutine per active slot.
	Concurrent bool
	// Logger receives per-round progress. Defaults to NoOpLogger.
	Logger logging.Logger
	// Transcripts, when set, receives a Record for every finished run.
	Transcripts transcript.Store
	// MaxSteps is a safety cap on Step calls per run, independent of the
	// episode's own round budget. Zero means no cap.
	MaxSteps int
}

// Summary is the result of one completed run.
type Summary struct {
	RunID      string
	Outcome    core.Outcome
	FinalPrice float64
	Reward     float64
	Rounds     int
	Turns      []core.Turn
	Info       core.Info
}

// Runner owns one Episode and the Responders negotiating in it, keyed by
// participant id per side.
type Runner struct {
	env     core.Episode
	buyers  map[int]core.Responder
	sellers map[int]core.Responder
	opts    Options
}

// New constructs a Runner. Every participant the episode activates must have
// a Responder on its side; a missing one surfaces as an error during Run.
func New(env core.Episode, buyers, sellers map[int]core.Responder, optFns ...func(o *Options)) (*Runner, error) {
	if env == nil {
		return nil, fmt.Errorf("%w: episode must not be nil", core.ErrInvalidArgument)
	}
	if len(buyers) == 0 || len(sellers) == 0 {
		return nil, fmt.Errorf("%w: need at least one buyer and one seller responder", core.ErrInvalidArgument)
	}

	opts := Options{Logger: logging.NoOpLogger{}}
	for _, fn := range optFns {
		fn(&opts)
	}
	if opts.Logger == nil {
		opts.Logger = logging.NoOpLogger{}
	}

	return &Runner{env: env, buyers: buyers, sellers: sellers, opts: opts}, nil
}

// Run resets the episode and loops responder calls through Step until the
// episode terminates. The accumulated reward across all steps is returned in
// the summary.
func (r *Runner) Run(ctx context.Context, resetOpts core.ResetOptions) (*Summary, error) {
	obs, info, err := r.env.Reset(resetOpts)
	if err != nil {
		return nil, fmt.Errorf("reset: %w", err)
	}

	runID := core.NewID()
	log := r.opts.Logger
	log.Info("run started", "run_id", runID, "products", len(resetOpts.Products))

	var (
		total float64
		steps int
	)
	for len(obs.ActiveSlots) > 0 {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if r.opts.MaxSteps > 0 && steps >= r.opts.MaxSteps {
			return nil, fmt.Errorf("%w: step cap %d reached before termination", core.ErrInvalidState, r.opts.MaxSteps)
		}

		actions, err := r.collect(ctx, obs)
		if err != nil {
			return nil, err
		}

		res, err := r.env.Step(actions)
		if err != nil {
			return nil, fmt.Errorf("step: %w", err)
		}
		steps++
		total += res.Reward
		obs, info = res.Observation, res.Info
		log.Debug("round completed", "run_id", runID, "round", obs.CurrentRound, "status", string(info.Status), "reward", res.Reward)

		if res.Terminated || res.Truncated {
			break
		}
	}

	summary := &Summary{
		RunID:      runID,
		Outcome:    info.Status,
		FinalPrice: info.SellerPrice,
		Reward:     total,
		Rounds:     info.RoundsUsed,
		Turns:      obs.ConversationHistory,
		Info:       info,
	}
	log.Info("run finished", "run_id", runID, "outcome", string(summary.Outcome), "rounds", summary.Rounds, "reward", summary.Reward)

	if r.opts.Transcripts != nil {
		rec := &transcript.Record{
			ID:         runID,
			Turns:      summary.Turns,
			Outcome:    summary.Outcome,
			FinalPrice: summary.FinalPrice,
			Reward:     summary.Reward,
			Rounds:     summary.Rounds,
			Created:    time.Now(),
		}
		if err := r.opts.Transcripts.Save(rec); err != nil {
			return nil, fmt.Errorf("save transcript: %w", err)
		}
	}
	return summary, nil
}

// collect asks every active slot's responder for its utterance and assembles
// the round's action set.
func (r *Runner) collect(ctx context.Context, obs core.Observation) (core.Actions, error) {
	actions := make(core.Actions, len(obs.ActiveSlots))

	if !r.opts.Concurrent {
		for i, slot := range obs.ActiveSlots {
			text, err := r.respond(ctx, slot, obs)
			if err != nil {
				return nil, err
			}
			actions[i] = core.Action{Role: slot.Role, Participant: slot.Participant, Product: slot.Product, Content: text}
		}
		return actions, nil
	}

	var wg sync.WaitGroup
	errs := make([]error, len(obs.ActiveSlots))
	for i, slot := range obs.ActiveSlots {
		wg.Add(1)
		go func(i int, slot core.ActionSlot) {
			defer wg.Done()
			text, err := r.respond(ctx, slot, obs)
			if err != nil {
				errs[i] = err
				return
			}
			actions[i] = core.Action{Role: slot.Role, Participant: slot.Participant, Product: slot.Product, Content: text}
		}(i, slot)
	}
	wg.Wait()
	for _, err := range errs {
		if err != nil {
			return nil, err
		}
	}
	return actions, nil
}

func (r *Runner) respond(ctx context.Context, slot core.ActionSlot, obs core.Observation) (string, error) {
	var rsp core.Responder
	switch slot.Role {
	case core.RoleBuyer:
		rsp = r.buyers[slot.Participant]
	case core.RoleSeller:
		rsp = r.sellers[slot.Participant]
	}
	if rsp == nil {
		return "", fmt.Errorf("%w: no responder for %s %d", core.ErrInvalidArgument, slot.Role, slot.Participant)
	}
	text, err := rsp.Respond(ctx, obs.ConversationHistory, obs)
	if err != nil {
		return "", fmt.Errorf("%s %d respond: %w", slot.Role, slot.Participant, err)
	}
	return text, nil
}
