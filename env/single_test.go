package env

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/negomesh/core"
)

func laptop() core.Product {
	return core.Product{ID: "laptop", Name: "Laptop", ListPrice: 150}
}

func resetSingle(t *testing.T, e *SinglePair) core.Observation {
	t.Helper()
	obs, info, err := e.Reset(core.ResetOptions{Products: []core.Product{laptop()}})
	require.NoError(t, err)
	require.Equal(t, core.OutcomeOngoing, info.Status)
	return obs
}

func TestNewSinglePairValidation(t *testing.T) {
	_, err := NewSinglePair(-1, 80)
	assert.ErrorIs(t, err, core.ErrInvalidArgument)

	_, err = NewSinglePair(120, -1)
	assert.ErrorIs(t, err, core.ErrInvalidArgument)

	_, err = NewSinglePair(120, 80, func(o *Options) { o.Config.MaxRounds = 0 })
	assert.ErrorIs(t, err, core.ErrInvalidArgument)
}

func TestSinglePairResetValidation(t *testing.T) {
	e, err := NewSinglePair(120, 80)
	require.NoError(t, err)

	_, _, err = e.Reset(core.ResetOptions{})
	assert.ErrorIs(t, err, core.ErrInvalidArgument)

	_, _, err = e.Reset(core.ResetOptions{Products: []core.Product{laptop(), {ID: "x", ListPrice: 10}}})
	assert.ErrorIs(t, err, core.ErrInvalidArgument)

	_, _, err = e.Reset(core.ResetOptions{Products: []core.Product{{ListPrice: 10}}})
	assert.ErrorIs(t, err, core.ErrInvalidArgument)
}

func TestSinglePairStepBeforeReset(t *testing.T) {
	e, err := NewSinglePair(120, 80)
	require.NoError(t, err)

	_, err = e.StepPair("hi", "hello")
	assert.ErrorIs(t, err, core.ErrInvalidState)
}

func TestSinglePairInitialObservation(t *testing.T) {
	e, err := NewSinglePair(120, 80)
	require.NoError(t, err)
	obs := resetSingle(t, e)

	assert.Equal(t, 0, obs.CurrentRound)
	assert.Equal(t, 150.0, obs.SellerPrice)
	assert.Nil(t, obs.BuyerOffer)
	assert.Empty(t, obs.ConversationHistory)
	require.Len(t, obs.ActiveSlots, 2)
	assert.Equal(t, core.RoleBuyer, obs.ActiveSlots[0].Role)
	assert.Equal(t, core.RoleSeller, obs.ActiveSlots[1].Role)
	assert.NotEmpty(t, e.EpisodeID())
}

func TestSinglePairBasicDeal(t *testing.T) {
	e, err := NewSinglePair(120, 80)
	require.NoError(t, err)
	resetSingle(t, e)

	res, err := e.StepPair("I can offer $90.", "I can do $110.")
	require.NoError(t, err)
	assert.False(t, res.Terminated)
	assert.False(t, res.Truncated)
	assert.Equal(t, core.OutcomeOngoing, res.Info.Status)
	assert.Equal(t, 110.0, res.Observation.SellerPrice)
	require.NotNil(t, res.Observation.BuyerOffer)
	assert.Equal(t, 90.0, *res.Observation.BuyerOffer)
	assert.Len(t, res.Observation.ConversationHistory, 2)

	res, err = e.StepPair("Let's meet at $100.", "Deal at $100.")
	require.NoError(t, err)
	assert.True(t, res.Terminated)
	assert.False(t, res.Truncated)
	assert.Equal(t, core.OutcomeDealReached, res.Info.Status)
	assert.Equal(t, 100.0, res.Info.SellerPrice)
	assert.Equal(t, 20.0, res.Info.BuyerSavings)
	assert.Equal(t, 20.0, res.Info.SellerProfit)
	assert.Equal(t, 2, res.Info.RoundsUsed)
	assert.InDelta(t, 39.8, res.Reward, 1e-9)
	assert.Empty(t, res.Observation.ActiveSlots)
	assert.Equal(t, 100.0, e.FinalPrice())
}

func TestSinglePairTolerance(t *testing.T) {
	e, err := NewSinglePair(120, 80, func(o *Options) { o.Config.PriceTolerance = 5 })
	require.NoError(t, err)
	resetSingle(t, e)

	res, err := e.StepPair("I can offer $98.", "I can do $102.")
	require.NoError(t, err)
	assert.True(t, res.Terminated)
	assert.Equal(t, core.OutcomeDealReached, res.Info.Status)
	// Settlement is the seller's stated number.
	assert.Equal(t, 102.0, res.Info.SellerPrice)
}

func TestSinglePairBuyerRejection(t *testing.T) {
	e, err := NewSinglePair(120, 80)
	require.NoError(t, err)
	resetSingle(t, e)

	res, err := e.StepPair("This is too expensive, no deal.", "I can do $110.")
	require.NoError(t, err)
	assert.True(t, res.Terminated)
	assert.Equal(t, core.OutcomeBuyerRejected, res.Info.Status)
	assert.Equal(t, 0.0, res.Info.BuyerSavings)
	assert.Equal(t, 0.0, res.Info.SellerProfit)
}

func TestSinglePairSellerRejection(t *testing.T) {
	e, err := NewSinglePair(120, 80)
	require.NoError(t, err)
	resetSingle(t, e)

	res, err := e.StepPair("I can offer $90.", "I must decline, that is below cost.")
	require.NoError(t, err)
	assert.True(t, res.Terminated)
	assert.Equal(t, core.OutcomeSellerRejected, res.Info.Status)
}

func TestSinglePairTruncation(t *testing.T) {
	e, err := NewSinglePair(120, 80, func(o *Options) { o.Config.MaxRounds = 3 })
	require.NoError(t, err)
	resetSingle(t, e)

	for i := 0; i < 2; i++ {
		res, err := e.StepPair("I can offer $90.", "I can do $130.")
		require.NoError(t, err)
		require.False(t, res.Terminated)
		require.False(t, res.Truncated)
	}

	res, err := e.StepPair("I can offer $90.", "I can do $130.")
	require.NoError(t, err)
	assert.False(t, res.Terminated)
	assert.True(t, res.Truncated)
	assert.Equal(t, core.OutcomeTruncated, res.Info.Status)
	assert.Equal(t, 3, res.Info.RoundsUsed)
}

func TestSinglePairTruncationBeatsDeal(t *testing.T) {
	e, err := NewSinglePair(120, 80, func(o *Options) { o.Config.MaxRounds = 1 })
	require.NoError(t, err)
	resetSingle(t, e)

	// Budget exhaustion wins even when the texts would otherwise agree.
	res, err := e.StepPair("I can offer $100.", "Deal at $100.")
	require.NoError(t, err)
	assert.True(t, res.Truncated)
	assert.Equal(t, core.OutcomeTruncated, res.Info.Status)
}

func TestSinglePairTerminalStability(t *testing.T) {
	e, err := NewSinglePair(120, 80)
	require.NoError(t, err)
	resetSingle(t, e)

	_, err = e.StepPair("no deal", "I can do $110.")
	require.NoError(t, err)

	_, err = e.StepPair("I can offer $90.", "I can do $110.")
	assert.ErrorIs(t, err, core.ErrInvalidState)
	assert.Equal(t, core.OutcomeBuyerRejected, e.Status())
}

func TestSinglePairExtractionFailureKeepsPrices(t *testing.T) {
	e, err := NewSinglePair(120, 80)
	require.NoError(t, err)
	resetSingle(t, e)

	res, err := e.StepPair("Tell me more about the warranty.", "It ships with two years of coverage.")
	require.NoError(t, err)
	assert.Equal(t, 150.0, res.Observation.SellerPrice)
	assert.Nil(t, res.Observation.BuyerOffer)
	assert.Equal(t, core.OutcomeOngoing, res.Info.Status)
	assert.Len(t, res.Observation.ConversationHistory, 2)
}

func TestSinglePairAskMonotone(t *testing.T) {
	e, err := NewSinglePair(120, 80)
	require.NoError(t, err)
	resetSingle(t, e)

	res, err := e.StepPair("I can offer $90.", "I can do $110.")
	require.NoError(t, err)
	require.Equal(t, 110.0, res.Observation.SellerPrice)

	// A raise is ignored; the ask stays at its lowest stated value.
	res, err = e.StepPair("Still too much.", "Actually I want $140.")
	require.NoError(t, err)
	assert.Equal(t, 110.0, res.Observation.SellerPrice)
}

func TestSinglePairInvalidActionsLeaveStateUnchanged(t *testing.T) {
	e, err := NewSinglePair(120, 80)
	require.NoError(t, err)
	resetSingle(t, e)

	_, err = e.Step(core.Actions{{Role: core.RoleBuyer, Participant: 0, Content: "hi"}})
	assert.ErrorIs(t, err, core.ErrInvalidArgument)

	_, err = e.Step(core.Actions{
		{Role: core.RoleBuyer, Participant: 0, Content: "hi"},
		{Role: core.RoleBuyer, Participant: 0, Content: "again"},
	})
	assert.ErrorIs(t, err, core.ErrInvalidArgument)

	_, err = e.Step(core.Actions{
		{Role: core.RoleBuyer, Participant: 3, Content: "hi"},
		{Role: core.RoleSeller, Participant: 0, Content: "hello"},
	})
	assert.ErrorIs(t, err, core.ErrInvalidArgument)

	// The failed calls consumed no round and logged no turns.
	res, err := e.StepPair("I can offer $90.", "I can do $110.")
	require.NoError(t, err)
	assert.Equal(t, 1, res.Observation.CurrentRound)
	assert.Len(t, res.Observation.ConversationHistory, 2)
}

func TestSinglePairUserContextSurfaced(t *testing.T) {
	e, err := NewSinglePair(120, 80)
	require.NoError(t, err)

	obs, _, err := e.Reset(core.ResetOptions{
		Products:        []core.Product{laptop()},
		UserRequirement: "Need it for travel.",
		UserProfile:     "Student on a budget.",
	})
	require.NoError(t, err)
	assert.Equal(t, "Need it for travel.", obs.EnvironmentInfo["user_requirement"])
	assert.Equal(t, "Student on a budget.", obs.EnvironmentInfo["user_profile"])
}

func TestSinglePairRender(t *testing.T) {
	e, err := NewSinglePair(120, 80)
	require.NoError(t, err)

	var sb strings.Builder
	require.NoError(t, e.Render(&sb))
	assert.Contains(t, sb.String(), "uninitialized")

	resetSingle(t, e)
	_, err = e.StepPair("I can offer $90.", "I can do $110.")
	require.NoError(t, err)

	sb.Reset()
	require.NoError(t, e.Render(&sb))
	out := sb.String()
	assert.Contains(t, out, "product=laptop")
	assert.Contains(t, out, "ask=110.00")
	assert.Contains(t, out, "offer=90.00")
}

func TestSinglePairCloseIdempotent(t *testing.T) {
	e, err := NewSinglePair(120, 80)
	require.NoError(t, err)
	resetSingle(t, e)

	require.NoError(t, e.Close())
	require.NoError(t, e.Close())

	_, err = e.StepPair("hi", "hello")
	assert.ErrorIs(t, err, core.ErrInvalidState)
	_, _, err = e.Reset(core.ResetOptions{Products: []core.Product{laptop()}})
	assert.ErrorIs(t, err, core.ErrInvalidState)
}
