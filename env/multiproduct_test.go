package env

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/negomesh/core"
)

func pairFactory(buyerMax, sellerMin float64, rounds int) SubFactory {
	return func(core.Product) (core.Episode, error) {
		return NewSinglePair(buyerMax, sellerMin, func(o *Options) {
			o.Config.MaxRounds = rounds
		})
	}
}

func twoProducts() []core.Product {
	return []core.Product{
		{ID: "laptop", Name: "Laptop", ListPrice: 150},
		{ID: "mouse", Name: "Mouse", ListPrice: 40},
	}
}

func act(role core.Role, product, content string) core.Action {
	return core.Action{Role: role, Participant: 0, Product: product, Content: content}
}

func TestNewMultiProductValidation(t *testing.T) {
	_, err := NewMultiProduct(nil)
	assert.ErrorIs(t, err, core.ErrInvalidArgument)
}

func TestMultiProductResetValidation(t *testing.T) {
	m, err := NewMultiProduct(pairFactory(120, 80, 10))
	require.NoError(t, err)

	_, _, err = m.Reset(core.ResetOptions{})
	assert.ErrorIs(t, err, core.ErrInvalidArgument)

	_, _, err = m.Reset(core.ResetOptions{Products: []core.Product{laptop(), laptop()}})
	assert.ErrorIs(t, err, core.ErrInvalidArgument)
}

func TestMultiProductIndependentSlices(t *testing.T) {
	m, err := NewMultiProduct(pairFactory(120, 20, 10), func(o *Options) {
		o.Config.MaxRounds = 30
	})
	require.NoError(t, err)

	obs, info, err := m.Reset(core.ResetOptions{Products: twoProducts()})
	require.NoError(t, err)
	assert.Equal(t, core.OutcomeOngoing, info.Status)
	require.Len(t, obs.ActiveSlots, 4)

	// Laptop settles immediately, mouse keeps negotiating.
	res, err := m.Step(core.Actions{
		act(core.RoleBuyer, "laptop", "I can offer $100."),
		act(core.RoleSeller, "laptop", "Deal at $100."),
		act(core.RoleBuyer, "mouse", "I can offer $25."),
		act(core.RoleSeller, "mouse", "I can do $35."),
	})
	require.NoError(t, err)
	assert.False(t, res.Terminated)
	assert.Equal(t, core.OutcomeOngoing, res.Info.Status)
	require.Len(t, res.Observation.ActiveSlots, 2)
	assert.Equal(t, "mouse", res.Observation.ActiveSlots[0].Product)

	// Acting on the resolved product is rejected atomically.
	_, err = m.Step(core.Actions{
		act(core.RoleBuyer, "laptop", "I can offer $90."),
		act(core.RoleSeller, "laptop", "ok"),
		act(core.RoleBuyer, "mouse", "I can offer $30."),
		act(core.RoleSeller, "mouse", "Deal at $30."),
	})
	assert.ErrorIs(t, err, core.ErrInvalidArgument)

	// Mouse settles; every product dealt resolves the episode as a deal.
	res, err = m.Step(core.Actions{
		act(core.RoleBuyer, "mouse", "I can offer $30."),
		act(core.RoleSeller, "mouse", "Deal at $30."),
	})
	require.NoError(t, err)
	assert.True(t, res.Terminated)
	assert.Equal(t, core.OutcomeDealReached, res.Info.Status)
	assert.Empty(t, res.Observation.ActiveSlots)

	products := res.Info.Extra["products"].(map[string]any)
	mouse := products["mouse"].(map[string]any)
	assert.Equal(t, string(core.OutcomeDealReached), mouse["status"])
	assert.Equal(t, 30.0, mouse["seller_price"])
}

func TestMultiProductActionsMustNameProduct(t *testing.T) {
	m, err := NewMultiProduct(pairFactory(120, 20, 10))
	require.NoError(t, err)
	_, _, err = m.Reset(core.ResetOptions{Products: twoProducts()})
	require.NoError(t, err)

	_, err = m.Step(core.Actions{
		{Role: core.RoleBuyer, Participant: 0, Content: "hi"},
		act(core.RoleSeller, "laptop", "hello"),
		act(core.RoleBuyer, "mouse", "hey"),
		act(core.RoleSeller, "mouse", "hi"),
	})
	assert.ErrorIs(t, err, core.ErrInvalidArgument)

	_, err = m.Step(core.Actions{
		act(core.RoleBuyer, "keyboard", "hi"),
		act(core.RoleSeller, "laptop", "hello"),
		act(core.RoleBuyer, "mouse", "hey"),
		act(core.RoleSeller, "mouse", "hi"),
	})
	assert.ErrorIs(t, err, core.ErrInvalidArgument)
}

func TestMultiProductInvalidSliceLeavesAllUnchanged(t *testing.T) {
	m, err := NewMultiProduct(pairFactory(120, 20, 10))
	require.NoError(t, err)
	_, _, err = m.Reset(core.ResetOptions{Products: twoProducts()})
	require.NoError(t, err)

	// Laptop's actions are fine; mouse is missing the seller. Nothing steps.
	_, err = m.Step(core.Actions{
		act(core.RoleBuyer, "laptop", "I can offer $100."),
		act(core.RoleSeller, "laptop", "Deal at $100."),
		act(core.RoleBuyer, "mouse", "I can offer $25."),
	})
	assert.ErrorIs(t, err, core.ErrInvalidArgument)

	res, err := m.Step(core.Actions{
		act(core.RoleBuyer, "laptop", "I can offer $100."),
		act(core.RoleSeller, "laptop", "I can do $110."),
		act(core.RoleBuyer, "mouse", "I can offer $25."),
		act(core.RoleSeller, "mouse", "I can do $35."),
	})
	require.NoError(t, err)
	assert.Equal(t, 1, res.Observation.CurrentRound)
	assert.Len(t, res.Observation.ConversationHistory, 4)
}

func TestMultiProductGlobalBudgetTruncates(t *testing.T) {
	m, err := NewMultiProduct(pairFactory(120, 20, 10), func(o *Options) {
		o.Config.MaxRounds = 1
	})
	require.NoError(t, err)
	_, _, err = m.Reset(core.ResetOptions{Products: twoProducts()})
	require.NoError(t, err)

	res, err := m.Step(core.Actions{
		act(core.RoleBuyer, "laptop", "I can offer $100."),
		act(core.RoleSeller, "laptop", "I can do $130."),
		act(core.RoleBuyer, "mouse", "I can offer $25."),
		act(core.RoleSeller, "mouse", "I can do $35."),
	})
	require.NoError(t, err)
	assert.True(t, res.Truncated)
	assert.Equal(t, core.OutcomeTruncated, res.Info.Status)
	assert.Empty(t, res.Observation.ActiveSlots)

	// Force-closed slices report the truncation round, not a stale count,
	// because every unresolved slice steps in the truncating round.
	products, ok := res.Info.Extra["products"].(map[string]any)
	require.True(t, ok)
	for _, id := range []string{"laptop", "mouse"} {
		slice, ok := products[id].(map[string]any)
		require.True(t, ok, id)
		assert.Equal(t, string(core.OutcomeTruncated), slice["status"], id)
		assert.Equal(t, 1, slice["rounds_used"], id)
	}
}

func TestMultiProductRewardIsSliceSum(t *testing.T) {
	m, err := NewMultiProduct(pairFactory(120, 20, 10), func(o *Options) {
		o.Config.MaxRounds = 30
	})
	require.NoError(t, err)
	_, _, err = m.Reset(core.ResetOptions{Products: twoProducts()})
	require.NoError(t, err)

	// Both products settle in the same round. Per slice:
	// laptop: (120-100) + (100-20) - 0.1 = 99.9
	// mouse:  (120-30)  + (30-20)  - 0.1 = 99.9
	res, err := m.Step(core.Actions{
		act(core.RoleBuyer, "laptop", "I can offer $100."),
		act(core.RoleSeller, "laptop", "Deal at $100."),
		act(core.RoleBuyer, "mouse", "I can offer $30."),
		act(core.RoleSeller, "mouse", "Deal at $30."),
	})
	require.NoError(t, err)
	assert.True(t, res.Terminated)
	assert.InDelta(t, 199.8, res.Reward, 1e-9)
}

func TestMultiProductCloseIdempotent(t *testing.T) {
	m, err := NewMultiProduct(pairFactory(120, 20, 10))
	require.NoError(t, err)
	_, _, err = m.Reset(core.ResetOptions{Products: twoProducts()})
	require.NoError(t, err)

	require.NoError(t, m.Close())
	require.NoError(t, m.Close())
	_, err = m.Step(core.Actions{act(core.RoleBuyer, "laptop", "hi")})
	assert.ErrorIs(t, err, core.ErrInvalidState)
}
