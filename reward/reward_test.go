package reward

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/hupe1980/negomesh/core"
)

func TestCompute_Deal(t *testing.T) {
	w := core.Weights{BuyerSavings: 1, SellerProfit: 1, TimeCost: 0}

	b := Compute(core.OutcomeDealReached, 100, 120, 80, 3, w)

	assert.Equal(t, 20.0, b.BuyerSavings)
	assert.Equal(t, 20.0, b.SellerProfit)
	assert.Equal(t, 0.0, b.TimeCost)
	assert.Equal(t, 40.0, b.Total)
}

func TestCompute_NoDealZeroesPriceComponents(t *testing.T) {
	w := core.Weights{BuyerSavings: 2, SellerProfit: 3, TimeCost: 0.5}

	for _, outcome := range []core.Outcome{
		core.OutcomeNoDeal,
		core.OutcomeBuyerRejected,
		core.OutcomeSellerRejected,
		core.OutcomeTruncated,
		core.OutcomeOngoing,
	} {
		b := Compute(outcome, 100, 120, 80, 4, w)
		assert.Zero(t, b.BuyerSavings, "outcome %s", outcome)
		assert.Zero(t, b.SellerProfit, "outcome %s", outcome)
		assert.Equal(t, -2.0, b.TimeCost, "outcome %s", outcome)
		assert.Equal(t, -2.0, b.Total, "outcome %s", outcome)
	}
}

func TestCompute_ZeroWeightsYieldZeroTotal(t *testing.T) {
	b := Compute(core.OutcomeDealReached, 100, 120, 80, 7, core.Weights{})

	assert.Equal(t, 20.0, b.BuyerSavings)
	assert.Equal(t, 20.0, b.SellerProfit)
	assert.Zero(t, b.Total)
}

func TestCompute_NegativeWeightsPermitted(t *testing.T) {
	w := core.Weights{BuyerSavings: -1, SellerProfit: 1, TimeCost: -0.5}

	b := Compute(core.OutcomeDealReached, 90, 120, 80, 2, w)

	assert.Equal(t, 30.0, b.BuyerSavings)
	assert.Equal(t, 10.0, b.SellerProfit)
	assert.Equal(t, 1.0, b.TimeCost)
	assert.Equal(t, -30.0+10.0+1.0, b.Total)
}
