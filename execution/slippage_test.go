package execution

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSlippageSingleLeg(t *testing.T) {
	model := NewSlippageModel()
	// bid 5.00 / ask 5.50, one leg keeps 75% of the spread as cost
	assert.InDelta(t, 0.375, model.Estimate([]float64{0.50}), 1e-9)
}

func TestSlippageTwoLegSpread(t *testing.T) {
	model := NewSlippageModel()
	assert.InDelta(t, 0.455, model.Estimate([]float64{0.40, 0.30}), 1e-9)
}

func TestSlippageFourLegCondor(t *testing.T) {
	model := NewSlippageModel()
	assert.InDelta(t, 0.812, model.Estimate([]float64{0.50, 0.40, 0.30, 0.25}), 1e-9)
}

func TestSlippageUnknownLegCountUsesTwoLegFraction(t *testing.T) {
	model := NewSlippageModel()
	assert.InDelta(t, 0.65, model.Capture(3), 1e-9)
	assert.InDelta(t, 0.65, model.Capture(7), 1e-9)
}

func TestSlippageApplyDirection(t *testing.T) {
	model := NewSlippageModel()
	// credit shrinks, debit grows, and a tiny credit never flips sign
	assert.InDelta(t, 1.20, model.Apply(1.50, true, 0.30), 1e-9)
	assert.InDelta(t, 1.80, model.Apply(1.50, false, 0.30), 1e-9)
	assert.InDelta(t, 0, model.Apply(0.10, true, 0.30), 1e-9)
}

func TestCommissionRoundTrip(t *testing.T) {
	comm := CommissionModel{PerContract: 0.65}
	// 2 contracts, charged at entry and exit
	roundTrip := comm.Charge(2) + comm.Charge(2)
	assert.InDelta(t, 2.60, roundTrip, 1e-9)
}

func TestCommissionIndependentOfSlippage(t *testing.T) {
	comm := CommissionModel{PerContract: 0.65}
	before := comm.Charge(2)

	// changing the slippage model must not move the commission
	model := NewSlippageModel()
	_ = model.Estimate([]float64{0.50, 0.40, 0.30, 0.25})
	assert.Equal(t, before, comm.Charge(2))
	assert.Equal(t, 0.0, comm.Charge(0))
}
