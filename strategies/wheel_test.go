package strategies

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/optionslab/wheelhouse/models"
	"github.com/optionslab/wheelhouse/settings"
)

func wheelFixture(t *testing.T) *Wheel {
	t.Helper()
	cfg := settings.Default()
	strat := NewWheel(DefaultWheelConfig())
	require.NoError(t, strat.Initialize(&cfg))
	return strat
}

func closedWheelTrade(sigType models.SignalType, strike, entryNet, underlyingExit float64, reason models.ExitReason) *models.SimulatedTrade {
	return &models.SimulatedTrade{
		ID:         "wheel-trade",
		Strategy:   "wheel",
		SignalType: sigType,
		Status:     models.TradeClosed,
		EntryNet:   entryNet,
		Legs: []models.FilledLeg{{
			Contract: models.OptionContract{Strike: strike, OptionType: models.Put},
			Side:     models.Sell,
			Quantity: 1,
		}},
		ExitReason:     reason,
		UnderlyingExit: underlyingExit,
	}
}

func TestWheelStartsWithCashSecuredPut(t *testing.T) {
	strat := wheelFixture(t)
	assert.Equal(t, StateCashSecuredPut, strat.State())

	bar := barAt(450)
	strat.OnMarketData(bar)
	sig := strat.OnOptionChain(chainFor(bar))
	require.NotNil(t, sig)
	assert.Equal(t, models.SellPut, sig.Type)
	require.Len(t, sig.Legs, 1)
	assert.Equal(t, models.Sell, sig.Legs[0].Side)
	assert.Less(t, sig.Legs[0].Strike, 450.0)
}

func TestWheelOnlyOneWorkingPosition(t *testing.T) {
	strat := wheelFixture(t)
	bar := barAt(450)
	strat.OnMarketData(bar)
	chain := chainFor(bar)
	sig := strat.OnOptionChain(chain)
	require.NotNil(t, sig)

	strat.OnPositionOpened(&models.SimulatedTrade{Strategy: "wheel", SignalType: models.SellPut})
	assert.Nil(t, strat.OnOptionChain(chain), "no second signal while a leg is working")
}

func TestWheelAssignmentTransition(t *testing.T) {
	strat := wheelFixture(t)
	strat.OnPositionOpened(&models.SimulatedTrade{Strategy: "wheel", SignalType: models.SellPut})

	// short put expires in the money: assignment
	trade := closedWheelTrade(models.SellPut, 445, 300, 440, models.ExitExpiration)
	strat.OnPositionClosed(trade)
	assert.Equal(t, StateAssigned, strat.State())

	// next signal is a covered call at or above cost basis (445 - 3.00)
	bar := barAt(440)
	strat.OnMarketData(bar)
	sig := strat.OnOptionChain(chainFor(bar))
	require.NotNil(t, sig)
	assert.Equal(t, models.SellCall, sig.Type)
	assert.GreaterOrEqual(t, sig.Legs[0].Strike, 442.0)
}

func TestWheelNoAssignmentWhenPutExpiresWorthless(t *testing.T) {
	strat := wheelFixture(t)
	strat.OnPositionOpened(&models.SimulatedTrade{Strategy: "wheel", SignalType: models.SellPut})

	trade := closedWheelTrade(models.SellPut, 445, 300, 455, models.ExitExpiration)
	strat.OnPositionClosed(trade)
	assert.Equal(t, StateCashSecuredPut, strat.State())
}

func TestWheelSharesCalledAway(t *testing.T) {
	strat := wheelFixture(t)

	// assignment first
	strat.OnPositionOpened(&models.SimulatedTrade{Strategy: "wheel", SignalType: models.SellPut})
	strat.OnPositionClosed(closedWheelTrade(models.SellPut, 445, 300, 440, models.ExitExpiration))
	require.Equal(t, StateAssigned, strat.State())

	// covered call opens, then expires in the money
	strat.OnPositionOpened(&models.SimulatedTrade{Strategy: "wheel", SignalType: models.SellCall})
	assert.Equal(t, StateCoveredCall, strat.State())

	call := closedWheelTrade(models.SellCall, 450, 200, 455, models.ExitExpiration)
	call.Legs[0].Contract.OptionType = models.Call
	strat.OnPositionClosed(call)
	assert.Equal(t, StateCashSecuredPut, strat.State())
}

func TestWheelCoveredCallClosedEarlyStaysAssigned(t *testing.T) {
	strat := wheelFixture(t)
	strat.OnPositionOpened(&models.SimulatedTrade{Strategy: "wheel", SignalType: models.SellPut})
	strat.OnPositionClosed(closedWheelTrade(models.SellPut, 445, 300, 440, models.ExitExpiration))
	strat.OnPositionOpened(&models.SimulatedTrade{Strategy: "wheel", SignalType: models.SellCall})

	call := closedWheelTrade(models.SellCall, 450, 200, 448, models.ExitProfitTarget)
	call.Legs[0].Contract.OptionType = models.Call
	strat.OnPositionClosed(call)
	assert.Equal(t, StateAssigned, strat.State(), "shares are still held, sell another call")
}

func TestWheelIgnoresForeignTrades(t *testing.T) {
	strat := wheelFixture(t)
	strat.OnPositionOpened(&models.SimulatedTrade{Strategy: "vertical_spread", SignalType: models.BullPutSpread})

	bar := barAt(450)
	strat.OnMarketData(bar)
	assert.NotNil(t, strat.OnOptionChain(chainFor(bar)), "another strategy's fills must not block the wheel")
}

func TestWheelWindowEndClosureDoesNotAdvanceState(t *testing.T) {
	strat := wheelFixture(t)
	strat.OnPositionOpened(&models.SimulatedTrade{Strategy: "wheel", SignalType: models.SellPut})

	trade := closedWheelTrade(models.SellPut, 445, 300, 440, models.ExitWindowEnd)
	trade.ClosedAtWindowEnd = true
	strat.OnPositionClosed(trade)
	assert.Equal(t, StateCashSecuredPut, strat.State(), "a marked-to-window close is not an assignment")
}
