// Package strategies contains the option strategy implementations that plug
// into the backtest engine. A strategy only proposes signals; the engine owns
// fills, risk checks and the ledger.
package strategies

import (
	"github.com/optionslab/wheelhouse/models"
	"github.com/optionslab/wheelhouse/settings"
)

// Strategy is the callback protocol the engine drives. OnMarketData sees the
// underlying bar first each timestep; OnOptionChain sees the chain snapshot
// afterwards, once exits have been evaluated. Either callback may return a
// signal, or nil when the strategy has nothing to propose.
type Strategy interface {
	Name() string
	Initialize(cfg *settings.Settings) error
	OnMarketData(bar *models.Bar) *models.OptionSignal
	OnOptionChain(chain *models.OptionChain) *models.OptionSignal
	Cleanup()
	Criteria() models.StrategyCriteria
}

// PositionObserver is implemented by strategies that track their own position
// state. The engine reports every open and close it books; strategies must
// not infer position changes any other way.
type PositionObserver interface {
	OnPositionOpened(trade *models.SimulatedTrade)
	OnPositionClosed(trade *models.SimulatedTrade)
}

// Direction is the underlying trend read shared by the directional strategies.
type Direction int

const (
	Flat Direction = iota
	Bullish
	Bearish
)

// trendDirection reads the precomputed indicators on a bar. SMA alignment
// picks the side, RSI extremes veto chasing an exhausted move.
func trendDirection(bar *models.Bar) Direction {
	if !bar.HasIndicators() {
		return Flat
	}
	if bar.SMA20 > bar.SMA50 && bar.Close > bar.SMA20 {
		if bar.RSI14 > 70 {
			return Flat
		}
		return Bullish
	}
	if bar.SMA20 < bar.SMA50 && bar.Close < bar.SMA20 {
		if bar.RSI14 < 30 {
			return Flat
		}
		return Bearish
	}
	return Flat
}

// criteriaFromSettings builds the common entry criteria every strategy starts
// from; individual strategies override what they need afterwards.
func criteriaFromSettings(cfg *settings.Settings) models.StrategyCriteria {
	return models.StrategyCriteria{
		MinDTE:           cfg.MinDTE,
		MaxDTE:           cfg.MaxDTE,
		CloseDTE:         cfg.CloseDTE,
		MinOpenInterest:  cfg.MinOpenInterest,
		MaxSpreadPct:     cfg.MaxSpreadPct,
		ProfitTargetPct:  cfg.ProfitTargetPct,
		StopLossPct:      cfg.StopLossPct,
		ContractQuantity: cfg.ContractQuantity,
	}
}

func legFromContract(c *models.OptionContract, side models.Side, quantity int) models.OptionLeg {
	return models.OptionLeg{
		Symbol:     c.Symbol,
		OptionType: c.OptionType,
		Strike:     c.Strike,
		Expiry:     c.Expiry,
		Side:       side,
		Quantity:   quantity,
	}
}
