package models

import (
	"fmt"
	"time"
)

// EquityPoint is one sample of the equity curve.
type EquityPoint struct {
	Timestamp int64   `csv:"timestamp"`
	Equity    float64 `csv:"equity"`
	Cash      float64 `csv:"cash"`
	OpenValue float64 `csv:"open_value"`
}

// BacktestLedger owns the trade list, running cash and buying power, and
// the equity curve. It is mutated only by the engine; buying power reserved
// at open is released exactly once, inside CloseTrade, which is the only
// close path (SimulatedTrade.Close rejects a second transition before any
// release happens).
type BacktestLedger struct {
	StartingCapital float64
	Cash            float64
	BuyingPower     float64
	Trades          []*SimulatedTrade
	EquityCurve     []EquityPoint
}

func NewBacktestLedger(capital float64) *BacktestLedger {
	return &BacktestLedger{
		StartingCapital: capital,
		Cash:            capital,
		BuyingPower:     capital,
	}
}

// OpenTrade books a freshly filled position: reserves its max risk from
// buying power and moves the entry premium and commission through cash.
func (l *BacktestLedger) OpenTrade(t *SimulatedTrade) error {
	if t.Status != TradeOpen {
		return fmt.Errorf("ledger: cannot open trade %v with status %v", t.ID, t.Status)
	}
	if t.MaxRisk > l.BuyingPower {
		return fmt.Errorf("ledger: trade %v risk %.2f exceeds buying power %.2f", t.ID, t.MaxRisk, l.BuyingPower)
	}
	l.BuyingPower -= t.MaxRisk
	if t.IsCredit {
		l.Cash += t.EntryNet - t.EntryCommission
	} else {
		l.Cash -= t.EntryNet + t.EntryCommission
	}
	l.Trades = append(l.Trades, t)
	return nil
}

// CloseTrade transitions the position to closed, settles cash and releases
// the reserved buying power.
func (l *BacktestLedger) CloseTrade(t *SimulatedTrade, ts time.Time, exitNet, exitSlippage, exitCommission float64, reason ExitReason) error {
	if err := t.Close(ts, exitNet, exitSlippage, exitCommission, reason); err != nil {
		return err
	}
	if t.IsCredit {
		l.Cash -= exitNet + exitCommission
	} else {
		l.Cash += exitNet - exitCommission
	}
	l.BuyingPower += t.MaxRisk
	return nil
}

func (l *BacktestLedger) OpenTrades() []*SimulatedTrade {
	var open []*SimulatedTrade
	for _, t := range l.Trades {
		if t.Status == TradeOpen {
			open = append(open, t)
		}
	}
	return open
}

func (l *BacktestLedger) ClosedTrades() []*SimulatedTrade {
	var closed []*SimulatedTrade
	for _, t := range l.Trades {
		if t.Status == TradeClosed {
			closed = append(closed, t)
		}
	}
	return closed
}

// MarkEquity appends an equity sample. openValue is the signed
// mark-to-market of all open positions: positive for long (debit) value
// held, negative for the cost to buy back open credit positions.
func (l *BacktestLedger) MarkEquity(ts time.Time, openValue float64) {
	l.EquityCurve = append(l.EquityCurve, EquityPoint{
		Timestamp: ts.UnixMilli(),
		Equity:    l.Cash + openValue,
		Cash:      l.Cash,
		OpenValue: openValue,
	})
}

// TotalCommissions sums entry and exit commissions across all trades.
func (l *BacktestLedger) TotalCommissions() float64 {
	total := 0.0
	for _, t := range l.Trades {
		total += t.EntryCommission + t.ExitCommission
	}
	return total
}
