package models

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

type TradeStatus string

const (
	TradeOpen   TradeStatus = "open"
	TradeClosed TradeStatus = "closed"
)

type ExitReason string

const (
	ExitProfitTarget ExitReason = "profit_target"
	ExitStopLoss     ExitReason = "stop_loss"
	ExitCloseDTE     ExitReason = "close_dte"
	ExitExpiration   ExitReason = "expiration"
	ExitWindowEnd    ExitReason = "window_end"
	ExitManual       ExitReason = "manual"
)

var (
	// ErrAlreadyClosed is a programming error: positions transition to the
	// closed state exactly once.
	ErrAlreadyClosed = errors.New("trade already closed")
	// ErrExitBeforeEntry is a programming error in the replay ordering.
	ErrExitBeforeEntry = errors.New("exit timestamp precedes entry")
)

// FilledLeg is a signal leg with its resolved contract and fill price.
type FilledLeg struct {
	Contract  OptionContract
	Side      Side
	Quantity  int
	FillPrice float64 // per share, slippage applied
}

// SimulatedTrade is one booked position. Created when the engine fills a
// signal, mutated only by Close, after which it is terminal.
//
// EntryNet and ExitNet are dollar amounts (per-share premium x 100 x
// quantity) with slippage already applied; commissions are tracked
// separately so one can be zeroed without the other.
type SimulatedTrade struct {
	ID         string
	Strategy   string
	Underlying string
	SignalType SignalType
	Legs       []FilledLeg
	IsCredit   bool

	EntryTimestamp  time.Time
	EntryNet        float64 // credit received or debit paid, always >= 0
	EntrySlippage   float64
	EntryCommission float64
	EntryDTE        int
	MaxRisk         float64 // buying power reserved while open

	Status            TradeStatus
	ExitTimestamp     time.Time
	ExitNet           float64 // cost to close (credit) or value received (debit)
	ExitSlippage      float64
	ExitCommission    float64
	ExitReason        ExitReason
	RealizedPnL       float64 // net of slippage and commission
	UnderlyingExit    float64 // underlying price at close
	ClosedAtWindowEnd bool    // marked to last quote, not a real exit event
}

func NewSimulatedTrade(signal *OptionSignal, legs []FilledLeg, entry time.Time) *SimulatedTrade {
	return &SimulatedTrade{
		ID:             uuid.New().String(),
		Strategy:       signal.Strategy,
		Underlying:     signal.Underlying,
		SignalType:     signal.Type,
		Legs:           legs,
		EntryTimestamp: entry,
		Status:         TradeOpen,
	}
}

// UnrealizedPnL is the gross P&L against the current cost to close the
// position, before commissions.
func (t *SimulatedTrade) UnrealizedPnL(closeNet float64) float64 {
	if t.IsCredit {
		return t.EntryNet - closeNet
	}
	return closeNet - t.EntryNet
}

// PnLPct is the unrealized P&L as a fraction of the entry credit or debit.
func (t *SimulatedTrade) PnLPct(closeNet float64) float64 {
	if t.EntryNet == 0 {
		return 0
	}
	return t.UnrealizedPnL(closeNet) / t.EntryNet
}

// Contracts is the total contract count across legs.
func (t *SimulatedTrade) Contracts() int {
	total := 0
	for _, leg := range t.Legs {
		total += leg.Quantity
	}
	return total
}

// HoldingPeriod returns time in position; zero while still open.
func (t *SimulatedTrade) HoldingPeriod() time.Duration {
	if t.Status != TradeClosed {
		return 0
	}
	return t.ExitTimestamp.Sub(t.EntryTimestamp)
}

// Close transitions the trade to its terminal state and books realized P&L
// net of slippage (already inside exitNet) and both commissions. Closing a
// closed trade is an invariant violation and errors.
func (t *SimulatedTrade) Close(ts time.Time, exitNet, exitSlippage, exitCommission float64, reason ExitReason) error {
	if t.Status == TradeClosed {
		return fmt.Errorf("close %v: %w", t.ID, ErrAlreadyClosed)
	}
	if ts.Before(t.EntryTimestamp) {
		return fmt.Errorf("close %v at %v, entered %v: %w", t.ID, ts, t.EntryTimestamp, ErrExitBeforeEntry)
	}
	t.Status = TradeClosed
	t.ExitTimestamp = ts
	t.ExitNet = exitNet
	t.ExitSlippage = exitSlippage
	t.ExitCommission = exitCommission
	t.ExitReason = reason
	t.ClosedAtWindowEnd = reason == ExitWindowEnd
	t.RealizedPnL = t.UnrealizedPnL(exitNet) - t.EntryCommission - exitCommission
	return nil
}
