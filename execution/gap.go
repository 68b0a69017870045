package execution

import (
	"math"
	"time"
)

// GapRiskConfig parameterizes the overnight/weekend gap model. The stop
// breach threshold is configurable rather than pinned at -100% of the entry
// credit; the default keeps the conventional behavior.
type GapRiskConfig struct {
	SessionOpenMinute  int     // minutes after midnight, exchange local
	SessionCloseMinute int
	AvgOvernightGapPct float64 // typical one-night gap, e.g. 0.01
	WeekendMultiplier  float64 // applied when the market is closed > 60h
	EarningsMultiplier float64
	BaselineVol        float64 // IV the gap estimate is normalized to
	StopSlippagePct    float64 // extra cost as fraction of notional when a stop is gapped through
	StopBreachPct      float64 // loss fraction of entry credit past which a stop would have fired
}

func DefaultGapRiskConfig() GapRiskConfig {
	return GapRiskConfig{
		SessionOpenMinute:  9*60 + 30,
		SessionCloseMinute: 16 * 60,
		AvgOvernightGapPct: 0.01,
		WeekendMultiplier:  1.5,
		EarningsMultiplier: 3.0,
		BaselineVol:        0.20,
		StopSlippagePct:    0.05,
		StopBreachPct:      1.0,
	}
}

// GapRiskModel estimates the P&L impact of holding a position while the
// market is closed and a stop cannot execute.
type GapRiskModel struct {
	cfg GapRiskConfig
}

func NewGapRiskModel(cfg GapRiskConfig) *GapRiskModel {
	def := DefaultGapRiskConfig()
	if cfg.SessionOpenMinute == 0 {
		cfg.SessionOpenMinute = def.SessionOpenMinute
	}
	if cfg.SessionCloseMinute == 0 {
		cfg.SessionCloseMinute = def.SessionCloseMinute
	}
	if cfg.AvgOvernightGapPct == 0 {
		cfg.AvgOvernightGapPct = def.AvgOvernightGapPct
	}
	if cfg.WeekendMultiplier == 0 {
		cfg.WeekendMultiplier = def.WeekendMultiplier
	}
	if cfg.EarningsMultiplier == 0 {
		cfg.EarningsMultiplier = def.EarningsMultiplier
	}
	if cfg.BaselineVol == 0 {
		cfg.BaselineVol = def.BaselineVol
	}
	if cfg.StopSlippagePct == 0 {
		cfg.StopSlippagePct = def.StopSlippagePct
	}
	if cfg.StopBreachPct == 0 {
		cfg.StopBreachPct = def.StopBreachPct
	}
	return &GapRiskModel{cfg: cfg}
}

// IsMarketOpen is false on weekends and outside the session window on
// weekdays.
func (g *GapRiskModel) IsMarketOpen(ts time.Time) bool {
	switch ts.Weekday() {
	case time.Saturday, time.Sunday:
		return false
	}
	minute := ts.Hour()*60 + ts.Minute()
	return minute >= g.cfg.SessionOpenMinute && minute < g.cfg.SessionCloseMinute
}

// NextMarketOpen returns the first session open strictly after ts if the
// market is closed at ts, or ts itself when it is open. Weekends are
// skipped, so Friday evening and Saturday both land on Monday morning.
func (g *GapRiskModel) NextMarketOpen(ts time.Time) time.Time {
	if g.IsMarketOpen(ts) {
		return ts
	}
	day := time.Date(ts.Year(), ts.Month(), ts.Day(), 0, 0, 0, 0, ts.Location())
	open := day.Add(time.Duration(g.cfg.SessionOpenMinute) * time.Minute)
	if ts.Before(open) && isWeekday(ts) {
		return open
	}
	for {
		day = day.AddDate(0, 0, 1)
		if isWeekday(day) {
			return day.Add(time.Duration(g.cfg.SessionOpenMinute) * time.Minute)
		}
	}
}

// HoursUntilMarketOpen is 0 while the market is open.
func (g *GapRiskModel) HoursUntilMarketOpen(ts time.Time) float64 {
	return g.NextMarketOpen(ts).Sub(ts).Hours()
}

// GapPercent is the expected adverse gap over the current closed period:
// the average overnight gap scaled by sqrt of days closed, a weekend
// multiplier past 60 closed hours, an earnings multiplier when flagged, and
// the underlying's volatility relative to the baseline.
func (g *GapRiskModel) GapPercent(ts time.Time, underlyingVol float64, isEarnings bool) float64 {
	hoursClosed := g.HoursUntilMarketOpen(ts)
	if hoursClosed <= 0 {
		return 0
	}
	daysClosed := hoursClosed / 24
	gap := g.cfg.AvgOvernightGapPct * math.Sqrt(daysClosed)
	if hoursClosed > 60 {
		gap *= g.cfg.WeekendMultiplier
	}
	if isEarnings {
		gap *= g.cfg.EarningsMultiplier
	}
	if underlyingVol > 0 {
		gap *= underlyingVol / g.cfg.BaselineVol
	}
	return gap
}

// EstimateGapImpact returns the extra slippage cost of a stop that would
// have fired while the market was closed: zero when the market is open or
// when the position has not breached the stop threshold, otherwise a
// fraction of position notional. positionPnLPct is the P&L as a fraction of
// the entry credit (-1.0 means the full credit has been lost).
func (g *GapRiskModel) EstimateGapImpact(positionPnLPct, positionNotional float64, ts time.Time, underlyingVol float64, isEarnings bool) float64 {
	if g.IsMarketOpen(ts) {
		return 0
	}
	if positionPnLPct >= -g.cfg.StopBreachPct {
		return 0
	}
	return positionNotional * g.cfg.StopSlippagePct
}

// ShouldCheckGapRisk is true exactly when the step from current to next
// crosses an open/closed session boundary in either direction.
func (g *GapRiskModel) ShouldCheckGapRisk(current, next time.Time) bool {
	return g.IsMarketOpen(current) != g.IsMarketOpen(next)
}

func isWeekday(ts time.Time) bool {
	wd := ts.Weekday()
	return wd != time.Saturday && wd != time.Sunday
}
