// Package execution contains the realism models the engine consults when
// simulating order execution: fill probability, gap risk while the market
// is closed, and slippage/commission costs.
package execution

import (
	"time"

	"github.com/optionslab/wheelhouse/models"
)

// FillContext carries the market-condition inputs the fill model scores.
type FillContext struct {
	OpenInterest   int
	SpreadPct      float64 // bid-ask spread as percent of mid
	Timestamp      time.Time
	VolIndex       float64 // VIX-style volatility regime proxy
	OrderSize      int     // contracts
	AvgDailyVolume float64 // contracts per day
	OptionType     models.OptionType
	IsClosing      bool // closing orders are worked harder and fill easier
}

// FillConfig holds the model thresholds. Zero values are replaced by
// DefaultFillConfig's at construction.
type FillConfig struct {
	MinOpenInterest        int
	MaxSpreadPct           float64
	IlliquidHourMultiplier float64 // opening/closing half hour
	HighVolMultiplier      float64 // vol index above 30
	SessionOpenMinute      int     // minutes after midnight, exchange local
	SessionCloseMinute     int
}

func DefaultFillConfig() FillConfig {
	return FillConfig{
		MinOpenInterest:        50,
		MaxSpreadPct:           10,
		IlliquidHourMultiplier: 0.85,
		HighVolMultiplier:      0.90,
		SessionOpenMinute:      9*60 + 30,
		SessionCloseMinute:     16 * 60,
	}
}

// FillProbabilityModel scores whether a resting limit order would
// realistically have executed. The score is deterministic; WillFill applies
// the caller's random draw so runs stay reproducible.
type FillProbabilityModel struct {
	cfg FillConfig
}

func NewFillProbabilityModel(cfg FillConfig) *FillProbabilityModel {
	def := DefaultFillConfig()
	if cfg.IlliquidHourMultiplier == 0 {
		cfg.IlliquidHourMultiplier = def.IlliquidHourMultiplier
	}
	if cfg.HighVolMultiplier == 0 {
		cfg.HighVolMultiplier = def.HighVolMultiplier
	}
	if cfg.SessionOpenMinute == 0 {
		cfg.SessionOpenMinute = def.SessionOpenMinute
	}
	if cfg.SessionCloseMinute == 0 {
		cfg.SessionCloseMinute = def.SessionCloseMinute
	}
	return &FillProbabilityModel{cfg: cfg}
}

// Probability returns the modeled fill probability in [0, 1]. Penalties are
// applied multiplicatively in a fixed order; the open-interest and spread
// gates reject outright below/above their hard thresholds.
func (m *FillProbabilityModel) Probability(ctx FillContext) float64 {
	p := 1.0

	// Open-interest gate, then tiered liquidity penalty.
	if ctx.OpenInterest < m.cfg.MinOpenInterest {
		return 0
	}
	switch {
	case ctx.OpenInterest < 200:
		p *= 0.50
	case ctx.OpenInterest < 500:
		p *= 0.75
	case ctx.OpenInterest < 1000:
		p *= 0.90
	}

	// Spread gate, then tiered spread penalty.
	if ctx.SpreadPct > m.cfg.MaxSpreadPct {
		return 0
	}
	switch {
	case ctx.SpreadPct > 7:
		p *= 0.60
	case ctx.SpreadPct > 5:
		p *= 0.80
	case ctx.SpreadPct > 3:
		p *= 0.95
	}

	if m.isIlliquidHour(ctx.Timestamp) {
		p *= m.cfg.IlliquidHourMultiplier
	}

	if ctx.VolIndex > 40 {
		p *= 0.80
	} else if ctx.VolIndex > 30 {
		p *= m.cfg.HighVolMultiplier
	}

	if ctx.AvgDailyVolume > 0 {
		impact := float64(ctx.OrderSize) / ctx.AvgDailyVolume
		if impact > 0.20 {
			p *= 0.50
		} else if impact > 0.10 {
			p *= 0.75
		}
	}

	// Closing orders get worked; bonus never pushes past certainty.
	if ctx.IsClosing {
		p *= 1.10
		if p > 1 {
			p = 1
		}
	}

	if p < 0 {
		p = 0
	} else if p > 1 {
		p = 1
	}
	return p
}

// WillFill decides a fill from a uniform draw in [0, 1). The draw comes from
// the engine's seeded generator, never a global random stream.
func (m *FillProbabilityModel) WillFill(ctx FillContext, draw float64) bool {
	p := m.Probability(ctx)
	if p <= 0 {
		return false
	}
	if p >= 1 {
		return true
	}
	return draw < p
}

// isIlliquidHour reports whether ts falls in the opening or closing half
// hour of the session. Timestamps are interpreted in their own location.
func (m *FillProbabilityModel) isIlliquidHour(ts time.Time) bool {
	minute := ts.Hour()*60 + ts.Minute()
	if minute >= m.cfg.SessionOpenMinute && minute < m.cfg.SessionOpenMinute+30 {
		return true
	}
	if minute >= m.cfg.SessionCloseMinute-30 && minute < m.cfg.SessionCloseMinute {
		return true
	}
	return false
}
