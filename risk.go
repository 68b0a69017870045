package wheelhouse

import (
	"fmt"
	"time"

	"github.com/optionslab/wheelhouse/models"
	"github.com/optionslab/wheelhouse/settings"
)

// RiskSnapshot is the account state a risk gate sees when screening an
// entry.
type RiskSnapshot struct {
	Timestamp time.Time
	Equity    float64
	VolIndex  float64
}

// RiskManager screens prospective entries. ApproveEntry returns a non-nil
// error to veto; the engine attributes the signal and moves on. MarkEquity
// is called once per timestep so the gate can track drawdown and daily
// loss.
type RiskManager interface {
	ApproveEntry(signal *models.OptionSignal, maxRisk float64, snap RiskSnapshot) error
	MarkEquity(ts time.Time, equity float64)
}

// DefaultRiskManager halts new entries past a max equity drawdown, for the
// remainder of a day that breaches the daily loss limit, and while the
// volatility regime is above the configured high-water mark. It never
// forces exits; open positions run their own lifecycle.
type DefaultRiskManager struct {
	maxDrawdownPct    float64
	dailyLossPct      float64
	volIndexHighWater float64

	peakEquity     float64
	dayStartEquity float64
	day            time.Time
	equity         float64
}

func NewDefaultRiskManager(cfg *settings.Settings) *DefaultRiskManager {
	return &DefaultRiskManager{
		maxDrawdownPct:    cfg.MaxDrawdownPct,
		dailyLossPct:      cfg.DailyLossLimitPct,
		volIndexHighWater: cfg.VolIndexHighWater,
	}
}

func (r *DefaultRiskManager) MarkEquity(ts time.Time, equity float64) {
	r.equity = equity
	if equity > r.peakEquity {
		r.peakEquity = equity
	}
	day := ts.Truncate(24 * time.Hour)
	if !day.Equal(r.day) {
		r.day = day
		r.dayStartEquity = equity
	}
}

func (r *DefaultRiskManager) ApproveEntry(signal *models.OptionSignal, maxRisk float64, snap RiskSnapshot) error {
	if r.maxDrawdownPct > 0 && r.peakEquity > 0 {
		dd := (r.peakEquity - snap.Equity) / r.peakEquity
		if dd > r.maxDrawdownPct {
			return fmt.Errorf("drawdown %.1f%% past limit %.1f%%", dd*100, r.maxDrawdownPct*100)
		}
	}
	if r.dailyLossPct > 0 && r.dayStartEquity > 0 {
		loss := (r.dayStartEquity - snap.Equity) / r.dayStartEquity
		if loss > r.dailyLossPct {
			return fmt.Errorf("daily loss %.1f%% past limit %.1f%%", loss*100, r.dailyLossPct*100)
		}
	}
	if r.volIndexHighWater > 0 && snap.VolIndex > r.volIndexHighWater {
		return fmt.Errorf("vol index %.1f above high water %.1f", snap.VolIndex, r.volIndexHighWater)
	}
	return nil
}
