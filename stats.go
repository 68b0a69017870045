package wheelhouse

import (
	"bytes"
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/fatih/structs"
	"gonum.org/v1/gonum/stat"

	"github.com/optionslab/wheelhouse/models"
	"github.com/optionslab/wheelhouse/settings"
)

// ComputeMetrics derives the run metrics from the closed-trade list and the
// equity curve. It is called once, after the replay loop ends; a run with
// zero trades yields zeroed metrics rather than NaN.
func ComputeMetrics(ledger *models.BacktestLedger, cfg *settings.Settings, start, end time.Time) models.BacktestMetrics {
	m := models.BacktestMetrics{
		StartingEquity: ledger.StartingCapital,
		EndingEquity:   ledger.StartingCapital,
	}
	if n := len(ledger.EquityCurve); n > 0 {
		m.EndingEquity = ledger.EquityCurve[n-1].Equity
	}
	m.TotalReturn = m.EndingEquity - m.StartingEquity
	if m.StartingEquity > 0 {
		m.TotalReturnPercent = m.TotalReturn / m.StartingEquity * 100
	}
	m.ElapsedDays = end.Sub(start).Hours() / 24
	if m.ElapsedDays > 0 {
		m.AnnualizedReturn = m.TotalReturnPercent * 365 / m.ElapsedDays
	}

	closed := ledger.ClosedTrades()
	m.TotalTrades = len(closed)
	var grossWin, grossLoss, holdingDays float64
	for _, t := range closed {
		if t.ClosedAtWindowEnd {
			m.OpenAtWindowEnd++
		}
		if t.RealizedPnL > 0 {
			m.WinningTrades++
			grossWin += t.RealizedPnL
		} else if t.RealizedPnL < 0 {
			m.LosingTrades++
			grossLoss += -t.RealizedPnL
		}
		holdingDays += t.HoldingPeriod().Hours() / 24
	}
	if m.TotalTrades > 0 {
		m.WinRate = float64(m.WinningTrades) / float64(m.TotalTrades) * 100
		m.AvgHoldingPeriodDays = holdingDays / float64(m.TotalTrades)
	}
	switch {
	case grossWin > 0 && grossLoss == 0:
		m.ProfitFactor = math.Inf(1)
	case grossWin == 0:
		m.ProfitFactor = 0
	default:
		m.ProfitFactor = grossWin / grossLoss
	}
	if m.WinningTrades > 0 {
		m.AverageWin = grossWin / float64(m.WinningTrades)
	}
	if m.LosingTrades > 0 {
		m.AverageLoss = -grossLoss / float64(m.LosingTrades)
	}

	m.MaxDrawdown, m.MaxDrawdownPercent = maxDrawdown(ledger.EquityCurve)
	m.Sharpe, m.Sortino = riskAdjusted(ledger.EquityCurve, cfg.RiskFreeRate, cfg.AnnualizationFactor)
	m.TotalCommissions = ledger.TotalCommissions()
	return m
}

// maxDrawdown walks the equity curve tracking the running peak and the
// deepest decline from it.
func maxDrawdown(curve []models.EquityPoint) (dd, ddPct float64) {
	peak := math.Inf(-1)
	for _, pt := range curve {
		if pt.Equity > peak {
			peak = pt.Equity
		}
		decline := peak - pt.Equity
		if decline > dd {
			dd = decline
			if peak > 0 {
				ddPct = decline / peak * 100
			}
		}
	}
	return dd, ddPct
}

// riskAdjusted computes annualized Sharpe and Sortino from per-step excess
// returns. Sortino uses downside deviation only; both are 0 when the curve
// is too short or flat to say anything.
func riskAdjusted(curve []models.EquityPoint, riskFreeRate, annualization float64) (sharpe, sortino float64) {
	if len(curve) < 3 || annualization <= 0 {
		return 0, 0
	}
	rfPerStep := riskFreeRate / annualization
	excess := make([]float64, 0, len(curve)-1)
	var downside []float64
	for i := 1; i < len(curve); i++ {
		prev := curve[i-1].Equity
		if prev <= 0 {
			continue
		}
		r := (curve[i].Equity-prev)/prev - rfPerStep
		excess = append(excess, r)
		if r < 0 {
			downside = append(downside, r)
		}
	}
	if len(excess) < 2 {
		return 0, 0
	}
	mean, std := stat.MeanStdDev(excess, nil)
	if std > 0 {
		sharpe = mean / std * math.Sqrt(annualization)
	}
	if len(downside) >= 2 {
		_, downStd := stat.MeanStdDev(downside, nil)
		if downStd > 0 {
			sortino = mean / downStd * math.Sqrt(annualization)
		}
	}
	return sharpe, sortino
}

// createKeyValuePairs renders a struct's exported fields as a stable,
// human-readable key/value dump for the run's Params snapshot.
func createKeyValuePairs(m map[string]interface{}) string {
	keys := make([]string, 0, len(m))
	for key := range m {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	b := new(bytes.Buffer)
	fmt.Fprint(b, "{\n")
	for _, key := range keys {
		fmt.Fprint(b, " ", key, ": ", m[key], ",\n")
	}
	fmt.Fprint(b, "}\n")
	return b.String()
}

// ParamsString snapshots the settings used for a run.
func ParamsString(cfg *settings.Settings) string {
	return createKeyValuePairs(structs.Map(*cfg))
}
