package wheelhouse

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/optionslab/wheelhouse/models"
	"github.com/optionslab/wheelhouse/settings"
)

func metricsFixture(equities []float64, pnls []float64) (*models.BacktestLedger, time.Time, time.Time) {
	ledger := models.NewBacktestLedger(equities[0])
	start := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	ts := start
	for _, eq := range equities {
		ledger.EquityCurve = append(ledger.EquityCurve, models.EquityPoint{
			Timestamp: ts.UnixMilli(),
			Equity:    eq,
			Cash:      eq,
		})
		ts = ts.AddDate(0, 0, 1)
	}
	end := ts.AddDate(0, 0, -1)

	for i, pnl := range pnls {
		trade := &models.SimulatedTrade{
			ID:             "t",
			Status:         models.TradeClosed,
			EntryTimestamp: start,
			ExitTimestamp:  start.AddDate(0, 0, 2+i),
			RealizedPnL:    pnl,
		}
		ledger.Trades = append(ledger.Trades, trade)
	}
	return ledger, start, end
}

func TestComputeMetricsBasicRun(t *testing.T) {
	cfg := settings.Default()
	ledger, start, end := metricsFixture(
		[]float64{10000, 10100, 10050, 10200, 10300},
		[]float64{150, -50, 200},
	)

	m := ComputeMetrics(ledger, &cfg, start, end)
	assert.InDelta(t, 10000.0, m.StartingEquity, 1e-9)
	assert.InDelta(t, 10300.0, m.EndingEquity, 1e-9)
	assert.InDelta(t, 300.0, m.TotalReturn, 1e-9)
	assert.InDelta(t, 3.0, m.TotalReturnPercent, 1e-9)
	assert.InDelta(t, 3.0*365/4, m.AnnualizedReturn, 1e-9)

	assert.Equal(t, 3, m.TotalTrades)
	assert.Equal(t, 2, m.WinningTrades)
	assert.Equal(t, 1, m.LosingTrades)
	assert.InDelta(t, 200.0/3, m.WinRate, 1e-9)
	assert.InDelta(t, 7.0, m.ProfitFactor, 1e-9)
	assert.InDelta(t, 175.0, m.AverageWin, 1e-9)
	assert.InDelta(t, -50.0, m.AverageLoss, 1e-9)

	// peak 10100, trough 10050
	assert.InDelta(t, 50.0, m.MaxDrawdown, 1e-9)
	assert.InDelta(t, 50.0/10100*100, m.MaxDrawdownPercent, 1e-9)
	assert.False(t, math.IsNaN(m.Sharpe))
	assert.False(t, math.IsNaN(m.Sortino))
}

func TestComputeMetricsZeroTrades(t *testing.T) {
	cfg := settings.Default()
	ledger, start, end := metricsFixture([]float64{10000, 10000, 10000}, nil)

	m := ComputeMetrics(ledger, &cfg, start, end)
	assert.Equal(t, 0, m.TotalTrades)
	assert.Equal(t, 0.0, m.WinRate)
	assert.Equal(t, 0.0, m.ProfitFactor)
	assert.Equal(t, 0.0, m.AvgHoldingPeriodDays)
	assert.Equal(t, 0.0, m.Sharpe)
	assert.Equal(t, 0.0, m.Sortino)
	assert.Equal(t, 0.0, m.MaxDrawdown)
	assert.False(t, math.IsNaN(m.AnnualizedReturn))
}

func TestComputeMetricsProfitFactorEdges(t *testing.T) {
	cfg := settings.Default()

	ledger, start, end := metricsFixture([]float64{10000, 10100, 10200}, []float64{100, 100})
	m := ComputeMetrics(ledger, &cfg, start, end)
	assert.True(t, math.IsInf(m.ProfitFactor, 1), "gains with no losses is +Inf")

	ledger, start, end = metricsFixture([]float64{10000, 9900, 9800}, []float64{-100, -100})
	m = ComputeMetrics(ledger, &cfg, start, end)
	assert.Equal(t, 0.0, m.ProfitFactor, "no gains is 0")
	assert.Equal(t, 0.0, m.WinRate)
}

func TestComputeMetricsHoldingAndWindowEnd(t *testing.T) {
	cfg := settings.Default()
	ledger, start, end := metricsFixture([]float64{10000, 10100, 10200}, []float64{100})
	ledger.Trades[0].ClosedAtWindowEnd = true
	m := ComputeMetrics(ledger, &cfg, start, end)
	assert.Equal(t, 1, m.OpenAtWindowEnd)
	assert.InDelta(t, 2.0, m.AvgHoldingPeriodDays, 1e-9)
}

func TestSharpePositiveForSteadyGains(t *testing.T) {
	cfg := settings.Default()
	equities := []float64{10000}
	for i := 1; i <= 60; i++ {
		equities = append(equities, equities[i-1]*1.001)
	}
	ledger, start, end := metricsFixture(equities, nil)
	m := ComputeMetrics(ledger, &cfg, start, end)
	require.False(t, math.IsNaN(m.Sharpe))
	assert.Greater(t, m.Sharpe, 0.0)
	// no losing steps: Sortino cannot be computed from downside
	assert.Equal(t, 0.0, m.Sortino)
}

func TestParamsStringIsStable(t *testing.T) {
	cfg := settings.Default()
	a := ParamsString(&cfg)
	b := ParamsString(&cfg)
	assert.Equal(t, a, b)
	assert.Contains(t, a, "InitialCapital")
}
