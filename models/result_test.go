package models

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResultSave(t *testing.T) {
	entry := time.Date(2024, 3, 6, 12, 0, 0, 0, time.UTC)
	trade := creditSpreadTrade(entry)
	require.NoError(t, trade.Close(entry.AddDate(0, 0, 9), 50, 2.0, 1.30, ExitProfitTarget))

	result := &BacktestResult{
		Strategy:   "vertical_spread",
		Underlying: "SPY",
		Start:      entry,
		End:        entry.AddDate(0, 0, 30),
		Metrics:    BacktestMetrics{TotalTrades: 1, WinningTrades: 1, WinRate: 100},
		Trades:     []*SimulatedTrade{trade},
		EquityCurve: []EquityPoint{
			{Timestamp: entry.UnixMilli(), Equity: 10000, Cash: 10000},
			{Timestamp: entry.AddDate(0, 0, 1).UnixMilli(), Equity: 10060, Cash: 10120, OpenValue: -60},
		},
		Rejections: map[RejectReason]int{RejectNoDirectionSignal: 12},
		Params:     "{}",
	}

	dir := filepath.Join(t.TempDir(), "out")
	require.NoError(t, result.Save(dir))

	trades, err := os.ReadFile(filepath.Join(dir, "trades.csv"))
	require.NoError(t, err)
	assert.Contains(t, string(trades), "profit_target")
	assert.Contains(t, string(trades), "bull_put_spread")
	assert.Equal(t, 2, strings.Count(string(trades), "\n"), "header plus one trade row")

	equity, err := os.ReadFile(filepath.Join(dir, "equity.csv"))
	require.NoError(t, err)
	assert.Contains(t, string(equity), "open_value")

	raw, err := os.ReadFile(filepath.Join(dir, "metrics.json"))
	require.NoError(t, err)
	var summary struct {
		Strategy   string               `json:"strategy"`
		Metrics    BacktestMetrics      `json:"metrics"`
		Rejections map[RejectReason]int `json:"rejections"`
	}
	require.NoError(t, json.Unmarshal(raw, &summary))
	assert.Equal(t, "vertical_spread", summary.Strategy)
	assert.Equal(t, 1, summary.Metrics.TotalTrades)
	assert.Equal(t, 12, summary.Rejections[RejectNoDirectionSignal])
}
