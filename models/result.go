package models

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/gocarina/gocsv"
)

// BacktestResult bundles everything a run produced: the closed-trade list,
// the equity curve, the derived metrics and the per-reason rejection counts.
type BacktestResult struct {
	Strategy    string
	Underlying  string
	Start       time.Time
	End         time.Time
	Metrics     BacktestMetrics
	Trades      []*SimulatedTrade
	EquityCurve []EquityPoint
	Rejections  map[RejectReason]int
	Params      string // key/value dump of the run settings
}

// tradeRecord flattens a SimulatedTrade for CSV export.
type tradeRecord struct {
	ID                string  `csv:"id"`
	Strategy          string  `csv:"strategy"`
	Underlying        string  `csv:"underlying"`
	SignalType        string  `csv:"signal_type"`
	Legs              int     `csv:"legs"`
	Contracts         int     `csv:"contracts"`
	IsCredit          bool    `csv:"is_credit"`
	EntryTimestamp    string  `csv:"entry_timestamp"`
	EntryNet          float64 `csv:"entry_net"`
	EntryDTE          int     `csv:"entry_dte"`
	ExitTimestamp     string  `csv:"exit_timestamp"`
	ExitNet           float64 `csv:"exit_net"`
	ExitReason        string  `csv:"exit_reason"`
	RealizedPnL       float64 `csv:"realized_pnl"`
	Slippage          float64 `csv:"slippage"`
	Commission        float64 `csv:"commission"`
	ClosedAtWindowEnd bool    `csv:"closed_at_window_end"`
}

// Save persists the result to a directory: trades.csv, equity.csv and
// metrics.json. The directory is created if missing.
func (r *BacktestResult) Save(path string) error {
	if err := os.MkdirAll(path, 0o755); err != nil {
		return fmt.Errorf("save result: %w", err)
	}

	records := make([]*tradeRecord, 0, len(r.Trades))
	for _, t := range r.Trades {
		rec := &tradeRecord{
			ID:                t.ID,
			Strategy:          t.Strategy,
			Underlying:        t.Underlying,
			SignalType:        string(t.SignalType),
			Legs:              len(t.Legs),
			Contracts:         t.Contracts(),
			IsCredit:          t.IsCredit,
			EntryTimestamp:    t.EntryTimestamp.UTC().Format(time.RFC3339),
			EntryNet:          t.EntryNet,
			EntryDTE:          t.EntryDTE,
			ExitReason:        string(t.ExitReason),
			RealizedPnL:       t.RealizedPnL,
			Slippage:          t.EntrySlippage + t.ExitSlippage,
			Commission:        t.EntryCommission + t.ExitCommission,
			ClosedAtWindowEnd: t.ClosedAtWindowEnd,
		}
		if t.Status == TradeClosed {
			rec.ExitTimestamp = t.ExitTimestamp.UTC().Format(time.RFC3339)
			rec.ExitNet = t.ExitNet
		}
		records = append(records, rec)
	}
	if err := writeCSV(filepath.Join(path, "trades.csv"), &records); err != nil {
		return err
	}
	equity := r.EquityCurve
	if err := writeCSV(filepath.Join(path, "equity.csv"), &equity); err != nil {
		return err
	}

	summary := struct {
		Strategy   string               `json:"strategy"`
		Underlying string               `json:"underlying"`
		Start      time.Time            `json:"start"`
		End        time.Time            `json:"end"`
		Metrics    BacktestMetrics      `json:"metrics"`
		Rejections map[RejectReason]int `json:"rejections"`
		Params     string               `json:"params"`
	}{r.Strategy, r.Underlying, r.Start, r.End, r.Metrics, r.Rejections, r.Params}
	buf, err := json.MarshalIndent(summary, "", "  ")
	if err != nil {
		return fmt.Errorf("save result: %w", err)
	}
	if err := os.WriteFile(filepath.Join(path, "metrics.json"), buf, 0o644); err != nil {
		return fmt.Errorf("save result: %w", err)
	}
	return nil
}

func writeCSV(path string, rows interface{}) error {
	file, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE|os.O_TRUNC, os.ModePerm)
	if err != nil {
		return fmt.Errorf("save result: %w", err)
	}
	defer file.Close()
	if err := gocsv.MarshalFile(rows, file); err != nil {
		return fmt.Errorf("save result: %w", err)
	}
	return nil
}
