package models

// BacktestMetrics is a read-only snapshot computed once from the ledger at
// the end of a run. A run with zero trades produces zeroed metrics, never
// NaN or a division by zero.
type BacktestMetrics struct {
	StartingEquity       float64 `json:"starting_equity"`
	EndingEquity         float64 `json:"ending_equity"`
	TotalReturn          float64 `json:"total_return"`
	TotalReturnPercent   float64 `json:"total_return_percent"`
	AnnualizedReturn     float64 `json:"annualized_return"`
	TotalTrades          int     `json:"total_trades"`
	WinningTrades        int     `json:"winning_trades"`
	LosingTrades         int     `json:"losing_trades"`
	WinRate              float64 `json:"win_rate"`              // percent
	ProfitFactor         float64 `json:"profit_factor"`         // +Inf when no losses
	AverageWin           float64 `json:"average_win"`
	AverageLoss          float64 `json:"average_loss"`
	MaxDrawdown          float64 `json:"max_drawdown"`
	MaxDrawdownPercent   float64 `json:"max_drawdown_percent"`
	Sharpe               float64 `json:"sharpe"`
	Sortino              float64 `json:"sortino"`
	AvgHoldingPeriodDays float64 `json:"avg_holding_period_days"`
	TotalCommissions     float64 `json:"total_commissions"`
	OpenAtWindowEnd      int     `json:"open_at_window_end"` // trades force-closed at the last quote
	ElapsedDays          float64 `json:"elapsed_days"`
}
