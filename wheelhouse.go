// Package wheelhouse is a backtesting engine for options income strategies.
// It replays an underlying bar series against option chain snapshots,
// drives a strategy through the market-data/chain callback protocol, and
// simulates execution with fill-probability, gap-risk and slippage models
// so backtested results track what live fills would have allowed.
package wheelhouse

// Version is bumped on behavior changes that affect backtest results.
const Version = "0.3.1"
