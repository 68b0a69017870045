package models

// StrategyCriteria describes the entry window and liquidity floor a strategy
// wants its candidate contracts screened against.
type StrategyCriteria struct {
	MinDTE           int
	MaxDTE           int
	CloseDTE         int     // exit when days to expiry falls to or below this
	TargetDelta      float64 // magnitude, e.g. 0.20
	WingWidth        float64 // strike distance for protective legs, 0 for single-leg
	MinOpenInterest  int
	MaxSpreadPct     float64
	ProfitTargetPct  float64 // fraction of max credit/debit, e.g. 0.50
	StopLossPct      float64 // fraction of max credit/debit, e.g. 1.0
	MinIVRank        float64
	MaxIVRank        float64
	ContractQuantity int
}
