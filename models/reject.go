package models

// RejectReason attributes a discarded signal or skipped timestep. The engine
// never drops a signal without booking exactly one of these.
type RejectReason string

const (
	RejectNoMarketData      RejectReason = "no_market_data"
	RejectNoDirectionSignal RejectReason = "no_direction_signal"
	RejectMaxPositions      RejectReason = "max_positions_reached"
	RejectContractNotFound  RejectReason = "contract_not_found_in_chain"
	RejectInsufficientBP    RejectReason = "insufficient_buying_power"
	RejectRiskManager       RejectReason = "risk_manager_rejected"
	RejectFillProbability   RejectReason = "fill_probability_rejected"
)
