package models

type SignalType string

const (
	SellPut        SignalType = "sell_put"
	SellCall       SignalType = "sell_call"
	BullPutSpread  SignalType = "bull_put_spread"
	BearCallSpread SignalType = "bear_call_spread"
	IronCondor     SignalType = "iron_condor"
	DebitSpread    SignalType = "debit_spread"
)

type Side string

const (
	Buy  Side = "buy"
	Sell Side = "sell"
)

// OptionLeg is one leg of a proposed multi-leg order. The symbol must
// resolve against the chain snapshot the signal was generated from.
type OptionLeg struct {
	Symbol     string
	OptionType OptionType
	Strike     float64
	Expiry     int64 // ms since epoch, UTC
	Side       Side
	Quantity   int
	LimitPrice float64 // 0 means no limit, fill at modeled price
}

// OptionSignal is a strategy's proposal for a new position. It carries no
// fill information; the engine decides whether and at what prices it fills.
type OptionSignal struct {
	Type       SignalType
	Underlying string
	Legs       []OptionLeg
	Confidence float64
	Strategy   string
	Metadata   map[string]interface{}
}

// Contracts is the total contract count across all legs, the unit the
// commission model charges on.
func (s *OptionSignal) Contracts() int {
	total := 0
	for _, leg := range s.Legs {
		total += leg.Quantity
	}
	return total
}
