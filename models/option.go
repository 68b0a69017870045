package models

import (
	"fmt"
	"math"
	"sort"
	"time"
)

type OptionType string

const (
	Call OptionType = "call"
	Put  OptionType = "put"
)

const msPerDay = 86400 * 1000

// OptionContract is an immutable quote snapshot for a single contract.
// Greeks are NaN when the vendor did not supply them.
type OptionContract struct {
	Symbol       string
	Underlying   string
	Expiry       int64 // ms since epoch, UTC
	Strike       float64
	OptionType   OptionType
	Bid          float64
	Ask          float64
	Last         float64
	Volume       int
	OpenInterest int
	IV           float64
	Delta        float64
	Gamma        float64
	Theta        float64
	Vega         float64
	Rho          float64
}

func (c *OptionContract) Mid() float64 {
	return (c.Bid + c.Ask) / 2
}

func (c *OptionContract) Spread() float64 {
	return c.Ask - c.Bid
}

// SpreadPct is the bid-ask spread as a percent of the mid quote.
func (c *OptionContract) SpreadPct() float64 {
	mid := c.Mid()
	if mid <= 0 {
		return math.Inf(1)
	}
	return c.Spread() / mid * 100
}

// DTE is the number of calendar days to expiry as of the given time,
// rounded up so a contract expiring later today still counts as 1.
func (c *OptionContract) DTE(asOf time.Time) int {
	left := c.Expiry - asOf.UnixMilli()
	if left <= 0 {
		return 0
	}
	return int(math.Ceil(float64(left) / float64(msPerDay)))
}

func (c *OptionContract) Expired(asOf time.Time) bool {
	return c.Expiry <= asOf.UnixMilli()
}

func (c *OptionContract) String() string {
	return fmt.Sprintf("%v %v %v %.2f", c.Symbol, c.OptionType, time.UnixMilli(c.Expiry).UTC().Format("2006-01-02"), c.Strike)
}

// OptionChain is the full quote snapshot for one underlying at one instant.
// Chains at different timestamps are independent; contracts are correlated
// across chains only by symbol.
type OptionChain struct {
	Underlying      string
	UnderlyingPrice float64
	Timestamp       int64 // ms since epoch, UTC
	Contracts       []*OptionContract

	bySymbol map[string]*OptionContract
}

func NewOptionChain(underlying string, underlyingPrice float64, timestamp int64, contracts []*OptionContract) *OptionChain {
	chain := &OptionChain{
		Underlying:      underlying,
		UnderlyingPrice: underlyingPrice,
		Timestamp:       timestamp,
		Contracts:       contracts,
		bySymbol:        make(map[string]*OptionContract, len(contracts)),
	}
	for _, c := range contracts {
		chain.bySymbol[c.Symbol] = c
	}
	return chain
}

func (ch *OptionChain) Time() time.Time {
	return time.UnixMilli(ch.Timestamp).UTC()
}

// Lookup resolves a contract symbol against this snapshot.
func (ch *OptionChain) Lookup(symbol string) (*OptionContract, bool) {
	c, ok := ch.bySymbol[symbol]
	return c, ok
}

// Expirations returns the distinct expiries present in the chain, ascending.
func (ch *OptionChain) Expirations() []int64 {
	seen := make(map[int64]bool)
	var expiries []int64
	for _, c := range ch.Contracts {
		if !seen[c.Expiry] {
			seen[c.Expiry] = true
			expiries = append(expiries, c.Expiry)
		}
	}
	sort.Slice(expiries, func(i, j int) bool { return expiries[i] < expiries[j] })
	return expiries
}

// ExpirationInDTEWindow returns the nearest expiry whose DTE falls inside
// [minDTE, maxDTE], or 0 if none does.
func (ch *OptionChain) ExpirationInDTEWindow(minDTE, maxDTE int) int64 {
	asOf := ch.Time()
	for _, expiry := range ch.Expirations() {
		dte := int(math.Ceil(float64(expiry-asOf.UnixMilli()) / float64(msPerDay)))
		if dte >= minDTE && dte <= maxDTE {
			return expiry
		}
	}
	return 0
}

// NearestDelta finds the contract of the given type and expiry whose delta
// magnitude is closest to target. Contracts without a delta are skipped.
func (ch *OptionChain) NearestDelta(optionType OptionType, expiry int64, target float64) *OptionContract {
	var best *OptionContract
	bestDiff := math.Inf(1)
	for _, c := range ch.Contracts {
		if c.OptionType != optionType || c.Expiry != expiry || math.IsNaN(c.Delta) {
			continue
		}
		diff := math.Abs(math.Abs(c.Delta) - target)
		if diff < bestDiff {
			bestDiff = diff
			best = c
		}
	}
	return best
}

// NearestStrike finds the contract of the given type and expiry whose strike
// is closest to the target price.
func (ch *OptionChain) NearestStrike(optionType OptionType, expiry int64, target float64) *OptionContract {
	var best *OptionContract
	bestDiff := math.Inf(1)
	for _, c := range ch.Contracts {
		if c.OptionType != optionType || c.Expiry != expiry {
			continue
		}
		diff := math.Abs(c.Strike - target)
		if diff < bestDiff {
			bestDiff = diff
			best = c
		}
	}
	return best
}
