package models

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func chainFixture() *OptionChain {
	ts := time.Date(2024, 3, 6, 12, 0, 0, 0, time.UTC)
	nearExpiry := ts.AddDate(0, 0, 10).UnixMilli()
	farExpiry := ts.AddDate(0, 0, 31).UnixMilli()

	mk := func(symbol string, optType OptionType, strike float64, expiry int64, delta float64) *OptionContract {
		return &OptionContract{
			Symbol: symbol, Underlying: "SPY", OptionType: optType,
			Strike: strike, Expiry: expiry, Bid: 1.00, Ask: 1.10, Delta: delta,
		}
	}
	contracts := []*OptionContract{
		mk("P445N", Put, 445, nearExpiry, -0.30),
		mk("P440F", Put, 440, farExpiry, -0.20),
		mk("P435F", Put, 435, farExpiry, -0.12),
		mk("C455F", Call, 455, farExpiry, 0.25),
	}
	return NewOptionChain("SPY", 450, ts.UnixMilli(), contracts)
}

func TestContractQuoteMath(t *testing.T) {
	c := &OptionContract{Bid: 5.00, Ask: 5.50}
	assert.InDelta(t, 5.25, c.Mid(), 1e-9)
	assert.InDelta(t, 0.50, c.Spread(), 1e-9)
	assert.InDelta(t, 0.50/5.25*100, c.SpreadPct(), 1e-9)

	zero := &OptionContract{}
	assert.True(t, math.IsInf(zero.SpreadPct(), 1))
}

func TestContractDTE(t *testing.T) {
	asOf := time.Date(2024, 3, 6, 12, 0, 0, 0, time.UTC)
	c := &OptionContract{Expiry: asOf.AddDate(0, 0, 10).UnixMilli()}
	assert.Equal(t, 10, c.DTE(asOf))
	assert.False(t, c.Expired(asOf))

	sameDay := &OptionContract{Expiry: asOf.Add(3 * time.Hour).UnixMilli()}
	assert.Equal(t, 1, sameDay.DTE(asOf), "expiring later today still counts as 1")

	past := &OptionContract{Expiry: asOf.Add(-time.Hour).UnixMilli()}
	assert.Equal(t, 0, past.DTE(asOf))
	assert.True(t, past.Expired(asOf))
}

func TestChainLookupAndExpirations(t *testing.T) {
	chain := chainFixture()
	c, ok := chain.Lookup("P440F")
	require.True(t, ok)
	assert.InDelta(t, 440.0, c.Strike, 1e-9)

	_, ok = chain.Lookup("missing")
	assert.False(t, ok)

	expiries := chain.Expirations()
	require.Len(t, expiries, 2)
	assert.Less(t, expiries[0], expiries[1])
}

func TestChainExpirationInDTEWindow(t *testing.T) {
	chain := chainFixture()
	expiry := chain.ExpirationInDTEWindow(25, 50)
	require.NotZero(t, expiry)
	c, _ := chain.Lookup("P440F")
	assert.Equal(t, c.Expiry, expiry)

	assert.Zero(t, chain.ExpirationInDTEWindow(90, 120))
}

func TestChainNearestDelta(t *testing.T) {
	chain := chainFixture()
	farExpiry := chain.Expirations()[1]

	short := chain.NearestDelta(Put, farExpiry, 0.20)
	require.NotNil(t, short)
	assert.Equal(t, "P440F", short.Symbol)

	// contracts without a delta are skipped
	noDelta := chain.NearestDelta(Call, farExpiry, 0.50)
	require.NotNil(t, noDelta)
	assert.Equal(t, "C455F", noDelta.Symbol)
}

func TestChainNearestStrike(t *testing.T) {
	chain := chainFixture()
	farExpiry := chain.Expirations()[1]
	c := chain.NearestStrike(Put, farExpiry, 433)
	require.NotNil(t, c)
	assert.Equal(t, "P435F", c.Symbol)

	assert.Nil(t, chain.NearestStrike(Call, 12345, 450), "unknown expiry matches nothing")
}
