package data

import (
	"fmt"
	"math"
	"time"

	"github.com/optionslab/wheelhouse/logger"
	"github.com/optionslab/wheelhouse/models"
)

// ChainConfig controls synthetic chain generation. Zero values take the
// defaults below.
type ChainConfig struct {
	StrikeInterval   float64 // strike ladder spacing in dollars
	MinStrikePct     float64 // lowest strike relative to spot, e.g. -0.25
	MaxStrikePct     float64 // highest strike relative to spot, e.g. 0.25
	WeeklyExpiries   int     // how many Friday expirations to generate
	RiskFreeRate     float64
	BaseSpreadPct    float64 // bid-ask spread as fraction of mid, at the money
	BaseOpenInterest int     // open interest at the money
	FallbackVol      float64 // used while the HV column is still warming up
}

func DefaultChainConfig() ChainConfig {
	return ChainConfig{
		StrikeInterval:   5,
		MinStrikePct:     -0.25,
		MaxStrikePct:     0.25,
		WeeklyExpiries:   8,
		RiskFreeRate:     0.02,
		BaseSpreadPct:    0.04,
		BaseOpenInterest: 2000,
		FallbackVol:      0.25,
	}
}

// ChainGenerator builds synthetic option chain snapshots from underlying
// bars: a strike ladder around spot, weekly Friday expirations, quotes
// priced with Black-Scholes off the bar's historical volatility, and
// liquidity that thins out away from the money.
type ChainGenerator struct {
	cfg    ChainConfig
	pricer Pricer
}

func NewChainGenerator(cfg ChainConfig) *ChainGenerator {
	def := DefaultChainConfig()
	if cfg.StrikeInterval == 0 {
		cfg.StrikeInterval = def.StrikeInterval
	}
	if cfg.MinStrikePct == 0 {
		cfg.MinStrikePct = def.MinStrikePct
	}
	if cfg.MaxStrikePct == 0 {
		cfg.MaxStrikePct = def.MaxStrikePct
	}
	if cfg.WeeklyExpiries == 0 {
		cfg.WeeklyExpiries = def.WeeklyExpiries
	}
	if cfg.BaseSpreadPct == 0 {
		cfg.BaseSpreadPct = def.BaseSpreadPct
	}
	if cfg.BaseOpenInterest == 0 {
		cfg.BaseOpenInterest = def.BaseOpenInterest
	}
	if cfg.FallbackVol == 0 {
		cfg.FallbackVol = def.FallbackVol
	}
	return &ChainGenerator{cfg: cfg, pricer: Pricer{RiskFreeRate: cfg.RiskFreeRate}}
}

// Generate builds the chain snapshot for one bar.
func (g *ChainGenerator) Generate(bar *models.Bar) *models.OptionChain {
	spot := bar.Close
	vol := bar.HV20
	if math.IsNaN(vol) || vol <= 0 {
		vol = g.cfg.FallbackVol
	}

	minStrike := roundToNearest(spot*(1+g.cfg.MinStrikePct), g.cfg.StrikeInterval)
	maxStrike := roundToNearest(spot*(1+g.cfg.MaxStrikePct), g.cfg.StrikeInterval)
	var contracts []*models.OptionContract
	asOf := bar.Time()
	for _, expiry := range g.expirations(asOf) {
		for strike := minStrike; strike <= maxStrike+1e-9; strike += g.cfg.StrikeInterval {
			for _, optionType := range []models.OptionType{models.Call, models.Put} {
				contracts = append(contracts, g.contract(bar, optionType, spot, strike, expiry, vol))
			}
		}
	}
	logger.Debugf("Generated %v synthetic contracts for %v at %v", len(contracts), bar.Symbol, asOf)
	return models.NewOptionChain(bar.Symbol, spot, bar.Timestamp, contracts)
}

// GenerateAll maps every bar to its chain snapshot.
func (g *ChainGenerator) GenerateAll(bars []*models.Bar) map[int64]*models.OptionChain {
	chains := make(map[int64]*models.OptionChain, len(bars))
	for _, bar := range bars {
		chains[bar.Timestamp] = g.Generate(bar)
	}
	return chains
}

func (g *ChainGenerator) contract(bar *models.Bar, optionType models.OptionType, spot, strike float64, expiry int64, vol float64) *models.OptionContract {
	// mild smile: IV rises away from the money
	moneyness := math.Abs(math.Log(strike / spot))
	iv := vol * (1 + 0.3*moneyness)
	quote := g.pricer.Price(optionType, spot, strike, bar.Timestamp, expiry, iv)

	// spreads widen and liquidity thins with distance from the money
	distance := math.Abs(strike-spot) / spot
	spreadPct := g.cfg.BaseSpreadPct * (1 + 6*distance)
	halfSpread := math.Max(quote.Theo*spreadPct/2, 0.005)
	bid := math.Max(quote.Theo-halfSpread, 0)
	ask := quote.Theo + halfSpread
	oi := int(float64(g.cfg.BaseOpenInterest) * math.Exp(-8*distance))

	return &models.OptionContract{
		Symbol:       occSymbol(bar.Symbol, optionType, expiry, strike),
		Underlying:   bar.Symbol,
		Expiry:       expiry,
		Strike:       strike,
		OptionType:   optionType,
		Bid:          bid,
		Ask:          ask,
		Last:         quote.Theo,
		Volume:       oi / 10,
		OpenInterest: oi,
		IV:           iv,
		Delta:        quote.Delta,
		Gamma:        quote.Gamma,
		Theta:        quote.Theta,
		Vega:         quote.Vega,
		Rho:          quote.Rho,
	}
}

// expirations returns the next N weekly Friday expirations at 16:00, local
// to the bar's timeline.
func (g *ChainGenerator) expirations(asOf time.Time) []int64 {
	expiries := make([]int64, 0, g.cfg.WeeklyExpiries)
	cursor := asOf
	for i := 0; i < g.cfg.WeeklyExpiries; i++ {
		friday := nextFriday(cursor)
		expiry := time.Date(friday.Year(), friday.Month(), friday.Day(), 16, 0, 0, 0, asOf.Location())
		expiries = append(expiries, expiry.UnixMilli())
		cursor = friday.Add(24 * time.Hour)
	}
	return expiries
}

func nextFriday(t time.Time) time.Time {
	dayDiff := int(time.Friday - t.Weekday())
	if dayDiff <= 0 {
		dayDiff += 7
	}
	return t.Truncate(24 * time.Hour).AddDate(0, 0, dayDiff)
}

func roundToNearest(num, interval float64) float64 {
	return math.Round(num/interval) * interval
}

// occSymbol renders the OCC-style option symbol, e.g. SPY240621P00450000.
func occSymbol(underlying string, optionType models.OptionType, expiry int64, strike float64) string {
	cp := "C"
	if optionType == models.Put {
		cp = "P"
	}
	exp := time.UnixMilli(expiry).UTC()
	return fmt.Sprintf("%s%s%s%08d", underlying, exp.Format("060102"), cp, int(math.Round(strike*1000)))
}
