// Package data supplies the engine's inputs: underlying bar series with
// precomputed indicators, and option chain snapshots either loaded from a
// vendor store or generated synthetically from the underlying series.
package data

import (
	"math"

	"github.com/chobie/go-gaussian"

	"github.com/optionslab/wheelhouse/models"
)

const (
	millisPerYear = 365.0 * 86400 * 1000
	pi            = math.Pi
)

// Pricer values an option with Black-Scholes and produces its greeks.
// Rates are annualized; times are ms since epoch.
type Pricer struct {
	RiskFreeRate float64
}

// Quote is a theoretical value plus greeks for one contract.
type Quote struct {
	Theo  float64
	Delta float64
	Gamma float64
	Theta float64
	Vega  float64
	Rho   float64
}

// Price values a contract of the given type. volatility is annualized.
// Contracts at or past expiry collapse to intrinsic value with pinned
// greeks.
func (p Pricer) Price(optionType models.OptionType, underlying, strike float64, now, expiry int64, volatility float64) Quote {
	timeLeft := float64(expiry-now) / millisPerYear
	if timeLeft <= 0 {
		return expiredQuote(optionType, underlying, strike)
	}
	norm := gaussian.NewGaussian(0, 1)
	sqrtT := math.Sqrt(timeLeft)
	d1 := (math.Log(underlying/strike) + (p.RiskFreeRate+volatility*volatility/2)*timeLeft) / (volatility * sqrtT)
	d2 := d1 - volatility*sqrtT
	nPrime := math.Exp(-d1*d1/2) / math.Sqrt(2*pi)
	discount := math.Exp(-p.RiskFreeRate * timeLeft)

	var q Quote
	if optionType == models.Call {
		q.Theo = underlying*norm.Cdf(d1) - strike*discount*norm.Cdf(d2)
		q.Delta = norm.Cdf(d1)
		q.Theta = (-underlying*nPrime*volatility/(2*sqrtT) - p.RiskFreeRate*strike*discount*norm.Cdf(d2)) / 365
		q.Rho = strike * timeLeft * discount * norm.Cdf(d2) / 100
	} else {
		q.Theo = strike*discount*norm.Cdf(-d2) - underlying*norm.Cdf(-d1)
		q.Delta = norm.Cdf(d1) - 1
		q.Theta = (-underlying*nPrime*volatility/(2*sqrtT) + p.RiskFreeRate*strike*discount*norm.Cdf(-d2)) / 365
		q.Rho = -strike * timeLeft * discount * norm.Cdf(-d2) / 100
	}
	q.Gamma = nPrime / (underlying * volatility * sqrtT)
	q.Vega = underlying * nPrime * sqrtT / 100
	if q.Theo < 0 {
		q.Theo = 0
	}
	return q
}

// ImpliedVol solves for the volatility matching an observed price via
// Newton-Raphson, the same iteration the theo engine uses in reverse.
func (p Pricer) ImpliedVol(optionType models.OptionType, underlying, strike float64, now, expiry int64, price float64) float64 {
	timeLeft := float64(expiry-now) / millisPerYear
	if timeLeft <= 0 || price <= 0 {
		return 0
	}
	norm := gaussian.NewGaussian(0, 1)
	v := math.Sqrt(2*pi/timeLeft) * price / underlying
	cp := 1.0
	if optionType == models.Put {
		cp = -1.0
	}
	for i := 0; i < 100; i++ {
		sqrtT := math.Sqrt(timeLeft)
		d1 := (math.Log(underlying/strike) + (p.RiskFreeRate+v*v/2)*timeLeft) / (v * sqrtT)
		d2 := d1 - v*sqrtT
		vega := underlying * norm.Pdf(d1) * sqrtT
		theo := cp*underlying*norm.Cdf(cp*d1) - cp*strike*math.Exp(-p.RiskFreeRate*timeLeft)*norm.Cdf(cp*d2)
		diff := theo - price
		if math.Abs(diff) < 1e-10 {
			break
		}
		if vega == 0 {
			break
		}
		v -= diff / vega
		if v <= 0 {
			v = 1e-4
		}
	}
	return v
}

func expiredQuote(optionType models.OptionType, underlying, strike float64) Quote {
	var q Quote
	if optionType == models.Call {
		q.Theo = math.Max(0, underlying-strike)
		if underlying > strike {
			q.Delta = 1
		}
	} else {
		q.Theo = math.Max(0, strike-underlying)
		if underlying < strike {
			q.Delta = -1
		}
	}
	return q
}
