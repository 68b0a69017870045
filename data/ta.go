package data

import (
	"math"

	talib "github.com/markcheno/go-talib"

	"github.com/optionslab/wheelhouse/models"
)

// Indicator helpers over the talib bindings. All return slices aligned with
// the input series; warm-up slots are NaN so consumers can tell "not yet"
// from a real zero.

func GetRSI(ohlcv models.OHLCV, period int) []float64 {
	return padWarmup(talib.Rsi(ohlcv.Close, period), len(ohlcv.Close), period)
}

func GetSMA(ohlcv models.OHLCV, period int) []float64 {
	return padWarmup(talib.Sma(ohlcv.Close, period), len(ohlcv.Close), period-1)
}

func GetATR(ohlcv models.OHLCV, period int) []float64 {
	return padWarmup(talib.Atr(ohlcv.High, ohlcv.Low, ohlcv.Close, period), len(ohlcv.Close), period)
}

// GetHV computes annualized close-to-close historical volatility over a
// rolling window of log returns.
func GetHV(ohlcv models.OHLCV, period int) []float64 {
	n := len(ohlcv.Close)
	hv := nanSlice(n)
	if n < 2 {
		return hv
	}
	logReturns := make([]float64, n)
	logReturns[0] = math.NaN()
	for i := 1; i < n; i++ {
		if ohlcv.Close[i-1] > 0 && ohlcv.Close[i] > 0 {
			logReturns[i] = math.Log(ohlcv.Close[i] / ohlcv.Close[i-1])
		} else {
			logReturns[i] = math.NaN()
		}
	}
	for i := period; i < n; i++ {
		window := logReturns[i-period+1 : i+1]
		mean := 0.0
		valid := true
		for _, r := range window {
			if math.IsNaN(r) {
				valid = false
				break
			}
			mean += r
		}
		if !valid {
			continue
		}
		mean /= float64(len(window))
		variance := 0.0
		for _, r := range window {
			variance += (r - mean) * (r - mean)
		}
		variance /= float64(len(window) - 1)
		hv[i] = math.Sqrt(variance) * math.Sqrt(252)
	}
	return hv
}

// GetIVRank normalizes each HV value against its trailing range over the
// lookback, 0-100. It is the historical-volatility proxy for IV rank used
// when no vendor IV history is available.
func GetIVRank(hv []float64, lookback int) []float64 {
	n := len(hv)
	rank := nanSlice(n)
	for i := range hv {
		if math.IsNaN(hv[i]) || i < lookback {
			continue
		}
		lo, hi := math.Inf(1), math.Inf(-1)
		valid := true
		for j := i - lookback; j <= i; j++ {
			if math.IsNaN(hv[j]) {
				valid = false
				break
			}
			lo = math.Min(lo, hv[j])
			hi = math.Max(hi, hv[j])
		}
		if !valid {
			continue
		}
		if hi == lo {
			rank[i] = 50
			continue
		}
		rank[i] = (hv[i] - lo) / (hi - lo) * 100
	}
	return rank
}

// padWarmup left-pads a talib result (which drops warm-up slots) back to
// series length with NaN.
func padWarmup(values []float64, total, warmup int) []float64 {
	out := nanSlice(total)
	offset := total - len(values)
	for i, v := range values {
		// talib emits zeros during its own warm-up in some indicators
		if i+offset < warmup {
			continue
		}
		out[i+offset] = v
	}
	return out
}

func nanSlice(n int) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = math.NaN()
	}
	return out
}
