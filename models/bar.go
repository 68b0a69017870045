package models

import (
	"math"
	"time"
)

// Bar is one underlying OHLCV row with its precomputed indicator columns.
// Indicator fields are NaN during warm-up periods where the lookback window
// is not yet filled.
type Bar struct {
	Symbol    string  `csv:"symbol" db:"symbol"`
	Timestamp int64   `csv:"timestamp" db:"timestamp"` // ms since epoch, UTC
	Open      float64 `csv:"open" db:"open"`
	High      float64 `csv:"high" db:"high"`
	Low       float64 `csv:"low" db:"low"`
	Close     float64 `csv:"close" db:"close"`
	VWAP      float64 `csv:"vwap" db:"vwap"`
	Volume    float64 `csv:"volume" db:"volume"`

	RSI14  float64 `csv:"rsi_14" db:"rsi_14"`
	SMA20  float64 `csv:"sma_20" db:"sma_20"`
	SMA50  float64 `csv:"sma_50" db:"sma_50"`
	ATR14  float64 `csv:"atr_14" db:"atr_14"`
	HV20   float64 `csv:"hv_20" db:"hv_20"`
	IVRank float64 `csv:"iv_rank" db:"iv_rank"`
}

func (b *Bar) Time() time.Time {
	return time.UnixMilli(b.Timestamp).UTC()
}

// HasIndicators reports whether every indicator column is populated, i.e.
// the bar is past the longest warm-up window.
func (b *Bar) HasIndicators() bool {
	for _, v := range []float64{b.RSI14, b.SMA20, b.SMA50, b.ATR14, b.HV20, b.IVRank} {
		if math.IsNaN(v) {
			return false
		}
	}
	return true
}

// OHLCV holds concise Open, High, Low, Close and Volume data in column
// form, which is what the indicator library wants.
type OHLCV struct {
	Timestamp []int64
	Open      []float64
	High      []float64
	Low       []float64
	Close     []float64
	Volume    []float64
}

// NewOHLCV converts a bar series to column form.
func NewOHLCV(bars []*Bar) OHLCV {
	n := len(bars)
	ohlcv := OHLCV{
		Timestamp: make([]int64, n),
		Open:      make([]float64, n),
		High:      make([]float64, n),
		Low:       make([]float64, n),
		Close:     make([]float64, n),
		Volume:    make([]float64, n),
	}
	for i, bar := range bars {
		ohlcv.Timestamp[i] = bar.Timestamp
		ohlcv.Open[i] = bar.Open
		ohlcv.High[i] = bar.High
		ohlcv.Low[i] = bar.Low
		ohlcv.Close[i] = bar.Close
		ohlcv.Volume[i] = bar.Volume
	}
	return ohlcv
}
