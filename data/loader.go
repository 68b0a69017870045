package data

import (
	"fmt"
	"os"
	"sort"

	"github.com/gocarina/gocsv"

	"github.com/optionslab/wheelhouse/logger"
	"github.com/optionslab/wheelhouse/models"
)

// LoadBarsCSV reads an underlying bar series from a CSV file with the
// models.Bar column layout and returns it sorted by timestamp.
func LoadBarsCSV(path string) ([]*models.Bar, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("load bars %v: %w", path, err)
	}
	defer file.Close()

	var bars []*models.Bar
	if err := gocsv.UnmarshalFile(file, &bars); err != nil {
		return nil, fmt.Errorf("load bars %v: %w", path, err)
	}
	sort.Slice(bars, func(i, j int) bool { return bars[i].Timestamp < bars[j].Timestamp })
	logger.Infof("Loaded %v bars from %v", len(bars), path)
	return bars, nil
}

// EnrichIndicators fills the indicator columns of a bar series in place:
// RSI-14, SMA-20/50, ATR-14, 20-day historical volatility and the IV-rank
// proxy derived from it. Warm-up slots stay NaN.
func EnrichIndicators(bars []*models.Bar) {
	if len(bars) == 0 {
		return
	}
	ohlcv := models.NewOHLCV(bars)
	rsi := GetRSI(ohlcv, 14)
	sma20 := GetSMA(ohlcv, 20)
	sma50 := GetSMA(ohlcv, 50)
	atr := GetATR(ohlcv, 14)
	hv := GetHV(ohlcv, 20)
	ivRank := GetIVRank(hv, 60)
	for i, bar := range bars {
		bar.RSI14 = rsi[i]
		bar.SMA20 = sma20[i]
		bar.SMA50 = sma50[i]
		bar.ATR14 = atr[i]
		bar.HV20 = hv[i]
		bar.IVRank = ivRank[i]
	}
}

// AlignChains forward-fills chain snapshots onto the bar timeline: a bar
// with no chain of its own reuses the most recent earlier snapshot. Bars
// before the first snapshot stay unmapped and the engine skips them.
func AlignChains(bars []*models.Bar, chains map[int64]*models.OptionChain) map[int64]*models.OptionChain {
	timestamps := make([]int64, 0, len(chains))
	for ts := range chains {
		timestamps = append(timestamps, ts)
	}
	sort.Slice(timestamps, func(i, j int) bool { return timestamps[i] < timestamps[j] })

	aligned := make(map[int64]*models.OptionChain, len(bars))
	idx := -1
	for _, bar := range bars {
		for idx+1 < len(timestamps) && timestamps[idx+1] <= bar.Timestamp {
			idx++
		}
		if idx >= 0 {
			aligned[bar.Timestamp] = chains[timestamps[idx]]
		}
	}
	return aligned
}
