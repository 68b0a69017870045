package data

import (
	"math"
	"math/rand"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/optionslab/wheelhouse/models"
)

func TestLoadBarsCSV(t *testing.T) {
	csv := "symbol,timestamp,open,high,low,close,vwap,volume,rsi_14,sma_20,sma_50,atr_14,hv_20,iv_rank\n" +
		"SPY,1709726400000,449,452,448,451,450,1000000,55,445,440,4,0.22,50\n" +
		"SPY,1709640000000,448,450,447,449,448,900000,54,444,439,4,0.21,48\n"
	path := filepath.Join(t.TempDir(), "bars.csv")
	require.NoError(t, os.WriteFile(path, []byte(csv), 0o644))

	bars, err := LoadBarsCSV(path)
	require.NoError(t, err)
	require.Len(t, bars, 2)
	// sorted ascending regardless of file order
	assert.Equal(t, int64(1709640000000), bars[0].Timestamp)
	assert.Equal(t, int64(1709726400000), bars[1].Timestamp)
	assert.InDelta(t, 451.0, bars[1].Close, 1e-9)
	assert.True(t, bars[0].HasIndicators())
}

func TestLoadBarsCSVMissingFile(t *testing.T) {
	_, err := LoadBarsCSV(filepath.Join(t.TempDir(), "absent.csv"))
	assert.Error(t, err)
}

func TestEnrichIndicatorsWarmup(t *testing.T) {
	rng := rand.New(rand.NewSource(3))
	bars := make([]*models.Bar, 0, 130)
	ts := time.Date(2023, 9, 1, 12, 0, 0, 0, time.UTC)
	price := 450.0
	for i := 0; i < 130; i++ {
		price *= 1 + (rng.Float64()-0.5)*0.02
		bars = append(bars, &models.Bar{
			Symbol:    "SPY",
			Timestamp: ts.UnixMilli(),
			Open:      price * 0.999,
			High:      price * 1.005,
			Low:       price * 0.995,
			Close:     price,
			Volume:    1_000_000,
		})
		ts = ts.AddDate(0, 0, 1)
	}

	EnrichIndicators(bars)

	assert.True(t, math.IsNaN(bars[0].RSI14))
	assert.True(t, math.IsNaN(bars[10].SMA50))
	assert.False(t, bars[0].HasIndicators())

	last := bars[len(bars)-1]
	require.True(t, last.HasIndicators(), "indicators must be filled past the longest warm-up")
	assert.Greater(t, last.RSI14, 0.0)
	assert.Less(t, last.RSI14, 100.0)
	assert.Greater(t, last.SMA20, 0.0)
	assert.Greater(t, last.ATR14, 0.0)
	assert.Greater(t, last.HV20, 0.0)
	assert.GreaterOrEqual(t, last.IVRank, 0.0)
	assert.LessOrEqual(t, last.IVRank, 100.0)
}

func TestAlignChainsForwardFill(t *testing.T) {
	mkBar := func(ts int64) *models.Bar { return &models.Bar{Symbol: "SPY", Timestamp: ts} }
	bars := []*models.Bar{mkBar(100), mkBar(200), mkBar(300), mkBar(400)}
	chains := map[int64]*models.OptionChain{
		200: models.NewOptionChain("SPY", 450, 200, nil),
		400: models.NewOptionChain("SPY", 452, 400, nil),
	}

	aligned := AlignChains(bars, chains)
	// bar before the first snapshot stays unmapped
	_, ok := aligned[100]
	assert.False(t, ok)
	assert.Equal(t, int64(200), aligned[200].Timestamp)
	// gap forward-fills from the latest earlier snapshot
	assert.Equal(t, int64(200), aligned[300].Timestamp)
	assert.Equal(t, int64(400), aligned[400].Timestamp)
}
