package strategies

import (
	"fmt"

	"github.com/optionslab/wheelhouse/models"
	"github.com/optionslab/wheelhouse/settings"
)

// DebitConfig is the typed configuration for the directional debit spread.
type DebitConfig struct {
	LongDelta float64 // long-leg delta magnitude, typically near the money
	WingWidth float64
	MaxIVRank float64 // buy premium only when vol is cheap
}

func DefaultDebitConfig() DebitConfig {
	return DebitConfig{
		LongDelta: 0.50,
		WingWidth: 5,
		MaxIVRank: 40,
	}
}

// DebitSpread buys a directional vertical when vol is cheap: call debit
// spreads in uptrends, put debit spreads in downtrends. The long leg sits
// near the money, the short leg one width further out caps cost.
type DebitSpread struct {
	cfg      DebitConfig
	criteria models.StrategyCriteria
	dir      Direction
	lastBar  *models.Bar
}

func NewDebitSpread(cfg DebitConfig) *DebitSpread {
	return &DebitSpread{cfg: cfg}
}

func (s *DebitSpread) Name() string { return "debit_spread" }

func (s *DebitSpread) Initialize(cfg *settings.Settings) error {
	if s.cfg.WingWidth <= 0 {
		return fmt.Errorf("debit spread: wing width must be positive, got %v", s.cfg.WingWidth)
	}
	s.criteria = criteriaFromSettings(cfg)
	s.criteria.TargetDelta = s.cfg.LongDelta
	s.criteria.WingWidth = s.cfg.WingWidth
	s.criteria.MaxIVRank = s.cfg.MaxIVRank
	return nil
}

func (s *DebitSpread) Criteria() models.StrategyCriteria { return s.criteria }

func (s *DebitSpread) OnMarketData(bar *models.Bar) *models.OptionSignal {
	s.lastBar = bar
	s.dir = trendDirection(bar)
	return nil
}

func (s *DebitSpread) OnOptionChain(chain *models.OptionChain) *models.OptionSignal {
	if s.dir == Flat || s.lastBar == nil {
		return nil
	}
	if s.lastBar.IVRank > s.criteria.MaxIVRank {
		return nil
	}
	expiry := chain.ExpirationInDTEWindow(s.criteria.MinDTE, s.criteria.MaxDTE)
	if expiry == 0 {
		return nil
	}

	optType := models.Call
	wingDir := 1.0
	if s.dir == Bearish {
		optType = models.Put
		wingDir = -1.0
	}

	long := chain.NearestDelta(optType, expiry, s.cfg.LongDelta)
	if long == nil {
		return nil
	}
	short := chain.NearestStrike(optType, expiry, long.Strike+wingDir*s.cfg.WingWidth)
	if short == nil || short.Strike == long.Strike {
		return nil
	}

	qty := s.criteria.ContractQuantity
	return &models.OptionSignal{
		Type:       models.DebitSpread,
		Underlying: chain.Underlying,
		Strategy:   s.Name(),
		Confidence: 0.5,
		Metadata:   map[string]interface{}{"direction": fmt.Sprintf("%v", optType)},
		Legs: []models.OptionLeg{
			legFromContract(long, models.Buy, qty),
			legFromContract(short, models.Sell, qty),
		},
	}
}

func (s *DebitSpread) Cleanup() {
	s.dir = Flat
	s.lastBar = nil
}
