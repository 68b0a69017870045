package strategies

import (
	"fmt"

	"github.com/optionslab/wheelhouse/logger"
	"github.com/optionslab/wheelhouse/models"
	"github.com/optionslab/wheelhouse/settings"
)

// VerticalConfig is the typed configuration for the credit vertical strategy.
type VerticalConfig struct {
	TargetDelta float64 // short-leg delta magnitude
	WingWidth   float64 // strikes between short and long leg
	MinIVRank   float64 // only sell premium when vol is rich enough
}

func DefaultVerticalConfig() VerticalConfig {
	return VerticalConfig{
		TargetDelta: 0.20,
		WingWidth:   5,
		MinIVRank:   20,
	}
}

// VerticalSpread sells a defined-risk credit spread with the trend: bull put
// spreads in uptrends, bear call spreads in downtrends. Short strike is
// picked by delta, the wing one width further out.
type VerticalSpread struct {
	cfg      VerticalConfig
	criteria models.StrategyCriteria
	dir      Direction
	lastBar  *models.Bar
}

func NewVerticalSpread(cfg VerticalConfig) *VerticalSpread {
	return &VerticalSpread{cfg: cfg}
}

func (s *VerticalSpread) Name() string { return "vertical_spread" }

func (s *VerticalSpread) Initialize(cfg *settings.Settings) error {
	if s.cfg.WingWidth <= 0 {
		return fmt.Errorf("vertical spread: wing width must be positive, got %v", s.cfg.WingWidth)
	}
	s.criteria = criteriaFromSettings(cfg)
	s.criteria.TargetDelta = s.cfg.TargetDelta
	s.criteria.WingWidth = s.cfg.WingWidth
	s.criteria.MinIVRank = s.cfg.MinIVRank
	s.criteria.MaxIVRank = 100
	return nil
}

func (s *VerticalSpread) Criteria() models.StrategyCriteria { return s.criteria }

func (s *VerticalSpread) OnMarketData(bar *models.Bar) *models.OptionSignal {
	s.lastBar = bar
	s.dir = trendDirection(bar)
	return nil
}

func (s *VerticalSpread) OnOptionChain(chain *models.OptionChain) *models.OptionSignal {
	if s.dir == Flat || s.lastBar == nil {
		return nil
	}
	if s.lastBar.IVRank < s.criteria.MinIVRank {
		return nil
	}
	expiry := chain.ExpirationInDTEWindow(s.criteria.MinDTE, s.criteria.MaxDTE)
	if expiry == 0 {
		return nil
	}

	optType := models.Put
	sigType := models.BullPutSpread
	wingDir := -1.0
	if s.dir == Bearish {
		optType = models.Call
		sigType = models.BearCallSpread
		wingDir = 1.0
	}

	short := chain.NearestDelta(optType, expiry, s.criteria.TargetDelta)
	if short == nil {
		return nil
	}
	long := chain.NearestStrike(optType, expiry, short.Strike+wingDir*s.cfg.WingWidth)
	if long == nil || long.Strike == short.Strike {
		return nil
	}

	qty := s.criteria.ContractQuantity
	logger.Debugf("%v signal: short %v long %v", sigType, short, long)
	return &models.OptionSignal{
		Type:       sigType,
		Underlying: chain.Underlying,
		Strategy:   s.Name(),
		Confidence: 0.5 + s.lastBar.IVRank/200,
		Legs: []models.OptionLeg{
			legFromContract(short, models.Sell, qty),
			legFromContract(long, models.Buy, qty),
		},
	}
}

func (s *VerticalSpread) Cleanup() {
	s.dir = Flat
	s.lastBar = nil
}
