package strategies

import (
	"fmt"

	"github.com/optionslab/wheelhouse/models"
	"github.com/optionslab/wheelhouse/settings"
)

// CondorConfig is the typed configuration for the iron condor strategy.
type CondorConfig struct {
	TargetDelta float64 // short-strike delta magnitude, both sides
	WingWidth   float64
	MinIVRank   float64
	MaxADXProxy float64 // skip when ATR as percent of close exceeds this
}

func DefaultCondorConfig() CondorConfig {
	return CondorConfig{
		TargetDelta: 0.16,
		WingWidth:   5,
		MinIVRank:   30,
		MaxADXProxy: 3.0,
	}
}

// IronCondor sells a delta-symmetric put spread and call spread in the same
// expiry when the underlying is rangebound and vol is rich. It has no
// directional read; it specifically wants the trend filter to be Flat.
type IronCondor struct {
	cfg      CondorConfig
	criteria models.StrategyCriteria
	dir      Direction
	lastBar  *models.Bar
}

func NewIronCondor(cfg CondorConfig) *IronCondor {
	return &IronCondor{cfg: cfg}
}

func (s *IronCondor) Name() string { return "iron_condor" }

func (s *IronCondor) Initialize(cfg *settings.Settings) error {
	if s.cfg.WingWidth <= 0 {
		return fmt.Errorf("iron condor: wing width must be positive, got %v", s.cfg.WingWidth)
	}
	s.criteria = criteriaFromSettings(cfg)
	s.criteria.TargetDelta = s.cfg.TargetDelta
	s.criteria.WingWidth = s.cfg.WingWidth
	s.criteria.MinIVRank = s.cfg.MinIVRank
	s.criteria.MaxIVRank = 100
	return nil
}

func (s *IronCondor) Criteria() models.StrategyCriteria { return s.criteria }

func (s *IronCondor) OnMarketData(bar *models.Bar) *models.OptionSignal {
	s.lastBar = bar
	s.dir = trendDirection(bar)
	return nil
}

func (s *IronCondor) OnOptionChain(chain *models.OptionChain) *models.OptionSignal {
	if s.dir != Flat || s.lastBar == nil || !s.lastBar.HasIndicators() {
		return nil
	}
	if s.lastBar.IVRank < s.criteria.MinIVRank {
		return nil
	}
	if s.lastBar.Close > 0 && s.lastBar.ATR14/s.lastBar.Close*100 > s.cfg.MaxADXProxy {
		return nil
	}
	expiry := chain.ExpirationInDTEWindow(s.criteria.MinDTE, s.criteria.MaxDTE)
	if expiry == 0 {
		return nil
	}

	shortPut := chain.NearestDelta(models.Put, expiry, s.criteria.TargetDelta)
	shortCall := chain.NearestDelta(models.Call, expiry, s.criteria.TargetDelta)
	if shortPut == nil || shortCall == nil {
		return nil
	}
	longPut := chain.NearestStrike(models.Put, expiry, shortPut.Strike-s.cfg.WingWidth)
	longCall := chain.NearestStrike(models.Call, expiry, shortCall.Strike+s.cfg.WingWidth)
	if longPut == nil || longCall == nil {
		return nil
	}
	if longPut.Strike == shortPut.Strike || longCall.Strike == shortCall.Strike {
		return nil
	}
	if shortPut.Strike >= shortCall.Strike {
		return nil
	}

	qty := s.criteria.ContractQuantity
	return &models.OptionSignal{
		Type:       models.IronCondor,
		Underlying: chain.Underlying,
		Strategy:   s.Name(),
		Confidence: 0.5 + s.lastBar.IVRank/200,
		Legs: []models.OptionLeg{
			legFromContract(shortPut, models.Sell, qty),
			legFromContract(longPut, models.Buy, qty),
			legFromContract(shortCall, models.Sell, qty),
			legFromContract(longCall, models.Buy, qty),
		},
	}
}

func (s *IronCondor) Cleanup() {
	s.dir = Flat
	s.lastBar = nil
}
