package strategies

import (
	"github.com/optionslab/wheelhouse/logger"
	"github.com/optionslab/wheelhouse/models"
	"github.com/optionslab/wheelhouse/settings"
)

// WheelState is the stage of the wheel cycle.
type WheelState string

const (
	// StateCashSecuredPut: no shares, selling puts for premium.
	StateCashSecuredPut WheelState = "cash_secured_put"
	// StateAssigned: a short put expired in the money, shares are held and
	// no call has been sold against them yet.
	StateAssigned WheelState = "assigned"
	// StateCoveredCall: shares held with a short call working against them.
	StateCoveredCall WheelState = "covered_call"
)

// WheelConfig is the typed configuration for the wheel strategy.
type WheelConfig struct {
	PutDelta  float64 // short put delta magnitude
	CallDelta float64 // covered call delta magnitude
	MinIVRank float64
}

func DefaultWheelConfig() WheelConfig {
	return WheelConfig{
		PutDelta:  0.30,
		CallDelta: 0.30,
		MinIVRank: 10,
	}
}

// Wheel runs the classic wheel cycle: sell cash-secured puts until assigned,
// then sell covered calls above cost basis until the shares are called away.
// State advances only on position events the engine reports back; the
// strategy never assumes an order filled.
type Wheel struct {
	cfg      WheelConfig
	criteria models.StrategyCriteria

	state     WheelState
	hasOpen   bool    // a wheel leg is currently working
	costBasis float64 // per share, set on assignment
	lastBar   *models.Bar
}

func NewWheel(cfg WheelConfig) *Wheel {
	return &Wheel{cfg: cfg, state: StateCashSecuredPut}
}

func (s *Wheel) Name() string { return "wheel" }

func (s *Wheel) State() WheelState { return s.state }

func (s *Wheel) Initialize(cfg *settings.Settings) error {
	s.criteria = criteriaFromSettings(cfg)
	s.criteria.TargetDelta = s.cfg.PutDelta
	s.criteria.MinIVRank = s.cfg.MinIVRank
	s.criteria.MaxIVRank = 100
	// Short puts ride through drawdowns; assignment is the plan, not a loss
	// to stop out of. Exit on profit target or expiry only, and hold to
	// expiration so assignment can happen.
	s.criteria.StopLossPct = 0
	s.criteria.CloseDTE = 0
	s.state = StateCashSecuredPut
	s.hasOpen = false
	s.costBasis = 0
	return nil
}

func (s *Wheel) Criteria() models.StrategyCriteria { return s.criteria }

func (s *Wheel) OnMarketData(bar *models.Bar) *models.OptionSignal {
	s.lastBar = bar
	return nil
}

func (s *Wheel) OnOptionChain(chain *models.OptionChain) *models.OptionSignal {
	if s.hasOpen || s.lastBar == nil || !s.lastBar.HasIndicators() {
		return nil
	}
	if s.lastBar.IVRank < s.criteria.MinIVRank {
		return nil
	}
	expiry := chain.ExpirationInDTEWindow(s.criteria.MinDTE, s.criteria.MaxDTE)
	if expiry == 0 {
		return nil
	}

	switch s.state {
	case StateCashSecuredPut:
		short := chain.NearestDelta(models.Put, expiry, s.cfg.PutDelta)
		if short == nil {
			return nil
		}
		return s.signal(models.SellPut, chain.Underlying, short)
	case StateAssigned, StateCoveredCall:
		short := chain.NearestDelta(models.Call, expiry, s.cfg.CallDelta)
		if short == nil {
			return nil
		}
		// Never sell a call that locks in a loss on the assigned shares.
		if s.costBasis > 0 && short.Strike < s.costBasis {
			short = chain.NearestStrike(models.Call, expiry, s.costBasis)
			if short == nil || short.Strike < s.costBasis {
				return nil
			}
		}
		return s.signal(models.SellCall, chain.Underlying, short)
	}
	return nil
}

func (s *Wheel) signal(sigType models.SignalType, underlying string, c *models.OptionContract) *models.OptionSignal {
	return &models.OptionSignal{
		Type:       sigType,
		Underlying: underlying,
		Strategy:   s.Name(),
		Confidence: 0.5,
		Legs: []models.OptionLeg{
			legFromContract(c, models.Sell, s.criteria.ContractQuantity),
		},
	}
}

// OnPositionOpened marks the working leg so only one wheel position is ever
// proposed at a time.
func (s *Wheel) OnPositionOpened(trade *models.SimulatedTrade) {
	if trade.Strategy != s.Name() {
		return
	}
	s.hasOpen = true
	if s.state == StateAssigned {
		s.state = StateCoveredCall
	}
}

// OnPositionClosed advances the cycle. A short put expiring in the money
// means assignment; a covered call expiring in the money means the shares
// were called away and the cycle restarts.
func (s *Wheel) OnPositionClosed(trade *models.SimulatedTrade) {
	if trade.Strategy != s.Name() {
		return
	}
	s.hasOpen = false
	if trade.ClosedAtWindowEnd || len(trade.Legs) != 1 {
		return
	}
	strike := trade.Legs[0].Contract.Strike

	switch trade.SignalType {
	case models.SellPut:
		if trade.ExitReason == models.ExitExpiration && trade.UnderlyingExit < strike {
			perShare := trade.EntryNet / float64(trade.Contracts()*100)
			s.costBasis = strike - perShare
			s.state = StateAssigned
			logger.Infof("Wheel assigned at %v, cost basis %.2f", strike, s.costBasis)
		}
	case models.SellCall:
		if trade.ExitReason == models.ExitExpiration && trade.UnderlyingExit > strike {
			logger.Infof("Wheel shares called away at %v", strike)
			s.costBasis = 0
			s.state = StateCashSecuredPut
		} else {
			s.state = StateAssigned
		}
	}
}

func (s *Wheel) Cleanup() {
	s.lastBar = nil
}
