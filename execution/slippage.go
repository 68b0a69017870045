package execution

// SlippageModel maps a strategy's leg count to the fraction of the total
// bid-ask spread given up when entering or exiting. More legs are assumed
// to be priced as a package and capture less of each spread.
type SlippageModel struct {
	captureByLegs map[int]float64
	defaultLegs   int
}

func NewSlippageModel() *SlippageModel {
	return &SlippageModel{
		captureByLegs: map[int]float64{
			1: 0.75,
			2: 0.65,
			4: 0.56,
		},
		defaultLegs: 2,
	}
}

// Capture returns the spread fraction for a leg count; unknown counts use
// the two-leg fraction.
func (s *SlippageModel) Capture(legs int) float64 {
	if frac, ok := s.captureByLegs[legs]; ok {
		return frac
	}
	return s.captureByLegs[s.defaultLegs]
}

// Estimate is the total slippage for an order across legs with the given
// bid-ask spreads, per share.
func (s *SlippageModel) Estimate(spreads []float64) float64 {
	total := 0.0
	for _, spread := range spreads {
		total += spread
	}
	return total * s.Capture(len(spreads))
}

// Apply worsens a net premium by the slippage amount: a credit shrinks, a
// debit grows. Floors at zero so a tiny credit cannot flip sign.
func (s *SlippageModel) Apply(net float64, isCredit bool, slippage float64) float64 {
	if isCredit {
		net -= slippage
		if net < 0 {
			net = 0
		}
		return net
	}
	return net + slippage
}

// CommissionModel charges a fixed rate per contract, once at entry and once
// at exit. It is intentionally independent of the slippage model so either
// can be zeroed in isolation.
type CommissionModel struct {
	PerContract float64
}

func (c CommissionModel) Charge(contracts int) float64 {
	if contracts <= 0 {
		return 0
	}
	return c.PerContract * float64(contracts)
}
