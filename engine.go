package wheelhouse

import (
	"context"
	"fmt"
	"math"
	"math/rand"
	"time"

	"github.com/optionslab/wheelhouse/execution"
	"github.com/optionslab/wheelhouse/logger"
	"github.com/optionslab/wheelhouse/models"
	"github.com/optionslab/wheelhouse/settings"
	"github.com/optionslab/wheelhouse/strategies"
)

// BacktestEngine replays a bar series against option chain snapshots and
// simulates the strategy's fills, exits and P&L. The replay loop is
// single-threaded; each call to Run owns a fresh ledger, so independent
// engines may run concurrently.
type BacktestEngine struct {
	cfg      *settings.Settings
	strategy strategies.Strategy
	observer strategies.PositionObserver

	fill       *execution.FillProbabilityModel
	gap        *execution.GapRiskModel
	slip       *execution.SlippageModel
	commission execution.CommissionModel
	risk       RiskManager
	customRisk bool

	// per-run state, reset at the top of Run
	ledger     *models.BacktestLedger
	rng        *rand.Rand
	rejections map[models.RejectReason]int
	lastMark   map[string]float64 // trade ID -> last cost to close
	gapCost    map[string]float64 // trade ID -> accumulated gap slippage
}

func NewBacktestEngine(cfg *settings.Settings, strategy strategies.Strategy) (*BacktestEngine, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	logger.SetLevel(cfg.LogLevel)
	if err := strategy.Initialize(cfg); err != nil {
		return nil, fmt.Errorf("initialize strategy %v: %w", strategy.Name(), err)
	}
	crit := strategy.Criteria()

	gapCfg := execution.DefaultGapRiskConfig()
	gapCfg.StopBreachPct = cfg.GapStopBreachPct

	e := &BacktestEngine{
		cfg:      cfg,
		strategy: strategy,
		fill: execution.NewFillProbabilityModel(execution.FillConfig{
			MinOpenInterest: crit.MinOpenInterest,
			MaxSpreadPct:    crit.MaxSpreadPct,
		}),
		gap:        execution.NewGapRiskModel(gapCfg),
		slip:       execution.NewSlippageModel(),
		commission: execution.CommissionModel{PerContract: cfg.CommissionPerContract},
		risk:       NewDefaultRiskManager(cfg),
	}
	e.observer, _ = strategy.(strategies.PositionObserver)
	return e, nil
}

// UseRiskManager swaps the entry gate. Call before Run. A custom gate is
// responsible for resetting its own state between runs.
func (e *BacktestEngine) UseRiskManager(rm RiskManager) {
	e.risk = rm
	e.customRisk = true
}

// Run replays bars in order against their chain snapshots and returns the
// completed result. Chains are keyed by bar timestamp; bars without a chain
// or with unfilled indicator columns are skipped as data gaps. Run resets
// all per-run state, so calling it twice with the same inputs produces
// identical results.
func (e *BacktestEngine) Run(ctx context.Context, bars []*models.Bar, chains map[int64]*models.OptionChain) (*models.BacktestResult, error) {
	if len(bars) == 0 {
		return nil, fmt.Errorf("run: no bars")
	}
	start := time.Now()

	e.ledger = models.NewBacktestLedger(e.cfg.InitialCapital)
	e.rng = rand.New(rand.NewSource(e.cfg.RandomSeed))
	e.rejections = make(map[models.RejectReason]int)
	e.lastMark = make(map[string]float64)
	e.gapCost = make(map[string]float64)
	if err := e.strategy.Initialize(e.cfg); err != nil {
		return nil, fmt.Errorf("initialize strategy %v: %w", e.strategy.Name(), err)
	}
	defer e.strategy.Cleanup()
	if !e.customRisk {
		e.risk = NewDefaultRiskManager(e.cfg)
	}

	var lastChain *models.OptionChain
	for i, bar := range bars {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
		}

		ts := bar.Time()
		chain, ok := chains[bar.Timestamp]
		if !ok || chain == nil || !bar.HasIndicators() {
			e.reject(models.RejectNoMarketData)
			continue
		}
		lastChain = chain

		sig := e.strategy.OnMarketData(bar)

		// Exits always precede entries so freed capital is usable in the
		// same step and a position cannot flip ambiguously.
		if err := e.updateOpenPositions(ts, bar, chain); err != nil {
			return nil, err
		}

		if len(e.ledger.OpenTrades()) >= e.cfg.MaxConcurrentPositions {
			if sig != nil {
				e.reject(models.RejectMaxPositions)
			}
		} else {
			if sig == nil {
				sig = e.strategy.OnOptionChain(chain)
			}
			if sig == nil {
				e.reject(models.RejectNoDirectionSignal)
			} else if err := e.tryOpen(sig, ts, bar, chain); err != nil {
				return nil, err
			}
		}

		openValue := e.openValue(chain)
		e.ledger.MarkEquity(ts, openValue)
		e.risk.MarkEquity(ts, e.ledger.Cash+openValue)

		if e.cfg.EnableGapModel && i+1 < len(bars) {
			e.accrueGapRisk(ts, bars[i+1].Time(), bar, chain)
		}
	}

	if lastChain != nil {
		if err := e.closeAtWindowEnd(lastChain); err != nil {
			return nil, err
		}
	}

	result := &models.BacktestResult{
		Strategy:    e.strategy.Name(),
		Underlying:  bars[0].Symbol,
		Start:       bars[0].Time(),
		End:         bars[len(bars)-1].Time(),
		Trades:      e.ledger.Trades,
		EquityCurve: e.ledger.EquityCurve,
		Rejections:  e.rejections,
		Params:      ParamsString(e.cfg),
	}
	result.Metrics = ComputeMetrics(e.ledger, e.cfg, result.Start, result.End)

	logger.Infof("Backtest %v %v: %v trades, ending equity %.2f, elapsed %v",
		result.Strategy, result.Underlying, result.Metrics.TotalTrades,
		result.Metrics.EndingEquity, time.Since(start))
	return result, nil
}

func (e *BacktestEngine) reject(reason models.RejectReason) {
	e.rejections[reason]++
	logger.Debugf("rejected: %v", reason)
}

// updateOpenPositions marks every open trade against the current chain and
// fires the first exit condition that applies: profit target, stop loss,
// close-DTE, or expiration.
func (e *BacktestEngine) updateOpenPositions(ts time.Time, bar *models.Bar, chain *models.OptionChain) error {
	crit := e.strategy.Criteria()
	for _, t := range e.ledger.OpenTrades() {
		closeNet, marked := e.markTrade(t, chain)
		if !marked {
			closeNet = e.lastMark[t.ID]
		}

		expired := false
		minDTE := math.MaxInt32
		for _, leg := range t.Legs {
			if leg.Contract.Expired(ts) {
				expired = true
			}
			if dte := leg.Contract.DTE(ts); dte < minDTE {
				minDTE = dte
			}
		}

		pnlPct := t.PnLPct(closeNet)
		var reason models.ExitReason
		switch {
		case crit.ProfitTargetPct > 0 && pnlPct >= crit.ProfitTargetPct:
			reason = models.ExitProfitTarget
		case crit.StopLossPct > 0 && pnlPct <= -crit.StopLossPct:
			reason = models.ExitStopLoss
		case !expired && crit.CloseDTE > 0 && minDTE <= crit.CloseDTE:
			reason = models.ExitCloseDTE
		case expired:
			reason = models.ExitExpiration
		default:
			continue
		}

		if err := e.closePosition(t, ts, bar, chain, closeNet, reason); err != nil {
			return err
		}
	}
	return nil
}

// closePosition books an exit. Expirations settle at the mark with no
// closing order; every other exit pays slippage and commission, plus any
// gap-risk cost accrued while a stop could not execute. A window-end mark
// is not an exit event and carries no cost at all.
func (e *BacktestEngine) closePosition(t *models.SimulatedTrade, ts time.Time, bar *models.Bar, chain *models.OptionChain, closeNet float64, reason models.ExitReason) error {
	var slippage, commission float64
	if reason != models.ExitExpiration && reason != models.ExitWindowEnd {
		spreads := make([]float64, 0, len(t.Legs))
		for _, leg := range t.Legs {
			spread := leg.Contract.Spread()
			if c, ok := chain.Lookup(leg.Contract.Symbol); ok {
				spread = c.Spread()
			}
			spreads = append(spreads, spread*float64(leg.Quantity))
		}
		slippage = e.slip.Estimate(spreads) * 100
		commission = e.commission.Charge(t.Contracts())
	}
	if reason != models.ExitWindowEnd {
		slippage += e.gapCost[t.ID]
	}

	exitNet := closeNet
	if t.IsCredit {
		exitNet += slippage
	} else {
		exitNet -= slippage
		if exitNet < 0 {
			exitNet = 0
		}
	}

	if err := e.ledger.CloseTrade(t, ts, exitNet, slippage, commission, reason); err != nil {
		return err
	}
	t.UnderlyingExit = chain.UnderlyingPrice
	if bar != nil {
		t.UnderlyingExit = bar.Close
	}
	delete(e.lastMark, t.ID)
	delete(e.gapCost, t.ID)
	logger.Debugf("closed %v %v pnl %.2f reason %v", t.SignalType, t.ID, t.RealizedPnL, reason)
	if e.observer != nil {
		e.observer.OnPositionClosed(t)
	}
	return nil
}

// tryOpen walks a signal through the entry pipeline. Every early return
// books exactly one reject reason; only invariant violations error.
func (e *BacktestEngine) tryOpen(sig *models.OptionSignal, ts time.Time, bar *models.Bar, chain *models.OptionChain) error {
	legs := make([]models.FilledLeg, 0, len(sig.Legs))
	for _, leg := range sig.Legs {
		c, ok := chain.Lookup(leg.Symbol)
		if !ok {
			e.reject(models.RejectContractNotFound)
			return nil
		}
		legs = append(legs, models.FilledLeg{
			Contract: *c,
			Side:     leg.Side,
			Quantity: leg.Quantity,
		})
	}
	if len(legs) == 0 {
		e.reject(models.RejectContractNotFound)
		return nil
	}

	// Resolution includes the entry window: a leg expiring outside
	// [MinDTE, MaxDTE] is not a valid candidate no matter what the
	// strategy proposed.
	crit := e.strategy.Criteria()
	for _, leg := range legs {
		dte := leg.Contract.DTE(ts)
		if dte < crit.MinDTE || (crit.MaxDTE > 0 && dte > crit.MaxDTE) {
			e.reject(models.RejectContractNotFound)
			return nil
		}
	}

	net := 0.0
	spreads := make([]float64, 0, len(legs))
	for _, leg := range legs {
		if leg.Side == models.Sell {
			net += leg.Contract.Mid() * float64(leg.Quantity)
		} else {
			net -= leg.Contract.Mid() * float64(leg.Quantity)
		}
		spreads = append(spreads, leg.Contract.Spread()*float64(leg.Quantity))
	}
	isCredit := net > 0
	grossNet := math.Abs(net) * 100
	slippage := e.slip.Estimate(spreads) * 100
	entryNet := e.slip.Apply(grossNet, isCredit, slippage)
	commission := e.commission.Charge(sig.Contracts())
	maxRisk := maxRiskDollars(legs, entryNet, isCredit)

	openValue := e.openValue(chain)
	equity := e.ledger.Cash + openValue
	available := e.ledger.BuyingPower - e.cfg.BuyingPowerReservePct*equity
	if maxRisk > available {
		e.reject(models.RejectInsufficientBP)
		return nil
	}

	volIndex := bar.HV20 * 100
	snap := RiskSnapshot{Timestamp: ts, Equity: equity, VolIndex: volIndex}
	if err := e.risk.ApproveEntry(sig, maxRisk, snap); err != nil {
		logger.Debugf("risk gate: %v", err)
		e.reject(models.RejectRiskManager)
		return nil
	}

	if e.cfg.EnableFillModel {
		fillCtx := e.fillContext(legs, ts, volIndex, false)
		if !e.fill.WillFill(fillCtx, e.rng.Float64()) {
			e.reject(models.RejectFillProbability)
			return nil
		}
	}

	trade := models.NewSimulatedTrade(sig, e.fillLegs(legs), ts)
	trade.IsCredit = isCredit
	trade.EntryNet = entryNet
	trade.EntrySlippage = slippage
	trade.EntryCommission = commission
	trade.EntryDTE = legs[0].Contract.DTE(ts)
	trade.MaxRisk = maxRisk
	if err := e.ledger.OpenTrade(trade); err != nil {
		return err
	}
	e.lastMark[trade.ID] = entryNet
	logger.Debugf("opened %v %v net %.2f risk %.2f dte %v", trade.SignalType, trade.ID, entryNet, maxRisk, trade.EntryDTE)
	if e.observer != nil {
		e.observer.OnPositionOpened(trade)
	}
	return nil
}

// fillLegs stamps each leg with its modeled fill price: mid worsened by
// that leg's share of the captured spread.
func (e *BacktestEngine) fillLegs(legs []models.FilledLeg) []models.FilledLeg {
	capture := e.slip.Capture(len(legs))
	for i := range legs {
		slip := legs[i].Contract.Spread() * capture
		if legs[i].Side == models.Sell {
			legs[i].FillPrice = legs[i].Contract.Mid() - slip
		} else {
			legs[i].FillPrice = legs[i].Contract.Mid() + slip
		}
	}
	return legs
}

// fillContext aggregates the weakest leg: the lowest open interest and the
// widest spread bound the whole package's chance of filling.
func (e *BacktestEngine) fillContext(legs []models.FilledLeg, ts time.Time, volIndex float64, closing bool) execution.FillContext {
	minOI := int(math.MaxInt32)
	maxSpreadPct := 0.0
	minVolume := math.Inf(1)
	for _, leg := range legs {
		if leg.Contract.OpenInterest < minOI {
			minOI = leg.Contract.OpenInterest
		}
		if pct := leg.Contract.SpreadPct(); pct > maxSpreadPct {
			maxSpreadPct = pct
		}
		if v := float64(leg.Contract.Volume); v < minVolume {
			minVolume = v
		}
	}
	return execution.FillContext{
		OpenInterest:   minOI,
		SpreadPct:      maxSpreadPct,
		Timestamp:      ts,
		VolIndex:       volIndex,
		OrderSize:      legs[0].Quantity,
		AvgDailyVolume: minVolume,
		OptionType:     legs[0].Contract.OptionType,
		IsClosing:      closing,
	}
}

// markTrade computes the current cost to close (credit) or value on close
// (debit) against the chain. A leg missing from the snapshot leaves the
// trade at its previous mark.
func (e *BacktestEngine) markTrade(t *models.SimulatedTrade, chain *models.OptionChain) (float64, bool) {
	net := 0.0
	for _, leg := range t.Legs {
		c, ok := chain.Lookup(leg.Contract.Symbol)
		if !ok {
			return 0, false
		}
		if leg.Side == models.Sell {
			net += c.Mid() * float64(leg.Quantity)
		} else {
			net -= c.Mid() * float64(leg.Quantity)
		}
	}
	// net is the credit still embedded in the position; the cost to close
	// mirrors the entry sign convention.
	closeNet := math.Abs(net) * 100
	if (net > 0) != t.IsCredit {
		// The position's value crossed zero; closing now is free money or
		// a total loss depending on side. Clamp at zero.
		closeNet = 0
	}
	e.lastMark[t.ID] = closeNet
	return closeNet, true
}

// openValue is the signed mark-to-market of open positions: negative for
// the liability of buying back credit positions, positive for debit value
// held.
func (e *BacktestEngine) openValue(chain *models.OptionChain) float64 {
	total := 0.0
	for _, t := range e.ledger.OpenTrades() {
		mark, ok := e.markTrade(t, chain)
		if !ok {
			mark = e.lastMark[t.ID]
		}
		if t.IsCredit {
			total -= mark
		} else {
			total += mark
		}
	}
	return total
}

// accrueGapRisk charges open positions the extra stop slippage of a gap
// when the step from ts to next crosses a session boundary.
func (e *BacktestEngine) accrueGapRisk(ts, next time.Time, bar *models.Bar, chain *models.OptionChain) {
	if !e.gap.ShouldCheckGapRisk(ts, next) {
		return
	}
	evalTs := next
	if !e.gap.IsMarketOpen(ts) {
		evalTs = ts
	}
	for _, t := range e.ledger.OpenTrades() {
		mark, ok := e.markTrade(t, chain)
		if !ok {
			mark = e.lastMark[t.ID]
		}
		impact := e.gap.EstimateGapImpact(t.PnLPct(mark), t.MaxRisk, evalTs, bar.HV20, false)
		if impact > 0 {
			e.gapCost[t.ID] += impact
			logger.Debugf("gap risk on %v: %.2f", t.ID, impact)
		}
	}
}

// closeAtWindowEnd marks positions still open at the end of the run to the
// last quote. These are flagged, not counted as real exit events.
func (e *BacktestEngine) closeAtWindowEnd(chain *models.OptionChain) error {
	ts := chain.Time()
	for _, t := range e.ledger.OpenTrades() {
		closeNet, ok := e.markTrade(t, chain)
		if !ok {
			closeNet = e.lastMark[t.ID]
		}
		if err := e.closePosition(t, ts, nil, chain, closeNet, models.ExitWindowEnd); err != nil {
			return err
		}
	}
	return nil
}

// maxRiskDollars is the buying power a position reserves: the full premium
// for debit positions, the spread width less the credit for defined-risk
// credit positions, and the cash to secure the strike for naked shorts.
func maxRiskDollars(legs []models.FilledLeg, entryNet float64, isCredit bool) float64 {
	if !isCredit {
		return entryNet
	}
	type shortLeg struct {
		strike   float64
		quantity int
	}
	shorts := make(map[models.OptionType]shortLeg)
	longs := make(map[models.OptionType]float64)
	for _, leg := range legs {
		if leg.Side == models.Sell {
			shorts[leg.Contract.OptionType] = shortLeg{leg.Contract.Strike, leg.Quantity}
		} else {
			longs[leg.Contract.OptionType] = leg.Contract.Strike
		}
	}
	risk := 0.0
	for optType, short := range shorts {
		// naked short: secure the whole strike
		width := short.strike
		if long, ok := longs[optType]; ok {
			width = math.Abs(short.strike - long)
		}
		// only one side of a balanced position can finish in the money
		if r := width * 100 * float64(short.quantity); r > risk {
			risk = r
		}
	}
	risk -= entryNet
	if risk < 0 {
		risk = 0
	}
	return risk
}
