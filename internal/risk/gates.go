// Package risk is the admission layer between a fused signal and the
// command queue: an ordered chain of veto gates, then sizing. Suppression is
// expected control flow, logged at low severity with the gate name as the
// reason; only a full pass emits a command.
package risk

import (
	"math"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"tradepilot/internal/config"
	"tradepilot/internal/decision"
	"tradepilot/internal/model"
	"tradepilot/internal/observ"
	"tradepilot/internal/outbox"
)

// Gate names, in chain order.
const (
	GateDailyLoss  = "daily_loss_limit"
	GateConfidence = "confidence_floor"
	GateSpread     = "spread"
	GatePositions  = "position_cap"
	GateTrend      = "trend"
	GateCooldown   = "cooldown"
	GateATR        = "atr_unavailable"
)

// Context is the state a single evaluation runs against.
type Context struct {
	Signal    decision.Signal
	Tick      model.MarketTick
	Ind       model.Indicators
	Account   model.AccountSnapshot
	Positions []model.Position
	Settings  model.TradeSettings
	Now       time.Time
}

// Result reports what the chain did with the signal.
type Result struct {
	Emitted        bool
	SuppressedBy   string
	Command        outbox.Command
	ReversalClosed []int64 // tickets closed by the reversal side effect
}

// Evaluator owns the gate chain, the cooldown clock, and sizing. One
// instance per controller.
type Evaluator struct {
	mu        sync.Mutex
	cfg       config.Risk
	scales    map[string]float64
	drawdown  *DrawdownTracker
	queue     *outbox.Queue
	guard     *outbox.Guard
	metrics   *observ.Metrics
	dedupeWin time.Duration
	lastTrade time.Time
}

// NewEvaluator wires the chain against the shared queue and dedupe guard.
func NewEvaluator(cfg config.Risk, auto config.Automation, dd *DrawdownTracker, q *outbox.Queue, g *outbox.Guard, m *observ.Metrics) *Evaluator {
	return &Evaluator{
		cfg:       cfg,
		scales:    auto.ContractScales,
		drawdown:  dd,
		queue:     q,
		guard:     g,
		metrics:   m,
		dedupeWin: time.Duration(auto.CommandDedupeSec) * time.Second,
	}
}

// Evaluate runs a non-HOLD signal through the gate chain. On a full pass it
// computes SL/TP and lot, queues the entry command, and records the trade
// time for the cooldown gate.
func (e *Evaluator) Evaluate(ctx Context) Result {
	e.mu.Lock()
	defer e.mu.Unlock()

	if ctx.Signal.Action == decision.Hold {
		return Result{}
	}

	evalID := uuid.NewString()
	final := ctx.Signal.FinalConfidence

	if e.drawdown != nil && e.drawdown.LimitHit() {
		return e.suppress(evalID, GateDailyLoss, ctx)
	}

	if final < e.cfg.MinConfidence {
		return e.suppress(evalID, GateConfidence, ctx)
	}

	// Reversal close is a side effect, not a veto: at high confidence the
	// opposing book is flattened before the new entry proceeds.
	var closed []int64
	if final >= e.cfg.ReversalConfidence {
		closed = e.closeOpposing(ctx)
	}

	atr := ctx.Ind.ATR
	if atr <= 0 {
		return e.suppress(evalID, GateATR, ctx)
	}
	if ctx.Tick.Spread() > e.cfg.SpreadATRMult*atr {
		return e.suppress(evalID, GateSpread, ctx)
	}

	if ctx.Account.PositionCount >= ctx.Settings.MaxPositions {
		return e.suppress(evalID, GatePositions, ctx)
	}

	// Trend filter is skipped until SMA200 has warmed up.
	if sma := ctx.Ind.SMA200; sma > 0 {
		if ctx.Signal.Action == decision.Buy && ctx.Tick.Ask < sma {
			return e.suppress(evalID, GateTrend, ctx)
		}
		if ctx.Signal.Action == decision.Sell && ctx.Tick.Ask > sma {
			return e.suppress(evalID, GateTrend, ctx)
		}
	}

	if cooldown := time.Duration(e.cfg.CooldownSec) * time.Second; ctx.Now.Sub(e.lastTrade) < cooldown {
		return e.suppress(evalID, GateCooldown, ctx)
	}

	cmd := e.buildEntry(ctx, atr)
	if !e.queue.Push(cmd) {
		return Result{SuppressedBy: "queue_full", ReversalClosed: closed}
	}
	e.lastTrade = ctx.Now

	log.Info().
		Str("eval_id", evalID).
		Str("action", string(cmd.Action)).
		Str("symbol", cmd.Symbol).
		Float64("lot", cmd.Lot).
		Float64("sl", cmd.SL).
		Float64("tp", cmd.TP).
		Float64("confidence", ctx.Signal.Display).
		Msg("signal admitted")
	if e.metrics != nil {
		e.metrics.Evaluations.WithLabelValues(string(ctx.Signal.Action)).Inc()
	}

	return Result{Emitted: true, Command: cmd, ReversalClosed: closed}
}

// Drawdown exposes the session drawdown tracker so the account handler can
// feed it snapshots.
func (e *Evaluator) Drawdown() *DrawdownTracker {
	return e.drawdown
}

// RewardMult interpolates the take-profit multiplier between TPMinMult and
// TPMaxMult as confidence rises from the floor to 100.
func (e *Evaluator) RewardMult(finalConfidence float64) float64 {
	floor := e.cfg.MinConfidence
	norm := (finalConfidence - floor) / (100 - floor)
	norm = math.Min(math.Max(norm, 0), 1)
	return e.cfg.TPMinMult + norm*(e.cfg.TPMaxMult-e.cfg.TPMinMult)
}

func (e *Evaluator) buildEntry(ctx Context, atr float64) outbox.Command {
	slDist := atr
	tpDist := atr * e.RewardMult(ctx.Signal.FinalConfidence)

	ask := ctx.Tick.Ask
	var sl, tp float64
	action := outbox.ActionBuy
	if ctx.Signal.Action == decision.Sell {
		action = outbox.ActionSell
		sl = ask + slDist
		tp = ask - tpDist
	} else {
		sl = ask - slDist
		tp = ask + tpDist
	}

	return outbox.Command{
		Action: action,
		Symbol: ctx.Tick.Symbol,
		Lot:    e.lot(ctx, slDist),
		SL:     sl,
		TP:     tp,
	}
}

// lot sizes the entry: fixed-fraction risk of balance over the stop distance
// when auto-lot is on, clamped to the configured bounds; otherwise the
// operator's manual lot.
func (e *Evaluator) lot(ctx Context, slDist float64) float64 {
	if !ctx.Settings.AutoLot {
		return ctx.Settings.Lot
	}

	riskAmount := ctx.Account.Balance * e.cfg.RiskPerTrade
	if riskAmount <= 0 || slDist <= 0 {
		return ctx.Settings.Lot
	}

	lot := riskAmount / (slDist * ContractScale(e.scales, ctx.Tick.Symbol))
	lot = math.Min(math.Max(lot, e.cfg.MinLot), e.cfg.MaxLot)
	return math.Round(lot*100) / 100
}

func (e *Evaluator) closeOpposing(ctx Context) []int64 {
	var want model.Side = model.Buy
	if ctx.Signal.Action == decision.Sell {
		want = model.Sell
	}

	var closed []int64
	for _, pos := range ctx.Positions {
		if !pos.Side.Opposes(want) {
			continue
		}
		cmd := outbox.Command{Action: outbox.ActionCloseTicket, Ticket: pos.Ticket}
		if !e.guard.Allow(cmd.DedupeKey(), e.dedupeWin, ctx.Now) {
			continue
		}
		if e.queue.Push(cmd) {
			closed = append(closed, pos.Ticket)
			log.Info().
				Int64("ticket", pos.Ticket).
				Str("incoming", string(ctx.Signal.Action)).
				Msg("reversal: closing opposing position")
		}
	}
	return closed
}

func (e *Evaluator) suppress(evalID, gate string, ctx Context) Result {
	log.Debug().
		Str("eval_id", evalID).
		Str("gate", gate).
		Str("action", string(ctx.Signal.Action)).
		Float64("confidence", ctx.Signal.Display).
		Msg("signal suppressed")
	if e.metrics != nil {
		e.metrics.GateSuppressed.WithLabelValues(gate).Inc()
	}
	return Result{SuppressedBy: gate}
}

// ContractScale maps a symbol to its profit/lot scale by configured prefix
// match (metals report profit per 100 units, for example). Defaults to 1.
func ContractScale(scales map[string]float64, symbol string) float64 {
	upper := strings.ToUpper(symbol)
	for prefix, scale := range scales {
		if strings.Contains(upper, strings.ToUpper(prefix)) {
			return scale
		}
	}
	return 1
}
