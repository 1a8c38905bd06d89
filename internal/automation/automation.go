// Package automation applies in-flight position protection on every
// position snapshot: break-even moves, trailing stops, and profit/loss
// target closes. The whole sweep is suppressed while the market is closed:
// stale quotes must never drive automated closes.
package automation

import (
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"tradepilot/internal/config"
	"tradepilot/internal/model"
	"tradepilot/internal/outbox"
	"tradepilot/internal/risk"
)

// Sweeper runs the protection rules against the shared queue and guard.
type Sweeper struct {
	cfg   config.Automation
	queue *outbox.Queue
	guard *outbox.Guard
}

// NewSweeper returns a sweeper using the given tunables.
func NewSweeper(cfg config.Automation, q *outbox.Queue, g *outbox.Guard) *Sweeper {
	return &Sweeper{cfg: cfg, queue: q, guard: g}
}

// Sweep applies break-even, trailing-stop, and per-position target rules to
// the current position set. ATR comes from the market tick's derived
// indicators; positions in profit but without a warmed ATR only get the
// target rules.
func (s *Sweeper) Sweep(market model.MarketTick, positions []model.Position, settings model.TradeSettings, now time.Time) {
	if !market.IsOpen {
		return
	}

	for _, pos := range positions {
		if pos.Profit > 0 && market.Indicators.ATR > 0 {
			s.protect(market, pos, now)
		}
		s.checkTargets(pos, settings, now)
	}
}

// protect applies break-even first, then the trailing stop. Both are
// idempotent against the agent-reported SL and additionally guarded by a
// short re-send window, because a modify issued on the previous snapshot may
// not have been applied yet.
func (s *Sweeper) protect(market model.MarketTick, pos model.Position, now time.Time) {
	atr := market.Indicators.ATR
	scale := risk.ContractScale(s.cfg.ContractScales, market.Symbol)
	profitInATR := pos.Profit / (atr * scale)

	if profitInATR >= s.cfg.BreakEvenTrigger {
		s.breakEven(market, pos, now)
	}
	if profitInATR >= s.cfg.TrailingStopMult {
		s.trail(market, pos, atr, now)
	}
}

// breakEven moves the SL to entry plus a small spread buffer, once.
func (s *Sweeper) breakEven(market model.MarketTick, pos model.Position, now time.Time) {
	buffer := s.buffer(market.Symbol)

	var newSL float64
	switch pos.Side {
	case model.Buy:
		if pos.SL >= pos.PriceOpen {
			return // already at or past break-even
		}
		newSL = pos.PriceOpen + buffer
	case model.Sell:
		if pos.SL != 0 && pos.SL <= pos.PriceOpen {
			return
		}
		newSL = pos.PriceOpen - buffer
	}

	if s.modify(pos, newSL, now) {
		log.Info().
			Int64("ticket", pos.Ticket).
			Float64("sl", newSL).
			Msg("protection: SL moved to break-even")
	}
}

// trail follows favorable movement at TrailingStopMult ATRs behind the
// current price, moving only when the improvement clears the churn step.
func (s *Sweeper) trail(market model.MarketTick, pos model.Position, atr float64, now time.Time) {
	step := s.cfg.TrailingStepATR * atr
	trail := s.cfg.TrailingStopMult * atr

	var newSL float64
	switch pos.Side {
	case model.Buy:
		newSL = market.Bid - trail
		if newSL <= pos.SL+step {
			return
		}
	case model.Sell:
		newSL = market.Ask + trail
		if pos.SL != 0 && newSL >= pos.SL-step {
			return
		}
	}

	if s.modify(pos, newSL, now) {
		log.Info().
			Int64("ticket", pos.Ticket).
			Float64("sl", newSL).
			Msg("protection: trailing SL advanced")
	}
}

func (s *Sweeper) modify(pos model.Position, newSL float64, now time.Time) bool {
	cmd := outbox.Command{
		Action: outbox.ActionModifyTicket,
		Ticket: pos.Ticket,
		SL:     newSL,
		TP:     pos.TP,
	}
	window := time.Duration(s.cfg.CommandDedupeSec) * time.Second
	if !s.guard.Allow(cmd.DedupeKey(), window, now) {
		return false
	}
	return s.queue.Push(cmd)
}

// checkTargets closes a ticket whose floating profit crossed its configured
// profit or loss threshold, deduped per ticket within the suppression
// window. The profit target is checked first; a ticket cannot hit both.
func (s *Sweeper) checkTargets(pos model.Position, settings model.TradeSettings, now time.Time) {
	window := time.Duration(s.cfg.CloseDedupeSec) * time.Second

	switch {
	case settings.PosProfitLimit > 0 && pos.Profit >= settings.PosProfitLimit:
		cmd := outbox.Command{Action: outbox.ActionCloseTicket, Ticket: pos.Ticket}
		if !s.guard.Allow(cmd.DedupeKey(), window, now) {
			return
		}
		if s.queue.Push(cmd) {
			log.Info().
				Int64("ticket", pos.Ticket).
				Float64("profit", pos.Profit).
				Msg("position profit target hit")
		}
	case settings.PosLossLimit > 0 && pos.Profit <= -settings.PosLossLimit:
		cmd := outbox.Command{Action: outbox.ActionCloseTicket, Ticket: pos.Ticket}
		if !s.guard.Allow(cmd.DedupeKey(), window, now) {
			return
		}
		if s.queue.Push(cmd) {
			log.Warn().
				Int64("ticket", pos.Ticket).
				Float64("profit", pos.Profit).
				Msg("position loss limit hit")
		}
	}
}

// CheckAccountTarget closes the whole book when aggregate floating profit
// reaches the account-wide target. Deduped with the CLOSE_ALL sentinel key;
// suppressed while the market is closed.
func (s *Sweeper) CheckAccountTarget(account model.AccountSnapshot, settings model.TradeSettings, marketOpen bool, now time.Time) {
	if settings.AutoProfitClose <= 0 || account.Profit < settings.AutoProfitClose {
		return
	}
	if !marketOpen {
		return
	}

	cmd := outbox.Command{Action: outbox.ActionCloseAll}
	window := time.Duration(s.cfg.CloseDedupeSec) * time.Second
	if !s.guard.Allow(cmd.DedupeKey(), window, now) {
		return
	}
	if s.queue.Push(cmd) {
		log.Info().
			Float64("profit", account.Profit).
			Float64("target", settings.AutoProfitClose).
			Msg("account profit target hit, closing all")
	}
}

func (s *Sweeper) buffer(symbol string) float64 {
	upper := strings.ToUpper(symbol)
	for prefix, b := range s.cfg.SpreadBuffers {
		if strings.Contains(upper, strings.ToUpper(prefix)) {
			return b
		}
	}
	return s.cfg.DefaultBuffer
}
