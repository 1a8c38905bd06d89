// Package state owns all mutable controller state. The Store is the only
// component that mutates the market/account/position/settings snapshots, and
// it does so exclusively in response to bus events; producers (tick
// ingestion, settings edits, the watchdog) serialize through Emit. The
// watchdog timer runs concurrently and may race benignly with tick arrival;
// disconnect detection is idempotent.
package state

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/time/rate"

	"tradepilot/internal/automation"
	"tradepilot/internal/bus"
	"tradepilot/internal/config"
	"tradepilot/internal/decision"
	"tradepilot/internal/model"
	"tradepilot/internal/news"
	"tradepilot/internal/observ"
	"tradepilot/internal/outbox"
	"tradepilot/internal/pattern"
	"tradepilot/internal/predictor"
	"tradepilot/internal/risk"
)

// Store is the single-writer state owner and central coordinator.
type Store struct {
	mu sync.Mutex

	cfg        config.Root
	bus        *bus.Bus
	queue      *outbox.Queue
	guard      *outbox.Guard
	pred       *predictor.Predictor
	classifier pattern.Classifier
	news       news.Provider
	gates      *risk.Evaluator
	sweeper    *automation.Sweeper
	metrics    *observ.Metrics

	market    model.MarketTick
	account   model.AccountSnapshot
	positions []model.Position
	settings  model.TradeSettings
	symbols   []string

	connected     bool
	lastHeartbeat time.Time
	limiter       *rate.Limiter
	now           func() time.Time
}

// Deps bundles the collaborators the store coordinates.
type Deps struct {
	Bus        *bus.Bus
	Queue      *outbox.Queue
	Guard      *outbox.Guard
	Predictor  *predictor.Predictor
	Classifier pattern.Classifier
	News       news.Provider
	Gates      *risk.Evaluator
	Sweeper    *automation.Sweeper
	Metrics    *observ.Metrics
}

// New builds the store and subscribes it to every event it coordinates.
func New(cfg config.Root, d Deps) *Store {
	s := &Store{
		cfg:        cfg,
		bus:        d.Bus,
		queue:      d.Queue,
		guard:      d.Guard,
		pred:       d.Predictor,
		classifier: d.Classifier,
		news:       d.News,
		gates:      d.Gates,
		sweeper:    d.Sweeper,
		metrics:    d.Metrics,
		settings:   cfg.Settings,
		limiter:    rate.NewLimiter(rate.Limit(cfg.Strategy.EvalRateHz), 1),
		now:        time.Now,
	}

	d.Bus.Subscribe(bus.PriceTick, s.onTick)
	d.Bus.Subscribe(bus.AccountSnapshot, s.onAccount)
	d.Bus.Subscribe(bus.PositionSnapshot, s.onPositions)
	d.Bus.Subscribe(bus.ConnectionChange, s.onConnectionChange)
	d.Bus.Subscribe(bus.SettingsChange, s.onSettings)
	d.Bus.Subscribe(bus.TradeCommand, s.onTradeCommand)
	d.Bus.Subscribe(bus.SymbolList, s.onSymbols)

	return s
}

// onTick replaces the market snapshot, refreshes the heartbeat, flips the
// connection state if needed, and (throttled to the configured rate) runs
// the evaluation pipeline when auto-trade is enabled.
func (s *Store) onTick(payload any) {
	tick, ok := payload.(model.MarketTick)
	if !ok || !tick.Valid() {
		log.Warn().Interface("payload", payload).Msg("malformed price tick dropped")
		return
	}

	s.mu.Lock()
	now := s.now()
	if tick.Timestamp.IsZero() {
		tick.Timestamp = now
	}
	// Derived fields carry over until the next evaluation refreshes them.
	tick.Indicators = s.market.Indicators
	tick.Predicted = s.market.Predicted
	tick.Confidence = s.market.Confidence
	s.market = tick
	s.lastHeartbeat = now
	connect := !s.connected
	autoTrade := s.settings.AutoTrade
	s.mu.Unlock()

	if connect {
		s.bus.Emit(bus.ConnectionChange, true)
	}

	if autoTrade && s.limiter.Allow() {
		s.evaluate(now)
	}
}

// evaluate runs predictor → pattern → news → fusion → risk chain. Capability
// faults degrade to neutral inputs; they never abort the loop.
func (s *Store) evaluate(now time.Time) {
	s.mu.Lock()
	tick := s.market
	settings := s.settings
	account := s.account
	positions := append([]model.Position(nil), s.positions...)
	s.mu.Unlock()

	forecast := s.predict(tick)
	pat := s.classify(tick, forecast.Indicators)
	sentiment := s.sentiment(tick.Symbol)

	sig := decision.Evaluate(decision.Inputs{
		Tick:          tick,
		Predicted:     forecast.Price,
		Ind:           forecast.Indicators,
		Pattern:       pat,
		Sentiment:     sentiment,
		BuyThreshold:  settings.BuyThreshold,
		SellThreshold: settings.SellThreshold,
		Divisor:       s.cfg.Strategy.ConfidenceDivisor,
		RawCap:        s.cfg.Strategy.RawConfidenceCap,
		VetoFloor:     s.cfg.Strategy.ContradictionFloor,
	})

	s.mu.Lock()
	s.market.Indicators = forecast.Indicators
	s.market.Predicted = forecast.Price
	s.market.Confidence = sig.Display
	s.mu.Unlock()

	if sig.Action == decision.Hold {
		if s.metrics != nil {
			s.metrics.Evaluations.WithLabelValues("HOLD").Inc()
		}
		return
	}

	s.gates.Evaluate(risk.Context{
		Signal:    sig,
		Tick:      tick,
		Ind:       forecast.Indicators,
		Account:   account,
		Positions: positions,
		Settings:  settings,
		Now:       now,
	})
}

// onAccount feeds the drawdown tracker, checks the account-wide profit
// target, and replaces the snapshot.
func (s *Store) onAccount(payload any) {
	a, ok := payload.(model.AccountSnapshot)
	if !ok || !a.Valid() {
		log.Warn().Msg("malformed account snapshot dropped")
		return
	}

	s.mu.Lock()
	s.account = a
	settings := s.settings
	marketOpen := s.market.IsOpen
	now := s.now()
	s.mu.Unlock()

	s.gates.Drawdown().Update(a)
	s.sweeper.CheckAccountTarget(a, settings, marketOpen, now)
}

// onPositions replaces the position set and runs the protection sweep.
func (s *Store) onPositions(payload any) {
	p, ok := payload.([]model.Position)
	if !ok {
		log.Warn().Msg("malformed position snapshot dropped")
		return
	}

	s.mu.Lock()
	s.positions = p
	market := s.market
	settings := s.settings
	now := s.now()
	s.mu.Unlock()

	s.sweeper.Sweep(market, p, settings, now)
}

func (s *Store) onConnectionChange(payload any) {
	up, ok := payload.(bool)
	if !ok {
		return
	}

	s.mu.Lock()
	changed := s.connected != up
	s.connected = up
	if up {
		s.lastHeartbeat = s.now()
	}
	s.mu.Unlock()

	if s.metrics != nil {
		v := 0.0
		if up {
			v = 1.0
		}
		s.metrics.Connected.Set(v)
	}
	if changed {
		if up {
			log.Info().Msg("agent connection established")
		} else {
			// Not an error, and automated trading stays enabled: the queue
			// simply stops draining until the agent polls again.
			log.Warn().Msg("agent disconnected")
		}
	}
}

// onSettings diffs against the previous settings: toggling auto-trade is
// logged, and a symbol change clears the predictor's rolling window (to
// prevent cross-symbol statistic bleed) and queues CHANGE_SYMBOL.
func (s *Store) onSettings(payload any) {
	v, ok := payload.(model.TradeSettings)
	if !ok {
		log.Warn().Msg("malformed settings change dropped")
		return
	}

	s.mu.Lock()
	prev := s.settings
	s.settings = v
	s.mu.Unlock()

	if prev.AutoTrade != v.AutoTrade {
		log.Info().Bool("enabled", v.AutoTrade).Msg("auto-trade toggled")
	}

	if v.Symbol != "" && prev.Symbol != v.Symbol {
		log.Info().Str("symbol", v.Symbol).Msg("active symbol changed")
		s.pred.Reset()
		s.queue.Push(outbox.Command{Action: outbox.ActionChangeSymbol, Symbol: v.Symbol})
	}
}

// onTradeCommand routes operator-issued commands through the same queue and
// dedupe discipline as automated ones. Entry commands inherit unset
// lot/SL/TP from settings; close intents pass the guard first.
func (s *Store) onTradeCommand(payload any) {
	cmd, ok := payload.(outbox.Command)
	if !ok {
		log.Warn().Msg("malformed trade command dropped")
		return
	}

	s.mu.Lock()
	settings := s.settings
	market := s.market
	now := s.now()
	s.mu.Unlock()

	if cmd.Symbol == "" {
		cmd.Symbol = settings.Symbol
		if cmd.Symbol == "" {
			cmd.Symbol = market.Symbol
		}
	}

	switch cmd.Action {
	case outbox.ActionBuy, outbox.ActionSell:
		if cmd.Lot == 0 {
			cmd.Lot = settings.Lot
		}
		if cmd.SL == 0 {
			cmd.SL = settings.SL
		}
		if cmd.TP == 0 {
			cmd.TP = settings.TP
		}
	}

	if cmd.Action.IsClose() {
		window := time.Duration(s.cfg.Automation.CommandDedupeSec) * time.Second
		if !s.guard.Allow(cmd.DedupeKey(), window, now) {
			return
		}
	}

	s.queue.Push(cmd)
}

func (s *Store) onSymbols(payload any) {
	syms, ok := payload.([]string)
	if !ok {
		return
	}
	s.mu.Lock()
	s.symbols = syms
	s.mu.Unlock()
}

// Watchdog marks the agent disconnected when no tick has arrived within the
// configured timeout. It runs on its own timer and may race benignly with
// tick handling; the emitted transition is idempotent.
func (s *Store) Watchdog(ctx context.Context) {
	interval := time.Duration(s.cfg.Watchdog.IntervalSec) * time.Second
	timeout := time.Duration(s.cfg.Watchdog.TimeoutSec) * time.Second

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.mu.Lock()
			stale := s.connected && s.now().Sub(s.lastHeartbeat) > timeout
			s.mu.Unlock()
			if stale {
				s.bus.Emit(bus.ConnectionChange, false)
			}
		}
	}
}

// Poll hands the transport the next serialized command, or the empty no-op
// sentinel when nothing is pending. Each command is consumed exactly once.
func (s *Store) Poll() string {
	cmd, ok := s.queue.Pop()
	if !ok {
		return ""
	}
	wire := cmd.Serialize()
	log.Info().Str("command", wire).Msg("command drained to agent")
	return wire
}

// Snapshot accessors, for the ops surface and tests.

func (s *Store) Market() model.MarketTick {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.market
}

func (s *Store) Account() model.AccountSnapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.account
}

func (s *Store) Positions() []model.Position {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]model.Position(nil), s.positions...)
}

func (s *Store) Settings() model.TradeSettings {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.settings
}

func (s *Store) Symbols() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.symbols...)
}

func (s *Store) Connected() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.connected
}

// capability wrappers: failures degrade to neutral inputs, never abort.

func (s *Store) predict(tick model.MarketTick) (f predictor.Forecast) {
	defer func() {
		if r := recover(); r != nil {
			log.Error().Interface("panic", r).Msg("predictor failed, using neutral forecast")
			f = predictor.Forecast{Price: tick.Ask, Indicators: model.Neutral()}
		}
	}()
	return s.pred.Predict(tick)
}

func (s *Store) classify(tick model.MarketTick, ind model.Indicators) (p model.Pattern) {
	defer func() {
		if r := recover(); r != nil {
			log.Error().Interface("panic", r).Msg("pattern classifier failed, using neutral")
			p = model.PatternNeutral
		}
	}()
	return s.classifier.Classify(tick, ind)
}

func (s *Store) sentiment(symbol string) (sent news.Sentiment) {
	defer func() {
		if r := recover(); r != nil {
			log.Error().Interface("panic", r).Msg("news capability failed, using neutral")
			sent = news.Neutral
		}
	}()
	if s.news == nil {
		return news.Neutral
	}
	return news.Score(s.news.Headlines(symbol))
}
