package risk

import (
	"math"
	"testing"
	"time"

	"tradepilot/internal/config"
	"tradepilot/internal/decision"
	"tradepilot/internal/model"
	"tradepilot/internal/outbox"
)

func newTestEvaluator(t *testing.T) (*Evaluator, *outbox.Queue) {
	t.Helper()
	cfg := config.Default()
	q := outbox.NewQueue(cfg.Queue.Capacity, nil)
	g := outbox.NewGuard(nil)
	dd := NewDrawdownTracker(cfg.Risk.MaxDailyLossFrac, nil)
	return NewEvaluator(cfg.Risk, cfg.Automation, dd, q, g, nil), q
}

func passingContext(now time.Time) Context {
	return Context{
		Signal: decision.Signal{
			Action:          decision.Buy,
			Direction:       decision.Up,
			FinalConfidence: 95,
			Display:         95,
		},
		Tick:     model.MarketTick{Symbol: "EURUSDm", Bid: 1.1000, Ask: 1.1002, IsOpen: true},
		Ind:      model.Indicators{ATR: 0.5, SMA200: 1.0, Warmed: true},
		Account:  model.AccountSnapshot{Balance: 10000, Equity: 10000, PositionCount: 0},
		Settings: model.TradeSettings{Lot: 0.05, MaxPositions: 5},
		Now:      now,
	}
}

func TestHoldIsANoop(t *testing.T) {
	e, q := newTestEvaluator(t)
	ctx := passingContext(time.Now())
	ctx.Signal.Action = decision.Hold

	res := e.Evaluate(ctx)
	if res.Emitted || res.SuppressedBy != "" {
		t.Fatalf("HOLD should neither emit nor suppress, got %+v", res)
	}
	if q.Len() != 0 {
		t.Fatalf("queue should stay empty, got %d", q.Len())
	}
}

func TestFullPassEmitsEntry(t *testing.T) {
	e, q := newTestEvaluator(t)
	ctx := passingContext(time.Now())

	res := e.Evaluate(ctx)
	if !res.Emitted {
		t.Fatalf("expected emit, suppressed by %q", res.SuppressedBy)
	}
	if q.Len() != 1 {
		t.Fatalf("queue len = %d, want 1", q.Len())
	}

	// BUY with ATR 0.5: SL one ATR below the ask, TP at the reward multiple.
	wantSL := ctx.Tick.Ask - 0.5
	wantTP := ctx.Tick.Ask + 0.5*e.RewardMult(95)
	if math.Abs(res.Command.SL-wantSL) > 1e-9 {
		t.Fatalf("sl = %v, want %v", res.Command.SL, wantSL)
	}
	if math.Abs(res.Command.TP-wantTP) > 1e-9 {
		t.Fatalf("tp = %v, want %v", res.Command.TP, wantTP)
	}
	if res.Command.Lot != 0.05 {
		t.Fatalf("manual lot = %v, want 0.05", res.Command.Lot)
	}
}

func TestConfidenceFloorUsesUnclampedValue(t *testing.T) {
	e, _ := newTestEvaluator(t)
	ctx := passingContext(time.Now())
	ctx.Signal.FinalConfidence = 84.9

	res := e.Evaluate(ctx)
	if res.SuppressedBy != GateConfidence {
		t.Fatalf("suppressed by %q, want %q", res.SuppressedBy, GateConfidence)
	}
}

func TestDailyLossGateIsSticky(t *testing.T) {
	e, _ := newTestEvaluator(t)
	e.Drawdown().Update(model.AccountSnapshot{Balance: 10000, Equity: 10000})
	e.Drawdown().Update(model.AccountSnapshot{Balance: 10000, Equity: 9400}) // 6% down

	res := e.Evaluate(passingContext(time.Now()))
	if res.SuppressedBy != GateDailyLoss {
		t.Fatalf("suppressed by %q, want %q", res.SuppressedBy, GateDailyLoss)
	}

	// Equity recovery does not clear the latch.
	e.Drawdown().Update(model.AccountSnapshot{Balance: 10000, Equity: 10100})
	res = e.Evaluate(passingContext(time.Now()))
	if res.SuppressedBy != GateDailyLoss {
		t.Fatalf("gate cleared after recovery, suppressed by %q", res.SuppressedBy)
	}
}

func TestATRGuard(t *testing.T) {
	e, _ := newTestEvaluator(t)
	ctx := passingContext(time.Now())
	ctx.Ind.ATR = 0

	res := e.Evaluate(ctx)
	if res.SuppressedBy != GateATR {
		t.Fatalf("suppressed by %q, want %q", res.SuppressedBy, GateATR)
	}
}

func TestSpreadGate(t *testing.T) {
	e, _ := newTestEvaluator(t)
	ctx := passingContext(time.Now())
	ctx.Ind.ATR = 0.001
	ctx.Tick.Bid = 1.1000
	ctx.Tick.Ask = 1.1020 // spread 0.002 > 1.5 * ATR

	res := e.Evaluate(ctx)
	if res.SuppressedBy != GateSpread {
		t.Fatalf("suppressed by %q, want %q", res.SuppressedBy, GateSpread)
	}
}

func TestPositionCapGate(t *testing.T) {
	e, _ := newTestEvaluator(t)
	ctx := passingContext(time.Now())
	ctx.Account.PositionCount = 5

	res := e.Evaluate(ctx)
	if res.SuppressedBy != GatePositions {
		t.Fatalf("suppressed by %q, want %q", res.SuppressedBy, GatePositions)
	}
}

func TestTrendGateBoundary(t *testing.T) {
	e, _ := newTestEvaluator(t)

	// SMA200 = 100: ask below it blocks a BUY, ask above passes.
	ctx := passingContext(time.Now())
	ctx.Ind.SMA200 = 100
	ctx.Tick.Bid = 98.9
	ctx.Tick.Ask = 99
	ctx.Ind.ATR = 0.5

	res := e.Evaluate(ctx)
	if res.SuppressedBy != GateTrend {
		t.Fatalf("buy below sma200: suppressed by %q, want %q", res.SuppressedBy, GateTrend)
	}

	ctx.Tick.Bid = 100.9
	ctx.Tick.Ask = 101
	res = e.Evaluate(ctx)
	if !res.Emitted {
		t.Fatalf("buy above sma200 suppressed by %q", res.SuppressedBy)
	}
}

func TestTrendGateSkippedWhenSMAUnavailable(t *testing.T) {
	e, _ := newTestEvaluator(t)
	ctx := passingContext(time.Now())
	ctx.Ind.SMA200 = 0 // not warmed yet

	if res := e.Evaluate(ctx); !res.Emitted {
		t.Fatalf("suppressed by %q, want emit", res.SuppressedBy)
	}
}

func TestCooldownGate(t *testing.T) {
	e, _ := newTestEvaluator(t)
	start := time.Now()

	if res := e.Evaluate(passingContext(start)); !res.Emitted {
		t.Fatalf("first entry suppressed by %q", res.SuppressedBy)
	}

	// 10s later: inside the 30s cooldown.
	res := e.Evaluate(passingContext(start.Add(10 * time.Second)))
	if res.SuppressedBy != GateCooldown {
		t.Fatalf("suppressed by %q, want %q", res.SuppressedBy, GateCooldown)
	}

	// 31s later: clear.
	if res := e.Evaluate(passingContext(start.Add(31 * time.Second))); !res.Emitted {
		t.Fatalf("post-cooldown entry suppressed by %q", res.SuppressedBy)
	}
}

func TestReversalClosesOpposingBook(t *testing.T) {
	e, q := newTestEvaluator(t)
	now := time.Now()

	ctx := passingContext(now)
	ctx.Signal.FinalConfidence = 92
	ctx.Positions = []model.Position{
		{Ticket: 11, Side: model.Sell},
		{Ticket: 12, Side: model.Buy},
		{Ticket: 13, Side: model.Sell},
	}

	res := e.Evaluate(ctx)
	if !res.Emitted {
		t.Fatalf("suppressed by %q", res.SuppressedBy)
	}
	if len(res.ReversalClosed) != 2 {
		t.Fatalf("closed %v, want the two SELL tickets", res.ReversalClosed)
	}

	// Two closes plus the entry.
	if q.Len() != 3 {
		t.Fatalf("queue len = %d, want 3", q.Len())
	}
	for _, want := range []int64{11, 13} {
		cmd, ok := q.Pop()
		if !ok || cmd.Action != outbox.ActionCloseTicket || cmd.Ticket != want {
			t.Fatalf("got %+v, want close of ticket %d", cmd, want)
		}
	}
}

func TestReversalSkippedBelowThreshold(t *testing.T) {
	e, _ := newTestEvaluator(t)
	ctx := passingContext(time.Now())
	ctx.Signal.FinalConfidence = 89
	ctx.Positions = []model.Position{{Ticket: 21, Side: model.Sell}}

	res := e.Evaluate(ctx)
	if !res.Emitted || len(res.ReversalClosed) != 0 {
		t.Fatalf("got %+v, want emit with no reversal closes", res)
	}
}

func TestRewardMultInterpolation(t *testing.T) {
	e, _ := newTestEvaluator(t)

	cases := []struct {
		confidence float64
		want       float64
	}{
		{85, 1.5},
		{92.5, 2.25},
		{100, 3.0},
		{150, 3.0}, // unclamped confidence, clamped multiplier
		{50, 1.5},
	}
	for _, c := range cases {
		if got := e.RewardMult(c.confidence); math.Abs(got-c.want) > 1e-9 {
			t.Fatalf("RewardMult(%v) = %v, want %v", c.confidence, got, c.want)
		}
	}
}

func TestAutoLotSizing(t *testing.T) {
	e, _ := newTestEvaluator(t)
	ctx := passingContext(time.Now())
	ctx.Tick.Symbol = "XAUUSDm"
	ctx.Tick.Bid = 1900.0
	ctx.Tick.Ask = 1900.3
	ctx.Settings.AutoLot = true
	ctx.Ind.ATR = 2.0

	// risk = 10000 * 0.01 = 100; lot = 100 / (2.0 * 100) = 0.5
	res := e.Evaluate(ctx)
	if !res.Emitted {
		t.Fatalf("suppressed by %q", res.SuppressedBy)
	}
	if res.Command.Lot != 0.5 {
		t.Fatalf("lot = %v, want 0.5", res.Command.Lot)
	}
}

func TestAutoLotClamped(t *testing.T) {
	e, _ := newTestEvaluator(t)
	ctx := passingContext(time.Now())
	ctx.Settings.AutoLot = true
	ctx.Account.Balance = 100000
	ctx.Ind.ATR = 0.5

	// risk = 1000; lot = 1000 / 0.5 = 2000, clamped to MaxLot.
	res := e.Evaluate(ctx)
	if !res.Emitted {
		t.Fatalf("suppressed by %q", res.SuppressedBy)
	}
	if res.Command.Lot != 1.0 {
		t.Fatalf("lot = %v, want clamp at 1.0", res.Command.Lot)
	}
}

func TestContractScalePrefixMatch(t *testing.T) {
	scales := map[string]float64{"XAU": 100}
	if got := ContractScale(scales, "XAUUSDm"); got != 100 {
		t.Fatalf("xau scale = %v, want 100", got)
	}
	if got := ContractScale(scales, "EURUSDm"); got != 1 {
		t.Fatalf("default scale = %v, want 1", got)
	}
}
