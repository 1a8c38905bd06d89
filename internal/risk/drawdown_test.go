package risk

import (
	"testing"

	"tradepilot/internal/model"
)

func TestDayStartCapturedOnce(t *testing.T) {
	dd := NewDrawdownTracker(0.05, nil)

	dd.Update(model.AccountSnapshot{Balance: 10000, Equity: 10000})
	if dd.DayStart() != 10000 {
		t.Fatalf("day start = %v, want 10000", dd.DayStart())
	}

	// Later balance changes must not move the reference point.
	dd.Update(model.AccountSnapshot{Balance: 12000, Equity: 12000})
	if dd.DayStart() != 10000 {
		t.Fatalf("day start moved to %v", dd.DayStart())
	}
}

func TestLimitTripsOnEquityNotBalance(t *testing.T) {
	dd := NewDrawdownTracker(0.05, nil)
	dd.Update(model.AccountSnapshot{Balance: 10000, Equity: 10000})

	// Balance unchanged, floating loss drags equity 6% under day start.
	dd.Update(model.AccountSnapshot{Balance: 10000, Equity: 9400})
	if !dd.LimitHit() {
		t.Fatal("limit should trip at 6% drawdown")
	}
}

func TestLimitNotTrippedAtBoundary(t *testing.T) {
	dd := NewDrawdownTracker(0.05, nil)
	dd.Update(model.AccountSnapshot{Balance: 10000, Equity: 10000})

	// Exactly 5% is not over the limit.
	dd.Update(model.AccountSnapshot{Balance: 10000, Equity: 9500})
	if dd.LimitHit() {
		t.Fatal("limit tripped at exactly the threshold")
	}
}

func TestLimitSticky(t *testing.T) {
	dd := NewDrawdownTracker(0.05, nil)
	dd.Update(model.AccountSnapshot{Balance: 10000, Equity: 10000})
	dd.Update(model.AccountSnapshot{Balance: 10000, Equity: 9000})
	dd.Update(model.AccountSnapshot{Balance: 10000, Equity: 10500})

	if !dd.LimitHit() {
		t.Fatal("recovery cleared the latch")
	}
}
