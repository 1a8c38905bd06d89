package risk

import (
	"sync"

	"github.com/rs/zerolog/log"

	"tradepilot/internal/model"
	"tradepilot/internal/observ"
)

// DrawdownTracker watches session drawdown against the day-start balance.
// The day-start balance is captured from the first valid account snapshot
// and never reset; once the loss limit trips, the flag is sticky for the
// life of the process. Equity recovery does not clear it.
type DrawdownTracker struct {
	mu          sync.Mutex
	maxLossFrac float64
	dayStart    float64
	limitHit    bool
	metrics     *observ.Metrics
}

// NewDrawdownTracker returns a tracker that trips when drawdown exceeds
// maxLossFrac of the day-start balance.
func NewDrawdownTracker(maxLossFrac float64, metrics *observ.Metrics) *DrawdownTracker {
	return &DrawdownTracker{maxLossFrac: maxLossFrac, metrics: metrics}
}

// Update ingests an account snapshot: captures the day-start balance on the
// first one, recomputes drawdown, and latches the loss-limit flag.
func (t *DrawdownTracker) Update(a model.AccountSnapshot) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.dayStart == 0 {
		t.dayStart = a.Balance
		log.Info().Float64("balance", a.Balance).Msg("day-start balance captured")
	}
	if t.dayStart <= 0 {
		return
	}

	loss := t.dayStart - a.Equity
	pct := loss / t.dayStart * 100
	if t.metrics != nil {
		t.metrics.DrawdownPct.Set(pct)
	}

	if loss > t.dayStart*t.maxLossFrac && !t.limitHit {
		t.limitHit = true
		log.Error().
			Float64("loss", loss).
			Float64("day_start", t.dayStart).
			Msg("daily loss limit hit, automated entries suppressed for the session")
	}
}

// LimitHit reports whether the sticky daily loss limit has tripped.
func (t *DrawdownTracker) LimitHit() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.limitHit
}

// DayStart returns the captured day-start balance (0 before the first
// snapshot).
func (t *DrawdownTracker) DayStart() float64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.dayStart
}
