// Package outbox accumulates outbound agent commands. The queue is a bounded
// FIFO: pushes beyond capacity are rejected (drop-newest) and counted, and
// the excluded transport drains exactly one command per agent poll. The
// guard enforces a minimum re-send interval per close/modify intent.
package outbox

import (
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"tradepilot/internal/observ"
)

// Queue is the pending-command FIFO. Safe for concurrent use.
type Queue struct {
	mu       sync.Mutex
	items    []Command
	capacity int
	metrics  *observ.Metrics
}

// NewQueue returns a queue bounded at capacity commands.
func NewQueue(capacity int, metrics *observ.Metrics) *Queue {
	if capacity <= 0 {
		capacity = 64
	}
	return &Queue{capacity: capacity, metrics: metrics}
}

// Push appends cmd. When the queue is full the push is rejected so that
// already-admitted commands (typically protective closes) are not displaced.
func (q *Queue) Push(cmd Command) bool {
	q.mu.Lock()
	defer q.mu.Unlock()

	if len(q.items) >= q.capacity {
		log.Warn().
			Str("action", string(cmd.Action)).
			Int("depth", len(q.items)).
			Msg("command queue full, rejecting")
		if q.metrics != nil {
			q.metrics.CommandsDropped.Inc()
		}
		return false
	}

	q.items = append(q.items, cmd)
	log.Info().
		Str("action", string(cmd.Action)).
		Str("symbol", cmd.Symbol).
		Int64("ticket", cmd.Ticket).
		Msg("command queued")
	if q.metrics != nil {
		q.metrics.CommandsQueued.WithLabelValues(string(cmd.Action)).Inc()
		q.metrics.QueueDepth.Set(float64(len(q.items)))
	}
	return true
}

// Pop removes and returns the oldest pending command. The second return is
// false when the queue is empty; the transport then replies with its no-op
// sentinel.
func (q *Queue) Pop() (Command, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if len(q.items) == 0 {
		return Command{}, false
	}
	cmd := q.items[0]
	q.items = q.items[1:]
	if q.metrics != nil {
		q.metrics.CommandsDrained.Inc()
		q.metrics.QueueDepth.Set(float64(len(q.items)))
	}
	return cmd, true
}

// Len returns the number of pending commands.
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}

// Guard tracks last-sent timestamps per dedupe key and suppresses re-sends
// inside the given window. Keys are ticket-scoped intents or fixed sentinels
// such as CLOSE_ALL.
type Guard struct {
	mu       sync.Mutex
	lastSent map[string]time.Time
	metrics  *observ.Metrics
}

// NewGuard returns an empty guard.
func NewGuard(metrics *observ.Metrics) *Guard {
	return &Guard{lastSent: make(map[string]time.Time), metrics: metrics}
}

// Allow reports whether key may be sent at now, recording the send when
// allowed. A second trigger inside window is suppressed.
func (g *Guard) Allow(key string, window time.Duration, now time.Time) bool {
	g.mu.Lock()
	defer g.mu.Unlock()

	if last, ok := g.lastSent[key]; ok && now.Sub(last) < window {
		if g.metrics != nil {
			g.metrics.DedupeSuppressed.WithLabelValues(key).Inc()
		}
		return false
	}
	g.lastSent[key] = now
	return true
}
