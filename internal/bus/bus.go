// Package bus is a typed publish/subscribe dispatcher. Handlers for one
// event type fire synchronously, in subscription order, on the emitter's
// goroutine. A panicking handler is recovered and logged so one failing
// subscriber never blocks its siblings or the emitter. No ordering guarantee
// exists across different event types.
package bus

import (
	"sync"

	"github.com/rs/zerolog/log"
)

// EventType tags every event flowing through the bus.
type EventType int

const (
	PriceTick EventType = iota
	AccountSnapshot
	PositionSnapshot
	ConnectionChange
	SettingsChange
	TradeCommand
	SymbolList
)

func (e EventType) String() string {
	switch e {
	case PriceTick:
		return "price_tick"
	case AccountSnapshot:
		return "account_snapshot"
	case PositionSnapshot:
		return "position_snapshot"
	case ConnectionChange:
		return "connection_change"
	case SettingsChange:
		return "settings_change"
	case TradeCommand:
		return "trade_command"
	case SymbolList:
		return "symbol_list"
	}
	return "unknown"
}

// Handler receives the event payload. Payload types are fixed per event type
// by convention (see internal/state); handlers type-assert and drop anything
// malformed.
type Handler func(payload any)

type subscription struct {
	id int
	fn Handler
}

// Bus dispatches events to subscribers. The zero value is not usable; use New.
type Bus struct {
	mu     sync.RWMutex
	nextID int
	subs   map[EventType][]subscription
}

// New returns an empty bus.
func New() *Bus {
	return &Bus{subs: make(map[EventType][]subscription)}
}

// Subscribe registers fn for events of type et and returns a token for
// Unsubscribe.
func (b *Bus) Subscribe(et EventType, fn Handler) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.nextID++
	b.subs[et] = append(b.subs[et], subscription{id: b.nextID, fn: fn})
	return b.nextID
}

// Unsubscribe removes the subscription with the given token. Unknown tokens
// are ignored.
func (b *Bus) Unsubscribe(et EventType, token int) {
	b.mu.Lock()
	defer b.mu.Unlock()
	subs := b.subs[et]
	for i, s := range subs {
		if s.id == token {
			b.subs[et] = append(subs[:i:i], subs[i+1:]...)
			return
		}
	}
}

// Emit delivers payload to every subscriber of et, in subscription order, on
// the caller's goroutine. Handler panics are isolated and logged.
func (b *Bus) Emit(et EventType, payload any) {
	b.mu.RLock()
	subs := b.subs[et]
	b.mu.RUnlock()

	for _, s := range subs {
		b.dispatch(et, s, payload)
	}
}

func (b *Bus) dispatch(et EventType, s subscription, payload any) {
	defer func() {
		if r := recover(); r != nil {
			log.Error().
				Str("event", et.String()).
				Int("subscriber", s.id).
				Interface("panic", r).
				Msg("event handler panicked, skipping")
		}
	}()
	s.fn(payload)
}
