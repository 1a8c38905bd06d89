// Package news exposes the headline capability consumed by signal fusion.
// Retrieval itself is an external collaborator; this package defines the
// provider surface, a keyword sentiment read, and a TTL cache wrapper so
// lookups on the evaluation hot path never block.
package news

import (
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
)

// Provider fetches recent headlines for a symbol. Empty or stale results
// are treated as neutral sentiment.
type Provider interface {
	Headlines(symbol string) []string
}

// Sentiment is the fused directional read of recent headlines.
type Sentiment int

const (
	Bearish Sentiment = -1
	Neutral Sentiment = 0
	Bullish Sentiment = 1
)

var (
	bearishWords = []string{"crash", "sell", "downgrade", "crisis"}
	bullishWords = []string{"soar", "buy", "upgrade", "record"}
)

// Score reduces headlines to a single sentiment. The first matched keyword
// wins, bearish words checked first: bad news gates harder than good news
// boosts.
func Score(headlines []string) Sentiment {
	for _, h := range headlines {
		lower := strings.ToLower(h)
		for _, w := range bearishWords {
			if strings.Contains(lower, w) {
				return Bearish
			}
		}
		for _, w := range bullishWords {
			if strings.Contains(lower, w) {
				return Bullish
			}
		}
	}
	return Neutral
}

// Static is a fixed-headline provider, used in tests and replays.
type Static map[string][]string

func (s Static) Headlines(symbol string) []string { return s[symbol] }

// Cached wraps a provider with a per-symbol TTL cache. A fetch failure
// (panic in the wrapped provider) degrades to the last cached value, or to
// no headlines at all, never to an error on the evaluation path.
type Cached struct {
	mu      sync.Mutex
	inner   Provider
	ttl     time.Duration
	entries map[string]cacheEntry
}

type cacheEntry struct {
	headlines []string
	fetched   time.Time
}

// NewCached wraps inner with a ttl cache.
func NewCached(inner Provider, ttl time.Duration) *Cached {
	return &Cached{inner: inner, ttl: ttl, entries: make(map[string]cacheEntry)}
}

// Headlines returns cached headlines, refreshing when the entry is older
// than the TTL.
func (c *Cached) Headlines(symbol string) []string {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := time.Now()
	if e, ok := c.entries[symbol]; ok && now.Sub(e.fetched) < c.ttl {
		return e.headlines
	}

	headlines := c.fetch(symbol)
	c.entries[symbol] = cacheEntry{headlines: headlines, fetched: now}
	return headlines
}

func (c *Cached) fetch(symbol string) (headlines []string) {
	defer func() {
		if r := recover(); r != nil {
			log.Warn().Str("symbol", symbol).Interface("panic", r).Msg("news provider failed, degrading to neutral")
			headlines = nil
		}
	}()
	return c.inner.Headlines(symbol)
}
