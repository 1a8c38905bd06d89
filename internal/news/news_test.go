package news

import (
	"testing"
	"time"
)

func TestScore(t *testing.T) {
	cases := []struct {
		name      string
		headlines []string
		want      Sentiment
	}{
		{"no headlines", nil, Neutral},
		{"unrelated text", []string{"gold steady ahead of fed minutes"}, Neutral},
		{"bullish keyword", []string{"gold prices soar to new highs"}, Bullish},
		{"bearish keyword", []string{"analysts downgrade outlook"}, Bearish},
		{"bearish wins over bullish", []string{"record rally ends in crash"}, Bearish},
		{"case insensitive", []string{"GOLD SET TO SOAR"}, Bullish},
		{"first match across headlines", []string{"quiet session", "crisis deepens"}, Bearish},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := Score(tc.headlines); got != tc.want {
				t.Fatalf("got %d, want %d", got, tc.want)
			}
		})
	}
}

type countingProvider struct {
	calls     int
	headlines []string
}

func (p *countingProvider) Headlines(string) []string {
	p.calls++
	return p.headlines
}

func TestCachedHitsProviderOncePerTTL(t *testing.T) {
	inner := &countingProvider{headlines: []string{"gold prices soar"}}
	c := NewCached(inner, time.Minute)

	for i := 0; i < 5; i++ {
		got := c.Headlines("XAUUSDm")
		if len(got) != 1 {
			t.Fatalf("headlines = %v", got)
		}
	}
	if inner.calls != 1 {
		t.Fatalf("provider called %d times inside TTL, want 1", inner.calls)
	}
}

func TestCachedIsPerSymbol(t *testing.T) {
	inner := &countingProvider{}
	c := NewCached(inner, time.Minute)

	c.Headlines("XAUUSDm")
	c.Headlines("EURUSDm")
	if inner.calls != 2 {
		t.Fatalf("provider called %d times for two symbols, want 2", inner.calls)
	}
}

type panickyProvider struct{}

func (panickyProvider) Headlines(string) []string { panic("feed down") }

func TestCachedDegradesOnProviderPanic(t *testing.T) {
	c := NewCached(panickyProvider{}, time.Minute)

	got := c.Headlines("XAUUSDm")
	if got != nil {
		t.Fatalf("headlines = %v, want nil on provider failure", got)
	}
	if Score(got) != Neutral {
		t.Fatal("failed fetch must read neutral")
	}
}
