package pattern

import (
	"testing"

	"tradepilot/internal/model"
)

func TestClassify(t *testing.T) {
	cases := []struct {
		name string
		ask  float64
		ind  model.Indicators
		want model.Pattern
	}{
		{
			name: "cold indicators are neutral regardless of values",
			ask:  1900,
			ind:  model.Indicators{RSI: 90, SMA10: 1800},
			want: model.PatternNeutral,
		},
		{
			name: "oversold extreme wins over trend",
			ask:  1900,
			ind:  model.Indicators{RSI: 20, SMA10: 1950, Warmed: true},
			want: model.PatternOversold,
		},
		{
			name: "overbought extreme",
			ask:  1900,
			ind:  model.Indicators{RSI: 80, SMA10: 1850, Warmed: true},
			want: model.PatternOverbought,
		},
		{
			name: "bullish above sma10",
			ask:  1900,
			ind:  model.Indicators{RSI: 58, SMA10: 1890, Warmed: true},
			want: model.PatternBullish,
		},
		{
			name: "strong bullish needs sma200 agreement",
			ask:  1900,
			ind:  model.Indicators{RSI: 65, SMA10: 1890, SMA200: 1880, Warmed: true},
			want: model.PatternStrongBullish,
		},
		{
			name: "strong downgraded without sma200",
			ask:  1900,
			ind:  model.Indicators{RSI: 65, SMA10: 1890, Warmed: true},
			want: model.PatternBullish,
		},
		{
			name: "strong downgraded below sma200",
			ask:  1900,
			ind:  model.Indicators{RSI: 65, SMA10: 1890, SMA200: 1950, Warmed: true},
			want: model.PatternBullish,
		},
		{
			name: "bearish below sma10",
			ask:  1900,
			ind:  model.Indicators{RSI: 42, SMA10: 1910, Warmed: true},
			want: model.PatternBearish,
		},
		{
			name: "strong bearish",
			ask:  1900,
			ind:  model.Indicators{RSI: 35, SMA10: 1910, SMA200: 1920, Warmed: true},
			want: model.PatternStrongBearish,
		},
		{
			name: "mid rsi is neutral",
			ask:  1900,
			ind:  model.Indicators{RSI: 50, SMA10: 1890, Warmed: true},
			want: model.PatternNeutral,
		},
		{
			name: "strength without price confirmation is neutral",
			ask:  1900,
			ind:  model.Indicators{RSI: 60, SMA10: 1910, Warmed: true},
			want: model.PatternNeutral,
		},
	}

	var c RuleClassifier
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			tick := model.MarketTick{Symbol: "XAUUSDm", Bid: tc.ask - 0.3, Ask: tc.ask}
			if got := c.Classify(tick, tc.ind); got != tc.want {
				t.Fatalf("got %q, want %q", got, tc.want)
			}
		})
	}
}
