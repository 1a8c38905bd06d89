package model

// Pattern is the chart-pattern classifier output. Only the enum is consumed
// here; classification internals live behind the pattern capability.
type Pattern string

const (
	PatternNeutral       Pattern = "neutral"
	PatternBullish       Pattern = "bullish"
	PatternBearish       Pattern = "bearish"
	PatternStrongBullish Pattern = "strong_bullish"
	PatternStrongBearish Pattern = "strong_bearish"
	PatternOversold      Pattern = "oversold"
	PatternOverbought    Pattern = "overbought"
)

// Bullish reports whether the pattern argues for upward movement.
func (p Pattern) Bullish() bool {
	return p == PatternBullish || p == PatternStrongBullish || p == PatternOversold
}

// Bearish reports whether the pattern argues for downward movement.
func (p Pattern) Bearish() bool {
	return p == PatternBearish || p == PatternStrongBearish || p == PatternOverbought
}
