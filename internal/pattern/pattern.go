// Package pattern classifies the current market posture from indicator
// state. Only the enum matters to the decision layer; the rules here are a
// compact RSI/moving-average read, with the strong variants requiring the
// long trend to agree.
package pattern

import "tradepilot/internal/model"

// Classifier maps a tick plus indicators to a Pattern. Implementations must
// be pure; the default rule set lives in RuleClassifier.
type Classifier interface {
	Classify(tick model.MarketTick, ind model.Indicators) model.Pattern
}

// RuleClassifier is the built-in indicator-rule classifier.
type RuleClassifier struct{}

// Classify applies extreme-zone checks first, then strength vs SMA10, with
// strong variants when SMA200 confirms the direction. Cold indicators always
// classify neutral.
func (RuleClassifier) Classify(tick model.MarketTick, ind model.Indicators) model.Pattern {
	if !ind.Warmed {
		return model.PatternNeutral
	}

	// Extreme zones take priority: they are mean-reversion setups, not
	// trend signals.
	if ind.RSI < 25 {
		return model.PatternOversold
	}
	if ind.RSI > 75 {
		return model.PatternOverbought
	}

	ask := tick.Ask
	if ind.RSI > 55 && ask > ind.SMA10 {
		if ind.SMA200 > 0 && ask > ind.SMA200 && ind.RSI > 60 {
			return model.PatternStrongBullish
		}
		return model.PatternBullish
	}
	if ind.RSI < 45 && ask < ind.SMA10 {
		if ind.SMA200 > 0 && ask < ind.SMA200 && ind.RSI < 40 {
			return model.PatternStrongBearish
		}
		return model.PatternBearish
	}

	return model.PatternNeutral
}
