// Package decision implements signal fusion: the pure scoring function that
// turns the predictor forecast, pattern read, and news sentiment into a
// directional decision with a confidence. It has no side effects and no
// clock; everything, including the heuristic scaling divisor, arrives via
// Inputs so tests can drive it with synthetic values.
package decision

import (
	"math"

	"tradepilot/internal/model"
	"tradepilot/internal/news"
)

// Direction of the predicted move.
type Direction int

const (
	Up Direction = iota
	Down
)

func (d Direction) String() string {
	if d == Down {
		return "DOWN"
	}
	return "UP"
}

// Action is the fused trade decision.
type Action string

const (
	Buy  Action = "BUY"
	Sell Action = "SELL"
	Hold Action = "HOLD"
)

// Inputs carries everything Evaluate reads. Thresholds are the operator
// values (0.75 means the displayed threshold, scaled by 100 for the
// confidence comparison); Divisor is the threshold-to-move heuristic
// (default 1000) and is configuration, not law.
type Inputs struct {
	Tick      model.MarketTick
	Predicted float64
	Ind       model.Indicators
	Pattern   model.Pattern
	Sentiment news.Sentiment

	BuyThreshold  float64
	SellThreshold float64
	Divisor       float64
	RawCap        float64 // cap on raw confidence, default 120
	VetoFloor     float64 // contradiction veto floor, default 85
}

// Signal is the fusion output. FinalConfidence is unclamped and feeds the
// risk layer's high-confidence checks; Display is the [0,100] value shown
// to operators.
type Signal struct {
	Action          Action
	Direction       Direction
	RawConfidence   float64
	FinalConfidence float64
	Display         float64
	Pattern         model.Pattern
	Boosts          []string
	Veto            string
}

// Evaluate fuses the inputs into a decision. Deterministic and
// side-effect-free given fixed inputs.
func Evaluate(in Inputs) Signal {
	sig := Signal{Action: Hold, Pattern: in.Pattern}

	ask := in.Tick.Ask
	if ask <= 0 || in.Predicted <= 0 {
		return sig
	}

	divisor := in.Divisor
	if divisor <= 0 {
		divisor = 1000
	}
	rawCap := in.RawCap
	if rawCap <= 0 {
		rawCap = 120
	}
	vetoFloor := in.VetoFloor
	if vetoFloor <= 0 {
		vetoFloor = 85
	}

	predictedChangePct := (in.Predicted - ask) / ask
	if predictedChangePct > 0 {
		sig.Direction = Up
	} else {
		sig.Direction = Down
	}

	targetMovePct := math.Max(in.BuyThreshold/divisor, 0.0001)
	sig.RawConfidence = math.Min(math.Abs(predictedChangePct)/targetMovePct*100, rawCap)

	sig.FinalConfidence = sig.RawConfidence + sig.applyBoosts(in)
	sig.Display = clamp(sig.FinalConfidence, 0, 100)

	// Threshold mapping plus the contradiction veto: a pattern arguing the
	// other way downgrades to HOLD unless confidence clears the veto floor.
	switch sig.Direction {
	case Up:
		if sig.FinalConfidence >= in.BuyThreshold*100 {
			if in.Pattern.Bearish() && sig.FinalConfidence < vetoFloor {
				sig.Veto = "pattern_contradiction"
				return sig
			}
			sig.Action = Buy
		}
	case Down:
		if sig.FinalConfidence >= in.SellThreshold*100 {
			if in.Pattern.Bullish() && sig.FinalConfidence < vetoFloor {
				sig.Veto = "pattern_contradiction"
				return sig
			}
			sig.Action = Sell
		}
	}

	return sig
}

// applyBoosts sums direction-agreeing confidence boosts and records which
// fired. Disagreeing signals contribute nothing here; they surface through
// the contradiction veto instead.
func (sig *Signal) applyBoosts(in Inputs) float64 {
	var total float64
	add := func(name string, amount float64) {
		total += amount
		sig.Boosts = append(sig.Boosts, name)
	}

	up := sig.Direction == Up

	switch {
	case up && in.Pattern == model.PatternStrongBullish,
		!up && in.Pattern == model.PatternStrongBearish:
		add("strong_trend", 40)
	case up && in.Pattern == model.PatternBullish,
		!up && in.Pattern == model.PatternBearish:
		add("trend", 20)
	case up && in.Pattern == model.PatternOversold,
		!up && in.Pattern == model.PatternOverbought:
		add("mean_reversion", 15)
	}

	k := in.Ind.StochK
	switch {
	case up && k < 20, !up && k > 80:
		add("stoch_extreme", 15)
	case up && k < 40, !up && k > 60:
		add("stoch_mild", 5)
	}

	if (up && in.Sentiment == news.Bullish) || (!up && in.Sentiment == news.Bearish) {
		add("news", 15)
	}

	return total
}

func clamp(v, lo, hi float64) float64 {
	return math.Min(math.Max(v, lo), hi)
}
