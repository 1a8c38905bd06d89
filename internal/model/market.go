package model

import "time"

// Indicators is the predictor's last-computed technical state, returned
// atomically with each forecast. Warmed is false until the rolling window
// holds enough samples; consumers must treat zero-valued fields as "not yet
// available" rather than as real readings.
type Indicators struct {
	RSI    float64 `json:"rsi"`
	StochK float64 `json:"stoch_k"`
	StochD float64 `json:"stoch_d"`
	SMA10  float64 `json:"sma10"`
	SMA200 float64 `json:"sma200"`
	ATR    float64 `json:"atr"`
	Warmed bool    `json:"warmed"`
}

// Neutral returns the cold-state indicator set: RSI and stochastics parked
// at 50, everything else zero.
func Neutral() Indicators {
	return Indicators{RSI: 50, StochK: 50, StochD: 50}
}

// MarketTick is the current market snapshot for the active symbol. Each
// inbound tick replaces the prior one wholesale (last-write-wins); derived
// fields are filled in by the evaluation pipeline, not by the transport.
type MarketTick struct {
	Symbol    string    `json:"symbol"`
	Bid       float64   `json:"bid"`
	Ask       float64   `json:"ask"`
	IsOpen    bool      `json:"is_open"`
	Timestamp time.Time `json:"timestamp"`

	// Derived per evaluation.
	Indicators Indicators `json:"indicators"`
	Predicted  float64    `json:"predicted_price"`
	Confidence float64    `json:"confidence"` // display value, clamped [0,100]
}

// Spread returns the raw bid/ask spread, or 0 when the tick is not yet
// populated.
func (m MarketTick) Spread() float64 {
	if m.Bid <= 0 || m.Ask <= 0 {
		return 0
	}
	return m.Ask - m.Bid
}

// Valid reports whether the tick carries usable quotes. Malformed ticks are
// dropped by the state store without replacing prior state.
func (m MarketTick) Valid() bool {
	return m.Symbol != "" && m.Bid > 0 && m.Ask > 0 && m.Ask >= m.Bid
}
