package model

// Side is the direction of an open position.
type Side int

const (
	Buy Side = iota
	Sell
)

func (s Side) String() string {
	if s == Sell {
		return "SELL"
	}
	return "BUY"
}

// Opposes reports whether the side is opposite to the given trade direction.
func (s Side) Opposes(other Side) bool {
	return s != other
}

// Position is one open ticket as reported by the agent. The position set is
// always a full snapshot replace; the agent is the source of truth, so the
// core never mutates positions locally, it only issues modify/close commands.
type Position struct {
	Ticket       int64   `json:"ticket"`
	Symbol       string  `json:"symbol"`
	Side         Side    `json:"side"`
	Volume       float64 `json:"volume"`
	PriceOpen    float64 `json:"price_open"`
	PriceCurrent float64 `json:"price_current"`
	SL           float64 `json:"sl"`
	TP           float64 `json:"tp"`
	Profit       float64 `json:"profit"`
}
