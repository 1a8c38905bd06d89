package model

// AccountSnapshot mirrors the agent's account report. Snapshots replace each
// other wholesale; the day-start balance is tracked separately by the risk
// layer because it must survive snapshot replacement.
type AccountSnapshot struct {
	Name          string  `json:"name"`
	Balance       float64 `json:"balance"`
	Equity        float64 `json:"equity"`
	Margin        float64 `json:"margin"`
	FreeMargin    float64 `json:"free_margin"`
	Profit        float64 `json:"profit"` // aggregate floating P/L
	PositionCount int     `json:"position_count"`
}

// Valid reports whether the snapshot is usable. The agent occasionally sends
// a zeroed frame mid-handshake; those are dropped, prior state retained.
func (a AccountSnapshot) Valid() bool {
	return a.Balance > 0 || a.Equity > 0
}
