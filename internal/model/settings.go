package model

// TradeSettings is the operator-facing settings surface. Every field is live
// immediately on receipt of a SettingsChange; the store diffs against the
// previous value to react to symbol changes and auto-trade toggles.
type TradeSettings struct {
	Symbol          string  `json:"symbol" yaml:"symbol"`
	Lot             float64 `json:"lot" yaml:"lot"`
	SL              float64 `json:"sl" yaml:"sl"`
	TP              float64 `json:"tp" yaml:"tp"`
	AutoTrade       bool    `json:"auto_trade" yaml:"auto_trade"`
	AutoLot         bool    `json:"auto_lot" yaml:"auto_lot"`
	BuyThreshold    float64 `json:"buy_threshold" yaml:"buy_threshold"`
	SellThreshold   float64 `json:"sell_threshold" yaml:"sell_threshold"`
	MaxPositions    int     `json:"max_positions" yaml:"max_positions"`
	PosProfitLimit  float64 `json:"pos_profit_limit" yaml:"pos_profit_limit"`   // 0 disables
	PosLossLimit    float64 `json:"pos_loss_limit" yaml:"pos_loss_limit"`       // 0 disables
	AutoProfitClose float64 `json:"auto_profit_close" yaml:"auto_profit_close"` // account-wide, 0 disables
}

// DefaultSettings matches the agent-side defaults so a fresh session behaves
// sanely before the first SettingsChange arrives.
func DefaultSettings() TradeSettings {
	return TradeSettings{
		Lot:           0.01,
		BuyThreshold:  0.75,
		SellThreshold: 0.75,
		MaxPositions:  5,
	}
}
