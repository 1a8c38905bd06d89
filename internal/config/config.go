package config

import (
	"os"

	"gopkg.in/yaml.v3"

	"tradepilot/internal/model"
)

type Logging struct {
	Level   string `yaml:"level"`
	Console bool   `yaml:"console"`
}

type Metrics struct {
	Enabled bool   `yaml:"enabled"`
	Addr    string `yaml:"addr"`
}

// Strategy holds the signal-fusion tunables. ConfidenceDivisor is the
// threshold-to-move scaling heuristic (threshold/divisor = required move
// fraction); it is a tuning knob, not a constant.
type Strategy struct {
	ConfidenceDivisor  float64 `yaml:"confidence_divisor"`
	RawConfidenceCap   float64 `yaml:"raw_confidence_cap"`
	ContradictionFloor float64 `yaml:"contradiction_floor"`
	EvalRateHz         float64 `yaml:"eval_rate_hz"`
}

// Risk holds the admission-gate and sizing tunables.
type Risk struct {
	MinConfidence      float64 `yaml:"min_confidence"`
	ReversalConfidence float64 `yaml:"reversal_confidence"`
	SpreadATRMult      float64 `yaml:"spread_atr_mult"`
	CooldownSec        int     `yaml:"cooldown_sec"`
	MaxDailyLossFrac   float64 `yaml:"max_daily_loss_frac"`
	TPMinMult          float64 `yaml:"tp_min_mult"`
	TPMaxMult          float64 `yaml:"tp_max_mult"`
	RiskPerTrade       float64 `yaml:"risk_per_trade"`
	MinLot             float64 `yaml:"min_lot"`
	MaxLot             float64 `yaml:"max_lot"`
}

// Automation holds the in-flight position-protection tunables.
type Automation struct {
	BreakEvenTrigger float64            `yaml:"break_even_trigger"` // profit in ATR units
	TrailingStopMult float64            `yaml:"trailing_stop_mult"` // trail distance in ATR units
	TrailingStepATR  float64            `yaml:"trailing_step_atr"`  // min SL improvement, ATR units
	CloseDedupeSec   int                `yaml:"close_dedupe_sec"`   // per-ticket suppression window
	CommandDedupeSec int                `yaml:"command_dedupe_sec"` // generic close re-send window
	SpreadBuffers    map[string]float64 `yaml:"spread_buffers"`     // symbol prefix -> break-even buffer
	DefaultBuffer    float64            `yaml:"default_buffer"`
	ContractScales   map[string]float64 `yaml:"contract_scales"` // symbol prefix -> profit/lot scale
}

type Watchdog struct {
	IntervalSec int `yaml:"interval_sec"`
	TimeoutSec  int `yaml:"timeout_sec"`
}

type Queue struct {
	Capacity int `yaml:"capacity"`
}

type Root struct {
	Logging    Logging             `yaml:"logging"`
	Metrics    Metrics             `yaml:"metrics"`
	Strategy   Strategy            `yaml:"strategy"`
	Risk       Risk                `yaml:"risk"`
	Automation Automation          `yaml:"automation"`
	Watchdog   Watchdog            `yaml:"watchdog"`
	Queue      Queue               `yaml:"queue"`
	Settings   model.TradeSettings `yaml:"settings"`
}

// Load reads path and fills in defaults for unset fields. A missing file is
// an error; an empty file yields pure defaults.
func Load(path string) (Root, error) {
	var c Root
	b, err := os.ReadFile(path)
	if err != nil {
		return c, err
	}
	if err := yaml.Unmarshal(b, &c); err != nil {
		return c, err
	}
	c.applyDefaults()
	return c, nil
}

// Default returns the built-in configuration, used by tests and by the
// replay tool when no file is given.
func Default() Root {
	var c Root
	c.applyDefaults()
	return c
}

func (c *Root) applyDefaults() {
	if c.Logging.Level == "" {
		c.Logging.Level = "info"
	}
	if c.Metrics.Addr == "" {
		c.Metrics.Addr = ":9190"
	}

	if c.Strategy.ConfidenceDivisor == 0 {
		c.Strategy.ConfidenceDivisor = 1000
	}
	if c.Strategy.RawConfidenceCap == 0 {
		c.Strategy.RawConfidenceCap = 120
	}
	if c.Strategy.ContradictionFloor == 0 {
		c.Strategy.ContradictionFloor = 85
	}
	if c.Strategy.EvalRateHz == 0 {
		c.Strategy.EvalRateHz = 2
	}

	if c.Risk.MinConfidence == 0 {
		c.Risk.MinConfidence = 85
	}
	if c.Risk.ReversalConfidence == 0 {
		c.Risk.ReversalConfidence = 90
	}
	if c.Risk.SpreadATRMult == 0 {
		c.Risk.SpreadATRMult = 1.5
	}
	if c.Risk.CooldownSec == 0 {
		c.Risk.CooldownSec = 30
	}
	if c.Risk.MaxDailyLossFrac == 0 {
		c.Risk.MaxDailyLossFrac = 0.05
	}
	if c.Risk.TPMinMult == 0 {
		c.Risk.TPMinMult = 1.5
	}
	if c.Risk.TPMaxMult == 0 {
		c.Risk.TPMaxMult = 3.0
	}
	if c.Risk.RiskPerTrade == 0 {
		c.Risk.RiskPerTrade = 0.01
	}
	if c.Risk.MinLot == 0 {
		c.Risk.MinLot = 0.01
	}
	if c.Risk.MaxLot == 0 {
		c.Risk.MaxLot = 1.0
	}

	if c.Automation.BreakEvenTrigger == 0 {
		c.Automation.BreakEvenTrigger = 0.7
	}
	if c.Automation.TrailingStopMult == 0 {
		c.Automation.TrailingStopMult = 1.5
	}
	if c.Automation.TrailingStepATR == 0 {
		c.Automation.TrailingStepATR = 0.1
	}
	if c.Automation.CloseDedupeSec == 0 {
		c.Automation.CloseDedupeSec = 2
	}
	if c.Automation.CommandDedupeSec == 0 {
		c.Automation.CommandDedupeSec = 1
	}
	if c.Automation.DefaultBuffer == 0 {
		c.Automation.DefaultBuffer = 0.0001
	}
	if c.Automation.SpreadBuffers == nil {
		c.Automation.SpreadBuffers = map[string]float64{"XAU": 0.1}
	}
	if c.Automation.ContractScales == nil {
		c.Automation.ContractScales = map[string]float64{"XAU": 100}
	}

	if c.Watchdog.IntervalSec == 0 {
		c.Watchdog.IntervalSec = 1
	}
	if c.Watchdog.TimeoutSec == 0 {
		c.Watchdog.TimeoutSec = 30
	}

	if c.Queue.Capacity == 0 {
		c.Queue.Capacity = 64
	}

	if c.Settings.Lot == 0 {
		c.Settings.Lot = 0.01
	}
	if c.Settings.BuyThreshold == 0 {
		c.Settings.BuyThreshold = 0.75
	}
	if c.Settings.SellThreshold == 0 {
		c.Settings.SellThreshold = 0.75
	}
	if c.Settings.MaxPositions == 0 {
		c.Settings.MaxPositions = 5
	}
}
