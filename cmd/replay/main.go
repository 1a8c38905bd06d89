// Command replay drives the core from a JSONL fixture file and prints every
// command the controller emits, one drained per event, the way the agent
// would see them. Each fixture line is {"type": ..., ...payload}.
package main

import (
	"bufio"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/rs/zerolog/log"

	"tradepilot/internal/automation"
	"tradepilot/internal/bus"
	"tradepilot/internal/config"
	"tradepilot/internal/model"
	"tradepilot/internal/news"
	"tradepilot/internal/observ"
	"tradepilot/internal/outbox"
	"tradepilot/internal/pattern"
	"tradepilot/internal/predictor"
	"tradepilot/internal/risk"
	"tradepilot/internal/state"
)

type fixtureLine struct {
	Type      string                 `json:"type"`
	Tick      *model.MarketTick      `json:"tick,omitempty"`
	Account   *model.AccountSnapshot `json:"account,omitempty"`
	Positions []model.Position       `json:"positions,omitempty"`
	Settings  *model.TradeSettings   `json:"settings,omitempty"`
}

func main() {
	fixtures := flag.String("fixtures", "fixtures/session.jsonl", "JSONL event fixture file")
	configPath := flag.String("config", "", "optional config file (defaults used when empty)")
	flag.Parse()

	observ.SetupLogging("warn", true)

	cfg := config.Default()
	if *configPath != "" {
		loaded, err := config.Load(*configPath)
		if err != nil {
			log.Fatal().Err(err).Msg("load config")
		}
		cfg = loaded
	}

	eventBus := bus.New()
	queue := outbox.NewQueue(cfg.Queue.Capacity, nil)
	guard := outbox.NewGuard(nil)
	drawdown := risk.NewDrawdownTracker(cfg.Risk.MaxDailyLossFrac, nil)
	gates := risk.NewEvaluator(cfg.Risk, cfg.Automation, drawdown, queue, guard, nil)
	sweeper := automation.NewSweeper(cfg.Automation, queue, guard)

	store := state.New(cfg, state.Deps{
		Bus:        eventBus,
		Queue:      queue,
		Guard:      guard,
		Predictor:  predictor.New(),
		Classifier: pattern.RuleClassifier{},
		News:       news.NewCached(news.Static{}, 5*time.Minute),
		Gates:      gates,
		Sweeper:    sweeper,
	})

	f, err := os.Open(*fixtures)
	if err != nil {
		log.Fatal().Err(err).Str("path", *fixtures).Msg("open fixtures")
	}
	defer f.Close()

	lineNo := 0
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		lineNo++
		raw := scanner.Bytes()
		if len(raw) == 0 {
			continue
		}

		var line fixtureLine
		if err := json.Unmarshal(raw, &line); err != nil {
			log.Warn().Int("line", lineNo).Err(err).Msg("skipping bad fixture line")
			continue
		}

		switch line.Type {
		case "tick":
			if line.Tick != nil {
				eventBus.Emit(bus.PriceTick, *line.Tick)
			}
		case "account":
			if line.Account != nil {
				eventBus.Emit(bus.AccountSnapshot, *line.Account)
			}
		case "positions":
			eventBus.Emit(bus.PositionSnapshot, line.Positions)
		case "settings":
			if line.Settings != nil {
				eventBus.Emit(bus.SettingsChange, *line.Settings)
			}
		default:
			log.Warn().Int("line", lineNo).Str("type", line.Type).Msg("unknown fixture type")
		}

		// The agent drains at most one command per poll.
		if wire := store.Poll(); wire != "" {
			fmt.Printf("%4d -> %s\n", lineNo, wire)
		}
	}
	if err := scanner.Err(); err != nil {
		log.Fatal().Err(err).Msg("read fixtures")
	}

	for {
		wire := store.Poll()
		if wire == "" {
			break
		}
		fmt.Printf(" end -> %s\n", wire)
	}
}
