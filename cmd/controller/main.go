// Command controller runs the decision-and-risk core. The wire transport
// that feeds the bus and drains the queue is a separate concern; it talks to
// this process through the event bus (inbound snapshots) and Store.Poll
// (outbound commands, one per agent poll).
package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"

	"tradepilot/internal/automation"
	"tradepilot/internal/bus"
	"tradepilot/internal/config"
	"tradepilot/internal/news"
	"tradepilot/internal/observ"
	"tradepilot/internal/outbox"
	"tradepilot/internal/pattern"
	"tradepilot/internal/predictor"
	"tradepilot/internal/risk"
	"tradepilot/internal/state"
)

func main() {
	configPath := flag.String("config", "config.yaml", "path to config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatal().Err(err).Str("path", *configPath).Msg("load config")
	}
	observ.SetupLogging(cfg.Logging.Level, cfg.Logging.Console)

	metrics := observ.NewMetrics()
	if cfg.Metrics.Enabled {
		go metrics.Serve(cfg.Metrics.Addr)
	}

	eventBus := bus.New()
	queue := outbox.NewQueue(cfg.Queue.Capacity, metrics)
	guard := outbox.NewGuard(metrics)
	drawdown := risk.NewDrawdownTracker(cfg.Risk.MaxDailyLossFrac, metrics)
	gates := risk.NewEvaluator(cfg.Risk, cfg.Automation, drawdown, queue, guard, metrics)
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
		Metrics:    metrics,
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go store.Watchdog(ctx)

	log.Info().
		Str("config", *configPath).
		Bool("auto_trade", cfg.Settings.AutoTrade).
		Msg("controller ready, waiting for agent events")

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig

	log.Info().Int("pending_commands", queue.Len()).Msg("shutting down")
}
