package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"
	"time"

	"tradepilot/internal/application/container"
	"tradepilot/internal/infrastructure/config"
	infracontainer "tradepilot/internal/infrastructure/container"
	"tradepilot/internal/infrastructure/logger"
	"tradepilot/internal/interfaces/console"

	"github.com/rs/zerolog/log"
)

func main() {
	configPath := flag.String("config", "configs/config.toml", "path to config.toml")
	dryRun := flag.Bool("dry-run", false, "log decisions without executing")
	flag.Parse()

	// 配置加载前先用默认日志
	logger.Setup("info", "console")

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatal().Err(err).Str("config", *configPath).Msg("load config failed")
	}
	if *dryRun {
		cfg.App.DryRun = true
	}
	logger.Setup(cfg.App.LogLevel, cfg.App.LogFormat)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	c, err := infracontainer.New(cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("init container failed")
	}
	defer c.Close()

	if hub := c.Telemetry(); hub != nil {
		go hub.Run(ctx)
		go func() {
			if err := hub.Serve(ctx, cfg.Telemetry.Addr, cfg.Telemetry.Path); err != nil {
				log.Error().Err(err).Msg("telemetry server exited")
			}
		}()
	}

	svc := c.App().Agent(container.AgentOptions{
		Feed:          c.Feed(),
		Sink:          console.NewSink(),
		Symbols:       cfg.Symbols.List,
		PollInterval:  time.Duration(cfg.App.PollSec) * time.Second,
		SnapshotEvery: time.Duration(cfg.App.SnapshotEveryMin) * time.Minute,
		Color:         cfg.App.Color,
	})

	log.Info().
		Str("config", *configPath).
		Int("symbols", len(cfg.Symbols.List)).
		Int("poll_sec", cfg.App.PollSec).
		Float64("capital", cfg.App.Capital).
		Bool("dry_run", cfg.App.DryRun).
		Str("feed", cfg.Feed.Kind).
		Str("execution", cfg.Execution.Kind).
		Msg("tradepilot started")

	if err := svc.Run(ctx); err != nil {
		log.Error().Err(err).Msg("agent exited")
	}
}
