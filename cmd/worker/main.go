// Package main runs the trending worker: an hourly scheduler plus the
// trigger and metrics HTTP server.
package main

import (
	"context"
	"errors"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"golang.org/x/sync/errgroup"

	"ytrends/internal/app"
	"ytrends/internal/config"
	"ytrends/internal/logger"
	"ytrends/internal/pipeline"
	"ytrends/internal/scheduler"
	"ytrends/internal/server"
)

func main() {
	os.Exit(run())
}

func run() int {
	configPath := flag.String("config", os.Getenv(config.EnvConfigPath), "Path to YAML config file (optional)")
	dumpConfig := flag.String("dump-config", "", "Write the effective configuration (without secrets) to this path and exit")
	flag.Parse()

	bootLog := logger.NewLogger("info")

	if err := godotenv.Load(); err != nil {
		bootLog.Debug("no .env file loaded", "error", err)
	}

	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		bootLog.Error("invalid configuration", "error", err)
		return 1
	}

	if *dumpConfig != "" {
		if err := cfg.SaveConfig(*dumpConfig); err != nil {
			bootLog.Error("failed to write configuration", "error", err)
			return 1
		}

		bootLog.Info("configuration written", "path", *dumpConfig)

		return 0
	}

	log := logger.New(cfg.Logging.Level, cfg.Logging.Format, os.Stderr)
	slog.SetDefault(log.Slog())

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := app.New(ctx, cfg, log)
	if err != nil {
		log.Error("failed to start worker", "error", err)
		return 1
	}
	defer a.Close()

	log.Info("starting trending worker", "partitions", cfg.Partitions)

	g, gctx := errgroup.WithContext(ctx)

	if !cfg.Schedule.Disabled {
		sched := scheduler.New(
			scheduler.Hourly{Minute: cfg.Schedule.Minute, Second: cfg.Schedule.Second},
			scheduler.Options{RunOnStart: cfg.Schedule.RunOnStart, PastDue: cfg.Schedule.PastDue()},
			log.With("component", "scheduler"),
		)

		g.Go(func() error {
			return sched.Run(gctx, func(ctx context.Context) error {
				_, err := a.Orchestrator.TryRun(ctx, cfg.Partitions)
				if errors.Is(err, pipeline.ErrBusy) {
					a.Metrics.TriggerRejected("busy")
				}

				return err
			})
		})
	}

	if cfg.Server.Enabled {
		srv := server.New(cfg.Server.Addr,
			server.Auth{Token: cfg.Server.TriggerToken, TrustCronHeader: cfg.Server.TrustCronHeader},
			a.Orchestrator, cfg.Partitions, a.Registry, log.With("component", "server"), a.Metrics)

		g.Go(func() error {
			return srv.Start(gctx)
		})
	}

	if err := g.Wait(); err != nil {
		log.Error("worker stopped with error", "error", err)
		return 1
	}

	log.Info("worker stopped")

	return 0
}
