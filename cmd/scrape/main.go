// Package main runs the pipeline once and prints a summary of the run.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/joho/godotenv"

	"ytrends/internal/app"
	"ytrends/internal/config"
	"ytrends/internal/formatter"
	"ytrends/internal/logger"
)

func main() {
	os.Exit(run())
}

func run() int {
	configPath := flag.String("config", os.Getenv(config.EnvConfigPath), "Path to YAML config file (optional)")
	partitions := flag.String("partitions", "", "Comma separated region codes overriding the configured set")
	verify := flag.Bool("verify", false, "Re-read every published artifact and check its hash")
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

	if *partitions != "" {
		cfg.Partitions = strings.Split(strings.ToUpper(strings.ReplaceAll(*partitions, " ", "")), ",")

		if err := cfg.Validate(); err != nil {
			bootLog.Error("invalid partitions", "error", err)
			return 1
		}
	}

	log := logger.New(cfg.Logging.Level, cfg.Logging.Format, os.Stderr)
	slog.SetDefault(log.Slog())

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := app.New(ctx, cfg, log)
	if err != nil {
		log.Error("failed to build pipeline", "error", err)
		return 1
	}
	defer a.Close()

	report := a.Orchestrator.Run(ctx, cfg.Partitions)

	fmt.Print(formatter.Summary(report))

	code := 0

	if *verify {
		for _, p := range report.Partitions {
			if p.ArtifactPath == "" {
				continue
			}

			if _, err := a.Publisher.Verify(ctx, p.Key, report.CaptureDate); err != nil {
				log.Error("artifact verification failed", "partition", p.Key, "error", err)
				code = 1

				continue
			}

			log.Info("artifact verified", "partition", p.Key, "path", p.ArtifactPath)
		}
	}

	return code
}
