// Package app wires configuration into a ready-to-run pipeline.
package app

import (
	"context"
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"ytrends/internal/config"
	"ytrends/internal/fetcher"
	"ytrends/internal/logger"
	"ytrends/internal/metrics"
	"ytrends/internal/pipeline"
	"ytrends/internal/publisher"
	"ytrends/internal/storage"
)

// App holds the long-lived components shared by the binaries.
type App struct {
	Config       *config.Config
	Logger       *logger.Logger
	Metrics      *metrics.Metrics
	Registry     *prometheus.Registry
	Sink         storage.Sink
	Publisher    *publisher.Publisher
	Orchestrator *pipeline.Orchestrator
}

// New builds every component from cfg. The caller owns Close.
func New(ctx context.Context, cfg *config.Config, log *logger.Logger) (*App, error) {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	m := metrics.New(reg)

	f, err := fetcher.New(ctx, cfg.Source, cfg.APIKey, log.With("component", "fetcher"), m)
	if err != nil {
		return nil, err
	}

	sink, err := storage.Open(ctx, cfg.StorageConnection, cfg.Storage.Container)
	if err != nil {
		return nil, fmt.Errorf("failed to open storage: %w", err)
	}

	pub := publisher.New(sink, cfg.Storage.Prefix, log.With("component", "publisher"), m)

	orch := pipeline.New(f, pub, pipeline.Options{
		Location:                cfg.Pipeline.Location(),
		Quota:                   cfg.Source.Quota,
		Concurrency:             cfg.Pipeline.Concurrency,
		SkipPublishOnFetchError: cfg.Pipeline.SkipPublishOnFetchError,
	}, log, m)

	log.Info("pipeline ready", "sink", sink.Location(), "config", cfg.String())

	return &App{
		Config:       cfg,
		Logger:       log,
		Metrics:      m,
		Registry:     reg,
		Sink:         sink,
		Publisher:    pub,
		Orchestrator: orch,
	}, nil
}

// Close releases the storage client.
func (a *App) Close() error {
	return a.Sink.Close()
}
