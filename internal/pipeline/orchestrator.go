// Package pipeline runs fetch, transform, serialize and publish for every
// configured partition, isolating each partition's failures from the rest.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"runtime/debug"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"ytrends/internal/formatter"
	"ytrends/internal/logger"
	"ytrends/internal/metrics"
	"ytrends/internal/models"
	"ytrends/internal/normalizer"
	"ytrends/internal/publisher"
)

// DateLayout formats capture dates.
const DateLayout = "2006-01-02"

// ErrBusy is returned by TryRun while another run is in progress.
var ErrBusy = errors.New("a run is already in progress")

// Fetcher retrieves the ranked items of one partition.
type Fetcher interface {
	FetchPartition(ctx context.Context, partitionKey string) ([]models.RankedItem, error)
}

// Publisher stores a serialized partition result.
type Publisher interface {
	PublishArtifact(ctx context.Context, a publisher.Artifact) (string, error)
}

// Options tunes a run.
type Options struct {
	Location                *time.Location
	Quota                   int
	Concurrency             int
	SkipPublishOnFetchError bool
}

// Orchestrator drives runs over a set of partition keys.
type Orchestrator struct {
	fetcher   Fetcher
	publisher Publisher
	processor *normalizer.Processor
	logger    *logger.Logger
	metrics   *metrics.Metrics
	now       func() time.Time
	newRunID  func() string
	opts      Options
	running   atomic.Bool
}

// New creates an orchestrator.
func New(f Fetcher, p Publisher, opts Options, log *logger.Logger, m *metrics.Metrics) *Orchestrator {
	if opts.Location == nil {
		opts.Location = time.UTC
	}

	if opts.Concurrency < 1 {
		opts.Concurrency = 1
	}

	if log == nil {
		log = logger.Nop()
	}

	return &Orchestrator{
		fetcher:   f,
		publisher: p,
		processor: normalizer.NewProcessor(opts.Quota),
		logger:    log,
		metrics:   m,
		now:       time.Now,
		newRunID:  func() string { return uuid.NewString() },
		opts:      opts,
	}
}

// TryRun starts a run unless one is already in flight, in which case it
// returns ErrBusy without doing anything.
func (o *Orchestrator) TryRun(ctx context.Context, partitionKeys []string) (*models.RunReport, error) {
	if !o.running.CompareAndSwap(false, true) {
		return nil, ErrBusy
	}
	defer o.running.Store(false)

	return o.Run(ctx, partitionKeys), nil
}

// Running reports whether a run started through TryRun is in flight.
func (o *Orchestrator) Running() bool {
	return o.running.Load()
}

// Run processes every partition key and reports the outcome of each. It never
// fails as a whole: errors and panics stay inside their partition.
func (o *Orchestrator) Run(ctx context.Context, partitionKeys []string) *models.RunReport {
	done := o.metrics.RunStarted()
	defer done()

	started := o.now()
	report := &models.RunReport{
		RunID:       o.newRunID(),
		CaptureDate: started.In(o.opts.Location).Format(DateLayout),
		StartedAt:   started,
		Partitions:  make([]models.PartitionReport, len(partitionKeys)),
	}

	log := o.logger.With("run_id", report.RunID)
	log.Info("run started",
		"capture_date", report.CaptureDate,
		"partitions", len(partitionKeys),
		"concurrency", o.opts.Concurrency,
	)

	if o.opts.Concurrency == 1 {
		for i, key := range partitionKeys {
			report.Partitions[i] = o.processPartition(ctx, log, report, key)
		}
	} else {
		var g errgroup.Group
		g.SetLimit(o.opts.Concurrency)

		for i, key := range partitionKeys {
			i, key := i, key
			g.Go(func() error {
				report.Partitions[i] = o.processPartition(ctx, log, report, key)
				return nil
			})
		}

		_ = g.Wait()
	}

	report.FinishedAt = o.now()

	log.Info("run finished",
		"failed", report.Failed(),
		"items", report.TotalItems(),
		"duration", report.FinishedAt.Sub(report.StartedAt).String(),
	)

	return report
}

func (o *Orchestrator) processPartition(ctx context.Context, runLog *logger.Logger, run *models.RunReport, key string) (rep models.PartitionReport) {
	log := runLog.With("partition", key)
	start := time.Now()
	rep.Key = key

	defer func() {
		if r := recover(); r != nil {
			log.Error("partition aborted by panic", "panic", r, "stack", string(debug.Stack()))

			rep.Status = models.StatusFailed
			rep.Error = fmt.Sprintf("panic: %v", r)
		}

		rep.Duration = time.Since(start)
		o.metrics.Partition(string(rep.Status))
	}()

	if err := ctx.Err(); err != nil {
		log.Warn("partition skipped", "error", err)

		rep.Status = models.StatusSkipped
		rep.Error = err.Error()

		return rep
	}

	stageStart := time.Now()
	items, fetchErr := o.fetcher.FetchPartition(ctx, key)
	o.metrics.ObserveStage("fetch", time.Since(stageStart))

	if fetchErr != nil {
		rep.Status = models.StatusFetchFailed
		rep.Error = fetchErr.Error()

		if o.opts.SkipPublishOnFetchError {
			log.Warn("fetch failed, keeping previous artifact", "error", fetchErr)
			return rep
		}

		log.Warn("fetch failed, publishing empty artifact", "error", fetchErr)

		items = nil
	}

	stageStart = time.Now()

	rows, err := o.processor.Process(key, items, run.CaptureDate)
	if err != nil {
		log.Error("failed to transform items", "error", err)

		rep.Status = models.StatusFailed
		rep.Error = err.Error()

		return rep
	}

	o.metrics.ObserveStage("transform", time.Since(stageStart))

	stageStart = time.Now()

	buf, err := formatter.WriteCSV(rows, models.Header)
	if err != nil {
		log.Error("failed to serialize rows", "error", err)

		rep.Status = models.StatusFailed
		rep.Error = err.Error()

		return rep
	}

	o.metrics.ObserveStage("serialize", time.Since(stageStart))

	artifactPath, err := o.publisher.PublishArtifact(ctx, publisher.Artifact{
		PartitionKey: key,
		CaptureDate:  run.CaptureDate,
		RunID:        run.RunID,
		Data:         buf.Bytes(),
		Rows:         len(rows),
	})
	if err != nil {
		rep.Status = models.StatusPublishFailed
		rep.Error = err.Error()

		return rep
	}

	rep.ArtifactPath = artifactPath
	rep.Items = len(rows)

	if fetchErr == nil {
		rep.Status = models.StatusOK
	}

	log.Info("partition done", "status", rep.Status, "items", rep.Items, "path", artifactPath)

	return rep
}
