// Package publisher uploads serialized partition results to a blob sink.
package publisher

import (
	"context"
	"errors"
	"fmt"
	"path"
	"time"

	"ytrends/internal/logger"
	"ytrends/internal/metrics"
	"ytrends/internal/storage"
	"ytrends/pkg/metadata"
)

// ContentType of every published artifact.
const ContentType = "text/csv; charset=utf-8"

// ErrPublish wraps every sink failure.
var ErrPublish = errors.New("failed to publish artifact")

// Artifact describes one upload.
type Artifact struct {
	PartitionKey string
	CaptureDate  string
	RunID        string
	Data         []byte
	Rows         int
}

// Publisher writes artifacts to date and partition derived paths.
type Publisher struct {
	sink    storage.Sink
	logger  *logger.Logger
	metrics *metrics.Metrics
	prefix  string
	now     func() time.Time
}

// New creates a publisher. prefix is prepended to every artifact path.
func New(sink storage.Sink, prefix string, log *logger.Logger, m *metrics.Metrics) *Publisher {
	if log == nil {
		log = logger.Nop()
	}

	return &Publisher{
		sink:    sink,
		logger:  log,
		metrics: m,
		prefix:  prefix,
		now:     time.Now,
	}
}

// ArtifactPath returns {prefix}{captureDate}_Trending_Videos/{partitionKey}_videos.csv.
func ArtifactPath(prefix, captureDate, partitionKey string) string {
	name := captureDate + "_Trending_Videos/" + partitionKey + "_videos.csv"
	if prefix == "" {
		return name
	}

	return path.Join(prefix, name)
}

// Publish uploads buf for the partition, replacing whatever was stored at the
// same path. It returns the artifact path.
func (p *Publisher) Publish(ctx context.Context, buf []byte, partitionKey, captureDate string) (string, error) {
	return p.PublishArtifact(ctx, Artifact{
		PartitionKey: partitionKey,
		CaptureDate:  captureDate,
		Data:         buf,
	})
}

// PublishArtifact is Publish with run details stamped into the blob metadata.
// Failures are logged and returned wrapped in ErrPublish.
func (p *Publisher) PublishArtifact(ctx context.Context, a Artifact) (string, error) {
	objectPath := ArtifactPath(p.prefix, a.CaptureDate, a.PartitionKey)
	log := p.logger.With("partition", a.PartitionKey, "path", objectPath)

	meta := metadata.Sign(a.Data, metadata.Metadata{
		GeneratedAt: p.now().UTC(),
		Partition:   a.PartitionKey,
		CaptureDate: a.CaptureDate,
		RunID:       a.RunID,
		Rows:        a.Rows,
	})

	start := time.Now()
	err := p.sink.Put(ctx, objectPath, a.Data, ContentType, meta.ToMap())
	p.metrics.ObserveStage("publish", time.Since(start))
	p.metrics.Publish(a.PartitionKey, a.Rows, err)

	if err != nil {
		log.Error("failed to upload artifact", "sink", p.sink.Location(), "error", err)
		return objectPath, fmt.Errorf("%w: %s: %w", ErrPublish, objectPath, err)
	}

	log.Info("artifact uploaded", "bytes", len(a.Data), "rows", a.Rows, "sha256", meta.Hash)

	return objectPath, nil
}

// Verify downloads an artifact and checks it against its recorded hash.
func (p *Publisher) Verify(ctx context.Context, partitionKey, captureDate string) (*metadata.Metadata, error) {
	objectPath := ArtifactPath(p.prefix, captureDate, partitionKey)

	obj, err := p.sink.Get(ctx, objectPath)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch %s: %w", objectPath, err)
	}

	if _, err := metadata.Verify(obj.Data, obj.Metadata); err != nil {
		return nil, fmt.Errorf("artifact %s: %w", objectPath, err)
	}

	return metadata.FromMap(obj.Metadata)
}
