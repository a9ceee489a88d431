// Package fetcher pages through the most-popular video chart of the ranking API.
package fetcher

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"golang.org/x/time/rate"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
	"google.golang.org/api/youtube/v3"

	"ytrends/internal/config"
	"ytrends/internal/logger"
	"ytrends/internal/metrics"
	"ytrends/internal/models"
	"ytrends/pkg/utils"
)

// Fetch errors. Both are terminal for the partition; no page is retried.
var (
	ErrTransport = errors.New("source unreachable")
	ErrRejected  = errors.New("source rejected request")
)

// maxLoggedBody bounds how much of a rejection body ends up in the logs.
const maxLoggedBody = 512

// RejectedError carries the status and body of a non-success response.
type RejectedError struct {
	Body       string
	StatusCode int
}

func (e *RejectedError) Error() string {
	return fmt.Sprintf("%s: status %d", ErrRejected, e.StatusCode)
}

// Unwrap lets errors.Is match ErrRejected.
func (e *RejectedError) Unwrap() error {
	return ErrRejected
}

// Fetcher retrieves ranked items for one partition at a time.
type Fetcher struct {
	service  *youtube.Service
	limiter  *rate.Limiter
	logger   *logger.Logger
	metrics  *metrics.Metrics
	apiKey   string
	chart    string
	parts    []string
	pageSize int
	quota    int
}

// New builds a fetcher for the configured source. The API key travels as the
// "key" query parameter of every request.
func New(ctx context.Context, cfg config.SourceConfig, apiKey string, log *logger.Logger, m *metrics.Metrics) (*Fetcher, error) {
	httpClient := utils.NewHTTPClient(cfg.GetTimeout(), utils.BuildHeaders(cfg.UserAgent, nil))

	return NewWithClient(ctx, cfg, apiKey, httpClient, log, m)
}

// NewWithClient builds a fetcher on top of an existing HTTP client.
func NewWithClient(ctx context.Context, cfg config.SourceConfig, apiKey string, httpClient *http.Client, log *logger.Logger, m *metrics.Metrics) (*Fetcher, error) {
	service, err := youtube.NewService(ctx,
		option.WithHTTPClient(httpClient),
		option.WithEndpoint(cfg.Endpoint),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create source client: %w", err)
	}

	service.UserAgent = cfg.UserAgent

	if log == nil {
		log = logger.Nop()
	}

	limit := rate.Inf
	if cfg.RequestsPerSec > 0 {
		limit = rate.Limit(cfg.RequestsPerSec)
	}

	return &Fetcher{
		service:  service,
		limiter:  rate.NewLimiter(limit, 1),
		logger:   log,
		metrics:  m,
		apiKey:   apiKey,
		chart:    cfg.Chart,
		parts:    cfg.Parts,
		pageSize: cfg.PageSize,
		quota:    cfg.Quota,
	}, nil
}

// FetchPartition fetches up to the configured quota of items for partitionKey.
func (f *Fetcher) FetchPartition(ctx context.Context, partitionKey string) ([]models.RankedItem, error) {
	return f.Fetch(ctx, partitionKey, f.quota, f.pageSize)
}

// Fetch follows continuation tokens until quota items were collected or the
// source runs out of pages. On any failure it logs and returns an empty
// sequence together with an error wrapping ErrTransport or ErrRejected.
func (f *Fetcher) Fetch(ctx context.Context, partitionKey string, quota, pageSize int) ([]models.RankedItem, error) {
	log := f.logger.With("partition", partitionKey)
	log.Info("fetching trending videos", "quota", quota, "page_size", pageSize)

	items := make([]models.RankedItem, 0, quota)
	pageToken := ""
	page := 0

	for len(items) < quota {
		page++

		if err := f.limiter.Wait(ctx); err != nil {
			return []models.RankedItem{}, f.classify(log, partitionKey, page, err)
		}

		call := f.service.Videos.List(f.parts).
			Chart(f.chart).
			RegionCode(partitionKey).
			MaxResults(int64(pageSize)).
			Context(ctx)

		if pageToken != "" {
			call = call.PageToken(pageToken)
		}

		resp, err := call.Do(googleapi.QueryParameter("key", f.apiKey))
		if err != nil {
			return []models.RankedItem{}, f.classify(log, partitionKey, page, err)
		}

		f.metrics.SourceRequest(partitionKey, metrics.OutcomeSuccess, len(resp.Items))

		for _, v := range resp.Items {
			items = append(items, toRankedItem(v))
		}

		log.Debug("page received", "page", page, "items", len(resp.Items), "total", len(items))

		if resp.NextPageToken == "" {
			break
		}

		if len(resp.Items) == 0 || resp.NextPageToken == pageToken {
			log.Warn("source returned a continuation token without progress, stopping", "page", page)
			break
		}

		pageToken = resp.NextPageToken
	}

	if len(items) > quota {
		items = items[:quota]
	}

	log.Info("retrieved trending videos", "items", len(items), "pages", page)

	return items, nil
}

func (f *Fetcher) classify(log *logger.Logger, partitionKey string, page int, err error) error {
	var apiErr *googleapi.Error
	if errors.As(err, &apiErr) {
		f.metrics.SourceRequest(partitionKey, metrics.OutcomeRejected, 0)

		body := apiErr.Body
		if body == "" {
			body = apiErr.Message
		}

		log.Error("failed to fetch videos",
			"page", page,
			"status", apiErr.Code,
			"response", utils.TruncateString(body, maxLoggedBody),
		)

		return &RejectedError{StatusCode: apiErr.Code, Body: body}
	}

	f.metrics.SourceRequest(partitionKey, metrics.OutcomeTransport, 0)
	log.Error("request failed", "page", page, "error", err)

	return fmt.Errorf("%w: %w", ErrTransport, err)
}

func toRankedItem(v *youtube.Video) models.RankedItem {
	item := models.RankedItem{ID: v.Id}

	if s := v.Snippet; s != nil {
		item.Snippet = &models.Snippet{
			Title:        s.Title,
			ChannelID:    s.ChannelId,
			ChannelTitle: s.ChannelTitle,
			PublishedAt:  s.PublishedAt,
			Description:  s.Description,
			CategoryID:   s.CategoryId,
			Tags:         s.Tags,
		}
	}

	if st := v.Statistics; st != nil {
		item.Statistics = &models.Statistics{
			ViewCount:    st.ViewCount,
			LikeCount:    st.LikeCount,
			CommentCount: st.CommentCount,
		}
	}

	if cd := v.ContentDetails; cd != nil {
		item.ContentDetails = &models.ContentDetails{Duration: cd.Duration}
	}

	return item
}
