// Package server exposes the manual trigger, health and metrics endpoints.
package server

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"net/http"
	"slices"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"ytrends/internal/logger"
	"ytrends/internal/metrics"
	"ytrends/internal/models"
	"ytrends/internal/pipeline"
)

const (
	cronHeader      = "X-Appengine-Cron"
	shutdownTimeout = 10 * time.Second
)

// Runner starts a run unless one is already in progress.
type Runner interface {
	TryRun(ctx context.Context, partitionKeys []string) (*models.RunReport, error)
	Running() bool
}

// Auth decides who may trigger a run.
type Auth struct {
	// Token is the bearer token; empty disables bearer access.
	Token string
	// TrustCronHeader admits requests carrying X-Appengine-Cron: true. Only
	// safe behind App Engine, which strips the header from external traffic.
	TrustCronHeader bool
}

// Server wraps an echo instance with the worker routes.
type Server struct {
	echo       *echo.Echo
	runner     Runner
	logger     *logger.Logger
	metrics    *metrics.Metrics
	addr       string
	partitions []string
}

// New builds the routes. gatherer backs /metrics.
func New(addr string, auth Auth, runner Runner, partitions []string, gatherer prometheus.Gatherer, log *logger.Logger, m *metrics.Metrics) *Server {
	if log == nil {
		log = logger.Nop()
	}

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	s := &Server{
		echo:       e,
		runner:     runner,
		logger:     log,
		metrics:    m,
		addr:       addr,
		partitions: partitions,
	}

	e.GET("/healthz", s.healthHandler)
	e.GET("/metrics", echo.WrapHandler(promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})))

	task := e.Group("/_task", TriggerAuth(auth, m))
	task.POST("/scrape", s.scrapeHandler)
	task.GET("/scrape", s.scrapeHandler)

	return s
}

// Handler returns the HTTP handler, mainly for tests.
func (s *Server) Handler() http.Handler {
	return s.echo
}

// Start serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Start(ctx context.Context) error {
	errCh := make(chan error, 1)

	go func() {
		s.logger.Info("http server listening", "addr", s.addr)

		if err := s.echo.Start(s.addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}

		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := s.echo.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("failed to shut down http server: %w", err)
	}

	s.logger.Info("http server stopped")

	return nil
}

func (s *Server) healthHandler(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]any{
		"status":  "ok",
		"running": s.runner.Running(),
	})
}

// scrapeHandler runs the pipeline synchronously and returns the run report.
// An optional "partitions" query value restricts the run to a subset.
func (s *Server) scrapeHandler(c echo.Context) error {
	keys, err := s.selectPartitions(c.QueryParam("partitions"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	// the run outlives a client that hangs up
	ctx := context.WithoutCancel(c.Request().Context())

	report, err := s.runner.TryRun(ctx, keys)
	if errors.Is(err, pipeline.ErrBusy) {
		s.metrics.TriggerRejected("busy")
		return echo.NewHTTPError(http.StatusConflict, err.Error())
	}

	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, report)
}

func (s *Server) selectPartitions(raw string) ([]string, error) {
	if strings.TrimSpace(raw) == "" {
		return s.partitions, nil
	}

	var keys []string

	for _, key := range strings.Split(raw, ",") {
		key = strings.ToUpper(strings.TrimSpace(key))
		if key == "" {
			continue
		}

		if !slices.Contains(s.partitions, key) {
			return nil, fmt.Errorf("unknown partition %q", key)
		}

		if !slices.Contains(keys, key) {
			keys = append(keys, key)
		}
	}

	if len(keys) == 0 {
		return nil, errors.New("no partitions selected")
	}

	return keys, nil
}

// TriggerAuth admits requests carrying the bearer token, and requests sent by
// the App Engine cron service when auth.TrustCronHeader is set.
func TriggerAuth(auth Auth, m *metrics.Metrics) echo.MiddlewareFunc {
	tokenBytes := []byte(auth.Token)

	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			req := c.Request()
			if auth.TrustCronHeader && req.Header.Get(cronHeader) == "true" {
				return next(c)
			}

			provided, ok := strings.CutPrefix(req.Header.Get(echo.HeaderAuthorization), "Bearer ")
			if !ok || provided == "" {
				m.TriggerRejected("unauthenticated")
				return echo.NewHTTPError(http.StatusUnauthorized, "missing trigger credentials")
			}

			if len(tokenBytes) == 0 || subtle.ConstantTimeCompare([]byte(provided), tokenBytes) != 1 {
				m.TriggerRejected("forbidden")
				return echo.NewHTTPError(http.StatusForbidden, "invalid trigger token")
			}

			return next(c)
		}
	}
}
