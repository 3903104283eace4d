// Package platform wires configuration into a running webhook service.
package platform

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"path/filepath"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/boydwold/spellar-vault/internal/config"
	"github.com/boydwold/spellar-vault/pkg/adapters/audio"
	"github.com/boydwold/spellar-vault/pkg/adapters/fs"
	"github.com/boydwold/spellar-vault/pkg/adapters/webhook"
	"github.com/boydwold/spellar-vault/pkg/metrics"
	"github.com/boydwold/spellar-vault/pkg/pipeline"
	"github.com/boydwold/spellar-vault/pkg/render"
)

// Service is the fully wired pipeline: vault, daily log, audio fetcher,
// processor, worker pool and HTTP handler.
type Service struct {
	VaultPath string
	Vault     *fs.Vault
	Daily     *fs.DailyLog
	Processor *pipeline.Processor
	Pool      *pipeline.Pool
	Handler   *webhook.Handler
	Metrics   *metrics.Metrics
	Registry  *prometheus.Registry

	logger *slog.Logger
}

// svc, err := platform.New(cfg, platform.WithLogger(logger))
func New(cfg config.Config, opts ...Option) (*Service, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	o := defaultOptions()
	for _, opt := range opts {
		opt(o)
	}
	logger := o.logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	useTemp := o.forceTemp || (IsDevRun() && o.devSafety)
	root, err := filepath.Abs(ResolveVaultPath(cfg.VaultPath, useTemp))
	if err != nil {
		return nil, fmt.Errorf("failed to resolve vault path: %w", err)
	}
	if useTemp {
		logger.Warn("running in SAFE MODE (Dev/Test)", "original_path", cfg.VaultPath, "resolved_path", root)
	} else if IsDevRun() {
		logger.Warn("running in UNSAFE mode (bypassing dev sandbox)", "path", root)
	}

	reg := o.registry
	if reg == nil {
		reg = prometheus.NewRegistry()
		reg.MustRegister(
			collectors.NewGoCollector(),
			collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		)
	}
	m := metrics.New(reg)

	layout := render.Layout{
		NotesFolder:       cfg.NotesFolder,
		TranscriptsFolder: cfg.TranscriptsFolder,
		AttachmentsFolder: cfg.AttachmentsFolder,
		DailyFolder:       cfg.DailyNotesFolder,
	}
	retry := fs.RetryPolicy{
		Attempts:  cfg.DailyLogAttempts,
		Delay:     cfg.DailyLogDelay,
		Retryable: fs.IsLocked,
	}

	vault := fs.NewVault(root, layout, fs.WithLogger(logger), fs.WithRetryPolicy(retry))
	daily := fs.NewDailyLog(vault.Abs(layout.DailyFolder),
		fs.WithHeader(render.DailyHeader),
		fs.WithDailyRetry(retry),
		fs.WithDailyLogger(logger),
	)
	fetcher := audio.NewFetcher(audio.WithLogger(logger), audio.WithTimeout(cfg.AudioTimeout))

	processor := pipeline.NewProcessor(render.Renderer{Layout: layout}, vault, daily,
		pipeline.WithLogger(logger),
		pipeline.WithMetrics(m),
		pipeline.WithAudio(fetcher),
	)
	pool := pipeline.NewPool(processor,
		pipeline.WithWorkers(cfg.Workers),
		pipeline.WithQueueSize(cfg.QueueSize),
		pipeline.WithPoolLogger(logger),
		pipeline.WithPoolMetrics(m),
		pipeline.WithResultHook(o.onResult),
	)
	handler := webhook.NewHandler(pool,
		webhook.WithSecret(cfg.WebhookSecret),
		webhook.WithMaxBytes(cfg.MaxBodyBytes),
		webhook.WithRequestLogging(cfg.LogRequests),
		webhook.WithStatus(root, cfg.NotesFolder),
		webhook.WithLogger(logger),
		webhook.WithMetrics(m),
	)

	return &Service{
		VaultPath: root,
		Vault:     vault,
		Daily:     daily,
		Processor: processor,
		Pool:      pool,
		Handler:   handler,
		Metrics:   m,
		Registry:  reg,
		logger:    logger,
	}, nil
}

// Start creates the vault folders and launches the workers.
func (s *Service) Start(ctx context.Context) error {
	if err := s.Vault.Initialize(ctx); err != nil {
		return err
	}
	s.Pool.Start(ctx)
	s.logger.Info("service started", "vault", s.VaultPath)
	return nil
}

// Stop refuses new webhooks and waits for queued meetings, or for ctx.
func (s *Service) Stop(ctx context.Context) error {
	return s.Pool.Stop(ctx)
}

// Router serves the webhook endpoint.
func (s *Service) Router() http.Handler {
	return s.Handler.Router()
}

// MetricsHandler serves the service registry in the Prometheus text format.
func (s *Service) MetricsHandler() http.Handler {
	return promhttp.HandlerFor(s.Registry, promhttp.HandlerOpts{Registry: s.Registry})
}
