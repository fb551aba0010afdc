// Package server assembles the Spike backend from configuration: the
// reasoning client, the data connectors, both agents, the orchestrator, the
// run store and the HTTP router.
//
// Usage:
//
//	srv, err := server.New(ctx)
//	http.ListenAndServe(":8080", srv.Handler)
package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/rs/zerolog/log"

	"github.com/spikeai/spike/backend/internal/agents"
	"github.com/spikeai/spike/backend/internal/api"
	"github.com/spikeai/spike/backend/internal/api/handlers"
	"github.com/spikeai/spike/backend/internal/api/middleware"
	"github.com/spikeai/spike/backend/internal/config"
	"github.com/spikeai/spike/backend/internal/connectors/ga4"
	"github.com/spikeai/spike/backend/internal/connectors/seosheet"
	"github.com/spikeai/spike/backend/internal/orchestrator"
	"github.com/spikeai/spike/backend/internal/plan"
	"github.com/spikeai/spike/backend/internal/reasoning"
	"github.com/spikeai/spike/backend/internal/retention"
	"github.com/spikeai/spike/backend/internal/seodata"
	"github.com/spikeai/spike/backend/internal/store"
	"github.com/spikeai/spike/backend/internal/telemetry"
	"github.com/spikeai/spike/backend/pkg/models"
)

// Server holds the initialized backend.
type Server struct {
	// Handler is the HTTP handler with all routes and middleware.
	Handler http.Handler

	// Orchestrator routes queries; exposed for in-process callers.
	Orchestrator *orchestrator.Orchestrator

	// Store persists runs.
	Store store.RunStore

	Config *config.Config
	Port   int

	// ShutdownFunc flushes telemetry and closes the run store.
	ShutdownFunc func(context.Context) error
}

// New initializes all components from environment configuration.
func New(ctx context.Context) (*Server, error) {
	return NewWithConfig(ctx, config.Load())
}

// NewWithConfig initializes the backend with an explicit configuration.
func NewWithConfig(ctx context.Context, cfg *config.Config) (*Server, error) {
	shutdownTelemetry, err := telemetry.Init(ctx, cfg.Telemetry, cfg.Version)
	if err != nil {
		return nil, fmt.Errorf("init telemetry: %w", err)
	}

	orch, err := NewOrchestrator(ctx, cfg)
	if err != nil {
		_ = shutdownTelemetry(ctx)
		return nil, err
	}

	runs, err := store.New(ctx, cfg.Store)
	if err != nil {
		_ = shutdownTelemetry(ctx)
		return nil, fmt.Errorf("init run store: %w", err)
	}
	log.Info().Str("backend", cfg.Store.Backend).Msg("✅ Run store initialized")

	stopJanitor := startJanitor(runs, cfg)

	auth := middleware.NewAPIKeyAuth(cfg.APIKeys)
	if auth.Enabled() {
		log.Info().Int("keys", len(cfg.APIKeys)).Msg("🔐 API key auth enabled")
	}

	h := handlers.New(orch, runs, cfg.Version, cfg.QueryTimeout)

	return &Server{
		Handler:      api.NewRouter(h, auth),
		Orchestrator: orch,
		Store:        runs,
		Config:       cfg,
		Port:         cfg.Port,
		ShutdownFunc: func(ctx context.Context) error {
			stopJanitor()
			return errors.Join(shutdownTelemetry(ctx), runs.Close())
		},
	}, nil
}

// NewOrchestrator builds the reasoning client, both agents and the
// orchestrator. Missing data-source credentials degrade the matching agent
// to its "not configured" answer rather than failing startup.
func NewOrchestrator(ctx context.Context, cfg *config.Config) (*orchestrator.Orchestrator, error) {
	llm, err := reasoning.NewFromConfig(ctx, cfg.Reasoning)
	if err != nil {
		return nil, fmt.Errorf("init reasoning client: %w", err)
	}

	allow := plan.DefaultAllowList()
	if path := cfg.Orchestrator.AllowListFile; path != "" {
		if allow, err = plan.LoadAllowList(path); err != nil {
			return nil, fmt.Errorf("load allow-list: %w", err)
		}
		log.Info().Str("file", path).Msg("✅ Allow-list loaded")
	}

	var runner agents.ReportRunner
	if client, err := ga4.New(ctx, cfg.Analytics.CredentialsFile, allow); err != nil {
		log.Warn().Err(err).Msg("⚠️  GA4 client unavailable, analytics queries will report it")
	} else {
		runner = client
		log.Info().Msg("✅ GA4 client initialized")
	}

	source := seoSource(ctx, cfg.SEO)

	orch := orchestrator.New(llm,
		agents.NewAnalyticsAgent(llm, runner, allow),
		agents.NewSEOAgent(llm, source),
		orchestrator.Options{
			Strategy:          models.Strategy(cfg.Orchestrator.Strategy),
			MaxIterations:     cfg.Orchestrator.MaxIterations,
			DefaultPropertyID: cfg.Orchestrator.DefaultPropertyID,
		},
	)
	log.Info().
		Str("strategy", string(orch.Strategy())).
		Int("max_iterations", cfg.Orchestrator.MaxIterations).
		Msg("✅ Orchestrator initialized")
	return orch, nil
}

// seoSource prefers a local CSV export, then the configured spreadsheet.
// It returns nil when neither is usable.
func seoSource(ctx context.Context, cfg config.SEOConfig) seodata.Source {
	if cfg.DataFile != "" {
		log.Info().Str("file", cfg.DataFile).Msg("✅ SEO data source: CSV export")
		return seodata.NewCachedSource(seosheet.CSVSource{Path: cfg.DataFile}, cfg.CacheTTL)
	}
	sheet, err := seosheet.NewSheetSource(ctx, cfg.CredentialsFile, cfg.SpreadsheetID)
	if err != nil {
		log.Warn().Err(err).Msg("⚠️  SEO data source unavailable, SEO queries will report it")
		return nil
	}
	log.Info().Str("spreadsheet", cfg.SpreadsheetID).Msg("✅ SEO data source: Google Sheets")
	return seodata.NewCachedSource(sheet, cfg.CacheTTL)
}

// startJanitor prunes expired runs in the background when the backend has
// no native expiry. The returned func stops it.
func startJanitor(runs store.RunStore, cfg *config.Config) context.CancelFunc {
	pruner, ok := runs.(store.Pruner)
	if !ok || !cfg.Retention.Enabled || cfg.Store.RunTTL <= 0 {
		return func() {}
	}

	var archiver retention.Archiver
	if cfg.Retention.ArchiveDir != "" {
		archiver = retention.NewLocalFileArchiver(cfg.Retention.ArchiveDir, cfg.Retention.Compress)
	}
	j := retention.NewJanitor(pruner, archiver, cfg.Store.RunTTL, cfg.Retention.Interval)

	ctx, cancel := context.WithCancel(context.Background())
	go j.Start(ctx)
	return cancel
}
