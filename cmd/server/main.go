package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"

	"github.com/JonMunkholm/healthdash/internal/config"
	"github.com/JonMunkholm/healthdash/internal/core"
	_ "github.com/JonMunkholm/healthdash/internal/core/sources" // Register all sources
	"github.com/JonMunkholm/healthdash/internal/llm"
	"github.com/JonMunkholm/healthdash/internal/logging"
	"github.com/JonMunkholm/healthdash/internal/reference"
	"github.com/JonMunkholm/healthdash/internal/web"
)

func main() {
	// Load .env file if it exists (Overload overwrites existing env vars)
	if err := godotenv.Overload(); err != nil {
		slog.Info("no .env file found, using environment variables")
	} else {
		slog.Info("loaded .env file (overwriting existing env vars)")
	}

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	logging.Setup(cfg.Logging.Level, cfg.Logging.Format)
	slog.Debug("configuration loaded", "config", cfg.String())

	ctx := context.Background()

	loader, closeLoader, err := newLoader(ctx, cfg)
	if err != nil {
		slog.Error("failed to set up reference data", "error", err)
		os.Exit(1)
	}
	defer closeLoader()

	deps := core.Deps{Loader: loader}
	if cfg.LLM.APIKey != "" {
		narrator, err := llm.NewOpenAINarrator(llm.Config{
			APIKey:      cfg.LLM.APIKey,
			BaseURL:     cfg.LLM.BaseURL,
			Model:       cfg.LLM.Model,
			Timeout:     cfg.LLM.Timeout,
			Temperature: cfg.LLM.Temperature,
		})
		if err != nil {
			slog.Error("failed to create narrator", "error", err)
			os.Exit(1)
		}
		deps.Narrator = narrator
	} else {
		slog.Warn("no LLM API key configured, profiles will have no narrative")
	}

	service, err := core.NewService(ctx, cfg, deps)
	if err != nil {
		slog.Error("failed to create service", "error", err)
		os.Exit(1)
	}

	ref := service.Reference()
	slog.Info("service ready",
		"sources", core.SourceCount(),
		"indicators", len(ref.Indicators),
		"profile_indicators", len(ref.ProfileIndicators()),
		"countries", len(ref.Countries),
		"reference_source", cfg.Data.ReferenceSource,
		"narrative", deps.Narrator != nil,
	)
	for _, src := range service.ListSources() {
		slog.Debug("source", "tag", src.Tag, "offline", src.Offline)
	}

	server := web.NewServer(service, cfg)

	// Create cancellable context for background jobs
	jobCtx, cancelJobs := context.WithCancel(context.Background())

	go func() {
		if err := service.StartScheduler(jobCtx, core.SchedulerConfig{
			ReloadSpec: cfg.Data.ReloadCron,
			PruneSpec:  cfg.Session.PruneCron,
		}); err != nil {
			slog.Error("scheduler failed", "error", err)
		}
	}()

	// Graceful shutdown
	done := make(chan struct{})
	go func() {
		defer close(done)
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		<-sigCh

		slog.Info("shutting down...")
		cancelJobs()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()

		if err := server.Shutdown(shutdownCtx); err != nil {
			slog.Error("shutdown error", "error", err)
		}
		if err := service.WaitForProfiles(shutdownCtx); err != nil {
			slog.Warn("profiles still running at exit", "active", service.ProfileStatus().Active)
		}
	}()

	slog.Info("server starting", "addr", cfg.Server.Addr())
	if err := server.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		slog.Error("server stopped", "error", err)
		os.Exit(1)
	}
	<-done
	slog.Info("server stopped")
}

// newLoader returns the reference data loader selected by configuration and
// a func releasing its resources.
func newLoader(ctx context.Context, cfg *config.Config) (reference.Loader, func(), error) {
	if !cfg.Data.UsePostgres() {
		return reference.FileLoader{
			CatalogPath:   cfg.Data.CatalogPath,
			CountriesPath: cfg.Data.CountriesPath,
		}, func() {}, nil
	}

	poolConfig, err := pgxpool.ParseConfig(cfg.Database.URL)
	if err != nil {
		return nil, nil, err
	}
	poolConfig.MaxConns = int32(cfg.Database.MaxConns)
	poolConfig.MinConns = int32(cfg.Database.MinConns)
	poolConfig.MaxConnLifetime = cfg.Database.MaxConnLifetime
	poolConfig.MaxConnIdleTime = cfg.Database.MaxConnIdleTime

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, nil, err
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, nil, err
	}
	slog.Info("connected to database", "max_conns", poolConfig.MaxConns)

	return reference.NewPGStore(pool), pool.Close, nil
}
