package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
	zlog "github.com/rs/zerolog/log"

	"github.com/KMohnishM/Deep-Shiva/internal/config"
	"github.com/KMohnishM/Deep-Shiva/internal/handler"
	"github.com/KMohnishM/Deep-Shiva/internal/httpsession"
	"github.com/KMohnishM/Deep-Shiva/internal/model/persona"
	"github.com/KMohnishM/Deep-Shiva/internal/observability"
	"github.com/KMohnishM/Deep-Shiva/internal/scheduler"
	"github.com/KMohnishM/Deep-Shiva/internal/service/ai"
	"github.com/KMohnishM/Deep-Shiva/internal/service/chat"
)

func serve(ctx context.Context) error {
	envErr := godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		return err
	}

	logger := observability.NewLogger(observability.LoggerConfig{
		Level:  cfg.Log.Level,
		Pretty: cfg.Log.Pretty,
		Output: os.Stdout,
	})
	zlog.Logger = logger

	if envErr != nil {
		logger.Warn().Err(envErr).Msg("no .env file loaded, using process environment only")
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	metrics := observability.NewMetrics(registry)

	if err := cfg.AI.Validate(); err != nil {
		logger.Warn().Err(err).Msg("assistant not configured, chat endpoints will answer 503")
	}

	chatSvc := chat.NewService(chat.FromLazy(ai.NewLazy(cfg.AI, metrics, logger)), chat.Options{
		MaxTurns: cfg.Memory.MaxTurns,
		Metrics:  metrics,
		Logger:   logger,
	})
	sessions := httpsession.NewManager(cfg.Server.CookieName, cfg.Server.SessionTTL)

	jobs := scheduler.New(logger)
	if err := jobs.Register(&scheduler.SessionSweepJob{
		Tracker:      sessions,
		Sessions:     chatSvc,
		TTL:          cfg.Server.SessionTTL,
		ScheduleExpr: cfg.Server.SweepSchedule,
		Logger:       observability.Component(logger, "sweep"),
	}); err != nil {
		return err
	}
	if err := jobs.Start(); err != nil {
		return err
	}
	defer func() {
		stopCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := jobs.Stop(stopCtx); err != nil {
			logger.Warn().Err(err).Msg("scheduler stop timed out")
		}
	}()

	router := handler.NewRouter(handler.Dependencies{
		Personas:      persona.NewMemoryStore(persona.Seed()),
		Chat:          chatSvc,
		Sessions:      sessions,
		Metrics:       promhttp.HandlerFor(registry, promhttp.HandlerOpts{}),
		Logger:        logger,
		AllowedOrigin: cfg.Server.AllowedOrigin,
	})

	return startServer(ctx, logger, cfg.Server, router)
}

func startServer(ctx context.Context, logger zerolog.Logger, serverCfg config.ServerConfig, router http.Handler) error {
	srv := &http.Server{
		Addr:              serverCfg.Addr,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	logger.Info().Str("addr", serverCfg.Addr).Str("version", version).Msg("Deep Shiva backend listening")
	if err := runServer(ctx, srv); err != nil {
		return err
	}
	logger.Info().Msg("server stopped")
	return nil
}

func runServer(ctx context.Context, srv *http.Server) error {
	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
		err := <-errCh
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}
