package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/lib/pq" // postgres driver
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/soheilhy/cmux"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/reflection"

	"github.com/nyashahama/gift-genius-backend/internal/ai"
	"github.com/nyashahama/gift-genius-backend/internal/api"
	"github.com/nyashahama/gift-genius-backend/internal/catalog"
	"github.com/nyashahama/gift-genius-backend/internal/config"
	"github.com/nyashahama/gift-genius-backend/internal/db"
	"github.com/nyashahama/gift-genius-backend/internal/email"
	"github.com/nyashahama/gift-genius-backend/internal/explain"
	"github.com/nyashahama/gift-genius-backend/internal/metrics"
	"github.com/nyashahama/gift-genius-backend/internal/recommend"
	"github.com/nyashahama/gift-genius-backend/internal/safety"
	"github.com/nyashahama/gift-genius-backend/internal/store"
	"github.com/nyashahama/gift-genius-backend/internal/uniques"
	"github.com/nyashahama/gift-genius-backend/internal/worker"
)

func main() {
	// ── Logger ────────────────────────────────────────────────────────────────
	// JSON in production, pretty text in development.
	var logger *slog.Logger
	if os.Getenv("ENV") == "production" {
		logger = slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
			Level: slog.LevelInfo,
		}))
	} else {
		logger = slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
			Level: slog.LevelDebug,
		}))
	}
	slog.SetDefault(logger)

	if err := run(logger); err != nil {
		logger.Error("fatal", "error", err)
		os.Exit(1)
	}
}

func run(logger *slog.Logger) error {
	// ── Config ────────────────────────────────────────────────────────────────
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("config: %w", err)
	}
	logger.Info("config loaded", "env", cfg.Env, "port", cfg.Port)

	// Root context cancelled by OS signal. Worker and servers all respect it.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// ── Database ──────────────────────────────────────────────────────────────
	pool, err := openDB(ctx, cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("database: %w", err)
	}
	defer pool.Close()
	logger.Info("database connected")

	st := store.New(pool, db.New(pool))

	// ── Metrics ───────────────────────────────────────────────────────────────
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	m := metrics.New(reg)

	// ── AI ────────────────────────────────────────────────────────────────────
	// OpenAI serves chat and embeddings. Anthropic is the chat fallback when
	// ANTHROPIC_API_KEY is set. One limiter covers every outbound AI call.
	openai := ai.NewOpenAIClient(ai.OpenAIConfig{
		APIKey:         cfg.OpenAIAPIKey,
		BaseURL:        cfg.OpenAIBaseURL,
		ChatModel:      cfg.OpenAIChatModel,
		EmbeddingModel: cfg.OpenAIEmbeddingModel,
	})
	limiter := ai.NewLimiter(cfg.AIRequestsPerSecond)

	var gen ai.Generator = openai
	if cfg.AnthropicAPIKey != "" {
		gen = ai.NewFallbackGenerator(openai, ai.NewAnthropicClient(cfg.AnthropicAPIKey, cfg.AnthropicModel), logger)
		logger.Info("ai: using OpenAI with Anthropic fallback")
	} else {
		logger.Info("ai: using OpenAI only")
	}
	gen = ai.RateLimitGenerator(gen, limiter)

	// Cache outside the limiter so hits never wait for a token.
	embedder := ai.NewCachedEmbedder(ai.RateLimitEmbedder(openai, limiter))

	// ── Catalog ───────────────────────────────────────────────────────────────
	cat := catalog.NewCachedProvider(
		catalog.NewEdibleClient(catalog.EdibleConfig{
			URL:     cfg.CatalogSearchURL,
			Timeout: cfg.CatalogTimeout,
		}, logger, m),
		m,
	)

	// ── Safety ────────────────────────────────────────────────────────────────
	screener := safety.NewScreener(
		safety.NewFallbackValidator(safety.NewLLMValidator(gen), safety.KeywordValidator{}, logger, m),
		logger,
	)

	// ── Curated uniques ───────────────────────────────────────────────────────
	curated := uniques.NewPool(cat, st, logger)
	picker := uniques.NewPicker(uniques.PickerDeps{
		Source:   curated,
		Screener: screener,
		Embedder: embedder,
		Logger:   logger,
		Metrics:  m,
	})

	// ── Pipeline ──────────────────────────────────────────────────────────────
	pipeline := recommend.New(recommend.Deps{
		Catalog:   cat,
		Embedder:  embedder,
		Screener:  screener,
		Uniques:   picker,
		Explainer: explain.New(gen, logger, m),
		Logger:    logger,
		Metrics:   m,
	})

	// ── Birthday reminders ────────────────────────────────────────────────────
	var reminders worker.Triggerer
	if cfg.RemindersEnabled() {
		mailer := email.NewResendClient(cfg.ResendAPIKey, cfg.EmailFromAddr, cfg.EmailFromName, cfg.BaseURL)
		job := worker.NewJob(st, pipeline, mailer, worker.JobConfig{
			WindowDays:       cfg.ReminderWindowDays,
			DefaultRecipient: cfg.ReminderToAddr,
		}, logger, m)
		runner := worker.NewRunner(job, worker.RunnerConfig{Interval: cfg.ReminderInterval}, logger)

		// Blocks until ctx is done.
		go runner.Start(ctx)
		reminders = runner
	} else {
		logger.Warn("reminders: RESEND_API_KEY not set, birthday reminders disabled")
	}

	// ── HTTP server ───────────────────────────────────────────────────────────
	handler := api.NewServer(api.Deps{
		Recommender: pipeline,
		Personas:    st,
		Reminders:   reminders,
		Uniques:     curated,
		Metrics:     promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg}),
		Logger:      logger,
	}, api.Config{
		Env:                cfg.Env,
		AllowedOrigins:     []string{cfg.BaseURL},
		RateLimitPerMinute: cfg.RateLimitPerMinute,
		RequestTimeout:     60 * time.Second,
	})

	srv := &http.Server{
		Handler:      handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 90 * time.Second, // the pipeline makes several AI calls
		IdleTimeout:  120 * time.Second,
	}

	// ── gRPC health ───────────────────────────────────────────────────────────
	grpcSrv := grpc.NewServer()
	healthSrv := health.NewServer()
	healthpb.RegisterHealthServer(grpcSrv, healthSrv)
	reflection.Register(grpcSrv)
	healthSrv.SetServingStatus("", healthpb.HealthCheckResponse_SERVING)

	// ── Listener (HTTP + gRPC on one port) ────────────────────────────────────
	lis, err := net.Listen("tcp", ":"+cfg.Port)
	if err != nil {
		return fmt.Errorf("listen: %w", err)
	}
	mux := cmux.New(lis)
	grpcL := mux.MatchWithWriters(cmux.HTTP2MatchHeaderFieldSendSettings("content-type", "application/grpc"))
	httpL := mux.Match(cmux.Any())

	serverErr := make(chan error, 3)
	go func() {
		if err := grpcSrv.Serve(grpcL); err != nil && !errors.Is(err, cmux.ErrListenerClosed) && !errors.Is(err, grpc.ErrServerStopped) {
			serverErr <- fmt.Errorf("grpc: %w", err)
		}
	}()
	go func() {
		if err := srv.Serve(httpL); err != nil && !errors.Is(err, http.ErrServerClosed) && !errors.Is(err, cmux.ErrListenerClosed) {
			serverErr <- fmt.Errorf("http: %w", err)
		}
	}()
	go func() {
		logger.Info("server listening", "addr", lis.Addr().String())
		if err := mux.Serve(); err != nil && !errors.Is(err, net.ErrClosed) {
			serverErr <- fmt.Errorf("cmux: %w", err)
		}
	}()

	// Block until either a signal arrives or a server dies unexpectedly.
	select {
	case <-ctx.Done():
		logger.Info("shutdown signal received")
	case err := <-serverErr:
		return fmt.Errorf("server error: %w", err)
	}

	// ── Graceful shutdown ─────────────────────────────────────────────────────
	healthSrv.Shutdown()

	// Give in-flight HTTP requests up to 20 seconds to finish.
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 20*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown: %w", err)
	}
	grpcSrv.GracefulStop()
	_ = lis.Close()

	logger.Info("shutdown complete")
	return nil
}

// openDB opens the connection pool and applies the schema. The server
// refuses to start if the database is unreachable or the migration fails.
func openDB(ctx context.Context, dsn string) (*sql.DB, error) {
	pool, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("open: %w", err)
	}

	// Tune the connection pool.
	pool.SetMaxOpenConns(25)
	pool.SetMaxIdleConns(10)
	pool.SetConnMaxLifetime(5 * time.Minute)
	pool.SetConnMaxIdleTime(2 * time.Minute)

	// Verify the connection is reachable before proceeding.
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	if err := pool.PingContext(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping: %w", err)
	}

	if err := db.Migrate(ctx, pool); err != nil {
		pool.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}

	return pool, nil
}
