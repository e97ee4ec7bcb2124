// Command server starts the visa interview evaluator HTTP server.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"

	ai "github.com/fairyhunter13/visa-interview-evaluator/internal/adapter/ai"
	httpserver "github.com/fairyhunter13/visa-interview-evaluator/internal/adapter/httpserver"
	"github.com/fairyhunter13/visa-interview-evaluator/internal/adapter/observability"
	"github.com/fairyhunter13/visa-interview-evaluator/internal/adapter/repo/redisstore"
	"github.com/fairyhunter13/visa-interview-evaluator/internal/app"
	"github.com/fairyhunter13/visa-interview-evaluator/internal/config"
	"github.com/fairyhunter13/visa-interview-evaluator/internal/domain"
	"github.com/fairyhunter13/visa-interview-evaluator/internal/service/heuristic"
	"github.com/fairyhunter13/visa-interview-evaluator/internal/service/language"
	"github.com/fairyhunter13/visa-interview-evaluator/internal/service/relevance"
	"github.com/fairyhunter13/visa-interview-evaluator/internal/usecase"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}

	logger := observability.SetupLogger(cfg)
	slog.SetDefault(logger)
	observability.InitMetrics()

	// Infra: Redis session store
	rdb := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
	defer func() { _ = rdb.Close() }()
	store := redisstore.New(rdb, cfg.SessionTTL)

	ctx := context.Background()
	if err := store.Ping(ctx); err != nil {
		slog.Warn("redis not reachable at startup; history endpoints will degrade",
			slog.String("addr", cfg.RedisAddr), slog.Any("error", err))
	}

	// Reasoning client: real when an API key is configured, otherwise the
	// deterministic mock so the service stays usable in dev.
	var reasoning domain.ReasoningClient
	if cfg.ReasoningEnabled() {
		reasoning = ai.New(cfg)
		slog.Info("reasoning client initialized", slog.String("model", cfg.ReasoningModel))
	} else {
		reasoning = ai.NewMock()
		slog.Warn("no reasoning API key configured; using deterministic mock client")
	}

	// Scoring services
	scoreSvc := usecase.NewScoreService(reasoning, store,
		relevance.New(cfg.OffTopicOverlapFloor),
		heuristic.New(heuristic.Options{
			MinAnswerWords:   cfg.MinAnswerWords,
			MissingBodyScore: cfg.MissingBodyScore,
		}),
		language.NewGuard(cfg.TargetLanguage, cfg.LanguageConfidenceFloor, cfg.LanguagePenaltyFactor),
		language.NewToleranceAdjuster(cfg.TranscriptionToleranceFloor, cfg.TranscriptionBoost),
	)
	finalSvc := usecase.NewFinalService(reasoning, store)

	redisCheck := func(ctx context.Context) error { return store.Ping(ctx) }
	reasoningCheck := buildReasoningCheck(cfg)

	srv := httpserver.NewServer(cfg, scoreSvc, finalSvc, store, redisCheck, reasoningCheck)
	handler := app.BuildRouter(cfg, srv)

	srvHTTP := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           handler,
		ReadTimeout:       cfg.HTTPReadTimeout,
		WriteTimeout:      cfg.HTTPWriteTimeout,
		IdleTimeout:       cfg.HTTPIdleTimeout,
		ReadHeaderTimeout: 10 * time.Second,
	}

	// Graceful shutdown
	errCh := make(chan error, 1)
	go func() {
		slog.Info("http server starting", slog.Int("port", cfg.Port))
		errCh <- srvHTTP.ListenAndServe()
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		slog.Info("shutdown signal received", slog.String("signal", sig.String()))
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("server error", slog.Any("error", err))
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ServerShutdownTimeout)
	defer cancel()
	_ = srvHTTP.Shutdown(shutdownCtx)
}

// buildReasoningCheck probes the reasoning endpoint for readiness. Any
// HTTP response counts as reachable; auth errors still mean the network
// path is up.
func buildReasoningCheck(cfg config.Config) func(ctx context.Context) error {
	if !cfg.ReasoningEnabled() {
		return nil
	}
	return func(ctx context.Context) error {
		client := &http.Client{Timeout: 2 * time.Second}
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, cfg.ReasoningBaseURL+"/models", nil)
		if err != nil {
			return err
		}
		resp, err := client.Do(req)
		if err != nil {
			return err
		}
		_ = resp.Body.Close()
		return nil
	}
}
