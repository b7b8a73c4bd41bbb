package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"log/slog"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/mediaswipe/recommender/handlers"
	"github.com/mediaswipe/recommender/lib/analyzer"
	"github.com/mediaswipe/recommender/lib/collab"
	"github.com/mediaswipe/recommender/lib/config"
	"github.com/mediaswipe/recommender/lib/db"
	"github.com/mediaswipe/recommender/lib/health"
	"github.com/mediaswipe/recommender/lib/lock"
	"github.com/mediaswipe/recommender/lib/quality"
	"github.com/mediaswipe/recommender/lib/recommender"
	"github.com/mediaswipe/recommender/lib/relevance"
	"github.com/mediaswipe/recommender/lib/scheduler"
	"github.com/mediaswipe/recommender/lib/simcache"
	"github.com/mediaswipe/recommender/lib/store"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("Failed to load configuration", slog.Any("error", err))
		os.Exit(1)
	}

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: cfg.SlogLevel(),
	}))
	slog.SetDefault(logger)

	database, err := db.Open(cfg.DBPath, logger)
	if err != nil {
		logger.Error("Failed to open database", slog.Any("error", err))
		os.Exit(1)
	}

	contentStore := store.New(database, logger)

	// The similarity cache is in-process unless Redis is configured.
	var cache simcache.Store = simcache.NewMemory()
	var cachePinger health.Pinger
	if cfg.RedisAddr != "" {
		redisCache, err := simcache.NewRedis(cfg.RedisAddr, cfg.RedisPassword, logger)
		if err != nil {
			logger.Error("Failed to connect to Redis", slog.Any("error", err))
			os.Exit(1)
		}
		defer func() {
			if err := redisCache.Close(); err != nil {
				logger.Error("Failed to close Redis connection", slog.Any("error", err))
			}
		}()
		cache = redisCache
		cachePinger = redisCache
		logger.Info("Using Redis similarity cache", slog.String("addr", cfg.RedisAddr))
	}

	// The LLM tagger is opt-in; the keyword heuristic is the default.
	var tagger analyzer.Tagger
	if cfg.OpenAIKey != "" {
		tagger = analyzer.NewOpenAITagger(cfg.OpenAIKey, cfg.OpenAIModel, logger)
		logger.Info("Using OpenAI interest tagger", slog.String("model", cfg.OpenAIModel))
	}

	scorer := relevance.New(logger)
	filter := collab.New(contentStore, cache, logger)
	prefAnalyzer := analyzer.New(tagger, logger)
	rec := recommender.New(contentStore, scorer, filter, prefAnalyzer, logger)
	evaluator := quality.New(rec, contentStore, logger)

	jobs := scheduler.New(rec, evaluator, contentStore, lock.NewFileLock(logger), logger)
	if err := jobs.Start(cfg.AnalyzeSchedule, cfg.EvalSchedule); err != nil {
		logger.Error("Failed to start background jobs", slog.Any("error", err))
		os.Exit(1)
	}
	defer jobs.Stop()

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))

	r.Get("/health", health.Check(database, cachePinger))
	r.Get("/recommendations", handlers.HandleRecommendations(rec))
	r.Post("/swipe", handlers.HandleSwipe(rec))
	r.Post("/users/{user}/analyze", handlers.HandleAnalyze(rec))
	r.Get("/quality", handlers.HandleQuality(evaluator))
	r.Get("/stats", handlers.HandleStats(contentStore))

	server := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	done := make(chan os.Signal, 1)
	signal.Notify(done, os.Interrupt, syscall.SIGTERM)

	go func() {
		logger.Info("Starting server", slog.String("port", cfg.Port))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("Server failed", slog.Any("error", err))
			os.Exit(1)
		}
	}()

	<-done
	logger.Info("Shutting down")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		logger.Error("Failed to shut down cleanly", slog.Any("error", err))
	}
}
