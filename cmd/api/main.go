package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"math/rand"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	riskapp "fraud-risk-engine/internal/application/risk"
	"fraud-risk-engine/internal/domain/risk"
	"fraud-risk-engine/internal/infrastructure/cache/redis"
	"fraud-risk-engine/internal/infrastructure/database/postgres"
	"fraud-risk-engine/internal/infrastructure/http/router"
	"fraud-risk-engine/internal/infrastructure/ml"
	"fraud-risk-engine/internal/infrastructure/store/memory"
	"fraud-risk-engine/internal/interfaces/http/handler"
	"fraud-risk-engine/internal/pkg/config"
	"fraud-risk-engine/internal/pkg/metrics"
)

const version = "1.0.0"

func main() {
	configPath := flag.String("config", "", "Path to config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		slog.Warn("could not load config, using defaults", slog.Any("error", err))
		cfg = config.DefaultConfig()
	}

	logger := newLogger(cfg.Log)
	slog.SetDefault(logger)

	logger.Info("starting risk engine API",
		slog.String("version", version),
		slog.String("store", cfg.Store.Backend),
		slog.Int("port", cfg.Server.Port))

	// History store backend. Connection failures fall back to the in-memory
	// store so the service still comes up in limited mode.
	var store risk.HistoryStore
	var dbHealth handler.HealthChecker
	var redisHealth handler.HealthChecker

	switch cfg.Store.Backend {
	case "postgres":
		dbClient, err := postgres.NewClient(postgres.Config{
			Host:            cfg.Database.Host,
			Port:            cfg.Database.Port,
			User:            cfg.Database.User,
			Password:        cfg.Database.Password,
			Database:        cfg.Database.Name,
			SSLMode:         cfg.Database.SSLMode,
			MaxOpenConns:    cfg.Database.MaxOpenConns,
			MaxIdleConns:    cfg.Database.MaxIdleConns,
			ConnMaxLifetime: cfg.Database.ConnMaxLifetime,
		})
		if err != nil {
			logger.Warn("database connection failed, falling back to in-memory store",
				slog.Any("error", err))
			store = memory.NewHistoryStore()
		} else {
			logger.Info("connected to PostgreSQL",
				slog.String("host", cfg.Database.Host), slog.Int("port", cfg.Database.Port))
			store = postgres.NewHistoryStore(dbClient)
			dbHealth = dbClient
			defer dbClient.Close()
		}
	case "redis":
		redisClient, err := redis.NewClient(redis.Config{
			Host:         cfg.Redis.Host,
			Port:         cfg.Redis.Port,
			Password:     cfg.Redis.Password,
			DB:           cfg.Redis.DB,
			PoolSize:     cfg.Redis.PoolSize,
			ReadTimeout:  cfg.Redis.ReadTimeout,
			WriteTimeout: cfg.Redis.WriteTimeout,
		})
		if err != nil {
			logger.Warn("redis connection failed, falling back to in-memory store",
				slog.Any("error", err))
			store = memory.NewHistoryStore()
		} else {
			logger.Info("connected to Redis",
				slog.String("host", cfg.Redis.Host), slog.Int("port", cfg.Redis.Port))
			store = redis.NewHistoryStore(redisClient)
			redisHealth = redisClient
			defer redisClient.Close()
		}
	default:
		store = memory.NewHistoryStore()
	}

	// Scoring pipeline
	codec := ml.NewCodec()
	encoder := ml.NewEncoder(codec, logger)
	scorer := ml.NewScorer()
	detector := ml.NewOutlierDetector()
	fallback := ml.NewHeuristicDetector(rand.New(rand.NewSource(time.Now().UnixNano())))
	profiler := ml.NewProfiler(detector, fallback, logger)

	loadModelBlob(logger, "scorer", cfg.Models.ScorerPath, scorer.Load)
	loadModelBlob(logger, "anomaly detector", cfg.Models.DetectorPath, detector.Load)

	collector := metrics.NewCollector()

	// Use cases and handlers
	analyzeUseCase := riskapp.NewAnalyzeUseCase(scorer, profiler, encoder, codec, store, collector, logger)
	ingestUseCase := riskapp.NewIngestUseCase(analyzeUseCase, scorer, detector, profiler, encoder, store, collector, logger)

	riskHandler := handler.NewRiskHandler(analyzeUseCase, ingestUseCase)
	healthHandler := handler.NewHealthHandler(dbHealth, redisHealth, scorer, version)

	r := router.NewRouter(riskHandler, healthHandler, collector.Handler())

	server := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:      r,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	go func() {
		logger.Info("HTTP server listening", slog.String("addr", server.Addr))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server error", slog.Any("error", err))
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down server")

	ctx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		logger.Error("server shutdown error", slog.Any("error", err))
	}

	if cfg.Models.ScorerPath != "" && scorer.Trained() {
		if err := scorer.Save(cfg.Models.ScorerPath); err != nil {
			logger.Warn("failed to persist scorer", slog.Any("error", err))
		}
	}
	if cfg.Models.DetectorPath != "" && detector.Trained() {
		if err := detector.Save(cfg.Models.DetectorPath); err != nil {
			logger.Warn("failed to persist anomaly detector", slog.Any("error", err))
		}
	}

	logger.Info("server stopped")
}

func newLogger(cfg config.LogConfig) *slog.Logger {
	var level slog.Level
	switch cfg.Level {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{Level: level}
	if cfg.Format == "json" {
		return slog.New(slog.NewJSONHandler(os.Stdout, opts))
	}
	return slog.New(slog.NewTextHandler(os.Stdout, opts))
}

func loadModelBlob(logger *slog.Logger, name, path string, load func(string) error) {
	if path == "" {
		return
	}
	if _, err := os.Stat(path); err != nil {
		logger.Info("no persisted model blob, starting with fallback",
			slog.String("model", name), slog.String("path", path))
		return
	}
	if err := load(path); err != nil {
		logger.Warn("failed to load model blob",
			slog.String("model", name), slog.Any("error", err))
		return
	}
	logger.Info("model blob loaded", slog.String("model", name), slog.String("path", path))
}
