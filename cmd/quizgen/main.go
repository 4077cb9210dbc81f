package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/studyhall-ai/quizgen/internal/cache"
	"github.com/studyhall-ai/quizgen/internal/config"
	"github.com/studyhall-ai/quizgen/internal/db/postgres"
	"github.com/studyhall-ai/quizgen/internal/domain"
	"github.com/studyhall-ai/quizgen/internal/extract"
	logpkg "github.com/studyhall-ai/quizgen/internal/logger"
	"github.com/studyhall-ai/quizgen/internal/metrics"
	"github.com/studyhall-ai/quizgen/internal/repository/chunkstore"
	"github.com/studyhall-ai/quizgen/internal/repository/embcache"
	"github.com/studyhall-ai/quizgen/internal/repository/quizstore"
	chiTransport "github.com/studyhall-ai/quizgen/internal/transport/chi"
	"github.com/studyhall-ai/quizgen/internal/transport/openai"
	healthuc "github.com/studyhall-ai/quizgen/internal/usecase/health"
	ingestuc "github.com/studyhall-ai/quizgen/internal/usecase/ingest"
	quizuc "github.com/studyhall-ai/quizgen/internal/usecase/quiz"
	retrieveuc "github.com/studyhall-ai/quizgen/internal/usecase/retrieve"
	"github.com/studyhall-ai/quizgen/internal/version"
)

func main() {
	// Load configuration based on ENV
	env := config.GetEnv()

	cfg, err := config.Load(env)
	if err != nil {
		panic("failed to load config: " + err.Error())
	}

	logger, err := logpkg.NewLogger(env, cfg.Logging.Level)
	if err != nil {
		panic("failed to create logger: " + err.Error())
	}
	defer func() { _ = logger.Sync() }()

	logger.Info("Starting quizgen API server",
		zap.String("version", version.Version),
		zap.String("commit", version.Commit),
		zap.String("env", env),
		zap.Int("http_port", cfg.HTTP.Port),
	)

	db, err := postgres.Open(cfg.Database.DSN, cfg.Embedding.Dimensions)
	if err != nil {
		logger.Fatal("Failed to open database", zap.Error(err))
	}

	ctx := context.Background()
	pinger := postgres.NewPinger(db)
	if err := pinger.WaitForReady(ctx, time.Duration(cfg.Database.ReadinessTimeout)*time.Second); err != nil {
		logger.Fatal("Database not ready", zap.Error(err))
	}
	logger.Info("Connected to database")

	// Register metrics explicitly (no init())
	metrics.RegisterEmbeddingMetrics()
	metrics.RegisterGenerationMetrics()

	// Build embedder chain — composition root
	base := openai.NewEmbedder(&openai.EmbedderConfig{
		APIKey:     cfg.Embedding.APIKey,
		BaseURL:    cfg.Embedding.BaseURL,
		Model:      cfg.Embedding.Model,
		Dimensions: cfg.Embedding.Dimensions,
		Provider:   cfg.Embedding.Provider,
		Logger:     logger,
	})

	var embedder domain.Embedder = base
	if len(cfg.Cache.Addrs) > 0 {
		cacheStore, err := cache.NewStore(cache.Config{
			Addrs:    cfg.Cache.Addrs,
			Username: cfg.Cache.Username,
			Password: cfg.Cache.Password,
		})
		if err != nil {
			logger.Fatal("Failed to create cache store", zap.Error(err))
		}
		defer cacheStore.Close()

		if err := cacheStore.WaitForReady(ctx, time.Duration(cfg.Database.ReadinessTimeout)*time.Second); err != nil {
			logger.Fatal("Cache not ready", zap.Error(err))
		}

		ttl := time.Duration(cfg.Cache.TTLHours) * time.Hour
		embedder = embcache.New(base, cacheStore, cfg.Embedding.Model, ttl, metrics.EmbeddingCacheTotal, logger)
		logger.Info("Embedding cache enabled", zap.Duration("ttl", ttl))
	}

	completer := openai.NewCompleter(&openai.CompleterConfig{
		APIKey:    cfg.Generation.APIKey,
		BaseURL:   cfg.Generation.BaseURL,
		Model:     cfg.Generation.Model,
		MaxTokens: cfg.Generation.MaxTokens,
		Provider:  cfg.Generation.Provider,
		Logger:    logger,
	})
	logger.Info("Providers created",
		zap.String("embedding_model", cfg.Embedding.Model),
		zap.Int("dimensions", cfg.Embedding.Dimensions),
		zap.String("generation_model", cfg.Generation.Model),
	)

	// Create repositories
	chunkRepo := chunkstore.New(db, cfg.Embedding.Dimensions)
	quizRepo := quizstore.New(db)

	// Create use case services
	scraper := extract.NewScraper(30 * time.Second)
	docSvc := ingestuc.New(
		chunkRepo, chunkRepo, embedder, scraper,
		cfg.Ingest.ChunkSize, cfg.Ingest.ChunkOverlap, cfg.Ingest.EmbedParallel, logger,
	)
	retriever := retrieveuc.New(chunkRepo, embedder, retrieveuc.Params{
		MinChunks:     cfg.Retrieval.MinChunks,
		Thresholds:    cfg.Retrieval.Thresholds,
		MaxResults:    cfg.Retrieval.MaxResults,
		FallbackLimit: cfg.Retrieval.FallbackLimit,
		FallbackScore: cfg.Retrieval.FallbackScore,
	}, logger)
	synth := quizuc.NewSynthesizer(completer, logger)
	quizSvc := quizuc.New(quizRepo, chunkRepo, retriever, synth, logger)

	// Health checks go through the base embedder: the cache decorator
	// must not mask a dead provider.
	healthSvc := healthuc.New(pinger, base, completer)

	server := chiTransport.NewServer(docSvc, quizSvc, healthSvc, int64(cfg.Ingest.MaxUploadBytes), logger)

	r := chi.NewRouter()
	r.Use(jsonRecoverer(logger))
	r.Use(chiMiddleware.RequestID)
	r.Use(wideEventMiddleware(logger))
	r.Use(chiTransport.BearerAuthMiddleware(cfg.Auth.APIKeys))
	r.Use(metrics.Middleware())
	server.Register(r)

	addr := fmt.Sprintf(":%d", cfg.HTTP.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      r,
		ReadTimeout:  time.Duration(cfg.HTTP.ReadTimeoutSec) * time.Second,
		WriteTimeout: time.Duration(cfg.HTTP.WriteTimeoutSec) * time.Second,
	}

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)

	go func() {
		logger.Info("Starting HTTP server", zap.String("addr", addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("HTTP server error", zap.Error(err))
		}
	}()

	<-quit
	logger.Info("Received shutdown signal")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), time.Duration(cfg.HTTP.ShutdownSec)*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Error during shutdown", zap.Error(err))
	}

	logger.Info("Server stopped gracefully")
}

// jsonRecoverer is a recovery middleware that returns JSON instead of a plain text stacktrace.
func jsonRecoverer(logger *zap.Logger) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if rvr := recover(); rvr != nil {
					logger.Error("panic recovered",
						zap.Any("panic", rvr),
						zap.Stack("stacktrace"),
					)
					w.Header().Set("Content-Type", "application/json")
					w.WriteHeader(http.StatusInternalServerError)
					_ = json.NewEncoder(w).Encode(map[string]string{
						"code":    "internal_error",
						"message": "internal error",
					})
				}
			}()
			next.ServeHTTP(w, r)
		})
	}
}

// wideEventMiddleware emits a canonical log line per request and propagates X-Request-ID.
func wideEventMiddleware(logger *zap.Logger) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()

			// chi.middleware.RequestID already placed request_id in context
			requestID := chiMiddleware.GetReqID(r.Context())

			// Set X-Request-ID in response header
			if requestID != "" {
				w.Header().Set("X-Request-ID", requestID)
			}

			// Per-request logger with request_id
			reqLogger := logger.With(zap.String("request_id", requestID))
			ctx := logpkg.ContextWithLogger(r.Context(), reqLogger)

			ww := chiMiddleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r.WithContext(ctx))

			// Canonical log line — one line per request
			reqLogger.Info("http_request",
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.Int("status", ww.Status()),
				zap.Duration("latency", time.Since(start)),
				zap.String("ip", r.RemoteAddr),
				zap.Int64("content_length", r.ContentLength),
				zap.String("user_agent", r.UserAgent()),
				zap.Int("response_bytes", ww.BytesWritten()),
			)
		})
	}
}
