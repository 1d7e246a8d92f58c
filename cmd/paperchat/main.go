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
	"github.com/rs/cors"
	"go.uber.org/zap"

	"github.com/paperchat/paperchat/internal/config"
	dbRedis "github.com/paperchat/paperchat/internal/db/redis"
	"github.com/paperchat/paperchat/internal/domain"
	logpkg "github.com/paperchat/paperchat/internal/logger"
	"github.com/paperchat/paperchat/internal/metrics"
	corpusrepo "github.com/paperchat/paperchat/internal/repository/corpus"
	chiTransport "github.com/paperchat/paperchat/internal/transport/chi"
	googleaiGen "github.com/paperchat/paperchat/internal/transport/googleai"
	openaiEmb "github.com/paperchat/paperchat/internal/transport/openai"
	openrouterGen "github.com/paperchat/paperchat/internal/transport/openrouter"
	chatuc "github.com/paperchat/paperchat/internal/usecase/chat"
	healthuc "github.com/paperchat/paperchat/internal/usecase/health"
	ingestuc "github.com/paperchat/paperchat/internal/usecase/ingest"
	"github.com/paperchat/paperchat/internal/version"
)

func main() {
	// Load configuration based on ENV
	env := config.GetEnv()

	cfg := config.MustLoad(env)

	logger, err := logpkg.NewLogger(env, cfg.Logging.Level)
	if err != nil {
		panic("failed to create logger: " + err.Error())
	}
	defer func() { _ = logger.Sync() }()

	logger.Info("Starting paperchat API server",
		zap.String("version", version.Version),
		zap.String("commit", version.Commit),
		zap.String("env", env),
		zap.Int("http_port", cfg.HTTP.Port),
		zap.Strings("db_addrs", cfg.Database.Addrs),
	)

	store, err := dbRedis.NewStore(dbRedis.Config{
		Addrs:    cfg.Database.Addrs,
		Password: cfg.Database.Password,
	})
	if err != nil {
		logger.Fatal("Failed to create database store", zap.Error(err))
	}
	defer store.Close()

	// Wait for database to be ready
	ctx := context.Background()
	if err := store.WaitForReady(ctx, time.Duration(cfg.Database.ReadinessTimeout)*time.Second); err != nil {
		logger.Fatal("Database not ready", zap.Error(err))
	}
	logger.Info("Connected to database")

	// Register LLM metrics explicitly (no init())
	metrics.RegisterLLMMetrics()

	embedder := openaiEmb.NewEmbedder(&openaiEmb.Config{
		APIKey:     cfg.Embedding.APIKey,
		BaseURL:    cfg.Embedding.BaseURL,
		Model:      cfg.Embedding.Model,
		Dimensions: cfg.Embedding.Dimensions,
		Provider:   "openai",
		Logger:     logger,
	})
	logger.Info("Embedder created",
		zap.String("model", cfg.Embedding.Model),
		zap.Int("dimensions", cfg.Embedding.Dimensions),
	)

	repo := corpusrepo.New(store, cfg.Storage.KeyPrefix).WithHNSW(corpusrepo.HNSWConfig{
		M:           cfg.Index.HNSWM,
		EFConstruct: cfg.Index.HNSWEFConstruct,
	})
	if err := repo.EnsureIndex(ctx, cfg.Embedding.Dimensions); err != nil {
		logger.Fatal("Failed to ensure vector index", zap.Error(err))
	}

	generators, err := buildGenerators(ctx, &cfg, logger)
	if err != nil {
		logger.Fatal("Failed to create generators", zap.Error(err))
	}

	ingestSvc := ingestuc.New(repo, embedder, logger)
	defaultProvider, _ := domain.ParseProvider(cfg.Generation.DefaultProvider)
	chatSvc, err := chatuc.New(
		repo, embedder, generators,
		defaultProvider,
		cfg.Retrieval.TopK,
		time.Duration(cfg.Generation.TimeoutSec)*time.Second,
		logger,
	)
	if err != nil {
		logger.Fatal("Failed to create chat service", zap.Error(err))
	}
	healthSvc := healthuc.New(store, newEmbeddingHealthChecker(embedder)).WithCorpus(repo)

	server := chiTransport.NewServer(ingestSvc, chatSvc, healthSvc, cfg.Storage.UploadDir, logger)

	r := chi.NewRouter()
	r.Use(jsonRecoverer(logger))
	r.Use(chiMiddleware.RequestID)
	r.Use(wideEventMiddleware(logger))
	r.Use(cors.New(cors.Options{
		AllowedOrigins: cfg.HTTP.AllowedOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost},
		AllowedHeaders: []string{"Content-Type"},
	}).Handler)
	r.Use(metrics.Middleware())

	r.Get("/", server.Root)
	r.Get("/health", server.HealthCheck)
	r.Get("/metrics", server.Metrics)
	r.Post("/upload", server.Upload)
	r.Post("/chat", server.Chat)

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

// buildGenerators assembles one generator per configured provider. Gemini
// talks to Google directly; the others go through the OpenRouter gateway
// with an OpenAI-compatible client.
func buildGenerators(ctx context.Context, cfg *config.Config, logger *zap.Logger) ([]chatuc.Generator, error) {
	generators := make([]chatuc.Generator, 0, len(cfg.Generation.Providers))
	for name, provCfg := range cfg.Generation.Providers {
		provider, ok := domain.ParseProvider(name)
		if !ok {
			return nil, fmt.Errorf("unknown provider %q in config", name)
		}
		switch provider {
		case domain.ProviderGemini:
			g, err := googleaiGen.NewGenerator(ctx, &googleaiGen.Config{
				APIKey: provCfg.APIKey,
				Model:  provCfg.Model,
				Logger: logger,
			})
			if err != nil {
				return nil, fmt.Errorf("gemini generator: %w", err)
			}
			generators = append(generators, g)
		default:
			generators = append(generators, openrouterGen.NewGenerator(&openrouterGen.Config{
				APIKey:   provCfg.APIKey,
				BaseURL:  provCfg.BaseURL,
				Model:    provCfg.Model,
				Provider: provider,
				Logger:   logger,
			}))
		}
		logger.Info("Generator created",
			zap.String("provider", string(provider)),
			zap.String("model", provCfg.Model),
		)
	}
	return generators, nil
}

// embeddingHealthChecker wraps domain.Embedder to implement health.EmbeddingChecker.
type embeddingHealthChecker struct {
	embedder domain.Embedder
}

func newEmbeddingHealthChecker(embedder domain.Embedder) *embeddingHealthChecker {
	return &embeddingHealthChecker{embedder: embedder}
}

func (h *embeddingHealthChecker) HealthCheck(ctx context.Context) error {
	if hc, ok := h.embedder.(domain.HealthChecker); ok {
		if err := hc.HealthCheck(ctx); err != nil {
			return fmt.Errorf("embedding health check: %w", err)
		}
	}
	return nil
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

			requestID := chiMiddleware.GetReqID(r.Context())
			if requestID != "" {
				w.Header().Set("X-Request-ID", requestID)
			}

			// Per-request logger with request_id
			reqLogger := logger.With(zap.String("request_id", requestID))
			ctx := logpkg.ContextWithLogger(r.Context(), reqLogger)

			ww := chiMiddleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r.WithContext(ctx))

			// Canonical log line, one per request
			reqLogger.Info("http_request",
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.Int("status", ww.Status()),
				zap.Duration("latency", time.Since(start)),
				zap.String("ip", r.RemoteAddr),
				zap.Int64("content_length", r.ContentLength),
				zap.Int("response_bytes", ww.BytesWritten()),
			)
		})
	}
}
