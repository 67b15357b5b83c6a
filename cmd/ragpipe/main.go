package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/ragpipe/internal/config"
	"github.com/kailas-cloud/ragpipe/internal/db"
	dbRedis "github.com/kailas-cloud/ragpipe/internal/db/redis"
	"github.com/kailas-cloud/ragpipe/internal/domain"
	"github.com/kailas-cloud/ragpipe/internal/domain/retrieval/filter"
	"github.com/kailas-cloud/ragpipe/internal/domain/retrieval/options"
	logpkg "github.com/kailas-cloud/ragpipe/internal/logger"
	"github.com/kailas-cloud/ragpipe/internal/metrics"
	contentrepo "github.com/kailas-cloud/ragpipe/internal/repository/content"
	"github.com/kailas-cloud/ragpipe/internal/repository/embcache"
	passagerepo "github.com/kailas-cloud/ragpipe/internal/repository/passage"
	chiTransport "github.com/kailas-cloud/ragpipe/internal/transport/chi"
	openaiEmb "github.com/kailas-cloud/ragpipe/internal/transport/openai"
	healthuc "github.com/kailas-cloud/ragpipe/internal/usecase/health"
	ingestuc "github.com/kailas-cloud/ragpipe/internal/usecase/ingest"
	retrievaluc "github.com/kailas-cloud/ragpipe/internal/usecase/retrieval"
	"github.com/kailas-cloud/ragpipe/internal/version"
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

	logger.Info("Starting ragpipe API server",
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

	// Register retrieval metrics explicitly (no init())
	metrics.RegisterRetrievalMetrics()

	baseEmbedder := openaiEmb.NewEmbedder(&openaiEmb.Config{
		APIKey:     cfg.Embedding.APIKey,
		BaseURL:    cfg.Embedding.BaseURL,
		Model:      cfg.Embedding.Model,
		Dimensions: cfg.Embedding.Dimensions,
		Provider:   cfg.Embedding.Provider,
		Logger:     logger,
	})
	embedder := buildEmbedder(cfg.Embedding, baseEmbedder, store)
	logger.Info("Embedder created",
		zap.String("provider", cfg.Embedding.Provider),
		zap.String("model", cfg.Embedding.Model),
		zap.Int("dimensions", cfg.Embedding.Dimensions),
	)

	// Repositories
	passageRepo := passagerepo.New(store, cfg.Embedding.Dimensions,
		passagerepo.WithHNSW(passagerepo.HNSWConfig{
			M:           cfg.Retrieval.HNSWM,
			EFConstruct: cfg.Retrieval.HNSWEFConstruct,
		}))
	contentRepo := contentrepo.New(store)

	if err := passageRepo.EnsureIndex(ctx); err != nil {
		logger.Fatal("Failed to ensure passage index", zap.Error(err))
	}

	// Retrieval pipeline
	primaryOpts, err := options.New(
		domain.PassageIndexName, domain.DefaultVectorPath,
		cfg.Retrieval.K, cfg.Retrieval.MinScore, filter.Expression{},
	)
	if err != nil {
		logger.Fatal("Invalid primary search options", zap.Error(err))
	}

	boosters, err := buildBoosters(cfg.Retrieval.Boosters, primaryOpts)
	if err != nil {
		logger.Fatal("Failed to build boosters", zap.Error(err))
	}
	logger.Info("Retrieval pipeline configured",
		zap.Int("k", cfg.Retrieval.K),
		zap.Float64("min_score", cfg.Retrieval.MinScore),
		zap.Int("total_max_k", cfg.Retrieval.TotalMaxK),
		zap.Int("boosters", len(boosters)),
	)

	pipeline := retrievaluc.New(contentRepo, embedder, primaryOpts, boosters, cfg.Retrieval.TotalMaxK)

	// Use case services
	ingestSvc := ingestuc.New(passageRepo, embedder)
	healthSvc := healthuc.New(store, store, baseEmbedder)

	server := chiTransport.NewServer(pipeline, ingestSvc, healthSvc, cfg.Auth.APIKeys, logger)

	addr := fmt.Sprintf(":%d", cfg.HTTP.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      server.Router(),
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

// buildEmbedder assembles the decorator chain: OpenAI -> Cached -> Instruction
func buildEmbedder(cfg config.EmbeddingConfig, base *openaiEmb.Embedder, store db.Store) domain.Embedder {
	var embedder domain.Embedder = base
	if !cfg.CacheDisabled && store != nil {
		embedder = embcache.New(base, store, time.Duration(cfg.CacheTTLSec)*time.Second)
	}

	// Instruction prefix goes outermost so the cache key includes it
	if cfg.QueryInstruction != "" {
		return domain.NewInstructionEmbedder(embedder, cfg.QueryInstruction)
	}

	return embedder
}

// buildBoosters converts booster configs into the ordered booster chain.
func buildBoosters(configs []config.BoosterConfig, primary options.Options) ([]retrievaluc.Booster, error) {
	boosters := make([]retrievaluc.Booster, 0, len(configs))
	for i, bc := range configs {
		switch bc.Type {
		case "ensure_source":
			b, err := retrievaluc.NewEnsureSource(primary, retrievaluc.EnsureSourceConfig{
				Source:        bc.Source,
				K:             bc.K,
				MinScore:      bc.MinScore,
				CarryOver:     bc.CarryOver,
				PinFirst:      bc.PinFirst,
				MaxQueryWords: bc.MaxQueryWords,
				Keyword:       bc.Keyword,
			})
			if err != nil {
				return nil, fmt.Errorf("booster[%d]: %w", i, err)
			}
			boosters = append(boosters, b)
		case "cap_source":
			b, err := retrievaluc.NewCapSource(bc.Source, bc.MaxResults)
			if err != nil {
				return nil, fmt.Errorf("booster[%d]: %w", i, err)
			}
			boosters = append(boosters, b)
		default:
			return nil, fmt.Errorf("booster[%d]: unknown type %q", i, bc.Type)
		}
	}
	return boosters, nil
}
