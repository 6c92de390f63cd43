// Command citeassist wires the twelve components into a single process:
// connect storage, build the ingestion pipeline and its background worker,
// build the retrieval engine, mount the websocket session gateway and the
// plain HTTP surface on one gin router, then serve until a signal arrives.
package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"

	citeassist "github.com/citeassist/engine"
	"github.com/citeassist/engine/internal/api"
	"github.com/citeassist/engine/internal/chunk"
	"github.com/citeassist/engine/internal/config"
	"github.com/citeassist/engine/internal/embed"
	"github.com/citeassist/engine/internal/extract"
	"github.com/citeassist/engine/internal/gateway"
	"github.com/citeassist/engine/internal/ingest"
	"github.com/citeassist/engine/internal/repo"
	"github.com/citeassist/engine/internal/rerank"
	"github.com/citeassist/engine/internal/retrieval"
	"github.com/citeassist/engine/internal/sparse"
	"github.com/citeassist/engine/internal/store"
	"github.com/citeassist/engine/internal/sync"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	citeassist.SetLevel(citeassist.LogLevelInfo)
	logger := citeassist.GlobalLogger

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	database, err := repo.New(ctx, cfg.DatabaseURL, cfg.DatabasePoolSize)
	if err != nil {
		log.Fatalf("connect database: %v", err)
	}
	defer database.Close()
	if err := database.Migrate(ctx); err != nil {
		log.Fatalf("migrate database: %v", err)
	}

	vectors, err := buildVectorStore(ctx, cfg)
	if err != nil {
		log.Fatalf("build vector store: %v", err)
	}
	sparseIdx := sparse.NewIndex()

	provider, err := embed.NewOpenAIProvider(cfg.OpenAIAPIKey, embed.WithModel(cfg.EmbeddingModel))
	if err != nil {
		log.Fatalf("build embedding provider: %v", err)
	}
	embedSvc := embed.NewService(provider, embed.WithLogger(logger))

	extractor := extract.NewManager(extract.WithAllowedExtensions(cfg.AllowedExtensions))

	tokenCounter, err := chunk.NewTikTokenCounter("cl100k_base")
	chunkOpts := []chunk.Option{chunk.WithEmbedder(&syncEmbedder{svc: embedSvc})}
	if err != nil {
		logger.Warn("tiktoken encoding unavailable, falling back to word counting", "error", err)
	} else {
		chunkOpts = append(chunkOpts, chunk.WithTokenCounter(tokenCounter))
	}
	chunker := chunk.New(chunkOpts...)

	pipeline := ingest.New(extractor, chunker, embedSvc, database, vectors, sparseIdx, logger)
	worker := ingest.NewWorker(pipeline, claimPaperID(database), database, logger)
	go worker.Run(ctx)
	defer worker.Stop()

	engine := retrieval.New(embedSvc, vectors, sparseIdx, database)
	if cfg.RerankerAPIURL != "" {
		crossEncoder := rerank.NewHTTPCrossEncoder(cfg.RerankerAPIURL, rerank.WithAPIKey(cfg.RerankerAPIKey))
		engine.Reranker = rerank.New(crossEncoder)
	}
	if cfg.RedisURL != "" {
		client := redis.NewClient(&redis.Options{Addr: cfg.RedisURL, Password: cfg.RedisPassword})
		engine.Cache = retrieval.NewRedisCache(client, "citeassist:suggestions")
	}

	synchroniser := sync.NewSynchroniser(database, database, database, pipeline, cfg.DataDir, cfg.ReferenceManagerBaseURL)

	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery())

	gw := gateway.New(engine, logger, cfg.WebsocketRateLimit, cfg.CORSOrigins)
	gw.RegisterRoutes(router)

	httpAPI := api.New(database, worker, synchroniser, cfg.DataDir)
	httpAPI.RegisterRoutes(router)

	srv := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: router,
	}

	go func() {
		logger.Info("citeassist listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("server error: %v", err)
		}
	}()

	<-ctx.Done()
	logger.Info("shutdown signal received, draining connections")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Fatalf("graceful shutdown failed: %v", err)
	}
	logger.Info("shutdown complete")
}

// buildVectorStore picks Milvus when an address is configured, falling back
// to the in-process linear-scan store for local runs without a Milvus
// deployment.
func buildVectorStore(ctx context.Context, cfg *config.Config) (store.VectorStore, error) {
	if cfg.MilvusAddress == "" {
		return store.NewMemoryStore(), nil
	}
	return store.NewMilvusStore(ctx, cfg.MilvusAddress, cfg.EmbeddingDimension)
}

// claimPaperID adapts Repo.ClaimPendingPaper's (Paper, bool, error) shape to
// the id-only claim func the worker expects.
func claimPaperID(database *repo.Repo) func(ctx context.Context) (string, bool, error) {
	return func(ctx context.Context) (string, bool, error) {
		paper, ok, err := database.ClaimPendingPaper(ctx)
		if err != nil || !ok {
			return "", ok, err
		}
		return paper.ID, true, nil
	}
}

// syncEmbedder adapts embed.Service's context-taking Embed to the chunker's
// semantic strategy, which needs no cancellation granularity finer than the
// ingestion call already carries.
type syncEmbedder struct {
	svc *embed.Service
}

func (e *syncEmbedder) Embed(text string) ([]float32, error) {
	return e.svc.Embed(context.Background(), text)
}
