// Command indexd runs the NATS reindex consumer: it accepts normalized verse
// entries on the reindex subject and writes them through the indexing
// pipeline. Used to repair or refresh individual verses without a full
// ingestion run.
package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/nats-io/nats.go"

	"github.com/vivekavani/gita-engine/engine/embedcache"
	"github.com/vivekavani/gita-engine/engine/ingest"
	"github.com/vivekavani/gita-engine/engine/semantic"
	"github.com/vivekavani/gita-engine/pkg/llm"
	"github.com/vivekavani/gita-engine/pkg/natsutil"
	"github.com/vivekavani/gita-engine/pkg/resilience"
)

const vectorDims = 3072

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func main() {
	_ = godotenv.Load()

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	slog.SetDefault(logger)

	if err := run(logger); err != nil {
		logger.Error("indexd exited with error", "err", err)
		os.Exit(1)
	}
}

func run(logger *slog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	natsURL := envOr("NATS_URL", nats.DefaultURL)
	qdrantAddr := envOr("QDRANT_URL", "localhost:6334")
	collection := envOr("QDRANT_COLLECTION", "bhagavat_gita")
	cachePath := envOr("GITA_EMBEDDING_CACHE", "output/embeddings.json")

	nc, err := nats.Connect(natsURL)
	if err != nil {
		return err
	}
	defer nc.Drain()

	vs, err := semantic.New(qdrantAddr, collection)
	if err != nil {
		return err
	}
	defer vs.Close()
	if err := vs.EnsureCollection(ctx, vectorDims); err != nil {
		return err
	}

	cache, err := embedcache.Open(cachePath)
	if err != nil {
		return err
	}

	client, err := llm.New(llm.DefaultConfig(os.Getenv("OPENAI_API_KEY")))
	if err != nil {
		return err
	}

	sub, err := ingest.StartConsumer(nc, ingest.Deps{
		Embedder: client,
		Cache:    cache,
		Store:    vs,
		Limiter:  resilience.NewLimiter(resilience.LimiterOpts{Rate: 2, Burst: 5}),
		Logger:   logger,
	})
	if err != nil {
		return err
	}
	defer sub.Unsubscribe()

	// Dead letters only get logged here; repair is a manual backfill.
	dlqSub, err := natsutil.Subscribe(nc, ingest.DLQSubject, func(_ context.Context, m ingest.DLQMessage) {
		logger.Error("verse dead lettered",
			"record_id", m.Verse.ID(),
			"error", m.Error,
			"retries", m.Retries,
		)
	})
	if err != nil {
		return err
	}
	defer dlqSub.Unsubscribe()

	logger.Info("reindex consumer running", "subject", ingest.ReindexSubject)
	<-ctx.Done()

	if err := cache.Save(); err != nil {
		logger.Error("cache save failed", "error", err)
	}
	logger.Info("shutting down")
	return nil
}
