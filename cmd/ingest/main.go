// Command ingest runs the batch ingestion pipeline: it normalizes the raw
// scraped chapter files into the per-verse corpus, then embeds and indexes
// the verses chapter by chapter, with bounded concurrency inside each
// chapter.
package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"time"

	"github.com/joho/godotenv"

	"github.com/vivekavani/gita-engine/engine/corpus"
	"github.com/vivekavani/gita-engine/engine/embedcache"
	"github.com/vivekavani/gita-engine/engine/ingest"
	"github.com/vivekavani/gita-engine/engine/normalize"
	"github.com/vivekavani/gita-engine/engine/semantic"
	"github.com/vivekavani/gita-engine/pkg/fn"
	"github.com/vivekavani/gita-engine/pkg/llm"
	"github.com/vivekavani/gita-engine/pkg/metrics"
	"github.com/vivekavani/gita-engine/pkg/resilience"
)

var met = metrics.New()

var (
	mVersesIndexed  = met.Counter("gita_ingest_verses_indexed_total", "Verses embedded and upserted")
	mChaptersDone   = met.Counter("gita_ingest_chapters_total", "Chapter files fully indexed")
	mErrorsTotal    = func(stage string) *metrics.Counter { return met.Counter(metrics.WithLabels("gita_ingest_errors_total", "stage", stage), "Ingestion errors") }
	mCacheSize      = met.Gauge("gita_ingest_embedding_cache_size", "Distinct texts in the embedding cache")
	mVerseDur       = met.Histogram("gita_ingest_verse_duration_seconds", "Per-verse pipeline time", nil)
	mChapterDur     = met.Histogram("gita_ingest_chapter_duration_seconds", "Per-chapter indexing time", nil)
)

// text-embedding-3-large
const vectorDims = 3072

func main() {
	var (
		metaPath      = flag.String("chapters", "output/bhagavat_gita.json", "chapter metadata JSON")
		rawDir        = flag.String("raw", "output/chapters", "raw scraped chapter files")
		corpusDir     = flag.String("corpus", "output/chapters_final", "normalized corpus output")
		cachePath     = flag.String("cache", "output/embeddings.json", "embedding cache file")
		qdrantAddr    = flag.String("qdrant", "localhost:6334", "Qdrant gRPC address")
		collection    = flag.String("collection", "bhagavat_gita", "Qdrant collection name")
		skipNormalize = flag.Bool("skip-normalize", false, "index an existing normalized corpus without re-splitting")
		embedRate     = flag.Float64("embed-rate", 2, "embedding calls per second")
		workers       = flag.Int("workers", 4, "concurrent verse pipelines per chapter")
		recreate      = flag.Bool("recreate", false, "drop the collection before indexing")
	)
	flag.Parse()

	_ = godotenv.Load()

	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	slog.SetDefault(logger)

	met.CollectRuntime("gita_ingest", 15*time.Second)
	met.ServeAsync(9091)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	opts := runOpts{
		metaPath:      *metaPath,
		rawDir:        *rawDir,
		corpusDir:     *corpusDir,
		cachePath:     *cachePath,
		qdrantAddr:    *qdrantAddr,
		collection:    *collection,
		skipNormalize: *skipNormalize,
		recreate:      *recreate,
		embedRate:     *embedRate,
		workers:       *workers,
	}
	if err := run(ctx, opts, logger); err != nil {
		logger.Error("ingest failed", "error", err)
		os.Exit(1)
	}
}

type runOpts struct {
	metaPath      string
	rawDir        string
	corpusDir     string
	cachePath     string
	qdrantAddr    string
	collection    string
	skipNormalize bool
	recreate      bool
	embedRate     float64
	workers       int
}

func run(ctx context.Context, opts runOpts, logger *slog.Logger) error {
	chapters, err := corpus.LoadChapterTable(opts.metaPath)
	if err != nil {
		return err
	}

	if !opts.skipNormalize {
		total, err := normalize.Run(opts.rawDir, opts.corpusDir, chapters, logger)
		if err != nil {
			return err
		}
		logger.Info("normalization complete", "verses", total)
	}

	cache, err := embedcache.Open(opts.cachePath)
	if err != nil {
		return err
	}

	vs, err := semantic.New(opts.qdrantAddr, opts.collection)
	if err != nil {
		return err
	}
	defer vs.Close()
	if opts.recreate {
		if err := vs.DeleteCollection(ctx); err != nil {
			logger.Warn("collection drop failed, continuing", "error", err)
		}
	}
	if err := vs.EnsureCollection(ctx, vectorDims); err != nil {
		return err
	}
	logger.Info("connected to Qdrant", "collection", opts.collection, "dims", vectorDims)

	client, err := llm.New(llm.DefaultConfig(os.Getenv("OPENAI_API_KEY")))
	if err != nil {
		return err
	}

	deps := ingest.Deps{
		Embedder: client,
		Cache:    cache,
		Store:    vs,
		Limiter:  resilience.NewLimiter(resilience.LimiterOpts{Rate: opts.embedRate, Burst: 5}),
		Logger:   logger,
	}
	pipeline := ingest.NewPipeline(deps)
	timed := func(ctx context.Context, v corpus.VerseEntry) fn.Result[string] {
		start := time.Now()
		defer mVerseDur.Since(start)
		return pipeline(ctx, v)
	}
	// Verses within a chapter are independent: the record ids are
	// deterministic and the cache coalesces duplicate texts, so bounded
	// concurrency is safe. The limiter still caps the embedding rate.
	batch := fn.BatchStage(opts.workers, fn.Stage[corpus.VerseEntry, string](timed))

	files, err := corpus.ListChapterFiles(opts.corpusDir)
	if err != nil {
		return err
	}

	// The cache file is rewritten in full at the end of the run; a failed
	// run still persists whatever was embedded so far.
	defer func() {
		if err := cache.Save(); err != nil {
			logger.Error("cache save failed", "error", err)
		} else {
			logger.Info("embedding cache saved", "path", opts.cachePath, "texts", cache.Len())
		}
	}()

	for _, f := range files {
		verses, err := corpus.ReadChapter(f.Path)
		if err != nil {
			mErrorsTotal("read").Inc()
			return err
		}

		if ctx.Err() != nil {
			return ctx.Err()
		}

		chapterStart := time.Now()
		result := batch(ctx, verses)
		mChapterDur.Since(chapterStart)
		if result.IsErr() {
			// A gap in the index is worse than a failed run: stop here
			// and let the operator re-run; the cache makes the retry
			// cheap.
			_, pipeErr := result.Unwrap()
			mErrorsTotal("pipeline").Inc()
			return pipeErr
		}
		ids, _ := result.Unwrap()
		mVersesIndexed.Add(int64(len(ids)))
		mCacheSize.Set(int64(cache.Len()))
		mChaptersDone.Inc()
		logger.Info("chapter indexed", "chapter", f.ChapterNumber, "verses", len(verses))
	}

	return nil
}
