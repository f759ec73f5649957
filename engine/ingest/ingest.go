// Package ingest is the indexing pipeline: it takes normalized verses through
// validation, embeddable-text assembly, cached embedding, and vector-store
// upsert. Each verse is one unit of work; an embedding failure fails that
// verse rather than silently leaving a gap in the index.
package ingest

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/vivekavani/gita-engine/engine/corpus"
	"github.com/vivekavani/gita-engine/engine/embedcache"
	"github.com/vivekavani/gita-engine/engine/semantic"
	"github.com/vivekavani/gita-engine/pkg/fn"
	"github.com/vivekavani/gita-engine/pkg/natsutil"
	"github.com/vivekavani/gita-engine/pkg/resilience"
)

const (
	// ReindexSubject is the NATS subject for verse reindex requests.
	ReindexSubject = "engine.reindex"
	// DLQSubject is the dead letter queue for verses that kept failing.
	DLQSubject = "engine.reindex.dlq"
	// MaxRetries before a reindex request goes to the DLQ.
	MaxRetries = 3
)

// Embedder is the embedding capability consumed on cache misses.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

// Upserter abstracts the vector index write path.
type Upserter interface {
	Upsert(ctx context.Context, records []semantic.VerseRecord) error
}

// Deps holds the external dependencies for the indexing pipeline.
type Deps struct {
	Embedder Embedder
	Cache    *embedcache.Cache
	Store    Upserter
	// Limiter throttles embedding calls; nil disables throttling.
	Limiter *resilience.Limiter
	Logger  *slog.Logger
}

// Validate rejects verses that would produce an empty or unaddressable
// record.
var Validate fn.Stage[corpus.VerseEntry, corpus.VerseEntry] = func(_ context.Context, v corpus.VerseEntry) fn.Result[corpus.VerseEntry] {
	if err := corpus.ValidateVerseEntry(v); err != nil {
		return fn.Err[corpus.VerseEntry](err)
	}
	return fn.Ok(v)
}

// BuildText pairs a verse with its canonical embeddable text.
var BuildText fn.Stage[corpus.VerseEntry, EmbeddableVerse] = fn.MapStage(func(v corpus.VerseEntry) EmbeddableVerse {
	return EmbeddableVerse{Verse: v, Text: BuildEmbeddableText(v)}
})

// NewEmbed creates the embedding stage. The cache is consulted first; the
// embedding capability is called at most once per distinct text.
func NewEmbed(cache *embedcache.Cache, embedder Embedder) fn.Stage[EmbeddableVerse, EmbeddedVerse] {
	return func(ctx context.Context, ev EmbeddableVerse) fn.Result[EmbeddedVerse] {
		vec, err := cache.GetOrCreate(ctx, ev.Text, embedder.Embed)
		if err != nil {
			return fn.Err[EmbeddedVerse](fmt.Errorf("embed %s: %w", ev.Verse.ID(), err))
		}
		return fn.Ok(EmbeddedVerse{EmbeddableVerse: ev, Embedding: vec})
	}
}

// NewStore creates the upsert stage. The record id is deterministic, so
// re-ingesting a verse overwrites its record instead of duplicating it.
func NewStore(vs Upserter) fn.Stage[EmbeddedVerse, string] {
	return func(ctx context.Context, ev EmbeddedVerse) fn.Result[string] {
		record := semantic.VerseRecord{
			ID:        ev.Verse.ID(),
			Embedding: ev.Embedding,
			Text:      ev.Text,
			Payload:   PayloadFor(ev.Verse),
		}
		if err := vs.Upsert(ctx, []semantic.VerseRecord{record}); err != nil {
			return fn.Err[string](fmt.Errorf("vector upsert %s: %w", record.ID, err))
		}
		return fn.Ok(record.ID)
	}
}

// PayloadFor flattens a verse into the stored metadata. Translation and
// commentary arrays are joined to single strings for storage.
func PayloadFor(v corpus.VerseEntry) map[string]any {
	return map[string]any{
		"chapter_number":        v.ChapterNumber,
		"chapter_title":         v.ChapterTitle,
		"verse_number":          v.VerseNumber,
		"relative_verse_number": v.RelativeVerseNumber,
		"verse_title":           v.VerseTitle,
		"sanskrit":              v.Sanskrit,
		"transliteration":       v.Transliteration,
		"word_by_word_meaning":  v.WordByWordMeaning,
		"translation":           strings.Join(v.Translation, "\n"),
		"commentary":            strings.Join(v.Commentary, "\n"),
		"audio":                 v.Audio,
		"source":                v.Source,
		"_global_index":         v.GlobalIndex,
	}
}

// LoggedTap returns a pass-through stage that logs entry and exit duration.
func LoggedTap[T any](name string, log *slog.Logger) fn.Stage[T, T] {
	return func(ctx context.Context, t T) fn.Result[T] {
		log.Debug("stage.enter", "stage", name)
		start := time.Now()
		defer func() {
			log.Debug("stage.exit", "stage", name, "duration", time.Since(start))
		}()
		return fn.Ok(t)
	}
}

// NewPipeline constructs the full indexing pipeline:
// Validate → BuildText → Embed → Store.
func NewPipeline(deps Deps) fn.Stage[corpus.VerseEntry, string] {
	log := deps.Logger
	if log == nil {
		log = slog.Default()
	}

	embed := NewEmbed(deps.Cache, deps.Embedder)
	if deps.Limiter != nil {
		embed = resilience.LimiterStageWait(deps.Limiter, embed)
	}

	validated := fn.Then(LoggedTap[corpus.VerseEntry]("validate", log), Validate)
	texted := fn.Then(validated, BuildText)
	embedded := fn.Then(texted, fn.Then(LoggedTap[EmbeddableVerse]("embed", log), embed))
	return fn.Then(embedded, fn.Then(LoggedTap[EmbeddedVerse]("store", log), NewStore(deps.Store)))
}

// retryCount reads the X-Retry-Count header. A missing or garbage header
// counts as a first attempt rather than inheriting a stale value.
func retryCount(h nats.Header) int {
	if h == nil {
		return 0
	}
	n, err := strconv.Atoi(h.Get("X-Retry-Count"))
	if err != nil || n < 0 {
		return 0
	}
	return n
}

// DLQMessage is published to the DLQ on repeated failure.
type DLQMessage struct {
	Verse   corpus.VerseEntry `json:"verse"`
	Error   string            `json:"error"`
	Retries int               `json:"retries"`
}

// StartConsumer subscribes to reindex requests and runs each verse through
// the pipeline. Requests carry already-normalized verses, so ordering does
// not matter: the global index was assigned at normalization time and the
// upsert is id-keyed. Failures are retried up to MaxRetries, then dead
// lettered.
func StartConsumer(nc *nats.Conn, deps Deps) (*nats.Subscription, error) {
	pipeline := NewPipeline(deps)
	log := deps.Logger
	if log == nil {
		log = slog.Default()
	}

	return nc.Subscribe(ReindexSubject, func(msg *nats.Msg) {
		var verse corpus.VerseEntry
		if err := json.Unmarshal(msg.Data, &verse); err != nil {
			log.Error("reindex: unmarshal failed", "error", err)
			return
		}

		ctx := context.Background()

		retries := retryCount(msg.Header)

		result := pipeline(ctx, verse)
		if result.IsErr() {
			_, pipeErr := result.Unwrap()
			retries++
			log.Error("reindex: pipeline failed",
				"error", pipeErr,
				"record_id", verse.ID(),
				"retry", retries,
			)

			if retries >= MaxRetries {
				dlq := DLQMessage{Verse: verse, Error: pipeErr.Error(), Retries: retries}
				if err := natsutil.Publish(ctx, nc, DLQSubject, dlq); err != nil {
					log.Error("reindex: DLQ publish failed", "error", err)
				}
			} else {
				retryMsg := nats.NewMsg(ReindexSubject)
				retryMsg.Data = msg.Data
				retryMsg.Header = nats.Header{}
				retryMsg.Header.Set("X-Retry-Count", strconv.Itoa(retries))
				if err := nc.PublishMsg(retryMsg); err != nil {
					log.Error("reindex: retry publish failed", "error", err)
				}
			}
			return
		}

		recordID, _ := result.Unwrap()
		log.Info("reindex: success", "record_id", recordID)
	})
}
