// Package rag answers user questions over the verse index: it retrieves the
// most relevant verses for a query, builds a constrained system prompt, and
// runs a fixed two-stage answer pipeline over the conversation state.
package rag

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/vivekavani/gita-engine/engine/semantic"
	"github.com/vivekavani/gita-engine/pkg/resilience"
	"github.com/vivekavani/gita-engine/pkg/versenlp"
)

// Embedder produces the query vector. Queries bypass the embedding cache
// since they are not expected to repeat.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

// Searcher abstracts the vector index.
type Searcher interface {
	Search(ctx context.Context, embedding []float32, topK int) ([]semantic.SearchResult, error)
	SearchChapter(ctx context.Context, embedding []float32, topK int, chapter int) ([]semantic.SearchResult, error)
}

// Retriever finds the top-k verses relevant to a query.
type Retriever struct {
	embed   Embedder
	search  Searcher
	breaker *resilience.Breaker
	logger  *slog.Logger
}

// NewRetriever creates a Retriever. The circuit breaker guards the vector
// store; nil disables it.
func NewRetriever(embed Embedder, search Searcher, breaker *resilience.Breaker, logger *slog.Logger) *Retriever {
	if logger == nil {
		logger = slog.Default()
	}
	return &Retriever{embed: embed, search: search, breaker: breaker, logger: logger}
}

// Retrieve embeds the query and returns the top-k verse records ranked by
// similarity descending. When the question names an explicit chapter
// ("chapter 2 verse 47"), the search is scoped to that chapter; otherwise the
// whole collection is searched. Zero results is not an error: the answer
// pipeline handles an empty context at the prompt layer.
func (r *Retriever) Retrieve(ctx context.Context, query string, topK int) ([]semantic.SearchResult, error) {
	vec, err := r.embed.Embed(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("rag: embed query: %w", err)
	}

	chapter := 0
	if ref := versenlp.ExtractBest(query); ref != nil {
		chapter = ref.Chapter
		r.logger.Info("rag: chapter-scoped retrieval", "chapter", chapter, "span", ref.Span)
	}

	var results []semantic.SearchResult
	doSearch := func(ctx context.Context) error {
		var searchErr error
		if chapter > 0 {
			results, searchErr = r.search.SearchChapter(ctx, vec, topK, chapter)
		} else {
			results, searchErr = r.search.Search(ctx, vec, topK)
		}
		return searchErr
	}

	if r.breaker != nil {
		err = r.breaker.Call(ctx, doSearch)
	} else {
		err = doSearch(ctx)
	}
	if err != nil {
		return nil, fmt.Errorf("rag: search: %w", err)
	}

	r.logger.Info("rag: retrieval done", "query_len", len(query), "results", len(results))
	return results, nil
}
