// Package embedcache is the process-wide embedding cache: a map from exact
// input text to its vector, persisted as a single JSON file. The cache is the
// sole guard against paying twice for the same text: verses in a split range
// share identical translation text, and each distinct text hits the embedding
// capability at most once per ingestion run.
package embedcache

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"sync"
)

// EmbedFunc is the embedding capability: text in, vector out.
type EmbedFunc func(ctx context.Context, text string) ([]float32, error)

type inflight struct {
	done chan struct{}
	vec  []float32
	err  error
}

// Cache is an append-only text→vector store. Safe for concurrent use;
// concurrent requests for the same uncached text are coalesced into a single
// embedding call.
type Cache struct {
	path string

	mu      sync.Mutex
	vectors map[string][]float32
	calls   map[string]*inflight
}

// Open loads the cache file at path. A missing file yields an empty cache;
// any other read or decode failure is an error.
func Open(path string) (*Cache, error) {
	c := &Cache{
		path:    path,
		vectors: make(map[string][]float32),
		calls:   make(map[string]*inflight),
	}

	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return c, nil
	}
	if err != nil {
		return nil, fmt.Errorf("embedcache: read %s: %w", path, err)
	}
	if err := json.Unmarshal(data, &c.vectors); err != nil {
		return nil, fmt.Errorf("embedcache: decode %s: %w", path, err)
	}
	return c, nil
}

// GetOrCreate returns the cached vector for text, calling embed on a miss and
// storing the result. A failed embedding is not cached, so the caller may
// retry the same text.
func (c *Cache) GetOrCreate(ctx context.Context, text string, embed EmbedFunc) ([]float32, error) {
	c.mu.Lock()
	if vec, ok := c.vectors[text]; ok {
		c.mu.Unlock()
		return vec, nil
	}
	if call, ok := c.calls[text]; ok {
		// Another goroutine is already embedding this text.
		c.mu.Unlock()
		select {
		case <-call.done:
			return call.vec, call.err
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	call := &inflight{done: make(chan struct{})}
	c.calls[text] = call
	c.mu.Unlock()

	vec, err := embed(ctx, text)

	c.mu.Lock()
	delete(c.calls, text)
	if err == nil {
		c.vectors[text] = vec
	}
	c.mu.Unlock()

	call.vec, call.err = vec, err
	close(call.done)

	if err != nil {
		return nil, fmt.Errorf("embedcache: embed: %w", err)
	}
	return vec, nil
}

// Len reports the number of cached texts.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.vectors)
}

// Save overwrites the cache file with the full current contents. The
// all-or-nothing semantics mean a crash mid-run loses embeddings computed
// since the last Save; callers decide how often to checkpoint.
func (c *Cache) Save() error {
	c.mu.Lock()
	data, err := json.Marshal(c.vectors)
	c.mu.Unlock()
	if err != nil {
		return fmt.Errorf("embedcache: encode: %w", err)
	}
	if err := os.WriteFile(c.path, data, 0o644); err != nil {
		return fmt.Errorf("embedcache: write %s: %w", c.path, err)
	}
	return nil
}
