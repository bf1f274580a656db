package embed

import (
	"context"
	"fmt"

	lru "github.com/hashicorp/golang-lru/v2"
)

// Cache memoises vectors by text in front of another Embedder. It is safe
// for concurrent use; distortions that share sentences only embed them once.
type Cache struct {
	next  Embedder
	cache *lru.Cache[string, []float32]
}

// NewCache wraps next with an LRU of the given size.
func NewCache(next Embedder, size int) (*Cache, error) {
	c, err := lru.New[string, []float32](size)
	if err != nil {
		return nil, fmt.Errorf("embedding cache: %w", err)
	}
	return &Cache{next: next, cache: c}, nil
}

func (c *Cache) Dimension() int { return c.next.Dimension() }
func (c *Cache) Model() string  { return c.next.Model() }

// Len returns the number of cached vectors.
func (c *Cache) Len() int { return c.cache.Len() }

// EmbedBatch serves hits from the cache and sends the distinct misses to the
// wrapped embedder in one call.
func (c *Cache) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	var missing []string
	pending := make(map[string][]int)
	for i, t := range texts {
		if v, ok := c.cache.Get(t); ok {
			out[i] = v
			continue
		}
		if _, seen := pending[t]; !seen {
			missing = append(missing, t)
		}
		pending[t] = append(pending[t], i)
	}
	if len(missing) == 0 {
		return out, nil
	}

	vecs, err := c.next.EmbedBatch(ctx, missing)
	if err != nil {
		return nil, err
	}
	if len(vecs) != len(missing) {
		return nil, fmt.Errorf("embedding cache: got %d vectors for %d texts", len(vecs), len(missing))
	}
	for k, t := range missing {
		c.cache.Add(t, vecs[k])
		for _, i := range pending[t] {
			out[i] = vecs[k]
		}
	}
	return out, nil
}
