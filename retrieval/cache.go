package retrieval

import (
	"container/list"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"sync"
	"time"
)

// cache tuning defaults, sized for interactive workloads where the same
// question tends to recur within a session.
const (
	DefaultCacheSize = 100
	DefaultCacheTTL  = time.Hour
)

// CacheStats reports hit/miss counters since construction.
type CacheStats struct {
	Hits      uint64
	Misses    uint64
	Evictions uint64
	Size      int
}

// CachingEmbedder wraps an Embedder with an LRU + TTL cache keyed by a
// digest of the input text. Repeated embeddings of the same text within the
// TTL are served locally.
type CachingEmbedder struct {
	inner Embedder
	ttl   time.Duration
	max   int
	now   func() time.Time

	mu      sync.Mutex
	order   *list.List // front = most recent
	entries map[string]*list.Element
	stats   CacheStats
}

type cacheEntry struct {
	key     string
	vector  []float64
	expires time.Time
}

// CacheOptions configure the embedding cache.
type CacheOptions struct {
	MaxEntries int
	TTL        time.Duration
}

// NewCachingEmbedder wraps inner with an LRU+TTL cache.
func NewCachingEmbedder(inner Embedder, optFns ...func(o *CacheOptions)) *CachingEmbedder {
	opts := CacheOptions{MaxEntries: DefaultCacheSize, TTL: DefaultCacheTTL}
	for _, fn := range optFns {
		fn(&opts)
	}
	return &CachingEmbedder{
		inner:   inner,
		ttl:     opts.TTL,
		max:     opts.MaxEntries,
		now:     time.Now,
		order:   list.New(),
		entries: make(map[string]*list.Element),
	}
}

func cacheKey(text string) string {
	sum := sha256.Sum256([]byte(text))
	return hex.EncodeToString(sum[:])[:32]
}

// Embed implements Embedder, consulting the cache first.
func (c *CachingEmbedder) Embed(ctx context.Context, text string) ([]float64, error) {
	key := cacheKey(text)

	c.mu.Lock()
	if el, ok := c.entries[key]; ok {
		entry := el.Value.(*cacheEntry)
		if c.now().Before(entry.expires) {
			c.order.MoveToFront(el)
			c.stats.Hits++
			vec := entry.vector
			c.mu.Unlock()
			return vec, nil
		}
		// expired entry: drop and fall through to a fresh embed
		c.order.Remove(el)
		delete(c.entries, key)
	}
	c.stats.Misses++
	c.mu.Unlock()

	vector, err := c.inner.Embed(ctx, text)
	if err != nil {
		return nil, err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if el, ok := c.entries[key]; ok {
		// racing embed of the same text; keep the existing slot fresh
		el.Value.(*cacheEntry).expires = c.now().Add(c.ttl)
		c.order.MoveToFront(el)
		return vector, nil
	}
	el := c.order.PushFront(&cacheEntry{key: key, vector: vector, expires: c.now().Add(c.ttl)})
	c.entries[key] = el
	for c.order.Len() > c.max {
		oldest := c.order.Back()
		c.order.Remove(oldest)
		delete(c.entries, oldest.Value.(*cacheEntry).key)
		c.stats.Evictions++
	}
	return vector, nil
}

// Stats returns a snapshot of the cache counters.
func (c *CachingEmbedder) Stats() CacheStats {
	c.mu.Lock()
	defer c.mu.Unlock()
	s := c.stats
	s.Size = c.order.Len()
	return s
}
