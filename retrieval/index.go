package retrieval

import (
	"context"
	"fmt"
	"math"
	"sort"
	"sync"
)

// Document is a unit of indexed reference material.
type Document struct {
	Content  string
	Source   string
	Metadata map[string]string
}

// Index is an in-memory cosine-similarity retriever. Documents are embedded
// at insertion time; queries are embedded per call, so wrapping the embedder
// with NewCachingEmbedder is the usual setup.
type Index struct {
	embedder Embedder

	mu   sync.RWMutex
	docs []Document
	vecs [][]float64
}

var _ Retriever = (*Index)(nil)

// NewIndex creates an empty index over the given embedder.
func NewIndex(embedder Embedder) *Index {
	return &Index{embedder: embedder}
}

// Add embeds and indexes one document.
func (ix *Index) Add(ctx context.Context, doc Document) error {
	vec, err := ix.embedder.Embed(ctx, doc.Content)
	if err != nil {
		return fmt.Errorf("embed document: %w", err)
	}
	ix.mu.Lock()
	defer ix.mu.Unlock()
	ix.docs = append(ix.docs, doc)
	ix.vecs = append(ix.vecs, vec)
	return nil
}

// Len returns the number of indexed documents.
func (ix *Index) Len() int {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	return len(ix.docs)
}

// Retrieve implements Retriever.
func (ix *Index) Retrieve(ctx context.Context, query string, optFns ...func(o *SearchOptions)) ([]Result, error) {
	opts := SearchOptions{TopK: DefaultTopK}
	for _, fn := range optFns {
		fn(&opts)
	}
	if opts.TopK <= 0 {
		opts.TopK = DefaultTopK
	}
	qvec, err := ix.embedder.Embed(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}

	ix.mu.RLock()
	defer ix.mu.RUnlock()
	results := make([]Result, 0, len(ix.docs))
	for i, doc := range ix.docs {
		if !matchesFilters(doc.Metadata, opts.Filters) {
			continue
		}
		results = append(results, Result{
			Content:  doc.Content,
			Score:    cosine(qvec, ix.vecs[i]),
			Source:   doc.Source,
			Metadata: doc.Metadata,
		})
	}
	sort.SliceStable(results, func(a, b int) bool { return results[a].Score > results[b].Score })
	if len(results) > opts.TopK {
		results = results[:opts.TopK]
	}
	return results, nil
}

func matchesFilters(metadata, filters map[string]string) bool {
	for k, want := range filters {
		if metadata[k] != want {
			return false
		}
	}
	return true
}

// cosine computes cosine similarity; mismatched or zero vectors score 0.
func cosine(a, b []float64) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	var dot, na, nb float64
	for i := range a {
		dot += a[i] * b[i]
		na += a[i] * a[i]
		nb += b[i] * b[i]
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb))
}
