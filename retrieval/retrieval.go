// Package retrieval provides semantic lookup of reference documents (table
// docs, query examples) for workers that ground their prompts in prior
// knowledge. It separates embedding (text -> vector) from search so caching
// and the index evolve independently.
package retrieval

import "context"

// DefaultTopK is the number of results returned when the caller does not ask
// for a specific count.
const DefaultTopK = 10

// Result is one scored retrieval hit. Scores are cosine similarities and
// results are always returned in non-increasing score order.
type Result struct {
	Content  string            `json:"content"`
	Score    float64           `json:"score"`
	Source   string            `json:"source,omitempty"`
	Metadata map[string]string `json:"metadata,omitempty"`
}

// Embedder turns text into a dense vector.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float64, error)
}

// SearchOptions narrow a retrieval call.
type SearchOptions struct {
	// TopK caps the result count; <= 0 selects DefaultTopK.
	TopK int
	// Filters are metadata equality constraints a document must satisfy.
	Filters map[string]string
}

// Retriever answers free-text queries with scored document hits. An empty
// result slice is a valid answer and distinct from an error (outage).
type Retriever interface {
	Retrieve(ctx context.Context, query string, optFns ...func(o *SearchOptions)) ([]Result, error)
}
