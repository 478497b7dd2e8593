package retrieval

import (
	"context"
	"fmt"

	"github.com/openai/openai-go"
)

// OpenAIEmbedderOptions configure the embeddings adapter.
type OpenAIEmbedderOptions struct {
	Model openai.EmbeddingModel
}

// OpenAIEmbedder implements Embedder over the OpenAI embeddings API.
type OpenAIEmbedder struct {
	client *openai.Client
	opts   OpenAIEmbedderOptions
}

var _ Embedder = (*OpenAIEmbedder)(nil)

// NewOpenAIEmbedder creates an embedder using the default client.
func NewOpenAIEmbedder(optFns ...func(o *OpenAIEmbedderOptions)) *OpenAIEmbedder {
	client := openai.NewClient()
	return NewOpenAIEmbedderFromClient(&client, optFns...)
}

// NewOpenAIEmbedderFromClient creates an embedder from an existing client.
func NewOpenAIEmbedderFromClient(client *openai.Client, optFns ...func(o *OpenAIEmbedderOptions)) *OpenAIEmbedder {
	opts := OpenAIEmbedderOptions{Model: openai.EmbeddingModelTextEmbedding3Small}
	for _, fn := range optFns {
		fn(&opts)
	}
	return &OpenAIEmbedder{client: client, opts: opts}
}

// Embed implements Embedder.
func (e *OpenAIEmbedder) Embed(ctx context.Context, text string) ([]float64, error) {
	resp, err := e.client.Embeddings.New(ctx, openai.EmbeddingNewParams{
		Input: openai.EmbeddingNewParamsInputUnion{OfString: openai.String(text)},
		Model: e.opts.Model,
	})
	if err != nil {
		return nil, fmt.Errorf("openai embeddings error: %w", err)
	}
	if len(resp.Data) == 0 {
		return nil, fmt.Errorf("no embedding returned")
	}
	return resp.Data[0].Embedding, nil
}
