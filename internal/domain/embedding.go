package domain

import (
	"context"
	"fmt"
)

// KeyPrefix namespaces every key this application writes to the store.
// main sets it from config once at startup, before any store access.
var KeyPrefix = "homevec:"

// TextEmbedder vectorizes a single text.
type TextEmbedder interface {
	EmbedText(ctx context.Context, text string) (EmbeddingResult, error)
}

// BatchTextEmbedder vectorizes multiple texts in a single provider call.
type BatchTextEmbedder interface {
	BatchEmbedText(ctx context.Context, texts []string) (BatchEmbeddingResult, error)
}

// ImageEmbedder vectorizes raw image bytes.
type ImageEmbedder interface {
	EmbedImage(ctx context.Context, image []byte) (EmbeddingResult, error)
}

// EmbeddingResult carries the embedding vector and token usage through the
// decorator chain. Token counts are zero for providers that don't meter
// (e.g. the local image encoder) and for cache hits.
type EmbeddingResult struct {
	Embedding    []float32
	PromptTokens int
	TotalTokens  int
}

// BatchEmbeddingResult carries multiple embedding vectors, in input order,
// and aggregate token usage.
type BatchEmbeddingResult struct {
	Embeddings   [][]float32
	PromptTokens int
	TotalTokens  int
}

// BatchTextFallback calls EmbedText once per input. Safety net for
// providers without a native batch endpoint.
func BatchTextFallback(ctx context.Context, e TextEmbedder, texts []string) (BatchEmbeddingResult, error) {
	embeddings := make([][]float32, len(texts))
	var totalPrompt, totalTokens int

	for i, text := range texts {
		res, err := e.EmbedText(ctx, text)
		if err != nil {
			return BatchEmbeddingResult{}, fmt.Errorf("fallback embed [%d]: %w", i, err)
		}
		embeddings[i] = res.Embedding
		totalPrompt += res.PromptTokens
		totalTokens += res.TotalTokens
	}

	return BatchEmbeddingResult{
		Embeddings:   embeddings,
		PromptTokens: totalPrompt,
		TotalTokens:  totalTokens,
	}, nil
}
