package embcache

import (
	"context"
	"testing"

	"go.uber.org/zap"

	"github.com/amiralserge/homevec/internal/db"
	"github.com/amiralserge/homevec/internal/domain"
)

type mockTextEmbedder struct {
	result      domain.EmbeddingResult
	err         error
	batchResult domain.BatchEmbeddingResult
	batchErr    error
	calls       int
	batchCalls  int
}

func (m *mockTextEmbedder) EmbedText(_ context.Context, _ string) (domain.EmbeddingResult, error) {
	m.calls++
	return m.result, m.err
}

func (m *mockTextEmbedder) BatchEmbedText(_ context.Context, texts []string) (domain.BatchEmbeddingResult, error) {
	m.batchCalls++
	if m.batchErr != nil {
		return domain.BatchEmbeddingResult{}, m.batchErr
	}
	if m.batchResult.Embeddings != nil {
		return m.batchResult, nil
	}
	embeddings := make([][]float32, len(texts))
	for i := range texts {
		embeddings[i] = m.result.Embedding
	}
	return domain.BatchEmbeddingResult{
		Embeddings:   embeddings,
		PromptTokens: m.result.PromptTokens * len(texts),
		TotalTokens:  m.result.TotalTokens * len(texts),
	}, nil
}

type mockImageEmbedder struct {
	result domain.EmbeddingResult
	err    error
	calls  int
}

func (m *mockImageEmbedder) EmbedImage(_ context.Context, _ []byte) (domain.EmbeddingResult, error) {
	m.calls++
	return m.result, m.err
}

// mockKVStore implements the consumer interface for tests.
type mockKVStore struct {
	getFn func(ctx context.Context, key string) ([]byte, error)
	setFn func(ctx context.Context, key string, value []byte) error
}

func (m *mockKVStore) Get(ctx context.Context, key string) ([]byte, error) {
	if m.getFn != nil {
		return m.getFn(ctx, key)
	}
	return nil, db.ErrKeyNotFound
}

func (m *mockKVStore) Set(ctx context.Context, key string, value []byte) error {
	if m.setFn != nil {
		return m.setFn(ctx, key, value)
	}
	return nil
}

// memKVStore is an in-memory store for tests that exercise real cache hits.
type memKVStore struct {
	data map[string][]byte
}

func newMemKVStore() *memKVStore {
	return &memKVStore{data: make(map[string][]byte)}
}

func (m *memKVStore) Get(_ context.Context, key string) ([]byte, error) {
	v, ok := m.data[key]
	if !ok {
		return nil, db.ErrKeyNotFound
	}
	return v, nil
}

func (m *memKVStore) Set(_ context.Context, key string, value []byte) error {
	m.data[key] = value
	return nil
}

func newTestTextEmbedder(t *testing.T, inner *mockTextEmbedder) (*TextEmbedder, *mockKVStore) {
	t.Helper()
	ms := &mockKVStore{}
	te := NewText(inner, "test-model", ms, nil, zap.NewNop())
	return te, ms
}
