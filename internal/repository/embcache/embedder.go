// Package embcache decorates embedders with a content-addressed cache so
// identical inputs are never re-embedded across runs. Keys combine the
// embedding model namespace with a digest of the input, so switching
// models naturally invalidates old entries without explicit eviction.
package embcache

import (
	"context"
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"errors"
	"fmt"
	"math"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/amiralserge/homevec/internal/db"
	"github.com/amiralserge/homevec/internal/domain"
)

func cacheKeyPrefix() string {
	return domain.KeyPrefix + "emb_cache:"
}

// store is the consumer interface for the embedding cache.
type store interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
}

// cache holds the pieces shared by both modality decorators.
type cache struct {
	store      store
	namespace  string
	modality   string
	cacheTotal *prometheus.CounterVec
	logger     *zap.Logger
}

func (c *cache) key(content []byte) string {
	h := sha256.Sum256(content)
	return cacheKeyPrefix() + c.namespace + ":" + hex.EncodeToString(h[:])
}

func (c *cache) inc(result string) {
	if c.cacheTotal != nil {
		c.cacheTotal.WithLabelValues(c.modality, result).Inc()
	}
}

func (c *cache) get(ctx context.Context, key string) ([]float32, bool) {
	data, err := c.store.Get(ctx, key)
	if err != nil {
		if !errors.Is(err, db.ErrKeyNotFound) {
			c.logger.Warn("Failed to get cached embedding", zap.String("key", key), zap.Error(err))
		}
		return nil, false
	}
	if len(data) == 0 {
		return nil, false
	}

	vec, err := bytesToVector(data)
	if err != nil {
		c.logger.Warn("Failed to parse cached embedding", zap.String("key", key), zap.Error(err))
		return nil, false
	}
	return vec, true
}

func (c *cache) put(ctx context.Context, key string, vec []float32) {
	if err := c.store.Set(ctx, key, vectorToCacheBytes(vec)); err != nil {
		c.logger.Warn("Failed to cache embedding", zap.String("key", key), zap.Error(err))
	}
}

// TextEmbedder caches text embeddings in a key-value store.
type TextEmbedder struct {
	inner domain.TextEmbedder
	cache cache
}

// NewText creates a caching decorator over a text embedder. namespace
// identifies the embedding model/version; cacheTotal is a counter vec with
// labels (modality, result).
func NewText(
	inner domain.TextEmbedder,
	namespace string,
	s store,
	cacheTotal *prometheus.CounterVec,
	logger *zap.Logger,
) *TextEmbedder {
	return &TextEmbedder{
		inner: inner,
		cache: cache{store: s, namespace: namespace, modality: "text", cacheTotal: cacheTotal, logger: logger},
	}
}

// EmbedText returns a cached embedding or calls the inner embedder.
// Cache hits carry no token usage.
func (t *TextEmbedder) EmbedText(ctx context.Context, text string) (domain.EmbeddingResult, error) {
	key := t.cache.key([]byte(text))

	if vec, ok := t.cache.get(ctx, key); ok {
		t.cache.inc("hit")
		return domain.EmbeddingResult{Embedding: vec}, nil
	}
	t.cache.inc("miss")

	result, err := t.inner.EmbedText(ctx, text)
	if err != nil {
		return domain.EmbeddingResult{}, fmt.Errorf("embed text: %w", err)
	}

	t.cache.put(ctx, key, result.Embedding)
	return result, nil
}

// BatchEmbedText looks up every input first, computes only the misses with
// a single inner batch call, and returns vectors in input order regardless
// of the hit/miss pattern.
func (t *TextEmbedder) BatchEmbedText(ctx context.Context, texts []string) (domain.BatchEmbeddingResult, error) {
	embeddings := make([][]float32, len(texts))

	var missIdx []int
	var missTexts []string
	for i, text := range texts {
		if vec, ok := t.cache.get(ctx, t.cache.key([]byte(text))); ok {
			t.cache.inc("hit")
			embeddings[i] = vec
			continue
		}
		t.cache.inc("miss")
		missIdx = append(missIdx, i)
		missTexts = append(missTexts, text)
	}

	if len(missTexts) == 0 {
		return domain.BatchEmbeddingResult{Embeddings: embeddings}, nil
	}

	computed, err := t.embedMisses(ctx, missTexts)
	if err != nil {
		return domain.BatchEmbeddingResult{}, err
	}
	if len(computed.Embeddings) != len(missTexts) {
		return domain.BatchEmbeddingResult{}, fmt.Errorf(
			"batch embed text: got %d embeddings for %d inputs", len(computed.Embeddings), len(missTexts))
	}

	for j, i := range missIdx {
		embeddings[i] = computed.Embeddings[j]
		t.cache.put(ctx, t.cache.key([]byte(texts[i])), computed.Embeddings[j])
	}

	return domain.BatchEmbeddingResult{
		Embeddings:   embeddings,
		PromptTokens: computed.PromptTokens,
		TotalTokens:  computed.TotalTokens,
	}, nil
}

func (t *TextEmbedder) embedMisses(ctx context.Context, texts []string) (domain.BatchEmbeddingResult, error) {
	if be, ok := t.inner.(domain.BatchTextEmbedder); ok {
		res, err := be.BatchEmbedText(ctx, texts)
		if err != nil {
			return domain.BatchEmbeddingResult{}, fmt.Errorf("batch embed text: %w", err)
		}
		return res, nil
	}
	res, err := domain.BatchTextFallback(ctx, t.inner, texts)
	if err != nil {
		return domain.BatchEmbeddingResult{}, fmt.Errorf("batch embed text fallback: %w", err)
	}
	return res, nil
}

// ImageEmbedder caches image embeddings keyed by a digest of the raw bytes.
type ImageEmbedder struct {
	inner domain.ImageEmbedder
	cache cache
}

// NewImage creates a caching decorator over an image embedder.
func NewImage(
	inner domain.ImageEmbedder,
	namespace string,
	s store,
	cacheTotal *prometheus.CounterVec,
	logger *zap.Logger,
) *ImageEmbedder {
	return &ImageEmbedder{
		inner: inner,
		cache: cache{store: s, namespace: namespace, modality: "image", cacheTotal: cacheTotal, logger: logger},
	}
}

// EmbedImage returns a cached embedding or calls the inner embedder.
func (m *ImageEmbedder) EmbedImage(ctx context.Context, img []byte) (domain.EmbeddingResult, error) {
	key := m.cache.key(img)

	if vec, ok := m.cache.get(ctx, key); ok {
		m.cache.inc("hit")
		return domain.EmbeddingResult{Embedding: vec}, nil
	}
	m.cache.inc("miss")

	result, err := m.inner.EmbedImage(ctx, img)
	if err != nil {
		return domain.EmbeddingResult{}, fmt.Errorf("embed image: %w", err)
	}

	m.cache.put(ctx, key, result.Embedding)
	return result, nil
}

func vectorToCacheBytes(v []float32) []byte {
	buf := make([]byte, len(v)*4)
	for i, f := range v {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(f))
	}
	return buf
}

func bytesToVector(data []byte) ([]float32, error) {
	if len(data)%4 != 0 {
		return nil, fmt.Errorf("invalid embedding cache data: len=%d (not multiple of 4)", len(data))
	}
	vec := make([]float32, len(data)/4)
	for i := range vec {
		vec[i] = math.Float32frombits(binary.LittleEndian.Uint32(data[i*4:]))
	}
	return vec, nil
}
