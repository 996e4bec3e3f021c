package listings

import (
	"context"
	"testing"

	"go.uber.org/zap"

	"github.com/amiralserge/homevec/internal/db"
	"github.com/amiralserge/homevec/internal/domain"
	"github.com/amiralserge/homevec/internal/domain/listing"
	"github.com/amiralserge/homevec/internal/ingest"
)

// mockStore implements the consumer interface for tests.
type mockStore struct {
	hsetMultiFn   func(ctx context.Context, items []db.HashSetItem) error
	hgetAllFn     func(ctx context.Context, key string) (map[string]string, error)
	delFn         func(ctx context.Context, key string) error
	scanFn        func(ctx context.Context, pattern string) ([]string, error)
	createIndexFn func(ctx context.Context, def *db.IndexDefinition) error
	dropIndexFn   func(ctx context.Context, name string) error
	indexExistsFn func(ctx context.Context, name string) (bool, error)
	searchKNNFn   func(ctx context.Context, q *db.KNNQuery) (*db.SearchResult, error)
	searchCountFn func(ctx context.Context, index, query string) (int, error)
}

func (m *mockStore) HSetMulti(ctx context.Context, items []db.HashSetItem) error {
	if m.hsetMultiFn != nil {
		return m.hsetMultiFn(ctx, items)
	}
	return nil
}

func (m *mockStore) HGetAll(ctx context.Context, key string) (map[string]string, error) {
	if m.hgetAllFn != nil {
		return m.hgetAllFn(ctx, key)
	}
	return nil, nil
}

func (m *mockStore) Del(ctx context.Context, key string) error {
	if m.delFn != nil {
		return m.delFn(ctx, key)
	}
	return nil
}

func (m *mockStore) Scan(ctx context.Context, pattern string) ([]string, error) {
	if m.scanFn != nil {
		return m.scanFn(ctx, pattern)
	}
	return nil, nil
}

func (m *mockStore) CreateIndex(ctx context.Context, def *db.IndexDefinition) error {
	if m.createIndexFn != nil {
		return m.createIndexFn(ctx, def)
	}
	return nil
}

func (m *mockStore) DropIndex(ctx context.Context, name string) error {
	if m.dropIndexFn != nil {
		return m.dropIndexFn(ctx, name)
	}
	return nil
}

func (m *mockStore) IndexExists(ctx context.Context, name string) (bool, error) {
	if m.indexExistsFn != nil {
		return m.indexExistsFn(ctx, name)
	}
	return false, nil
}

func (m *mockStore) SearchKNN(ctx context.Context, q *db.KNNQuery) (*db.SearchResult, error) {
	if m.searchKNNFn != nil {
		return m.searchKNNFn(ctx, q)
	}
	return &db.SearchResult{}, nil
}

func (m *mockStore) SearchCount(ctx context.Context, index, query string) (int, error) {
	if m.searchCountFn != nil {
		return m.searchCountFn(ctx, index, query)
	}
	return 0, nil
}

// mockSource streams canned extract records.
type mockSource struct {
	records []*ingest.Record
	err     error
}

func (m *mockSource) Stream(ctx context.Context, fn func(rec *ingest.Record) error) error {
	if m.err != nil {
		return m.err
	}
	for _, rec := range m.records {
		if err := fn(rec); err != nil {
			return err
		}
	}
	return nil
}

type mockTextEmbedder struct {
	embedding  []float32
	err        error
	calls      int
	batchCalls int
	lastTexts  []string
}

func (m *mockTextEmbedder) EmbedText(_ context.Context, text string) (domain.EmbeddingResult, error) {
	m.calls++
	if m.err != nil {
		return domain.EmbeddingResult{}, m.err
	}
	return domain.EmbeddingResult{Embedding: m.embedding}, nil
}

func (m *mockTextEmbedder) BatchEmbedText(_ context.Context, texts []string) (domain.BatchEmbeddingResult, error) {
	m.batchCalls++
	m.lastTexts = texts
	if m.err != nil {
		return domain.BatchEmbeddingResult{}, m.err
	}
	embeddings := make([][]float32, len(texts))
	for i := range texts {
		embeddings[i] = m.embedding
	}
	return domain.BatchEmbeddingResult{Embeddings: embeddings}, nil
}

type mockImageEmbedder struct {
	embedding []float32
	err       error
	calls     int
}

func (m *mockImageEmbedder) EmbedImage(_ context.Context, _ []byte) (domain.EmbeddingResult, error) {
	m.calls++
	if m.err != nil {
		return domain.EmbeddingResult{}, m.err
	}
	return domain.EmbeddingResult{Embedding: m.embedding}, nil
}

func testSchema() *domain.Schema {
	return listing.Schema(4, 4)
}

func newTestRepo(t *testing.T) (*Repo, *mockStore, *mockSource, *mockTextEmbedder, *mockImageEmbedder) {
	t.Helper()
	ms := &mockStore{}
	src := &mockSource{}
	text := &mockTextEmbedder{embedding: []float32{0.1, 0.2, 0.3, 0.4}}
	image := &mockImageEmbedder{embedding: []float32{0.5, 0.6, 0.7, 0.8}}
	repo := New(ms, src, text, image, testSchema(), zap.NewNop())
	return repo, ms, src, text, image
}

func extractRecord(number, neighborhood string) *ingest.Record {
	return &ingest.Record{
		Number: number,
		Fields: map[string]string{
			listing.ColNeighborhood:            neighborhood,
			listing.ColPrice:                   "500,000",
			listing.ColBedrooms:                "3",
			listing.ColBathrooms:               "2",
			listing.ColHouseSize:               "1,800 sqft",
			listing.ColDescription:             "A lovely home.",
			listing.ColNeighborhoodDescription: "Quiet streets.",
		},
		PictureFile: number + ".jpg",
		Image:       []byte("img-" + number),
	}
}
