package search

import (
	"context"
	"testing"

	"github.com/amiralserge/homevec/internal/domain"
)

// mockBackend implements Backend for tests.
type mockBackend struct {
	textSearchFn        func(ctx context.Context, query string, limit int) (domain.Matches, error)
	imageSearchFn       func(ctx context.Context, img []byte, limit int) (domain.Matches, error)
	textThenImageFn     func(ctx context.Context, query string, img []byte, limit int) (domain.Matches, error)
	getByIDFn           func(ctx context.Context, id string) (domain.Match, error)
	retrieveDocumentsFn func(matches domain.Matches, columns []string, textField string, limit int) []domain.Document
}

func (m *mockBackend) TextSearch(ctx context.Context, query string, limit int) (domain.Matches, error) {
	if m.textSearchFn != nil {
		return m.textSearchFn(ctx, query, limit)
	}
	return nil, nil
}

func (m *mockBackend) ImageSearch(ctx context.Context, img []byte, limit int) (domain.Matches, error) {
	if m.imageSearchFn != nil {
		return m.imageSearchFn(ctx, img, limit)
	}
	return nil, nil
}

func (m *mockBackend) TextThenImageSearch(ctx context.Context, query string, img []byte, limit int) (domain.Matches, error) {
	if m.textThenImageFn != nil {
		return m.textThenImageFn(ctx, query, img, limit)
	}
	return nil, nil
}

func (m *mockBackend) GetByID(ctx context.Context, id string) (domain.Match, error) {
	if m.getByIDFn != nil {
		return m.getByIDFn(ctx, id)
	}
	return domain.Match{}, domain.ErrNotFound
}

func (m *mockBackend) RetrieveDocuments(matches domain.Matches, columns []string, textField string, limit int) []domain.Document {
	if m.retrieveDocumentsFn != nil {
		return m.retrieveDocumentsFn(matches, columns, textField, limit)
	}
	docs := make([]domain.Document, 0, len(matches))
	for _, match := range matches {
		docs = append(docs, domain.Document{ID: match.ID, Metadata: map[string]string{"id": match.ID}})
	}
	if limit > 0 && len(docs) > limit {
		docs = docs[:limit]
	}
	return docs
}

func newTestService(t *testing.T) (*Service, *mockBackend) {
	t.Helper()
	mb := &mockBackend{}
	return New(mb), mb
}
