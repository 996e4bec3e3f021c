package search

import (
	"context"

	"github.com/amiralserge/homevec/internal/domain"
)

// Backend defines the storage contract for listing search.
type Backend interface {
	TextSearch(ctx context.Context, query string, limit int) (domain.Matches, error)
	ImageSearch(ctx context.Context, img []byte, limit int) (domain.Matches, error)
	TextThenImageSearch(ctx context.Context, query string, img []byte, limit int) (domain.Matches, error)
	GetByID(ctx context.Context, id string) (domain.Match, error)
	RetrieveDocuments(matches domain.Matches, columns []string, textField string, limit int) []domain.Document
}
