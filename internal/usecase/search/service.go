// Package search exposes the listing search facade: one entry point that
// validates the request, picks the right modality, and projects matches
// into documents.
package search

import (
	"context"
	"fmt"

	"github.com/amiralserge/homevec/internal/domain"
)

const defaultLimit = 3

// Query is one search request. At least one of Text and Image must be set;
// when both are, the text stage pre-selects candidates and image
// similarity orders them.
type Query struct {
	Text      string
	Image     []byte
	TextField string   // content field of the returned documents, summary by default
	Columns   []string // metadata projection, all non-vector fields by default
	Limit     int      // defaults to 3
}

// GetOptions controls the projection of a point lookup.
type GetOptions struct {
	TextField string
	Columns   []string
}

// Service handles listing search across the text, image, and combined
// modalities. Methods are safe for concurrent use once the index is
// initialized; initialization itself must not run concurrently with
// queries.
type Service struct {
	backend Backend
}

// New creates a search service.
func New(backend Backend) *Service {
	return &Service{backend: backend}
}

// Search validates the query, runs the matching modality, and returns at
// most Limit documents, best match first.
func (s *Service) Search(ctx context.Context, q *Query) ([]domain.Document, error) {
	if q.Text == "" && len(q.Image) == 0 {
		return nil, fmt.Errorf("%w: need query text, a query image, or both", domain.ErrInvalidSearchArgs)
	}

	limit := q.Limit
	if limit <= 0 {
		limit = defaultLimit
	}

	var (
		matches domain.Matches
		err     error
	)
	switch {
	case q.Text != "" && len(q.Image) > 0:
		matches, err = s.backend.TextThenImageSearch(ctx, q.Text, q.Image, limit)
	case q.Text != "":
		matches, err = s.backend.TextSearch(ctx, q.Text, limit)
	default:
		matches, err = s.backend.ImageSearch(ctx, q.Image, limit)
	}
	if err != nil {
		return nil, err
	}

	return s.backend.RetrieveDocuments(matches, q.Columns, q.TextField, limit), nil
}

// GetByID returns one listing as a projected document.
func (s *Service) GetByID(ctx context.Context, id string, opts *GetOptions) (domain.Document, error) {
	if opts == nil {
		opts = &GetOptions{}
	}

	match, err := s.backend.GetByID(ctx, id)
	if err != nil {
		return domain.Document{}, err
	}

	docs := s.backend.RetrieveDocuments(domain.Matches{match}, opts.Columns, opts.TextField, 1)
	if len(docs) == 0 {
		return domain.Document{}, domain.ErrNotFound
	}
	return docs[0], nil
}
