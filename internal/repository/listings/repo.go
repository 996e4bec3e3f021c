// Package listings is the concrete backend for the listings table: index
// lifecycle hooks, extract-driven population, and the vector search
// operations the search service builds on.
package listings

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"go.uber.org/zap"

	"github.com/amiralserge/homevec/internal/db"
	"github.com/amiralserge/homevec/internal/domain"
	"github.com/amiralserge/homevec/internal/domain/listing"
	"github.com/amiralserge/homevec/internal/ingest"
)

const defaultBatchSize = 16

// store is the consumer interface for the listings backend (ISP).
//
//nolint:interfacebloat // the backend owns hash rows, the FT index and search
type store interface {
	HSetMulti(ctx context.Context, items []db.HashSetItem) error
	HGetAll(ctx context.Context, key string) (map[string]string, error)
	Del(ctx context.Context, key string) error
	Scan(ctx context.Context, pattern string) ([]string, error)
	CreateIndex(ctx context.Context, def *db.IndexDefinition) error
	DropIndex(ctx context.Context, name string) error
	IndexExists(ctx context.Context, name string) (bool, error)
	SearchKNN(ctx context.Context, q *db.KNNQuery) (*db.SearchResult, error)
	SearchCount(ctx context.Context, index, query string) (int, error)
}

// source streams joined extract records during population.
type source interface {
	Stream(ctx context.Context, fn func(rec *ingest.Record) error) error
}

// Repo implements the listings table hooks and usecase/search.Backend.
type Repo struct {
	store  store
	source source
	text   domain.TextEmbedder
	image  domain.ImageEmbedder
	schema *domain.Schema
	logger *zap.Logger

	batchSize      int
	candidateLimit int
}

// New creates the listings backend. schema must be the declared listings
// schema; the same pointer is registered with the lifecycle manager.
func New(
	s store,
	src source,
	text domain.TextEmbedder,
	image domain.ImageEmbedder,
	schema *domain.Schema,
	logger *zap.Logger,
) *Repo {
	return &Repo{
		store:     s,
		source:    src,
		text:      text,
		image:     image,
		schema:    schema,
		logger:    logger,
		batchSize: defaultBatchSize,
	}
}

// WithBatchSize sets the population batch size.
func (r *Repo) WithBatchSize(n int) *Repo {
	if n > 0 {
		r.batchSize = n
	}
	return r
}

// WithCandidateLimit fixes the text-stage candidate set size for combined
// searches. Zero keeps the adaptive default of max(4*limit, 10).
func (r *Repo) WithCandidateLimit(n int) *Repo {
	if n > 0 {
		r.candidateLimit = n
	}
	return r
}

// CreateTable is the create hook: FT.CREATE the listings index if absent.
// reset is destructive: the index and every stored row go first.
func (r *Repo) CreateTable(ctx context.Context, schema *domain.Schema, reset bool) error {
	if reset {
		if err := r.dropAll(ctx); err != nil {
			return err
		}
	}

	exists, err := r.store.IndexExists(ctx, indexName())
	if err != nil {
		return fmt.Errorf("check index exists: %w", err)
	}
	if exists {
		return nil
	}

	def, err := buildIndexDef(schema)
	if err != nil {
		return fmt.Errorf("build index: %w", err)
	}
	if err := r.store.CreateIndex(ctx, def); err != nil {
		return fmt.Errorf("create index %s: %w", def.Name, err)
	}
	return nil
}

// dropAll removes the index and all listing rows.
func (r *Repo) dropAll(ctx context.Context) error {
	if err := r.store.DropIndex(ctx, indexName()); err != nil && !errors.Is(err, db.ErrIndexNotFound) {
		return fmt.Errorf("drop index %s: %w", indexName(), err)
	}

	keys, err := r.store.Scan(ctx, rowPrefix()+"*")
	if err != nil {
		return fmt.Errorf("scan listing rows: %w", err)
	}
	for _, key := range keys {
		if err := r.store.Del(ctx, key); err != nil {
			return fmt.Errorf("del %s: %w", key, err)
		}
	}
	return nil
}

// PopulateTable is the populate hook: stream the extracts, embed in
// batches, and write rows. Any malformed record or failed write aborts the
// whole run with the offending record named.
func (r *Repo) PopulateTable(ctx context.Context, schema *domain.Schema, _ bool) error {
	batch := make([]*pendingRow, 0, r.batchSize)
	total := 0

	flush := func() error {
		if len(batch) == 0 {
			return nil
		}
		if err := r.flushBatch(ctx, schema, batch); err != nil {
			return err
		}
		total += len(batch)
		batch = batch[:0]
		return nil
	}

	err := r.source.Stream(ctx, func(rec *ingest.Record) error {
		l, err := listing.FromRecord(rec.Fields)
		if err != nil {
			return fmt.Errorf("listing %q: %w", rec.Number, err)
		}
		l.Image = rec.Image

		batch = append(batch, &pendingRow{number: rec.Number, listing: l})
		if len(batch) >= r.batchSize {
			return flush()
		}
		return nil
	})
	if err != nil {
		return err
	}
	if err := flush(); err != nil {
		return err
	}

	r.logger.Info("Listings populated", zap.Int("rows", total))
	return nil
}

type pendingRow struct {
	number  string
	listing *listing.Listing
}

// flushBatch embeds one batch (a single provider call for text, one local
// inference per image) and pipelines the row writes.
func (r *Repo) flushBatch(ctx context.Context, schema *domain.Schema, batch []*pendingRow) error {
	texts := make([]string, len(batch))
	for i, p := range batch {
		texts[i] = p.listing.Summary
	}

	res, err := r.batchEmbedText(ctx, texts)
	if err != nil {
		return fmt.Errorf("embed summaries (batch starting at listing %q): %w", batch[0].number, err)
	}
	if len(res.Embeddings) != len(batch) {
		return fmt.Errorf("embed summaries: got %d vectors for %d listings", len(res.Embeddings), len(batch))
	}

	textDim, imageDim := vectorDims(schema)

	items := make([]db.HashSetItem, 0, len(batch))
	for i, p := range batch {
		if textDim > 0 && len(res.Embeddings[i]) != textDim {
			return fmt.Errorf("listing %q: text vector dim %d, index expects %d", p.number, len(res.Embeddings[i]), textDim)
		}
		p.listing.TextVector = res.Embeddings[i]

		imgRes, err := r.image.EmbedImage(ctx, p.listing.Image)
		if err != nil {
			return fmt.Errorf("listing %q: embed image: %w", p.number, err)
		}
		if imageDim > 0 && len(imgRes.Embedding) != imageDim {
			return fmt.Errorf("listing %q: image vector dim %d, index expects %d", p.number, len(imgRes.Embedding), imageDim)
		}
		p.listing.ImageVector = imgRes.Embedding

		items = append(items, db.HashSetItem{
			Key:    rowKey(p.listing.ID),
			Fields: p.listing.ToFields(),
		})
	}

	if err := r.store.HSetMulti(ctx, items); err != nil {
		return fmt.Errorf("write batch starting at listing %q: %w", batch[0].number, err)
	}
	return nil
}

func (r *Repo) batchEmbedText(ctx context.Context, texts []string) (domain.BatchEmbeddingResult, error) {
	if be, ok := r.text.(domain.BatchTextEmbedder); ok {
		return be.BatchEmbedText(ctx, texts)
	}
	return domain.BatchTextFallback(ctx, r.text, texts)
}

// TableEmpty implements index.RowCounter via an FT count query.
func (r *Repo) TableEmpty(ctx context.Context, _ string) (bool, error) {
	n, err := r.store.SearchCount(ctx, indexName(), "*")
	if err != nil {
		if errors.Is(err, db.ErrIndexNotFound) {
			return true, nil
		}
		return false, fmt.Errorf("count listings: %w", err)
	}
	return n == 0, nil
}

// TextSearch embeds the query text and ranks listings by summary
// similarity.
func (r *Repo) TextSearch(ctx context.Context, query string, limit int) (domain.Matches, error) {
	res, err := r.text.EmbedText(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}
	return r.knnSearch(ctx, listing.ColTextVector, res.Embedding, limit, nil)
}

// ImageSearch embeds the query image and ranks listings by picture
// similarity.
func (r *Repo) ImageSearch(ctx context.Context, img []byte, limit int) (domain.Matches, error) {
	res, err := r.image.EmbedImage(ctx, img)
	if err != nil {
		return nil, fmt.Errorf("embed query image: %w", err)
	}
	return r.knnSearch(ctx, listing.ColImageVector, res.Embedding, limit, nil)
}

// TextThenImageSearch runs the two-stage combined search: a text KNN
// selects a candidate set, then an image KNN restricted to those ids
// orders the final result. A listing must appear in the text stage to be
// eligible at all.
func (r *Repo) TextThenImageSearch(ctx context.Context, query string, img []byte, limit int) (domain.Matches, error) {
	candidates := r.candidateLimit
	if candidates <= 0 {
		candidates = 4 * limit
		if candidates < 10 {
			candidates = 10
		}
	}

	textMatches, err := r.TextSearch(ctx, query, candidates)
	if err != nil {
		return nil, err
	}
	if len(textMatches) == 0 {
		return nil, nil
	}

	res, err := r.image.EmbedImage(ctx, img)
	if err != nil {
		return nil, fmt.Errorf("embed query image: %w", err)
	}

	matches, err := r.knnSearch(ctx, listing.ColImageVector, res.Embedding, limit, textMatches.IDs())
	if err != nil {
		return nil, err
	}
	if len(matches) > limit {
		matches = matches[:limit]
	}
	return matches, nil
}

// GetByID returns the stored row for one listing.
func (r *Repo) GetByID(ctx context.Context, id string) (domain.Match, error) {
	fields, err := r.store.HGetAll(ctx, rowKey(id))
	if err != nil {
		return domain.Match{}, fmt.Errorf("hgetall listing %s: %w", id, err)
	}
	if len(fields) == 0 {
		return domain.Match{}, domain.ErrNotFound
	}
	return domain.Match{ID: id, Fields: fields}, nil
}

func (r *Repo) knnSearch(ctx context.Context, vectorField string, vector []float32, k int, idFilter []string) (domain.Matches, error) {
	q := &db.KNNQuery{
		IndexName:    indexName(),
		VectorField:  vectorField,
		Vector:       vector,
		K:            k,
		IDFilter:     idFilter,
		IDField:      listing.ColID,
		ReturnFields: r.schema.NonVectorColumns(),
	}

	sr, err := r.store.SearchKNN(ctx, q)
	if err != nil {
		if errors.Is(err, db.ErrIndexNotFound) {
			return nil, fmt.Errorf("%w: listings index missing, run init first: %v", domain.ErrBackendUnavailable, err)
		}
		return nil, fmt.Errorf("knn search %s: %w", vectorField, err)
	}

	return parseMatches(sr), nil
}

// parseMatches converts store entries into domain matches, closest first
// with equal scores broken by id ascending so results are reproducible.
func parseMatches(sr *db.SearchResult) domain.Matches {
	if sr == nil || len(sr.Entries) == 0 {
		return nil
	}

	matches := make(domain.Matches, 0, len(sr.Entries))
	for _, entry := range sr.Entries {
		id := strings.TrimPrefix(entry.Key, rowPrefix())
		matches = append(matches, domain.Match{
			ID:     id,
			Score:  entry.Score,
			Fields: entry.Fields,
		})
	}

	sort.SliceStable(matches, func(i, j int) bool {
		if matches[i].Score == matches[j].Score {
			return matches[i].ID < matches[j].ID
		}
		return matches[i].Score > matches[j].Score
	})
	return matches
}

// Redis key patterns: homevec:listings:{id}, homevec:listings:idx

func rowKey(id string) string {
	return rowPrefix() + id
}

func rowPrefix() string {
	return domain.KeyPrefix + listing.Table + ":"
}

func indexName() string {
	return domain.KeyPrefix + listing.Table + ":idx"
}
