package listings

import (
	"github.com/amiralserge/homevec/internal/domain"
	"github.com/amiralserge/homevec/internal/domain/listing"
)

// RetrieveDocuments projects matches onto documents: content comes from
// textField (summary by default), metadata from the requested columns
// (all non-vector schema fields by default). The primary key is always
// present in metadata whether requested or not, input order is preserved,
// and at most limit documents are returned. limit <= 0 means no cap.
func (r *Repo) RetrieveDocuments(matches domain.Matches, columns []string, textField string, limit int) []domain.Document {
	if textField == "" {
		textField = listing.ColSummary
	}
	if len(columns) == 0 {
		columns = r.schema.NonVectorColumns()
	}
	if limit <= 0 || limit > len(matches) {
		limit = len(matches)
	}

	docs := make([]domain.Document, 0, limit)
	for _, m := range matches[:limit] {
		metadata := make(map[string]string, len(columns)+1)
		for _, col := range columns {
			if v, ok := m.Fields[col]; ok {
				metadata[col] = v
			}
		}
		metadata[r.schema.PrimaryKey] = m.ID

		docs = append(docs, domain.Document{
			ID:       m.ID,
			Content:  m.Fields[textField],
			Metadata: metadata,
		})
	}
	return docs
}
