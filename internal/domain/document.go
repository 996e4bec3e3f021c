package domain

// Document is a query-shaped projection of a stored row: one designated
// content field plus the remaining projected fields as metadata. Documents
// are produced fresh per query and never persisted.
type Document struct {
	ID       string
	Content  string
	Metadata map[string]string
}

// Match is a single row hit from a similarity search or point lookup,
// carrying the raw stored fields before projection.
type Match struct {
	ID     string
	Score  float64
	Fields map[string]string
}

// Matches is an ordered result set, closest first.
type Matches []Match

// IDs returns the matched row identifiers in result order.
func (m Matches) IDs() []string {
	ids := make([]string, len(m))
	for i, match := range m {
		ids[i] = match.ID
	}
	return ids
}
