package db

// KNNQuery is the input for vector similarity search.
type KNNQuery struct {
	IndexName    string
	VectorField  string   // which vector column to search
	Vector       []float32
	K            int
	IDFilter     []string // restrict candidates to these primary keys before ranking
	IDField      string   // tag field holding the primary key (required with IDFilter)
	ReturnFields []string
}

// SearchResult is the output of a search operation.
type SearchResult struct {
	Total   int
	Entries []SearchEntry
}

// SearchEntry is a single document hit from a search.
type SearchEntry struct {
	Key    string
	Score  float64
	Fields map[string]string
}
