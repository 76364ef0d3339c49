// Package knowledge stores video transcript chunks with pgvector embeddings
// and serves cosine-similarity search over them. It is the retrieval side of
// the answer pipeline: a question is embedded once and the nearest chunks
// come back with their source video title and URL attached.
package knowledge

import "time"

// Chunk is a transcript fragment from one source video. The JSON tags match
// the ingest file format.
type Chunk struct {
	ID        int64     `json:"-"`
	ChunkID   string    `json:"chunk_id"`
	Title     string    `json:"title"`
	URL       string    `json:"url"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"-"`
}

// Result pairs a chunk with its similarity to the query embedding.
// Similarity is 1 - cosine distance, higher is closer.
type Result struct {
	Chunk
	Similarity float64
}

// Default search parameters.
const (
	defaultTopK  int32 = 5
	embedTimeout       = 5 * time.Second
)

// searchConfig holds search parameters, modified by SearchOption.
type searchConfig struct {
	topK int32
}

// SearchOption customizes a search.
type SearchOption func(*searchConfig)

// WithTopK sets the number of results to return. Values below 1 fall back to
// the default.
func WithTopK(k int) SearchOption {
	return func(cfg *searchConfig) {
		if k >= 1 {
			cfg.topK = int32(k)
		}
	}
}

func buildSearchConfig(opts []SearchOption) searchConfig {
	cfg := searchConfig{topK: defaultTopK}
	for _, opt := range opts {
		opt(&cfg)
	}
	return cfg
}
