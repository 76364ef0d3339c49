package knowledge

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/firebase/genkit/go/ai"
	"github.com/pgvector/pgvector-go"
)

// Querier defines the database operations Store needs. The interface lives
// with the consumer so tests can substitute a mock.
type Querier interface {
	UpsertChunk(ctx context.Context, chunk Chunk, embedding pgvector.Vector) error
	SearchChunks(ctx context.Context, embedding pgvector.Vector, topK int32) ([]Result, error)
	CountChunks(ctx context.Context) (int64, error)
}

// Store manages transcript chunks with vector search. It pairs an embedder
// with PostgreSQL + pgvector.
//
// Store is safe for concurrent use by multiple goroutines.
type Store struct {
	queries  Querier
	embedder ai.Embedder
	logger   *slog.Logger
}

// New creates a Store.
func New(querier Querier, embedder ai.Embedder, logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.Default()
	}
	return &Store{
		queries:  querier,
		embedder: embedder,
		logger:   logger,
	}
}

// Embed converts text into a single embedding vector. The call is bounded by
// a short timeout so a stalled provider cannot hold the pipeline.
func (s *Store) Embed(ctx context.Context, text string) ([]float32, error) {
	embedCtx, cancel := context.WithTimeout(ctx, embedTimeout)
	defer cancel()

	resp, err := s.embedder.Embed(embedCtx, &ai.EmbedRequest{
		Input: []*ai.Document{
			{Content: []*ai.Part{ai.NewTextPart(text)}},
		},
	})
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return nil, fmt.Errorf("embedding timeout: %w", err)
		}
		return nil, fmt.Errorf("generating embedding: %w", err)
	}

	if len(resp.Embeddings) == 0 || len(resp.Embeddings[0].Embedding) == 0 {
		return nil, ErrEmptyEmbedding
	}
	return resp.Embeddings[0].Embedding, nil
}

// SearchVector returns the chunks nearest to a precomputed embedding,
// ordered by descending similarity.
func (s *Store) SearchVector(ctx context.Context, embedding []float32, opts ...SearchOption) ([]Result, error) {
	cfg := buildSearchConfig(opts)

	results, err := s.queries.SearchChunks(ctx, pgvector.NewVector(embedding), cfg.topK)
	if err != nil {
		return nil, fmt.Errorf("vector search: %w", err)
	}

	s.logger.Debug("vector search", "top_k", cfg.topK, "results", len(results))
	return results, nil
}

// Search embeds the query text and runs a vector search in one call.
func (s *Store) Search(ctx context.Context, query string, opts ...SearchOption) ([]Result, error) {
	embedding, err := s.Embed(ctx, query)
	if err != nil {
		return nil, err
	}
	return s.SearchVector(ctx, embedding, opts...)
}

// Add embeds a chunk's content and upserts it keyed by ChunkID.
func (s *Store) Add(ctx context.Context, chunk Chunk) error {
	if chunk.Content == "" {
		return fmt.Errorf("chunk %q: %w", chunk.ChunkID, ErrEmptyContent)
	}

	embedding, err := s.Embed(ctx, chunk.Content)
	if err != nil {
		return fmt.Errorf("embedding chunk %q: %w", chunk.ChunkID, err)
	}

	if err := s.queries.UpsertChunk(ctx, chunk, pgvector.NewVector(embedding)); err != nil {
		return fmt.Errorf("upserting chunk %q: %w", chunk.ChunkID, err)
	}

	s.logger.Debug("added chunk", "chunk_id", chunk.ChunkID, "content_length", len(chunk.Content))
	return nil
}

// Count returns the number of stored chunks.
func (s *Store) Count(ctx context.Context) (int64, error) {
	count, err := s.queries.CountChunks(ctx)
	if err != nil {
		return 0, fmt.Errorf("counting chunks: %w", err)
	}
	return count, nil
}
