package knowledge

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/pgvector/pgvector-go"
)

// DBTX is the subset of pgx methods the queries need.
type DBTX interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Queries executes transcript SQL against a DBTX.
type Queries struct {
	db DBTX
}

// NewQueries creates a Queries bound to db.
func NewQueries(db DBTX) *Queries {
	return &Queries{db: db}
}

const upsertChunkSQL = `
INSERT INTO transcripts (chunk_id, title, url, content, embedding)
VALUES ($1, $2, $3, $4, $5)
ON CONFLICT (chunk_id) DO UPDATE SET
    title     = EXCLUDED.title,
    url       = EXCLUDED.url,
    content   = EXCLUDED.content,
    embedding = EXCLUDED.embedding`

// UpsertChunk inserts or replaces a transcript chunk keyed by chunk_id.
func (q *Queries) UpsertChunk(ctx context.Context, chunk Chunk, embedding pgvector.Vector) error {
	_, err := q.db.Exec(ctx, upsertChunkSQL,
		chunk.ChunkID, chunk.Title, chunk.URL, chunk.Content, embedding)
	return err
}

// Rows with NULL embeddings are excluded up front; they carry no position in
// the vector space. The id tiebreak keeps equal-distance orderings stable.
const searchChunksSQL = `
SELECT id, chunk_id, title, url, content, 1 - (embedding <=> $1) AS similarity
FROM transcripts
WHERE embedding IS NOT NULL
ORDER BY embedding <=> $1, id
LIMIT $2`

// SearchChunks returns the topK chunks nearest to embedding by cosine
// distance.
func (q *Queries) SearchChunks(ctx context.Context, embedding pgvector.Vector, topK int32) ([]Result, error) {
	rows, err := q.db.Query(ctx, searchChunksSQL, embedding, topK)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var results []Result
	for rows.Next() {
		var r Result
		if err := rows.Scan(&r.ID, &r.ChunkID, &r.Title, &r.URL, &r.Content, &r.Similarity); err != nil {
			return nil, err
		}
		results = append(results, r)
	}
	return results, rows.Err()
}

const countChunksSQL = `
SELECT COUNT(*)
FROM transcripts`

// CountChunks returns the total number of stored chunks.
func (q *Queries) CountChunks(ctx context.Context) (int64, error) {
	var count int64
	err := q.db.QueryRow(ctx, countChunksSQL).Scan(&count)
	return count, err
}
