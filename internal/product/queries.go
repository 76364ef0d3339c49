package product

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// DBTX is the subset of pgx methods the queries need.
type DBTX interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Queries executes product SQL against a DBTX.
type Queries struct {
	db DBTX
}

// NewQueries creates a Queries bound to db.
func NewQueries(db DBTX) *Queries {
	return &Queries{db: db}
}

// Substring containment runs in both directions, case-insensitively: a
// product matches when a tag appears inside a cited title ("saw" tag,
// "Table Saw Basics" title) or a cited title appears inside a tag
// ("Table Saw Safety" tag, "table saw" title). DISTINCT collapses products
// matching through multiple tags or titles.
const matchProductsSQL = `
SELECT DISTINCT p.id, p.title, p.tags, p.link
FROM products p
CROSS JOIN unnest(p.tags) AS tag
CROSS JOIN unnest($1::text[]) AS cited(title)
WHERE cited.title ILIKE '%' || tag || '%'
   OR tag ILIKE '%' || cited.title || '%'
ORDER BY p.id`

// MatchProducts returns every product with a tag related to one of the given
// video titles by substring containment in either direction.
func (q *Queries) MatchProducts(ctx context.Context, titles []string) ([]Product, error) {
	rows, err := q.db.Query(ctx, matchProductsSQL, titles)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var products []Product
	for rows.Next() {
		var p Product
		if err := rows.Scan(&p.ID, &p.Title, &p.Tags, &p.Link); err != nil {
			return nil, err
		}
		products = append(products, p)
	}
	return products, rows.Err()
}

const insertProductSQL = `
INSERT INTO products (title, tags, link)
VALUES ($1, $2, $3)
RETURNING id`

// InsertProduct adds a catalog entry and returns its ID.
func (q *Queries) InsertProduct(ctx context.Context, p Product) (int64, error) {
	var id int64
	err := q.db.QueryRow(ctx, insertProductSQL, p.Title, p.Tags, p.Link).Scan(&id)
	return id, err
}
