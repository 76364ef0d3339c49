// Package product matches catalog products to the videos cited in an
// answer. A product is related to an answer when one of its tags and a
// cited video title contain each other as a case-insensitive substring,
// in either direction: a "saw" tag matches the title "Table Saw Basics"
// and a "Table Saw Safety" tag matches the title "table saw".
package product

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"
)

// Product is one catalog entry. Tags are the join key to video titles.
type Product struct {
	ID    int64    `json:"id"`
	Title string   `json:"title"`
	Tags  []string `json:"tags"`
	Link  string   `json:"link"`
}

// Querier defines the database operations Matcher needs.
type Querier interface {
	MatchProducts(ctx context.Context, titles []string) ([]Product, error)
}

// Matcher finds products related to a set of video titles.
//
// Matcher is safe for concurrent use by multiple goroutines.
type Matcher struct {
	querier Querier
	logger  *slog.Logger
}

// NewMatcher creates a Matcher.
func NewMatcher(querier Querier, logger *slog.Logger) *Matcher {
	if logger == nil {
		logger = slog.Default()
	}
	return &Matcher{
		querier: querier,
		logger:  logger,
	}
}

// Match returns the products related to any of the given video titles by
// case-insensitive substring containment in either direction. Duplicate and
// empty titles are dropped before the query and each product appears at most
// once. An empty title set returns nil without touching the database.
func (m *Matcher) Match(ctx context.Context, titles []string) ([]Product, error) {
	cleaned := normalizeTitles(titles)
	if len(cleaned) == 0 {
		return nil, nil
	}

	products, err := m.querier.MatchProducts(ctx, cleaned)
	if err != nil {
		return nil, fmt.Errorf("matching products: %w", err)
	}

	m.logger.Debug("matched products", "titles", len(cleaned), "products", len(products))
	return products, nil
}

// normalizeTitles trims, drops empties, and deduplicates case-insensitively
// so one cited video cannot match twice.
func normalizeTitles(titles []string) []string {
	seen := make(map[string]struct{}, len(titles))
	cleaned := make([]string, 0, len(titles))
	for _, title := range titles {
		title = strings.TrimSpace(title)
		if title == "" {
			continue
		}
		key := strings.ToLower(title)
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		cleaned = append(cleaned, title)
	}
	sort.Strings(cleaned)
	return cleaned
}
