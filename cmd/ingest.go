package cmd

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/MohamedRasheqA/bents-v3/internal/app"
	"github.com/MohamedRasheqA/bents-v3/internal/config"
	"github.com/MohamedRasheqA/bents-v3/internal/knowledge"
	"github.com/MohamedRasheqA/bents-v3/internal/log"
	"github.com/MohamedRasheqA/bents-v3/internal/product"
)

var (
	ingestTranscripts string
	ingestProducts    string
)

var ingestCmd = &cobra.Command{
	Use:   "ingest",
	Short: "Load transcript chunks and products into the database",
	Long: `Load data into the assistant's knowledge base.

Transcript chunks come from a JSON Lines file, one chunk per line:

  {"chunk_id": "v1-03", "title": "Table Saw Basics", "url": "https://...", "content": "..."}

Each chunk is embedded and upserted keyed by chunk_id, so re-running the
same file is safe. Products come from a JSON array file:

  [{"title": "Featherboard Set", "tags": ["table saw", "featherboard"], "link": "https://..."}]`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runIngest()
	},
}

func init() {
	ingestCmd.Flags().StringVar(&ingestTranscripts, "transcripts", "", "JSONL file of transcript chunks")
	ingestCmd.Flags().StringVar(&ingestProducts, "products", "", "JSON file of catalog products")
	rootCmd.AddCommand(ingestCmd)
}

func runIngest() error {
	if ingestTranscripts == "" && ingestProducts == "" {
		return fmt.Errorf("nothing to ingest: pass --transcripts and/or --products")
	}

	logger := newLogger()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	ctx := context.Background()
	a, err := app.Setup(ctx, cfg, logger)
	if err != nil {
		return fmt.Errorf("initializing application: %w", err)
	}
	defer func() {
		if closeErr := a.Close(); closeErr != nil {
			logger.Warn("shutdown error", "error", closeErr)
		}
	}()

	if ingestTranscripts != "" {
		if err := ingestChunkFile(ctx, a, ingestTranscripts, logger); err != nil {
			return err
		}
	}
	if ingestProducts != "" {
		if err := ingestProductFile(ctx, a, ingestProducts, logger); err != nil {
			return err
		}
	}
	return nil
}

func ingestChunkFile(ctx context.Context, a *app.App, path string, logger log.Logger) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("opening transcripts file: %w", err)
	}
	defer f.Close()

	chunks, err := parseChunks(f)
	if err != nil {
		return fmt.Errorf("parsing %s: %w", path, err)
	}

	for i, chunk := range chunks {
		if err := a.Knowledge.Add(ctx, chunk); err != nil {
			return fmt.Errorf("chunk %d of %d: %w", i+1, len(chunks), err)
		}
	}

	total, err := a.Knowledge.Count(ctx)
	if err != nil {
		return fmt.Errorf("counting chunks: %w", err)
	}
	logger.Info("transcripts ingested", "file", path, "added", len(chunks), "total", total)
	return nil
}

func ingestProductFile(ctx context.Context, a *app.App, path string, logger log.Logger) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("opening products file: %w", err)
	}
	defer f.Close()

	products, err := parseProducts(f)
	if err != nil {
		return fmt.Errorf("parsing %s: %w", path, err)
	}

	queries := product.NewQueries(a.Pool)
	for i, p := range products {
		if _, err := queries.InsertProduct(ctx, p); err != nil {
			return fmt.Errorf("product %d of %d (%q): %w", i+1, len(products), p.Title, err)
		}
	}

	logger.Info("products ingested", "file", path, "added", len(products))
	return nil
}

// parseChunks reads JSON Lines transcript chunks. Blank lines are skipped;
// a malformed line fails the whole parse with its line number.
func parseChunks(r io.Reader) ([]knowledge.Chunk, error) {
	var chunks []knowledge.Chunk
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)

	line := 0
	for scanner.Scan() {
		line++
		text := strings.TrimSpace(scanner.Text())
		if text == "" {
			continue
		}

		var chunk knowledge.Chunk
		if err := json.Unmarshal([]byte(text), &chunk); err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		if chunk.ChunkID == "" {
			return nil, fmt.Errorf("line %d: missing chunk_id", line)
		}
		chunks = append(chunks, chunk)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("reading input: %w", err)
	}
	return chunks, nil
}

// parseProducts reads a JSON array of catalog products.
func parseProducts(r io.Reader) ([]product.Product, error) {
	var products []product.Product
	if err := json.NewDecoder(r).Decode(&products); err != nil {
		return nil, err
	}
	for i, p := range products {
		if strings.TrimSpace(p.Title) == "" {
			return nil, fmt.Errorf("product %d: missing title", i+1)
		}
	}
	return products, nil
}
