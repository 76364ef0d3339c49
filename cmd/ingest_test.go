package cmd

import (
	"strings"
	"testing"
)

func TestParseChunks(t *testing.T) {
	t.Parallel()

	input := `
{"chunk_id": "v1-01", "title": "Table Saw Basics", "url": "https://example.com/v/1", "content": "blade height"}

{"chunk_id": "v1-02", "title": "Table Saw Basics", "url": "https://example.com/v/1", "content": "fence alignment"}
`
	chunks, err := parseChunks(strings.NewReader(input))
	if err != nil {
		t.Fatalf("parseChunks() error = %v", err)
	}

	if len(chunks) != 2 {
		t.Fatalf("got %d chunks, want 2", len(chunks))
	}
	if chunks[0].ChunkID != "v1-01" || chunks[0].Content != "blade height" {
		t.Errorf("chunk[0] = %+v", chunks[0])
	}
	if chunks[1].ChunkID != "v1-02" {
		t.Errorf("chunk[1] = %+v", chunks[1])
	}
}

func TestParseChunksErrors(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name        string
		input       string
		errContains string
	}{
		{"malformed line", `{"chunk_id": "v1-01"` + "\n", "line 1"},
		{"missing chunk id", `{"title": "no id"}`, "missing chunk_id"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			_, err := parseChunks(strings.NewReader(tt.input))
			if err == nil {
				t.Fatal("parseChunks() succeeded, want error")
			}
			if !strings.Contains(err.Error(), tt.errContains) {
				t.Errorf("error = %q, want substring %q", err, tt.errContains)
			}
		})
	}
}

func TestParseProducts(t *testing.T) {
	t.Parallel()

	input := `[
		{"title": "Featherboard Set", "tags": ["table saw", "featherboard"], "link": "https://example.com/p/7"},
		{"title": "Dado Stack", "tags": ["dado"], "link": "https://example.com/p/8"}
	]`
	products, err := parseProducts(strings.NewReader(input))
	if err != nil {
		t.Fatalf("parseProducts() error = %v", err)
	}

	if len(products) != 2 {
		t.Fatalf("got %d products, want 2", len(products))
	}
	if products[0].Title != "Featherboard Set" || len(products[0].Tags) != 2 {
		t.Errorf("product[0] = %+v", products[0])
	}
}

func TestParseProductsMissingTitle(t *testing.T) {
	t.Parallel()

	_, err := parseProducts(strings.NewReader(`[{"tags": ["saw"], "link": "https://example.com"}]`))
	if err == nil || !strings.Contains(err.Error(), "missing title") {
		t.Errorf("error = %v, want missing title", err)
	}
}

func TestVersionCommand(t *testing.T) {
	var out strings.Builder
	versionCmd.SetOut(&out)
	versionCmd.Run(versionCmd, nil)

	if !strings.Contains(out.String(), "Bents") {
		t.Errorf("output = %q", out.String())
	}
}
