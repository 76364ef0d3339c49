package knowledge

import "errors"

// Sentinel errors for knowledge operations. Callers should check them with
// errors.Is().
var (
	// ErrEmptyEmbedding indicates the embedder returned no vector for the
	// input text.
	ErrEmptyEmbedding = errors.New("empty embedding returned")

	// ErrEmptyContent indicates a chunk with no content was passed to Add.
	ErrEmptyContent = errors.New("chunk content is empty")
)
