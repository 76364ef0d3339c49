package chat

import "errors"

// Sentinel errors for pipeline stages. Every failure leaving the engine is
// wrapped in ErrRequestFailed together with the stage sentinel, so callers
// can branch on errors.Is() at either granularity.
var (
	// ErrRequestFailed is the uniform boundary error for a failed request.
	ErrRequestFailed = errors.New("request failed")

	// ErrClassification indicates the relevance classifier call failed.
	ErrClassification = errors.New("classification failed")

	// ErrEmbedding indicates the query could not be embedded.
	ErrEmbedding = errors.New("embedding failed")

	// ErrRetrieval indicates the vector search failed.
	ErrRetrieval = errors.New("retrieval failed")

	// ErrGenerationNoResponse indicates the generator finished with no text.
	ErrGenerationNoResponse = errors.New("generation produced no response")

	// ErrGenerationCutOff indicates the generator stopped before a natural
	// finish, so the streamed text is incomplete.
	ErrGenerationCutOff = errors.New("generation cut off")
)
