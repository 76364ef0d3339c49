package chat

// State identifies one stage of the answer pipeline. A request moves through
// the states in order; non-relevant questions branch to the short-circuit
// response and skip retrieval entirely.
type State int

const (
	// StateClassifying labels the question and prepares the rewritten query.
	StateClassifying State = iota
	// StateShortCircuitResponding answers a non-relevant question directly.
	StateShortCircuitResponding
	// StateRewriting settles the retrieval query for a relevant question.
	StateRewriting
	// StateEmbedding converts the query to a vector.
	StateEmbedding
	// StateSearching runs the vector search.
	StateSearching
	// StateGenerating streams the grounded answer.
	StateGenerating
	// StateExtractingMedia pulls video references out of the answer text.
	StateExtractingMedia
	// StateMatchingProducts looks up products related to the cited videos.
	StateMatchingProducts
	// StateDone is the terminal success state.
	StateDone
	// StateFailed is the terminal failure state.
	StateFailed
)

// String returns the state name for logging.
func (s State) String() string {
	switch s {
	case StateClassifying:
		return "classifying"
	case StateShortCircuitResponding:
		return "short_circuit_responding"
	case StateRewriting:
		return "rewriting"
	case StateEmbedding:
		return "embedding"
	case StateSearching:
		return "searching"
	case StateGenerating:
		return "generating"
	case StateExtractingMedia:
		return "extracting_media"
	case StateMatchingProducts:
		return "matching_products"
	case StateDone:
		return "done"
	case StateFailed:
		return "failed"
	default:
		return "unknown"
	}
}
