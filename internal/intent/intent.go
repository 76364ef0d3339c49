// Package intent labels incoming questions and expands them into
// domain-specific search queries.
//
// The classifier routes each question into one of four categories; everything
// except Relevant short-circuits the retrieval pipeline. The rewriter expands
// terse or ambiguous woodworking questions using conversational context to
// improve retrieval recall.
package intent

import "strings"

// Label is the relevance category assigned to a question.
// Derived per-request; never persisted.
type Label string

const (
	// LabelGreeting marks small talk ("hi", "thanks").
	LabelGreeting Label = "GREETING"

	// LabelRelevant marks questions answerable from the transcript corpus.
	LabelRelevant Label = "RELEVANT"

	// LabelInappropriate marks abusive or unsafe input.
	LabelInappropriate Label = "INAPPROPRIATE"

	// LabelNotRelevant marks off-topic questions. It is also the fail-closed
	// default: downstream retrieval is a larger cost than a terse refusal.
	LabelNotRelevant Label = "NOT_RELEVANT"
)

// ParseLabel maps raw model output to a Label.
// The text is trimmed and uppercased before matching; anything unrecognized
// collapses to LabelNotRelevant.
func ParseLabel(s string) Label {
	switch Label(strings.ToUpper(strings.TrimSpace(s))) {
	case LabelGreeting:
		return LabelGreeting
	case LabelRelevant:
		return LabelRelevant
	case LabelInappropriate:
		return LabelInappropriate
	case LabelNotRelevant:
		return LabelNotRelevant
	default:
		return LabelNotRelevant
	}
}

// String returns the wire form of the label.
func (l Label) String() string { return string(l) }
