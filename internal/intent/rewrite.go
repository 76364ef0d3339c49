package intent

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/firebase/genkit/go/ai"
	"github.com/firebase/genkit/go/genkit"
)

// rewriteTimeout bounds the rewrite call; the fallback makes a slow rewrite
// strictly worse than no rewrite.
const rewriteTimeout = 10 * time.Second

const rewriteSystemPrompt = `You expand terse woodworking questions into self-contained search queries.
Resolve pronouns and vague references ("it", "that cut") using the conversation,
and name the specific tools, materials, or techniques involved.
Return only the expanded query text. Do not answer the question.`

// Rewriter expands questions into retrieval-friendly queries.
type Rewriter struct {
	g         *genkit.Genkit
	modelName string
	logger    *slog.Logger
}

// NewRewriter creates a Rewriter bound to the given model.
func NewRewriter(g *genkit.Genkit, modelName string, logger *slog.Logger) *Rewriter {
	if logger == nil {
		logger = slog.Default()
	}
	return &Rewriter{g: g, modelName: modelName, logger: logger}
}

// Rewrite returns a search query derived from the question.
//
// Rewrite never fails the request: on any error or empty model output it
// returns the original question unchanged, so the result is always non-empty
// for non-empty input.
func (r *Rewriter) Rewrite(ctx context.Context, question string, history []*ai.Message) string {
	if strings.TrimSpace(question) == "" {
		return question
	}

	ctx, cancel := context.WithTimeout(ctx, rewriteTimeout)
	defer cancel()

	resp, err := genkit.Generate(ctx, r.g,
		ai.WithSystem(rewriteSystemPrompt),
		ai.WithPrompt(classifyInput(question, history)),
		ai.WithModelName(r.modelName),
	)
	if err != nil {
		r.logger.Debug("query rewrite failed, using original question", "error", err)
		return question
	}

	rewritten := strings.TrimSpace(resp.Text())
	if rewritten == "" {
		return question
	}

	r.logger.Debug("rewrote query",
		"original_length", len(question),
		"rewritten_length", len(rewritten),
	)
	return rewritten
}
