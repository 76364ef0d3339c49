package intent

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/firebase/genkit/go/ai"
	"github.com/firebase/genkit/go/genkit"

	"github.com/MohamedRasheqA/bents-v3/internal/session"
)

// historyTurns bounds how many recent (question, answer) turns are included
// in the classification request to bound prompt size.
const historyTurns = 5

const classifySystemPrompt = `You are a relevance classifier for a woodworking assistant.
Classify the user's latest question into exactly one of these categories:

GREETING - a greeting, pleasantry, or thanks with no substantive question
RELEVANT - a question about woodworking: tools, techniques, materials, shop setup, or safety
INAPPROPRIATE - abusive, hateful, or unsafe content
NOT_RELEVANT - any other topic

Respond with exactly one category token and nothing else.`

// Classifier labels questions with a single small model call.
type Classifier struct {
	g         *genkit.Genkit
	modelName string
	logger    *slog.Logger
}

// NewClassifier creates a Classifier bound to the given model.
func NewClassifier(g *genkit.Genkit, modelName string, logger *slog.Logger) *Classifier {
	if logger == nil {
		logger = slog.Default()
	}
	return &Classifier{g: g, modelName: modelName, logger: logger}
}

// Classify labels the question using the recent conversation as context.
//
// An empty or whitespace-only question is NOT_RELEVANT without a model call.
// Unrecognized model output collapses to NOT_RELEVANT (fail closed). A model
// error propagates to the caller; there is no local retry here.
func (c *Classifier) Classify(ctx context.Context, question string, history []*ai.Message) (Label, error) {
	if strings.TrimSpace(question) == "" {
		return LabelNotRelevant, nil
	}

	resp, err := genkit.Generate(ctx, c.g,
		ai.WithSystem(classifySystemPrompt),
		ai.WithPrompt(classifyInput(question, history)),
		ai.WithModelName(c.modelName),
	)
	if err != nil {
		return LabelNotRelevant, fmt.Errorf("classifying question: %w", err)
	}

	label := ParseLabel(resp.Text())
	c.logger.Debug("classified question",
		"label", label,
		"raw", strings.TrimSpace(resp.Text()),
		"question_length", len(question),
	)
	return label, nil
}

// classifyInput renders the bounded history window and the question into one
// user turn. Keeping history inline lets the single-token instruction stay in
// the system role.
func classifyInput(question string, history []*ai.Message) string {
	var sb strings.Builder
	window := session.RecentWindow(history, historyTurns)
	if len(window) > 0 {
		sb.WriteString("Recent conversation:\n")
		for _, msg := range window {
			role := "User"
			if msg.Role == ai.RoleModel {
				role = "Assistant"
			}
			sb.WriteString(role)
			sb.WriteString(": ")
			sb.WriteString(msg.Text())
			sb.WriteString("\n")
		}
		sb.WriteString("\n")
	}
	sb.WriteString("Latest question: ")
	sb.WriteString(question)
	return sb.String()
}
