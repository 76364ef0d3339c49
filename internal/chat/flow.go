package chat

import (
	"context"
	"fmt"
	"sync"

	"github.com/firebase/genkit/go/ai"
	"github.com/firebase/genkit/go/core"
	"github.com/firebase/genkit/go/genkit"

	"github.com/MohamedRasheqA/bents-v3/internal/product"
	"github.com/MohamedRasheqA/bents-v3/internal/video"
)

// Input defines the request payload for the chat flow.
type Input struct {
	Question string        `json:"question"`
	History  []HistoryTurn `json:"history,omitempty"`
}

// HistoryTurn is one prior question/answer pair.
type HistoryTurn struct {
	Question string `json:"question"`
	Answer   string `json:"answer"`
}

// Output defines the response payload from the chat flow.
type Output struct {
	Label           string                   `json:"label"`
	Answer          string                   `json:"answer"`
	VideoReferences map[int]video.Reference  `json:"videoReferences"`
	RelatedProducts []product.Product        `json:"relatedProducts"`
}

// StreamChunk is the streaming output type for the chat flow.
type StreamChunk struct {
	Text string `json:"text"`
}

// FlowName is the registered name of the chat flow in Genkit.
const FlowName = "bents/chat"

// Flow is the type alias for the chat streaming flow.
// Exported for use in the api package with genkit.Handler().
type Flow = core.Flow[Input, Output, StreamChunk]

// Package-level singleton for Flow to prevent panic on re-registration.
var (
	flowOnce sync.Once
	flow     *Flow
)

// NewFlow returns the chat flow singleton, initializing it on first call.
// Subsequent calls return the existing flow (parameters are ignored).
// This is safe because genkit.DefineStreamingFlow panics on re-registration.
func NewFlow(g *genkit.Genkit, engine *Engine) *Flow {
	flowOnce.Do(func() {
		flow = engine.DefineFlow(g)
	})
	return flow
}

// ResetFlowForTesting resets the flow singleton for testing.
// WARNING: Only use in tests. Not safe for concurrent use.
func ResetFlowForTesting() {
	flowOnce = sync.Once{}
	flow = nil
}

// DefineFlow defines the Genkit streaming flow wrapping the engine.
//
// IMPORTANT: Use NewFlow() instead of calling DefineFlow() directly.
// DefineFlow registers a global flow; calling it twice causes panic.
func (e *Engine) DefineFlow(g *genkit.Genkit) *Flow {
	return genkit.DefineStreamingFlow(g, FlowName,
		func(ctx context.Context, input Input, streamCb func(context.Context, StreamChunk) error) (Output, error) {
			var cb ChunkCallback
			if streamCb != nil {
				cb = func(ctx context.Context, text string) error {
					return streamCb(ctx, StreamChunk{Text: text})
				}
			}

			resp, err := e.AskStream(ctx, Request{
				Question: input.Question,
				History:  HistoryMessages(input.History),
			}, cb)
			if err != nil {
				return Output{}, fmt.Errorf("chat flow: %w", err)
			}

			return OutputFromResponse(resp), nil
		},
	)
}

// OutputFromResponse converts an engine response to the wire output shape.
// VideoReferences and RelatedProducts are never nil so an answer without
// citations serializes as {} and [].
func OutputFromResponse(resp *Response) Output {
	products := resp.RelatedProducts
	if products == nil {
		products = []product.Product{}
	}
	return Output{
		Label:           resp.Label.String(),
		Answer:          resp.AnswerText,
		VideoReferences: referenceMap(resp.VideoReferences),
		RelatedProducts: products,
	}
}

// HistoryMessages converts wire-format history turns to model messages.
func HistoryMessages(turns []HistoryTurn) []*ai.Message {
	if len(turns) == 0 {
		return nil
	}
	msgs := make([]*ai.Message, 0, len(turns)*2)
	for _, turn := range turns {
		msgs = append(msgs,
			ai.NewUserMessage(ai.NewTextPart(turn.Question)),
			ai.NewModelMessage(ai.NewTextPart(turn.Answer)),
		)
	}
	return msgs
}

// referenceMap keys references by ordinal for the response shape.
// Never nil, so an answer without citations serializes as {}.
func referenceMap(refs []video.Reference) map[int]video.Reference {
	m := make(map[int]video.Reference, len(refs))
	for _, ref := range refs {
		m[ref.Ordinal] = ref
	}
	return m
}
