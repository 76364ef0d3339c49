// Package testutil provides shared testing utilities: a deterministic mock
// model and embedder, an SSE parser, and a disposable PostgreSQL container.
package testutil

import (
	"context"
	"crypto/sha256"
	"encoding/binary"
	"math"
	"strings"
	"sync"

	"github.com/firebase/genkit/go/ai"
	"github.com/firebase/genkit/go/genkit"
)

// MockLLM provides deterministic model responses for testing. It matches
// each request against registered patterns and returns the first matching
// response.
//
// Thread-safe for concurrent use.
type MockLLM struct {
	mu            sync.Mutex
	responses     []mockRule
	fallback      string
	err           error
	finishReason  ai.FinishReason
	streamOnly    string // text streamed but omitted from the final message
	midStreamText string // partial text streamed before midStreamErr fires
	midStreamErr  error
	calls         []MockCall
}

type mockRule struct {
	pattern  string // substring match in user message, lowercased
	response string
}

// MockCall records a single call to the mock model.
type MockCall struct {
	UserMessage string
	SystemText  string
	Response    string
}

// NewMockLLM creates a mock model with the given fallback response.
// The fallback is returned when no pattern matches.
func NewMockLLM(fallback string) *MockLLM {
	return &MockLLM{fallback: fallback, finishReason: ai.FinishReasonStop}
}

// AddResponse registers a pattern-response pair. Patterns are checked in
// registration order against the system prompt and last user message
// combined; first match wins. Matching the system prompt lets one mock serve
// several model-backed components with distinct instructions.
func (m *MockLLM) AddResponse(pattern, response string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.responses = append(m.responses, mockRule{
		pattern:  strings.ToLower(pattern),
		response: response,
	})
}

// SetError makes every subsequent call fail with err. Pass nil to clear.
func (m *MockLLM) SetError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.err = err
}

// SetFinishReason overrides the finish reason of subsequent responses.
// Use ai.FinishReasonLength to simulate a truncated generation.
func (m *MockLLM) SetFinishReason(reason ai.FinishReason) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.finishReason = reason
}

// SetStreamOnly makes subsequent calls stream text but return an empty final
// message, simulating a provider that drops the aggregated response.
func (m *MockLLM) SetStreamOnly(text string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.streamOnly = text
}

// SetMidStreamError makes the next streaming call emit text through the
// stream callback and then fail with err, simulating a provider connection
// that drops partway through a generation. Calls without a stream callback
// are unaffected; the failure fires once.
func (m *MockLLM) SetMidStreamError(text string, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.midStreamText = text
	m.midStreamErr = err
}

// Calls returns a copy of all recorded calls.
func (m *MockLLM) Calls() []MockCall {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := make([]MockCall, len(m.calls))
	copy(cp, m.calls)
	return cp
}

// Reset clears recorded calls and injected failures, keeping registered
// responses.
func (m *MockLLM) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = nil
	m.err = nil
	m.finishReason = ai.FinishReasonStop
	m.streamOnly = ""
	m.midStreamText = ""
	m.midStreamErr = nil
}

// RegisterModel registers the mock as a Genkit model and returns a reference.
// The model name will be "mock/test-model".
func (m *MockLLM) RegisterModel(g *genkit.Genkit) ai.Model {
	return genkit.DefineModel(g, "mock/test-model", &ai.ModelOptions{
		Label: "Mock Test Model",
		Supports: &ai.ModelSupports{
			Multiturn:  true,
			SystemRole: true,
			Media:      false,
		},
	}, m.generate)
}

// generate is the Genkit model function.
func (m *MockLLM) generate(ctx context.Context, req *ai.ModelRequest, cb ai.ModelStreamCallback) (*ai.ModelResponse, error) {
	var userText, systemText string
	for i := len(req.Messages) - 1; i >= 0; i-- {
		switch req.Messages[i].Role {
		case ai.RoleUser:
			if userText == "" {
				userText = req.Messages[i].Text()
			}
		case ai.RoleSystem:
			if systemText == "" {
				systemText = req.Messages[i].Text()
			}
		}
	}

	m.mu.Lock()
	if m.err != nil {
		err := m.err
		m.mu.Unlock()
		return nil, err
	}
	if cb != nil && m.midStreamErr != nil {
		text, err := m.midStreamText, m.midStreamErr
		m.midStreamText, m.midStreamErr = "", nil
		m.mu.Unlock()
		if text != "" {
			_ = cb(ctx, &ai.ModelResponseChunk{
				Content: []*ai.Part{ai.NewTextPart(text)},
			})
		}
		return nil, err
	}

	responseText := m.fallback
	lower := strings.ToLower(systemText + "\n" + userText)
	for i := range m.responses {
		if strings.Contains(lower, m.responses[i].pattern) {
			responseText = m.responses[i].response
			break
		}
	}

	finishReason := m.finishReason
	streamOnly := m.streamOnly

	m.calls = append(m.calls, MockCall{
		UserMessage: userText,
		SystemText:  systemText,
		Response:    responseText,
	})
	m.mu.Unlock()

	streamed := responseText
	if streamOnly != "" {
		streamed = streamOnly
		responseText = ""
	}

	if cb != nil && streamed != "" {
		_ = cb(ctx, &ai.ModelResponseChunk{
			Content: []*ai.Part{ai.NewTextPart(streamed)},
		})
	}

	var parts []*ai.Part
	if responseText != "" {
		parts = append(parts, ai.NewTextPart(responseText))
	}

	return &ai.ModelResponse{
		Request:      req,
		FinishReason: finishReason,
		Message: &ai.Message{
			Role:    ai.RoleModel,
			Content: parts,
		},
	}, nil
}

// MockEmbedder provides deterministic embedding vectors for testing.
//
// By default, it generates a deterministic vector from content using
// SHA-256. Explicit mappings can be added for precise cosine similarity
// control.
//
// Thread-safe for concurrent use.
type MockEmbedder struct {
	mu      sync.Mutex
	vectors map[string][]float32
	err     error
	dim     int
}

// NewMockEmbedder creates a mock embedder with the given vector dimensions.
func NewMockEmbedder(dim int) *MockEmbedder {
	return &MockEmbedder{
		vectors: make(map[string][]float32),
		dim:     dim,
	}
}

// SetVector registers an explicit vector for a given content string.
// Use this to control exact cosine similarity between test inputs.
func (e *MockEmbedder) SetVector(content string, vec []float32) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.vectors[content] = vec
}

// SetError makes every subsequent embed call fail with err. Pass nil to
// clear.
func (e *MockEmbedder) SetError(err error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.err = err
}

// RegisterEmbedder registers the mock as a Genkit embedder.
// The embedder name will be "mock/test-embedder".
func (e *MockEmbedder) RegisterEmbedder(g *genkit.Genkit) ai.Embedder {
	return genkit.DefineEmbedder(g, "mock/test-embedder", &ai.EmbedderOptions{
		Label:      "Mock Test Embedder",
		Dimensions: e.dim,
	}, e.embed)
}

// embed is the Genkit embedder function.
func (e *MockEmbedder) embed(_ context.Context, req *ai.EmbedRequest) (*ai.EmbedResponse, error) {
	e.mu.Lock()
	if e.err != nil {
		err := e.err
		e.mu.Unlock()
		return nil, err
	}
	e.mu.Unlock()

	embeddings := make([]*ai.Embedding, len(req.Input))
	for i, doc := range req.Input {
		embeddings[i] = &ai.Embedding{
			Embedding: e.vectorFor(documentText(doc)),
		}
	}
	return &ai.EmbedResponse{Embeddings: embeddings}, nil
}

// vectorFor returns the vector for a given content string, preferring an
// explicit mapping over the hash-derived default.
func (e *MockEmbedder) vectorFor(content string) []float32 {
	e.mu.Lock()
	if v, ok := e.vectors[content]; ok {
		e.mu.Unlock()
		return v
	}
	e.mu.Unlock()

	return deterministicVector(content, e.dim)
}

// documentText extracts all text content from a Document's parts.
func documentText(doc *ai.Document) string {
	var sb strings.Builder
	for _, p := range doc.Content {
		if p.Kind == ai.PartText {
			sb.WriteString(p.Text)
		}
	}
	return sb.String()
}

// deterministicVector generates a normalized vector from content using
// SHA-256. The same content always produces the same vector.
func deterministicVector(content string, dim int) []float32 {
	hash := sha256.Sum256([]byte(content))
	vec := make([]float32, dim)

	for i := range vec {
		idx := (i * 4) % len(hash)
		bits := binary.LittleEndian.Uint32([]byte{
			hash[idx%32],
			hash[(idx+1)%32],
			hash[(idx+2)%32],
			hash[(idx+3)%32],
		})
		vec[i] = (float32(bits)/float32(math.MaxUint32))*2 - 1
	}

	var norm float32
	for _, v := range vec {
		norm += v * v
	}
	norm = float32(math.Sqrt(float64(norm)))
	if norm > 0 {
		for i := range vec {
			vec[i] /= norm
		}
	}

	return vec
}
