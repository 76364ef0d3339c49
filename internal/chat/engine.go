// Package chat orchestrates the answer pipeline: classify the question,
// rewrite it for retrieval, search the transcript store, stream a grounded
// answer, then derive video references and related products from the
// completed text. The pipeline is an explicit state machine so every request
// moves through named stages with a per-stage failure taxonomy.
package chat

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/firebase/genkit/go/ai"
	"github.com/firebase/genkit/go/genkit"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"github.com/MohamedRasheqA/bents-v3/internal/intent"
	"github.com/MohamedRasheqA/bents-v3/internal/knowledge"
	"github.com/MohamedRasheqA/bents-v3/internal/product"
	"github.com/MohamedRasheqA/bents-v3/internal/session"
	"github.com/MohamedRasheqA/bents-v3/internal/video"
)

// Pipeline defaults.
const (
	defaultTopK           = 5
	defaultHistoryTurns   = 5
	defaultRequestTimeout = 90 * time.Second
)

const answerSystemPrompt = `You are a woodworking assistant answering questions about Jason Bent's video tutorials.

Answer using ONLY the transcript excerpts below. If the excerpts do not cover the question, say so rather than guessing.

When a specific excerpt supports part of your answer, cite it inline with exactly this tag form, all three parts contiguous:
{{timestamp:MM:SS}}{{title:VIDEO TITLE}}{{url:VIDEO URL}}
Use the timestamp, title, and URL of the excerpt you are citing. Do not invent citations.`

const shortCircuitSystemPrompt = `You are a woodworking assistant for Jason Bent's video tutorials. The user's message is not a woodworking question. Respond appropriately to a %s: be brief and friendly, and steer the conversation back to woodworking. Do not cite videos or products.`

// ChunkCallback receives each streamed fragment of answer text.
// Returning an error aborts the stream.
type ChunkCallback func(ctx context.Context, text string) error

// Request is one question together with its conversation history.
type Request struct {
	Question string
	History  []*ai.Message
}

// Response is the complete result of a pipeline run. For questions that do
// not reach retrieval, VideoReferences and RelatedProducts are always empty.
type Response struct {
	Label           intent.Label
	AnswerText      string
	VideoReferences []video.Reference
	RelatedProducts []product.Product
}

// Config contains all required parameters for the Engine.
type Config struct {
	Genkit     *genkit.Genkit
	Classifier *intent.Classifier
	Rewriter   *intent.Rewriter
	Knowledge  *knowledge.Store
	Products   *product.Matcher
	Logger     *slog.Logger

	ModelName      string        // provider-qualified model name
	TopK           int           // retrieval depth (default 5)
	HistoryTurns   int           // history window for generation (default 5)
	RequestTimeout time.Duration // end-to-end budget per request (default 90s)

	RetryConfig          RetryConfig          // model retry settings (zero-value uses defaults)
	CircuitBreakerConfig CircuitBreakerConfig // circuit breaker settings (zero-value uses defaults)
	RateLimiter          *rate.Limiter        // proactive rate limiting (nil = use default)
}

// validate checks if all required parameters are present.
func (cfg Config) validate() error {
	if cfg.Genkit == nil {
		return errors.New("genkit instance is required")
	}
	if cfg.Classifier == nil {
		return errors.New("classifier is required")
	}
	if cfg.Rewriter == nil {
		return errors.New("rewriter is required")
	}
	if cfg.Knowledge == nil {
		return errors.New("knowledge store is required")
	}
	if cfg.Products == nil {
		return errors.New("product matcher is required")
	}
	if cfg.Logger == nil {
		return errors.New("logger is required")
	}
	return nil
}

// Engine runs the answer pipeline. It is stateless across requests; all
// configuration is captured immutably at construction so concurrent requests
// are safe.
type Engine struct {
	modelName      string
	topK           int
	historyTurns   int
	requestTimeout time.Duration

	retryConfig    RetryConfig
	circuitBreaker *CircuitBreaker
	rateLimiter    *rate.Limiter

	g          *genkit.Genkit
	classifier *intent.Classifier
	rewriter   *intent.Rewriter
	knowledge  *knowledge.Store
	products   *product.Matcher
	logger     *slog.Logger
}

// New creates an Engine with required configuration.
func New(cfg Config) (*Engine, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}

	topK := cfg.TopK
	if topK <= 0 {
		topK = defaultTopK
	}
	historyTurns := cfg.HistoryTurns
	if historyTurns <= 0 {
		historyTurns = defaultHistoryTurns
	}
	requestTimeout := cfg.RequestTimeout
	if requestTimeout <= 0 {
		requestTimeout = defaultRequestTimeout
	}

	retryConfig := cfg.RetryConfig
	if retryConfig.MaxRetries == 0 {
		retryConfig = DefaultRetryConfig()
	}
	cbConfig := cfg.CircuitBreakerConfig
	if cbConfig.FailureThreshold == 0 {
		cbConfig = DefaultCircuitBreakerConfig()
	}
	rl := cfg.RateLimiter
	if rl == nil {
		rl = rate.NewLimiter(10, 30)
	}

	return &Engine{
		modelName:      cfg.ModelName,
		topK:           topK,
		historyTurns:   historyTurns,
		requestTimeout: requestTimeout,
		retryConfig:    retryConfig,
		circuitBreaker: NewCircuitBreaker(cbConfig),
		rateLimiter:    rl,
		g:              cfg.Genkit,
		classifier:     cfg.Classifier,
		rewriter:       cfg.Rewriter,
		knowledge:      cfg.Knowledge,
		products:       cfg.Products,
		logger:         cfg.Logger,
	}, nil
}

// pipeline carries the intermediate values of one request through the state
// machine.
type pipeline struct {
	req Request
	cb  ChunkCallback

	label     intent.Label
	query     string
	embedding []float32
	results   []knowledge.Result
	answer    string
	refs      []video.Reference
	products  []product.Product
}

// Ask runs the pipeline without streaming.
func (e *Engine) Ask(ctx context.Context, req Request) (*Response, error) {
	return e.AskStream(ctx, req, nil)
}

// AskStream runs the pipeline, streaming answer text through cb as it is
// generated. Video references and related products are computed only after
// the stream completes, since extraction needs the full text. Any stage
// failure surfaces as ErrRequestFailed wrapping the stage sentinel.
func (e *Engine) AskStream(ctx context.Context, req Request, cb ChunkCallback) (*Response, error) {
	ctx, cancel := context.WithTimeout(ctx, e.requestTimeout)
	defer cancel()

	start := time.Now()
	p := &pipeline{req: req, cb: cb}

	st := StateClassifying
	for st != StateDone {
		next, err := e.step(ctx, st, p)
		if err != nil {
			e.logger.Error("pipeline failed",
				"state", st.String(),
				"elapsed", time.Since(start),
				"error", err,
			)
			return nil, fmt.Errorf("%w: %s: %w", ErrRequestFailed, st, err)
		}
		e.logger.Debug("pipeline transition", "from", st.String(), "to", next.String())
		st = next
	}

	e.logger.Info("pipeline done",
		"label", p.label,
		"chunks", len(p.results),
		"references", len(p.refs),
		"products", len(p.products),
		"elapsed", time.Since(start),
	)

	return &Response{
		Label:           p.label,
		AnswerText:      p.answer,
		VideoReferences: p.refs,
		RelatedProducts: p.products,
	}, nil
}

// step executes one state and returns the next. A returned error puts the
// pipeline in StateFailed.
func (e *Engine) step(ctx context.Context, st State, p *pipeline) (State, error) {
	switch st {
	case StateClassifying:
		return e.stepClassify(ctx, p)
	case StateShortCircuitResponding:
		return e.stepShortCircuit(ctx, p)
	case StateRewriting:
		return e.stepRewrite(p)
	case StateEmbedding:
		return e.stepEmbed(ctx, p)
	case StateSearching:
		return e.stepSearch(ctx, p)
	case StateGenerating:
		return e.stepGenerate(ctx, p)
	case StateExtractingMedia:
		return e.stepExtract(p)
	case StateMatchingProducts:
		return e.stepMatchProducts(ctx, p)
	default:
		return StateFailed, fmt.Errorf("unexpected state %s", st)
	}
}

// stepClassify labels the question and computes the rewritten query in
// parallel. Both are independent model calls; the rewrite result is only
// consumed when the label turns out RELEVANT, and the rewriter never fails,
// so running it speculatively costs one discarded call at worst.
func (e *Engine) stepClassify(ctx context.Context, p *pipeline) (State, error) {
	grp, grpCtx := errgroup.WithContext(ctx)

	grp.Go(func() error {
		label, err := e.classifier.Classify(grpCtx, p.req.Question, p.req.History)
		if err != nil {
			return fmt.Errorf("%w: %w", ErrClassification, err)
		}
		p.label = label
		return nil
	})
	grp.Go(func() error {
		p.query = e.rewriter.Rewrite(grpCtx, p.req.Question, p.req.History)
		return nil
	})

	if err := grp.Wait(); err != nil {
		return StateFailed, err
	}

	if p.label != intent.LabelRelevant {
		return StateShortCircuitResponding, nil
	}
	return StateRewriting, nil
}

// stepRewrite settles the retrieval query computed during classification.
func (e *Engine) stepRewrite(p *pipeline) (State, error) {
	if p.query == "" {
		p.query = p.req.Question
	}
	return StateEmbedding, nil
}

func (e *Engine) stepEmbed(ctx context.Context, p *pipeline) (State, error) {
	embedding, err := e.knowledge.Embed(ctx, p.query)
	if err != nil {
		return StateFailed, fmt.Errorf("%w: %w", ErrEmbedding, err)
	}
	p.embedding = embedding
	return StateSearching, nil
}

func (e *Engine) stepSearch(ctx context.Context, p *pipeline) (State, error) {
	results, err := e.knowledge.SearchVector(ctx, p.embedding, knowledge.WithTopK(e.topK))
	if err != nil {
		return StateFailed, fmt.Errorf("%w: %w", ErrRetrieval, err)
	}
	p.results = results
	return StateGenerating, nil
}

// stepGenerate streams the grounded answer. An answer that arrives empty or
// is truncated before a natural finish fails the request; a stream that
// stopped mid-sentence would otherwise silently drop citations.
func (e *Engine) stepGenerate(ctx context.Context, p *pipeline) (State, error) {
	window := session.RecentWindow(p.req.History, e.historyTurns)
	opts := []ai.GenerateOption{
		ai.WithSystem(answerSystemPrompt + "\n\n" + renderContext(p.results)),
		ai.WithMessages(append(copyMessages(window), ai.NewUserMessage(ai.NewTextPart(p.req.Question)))...),
	}

	resp, err := e.generate(ctx, opts, p.cb)
	if err != nil {
		return StateFailed, err
	}

	text := resp.Text()
	if strings.TrimSpace(text) == "" {
		return StateFailed, ErrGenerationNoResponse
	}
	if resp.FinishReason == ai.FinishReasonLength || resp.FinishReason == ai.FinishReasonBlocked {
		return StateFailed, fmt.Errorf("%w: finish reason %q", ErrGenerationCutOff, resp.FinishReason)
	}

	p.answer = text
	return StateExtractingMedia, nil
}

func (e *Engine) stepExtract(p *pipeline) (State, error) {
	p.refs = video.Extract(p.answer)
	return StateMatchingProducts, nil
}

// stepMatchProducts degrades to an empty product list on failure. A broken
// catalog lookup must not discard an already streamed answer.
func (e *Engine) stepMatchProducts(ctx context.Context, p *pipeline) (State, error) {
	titles := make([]string, 0, len(p.refs))
	for _, ref := range p.refs {
		titles = append(titles, ref.Title)
	}

	products, err := e.products.Match(ctx, titles)
	if err != nil {
		e.logger.Warn("product matching failed, continuing without products", "error", err)
		p.products = nil
		return StateDone, nil
	}
	p.products = products
	return StateDone, nil
}

// stepShortCircuit answers a non-relevant question with one small streamed
// model call. The response carries no references or products.
func (e *Engine) stepShortCircuit(ctx context.Context, p *pipeline) (State, error) {
	opts := []ai.GenerateOption{
		ai.WithSystem(fmt.Sprintf(shortCircuitSystemPrompt, shortCircuitNoun(p.label))),
		ai.WithPrompt(p.req.Question),
	}

	resp, err := e.generate(ctx, opts, p.cb)
	if err != nil {
		return StateFailed, err
	}

	text := resp.Text()
	if strings.TrimSpace(text) == "" {
		return StateFailed, ErrGenerationNoResponse
	}

	p.answer = text
	return StateDone, nil
}

// Title generation constants.
const (
	titleTimeout       = 5 * time.Second
	titleInputMaxRunes = 500
)

var titlePrompt = fmt.Sprintf(`Generate a concise title (max %d characters) for a chat session based on this first message.`, session.TitleMaxLength) + `
The title should capture the main topic or intent.
Return ONLY the title text, no quotes, no explanations, no punctuation at the end.

Message: %s

Title:`

// GenerateTitle produces a short session title from the user's first
// question. Best effort; returns "" on any failure so callers can fall back
// to truncating the question.
func (e *Engine) GenerateTitle(ctx context.Context, question string) string {
	ctx, cancel := context.WithTimeout(ctx, titleTimeout)
	defer cancel()

	if runes := []rune(question); len(runes) > titleInputMaxRunes {
		question = string(runes[:titleInputMaxRunes]) + "..."
	}

	opts := []ai.GenerateOption{
		ai.WithPrompt(titlePrompt, question),
	}
	if e.modelName != "" {
		opts = append(opts, ai.WithModelName(e.modelName))
	}

	resp, err := genkit.Generate(ctx, e.g, opts...)
	if err != nil {
		e.logger.Debug("title generation failed", "error", err)
		return ""
	}

	title := strings.TrimSpace(resp.Text())
	if runes := []rune(title); len(runes) > session.TitleMaxLength {
		title = string(runes[:session.TitleMaxLength-3]) + "..."
	}
	return title
}

// generate runs one guarded model call: circuit breaker, rate-limited
// retries, optional streaming.
func (e *Engine) generate(ctx context.Context, opts []ai.GenerateOption, cb ChunkCallback) (*ai.ModelResponse, error) {
	if e.modelName != "" {
		opts = append(opts, ai.WithModelName(e.modelName))
	}
	// Once any chunk has reached the client, retrying would replay it.
	var streamed bool
	if cb != nil {
		opts = append(opts, ai.WithStreaming(func(ctx context.Context, chunk *ai.ModelResponseChunk) error {
			for _, part := range chunk.Content {
				if part.Text == "" {
					continue
				}
				streamed = true
				if err := cb(ctx, part.Text); err != nil {
					return err
				}
			}
			return nil
		}))
	}

	if err := e.circuitBreaker.Allow(); err != nil {
		e.logger.Warn("circuit breaker is open, rejecting request",
			"state", e.circuitBreaker.State().String())
		return nil, fmt.Errorf("service unavailable: %w", err)
	}

	resp, err := e.generateWithRetry(ctx, opts, &streamed)
	if err != nil {
		e.circuitBreaker.Failure()
		return nil, err
	}
	e.circuitBreaker.Success()
	return resp, nil
}

// shortCircuitNoun names the message category for the short-circuit prompt.
func shortCircuitNoun(label intent.Label) string {
	switch label {
	case intent.LabelGreeting:
		return "greeting"
	case intent.LabelInappropriate:
		return "message that is inappropriate for this assistant"
	default:
		return "question unrelated to woodworking"
	}
}

// renderContext formats retrieval results for the system prompt.
func renderContext(results []knowledge.Result) string {
	if len(results) == 0 {
		return "Transcript excerpts: none found."
	}

	var sb strings.Builder
	sb.WriteString("Transcript excerpts:\n")
	for i, r := range results {
		fmt.Fprintf(&sb, "\n[%d] Video: %s\nURL: %s\nExcerpt: %s\n", i+1, r.Title, r.URL, r.Content)
	}
	return sb.String()
}

// copyMessages copies the history slice so appending the current question
// cannot mutate a caller-owned backing array.
func copyMessages(msgs []*ai.Message) []*ai.Message {
	copied := make([]*ai.Message, len(msgs), len(msgs)+1)
	copy(copied, msgs)
	return copied
}
