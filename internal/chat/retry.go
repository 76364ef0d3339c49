package chat

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/firebase/genkit/go/ai"
	"github.com/firebase/genkit/go/genkit"
)

// RetryConfig configures the retry behavior for model calls.
type RetryConfig struct {
	MaxRetries      int           // Maximum number of retry attempts
	InitialInterval time.Duration // Initial backoff interval
	MaxInterval     time.Duration // Maximum backoff interval
}

// DefaultRetryConfig returns sensible defaults for LLM API calls.
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxRetries:      3,
		InitialInterval: 500 * time.Millisecond,
		MaxInterval:     10 * time.Second,
	}
}

// retryablePatterns groups error substrings by category.
// Matched case-insensitively against err.Error().
//
// NOTE: This uses string matching because Genkit and LLM provider SDKs
// do not expose typed/sentinel errors for transient failures.
// Re-evaluate if Genkit adds structured error types in a future version.
var retryablePatterns = [][]string{
	{"rate limit", "quota exceeded", "429"},      // rate limiting
	{"500", "502", "503", "504", "unavailable"},  // transient server errors
	{"connection reset", "timeout", "temporary"}, // network errors
}

// retryableError reports whether err is transient and should trigger a retry.
func retryableError(err error) bool {
	if err == nil {
		return false
	}
	errStr := err.Error()
	for _, group := range retryablePatterns {
		if containsAny(errStr, group...) {
			return true
		}
	}
	return false
}

// containsAny checks if s contains any of the substrings (case-insensitive).
func containsAny(s string, substrs ...string) bool {
	lower := strings.ToLower(s)
	for _, sub := range substrs {
		if strings.Contains(lower, strings.ToLower(sub)) {
			return true
		}
	}
	return false
}

// generateWithRetry calls genkit.Generate with exponential backoff on
// transient errors. Each attempt waits on the rate limiter first so retries
// cannot amplify a rate-limit problem. Once an attempt has streamed any text
// to the client the call is no longer retryable: a fresh attempt would replay
// already-delivered chunks, so the transient error is surfaced instead.
func (e *Engine) generateWithRetry(ctx context.Context, opts []ai.GenerateOption, streamed *bool) (*ai.ModelResponse, error) {
	var lastErr error
	delay := e.retryConfig.InitialInterval
	start := time.Now()

	for attempt := 0; attempt <= e.retryConfig.MaxRetries; attempt++ {
		if e.rateLimiter != nil {
			if err := e.rateLimiter.Wait(ctx); err != nil {
				return nil, fmt.Errorf("rate limit wait: %w", err)
			}
		}

		resp, err := genkit.Generate(ctx, e.g, opts...)
		if err == nil {
			e.logger.Debug("model call succeeded",
				"attempts", attempt+1,
				"elapsed", time.Since(start),
			)
			return resp, nil
		}

		lastErr = err

		if !retryableError(err) {
			return nil, fmt.Errorf("generate: %w", err)
		}

		if streamed != nil && *streamed {
			return nil, fmt.Errorf("generate: stream already started, not retrying: %w", err)
		}

		if attempt == e.retryConfig.MaxRetries {
			break
		}

		e.logger.Debug("retrying after error",
			"attempt", attempt+1,
			"delay", delay,
			"elapsed", time.Since(start),
			"error", err,
		)

		select {
		case <-ctx.Done():
			return nil, fmt.Errorf("context canceled during retry: %w", ctx.Err())
		case <-time.After(delay):
			delay = min(delay*2, e.retryConfig.MaxInterval)
		}
	}

	return nil, fmt.Errorf("generate after %d retries (elapsed: %v): %w",
		e.retryConfig.MaxRetries, time.Since(start), lastErr)
}
