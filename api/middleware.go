package api

import (
	"context"
	"net/http"
	"runtime/debug"
	"time"

	"github.com/google/uuid"

	"github.com/MohamedRasheqA/bents-v3/internal/log"
)

type contextKey string

const requestIDKey contextKey = "requestID"

// requestIDFromContext returns the request ID set by requestIDMiddleware,
// or "" if none is present.
func requestIDFromContext(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey).(string)
	return id
}

// middleware wraps an http.Handler with additional behavior.
type middleware func(http.Handler) http.Handler

// chain applies middleware in order: the first middleware listed is the
// outermost wrapper.
func chain(h http.Handler, mws ...middleware) http.Handler {
	for i := len(mws) - 1; i >= 0; i-- {
		h = mws[i](h)
	}
	return h
}

// statusRecorder captures the response status code for logging.
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

// Flush passes through so SSE handlers keep working behind the recorder.
func (r *statusRecorder) Flush() {
	if f, ok := r.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

// requestIDMiddleware sets an X-Request-ID header on every response and
// stores the ID in the request context. A valid UUID supplied by the client
// is reused; anything else is replaced with a fresh one.
func requestIDMiddleware() middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id := r.Header.Get("X-Request-ID")
			if _, err := uuid.Parse(id); err != nil {
				id = uuid.NewString()
			}
			w.Header().Set("X-Request-ID", id)
			ctx := context.WithValue(r.Context(), requestIDKey, id)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// loggingMiddleware logs each request with method, path, status and duration.
func loggingMiddleware(logger log.Logger) middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}

			next.ServeHTTP(rec, r)

			logger.Info("http request",
				"method", r.Method,
				"path", r.URL.Path,
				"status", rec.status,
				"duration", time.Since(start).String(),
				"request_id", requestIDFromContext(r.Context()),
			)
		})
	}
}

// recoveryMiddleware recovers from panics and returns a 500 error.
func recoveryMiddleware(logger log.Logger) middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if rec := recover(); rec != nil {
					logger.Error("panic recovered",
						"error", rec,
						"path", r.URL.Path,
						"stack", string(debug.Stack()),
					)
					writeError(w, http.StatusInternalServerError,
						"internal_error", "internal server error")
				}
			}()
			next.ServeHTTP(w, r)
		})
	}
}
