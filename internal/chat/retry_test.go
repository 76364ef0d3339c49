package chat

import (
	"errors"
	"testing"
)

func TestRetryableError(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		err  error
		want bool
	}{
		{name: "nil", err: nil, want: false},
		{name: "rate limit", err: errors.New("googleai: rate limit exceeded"), want: true},
		{name: "quota", err: errors.New("Quota Exceeded for project"), want: true},
		{name: "http 429", err: errors.New("server returned 429"), want: true},
		{name: "http 503", err: errors.New("503 Service Unavailable"), want: true},
		{name: "connection reset", err: errors.New("read: connection reset by peer"), want: true},
		{name: "timeout", err: errors.New("dial tcp: i/o timeout"), want: true},
		{name: "deadline exceeded", err: errors.New("context deadline exceeded"), want: false},
		{name: "bad request", err: errors.New("400 invalid argument"), want: false},
		{name: "auth failure", err: errors.New("401 unauthorized"), want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			if got := retryableError(tt.err); got != tt.want {
				t.Errorf("retryableError(%v) = %v, want %v", tt.err, got, tt.want)
			}
		})
	}
}

func TestContainsAny(t *testing.T) {
	t.Parallel()

	if !containsAny("RATE LIMIT hit", "rate limit") {
		t.Error("case-insensitive match failed")
	}
	if containsAny("all good", "rate limit", "429") {
		t.Error("unexpected match")
	}
}
