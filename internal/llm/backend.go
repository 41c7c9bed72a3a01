// ABOUTME: Backend contract shared by every text-generation client
// ABOUTME: Requests carry a fully built prompt; responses are plain text or streamed chunks
package llm

import (
	"context"
	"errors"
	"fmt"
	"net"
	"time"
)

// Request is one generation call
type Request struct {
	Prompt      string
	Temperature float64
	MaxTokens   int
}

// ChunkFunc receives streamed text. Returning an error stops the stream.
type ChunkFunc func(chunk string) error

// Backend generates text from a prompt
type Backend interface {
	Complete(ctx context.Context, req Request) (string, error)
	Stream(ctx context.Context, req Request, onChunk ChunkFunc) error
}

// Options configures backend clients
type Options struct {
	Timeout    time.Duration
	MaxRetries int
	RetryDelay time.Duration
}

// DefaultOptions returns the client defaults
func DefaultOptions() Options {
	return Options{
		Timeout:    60 * time.Second,
		MaxRetries: 2,
		RetryDelay: 500 * time.Millisecond,
	}
}

// StatusError is a non-2xx reply from a backend
type StatusError struct {
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("backend returned status %d", e.StatusCode)
	}
	return fmt.Sprintf("backend returned status %d: %s", e.StatusCode, e.Body)
}

// IsRetryable reports whether err is worth another attempt: transport failures and 5xx replies
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.Canceled) {
		return false
	}
	var statusErr *StatusError
	if errors.As(err, &statusErr) {
		return statusErr.StatusCode >= 500
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		return true
	}
	return errors.Is(err, context.DeadlineExceeded)
}
