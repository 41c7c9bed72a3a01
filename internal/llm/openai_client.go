// ABOUTME: Backend client for OpenAI-compatible servers using the legacy completions API
// ABOUTME: Sends the formatted prompt verbatim so prompt formats behave the same on every backend
package llm

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"

	openai "github.com/sashabaranov/go-openai"

	"github.com/harper/local-agent-core/internal/util"
)

// DefaultOpenAIModel is used when the route does not name a remote model
const DefaultOpenAIModel = "gpt-3.5-turbo-instruct"

// OpenAIClient wraps the OpenAI API client with retry logic
type OpenAIClient struct {
	client *openai.Client
	model  string
	opts   Options
}

// NewOpenAIClient creates a client for baseURL (empty for the public API)
func NewOpenAIClient(apiKey, baseURL, model string, opts Options) (*OpenAIClient, error) {
	if apiKey == "" && baseURL == "" {
		return nil, fmt.Errorf("OpenAI API key is required")
	}

	cfg := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		cfg.BaseURL = baseURL
	}
	if model == "" {
		model = DefaultOpenAIModel
	}

	return &OpenAIClient{
		client: openai.NewClientWithConfig(cfg),
		model:  model,
		opts:   opts,
	}, nil
}

// Model returns the remote model name
func (c *OpenAIClient) Model() string {
	return c.model
}

func (c *OpenAIClient) request(req Request, stream bool) openai.CompletionRequest {
	return openai.CompletionRequest{
		Model:       c.model,
		Prompt:      req.Prompt,
		MaxTokens:   req.MaxTokens,
		Temperature: float32(req.Temperature),
		Stream:      stream,
	}
}

// Complete returns the first choice's text
func (c *OpenAIClient) Complete(ctx context.Context, req Request) (string, error) {
	if c.opts.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.opts.Timeout)
		defer cancel()
	}

	var text string
	err := util.Retry(ctx, c.opts.MaxRetries, c.opts.RetryDelay, isRetryableOpenAI, func() error {
		resp, err := c.client.CreateCompletion(ctx, c.request(req, false))
		if err != nil {
			return err
		}
		if len(resp.Choices) == 0 {
			return errors.New("no completion choices returned")
		}
		text = resp.Choices[0].Text
		return nil
	})
	if err != nil {
		return "", fmt.Errorf("openai completion: %w", convertOpenAIError(err))
	}

	return CleanOutput(text), nil
}

// Stream forwards completion deltas as they arrive
func (c *OpenAIClient) Stream(ctx context.Context, req Request, onChunk ChunkFunc) error {
	if c.opts.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.opts.Timeout)
		defer cancel()
	}

	var stream *openai.CompletionStream
	err := util.Retry(ctx, c.opts.MaxRetries, c.opts.RetryDelay, isRetryableOpenAI, func() error {
		var err error
		stream, err = c.client.CreateCompletionStream(ctx, c.request(req, true))
		return err
	})
	if err != nil {
		return fmt.Errorf("openai completion stream: %w", convertOpenAIError(err))
	}
	defer stream.Close()

	for {
		resp, err := stream.Recv()
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("reading openai stream: %w", convertOpenAIError(err))
		}
		if len(resp.Choices) == 0 || resp.Choices[0].Text == "" {
			continue
		}
		if err := onChunk(resp.Choices[0].Text); err != nil {
			return err
		}
	}
}

func isRetryableOpenAI(err error) bool {
	return IsRetryable(convertOpenAIError(err))
}

// convertOpenAIError maps go-openai status failures onto StatusError
func convertOpenAIError(err error) error {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) && apiErr.HTTPStatusCode != 0 {
		return &StatusError{StatusCode: apiErr.HTTPStatusCode, Body: apiErr.Message}
	}
	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) && reqErr.HTTPStatusCode != 0 {
		return &StatusError{StatusCode: reqErr.HTTPStatusCode, Body: http.StatusText(reqErr.HTTPStatusCode)}
	}
	return err
}
