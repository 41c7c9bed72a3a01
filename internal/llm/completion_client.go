// ABOUTME: Client for llama.cpp-style /completion endpoints
// ABOUTME: Blocking calls return cleaned content; streaming parses server-sent event lines
package llm

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"regexp"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/harper/local-agent-core/internal/util"
)

var ansiPattern = regexp.MustCompile(`\x1B(?:[@-Z\\-_]|\[[0-?]*[ -/]*[@-~])`)

type completionRequest struct {
	Prompt      string  `json:"prompt"`
	Temperature float64 `json:"temperature"`
	MaxTokens   int     `json:"max_tokens"`
	Stream      bool    `json:"stream"`
}

type completionResponse struct {
	Content string `json:"content"`
}

// CompletionClient talks to a native completion endpoint
type CompletionClient struct {
	url        string
	httpClient *http.Client
	opts       Options
}

// NewCompletionClient creates a client for the full endpoint url (including /completion)
func NewCompletionClient(url string, opts Options) *CompletionClient {
	return &CompletionClient{
		url:        url,
		httpClient: &http.Client{},
		opts:       opts,
	}
}

// URL returns the endpoint this client posts to
func (c *CompletionClient) URL() string {
	return c.url
}

// Complete sends the prompt and returns the generated content
func (c *CompletionClient) Complete(ctx context.Context, req Request) (string, error) {
	if c.opts.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.opts.Timeout)
		defer cancel()
	}

	var out completionResponse
	err := util.Retry(ctx, c.opts.MaxRetries, c.opts.RetryDelay, IsRetryable, func() error {
		resp, err := c.post(ctx, req, false)
		if err != nil {
			return err
		}
		defer resp.Body.Close()

		if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
			return fmt.Errorf("decoding completion response: %w", err)
		}
		return nil
	})
	if err != nil {
		return "", fmt.Errorf("completion request to %s: %w", c.url, err)
	}

	return CleanOutput(out.Content), nil
}

// Stream sends the prompt with stream enabled and forwards each content chunk.
// Only connection setup is retried; once chunks flow a failure ends the stream.
// The configured timeout bounds the whole stream, not just the first byte.
func (c *CompletionClient) Stream(ctx context.Context, req Request, onChunk ChunkFunc) error {
	if c.opts.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.opts.Timeout)
		defer cancel()
	}

	var resp *http.Response
	err := util.Retry(ctx, c.opts.MaxRetries, c.opts.RetryDelay, IsRetryable, func() error {
		var err error
		resp, err = c.post(ctx, req, true)
		return err
	})
	if err != nil {
		return fmt.Errorf("completion stream to %s: %w", c.url, err)
	}
	defer resp.Body.Close()

	scanner := bufio.NewScanner(resp.Body)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if !strings.HasPrefix(line, "data:") {
			continue
		}
		payload := strings.TrimSpace(strings.TrimPrefix(line, "data:"))
		var chunk completionResponse
		if err := json.Unmarshal([]byte(payload), &chunk); err != nil {
			log.Debug().Str("line", line).Msg("stream: skipping unparseable line")
			continue
		}
		if chunk.Content == "" {
			continue
		}
		if err := onChunk(chunk.Content); err != nil {
			return err
		}
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("reading completion stream: %w", err)
	}
	return nil
}

func (c *CompletionClient) post(ctx context.Context, req Request, stream bool) (*http.Response, error) {
	body, err := json.Marshal(completionRequest{
		Prompt:      req.Prompt,
		Temperature: req.Temperature,
		MaxTokens:   req.MaxTokens,
		Stream:      stream,
	})
	if err != nil {
		return nil, fmt.Errorf("encoding completion request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	httpReq.Header.Set("Content-Type", "application/json")
	if stream {
		httpReq.Header.Set("Accept", "text/event-stream")
	}

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		log.Debug().Err(err).Str("url", c.url).Msg("completion: request failed")
		return nil, err
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		data, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		resp.Body.Close()
		log.Debug().Int("status", resp.StatusCode).Str("url", c.url).Msg("completion: non-2xx reply")
		return nil, &StatusError{StatusCode: resp.StatusCode, Body: strings.TrimSpace(string(data))}
	}
	return resp, nil
}

// CleanOutput strips terminal escape sequences, stray ESC and NUL bytes, and surrounding space
func CleanOutput(s string) string {
	s = ansiPattern.ReplaceAllString(s, "")
	s = strings.ReplaceAll(s, "\x1b", "")
	s = strings.ReplaceAll(s, "\x00", "")
	return strings.TrimSpace(s)
}
