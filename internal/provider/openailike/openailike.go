// Package openailike implements the provider capability contract for any
// OpenAI-compatible chat completions endpoint.
package openailike

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/goccy/go-json"

	llmerrors "github.com/tidemill/llmgate/pkg/errors"
	"github.com/tidemill/llmgate/pkg/types"
)

// Config contains adapter configuration.
type Config struct {
	Name    string            `yaml:"name"`
	BaseURL string            `yaml:"base_url"`
	APIKey  string            `yaml:"api_key"`
	Timeout time.Duration     `yaml:"timeout"`
	Headers map[string]string `yaml:"headers"`
}

// Client calls an OpenAI-compatible chat completions API.
type Client struct {
	cfg        Config
	httpClient *http.Client
}

// New creates an adapter for the configured endpoint.
func New(cfg Config) (*Client, error) {
	if cfg.BaseURL == "" {
		return nil, fmt.Errorf("openailike: base_url is required")
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 60 * time.Second
	}
	cfg.BaseURL = strings.TrimSuffix(cfg.BaseURL, "/")

	return &Client{
		cfg: cfg,
		// The client timeout bounds non-streaming calls. Streaming calls
		// rely on ctx cancellation instead, set per request.
		httpClient: &http.Client{},
	}, nil
}

type chatCompletionRequest struct {
	Model       string              `json:"model"`
	Messages    []types.ChatMessage `json:"messages"`
	Temperature *float64            `json:"temperature,omitempty"`
	MaxTokens   int                 `json:"max_tokens,omitempty"`
	Stream      bool                `json:"stream,omitempty"`
}

type chatCompletionResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

type chatCompletionChunk struct {
	Choices []struct {
		Delta struct {
			Content string `json:"content"`
		} `json:"delta"`
		FinishReason *string `json:"finish_reason"`
	} `json:"choices"`
}

func (c *Client) newRequest(ctx context.Context, body []byte) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.cfg.BaseURL+"/chat/completions", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	if c.cfg.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)
	}
	for k, v := range c.cfg.Headers {
		req.Header.Set(k, v)
	}
	return req, nil
}

// Chat performs a single-shot completion and returns the text result.
func (c *Client) Chat(ctx context.Context, messages []types.ChatMessage, model string, opts types.ChatOptions) (string, error) {
	body, err := json.Marshal(chatCompletionRequest{
		Model:       model,
		Messages:    messages,
		Temperature: opts.Temperature,
		MaxTokens:   opts.MaxTokens,
	})
	if err != nil {
		return "", llmerrors.NewInvalidRequestError(c.cfg.Name, model, err.Error())
	}

	ctx, cancel := context.WithTimeout(ctx, c.cfg.Timeout)
	defer cancel()

	req, err := c.newRequest(ctx, body)
	if err != nil {
		return "", llmerrors.NewInternalError(c.cfg.Name, model, err.Error())
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if ctx.Err() == context.DeadlineExceeded {
			return "", llmerrors.NewTimeoutError(c.cfg.Name, model, "chat completion timed out")
		}
		return "", llmerrors.NewProviderError(c.cfg.Name, model, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return "", c.mapError(resp.StatusCode, model)
	}

	var parsed chatCompletionResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return "", llmerrors.NewProviderError(c.cfg.Name, model, fmt.Errorf("decode response: %w", err))
	}
	if len(parsed.Choices) == 0 {
		return "", llmerrors.NewProviderError(c.cfg.Name, model, fmt.Errorf("response contained no choices"))
	}
	return parsed.Choices[0].Message.Content, nil
}

// StreamChat performs a streaming completion. The returned channel delivers
// text deltas in emission order and closes after one terminal chunk.
func (c *Client) StreamChat(ctx context.Context, messages []types.ChatMessage, model string, opts types.ChatOptions) (<-chan types.StreamChunk, error) {
	body, err := json.Marshal(chatCompletionRequest{
		Model:       model,
		Messages:    messages,
		Temperature: opts.Temperature,
		MaxTokens:   opts.MaxTokens,
		Stream:      true,
	})
	if err != nil {
		return nil, llmerrors.NewInvalidRequestError(c.cfg.Name, model, err.Error())
	}

	req, err := c.newRequest(ctx, body)
	if err != nil {
		return nil, llmerrors.NewInternalError(c.cfg.Name, model, err.Error())
	}
	req.Header.Set("Accept", "text/event-stream")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, llmerrors.NewProviderError(c.cfg.Name, model, err)
	}
	if resp.StatusCode != http.StatusOK {
		_ = resp.Body.Close()
		return nil, c.mapError(resp.StatusCode, model)
	}

	out := make(chan types.StreamChunk)
	go c.forwardStream(ctx, resp.Body, model, out)
	return out, nil
}

// forwardStream parses SSE lines into chunks until the stream ends.
func (c *Client) forwardStream(ctx context.Context, body io.ReadCloser, model string, out chan<- types.StreamChunk) {
	defer close(out)
	defer func() { _ = body.Close() }()

	emit := func(chunk types.StreamChunk) bool {
		select {
		case out <- chunk:
			return true
		case <-ctx.Done():
			return false
		}
	}

	scanner := bufio.NewScanner(body)
	scanner.Buffer(make([]byte, 4096), 1024*1024)

	for scanner.Scan() {
		line := bytes.TrimSpace(scanner.Bytes())
		if len(line) == 0 {
			continue
		}
		data, found := bytes.CutPrefix(line, []byte("data: "))
		if !found {
			continue
		}
		if bytes.Equal(data, []byte("[DONE]")) {
			emit(types.StreamChunk{Type: types.StreamDone})
			return
		}

		var chunk chatCompletionChunk
		if err := json.Unmarshal(data, &chunk); err != nil {
			// Keep-alive comments and unparseable fragments are skipped.
			continue
		}
		if len(chunk.Choices) == 0 {
			continue
		}
		if delta := chunk.Choices[0].Delta.Content; delta != "" {
			if !emit(types.StreamChunk{Type: types.StreamText, Delta: delta}) {
				return
			}
		}
		if chunk.Choices[0].FinishReason != nil {
			emit(types.StreamChunk{Type: types.StreamDone})
			return
		}
	}

	if err := scanner.Err(); err != nil {
		emit(types.StreamChunk{
			Type: types.StreamError,
			Err:  llmerrors.NewProviderError(c.cfg.Name, model, err),
		})
		return
	}

	// Stream ended without an explicit terminator.
	emit(types.StreamChunk{Type: types.StreamDone})
}

func (c *Client) mapError(statusCode int, model string) error {
	switch statusCode {
	case http.StatusUnauthorized, http.StatusForbidden:
		return llmerrors.NewInvalidRequestError(c.cfg.Name, model, "authentication failed")
	case http.StatusTooManyRequests:
		return llmerrors.NewRateLimitError(c.cfg.Name, model, "provider rate limit exceeded")
	case http.StatusRequestTimeout:
		return llmerrors.NewTimeoutError(c.cfg.Name, model, "provider timed out")
	case http.StatusServiceUnavailable, http.StatusBadGateway:
		return llmerrors.NewServiceUnavailableError(c.cfg.Name, model, "provider unavailable")
	default:
		return llmerrors.NewProviderError(c.cfg.Name, model,
			fmt.Errorf("unexpected status %d", statusCode))
	}
}
