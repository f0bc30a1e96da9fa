// Package openai implements the completion port against an OpenAI-compatible
// chat completions endpoint.
package openai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/avelhao/parley/pkg/domain"
	"github.com/avelhao/parley/pkg/ports"
)

const (
	defaultBaseURL = "https://api.openai.com/v1"
	defaultModel   = "gpt-4-turbo-preview"

	// Extraction calls want determinism; free-form generation gets some
	// variety.
	jsonTemperature = 0.0
	textTemperature = 0.7
)

// Client talks to a chat completions endpoint and implements
// ports.Completer.
type Client struct {
	apiKey  string
	baseURL string
	model   string
	http    *http.Client
}

// Option configures a Client.
type Option func(*Client)

// WithModel overrides the model name.
func WithModel(model string) Option {
	return func(c *Client) {
		c.model = model
	}
}

// WithBaseURL points the client at a compatible endpoint, such as a local
// server or a proxy.
func WithBaseURL(baseURL string) Option {
	return func(c *Client) {
		c.baseURL = baseURL
	}
}

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(httpClient *http.Client) Option {
	return func(c *Client) {
		c.http = httpClient
	}
}

// NewClient creates a completion client.
func NewClient(apiKey string, opts ...Option) *Client {
	c := &Client{
		apiKey:  apiKey,
		baseURL: defaultBaseURL,
		model:   defaultModel,
		http:    &http.Client{Timeout: 60 * time.Second},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type responseFormat struct {
	Type string `json:"type"`
}

type chatRequest struct {
	Model          string          `json:"model"`
	Messages       []chatMessage   `json:"messages"`
	Temperature    float64         `json:"temperature"`
	ResponseFormat *responseFormat `json:"response_format,omitempty"`
}

type chatResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
		Type    string `json:"type"`
	} `json:"error"`
}

// Complete implements ports.Completer. In JSON mode the response body is
// required to be a JSON object and is returned decoded; otherwise only the
// raw text is filled in.
func (c *Client) Complete(ctx context.Context, req ports.CompletionRequest) (*ports.Completion, error) {
	messages := make([]chatMessage, 0, 2)
	if req.System != "" {
		messages = append(messages, chatMessage{Role: "system", Content: req.System})
	}
	messages = append(messages, chatMessage{Role: "user", Content: req.Prompt})

	payload := chatRequest{
		Model:       c.model,
		Messages:    messages,
		Temperature: textTemperature,
	}
	if req.JSONMode {
		payload.Temperature = jsonTemperature
		payload.ResponseFormat = &responseFormat{Type: "json_object"}
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return nil, &domain.BackendError{Op: "encode request", Err: err}
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/chat/completions", bytes.NewReader(body))
	if err != nil {
		return nil, &domain.BackendError{Op: "build request", Err: err}
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.http.Do(httpReq)
	if err != nil {
		return nil, &domain.BackendError{Op: "chat completion", Err: err}
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, 10<<20))
	if err != nil {
		return nil, &domain.BackendError{Op: "read response", Err: err}
	}

	var parsed chatResponse
	if err := json.Unmarshal(data, &parsed); err != nil {
		return nil, &domain.BackendError{Op: "decode response", Err: fmt.Errorf("status %d: %w", resp.StatusCode, err)}
	}
	if resp.StatusCode != http.StatusOK {
		msg := string(data)
		if parsed.Error != nil {
			msg = parsed.Error.Message
		}
		return nil, &domain.BackendError{Op: "chat completion", Err: fmt.Errorf("status %d: %s", resp.StatusCode, msg)}
	}
	if len(parsed.Choices) == 0 {
		return nil, &domain.BackendError{Op: "chat completion", Err: fmt.Errorf("response has no choices")}
	}

	text := parsed.Choices[0].Message.Content
	result := &ports.Completion{Text: text}
	if req.JSONMode {
		var object map[string]any
		if err := json.Unmarshal([]byte(text), &object); err != nil {
			return nil, &domain.BackendError{Op: "decode completion object", Err: err}
		}
		result.Object = object
	}
	return result, nil
}
