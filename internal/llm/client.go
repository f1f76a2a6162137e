// Package llm is a minimal OpenAI-compatible chat completions client.
package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// Message is a single chat turn.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Request describes one chat completion call.
type Request struct {
	Messages    []Message
	Model       string
	MaxTokens   int
	Temperature float64
}

// Client talks to an OpenAI-compatible /chat/completions endpoint.
type Client struct {
	APIKey  string
	APIBase string
	Model   string

	HTTPClient *http.Client
}

// NewClient creates a client. APIBase defaults to the OpenAI endpoint and
// model to the given default when the request leaves it empty.
func NewClient(apiKey, apiBase, model string) *Client {
	if apiBase == "" {
		apiBase = "https://api.openai.com/v1"
	}
	return &Client{
		APIKey:  apiKey,
		APIBase: apiBase,
		Model:   model,
		HTTPClient: &http.Client{
			Timeout: 15 * time.Second,
		},
	}
}

type chatRequest struct {
	Model       string    `json:"model"`
	Messages    []Message `json:"messages"`
	MaxTokens   int       `json:"max_tokens,omitempty"`
	Temperature float64   `json:"temperature"`
}

type chatResponse struct {
	Choices []struct {
		Message Message `json:"message"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
		Type    string `json:"type"`
	} `json:"error,omitempty"`
}

// Chat performs a completion call and returns the assistant text.
func (c *Client) Chat(ctx context.Context, req Request) (string, error) {
	if c.APIKey == "" {
		return "", fmt.Errorf("llm: API key not configured")
	}

	model := req.Model
	if model == "" {
		model = c.Model
	}

	body, err := json.Marshal(chatRequest{
		Model:       model,
		Messages:    req.Messages,
		MaxTokens:   req.MaxTokens,
		Temperature: req.Temperature,
	})
	if err != nil {
		return "", fmt.Errorf("llm: marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.APIBase+"/chat/completions", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("llm: build request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+c.APIKey)

	resp, err := c.HTTPClient.Do(httpReq)
	if err != nil {
		return "", fmt.Errorf("llm: request failed: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("llm: read response: %w", err)
	}

	var parsed chatResponse
	if err := json.Unmarshal(data, &parsed); err != nil {
		return "", fmt.Errorf("llm: parse response (status %d): %w", resp.StatusCode, err)
	}
	if parsed.Error != nil {
		return "", fmt.Errorf("llm: API error: %s", parsed.Error.Message)
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("llm: unexpected status %d", resp.StatusCode)
	}
	if len(parsed.Choices) == 0 {
		return "", fmt.Errorf("llm: empty choices")
	}
	return parsed.Choices[0].Message.Content, nil
}
