package llm

import (
	"context"
	"errors"
	"net/http"
	"strings"
)

const (
	anthropicBaseURL = "https://api.anthropic.com"
	anthropicModel   = "claude-3-haiku-20240307"
	anthropicVersion = "2023-06-01"
)

var errEmptyMessage = errors.New("message has no text content")

type anthropicClient struct {
	http *http.Client
	opts requestOptions
	url  string
	key  string
}

func newAnthropicClient(cfg Config) (Client, error) {
	opts, err := resolveOptions(cfg, "anthropic", anthropicModel, anthropicBaseURL)
	if err != nil {
		return nil, err
	}
	return &anthropicClient{
		http: newHTTPClient(cfg.Timeout),
		opts: opts,
		url:  opts.baseURL + "/v1/messages",
		key:  cfg.APIKey,
	}, nil
}

type messagesRequest struct {
	Model       string        `json:"model"`
	System      string        `json:"system"`
	Messages    []chatMessage `json:"messages"`
	MaxTokens   int           `json:"max_tokens"`
	Temperature float64       `json:"temperature"`
}

type messagesResponse struct {
	Content []struct {
		Type string `json:"type"`
		Text string `json:"text"`
	} `json:"content"`
}

// Complete sends prompt as a single user turn and returns the first text block.
func (c *anthropicClient) Complete(ctx context.Context, prompt string) (string, error) {
	payload := messagesRequest{
		Model:       c.opts.model,
		System:      labelerInstructions,
		Messages:    []chatMessage{{Role: "user", Content: prompt}},
		MaxTokens:   c.opts.maxTokens,
		Temperature: c.opts.temperature,
	}
	headers := map[string]string{
		"x-api-key":         c.key,
		"anthropic-version": anthropicVersion,
	}

	var reply messagesResponse
	if err := postJSON(ctx, c.http, c.url, "anthropic", headers, payload, &reply); err != nil {
		return "", err
	}
	for _, block := range reply.Content {
		if block.Type == "" || block.Type == "text" {
			return strings.TrimSpace(block.Text), nil
		}
	}
	return "", errEmptyMessage
}
