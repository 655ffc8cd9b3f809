package llm

import (
	"context"
	"errors"
	"net/http"
	"strings"
)

const (
	openAIBaseURL = "https://api.openai.com"
	openAIModel   = "gpt-4o-mini"
)

var errNoChoices = errors.New("completion returned no choices")

type openAIClient struct {
	http *http.Client
	opts requestOptions
	url  string
	auth string
}

func newOpenAIClient(cfg Config) (Client, error) {
	opts, err := resolveOptions(cfg, "openai", openAIModel, openAIBaseURL)
	if err != nil {
		return nil, err
	}
	return &openAIClient{
		http: newHTTPClient(cfg.Timeout),
		opts: opts,
		url:  opts.baseURL + "/v1/chat/completions",
		auth: "Bearer " + cfg.APIKey,
	}, nil
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	MaxTokens   int           `json:"max_tokens"`
	Temperature float64       `json:"temperature"`
}

type chatResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
}

// Complete sends prompt after the labeling instructions and returns the first choice.
func (c *openAIClient) Complete(ctx context.Context, prompt string) (string, error) {
	payload := chatRequest{
		Model: c.opts.model,
		Messages: []chatMessage{
			{Role: "system", Content: labelerInstructions},
			{Role: "user", Content: prompt},
		},
		MaxTokens:   c.opts.maxTokens,
		Temperature: c.opts.temperature,
	}

	var reply chatResponse
	if err := postJSON(ctx, c.http, c.url, "openai", map[string]string{"Authorization": c.auth}, payload, &reply); err != nil {
		return "", err
	}
	if len(reply.Choices) == 0 {
		return "", errNoChoices
	}
	return strings.TrimSpace(reply.Choices[0].Message.Content), nil
}
