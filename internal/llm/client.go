package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/Veraticus/crypto-complaints/internal/common"
)

// Client defines the interface for LLM providers.
type Client interface {
	// Complete sends a single user prompt and returns the model's text reply.
	Complete(ctx context.Context, prompt string) (string, error)
}

// Config holds configuration for an LLM client.
type Config struct {
	Provider    string
	APIKey      string
	Model       string
	BaseURL     string
	Timeout     time.Duration
	Temperature float64
	MaxTokens   int
}

const defaultMaxTokens = 1024

// labelerInstructions keeps replies machine-readable for parseLabels.
const labelerInstructions = "You label consumer complaints about cryptocurrency companies. " +
	"Reply with only a JSON object mapping each complaint id to one label. No prose, no markdown."

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// requestOptions are the per-provider settings after defaults are applied.
type requestOptions struct {
	model       string
	baseURL     string
	temperature float64
	maxTokens   int
}

func resolveOptions(cfg Config, provider, model, baseURL string) (requestOptions, error) {
	if cfg.APIKey == "" {
		return requestOptions{}, fmt.Errorf("%s: %w: API key", provider, common.ErrMissingConfig)
	}
	opts := requestOptions{
		model:       cfg.Model,
		baseURL:     strings.TrimRight(cfg.BaseURL, "/"),
		temperature: cfg.Temperature,
		maxTokens:   cfg.MaxTokens,
	}
	if opts.model == "" {
		opts.model = model
	}
	if opts.baseURL == "" {
		opts.baseURL = baseURL
	}
	if opts.maxTokens <= 0 {
		opts.maxTokens = defaultMaxTokens
	}
	return opts, nil
}

// postJSON posts payload to url and decodes a successful reply into out.
func postJSON(ctx context.Context, client *http.Client, url, provider string, headers map[string]string, payload, out any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("encode %s request: %w", provider, err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build %s request: %w", provider, err)
	}
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	raw, err := doRequest(client, req, provider)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("decode %s reply: %w", provider, err)
	}
	return nil
}

func newHTTPClient(timeout time.Duration) *http.Client {
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	return &http.Client{
		Timeout: timeout,
		Transport: &http.Transport{
			MaxIdleConns:        100,
			MaxIdleConnsPerHost: 10,
			IdleConnTimeout:     90 * time.Second,
		},
	}
}

// doRequest sends req and returns the body of a 200 response. Rate limiting maps
// to common.ErrRateLimit; other client errors are not retryable.
func doRequest(client *http.Client, req *http.Request, provider string) ([]byte, error) {
	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode == http.StatusOK {
		return body, nil
	}

	statusErr := &common.HTTPStatusError{
		StatusCode: resp.StatusCode,
		Status:     resp.Status,
		Body:       string(body),
	}
	switch {
	case resp.StatusCode == http.StatusTooManyRequests:
		return nil, fmt.Errorf("%s API: %w: %w", provider, common.ErrRateLimit, statusErr)
	case resp.StatusCode >= 400 && resp.StatusCode < 500:
		return nil, &common.RetryableError{
			Err:       fmt.Errorf("%s API error: %w", provider, statusErr),
			Retryable: false,
		}
	default:
		return nil, fmt.Errorf("%s API error: %w", provider, statusErr)
	}
}

// isPermanent reports whether err will fail the same way on every request.
func isPermanent(err error) bool {
	var retryable *common.RetryableError
	return errors.As(err, &retryable) && !retryable.Retryable
}
