// Package cfpb fetches complaint records from the consumer complaint search API.
package cfpb

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/Veraticus/crypto-complaints/internal/common"
	"github.com/Veraticus/crypto-complaints/internal/model"
)

// VirtualCurrency is the sub-product always included in the search.
const VirtualCurrency = "Virtual currency"

// PageRequest describes one page of the search.
type PageRequest struct {
	Since       *time.Time
	SearchAfter string
	From        int
}

// PageSource returns one page of search results.
type PageSource interface {
	Page(ctx context.Context, req PageRequest) (model.Envelope, error)
}

// ClientOptions configures a Client.
type ClientOptions struct {
	HTTPClient *http.Client
	BaseURL    string
	UserAgent  string
	Companies  []string
	PageSize   int
	Timeout    time.Duration
}

// Client performs single page requests against the search API.
type Client struct {
	httpClient *http.Client
	baseURL    *url.URL
	userAgent  string
	companies  []string
	pageSize   int
}

// NewClient creates a search API client.
func NewClient(opts ClientOptions) (*Client, error) {
	if opts.BaseURL == "" {
		return nil, fmt.Errorf("%w: base URL", common.ErrMissingConfig)
	}
	base, err := url.Parse(opts.BaseURL)
	if err != nil {
		return nil, fmt.Errorf("invalid base URL: %w", err)
	}

	httpClient := opts.HTTPClient
	if httpClient == nil {
		timeout := opts.Timeout
		if timeout <= 0 {
			timeout = 30 * time.Second
		}
		httpClient = &http.Client{Timeout: timeout}
	}

	pageSize := opts.PageSize
	if pageSize <= 0 {
		pageSize = 100
	}

	return &Client{
		httpClient: httpClient,
		baseURL:    base,
		userAgent:  opts.UserAgent,
		companies:  append([]string(nil), opts.Companies...),
		pageSize:   pageSize,
	}, nil
}

// PageSize returns the number of records requested per page.
func (c *Client) PageSize() int {
	return c.pageSize
}

// URL builds the search URL for a page request.
func (c *Client) URL(req PageRequest) string {
	u := *c.baseURL
	q := u.Query()

	for _, company := range c.companies {
		q.Add("company", company)
	}
	q.Add("sub_product", VirtualCurrency)

	q.Set("size", strconv.Itoa(c.pageSize))
	q.Set("sort", "created_date_desc")

	if req.Since != nil {
		q.Set("date_received_min", req.Since.Format(model.DateLayout))
	}
	if req.From > 0 {
		q.Set("frm", strconv.Itoa(req.From))
	}
	if req.SearchAfter != "" {
		q.Set("search_after", req.SearchAfter)
	}

	u.RawQuery = q.Encode()
	return u.String()
}

// Page performs exactly one request. Transport failures, non-2xx statuses and
// undecodable bodies are all returned as errors.
func (c *Client) Page(ctx context.Context, req PageRequest) (model.Envelope, error) {
	u := c.URL(req)

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return model.Envelope{}, fmt.Errorf("failed to create request: %w", err)
	}
	httpReq.Header.Set("Accept", "application/json")
	if c.userAgent != "" {
		httpReq.Header.Set("User-Agent", c.userAgent)
	}

	slog.Debug("Requesting complaint page",
		"from", req.From,
		"search_after", req.SearchAfter)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return model.Envelope{}, fmt.Errorf("failed to fetch page: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return model.Envelope{}, fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return model.Envelope{}, &common.HTTPStatusError{
			StatusCode: resp.StatusCode,
			Status:     resp.Status,
			Body:       truncate(string(body), 200),
		}
	}

	return DecodePage(body)
}

// DecodePage decodes either the paginated envelope or a bare array of hits.
// A bare array is treated as one complete page whose total is its length.
func DecodePage(body []byte) (model.Envelope, error) {
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) == 0 {
		return model.Envelope{}, fmt.Errorf("empty response body")
	}

	if trimmed[0] == '[' {
		var hits []model.Hit
		if err := json.Unmarshal(trimmed, &hits); err != nil {
			return model.Envelope{}, fmt.Errorf("failed to decode response: %w", err)
		}
		return model.NewEnvelope(hits), nil
	}

	var env model.Envelope
	if err := json.Unmarshal(trimmed, &env); err != nil {
		return model.Envelope{}, fmt.Errorf("failed to decode response: %w", err)
	}
	return env, nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
