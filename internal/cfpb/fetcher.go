package cfpb

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/Veraticus/crypto-complaints/internal/common"
	"github.com/Veraticus/crypto-complaints/internal/model"
)

// PageProgress is reported after every successful page.
type PageProgress struct {
	Page      int
	Retrieved int
	Fetched   int
	Total     int
}

// FetcherOptions configures pagination and retry behavior.
type FetcherOptions struct {
	Retry        common.RetryOptions
	RequestDelay time.Duration
	// OnPage, when set, is called after every non-empty page.
	OnPage func(PageProgress)
}

// Result is the ordered list of hits retrieved by one fetch run.
type Result struct {
	Hits          []model.Hit
	Pages         int
	ExpectedTotal int
}

// Fetcher paginates the search API one page at a time.
type Fetcher struct {
	source PageSource
	opts   FetcherOptions
}

// NewFetcher creates a fetcher over the given page source.
func NewFetcher(source PageSource, opts FetcherOptions) *Fetcher {
	if opts.Retry.Name == "" {
		opts.Retry.Name = "complaint page"
	}
	return &Fetcher{source: source, opts: opts}
}

// Fetch retrieves every record received on or after since (all records when since
// is nil). It stops on an empty page or once the total reported by the first page
// has been retrieved. If a page still fails after its retries, the pages retrieved
// so far are returned alongside the error.
func (f *Fetcher) Fetch(ctx context.Context, since *time.Time) (Result, error) {
	mode := "full"
	if since != nil {
		mode = "incremental"
	}
	slog.Info("Starting complaint fetch", "mode", mode, "since", formatSince(since))

	var (
		result   Result
		cursor   string
		expected = -1
	)

	for {
		req := PageRequest{
			Since:       since,
			SearchAfter: cursor,
			From:        len(result.Hits),
		}

		outcome := common.Retry(ctx, f.opts.Retry, func(ctx context.Context) (model.Envelope, error) {
			return f.source.Page(ctx, req)
		})
		if !outcome.OK() {
			return result, fmt.Errorf("%w: page %d: %w", common.ErrPageFailed, result.Pages+1, outcome.Err)
		}

		page := outcome.Value
		result.Pages++

		if expected < 0 {
			expected = page.Hits.Total.Value
			result.ExpectedTotal = expected
			slog.Info("Complaints available", "total", expected)
		}

		hits := page.Hits.Hits
		if len(hits) == 0 {
			slog.Debug("Empty page, pagination complete", "page", result.Pages)
			break
		}

		result.Hits = append(result.Hits, hits...)
		cursor = hits[len(hits)-1].SortKey()

		slog.Debug("Fetched complaint page",
			"page", result.Pages,
			"retrieved", len(hits),
			"running_total", len(result.Hits),
			"expected", expected)

		if f.opts.OnPage != nil {
			f.opts.OnPage(PageProgress{
				Page:      result.Pages,
				Retrieved: len(hits),
				Fetched:   len(result.Hits),
				Total:     expected,
			})
		}

		if len(result.Hits) >= expected {
			slog.Debug("Reached expected total, stopping", "fetched", len(result.Hits))
			break
		}

		if err := common.Sleep(ctx, f.opts.RequestDelay); err != nil {
			return result, err
		}
	}

	slog.Info("Complaint fetch complete", "fetched", len(result.Hits), "pages", result.Pages)
	return result, nil
}

func formatSince(since *time.Time) string {
	if since == nil {
		return "none"
	}
	return since.Format(model.DateLayout)
}
