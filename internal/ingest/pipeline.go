// Package ingest runs one fetch, filter, merge and persist cycle against the
// record store.
package ingest

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sort"
	"time"

	"github.com/Veraticus/crypto-complaints/internal/cfpb"
	"github.com/Veraticus/crypto-complaints/internal/common"
	"github.com/Veraticus/crypto-complaints/internal/model"
	"github.com/Veraticus/crypto-complaints/internal/relevance"
	"github.com/Veraticus/crypto-complaints/internal/storage"
)

// DefaultOverlapDays is how far before the newest stored record an incremental
// fetch starts, so late-published records inside that window are picked up.
const DefaultOverlapDays = 7

// Store loads and persists the record store.
type Store interface {
	Load() (*storage.Dataset, error)
	Save(ds *storage.Dataset) (int64, error)
}

// Fetcher retrieves complaints received on or after since.
type Fetcher interface {
	Fetch(ctx context.Context, since *time.Time) (cfpb.Result, error)
}

// History records the outcome of each run.
type History interface {
	RecordRun(ctx context.Context, run storage.Run) (string, error)
}

// Pipeline wires the ingestion stages together.
type Pipeline struct {
	Store   Store
	Fetcher Fetcher
	Filter  *relevance.Filter
	// History is optional.
	History     History
	Clock       func() time.Time
	OverlapDays int
}

// Report summarizes one run.
type Report struct {
	Since    *time.Time
	RunID    string
	Existing int
	Fetched  int
	Relevant int
	Dropped  int
	Added    int
	Total    int
	FileSize int64
	Written  bool
}

// FileSizeMB returns the written file size in megabytes.
func (r Report) FileSizeMB() float64 {
	return float64(r.FileSize) / (1024 * 1024)
}

// WriteCI writes the report as key=value lines for a CI step output file.
func (r Report) WriteCI(w io.Writer) error {
	_, err := fmt.Fprintf(w, "complaint_count=%d\nnew_complaints=%d\nfile_size_mb=%.2f\n",
		r.Total, r.Added, r.FileSizeMB())
	return err
}

// Run executes the pipeline. Nothing is written when the fetch fails or when both
// the store and the fetch are empty.
func (p *Pipeline) Run(ctx context.Context) (Report, error) {
	started := p.now()
	report, err := p.run(ctx)
	report.RunID = p.record(ctx, started, report, err)
	return report, err
}

func (p *Pipeline) run(ctx context.Context) (Report, error) {
	var report Report

	ds, err := p.Store.Load()
	if err != nil {
		return report, fmt.Errorf("failed to load record store: %w", err)
	}
	report.Existing = ds.Len()
	report.Total = ds.Len()

	report.Since = p.since(ds)

	result, err := p.Fetcher.Fetch(ctx, report.Since)
	report.Fetched = len(result.Hits)
	if err != nil {
		return report, fmt.Errorf("fetch failed after %d complaints, store left unchanged: %w", len(result.Hits), err)
	}

	if report.Existing == 0 && report.Fetched == 0 {
		return report, common.ErrEmptyFetch
	}

	kept, stats := p.Filter.Apply(result.Hits)
	report.Relevant = stats.Kept
	report.Dropped = stats.Dropped
	p.logUnknown(stats.Unknown)

	report.Added = ds.Merge(kept)
	report.Total = ds.Len()

	size, err := p.Store.Save(ds)
	if err != nil {
		return report, fmt.Errorf("failed to save record store: %w", err)
	}
	report.FileSize = size
	report.Written = true

	slog.Info("Record store updated",
		"fetched", report.Fetched,
		"relevant", report.Relevant,
		"dropped", report.Dropped,
		"added", report.Added,
		"total", report.Total)

	return report, nil
}

// since returns the incremental start date, or nil for a full fetch.
func (p *Pipeline) since(ds *storage.Dataset) *time.Time {
	latest, ok := ds.LatestDate()
	if !ok {
		slog.Info("No dated records in store, performing full fetch")
		return nil
	}

	overlap := p.OverlapDays
	if overlap < 0 {
		overlap = 0
	}
	since := latest.AddDate(0, 0, -overlap)
	since = time.Date(since.Year(), since.Month(), since.Day(), 0, 0, 0, 0, time.UTC)

	slog.Info("Performing incremental fetch",
		"latest", latest.Format(model.DateLayout),
		"since", since.Format(model.DateLayout),
		"overlap_days", overlap)
	return &since
}

func (p *Pipeline) logUnknown(unknown map[string]int) {
	if len(unknown) == 0 {
		return
	}
	companies := make([]string, 0, len(unknown))
	for company := range unknown {
		companies = append(companies, company)
	}
	sort.Strings(companies)

	for _, company := range companies {
		attrs := []any{"company", company, "count", unknown[company]}
		if suggestion, ok := p.Filter.Suggest(company); ok {
			attrs = append(attrs, "did_you_mean", suggestion)
		}
		slog.Warn("Kept complaints from company on neither allow-list", attrs...)
	}
}

func (p *Pipeline) record(ctx context.Context, started time.Time, report Report, runErr error) string {
	if p.History == nil {
		return ""
	}

	run := storage.Run{
		StartedAt:  started,
		FinishedAt: p.now(),
		Since:      report.Since,
		Status:     storage.RunSucceeded,
		Fetched:    report.Fetched,
		Relevant:   report.Relevant,
		Added:      report.Added,
		Total:      report.Total,
	}
	if runErr != nil {
		run.Status = storage.RunFailed
		run.Error = runErr.Error()
	}

	// A cancelled run is still recorded.
	id, err := p.History.RecordRun(context.WithoutCancel(ctx), run)
	if err != nil {
		slog.Warn("Failed to record run history", "error", err)
		return ""
	}
	slog.Debug("Recorded run", "id", id, "status", run.Status)
	return id
}

func (p *Pipeline) now() time.Time {
	if p.Clock != nil {
		return p.Clock()
	}
	return time.Now()
}
