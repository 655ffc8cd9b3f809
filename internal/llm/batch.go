package llm

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/Veraticus/crypto-complaints/internal/common"
	"github.com/Veraticus/crypto-complaints/internal/model"
)

// Batch classification defaults.
const (
	DefaultBatchSize    = 10
	DefaultRateLimit    = 15
	DefaultMaxNarrative = 1500
	DefaultMaxAttempts  = 3
	DefaultRetryDelay   = 5 * time.Second
)

// BatchProgress is reported after every batch, successful or not.
type BatchProgress struct {
	Batch   int
	Batches int
	// Size is the number of complaints sent in the batch.
	Size       int
	Classified int
	Failed     bool
}

// BatchOptions configures a BatchClassifier.
type BatchOptions struct {
	// Save persists the cache. It is called after every batch that added labels.
	Save    func(map[string]model.CategoryLabel) error
	OnBatch func(BatchProgress)
	Retry   common.RetryOptions
	// RateLimit is the number of model requests allowed per minute.
	RateLimit    int
	BatchSize    int
	MaxNarrative int
}

// Summary reports the outcome of one Run.
type Summary struct {
	Pending       int
	Batches       int
	Classified    int
	Skipped       int
	FailedBatches int
	CacheSize     int
}

// BatchClassifier labels unclassified complaints in fixed-size batches.
type BatchClassifier struct {
	client  Client
	limiter *rateLimiter
	opts    BatchOptions
}

// NewBatchClassifier creates a classifier. Call Close when done.
func NewBatchClassifier(client Client, opts BatchOptions) *BatchClassifier {
	if opts.BatchSize <= 0 {
		opts.BatchSize = DefaultBatchSize
	}
	if opts.RateLimit <= 0 {
		opts.RateLimit = DefaultRateLimit
	}
	if opts.MaxNarrative <= 0 {
		opts.MaxNarrative = DefaultMaxNarrative
	}
	if opts.Retry.MaxAttempts <= 0 {
		opts.Retry.MaxAttempts = DefaultMaxAttempts
	}
	if opts.Retry.InitialDelay == 0 {
		opts.Retry.InitialDelay = DefaultRetryDelay
		opts.Retry.Strategy = common.BackoffLinear
	}
	if opts.Retry.MaxDelay == 0 {
		opts.Retry.MaxDelay = opts.Retry.InitialDelay * time.Duration(opts.Retry.MaxAttempts)
	}
	if opts.Retry.Name == "" {
		opts.Retry.Name = "classification batch"
	}

	return &BatchClassifier{
		client:  client,
		limiter: newRateLimiter(opts.RateLimit, 1),
		opts:    opts,
	}
}

// Close releases the rate limiter.
func (b *BatchClassifier) Close() {
	b.limiter.Close()
}

// Pending returns the complaints with a usable narrative and no cached label.
func Pending(records []model.ComplaintRecord, cache map[string]model.CategoryLabel) []model.ComplaintRecord {
	var out []model.ComplaintRecord
	for _, r := range records {
		if r.ID == "" || !r.HasUsableNarrative() {
			continue
		}
		if _, done := cache[r.ID]; done {
			continue
		}
		out = append(out, r)
	}
	return out
}

// Run classifies every pending complaint and adds the results to cache. A batch
// that still fails after its retries is skipped. Run stops early when the context
// is canceled, when the provider rejects the request outright, or when saving
// fails.
func (b *BatchClassifier) Run(ctx context.Context, records []model.ComplaintRecord, cache map[string]model.CategoryLabel) (Summary, error) {
	pending := Pending(records, cache)
	summary := Summary{Pending: len(pending), CacheSize: len(cache)}
	if len(pending) == 0 {
		slog.Info("Nothing to classify")
		return summary, nil
	}

	batches := chunk(pending, b.opts.BatchSize)
	summary.Batches = len(batches)
	slog.Info("Classifying complaints",
		"pending", len(pending),
		"batches", len(batches),
		"batch_size", b.opts.BatchSize)

	for i, batch := range batches {
		if err := ctx.Err(); err != nil {
			return summary, err
		}

		labels, skipped, err := b.classifyBatch(ctx, batch)
		summary.Skipped += skipped

		if err != nil {
			if ctx.Err() != nil {
				return summary, ctx.Err()
			}
			if isPermanent(err) {
				return summary, fmt.Errorf("%w: %w", common.ErrClassificationFailed, err)
			}
			slog.Error("All retries failed for batch, skipping", "batch", i+1, "error", err)
			summary.FailedBatches++
			b.report(BatchProgress{Batch: i + 1, Batches: len(batches), Size: len(batch), Failed: true})
			continue
		}

		for id, label := range labels {
			cache[id] = label
		}
		summary.Classified += len(labels)
		summary.CacheSize = len(cache)

		if len(labels) > 0 && b.opts.Save != nil {
			if err := b.opts.Save(cache); err != nil {
				return summary, fmt.Errorf("failed to save classifications: %w", err)
			}
		}

		slog.Debug("Classified batch",
			"batch", i+1,
			"classified", len(labels),
			"size", len(batch),
			"total_new", summary.Classified)
		b.report(BatchProgress{Batch: i + 1, Batches: len(batches), Size: len(batch), Classified: len(labels)})
	}

	slog.Info("Classification complete",
		"classified", summary.Classified,
		"failed_batches", summary.FailedBatches,
		"total", summary.CacheSize)
	return summary, nil
}

func (b *BatchClassifier) classifyBatch(ctx context.Context, batch []model.ComplaintRecord) (map[string]model.CategoryLabel, int, error) {
	want := make(map[string]bool, len(batch))
	for _, r := range batch {
		want[r.ID] = true
	}
	prompt := buildPrompt(batch, b.opts.MaxNarrative)

	type parsed struct {
		labels  map[string]model.CategoryLabel
		skipped int
	}
	outcome := common.Retry(ctx, b.opts.Retry, func(ctx context.Context) (parsed, error) {
		if err := b.limiter.wait(ctx); err != nil {
			return parsed{}, &common.RetryableError{Err: err, Retryable: false}
		}
		reply, err := b.client.Complete(ctx, prompt)
		if err != nil {
			return parsed{}, err
		}
		labels, skipped, err := parseLabels(reply, want)
		if err != nil {
			return parsed{}, err
		}
		return parsed{labels: labels, skipped: skipped}, nil
	})
	if !outcome.OK() {
		if errors.Is(outcome.Err, context.Canceled) || errors.Is(outcome.Err, context.DeadlineExceeded) {
			return nil, 0, ctx.Err()
		}
		return nil, 0, outcome.Err
	}
	return outcome.Value.labels, outcome.Value.skipped, nil
}

func (b *BatchClassifier) report(p BatchProgress) {
	if b.opts.OnBatch != nil {
		b.opts.OnBatch(p)
	}
}

func chunk(records []model.ComplaintRecord, size int) [][]model.ComplaintRecord {
	var out [][]model.ComplaintRecord
	for start := 0; start < len(records); start += size {
		end := start + size
		if end > len(records) {
			end = len(records)
		}
		out = append(out, records[start:end])
	}
	return out
}

var labelDescriptions = []struct {
	label model.CategoryLabel
	desc  string
}{
	{model.LabelLockedAccount, "Account access issues (locked, frozen, suspended, can't log in)"},
	{model.LabelVerification, "KYC or identity verification problems (documents, selfie, ID rejected)"},
	{model.LabelWithdrawal, "Cannot withdraw or transfer funds out"},
	{model.LabelCustomerService, "Poor support, no response, long wait times"},
	{model.LabelFraud, "Scams, unauthorized transactions, hacking, stolen funds, phishing"},
	{model.LabelFees, "Unexpected fees, hidden charges, overcharging"},
	{model.LabelOther, "Does not fit any category above"},
}

func buildPrompt(batch []model.ComplaintRecord, maxNarrative int) string {
	var sb strings.Builder
	sb.WriteString("You are classifying consumer complaints about cryptocurrency companies.\n\n")
	sb.WriteString("Assign each complaint exactly ONE category:\n")
	for _, d := range labelDescriptions {
		fmt.Fprintf(&sb, "- %s: %s\n", d.label, d.desc)
	}
	sb.WriteString("\nChoose the PRIMARY issue, not incidental mentions. A customer who was scammed ")
	sb.WriteString("and then had their account closed is \"fraud\", not \"locked_account\".\n\n")
	sb.WriteString("Return ONLY a JSON object with no markdown formatting:\n")
	sb.WriteString("{\"<complaint_id>\": \"<category>\", ...}\n\n")

	for i, r := range batch {
		if i > 0 {
			sb.WriteString("\n\n---\n\n")
		}
		fmt.Fprintf(&sb, "Complaint %d (ID: %s):\n%s", i+1, r.ID, truncateRunes(r.Narrative, maxNarrative))
	}
	return sb.String()
}

func truncateRunes(s string, limit int) string {
	if len(s) <= limit {
		return s
	}
	runes := []rune(s)
	if len(runes) <= limit {
		return s
	}
	return string(runes[:limit])
}
