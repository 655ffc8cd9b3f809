package llm

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/Veraticus/crypto-complaints/internal/common"
	"github.com/Veraticus/crypto-complaints/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var promptID = regexp.MustCompile(`\(ID: ([^)]+)\)`)

// fakeClient labels every complaint in the prompt with label, after failing the
// configured number of calls.
type fakeClient struct {
	err      error
	label    string
	prompts  []string
	failures int
	mu       sync.Mutex
}

func (f *fakeClient) Complete(_ context.Context, prompt string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.prompts = append(f.prompts, prompt)

	if f.err != nil {
		return "", f.err
	}
	if f.failures > 0 {
		f.failures--
		return "Sorry, I had trouble with that.", nil
	}

	var parts []string
	for _, m := range promptID.FindAllStringSubmatch(prompt, -1) {
		parts = append(parts, fmt.Sprintf("%q: %q", m[1], f.label))
	}
	return "Here are the results:\n```json\n{" + strings.Join(parts, ", ") + "}\n```", nil
}

func records(n int) []model.ComplaintRecord {
	out := make([]model.ComplaintRecord, n)
	for i := range out {
		out[i] = model.ComplaintRecord{
			ID:        fmt.Sprintf("c%d", i),
			Narrative: strings.Repeat("My withdrawal has been pending for weeks. ", 3),
		}
	}
	return out
}

func testOptions() BatchOptions {
	return BatchOptions{
		RateLimit: 60000,
		Retry: common.RetryOptions{
			MaxAttempts:  3,
			InitialDelay: time.Millisecond,
			Strategy:     common.BackoffLinear,
		},
	}
}

func TestPending(t *testing.T) {
	recs := []model.ComplaintRecord{
		{ID: "short", Narrative: "too short"},
		{ID: "done", Narrative: strings.Repeat("x", 60)},
		{ID: "todo", Narrative: strings.Repeat("x", 60)},
		{Narrative: strings.Repeat("x", 60)},
	}

	got := Pending(recs, map[string]model.CategoryLabel{"done": model.LabelFees})

	require.Len(t, got, 1)
	assert.Equal(t, "todo", got[0].ID)
}

func TestBatchClassifier_Run(t *testing.T) {
	client := &fakeClient{label: "withdrawal"}
	var saves []int
	opts := testOptions()
	opts.Save = func(cache map[string]model.CategoryLabel) error {
		saves = append(saves, len(cache))
		return nil
	}
	var progress []BatchProgress
	opts.OnBatch = func(p BatchProgress) { progress = append(progress, p) }

	bc := NewBatchClassifier(client, opts)
	defer bc.Close()

	cache := map[string]model.CategoryLabel{"c0": model.LabelFraud}
	summary, err := bc.Run(context.Background(), records(25), cache)
	require.NoError(t, err)

	assert.Equal(t, 24, summary.Pending)
	assert.Equal(t, 3, summary.Batches)
	assert.Equal(t, 24, summary.Classified)
	assert.Equal(t, 25, summary.CacheSize)
	assert.Equal(t, model.LabelFraud, cache["c0"], "existing entries are kept")
	assert.Equal(t, model.LabelWithdrawal, cache["c24"])
	assert.Equal(t, []int{11, 21, 25}, saves)
	assert.Len(t, progress, 3)
	assert.Len(t, client.prompts, 3)
}

func TestBatchClassifier_RetriesThenSucceeds(t *testing.T) {
	client := &fakeClient{label: "fees", failures: 2}
	bc := NewBatchClassifier(client, testOptions())
	defer bc.Close()

	cache := map[string]model.CategoryLabel{}
	summary, err := bc.Run(context.Background(), records(3), cache)
	require.NoError(t, err)

	assert.Equal(t, 3, summary.Classified)
	assert.Equal(t, 0, summary.FailedBatches)
	assert.Len(t, client.prompts, 3)
}

func TestBatchClassifier_SkipsFailedBatch(t *testing.T) {
	client := &fakeClient{label: "fees", failures: 3}
	saved := 0
	opts := testOptions()
	opts.BatchSize = 2
	opts.Save = func(map[string]model.CategoryLabel) error {
		saved++
		return nil
	}
	bc := NewBatchClassifier(client, opts)
	defer bc.Close()

	cache := map[string]model.CategoryLabel{}
	summary, err := bc.Run(context.Background(), records(4), cache)
	require.NoError(t, err)

	assert.Equal(t, 1, summary.FailedBatches)
	assert.Equal(t, 2, summary.Classified)
	assert.NotContains(t, cache, "c0")
	assert.Contains(t, cache, "c2")
	assert.Equal(t, 1, saved)
}

func TestBatchClassifier_InvalidLabelsSkipped(t *testing.T) {
	client := &fakeClient{label: "weather"}
	saved := false
	opts := testOptions()
	opts.Save = func(map[string]model.CategoryLabel) error {
		saved = true
		return nil
	}
	bc := NewBatchClassifier(client, opts)
	defer bc.Close()

	cache := map[string]model.CategoryLabel{}
	summary, err := bc.Run(context.Background(), records(2), cache)
	require.NoError(t, err)

	assert.Equal(t, 0, summary.Classified)
	assert.Equal(t, 2, summary.Skipped)
	assert.Empty(t, cache)
	assert.False(t, saved, "nothing to save")
}

func TestBatchClassifier_PermanentErrorStops(t *testing.T) {
	client := &fakeClient{err: &common.RetryableError{Err: errors.New("401"), Retryable: false}}
	bc := NewBatchClassifier(client, testOptions())
	defer bc.Close()

	_, err := bc.Run(context.Background(), records(25), map[string]model.CategoryLabel{})
	require.ErrorIs(t, err, common.ErrClassificationFailed)
	assert.Len(t, client.prompts, 1)
}

func TestBatchClassifier_SaveError(t *testing.T) {
	opts := testOptions()
	opts.Save = func(map[string]model.CategoryLabel) error { return errors.New("disk full") }
	bc := NewBatchClassifier(&fakeClient{label: "fees"}, opts)
	defer bc.Close()

	_, err := bc.Run(context.Background(), records(1), map[string]model.CategoryLabel{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "disk full")
}

func TestBatchClassifier_Canceled(t *testing.T) {
	bc := NewBatchClassifier(&fakeClient{label: "fees"}, testOptions())
	defer bc.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := bc.Run(ctx, records(3), map[string]model.CategoryLabel{})
	require.ErrorIs(t, err, context.Canceled)
}

func TestBuildPrompt(t *testing.T) {
	long := strings.Repeat("é", 2000)
	prompt := buildPrompt([]model.ComplaintRecord{
		{ID: "101", Narrative: long},
		{ID: "102", Narrative: "short one"},
	}, 1500)

	assert.Contains(t, prompt, "Complaint 1 (ID: 101):")
	assert.Contains(t, prompt, "Complaint 2 (ID: 102):\nshort one")
	assert.Contains(t, prompt, "\n\n---\n\n")
	assert.Equal(t, 1500, strings.Count(prompt, "é"))
	for _, label := range model.CategoryLabels() {
		assert.Contains(t, prompt, "- "+string(label)+":")
	}
}
