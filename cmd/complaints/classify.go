package main

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/Veraticus/crypto-complaints/internal/cli"
	"github.com/Veraticus/crypto-complaints/internal/common"
	"github.com/Veraticus/crypto-complaints/internal/llm"
	"github.com/Veraticus/crypto-complaints/internal/model"
	"github.com/Veraticus/crypto-complaints/internal/storage"
	"github.com/spf13/cobra"
)

func classifyCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "classify",
		Short: "Label unclassified complaints with an LLM",
		Long: `Send complaints that have a narrative but no cached label to the configured
language model in small batches, and store the labels in the
classifications file. The file is saved after every batch, so an
interrupted run resumes where it stopped.`,
		RunE: runClassify,
	}

	cmd.Flags().Int("limit", 0, "classify at most this many complaints (0 for all)")
	cmd.Flags().Bool("dry-run", false, "report how many complaints are pending without calling the model")
	cmd.Flags().Bool("progress", true, "show a progress bar")

	return cmd
}

func runClassify(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	limit, _ := cmd.Flags().GetInt("limit")
	dryRun, _ := cmd.Flags().GetBool("dry-run")
	showProgress, _ := cmd.Flags().GetBool("progress")

	store, err := storage.NewRecordStore(cfg.Data.ComplaintsFile)
	if err != nil {
		return err
	}
	ds, err := store.Load()
	if err != nil {
		return err
	}
	if ds.Len() == 0 {
		return common.NewUserError("no complaints to classify, run fetch first", common.ErrEmptyFetch)
	}

	cache, err := storage.LoadClassifications(cfg.Data.ClassificationsFile)
	if err != nil {
		return err
	}

	records := ds.Records()
	pending := llm.Pending(records, cache)
	if limit > 0 && len(pending) > limit {
		pending = pending[:limit]
	}

	out := cmd.OutOrStdout()
	if dryRun || len(pending) == 0 {
		fmt.Fprintln(out, cli.FormatInfo(fmt.Sprintf("%d complaints pending, %d already classified",
			len(pending), len(cache))))
		return nil
	}

	apiKey, err := resolveAPIKey(cfg.LLM.Provider, cfg.LLM.APIKey)
	if err != nil {
		return err
	}
	client, err := llm.NewClient(llm.Config{
		Provider: cfg.LLM.Provider,
		APIKey:   apiKey,
		Model:    cfg.LLM.Model,
	})
	if err != nil {
		return fmt.Errorf("failed to create LLM client: %w", err)
	}

	opts := llm.BatchOptions{
		BatchSize: cfg.LLM.BatchSize,
		RateLimit: cfg.LLM.RateLimit,
		Retry: common.RetryOptions{
			MaxAttempts:  cfg.LLM.MaxRetries,
			InitialDelay: cfg.LLM.RetryDelay,
			Strategy:     common.BackoffLinear,
		},
		Save: func(labels map[string]model.CategoryLabel) error {
			return storage.SaveClassifications(cfg.Data.ClassificationsFile, labels)
		},
	}

	var progress *cli.Progress
	if showProgress {
		progress = cli.NewProgress(os.Stderr, len(pending), cli.RobotIcon+" Classifying complaints")
		opts.OnBatch = func(p llm.BatchProgress) {
			progress.Add(p.Size)
		}
	}

	classifier := llm.NewBatchClassifier(client, opts)
	defer classifier.Close()

	interrupts := cli.NewInterruptHandler(os.Stderr)
	ctx, stop := interrupts.HandleInterrupts(cmd.Context(), "Progress has been saved. Run classify again to resume.")
	defer stop()

	summary, err := classifier.Run(ctx, pending, cache)
	progress.Finish()
	if err != nil {
		if interrupts.WasInterrupted() && errors.Is(err, context.Canceled) {
			return nil
		}
		return err
	}

	fmt.Fprintln(out, cli.FormatSuccess(fmt.Sprintf("Classified %d complaints (%d cached in total)",
		summary.Classified, summary.CacheSize)))
	if summary.FailedBatches > 0 || summary.Skipped > 0 {
		fmt.Fprintln(out, cli.FormatWarning(fmt.Sprintf("%d batches failed and %d labels were rejected, run classify again to retry",
			summary.FailedBatches, summary.Skipped)))
	}
	return nil
}
