package main

import (
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/Veraticus/crypto-complaints/internal/cfpb"
	"github.com/Veraticus/crypto-complaints/internal/cli"
	"github.com/Veraticus/crypto-complaints/internal/common"
	"github.com/Veraticus/crypto-complaints/internal/ingest"
	"github.com/Veraticus/crypto-complaints/internal/relevance"
	"github.com/Veraticus/crypto-complaints/internal/storage"
	"github.com/spf13/cobra"
)

func fetchCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "fetch",
		Short: "Fetch new complaints and merge them into the record store",
		Long: `Fetch complaints received since the newest stored record (minus an overlap
window), keep the ones about crypto companies, and merge them into the
record store. The store is left untouched when the fetch fails.

When GITHUB_OUTPUT or ci.output_file is set, complaint_count, new_complaints
and file_size_mb are appended to it.`,
		RunE: runFetch,
	}

	cmd.Flags().String("output", "", "record store path (default: data.complaints_file)")
	cmd.Flags().Int("overlap-days", -1, "days to re-fetch before the newest stored record (default: fetch.overlap_days)")
	cmd.Flags().Bool("no-history", false, "do not record this run in the history database")
	cmd.Flags().Bool("progress", true, "show a progress bar")

	return cmd
}

func runFetch(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if output, _ := cmd.Flags().GetString("output"); output != "" {
		cfg.Data.ComplaintsFile = output
	}
	if overlap, _ := cmd.Flags().GetInt("overlap-days"); overlap >= 0 {
		cfg.Fetch.OverlapDays = overlap
	}
	noHistory, _ := cmd.Flags().GetBool("no-history")
	showProgress, _ := cmd.Flags().GetBool("progress")

	client, err := cfpb.NewClient(cfpb.ClientOptions{
		BaseURL:   cfg.Fetch.APIBase,
		UserAgent: cfg.Fetch.UserAgent,
		Companies: cfg.Fetch.Companies,
		PageSize:  cfg.Fetch.PageSize,
		Timeout:   cfg.Fetch.Timeout,
	})
	if err != nil {
		return fmt.Errorf("failed to create API client: %w", err)
	}

	fetchOpts := cfpb.FetcherOptions{
		Retry:        common.FixedRetry(cfg.Fetch.MaxRetries, cfg.Fetch.RetryDelay),
		RequestDelay: cfg.Fetch.RequestDelay,
	}
	var progress *cli.Progress
	if showProgress {
		progress = cli.NewProgress(os.Stderr, -1, "Fetching complaints")
		fetchOpts.OnPage = func(p cfpb.PageProgress) {
			if p.Page == 1 && p.Total > 0 {
				progress.SetTotal(p.Total)
			}
			progress.Add(p.Retrieved)
		}
	}

	store, err := storage.NewRecordStore(cfg.Data.ComplaintsFile)
	if err != nil {
		return err
	}

	pipeline := &ingest.Pipeline{
		Store:       store,
		Fetcher:     cfpb.NewFetcher(client, fetchOpts),
		Filter:      relevance.WithOverrides(cfg.Relevance.PureCompanies, cfg.Relevance.MixedCompanies, cfg.Relevance.SubProducts),
		OverlapDays: cfg.Fetch.OverlapDays,
	}

	if !noHistory {
		history, err := openHistory(ctx, cfg)
		if err != nil {
			slog.Warn("Run history unavailable, continuing without it", "error", err)
		} else {
			defer func() { _ = history.Close() }()
			pipeline.History = history
		}
	}

	interrupts := cli.NewInterruptHandler(os.Stderr)
	ctx, stop := interrupts.HandleInterrupts(ctx, "The record store was left unchanged.")
	defer stop()

	report, err := pipeline.Run(ctx)
	progress.Finish()
	if err != nil {
		if errors.Is(err, common.ErrEmptyFetch) {
			return common.NewUserError("nothing to write: the store is empty and the API returned no complaints", err)
		}
		return fmt.Errorf("fetch failed, %s left unchanged: %w", cfg.Data.ComplaintsFile, err)
	}

	out := cmd.OutOrStdout()
	fmt.Fprintln(out, cli.FormatSuccess(fmt.Sprintf("Saved %d complaints (%d new) to %s",
		report.Total, report.Added, cfg.Data.ComplaintsFile)))
	fmt.Fprintln(out, cli.SubtleStyle.Render(fmt.Sprintf("  fetched %d, kept %d, dropped %d, %.2f MB",
		report.Fetched, report.Relevant, report.Dropped, report.FileSizeMB())))

	if path := ciOutputPath(cfg); path != "" {
		if err := appendCIOutput(path, report.WriteCI); err != nil {
			return err
		}
		slog.Debug("Wrote CI outputs", "path", path)
	}
	return nil
}
