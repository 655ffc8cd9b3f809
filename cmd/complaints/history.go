package main

import (
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/Veraticus/crypto-complaints/internal/cli"
	"github.com/Veraticus/crypto-complaints/internal/model"
	"github.com/Veraticus/crypto-complaints/internal/storage"
	"github.com/spf13/cobra"
)

func historyCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show recent fetch runs",
		RunE:  runHistory,
	}

	cmd.Flags().IntP("limit", "n", 20, "number of runs to show")

	return cmd
}

func runHistory(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()
	limit, _ := cmd.Flags().GetInt("limit")

	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	history, err := openHistory(ctx, cfg)
	if err != nil {
		return err
	}
	defer func() { _ = history.Close() }()

	runs, err := history.ListRuns(ctx, limit)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if len(runs) == 0 {
		fmt.Fprintln(out, cli.FormatInfo("No fetch runs recorded yet"))
		return nil
	}
	renderRuns(out, runs)

	last, ok, err := history.LastSuccessful(ctx)
	if err != nil {
		return err
	}
	fmt.Fprintln(out, lastSuccessLine(last, ok))
	return nil
}

func lastSuccessLine(run storage.Run, ok bool) string {
	if !ok {
		return cli.FormatWarning("No successful fetch on record")
	}
	return cli.SubtleStyle.Render(fmt.Sprintf("Last successful fetch %s: %d complaints stored",
		run.FinishedAt.Local().Format("2006-01-02 15:04"), run.Total))
}

func renderRuns(w io.Writer, runs []storage.Run) {
	rows := make([][]string, 0, len(runs))
	for _, r := range runs {
		since := "full"
		if r.Since != nil {
			since = r.Since.Format(model.DateLayout)
		}
		status := cli.SuccessStyle.Render(string(r.Status))
		if r.Status == storage.RunFailed {
			status = cli.ErrorStyle.Render(string(r.Status))
		}
		rows = append(rows, []string{
			r.StartedAt.Local().Format("2006-01-02 15:04"),
			status,
			since,
			strconv.Itoa(r.Fetched),
			strconv.Itoa(r.Added),
			strconv.Itoa(r.Total),
			r.Duration().Round(time.Second).String(),
			r.Error,
		})
	}
	fmt.Fprint(w, cli.RenderTable(
		[]string{"Started", "Status", "Since", "Fetched", "Added", "Total", "Took", "Error"}, rows))
}
