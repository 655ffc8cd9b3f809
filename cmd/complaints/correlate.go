package main

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/Veraticus/crypto-complaints/internal/analysis"
	"github.com/Veraticus/crypto-complaints/internal/cli"
	"github.com/Veraticus/crypto-complaints/internal/price"
	"github.com/Veraticus/crypto-complaints/internal/storage"
	"github.com/spf13/cobra"
)

func correlateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "correlate",
		Short: "Correlate monthly complaint volume with the bitcoin price",
		Long: `Load monthly bitcoin prices (racing several endpoints, falling back to a
built-in table when none answers) and compute the Pearson correlation
between price and the number of complaints received each month.`,
		RunE: runCorrelate,
	}

	cmd.Flags().String("coin", "bitcoin", "CoinGecko coin id")
	cmd.Flags().Int("days", 365, "days of price history to request")
	cmd.Flags().Duration("timeout", 10*time.Second, "per-endpoint timeout")
	cmd.Flags().Bool("offline", false, "use the built-in price table")
	cmd.Flags().Bool("json", false, "print the result as JSON")

	return cmd
}

type correlationResult struct {
	Source      string                `json:"source"`
	Strength    string                `json:"strength,omitempty"`
	Months      []price.MonthlyPrice  `json:"prices"`
	Counts      []analysis.MonthCount `json:"complaints"`
	Coefficient float64               `json:"coefficient"`
	Live        bool                  `json:"live"`
	OK          bool                  `json:"ok"`
}

func runCorrelate(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	coin, _ := cmd.Flags().GetString("coin")
	days, _ := cmd.Flags().GetInt("days")
	timeout, _ := cmd.Flags().GetDuration("timeout")
	offline, _ := cmd.Flags().GetBool("offline")
	asJSON, _ := cmd.Flags().GetBool("json")

	store, err := storage.NewRecordStore(cfg.Data.ComplaintsFile)
	if err != nil {
		return err
	}
	ds, err := store.Load()
	if err != nil {
		return err
	}

	series := price.StaticSeries()
	if !offline {
		series = price.NewRaceFetcher(price.DefaultEndpoints(coin, days), timeout).Fetch(cmd.Context())
	}

	result := correlate(series, analysis.GroupByMonth(ds.Records()))

	out := cmd.OutOrStdout()
	if asJSON {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(result)
	}

	if !result.Live {
		fmt.Fprintln(out, cli.FormatWarning("Live prices unavailable, using the built-in monthly table"))
	}
	if !result.OK {
		fmt.Fprintln(out, cli.FormatInfo(fmt.Sprintf("Not enough overlapping months to correlate (need %d)", price.MinCorrelationMonths)))
		return nil
	}
	fmt.Fprintln(out, cli.FormatTitle("Price vs. complaint volume"))
	fmt.Fprintf(out, "Correlation: %s (%s)\n", cli.BoldStyle.Render(fmt.Sprintf("%.2f", result.Coefficient)), result.Strength)
	fmt.Fprintln(out, cli.SubtleStyle.Render("Source: "+result.Source))
	return nil
}

func correlate(series price.Series, counts []analysis.MonthCount) correlationResult {
	byMonth := make(map[string]int, len(counts))
	for _, c := range counts {
		byMonth[c.Month] = c.Count
	}

	r, ok := price.Correlate(series.Months, byMonth)
	result := correlationResult{
		Source:      series.Source,
		Months:      series.Months,
		Counts:      counts,
		Coefficient: r,
		Live:        series.Live,
		OK:          ok,
	}
	if ok {
		result.Strength = price.Strength(r)
	}
	return result
}
