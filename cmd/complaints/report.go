package main

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"strconv"
	"time"

	"github.com/Veraticus/crypto-complaints/internal/analysis"
	"github.com/Veraticus/crypto-complaints/internal/categorize"
	"github.com/Veraticus/crypto-complaints/internal/cli"
	"github.com/Veraticus/crypto-complaints/internal/model"
	"github.com/Veraticus/crypto-complaints/internal/storage"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

const reportTopN = 10

func reportCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "report",
		Short: "Summarize stored complaints by category",
		Long: `Group complaints with a narrative into categories and show each category's
share and 30-day trend. Cached LLM labels take precedence over keyword
matching. With --details, fraud rates, company response rates, top issues
and recurring phrases are shown as well.`,
		RunE: runReport,
	}

	cmd.Flags().String("as-of", "", "anchor trend windows at this date (YYYY-MM-DD, default: today)")
	cmd.Flags().String("company", "", "only include complaints about this company")
	cmd.Flags().String("issue", "", "only include complaints with this issue")
	cmd.Flags().String("from", "", "only include complaints received on or after this date (YYYY-MM-DD)")
	cmd.Flags().String("to", "", "only include complaints received on or before this date (YYYY-MM-DD)")
	cmd.Flags().Bool("keywords-only", false, "ignore cached LLM labels")
	cmd.Flags().Bool("details", false, "include fraud, company and term analysis")
	cmd.Flags().Bool("json", false, "print the report as JSON")

	return cmd
}

// reportData is everything the report command prints.
type reportData struct {
	AsOf      time.Time               `json:"as_of"`
	Breakdown categorize.Breakdown    `json:"breakdown"`
	Metrics   analysis.Metrics        `json:"metrics"`
	Total     int                     `json:"total"`
	FraudRate int                     `json:"fraud_rate"`
	Fraud     []analysis.CompanyFraud `json:"fraud_by_company,omitempty"`
	Companies []analysis.CompanyStats `json:"companies,omitempty"`
	Issues    []analysis.IssueCount   `json:"issues,omitempty"`
	Keywords  []analysis.Term         `json:"keywords,omitempty"`
	Phrases   []analysis.Term         `json:"phrases,omitempty"`
}

func runReport(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	asOf := time.Now()
	if v, _ := cmd.Flags().GetString("as-of"); v != "" {
		if asOf, err = time.Parse(model.DateLayout, v); err != nil {
			return fmt.Errorf("invalid --as-of date %q: %w", v, err)
		}
	}
	query, err := queryFromFlags(cmd)
	if err != nil {
		return err
	}
	keywordsOnly, _ := cmd.Flags().GetBool("keywords-only")
	details, _ := cmd.Flags().GetBool("details")
	asJSON, _ := cmd.Flags().GetBool("json")

	var (
		ds    *storage.Dataset
		cache storage.Classifications
		def   categorize.Definition
	)
	g, _ := errgroup.WithContext(cmd.Context())
	g.Go(func() error {
		store, err := storage.NewRecordStore(cfg.Data.ComplaintsFile)
		if err != nil {
			return err
		}
		ds, err = store.Load()
		return err
	})
	g.Go(func() error {
		if keywordsOnly {
			return nil
		}
		var err error
		cache, err = storage.LoadClassifications(cfg.Data.ClassificationsFile)
		return err
	})
	g.Go(func() error {
		var err error
		def, err = loadDefinition(cfg)
		return err
	})
	if err := g.Wait(); err != nil {
		return err
	}

	categorizer, err := categorize.New(def)
	if err != nil {
		return err
	}

	records := query.Apply(ds.Records())
	slog.Debug("Building report", "records", len(records), "cached_labels", len(cache))
	data := buildReport(categorizer, records, cache, asOf, details)

	if asJSON {
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(data)
	}
	renderReport(cmd.OutOrStdout(), data, details)
	return nil
}

func queryFromFlags(cmd *cobra.Command) (analysis.Query, error) {
	var q analysis.Query
	q.Company, _ = cmd.Flags().GetString("company")
	q.Issue, _ = cmd.Flags().GetString("issue")

	for _, bound := range []struct {
		dst  **time.Time
		name string
	}{{&q.From, "from"}, {&q.To, "to"}} {
		v, _ := cmd.Flags().GetString(bound.name)
		if v == "" {
			continue
		}
		t, err := time.Parse(model.DateLayout, v)
		if err != nil {
			return analysis.Query{}, fmt.Errorf("invalid --%s date %q: %w", bound.name, v, err)
		}
		*bound.dst = &t
	}
	return q, nil
}

func buildReport(c *categorize.Categorizer, records []model.ComplaintRecord, cache storage.Classifications, asOf time.Time, details bool) reportData {
	data := reportData{
		AsOf:      asOf,
		Total:     len(records),
		Breakdown: c.Categorize(records, categorize.Options{Now: asOf, Precomputed: cache}),
		FraudRate: analysis.FraudRate(records),
	}

	day := time.Date(asOf.Year(), asOf.Month(), asOf.Day(), 0, 0, 0, 0, time.UTC)
	window := time.Duration(categorize.TrendWindowDays) * 24 * time.Hour
	recentFrom, recentTo := day.Add(-window+24*time.Hour), day
	prevFrom, prevTo := recentFrom.Add(-window), recentFrom.Add(-24*time.Hour)
	data.Metrics = analysis.CalculateMetrics(
		analysis.Query{From: &recentFrom, To: &recentTo}.Apply(records),
		analysis.Query{From: &prevFrom, To: &prevTo}.Apply(records),
	)

	if details {
		data.Fraud = head(analysis.FraudRateByCompany(records), reportTopN)
		data.Companies = head(analysis.GroupByCompany(records), reportTopN)
		data.Issues = head(analysis.GroupByIssue(records), reportTopN)
		data.Keywords = analysis.ExtractKeywords(records, reportTopN)
		data.Phrases = analysis.ExtractPhrases(records, reportTopN)
	}
	return data
}

func head[T any](items []T, n int) []T {
	if len(items) > n {
		return items[:n]
	}
	return items
}

func renderReport(w io.Writer, data reportData, details bool) {
	fmt.Fprintln(w, cli.FormatTitle(fmt.Sprintf("Complaint categories as of %s", data.AsOf.Format("Jan 2, 2006"))))

	rows := make([][]string, 0, len(data.Breakdown.Categories))
	for _, s := range data.Breakdown.SortedByCount() {
		rows = append(rows, []string{
			s.Label,
			strconv.Itoa(s.Count),
			strconv.Itoa(s.Percentage) + "%",
			cli.FormatTrend(s.Trend),
		})
	}
	fmt.Fprint(w, cli.RenderTable([]string{"Category", "Complaints", "Share", "30-day trend"}, rows))
	fmt.Fprintln(w, cli.SubtleStyle.Render(fmt.Sprintf("%d of %d complaints have a narrative, %d labeled by the LLM cache",
		data.Breakdown.TotalEligible, data.Total, data.Breakdown.Precomputed)))
	fmt.Fprintln(w)

	m := data.Metrics
	summary := fmt.Sprintf("Last %d days: %d complaints %s\nTimely responses: %d%%\nTop issue: %s\nFraud mentions: %d%% of all complaints",
		categorize.TrendWindowDays, m.Total, cli.FormatTrend(model.Trend{Direction: m.Trend, Percent: m.TrendPercent}),
		m.TimelyRate, m.TopIssue, data.FraudRate)
	fmt.Fprintln(w, cli.RenderBox(cli.ChartIcon+" Summary", summary))

	if !details {
		return
	}

	fmt.Fprintln(w)
	companyRows := make([][]string, 0, len(data.Companies))
	for _, c := range data.Companies {
		companyRows = append(companyRows, []string{
			c.Company, strconv.Itoa(c.Total),
			strconv.Itoa(c.TimelyRate) + "%", strconv.Itoa(c.DisputeRate) + "%", strconv.Itoa(c.ReliefRate) + "%",
		})
	}
	fmt.Fprint(w, cli.RenderTable([]string{"Company", "Complaints", "Timely", "Disputed", "Relief"}, companyRows))

	fmt.Fprintln(w)
	fraudRows := make([][]string, 0, len(data.Fraud))
	for _, f := range data.Fraud {
		fraudRows = append(fraudRows, []string{f.Company, strconv.Itoa(f.FraudCount), strconv.Itoa(f.FraudRate) + "%"})
	}
	fmt.Fprint(w, cli.RenderTable([]string{"Company", "Fraud mentions", "Rate"}, fraudRows))

	fmt.Fprintln(w)
	issueRows := make([][]string, 0, len(data.Issues))
	for _, i := range data.Issues {
		issueRows = append(issueRows, []string{i.Issue, strconv.Itoa(i.Count)})
	}
	fmt.Fprint(w, cli.RenderTable([]string{"Issue", "Complaints"}, issueRows))

	fmt.Fprintln(w)
	fmt.Fprint(w, cli.RenderTable([]string{"Keyword", "Count"}, termRows(data.Keywords)))
	if len(data.Phrases) > 0 {
		fmt.Fprintln(w)
		fmt.Fprint(w, cli.RenderTable([]string{"Phrase", "Count"}, termRows(data.Phrases)))
	}
}

func termRows(terms []analysis.Term) [][]string {
	rows := make([][]string, 0, len(terms))
	for _, t := range terms {
		rows = append(rows, []string{t.Text, strconv.Itoa(t.Count)})
	}
	return rows
}
