package analysis

import (
	"math"
	"sort"
	"strings"
	"time"

	"github.com/Veraticus/crypto-complaints/internal/model"
)

// MonthCount is the number of complaints received in one calendar month.
type MonthCount struct {
	Month string `json:"month"` // YYYY-MM
	Label string `json:"label"` // Jan 2025
	Count int    `json:"count"`
}

// GroupByMonth counts dated complaints per month, oldest first.
func GroupByMonth(records []model.ComplaintRecord) []MonthCount {
	counts := make(map[string]int)
	for _, r := range records {
		t, ok := r.ReceivedAt()
		if !ok {
			continue
		}
		counts[t.Format("2006-01")]++
	}

	out := make([]MonthCount, 0, len(counts))
	for month, n := range counts {
		t, _ := time.Parse("2006-01", month)
		out = append(out, MonthCount{Month: month, Label: t.Format("Jan 2006"), Count: n})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Month < out[j].Month })
	return out
}

// IssueCount is the number of complaints filed under one issue.
type IssueCount struct {
	Issue string `json:"issue"`
	Count int    `json:"count"`
}

// GroupByIssue counts complaints per issue, most common first.
func GroupByIssue(records []model.ComplaintRecord) []IssueCount {
	counts := make(map[string]int)
	for _, r := range records {
		issue := r.Issue
		if issue == "" {
			issue = "Unknown"
		}
		counts[issue]++
	}

	out := make([]IssueCount, 0, len(counts))
	for issue, n := range counts {
		out = append(out, IssueCount{Issue: issue, Count: n})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].Issue < out[j].Issue
	})
	return out
}

// CompanyStats summarizes how one company handled its complaints.
type CompanyStats struct {
	Company     string `json:"company"`
	Total       int    `json:"total"`
	TimelyRate  int    `json:"timely_rate"`
	DisputeRate int    `json:"dispute_rate"`
	ReliefRate  int    `json:"relief_rate"`
}

// GroupByCompany returns per-company response rates, largest companies first.
func GroupByCompany(records []model.ComplaintRecord) []CompanyStats {
	type tally struct {
		total, timely, disputed, relief int
	}
	byCompany := make(map[string]*tally)
	for _, r := range records {
		name := companyName(r)
		t, ok := byCompany[name]
		if !ok {
			t = &tally{}
			byCompany[name] = t
		}
		t.total++
		if r.Timely == "Yes" {
			t.timely++
		}
		if r.ConsumerDisputed == "Yes" {
			t.disputed++
		}
		if strings.Contains(strings.ToLower(r.CompanyResponse), "relief") {
			t.relief++
		}
	}

	out := make([]CompanyStats, 0, len(byCompany))
	for name, t := range byCompany {
		out = append(out, CompanyStats{
			Company:     name,
			Total:       t.total,
			TimelyRate:  percent(t.timely, t.total),
			DisputeRate: percent(t.disputed, t.total),
			ReliefRate:  percent(t.relief, t.total),
		})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Total != out[j].Total {
			return out[i].Total > out[j].Total
		}
		return out[i].Company < out[j].Company
	})
	return out
}

// Metrics are the headline numbers for a period.
type Metrics struct {
	TopIssue   string               `json:"top_issue"`
	Trend      model.TrendDirection `json:"trend"`
	Total      int                  `json:"total"`
	TimelyRate int                  `json:"timely_rate"`
	// TrendPercent is the absolute change against the previous period.
	TrendPercent int `json:"trend_percent"`
}

// CalculateMetrics summarizes current and compares its size with previous. With
// an empty previous period the trend is neutral.
func CalculateMetrics(current, previous []model.ComplaintRecord) Metrics {
	m := Metrics{
		Total:    len(current),
		TopIssue: "N/A",
		Trend:    model.TrendNeutral,
	}

	timely := 0
	for _, r := range current {
		if r.Timely == "Yes" {
			timely++
		}
	}
	m.TimelyRate = percent(timely, len(current))

	if issues := GroupByIssue(current); len(issues) > 0 {
		m.TopIssue = issues[0].Issue
	}

	if len(previous) > 0 {
		change := int(math.Round(float64(len(current)-len(previous)) * 100 / float64(len(previous))))
		switch {
		case change > 0:
			m.Trend = model.TrendUp
		case change < 0:
			m.Trend = model.TrendDown
		}
		if change < 0 {
			change = -change
		}
		m.TrendPercent = change
	}
	return m
}
