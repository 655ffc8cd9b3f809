package analysis

import (
	"sort"
	"time"

	"github.com/Veraticus/crypto-complaints/internal/model"
)

// Query narrows a dataset. Zero fields match everything.
type Query struct {
	From    *time.Time
	To      *time.Time
	Company string
	Issue   string
}

// Matches reports whether r satisfies every set field. Date bounds are
// inclusive and To covers its whole UTC day. Undated records never satisfy a
// date bound.
func (q Query) Matches(r model.ComplaintRecord) bool {
	if q.Company != "" && r.Company != q.Company {
		return false
	}
	if q.Issue != "" && r.Issue != q.Issue {
		return false
	}
	if q.From == nil && q.To == nil {
		return true
	}

	t, ok := r.ReceivedAt()
	if !ok {
		return false
	}
	if q.From != nil && t.Before(*q.From) {
		return false
	}
	if q.To != nil && !t.Before(q.To.Truncate(24*time.Hour).Add(24*time.Hour)) {
		return false
	}
	return true
}

// Apply returns the matching records in input order.
func (q Query) Apply(records []model.ComplaintRecord) []model.ComplaintRecord {
	out := make([]model.ComplaintRecord, 0, len(records))
	for _, r := range records {
		if q.Matches(r) {
			out = append(out, r)
		}
	}
	return out
}

// UniqueCompanies returns the sorted distinct non-empty company names.
func UniqueCompanies(records []model.ComplaintRecord) []string {
	return unique(records, func(r model.ComplaintRecord) string { return r.Company })
}

// UniqueIssues returns the sorted distinct non-empty issues.
func UniqueIssues(records []model.ComplaintRecord) []string {
	return unique(records, func(r model.ComplaintRecord) string { return r.Issue })
}

func unique(records []model.ComplaintRecord, field func(model.ComplaintRecord) string) []string {
	seen := make(map[string]struct{})
	for _, r := range records {
		if v := field(r); v != "" {
			seen[v] = struct{}{}
		}
	}
	out := make([]string, 0, len(seen))
	for v := range seen {
		out = append(out, v)
	}
	sort.Strings(out)
	return out
}
