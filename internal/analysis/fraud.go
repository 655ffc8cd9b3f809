// Package analysis computes secondary aggregates over the complaint dataset:
// fraud signals, frequent terms, and per-month, per-issue and per-company groupings.
package analysis

import (
	"math"
	"regexp"
	"sort"

	"github.com/Veraticus/crypto-complaints/internal/common"
	"github.com/Veraticus/crypto-complaints/internal/model"
)

// FraudKeywords are the terms that mark a complaint as fraud related.
var FraudKeywords = []string{
	"scam", "scammed", "scammer",
	"fraud", "fraudulent", "defrauded",
	"stolen", "stole", "stealing", "theft",
	"hacked", "hack", "hacker", "hacking",
	"unauthorized", "unauthorised",
	"phishing", "phished",
	"fake", "impersonator", "impersonation",
	"identity theft", "criminals", "criminal",
	"compromised", "breached",
	"someone accessed", "not me", "didnt authorize",
}

var fraudPattern = mustCompileWords(FraudKeywords)

func mustCompileWords(terms []string) *regexp.Regexp {
	re, err := common.CompileWords(terms...)
	if err != nil {
		panic(err)
	}
	return re
}

// IsFraud reports whether the narrative or issue mentions a fraud keyword.
func IsFraud(rec model.ComplaintRecord) bool {
	return fraudPattern.MatchString(rec.Narrative) || fraudPattern.MatchString(rec.Issue)
}

// DetectFraud returns the fraud-related complaints in input order.
func DetectFraud(records []model.ComplaintRecord) []model.ComplaintRecord {
	var out []model.ComplaintRecord
	for _, r := range records {
		if IsFraud(r) {
			out = append(out, r)
		}
	}
	return out
}

// FraudRate returns the rounded percentage of fraud-related complaints.
func FraudRate(records []model.ComplaintRecord) int {
	return percent(len(DetectFraud(records)), len(records))
}

// CompanyFraud is the fraud share for one company.
type CompanyFraud struct {
	Company    string `json:"company"`
	Total      int    `json:"total"`
	FraudCount int    `json:"fraud_count"`
	FraudRate  int    `json:"fraud_rate"`
}

// FraudRateByCompany returns per-company fraud counts, largest companies first.
func FraudRateByCompany(records []model.ComplaintRecord) []CompanyFraud {
	byCompany := make(map[string]*CompanyFraud)
	for _, r := range records {
		name := companyName(r)
		cf, ok := byCompany[name]
		if !ok {
			cf = &CompanyFraud{Company: name}
			byCompany[name] = cf
		}
		cf.Total++
		if IsFraud(r) {
			cf.FraudCount++
		}
	}

	out := make([]CompanyFraud, 0, len(byCompany))
	for _, cf := range byCompany {
		cf.FraudRate = percent(cf.FraudCount, cf.Total)
		out = append(out, *cf)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Total != out[j].Total {
			return out[i].Total > out[j].Total
		}
		return out[i].Company < out[j].Company
	})
	return out
}

func companyName(r model.ComplaintRecord) string {
	if r.Company == "" {
		return "Unknown"
	}
	return r.Company
}

func percent(count, total int) int {
	if total == 0 {
		return 0
	}
	return int(math.Round(float64(count) * 100 / float64(total)))
}
