// Package relevance decides which fetched complaints belong in the record store.
//
// Companies are the primary discriminator. Single-purpose crypto companies keep
// every complaint; multi-product companies keep only complaints filed under a
// crypto-adjacent sub-product. Companies on neither list are kept so that records
// accepted before an allow-list was tightened are never silently dropped.
package relevance

import (
	"strings"

	"github.com/Veraticus/crypto-complaints/internal/model"
	"github.com/agnivade/levenshtein"
)

// Tier is the allow-list a company falls under.
type Tier int

// Company tiers.
const (
	TierUnknown Tier = iota
	TierPure
	TierMixed
)

func (t Tier) String() string {
	switch t {
	case TierPure:
		return "pure"
	case TierMixed:
		return "mixed"
	default:
		return "unknown"
	}
}

// Filter holds the allow-lists.
type Filter struct {
	pure        map[string]struct{}
	mixed       map[string]struct{}
	subProducts map[string]struct{}
}

// New builds a filter from explicit lists.
func New(pure, mixed, subProducts []string) *Filter {
	return &Filter{
		pure:        toSet(pure),
		mixed:       toSet(mixed),
		subProducts: toSet(subProducts),
	}
}

// Default builds the filter with the built-in allow-lists.
func Default() *Filter {
	return New(DefaultPureCompanies(), DefaultMixedCompanies(), DefaultSubProducts())
}

// WithOverrides replaces any built-in list whose override is non-empty.
func WithOverrides(pure, mixed, subProducts []string) *Filter {
	if len(pure) == 0 {
		pure = DefaultPureCompanies()
	}
	if len(mixed) == 0 {
		mixed = DefaultMixedCompanies()
	}
	if len(subProducts) == 0 {
		subProducts = DefaultSubProducts()
	}
	return New(pure, mixed, subProducts)
}

// TierOf classifies a company name.
func (f *Filter) TierOf(company string) Tier {
	if _, ok := f.pure[company]; ok {
		return TierPure
	}
	if _, ok := f.mixed[company]; ok {
		return TierMixed
	}
	return TierUnknown
}

// IsRelevant reports whether a record should be retained.
func (f *Filter) IsRelevant(rec model.ComplaintRecord) bool {
	switch f.TierOf(rec.Company) {
	case TierPure:
		return true
	case TierMixed:
		_, ok := f.subProducts[rec.SubProduct]
		return ok
	default:
		return true
	}
}

// Stats summarizes one Apply call.
type Stats struct {
	Kept    int
	Dropped int
	// Unknown counts kept hits whose company is on neither list, by company.
	Unknown map[string]int
}

// Apply returns the relevant hits in their original order.
func (f *Filter) Apply(hits []model.Hit) ([]model.Hit, Stats) {
	stats := Stats{Unknown: make(map[string]int)}
	kept := make([]model.Hit, 0, len(hits))

	for _, h := range hits {
		if !f.IsRelevant(h.Source) {
			stats.Dropped++
			continue
		}
		if f.TierOf(h.Source.Company) == TierUnknown {
			stats.Unknown[h.Source.Company]++
		}
		kept = append(kept, h)
	}

	stats.Kept = len(kept)
	return kept, stats
}

// Suggest returns the allow-listed company closest to name by edit distance, and
// false when nothing is reasonably close. It is a diagnostic only and never
// changes a relevance decision.
func (f *Filter) Suggest(name string) (string, bool) {
	if name == "" {
		return "", false
	}
	needle := strings.ToLower(name)

	best := ""
	bestDist := -1
	for _, set := range []map[string]struct{}{f.pure, f.mixed} {
		for candidate := range set {
			d := levenshtein.ComputeDistance(needle, strings.ToLower(candidate))
			if bestDist < 0 || d < bestDist || (d == bestDist && candidate < best) {
				best, bestDist = candidate, d
			}
		}
	}

	if bestDist < 0 {
		return "", false
	}
	limit := len(best)
	if len(name) > limit {
		limit = len(name)
	}
	if float64(bestDist)/float64(limit) >= 0.4 {
		return "", false
	}
	return best, true
}

func toSet(values []string) map[string]struct{} {
	set := make(map[string]struct{}, len(values))
	for _, v := range values {
		set[v] = struct{}{}
	}
	return set
}

// DefaultPureCompanies keep all complaints regardless of sub-product.
func DefaultPureCompanies() []string {
	return []string{
		"Coinbase, Inc.",
		"Foris DAX, Inc.",
		"Winklevoss Exchange LLC",
		"BAM Management US Holdings Inc.",
		"Payward Ventures Inc. dba Kraken",
		"Blockchain.com, Inc.",
		"Abra",
		"BlockFi Inc",
		"Paxos Trust Company, LLC",
		"Voyager Digital (Canada) Ltd.",
		"Celsius Network LLC",
		"FTX Trading Ltd.",
	}
}

// DefaultMixedCompanies serve crypto and non-crypto customers.
func DefaultMixedCompanies() []string {
	return []string{
		"Block, Inc.",
		"Paypal Holdings, Inc",
		"ROBINHOOD MARKETS INC.",
	}
}

// DefaultSubProducts are kept for mixed companies.
func DefaultSubProducts() []string {
	return []string{
		"Virtual currency",
		"Mobile or digital wallet",
		"Domestic (US) money transfer",
		"International money transfer",
		"Foreign currency exchange",
		"Other banking product or service",
		"Checking account",
		"Savings account",
		"General-purpose prepaid card",
		"General-purpose credit card or charge card",
		"I do not know",
	}
}
