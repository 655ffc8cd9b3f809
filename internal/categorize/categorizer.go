// Package categorize assigns each complaint narrative to exactly one category and
// aggregates per-category statistics.
package categorize

import (
	"fmt"
	"log/slog"
	"math"
	"regexp"
	"sort"
	"strings"
	"time"

	"github.com/Veraticus/crypto-complaints/internal/common"
	"github.com/Veraticus/crypto-complaints/internal/model"
)

type trigger struct {
	re      *regexp.Regexp
	keyword string
}

type compiledCategory struct {
	Category
	triggers []trigger
}

// Categorizer scores narratives against an ordered category list.
type Categorizer struct {
	fallback   Category
	categories []compiledCategory
}

// New compiles the definition. Every trigger matches as a whole word or phrase,
// case-insensitively.
func New(def Definition) (*Categorizer, error) {
	if err := def.Validate(); err != nil {
		return nil, err
	}

	c := &Categorizer{fallback: def.Fallback}
	for _, cat := range def.Categories {
		cc := compiledCategory{Category: cat}
		seen := make(map[string]bool, len(cat.Keywords))
		for _, kw := range cat.Keywords {
			norm := strings.ToLower(strings.Join(strings.Fields(kw), " "))
			if seen[norm] {
				continue
			}
			seen[norm] = true

			re, err := compileTrigger(norm)
			if err != nil {
				return nil, fmt.Errorf("category %q: keyword %q: %w", cat.ID, kw, err)
			}
			cc.triggers = append(cc.triggers, trigger{keyword: norm, re: re})
		}
		c.categories = append(c.categories, cc)
	}
	return c, nil
}

// Default returns a categorizer over the built-in categories.
func Default() *Categorizer {
	c, err := New(DefaultDefinition())
	if err != nil {
		panic(fmt.Sprintf("built-in categories are invalid: %v", err))
	}
	return c
}

func compileTrigger(keyword string) (*regexp.Regexp, error) {
	return common.CompileWords(keyword)
}

// Assignment is the outcome of scoring one narrative.
type Assignment struct {
	Label model.CategoryLabel
	// Matched lists the winning category's triggers found in the narrative.
	Matched []string
	Score   int
}

// Assign returns the category with the strictly highest score, where the score is
// the number of distinct triggers found. Ties go to the earliest category; a
// narrative matching nothing goes to the fallback.
func (c *Categorizer) Assign(narrative string) Assignment {
	best := Assignment{Label: c.fallback.ID}
	for _, cat := range c.categories {
		var matched []string
		for _, t := range cat.triggers {
			if t.re.MatchString(narrative) {
				matched = append(matched, t.keyword)
			}
		}
		if len(matched) > best.Score {
			best = Assignment{Label: cat.ID, Score: len(matched), Matched: matched}
		}
	}
	return best
}

// Labels returns the category labels in enumeration order, fallback last.
func (c *Categorizer) Labels() []model.CategoryLabel {
	labels := make([]model.CategoryLabel, 0, len(c.categories)+1)
	for _, cat := range c.categories {
		labels = append(labels, cat.ID)
	}
	return append(labels, c.fallback.ID)
}

// Options controls a Categorize call.
type Options struct {
	// Now anchors the trend windows. Zero means time.Now.
	Now time.Time
	// Precomputed assignments override keyword scoring for the ids they contain.
	Precomputed map[string]model.CategoryLabel
}

// CategoryStats is the aggregate for one category.
type CategoryStats struct {
	ID         model.CategoryLabel     `json:"id"`
	Label      string                  `json:"label"`
	Trend      model.Trend             `json:"trend"`
	Complaints []model.ComplaintRecord `json:"-"`
	Count      int                     `json:"count"`
	Percentage int                     `json:"percentage"`
}

// Breakdown is the result of categorizing a dataset.
type Breakdown struct {
	Categories    []CategoryStats `json:"categories"`
	TotalEligible int             `json:"total_eligible"`
	Precomputed   int             `json:"precomputed"`
}

// SortedByCount returns the categories ordered by count, largest first. Equal
// counts keep enumeration order.
func (b Breakdown) SortedByCount() []CategoryStats {
	out := make([]CategoryStats, len(b.Categories))
	copy(out, b.Categories)
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Count > out[j].Count
	})
	return out
}

// Get returns the stats for label.
func (b Breakdown) Get(label model.CategoryLabel) (CategoryStats, bool) {
	for _, s := range b.Categories {
		if s.ID == label {
			return s, true
		}
	}
	return CategoryStats{}, false
}

// Categorize assigns every record with a usable narrative to one category.
// Records without one are ignored here.
func (c *Categorizer) Categorize(records []model.ComplaintRecord, opts Options) Breakdown {
	now := opts.Now
	if now.IsZero() {
		now = time.Now()
	}

	index := make(map[model.CategoryLabel]int, len(c.categories)+1)
	stats := make([]CategoryStats, 0, len(c.categories)+1)
	for _, cat := range c.categories {
		index[cat.ID] = len(stats)
		stats = append(stats, CategoryStats{ID: cat.ID, Label: cat.Label})
	}
	index[c.fallback.ID] = len(stats)
	stats = append(stats, CategoryStats{ID: c.fallback.ID, Label: c.fallback.Label})

	var breakdown Breakdown
	for _, rec := range records {
		if !rec.HasUsableNarrative() {
			continue
		}
		breakdown.TotalEligible++

		label, ok := opts.Precomputed[rec.ID]
		if ok {
			if _, known := index[label]; known {
				breakdown.Precomputed++
			} else {
				slog.Debug("Ignoring precomputed label outside configured categories", "id", rec.ID, "category", label)
				ok = false
			}
		}
		if !ok {
			label = c.Assign(rec.Narrative).Label
		}

		i := index[label]
		stats[i].Count++
		stats[i].Complaints = append(stats[i].Complaints, rec)
	}

	for i := range stats {
		stats[i].Percentage = percentOf(stats[i].Count, breakdown.TotalEligible)
		stats[i].Trend = ComputeTrend(stats[i].Complaints, now)
		sortByDateDesc(stats[i].Complaints)
	}

	breakdown.Categories = stats
	return breakdown
}

func percentOf(count, total int) int {
	if total == 0 {
		return 0
	}
	return int(math.Round(float64(count) * 100 / float64(total)))
}

func sortByDateDesc(records []model.ComplaintRecord) {
	type keyed struct {
		t   time.Time
		rec model.ComplaintRecord
		ok  bool
	}
	tmp := make([]keyed, len(records))
	for i, r := range records {
		t, ok := r.ReceivedAt()
		tmp[i] = keyed{t: t, ok: ok, rec: r}
	}
	sort.SliceStable(tmp, func(i, j int) bool {
		if tmp[i].ok != tmp[j].ok {
			return tmp[i].ok
		}
		return tmp[i].t.After(tmp[j].t)
	})
	for i := range tmp {
		records[i] = tmp[i].rec
	}
}
