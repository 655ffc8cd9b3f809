package analysis

import (
	"sort"
	"strings"

	"github.com/Veraticus/crypto-complaints/internal/model"
)

// MinPhraseCount is how often a bigram must occur to be reported.
const MinPhraseCount = 5

var stopWords = toSet(strings.Fields(`
	i me my myself we our ours ourselves you your yours yourself yourselves he him
	his himself she her hers herself it its itself they them their theirs themselves
	what which who whom this that these those am is are was were be been being have
	has had having do does did doing a an the and but if or because as until while
	of at by for with about against between into through during before after above
	below to from up down in out on off over under again further then once here there
	when where why how all each few more most other some such no nor not only own same
	so than too very s t can will just don should now xxxx xx would could also get got
	said one two three told even still since back made make take went going want
	wanted coinbase company account money time day days week weeks month months year
	years email phone called
`))

// Term is a word or phrase with its frequency.
type Term struct {
	Text  string `json:"text"`
	Count int    `json:"count"`
}

// ExtractKeywords returns the most frequent non-stop words longer than three
// letters across all narratives.
func ExtractKeywords(records []model.ComplaintRecord, limit int) []Term {
	counts := make(map[string]int)
	for _, r := range records {
		for _, w := range tokenize(r.Narrative, 3) {
			counts[w]++
		}
	}
	return topTerms(counts, limit, 1)
}

// ExtractPhrases returns the most frequent two-word phrases, built from non-stop
// words longer than two letters, that occur at least MinPhraseCount times.
func ExtractPhrases(records []model.ComplaintRecord, limit int) []Term {
	counts := make(map[string]int)
	for _, r := range records {
		words := tokenize(r.Narrative, 2)
		for i := 0; i+1 < len(words); i++ {
			counts[words[i]+" "+words[i+1]]++
		}
	}
	return topTerms(counts, limit, MinPhraseCount)
}

// tokenize lowercases text, keeps only ASCII letters, and drops stop words and
// words of minLen letters or fewer.
func tokenize(text string, minLen int) []string {
	if text == "" {
		return nil
	}
	cleaned := strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z':
			return r
		case r >= 'A' && r <= 'Z':
			return r + ('a' - 'A')
		default:
			return ' '
		}
	}, text)

	var words []string
	for _, w := range strings.Fields(cleaned) {
		if len(w) <= minLen {
			continue
		}
		if _, stop := stopWords[w]; stop {
			continue
		}
		words = append(words, w)
	}
	return words
}

func topTerms(counts map[string]int, limit, minCount int) []Term {
	terms := make([]Term, 0, len(counts))
	for text, n := range counts {
		if n < minCount {
			continue
		}
		terms = append(terms, Term{Text: text, Count: n})
	}
	sort.Slice(terms, func(i, j int) bool {
		if terms[i].Count != terms[j].Count {
			return terms[i].Count > terms[j].Count
		}
		return terms[i].Text < terms[j].Text
	})
	if limit > 0 && len(terms) > limit {
		terms = terms[:limit]
	}
	return terms
}

func toSet(words []string) map[string]struct{} {
	set := make(map[string]struct{}, len(words))
	for _, w := range words {
		set[w] = struct{}{}
	}
	return set
}
