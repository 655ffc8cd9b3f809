package common

import (
	"regexp"
	"strings"
)

// WordPattern returns a regex fragment matching term as whole words, allowing any
// run of whitespace between the words of a phrase.
func WordPattern(term string) string {
	words := strings.Fields(term)
	for i, w := range words {
		words[i] = regexp.QuoteMeta(w)
	}
	return strings.Join(words, `\s+`)
}

// CompileWords compiles a case-insensitive whole-word match for any of terms.
func CompileWords(terms ...string) (*regexp.Regexp, error) {
	alts := make([]string, 0, len(terms))
	for _, term := range terms {
		if p := WordPattern(term); p != "" {
			alts = append(alts, p)
		}
	}
	return regexp.Compile(`(?i)\b(?:` + strings.Join(alts, "|") + `)\b`)
}
