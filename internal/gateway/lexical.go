package gateway

import (
	"math"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/agnivade/levenshtein"
	"golang.org/x/text/cases"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

var stopWords = map[string]struct{}{
	"a": {}, "an": {}, "the": {}, "and": {}, "or": {}, "of": {}, "on": {}, "in": {},
	"at": {}, "with": {}, "to": {}, "is": {}, "are": {}, "it": {}, "its": {}, "from": {},
	"by": {}, "for": {}, "some": {}, "very": {}, "this": {}, "that": {}, "there": {},
}

// normalize folds case and strips diacritics.
func normalize(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	out, _, err := transform.String(t, s)
	if err != nil {
		out = s
	}
	return cases.Fold().String(out)
}

func tokenize(s string) []string {
	fields := strings.FieldsFunc(normalize(s), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	out := fields[:0]
	for _, f := range fields {
		if _, stop := stopWords[f]; stop {
			continue
		}
		out = append(out, f)
	}
	return out
}

func tokensMatch(a, b string) bool {
	if a == b {
		return true
	}
	// Tolerate plurals and small typos on longer words.
	if len(a) >= 5 && len(b) >= 5 {
		return levenshtein.ComputeDistance(a, b) <= 1
	}
	return false
}

// LexicalScore estimates how many of the reference's content words the
// candidate covers, blended with whole-string edit similarity. The result is
// in [0,100].
func LexicalScore(candidate, reference string) int {
	cand := tokenize(candidate)
	ref := uniq(tokenize(reference))
	if len(cand) == 0 || len(ref) == 0 {
		return 0
	}

	hits := 0
	for _, r := range ref {
		for _, c := range cand {
			if tokensMatch(c, r) {
				hits++
				break
			}
		}
	}
	recall := float64(hits) / float64(len(ref))

	a, b := strings.Join(cand, " "), strings.Join(ref, " ")
	longest := max(utf8.RuneCountInString(a), utf8.RuneCountInString(b))
	editSim := 1 - float64(levenshtein.ComputeDistance(a, b))/float64(longest)

	score := 100 * (0.8*recall + 0.2*editSim)
	return max(0, min(100, int(math.Round(score))))
}

func uniq(in []string) []string {
	seen := make(map[string]struct{}, len(in))
	out := make([]string, 0, len(in))
	for _, s := range in {
		if _, ok := seen[s]; ok {
			continue
		}
		seen[s] = struct{}{}
		out = append(out, s)
	}
	return out
}
