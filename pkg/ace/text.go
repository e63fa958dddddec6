package ace

import (
	"sort"
	"strings"
	"unicode"

	"golang.org/x/text/cases"
)

// normalize converts text to a canonical form for comparison.
func normalize(s string) string {
	s = cases.Fold().String(s)
	s = strings.TrimSpace(s)

	// Collapse whitespace
	var b strings.Builder
	prevSpace := false
	for _, r := range s {
		if unicode.IsSpace(r) {
			if !prevSpace {
				b.WriteRune(' ')
				prevSpace = true
			}
		} else {
			b.WriteRune(r)
			prevSpace = false
		}
	}
	return b.String()
}

// normalizeTags canonicalizes a tag list: each tag case-folded and trimmed,
// empties and duplicates dropped, the rest sorted. Bullets store tags in
// this form so merges and comparisons never depend on input casing.
func normalizeTags(tags []string) []string {
	if len(tags) == 0 {
		return nil
	}
	seen := make(map[string]bool, len(tags))
	out := make([]string, 0, len(tags))
	for _, t := range tags {
		t = normalize(t)
		if t == "" || seen[t] {
			continue
		}
		seen[t] = true
		out = append(out, t)
	}
	if len(out) == 0 {
		return nil
	}
	sort.Strings(out)
	return out
}

// tokenize splits text into case-folded word tokens.
func tokenize(s string) map[string]bool {
	tokens := make(map[string]bool)
	s = cases.Fold().String(s)

	var word strings.Builder
	for _, r := range s {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			word.WriteRune(r)
		} else if word.Len() > 0 {
			tokens[word.String()] = true
			word.Reset()
		}
	}
	if word.Len() > 0 {
		tokens[word.String()] = true
	}

	return tokens
}

// tokenizeAll unions the token sets of all parts.
func tokenizeAll(parts ...string) map[string]bool {
	tokens := make(map[string]bool)
	for _, part := range parts {
		for tok := range tokenize(part) {
			tokens[tok] = true
		}
	}
	return tokens
}

// jaccardSimilarity computes the Jaccard index between two token sets.
func jaccardSimilarity(a, b map[string]bool) float64 {
	if len(a) == 0 && len(b) == 0 {
		return 1.0
	}
	if len(a) == 0 || len(b) == 0 {
		return 0.0
	}

	intersection := 0
	for token := range a {
		if b[token] {
			intersection++
		}
	}

	union := len(a) + len(b) - intersection
	if union == 0 {
		return 0.0
	}

	return float64(intersection) / float64(union)
}

// overlapRatio returns the fraction of query tokens present in the bullet
// token set. An empty query matches nothing.
func overlapRatio(query, bullet map[string]bool) float64 {
	if len(query) == 0 {
		return 0.0
	}

	matched := 0
	for token := range query {
		if bullet[token] {
			matched++
		}
	}

	return float64(matched) / float64(len(query))
}
