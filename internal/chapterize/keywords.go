package chapterize

import (
	"sort"

	"cardiokb/internal/rank"
)

// extractKeywords picks the most frequent content terms of the body, after
// stopword removal, always including the title's own terms. Output is
// lowercase, bounded by limit, and deterministic: frequency descending,
// then lexicographic.
func extractKeywords(title, body string, limit int) []string {
	freq := make(map[string]int)
	for _, term := range rank.Tokenize(body) {
		if len(term) < 3 {
			continue
		}
		freq[term]++
	}
	// Title terms are keywords regardless of body frequency.
	for _, term := range rank.Tokenize(title) {
		if len(term) < 3 {
			continue
		}
		if freq[term] == 0 {
			freq[term] = 1
		}
		freq[term] += 1000 // pin title terms to the front
	}

	terms := make([]string, 0, len(freq))
	for t := range freq {
		terms = append(terms, t)
	}
	sort.Slice(terms, func(i, j int) bool {
		if freq[terms[i]] != freq[terms[j]] {
			return freq[terms[i]] > freq[terms[j]]
		}
		return terms[i] < terms[j]
	})

	if len(terms) > limit {
		terms = terms[:limit]
	}
	return terms
}
