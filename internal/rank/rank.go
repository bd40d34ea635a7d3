// Package rank scores knowledge units against free-text queries. No
// embeddings: everything is token overlap plus fixed weights, so two runs
// over the same data always produce the same ordering.
package rank

import (
	"regexp"
	"sort"
	"strings"
)

// Scoring weights. The relative magnitudes are a deliberate, documented
// choice: a title hit outweighs a keyword hit, which outweighs body
// frequency, and recency contributes so little that it only separates
// otherwise equal scores. Only the ordering and tie-break contract below
// is load-bearing; the numbers themselves are tunable.
const (
	TitleTermWeight   = 10.0  // per query term found in the title
	TitlePhraseBonus  = 20.0  // whole query appears in the title
	KeywordWeight     = 5.0   // per query term present in the keyword set
	BodyTermWeight    = 0.5   // per occurrence of a term in the body
	BodyTermCap       = 5.0   // ceiling per term, so long bodies don't dominate
	BodyPhraseBonus   = 3.0   // whole query appears in the body
	RecencyPerYear    = 0.001 // additive, monotone in publication year
	MinScoreThreshold = 1.0   // below this a hit is treated as noise
)

var wordRe = regexp.MustCompile(`[a-z0-9][a-z0-9-]*`)

var stopwords = map[string]bool{
	"the": true, "a": true, "an": true, "and": true, "or": true, "for": true,
	"with": true, "in": true, "of": true, "to": true, "on": true, "at": true,
	"is": true, "are": true, "be": true, "as": true, "by": true, "from": true,
	"what": true, "how": true, "when": true, "which": true, "should": true,
	"can": true, "do": true, "does": true, "this": true, "that": true,
	"not": true, "may": true, "was": true, "were": true, "has": true,
	"have": true, "been": true, "patient": true, "patients": true,
}

// Tokenize lowercases text and returns its content terms, stopwords and
// one-character fragments removed. Order preserved, duplicates kept.
func Tokenize(text string) []string {
	var terms []string
	for _, w := range wordRe.FindAllString(strings.ToLower(text), -1) {
		if len(w) < 2 || stopwords[w] {
			continue
		}
		terms = append(terms, w)
	}
	return terms
}

// TermSet returns the unique terms of text.
func TermSet(text string) map[string]bool {
	set := make(map[string]bool)
	for _, t := range Tokenize(text) {
		set[t] = true
	}
	return set
}

// Doc is one scorable unit: a chapter or a memory item.
type Doc struct {
	Title    string
	Body     string
	Keywords []string
	Year     int

	// Tie-break identity, per the ordering contract.
	Slug string
}

// Score computes the composite relevance of doc for the query and reports
// which query terms matched. The query is tokenized once by the caller via
// Tokenize; pass the raw query too for phrase bonuses.
func Score(doc Doc, query string, terms []string) (float64, []string) {
	q := strings.ToLower(strings.TrimSpace(query))
	title := strings.ToLower(doc.Title)
	body := strings.ToLower(doc.Body)

	keywords := make(map[string]bool, len(doc.Keywords))
	for _, k := range doc.Keywords {
		keywords[strings.ToLower(k)] = true
	}

	var score float64
	var matched []string
	seen := make(map[string]bool)
	note := func(term string) {
		if !seen[term] {
			seen[term] = true
			matched = append(matched, term)
		}
	}

	for _, term := range terms {
		if strings.Contains(title, term) {
			score += TitleTermWeight
			note(term)
		}
		if keywords[term] {
			score += KeywordWeight
			note(term)
		}
		if n := strings.Count(body, term); n > 0 {
			score += min(float64(n)*BodyTermWeight, BodyTermCap)
			note(term)
		}
	}

	if q != "" && strings.Contains(title, q) {
		score += TitlePhraseBonus
	}
	if q != "" && strings.Contains(body, q) {
		score += BodyPhraseBonus
	}

	if score > 0 && doc.Year > 0 {
		score += float64(doc.Year) * RecencyPerYear
	}

	return score, matched
}

// Similarity is the Jaccard overlap of the token sets of a and b,
// used for fuzzy title matching.
func Similarity(a, b string) float64 {
	sa, sb := TermSet(a), TermSet(b)
	if len(sa) == 0 || len(sb) == 0 {
		return 0
	}
	inter := 0
	for t := range sa {
		if sb[t] {
			inter++
		}
	}
	union := len(sa) + len(sb) - inter
	return float64(inter) / float64(union)
}

// Ranked is a scored document plus its ordering identity.
type Ranked struct {
	Doc     Doc
	Score   float64
	Matched []string

	// Payload lets callers carry their result row through the sort.
	Payload any
}

// Sort orders results descending by score with a total tie-break:
// newer year first, then slug ascending, then title ascending. The order
// is reproducible for any input permutation.
func Sort(results []Ranked) {
	sort.SliceStable(results, func(i, j int) bool {
		a, b := results[i], results[j]
		if a.Score != b.Score {
			return a.Score > b.Score
		}
		if a.Doc.Year != b.Doc.Year {
			return a.Doc.Year > b.Doc.Year
		}
		if a.Doc.Slug != b.Doc.Slug {
			return a.Doc.Slug < b.Doc.Slug
		}
		return a.Doc.Title < b.Doc.Title
	})
}
