// Package chapterize segments a document's extracted page text into titled
// chapters with keywords and tables. The heuristics live behind Strategy so
// they can be swapped without touching the store or search contracts.
package chapterize

import (
	"crypto/sha256"
	"encoding/hex"
	"regexp"
	"strconv"
	"strings"

	"cardiokb/internal/model"
)

// Page is one page of extracted text, as supplied by the external
// text-extraction collaborator.
type Page struct {
	Number int
	Text   string
}

// Document is the chapterizer input: metadata plus per-page text.
type Document struct {
	Title      string
	Year       int
	SourcePath string
	Pages      []Page
}

// Strategy turns a document into chapters. Implementations must emit at
// least one chapter for any document with non-empty text: when no structure
// is found the whole body becomes a single fallback chapter.
type Strategy interface {
	Segment(doc Document) []model.Chapter
}

// Build runs the strategy and assembles the guideline, including its
// content hash and slug. The hash covers the full extracted text, so
// identical bytes always produce the same guideline identity.
func Build(doc Document, strategy Strategy) model.Guideline {
	chapters := strategy.Segment(doc)
	return model.Guideline{
		ContentHash: HashText(fullText(doc)),
		Slug:        Slugify(doc.Title, doc.Year),
		Title:       doc.Title,
		Year:        doc.Year,
		SourcePath:  doc.SourcePath,
		Chapters:    chapters,
	}
}

// HashText returns the lowercase hex SHA-256 of text.
func HashText(text string) string {
	sum := sha256.Sum256([]byte(text))
	return hex.EncodeToString(sum[:])
}

func fullText(doc Document) string {
	var b strings.Builder
	for _, p := range doc.Pages {
		b.WriteString(p.Text)
		b.WriteString("\n")
	}
	return b.String()
}

var slugCleanRe = regexp.MustCompile(`[^a-z0-9]+`)

// Slugify derives a stable human-readable identifier from title and year.
func Slugify(title string, year int) string {
	s := slugCleanRe.ReplaceAllString(strings.ToLower(title), "-")
	s = strings.Trim(s, "-")
	if s == "" {
		s = "untitled"
	}
	if year > 0 {
		s += "-" + strconv.Itoa(year)
	}
	return s
}

// Heuristic is the default line-based segmentation strategy: short lines
// with heading casing or numbering open a new chapter, everything until the
// next heading is that chapter's body.
type Heuristic struct {
	// MaxHeadingLen rejects long lines as headings. Zero means default.
	MaxHeadingLen int
	// KeywordCap bounds the keyword set per chapter. Zero means default.
	KeywordCap int
}

const (
	defaultMaxHeadingLen = 90
	defaultKeywordCap    = 20
)

// NewHeuristic returns the default heuristic strategy.
func NewHeuristic() *Heuristic {
	return &Heuristic{MaxHeadingLen: defaultMaxHeadingLen, KeywordCap: defaultKeywordCap}
}

var (
	numberedHeadingRe = regexp.MustCompile(`^\d+(\.\d+)*\.?\s+[A-Z]`)
	colonHeadingRe    = regexp.MustCompile(`^[A-Z][A-Za-z][^.!?]*:$`)
	letterRe          = regexp.MustCompile(`[A-Za-z]{3,}`)
)

// Segment implements Strategy.
func (h *Heuristic) Segment(doc Document) []model.Chapter {
	maxLen := h.MaxHeadingLen
	if maxLen == 0 {
		maxLen = defaultMaxHeadingLen
	}
	kwCap := h.KeywordCap
	if kwCap == 0 {
		kwCap = defaultKeywordCap
	}

	var chapters []model.Chapter
	var title string
	var body []string

	flush := func() {
		text := strings.TrimSpace(strings.Join(body, "\n"))
		if title == "" && text == "" {
			return
		}
		ch := model.Chapter{
			Title:      title,
			Body:       text,
			OrderIndex: len(chapters),
		}
		ch.Tables = detectTables(text)
		ch.Keywords = extractKeywords(ch.Title, text, kwCap)
		for _, t := range ch.Tables {
			if t.Numeric() {
				ch.AutoGenerable = true
				break
			}
		}
		chapters = append(chapters, ch)
		title, body = "", nil
	}

	for _, page := range doc.Pages {
		for _, line := range strings.Split(page.Text, "\n") {
			trimmed := strings.TrimSpace(line)
			if h.isHeading(trimmed, maxLen) {
				if title != "" || len(body) > 0 {
					flush()
				}
				title = trimmed
				continue
			}
			body = append(body, line)
		}
	}
	flush()

	// Drop leading front matter that has no heading when real chapters follow.
	if len(chapters) > 1 && chapters[0].Title == "" {
		chapters = chapters[1:]
		for i := range chapters {
			chapters[i].OrderIndex = i
		}
	}

	// No structure found anywhere: a single fallback chapter titled from the
	// document. Ingestion must never fail just because segmentation did.
	if len(chapters) == 0 || (len(chapters) == 1 && chapters[0].Title == "") {
		text := strings.TrimSpace(fullText(doc))
		if text == "" && len(chapters) == 1 {
			text = chapters[0].Body
		}
		fallbackTitle := strings.TrimSpace(doc.Title)
		if fallbackTitle == "" {
			fallbackTitle = "Document"
		}
		ch := model.Chapter{Title: fallbackTitle, Body: text}
		ch.Tables = detectTables(text)
		ch.Keywords = extractKeywords(fallbackTitle, text, kwCap)
		for _, t := range ch.Tables {
			if t.Numeric() {
				ch.AutoGenerable = true
				break
			}
		}
		chapters = []model.Chapter{ch}
	}

	dedupeTitles(chapters)
	return chapters
}

// isHeading applies the heading heuristics: a heading is a short line that
// is numbered ("5.2 Aortic stenosis"), all-caps, or title-cased ending with
// a colon, and contains at least one readable word.
func (h *Heuristic) isHeading(line string, maxLen int) bool {
	if line == "" || len(line) > maxLen {
		return false
	}
	if len(letterRe.FindAllString(line, -1)) == 0 {
		return false
	}
	if numberedHeadingRe.MatchString(line) {
		return true
	}
	if colonHeadingRe.MatchString(line) {
		return true
	}
	if isAllCaps(line) && len(line) >= 8 {
		return true
	}
	return false
}

func isAllCaps(s string) bool {
	hasLetter := false
	for _, r := range s {
		if r >= 'a' && r <= 'z' {
			return false
		}
		if r >= 'A' && r <= 'Z' {
			hasLetter = true
		}
	}
	return hasLetter
}

// dedupeTitles appends " (2)", " (3)"... to repeated titles so every title
// is unique within the guideline. Comparison is case-insensitive, matching
// chapter retrieval.
func dedupeTitles(chapters []model.Chapter) {
	seen := make(map[string]int)
	for i := range chapters {
		key := strings.ToLower(chapters[i].Title)
		seen[key]++
		if n := seen[key]; n > 1 {
			chapters[i].Title += " (" + strconv.Itoa(n) + ")"
		}
	}
}
