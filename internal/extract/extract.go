// Package extract is the boundary to the external text-extraction
// collaborator. The byte-level PDF work happens outside this repository;
// what arrives here is already per-page text. TextFile is the built-in
// implementation for pre-extracted documents on disk.
package extract

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"

	"cardiokb/internal/chapterize"
)

// Extractor produces a document's per-page text and metadata from a path.
type Extractor interface {
	Extract(ctx context.Context, path string) (chapterize.Document, error)
}

// TextFile reads pre-extracted text documents. Pages are separated by form
// feed characters; a file without form feeds is a single page.
type TextFile struct{}

// NewTextFile returns the plain-text extractor.
func NewTextFile() *TextFile { return &TextFile{} }

var yearRe = regexp.MustCompile(`(19|20)\d{2}`)

// Extract implements Extractor.
func (e *TextFile) Extract(ctx context.Context, path string) (chapterize.Document, error) {
	if err := ctx.Err(); err != nil {
		return chapterize.Document{}, err
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return chapterize.Document{}, fmt.Errorf("read document: %w", err)
	}
	text := string(raw)
	if strings.TrimSpace(text) == "" {
		return chapterize.Document{}, fmt.Errorf("document %s is empty", path)
	}

	var pages []chapterize.Page
	for i, pageText := range strings.Split(text, "\f") {
		pages = append(pages, chapterize.Page{Number: i + 1, Text: pageText})
	}

	title := titleFrom(path, pages[0].Text)
	return chapterize.Document{
		Title:      title,
		Year:       yearFrom(filepath.Base(path), title),
		SourcePath: path,
		Pages:      pages,
	}, nil
}

// titleFrom prefers the document's first non-empty line, falling back to
// the file name without extension.
func titleFrom(path, firstPage string) string {
	for _, line := range strings.Split(firstPage, "\n") {
		line = strings.TrimSpace(line)
		if line != "" {
			return line
		}
	}
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

// yearFrom pulls a plausible publication year out of the file name, then
// the title. Zero when neither carries one.
func yearFrom(filename, title string) int {
	for _, s := range []string{filename, title} {
		if m := yearRe.FindString(s); m != "" {
			y, _ := strconv.Atoi(m)
			return y
		}
	}
	return 0
}
