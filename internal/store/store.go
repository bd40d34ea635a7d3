// Package store provides the SQLite-backed knowledge store: guidelines,
// chapters, tables, and user memory items, plus search and retrieval over
// them. The store exclusively owns these lifetimes; nothing else writes.
package store

import (
	"time"

	"cardiokb/internal/model"
)

// IngestStatus is the per-document outcome of ingestion.
type IngestStatus string

const (
	IngestOK        IngestStatus = "ok"
	IngestDuplicate IngestStatus = "duplicate"
	IngestError     IngestStatus = "error"
)

// SearchParams holds parameters for ranked search.
type SearchParams struct {
	Query      string
	MaxResults int // 0 means DefaultMaxResults
}

// DefaultMaxResults caps search output when the caller doesn't.
const DefaultMaxResults = 5

// PreviewLen bounds body previews in search results.
const PreviewLen = 500

// SearchResult is one ranked hit: a guideline chapter or a memory item,
// tagged by origin so provenance is never ambiguous.
type SearchResult struct {
	SourceType      model.SourceType `json:"source_type"`
	GuidelineSlug   string           `json:"guideline_slug,omitempty"`
	GuidelineTitle  string           `json:"guideline_title,omitempty"`
	Year            int              `json:"year,omitempty"`
	Title           string           `json:"title"`
	Preview         string           `json:"preview"`
	MatchedKeywords []string         `json:"matched_keywords,omitempty"`
	Score           float64          `json:"score"`
	TableCount      int              `json:"table_count,omitempty"`
	MemoryID        int64            `json:"memory_id,omitempty"`
}

// SearchResponse carries ranked results, or the recovery aids when nothing
// scored above the threshold: a widened result set with the threshold
// relaxed to zero, plus every chapter title in the knowledge base.
type SearchResponse struct {
	Results         []SearchResult `json:"results"`
	Widened         []SearchResult `json:"widened_results,omitempty"`
	AvailableTitles []string       `json:"available_titles,omitempty"`
}

// Citation identifies the guideline a piece of content came from. It always
// travels with chapter content so answers stay traceable to source.
type Citation struct {
	Slug  string `json:"slug"`
	Title string `json:"title"`
	Year  int    `json:"year,omitempty"`
}

// ChapterContent is a full chapter plus its controlling citation.
type ChapterContent struct {
	Chapter  model.Chapter `json:"chapter"`
	Citation Citation      `json:"citation"`
}

// MemoryParams holds parameters for storing a memory item.
type MemoryParams struct {
	Content  string
	Keywords []string
	Tags     []string
}

// GuidelineSummary is one row of the knowledge-base status report.
type GuidelineSummary struct {
	Slug        string    `json:"slug"`
	Title       string    `json:"title"`
	Year        int       `json:"year,omitempty"`
	ContentHash string    `json:"content_hash"`
	Chapters    int       `json:"chapters"`
	Tables      int       `json:"tables"`
	AutoGen     int       `json:"auto_generable"`
	IngestedAt  time.Time `json:"ingested_at"`
}

// Status summarizes the knowledge base.
type Status struct {
	Guidelines    []GuidelineSummary `json:"guidelines"`
	TotalChapters int                `json:"total_chapters"`
	TotalTables   int                `json:"total_tables"`
	MemoryItems   int                `json:"memory_items"`
}

// ChapterInfo is a chapter outline entry for listing.
type ChapterInfo struct {
	Title         string   `json:"title"`
	Keywords      []string `json:"keywords,omitempty"`
	TableCount    int      `json:"table_count"`
	AutoGenerable bool     `json:"auto_generable"`
	OrderIndex    int      `json:"order_index"`
}
