// Package model defines the core knowledge-base data types.
package model

import "time"

// Guideline is one ingested source document, identified by the SHA-256 of
// its full extracted text. Identical bytes always hash to the same value,
// which is what makes re-ingestion idempotent.
type Guideline struct {
	ContentHash string    `json:"content_hash"`
	Slug        string    `json:"slug"`
	Title       string    `json:"title"`
	Year        int       `json:"year,omitempty"`
	SourcePath  string    `json:"source_path,omitempty"`
	Chapters    []Chapter `json:"chapters,omitempty"`
	IngestedAt  time.Time `json:"ingested_at"`
}

// Chapter is a titled segment of a guideline's text. Titles are unique
// within a guideline; collisions get a disambiguating suffix at ingestion.
type Chapter struct {
	Title         string   `json:"title"`
	Body          string   `json:"body"`
	Keywords      []string `json:"keywords,omitempty"`
	Tables        []Table  `json:"tables,omitempty"`
	AutoGenerable bool     `json:"auto_generable"`
	OrderIndex    int      `json:"order_index"`
}

// Table is tabular content lifted out of a chapter body. Beyond structural
// checks the cells are opaque.
type Table struct {
	Headers []string   `json:"headers"`
	Rows    [][]string `json:"rows"`
	Caption string     `json:"caption,omitempty"`
}

// Numeric reports whether the table is fully numeric and rectangular:
// every row has exactly len(Headers) cells and every data cell parses as a
// number. Only such tables make a chapter auto-generable.
func (t Table) Numeric() bool {
	if len(t.Headers) == 0 || len(t.Rows) == 0 {
		return false
	}
	for _, row := range t.Rows {
		if len(row) != len(t.Headers) {
			return false
		}
		for _, cell := range row {
			if !isNumericCell(cell) {
				return false
			}
		}
	}
	return true
}

func isNumericCell(s string) bool {
	seen := false
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case c >= '0' && c <= '9':
			seen = true
		case c == '.' || c == '-' || c == '+' || c == '%' || c == ' ':
		// Threshold cells like "<25" or ">40" still describe numbers.
		case c == '<' || c == '>' || c == '=':
		default:
			return false
		}
	}
	return seen
}

// MemoryItem is a user-submitted knowledge note. Items are append-only;
// corrections are new items, never edits.
type MemoryItem struct {
	ID        int64     `json:"id"`
	Content   string    `json:"content"`
	Keywords  []string  `json:"keywords,omitempty"`
	Tags      []string  `json:"tags,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// ProposalStatus is the lifecycle state of a function proposal.
type ProposalStatus string

const (
	StatusPending  ProposalStatus = "pending"
	StatusApproved ProposalStatus = "approved"
	StatusRejected ProposalStatus = "rejected"
)

// FunctionProposal is an unapproved, hash-bound candidate function. CodeHash
// is computed once over GeneratedCode at creation and never recomputed from
// caller input: the approver must reproduce it independently.
type FunctionProposal struct {
	ID                 string         `json:"proposal_id"`
	ContentQuery       string         `json:"content_query"`
	SourceSlug         string         `json:"source_slug"`
	SourceTitle        string         `json:"source_title"`
	SourceExcerpt      string         `json:"source_excerpt"`
	GeneratedCode      string         `json:"generated_code"`
	GeneratedTests     string         `json:"generated_tests"`
	CodeHash           string         `json:"code_hash"`
	RequiresValidation bool           `json:"requires_validation"`
	Status             ProposalStatus `json:"status"`
	CreatedAt          time.Time      `json:"created_at"`
}

// ApprovalRecord is one entry of the append-only decision audit trail.
type ApprovalRecord struct {
	ProposalID   string    `json:"proposal_id"`
	FunctionName string    `json:"function_name,omitempty"`
	Version      int       `json:"version,omitempty"`
	Outcome      string    `json:"outcome"`
	Reason       string    `json:"reason,omitempty"`
	DecidedBy    string    `json:"decided_by,omitempty"`
	DecidedAt    time.Time `json:"decided_at"`
}

// RegistryEntry is one approved, versioned function. Versions per name are
// strictly increasing from 1 and never overwritten.
type RegistryEntry struct {
	Name         string    `json:"name"`
	Version      int       `json:"version"`
	Code         string    `json:"code"`
	Tests        string    `json:"tests,omitempty"`
	ApprovedFrom string    `json:"approved_from"`
	ApprovedAt   time.Time `json:"approved_at"`
}

// SourceType distinguishes search-result provenance.
type SourceType string

const (
	SourceChapter SourceType = "chapter"
	SourceMemory  SourceType = "memory"
)
