// Package proposal turns a content query into a pending, hash-bound
// function proposal: resolve the target knowledge through search, classify
// it as structured or narrative, delegate generation to the external
// oracle, and record the result in the ledger. Nothing here executes or
// persists generated code as a usable function.
package proposal

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"go.uber.org/zap"

	"cardiokb/internal/apperr"
	"cardiokb/internal/chapterize"
	"cardiokb/internal/ledger"
	"cardiokb/internal/model"
	"cardiokb/internal/oracle"
	"cardiokb/internal/store"
)

// NarrativeWarning accompanies proposals sourced from prose rather than a
// structured table.
const NarrativeWarning = "narrative-sourced function: generated from prose, not structured data; review risk is materially higher"

// Engine resolves content and produces proposals.
type Engine struct {
	Store  *store.SQLiteStore
	Ledger *ledger.Ledger
	Gen    oracle.Generator
	Log    *zap.Logger
}

// New returns a proposal engine.
func New(s *store.SQLiteStore, l *ledger.Ledger, gen oracle.Generator, log *zap.Logger) *Engine {
	if log == nil {
		log = zap.NewNop()
	}
	return &Engine{Store: s, Ledger: l, Gen: gen, Log: log}
}

// Outcome is the proposal plus caller guidance.
type Outcome struct {
	Proposal model.FunctionProposal `json:"proposal"`
	Warning  string                 `json:"warning,omitempty"`
	NextStep string                 `json:"next_step"`
}

// Propose resolves the content query against the search engine, takes the
// top chapter hit, and creates an independent pending proposal. Repeated
// calls for the same query are not deduplicated; each proposal carries its
// own id and hash and whichever is approved later supersedes the rest.
func (e *Engine) Propose(ctx context.Context, contentQuery string) (Outcome, error) {
	if strings.TrimSpace(contentQuery) == "" {
		return Outcome{}, apperr.E(apperr.ErrValidation, "content query is required")
	}

	resp, err := e.Store.Search(ctx, store.SearchParams{Query: contentQuery})
	if err != nil {
		return Outcome{}, err
	}
	top, ok := topChapter(resp.Results)
	if !ok {
		return Outcome{}, apperr.E(apperr.ErrNotFound,
			"no guideline content matched %q", contentQuery)
	}

	content, _, err := e.Store.GetChapter(ctx, top.GuidelineSlug, top.Title)
	if err != nil {
		return Outcome{}, err
	}
	ch := content.Chapter

	name := suggestName(ch.Title)
	req := oracle.Request{
		FunctionName: name,
		SourceTitle:  fmt.Sprintf("%s - %s (%d)", ch.Title, content.Citation.Title, content.Citation.Year),
	}

	var p model.FunctionProposal
	if ch.AutoGenerable {
		// Structured target: feed the oracle the numeric tables, not prose.
		req.Structured = true
		req.Content = renderTables(ch.Tables)
	} else {
		req.Content = ch.Body
		p.RequiresValidation = true
	}

	result, err := e.Gen.Generate(ctx, req)
	if err != nil {
		return Outcome{}, fmt.Errorf("generation failed: %w", err)
	}

	p.ContentQuery = contentQuery
	p.SourceSlug = content.Citation.Slug
	p.SourceTitle = ch.Title
	p.SourceExcerpt = excerpt(req.Content)
	p.GeneratedCode = result.Code
	p.GeneratedTests = result.Tests
	// Hashed once, here, over the exact generated bytes. Approval compares
	// against this stored value only.
	p.CodeHash = chapterize.HashText(result.Code)

	p, err = e.Ledger.CreateProposal(ctx, p)
	if err != nil {
		return Outcome{}, err
	}

	e.Log.Info("function proposal created",
		zap.String("proposal_id", p.ID),
		zap.String("source", p.SourceSlug+"/"+p.SourceTitle),
		zap.Bool("requires_validation", p.RequiresValidation))

	out := Outcome{
		Proposal: p,
		NextStep: fmt.Sprintf("review the code, recompute its SHA-256, then approve with proposal_id=%s", p.ID),
	}
	if p.RequiresValidation {
		out.Warning = NarrativeWarning
	}
	return out, nil
}

// topChapter returns the first chapter-sourced result. Memory items can
// outrank chapters in search, but proposals only target guideline content.
func topChapter(results []store.SearchResult) (store.SearchResult, bool) {
	for _, r := range results {
		if r.SourceType == model.SourceChapter {
			return r, true
		}
	}
	return store.SearchResult{}, false
}

var nameCleanRe = regexp.MustCompile(`[^a-z0-9]+`)

// suggestName derives a function name from the chapter title, prefixed so
// generated functions are recognizable in the registry.
func suggestName(title string) string {
	name := nameCleanRe.ReplaceAllString(strings.ToLower(title), "_")
	name = strings.Trim(name, "_")
	if name == "" {
		name = "function"
	}
	return "generated_" + name
}

// renderTables flattens tables into pipe-delimited text for the oracle.
func renderTables(tables []model.Table) string {
	var b strings.Builder
	for i, t := range tables {
		if i > 0 {
			b.WriteString("\n\n")
		}
		if t.Caption != "" {
			b.WriteString(t.Caption)
			b.WriteString("\n")
		}
		b.WriteString(strings.Join(t.Headers, " | "))
		for _, row := range t.Rows {
			b.WriteString("\n")
			b.WriteString(strings.Join(row, " | "))
		}
	}
	return b.String()
}

func excerpt(content string) string {
	content = strings.TrimSpace(content)
	if len(content) <= store.PreviewLen {
		return content
	}
	return content[:store.PreviewLen] + "..."
}
