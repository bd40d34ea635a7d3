// Package ingest runs batch document processing: extract, chapterize, and
// store, one document at a time with per-document failure isolation. One
// corrupted document never aborts or rolls back the rest of a batch.
package ingest

import (
	"context"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"cardiokb/internal/apperr"
	"cardiokb/internal/chapterize"
	"cardiokb/internal/extract"
	"cardiokb/internal/store"
)

// DefaultTimeout bounds one document's processing. A document that blows
// the bound is reported failed and the batch moves on.
const DefaultTimeout = 30 * time.Second

// Report is the per-document outcome. Errors are carried here, never
// returned as a batch-level failure.
type Report struct {
	Path              string             `json:"path"`
	Status            store.IngestStatus `json:"status"`
	GuidelineHash     string             `json:"guideline_hash,omitempty"`
	GuidelineSlug     string             `json:"guideline_slug,omitempty"`
	ChaptersExtracted int                `json:"chapters_extracted,omitempty"`
	ErrorDetail       string             `json:"error_detail,omitempty"`
}

// fail marks the report with a typed ingestion error for one pipeline stage.
func (r *Report) fail(stage string, err error) {
	r.ErrorDetail = apperr.E(apperr.ErrIngestion, "%s: %v", stage, err).Error()
}

// Processor wires the extraction collaborator, the segmentation strategy,
// and the knowledge store into a batch pipeline.
type Processor struct {
	Extractor extract.Extractor
	Strategy  chapterize.Strategy
	Store     *store.SQLiteStore
	Log       *zap.Logger

	// Timeout per document; zero means DefaultTimeout.
	Timeout time.Duration
	// Parallel is the number of documents processed concurrently. Zero or
	// one keeps the default sequential order. Documents are independent, so
	// parallelism is safe; reports always come back in input order.
	Parallel int
}

// New returns a Processor with the default text-file extractor and
// heuristic segmentation strategy.
func New(s *store.SQLiteStore, log *zap.Logger) *Processor {
	if log == nil {
		log = zap.NewNop()
	}
	return &Processor{
		Extractor: extract.NewTextFile(),
		Strategy:  chapterize.NewHeuristic(),
		Store:     s,
		Log:       log,
	}
}

// Process ingests every path and returns one report per path, in input
// order. A positive parallel overrides the configured worker count for
// this batch only; the Processor itself is not mutated. The returned error
// is only ever a context error on the batch as a whole; per-document
// failures live in the reports.
func (p *Processor) Process(ctx context.Context, paths []string, parallel int) ([]Report, error) {
	reports := make([]Report, len(paths))

	workers := parallel
	if workers < 1 {
		workers = p.Parallel
	}
	if workers < 1 {
		workers = 1
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for i, path := range paths {
		g.Go(func() error {
			reports[i] = p.processOne(gctx, path)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return reports, err
	}
	return reports, ctx.Err()
}

func (p *Processor) processOne(ctx context.Context, path string) Report {
	timeout := p.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	rep := Report{Path: path, Status: store.IngestError}

	doc, err := p.Extractor.Extract(ctx, path)
	if err != nil {
		rep.fail("extract", err)
		p.Log.Warn("document extraction failed", zap.String("path", path), zap.Error(err))
		return rep
	}

	g := chapterize.Build(doc, p.Strategy)
	if err := ctx.Err(); err != nil {
		rep.fail("segmentation", err)
		return rep
	}

	status, err := p.Store.IngestGuideline(ctx, g)
	if err != nil {
		rep.fail("store", err)
		p.Log.Warn("guideline store failed", zap.String("path", path), zap.Error(err))
		return rep
	}

	rep.Status = status
	rep.GuidelineHash = g.ContentHash
	rep.GuidelineSlug = g.Slug
	if status == store.IngestOK {
		rep.ChaptersExtracted = len(g.Chapters)
		p.Log.Info("guideline ingested",
			zap.String("slug", g.Slug),
			zap.String("hash", g.ContentHash),
			zap.Int("chapters", len(g.Chapters)))
	} else {
		p.Log.Info("guideline already processed", zap.String("hash", g.ContentHash))
	}
	return rep
}
