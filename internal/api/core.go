package api

import (
	"context"
	"time"

	"go.uber.org/zap"

	"cardiokb/internal/ingest"
	"cardiokb/internal/ledger"
	"cardiokb/internal/model"
	"cardiokb/internal/oracle"
	"cardiokb/internal/proposal"
	"cardiokb/internal/store"
)

// Core owns the subsystem wiring: the knowledge store, the approval
// ledger, the proposal engine, and the batch processor. It is constructed
// once at process start and passed to transports explicitly; there is no
// ambient global knowledge base.
type Core struct {
	store     *store.SQLiteStore
	ledger    *ledger.Ledger
	engine    *proposal.Engine
	processor *ingest.Processor
	log       *zap.Logger
}

// New wires a Core from its owned stores and the external generator.
func New(s *store.SQLiteStore, l *ledger.Ledger, gen oracle.Generator, log *zap.Logger) *Core {
	if log == nil {
		log = zap.NewNop()
	}
	return &Core{
		store:     s,
		ledger:    l,
		engine:    proposal.New(s, l, gen, log),
		processor: ingest.New(s, log),
		log:       log,
	}
}

// Close flushes and closes both stores.
func (c *Core) Close() error {
	serr := c.store.Close()
	lerr := c.ledger.Close()
	if serr != nil {
		return serr
	}
	return lerr
}

// SetIngestDefaults applies configured batch defaults: the per-document
// timeout and the worker count used when a request doesn't name one.
func (c *Core) SetIngestDefaults(timeout time.Duration, parallel int) {
	if timeout > 0 {
		c.processor.Timeout = timeout
	}
	if parallel > 0 {
		c.processor.Parallel = parallel
	}
}

// ProcessDocuments ingests a batch with per-document failure isolation.
func (c *Core) ProcessDocuments(ctx context.Context, req ProcessDocumentsRequest) ([]ingest.Report, error) {
	if err := checkRequest(req); err != nil {
		return nil, err
	}
	return c.processor.Process(ctx, req.Paths, req.Parallel)
}

// Search runs ranked retrieval over chapters and memory items.
func (c *Core) Search(ctx context.Context, req SearchRequest) (store.SearchResponse, error) {
	if err := checkRequest(req); err != nil {
		return store.SearchResponse{}, err
	}
	return c.store.Search(ctx, store.SearchParams{Query: req.Query, MaxResults: req.MaxResults})
}

// ChapterResult is a retrieved chapter, or the suggestion set on a miss.
type ChapterResult struct {
	store.ChapterContent
	Suggestions []string `json:"suggestions,omitempty"`
}

// GetChapter retrieves one full chapter with its citation. On NotFound the
// returned error is accompanied by the guideline's real titles.
func (c *Core) GetChapter(ctx context.Context, req GetChapterRequest) (ChapterResult, error) {
	if err := checkRequest(req); err != nil {
		return ChapterResult{}, err
	}
	content, suggestions, err := c.store.GetChapter(ctx, req.Guideline, req.Title)
	if err != nil {
		return ChapterResult{Suggestions: suggestions}, err
	}
	return ChapterResult{ChapterContent: content}, nil
}

// ProposeFunction resolves content and creates a pending proposal.
func (c *Core) ProposeFunction(ctx context.Context, req ProposeFunctionRequest) (proposal.Outcome, error) {
	if err := checkRequest(req); err != nil {
		return proposal.Outcome{}, err
	}
	return c.engine.Propose(ctx, req.ContentQuery)
}

// ApprovalResult reports a successful approval.
type ApprovalResult struct {
	Status       string `json:"status"`
	FunctionName string `json:"function_name"`
	Version      int    `json:"version"`
}

// ApproveFunction runs the hash-verified approval transition.
func (c *Core) ApproveFunction(ctx context.Context, req ApproveFunctionRequest) (ApprovalResult, error) {
	if err := checkRequest(req); err != nil {
		return ApprovalResult{}, err
	}
	version, err := c.ledger.Approve(ctx, ledger.ApproveParams{
		ProposalID:   req.ProposalID,
		CodeHash:     req.CodeHash,
		FunctionName: req.FunctionName,
		ApprovedBy:   req.ApprovedBy,
	})
	if err != nil {
		return ApprovalResult{}, err
	}
	c.log.Info("function approved",
		zap.String("proposal_id", req.ProposalID),
		zap.String("name", req.FunctionName),
		zap.Int("version", version))
	return ApprovalResult{Status: "approved", FunctionName: req.FunctionName, Version: version}, nil
}

// RejectionResult reports a successful rejection.
type RejectionResult struct {
	Status string `json:"status"`
}

// RejectFunction runs the rejection transition.
func (c *Core) RejectFunction(ctx context.Context, req RejectFunctionRequest) (RejectionResult, error) {
	if err := checkRequest(req); err != nil {
		return RejectionResult{}, err
	}
	err := c.ledger.Reject(ctx, ledger.RejectParams{
		ProposalID: req.ProposalID,
		Reason:     req.Reason,
		DecidedBy:  req.DecidedBy,
	})
	if err != nil {
		return RejectionResult{}, err
	}
	c.log.Info("function rejected",
		zap.String("proposal_id", req.ProposalID),
		zap.String("reason", req.Reason))
	return RejectionResult{Status: "rejected"}, nil
}

// MemoryResult reports a stored memory item.
type MemoryResult struct {
	MemoryID int64 `json:"memory_id"`
}

// StoreMemory appends a user knowledge note.
func (c *Core) StoreMemory(ctx context.Context, req StoreMemoryRequest) (MemoryResult, error) {
	if err := checkRequest(req); err != nil {
		return MemoryResult{}, err
	}
	id, err := c.store.StoreMemory(ctx, store.MemoryParams{
		Content:  req.Content,
		Keywords: req.Keywords,
		Tags:     req.Tags,
	})
	if err != nil {
		return MemoryResult{}, err
	}
	return MemoryResult{MemoryID: id}, nil
}

// ListProposals returns every proposal, newest first.
func (c *Core) ListProposals(ctx context.Context) ([]model.FunctionProposal, error) {
	return c.ledger.ListProposals(ctx)
}

// ListFunctions returns every registry entry.
func (c *Core) ListFunctions(ctx context.Context) ([]model.RegistryEntry, error) {
	return c.ledger.Functions(ctx)
}

// AuditTrail returns every approval record, oldest first.
func (c *Core) AuditTrail(ctx context.Context) ([]model.ApprovalRecord, error) {
	return c.ledger.Records(ctx)
}

// Status summarizes the knowledge base.
func (c *Core) Status(ctx context.Context) (store.Status, error) {
	return c.store.Status(ctx)
}

// ChapterOutline is a guideline's chapter listing with its citation.
type ChapterOutline struct {
	Citation store.Citation      `json:"citation"`
	Chapters []store.ChapterInfo `json:"chapters"`
}

// ListChapters lists one guideline's chapter outline.
func (c *Core) ListChapters(ctx context.Context, req ListChaptersRequest) (ChapterOutline, error) {
	if err := checkRequest(req); err != nil {
		return ChapterOutline{}, err
	}
	citation, chapters, err := c.store.ListChapters(ctx, req.Guideline)
	if err != nil {
		return ChapterOutline{}, err
	}
	return ChapterOutline{Citation: citation, Chapters: chapters}, nil
}
