// Package mcpserver exposes the knowledge base over the Model Context
// Protocol. This is wiring only: every tool handler parses arguments,
// calls into api.Core, and renders the result as JSON text.
package mcpserver

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"cardiokb/internal/api"
	"cardiokb/internal/apperr"
)

// Version is set at build time via ldflags.
var Version = "dev"

// New builds the MCP server with every knowledge-base tool registered.
func New(core *api.Core) *server.MCPServer {
	s := server.NewMCPServer(
		"cardiokb",
		Version,
		server.WithToolCapabilities(true),
		server.WithRecovery(),
		server.WithInstructions(instructions),
	)

	h := handlers{core: core}

	s.AddTool(mcp.NewTool("process_documents",
		mcp.WithDescription("Ingest one or more guideline documents into the knowledge base. Re-ingesting identical content is a no-op."),
		mcp.WithString("paths", mcp.Required(), mcp.Description("Comma-separated file paths to ingest")),
		mcp.WithString("parallel", mcp.Description("Worker count for batch ingestion (default 1)")),
	), h.processDocuments)

	s.AddTool(mcp.NewTool("search_knowledge",
		mcp.WithDescription("Search guideline chapters and stored memory items. Returns ranked previews with citations."),
		mcp.WithString("query", mcp.Required(), mcp.Description("Free-text clinical query")),
		mcp.WithString("max_results", mcp.Description("Maximum results to return (default 5)")),
	), h.search)

	s.AddTool(mcp.NewTool("get_chapter",
		mcp.WithDescription("Fetch the full text of a chapter by guideline and chapter title. Near-miss titles resolve fuzzily; unresolvable titles return suggestions."),
		mcp.WithString("guideline", mcp.Required(), mcp.Description("Guideline slug or content hash")),
		mcp.WithString("title", mcp.Required(), mcp.Description("Chapter title, exact or approximate")),
	), h.getChapter)

	s.AddTool(mcp.NewTool("propose_function",
		mcp.WithDescription("Generate a calculator function from guideline content and record it as a pending proposal. Nothing is registered until a human approves."),
		mcp.WithString("query", mcp.Required(), mcp.Description("Description of the clinical calculation wanted")),
	), h.propose)

	s.AddTool(mcp.NewTool("approve_function",
		mcp.WithDescription("Approve a pending proposal, registering the function at the next version. The supplied code hash must match the proposal."),
		mcp.WithString("proposal_id", mcp.Required(), mcp.Description("Proposal identifier")),
		mcp.WithString("code_hash", mcp.Required(), mcp.Description("SHA-256 hash of the reviewed code, lowercase hex")),
		mcp.WithString("function_name", mcp.Required(), mcp.Description("Name to register the function under")),
		mcp.WithString("approved_by", mcp.Description("Reviewer identity")),
	), h.approve)

	s.AddTool(mcp.NewTool("reject_function",
		mcp.WithDescription("Reject a pending proposal with a reason. Rejection is terminal."),
		mcp.WithString("proposal_id", mcp.Required(), mcp.Description("Proposal identifier")),
		mcp.WithString("reason", mcp.Required(), mcp.Description("Why the proposal is rejected")),
		mcp.WithString("rejected_by", mcp.Description("Reviewer identity")),
	), h.reject)

	s.AddTool(mcp.NewTool("store_memory",
		mcp.WithDescription("Store a free-text note. Memories are searchable alongside guideline chapters."),
		mcp.WithString("content", mcp.Required(), mcp.Description("Note text")),
		mcp.WithString("keywords", mcp.Description("Comma-separated keywords")),
		mcp.WithString("tags", mcp.Description("Comma-separated tags")),
	), h.storeMemory)

	s.AddTool(mcp.NewTool("list_proposals",
		mcp.WithDescription("List function proposals, newest first."),
	), h.listProposals)

	s.AddTool(mcp.NewTool("list_functions",
		mcp.WithDescription("List registered function versions."),
	), h.listFunctions)

	s.AddTool(mcp.NewTool("list_chapters",
		mcp.WithDescription("List the chapter outline of a guideline."),
		mcp.WithString("guideline", mcp.Required(), mcp.Description("Guideline slug or content hash")),
	), h.listChapters)

	s.AddTool(mcp.NewTool("status",
		mcp.WithDescription("Report knowledge base counts."),
	), h.status)

	return s
}

// ServeStdio runs the server over stdin/stdout until the client disconnects.
func ServeStdio(s *server.MCPServer) error {
	return server.ServeStdio(s)
}

const instructions = `cardiokb is a clinical guideline knowledge base.
Ingest documents with process_documents, then search_knowledge and
get_chapter to read them. propose_function drafts calculator code from
guideline content; generated code never runs until a human approves it
with approve_function.`

type handlers struct {
	core *api.Core
}

func (h handlers) processDocuments(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	paths, err := req.RequireString("paths")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	parallel, perr := api.ParseInt(req.GetString("parallel", ""), 0, 0, 16)
	if perr != nil {
		return toolErr(perr), nil
	}
	reports, err := h.core.ProcessDocuments(ctx, api.ProcessDocumentsRequest{
		Paths:    splitList(paths),
		Parallel: parallel,
	})
	if err != nil {
		return toolErr(err), nil
	}
	return toolJSON(reports)
}

func (h handlers) search(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	query, err := req.RequireString("query")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	limit, perr := api.ParseInt(req.GetString("max_results", ""), 0, 0, 50)
	if perr != nil {
		return toolErr(perr), nil
	}
	resp, err := h.core.Search(ctx, api.SearchRequest{Query: query, MaxResults: limit})
	if err != nil {
		return toolErr(err), nil
	}
	return toolJSON(resp)
}

func (h handlers) getChapter(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	guideline, err := req.RequireString("guideline")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	title, err := req.RequireString("title")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	res, err := h.core.GetChapter(ctx, api.GetChapterRequest{Guideline: guideline, Title: title})
	if err != nil {
		// Suggestions ride along on NotFound so the client can retry.
		if apperr.KindOf(err) == apperr.ErrNotFound && len(res.Suggestions) > 0 {
			return toolJSON(map[string]any{
				"error":       apperr.Code(err),
				"detail":      err.Error(),
				"suggestions": res.Suggestions,
			})
		}
		return toolErr(err), nil
	}
	return toolJSON(res)
}

func (h handlers) propose(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	query, err := req.RequireString("query")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	out, err := h.core.ProposeFunction(ctx, api.ProposeFunctionRequest{ContentQuery: query})
	if err != nil {
		return toolErr(err), nil
	}
	return toolJSON(out)
}

func (h handlers) approve(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := req.RequireString("proposal_id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	hash, err := req.RequireString("code_hash")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	name, err := req.RequireString("function_name")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	out, err := h.core.ApproveFunction(ctx, api.ApproveFunctionRequest{
		ProposalID:   id,
		CodeHash:     hash,
		FunctionName: name,
		ApprovedBy:   req.GetString("approved_by", "mcp-client"),
	})
	if err != nil {
		return toolErr(err), nil
	}
	return toolJSON(out)
}

func (h handlers) reject(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := req.RequireString("proposal_id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	reason, err := req.RequireString("reason")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	out, err := h.core.RejectFunction(ctx, api.RejectFunctionRequest{
		ProposalID: id,
		Reason:     reason,
		DecidedBy:  req.GetString("rejected_by", "mcp-client"),
	})
	if err != nil {
		return toolErr(err), nil
	}
	return toolJSON(out)
}

func (h handlers) storeMemory(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	content, err := req.RequireString("content")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	out, err := h.core.StoreMemory(ctx, api.StoreMemoryRequest{
		Content:  content,
		Keywords: splitList(req.GetString("keywords", "")),
		Tags:     splitList(req.GetString("tags", "")),
	})
	if err != nil {
		return toolErr(err), nil
	}
	return toolJSON(out)
}

func (h handlers) listProposals(ctx context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	out, err := h.core.ListProposals(ctx)
	if err != nil {
		return toolErr(err), nil
	}
	return toolJSON(out)
}

func (h handlers) listFunctions(ctx context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	out, err := h.core.ListFunctions(ctx)
	if err != nil {
		return toolErr(err), nil
	}
	return toolJSON(out)
}

func (h handlers) listChapters(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	guideline, err := req.RequireString("guideline")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	out, err := h.core.ListChapters(ctx, api.ListChaptersRequest{Guideline: guideline})
	if err != nil {
		return toolErr(err), nil
	}
	return toolJSON(out)
}

func (h handlers) status(ctx context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	out, err := h.core.Status(ctx)
	if err != nil {
		return toolErr(err), nil
	}
	return toolJSON(out)
}

func toolJSON(v any) (*mcp.CallToolResult, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("encode result: %v", err)), nil
	}
	return mcp.NewToolResultText(string(data)), nil
}

func toolErr(err error) *mcp.CallToolResult {
	return mcp.NewToolResultError(fmt.Sprintf("%s: %v", apperr.Code(err), err))
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
