// Package api is the typed boundary of the knowledge assistant: one request
// struct per logical operation, validated before anything reaches the core,
// and a Core object that owns the wiring. Transports (CLI, MCP) marshal
// primitives into these requests and never talk to the stores directly.
package api

import (
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"

	"cardiokb/internal/apperr"
)

var validate = validator.New(validator.WithRequiredStructEnabled())

// ProcessDocumentsRequest ingests a batch of document paths.
type ProcessDocumentsRequest struct {
	Paths    []string `json:"paths" validate:"required,min=1,dive,required"`
	Parallel int      `json:"parallel" validate:"gte=0,lte=16"`
}

// SearchRequest runs ranked retrieval.
type SearchRequest struct {
	Query      string `json:"query" validate:"required"`
	MaxResults int    `json:"max_results" validate:"gte=0,lte=50"`
}

// GetChapterRequest retrieves one full chapter.
type GetChapterRequest struct {
	Guideline string `json:"guideline" validate:"required"`
	Title     string `json:"title" validate:"required"`
}

// ProposeFunctionRequest starts the generation workflow.
type ProposeFunctionRequest struct {
	ContentQuery string `json:"content_query" validate:"required"`
}

// ApproveFunctionRequest approves a pending proposal. The code hash is the
// approver's independently recomputed SHA-256 of the generated code.
type ApproveFunctionRequest struct {
	ProposalID   string `json:"proposal_id" validate:"required"`
	CodeHash     string `json:"code_hash" validate:"required,len=64,hexadecimal"`
	FunctionName string `json:"function_name" validate:"required"`
	ApprovedBy   string `json:"approved_by"`
}

// RejectFunctionRequest rejects a pending proposal with a reason.
type RejectFunctionRequest struct {
	ProposalID string `json:"proposal_id" validate:"required"`
	Reason     string `json:"reason" validate:"required"`
	DecidedBy  string `json:"decided_by"`
}

// StoreMemoryRequest appends a memory item.
type StoreMemoryRequest struct {
	Content  string   `json:"content" validate:"required"`
	Keywords []string `json:"keywords"`
	Tags     []string `json:"tags"`
}

// ListChaptersRequest lists one guideline's chapter outline.
type ListChaptersRequest struct {
	Guideline string `json:"guideline" validate:"required"`
}

// checkRequest runs struct validation and folds failures into the
// ValidationError taxonomy kind.
func checkRequest(req any) error {
	err := validate.Struct(req)
	if err == nil {
		return nil
	}
	verrs, ok := err.(validator.ValidationErrors)
	if !ok {
		return apperr.E(apperr.ErrValidation, "%v", err)
	}
	fields := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		fields = append(fields, fe.Field()+" ("+fe.Tag()+")")
	}
	return apperr.E(apperr.ErrValidation, "invalid fields: %s", strings.Join(fields, ", "))
}

// ParseBool converts a boundary boolean: only the literals "true" and
// "false" are accepted, empty means the default.
func ParseBool(s string, def bool) (bool, error) {
	switch strings.TrimSpace(s) {
	case "":
		return def, nil
	case "true":
		return true, nil
	case "false":
		return false, nil
	default:
		return false, apperr.E(apperr.ErrValidation, "boolean must be \"true\" or \"false\", got %q", s)
	}
}

// ParseInt converts a boundary integer with an inclusive range check.
// Empty means the default.
func ParseInt(s string, def, min, max int) (int, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return def, nil
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, apperr.E(apperr.ErrValidation, "not an integer: %q", s)
	}
	if n < min || n > max {
		return 0, apperr.E(apperr.ErrValidation, "%d out of range [%d, %d]", n, min, max)
	}
	return n, nil
}
