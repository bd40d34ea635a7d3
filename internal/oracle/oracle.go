// Package oracle is the boundary to the external code/test generation
// capability. The core never executes or trusts what comes back from here:
// generated code only becomes part of the registry through the hash-verified
// approval step in the ledger.
package oracle

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	openai "github.com/sashabaranov/go-openai"
)

// Request is the resolved content the generator works from.
type Request struct {
	FunctionName string
	SourceTitle  string
	Content      string
	Structured   bool // content is tabular rather than narrative
}

// Result is the untrusted generator output.
type Result struct {
	Code  string `json:"code"`
	Tests string `json:"tests"`
}

// Generator produces candidate code and tests from resolved content.
type Generator interface {
	Generate(ctx context.Context, req Request) (Result, error)
}

// NewFromEnv picks a generator from the environment.
// CARDIOKB_ORACLE: "openai" or "template" (default).
func NewFromEnv() Generator {
	switch os.Getenv("CARDIOKB_ORACLE") {
	case "openai":
		return NewOpenAI(os.Getenv("OPENAI_API_KEY"), os.Getenv("CARDIOKB_ORACLE_MODEL"))
	default:
		return Template{}
	}
}

// OpenAI generates code through an OpenAI-compatible chat completion API.
type OpenAI struct {
	client *openai.Client
	model  string
}

// NewOpenAI returns an OpenAI-backed generator. Empty model falls back to
// gpt-4o-mini.
func NewOpenAI(apiKey, model string) *OpenAI {
	if model == "" {
		model = "gpt-4o-mini"
	}
	return &OpenAI{client: openai.NewClient(apiKey), model: model}
}

const systemPrompt = `You generate clinical calculator functions from guideline content.
Respond with a JSON object {"code": "...", "tests": "..."} and nothing else.
The code must be a single pure function; the tests must exercise it.`

// Generate implements Generator.
func (o *OpenAI) Generate(ctx context.Context, req Request) (Result, error) {
	prompt := fmt.Sprintf("Function name: %s\nSource: %s\n\nContent:\n%s",
		req.FunctionName, req.SourceTitle, req.Content)

	resp, err := o.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: o.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: systemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: prompt},
		},
	})
	if err != nil {
		return Result{}, fmt.Errorf("oracle call failed: %w", err)
	}
	if len(resp.Choices) == 0 {
		return Result{}, fmt.Errorf("oracle returned no choices")
	}

	var result Result
	content := strings.TrimSpace(resp.Choices[0].Message.Content)
	content = strings.TrimPrefix(content, "```json")
	content = strings.Trim(content, "`\n ")
	if err := json.Unmarshal([]byte(content), &result); err != nil {
		return Result{}, fmt.Errorf("oracle returned malformed output: %w", err)
	}
	if strings.TrimSpace(result.Code) == "" {
		return Result{}, fmt.Errorf("oracle returned empty code")
	}
	return result, nil
}

// Template is a deterministic offline generator: it emits a skeleton
// function with the source content embedded for the reviewer to fill in.
// Useful without network access and as the test double.
type Template struct{}

// Generate implements Generator.
func (Template) Generate(_ context.Context, req Request) (Result, error) {
	kind := "narrative"
	if req.Structured {
		kind = "table"
	}
	code := fmt.Sprintf(`def %s(inputs):
    """%s.

    Generated from %s content; requires clinical validation before use.
    """
    # Source: %s
    raise NotImplementedError("review and complete against the cited source")
`, req.FunctionName, req.SourceTitle, kind, firstLine(req.Content))

	tests := fmt.Sprintf(`def test_%s_rejects_until_reviewed():
    try:
        %s({})
    except NotImplementedError:
        return
    assert False, "unreviewed generated function must not produce output"
`, req.FunctionName, req.FunctionName)

	return Result{Code: code, Tests: tests}, nil
}

func firstLine(s string) string {
	s = strings.TrimSpace(s)
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		s = s[:i]
	}
	if len(s) > 120 {
		s = s[:120]
	}
	return s
}
