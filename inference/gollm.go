package inference

import (
	"context"

	"github.com/guiperry/gollm_cerebras/llm"

	"github.com/guiperry/llmcore/types"
)

// GollmBackend adapts any gollm llm.LLM instance to the Completer
// contract, so providers configured through that library plug in without
// a bespoke HTTP adapter. Structured output is requested through an
// inline schema instruction.
type GollmBackend struct {
	llm   llm.LLM
	name  string
	model string
}

// NewGollmBackend wraps a gollm LLM. name identifies the provider in
// errors, model is used for vocabulary lookup and provenance.
func NewGollmBackend(llmInstance llm.LLM, name, model string) *GollmBackend {
	return &GollmBackend{llm: llmInstance, name: name, model: model}
}

// Name returns the backend identifier used in errors.
func (b *GollmBackend) Name() string { return b.name }

// Complete implements Completer.
func (b *GollmBackend) Complete(ctx context.Context, req Request) (*Response, error) {
	const op = "GollmBackend.Complete"

	if req.ModelID == "" {
		req.ModelID = b.model
	}
	if err := checkBudget(op, req); err != nil {
		return nil, err
	}

	prompt := req.Prompt + schemaInstruction(req.Schema)
	if req.System != "" {
		prompt = req.System + "\n\n" + prompt
	}

	text, err := b.llm.Generate(ctx, llm.NewPrompt(prompt))
	if err != nil {
		if overflowErr := overflowFromBody(op, b.name, req.ModelID, err.Error()); overflowErr != nil {
			return nil, overflowErr
		}
		return nil, classifyTransport(op, b.name, err)
	}

	if text == "" {
		return nil, &types.BackendError{Op: op, Backend: b.name, Err: errEmptyCompletion}
	}
	return &Response{Text: text, ModelID: req.ModelID}, nil
}
