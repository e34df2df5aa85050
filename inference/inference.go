// Package inference defines the completion contract the core consumes
// and the backend adapters that fulfil it. A backend is a stable
// capability: one prompt in, one structured or free-text result out.
package inference

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/guiperry/llmcore/schema"
	"github.com/guiperry/llmcore/tokenizer"
	"github.com/guiperry/llmcore/types"
)

// errEmptyCompletion reports a backend that returned no content.
var errEmptyCompletion = errors.New("empty completion")

// Request is one completion exchange. When Schema is set the backend is
// asked for structured output conforming to it; the core never inspects
// the resulting fields.
type Request struct {
	ModelID     string
	System      string
	Prompt      string
	Schema      *schema.Definition
	MaxTokens   int
	Temperature *float64
	Options     map[string]any
}

// Response carries the raw completion text and the identity of the model
// that produced it.
type Response struct {
	Text    string
	ModelID string
}

// Completer is the single capability interface every backend variant
// implements. Calls are synchronous and blocking; they are the only
// suspension points in the core.
type Completer interface {
	Complete(ctx context.Context, req Request) (*Response, error)
}

// checkBudget rejects a request whose prompt cannot fit the model's
// context window before any bytes go on the wire. Best effort: models
// without a registered vocabulary are left to the backend to police.
func checkBudget(op string, req Request) error {
	limit, err := tokenizer.ContextSize(req.ModelID)
	if err != nil {
		return nil
	}
	tokens, err := tokenizer.Count(req.System+req.Prompt, req.ModelID)
	if err != nil {
		return nil
	}
	if tokens > limit {
		return &types.ContextOverflowError{Op: op, ModelID: req.ModelID, Tokens: tokens, Limit: limit}
	}
	return nil
}

// classifyTransport maps a failed HTTP exchange onto the error taxonomy.
func classifyTransport(op, backend string, err error) error {
	timeout := errors.Is(err, context.DeadlineExceeded)
	if !timeout {
		var timeoutErr interface{ Timeout() bool }
		timeout = errors.As(err, &timeoutErr) && timeoutErr.Timeout()
	}
	return &types.BackendError{Op: op, Backend: backend, Timeout: timeout, Err: err}
}

// overflowFromBody recognizes provider error bodies that report an input
// too large for the model.
func overflowFromBody(op, backend, modelID, body string) error {
	lower := strings.ToLower(body)
	for _, marker := range []string{
		"maximum context length",
		"context length exceeded",
		"context_length_exceeded",
		"prompt is too long",
		"input is too long",
	} {
		if strings.Contains(lower, marker) {
			return &types.ContextOverflowError{Op: op, ModelID: modelID}
		}
	}
	return nil
}

// schemaInstruction renders the inline instruction used for backends
// without a native structured-output mode.
func schemaInstruction(def *schema.Definition) string {
	if def == nil {
		return ""
	}
	return fmt.Sprintf(
		"\n\nRespond ONLY with a raw JSON object conforming to this JSON Schema, with no explanations or markdown formatting:\n%s",
		string(def.Schema),
	)
}
