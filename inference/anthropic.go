package inference

import (
	"context"
	"fmt"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"

	"github.com/guiperry/llmcore/types"
)

// AnthropicBackend adapts the official Anthropic SDK to the Completer
// contract. Structured output is requested through an inline schema
// instruction; the Messages API has no response_format field.
type AnthropicBackend struct {
	client    *anthropic.Client
	model     string
	maxTokens int
}

// NewAnthropicBackend wraps an Anthropic client. model is the default
// model ID, maxTokens the default completion budget.
func NewAnthropicBackend(client *anthropic.Client, model string, maxTokens int) *AnthropicBackend {
	if maxTokens <= 0 {
		maxTokens = 4096
	}
	return &AnthropicBackend{client: client, model: model, maxTokens: maxTokens}
}

// Name returns the backend identifier used in errors.
func (b *AnthropicBackend) Name() string { return "anthropic" }

// Complete implements Completer.
func (b *AnthropicBackend) Complete(ctx context.Context, req Request) (*Response, error) {
	const op = "AnthropicBackend.Complete"

	model := req.ModelID
	if model == "" {
		model = b.model
	}
	req.ModelID = model

	if err := checkBudget(op, req); err != nil {
		return nil, err
	}

	maxTokens := req.MaxTokens
	if maxTokens == 0 {
		maxTokens = b.maxTokens
	}

	prompt := req.Prompt + schemaInstruction(req.Schema)

	params := anthropic.MessageNewParams{
		Model:     anthropic.Model(model),
		MaxTokens: int64(maxTokens),
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(prompt)),
		},
	}
	if req.System != "" {
		params.System = []anthropic.TextBlockParam{{Text: req.System}}
	}
	if req.Temperature != nil {
		params.Temperature = anthropic.Float(*req.Temperature)
	}

	message, err := b.client.Messages.New(ctx, params)
	if err != nil {
		if overflowErr := overflowFromBody(op, b.Name(), model, err.Error()); overflowErr != nil {
			return nil, overflowErr
		}
		return nil, classifyTransport(op, b.Name(), err)
	}

	var text strings.Builder
	for _, block := range message.Content {
		if t, ok := block.AsAny().(anthropic.TextBlock); ok {
			text.WriteString(t.Text)
		}
	}
	if text.Len() == 0 {
		return nil, &types.BackendError{Op: op, Backend: b.Name(), Err: fmt.Errorf("empty completion")}
	}

	return &Response{Text: text.String(), ModelID: model}, nil
}

// CountTokens asks the service for the exact token count of text under
// the given model's vocabulary. Adapters report context usage through
// this when the local registry has no codec for the model.
func (b *AnthropicBackend) CountTokens(ctx context.Context, model, text string) (int, error) {
	if model == "" {
		model = b.model
	}
	result, err := b.client.Messages.CountTokens(ctx, anthropic.MessageCountTokensParams{
		Model: anthropic.Model(model),
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(text)),
		},
	})
	if err != nil {
		return 0, classifyTransport("AnthropicBackend.CountTokens", b.Name(), err)
	}
	return int(result.InputTokens), nil
}
