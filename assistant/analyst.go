package assistant

import (
	"context"
	"encoding/json"
	"errors"
	"strings"

	"github.com/google/uuid"

	"github.com/guiperry/llmcore/inference"
	"github.com/guiperry/llmcore/schema"
	"github.com/guiperry/llmcore/types"
)

var errNoJSONPayload = errors.New("no JSON payload in completion")

// Analyst answers one question per call, optionally shaping the reply with
// a caller-supplied JSON Schema. It performs exactly one completion and
// returns the parsed result unmodified.
type Analyst struct {
	completer      inference.Completer
	modelID        string
	schema         *schema.Definition
	systemPrompt   string
	promptTemplate string
	temperature    *float64
}

// AnalystOption customizes an Analyst.
type AnalystOption func(*Analyst)

// WithResultSchema shapes every answer with the given schema definition.
func WithResultSchema(def *schema.Definition) AnalystOption {
	return func(a *Analyst) { a.schema = def }
}

// WithSystemPrompt overrides the default analyst system prompt.
func WithSystemPrompt(prompt string) AnalystOption {
	return func(a *Analyst) { a.systemPrompt = prompt }
}

// WithPromptTemplate overrides the default user prompt. {question} and
// {context} placeholders are expanded per call.
func WithPromptTemplate(template string) AnalystOption {
	return func(a *Analyst) { a.promptTemplate = template }
}

// WithTemperature fixes the sampling temperature for every call.
func WithTemperature(t float64) AnalystOption {
	return func(a *Analyst) { a.temperature = &t }
}

// NewAnalyst builds an Analyst over the given backend and model.
func NewAnalyst(completer inference.Completer, modelID string, opts ...AnalystOption) (*Analyst, error) {
	if completer == nil {
		return nil, types.NewConfigurationError("assistant.NewAnalyst", "completer is required")
	}
	if modelID == "" {
		return nil, types.NewConfigurationError("assistant.NewAnalyst", "model id is required")
	}
	a := &Analyst{
		completer:    completer,
		modelID:      modelID,
		systemPrompt: AnalystSystemPrompt,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a, nil
}

// Ask answers a single question against an optional context string. With a
// result schema configured, Answer.Raw carries the JSON payload extracted
// from the reply; otherwise Answer.Content carries the free-form text.
func (a *Analyst) Ask(ctx context.Context, question, contextText string) (*types.Answer, error) {
	prompt := FormatQuestionPrompt(question, contextText)
	if a.promptTemplate != "" {
		prompt = strings.NewReplacer("{question}", question, "{context}", contextText).Replace(a.promptTemplate)
	}

	resp, err := a.completer.Complete(ctx, inference.Request{
		ModelID:     a.modelID,
		System:      a.systemPrompt,
		Prompt:      prompt,
		Schema:      a.schema,
		Temperature: a.temperature,
	})
	if err != nil {
		return nil, err
	}

	answer := &types.Answer{
		ID:       uuid.New(),
		Question: question,
		Content:  resp.Text,
		ModelID:  resp.ModelID,
	}
	if a.schema != nil {
		raw, ok := schema.ExtractJSON(resp.Text)
		if !ok {
			return nil, &types.SchemaParseError{
				Op:     "assistant.Ask",
				Schema: a.schema.Name,
				Raw:    resp.Text,
				Err:    errNoJSONPayload,
			}
		}
		answer.Raw = []byte(raw)
	}
	return answer, nil
}

// AskAs answers a question shaped by the analyst's schema and unmarshals
// the structured payload into T.
func AskAs[T any](ctx context.Context, a *Analyst, question, contextText string) (*T, *types.Answer, error) {
	if a.schema == nil {
		return nil, nil, types.NewConfigurationError("assistant.AskAs", "analyst has no result schema")
	}
	answer, err := a.Ask(ctx, question, contextText)
	if err != nil {
		return nil, nil, err
	}
	var out T
	if err := json.Unmarshal(answer.Raw, &out); err != nil {
		return nil, nil, &types.SchemaParseError{
			Op:     "assistant.AskAs",
			Schema: a.schema.Name,
			Raw:    string(answer.Raw),
			Err:    err,
		}
	}
	return &out, answer, nil
}
