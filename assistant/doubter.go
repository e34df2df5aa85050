package assistant

import (
	"context"

	"github.com/guiperry/llmcore/inference"
	"github.com/guiperry/llmcore/schema"
	"github.com/guiperry/llmcore/types"
)

// questionList is the structured shape the doubter asks the model for.
type questionList struct {
	Questions []string `json:"questions" jsonschema_description:"Atomic verification questions, one claim each"`
}

// Doubter decomposes a draft answer into atomic verification questions.
// The question list is returned exactly as the model produced it; no
// deduplication or filtering is applied.
type Doubter struct {
	completer   inference.Completer
	modelID     string
	schema      *schema.Definition
	temperature *float64
}

// DoubterOption customizes a Doubter.
type DoubterOption func(*Doubter)

// WithDoubterTemperature fixes the sampling temperature for every call.
func WithDoubterTemperature(t float64) DoubterOption {
	return func(d *Doubter) { d.temperature = &t }
}

// NewDoubter builds a Doubter over the given backend and model.
func NewDoubter(completer inference.Completer, modelID string, opts ...DoubterOption) (*Doubter, error) {
	if completer == nil {
		return nil, types.NewConfigurationError("assistant.NewDoubter", "completer is required")
	}
	if modelID == "" {
		return nil, types.NewConfigurationError("assistant.NewDoubter", "model id is required")
	}
	def, err := schema.Reflect[questionList]("verification_questions")
	if err != nil {
		return nil, err
	}
	d := &Doubter{
		completer: completer,
		modelID:   modelID,
		schema:    def,
	}
	for _, opt := range opts {
		opt(d)
	}
	return d, nil
}

// Verify breaks a draft answer to the given question into independently
// answerable verification questions.
func (d *Doubter) Verify(ctx context.Context, question, draftAnswer string) ([]types.VerificationQuestion, error) {
	resp, err := d.completer.Complete(ctx, inference.Request{
		ModelID:     d.modelID,
		System:      DoubterSystemPrompt,
		Prompt:      FormatDoubterPrompt(question, draftAnswer),
		Schema:      d.schema,
		Temperature: d.temperature,
	})
	if err != nil {
		return nil, err
	}

	var list questionList
	if err := schema.Unmarshal(resp.Text, d.schema, &list); err != nil {
		return nil, err
	}

	questions := make([]types.VerificationQuestion, 0, len(list.Questions))
	for _, q := range list.Questions {
		questions = append(questions, types.VerificationQuestion{Question: q})
	}
	return questions, nil
}
