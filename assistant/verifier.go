package assistant

import (
	"context"

	"github.com/guiperry/llmcore/inference"
	"github.com/guiperry/llmcore/schema"
	"github.com/guiperry/llmcore/types"
)

// ConsistencyVerifier judges one (question, context, answer) triple and
// returns the two-boolean consistency check. The judgement is advisory;
// nothing downstream gates on it.
type ConsistencyVerifier struct {
	completer   inference.Completer
	modelID     string
	schema      *schema.Definition
	temperature *float64
}

// VerifierOption customizes a ConsistencyVerifier.
type VerifierOption func(*ConsistencyVerifier)

// WithVerifierTemperature fixes the sampling temperature for every call.
func WithVerifierTemperature(t float64) VerifierOption {
	return func(v *ConsistencyVerifier) { v.temperature = &t }
}

// NewConsistencyVerifier builds a verifier over the given backend and model.
func NewConsistencyVerifier(completer inference.Completer, modelID string, opts ...VerifierOption) (*ConsistencyVerifier, error) {
	if completer == nil {
		return nil, types.NewConfigurationError("assistant.NewConsistencyVerifier", "completer is required")
	}
	if modelID == "" {
		return nil, types.NewConfigurationError("assistant.NewConsistencyVerifier", "model id is required")
	}
	def, err := schema.Reflect[types.ConsistencyCheck]("consistency_check")
	if err != nil {
		return nil, err
	}
	v := &ConsistencyVerifier{
		completer: completer,
		modelID:   modelID,
		schema:    def,
	}
	for _, opt := range opts {
		opt(v)
	}
	return v, nil
}

// Verify judges whether answer is consistent with contextText and whether
// it can be inferred from contextText alone.
func (v *ConsistencyVerifier) Verify(ctx context.Context, question, contextText, answer string) (*types.ConsistencyCheck, error) {
	resp, err := v.completer.Complete(ctx, inference.Request{
		ModelID:     v.modelID,
		System:      AnalystSystemPrompt,
		Prompt:      FormatVerifierPrompt(question, contextText, answer),
		Schema:      v.schema,
		Temperature: v.temperature,
	})
	if err != nil {
		return nil, err
	}

	var check types.ConsistencyCheck
	if err := schema.Unmarshal(resp.Text, v.schema, &check); err != nil {
		return nil, err
	}
	return &check, nil
}
