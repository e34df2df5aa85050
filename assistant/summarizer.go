package assistant

import (
	"context"
	"log"

	"golang.org/x/sync/errgroup"

	"github.com/guiperry/llmcore/inference"
	"github.com/guiperry/llmcore/splitter"
	"github.com/guiperry/llmcore/tokenizer"
	"github.com/guiperry/llmcore/types"
)

const (
	defaultTargetFraction = 0.5
	defaultMinChunk       = 64
	defaultMaxPasses      = 8
)

// Summarizer reduces documents of arbitrary length to summaries that fit a
// token budget derived from the model's context window. FastSummarize
// iterates toward a single bounded summary; Summarize streams every
// intermediate summary of a hierarchical reduction.
type Summarizer struct {
	completer      inference.Completer
	modelID        string
	contextSize    int
	targetFraction float64
	chunkOverlap   int
	minChunk       int
	maxPasses      int
	maxGroup       int
	concurrency    int
	temperature    *float64
	logger         *log.Logger
}

// SummarizerOption customizes a Summarizer.
type SummarizerOption func(*Summarizer)

// WithTargetFraction sets the fraction of the model context window the
// final summary must fit in. Default 0.5.
func WithTargetFraction(f float64) SummarizerOption {
	return func(s *Summarizer) { s.targetFraction = f }
}

// WithChunkOverlap sets the token overlap between adjacent chunks when the
// input is split. Default 0.
func WithChunkOverlap(overlap int) SummarizerOption {
	return func(s *Summarizer) { s.chunkOverlap = overlap }
}

// WithMinChunk sets the smallest chunk size FastSummarize will shrink to
// before giving up. Default 64 tokens.
func WithMinChunk(n int) SummarizerOption {
	return func(s *Summarizer) { s.minChunk = n }
}

// WithMaxPasses caps the number of reduction passes. Default 8.
func WithMaxPasses(n int) SummarizerOption {
	return func(s *Summarizer) { s.maxPasses = n }
}

// WithMaxGroup caps how many summaries one merge call may combine.
// Zero means no cap beyond the token budget.
func WithMaxGroup(n int) SummarizerOption {
	return func(s *Summarizer) { s.maxGroup = n }
}

// WithConcurrency bounds how many chunk summaries are in flight at once
// during a single pass. Default 1.
func WithConcurrency(n int) SummarizerOption {
	return func(s *Summarizer) { s.concurrency = n }
}

// WithSummarizerTemperature fixes the sampling temperature for every call.
func WithSummarizerTemperature(t float64) SummarizerOption {
	return func(s *Summarizer) { s.temperature = &t }
}

// WithSummarizerLogger routes pass-level progress to the given logger.
func WithSummarizerLogger(logger *log.Logger) SummarizerOption {
	return func(s *Summarizer) { s.logger = logger }
}

// NewSummarizer builds a Summarizer for a model registered with the
// tokenizer. The model's context window drives every budget.
func NewSummarizer(completer inference.Completer, modelID string, opts ...SummarizerOption) (*Summarizer, error) {
	if completer == nil {
		return nil, types.NewConfigurationError("assistant.NewSummarizer", "completer is required")
	}
	ctxSize, err := tokenizer.ContextSize(modelID)
	if err != nil {
		return nil, err
	}
	s := &Summarizer{
		completer:      completer,
		modelID:        modelID,
		contextSize:    ctxSize,
		targetFraction: defaultTargetFraction,
		minChunk:       defaultMinChunk,
		maxPasses:      defaultMaxPasses,
		concurrency:    1,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.targetFraction <= 0 || s.targetFraction >= 1 {
		return nil, types.NewConfigurationError("assistant.NewSummarizer", "target fraction must be in (0, 1), got %v", s.targetFraction)
	}
	if s.concurrency < 1 {
		return nil, types.NewConfigurationError("assistant.NewSummarizer", "concurrency must be at least 1, got %d", s.concurrency)
	}
	if s.maxPasses < 1 {
		return nil, types.NewConfigurationError("assistant.NewSummarizer", "max passes must be at least 1, got %d", s.maxPasses)
	}
	return s, nil
}

// target is the token budget the final summary must fit in.
func (s *Summarizer) target() int {
	return int(s.targetFraction * float64(s.contextSize))
}

// inputBudget is the largest chunk of input text one call may carry,
// leaving the rest of the window for instructions and output.
func (s *Summarizer) inputBudget() int {
	return s.contextSize / 2
}

// FastSummarize reduces text to a single summary of at most the target
// budget. Each round splits the working text, summarizes every chunk, and
// concatenates; if the result still exceeds the target the round repeats
// with a halved chunk budget. Exhausting the pass cap or shrinking below
// the minimum chunk size fails with a budget error.
func (s *Summarizer) FastSummarize(ctx context.Context, text string) (*types.Summary, error) {
	const op = "assistant.FastSummarize"
	if text == "" {
		return nil, types.NewConfigurationError(op, "empty input")
	}

	target := s.target()
	working := text
	chunkBudget := min(s.inputBudget(), target)

	for pass := 0; pass < s.maxPasses; pass++ {
		if chunkBudget < s.minChunk {
			tokens, _ := tokenizer.Count(working, s.modelID)
			return nil, &types.BudgetExceededError{Op: op, Passes: pass, Tokens: tokens, Target: target}
		}

		chunks, err := splitter.Chunkify(working, s.modelID, chunkBudget, s.chunkOverlap)
		if err != nil {
			return nil, err
		}
		if s.logger != nil {
			s.logger.Printf("fast summarize pass %d: %d chunks of <= %d tokens", pass, len(chunks), chunkBudget)
		}

		prompts := make([]string, len(chunks))
		for i, chunk := range chunks {
			prompts[i] = FormatChunkSummaryPrompt(chunk.Text)
		}
		parts, err := s.runBatch(ctx, prompts)
		if err != nil {
			return nil, err
		}

		merged := joinParts(parts)
		tokens, err := tokenizer.Count(merged, s.modelID)
		if err != nil {
			return nil, err
		}
		if tokens <= target {
			summary := types.NewSummary(merged, tokens, pass, s.modelID, nil)
			return &summary, nil
		}

		working = merged
		chunkBudget /= 2
	}

	tokens, _ := tokenizer.Count(working, s.modelID)
	return nil, &types.BudgetExceededError{Op: op, Passes: s.maxPasses, Tokens: tokens, Target: target}
}

// Summarize runs a hierarchical reduction and streams every summary it
// produces, pass by pass, ending with the single final summary. The caller
// drives the stream:
//
//	stream := summarizer.Summarize(ctx, text)
//	for stream.Next() {
//	    use(stream.Current())
//	}
//	if err := stream.Err(); err != nil { ... }
//
// Summaries already yielded remain valid when a later pass fails.
func (s *Summarizer) Summarize(ctx context.Context, text string) *SummaryStream {
	return &SummaryStream{s: s, ctx: ctx, text: text}
}

// runBatch issues one completion per prompt, at most concurrency in
// flight, and returns the reply texts in prompt order. On failure the
// contiguous prefix of completed replies is returned alongside the error.
func (s *Summarizer) runBatch(ctx context.Context, prompts []string) ([]string, error) {
	parts := make([]string, len(prompts))
	done := make([]bool, len(prompts))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.concurrency)
	for i, prompt := range prompts {
		g.Go(func() error {
			resp, err := s.complete(gctx, prompt)
			if err != nil {
				return err
			}
			parts[i] = resp
			done[i] = true
			return nil
		})
	}
	err := g.Wait()

	if err != nil {
		n := 0
		for n < len(done) && done[n] {
			n++
		}
		return parts[:n], err
	}
	return parts, nil
}

func (s *Summarizer) complete(ctx context.Context, prompt string) (string, error) {
	resp, err := s.completer.Complete(ctx, inference.Request{
		ModelID:     s.modelID,
		System:      AnalystSystemPrompt,
		Prompt:      prompt,
		MaxTokens:   s.target(),
		Temperature: s.temperature,
	})
	if err != nil {
		return "", err
	}
	return resp.Text, nil
}

func joinParts(parts []string) string {
	out := ""
	for i, p := range parts {
		if i > 0 {
			out += "\n\n"
		}
		out += p
	}
	return out
}
