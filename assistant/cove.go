package assistant

import (
	"context"
	"log"

	"golang.org/x/sync/errgroup"

	"github.com/guiperry/llmcore/inference"
	"github.com/guiperry/llmcore/types"
)

// Retriever supplies supporting context for a question. The context store
// satisfies this; any ranked text source will do.
type Retriever interface {
	Retrieve(ctx context.Context, query string, limit int) ([]string, error)
}

// Pipeline runs chain-of-verification over one backend: draft an answer,
// decompose it into verification questions, re-answer each question
// independently, and judge each re-answer against the context. The draft
// is never rewritten; the checks annotate it.
type Pipeline struct {
	analyst     *Analyst
	doubter     *Doubter
	verifier    *ConsistencyVerifier
	retriever   Retriever
	retrieveK   int
	concurrency int
	logger      *log.Logger
}

// PipelineOption customizes a Pipeline.
type PipelineOption func(*Pipeline)

// WithPipelineConcurrency bounds how many verification questions are
// re-answered at once. Default 1.
func WithPipelineConcurrency(n int) PipelineOption {
	return func(p *Pipeline) { p.concurrency = n }
}

// WithRetriever sources per-question context from a retriever instead of
// reusing the caller's context string for every question.
func WithRetriever(r Retriever, topK int) PipelineOption {
	return func(p *Pipeline) {
		p.retriever = r
		p.retrieveK = topK
	}
}

// WithPipelineLogger routes stage-level progress to the given logger.
func WithPipelineLogger(logger *log.Logger) PipelineOption {
	return func(p *Pipeline) { p.logger = logger }
}

// NewPipeline builds a chain-of-verification pipeline from one backend
// and model, constructing the three stages with their defaults.
func NewPipeline(completer inference.Completer, modelID string, opts ...PipelineOption) (*Pipeline, error) {
	analyst, err := NewAnalyst(completer, modelID)
	if err != nil {
		return nil, err
	}
	doubter, err := NewDoubter(completer, modelID)
	if err != nil {
		return nil, err
	}
	verifier, err := NewConsistencyVerifier(completer, modelID)
	if err != nil {
		return nil, err
	}
	p := &Pipeline{
		analyst:     analyst,
		doubter:     doubter,
		verifier:    verifier,
		concurrency: 1,
	}
	for _, opt := range opts {
		opt(p)
	}
	if p.concurrency < 1 {
		return nil, types.NewConfigurationError("assistant.NewPipeline", "concurrency must be at least 1, got %d", p.concurrency)
	}
	return p, nil
}

// Run executes the full chain for one question. On failure the partial
// result accumulated so far is returned alongside the error: a drafted
// answer with no claims when decomposition failed, or a draft with the
// claims completed before the failing question.
func (p *Pipeline) Run(ctx context.Context, question, contextText string) (*types.VerifiedAnswer, error) {
	draft, err := p.analyst.Ask(ctx, question, contextText)
	if err != nil {
		return nil, err
	}
	if p.logger != nil {
		p.logger.Printf("cove: drafted answer for %q", question)
	}

	questions, err := p.doubter.Verify(ctx, question, draft.Content)
	if err != nil {
		return &types.VerifiedAnswer{Draft: *draft}, err
	}
	if p.logger != nil {
		p.logger.Printf("cove: %d verification questions", len(questions))
	}

	claims := make([]types.VerifiedClaim, len(questions))
	done := make([]bool, len(questions))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(p.concurrency)
	for i, vq := range questions {
		g.Go(func() error {
			qctx, err := p.questionContext(gctx, vq.Question, contextText)
			if err != nil {
				return err
			}
			reAnswer, err := p.analyst.Ask(gctx, vq.Question, qctx)
			if err != nil {
				return err
			}
			check, err := p.verifier.Verify(gctx, vq.Question, qctx, reAnswer.Content)
			if err != nil {
				return err
			}
			claims[i] = types.VerifiedClaim{
				Question: vq.Question,
				ReAnswer: reAnswer.Content,
				Check:    *check,
			}
			done[i] = true
			return nil
		})
	}
	err = g.Wait()

	verified := &types.VerifiedAnswer{Draft: *draft}
	if err != nil {
		n := 0
		for n < len(done) && done[n] {
			n++
		}
		verified.Claims = claims[:n]
		return verified, err
	}
	verified.Claims = claims
	return verified, nil
}

// questionContext chooses the context one verification question is
// answered against.
func (p *Pipeline) questionContext(ctx context.Context, question, fallback string) (string, error) {
	if p.retriever == nil {
		return fallback, nil
	}
	passages, err := p.retriever.Retrieve(ctx, question, p.retrieveK)
	if err != nil {
		return "", err
	}
	return joinParts(passages), nil
}
