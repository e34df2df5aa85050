package assistant

import (
	"context"

	"github.com/google/uuid"

	"github.com/guiperry/llmcore/splitter"
	"github.com/guiperry/llmcore/tokenizer"
	"github.com/guiperry/llmcore/types"
)

// SummaryStream yields the summaries of a hierarchical reduction as they
// are produced. Pass 0 yields one summary per input chunk; each later pass
// yields one summary per merged group of the previous pass, until a single
// summary remains. That final summary is the last element yielded.
//
// When a pass fails part-way, summaries completed before the failure are
// still yielded before Next returns false; Err then reports the failure.
type SummaryStream struct {
	s    *Summarizer
	ctx  context.Context
	text string

	started  bool
	finished bool
	pass     int
	working  []types.Summary
	pending  []types.Summary
	cur      types.Summary
	err      error
}

// Next advances the stream to the next summary. It returns false when the
// reduction has finished or failed; check Err afterwards.
func (st *SummaryStream) Next() bool {
	for len(st.pending) == 0 {
		if st.err != nil || st.finished {
			return false
		}
		st.advance()
	}
	st.cur = st.pending[0]
	st.pending = st.pending[1:]
	return true
}

// Current returns the summary produced by the last successful Next call.
func (st *SummaryStream) Current() types.Summary {
	return st.cur
}

// Err returns the error that terminated the stream, if any.
func (st *SummaryStream) Err() error {
	return st.err
}

// advance computes the next reduction pass into the pending buffer.
func (st *SummaryStream) advance() {
	if !st.started {
		st.started = true
		st.advanceLeaves()
		return
	}
	if st.pass >= st.s.maxPasses {
		total := 0
		for _, sum := range st.working {
			total += sum.Tokens
		}
		st.err = &types.BudgetExceededError{
			Op:     "assistant.Summarize",
			Passes: st.pass,
			Tokens: total,
			Target: st.s.target(),
		}
		return
	}
	st.advanceMerge()
}

// advanceLeaves runs pass 0: split the input and summarize every chunk.
func (st *SummaryStream) advanceLeaves() {
	s := st.s
	if st.text == "" {
		st.err = types.NewConfigurationError("assistant.Summarize", "empty input")
		return
	}

	chunks, err := splitter.Chunkify(st.text, s.modelID, s.inputBudget(), s.chunkOverlap)
	if err != nil {
		st.err = err
		return
	}
	if s.logger != nil {
		s.logger.Printf("summarize pass 0: %d chunks", len(chunks))
	}

	prompts := make([]string, len(chunks))
	for i, chunk := range chunks {
		prompts[i] = FormatChunkSummaryPrompt(chunk.Text)
	}
	parts, err := s.runBatch(st.ctx, prompts)
	st.err = err

	for _, part := range parts {
		tokens, cerr := tokenizer.Count(part, s.modelID)
		if cerr != nil {
			st.err = cerr
			break
		}
		st.pending = append(st.pending, types.NewSummary(part, tokens, 0, s.modelID, nil))
	}
	st.working = append(st.working, st.pending...)
	st.pass = 1
	if st.err == nil && len(st.working) <= 1 {
		st.finished = true
	}
}

// advanceMerge runs one merge pass over the previous pass's summaries.
func (st *SummaryStream) advanceMerge() {
	s := st.s
	groups, err := groupByBudget(st.working, s.inputBudget(), s.maxGroup)
	if err != nil {
		st.err = err
		return
	}
	// Every summary in its own group means nothing can be merged any
	// further without overflowing a call.
	if len(groups) >= len(st.working) {
		total := 0
		for _, sum := range st.working {
			total += sum.Tokens
		}
		st.err = &types.BudgetExceededError{
			Op:     "assistant.Summarize",
			Passes: st.pass,
			Tokens: total,
			Target: s.target(),
		}
		return
	}
	if s.logger != nil {
		s.logger.Printf("summarize pass %d: %d summaries into %d groups", st.pass, len(st.working), len(groups))
	}

	prompts := make([]string, len(groups))
	for i, group := range groups {
		texts := make([]string, len(group))
		for j, sum := range group {
			texts[j] = sum.Text
		}
		prompts[i] = FormatMergeSummaryPrompt(texts)
	}
	parts, err := s.runBatch(st.ctx, prompts)
	st.err = err

	next := make([]types.Summary, 0, len(parts))
	for i, part := range parts {
		tokens, cerr := tokenizer.Count(part, s.modelID)
		if cerr != nil {
			st.err = cerr
			break
		}
		sources := make([]uuid.UUID, len(groups[i]))
		for j, sum := range groups[i] {
			sources[j] = sum.ID
		}
		next = append(next, types.NewSummary(part, tokens, st.pass, s.modelID, sources))
	}
	st.pending = append(st.pending, next...)
	st.working = next
	st.pass++
	if st.err == nil && len(st.working) <= 1 {
		st.finished = true
	}
}

// groupByBudget greedily packs consecutive summaries into groups whose
// combined token count stays within budget. A single summary that alone
// exceeds the budget cannot be reduced at all.
func groupByBudget(summaries []types.Summary, budget, maxGroup int) ([][]types.Summary, error) {
	var groups [][]types.Summary
	var cur []types.Summary
	used := 0

	for _, sum := range summaries {
		if sum.Tokens > budget {
			return nil, &types.ContextOverflowError{
				Op:      "assistant.Summarize",
				ModelID: sum.ModelID,
				Tokens:  sum.Tokens,
				Limit:   budget,
			}
		}
		full := used+sum.Tokens > budget
		if maxGroup > 0 && len(cur) >= maxGroup {
			full = true
		}
		if full && len(cur) > 0 {
			groups = append(groups, cur)
			cur = nil
			used = 0
		}
		cur = append(cur, sum)
		used += sum.Tokens
	}
	if len(cur) > 0 {
		groups = append(groups, cur)
	}
	return groups, nil
}
