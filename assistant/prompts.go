package assistant

import (
	"fmt"
	"strings"
)

// Prompt templates for analysis, summarization and verification.
const (
	// AnalystSystemPrompt frames every extraction and question-answering
	// call.
	AnalystSystemPrompt = "Act as a powerful AI able to extract, parse and process information from unstructured content."

	// AnalystQuestionPrompt poses a question with no supporting context.
	AnalystQuestionPrompt = `Answer the following question as precisely as possible.

> %s
`

	// AnalystContextPrompt poses a question that must be answered from
	// the supplied context alone.
	AnalystContextPrompt = `Here is a text to use as context:
` + "```" + `
%s
` + "```" + `

Using ONLY the context above, answer the following question as precisely as possible:

> %s
`

	// ChunkSummaryPrompt reduces one chunk to a concise summary.
	ChunkSummaryPrompt = `Write a concise summary of the following text. Keep every load-bearing fact, name, number and conclusion; drop repetition and filler.

--- TEXT ---
%s
--- END TEXT ---
`

	// MergeSummaryPrompt reduces several partial summaries of one
	// document into a single coherent summary.
	MergeSummaryPrompt = `The following are partial summaries of consecutive sections of one document. Merge them into a single coherent summary, preserving every load-bearing fact, name, number and conclusion.

--- SUMMARIES ---
%s
--- END SUMMARIES ---
`

	// DoubterSystemPrompt frames the decomposition of a draft answer.
	DoubterSystemPrompt = "You are a rigorous fact checker who decomposes answers into independently verifiable claims."

	// DoubterPrompt asks the model to break a draft answer into atomic
	// verification questions.
	DoubterPrompt = `A question was asked:

> %s

The following draft answer was produced:

> %s

Decompose the draft answer into a list of atomic factual claims, each phrased as a short question that can be checked on its own without seeing the draft answer. One claim per question; no compound questions.
`

	// VerifierPrompt asks for the two-boolean consistency judgement.
	VerifierPrompt = `Here is a text to use as context:
` + "```" + `
%s
` + "```" + `

A question was asked:

> %s

And this answer was given:

> %s

Judge the answer strictly against the context: is it consistent with the context, and can it be inferred from the context alone?
`
)

// FormatQuestionPrompt renders the analyst prompt, with or without context.
func FormatQuestionPrompt(question, contextText string) string {
	if strings.TrimSpace(contextText) == "" {
		return fmt.Sprintf(AnalystQuestionPrompt, question)
	}
	return fmt.Sprintf(AnalystContextPrompt, contextText, question)
}

// FormatChunkSummaryPrompt renders the single-chunk reduction prompt.
func FormatChunkSummaryPrompt(text string) string {
	return fmt.Sprintf(ChunkSummaryPrompt, text)
}

// FormatMergeSummaryPrompt renders the merge prompt over partial summaries.
func FormatMergeSummaryPrompt(parts []string) string {
	return fmt.Sprintf(MergeSummaryPrompt, strings.Join(parts, "\n\n---\n\n"))
}

// FormatDoubterPrompt renders the answer-decomposition prompt.
func FormatDoubterPrompt(question, answer string) string {
	return fmt.Sprintf(DoubterPrompt, question, answer)
}

// FormatVerifierPrompt renders the consistency-judgement prompt.
func FormatVerifierPrompt(question, contextText, answer string) string {
	return fmt.Sprintf(VerifierPrompt, contextText, question, answer)
}
