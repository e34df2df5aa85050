package types

import (
	"time"

	"github.com/google/uuid"
)

// ============================================================================
// TOKEN SEQUENCES AND CHUNKS
// ============================================================================

// TokenSequence is the encoded form of one text under one model vocabulary.
// It is immutable once produced; callers must not modify IDs.
type TokenSequence struct {
	ModelID string
	IDs     []int
}

// Len returns the number of tokens in the sequence.
func (s TokenSequence) Len() int {
	return len(s.IDs)
}

// Chunk is a contiguous span of a TokenSequence together with its decoded
// text. Start is the offset of the first token in the original sequence,
// Index is the ordinal position of the chunk among its siblings.
type Chunk struct {
	ModelID string
	Text    string
	Tokens  int
	Start   int
	Index   int
}

// End returns the offset one past the last token of the chunk.
func (c Chunk) End() int {
	return c.Start + c.Tokens
}

// ============================================================================
// SUMMARIES
// ============================================================================

// Summary is one reduction of a set of chunks or earlier summaries.
// Sources records provenance for traceability; nothing persists it.
type Summary struct {
	ID      uuid.UUID
	Text    string
	Tokens  int
	Pass    int
	ModelID string
	Sources []uuid.UUID
	Created time.Time
}

// NewSummary builds a Summary with a fresh provenance ID.
func NewSummary(text string, tokens, pass int, modelID string, sources []uuid.UUID) Summary {
	return Summary{
		ID:      uuid.New(),
		Text:    text,
		Tokens:  tokens,
		Pass:    pass,
		ModelID: modelID,
		Sources: sources,
		Created: time.Now(),
	}
}

// ============================================================================
// QUESTIONS AND ANSWERS
// ============================================================================

// Query is one question posed against an optional context string.
type Query struct {
	Question string
	Context  string
}

// Answer carries the model output for one Query, either free text or the
// raw structured payload the caller's schema produced.
type Answer struct {
	ID       uuid.UUID
	Question string
	Content  string
	Raw      []byte
	ModelID  string
}

// VerificationQuestion is one atomic, independently answerable question
// derived from a draft answer.
type VerificationQuestion struct {
	Question string
}

// ConsistencyCheck is the two-boolean judgement attached to one
// (question, original answer, re-answer) triple. Advisory only.
type ConsistencyCheck struct {
	IsConsistent          bool `json:"is_consistent"`
	IsInferredFromContext bool `json:"is_inferred_from_context"`
}

// VerifiedClaim binds one verification question, its independent re-answer,
// and the consistency judgement for that triple.
type VerifiedClaim struct {
	Question string
	ReAnswer string
	Check    ConsistencyCheck
}

// VerifiedAnswer is the terminal state of a chain-of-verification run:
// the original draft answer annotated with one check per question.
// Claims preserves question order; a partially verified answer (produced
// when a later step failed) carries the claims completed so far.
type VerifiedAnswer struct {
	Draft  Answer
	Claims []VerifiedClaim
}

// Supported reports whether every completed check judged the draft
// consistent with and inferable from the context.
func (v VerifiedAnswer) Supported() bool {
	for _, c := range v.Claims {
		if !c.Check.IsConsistent || !c.Check.IsInferredFromContext {
			return false
		}
	}
	return len(v.Claims) > 0
}
