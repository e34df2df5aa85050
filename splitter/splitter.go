// Package splitter turns a text into overlapping, token-bounded chunks.
// Windowing is purely token-indexed: the text is encoded once and each
// window is decoded independently, so multi-token symbols are never cut
// at decode time.
package splitter

import (
	"github.com/guiperry/llmcore/tokenizer"
	"github.com/guiperry/llmcore/types"
)

// Chunkify splits text into chunks of at most chunkSize tokens, with
// consecutive chunks overlapping by exactly chunkOverlap tokens. The
// final chunk is the remainder and may be shorter; it is always emitted.
// The result is deterministic: identical arguments yield an identical
// chunk sequence.
func Chunkify(text, modelID string, chunkSize, chunkOverlap int) ([]types.Chunk, error) {
	if err := validate(chunkSize, chunkOverlap); err != nil {
		return nil, err
	}

	codec, err := tokenizer.Lookup(modelID)
	if err != nil {
		return nil, err
	}

	ids := codec.Encode(text)
	if len(ids) == 0 {
		return nil, nil
	}

	step := chunkSize - chunkOverlap
	chunks := make([]types.Chunk, 0, (len(ids)+step-1)/step)

	for start, index := 0, 0; start < len(ids); start, index = start+step, index+1 {
		end := start + chunkSize
		if end > len(ids) {
			end = len(ids)
		}
		window := ids[start:end]
		chunks = append(chunks, types.Chunk{
			ModelID: modelID,
			Text:    codec.Decode(window),
			Tokens:  len(window),
			Start:   start,
			Index:   index,
		})
	}

	return chunks, nil
}

// FirstExtract returns the decoded text of only the first chunk: a
// bounded prefix for callers that do not need full coverage.
func FirstExtract(text, modelID string, chunkSize int) (string, error) {
	if chunkSize <= 0 {
		return "", types.NewConfigurationError("splitter.FirstExtract", "non-positive chunk_size %d", chunkSize)
	}

	codec, err := tokenizer.Lookup(modelID)
	if err != nil {
		return "", err
	}

	ids := codec.Encode(text)
	if len(ids) > chunkSize {
		ids = ids[:chunkSize]
	}
	return codec.Decode(ids), nil
}

func validate(chunkSize, chunkOverlap int) error {
	if chunkSize <= 0 {
		return types.NewConfigurationError("splitter.Chunkify", "non-positive chunk_size %d", chunkSize)
	}
	if chunkOverlap < 0 {
		return types.NewConfigurationError("splitter.Chunkify", "negative chunk_overlap %d", chunkOverlap)
	}
	if chunkOverlap >= chunkSize {
		return types.NewConfigurationError("splitter.Chunkify", "chunk_overlap %d >= chunk_size %d", chunkOverlap, chunkSize)
	}
	return nil
}
