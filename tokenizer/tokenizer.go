// Package tokenizer provides per-model encoding and decoding between text
// and integer token sequences, plus the process-wide registry that maps
// model identifiers to vocabularies and context-window sizes.
package tokenizer

import (
	"github.com/pkoukk/tiktoken-go"

	"github.com/guiperry/llmcore/types"
)

// Codec converts between text and token ids for one vocabulary.
// Decode must be defined for any contiguous subsequence of an encoded
// text, including spans that do not start at a natural boundary; the
// splitter relies on this to decode arbitrary slices independently.
type Codec interface {
	Encode(text string) []int
	Decode(ids []int) string
	Count(text string) int
}

// tiktokenCodec wraps a tiktoken BPE encoding.
type tiktokenCodec struct {
	enc *tiktoken.Tiktoken
}

func newTiktokenCodec(encoding string) (Codec, error) {
	enc, err := tiktoken.GetEncoding(encoding)
	if err != nil {
		return nil, err
	}
	return &tiktokenCodec{enc: enc}, nil
}

func (c *tiktokenCodec) Encode(text string) []int {
	return c.enc.Encode(text, nil, nil)
}

func (c *tiktokenCodec) Decode(ids []int) string {
	return c.enc.Decode(ids)
}

func (c *tiktokenCodec) Count(text string) int {
	return len(c.enc.Encode(text, nil, nil))
}

// Encode encodes text under the vocabulary registered for modelID.
func Encode(text, modelID string) (types.TokenSequence, error) {
	codec, err := Lookup(modelID)
	if err != nil {
		return types.TokenSequence{}, err
	}
	return types.TokenSequence{ModelID: modelID, IDs: codec.Encode(text)}, nil
}

// Decode decodes a contiguous id subsequence under the vocabulary
// registered for modelID.
func Decode(ids []int, modelID string) (string, error) {
	codec, err := Lookup(modelID)
	if err != nil {
		return "", err
	}
	return codec.Decode(ids), nil
}

// Count returns the token count of text under the vocabulary registered
// for modelID.
func Count(text, modelID string) (int, error) {
	codec, err := Lookup(modelID)
	if err != nil {
		return 0, err
	}
	return codec.Count(text), nil
}
