package splitter

import (
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/guiperry/llmcore/tokenizer"
	"github.com/guiperry/llmcore/types"
)

// runeCodec maps every rune to one token id, so a ten-character string is
// exactly ten tokens.
type runeCodec struct{}

func (runeCodec) Encode(text string) []int {
	runes := []rune(text)
	ids := make([]int, len(runes))
	for i, r := range runes {
		ids[i] = int(r)
	}
	return ids
}

func (runeCodec) Decode(ids []int) string {
	runes := make([]rune, len(ids))
	for i, id := range ids {
		runes[i] = rune(id)
	}
	return string(runes)
}

func (c runeCodec) Count(text string) int {
	return len([]rune(text))
}

const testModel = "splitter-test-model"

func TestMain(m *testing.M) {
	if err := tokenizer.RegisterCodec(testModel, runeCodec{}, 1000); err != nil {
		panic(err)
	}
	m.Run()
}

func TestChunkify_WindowExample(t *testing.T) {
	// Ten tokens, window 4, overlap 1: spans [0-3],[3-6],[6-9],[9-9].
	chunks, err := Chunkify("abcdefghij", testModel, 4, 1)
	require.NoError(t, err)
	require.Len(t, chunks, 4)

	assert.Equal(t, "abcd", chunks[0].Text)
	assert.Equal(t, "defg", chunks[1].Text)
	assert.Equal(t, "ghij", chunks[2].Text)
	assert.Equal(t, "j", chunks[3].Text)

	wantStarts := []int{0, 3, 6, 9}
	wantTokens := []int{4, 4, 4, 1}
	for i, c := range chunks {
		assert.Equal(t, wantStarts[i], c.Start, "chunk %d start", i)
		assert.Equal(t, wantTokens[i], c.Tokens, "chunk %d tokens", i)
		assert.Equal(t, i, c.Index)
		assert.Equal(t, testModel, c.ModelID)
	}
}

func TestChunkify_InvalidParameters(t *testing.T) {
	tests := []struct {
		name    string
		size    int
		overlap int
	}{
		{"overlap equals size", 4, 4},
		{"overlap greater than size", 4, 5},
		{"zero size", 0, 0},
		{"negative size", -1, 0},
		{"negative overlap", 4, -1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Chunkify("abcdefghij", testModel, tt.size, tt.overlap)
			assert.True(t, errors.Is(err, types.ErrConfiguration))
		})
	}
}

func TestChunkify_UnregisteredModel(t *testing.T) {
	_, err := Chunkify("abc", "splitter-unknown-model", 4, 1)
	assert.True(t, errors.Is(err, types.ErrConfiguration))
}

func TestChunkify_FullCoverage(t *testing.T) {
	text := strings.Repeat("the quick brown fox jumps over the lazy dog ", 20)

	tests := []struct {
		name    string
		size    int
		overlap int
	}{
		{"no overlap", 64, 0},
		{"small overlap", 64, 8},
		{"large overlap", 50, 49},
		{"window bigger than text", 10000, 100},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			chunks, err := Chunkify(text, testModel, tt.size, tt.overlap)
			require.NoError(t, err)
			require.NotEmpty(t, chunks)

			total := len([]rune(text))
			step := tt.size - tt.overlap

			assert.Equal(t, 0, chunks[0].Start)
			for i, c := range chunks {
				if i > 0 {
					// Consecutive chunks overlap by exactly the
					// configured amount: each starts one step after
					// its predecessor.
					assert.Equal(t, chunks[i-1].Start+step, c.Start)
					assert.GreaterOrEqual(t, chunks[i-1].End(), c.Start, "gap before chunk %d", i)
				}
				if c.End() < total {
					// Only windows clipped by the end of the sequence
					// may be short.
					assert.Equal(t, tt.size, c.Tokens, "interior chunk %d must be full", i)
				}
				assert.LessOrEqual(t, c.Tokens, tt.size)
			}
			assert.Equal(t, total, chunks[len(chunks)-1].End(), "chunks must cover the whole sequence")
		})
	}
}

func TestChunkify_Deterministic(t *testing.T) {
	text := strings.Repeat("abcdefghij", 37)

	first, err := Chunkify(text, testModel, 16, 4)
	require.NoError(t, err)
	second, err := Chunkify(text, testModel, 16, 4)
	require.NoError(t, err)

	assert.Equal(t, first, second)
}

func TestChunkify_EmptyText(t *testing.T) {
	chunks, err := Chunkify("", testModel, 4, 1)
	require.NoError(t, err)
	assert.Empty(t, chunks)
}

func TestFirstExtract(t *testing.T) {
	got, err := FirstExtract("abcdefghij", testModel, 4)
	require.NoError(t, err)
	assert.Equal(t, "abcd", got)

	// Shorter than the window: the whole text comes back.
	got, err = FirstExtract("abc", testModel, 10)
	require.NoError(t, err)
	assert.Equal(t, "abc", got)

	_, err = FirstExtract("abc", testModel, 0)
	assert.True(t, errors.Is(err, types.ErrConfiguration))
}
