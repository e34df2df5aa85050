package tokenizer

import (
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/guiperry/llmcore/types"
)

// runeCodec maps every rune to one token id. It keeps tests hermetic and
// makes token arithmetic easy to reason about.
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

func TestRegister_Validation(t *testing.T) {
	tests := []struct {
		name    string
		modelID string
		reg     Registration
	}{
		{"empty model id", "", Registration{Encoding: "cl100k_base", ContextSize: 4096}},
		{"empty encoding", "reg-validation-a", Registration{ContextSize: 4096}},
		{"non-positive context size", "reg-validation-b", Registration{Encoding: "cl100k_base"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Register(tt.modelID, tt.reg)
			assert.True(t, errors.Is(err, types.ErrConfiguration))
		})
	}
}

func TestRegister_AppendOnly(t *testing.T) {
	require.NoError(t, Register("append-only-model", Registration{Encoding: "cl100k_base", ContextSize: 4096}))

	err := Register("append-only-model", Registration{Encoding: "cl100k_base", ContextSize: 8192})
	assert.True(t, errors.Is(err, types.ErrConfiguration))

	// The original registration survives.
	size, err := ContextSize("append-only-model")
	require.NoError(t, err)
	assert.Equal(t, 4096, size)
}

func TestRegisterCodec_RoundTrip(t *testing.T) {
	require.NoError(t, RegisterCodec("rune-model", runeCodec{}, 1000))

	seq, err := Encode("héllo wörld", "rune-model")
	require.NoError(t, err)
	assert.Equal(t, "rune-model", seq.ModelID)
	assert.Equal(t, 11, seq.Len())

	decoded, err := Decode(seq.IDs, "rune-model")
	require.NoError(t, err)
	assert.Equal(t, "héllo wörld", decoded)

	count, err := Count("héllo wörld", "rune-model")
	require.NoError(t, err)
	assert.Equal(t, seq.Len(), count)
}

func TestDecode_ArbitrarySubsequence(t *testing.T) {
	require.NoError(t, RegisterCodec("rune-model-sub", runeCodec{}, 1000))

	seq, err := Encode("abcdefghij", "rune-model-sub")
	require.NoError(t, err)

	middle, err := Decode(seq.IDs[3:7], "rune-model-sub")
	require.NoError(t, err)
	assert.Equal(t, "defg", middle)
}

func TestLookup_Unregistered(t *testing.T) {
	_, err := Lookup("no-such-model-xyz")
	assert.True(t, errors.Is(err, types.ErrConfiguration))

	_, err = ContextSize("no-such-model-xyz")
	assert.True(t, errors.Is(err, types.ErrConfiguration))
}

func TestContextSize_FamilyFallback(t *testing.T) {
	// Family prefixes resolve without explicit registration.
	size, err := ContextSize("gpt-4")
	require.NoError(t, err)
	assert.Equal(t, 8192, size)

	size, err = ContextSize("claude-sonnet-4-20250514")
	require.NoError(t, err)
	assert.Equal(t, 200000, size)
}

func TestLookup_ConcurrentReads(t *testing.T) {
	require.NoError(t, RegisterCodec("concurrent-model", runeCodec{}, 500))

	var wg sync.WaitGroup
	for i := 0; i < 32; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			codec, err := Lookup("concurrent-model")
			assert.NoError(t, err)
			assert.Equal(t, 5, codec.Count("abcde"))
		}()
	}
	wg.Wait()
}
