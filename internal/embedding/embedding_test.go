package embedding

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLocalEmbeddingDeterministic(t *testing.T) {
	a := localEmbedding("the quick brown fox")
	b := localEmbedding("the quick brown fox")
	c := localEmbedding("an entirely different sentence")

	assert.Equal(t, a, b)
	assert.NotEqual(t, a, c)
	assert.Len(t, a, localDim)

	var norm float64
	for _, v := range a {
		norm += float64(v) * float64(v)
	}
	assert.InDelta(t, 1.0, norm, 1e-5)
}

func TestLocalEmbeddingEmptyText(t *testing.T) {
	vec := localEmbedding("")
	require.Len(t, vec, localDim)
	assert.Equal(t, float32(1), vec[0])
}

func TestChromemFuncRemote(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer key-123", r.Header.Get("Authorization"))

		var req embeddingRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "embed-model", req.Model)
		require.Len(t, req.Input, 1)

		json.NewEncoder(w).Encode(map[string]any{
			"data": []map[string]any{{"embedding": []float32{0.1, 0.2, 0.3}}},
		})
	}))
	defer srv.Close()

	client := NewClient(&Config{APIKey: "key-123", Endpoint: srv.URL, Model: "embed-model"}, nil)
	vec, err := client.ChromemFunc()(context.Background(), "hello")
	require.NoError(t, err)
	assert.Equal(t, []float32{0.1, 0.2, 0.3}, vec)
}

func TestChromemFuncFallsBackOnFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "unavailable", http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	client := NewClient(&Config{Endpoint: srv.URL}, nil)
	vec, err := client.ChromemFunc()(context.Background(), "hello world text")
	require.NoError(t, err)
	assert.Equal(t, localEmbedding("hello world text"), vec)
}

func TestChromemFuncNoConfig(t *testing.T) {
	client := NewClient(nil, nil)
	vec, err := client.ChromemFunc()(context.Background(), "sample")
	require.NoError(t, err)
	assert.Equal(t, localEmbedding("sample"), vec)
}
