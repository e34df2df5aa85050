package inference

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/guiperry/llmcore/schema"
	"github.com/guiperry/llmcore/tokenizer"
	"github.com/guiperry/llmcore/types"
)

// wordCodec counts whitespace-separated words as tokens.
type wordCodec struct{}

func (wordCodec) Encode(text string) []int {
	fields := strings.Fields(text)
	ids := make([]int, len(fields))
	for i := range fields {
		ids[i] = i
	}
	return ids
}

func (wordCodec) Decode(ids []int) string { return strings.Repeat("w ", len(ids)) }

func (c wordCodec) Count(text string) int { return len(strings.Fields(text)) }

const budgetModel = "inference-budget-model"

func TestMain(m *testing.M) {
	if err := tokenizer.RegisterCodec(budgetModel, wordCodec{}, 16); err != nil {
		panic(err)
	}
	m.Run()
}

func completionServer(t *testing.T, handler http.HandlerFunc) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return srv
}

func TestRemoteBackend_Complete(t *testing.T) {
	var gotBody []byte
	srv := completionServer(t, func(w http.ResponseWriter, r *http.Request) {
		gotBody, _ = io.ReadAll(r.Body)
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))
		w.Header().Set("Content-Type", "application/json")
		io.WriteString(w, `{"choices":[{"message":{"role":"assistant","content":"the answer"},"finish_reason":"stop"}]}`)
	})

	backend := NewRemoteBackend("openai", srv.URL, "test-key", "gpt-test")
	resp, err := backend.Complete(context.Background(), Request{
		System: "You are terse.",
		Prompt: "What is the answer?",
	})
	require.NoError(t, err)
	assert.Equal(t, "the answer", resp.Text)
	assert.Equal(t, "gpt-test", resp.ModelID)

	var sent chatCompletionRequest
	require.NoError(t, json.Unmarshal(gotBody, &sent))
	require.Len(t, sent.Messages, 2)
	assert.Equal(t, "system", sent.Messages[0].Role)
	assert.Equal(t, "user", sent.Messages[1].Role)
	assert.Nil(t, sent.ResponseFormat)
}

func TestRemoteBackend_SchemaRequest(t *testing.T) {
	var gotBody []byte
	srv := completionServer(t, func(w http.ResponseWriter, r *http.Request) {
		gotBody, _ = io.ReadAll(r.Body)
		io.WriteString(w, `{"choices":[{"message":{"content":"{\"ok\":true}"}}]}`)
	})

	def := &schema.Definition{Name: "check", Schema: json.RawMessage(`{"type":"object"}`)}
	backend := NewRemoteBackend("openai", srv.URL, "k", "gpt-test")

	_, err := backend.Complete(context.Background(), Request{Prompt: "go", Schema: def})
	require.NoError(t, err)

	var sent chatCompletionRequest
	require.NoError(t, json.Unmarshal(gotBody, &sent))
	require.NotNil(t, sent.ResponseFormat)
	assert.Equal(t, "json_schema", sent.ResponseFormat.Type)
	assert.Equal(t, "check", sent.ResponseFormat.JSONSchema.Name)
}

func TestRemoteBackend_ErrorStatus(t *testing.T) {
	srv := completionServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
		io.WriteString(w, `upstream unavailable`)
	})

	backend := NewRemoteBackend("openai", srv.URL, "k", "gpt-test")
	_, err := backend.Complete(context.Background(), Request{Prompt: "go"})
	require.Error(t, err)
	assert.True(t, errors.Is(err, types.ErrBackend))

	var backendErr *types.BackendError
	require.True(t, errors.As(err, &backendErr))
	assert.Equal(t, http.StatusBadGateway, backendErr.Status)
	assert.Equal(t, "openai", backendErr.Backend)
}

func TestRemoteBackend_ContextOverflowFromBody(t *testing.T) {
	srv := completionServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		io.WriteString(w, `{"error":{"message":"This model's maximum context length is 8192 tokens."}}`)
	})

	backend := NewRemoteBackend("openai", srv.URL, "k", "gpt-test")
	_, err := backend.Complete(context.Background(), Request{Prompt: "go"})
	assert.True(t, errors.Is(err, types.ErrContextOverflow))
}

func TestRemoteBackend_Timeout(t *testing.T) {
	srv := completionServer(t, func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(200 * time.Millisecond)
		io.WriteString(w, `{"choices":[]}`)
	})

	backend := NewRemoteBackend("openai", srv.URL, "k", "gpt-test")
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err := backend.Complete(ctx, Request{Prompt: "go"})
	require.Error(t, err)
	assert.True(t, errors.Is(err, types.ErrBackendTimeout))
}

func TestRemoteBackend_PreflightOverflow(t *testing.T) {
	srv := completionServer(t, func(w http.ResponseWriter, r *http.Request) {
		t.Error("request must not reach the backend")
	})

	backend := NewRemoteBackend("openai", srv.URL, "k", budgetModel)
	// 17 words against a 16 token window.
	prompt := strings.TrimSpace(strings.Repeat("word ", 17))

	_, err := backend.Complete(context.Background(), Request{Prompt: prompt})
	require.Error(t, err)
	assert.True(t, errors.Is(err, types.ErrContextOverflow))

	var overflow *types.ContextOverflowError
	require.True(t, errors.As(err, &overflow))
	assert.Equal(t, 17, overflow.Tokens)
	assert.Equal(t, 16, overflow.Limit)
}

func TestLocalBackend_SessionLifecycle(t *testing.T) {
	srv := completionServer(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/health":
			w.WriteHeader(http.StatusOK)
		case "/completion":
			io.WriteString(w, `{"content":"local answer"}`)
		default:
			t.Errorf("unexpected path %s", r.URL.Path)
		}
	})

	backend := NewLocalBackend(srv.URL, "mistral-7b", 256)
	session, err := backend.Open(context.Background())
	require.NoError(t, err)

	resp, err := session.Complete(context.Background(), Request{Prompt: "hi"})
	require.NoError(t, err)
	assert.Equal(t, "local answer", resp.Text)
	assert.Equal(t, "mistral-7b", resp.ModelID)

	require.NoError(t, session.Close())
	require.NoError(t, session.Close(), "Close is idempotent")

	_, err = session.Complete(context.Background(), Request{Prompt: "hi"})
	require.Error(t, err)
	assert.True(t, errors.Is(err, types.ErrBackend))
}

func TestLocalBackend_OpenNotReady(t *testing.T) {
	srv := completionServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	})

	backend := NewLocalBackend(srv.URL, "mistral-7b", 256)
	_, err := backend.Open(context.Background())
	require.Error(t, err)
	assert.True(t, errors.Is(err, types.ErrBackend))
}

func TestLocalBackend_SchemaPassthrough(t *testing.T) {
	var gotBody []byte
	srv := completionServer(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/health" {
			w.WriteHeader(http.StatusOK)
			return
		}
		gotBody, _ = io.ReadAll(r.Body)
		io.WriteString(w, `{"content":"{}"}`)
	})

	backend := NewLocalBackend(srv.URL, "mistral-7b", 256)
	session, err := backend.Open(context.Background())
	require.NoError(t, err)
	defer session.Close()

	def := &schema.Definition{Name: "c", Schema: json.RawMessage(`{"type":"object"}`)}
	_, err = session.Complete(context.Background(), Request{Prompt: "go", Schema: def})
	require.NoError(t, err)

	var sent localCompletionRequest
	require.NoError(t, json.Unmarshal(gotBody, &sent))
	assert.JSONEq(t, `{"type":"object"}`, string(sent.JSONSchema))
}

func TestSchemaInstruction(t *testing.T) {
	assert.Empty(t, schemaInstruction(nil))

	def := &schema.Definition{Name: "c", Schema: json.RawMessage(`{"type":"object"}`)}
	instr := schemaInstruction(def)
	assert.Contains(t, instr, "JSON Schema")
	assert.Contains(t, instr, `{"type":"object"}`)
}
