package inference

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/guiperry/llmcore/types"
)

// LocalBackend adapts a llama.cpp server running on localhost. A locally
// loaded inference engine is not reentrant: every completion against the
// same loaded model is serialized behind a mutex, so effective
// concurrency is 1 regardless of any caller-side limit.
type LocalBackend struct {
	endpoint  string
	model     string
	maxTokens int
	client    *http.Client

	mu sync.Mutex // serializes completions against the loaded model
}

// localCompletionRequest is the llama.cpp /completion payload.
type localCompletionRequest struct {
	Prompt      string          `json:"prompt"`
	NPredict    int             `json:"n_predict"`
	Temperature *float64        `json:"temperature,omitempty"`
	JSONSchema  json.RawMessage `json:"json_schema,omitempty"`
}

type localCompletionResponse struct {
	Content string `json:"content"`
}

// NewLocalBackend creates an adapter for a llama.cpp server at endpoint
// (e.g. "http://127.0.0.1:8080"). model names the loaded weights for
// vocabulary lookup and provenance.
func NewLocalBackend(endpoint, model string, maxTokens int) *LocalBackend {
	if maxTokens <= 0 {
		maxTokens = 2048
	}
	return &LocalBackend{
		endpoint:  endpoint,
		model:     model,
		maxTokens: maxTokens,
		client:    &http.Client{Timeout: 10 * time.Minute},
	}
}

// Name returns the backend identifier used in errors.
func (b *LocalBackend) Name() string { return "local" }

// Open acquires the backend for a session: it verifies the server has a
// model loaded and hands back a handle that must be released with Close
// on every exit path.
func (b *LocalBackend) Open(ctx context.Context) (*LocalSession, error) {
	const op = "LocalBackend.Open"

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, b.endpoint+"/health", nil)
	if err != nil {
		return nil, &types.BackendError{Op: op, Backend: b.Name(), Err: err}
	}
	resp, err := b.client.Do(req)
	if err != nil {
		return nil, classifyTransport(op, b.Name(), err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, &types.BackendError{
			Op: op, Backend: b.Name(), Status: resp.StatusCode,
			Err: fmt.Errorf("model not ready"),
		}
	}

	return &LocalSession{backend: b}, nil
}

// LocalSession is a scoped handle on the loaded model. It implements
// Completer; after Close every call fails.
type LocalSession struct {
	backend *LocalBackend

	mu     sync.Mutex
	closed bool
}

// Close releases the session. It is idempotent.
func (s *LocalSession) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}

// Complete implements Completer.
func (s *LocalSession) Complete(ctx context.Context, req Request) (*Response, error) {
	const op = "LocalSession.Complete"

	s.mu.Lock()
	closed := s.closed
	s.mu.Unlock()
	if closed {
		return nil, &types.BackendError{Op: op, Backend: s.backend.Name(), Err: fmt.Errorf("session closed")}
	}

	if req.ModelID == "" {
		req.ModelID = s.backend.model
	}
	if err := checkBudget(op, req); err != nil {
		return nil, err
	}

	// The loaded engine handles one request at a time.
	s.backend.mu.Lock()
	defer s.backend.mu.Unlock()

	prompt := req.Prompt
	if req.System != "" {
		prompt = req.System + "\n\n" + prompt
	}

	maxTokens := req.MaxTokens
	if maxTokens == 0 {
		maxTokens = s.backend.maxTokens
	}

	payload := localCompletionRequest{
		Prompt:      prompt,
		NPredict:    maxTokens,
		Temperature: req.Temperature,
	}
	if req.Schema != nil {
		payload.JSONSchema = req.Schema.Schema
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return nil, &types.BackendError{Op: op, Backend: s.backend.Name(), Err: err}
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, s.backend.endpoint+"/completion", bytes.NewReader(body))
	if err != nil {
		return nil, &types.BackendError{Op: op, Backend: s.backend.Name(), Err: err}
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := s.backend.client.Do(httpReq)
	if err != nil {
		return nil, classifyTransport(op, s.backend.Name(), err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &types.BackendError{Op: op, Backend: s.backend.Name(), Err: err}
	}
	if resp.StatusCode != http.StatusOK {
		if overflowErr := overflowFromBody(op, s.backend.Name(), req.ModelID, string(raw)); overflowErr != nil {
			return nil, overflowErr
		}
		return nil, &types.BackendError{
			Op: op, Backend: s.backend.Name(), Status: resp.StatusCode,
			Err: fmt.Errorf("%s", truncate(string(raw), 512)),
		}
	}

	var out localCompletionResponse
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, &types.BackendError{Op: op, Backend: s.backend.Name(), Err: err}
	}

	return &Response{Text: out.Content, ModelID: req.ModelID}, nil
}
