package inference

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/guiperry/llmcore/types"
)

// chatMessage is one message in an OpenAI-compatible chat request.
type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type responseFormat struct {
	Type       string `json:"type"`
	JSONSchema *struct {
		Name   string          `json:"name"`
		Schema json.RawMessage `json:"schema"`
		Strict bool            `json:"strict,omitempty"`
	} `json:"json_schema,omitempty"`
}

type chatCompletionRequest struct {
	Model          string          `json:"model"`
	Messages       []chatMessage   `json:"messages"`
	MaxTokens      int             `json:"max_tokens,omitempty"`
	Temperature    *float64        `json:"temperature,omitempty"`
	ResponseFormat *responseFormat `json:"response_format,omitempty"`
}

type chatCompletionResponse struct {
	Choices []struct {
		Message struct {
			Role    string `json:"role"`
			Content string `json:"content"`
		} `json:"message"`
		FinishReason string `json:"finish_reason"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
		Type    string `json:"type"`
		Code    any    `json:"code"`
	} `json:"error"`
}

// RemoteBackend speaks the OpenAI-compatible chat-completions protocol
// used by OpenAI, Cerebras, Deepseek, Mistral and most hosted gateways.
type RemoteBackend struct {
	name         string
	endpoint     string
	apiKey       string
	model        string
	maxTokens    int
	extraHeaders map[string]string
	client       *http.Client
}

// RemoteOption configures a RemoteBackend.
type RemoteOption func(*RemoteBackend)

// WithHTTPClient overrides the HTTP client.
func WithHTTPClient(client *http.Client) RemoteOption {
	return func(b *RemoteBackend) { b.client = client }
}

// WithHeader adds a header to every request.
func WithHeader(key, value string) RemoteOption {
	return func(b *RemoteBackend) { b.extraHeaders[key] = value }
}

// WithMaxTokens sets the default completion budget.
func WithMaxTokens(n int) RemoteOption {
	return func(b *RemoteBackend) { b.maxTokens = n }
}

// NewRemoteBackend creates an adapter for one OpenAI-compatible service.
// endpoint is the full chat-completions URL, model the default model ID.
func NewRemoteBackend(name, endpoint, apiKey, model string, opts ...RemoteOption) *RemoteBackend {
	b := &RemoteBackend{
		name:         name,
		endpoint:     endpoint,
		apiKey:       apiKey,
		model:        model,
		maxTokens:    4096,
		extraHeaders: make(map[string]string),
		client:       &http.Client{Timeout: 120 * time.Second},
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Name returns the backend identifier used in errors.
func (b *RemoteBackend) Name() string { return b.name }

// Complete implements Completer.
func (b *RemoteBackend) Complete(ctx context.Context, req Request) (*Response, error) {
	const op = "RemoteBackend.Complete"

	model := req.ModelID
	if model == "" {
		model = b.model
	}
	req.ModelID = model

	if err := checkBudget(op, req); err != nil {
		return nil, err
	}

	body, err := b.prepareRequest(req, model)
	if err != nil {
		return nil, &types.BackendError{Op: op, Backend: b.name, Err: err}
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, b.endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, &types.BackendError{Op: op, Backend: b.name, Err: err}
	}
	httpReq.Header.Set("Content-Type", "application/json")
	if b.apiKey != "" {
		httpReq.Header.Set("Authorization", "Bearer "+b.apiKey)
	}
	for k, v := range b.extraHeaders {
		httpReq.Header.Set(k, v)
	}

	resp, err := b.client.Do(httpReq)
	if err != nil {
		return nil, classifyTransport(op, b.name, err)
	}
	defer resp.Body.Close()

	payload, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &types.BackendError{Op: op, Backend: b.name, Err: err}
	}

	if resp.StatusCode != http.StatusOK {
		if overflowErr := overflowFromBody(op, b.name, model, string(payload)); overflowErr != nil {
			return nil, overflowErr
		}
		return nil, &types.BackendError{
			Op: op, Backend: b.name, Status: resp.StatusCode,
			Err: fmt.Errorf("%s", truncate(string(payload), 512)),
		}
	}

	return b.parseResponse(payload, model)
}

func (b *RemoteBackend) prepareRequest(req Request, model string) ([]byte, error) {
	messages := make([]chatMessage, 0, 2)
	if req.System != "" {
		messages = append(messages, chatMessage{Role: "system", Content: req.System})
	}
	messages = append(messages, chatMessage{Role: "user", Content: req.Prompt})

	maxTokens := req.MaxTokens
	if maxTokens == 0 {
		maxTokens = b.maxTokens
	}

	out := chatCompletionRequest{
		Model:       model,
		Messages:    messages,
		MaxTokens:   maxTokens,
		Temperature: req.Temperature,
	}

	if req.Schema != nil {
		out.ResponseFormat = &responseFormat{Type: "json_schema"}
		out.ResponseFormat.JSONSchema = &struct {
			Name   string          `json:"name"`
			Schema json.RawMessage `json:"schema"`
			Strict bool            `json:"strict,omitempty"`
		}{
			Name:   req.Schema.Name,
			Schema: req.Schema.Schema,
			Strict: true,
		}
	}

	return json.Marshal(out)
}

func (b *RemoteBackend) parseResponse(payload []byte, model string) (*Response, error) {
	const op = "RemoteBackend.Complete"

	var out chatCompletionResponse
	if err := json.Unmarshal(payload, &out); err != nil {
		return nil, &types.BackendError{Op: op, Backend: b.name, Err: err}
	}
	if out.Error != nil {
		if overflowErr := overflowFromBody(op, b.name, model, out.Error.Message); overflowErr != nil {
			return nil, overflowErr
		}
		return nil, &types.BackendError{Op: op, Backend: b.name, Err: fmt.Errorf("%s", out.Error.Message)}
	}
	if len(out.Choices) == 0 {
		return nil, &types.BackendError{Op: op, Backend: b.name, Err: fmt.Errorf("response contained no choices")}
	}

	return &Response{Text: out.Choices[0].Message.Content, ModelID: model}, nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
