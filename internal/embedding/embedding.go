// Package embedding produces the vectors the context store indexes
// chunks under. It speaks the OpenAI-compatible embeddings endpoint and
// falls back to a deterministic local embedding when no service is
// configured or reachable.
package embedding

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"math"
	"net/http"
	"time"

	"github.com/philippgille/chromem-go"
)

const localDim = 128

// Config holds the embedding service settings.
type Config struct {
	APIKey   string
	Endpoint string
	Model    string
}

// Client generates embeddings for the context store.
type Client struct {
	config     *Config
	httpClient *http.Client
	logger     *log.Logger
}

// NewClient builds an embedding client. A nil config disables the remote
// service entirely; every call uses the local fallback.
func NewClient(config *Config, logger *log.Logger) *Client {
	return &Client{
		config:     config,
		httpClient: &http.Client{Timeout: 30 * time.Second},
		logger:     logger,
	}
}

// ChromemFunc adapts the client to the chromem-go embedding interface.
func (c *Client) ChromemFunc() chromem.EmbeddingFunc {
	return func(ctx context.Context, text string) ([]float32, error) {
		if c.config == nil || c.config.Endpoint == "" {
			return localEmbedding(text), nil
		}
		vec, err := c.remoteEmbedding(ctx, text)
		if err != nil {
			if c.logger != nil {
				c.logger.Printf("embedding service failed (%v), using local fallback", err)
			}
			return localEmbedding(text), nil
		}
		return vec, nil
	}
}

type embeddingRequest struct {
	Model string   `json:"model"`
	Input []string `json:"input"`
}

type embeddingResponse struct {
	Data []struct {
		Embedding []float32 `json:"embedding"`
	} `json:"data"`
}

func (c *Client) remoteEmbedding(ctx context.Context, text string) ([]float32, error) {
	payload, err := json.Marshal(embeddingRequest{Model: c.config.Model, Input: []string{text}})
	if err != nil {
		return nil, fmt.Errorf("marshal embedding request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.config.Endpoint, bytes.NewBuffer(payload))
	if err != nil {
		return nil, fmt.Errorf("create embedding request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.config.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.config.APIKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("call embedding service: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read embedding response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("embedding service returned status %d: %s", resp.StatusCode, string(body))
	}

	var parsed embeddingResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, fmt.Errorf("parse embedding response: %w", err)
	}
	if len(parsed.Data) == 0 || len(parsed.Data[0].Embedding) == 0 {
		return nil, fmt.Errorf("embedding service returned no vectors")
	}
	return parsed.Data[0].Embedding, nil
}

// localEmbedding hashes character trigrams into a fixed-size vector and
// normalizes it. Deterministic, so equal texts always map to the same
// vector.
func localEmbedding(text string) []float32 {
	vec := make([]float32, localDim)
	runes := []rune(text)
	if len(runes) == 0 {
		vec[0] = 1
		return vec
	}

	for i := 0; i+2 < len(runes); i++ {
		h := 2166136261
		for _, r := range runes[i : i+3] {
			h = (h ^ int(r)) * 16777619
		}
		if h < 0 {
			h = -h
		}
		vec[h%localDim]++
	}
	vec[0] += float32(len(runes)) / 1000.0

	var norm float64
	for _, v := range vec {
		norm += float64(v) * float64(v)
	}
	norm = math.Sqrt(norm)
	if norm == 0 {
		vec[0] = 1
		return vec
	}
	for i := range vec {
		vec[i] = float32(float64(vec[i]) / norm)
	}
	return vec
}
