package rerank

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// HTTPCrossEncoder calls a model-serving endpoint that accepts a query and a
// batch of passages and returns one relevance score per passage, in the same
// client idiom as rag/providers/openai.go (JSON POST, Bearer auth header,
// configurable timeout).
type HTTPCrossEncoder struct {
	apiKey string
	apiURL string
	client *http.Client
}

// HTTPOption configures an HTTPCrossEncoder.
type HTTPOption func(*HTTPCrossEncoder)

// WithAPIKey attaches a Bearer token, when the serving endpoint requires one.
func WithAPIKey(key string) HTTPOption {
	return func(c *HTTPCrossEncoder) { c.apiKey = key }
}

// WithTimeout overrides the default 10s client timeout.
func WithTimeout(d time.Duration) HTTPOption {
	return func(c *HTTPCrossEncoder) {
		if d > 0 {
			c.client.Timeout = d
		}
	}
}

// NewHTTPCrossEncoder builds a client against a cross-encoder serving
// endpoint at apiURL (e.g. a self-hosted sentence-transformers CrossEncoder
// service).
func NewHTTPCrossEncoder(apiURL string, opts ...HTTPOption) *HTTPCrossEncoder {
	c := &HTTPCrossEncoder{
		apiURL: apiURL,
		client: &http.Client{Timeout: 10 * time.Second},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

type scoreRequest struct {
	Query    string   `json:"query"`
	Passages []string `json:"passages"`
}

type scoreResponse struct {
	Scores []float64 `json:"scores"`
}

// Score implements CrossEncoder.
func (c *HTTPCrossEncoder) Score(ctx context.Context, query string, passages []string) ([]float64, error) {
	body, err := json.Marshal(scoreRequest{Query: query, Passages: passages})
	if err != nil {
		return nil, fmt.Errorf("rerank: marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.apiURL, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("rerank: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("rerank: send request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("rerank: read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("rerank: request failed with status %d: %s", resp.StatusCode, string(respBody))
	}

	var parsed scoreResponse
	if err := json.Unmarshal(respBody, &parsed); err != nil {
		return nil, fmt.Errorf("rerank: unmarshal response: %w", err)
	}
	if len(parsed.Scores) != len(passages) {
		return nil, fmt.Errorf("rerank: expected %d scores, got %d", len(passages), len(parsed.Scores))
	}
	return parsed.Scores, nil
}
