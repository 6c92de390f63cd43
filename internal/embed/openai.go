package embed

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// defaultEmbeddingAPI is OpenAI's embeddings endpoint, grounded on raggo's
// rag/providers/openai.go.
const defaultEmbeddingAPI = "https://api.openai.com/v1/embeddings"

// defaultModelName matches spec.md §4.3's default embedding model.
const defaultModelName = "text-embedding-3-small"

// OpenAIProvider implements Provider against OpenAI's embeddings API. It
// returns []float32 (the internal pipeline's vector type) rather than the
// API's native []float64.
type OpenAIProvider struct {
	apiKey    string
	client    *http.Client
	apiURL    string
	modelName string
	dimension int
}

// OpenAIOption configures an OpenAIProvider.
type OpenAIOption func(*OpenAIProvider)

// WithModel overrides the default embedding model.
func WithModel(model string) OpenAIOption {
	return func(p *OpenAIProvider) {
		if model != "" {
			p.modelName = model
			p.dimension = dimensionFor(model)
		}
	}
}

// WithAPIURL overrides the default API endpoint, e.g. for a proxy or a
// self-hosted OpenAI-compatible gateway.
func WithAPIURL(url string) OpenAIOption {
	return func(p *OpenAIProvider) {
		if url != "" {
			p.apiURL = url
		}
	}
}

// WithTimeout overrides the default 30s HTTP client timeout.
func WithTimeout(d time.Duration) OpenAIOption {
	return func(p *OpenAIProvider) {
		if d > 0 {
			p.client.Timeout = d
		}
	}
}

// NewOpenAIProvider builds an embedding provider for the given API key,
// defaulting to text-embedding-3-small (D=1536).
func NewOpenAIProvider(apiKey string, opts ...OpenAIOption) (*OpenAIProvider, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("embed: API key is required")
	}
	p := &OpenAIProvider{
		apiKey:    apiKey,
		client:    &http.Client{Timeout: 30 * time.Second},
		apiURL:    defaultEmbeddingAPI,
		modelName: defaultModelName,
		dimension: dimensionFor(defaultModelName),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p, nil
}

type embeddingRequest struct {
	Input string `json:"input"`
	Model string `json:"model"`
}

type embeddingResponse struct {
	Data []struct {
		Embedding []float32 `json:"embedding"`
	} `json:"data"`
}

// Embed calls the embeddings endpoint for a single text.
func (p *OpenAIProvider) Embed(ctx context.Context, text string) ([]float32, error) {
	reqBody, err := json.Marshal(embeddingRequest{Input: text, Model: p.modelName})
	if err != nil {
		return nil, fmt.Errorf("embed: marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.apiURL, bytes.NewReader(reqBody))
	if err != nil {
		return nil, fmt.Errorf("embed: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+p.apiKey)

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("embed: send request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("embed: read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("embed: API request failed with status %d: %s", resp.StatusCode, string(body))
	}

	var parsed embeddingResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, fmt.Errorf("embed: unmarshal response: %w", err)
	}
	if len(parsed.Data) == 0 {
		return nil, fmt.Errorf("embed: no embedding data in response")
	}
	return parsed.Data[0].Embedding, nil
}

// Dimension reports the vector width the configured model produces.
func (p *OpenAIProvider) Dimension() int { return p.dimension }

func dimensionFor(model string) int {
	switch model {
	case "text-embedding-3-small":
		return 1536
	case "text-embedding-3-large":
		return 3072
	case "text-embedding-ada-002":
		return 1536
	default:
		return 1536
	}
}
