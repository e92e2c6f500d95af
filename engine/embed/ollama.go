package embed

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/coursebot/coursebot/engine/domain"
)

// OllamaProvider embeds text through a local Ollama server. This is the
// local-model provider backing the default collection.
type OllamaProvider struct {
	baseURL string
	model   string
	dims    int
	client  *http.Client
}

// NewOllama creates an Ollama embedding provider. dims must match the model's
// output size (768 for nomic-embed-text).
func NewOllama(baseURL, model string, dims int, timeout time.Duration) *OllamaProvider {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &OllamaProvider{
		baseURL: strings.TrimRight(baseURL, "/"),
		model:   model,
		dims:    dims,
		client:  &http.Client{Timeout: timeout},
	}
}

type ollamaEmbedReq struct {
	Model  string `json:"model"`
	Prompt string `json:"prompt"`
}

type ollamaEmbedResp struct {
	Embedding []float64 `json:"embedding"`
}

// Embed implements Provider.
func (p *OllamaProvider) Embed(ctx context.Context, text string) ([]float32, error) {
	if strings.TrimSpace(text) == "" {
		return nil, fmt.Errorf("embed: empty text: %w", domain.ErrInvalidInput)
	}

	body, _ := json.Marshal(ollamaEmbedReq{Model: p.model, Prompt: text})
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.baseURL+"/api/embeddings", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("embed: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("embed: ollama: %v: %w", err, domain.ErrProviderUnavailable)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusBadRequest:
		return nil, fmt.Errorf("embed: ollama rejected input: %w", domain.ErrInvalidInput)
	case resp.StatusCode != http.StatusOK:
		return nil, fmt.Errorf("embed: ollama status %d: %w", resp.StatusCode, domain.ErrProviderUnavailable)
	}

	var result ollamaEmbedResp
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("embed: ollama decode: %w", err)
	}

	vec := make([]float32, len(result.Embedding))
	for i, v := range result.Embedding {
		vec[i] = float32(v)
	}
	if err := checkVector(vec, p.dims); err != nil {
		return nil, fmt.Errorf("embed: ollama: %w", err)
	}
	return vec, nil
}

// EmbedBatch embeds texts one at a time; the Ollama embeddings endpoint has
// no batch form.
func (p *OllamaProvider) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	vecs := make([][]float32, len(texts))
	for i, text := range texts {
		vec, err := p.Embed(ctx, text)
		if err != nil {
			return nil, fmt.Errorf("embed batch [%d]: %w", i, err)
		}
		vecs[i] = vec
	}
	return vecs, nil
}

// Dimensions implements Provider.
func (p *OllamaProvider) Dimensions() int { return p.dims }

// Name implements Provider.
func (p *OllamaProvider) Name() string { return "ollama:" + p.model }
