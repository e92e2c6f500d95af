package embed

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sort"
	"strings"
	"time"

	"github.com/coursebot/coursebot/engine/domain"
)

// OpenAIDims is the output size of text-embedding-3-small.
const OpenAIDims = 1536

// OpenAIProvider embeds text through the OpenAI embeddings API. This is the
// remote provider backing the *_openai collection.
type OpenAIProvider struct {
	baseURL string
	apiKey  string
	model   string
	dims    int
	client  *http.Client
}

// NewOpenAI creates an OpenAI embedding provider.
func NewOpenAI(baseURL, apiKey, model string, timeout time.Duration) *OpenAIProvider {
	if baseURL == "" {
		baseURL = "https://api.openai.com/v1"
	}
	if model == "" {
		model = "text-embedding-3-small"
	}
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &OpenAIProvider{
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
		model:   model,
		dims:    OpenAIDims,
		client:  &http.Client{Timeout: timeout},
	}
}

type openaiEmbedReq struct {
	Model string   `json:"model"`
	Input []string `json:"input"`
}

type openaiEmbedResp struct {
	Data []struct {
		Index     int       `json:"index"`
		Embedding []float64 `json:"embedding"`
	} `json:"data"`
}

// Embed implements Provider.
func (p *OpenAIProvider) Embed(ctx context.Context, text string) ([]float32, error) {
	vecs, err := p.EmbedBatch(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return vecs[0], nil
}

// EmbedBatch embeds texts in a single API call; the OpenAI endpoint accepts
// an input array and returns indexed vectors.
func (p *OpenAIProvider) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	for i, text := range texts {
		if strings.TrimSpace(text) == "" {
			return nil, fmt.Errorf("embed batch [%d]: empty text: %w", i, domain.ErrInvalidInput)
		}
	}

	body, _ := json.Marshal(openaiEmbedReq{Model: p.model, Input: texts})
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.baseURL+"/embeddings", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("embed: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+p.apiKey)

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("embed: openai: %v: %w", err, domain.ErrProviderUnavailable)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusOK:
	case resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500:
		return nil, fmt.Errorf("embed: openai status %d: %w", resp.StatusCode, domain.ErrProviderUnavailable)
	default:
		return nil, fmt.Errorf("embed: openai status %d: %w", resp.StatusCode, domain.ErrInvalidInput)
	}

	var result openaiEmbedResp
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("embed: openai decode: %w", err)
	}
	if len(result.Data) != len(texts) {
		return nil, fmt.Errorf("embed: openai returned %d vectors for %d inputs", len(result.Data), len(texts))
	}

	// The API documents order-by-index; sort rather than trust it.
	sort.Slice(result.Data, func(i, j int) bool { return result.Data[i].Index < result.Data[j].Index })

	vecs := make([][]float32, len(result.Data))
	for i, d := range result.Data {
		vec := make([]float32, len(d.Embedding))
		for j, v := range d.Embedding {
			vec[j] = float32(v)
		}
		if err := checkVector(vec, p.dims); err != nil {
			return nil, fmt.Errorf("embed: openai: %w", err)
		}
		vecs[i] = vec
	}
	return vecs, nil
}

// Dimensions implements Provider.
func (p *OpenAIProvider) Dimensions() int { return p.dims }

// Name implements Provider.
func (p *OpenAIProvider) Name() string { return "openai:" + p.model }
