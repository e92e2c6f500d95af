package embed

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/coursebot/coursebot/engine/domain"
)

func ollamaServer(t *testing.T, dims int) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/embeddings" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		var req struct {
			Model  string `json:"model"`
			Prompt string `json:"prompt"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("bad request body: %v", err)
		}
		vec := make([]float64, dims)
		vec[0] = float64(len(req.Prompt))
		json.NewEncoder(w).Encode(map[string]any{"embedding": vec})
	}))
}

func TestOllama_Embed(t *testing.T) {
	srv := ollamaServer(t, 8)
	defer srv.Close()

	p := NewOllama(srv.URL, "nomic-embed-text", 8, 0)
	vec, err := p.Embed(context.Background(), "我想學程式設計")
	if err != nil {
		t.Fatalf("embed failed: %v", err)
	}
	if len(vec) != 8 {
		t.Errorf("expected 8 dims, got %d", len(vec))
	}
	if p.Name() != "ollama:nomic-embed-text" {
		t.Errorf("unexpected name %s", p.Name())
	}
}

func TestOllama_EmptyText(t *testing.T) {
	p := NewOllama("http://localhost:1", "m", 8, 0)
	_, err := p.Embed(context.Background(), "   ")
	if !errors.Is(err, domain.ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput, got %v", err)
	}
}

func TestOllama_ServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	p := NewOllama(srv.URL, "m", 8, 0)
	_, err := p.Embed(context.Background(), "text")
	if !errors.Is(err, domain.ErrProviderUnavailable) {
		t.Fatalf("expected ErrProviderUnavailable, got %v", err)
	}
	if !domain.Retryable(err) {
		t.Error("server errors must be retryable")
	}
}

func TestOllama_Unreachable(t *testing.T) {
	p := NewOllama("http://127.0.0.1:1", "m", 8, time.Second)
	_, err := p.Embed(context.Background(), "text")
	if !errors.Is(err, domain.ErrProviderUnavailable) {
		t.Fatalf("expected ErrProviderUnavailable, got %v", err)
	}
}

func TestOllama_WrongDims(t *testing.T) {
	srv := ollamaServer(t, 4)
	defer srv.Close()

	p := NewOllama(srv.URL, "m", 8, 0)
	_, err := p.Embed(context.Background(), "text")
	var dm *domain.DimensionMismatchError
	if !errors.As(err, &dm) {
		t.Fatalf("expected DimensionMismatchError, got %v", err)
	}
	if dm.Want != 8 || dm.Got != 4 {
		t.Errorf("expected want 8 got 4, have %+v", dm)
	}
	if domain.Retryable(err) {
		t.Error("dimension mismatch must not be retryable")
	}
}

func TestOpenAI_EmbedBatch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("Authorization"); got != "Bearer sk-test" {
			t.Errorf("unexpected auth header %q", got)
		}
		var req struct {
			Input []string `json:"input"`
		}
		json.NewDecoder(r.Body).Decode(&req)

		// Answer in reverse index order; the client must restore it.
		type item struct {
			Index     int       `json:"index"`
			Embedding []float64 `json:"embedding"`
		}
		var data []item
		for i := len(req.Input) - 1; i >= 0; i-- {
			vec := make([]float64, OpenAIDims)
			vec[0] = float64(i)
			data = append(data, item{Index: i, Embedding: vec})
		}
		json.NewEncoder(w).Encode(map[string]any{"data": data})
	}))
	defer srv.Close()

	p := NewOpenAI(srv.URL, "sk-test", "", 0)
	vecs, err := p.EmbedBatch(context.Background(), []string{"a", "b", "c"})
	if err != nil {
		t.Fatalf("batch failed: %v", err)
	}
	if len(vecs) != 3 {
		t.Fatalf("expected 3 vectors, got %d", len(vecs))
	}
	for i, vec := range vecs {
		if vec[0] != float32(i) {
			t.Errorf("vector %d out of order: marker %v", i, vec[0])
		}
	}
}

func TestOpenAI_RateLimited(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer srv.Close()

	p := NewOpenAI(srv.URL, "sk-test", "", 0)
	_, err := p.Embed(context.Background(), "text")
	if !errors.Is(err, domain.ErrProviderUnavailable) {
		t.Fatalf("expected ErrProviderUnavailable, got %v", err)
	}
}

func TestOpenAI_BadRequestNotRetryable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer srv.Close()

	p := NewOpenAI(srv.URL, "bad-key", "", 0)
	_, err := p.Embed(context.Background(), "text")
	if !errors.Is(err, domain.ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput, got %v", err)
	}
	if domain.Retryable(err) {
		t.Error("auth failures must not be retried")
	}
}

// flakyProvider fails transiently n times before succeeding.
type flakyProvider struct {
	failures int
	calls    int
}

func (f *flakyProvider) Embed(ctx context.Context, text string) ([]float32, error) {
	vecs, err := f.EmbedBatch(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return vecs[0], nil
}

func (f *flakyProvider) EmbedBatch(_ context.Context, texts []string) ([][]float32, error) {
	f.calls++
	if f.calls <= f.failures {
		return nil, domain.ErrProviderUnavailable
	}
	out := make([][]float32, len(texts))
	for i := range out {
		out[i] = []float32{1}
	}
	return out, nil
}

func (f *flakyProvider) Dimensions() int { return 1 }
func (f *flakyProvider) Name() string    { return "flaky" }

func fastRetry() ResilientOpts {
	opts := DefaultResilientOpts()
	opts.Retry.InitialWait = time.Millisecond
	opts.Retry.MaxWait = time.Millisecond
	opts.Retry.Jitter = false
	return opts
}

func TestResilient_RetriesTransientFailure(t *testing.T) {
	inner := &flakyProvider{failures: 1}
	p := Resilient(inner, fastRetry())

	vec, err := p.Embed(context.Background(), "text")
	if err != nil {
		t.Fatalf("expected retry to recover: %v", err)
	}
	if len(vec) != 1 {
		t.Errorf("unexpected vector %v", vec)
	}
	if inner.calls != 2 {
		t.Errorf("expected 2 calls, got %d", inner.calls)
	}
}

func TestResilient_GivesUpAfterMaxAttempts(t *testing.T) {
	inner := &flakyProvider{failures: 10}
	p := Resilient(inner, fastRetry())

	_, err := p.Embed(context.Background(), "text")
	if !errors.Is(err, domain.ErrProviderUnavailable) {
		t.Fatalf("expected ErrProviderUnavailable, got %v", err)
	}
	if inner.calls != 2 {
		t.Errorf("expected 2 attempts, got %d", inner.calls)
	}
}

// invalidProvider always rejects its input.
type invalidProvider struct{ calls int }

func (p *invalidProvider) Embed(_ context.Context, _ string) ([]float32, error) {
	p.calls++
	return nil, domain.ErrInvalidInput
}

func (p *invalidProvider) EmbedBatch(_ context.Context, texts []string) ([][]float32, error) {
	p.calls++
	return nil, domain.ErrInvalidInput
}

func (p *invalidProvider) Dimensions() int { return 1 }
func (p *invalidProvider) Name() string    { return "invalid" }

func TestResilient_DoesNotRetryInvalidInput(t *testing.T) {
	inner := &invalidProvider{}
	p := Resilient(inner, fastRetry())

	_, err := p.Embed(context.Background(), "text")
	if !errors.Is(err, domain.ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput, got %v", err)
	}
	if inner.calls != 1 {
		t.Errorf("invalid input retried: %d calls", inner.calls)
	}
}
