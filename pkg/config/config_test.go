package config

import "testing"

func TestLoad_Defaults(t *testing.T) {
	for _, key := range []string{
		"CHANNEL_ACCESS_TOKEN", "CHANNEL_SECRET", "OPENAI_API_KEY",
		"OPENAI_EMBED_MODEL", "OLLAMA_URL", "OLLAMA_EMBED_MODEL",
		"OLLAMA_EMBED_DIMS", "QDRANT_ADDR", "COLLECTION",
		"OPENAI_COLLECTION", "CACHE_DB",
	} {
		t.Setenv(key, "")
	}

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}
	if cfg.Collection != DefaultCollection {
		t.Errorf("expected %s, got %s", DefaultCollection, cfg.Collection)
	}
	if cfg.OpenAICollection != DefaultOpenAICollection {
		t.Errorf("expected %s, got %s", DefaultOpenAICollection, cfg.OpenAICollection)
	}
	if cfg.OllamaDims != 768 {
		t.Errorf("expected default 768 dims, got %d", cfg.OllamaDims)
	}
	if cfg.OllamaURL != "http://localhost:11434" {
		t.Errorf("unexpected ollama url %s", cfg.OllamaURL)
	}
	if cfg.QdrantAddr != "localhost:6334" {
		t.Errorf("unexpected qdrant addr %s", cfg.QdrantAddr)
	}
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("COLLECTION", "custom_courses")
	t.Setenv("OLLAMA_EMBED_DIMS", "1024")
	t.Setenv("CACHE_DB", "/tmp/cache.db")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}
	if cfg.Collection != "custom_courses" {
		t.Errorf("override ignored: %s", cfg.Collection)
	}
	if cfg.OllamaDims != 1024 {
		t.Errorf("dims override ignored: %d", cfg.OllamaDims)
	}
	if cfg.CacheDB != "/tmp/cache.db" {
		t.Errorf("cache db override ignored: %s", cfg.CacheDB)
	}
}

func TestLoad_BadDims(t *testing.T) {
	t.Setenv("OLLAMA_EMBED_DIMS", "not-a-number")
	if _, err := Load(); err == nil {
		t.Fatal("expected error for unparseable dims")
	}
}
