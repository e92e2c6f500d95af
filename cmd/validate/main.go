// Command validate inspects a built collection: record count, vector
// dimensions, payload completeness, and an optional sample query.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"

	"github.com/coursebot/coursebot/engine/embed"
	"github.com/coursebot/coursebot/engine/recommend"
	"github.com/coursebot/coursebot/engine/semantic"
	"github.com/coursebot/coursebot/pkg/config"
)

func main() {
	var (
		providerName = flag.String("provider", "ollama", "embedding provider: ollama or openai")
		collection   = flag.String("collection", "", "collection name (default per provider)")
		sample       = flag.String("sample", "", "run a sample query after the stats")
	)
	flag.Parse()

	log := slog.Default()
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	cfg, err := config.Load()
	if err != nil {
		log.Error("config load failed", "error", err)
		os.Exit(1)
	}

	var provider embed.Provider
	name := cfg.Collection
	switch *providerName {
	case "ollama":
		provider = embed.NewOllama(cfg.OllamaURL, cfg.OllamaModel, cfg.OllamaDims, 0)
	case "openai":
		provider = embed.NewOpenAI("", cfg.OpenAIAPIKey, cfg.OpenAIModel, 0)
		name = cfg.OpenAICollection
	default:
		log.Error("unknown provider", "provider", *providerName)
		os.Exit(1)
	}
	if *collection != "" {
		name = *collection
	}

	store, err := semantic.New(cfg.QdrantAddr)
	if err != nil {
		log.Error("qdrant connect failed", "addr", cfg.QdrantAddr, "error", err)
		os.Exit(1)
	}
	defer store.Close()

	ok, err := store.Exists(ctx, name)
	if err != nil {
		log.Error("collection lookup failed", "error", err)
		os.Exit(1)
	}
	if !ok {
		log.Error("collection not found", "collection", name)
		os.Exit(1)
	}

	dims, err := store.Dims(ctx, name)
	if err != nil {
		log.Error("dims lookup failed", "error", err)
		os.Exit(1)
	}

	records, err := store.GetAll(ctx, name)
	if err != nil {
		log.Error("scan failed", "error", err)
		os.Exit(1)
	}

	var missingMeta, badVector int
	for _, r := range records {
		if r.Meta.Title == "" || r.Meta.Teacher == "" || r.Meta.Category == "" {
			missingMeta++
		}
		if len(r.Vector) != dims {
			badVector++
		}
	}

	fmt.Printf("collection:       %s\n", name)
	fmt.Printf("records:          %d\n", len(records))
	fmt.Printf("dimensions:       %d\n", dims)
	fmt.Printf("missing metadata: %d\n", missingMeta)
	fmt.Printf("bad vectors:      %d\n", badVector)

	if *sample == "" {
		return
	}

	if dims != provider.Dimensions() {
		log.Error("provider does not match collection",
			"provider_dims", provider.Dimensions(), "collection_dims", dims)
		os.Exit(1)
	}

	svc := recommend.New(provider, store, name, recommend.DefaultOptions(), log)
	results, err := svc.Recommend(ctx, *sample)
	if err != nil {
		log.Error("sample query failed", "error", err)
		os.Exit(1)
	}

	fmt.Printf("\nsample query: %s\n", *sample)
	for _, r := range results {
		fmt.Printf("- %s | 講師: %s | 分類: %s | 相似距離: %.1f\n",
			r.Course, r.Teacher, r.Category, r.Distance)
	}
}
