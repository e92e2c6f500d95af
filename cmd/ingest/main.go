// Command ingest builds a vector collection from a crawled course batch file.
// The provider flag selects the embedding space; each provider writes its own
// collection and the two are never mixed.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"

	"github.com/coursebot/coursebot/engine/domain"
	"github.com/coursebot/coursebot/engine/embed"
	"github.com/coursebot/coursebot/engine/ingest"
	"github.com/coursebot/coursebot/engine/semantic"
	"github.com/coursebot/coursebot/pkg/config"
)

func main() {
	var (
		dataFile     = flag.String("data", "data/sat_courses.json", "crawled course batch file")
		providerName = flag.String("provider", "ollama", "embedding provider: ollama or openai")
		collection   = flag.String("collection", "", "collection name (default per provider)")
		forceRebuild = flag.Bool("force-rebuild", false, "delete and rebuild the collection")
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

	provider, defaultCollection, err := buildProvider(cfg, *providerName)
	if err != nil {
		log.Error("provider setup failed", "error", err)
		os.Exit(1)
	}
	if *collection == "" {
		*collection = defaultCollection
	}

	data, err := os.ReadFile(*dataFile)
	if err != nil {
		log.Error("read batch file failed", "file", *dataFile, "error", err)
		os.Exit(1)
	}
	raws, err := domain.DecodeBatch(data)
	if err != nil {
		log.Error("decode batch failed", "file", *dataFile, "error", err)
		os.Exit(1)
	}
	log.Info("loaded batch", "file", *dataFile, "courses", len(raws))

	store, err := semantic.New(cfg.QdrantAddr)
	if err != nil {
		log.Error("qdrant connect failed", "addr", cfg.QdrantAddr, "error", err)
		os.Exit(1)
	}
	defer store.Close()

	report, err := ingest.Ingest(ctx, raws, ingest.Deps{
		Provider: embed.Resilient(provider, embed.DefaultResilientOpts()),
		Store:    store,
		Logger:   log,
	}, ingest.Options{
		Collection:   *collection,
		ForceRebuild: *forceRebuild,
	})
	if err != nil {
		log.Error("ingestion failed", "error", err)
		os.Exit(1)
	}

	log.Info("ingestion complete",
		"collection", report.Collection,
		"total", report.Total,
		"existing", report.Existing,
		"inserted", report.Inserted,
		"skipped", report.Skipped,
		"rebuilt", report.Rebuilt,
		"elapsed", report.Elapsed)
}

// buildProvider wires the named embedding provider and its default
// collection from config.
func buildProvider(cfg *config.Config, name string) (embed.Provider, string, error) {
	switch name {
	case "ollama":
		return embed.NewOllama(cfg.OllamaURL, cfg.OllamaModel, cfg.OllamaDims, 0), cfg.Collection, nil
	case "openai":
		if cfg.OpenAIAPIKey == "" {
			return nil, "", fmt.Errorf("OPENAI_API_KEY is required for the openai provider")
		}
		return embed.NewOpenAI("", cfg.OpenAIAPIKey, cfg.OpenAIModel, 0), cfg.OpenAICollection, nil
	default:
		return nil, "", fmt.Errorf("unknown provider %q", name)
	}
}
