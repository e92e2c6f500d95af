// Command compare runs the same question against the local-model and the
// OpenAI collections side by side. Results can be cached to a sqlite database
// so repeated comparisons skip the embedding calls.
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
	"github.com/coursebot/coursebot/pkg/sqlcache"
)

func main() {
	var (
		query = flag.String("query", "我想提升健康與體態", "question to compare")
		topK  = flag.Int("k", 3, "results per collection")
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
	if cfg.OpenAIAPIKey == "" {
		log.Error("OPENAI_API_KEY is required")
		os.Exit(1)
	}

	store, err := semantic.New(cfg.QdrantAddr)
	if err != nil {
		log.Error("qdrant connect failed", "addr", cfg.QdrantAddr, "error", err)
		os.Exit(1)
	}
	defer store.Close()

	opts := recommend.DefaultOptions()
	opts.TopK = *topK

	local := recommend.New(
		embed.NewOllama(cfg.OllamaURL, cfg.OllamaModel, cfg.OllamaDims, 0),
		store, cfg.Collection, opts, log)
	remote := recommend.New(
		embed.NewOpenAI("", cfg.OpenAIAPIKey, cfg.OpenAIModel, 0),
		store, cfg.OpenAICollection, opts, log)

	// The cache is keyed by query text alone, so only the local service
	// shares it with the bot; caching both would mix embedding spaces.
	if cfg.CacheDB != "" {
		cache, err := sqlcache.Open(cfg.CacheDB)
		if err != nil {
			log.Error("open query cache failed", "path", cfg.CacheDB, "error", err)
			os.Exit(1)
		}
		defer cache.Close()
		local = local.WithCache(recommend.NewKVCache(cache))
	}

	fmt.Printf("查詢語句：%s\n", *query)

	fmt.Printf("\nA. 本地模型（collection: %s）：\n", cfg.Collection)
	report(ctx, local, *query, log)

	fmt.Printf("\nB. OpenAI embedding（collection: %s）：\n", cfg.OpenAICollection)
	report(ctx, remote, *query, log)
}

func report(ctx context.Context, svc *recommend.Service, query string, log *slog.Logger) {
	results, err := svc.Recommend(ctx, query)
	if err != nil {
		log.Error("query failed", "error", err)
		return
	}
	for _, r := range results {
		fmt.Printf("- %s | 講師: %s | 分類: %s\n", r.Course, r.Teacher, r.Category)
		fmt.Printf("  課程連結: %s\n", r.Link)
		fmt.Printf("  相似距離: %.1f\n", r.Distance)
	}
}
