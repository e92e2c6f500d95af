// Command bot runs the LINE webhook server. Incoming text messages carrying a
// trigger phrase are answered with a carousel of recommended courses.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/coursebot/coursebot/engine/domain"
	"github.com/coursebot/coursebot/engine/embed"
	"github.com/coursebot/coursebot/engine/recommend"
	"github.com/coursebot/coursebot/engine/render"
	"github.com/coursebot/coursebot/engine/semantic"
	"github.com/coursebot/coursebot/pkg/config"
	"github.com/coursebot/coursebot/pkg/line"
	"github.com/coursebot/coursebot/pkg/metrics"
	"github.com/coursebot/coursebot/pkg/mid"
	"github.com/coursebot/coursebot/pkg/sqlcache"
)

const (
	helpCommand = "功能"
	helpReply   = "請輸入你遇到的困難，我可以幫你做課程推薦，提問格式如下:\n請推薦 __你的問題__"
	formatReply = "輸入格式不符，格式如下\n請推薦 __你的問題__"
	errorReply  = "推薦服務暫時無法使用，請稍後再試"
	altText     = "推薦課程"
)

var met = metrics.New()

var (
	mEventsTotal    = met.Counter("coursebot_webhook_events_total", "Webhook events received")
	mRecommendTotal = met.Counter("coursebot_recommendations_total", "Recommendations served")
	mErrorsTotal    = met.Counter("coursebot_recommendation_errors_total", "Failed recommendations")
	mRecommendDur   = met.Histogram("coursebot_recommendation_duration_seconds", "Recommendation latency", nil)
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	slog.SetDefault(logger)

	var (
		port         = flag.String("port", "8080", "HTTP listen port")
		metricsPort  = flag.Int("metrics-port", 9090, "metrics listen port")
		providerName = flag.String("provider", "ollama", "embedding provider: ollama or openai")
	)
	flag.Parse()

	if err := run(*port, *metricsPort, *providerName, logger); err != nil {
		logger.Error("server exited with error", "err", err)
		os.Exit(1)
	}
}

func run(port string, metricsPort int, providerName string, logger *slog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load()
	if err != nil {
		return err
	}
	if cfg.ChannelAccessToken == "" || cfg.ChannelSecret == "" {
		return fmt.Errorf("CHANNEL_ACCESS_TOKEN and CHANNEL_SECRET are required")
	}

	var provider embed.Provider
	collection := cfg.Collection
	switch providerName {
	case "ollama":
		provider = embed.NewOllama(cfg.OllamaURL, cfg.OllamaModel, cfg.OllamaDims, 0)
	case "openai":
		if cfg.OpenAIAPIKey == "" {
			return fmt.Errorf("OPENAI_API_KEY is required for the openai provider")
		}
		provider = embed.NewOpenAI("", cfg.OpenAIAPIKey, cfg.OpenAIModel, 0)
		collection = cfg.OpenAICollection
	default:
		return fmt.Errorf("unknown provider %q", providerName)
	}

	store, err := semantic.New(cfg.QdrantAddr)
	if err != nil {
		return fmt.Errorf("qdrant connect: %w", err)
	}
	defer store.Close()

	svc := recommend.New(
		embed.Resilient(provider, embed.DefaultResilientOpts()),
		store,
		collection,
		recommend.DefaultOptions(),
		logger,
	)

	if cfg.CacheDB != "" {
		cache, err := sqlcache.Open(cfg.CacheDB)
		if err != nil {
			return fmt.Errorf("open query cache: %w", err)
		}
		defer cache.Close()
		svc = svc.WithCache(recommend.NewKVCache(cache))
		logger.Info("query cache enabled", "path", cfg.CacheDB)
	}

	bot := line.NewClient(cfg.ChannelAccessToken)

	met.ServeAsync(metricsPort)

	mux := http.NewServeMux()
	mux.HandleFunc("GET /health", handleHealth)
	mux.HandleFunc("POST /callback", handleCallback(cfg.ChannelSecret, bot, svc, logger))

	handler := mid.Chain(mux,
		mid.Recover(logger),
		mid.Logger(logger),
		mid.Traced("webhook"),
	)

	srv := &http.Server{
		Addr:         ":" + port,
		Handler:      handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("bot server starting", "port", port, "provider", providerName, "collection", collection)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if err != nil && err != http.ErrServerClosed {
			return err
		}
	case <-ctx.Done():
		logger.Info("shutdown signal received")
	}

	shutCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(shutCtx)
}

func handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.Write([]byte(`{"status":"ok"}`))
}

func handleCallback(channelSecret string, bot *line.Client, svc *recommend.Service, logger *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		body, err := io.ReadAll(r.Body)
		if err != nil {
			http.Error(w, "read body failed", http.StatusBadRequest)
			return
		}

		events, err := line.ParseWebhook(channelSecret, body, r.Header.Get("X-Line-Signature"))
		if err != nil {
			if errors.Is(err, line.ErrInvalidSignature) {
				logger.Warn("invalid webhook signature")
				http.Error(w, "invalid signature", http.StatusBadRequest)
				return
			}
			http.Error(w, "bad webhook body", http.StatusBadRequest)
			return
		}

		for _, ev := range events {
			if !ev.IsText() {
				continue
			}
			mEventsTotal.Inc()
			handleText(r.Context(), ev, bot, svc, logger)
		}
		w.Write([]byte("OK"))
	}
}

// handleText answers one text message. Reply failures are logged, not
// surfaced; LINE retries the whole webhook delivery on non-200 and that
// would duplicate replies for the other events in the batch.
func handleText(ctx context.Context, ev line.Event, bot *line.Client, svc *recommend.Service, logger *slog.Logger) {
	text := strings.TrimSpace(ev.Message.Text)

	var msg line.Message
	switch {
	case text == helpCommand:
		msg = line.TextMessage(helpReply)

	case recommend.HasTrigger(text):
		start := time.Now()
		results, err := svc.Recommend(ctx, text)
		mRecommendDur.Since(start)
		switch {
		case errors.Is(err, domain.ErrEmptyQuery):
			msg = line.TextMessage(formatReply)
		case err != nil:
			mErrorsTotal.Inc()
			logger.Error("recommendation failed", "err", err)
			msg = line.TextMessage(errorReply)
		default:
			mRecommendTotal.Inc()
			msg = line.FlexMessage(altText, render.Carousel(results))
		}

	default:
		msg = line.TextMessage(formatReply)
	}

	if err := bot.Reply(ctx, ev.ReplyToken, msg); err != nil {
		logger.Error("reply failed", "err", err)
	}
}
