// Package recommend answers one natural-language question with a ranked set
// of courses: strip the trigger phrase, embed the question, run a
// nearest-neighbor query, and map the hits into a presentation-neutral shape.
package recommend

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"strings"
	"time"

	"github.com/coursebot/coursebot/engine/domain"
	"github.com/coursebot/coursebot/engine/embed"
	"github.com/coursebot/coursebot/engine/semantic"
)

// TriggerPhrases are the leading command markers meaning "please recommend".
// They are stripped before embedding and never themselves embedded.
var TriggerPhrases = []string{"請推薦", "Please recommand"}

// RankedResult is one recommendation, ordered by ascending distance. Rating,
// price, and distance are numeric regardless of how upstream data typed them;
// distance is rounded to one decimal place for display.
type RankedResult struct {
	Course   string  `json:"course"`
	Teacher  string  `json:"teacher"`
	Category string  `json:"category"`
	Link     string  `json:"link"`
	Rating   float64 `json:"rating"`
	Duration string  `json:"duration"`
	Price    float64 `json:"price"`
	Image    string  `json:"image"`
	Distance float64 `json:"distance"`
}

// Searcher abstracts the vector store's query surface,
// satisfied by *semantic.VectorStore.
type Searcher interface {
	Query(ctx context.Context, name string, vector []float32, k int) ([]semantic.Hit, error)
}

// Cache fronts the service with a write-once-per-key result cache keyed by
// exact query text. Optional; a nil cache disables it.
type Cache interface {
	Get(ctx context.Context, query string) ([]RankedResult, bool, error)
	Put(ctx context.Context, query string, results []RankedResult) error
}

// Options configures the retrieval service.
type Options struct {
	TopK          int
	SearchTimeout time.Duration
}

// DefaultOptions returns sensible defaults.
func DefaultOptions() Options {
	return Options{
		TopK:          3,
		SearchTimeout: 10 * time.Second,
	}
}

// Service is the retrieval orchestration service. It is provider-agnostic:
// the collection it queries must have been built with the same provider.
type Service struct {
	provider   embed.Provider
	search     Searcher
	collection string
	cache      Cache
	opts       Options
	logger     *slog.Logger
}

// New creates a retrieval service over one collection.
func New(provider embed.Provider, search Searcher, collection string, opts Options, logger *slog.Logger) *Service {
	if opts.TopK <= 0 {
		opts.TopK = DefaultOptions().TopK
	}
	if opts.SearchTimeout <= 0 {
		opts.SearchTimeout = DefaultOptions().SearchTimeout
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		provider:   provider,
		search:     search,
		collection: collection,
		opts:       opts,
		logger:     logger,
	}
}

// WithCache attaches an optional result cache.
func (s *Service) WithCache(c Cache) *Service {
	s.cache = c
	return s
}

// HasTrigger reports whether text starts with a trigger phrase.
func HasTrigger(text string) bool {
	text = strings.TrimSpace(text)
	for _, phrase := range TriggerPhrases {
		if strings.HasPrefix(text, phrase) {
			return true
		}
	}
	return false
}

// StripTrigger removes a leading trigger phrase and surrounding whitespace.
func StripTrigger(text string) string {
	text = strings.TrimSpace(text)
	for _, phrase := range TriggerPhrases {
		if strings.HasPrefix(text, phrase) {
			return strings.TrimSpace(strings.TrimPrefix(text, phrase))
		}
	}
	return text
}

// Recommend answers one question. The result set holds at most TopK items in
// ascending-distance order; fewer when the collection is small, and never
// padded. A question that reduces to nothing after trigger stripping fails
// with domain.ErrEmptyQuery.
func (s *Service) Recommend(ctx context.Context, question string) ([]RankedResult, error) {
	query := StripTrigger(question)
	if query == "" {
		return nil, fmt.Errorf("recommend: %w", domain.ErrEmptyQuery)
	}

	if s.cache != nil {
		if results, ok, err := s.cache.Get(ctx, query); err != nil {
			s.logger.Warn("recommend: cache read failed, continuing without", "error", err)
		} else if ok {
			s.logger.Info("recommend: cache hit", "query_len", len(query))
			return results, nil
		}
	}

	vector, err := s.provider.Embed(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("recommend: embed query: %w", err)
	}

	searchCtx, cancel := context.WithTimeout(ctx, s.opts.SearchTimeout)
	defer cancel()

	hits, err := s.search.Query(searchCtx, s.collection, vector, s.opts.TopK)
	if err != nil {
		return nil, fmt.Errorf("recommend: search: %w", err)
	}
	s.logger.Info("recommend: search done", "collection", s.collection, "hits", len(hits))

	results := make([]RankedResult, len(hits))
	for i, h := range hits {
		results[i] = fromHit(h)
	}

	if s.cache != nil {
		if err := s.cache.Put(ctx, query, results); err != nil {
			s.logger.Warn("recommend: cache write failed", "error", err)
		}
	}
	return results, nil
}

// fromHit maps a store hit into a ranked result, coercing numeric fields.
func fromHit(h semantic.Hit) RankedResult {
	return RankedResult{
		Course:   h.Meta.Title,
		Teacher:  h.Meta.Teacher,
		Category: h.Meta.Category,
		Link:     h.Meta.Link,
		Rating:   h.Meta.Rating,
		Duration: h.Meta.Duration,
		Price:    h.Meta.Price,
		Image:    h.Meta.Image,
		Distance: math.Round(h.Distance*10) / 10,
	}
}
