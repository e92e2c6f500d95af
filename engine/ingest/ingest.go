// Package ingest builds and updates a vector collection from a batch of raw
// course records: normalize, compute the insert delta, embed, upsert. The
// pipeline is idempotent over an unchanged batch and parameterized over the
// embedding provider, so one pipeline serves both the local-model and the
// remote-API collections.
package ingest

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/coursebot/coursebot/engine/domain"
	"github.com/coursebot/coursebot/engine/embed"
	"github.com/coursebot/coursebot/engine/semantic"
	"github.com/coursebot/coursebot/pkg/fn"
)

// EmbedBatchSize caps the number of documents per embedding request.
const EmbedBatchSize = 100

// Store is the collection surface the pipeline writes through,
// satisfied by *semantic.VectorStore.
type Store interface {
	Exists(ctx context.Context, name string) (bool, error)
	EnsureCollection(ctx context.Context, name string, dims int) error
	DeleteCollection(ctx context.Context, name string) error
	Dims(ctx context.Context, name string) (int, error)
	ExistingIDs(ctx context.Context, name string) (map[string]struct{}, error)
	Upsert(ctx context.Context, name string, records []semantic.Record) error
}

// Deps holds the external dependencies of the pipeline.
type Deps struct {
	Provider embed.Provider
	Store    Store
	Logger   *slog.Logger
}

// Options configures one ingestion run.
type Options struct {
	Collection string
	// ForceRebuild deletes an existing collection first, so the run ends
	// with exactly the current batch's ids. Stale records are discarded,
	// never merged.
	ForceRebuild bool
}

// Report summarizes one ingestion run.
type Report struct {
	Collection string
	Total      int
	Existing   int
	Inserted   int
	Skipped    int
	Rebuilt    bool
	Elapsed    time.Duration
}

// state threads the batch through the pipeline stages.
type state struct {
	raws   []domain.RawCourse
	docs   []domain.CourseDoc
	delta  []domain.CourseDoc
	vecs   [][]float32
	report *Report
}

// Ingest runs the full pipeline for one raw-record batch. Any normalization
// failure aborts the batch before a single write happens; a second run over
// an unchanged batch inserts nothing.
func Ingest(ctx context.Context, raws []domain.RawCourse, deps Deps, opts Options) (*Report, error) {
	log := deps.Logger
	if log == nil {
		log = slog.Default()
	}

	start := time.Now()
	pipeline := fn.Pipeline(
		loggedStage("normalize", log, normalizeStage),
		loggedStage("prepare", log, prepareStage(deps, opts)),
		loggedStage("delta", log, deltaStage(deps, opts)),
		loggedStage("embed", log, embedStage(deps)),
		loggedStage("store", log, storeStage(deps, opts)),
	)

	result := pipeline(ctx, &state{
		raws:   raws,
		report: &Report{Collection: opts.Collection, Total: len(raws)},
	})
	st, err := result.Unwrap()
	if err != nil {
		return nil, err
	}

	st.report.Elapsed = time.Since(start)
	log.Info("ingest: done",
		"collection", st.report.Collection,
		"total", st.report.Total,
		"inserted", st.report.Inserted,
		"skipped", st.report.Skipped,
		"rebuilt", st.report.Rebuilt,
		"elapsed", st.report.Elapsed,
	)
	return st.report, nil
}

// loggedStage wraps a stage with entry/exit logging and an OTel span.
func loggedStage(name string, log *slog.Logger, stage fn.Stage[*state, *state]) fn.Stage[*state, *state] {
	traced := fn.TracedStage("ingest."+name, stage)
	return func(ctx context.Context, st *state) fn.Result[*state] {
		log.Debug("stage.enter", "stage", name)
		start := time.Now()
		defer func() {
			log.Debug("stage.exit", "stage", name, "duration", time.Since(start))
		}()
		return traced(ctx, st)
	}
}

// normalizeStage derives embedding documents from the raw batch.
var normalizeStage fn.Stage[*state, *state] = func(_ context.Context, st *state) fn.Result[*state] {
	docs, err := NormalizeBatch(st.raws)
	if err != nil {
		return fn.Err[*state](err)
	}
	st.docs = docs
	return fn.Ok(st)
}

// prepareStage rebuilds the collection if forced, ensures it exists, and
// fails fast on a provider/collection dimensionality mismatch.
func prepareStage(deps Deps, opts Options) fn.Stage[*state, *state] {
	return func(ctx context.Context, st *state) fn.Result[*state] {
		if opts.ForceRebuild {
			exists, err := deps.Store.Exists(ctx, opts.Collection)
			if err != nil {
				return fn.Err[*state](err)
			}
			if exists {
				if err := deps.Store.DeleteCollection(ctx, opts.Collection); err != nil {
					return fn.Err[*state](err)
				}
				st.report.Rebuilt = true
			}
		}

		if err := deps.Store.EnsureCollection(ctx, opts.Collection, deps.Provider.Dimensions()); err != nil {
			return fn.Err[*state](err)
		}

		dims, err := deps.Store.Dims(ctx, opts.Collection)
		if err != nil {
			return fn.Err[*state](err)
		}
		if dims != deps.Provider.Dimensions() {
			return fn.Err[*state](fmt.Errorf("ingest: collection %s: %w",
				opts.Collection, &domain.DimensionMismatchError{Want: dims, Got: deps.Provider.Dimensions()}))
		}
		return fn.Ok(st)
	}
}

// deltaStage keeps only documents whose id is not stored yet.
func deltaStage(deps Deps, opts Options) fn.Stage[*state, *state] {
	return func(ctx context.Context, st *state) fn.Result[*state] {
		existing, err := deps.Store.ExistingIDs(ctx, opts.Collection)
		if err != nil {
			return fn.Err[*state](err)
		}
		st.report.Existing = len(existing)

		st.delta = fn.Filter(st.docs, func(d domain.CourseDoc) bool {
			_, ok := existing[d.ID]
			return !ok
		})
		st.report.Skipped = len(st.docs) - len(st.delta)
		return fn.Ok(st)
	}
}

// embedStage embeds the delta in provider-sized batches. An empty delta is
// not an error; the store stage reports zero insertions.
func embedStage(deps Deps) fn.Stage[*state, *state] {
	return func(ctx context.Context, st *state) fn.Result[*state] {
		if len(st.delta) == 0 {
			return fn.Ok(st)
		}

		texts := fn.Map(st.delta, func(d domain.CourseDoc) string { return d.Text })
		for _, chunk := range fn.Chunk(texts, EmbedBatchSize) {
			vecs, err := deps.Provider.EmbedBatch(ctx, chunk)
			if err != nil {
				return fn.Err[*state](fmt.Errorf("ingest: embed delta: %w", err))
			}
			st.vecs = append(st.vecs, vecs...)
		}
		return fn.Ok(st)
	}
}

// storeStage upserts the embedded delta as a single durable batch.
func storeStage(deps Deps, opts Options) fn.Stage[*state, *state] {
	return func(ctx context.Context, st *state) fn.Result[*state] {
		if len(st.delta) == 0 {
			return fn.Ok(st)
		}
		if len(st.vecs) != len(st.delta) {
			return fn.Errf[*state]("ingest: %d vectors for %d documents", len(st.vecs), len(st.delta))
		}

		records := make([]semantic.Record, len(st.delta))
		for i, doc := range st.delta {
			records[i] = semantic.Record{
				ID:       doc.ID,
				Vector:   st.vecs[i],
				Document: doc.Text,
				Meta:     doc.Meta,
			}
		}
		if err := deps.Store.Upsert(ctx, opts.Collection, records); err != nil {
			return fn.Err[*state](err)
		}
		st.report.Inserted = len(records)
		return fn.Ok(st)
	}
}
