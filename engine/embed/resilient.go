package embed

import (
	"context"
	"time"

	"github.com/coursebot/coursebot/engine/domain"
	"github.com/coursebot/coursebot/pkg/fn"
	"github.com/coursebot/coursebot/pkg/resilience"
)

// ResilientOpts tunes the retry, breaker, and rate-limit behaviour of a
// wrapped provider.
type ResilientOpts struct {
	Retry   fn.RetryOpts
	Breaker resilience.BreakerOpts
	// Rate is embed calls per second admitted to the underlying provider.
	// Zero disables rate limiting.
	Rate  float64
	Burst int
}

// DefaultResilientOpts gives one retry with backoff for transient failures
// and a conservative breaker.
func DefaultResilientOpts() ResilientOpts {
	return ResilientOpts{
		Retry: fn.RetryOpts{
			MaxAttempts: 2,
			InitialWait: 500 * time.Millisecond,
			MaxWait:     5 * time.Second,
			Jitter:      true,
			RetryIf:     domain.Retryable,
		},
		Breaker: resilience.DefaultBreakerOpts,
	}
}

// ResilientProvider decorates a Provider with retry-with-backoff, a circuit
// breaker, and optional rate limiting. Only transient failures
// (domain.ErrProviderUnavailable) are retried; invalid input and dimension
// mismatches surface immediately.
type ResilientProvider struct {
	inner   Provider
	opts    ResilientOpts
	breaker *resilience.Breaker
	limiter *resilience.Limiter
}

// Resilient wraps provider with the given options.
func Resilient(provider Provider, opts ResilientOpts) *ResilientProvider {
	if opts.Retry.RetryIf == nil {
		opts.Retry.RetryIf = domain.Retryable
	}
	p := &ResilientProvider{
		inner:   provider,
		opts:    opts,
		breaker: resilience.NewBreaker(opts.Breaker),
	}
	if opts.Rate > 0 {
		p.limiter = resilience.NewLimiter(resilience.LimiterOpts{Rate: opts.Rate, Burst: opts.Burst})
	}
	return p
}

func (p *ResilientProvider) call(ctx context.Context, f func(context.Context) ([][]float32, error)) ([][]float32, error) {
	result := fn.Retry(ctx, p.opts.Retry, func(ctx context.Context) fn.Result[[][]float32] {
		if p.limiter != nil {
			if err := p.limiter.Wait(ctx); err != nil {
				return fn.Err[[][]float32](err)
			}
		}
		return resilience.CallResult(p.breaker, ctx, func(ctx context.Context) fn.Result[[][]float32] {
			return fn.FromPair(f(ctx))
		})
	})
	return result.Unwrap()
}

// Embed implements Provider.
func (p *ResilientProvider) Embed(ctx context.Context, text string) ([]float32, error) {
	vecs, err := p.call(ctx, func(ctx context.Context) ([][]float32, error) {
		vec, err := p.inner.Embed(ctx, text)
		if err != nil {
			return nil, err
		}
		return [][]float32{vec}, nil
	})
	if err != nil {
		return nil, err
	}
	return vecs[0], nil
}

// EmbedBatch implements Provider.
func (p *ResilientProvider) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	return p.call(ctx, func(ctx context.Context) ([][]float32, error) {
		return p.inner.EmbedBatch(ctx, texts)
	})
}

// Dimensions implements Provider.
func (p *ResilientProvider) Dimensions() int { return p.inner.Dimensions() }

// Name implements Provider.
func (p *ResilientProvider) Name() string { return p.inner.Name() }
