package ratelimit

import (
	"context"
	"time"

	"golang.org/x/time/rate"

	"dollartracker/internal/provider"
)

// NewLimiter allows rpm calls per minute with the given burst.
// A non-positive rpm means unlimited.
func NewLimiter(rpm, burst int) *rate.Limiter {
	if rpm <= 0 {
		return rate.NewLimiter(rate.Inf, 0)
	}
	if burst <= 0 {
		burst = 1
	}
	return rate.NewLimiter(rate.Limit(float64(rpm)/60), burst)
}

// Sides gates a two-sided upstream. Each side call takes one token, so a
// full quote costs two. MaxWait bounds the wait for a token.
type Sides struct {
	P       provider.SideFetcher
	RL      *rate.Limiter
	MaxWait time.Duration
}

func (s *Sides) ID() provider.SourceID { return s.P.ID() }
func (s *Sides) Name() string          { return s.P.Name() }

func (s *Sides) FetchSide(ctx context.Context, side provider.Side) (float64, error) {
	if err := wait(ctx, s.RL, s.MaxWait); err != nil {
		return 0, provider.Transport(s.P.ID(), side, err)
	}
	return s.P.FetchSide(ctx, side)
}

// Quotes gates a single-call upstream.
type Quotes struct {
	P       provider.QuoteFetcher
	RL      *rate.Limiter
	MaxWait time.Duration
}

func (q *Quotes) ID() provider.SourceID { return q.P.ID() }
func (q *Quotes) Name() string          { return q.P.Name() }

func (q *Quotes) FetchQuote(ctx context.Context) (provider.Quote, error) {
	if err := wait(ctx, q.RL, q.MaxWait); err != nil {
		return provider.Quote{}, provider.Transport(q.P.ID(), "", err)
	}
	return q.P.FetchQuote(ctx)
}

// Batches gates a batch upstream.
type Batches struct {
	P       provider.BatchFetcher
	RL      *rate.Limiter
	MaxWait time.Duration
}

func (b *Batches) ID() provider.SourceID { return b.P.ID() }
func (b *Batches) Name() string          { return b.P.Name() }

func (b *Batches) FetchBatch(ctx context.Context) ([]provider.Quote, error) {
	if err := wait(ctx, b.RL, b.MaxWait); err != nil {
		return nil, provider.Transport(b.P.ID(), "", err)
	}
	return b.P.FetchBatch(ctx)
}

// wait takes a token, giving up after maxWait. The limiter refuses at once
// when the next token lies past the deadline.
func wait(ctx context.Context, rl *rate.Limiter, maxWait time.Duration) error {
	if rl == nil {
		return nil
	}
	if maxWait > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, maxWait)
		defer cancel()
	}
	return rl.Wait(ctx)
}
