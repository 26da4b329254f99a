package aggregate

import (
	"context"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"dollartracker/internal/metrics"
	"dollartracker/internal/provider"
	"dollartracker/internal/status"
	"dollartracker/internal/synthetic"
)

const (
	BaseCurrency  = "USD"
	QuoteCurrency = "BOB"
	// SyntheticSource labels a snapshot built without upstream data.
	SyntheticSource = "Mock Data"
)

// BestPrice names the quote that holds an extreme price.
type BestPrice struct {
	Exchange provider.SourceID `json:"exchange"`
	Price    float64           `json:"price"`
}

// Snapshot is the merged view of every upstream at one instant.
type Snapshot struct {
	Timestamp     time.Time        `json:"timestamp"`
	BaseCurrency  string           `json:"base_currency"`
	QuoteCurrency string           `json:"quote_currency"`
	Prices        []provider.Quote `json:"prices"`
	Average       float64          `json:"average"`
	BestBuy       BestPrice        `json:"best_buy"`
	BestSell      BestPrice        `json:"best_sell"`
	Source        string           `json:"source"`
	Synthetic     bool             `json:"synthetic"`
}

// ChangeLookup fills change_24h from stored history.
type ChangeLookup interface {
	Change24h(ctx context.Context, exchange provider.SourceID, last float64) (float64, bool)
}

type Options struct {
	Sides   []provider.SideFetcher
	Quotes  []provider.QuoteFetcher
	Batches []provider.BatchFetcher
	Tracker *status.Tracker
	Change  ChangeLookup
	Logger  *zap.Logger
	Now     func() time.Time
}

// Aggregator fans out to every upstream and merges the answers.
type Aggregator struct {
	sides   []provider.SideFetcher
	quotes  []provider.QuoteFetcher
	batches []provider.BatchFetcher
	tracker *status.Tracker
	change  ChangeLookup
	log     *zap.Logger
	now     func() time.Time
}

func New(opts Options) *Aggregator {
	a := &Aggregator{
		sides:   opts.Sides,
		quotes:  opts.Quotes,
		batches: opts.Batches,
		tracker: opts.Tracker,
		change:  opts.Change,
		log:     opts.Logger,
		now:     opts.Now,
	}
	if a.log == nil {
		a.log = zap.NewNop()
	}
	if a.now == nil {
		a.now = time.Now
	}
	if a.tracker == nil {
		a.tracker = status.New(nil)
	}
	return a
}

type sideResult struct {
	price float64
	err   error
}

type quoteResult struct {
	quote provider.Quote
	err   error
}

type batchResult struct {
	quotes []provider.Quote
	err    error
}

// Snapshot runs one fetch cycle. It never fails: upstream failures are
// logged and recorded on the tracker, and a cycle with no usable quote
// yields the placeholder snapshot.
func (a *Aggregator) Snapshot(ctx context.Context) *Snapshot {
	started := time.Now()
	defer func() { metrics.RecordAggregation(time.Since(started)) }()

	asks := make([]sideResult, len(a.sides))
	bids := make([]sideResult, len(a.sides))
	singles := make([]quoteResult, len(a.quotes))
	batches := make([]batchResult, len(a.batches))

	// Workers never return an error, so one failure cannot cancel siblings.
	var g errgroup.Group
	for i, f := range a.sides {
		g.Go(func() error {
			asks[i] = a.fetchSide(ctx, f, provider.SideBuy)
			return nil
		})
		g.Go(func() error {
			bids[i] = a.fetchSide(ctx, f, provider.SideSell)
			return nil
		})
	}
	for i, f := range a.quotes {
		g.Go(func() error {
			t0 := time.Now()
			q, err := f.FetchQuote(ctx)
			metrics.RecordFetch(string(f.ID()), err == nil, time.Since(t0))
			singles[i] = quoteResult{quote: q, err: err}
			return nil
		})
	}
	for i, f := range a.batches {
		g.Go(func() error {
			t0 := time.Now()
			qs, err := f.FetchBatch(ctx)
			metrics.RecordFetch(string(f.ID()), err == nil, time.Since(t0))
			batches[i] = batchResult{quotes: qs, err: err}
			return nil
		})
	}
	_ = g.Wait()

	now := a.now().UTC()
	var prices []provider.Quote
	var active []string

	for i, f := range a.sides {
		ask, bid := asks[i], bids[i]
		if ask.err != nil || bid.err != nil {
			a.fail(f.ID(), firstErr(ask.err, bid.err))
			continue
		}
		a.tracker.Mark(f.ID(), status.Active)
		prices = append(prices, provider.TwoSided(f.ID(), f.Name(), ask.price, bid.price, now))
		active = append(active, f.Name())
	}
	for i, f := range a.quotes {
		if singles[i].err != nil {
			a.fail(f.ID(), singles[i].err)
			continue
		}
		a.tracker.Mark(f.ID(), status.Active)
		prices = append(prices, singles[i].quote)
		active = append(active, f.Name())
	}
	for i, f := range a.batches {
		if batches[i].err != nil {
			a.fail(f.ID(), batches[i].err)
			continue
		}
		a.tracker.Mark(f.ID(), status.Active)
		prices = append(prices, batches[i].quotes...)
		active = append(active, f.Name())
	}

	if len(prices) == 0 {
		a.log.Warn("no upstream produced a quote, serving placeholder")
		return Placeholder(now)
	}

	if a.change != nil {
		for i, q := range prices {
			if pct, ok := a.change.Change24h(ctx, q.Exchange, q.Last); ok {
				prices[i] = q.WithChange(pct)
			}
		}
	}

	return Merge(prices, strings.Join(active, " + "), now)
}

func (a *Aggregator) fetchSide(ctx context.Context, f provider.SideFetcher, side provider.Side) sideResult {
	t0 := time.Now()
	v, err := f.FetchSide(ctx, side)
	metrics.RecordFetch(string(f.ID()), err == nil, time.Since(t0))
	return sideResult{price: v, err: err}
}

func (a *Aggregator) fail(id provider.SourceID, err error) {
	a.tracker.Mark(id, status.Error)
	a.log.Warn("source failed", zap.String("source", string(id)), zap.Error(err))
}

func firstErr(errs ...error) error {
	for _, err := range errs {
		if err != nil {
			return err
		}
	}
	return nil
}

// Merge computes the derived fields over a non-empty quote sequence.
// Ties on best prices go to the earliest quote.
func Merge(prices []provider.Quote, source string, at time.Time) *Snapshot {
	sum := 0.0
	buy := BestPrice{Exchange: prices[0].Exchange, Price: prices[0].Bid}
	sell := BestPrice{Exchange: prices[0].Exchange, Price: prices[0].Ask}
	for _, q := range prices {
		sum += q.Last
		if q.Bid < buy.Price {
			buy = BestPrice{Exchange: q.Exchange, Price: q.Bid}
		}
		if q.Ask > sell.Price {
			sell = BestPrice{Exchange: q.Exchange, Price: q.Ask}
		}
	}
	return &Snapshot{
		Timestamp:     at,
		BaseCurrency:  BaseCurrency,
		QuoteCurrency: QuoteCurrency,
		Prices:        prices,
		Average:       provider.Round(sum/float64(len(prices)), 4),
		BestBuy:       buy,
		BestSell:      sell,
		Source:        source,
	}
}

// Placeholder is the snapshot served when no upstream answered.
func Placeholder(at time.Time) *Snapshot {
	s := Merge([]provider.Quote{synthetic.Placeholder(at)}, SyntheticSource, at)
	s.Synthetic = true
	return s
}
