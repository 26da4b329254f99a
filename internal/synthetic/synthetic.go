// Package synthetic produces stand-in data: the placeholder quote served
// when every upstream fails and a random-walk history used until a real
// series is available.
package synthetic

import (
	"context"
	"math"
	"math/rand/v2"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"dollartracker/internal/provider"
	"dollartracker/internal/stats"
)

const (
	basePrice = 6.96
	sigma     = 0.02
	maxWick   = 0.01
	minVolume = 10_000
	maxVolume = 100_000
)

// Placeholder is the single quote of a snapshot built without upstream data.
func Placeholder(at time.Time) provider.Quote {
	vol := 1_200_000.0
	return provider.Quote{
		Exchange:  provider.Binance,
		Name:      "Binance",
		Bid:       6.95,
		Ask:       6.98,
		Last:      6.97,
		Change24h: 0.01,
		Volume24h: &vol,
		UpdatedAt: at.UTC(),
	}
}

// Provider generates a random-walk series. It satisfies stats.PointSource.
type Provider struct {
	mu  sync.Mutex
	rng *rand.Rand
	now func() time.Time
}

// New seeds the walk. Equal seeds give equal series for equal clocks.
func New(seed uint64, now func() time.Time) *Provider {
	if now == nil {
		now = time.Now
	}
	return &Provider{rng: rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15)), now: now}
}

// shape keeps the long windows at 30 daily points.
func shape(w stats.Window) (int, time.Duration) {
	if w.Resolution >= 24*time.Hour {
		return 30, 24 * time.Hour
	}
	return w.Buckets(), w.Resolution
}

func round4(v float64) float64 {
	f, _ := decimal.NewFromFloat(v).Round(4).Float64()
	return f
}

func (p *Provider) Points(_ context.Context, w stats.Window, _ string) ([]stats.Point, error) {
	n, step := shape(w)
	now := p.now().UTC()

	p.mu.Lock()
	defer p.mu.Unlock()

	out := make([]stats.Point, 0, n)
	price := basePrice
	for i := n; i > 0; i-- {
		open := price + p.rng.NormFloat64()*sigma
		closing := open + p.rng.NormFloat64()*sigma/2
		high := math.Max(open, closing) + p.rng.Float64()*maxWick
		low := math.Min(open, closing) - p.rng.Float64()*maxWick
		vol := float64(minVolume + p.rng.IntN(maxVolume-minVolume+1))
		out = append(out, stats.Point{
			Timestamp: now.Add(-step * time.Duration(i)),
			Open:      round4(open),
			High:      round4(high),
			Low:       round4(low),
			Close:     round4(closing),
			Volume:    &vol,
		})
		price = closing
	}
	return out, nil
}
