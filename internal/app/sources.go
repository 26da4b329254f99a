package app

import (
	"time"

	"dollartracker/internal/config"
	"dollartracker/internal/httpx"
	"dollartracker/internal/provider"
	"dollartracker/internal/provider/binancep2p"
	"dollartracker/internal/provider/dolarapi"
	"dollartracker/internal/provider/exchangerateapi"
	"dollartracker/internal/provider/okxp2p"
	"dollartracker/internal/provider/ratelimit"
	"dollartracker/internal/status"
)

// Upstreams groups the enabled adapters by call shape. Registry lists them
// in the fixed order binance, okx, dolarapi, exchangerate.
type Upstreams struct {
	Sides    []provider.SideFetcher
	Quotes   []provider.QuoteFetcher
	Batches  []provider.BatchFetcher
	Registry []status.Source
}

// BuildUpstreams creates every enabled adapter behind its own rate limiter.
func BuildUpstreams(cfg config.Sources, hc *httpx.Client) Upstreams {
	if hc == nil {
		hc = httpx.New(10 * time.Second)
	}
	var u Upstreams

	if c := cfg.Binance; c.Enabled {
		p := binancep2p.New(
			binancep2p.WithBaseURL(c.URL),
			binancep2p.WithHTTPClient(hc),
			binancep2p.WithTimeout(c.Timeout),
			binancep2p.WithName(c.Name),
		)
		u.Sides = append(u.Sides, &ratelimit.Sides{P: p, RL: ratelimit.NewLimiter(c.RPM, c.Burst), MaxWait: c.Timeout})
		u.Registry = append(u.Registry, status.Source{ID: p.ID(), Name: p.Name(), URL: binancep2p.CanonicalURL})
	}
	if c := cfg.OKX; c.Enabled {
		p := okxp2p.New(okxp2p.Config{Name: c.Name, URL: c.URL, Timeout: c.Timeout}, hc)
		u.Sides = append(u.Sides, &ratelimit.Sides{P: p, RL: ratelimit.NewLimiter(c.RPM, c.Burst), MaxWait: c.Timeout})
		u.Registry = append(u.Registry, status.Source{ID: p.ID(), Name: p.Name(), URL: okxp2p.CanonicalURL})
	}
	if c := cfg.DolarAPI; c.Enabled {
		p := dolarapi.New(dolarapi.Config{Name: c.Name, URL: c.URL, Timeout: c.Timeout}, hc)
		u.Batches = append(u.Batches, &ratelimit.Batches{P: p, RL: ratelimit.NewLimiter(c.RPM, c.Burst), MaxWait: c.Timeout})
		u.Registry = append(u.Registry, status.Source{ID: p.ID(), Name: p.Name(), URL: dolarapi.CanonicalURL})
	}
	if c := cfg.ExchangeRate; c.Enabled {
		p := exchangerateapi.New(exchangerateapi.Config{Name: c.Name, URL: c.URL, Timeout: c.Timeout}, hc)
		u.Quotes = append(u.Quotes, &ratelimit.Quotes{P: p, RL: ratelimit.NewLimiter(c.RPM, c.Burst), MaxWait: c.Timeout})
		u.Registry = append(u.Registry, status.Source{ID: p.ID(), Name: p.Name(), URL: exchangerateapi.CanonicalURL})
	}
	return u
}
