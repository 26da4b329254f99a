package exchangerateapi

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"dollartracker/internal/httpx"
	"dollartracker/internal/provider"
)

const (
	DefaultURL   = "https://api.exchangerate-api.com/v4"
	CanonicalURL = "https://www.exchangerate-api.com"
)

type Config struct {
	Name    string
	URL     string
	Timeout time.Duration
}

// Provider reads the official USD/BOB reference rate.
type Provider struct {
	cfg    Config
	client provider.Doer
	now    func() time.Time
}

func New(cfg Config, hc provider.Doer) *Provider {
	if cfg.Name == "" {
		cfg.Name = "ExchangeRate-API"
	}
	if cfg.URL == "" {
		cfg.URL = DefaultURL
	}
	cfg.URL = strings.TrimRight(cfg.URL, "/")
	if cfg.Timeout <= 0 || cfg.Timeout > 10*time.Second {
		cfg.Timeout = 10 * time.Second
	}
	if hc == nil {
		hc = httpx.New(cfg.Timeout)
	}
	return &Provider{cfg: cfg, client: hc, now: time.Now}
}

func (p *Provider) ID() provider.SourceID { return provider.ExchangeRate }
func (p *Provider) Name() string          { return p.cfg.Name }

type latestResponse struct {
	Base  string             `json:"base"`
	Rates map[string]float64 `json:"rates"`
}

// FetchQuote returns a single-rate quote: bid, ask and last all equal BOB per USD.
func (p *Provider) FetchQuote(ctx context.Context) (provider.Quote, error) {
	ctx, cancel := context.WithTimeout(ctx, p.cfg.Timeout)
	defer cancel()

	url := p.cfg.URL + "/latest/USD"
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, http.NoBody)
	if err != nil {
		return provider.Quote{}, provider.Transport(provider.ExchangeRate, "", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := p.client.Do(ctx, req)
	if err != nil {
		return provider.Quote{}, provider.Transport(provider.ExchangeRate, "", err)
	}
	defer resp.Body.Close()
	if !httpx.OK(resp) {
		return provider.Quote{}, provider.Status(provider.ExchangeRate, "", http.MethodGet, url, resp.StatusCode, httpx.Snippet(resp))
	}

	var body latestResponse
	if err := httpx.DecodeJSON(resp, &body); err != nil {
		return provider.Quote{}, provider.Malformed(provider.ExchangeRate, "", err)
	}
	rate, ok := body.Rates["BOB"]
	if !ok || rate <= 0 {
		return provider.Quote{}, provider.Malformed(provider.ExchangeRate, "", fmt.Errorf("rates.BOB missing or not positive"))
	}
	rate = provider.Round(rate, 2)
	return provider.Quote{
		Exchange:  provider.ExchangeRate,
		Name:      p.cfg.Name,
		Bid:       rate,
		Ask:       rate,
		Last:      rate,
		UpdatedAt: p.now().UTC(),
	}, nil
}
