package dolarapi

import (
	"context"
	"net/http"
	"strings"
	"time"

	"dollartracker/internal/httpx"
	"dollartracker/internal/provider"
)

const (
	DefaultURL   = "https://bo.dolarapi.com/v1"
	CanonicalURL = "https://bo.dolarapi.com"
)

type Config struct {
	Name    string
	URL     string
	Timeout time.Duration
}

// Provider reads every dollar "house" DolarAPI publishes for Bolivia and
// returns one quote per house.
type Provider struct {
	cfg    Config
	client provider.Doer
	now    func() time.Time
}

func New(cfg Config, hc provider.Doer) *Provider {
	if cfg.Name == "" {
		cfg.Name = "DolarAPI"
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

func (p *Provider) ID() provider.SourceID { return provider.DolarAPI }
func (p *Provider) Name() string          { return p.cfg.Name }

type house struct {
	Casa      string   `json:"casa"`
	Nombre    string   `json:"nombre"`
	Compra    *float64 `json:"compra"`
	Venta     *float64 `json:"venta"`
	UpdatedAt string   `json:"fechaActualizacion"`
}

// FetchBatch returns quotes keyed dolarapi_<casa>. The house buys at compra
// and sells at venta, so compra is the bid.
func (p *Provider) FetchBatch(ctx context.Context) ([]provider.Quote, error) {
	ctx, cancel := context.WithTimeout(ctx, p.cfg.Timeout)
	defer cancel()

	url := p.cfg.URL + "/dolares"
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, http.NoBody)
	if err != nil {
		return nil, provider.Transport(provider.DolarAPI, "", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := p.client.Do(ctx, req)
	if err != nil {
		return nil, provider.Transport(provider.DolarAPI, "", err)
	}
	defer resp.Body.Close()
	if !httpx.OK(resp) {
		return nil, provider.Status(provider.DolarAPI, "", http.MethodGet, url, resp.StatusCode, httpx.Snippet(resp))
	}

	var houses []house
	if err := httpx.DecodeJSON(resp, &houses); err != nil {
		return nil, provider.Malformed(provider.DolarAPI, "", err)
	}

	fetched := p.now().UTC()
	out := make([]provider.Quote, 0, len(houses))
	for _, h := range houses {
		casa := strings.ToLower(strings.TrimSpace(h.Casa))
		if casa == "" || h.Compra == nil || h.Venta == nil || *h.Compra <= 0 || *h.Venta <= 0 {
			continue
		}
		name := h.Nombre
		if name == "" {
			name = casa
		}
		at := fetched
		if t, err := time.Parse(time.RFC3339, h.UpdatedAt); err == nil {
			at = t.UTC()
		}
		bid := provider.Round(*h.Compra, 2)
		ask := provider.Round(*h.Venta, 2)
		out = append(out, provider.Quote{
			Exchange:  provider.SourceID("dolarapi_" + casa),
			Name:      "DolarAPI " + name,
			Bid:       bid,
			Ask:       ask,
			Last:      provider.Round((bid+ask)/2, 2),
			UpdatedAt: at,
		})
	}
	if len(out) == 0 {
		return nil, provider.Malformed(provider.DolarAPI, "", provider.ErrNoOffers)
	}
	return out, nil
}
