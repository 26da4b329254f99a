package okxp2p

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"dollartracker/internal/httpx"
	"dollartracker/internal/provider"
)

const (
	DefaultURL   = "https://www.okx.com"
	CanonicalURL = "https://www.okx.com/p2p-markets/bob/buy-usdt"
	booksPath    = "/v3/c2c/tradingOrders/books"
)

type Config struct {
	Name    string
	URL     string
	Timeout time.Duration
}

// Provider reads the OKX C2C order book for USDT/BOB.
type Provider struct {
	cfg    Config
	client provider.Doer
}

func New(cfg Config, hc provider.Doer) *Provider {
	if cfg.Name == "" {
		cfg.Name = "OKX P2P"
	}
	if cfg.URL == "" {
		cfg.URL = DefaultURL
	}
	if cfg.Timeout <= 0 || cfg.Timeout > 10*time.Second {
		cfg.Timeout = 10 * time.Second
	}
	if hc == nil {
		hc = httpx.New(cfg.Timeout)
	}
	return &Provider{cfg: cfg, client: hc}
}

func (p *Provider) ID() provider.SourceID { return provider.OKX }
func (p *Provider) Name() string          { return p.cfg.Name }

type booksResponse struct {
	Code int    `json:"code"`
	Msg  string `json:"msg"`
	Data struct {
		Buy  []order `json:"buy"`
		Sell []order `json:"sell"`
	} `json:"data"`
}

type order struct {
	Price string `json:"price"`
}

// bookSide maps a side onto OKX's vocabulary. side=sell lists merchants
// selling USDT, which is what the user buys from (the ask).
func bookSide(side provider.Side) string {
	if side == provider.SideSell {
		return "buy"
	}
	return "sell"
}

// FetchSide returns the average of the top three orders for one side.
func (p *Provider) FetchSide(ctx context.Context, side provider.Side) (float64, error) {
	ctx, cancel := context.WithTimeout(ctx, p.cfg.Timeout)
	defer cancel()

	u, err := url.Parse(p.cfg.URL + booksPath)
	if err != nil {
		return 0, provider.Transport(provider.OKX, side, err)
	}
	q := u.Query()
	q.Set("quoteCurrency", "bob")
	q.Set("baseCurrency", "usdt")
	q.Set("side", bookSide(side))
	q.Set("paymentMethod", "all")
	q.Set("userType", "all")
	q.Set("t", strconv.FormatInt(time.Now().UnixMilli(), 10))
	u.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), http.NoBody)
	if err != nil {
		return 0, provider.Transport(provider.OKX, side, err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := p.client.Do(ctx, req)
	if err != nil {
		return 0, provider.Transport(provider.OKX, side, err)
	}
	defer resp.Body.Close()
	if !httpx.OK(resp) {
		return 0, provider.Status(provider.OKX, side, http.MethodGet, u.Path, resp.StatusCode, httpx.Snippet(resp))
	}

	var body booksResponse
	if err := httpx.DecodeJSON(resp, &body); err != nil {
		return 0, provider.Malformed(provider.OKX, side, err)
	}
	if body.Code != 0 {
		return 0, provider.Malformed(provider.OKX, side, fmt.Errorf("code=%d msg=%q", body.Code, body.Msg))
	}

	orders := body.Data.Sell
	if side == provider.SideSell {
		orders = body.Data.Buy
	}
	prices := make([]string, 0, len(orders))
	for _, o := range orders {
		prices = append(prices, o.Price)
	}
	avg, err := provider.TopAverage(prices, provider.TopN)
	if err != nil {
		return 0, provider.Malformed(provider.OKX, side, err)
	}
	return avg, nil
}
