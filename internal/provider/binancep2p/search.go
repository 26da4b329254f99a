package binancep2p

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"dollartracker/internal/httpx"
	"dollartracker/internal/provider"
)

type searchRequest struct {
	Fiat              string   `json:"fiat"`
	Page              int      `json:"page"`
	Rows              int      `json:"rows"`
	TradeType         string   `json:"tradeType"`
	Asset             string   `json:"asset"`
	Countries         []string `json:"countries"`
	ProMerchantAds    bool     `json:"proMerchantAds"`
	ShieldMerchantAds bool     `json:"shieldMerchantAds"`
	PublisherType     *string  `json:"publisherType"`
	PayTypes          []string `json:"payTypes"`
	Classifies        []string `json:"classifies"`
}

type searchResponse struct {
	Code    string   `json:"code"`
	Message string   `json:"message"`
	Success *bool    `json:"success"`
	Data    []advert `json:"data"`
}

type advert struct {
	Adv struct {
		Price string `json:"price"`
	} `json:"adv"`
}

// tradeType maps a side onto Binance's vocabulary. BUY lists adverts the
// user buys USDT from, so it prices the ask; SELL prices the bid.
func tradeType(side provider.Side) string {
	if side == provider.SideSell {
		return "SELL"
	}
	return "BUY"
}

// FetchSide returns the average of the top three adverts for one side.
func (c *Client) FetchSide(ctx context.Context, side provider.Side) (float64, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	body, err := json.Marshal(searchRequest{
		Fiat:       "BOB",
		Page:       1,
		Rows:       c.rows,
		TradeType:  tradeType(side),
		Asset:      "USDT",
		Countries:  []string{},
		PayTypes:   []string{},
		Classifies: []string{"mass", "profession"},
	})
	if err != nil {
		return 0, provider.Transport(provider.Binance, side, fmt.Errorf("encoding request: %w", err))
	}

	url := c.baseURL + searchPath
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return 0, provider.Transport(provider.Binance, side, fmt.Errorf("creating request: %w", err))
	}
	req.Header = c.header.Clone()
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.doer.Do(ctx, req)
	if err != nil {
		return 0, provider.Transport(provider.Binance, side, err)
	}
	defer resp.Body.Close()

	if !httpx.OK(resp) {
		return 0, provider.Status(provider.Binance, side, http.MethodPost, url, resp.StatusCode, httpx.Snippet(resp))
	}

	var out searchResponse
	if err := httpx.DecodeJSON(resp, &out); err != nil {
		return 0, provider.Malformed(provider.Binance, side, err)
	}
	if out.Success != nil && !*out.Success {
		return 0, provider.Malformed(provider.Binance, side, fmt.Errorf("code=%s msg=%q", out.Code, out.Message))
	}

	prices := make([]string, 0, len(out.Data))
	for _, ad := range out.Data {
		prices = append(prices, ad.Adv.Price)
	}
	avg, err := provider.TopAverage(prices, provider.TopN)
	if err != nil {
		return 0, provider.Malformed(provider.Binance, side, err)
	}
	return avg, nil
}
