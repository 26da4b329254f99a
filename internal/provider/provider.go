package provider

import (
	"context"
	"net/http"
	"time"
)

// SourceID identifies one configured upstream.
type SourceID string

const (
	Binance      SourceID = "binance"
	OKX          SourceID = "okx"
	DolarAPI     SourceID = "dolarapi"
	ExchangeRate SourceID = "exchangerate"
)

// Known returns every upstream in fetch order. Tie-breaks in the aggregate
// depend on this order staying fixed.
func Known() []SourceID {
	return []SourceID{Binance, OKX, DolarAPI, ExchangeRate}
}

// Side selects one half of a two-sided P2P book.
// SideBuy queries offers the user can buy from (the ask),
// SideSell offers the user can sell into (the bid).
type Side string

const (
	SideBuy  Side = "buy"
	SideSell Side = "sell"
)

// Quote is the normalized USD/BOB observation of one upstream.
// Values are built once by an adapter and never mutated afterwards.
type Quote struct {
	Exchange  SourceID  `json:"exchange"`
	Name      string    `json:"name"`
	Bid       float64   `json:"bid"`
	Ask       float64   `json:"ask"`
	Last      float64   `json:"last"`
	Change24h float64   `json:"change_24h"`
	Volume24h *float64  `json:"volume_24h"`
	UpdatedAt time.Time `json:"updated_at"`
}

// WithChange returns a copy of q carrying the given 24h change.
func (q Quote) WithChange(pct float64) Quote {
	q.Change24h = pct
	return q
}

// SideFetcher is an order-book upstream that needs one call per side.
// The aggregate calls FetchSide twice per cycle and merges the result.
type SideFetcher interface {
	ID() SourceID
	Name() string
	FetchSide(ctx context.Context, side Side) (float64, error)
}

// QuoteFetcher is an upstream that yields a complete quote in one call.
type QuoteFetcher interface {
	ID() SourceID
	Name() string
	FetchQuote(ctx context.Context) (Quote, error)
}

// BatchFetcher is an upstream that returns several named quotes at once.
// Its quotes are merged into the snapshot verbatim.
type BatchFetcher interface {
	ID() SourceID
	Name() string
	FetchBatch(ctx context.Context) ([]Quote, error)
}

// Doer sends an HTTP request. *httpx.Client satisfies it.
//
//go:generate mockgen -package=exchangerateapi_test -destination=exchangerateapi/mock_doer_test.go -source=provider.go Doer
type Doer interface {
	Do(ctx context.Context, req *http.Request) (*http.Response, error)
}
