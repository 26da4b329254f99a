package binancep2p

import (
	"net/http"
	"time"

	"dollartracker/internal/httpx"
	"dollartracker/internal/provider"
)

const (
	baseURL    = "https://p2p.binance.com"
	searchPath = "/bapi/c2c/v2/friendly/c2c/adv/search"
	// CanonicalURL is shown on the sources report.
	CanonicalURL = "https://p2p.binance.com"
)

// Client queries the Binance P2P advertisement search for USDT/BOB.
type Client struct {
	// baseURL is the base URL for the API.
	baseURL string
	// doer sends requests.
	doer provider.Doer
	// header contains additional headers to be sent with each request.
	header http.Header
	// rows is how many adverts are requested per side.
	rows int
	// timeout bounds a single side call.
	timeout time.Duration
	name    string
}

// Option is a configuration option for the Binance P2P client.
type Option func(*Client)

// WithBaseURL sets the base URL for the API.
func WithBaseURL(baseURL string) Option {
	return func(c *Client) {
		if baseURL != "" {
			c.baseURL = baseURL
		}
	}
}

// WithHTTPClient sets the client used to send requests.
func WithHTTPClient(doer provider.Doer) Option {
	return func(c *Client) {
		c.doer = doer
	}
}

// WithHeader sets additional headers to be sent with each request.
func WithHeader(header http.Header) Option {
	return func(c *Client) {
		for key, values := range header {
			for _, value := range values {
				c.header.Add(key, value)
			}
		}
	}
}

// WithTimeout bounds each side call.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 && d <= 10*time.Second {
			c.timeout = d
		}
	}
}

// WithName overrides the display name.
func WithName(name string) Option {
	return func(c *Client) {
		if name != "" {
			c.name = name
		}
	}
}

// New creates a Binance P2P client.
func New(options ...Option) *Client {
	c := &Client{
		baseURL: baseURL,
		doer:    httpx.New(10 * time.Second),
		header:  http.Header{},
		rows:    5,
		timeout: 10 * time.Second,
		name:    "Binance P2P",
	}
	for _, option := range options {
		option(c)
	}
	return c
}

func (c *Client) ID() provider.SourceID { return provider.Binance }
func (c *Client) Name() string          { return c.name }
