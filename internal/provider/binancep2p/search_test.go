package binancep2p_test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"dollartracker/internal/httpx"
	"dollartracker/internal/provider"
	"dollartracker/internal/provider/binancep2p"
)

func newServer(t *testing.T, handler func(w http.ResponseWriter, tradeType string)) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "/bapi/c2c/v2/friendly/c2c/adv/search", r.URL.Path)
		require.Equal(t, "application/json", r.Header.Get("Content-Type"))

		var body map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		require.Equal(t, "BOB", body["fiat"])
		require.Equal(t, "USDT", body["asset"])
		handler(w, body["tradeType"].(string))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func adverts(prices ...string) string {
	data := make([]map[string]any, 0, len(prices))
	for _, p := range prices {
		data = append(data, map[string]any{"adv": map[string]any{"price": p}})
	}
	b, _ := json.Marshal(map[string]any{"code": "000000", "success": true, "data": data})
	return string(b)
}

func TestFetchSide_MapsTradeTypeAndAveragesTopThree(t *testing.T) {
	t.Parallel()

	srv := newServer(t, func(w http.ResponseWriter, tradeType string) {
		switch tradeType {
		case "BUY":
			_, _ = w.Write([]byte(adverts("9.30", "9.32", "9.34", "11.00")))
		case "SELL":
			_, _ = w.Write([]byte(adverts("9.20", "9.18")))
		default:
			t.Errorf("unexpected tradeType %q", tradeType)
		}
	})

	c := binancep2p.New(binancep2p.WithBaseURL(srv.URL), binancep2p.WithHTTPClient(httpx.New(2*time.Second)))
	require.Equal(t, provider.Binance, c.ID())

	ask, err := c.FetchSide(t.Context(), provider.SideBuy)
	require.NoError(t, err)
	require.InDelta(t, 9.32, ask, 1e-9)

	bid, err := c.FetchSide(t.Context(), provider.SideSell)
	require.NoError(t, err)
	require.InDelta(t, 9.19, bid, 1e-9)
}

func TestFetchSide_EmptyBookIsFailure(t *testing.T) {
	t.Parallel()

	srv := newServer(t, func(w http.ResponseWriter, _ string) {
		_, _ = w.Write([]byte(adverts()))
	})
	c := binancep2p.New(binancep2p.WithBaseURL(srv.URL))

	_, err := c.FetchSide(t.Context(), provider.SideBuy)
	require.ErrorIs(t, err, provider.ErrNoOffers)

	var f *provider.Failure
	require.ErrorAs(t, err, &f)
	require.Equal(t, provider.FailureMalformed, f.Kind)
	require.Equal(t, provider.SideBuy, f.Side)
}

func TestFetchSide_NonNumericPricesAreFailure(t *testing.T) {
	t.Parallel()

	srv := newServer(t, func(w http.ResponseWriter, _ string) {
		_, _ = w.Write([]byte(adverts("n/a", "", "-")))
	})
	c := binancep2p.New(binancep2p.WithBaseURL(srv.URL))

	_, err := c.FetchSide(t.Context(), provider.SideSell)
	require.ErrorIs(t, err, provider.ErrNoOffers)
}

func TestFetchSide_UnsuccessfulBody(t *testing.T) {
	t.Parallel()

	srv := newServer(t, func(w http.ResponseWriter, _ string) {
		_, _ = w.Write([]byte(`{"code":"345","message":"illegal parameter","success":false,"data":[]}`))
	})
	c := binancep2p.New(binancep2p.WithBaseURL(srv.URL))

	_, err := c.FetchSide(t.Context(), provider.SideSell)
	require.ErrorIs(t, err, provider.ErrMalformed)
}

func TestFetchSide_Non2xxIsStatusFailure(t *testing.T) {
	t.Parallel()

	srv := newServer(t, func(w http.ResponseWriter, _ string) {
		http.Error(w, "busy", http.StatusTooManyRequests)
	})
	c := binancep2p.New(binancep2p.WithBaseURL(srv.URL))

	_, err := c.FetchSide(t.Context(), provider.SideBuy)
	var f *provider.Failure
	require.ErrorAs(t, err, &f)
	require.Equal(t, provider.FailureStatus, f.Kind)
	require.Contains(t, f.Error(), "429")
}

func TestWithHeader(t *testing.T) {
	t.Parallel()

	var seen string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = r.Header.Get("clienttype")
		_, _ = w.Write([]byte(adverts("9.00")))
	}))
	defer srv.Close()

	c := binancep2p.New(
		binancep2p.WithBaseURL(srv.URL),
		binancep2p.WithHeader(http.Header{"clienttype": []string{"web"}}),
	)
	avg, err := c.FetchSide(t.Context(), provider.SideBuy)
	require.NoError(t, err)
	require.Equal(t, 9.00, avg)
	require.Equal(t, "web", seen)
}
