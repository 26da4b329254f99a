package httpx

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestClient_SetsDefaultHeaders(t *testing.T) {
	var gotUA, gotKey string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotUA = r.Header.Get("User-Agent")
		gotKey = r.Header.Get("X-Key")
		_, _ = w.Write([]byte(`{"ok":true}`))
	}))
	defer srv.Close()

	c := New(2 * time.Second)
	c.Headers = map[string]string{"X-Key": "abc"}
	req, err := http.NewRequest(http.MethodGet, srv.URL, http.NoBody)
	require.NoError(t, err)

	resp, err := c.Do(t.Context(), req)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.True(t, OK(resp))

	var body struct{ OK bool }
	require.NoError(t, DecodeJSON(resp, &body))
	require.True(t, body.OK)
	require.Equal(t, DefaultUserAgent, gotUA)
	require.Equal(t, "abc", gotKey)
}

func TestNew_CapsTimeout(t *testing.T) {
	require.Equal(t, 10*time.Second, New(0).HTTP.Timeout)
	require.Equal(t, 10*time.Second, New(time.Minute).HTTP.Timeout)
	require.Equal(t, 4*time.Second, New(4*time.Second).HTTP.Timeout)
}

func TestSnippet_ReportsStatusBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "upstream down", http.StatusBadGateway)
	}))
	defer srv.Close()

	resp, err := New(time.Second).Do(t.Context(), mustGet(t, srv.URL))
	require.NoError(t, err)
	defer resp.Body.Close()
	require.False(t, OK(resp))
	require.Equal(t, "upstream down", Snippet(resp))
}

func mustGet(t *testing.T, url string) *http.Request {
	t.Helper()
	req, err := http.NewRequest(http.MethodGet, url, http.NoBody)
	require.NoError(t, err)
	return req
}
