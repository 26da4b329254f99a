package messaging

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"dollartracker/internal/aggregate"
	"dollartracker/internal/config"
	"dollartracker/internal/provider"
)

type recordingConn struct {
	subject string
	data    []byte
	err     error
	drained bool
}

func (c *recordingConn) Publish(subject string, data []byte) error {
	c.subject, c.data = subject, data
	return c.err
}

func (c *recordingConn) FlushWithContext(context.Context) error { return nil }

func (c *recordingConn) Drain() error {
	c.drained = true
	return nil
}

func TestNATS_PublishesJSONSnapshot(t *testing.T) {
	rc := &recordingConn{}
	n := newNATS(rc, "", zap.NewNop())
	s := aggregate.Merge([]provider.Quote{{Exchange: provider.OKX, Bid: 9.3, Ask: 9.4, Last: 9.35}}, "OKX P2P", time.Unix(1700000000, 0).UTC())

	require.NoError(t, n.Publish(t.Context(), s))
	require.Equal(t, "prices.current", rc.subject)

	var got map[string]any
	require.NoError(t, json.Unmarshal(rc.data, &got))
	require.Equal(t, "OKX P2P", got["source"])
	require.Equal(t, false, got["synthetic"])

	require.NoError(t, n.Close())
	require.True(t, rc.drained)
}

func TestNATS_PublishError(t *testing.T) {
	rc := &recordingConn{err: errors.New("nats: connection closed")}
	n := newNATS(rc, "rates.bob", zap.NewNop())

	err := n.Publish(t.Context(), aggregate.Placeholder(time.Now()))
	require.ErrorContains(t, err, "publish rates.bob")
}

func TestConnect_NoServer(t *testing.T) {
	_, err := Connect(config.NATS{URL: "nats://127.0.0.1:1"}, nil)
	require.Error(t, err)
}

func TestNop(t *testing.T) {
	var p Publisher = Nop{}
	require.NoError(t, p.Publish(t.Context(), nil))
	require.NoError(t, p.Close())
}
