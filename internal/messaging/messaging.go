// Package messaging broadcasts fresh snapshots to other processes.
package messaging

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"
	"go.uber.org/zap"

	"dollartracker/internal/aggregate"
	"dollartracker/internal/config"
)

// Publisher sends a snapshot somewhere. Implementations must be safe for
// concurrent use.
type Publisher interface {
	Publish(ctx context.Context, s *aggregate.Snapshot) error
	Close() error
}

// Nop discards everything.
type Nop struct{}

func (Nop) Publish(context.Context, *aggregate.Snapshot) error { return nil }
func (Nop) Close() error                                        { return nil }

// conn is the part of *nats.Conn the publisher uses.
type conn interface {
	Publish(subject string, data []byte) error
	FlushWithContext(ctx context.Context) error
	Drain() error
}

// NATS publishes snapshots as JSON on one subject.
type NATS struct {
	nc      conn
	subject string
	log     *zap.Logger
}

// Connect dials the server in cfg.
func Connect(cfg config.NATS, log *zap.Logger) (*NATS, error) {
	if log == nil {
		log = zap.NewNop()
	}
	log = log.Named("nats")
	nc, err := nats.Connect(cfg.URL,
		nats.Name("dollartracker"),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(2*time.Second),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			log.Warn("NATS disconnected", zap.Error(err))
		}),
		nats.ReconnectHandler(func(_ *nats.Conn) {
			log.Info("NATS reconnected")
		}),
		nats.ClosedHandler(func(_ *nats.Conn) {
			log.Info("NATS connection closed")
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS: %w", err)
	}
	return newNATS(nc, cfg.Subject, log), nil
}

func newNATS(nc conn, subject string, log *zap.Logger) *NATS {
	if subject == "" {
		subject = "prices.current"
	}
	return &NATS{nc: nc, subject: subject, log: log}
}

func (n *NATS) Publish(ctx context.Context, s *aggregate.Snapshot) error {
	data, err := json.Marshal(s)
	if err != nil {
		return fmt.Errorf("encode snapshot: %w", err)
	}
	if err := n.nc.Publish(n.subject, data); err != nil {
		return fmt.Errorf("publish %s: %w", n.subject, err)
	}
	if err := n.nc.FlushWithContext(ctx); err != nil {
		return fmt.Errorf("flush %s: %w", n.subject, err)
	}
	return nil
}

func (n *NATS) Close() error { return n.nc.Drain() }
