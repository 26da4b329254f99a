package postgres

import (
	"context"
	"os"
	"testing"
	"time"

	"dollartracker/internal/config"
	"dollartracker/internal/history"
	"dollartracker/internal/provider"
	"dollartracker/internal/stats"
)

// go test -v --run ^TestNewClientUnreachable$
func TestNewClientUnreachable(t *testing.T) {
	_, err := NewClient("host=127.0.0.1 port=1 user=fail password=fail dbname=fail sslmode=disable connect_timeout=1")
	if err == nil {
		t.Fatal("expected error for unreachable server, got nil")
	}
}

func TestRecordRoundTrip(t *testing.T) {
	at := time.Date(2024, 5, 1, 12, 0, 0, 0, time.FixedZone("BOT", -4*3600))
	in := history.Tick{BatchID: "0b7c", Exchange: provider.OKX, Bid: 9.3, Ask: 9.4, Last: 9.35, Origin: "OKX P2P", Timestamp: at}

	r := toRecord(in)
	if r.Exchange != "okx" || r.Timestamp.Location() != time.UTC {
		t.Fatalf("unexpected record: %+v", r)
	}
	r.ID = 7
	out := r.tick()
	if out.ID != 7 || out.Exchange != provider.OKX || !out.Timestamp.Equal(at) || out.Last != 9.35 {
		t.Fatalf("unexpected tick: %+v", out)
	}
	if (TickRecord{}).TableName() != "price_tick" {
		t.Fatal("unexpected table name")
	}
}

func TestCandleRowPoint(t *testing.T) {
	at := time.Date(2024, 5, 1, 8, 0, 0, 0, time.FixedZone("BOT", -4*3600))
	p := candleRow{Bucket: at, Open: 6.9, High: 7.5, Low: 6.85, Close: 7.4}.point()
	if p.Timestamp.Location() != time.UTC || !p.Timestamp.Equal(at) {
		t.Fatalf("unexpected timestamp: %v", p.Timestamp)
	}
	if p.Open != 6.9 || p.High != 7.5 || p.Low != 6.85 || p.Close != 7.4 || p.Volume != nil {
		t.Fatalf("unexpected point: %+v", p)
	}
}

// Runs against a live server when DOLLARTRACKER_TEST_PG_HOST is set.
// go test -v --run TestTickCRUD
func TestTickCRUD(t *testing.T) {
	host := os.Getenv("DOLLARTRACKER_TEST_PG_HOST")
	if host == "" {
		t.Skip("DOLLARTRACKER_TEST_PG_HOST not set")
	}
	cfg := config.Default().History.Postgres
	cfg.Host = host
	cfg.Password = os.Getenv("DOLLARTRACKER_TEST_PG_PASSWORD")

	client, err := Open(cfg, true)
	if err != nil {
		t.Fatalf("failed to open: %v", err)
	}
	defer client.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if !client.IsHealthy(ctx) {
		t.Fatal("expected healthy DB connection")
	}

	now := time.Now().UTC().Truncate(time.Second)
	ticks := []history.Tick{
		{BatchID: "9f1c6a4e-4d1e-4a57-9f1e-2f7f6b0d6c11", Exchange: provider.Binance, Bid: 9.1, Ask: 9.3, Last: 9.2, Timestamp: now.Add(-24 * time.Hour)},
		{BatchID: "0a3b1c2d-5e6f-4a7b-8c9d-0e1f2a3b4c5d", Exchange: provider.Binance, Bid: 9.2, Ask: 9.4, Last: 9.3, Timestamp: now},
	}
	if err := client.Append(ctx, ticks); err != nil {
		t.Fatalf("append failed: %v", err)
	}
	// Re-inserting the same batch is a no-op.
	if err := client.Append(ctx, ticks[:1]); err != nil {
		t.Fatalf("re-append failed: %v", err)
	}

	got, ok, err := client.Near(ctx, "binance", now.Add(-24*time.Hour), time.Hour)
	if err != nil || !ok || got.Last != 9.2 {
		t.Fatalf("near: %+v %v %v", got, ok, err)
	}

	recent, err := client.Range(ctx, "binance", now.Add(-time.Minute))
	if err != nil || len(recent) == 0 {
		t.Fatalf("range: %v %v", recent, err)
	}

	pts, err := client.Candles(ctx, "binance", stats.Week, now)
	if err != nil || len(pts) != 2 || pts[1].Close != 9.3 || !pts[1].Timestamp.Equal(now.Truncate(time.Hour)) {
		t.Fatalf("candles: %+v %v", pts, err)
	}
	all, err := client.Candles(ctx, "all", stats.Day, now)
	if err != nil || len(all) == 0 || all[len(all)-1].Close != 9.3 {
		t.Fatalf("all candles: %+v %v", all, err)
	}

	if _, err := client.Prune(ctx, now.Add(time.Hour)); err != nil {
		t.Fatalf("prune failed: %v", err)
	}
}
