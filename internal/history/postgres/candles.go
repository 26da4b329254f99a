package postgres

import (
	"context"
	"fmt"
	"time"

	"dollartracker/internal/history"
	"dollartracker/internal/stats"
)

// Buckets are aligned to the Unix epoch, which matches time.Truncate for
// minute, hour and day resolutions.
const bucketExpr = `to_timestamp((floor(extract(epoch from at) / @res) * @res)::double precision)`

const exchangeCandles = `
WITH samples AS (
	SELECT timestamp AS at, last AS price
	FROM price_tick
	WHERE exchange = @exchange AND timestamp >= @since AND timestamp <= @now AND last > 0
)
SELECT ` + bucketExpr + ` AS bucket,
	(array_agg(price ORDER BY at ASC))[1] AS open,
	MAX(price) AS high,
	MIN(price) AS low,
	(array_agg(price ORDER BY at DESC))[1] AS close
FROM samples
GROUP BY bucket
ORDER BY bucket ASC`

const allCandles = `
WITH samples AS (
	SELECT MIN(timestamp) AS at, AVG(last) AS price
	FROM price_tick
	WHERE timestamp >= @since AND timestamp <= @now AND last > 0
	GROUP BY batch_id
)
SELECT ` + bucketExpr + ` AS bucket,
	(array_agg(price ORDER BY at ASC))[1] AS open,
	MAX(price) AS high,
	MIN(price) AS low,
	(array_agg(price ORDER BY at DESC))[1] AS close
FROM samples
GROUP BY bucket
ORDER BY bucket ASC`

type candleRow struct {
	Bucket time.Time
	Open   float64
	High   float64
	Low    float64
	Close  float64
}

func (r candleRow) point() stats.Point {
	return stats.Point{
		Timestamp: r.Bucket.UTC(),
		Open:      r.Open,
		High:      r.High,
		Low:       r.Low,
		Close:     r.Close,
	}
}

// Candles buckets in the database so the whole window is covered no matter
// how many ticks it holds.
func (c *Client) Candles(ctx context.Context, exchange string, w stats.Window, now time.Time) ([]stats.Point, error) {
	res := int64(w.Resolution / time.Second)
	if res <= 0 {
		return nil, nil
	}
	now = now.UTC()
	args := map[string]any{
		"res":   res,
		"since": now.Add(-w.Lookback),
		"now":   now,
	}
	query := allCandles
	if !history.AllExchanges(exchange) {
		query = exchangeCandles
		args["exchange"] = exchange
	}
	var rows []candleRow
	if err := c.DB.WithContext(ctx).Raw(query, args).Scan(&rows).Error; err != nil {
		return nil, fmt.Errorf("query candles: %w", err)
	}
	out := make([]stats.Point, 0, len(rows))
	for _, r := range rows {
		out = append(out, r.point())
	}
	return out, nil
}
