package stats

import (
	"sort"
	"time"
)

// Sample is one observed price, the input of Candles.
type Sample struct {
	At    time.Time
	Price float64
}

// Candles buckets samples that fall inside w ending at now into OHLC points
// at the window resolution. Empty buckets are skipped; points are ascending.
// Volume is unknown for observed prices and left nil.
func Candles(samples []Sample, w Window, now time.Time) []Point {
	if len(samples) == 0 || w.Resolution <= 0 {
		return nil
	}
	sorted := append([]Sample(nil), samples...)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].At.Before(sorted[j].At) })

	since := now.Add(-w.Lookback)
	var out []Point
	var cur *Point
	for _, s := range sorted {
		if s.At.Before(since) || s.At.After(now) || s.Price <= 0 {
			continue
		}
		bucket := s.At.UTC().Truncate(w.Resolution)
		if cur == nil || !cur.Timestamp.Equal(bucket) {
			out = append(out, Point{Timestamp: bucket, Open: s.Price, High: s.Price, Low: s.Price, Close: s.Price})
			cur = &out[len(out)-1]
			continue
		}
		cur.High = max(cur.High, s.Price)
		cur.Low = min(cur.Low, s.Price)
		cur.Close = s.Price
	}
	return out
}
