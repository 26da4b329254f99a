// Package stats computes summaries, volatility and OHLC buckets over
// price series.
package stats

import (
	"context"
	"math"
	"time"

	"github.com/shopspring/decimal"
)

// Point is one OHLC bucket.
type Point struct {
	Timestamp      time.Time `json:"timestamp"`
	Open           float64   `json:"open"`
	High           float64   `json:"high"`
	Low            float64   `json:"low"`
	Close          float64   `json:"close"`
	Volume         *float64  `json:"volume,omitempty"`
	ReferenceClose *float64  `json:"reference_close,omitempty"`
}

// PointSource yields the points of a window for one exchange, or for all
// exchanges when exchange is empty or "all".
type PointSource interface {
	Points(ctx context.Context, w Window, exchange string) ([]Point, error)
}

type Summary struct {
	AvgPrice      float64 `json:"avg_price"`
	MinPrice      float64 `json:"min_price"`
	MaxPrice      float64 `json:"max_price"`
	TotalVolume   float64 `json:"total_volume"`
	ChangePercent float64 `json:"change_percent"`
}

type Rating string

const (
	Low    Rating = "low"
	Medium Rating = "medium"
	High   Rating = "high"
)

type Range struct {
	Min float64 `json:"min"`
	Max float64 `json:"max"`
}

type VolatilityResult struct {
	Period            string  `json:"period"`
	Volatility        float64 `json:"volatility"`
	Rating            Rating  `json:"rating"`
	StandardDeviation float64 `json:"standard_deviation"`
	Range             Range   `json:"range"`
}

func round(v float64, places int32) float64 {
	f, _ := decimal.NewFromFloat(v).Round(places).Float64()
	return f
}

// Summarize reduces a series. An empty series yields the zero Summary.
func Summarize(points []Point) Summary {
	if len(points) == 0 {
		return Summary{}
	}
	sum := 0.0
	lo, hi := math.Inf(1), math.Inf(-1)
	vol := 0.0
	for _, p := range points {
		sum += p.Close
		lo = math.Min(lo, p.Close)
		hi = math.Max(hi, p.Close)
		if p.Volume != nil {
			vol += *p.Volume
		}
	}
	first, last := points[0].Close, points[len(points)-1].Close
	change := 0.0
	if first != 0 {
		change = round((last-first)/first*100, 2)
	}
	return Summary{
		AvgPrice:      round(sum/float64(len(points)), 4),
		MinPrice:      round(lo, 4),
		MaxPrice:      round(hi, 4),
		TotalVolume:   vol,
		ChangePercent: change,
	}
}

// RatingFor classifies a coefficient of variation in percent.
func RatingFor(volatility float64) Rating {
	switch {
	case volatility < 1.0:
		return Low
	case volatility < 3.0:
		return Medium
	default:
		return High
	}
}

// Volatility is the population standard deviation of closes as a percentage
// of their mean. Fewer than two points, or a zero mean, is zero volatility.
func Volatility(period string, points []Point) VolatilityResult {
	res := VolatilityResult{Period: period, Rating: Low}
	if len(points) < 2 {
		return res
	}
	n := float64(len(points))
	mean := 0.0
	lo, hi := math.Inf(1), math.Inf(-1)
	for _, p := range points {
		mean += p.Close
		lo = math.Min(lo, p.Close)
		hi = math.Max(hi, p.Close)
	}
	mean /= n
	variance := 0.0
	for _, p := range points {
		d := p.Close - mean
		variance += d * d
	}
	std := math.Sqrt(variance / n)
	vol := 0.0
	if mean != 0 {
		vol = std / mean * 100
	}
	res.Volatility = round(vol, 4)
	res.Rating = RatingFor(vol)
	res.StandardDeviation = round(std, 4)
	res.Range = Range{Min: round(lo, 4), Max: round(hi, 4)}
	return res
}
