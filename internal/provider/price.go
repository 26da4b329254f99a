package provider

import (
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// TopN is how many ranked offers are averaged per side to damp outliers.
const TopN = 3

// Round rounds v to the given number of decimal places, half away from zero.
func Round(v float64, places int32) float64 {
	f, _ := decimal.NewFromFloat(v).Round(places).Float64()
	return f
}

// TopAverage averages the first n prices in provider ranking order.
// Entries that are empty, non-numeric or not positive are dropped after
// the cut, so a book whose top offers are all junk yields ErrNoOffers.
func TopAverage(prices []string, n int) (float64, error) {
	if n > 0 && len(prices) > n {
		prices = prices[:n]
	}
	sum := decimal.Zero
	count := 0
	for _, raw := range prices {
		s := strings.TrimSpace(raw)
		if s == "" {
			continue
		}
		v, err := strconv.ParseFloat(s, 64)
		if err != nil || v <= 0 {
			continue
		}
		sum = sum.Add(decimal.NewFromFloat(v))
		count++
	}
	if count == 0 {
		return 0, ErrNoOffers
	}
	avg, _ := sum.Div(decimal.NewFromInt(int64(count))).Float64()
	return avg, nil
}

// TwoSided builds a quote from the two halves of a book.
// ask is the price to buy USD, bid the price to sell it. When only one side
// is present last degrades to that side.
func TwoSided(id SourceID, name string, ask, bid float64, at time.Time) Quote {
	bid = Round(bid, 2)
	ask = Round(ask, 2)
	var last float64
	switch {
	case bid > 0 && ask > 0:
		last = Round((bid+ask)/2, 2)
	case bid > 0:
		last = bid
	default:
		last = ask
	}
	return Quote{
		Exchange:  id,
		Name:      name,
		Bid:       bid,
		Ask:       ask,
		Last:      last,
		UpdatedAt: at.UTC(),
	}
}

// ParsePrice parses a positive decimal string such as "6.97".
func ParsePrice(s string) (float64, bool) {
	v, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil || v <= 0 {
		return 0, false
	}
	return v, true
}
