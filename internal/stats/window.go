package stats

import "time"

// Window is a named lookback with the bucket resolution its points use.
type Window struct {
	Name       string
	Lookback   time.Duration
	Resolution time.Duration
}

// Buckets is how many points a full window holds.
func (w Window) Buckets() int { return int(w.Lookback / w.Resolution) }

var (
	Hour  = Window{Name: "1h", Lookback: time.Hour, Resolution: time.Minute}
	Day   = Window{Name: "24h", Lookback: 24 * time.Hour, Resolution: time.Hour}
	Week  = Window{Name: "7d", Lookback: 7 * 24 * time.Hour, Resolution: time.Hour}
	Month = Window{Name: "30d", Lookback: 30 * 24 * time.Hour, Resolution: 24 * time.Hour}
	Year  = Window{Name: "1y", Lookback: 365 * 24 * time.Hour, Resolution: 24 * time.Hour}
)

var (
	historyWindows    = map[string]Window{"1h": Hour, "24h": Day, "7d": Week, "30d": Month, "1y": Year}
	volatilityWindows = map[string]Window{"1h": Hour, "24h": Day, "7d": Week, "30d": Month}
)

// ParseHistoryWindow resolves a history interval; anything unknown is 7d.
func ParseHistoryWindow(s string) Window {
	if w, ok := historyWindows[s]; ok {
		return w
	}
	return Week
}

// ParseVolatilityWindow resolves a volatility period; anything unknown,
// including 1y, is 24h.
func ParseVolatilityWindow(s string) Window {
	if w, ok := volatilityWindows[s]; ok {
		return w
	}
	return Day
}
