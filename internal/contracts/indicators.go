package contracts

import (
	"sort"
	"time"
)

// Indicator names
const (
	IndicatorSMA20 = "SMA20"
	IndicatorEMA12 = "EMA12"
	IndicatorRSI14 = "RSI14"
	IndicatorMACD  = "MACD"
	IndicatorADX14 = "ADX14"
	IndicatorClose = "CLOSE"
)

// TechnicalIndicator is one computed value of one indicator at one bar.
// A nil Value means insufficient history, never zero.
type TechnicalIndicator struct {
	Name     string            `json:"name"`
	Time     time.Time         `json:"time"`
	Value    *float64          `json:"value"`
	Metadata map[string]string `json:"metadata,omitempty"`
}

// IndicatorSeries groups the indicators of one ticker by bar time (UTC)
type IndicatorSeries map[time.Time][]TechnicalIndicator

// Add appends an indicator under its bar time
func (s IndicatorSeries) Add(ind TechnicalIndicator) {
	at := ind.Time.UTC()
	s[at] = append(s[at], ind)
}

// Times returns the bar times in ascending order
func (s IndicatorSeries) Times() []time.Time {
	times := make([]time.Time, 0, len(s))
	for t := range s {
		times = append(times, t)
	}
	sort.Slice(times, func(i, j int) bool { return times[i].Before(times[j]) })
	return times
}

// Latest returns the value of the named indicator at the most recent bar that carries it.
// ok is false when no bar carries it or when that value is nil.
func (s IndicatorSeries) Latest(name string) (value float64, ok bool) {
	var (
		found  bool
		latest time.Time
		ptr    *float64
	)
	for at, inds := range s {
		for _, ind := range inds {
			if ind.Name != name {
				continue
			}
			if !found || at.After(latest) {
				found = true
				latest = at
				ptr = ind.Value
			}
		}
	}
	if !found || ptr == nil {
		return 0, false
	}
	return *ptr, true
}

// Float returns a pointer to v
func Float(v float64) *float64 {
	return &v
}
