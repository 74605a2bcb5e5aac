package model

import "strings"

// Interval is a provider billing interval.
type Interval string

const (
	IntervalHourly     Interval = "hourly"
	IntervalDaily      Interval = "daily"
	IntervalWeekly     Interval = "weekly"
	IntervalMonthly    Interval = "monthly"
	IntervalQuarterly  Interval = "quarterly"
	IntervalBiannually Interval = "biannually"
	IntervalAnnually   Interval = "annually"
)

// ParseInterval maps a raw provider string onto a recognized interval.
func ParseInterval(s string) (Interval, bool) {
	switch Interval(strings.ToLower(strings.TrimSpace(s))) {
	case IntervalHourly:
		return IntervalHourly, true
	case IntervalDaily:
		return IntervalDaily, true
	case IntervalWeekly:
		return IntervalWeekly, true
	case IntervalMonthly:
		return IntervalMonthly, true
	case IntervalQuarterly:
		return IntervalQuarterly, true
	case IntervalBiannually:
		return IntervalBiannually, true
	case IntervalAnnually:
		return IntervalAnnually, true
	}
	return "", false
}

// Plan is a provider-owned plan definition. This subsystem never mutates
// plans; they are fetched on demand and never cached authoritatively.
type Plan struct {
	Code        string // provider plan code, e.g. PLN_xxx
	Name        string
	Amount      int64 // minor currency units
	Currency    string
	Interval    Interval
	Description string
}
