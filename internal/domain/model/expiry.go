package model

import (
	"time"

	"github.com/7HR4IZ3/checkaroundme-sub001/internal/domain"
)

// promoGrantMonths is the fixed promotional grant added before the first
// billing cycle for promo-eligible checkouts.
const promoGrantMonths = 2

// ComputeExpiry maps (anchor, interval, promoEligible) to an expiry date.
// When promoEligible is set the anchor is first advanced by the promotional
// grant, then by one unit of the interval. An unrecognized interval defaults
// to one month and returns ErrUnknownInterval alongside the computed date;
// callers log it and continue.
func ComputeExpiry(anchor time.Time, interval Interval, promoEligible bool) (time.Time, error) {
	if promoEligible {
		anchor = anchor.AddDate(0, promoGrantMonths, 0)
	}
	switch interval {
	case IntervalHourly:
		return anchor.Add(time.Hour), nil
	case IntervalDaily:
		return anchor.AddDate(0, 0, 1), nil
	case IntervalWeekly:
		return anchor.AddDate(0, 0, 7), nil
	case IntervalMonthly:
		return anchor.AddDate(0, 1, 0), nil
	case IntervalQuarterly:
		return anchor.AddDate(0, 3, 0), nil
	case IntervalBiannually:
		return anchor.AddDate(0, 6, 0), nil
	case IntervalAnnually:
		return anchor.AddDate(1, 0, 0), nil
	}
	return anchor.AddDate(0, 1, 0), domain.ErrUnknownInterval
}
