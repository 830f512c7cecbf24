package source

import (
	"fmt"
	"math"
	"time"
)

// Strategy selects how a target expiration date is matched against the
// dates a source actually lists.
type Strategy string

const (
	// StrategyExact requires the target date to appear verbatim.
	StrategyExact Strategy = "exact"
	// StrategyNearest picks the available date with the smallest
	// absolute day distance; ties resolve to the earlier date.
	StrategyNearest Strategy = "nearest"
	// StrategyNextAvailable picks the earliest available date on or
	// after the target, falling back to the latest date when every
	// listed expiration is in the past.
	StrategyNextAvailable Strategy = "next_available"
)

// ParseStrategy validates a config-level strategy name.
func ParseStrategy(s string) (Strategy, error) {
	switch Strategy(s) {
	case StrategyExact, StrategyNearest, StrategyNextAvailable:
		return Strategy(s), nil
	}
	return "", fmt.Errorf("%w: unknown expiration strategy %q (use exact, nearest or next_available)",
		ErrConfiguration, s)
}

// ResolveExpiration matches target against the available dates using
// the given strategy. available must be non-empty.
func ResolveExpiration(available []time.Time, target time.Time, strategy Strategy) (time.Time, error) {
	if len(available) == 0 {
		return time.Time{}, fmt.Errorf("%w: no expirations listed", ErrExpirationResolution)
	}

	switch strategy {
	case StrategyExact:
		for _, d := range available {
			if sameDate(d, target) {
				return d, nil
			}
		}
		return time.Time{}, fmt.Errorf("%w: %s not listed by source",
			ErrExpirationResolution, target.Format(DateLayout))

	case StrategyNextAvailable:
		var latest time.Time
		var selected time.Time
		found := false
		for _, d := range available {
			if !d.Before(target) && (!found || d.Before(selected)) {
				selected = d
				found = true
			}
			if d.After(latest) {
				latest = d
			}
		}
		if found {
			return selected, nil
		}
		return latest, nil

	case StrategyNearest:
		selected := available[0]
		best := dayDistance(selected, target)
		for _, d := range available[1:] {
			dist := dayDistance(d, target)
			if dist < best || (dist == best && d.Before(selected)) {
				selected = d
				best = dist
			}
		}
		return selected, nil
	}

	return time.Time{}, fmt.Errorf("%w: unknown expiration strategy %q", ErrConfiguration, strategy)
}

// NextMonthlyExpiration computes the next monthly option expiration
// (the third Friday) relative to ref. Past mid-month the following
// calendar month is used.
func NextMonthlyExpiration(ref time.Time) time.Time {
	year, month := ref.Year(), ref.Month()
	if ref.Day() >= 15 {
		if month == time.December {
			year, month = year+1, time.January
		} else {
			month++
		}
	}

	firstDay := time.Date(year, month, 1, 0, 0, 0, 0, time.UTC)
	daysUntilFriday := (int(time.Friday) - int(firstDay.Weekday()) + 7) % 7
	firstFriday := firstDay.AddDate(0, 0, daysUntilFriday)

	// Third Friday is two weeks after the first.
	return firstFriday.AddDate(0, 0, 14)
}

func sameDate(a, b time.Time) bool {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	return ay == by && am == bm && ad == bd
}

func dayDistance(a, b time.Time) int {
	hours := a.Sub(b).Hours()
	return int(math.Abs(math.Round(hours / 24)))
}
