// Package source normalizes heterogeneous raw option chain data into
// the canonical chain consumed by the max pain engine. Each adapter
// variant owns one raw origin (CBOE csv exports, the Yahoo option API)
// and reduces it to the same shape.
package source

import (
	"context"
	"fmt"
	"time"

	"github.com/dgnsrekt/maxpain/internal/chain"
)

// DateLayout is the wire format for expiration dates.
const DateLayout = "2006-01-02"

// NextMonthlySentinel selects the next monthly (third Friday)
// expiration instead of an explicit date.
const NextMonthlySentinel = "next_monthly"

// ExpirationSpec is either an explicit target date or the next-monthly
// sentinel.
type ExpirationSpec struct {
	Date        time.Time
	NextMonthly bool
}

func (s ExpirationSpec) String() string {
	if s.NextMonthly {
		return NextMonthlySentinel
	}
	return s.Date.Format(DateLayout)
}

// ParseExpirationSpec parses a config-level expiration target:
// "next_monthly" or a YYYY-MM-DD date.
func ParseExpirationSpec(target string) (ExpirationSpec, error) {
	if target == NextMonthlySentinel {
		return ExpirationSpec{NextMonthly: true}, nil
	}
	date, err := time.Parse(DateLayout, target)
	if err != nil {
		return ExpirationSpec{}, fmt.Errorf("%w: expiration target %q (use YYYY-MM-DD or %q)",
			ErrConfiguration, target, NextMonthlySentinel)
	}
	return ExpirationSpec{Date: date}, nil
}

// OptionData is one normalized fetch: the canonical chain plus the
// identifying metadata the downstream engine and reports need.
type OptionData struct {
	Ticker         string
	CurrentPrice   float64
	ExpirationDate time.Time
	Chain          chain.Chain
}

// OptionSource fetches and normalizes raw option chain data. Both
// variants validate their chain against the canonical contract before
// returning; a fetch never yields a partial or invalid chain.
type OptionSource interface {
	// FetchOptionData resolves the expiration and returns the
	// normalized chain for one ticker.
	FetchOptionData(ctx context.Context, ticker string, spec ExpirationSpec) (*OptionData, error)

	// AvailableExpirations lists the expiration dates discoverable for
	// a ticker, ascending. An empty list is not an error.
	AvailableExpirations(ctx context.Context, ticker string) ([]time.Time, error)
}
