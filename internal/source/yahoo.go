package source

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"go.uber.org/zap"

	"github.com/dgnsrekt/maxpain/internal/chain"
	"github.com/dgnsrekt/maxpain/internal/yahoo"
)

// QuoteOptionClient is the slice of the Yahoo client the adapter
// needs; tests substitute a mock.
type QuoteOptionClient interface {
	Quote(ctx context.Context, ticker string) (*yahoo.Quote, error)
	Expirations(ctx context.Context, ticker string) ([]time.Time, error)
	OptionChain(ctx context.Context, ticker string, expiration time.Time) (*yahoo.Listing, error)
}

// YahooAdapter normalizes Yahoo Finance option data. The API returns
// separate call-side and put-side listings; the adapter joins them on
// strike, filling the missing side with zero open interest.
type YahooAdapter struct {
	client   QuoteOptionClient
	strategy Strategy
	logger   *zap.Logger
	now      func() time.Time
}

// NewYahooAdapter builds the API-based adapter.
func NewYahooAdapter(client QuoteOptionClient, strategy Strategy, logger *zap.Logger) *YahooAdapter {
	return &YahooAdapter{
		client:   client,
		strategy: strategy,
		logger:   logger,
		now:      time.Now,
	}
}

// FetchOptionData downloads, joins and validates the option chain for
// one ticker.
func (a *YahooAdapter) FetchOptionData(ctx context.Context, ticker string, spec ExpirationSpec) (*OptionData, error) {
	currentPrice, err := a.currentPrice(ctx, ticker)
	if err != nil {
		return nil, err
	}

	available, err := a.client.Expirations(ctx, ticker)
	if err != nil {
		return nil, mapClientErr(ticker, err)
	}
	if len(available) == 0 {
		return nil, fmt.Errorf("%w: %s lists no option expirations", ErrDataNotFound, ticker)
	}

	target := spec.Date
	if spec.NextMonthly {
		target = NextMonthlyExpiration(a.now())
		a.logger.Debug("resolved next monthly target",
			zap.String("ticker", ticker),
			zap.String("target", target.Format(DateLayout)),
		)
	}

	expiration, err := ResolveExpiration(available, target, a.strategy)
	if err != nil {
		return nil, err
	}
	a.logger.Info("selected expiration",
		zap.String("ticker", ticker),
		zap.String("expiration", expiration.Format(DateLayout)),
	)

	listing, err := a.client.OptionChain(ctx, ticker, expiration)
	if err != nil {
		return nil, mapClientErr(ticker, err)
	}

	joined := joinListings(listing.Calls, listing.Puts)
	if err := chain.Validate(joined); err != nil {
		return nil, fmt.Errorf("%s %s: %w", ticker, expiration.Format(DateLayout), err)
	}

	return &OptionData{
		Ticker:         ticker,
		CurrentPrice:   currentPrice,
		ExpirationDate: expiration,
		Chain:          joined,
	}, nil
}

// AvailableExpirations lists the API's expiration dates for a ticker.
func (a *YahooAdapter) AvailableExpirations(ctx context.Context, ticker string) ([]time.Time, error) {
	dates, err := a.client.Expirations(ctx, ticker)
	if err != nil {
		if errors.Is(err, yahoo.ErrNotFound) {
			return nil, nil
		}
		return nil, err
	}
	sort.Slice(dates, func(i, j int) bool { return dates[i].Before(dates[j]) })
	return dates, nil
}

// currentPrice prefers the live market price and falls back to the
// previous close when the live field is absent or zero.
func (a *YahooAdapter) currentPrice(ctx context.Context, ticker string) (float64, error) {
	quote, err := a.client.Quote(ctx, ticker)
	if err != nil {
		return 0, mapClientErr(ticker, err)
	}

	price := quote.RegularMarketPrice
	if price <= 0 {
		price = quote.RegularMarketPreviousClose
	}
	if price <= 0 {
		return 0, fmt.Errorf("%w: no usable price for %s", ErrDataNotFound, ticker)
	}
	return price, nil
}

// joinListings performs a full outer join of the call and put sides on
// strike. A strike present on only one side gets zero open interest on
// the other. The result is sorted ascending by strike.
func joinListings(calls, puts []yahoo.Contract) chain.Chain {
	byStrike := make(map[float64]*chain.Row, len(calls)+len(puts))

	for _, c := range calls {
		row := rowFor(byStrike, c.Strike)
		row.CallOI = c.OpenInterest
	}
	for _, p := range puts {
		row := rowFor(byStrike, p.Strike)
		row.PutOI = p.OpenInterest
	}

	joined := make(chain.Chain, 0, len(byStrike))
	for _, row := range byStrike {
		joined = append(joined, *row)
	}
	sort.Slice(joined, func(i, j int) bool { return joined[i].Strike < joined[j].Strike })
	return joined
}

func rowFor(byStrike map[float64]*chain.Row, strike float64) *chain.Row {
	if row, ok := byStrike[strike]; ok {
		return row
	}
	row := &chain.Row{Strike: strike}
	byStrike[strike] = row
	return row
}

func mapClientErr(ticker string, err error) error {
	if errors.Is(err, yahoo.ErrNotFound) {
		return fmt.Errorf("%w: %s: %v", ErrDataNotFound, ticker, err)
	}
	return err
}
