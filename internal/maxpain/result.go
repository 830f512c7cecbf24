package maxpain

import (
	"errors"
	"fmt"
	"time"

	"github.com/dgnsrekt/maxpain/internal/chain"
)

// ErrInvalidInput indicates an input value outside the evaluator's
// domain, such as a non-positive current price.
var ErrInvalidInput = errors.New("invalid input")

// Bias is the directional signal derived from the open interest
// imbalance around the max pain price.
type Bias string

const (
	BiasCall    Bias = "call"
	BiasPut     Bias = "put"
	BiasNeutral Bias = "neutral"
)

// Result is the immutable outcome of a single max pain run for one
// ticker. Field order is the stable contract consumed by the report
// writers.
type Result struct {
	Ticker         string    `json:"ticker"`
	ExpirationDate string    `json:"expiration_date"`
	CurrentPrice   float64   `json:"current_price"`
	MaxPainPrice   float64   `json:"max_pain_price"`
	PctChange      float64   `json:"pct_change"`
	NetPremium     float64   `json:"net_call_put_premium"`
	PremiumBias    Bias      `json:"premium_bias"`
	TotalCallOI    int64     `json:"total_call_oi"`
	TotalPutOI     int64     `json:"total_put_oi"`
	MinPayout      float64   `json:"min_payout"`
	ComputedAt     time.Time `json:"computed_at"`
}

// NetPremium computes the net call/put premium around the max pain
// price: call open interest value below it minus put open interest
// value above it. Positive means the call side dominates.
func NetPremium(c chain.Chain, maxPainPrice float64) float64 {
	var callPremium, putPremium float64
	for _, row := range c {
		if row.Strike < maxPainPrice {
			callPremium += float64(row.CallOI) * ContractMultiplier
		} else if row.Strike > maxPainPrice {
			putPremium += float64(row.PutOI) * ContractMultiplier
		}
	}
	return callPremium - putPremium
}

// Evaluate runs the full solve for one ticker's chain and assembles
// the result record. currentPrice must be positive; the percentage
// deviation is undefined otherwise.
func Evaluate(ticker string, currentPrice float64, c chain.Chain) (*Result, error) {
	if currentPrice <= 0 {
		return nil, fmt.Errorf("%w: current price %g must be positive", ErrInvalidInput, currentPrice)
	}

	maxPainPrice, minPayout, err := Solve(c)
	if err != nil {
		return nil, err
	}

	netPremium := NetPremium(c, maxPainPrice)

	bias := BiasNeutral
	switch {
	case netPremium > 0:
		bias = BiasCall
	case netPremium < 0:
		bias = BiasPut
	}

	totalCallOI, totalPutOI := chain.TotalOI(c)

	return &Result{
		Ticker:       ticker,
		CurrentPrice: currentPrice,
		MaxPainPrice: maxPainPrice,
		PctChange:    (maxPainPrice - currentPrice) / currentPrice * 100,
		NetPremium:   netPremium,
		PremiumBias:  bias,
		TotalCallOI:  totalCallOI,
		TotalPutOI:   totalPutOI,
		MinPayout:    minPayout,
		ComputedAt:   time.Now(),
	}, nil
}
