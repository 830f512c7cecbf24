package chain

import (
	"errors"
	"fmt"
)

// ErrInvalid indicates an option chain that violates the canonical
// contract: non-empty, strikes positive and strictly increasing,
// open interest non-negative.
var ErrInvalid = errors.New("invalid option chain")

// Row is one strike of the canonical option chain. CallOI and PutOI
// are the outstanding contract counts on each side of the strike.
type Row struct {
	Strike float64
	CallOI int64
	PutOI  int64
}

// Chain is the normalized, source-independent option chain: rows
// ordered ascending by strike, one row per strike. A Chain is built
// once by a source adapter and never mutated afterward.
type Chain []Row

// Validate checks the canonical chain contract. Every source adapter
// must route its output through Validate before returning; an adapter
// that would produce an invalid chain fails instead of returning a
// partial one.
func Validate(c Chain) error {
	if len(c) == 0 {
		return fmt.Errorf("%w: no strikes", ErrInvalid)
	}
	for i, row := range c {
		if row.Strike <= 0 {
			return fmt.Errorf("%w: non-positive strike %g at row %d", ErrInvalid, row.Strike, i)
		}
		if row.CallOI < 0 || row.PutOI < 0 {
			return fmt.Errorf("%w: negative open interest at strike %g", ErrInvalid, row.Strike)
		}
		if i > 0 && row.Strike <= c[i-1].Strike {
			return fmt.Errorf("%w: strikes not strictly increasing at row %d (%g after %g)",
				ErrInvalid, i, row.Strike, c[i-1].Strike)
		}
	}
	return nil
}

// TotalOI returns the summed call and put open interest across the chain.
func TotalOI(c Chain) (callOI, putOI int64) {
	for _, row := range c {
		callOI += row.CallOI
		putOI += row.PutOI
	}
	return callOI, putOI
}
