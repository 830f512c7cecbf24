package source

import "errors"

var (
	// ErrDataNotFound means no raw option data exists for the ticker at
	// this source (missing file, unknown symbol, no listed expirations).
	ErrDataNotFound = errors.New("no option data found for ticker")

	// ErrMalformedSource means raw data was located but lacks the
	// structure the adapter requires (marker line, required columns).
	ErrMalformedSource = errors.New("malformed source data")

	// ErrExpirationResolution means the requested expiration could not
	// be resolved against the source's available dates.
	ErrExpirationResolution = errors.New("expiration could not be resolved")

	// ErrConfiguration means an unrecognized source identifier or
	// resolution strategy. It aborts the run before any ticker is
	// processed.
	ErrConfiguration = errors.New("invalid data source configuration")
)
