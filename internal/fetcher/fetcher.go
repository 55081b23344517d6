package fetcher

import "context"

//go:generate mockgen -destination=mocks/fetcher.go -package=mocks . Fetcher

// Fetcher is the contract every price source implements.
// A Fetcher asks one third-party provider for the current price of a symbol
// and folds every provider-specific failure into an unavailable Reading.
type Fetcher interface {
	// Fetch returns the provider's current price for symbol.
	// It never panics and never reports failure other than through the Reading.
	Fetch(ctx context.Context, symbol string) Reading

	// Name returns the stable provider identifier, e.g. "YahooFinance".
	// It is used as a key in aggregation results, never for dispatch.
	Name() string
}
