package testutil

import (
	"context"
	"errors"

	"stockconsensus/internal/fetcher"
)

// ErrUnavailable is the reason attached to readings from NewFailingFetcher
var ErrUnavailable = errors.New("mock source unavailable")

// MockFetcher is a mock implementation of the Fetcher interface for testing
type MockFetcher struct {
	FetchFunc func(ctx context.Context, symbol string) fetcher.Reading
	NameFunc  func() string
}

// Fetch implements the Fetcher interface
func (m *MockFetcher) Fetch(ctx context.Context, symbol string) fetcher.Reading {
	if m.FetchFunc != nil {
		return m.FetchFunc(ctx, symbol)
	}
	return fetcher.Unavailable(ErrUnavailable)
}

// Name implements the Fetcher interface
func (m *MockFetcher) Name() string {
	if m.NameFunc != nil {
		return m.NameFunc()
	}
	return "Mock"
}

// NewMockFetcher creates a mock fetcher that always quotes price
func NewMockFetcher(name string, price float64) fetcher.Fetcher {
	return &MockFetcher{
		FetchFunc: func(ctx context.Context, symbol string) fetcher.Reading {
			return fetcher.PriceReading(price)
		},
		NameFunc: func() string {
			return name
		},
	}
}

// NewFailingFetcher creates a mock fetcher that is always unavailable
func NewFailingFetcher(name string) fetcher.Fetcher {
	return &MockFetcher{
		FetchFunc: func(ctx context.Context, symbol string) fetcher.Reading {
			return fetcher.Unavailable(ErrUnavailable)
		},
		NameFunc: func() string {
			return name
		},
	}
}
