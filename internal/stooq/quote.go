// Package stooq reads last-trade quotes from stooq.com.
package stooq

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"resty.dev/v3"

	"stockconsensus/internal/fetcher"
)

// SourceName identifies Stooq in aggregation results
const SourceName = "Stooq"

const (
	quotePath = "/q/l/"
	// fields requested: symbol, date, time, open, high, low, close, volume
	quoteFields = "sd2t2ohlcv"
	// US listings are addressed as TICKER.US
	marketSuffix = ".US"
)

// QuoteResponse is the JSON shape of the light quote endpoint.
// Close is raw because Stooq sends the string "N/A" for unknown symbols.
type QuoteResponse struct {
	Symbols []struct {
		Symbol string          `json:"symbol"`
		Close  json.RawMessage `json:"close"`
	} `json:"symbols"`
}

// QuoteFetcher fetches stock prices from Stooq
type QuoteFetcher struct {
	client *resty.Client
}

// NewQuoteFetcher creates a new Stooq fetcher
func NewQuoteFetcher(baseURL string, opts fetcher.ClientOptions) *QuoteFetcher {
	return &QuoteFetcher{client: fetcher.NewHTTPClient(baseURL, opts)}
}

// Name implements fetcher.Fetcher
func (f *QuoteFetcher) Name() string {
	return SourceName
}

// Fetch implements fetcher.Fetcher
func (f *QuoteFetcher) Fetch(ctx context.Context, symbol string) fetcher.Reading {
	price, err := f.fetch(ctx, symbol)
	if err != nil {
		return fetcher.Collapse(SourceName, symbol, err)
	}
	return fetcher.PriceReading(price)
}

func (f *QuoteFetcher) fetch(ctx context.Context, symbol string) (float64, error) {
	resp, err := f.client.R().
		SetContext(ctx).
		SetQueryParam("s", strings.ToUpper(symbol)+marketSuffix).
		SetQueryParam("f", quoteFields).
		SetQueryParam("h", "").
		SetQueryParam("e", "json").
		Get(quotePath)

	if err != nil {
		return 0, fmt.Errorf("failed to fetch stooq quote for %s: %w", symbol, err)
	}

	if !resp.IsSuccess() {
		return 0, fetcher.ClassifyHTTPError(resp.StatusCode())
	}

	// Stooq does not reliably label the body as JSON, so decode it directly.
	var result QuoteResponse
	if err := json.Unmarshal(resp.Bytes(), &result); err != nil {
		return 0, fetcher.NewValidationError(fmt.Sprintf("malformed response for %s: %v", symbol, err))
	}

	if len(result.Symbols) == 0 {
		return 0, fetcher.NewNotFoundError(symbol)
	}

	return parseClose(symbol, result.Symbols[0].Close)
}

func parseClose(symbol string, raw json.RawMessage) (float64, error) {
	if len(raw) == 0 || string(raw) == "null" {
		return 0, fetcher.NewValidationError(fmt.Sprintf("close price unavailable for %s", symbol))
	}

	var n float64
	if err := json.Unmarshal(raw, &n); err == nil {
		return n, nil
	}

	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return 0, fetcher.NewValidationError(fmt.Sprintf("unexpected close value %s", raw))
	}
	if s == "N/A" {
		return 0, fetcher.NewNotFoundError(symbol)
	}

	price, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, fetcher.NewValidationError(fmt.Sprintf("failed to parse close price %q", s))
	}
	return price, nil
}
