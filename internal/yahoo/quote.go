// Package yahoo reads quotes from the Yahoo Finance v7 quote endpoint.
package yahoo

import (
	"context"
	"fmt"

	"resty.dev/v3"

	"stockconsensus/internal/fetcher"
)

// SourceName identifies Yahoo Finance in aggregation results
const SourceName = "YahooFinance"

const quotePath = "/v7/finance/quote"

// QuoteResponse is the subset of the v7 quote payload we read.
// Prices are pointers so an absent field is distinguishable from zero.
type QuoteResponse struct {
	QuoteResponse struct {
		Result []Quote `json:"result"`
	} `json:"quoteResponse"`
}

// Quote is one entry of QuoteResponse
type Quote struct {
	Symbol             string   `json:"symbol"`
	MarketState        string   `json:"marketState"`
	RegularMarketPrice *float64 `json:"regularMarketPrice"`
	PostMarketPrice    *float64 `json:"postMarketPrice"`
	PreMarketPrice     *float64 `json:"preMarketPrice"`
}

// QuoteFetcher fetches stock prices from Yahoo Finance
type QuoteFetcher struct {
	client *resty.Client
}

// NewQuoteFetcher creates a new Yahoo Finance fetcher
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
	var result QuoteResponse

	resp, err := f.client.R().
		SetContext(ctx).
		SetQueryParam("symbols", symbol).
		SetResult(&result).
		Get(quotePath)

	if err != nil {
		return 0, fmt.Errorf("failed to fetch yahoo quote for %s: %w", symbol, err)
	}

	if !resp.IsSuccess() {
		return 0, fetcher.ClassifyHTTPError(resp.StatusCode())
	}

	if len(result.QuoteResponse.Result) == 0 {
		return 0, fetcher.NewNotFoundError(symbol)
	}

	price, ok := result.QuoteResponse.Result[0].LatestPrice()
	if !ok {
		return 0, fetcher.NewValidationError(fmt.Sprintf("price not found in response for %s", symbol))
	}

	return price, nil
}

// LatestPrice prefers the regular session price. Outside the session Yahoo may
// omit it, so the post-market and then pre-market quotes are used instead.
func (q Quote) LatestPrice() (float64, bool) {
	if q.RegularMarketPrice != nil {
		return *q.RegularMarketPrice, true
	}
	for _, p := range []*float64{q.PostMarketPrice, q.PreMarketPrice} {
		if p != nil && *p != 0 {
			return *p, true
		}
	}
	return 0, false
}
