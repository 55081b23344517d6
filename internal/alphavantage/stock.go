package alphavantage

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"resty.dev/v3"

	"stockconsensus/internal/fetcher"
)

// SourceName identifies AlphaVantage in aggregation results
const SourceName = "AlphaVantage"

// GlobalQuoteResponse represents the AlphaVantage API response for stock quotes
type GlobalQuoteResponse struct {
	GlobalQuote struct {
		Symbol           string `json:"01. symbol"`
		Open             string `json:"02. open"`
		High             string `json:"03. high"`
		Low              string `json:"04. low"`
		Price            string `json:"05. price"`
		Volume           string `json:"06. volume"`
		LatestTradingDay string `json:"07. latest trading day"`
		PreviousClose    string `json:"08. previous close"`
		Change           string `json:"09. change"`
		ChangePercent    string `json:"10. change percent"`
	} `json:"Global Quote"`

	// Note and Information are set instead of a quote when the key is throttled
	Note        string `json:"Note"`
	Information string `json:"Information"`
}

// StockFetcher fetches stock prices from AlphaVantage
type StockFetcher struct {
	apiKey string
	client *resty.Client
}

// NewStockFetcher creates a new stock price fetcher
func NewStockFetcher(apiKey, baseURL string, opts fetcher.ClientOptions) *StockFetcher {
	return &StockFetcher{
		apiKey: apiKey,
		client: fetcher.NewHTTPClient(baseURL, opts),
	}
}

// Name implements fetcher.Fetcher
func (f *StockFetcher) Name() string {
	return SourceName
}

// Fetch retrieves the current stock price, falling back to the previous close
// when the quote carries no latest price
func (f *StockFetcher) Fetch(ctx context.Context, symbol string) fetcher.Reading {
	price, err := f.fetch(ctx, symbol)
	if err != nil {
		return fetcher.Collapse(SourceName, symbol, err)
	}
	return fetcher.PriceReading(price)
}

func (f *StockFetcher) fetch(ctx context.Context, symbol string) (float64, error) {
	var result GlobalQuoteResponse

	resp, err := f.client.R().
		SetContext(ctx).
		SetQueryParams(map[string]string{
			"apikey":   f.apiKey,
			"function": "GLOBAL_QUOTE",
			"symbol":   symbol,
		}).
		SetResult(&result).
		Get("")

	if err != nil {
		return 0, fmt.Errorf("failed to fetch stock price for %s: %w", symbol, err)
	}

	if !resp.IsSuccess() {
		return 0, fetcher.ClassifyHTTPError(resp.StatusCode())
	}

	if result.Note != "" || result.Information != "" {
		return 0, fetcher.NewRateLimitError(resp.StatusCode())
	}

	if result.GlobalQuote.Symbol == "" {
		return 0, fetcher.NewNotFoundError(symbol)
	}

	raw := strings.TrimSpace(result.GlobalQuote.Price)
	if raw == "" {
		raw = strings.TrimSpace(result.GlobalQuote.PreviousClose)
	}
	if raw == "" {
		return 0, fetcher.NewValidationError(fmt.Sprintf("price not found in response for %s", symbol))
	}

	price, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, fetcher.NewValidationError(fmt.Sprintf("failed to parse stock price %q", raw))
	}

	return price, nil
}

