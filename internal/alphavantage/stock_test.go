package alphavantage

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"stockconsensus/internal/fetcher"
)

func newTestFetcher(apiKey, baseURL string) *StockFetcher {
	return NewStockFetcher(apiKey, baseURL, fetcher.ClientOptions{Timeout: time.Second})
}

func reasonType(t *testing.T, r fetcher.Reading) fetcher.ErrorType {
	t.Helper()
	var fe *fetcher.FetchError
	if !errors.As(r.Reason, &fe) {
		t.Fatalf("Reason = %v, want *fetcher.FetchError", r.Reason)
	}
	return fe.Type
}

func TestNewStockFetcher(t *testing.T) {
	apiKey := "test_api_key"
	baseURL := "https://www.alphavantage.co/query"

	f := newTestFetcher(apiKey, baseURL)

	if f == nil {
		t.Fatal("NewStockFetcher() returned nil")
	}

	if f.apiKey != apiKey {
		t.Errorf("apiKey = %q, want %q", f.apiKey, apiKey)
	}

	if f.client == nil {
		t.Error("client is nil")
	}

	if got := f.Name(); got != SourceName {
		t.Errorf("Name() = %q, want %q", got, SourceName)
	}
}

func TestStockFetcher_Fetch_Success(t *testing.T) {
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// Verify query parameters
		if r.URL.Query().Get("function") != "GLOBAL_QUOTE" {
			t.Errorf("function = %q, want GLOBAL_QUOTE", r.URL.Query().Get("function"))
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{
			"Global Quote": {
				"01. symbol": "AAPL",
				"02. open": "175.50",
				"03. high": "178.75",
				"04. low": "174.25",
				"05. price": "178.23",
				"06. volume": "50000000",
				"07. latest trading day": "2024-01-15",
				"08. previous close": "176.50",
				"09. change": "1.73",
				"10. change percent": "0.98%"
			}
		}`))
	})

	server := httptest.NewServer(handler)
	defer server.Close()

	f := newTestFetcher("test_key", server.URL)

	reading := f.Fetch(context.Background(), "AAPL")
	if !reading.Valid() {
		t.Fatalf("Fetch() returned unavailable reading: %v", reading.Reason)
	}

	expected := 178.23
	if reading.Price != expected {
		t.Errorf("Fetch() = %.2f, want %.2f", reading.Price, expected)
	}
}

func TestStockFetcher_Fetch_DifferentStocks(t *testing.T) {
	tests := []struct {
		ticker string
		price  string
		want   float64
	}{
		{"AAPL", "178.23", 178.23},
		{"GOOGL", "142.56", 142.56},
		{"MSFT", "378.91", 378.91},
		{"TSLA", "250.00", 250.00},
	}

	for _, tt := range tests {
		t.Run(tt.ticker, func(t *testing.T) {
			handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusOK)
				w.Write([]byte(`{
					"Global Quote": {
						"01. symbol": "` + tt.ticker + `",
						"05. price": "` + tt.price + `"
					}
				}`))
			})

			server := httptest.NewServer(handler)
			defer server.Close()

			reading := newTestFetcher("test_key", server.URL).Fetch(context.Background(), tt.ticker)
			if !reading.Valid() {
				t.Fatalf("Fetch() returned unavailable reading: %v", reading.Reason)
			}

			if reading.Price != tt.want {
				t.Errorf("Fetch() = %.2f, want %.2f", reading.Price, tt.want)
			}
		})
	}
}

func TestStockFetcher_Fetch_FallsBackToPreviousClose(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{
			"Global Quote": {
				"01. symbol": "AAPL",
				"08. previous close": "176.50"
			}
		}`))
	}))
	defer server.Close()

	reading := newTestFetcher("test_key", server.URL).Fetch(context.Background(), "AAPL")
	if !reading.Valid() {
		t.Fatalf("Fetch() returned unavailable reading: %v", reading.Reason)
	}
	if reading.Price != 176.50 {
		t.Errorf("Fetch() = %.2f, want 176.50", reading.Price)
	}
}

func TestStockFetcher_Fetch_HTTPError(t *testing.T) {
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	})

	server := httptest.NewServer(handler)
	defer server.Close()

	reading := newTestFetcher("test_key", server.URL).Fetch(context.Background(), "AAPL")
	if reading.Available {
		t.Fatal("Fetch() expected unavailable reading, got a price")
	}

	if got := reasonType(t, reading); got != fetcher.ErrorTypeServer {
		t.Errorf("reason type = %q, want %q", got, fetcher.ErrorTypeServer)
	}
}

func TestStockFetcher_Fetch_MissingPrice(t *testing.T) {
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{
			"Global Quote": {
				"01. symbol": "AAPL"
			}
		}`))
	})

	server := httptest.NewServer(handler)
	defer server.Close()

	reading := newTestFetcher("test_key", server.URL).Fetch(context.Background(), "AAPL")
	if reading.Available {
		t.Fatal("Fetch() expected unavailable reading for missing price")
	}

	expectedErrMsg := "validation error: price not found in response for AAPL"
	if reading.Reason.Error() != expectedErrMsg {
		t.Errorf("Fetch() reason = %q, want %q", reading.Reason.Error(), expectedErrMsg)
	}
}

func TestStockFetcher_Fetch_InvalidPrice(t *testing.T) {
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{
			"Global Quote": {
				"01. symbol": "AAPL",
				"05. price": "invalid_number"
			}
		}`))
	})

	server := httptest.NewServer(handler)
	defer server.Close()

	reading := newTestFetcher("test_key", server.URL).Fetch(context.Background(), "AAPL")
	if reading.Available {
		t.Error("Fetch() expected unavailable reading for invalid price")
	}
}

func TestStockFetcher_Fetch_UnknownSymbol(t *testing.T) {
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"Global Quote": {}}`))
	})

	server := httptest.NewServer(handler)
	defer server.Close()

	reading := newTestFetcher("test_key", server.URL).Fetch(context.Background(), "NOPE")
	if reading.Available {
		t.Fatal("Fetch() expected unavailable reading for unknown symbol")
	}
	if got := reasonType(t, reading); got != fetcher.ErrorTypeNotFound {
		t.Errorf("reason type = %q, want %q", got, fetcher.ErrorTypeNotFound)
	}
}

func TestStockFetcher_Fetch_RateLimitResponse(t *testing.T) {
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{
			"Note": "Thank you for using Alpha Vantage! Our standard API call frequency is 5 calls per minute."
		}`))
	})

	server := httptest.NewServer(handler)
	defer server.Close()

	reading := newTestFetcher("test_key", server.URL).Fetch(context.Background(), "AAPL")
	if reading.Available {
		t.Fatal("Fetch() expected unavailable reading for rate limit response")
	}
	if got := reasonType(t, reading); got != fetcher.ErrorTypeRateLimit {
		t.Errorf("reason type = %q, want %q", got, fetcher.ErrorTypeRateLimit)
	}
}

func TestStockFetcher_Fetch_ContextCancellation(t *testing.T) {
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// Server will be slow to respond
		<-r.Context().Done()
	})

	server := httptest.NewServer(handler)
	defer server.Close()

	f := newTestFetcher("test_key", server.URL)

	// Create a context that is already cancelled
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	reading := f.Fetch(ctx, "AAPL")
	if reading.Available {
		t.Error("Fetch() expected unavailable reading for cancelled context")
	}
}

func TestStockFetcher_Fetch_VerifyQueryParams(t *testing.T) {
	apiKey := "test_api_key_123"
	ticker := "GOOGL"

	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// Verify all query parameters
		if got := r.URL.Query().Get("apikey"); got != apiKey {
			t.Errorf("apikey = %q, want %q", got, apiKey)
		}
		if got := r.URL.Query().Get("function"); got != "GLOBAL_QUOTE" {
			t.Errorf("function = %q, want GLOBAL_QUOTE", got)
		}
		if got := r.URL.Query().Get("symbol"); got != ticker {
			t.Errorf("symbol = %q, want %q", got, ticker)
		}
		if got := r.Header.Get("User-Agent"); got == "" {
			t.Error("User-Agent header not set")
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{
			"Global Quote": {
				"01. symbol": "GOOGL",
				"05. price": "142.56"
			}
		}`))
	})

	server := httptest.NewServer(handler)
	defer server.Close()

	reading := newTestFetcher(apiKey, server.URL).Fetch(context.Background(), ticker)
	if !reading.Valid() {
		t.Fatalf("Fetch() returned unavailable reading: %v", reading.Reason)
	}
}
