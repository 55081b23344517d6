package fetcher

import (
	"log/slog"
	"time"

	"resty.dev/v3"
)

const (
	// DefaultRequestTimeout bounds a single provider request
	DefaultRequestTimeout = 5 * time.Second

	defaultRetryWaitTime    = 200 * time.Millisecond
	defaultRetryMaxWaitTime = 1 * time.Second
)

// browserHeaders mimic a desktop browser; several quote endpoints reject bare clients.
var browserHeaders = map[string]string{
	"User-Agent":      "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0.0.0 Safari/537.36",
	"Accept":          "application/json",
	"Accept-Language": "en-US,en;q=0.9",
}

// ClientOptions tunes the shared HTTP client
type ClientOptions struct {
	Timeout    time.Duration
	RetryCount int
}

// NewHTTPClient creates an HTTP client with browser-like headers, a request
// timeout and retry with exponential backoff
func NewHTTPClient(baseURL string, opts ClientOptions) *resty.Client {
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = DefaultRequestTimeout
	}

	retries := opts.RetryCount
	if retries < 0 {
		retries = 0
	}

	client := resty.New().
		SetBaseURL(baseURL).
		SetHeaders(browserHeaders).
		SetTimeout(timeout).
		SetRetryCount(retries).
		SetRetryWaitTime(defaultRetryWaitTime).
		SetRetryMaxWaitTime(defaultRetryMaxWaitTime).
		AddRetryConditions(retryCondition).
		AddRetryHooks(retryHook)

	return client
}

// retryCondition determines whether a request should be retried based on the response and error
func retryCondition(r *resty.Response, err error) bool {
	// Retry on network errors
	if err != nil {
		return true
	}

	switch code := r.StatusCode(); {
	case code >= 500:
		return true
	case code == 429, code == 408:
		return true
	default:
		return false
	}
}

// retryHook logs retry attempts for observability
func retryHook(r *resty.Response, err error) {
	if err != nil {
		slog.Debug("retrying request due to error",
			"url", r.Request.URL,
			"attempt", r.Request.Attempt,
			"error", err.Error())
		return
	}

	slog.Debug("retrying request due to status code",
		"url", r.Request.URL,
		"attempt", r.Request.Attempt,
		"status_code", r.StatusCode())
}
