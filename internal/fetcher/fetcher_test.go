package fetcher

import (
	"context"
	"errors"
	"fmt"
	"math"
	"net"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReading_Valid(t *testing.T) {
	tests := []struct {
		name    string
		reading Reading
		want    bool
	}{
		{"positive price", PriceReading(150.25), true},
		{"zero", PriceReading(0), false},
		{"negative", PriceReading(-1), false},
		{"NaN", PriceReading(math.NaN()), false},
		{"+Inf", PriceReading(math.Inf(1)), false},
		{"unavailable", Unavailable(errors.New("boom")), false},
		{"unavailable with stray price", Reading{Price: 10}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.reading.Valid())
		})
	}
}

func TestClassifyHTTPError(t *testing.T) {
	tests := []struct {
		status    int
		wantType  ErrorType
		retryable bool
	}{
		{429, ErrorTypeRateLimit, true},
		{500, ErrorTypeServer, true},
		{503, ErrorTypeServer, true},
		{404, ErrorTypeClient, false},
		{401, ErrorTypeClient, false},
		{302, ErrorTypeUnknown, false},
	}

	for _, tt := range tests {
		t.Run(fmt.Sprint(tt.status), func(t *testing.T) {
			err := ClassifyHTTPError(tt.status)
			assert.Equal(t, tt.wantType, err.Type)
			assert.Equal(t, tt.retryable, err.Retryable)
			assert.Equal(t, tt.status, err.StatusCode)
		})
	}
}

type timeoutError struct{}

func (timeoutError) Error() string   { return "i/o timeout" }
func (timeoutError) Timeout() bool   { return true }
func (timeoutError) Temporary() bool { return true }

var _ net.Error = timeoutError{}

func TestClassifyTransportError(t *testing.T) {
	validation := NewValidationError("no price")
	assert.Same(t, validation, ClassifyTransportError(fmt.Errorf("wrapped: %w", validation)))

	deadline := ClassifyTransportError(fmt.Errorf("get: %w", context.DeadlineExceeded))
	assert.Equal(t, ErrorTypeTimeout, deadline.Type)
	assert.ErrorIs(t, deadline, context.DeadlineExceeded)

	netTimeout := ClassifyTransportError(timeoutError{})
	assert.Equal(t, ErrorTypeTimeout, netTimeout.Type)

	refused := ClassifyTransportError(errors.New("connection refused"))
	assert.Equal(t, ErrorTypeNetwork, refused.Type)
}

func TestFetchError_Error(t *testing.T) {
	assert.Equal(t, "server error (status 502): server returned an error", NewServerError(502).Error())
	assert.Equal(t, "not_found error: symbol ZZZZ not found", NewNotFoundError("ZZZZ").Error())
}

func TestCollapse(t *testing.T) {
	r := Collapse("Stooq", "AAPL", NewNotFoundError("AAPL"))

	assert.False(t, r.Available)
	assert.False(t, r.Valid())

	var fe *FetchError
	require.ErrorAs(t, r.Reason, &fe)
	assert.Equal(t, ErrorTypeNotFound, fe.Type)
}
