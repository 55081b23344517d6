package engine

import (
	"errors"
	"fmt"
	"time"

	"stockconsensus/internal/consensus"
	"stockconsensus/internal/fetcher"
)

// DefaultPacingDelay separates consecutive source calls within one Fetch
const DefaultPacingDelay = 300 * time.Millisecond

// Config holds the tunables of the aggregation pipeline
type Config struct {
	// MinSources is the number of valid, agreeing readings a price needs
	MinSources int
	// MaxDeviationPct is the allowed distance from the median, in percent
	MaxDeviationPct float64
	// RequestTimeout bounds each source call
	RequestTimeout time.Duration
	// PacingDelay is waited between source calls
	PacingDelay time.Duration
}

// DefaultConfig returns the reference settings
func DefaultConfig() Config {
	return Config{
		MinSources:      consensus.DefaultMinSources,
		MaxDeviationPct: consensus.DefaultMaxDeviationPct,
		RequestTimeout:  fetcher.DefaultRequestTimeout,
		PacingDelay:     DefaultPacingDelay,
	}
}

// Validate reports every invalid field
func (c Config) Validate() error {
	var errs []error
	if c.MinSources < 1 {
		errs = append(errs, fmt.Errorf("min sources must be at least 1, got %d", c.MinSources))
	}
	if c.MaxDeviationPct <= 0 {
		errs = append(errs, fmt.Errorf("max deviation must be positive, got %g", c.MaxDeviationPct))
	}
	if c.RequestTimeout <= 0 {
		errs = append(errs, fmt.Errorf("request timeout must be positive, got %s", c.RequestTimeout))
	}
	if c.PacingDelay < 0 {
		errs = append(errs, fmt.Errorf("pacing delay must not be negative, got %s", c.PacingDelay))
	}
	return errors.Join(errs...)
}
