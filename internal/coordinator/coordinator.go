// Package coordinator queries every source for one symbol at the same time
// and reports each raw reading. It backs the CLI's --probe mode, which checks
// source health without running the consensus algorithm.
package coordinator

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/sourcegraph/conc/iter"

	"stockconsensus/internal/fetcher"
)

// Probe is the raw reading of one source
type Probe struct {
	Source  string
	Reading fetcher.Reading
}

// Coordinator manages concurrent fetchers for diagnostics
type Coordinator struct {
	fetchers []fetcher.Fetcher
}

// New creates a new Coordinator with the given fetchers
func New(fetchers []fetcher.Fetcher) *Coordinator {
	return &Coordinator{
		fetchers: fetchers,
	}
}

// Probe calls every fetcher concurrently and returns their readings in
// registration order. There is no pacing between calls.
func (c *Coordinator) Probe(ctx context.Context, symbol string) ([]Probe, error) {
	if len(c.fetchers) == 0 {
		return nil, errors.New("no fetchers configured")
	}

	symbol = strings.ToUpper(strings.TrimSpace(symbol))
	if symbol == "" {
		return nil, errors.New("symbol must not be empty")
	}

	return iter.Map(c.fetchers, func(f *fetcher.Fetcher) Probe {
		src := *f
		return Probe{Source: src.Name(), Reading: src.Fetch(ctx, symbol)}
	}), nil
}

// Run probes every fetcher for symbol and writes one line per source to w:
//   - Success: "NAME: $VALUE"
//   - Unavailable: "NAME: ERROR - reason"
//
// It returns the number of sources that produced a valid price.
func (c *Coordinator) Run(ctx context.Context, symbol string, w io.Writer) (int, error) {
	probes, err := c.Probe(ctx, symbol)
	if err != nil {
		return 0, err
	}

	valid := 0
	for _, p := range probes {
		if p.Reading.Valid() {
			valid++
			fmt.Fprintf(w, "%s: $%.2f\n", p.Source, p.Reading.Price)
			continue
		}

		reason := "no price"
		if p.Reading.Reason != nil {
			reason = p.Reading.Reason.Error()
		}
		fmt.Fprintf(w, "%s: ERROR - %s\n", p.Source, reason)
	}

	return valid, nil
}
