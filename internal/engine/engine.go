// Package engine turns readings from several price sources into one
// consensus price with a confidence score.
//
// Each Fetch is an independent pipeline: gather readings from every source in
// registration order, keep the valid ones, check there are enough, reconcile
// them, score the result. The Engine itself holds no mutable state and may be
// shared between goroutines.
package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"time"

	"stockconsensus/internal/consensus"
	"stockconsensus/internal/fetcher"
	"stockconsensus/internal/marketclock"
)

// Engine aggregates prices from a fixed, ordered set of sources
type Engine struct {
	sources []fetcher.Fetcher
	cfg     Config
	now     func() time.Time
	logger  *slog.Logger
}

// Option customizes an Engine
type Option func(*Engine)

// WithClock replaces time.Now, which drives timestamps and the market state
func WithClock(now func() time.Time) Option {
	return func(e *Engine) {
		if now != nil {
			e.now = now
		}
	}
}

// WithLogger sets the logger used for diagnostics
func WithLogger(logger *slog.Logger) Option {
	return func(e *Engine) {
		if logger != nil {
			e.logger = logger
		}
	}
}

// New creates an Engine over sources. The slice is copied; its order is the
// order sources are queried and reported in.
func New(cfg Config, sources []fetcher.Fetcher, opts ...Option) (*Engine, error) {
	if len(sources) == 0 {
		return nil, errors.New("no sources configured")
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid engine config: %w", err)
	}

	e := &Engine{
		sources: slices.Clone(sources),
		cfg:     cfg,
		now:     time.Now,
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e, nil
}

// Sources returns the names of the registered sources in order
func (e *Engine) Sources() []string {
	names := make([]string, len(e.sources))
	for i, s := range e.sources {
		names[i] = s.Name()
	}
	return names
}

// Fetch returns the consensus price for symbol. It blocks until every source
// has answered or timed out. ctx is only consulted between and during source
// calls; Fetch adds no cancellation of its own.
func (e *Engine) Fetch(ctx context.Context, symbol string) Result {
	symbol = strings.ToUpper(strings.TrimSpace(symbol))
	marketOpen := marketclock.IsOpen(e.now())

	if symbol == "" {
		return e.fail(InvalidSymbol, "symbol must not be empty", e.unavailable())
	}

	readings := e.gather(ctx, symbol)

	sources := make(SourcePrices, len(e.sources))
	rawPrices := make([]float64, 0, len(readings))
	for i, r := range readings {
		sources[i] = SourcePrice{Name: e.sources[i].Name()}
		if r.Valid() {
			sources[i].Price = r.Price
			sources[i].Available = true
			rawPrices = append(rawPrices, r.Price)
		}
	}
	validCount := len(rawPrices)

	e.logger.Info("scraped prices", "symbol", symbol, "prices", rawPrices)

	if validCount < e.cfg.MinSources {
		return e.fail(InsufficientData,
			fmt.Sprintf("Requires %d reliable sources, but only found %d", e.cfg.MinSources, validCount),
			sources)
	}

	price, ok := consensus.Price(rawPrices, e.cfg.MinSources, e.cfg.MaxDeviationPct)
	if !ok {
		e.logger.Warn("consensus failed",
			"symbol", symbol,
			"prices", rawPrices,
			"max_deviation_pct", e.cfg.MaxDeviationPct)
		return e.fail(LowConfidence,
			fmt.Sprintf("Prices deviated by more than %g%%. Check raw prices.", e.cfg.MaxDeviationPct),
			sources)
	}

	return Result{
		Symbol:     symbol,
		Price:      price,
		Confidence: consensus.Confidence(validCount, len(e.sources), true),
		Sources:    sources,
		MarketOpen: marketOpen,
		FetchedAt:  e.now().UTC(),
	}
}

// gather queries every source in order, pacing consecutive calls
func (e *Engine) gather(ctx context.Context, symbol string) []fetcher.Reading {
	readings := make([]fetcher.Reading, len(e.sources))

	for i, src := range e.sources {
		if i > 0 {
			if err := pause(ctx, e.cfg.PacingDelay); err != nil {
				readings[i] = fetcher.Collapse(src.Name(), symbol, err)
				continue
			}
		}

		readings[i] = e.query(ctx, src, symbol)

		e.logger.Debug("source reading",
			"source", src.Name(),
			"symbol", symbol,
			"available", readings[i].Available,
			"price", readings[i].Price)
	}

	return readings
}

func (e *Engine) query(ctx context.Context, src fetcher.Fetcher, symbol string) fetcher.Reading {
	callCtx, cancel := context.WithTimeout(ctx, e.cfg.RequestTimeout)
	defer cancel()

	return src.Fetch(callCtx, symbol)
}

func (e *Engine) unavailable() SourcePrices {
	sources := make(SourcePrices, len(e.sources))
	for i, s := range e.sources {
		sources[i] = SourcePrice{Name: s.Name()}
	}
	return sources
}

func (e *Engine) fail(kind ErrorKind, message string, sources SourcePrices) Result {
	return Result{
		Sources:   sources,
		FetchedAt: e.now().UTC(),
		Failure:   &Failure{Kind: kind, Message: message},
	}
}

// pause waits d or until ctx is done
func pause(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}

	t := time.NewTimer(d)
	defer t.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
