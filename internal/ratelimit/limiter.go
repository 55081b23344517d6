package ratelimit

import (
	"context"
	"fmt"
	"sync"

	"golang.org/x/time/rate"

	"stockconsensus/internal/fetcher"
)

// Limiter holds one request budget per source name
type Limiter struct {
	limiters map[string]*rate.Limiter
	mu       sync.RWMutex
}

// New creates an empty Limiter. Sources without a budget are never throttled.
func New() *Limiter {
	return &Limiter{limiters: make(map[string]*rate.Limiter)}
}

// SetLimit installs a budget of perSecond requests for source.
// A non-positive rate removes the budget.
func (l *Limiter) SetLimit(source string, perSecond float64, burst int) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if perSecond <= 0 {
		delete(l.limiters, source)
		return
	}
	if burst < 1 {
		burst = 1
	}
	l.limiters[source] = rate.NewLimiter(rate.Limit(perSecond), burst)
}

// Wait blocks until the budget for source permits a request.
// It returns an error if the context is canceled before the request can proceed.
func (l *Limiter) Wait(ctx context.Context, source string) error {
	l.mu.RLock()
	limiter, exists := l.limiters[source]
	l.mu.RUnlock()

	if !exists {
		return nil
	}

	return limiter.Wait(ctx)
}

// Allow reports whether a request for source may happen now
func (l *Limiter) Allow(source string) bool {
	l.mu.RLock()
	limiter, exists := l.limiters[source]
	l.mu.RUnlock()

	if !exists {
		return true
	}

	return limiter.Allow()
}

// Wrap returns f gated by the budget registered for f.Name()
func (l *Limiter) Wrap(f fetcher.Fetcher) fetcher.Fetcher {
	return &limited{next: f, limiter: l}
}

// limited is a Fetcher that waits for its source budget before each call
type limited struct {
	next    fetcher.Fetcher
	limiter *Limiter
}

func (w *limited) Name() string { return w.next.Name() }

func (w *limited) Fetch(ctx context.Context, symbol string) fetcher.Reading {
	if err := w.limiter.Wait(ctx, w.next.Name()); err != nil {
		return fetcher.Collapse(w.next.Name(), symbol, fmt.Errorf("waiting for request budget: %w", err))
	}
	return w.next.Fetch(ctx, symbol)
}
