// Package presenter runs price lookups off the caller's goroutine and renders
// their results for people and scripts.
package presenter

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/sourcegraph/conc/panics"

	"stockconsensus/internal/engine"
)

// PriceFetcher is the part of engine.Engine the presenter depends on
type PriceFetcher interface {
	Fetch(ctx context.Context, symbol string) engine.Result
}

// FetchAsync runs f.Fetch on its own goroutine and delivers exactly one result
// on the returned channel. A panic inside Fetch is reported as an
// ENGINE_EXCEPTION result instead of crashing the caller.
func FetchAsync(ctx context.Context, f PriceFetcher, symbol string) <-chan engine.Result {
	out := make(chan engine.Result, 1)

	go func() {
		var (
			result engine.Result
			pc     panics.Catcher
		)

		pc.Try(func() {
			result = f.Fetch(ctx, symbol)
		})

		if r := pc.Recovered(); r != nil {
			slog.Error("engine exception", "symbol", symbol, "panic", fmt.Sprint(r.Value))
			result = engine.Exception(fmt.Sprint(r.Value), time.Now().UTC())
		}

		out <- result
	}()

	return out
}
