package presenter

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"stockconsensus/internal/engine"
	"stockconsensus/internal/fetcher"
	"stockconsensus/internal/testutil"
)

type fetchFunc func(ctx context.Context, symbol string) engine.Result

func (f fetchFunc) Fetch(ctx context.Context, symbol string) engine.Result { return f(ctx, symbol) }

func receive(t *testing.T, ch <-chan engine.Result) engine.Result {
	t.Helper()
	select {
	case r := <-ch:
		return r
	case <-time.After(5 * time.Second):
		t.Fatal("no result delivered")
		return engine.Result{}
	}
}

func TestFetchAsync_DeliversEngineResult(t *testing.T) {
	eng, err := engine.New(engine.Config{
		MinSources:      1,
		MaxDeviationPct: 0.5,
		RequestTimeout:  time.Second,
	}, []fetcher.Fetcher{testutil.NewMockFetcher("Stooq", 12.34)})
	require.NoError(t, err)

	r := receive(t, FetchAsync(context.Background(), eng, "ge"))

	require.True(t, r.OK())
	assert.Equal(t, "GE", r.Symbol)
	assert.Equal(t, 12.34, r.Price)
}

func TestFetchAsync_DoesNotBlockCaller(t *testing.T) {
	release := make(chan struct{})
	slow := fetchFunc(func(ctx context.Context, symbol string) engine.Result {
		<-release
		return engine.Result{Symbol: symbol}
	})

	ch := FetchAsync(context.Background(), slow, "AAPL")

	select {
	case <-ch:
		t.Fatal("result delivered before the fetch finished")
	default:
	}

	close(release)
	assert.Equal(t, "AAPL", receive(t, ch).Symbol)
}

func TestFetchAsync_PanicBecomesEngineException(t *testing.T) {
	broken := fetchFunc(func(context.Context, string) engine.Result {
		panic("source list corrupted")
	})

	r := receive(t, FetchAsync(context.Background(), broken, "AAPL"))

	require.False(t, r.OK())
	assert.Equal(t, engine.EngineException, r.Failure.Kind)
	assert.Equal(t, "source list corrupted", r.Failure.Message)
	assert.False(t, r.FetchedAt.IsZero())
	assert.Zero(t, r.Confidence)
}
