package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/spf13/pflag"

	"stockconsensus/internal/alphavantage"
	"stockconsensus/internal/config"
	"stockconsensus/internal/coordinator"
	"stockconsensus/internal/engine"
	"stockconsensus/internal/fetcher"
	"stockconsensus/internal/presenter"
	"stockconsensus/internal/ratelimit"
	"stockconsensus/internal/stooq"
	"stockconsensus/internal/yahoo"
)

func main() {
	// A missing .env is fine; real environment variables still apply
	_ = godotenv.Load()

	fs := newFlagSet()
	if err := fs.Parse(os.Args[1:]); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return
		}
		log.Fatalf("Failed to parse flags: %v", err)
	}

	if fs.NArg() != 1 {
		fmt.Fprintln(os.Stderr, "usage: stockconsensus [flags] SYMBOL")
		fs.PrintDefaults()
		os.Exit(2)
	}

	// Load configuration
	cfg, err := config.Load(fs)
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	setupLogging(cfg.LogLevel)

	format, err := presenter.ParseFormat(cfg.Output)
	if err != nil {
		log.Fatalf("Invalid output format: %v", err)
	}

	// Create context with cancellation for graceful shutdown
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	fetchers := buildFetchers(cfg)
	if len(fetchers) == 0 {
		log.Fatalf("No usable sources configured")
	}

	if probe, _ := fs.GetBool("probe"); probe {
		os.Exit(runProbe(ctx, coordinator.New(fetchers), fs.Arg(0), os.Stdout))
	}

	eng, err := engine.New(cfg.Engine(), fetchers, engine.WithLogger(slog.Default()))
	if err != nil {
		log.Fatalf("Failed to create engine: %v", err)
	}

	os.Exit(run(ctx, eng, fs.Arg(0), format, os.Stdout, os.Stderr))
}

func newFlagSet() *pflag.FlagSet {
	fs := pflag.NewFlagSet("stockconsensus", pflag.ContinueOnError)
	fs.Int("min-sources", 0, "valid, agreeing sources required for a price")
	fs.Float64("max-deviation", 0, "allowed distance from the median, in percent")
	fs.Duration("timeout", 0, "timeout for each source request")
	fs.Duration("pacing", 0, "delay between consecutive source requests")
	fs.StringSlice("sources", nil, "sources to query, in order (yahoo, stooq, alphavantage)")
	fs.Bool("probe", false, "query every source at once and print raw readings instead of a consensus")
	fs.String("log-level", "", "log level: debug, info, warn or error")
	fs.StringP("output", "o", "", "output format: text, json or yaml")
	return fs
}

// buildFetchers creates the enabled sources in configured order
func buildFetchers(cfg *config.Config) []fetcher.Fetcher {
	opts := fetcher.ClientOptions{
		Timeout:    cfg.RequestTimeout,
		RetryCount: cfg.RetryCount,
	}
	limiter := ratelimit.New()

	var fetchers []fetcher.Fetcher
	for _, name := range cfg.Sources {
		var f fetcher.Fetcher
		switch name {
		case config.SourceYahoo:
			f = yahoo.NewQuoteFetcher(cfg.YahooBaseURL, opts)
		case config.SourceStooq:
			f = stooq.NewQuoteFetcher(cfg.StooqBaseURL, opts)
		case config.SourceAlphavantage:
			if cfg.AlphavantageAPIKey == "" {
				slog.Debug("skipping alphavantage source: no API key configured")
				continue
			}
			f = alphavantage.NewStockFetcher(cfg.AlphavantageAPIKey, cfg.AlphavantageBaseURL, opts)
		default:
			continue
		}

		limiter.SetLimit(f.Name(), cfg.SourceRateLimit, 1)
		fetchers = append(fetchers, limiter.Wrap(f))
	}

	return fetchers
}

// run fetches symbol in the background, reports progress on status and writes
// the rendered result to out. It returns the process exit code.
func run(ctx context.Context, eng presenter.PriceFetcher, symbol string, format presenter.Format, out, status io.Writer) int {
	fmt.Fprintf(status, "Fetching price for %s...\n", symbol)

	result := <-presenter.FetchAsync(ctx, eng, symbol)

	if err := presenter.Render(out, result, format); err != nil {
		fmt.Fprintf(status, "failed to render result: %v\n", err)
		return 1
	}
	fmt.Fprintln(status, presenter.Status(result))

	if !result.OK() {
		return 1
	}
	return 0
}

// runProbe prints every source's raw reading for symbol. It exits 1 when no
// source produced a price.
func runProbe(ctx context.Context, coord *coordinator.Coordinator, symbol string, out io.Writer) int {
	valid, err := coord.Run(ctx, symbol, out)
	if err != nil {
		fmt.Fprintf(out, "probe failed: %v\n", err)
		return 1
	}
	if valid == 0 {
		return 1
	}
	return 0
}

func setupLogging(level string) {
	lvl, err := config.ParseLogLevel(level)
	if err != nil {
		lvl = slog.LevelInfo
	}
	handler := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: lvl})
	slog.SetDefault(slog.New(handler))
}
