package config

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"stockconsensus/internal/engine"
)

// Source names accepted in the sources list
const (
	SourceYahoo        = "yahoo"
	SourceStooq        = "stooq"
	SourceAlphavantage = "alphavantage"
)

// Config holds all configuration for the stock consensus fetcher.
type Config struct {
	// Aggregation settings
	MinSources      int           `mapstructure:"min_sources"`
	MaxDeviationPct float64       `mapstructure:"max_deviation_pct"`
	RequestTimeout  time.Duration `mapstructure:"request_timeout"`
	PacingDelay     time.Duration `mapstructure:"pacing_delay"`
	RetryCount      int           `mapstructure:"retry_count"`

	// Enabled sources, in query order
	Sources []string `mapstructure:"sources"`
	// SourceRateLimit caps requests per second to each source; 0 disables it
	SourceRateLimit float64 `mapstructure:"source_rate_limit"`

	// Base URLs for API endpoints (configurable for testing)
	YahooBaseURL        string `mapstructure:"yahoo_base_url"`
	StooqBaseURL        string `mapstructure:"stooq_base_url"`
	AlphavantageBaseURL string `mapstructure:"alphavantage_base_url"`

	// AlphavantageAPIKey enables the AlphaVantage source when set
	AlphavantageAPIKey string `mapstructure:"alphavantage_api_key"`

	// Presentation
	LogLevel string `mapstructure:"log_level"`
	Output   string `mapstructure:"output"`
}

// envBindings maps config keys to environment variables
var envBindings = map[string]string{
	"min_sources":           "STOCKCONSENSUS_MIN_SOURCES",
	"max_deviation_pct":     "STOCKCONSENSUS_MAX_DEVIATION_PCT",
	"request_timeout":       "STOCKCONSENSUS_REQUEST_TIMEOUT",
	"pacing_delay":          "STOCKCONSENSUS_PACING_DELAY",
	"retry_count":           "STOCKCONSENSUS_RETRY_COUNT",
	"sources":               "STOCKCONSENSUS_SOURCES",
	"source_rate_limit":     "STOCKCONSENSUS_SOURCE_RATE_LIMIT",
	"yahoo_base_url":        "YAHOO_BASE_URL",
	"stooq_base_url":        "STOOQ_BASE_URL",
	"alphavantage_base_url": "ALPHAVANTAGE_BASE_URL",
	"alphavantage_api_key":  "ALPHAVANTAGE_API_KEY",
	"log_level":             "STOCKCONSENSUS_LOG_LEVEL",
	"output":                "STOCKCONSENSUS_OUTPUT",
}

// flagBindings maps config keys to command line flag names
var flagBindings = map[string]string{
	"min_sources":       "min-sources",
	"max_deviation_pct": "max-deviation",
	"request_timeout":   "timeout",
	"pacing_delay":      "pacing",
	"sources":           "sources",
	"log_level":         "log-level",
	"output":            "output",
}

func setDefaults(v *viper.Viper) {
	d := engine.DefaultConfig()
	v.SetDefault("min_sources", d.MinSources)
	v.SetDefault("max_deviation_pct", d.MaxDeviationPct)
	v.SetDefault("request_timeout", d.RequestTimeout)
	v.SetDefault("pacing_delay", d.PacingDelay)
	v.SetDefault("retry_count", 1)
	v.SetDefault("sources", []string{SourceYahoo, SourceStooq, SourceAlphavantage})
	v.SetDefault("source_rate_limit", 0)

	v.SetDefault("yahoo_base_url", "https://query1.finance.yahoo.com")
	v.SetDefault("stooq_base_url", "https://stooq.com")
	v.SetDefault("alphavantage_base_url", "https://www.alphavantage.co/query")

	v.SetDefault("log_level", "info")
	v.SetDefault("output", "text")
}

// Load reads configuration from environment variables and an optional config file.
// Flags in fs, when non-nil and explicitly set, take precedence over both.
//
// Environment variables are listed in envBindings; the config file is
// config.yaml in the working directory or $HOME/.stockconsensus.
func Load(fs *pflag.FlagSet) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	// Optionally read from config file if it exists
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("$HOME/.stockconsensus")

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	for key, env := range envBindings {
		if err := v.BindEnv(key, env); err != nil {
			return nil, fmt.Errorf("failed to bind %s: %w", env, err)
		}
	}

	if fs != nil {
		for key, name := range flagBindings {
			flag := fs.Lookup(name)
			if flag == nil {
				continue
			}
			if err := v.BindPFlag(key, flag); err != nil {
				return nil, fmt.Errorf("failed to bind flag --%s: %w", name, err)
			}
		}
	}

	config := &Config{}
	if err := v.Unmarshal(config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	config.Sources = normalizeSources(config.Sources)

	if err := config.Validate(); err != nil {
		return nil, err
	}

	return config, nil
}

// Validate reports every invalid field at once
func (c *Config) Validate() error {
	var errs []error

	if err := c.Engine().Validate(); err != nil {
		errs = append(errs, err)
	}
	if c.RetryCount < 0 {
		errs = append(errs, fmt.Errorf("retry_count must not be negative, got %d", c.RetryCount))
	}
	if c.SourceRateLimit < 0 {
		errs = append(errs, fmt.Errorf("source_rate_limit must not be negative, got %g", c.SourceRateLimit))
	}
	if len(c.Sources) == 0 {
		errs = append(errs, errors.New("at least one source must be enabled"))
	}
	for _, s := range c.Sources {
		switch s {
		case SourceYahoo, SourceStooq, SourceAlphavantage:
		default:
			errs = append(errs, fmt.Errorf("unknown source %q", s))
		}
	}
	if _, err := ParseLogLevel(c.LogLevel); err != nil {
		errs = append(errs, err)
	}

	if len(errs) > 0 {
		return fmt.Errorf("invalid configuration: %w", errors.Join(errs...))
	}
	return nil
}

// Engine returns the aggregation settings
func (c *Config) Engine() engine.Config {
	return engine.Config{
		MinSources:      c.MinSources,
		MaxDeviationPct: c.MaxDeviationPct,
		RequestTimeout:  c.RequestTimeout,
		PacingDelay:     c.PacingDelay,
	}
}

// SourceEnabled reports whether name is in the sources list
func (c *Config) SourceEnabled(name string) bool {
	for _, s := range c.Sources {
		if s == name {
			return true
		}
	}
	return false
}

// ParseLogLevel maps a level name to a slog.Level
func ParseLogLevel(s string) (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(strings.TrimSpace(s))); err != nil {
		return 0, fmt.Errorf("invalid log_level %q: %w", s, err)
	}
	return level, nil
}

func normalizeSources(in []string) []string {
	out := make([]string, 0, len(in))
	seen := make(map[string]bool, len(in))
	for _, s := range in {
		for _, part := range strings.Split(s, ",") {
			name := strings.ToLower(strings.TrimSpace(part))
			if name == "" || seen[name] {
				continue
			}
			seen[name] = true
			out = append(out, name)
		}
	}
	return out
}
