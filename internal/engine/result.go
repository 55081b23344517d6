package engine

import (
	"bytes"
	"encoding/json"
	"strconv"
	"time"

	"go.yaml.in/yaml/v3"

	"stockconsensus/internal/marketclock"
)

// ErrorKind classifies a failed aggregation
type ErrorKind string

const (
	// InsufficientData means fewer valid readings than MinSources
	InsufficientData ErrorKind = "INSUFFICIENT_DATA"
	// LowConfidence means readings existed but disagreed beyond the threshold
	LowConfidence ErrorKind = "LOW_CONFIDENCE"
	// InvalidSymbol means the symbol was empty; no source was called
	InvalidSymbol ErrorKind = "INVALID_SYMBOL"
	// EngineException is produced by callers when Fetch fails unexpectedly
	EngineException ErrorKind = "ENGINE_EXCEPTION"
)

const (
	// FailedSentinel marks an unavailable source in serialized results
	FailedSentinel = "FAILED"
	// PriceTypeLive is the only price type produced
	PriceTypeLive = "LIVE"
)

// Failure describes why no price was produced
type Failure struct {
	Kind    ErrorKind
	Message string
}

// Error implements the error interface
func (f *Failure) Error() string {
	return string(f.Kind) + ": " + f.Message
}

// SourcePrice is one source's entry in a Result
type SourcePrice struct {
	Name      string
	Price     float64
	Available bool
}

// SourcePrices lists one entry per registered source, in registration order.
// It serializes as an object whose key order follows the list.
type SourcePrices []SourcePrice

// Result is the outcome of one Fetch. Exactly one of the success fields or
// Failure is meaningful: Failure is nil on success.
type Result struct {
	Symbol     string
	Price      float64
	Confidence float64
	Sources    SourcePrices
	MarketOpen bool
	FetchedAt  time.Time
	Failure    *Failure
}

// OK reports whether the result carries a consensus price
func (r Result) OK() bool {
	return r.Failure == nil
}

// Err returns the failure as an error, or nil on success
func (r Result) Err() error {
	if r.Failure == nil {
		return nil
	}
	return r.Failure
}

// SourcesUsed returns the names of sources that returned a valid price
func (r Result) SourcesUsed() []string {
	used := make([]string, 0, len(r.Sources))
	for _, s := range r.Sources {
		if s.Available {
			used = append(used, s.Name)
		}
	}
	return used
}

// MarketState returns marketclock.Open or marketclock.Closed
func (r Result) MarketState() string {
	if r.MarketOpen {
		return marketclock.Open
	}
	return marketclock.Closed
}

// ScrapedAt formats FetchedAt as RFC 3339 in UTC
func (r Result) ScrapedAt() string {
	return r.FetchedAt.UTC().Format(time.RFC3339Nano)
}

// Exception builds the ENGINE_EXCEPTION result callers report when Fetch
// could not complete
func Exception(message string, at time.Time) Result {
	return Result{
		FetchedAt: at,
		Failure:   &Failure{Kind: EngineException, Message: message},
	}
}

type successRecord struct {
	Symbol       string       `json:"symbol" yaml:"symbol"`
	Price        float64      `json:"price" yaml:"price"`
	Confidence   float64      `json:"confidence" yaml:"confidence"`
	SourcesUsed  []string     `json:"sources_used" yaml:"sources_used"`
	SourcePrices SourcePrices `json:"source_prices" yaml:"source_prices"`
	MarketState  string       `json:"market_state" yaml:"market_state"`
	ScrapedAt    string       `json:"scraped_at" yaml:"scraped_at"`
	PriceType    string       `json:"price_type" yaml:"price_type"`
}

type failureRecord struct {
	Error        ErrorKind    `json:"error" yaml:"error"`
	Message      string       `json:"message" yaml:"message"`
	ScrapedAt    string       `json:"scraped_at" yaml:"scraped_at"`
	SourcePrices SourcePrices `json:"source_prices" yaml:"source_prices"`
}

func (r Result) record() any {
	sources := r.Sources
	if sources == nil {
		sources = SourcePrices{}
	}

	if r.Failure != nil {
		return failureRecord{
			Error:        r.Failure.Kind,
			Message:      r.Failure.Message,
			ScrapedAt:    r.ScrapedAt(),
			SourcePrices: sources,
		}
	}

	return successRecord{
		Symbol:       r.Symbol,
		Price:        r.Price,
		Confidence:   r.Confidence,
		SourcesUsed:  r.SourcesUsed(),
		SourcePrices: sources,
		MarketState:  r.MarketState(),
		ScrapedAt:    r.ScrapedAt(),
		PriceType:    PriceTypeLive,
	}
}

// MarshalJSON implements json.Marshaler
func (r Result) MarshalJSON() ([]byte, error) {
	return json.Marshal(r.record())
}

// MarshalYAML implements yaml.Marshaler
func (r Result) MarshalYAML() (any, error) {
	return r.record(), nil
}

// MarshalJSON implements json.Marshaler, keeping registration order
func (s SourcePrices) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, sp := range s {
		if i > 0 {
			buf.WriteByte(',')
		}

		key, err := json.Marshal(sp.Name)
		if err != nil {
			return nil, err
		}
		buf.Write(key)
		buf.WriteByte(':')

		if sp.Available {
			buf.WriteString(strconv.FormatFloat(sp.Price, 'f', -1, 64))
		} else {
			buf.WriteString(strconv.Quote(FailedSentinel))
		}
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// MarshalYAML implements yaml.Marshaler, keeping registration order
func (s SourcePrices) MarshalYAML() (any, error) {
	node := &yaml.Node{Kind: yaml.MappingNode, Tag: "!!map"}
	for _, sp := range s {
		key := &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: sp.Name}
		value := &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: FailedSentinel}
		if sp.Available {
			value = &yaml.Node{Kind: yaml.ScalarNode, Value: strconv.FormatFloat(sp.Price, 'f', -1, 64)}
		}
		node.Content = append(node.Content, key, value)
	}
	return node, nil
}
