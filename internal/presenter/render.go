package presenter

import (
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"

	"go.yaml.in/yaml/v3"

	"stockconsensus/internal/engine"
)

// Format selects how a result is written
type Format string

const (
	FormatText Format = "text"
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
)

// ParseFormat validates a user supplied format name
func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(strings.TrimSpace(s))); f {
	case FormatText, FormatJSON, FormatYAML:
		return f, nil
	case "":
		return FormatText, nil
	default:
		return "", fmt.Errorf("unknown output format %q (want text, json or yaml)", s)
	}
}

// Render writes r to w in the given format
func Render(w io.Writer, r engine.Result, format Format) error {
	switch format {
	case FormatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "    ")
		return enc.Encode(r)
	case FormatYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(r); err != nil {
			return err
		}
		return enc.Close()
	case FormatText, "":
		_, err := io.WriteString(w, Text(r))
		return err
	default:
		return fmt.Errorf("unknown output format %q", format)
	}
}

// Text formats r as a human readable report
func Text(r engine.Result) string {
	var b strings.Builder

	if !r.OK() {
		b.WriteString("STATUS : DATA UNAVAILABLE\n")
		b.WriteString("----------------------------------\n")
		fmt.Fprintf(&b, "Error Code   : %s\n", r.Failure.Kind)
		fmt.Fprintf(&b, "Message      : %s\n", r.Failure.Message)
		fmt.Fprintf(&b, "Checked At   : %s\n\n", r.ScrapedAt())
		b.WriteString("Source Status:\n")
		writeSources(&b, r.Sources)
		return b.String()
	}

	b.WriteString("STATUS : PRICE FETCHED SUCCESSFULLY\n")
	b.WriteString("----------------------------------\n")
	fmt.Fprintf(&b, "Symbol        : %s\n", r.Symbol)
	fmt.Fprintf(&b, "Price         : %s\n", formatPrice(r.Price))
	fmt.Fprintf(&b, "Confidence    : %d%%\n", int(r.Confidence*100+0.5))
	fmt.Fprintf(&b, "Market State  : %s\n", r.MarketState())
	fmt.Fprintf(&b, "Price Type    : %s\n", engine.PriceTypeLive)
	fmt.Fprintf(&b, "Fetched At    : %s\n\n", r.ScrapedAt())
	b.WriteString("Sources:\n")
	writeSources(&b, r.Sources)
	return b.String()
}

// Status is the one-line summary shown once a lookup completes
func Status(r engine.Result) string {
	if !r.OK() {
		return "Error - No reliable market data"
	}
	return fmt.Sprintf("Success | %s @ %s", r.Symbol, formatPrice(r.Price))
}

func writeSources(b *strings.Builder, sources engine.SourcePrices) {
	for _, s := range sources {
		value := engine.FailedSentinel
		if s.Available {
			value = formatPrice(s.Price)
		}
		fmt.Fprintf(b, "  - %-15s : %s\n", s.Name, value)
	}
}

func formatPrice(p float64) string {
	return strconv.FormatFloat(p, 'f', -1, 64)
}
