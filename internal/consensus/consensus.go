// Package consensus reconciles several price readings into one price.
//
// The median of the readings anchors the result: any reading further than the
// deviation threshold from it is discarded, and the survivors are averaged.
// A single wild reading therefore cannot move the median, and once filtered it
// cannot move the mean either.
package consensus

import (
	"math"
	"slices"

	"github.com/shopspring/decimal"
)

const (
	// DefaultMaxDeviationPct is the allowed distance from the median, in percent
	DefaultMaxDeviationPct = 0.5
	// DefaultMinSources is the number of agreeing readings a price needs
	DefaultMinSources = 1

	confidenceBonus = 0.1
)

// Median returns the median of prices, or 0 for an empty slice.
// prices is not modified.
func Median(prices []float64) float64 {
	n := len(prices)
	if n == 0 {
		return 0
	}

	sorted := slices.Clone(prices)
	slices.Sort(sorted)

	if n%2 == 1 {
		return sorted[n/2]
	}
	return (sorted[n/2-1] + sorted[n/2]) / 2
}

// WithinDeviation keeps the prices whose distance from median, as a percentage
// of median, is at most maxDeviationPct. Input order is preserved.
func WithinDeviation(prices []float64, median, maxDeviationPct float64) []float64 {
	if median <= 0 {
		return nil
	}

	kept := make([]float64, 0, len(prices))
	for _, p := range prices {
		if math.Abs(p-median)/median*100 <= maxDeviationPct {
			kept = append(kept, p)
		}
	}
	return kept
}

// Mean returns the arithmetic mean of prices, or 0 for an empty slice
func Mean(prices []float64) float64 {
	if len(prices) == 0 {
		return 0
	}

	var sum float64
	for _, p := range prices {
		sum += p
	}
	return sum / float64(len(prices))
}

// Round2 rounds x to two decimal places, halves away from zero
func Round2(x float64) float64 {
	return decimal.NewFromFloat(x).Round(2).InexactFloat64()
}

// Price computes the consensus price of valid readings. It reports false when
// fewer than minSources readings lie within maxDeviationPct of the median.
func Price(prices []float64, minSources int, maxDeviationPct float64) (float64, bool) {
	if len(prices) == 0 || len(prices) < minSources {
		return 0, false
	}

	kept := WithinDeviation(prices, Median(prices), maxDeviationPct)
	if len(kept) == 0 || len(kept) < minSources {
		return 0, false
	}

	return Round2(Mean(kept)), true
}

// Confidence scores a result from how many sources answered.
//
// It is a heuristic, not a probability: the share of sources that returned a
// valid price plus a flat bonus, capped at 1. Without a consensus price the
// confidence is 0.
func Confidence(validCount, totalSources int, hasPrice bool) float64 {
	if !hasPrice || totalSources <= 0 {
		return 0
	}

	score := float64(validCount)/float64(totalSources) + confidenceBonus
	return Round2(math.Min(1, score))
}
