package fetcher

import "math"

// Reading is the outcome of one Fetcher call for one symbol.
// Either it carries a price, or it is unavailable and Price must be ignored.
type Reading struct {
	// Price is the quoted price. Meaningful only when Available is true.
	Price float64

	// Available reports whether the provider returned a price at all.
	Available bool

	// Reason explains why the reading is unavailable. Diagnostic only.
	Reason error
}

// PriceReading builds an available reading.
func PriceReading(price float64) Reading {
	return Reading{Price: price, Available: true}
}

// Unavailable builds a reading that carries no price.
func Unavailable(reason error) Reading {
	return Reading{Reason: reason}
}

// Valid reports whether the reading holds a finite, strictly positive price.
func (r Reading) Valid() bool {
	return r.Available && r.Price > 0 && !math.IsNaN(r.Price) && !math.IsInf(r.Price, 0)
}
