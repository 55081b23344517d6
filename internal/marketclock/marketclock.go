// Package marketclock tells whether the primary US equity session is open.
//
// The check uses a fixed UTC-5 offset and ignores both exchange holidays and
// daylight saving time, so it is wrong by an hour for most of the year and on
// every holiday. Results are advisory and never gate a fetch.
package marketclock

import "time"

// Session states reported by State
const (
	Open   = "OPEN"
	Closed = "CLOSED"
)

var exchangeZone = time.FixedZone("EST", -5*60*60)

const (
	sessionOpen  = 9*time.Hour + 30*time.Minute
	sessionClose = 16 * time.Hour
)

// IsOpen reports whether now falls in [09:30, 16:00) exchange time on a weekday
func IsOpen(now time.Time) bool {
	local := now.In(exchangeZone)

	switch local.Weekday() {
	case time.Saturday, time.Sunday:
		return false
	}

	sinceMidnight := time.Duration(local.Hour())*time.Hour +
		time.Duration(local.Minute())*time.Minute +
		time.Duration(local.Second())*time.Second +
		time.Duration(local.Nanosecond())

	return sinceMidnight >= sessionOpen && sinceMidnight < sessionClose
}

// State returns Open or Closed for now
func State(now time.Time) string {
	if IsOpen(now) {
		return Open
	}
	return Closed
}
