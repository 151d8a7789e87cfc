// Package instant parses the fixed-format timestamps written by tracer exports.
package instant

import (
	"regexp"
	"strconv"
	"time"
)

// Layout is the timestamp shape accepted by Parse, expressed as a Go reference layout.
// A timezone literal may follow it and is ignored.
const Layout = "20060102T150405.000"

var pattern = regexp.MustCompile(`^(\d{4})(\d{2})(\d{2})T(\d{2})(\d{2})(\d{2})\.(\d{3})`)

// Parse converts text of the form YYYYMMDDThhmmss.mmm into a UTC instant.
// It reports false when text does not start with that shape.
// Out-of-range fields are normalized by time.Date (month 13 rolls into the next year).
func Parse(text string) (time.Time, bool) {
	m := pattern.FindStringSubmatch(text)
	if m == nil {
		return time.Time{}, false
	}
	var f [7]int
	for i := range f {
		n, err := strconv.Atoi(m[i+1])
		if err != nil {
			return time.Time{}, false
		}
		f[i] = n
	}
	return time.Date(f[0], time.Month(f[1]), f[2], f[3], f[4], f[5], f[6]*int(time.Millisecond), time.UTC), true
}

// Format renders t back into the tracer layout with a GMT suffix.
func Format(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(Layout) + " GMT"
}

// Seconds returns the signed distance from origin to t in seconds, at millisecond resolution.
func Seconds(origin, t time.Time) float64 {
	return float64(t.Sub(origin).Milliseconds()) / 1000
}
