package utils

import (
	"errors"
	"fmt"
	"math"
	"strings"
	"time"
)

// ErrBadTimeFormat is returned by ParseDuration for malformed input.
var ErrBadTimeFormat = errors.New("bad time format")

const day = 24 * time.Hour

var timeUnits = map[rune]time.Duration{
	'd': day,
	'h': time.Hour,
	'm': time.Minute,
	's': time.Second,
}

// ParseDuration parses a span written as <number><unit> pairs with no
// separators, e.g. "1d2h30m". Units are d, h, m and s, in any case; a repeated
// unit adds up. An empty string parses to zero: rejecting zero is up to the
// caller.
func ParseDuration(s string) (time.Duration, error) {
	var total time.Duration
	var number int64
	digits := 0

	for _, r := range strings.ToLower(s) {
		if r >= '0' && r <= '9' {
			if number > (math.MaxInt64-int64(r-'0'))/10 {
				return 0, fmt.Errorf("%w: number too large in %q", ErrBadTimeFormat, s)
			}
			number = number*10 + int64(r-'0')
			digits++
			continue
		}

		unit, ok := timeUnits[r]
		if !ok {
			return 0, fmt.Errorf("%w: bad time value %q", ErrBadTimeFormat, r)
		}
		if digits == 0 {
			return 0, fmt.Errorf("%w: unit %q has no number", ErrBadTimeFormat, r)
		}
		if number > int64(math.MaxInt64/unit) {
			return 0, fmt.Errorf("%w: %q is out of range", ErrBadTimeFormat, s)
		}
		part := time.Duration(number) * unit
		if total > math.MaxInt64-part {
			return 0, fmt.Errorf("%w: %q is out of range", ErrBadTimeFormat, s)
		}
		total += part
		number, digits = 0, 0
	}

	if digits > 0 {
		return 0, fmt.Errorf("%w: trailing number without a unit in %q", ErrBadTimeFormat, s)
	}
	return total, nil
}

// PrintHuman renders a span as "1 day, 2 hours, 30 minutes", skipping zero
// components. Sub-second precision is dropped; zero or negative spans render
// as "".
func PrintHuman(d time.Duration) string {
	if d < time.Second {
		return ""
	}
	secs := int64(d / time.Second)

	parts := make([]string, 0, 4)
	for _, u := range []struct {
		name string
		size int64
	}{
		{"day", 86400},
		{"hour", 3600},
		{"minute", 60},
		{"second", 1},
	} {
		n := secs / u.size
		secs %= u.size
		if n == 0 {
			continue
		}
		if n == 1 {
			parts = append(parts, "1 "+u.name)
		} else {
			parts = append(parts, fmt.Sprintf("%d %ss", n, u.name))
		}
	}
	return strings.Join(parts, ", ")
}
