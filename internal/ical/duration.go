package ical

import (
	"regexp"
	"strconv"
	"strings"
)

const secondsPerDay = 86400

var durationRe = regexp.MustCompile(
	`^([+-]?)P(?:(\d+)W)?(?:(\d+)D)?(?:T(?:(\d+)H)?(?:(\d+)M)?(?:(\d+)S)?)?$`,
)

// ParseDurationDays converts an RFC 5545 duration (P4D, P1W, PT36H, ...)
// into whole days, rounding partial days up since a block covering part of
// a day still makes that day unavailable. Negative durations and values
// that are not durations at all report !ok.
func ParseDurationDays(raw string) (int, bool) {
	m := durationRe.FindStringSubmatch(strings.ToUpper(strings.TrimSpace(raw)))
	if m == nil || m[0] == "" {
		return 0, false
	}

	if m[1] == "-" {
		return 0, false
	}

	weeks := atoiDefault(m[2])
	days := atoiDefault(m[3])
	hours := atoiDefault(m[4])
	minutes := atoiDefault(m[5])
	seconds := atoiDefault(m[6])

	//nolint:mnd //time unit conversions
	total := weeks*7*secondsPerDay + days*secondsPerDay +
		hours*3600 + minutes*60 + seconds
	if total == 0 {
		return 0, false
	}

	wholeDays := total / secondsPerDay
	if total%secondsPerDay != 0 {
		wholeDays++
	}

	return wholeDays, true
}

func atoiDefault(s string) int {
	if s == "" {
		return 0
	}

	n, err := strconv.Atoi(s)
	if err != nil {
		return 0
	}

	return n
}
