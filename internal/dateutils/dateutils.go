// Package dateutils parses the day-month-year dates found in legacy exports.
package dateutils

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// Date format constants
const (
	DateLayoutISO      = "2006-01-02"
	DateLayoutEuropean = "02.01.2006"
)

// ErrEmptyDate is returned for blank input.
var ErrEmptyDate = errors.New("empty date")

var (
	whitespace = regexp.MustCompile(`\s+`)
	// d-m-y with one of "-", "." or "/" and an optional time of day
	dmyPattern = regexp.MustCompile(`^(\d{1,2})([-./])(\d{1,2})([-./])(\d{2}|\d{4})(?:[ T](\d{1,2}):(\d{2})(?::(\d{2}))?)?$`)
	isoPattern = regexp.MustCompile(`^(\d{4})-(\d{1,2})-(\d{1,2})(?:[ T](\d{1,2}):(\d{2})(?::(\d{2}))?)?`)
)

// ParseDate parses a day-month-year date such as "15-03-2024", "15.03.2024"
// or "15/03/2024", optionally followed by a time of day. ISO dates
// ("2024-03-15") are accepted as well. Dates that do not exist in the
// calendar, like "31-02-2024", are rejected rather than normalized.
func ParseDate(dateStr string) (time.Time, error) {
	s := CleanDateString(dateStr)
	if s == "" {
		return time.Time{}, ErrEmptyDate
	}

	if m := dmyPattern.FindStringSubmatch(s); m != nil {
		if m[2] != m[4] {
			return time.Time{}, fmt.Errorf("unable to parse date %q: mixed separators", dateStr)
		}
		year := atoi(m[5])
		if len(m[5]) == 2 {
			year += 2000
		}
		return build(dateStr, year, atoi(m[3]), atoi(m[1]), m[6], m[7], m[8])
	}

	if m := isoPattern.FindStringSubmatch(s); m != nil {
		return build(dateStr, atoi(m[1]), atoi(m[2]), atoi(m[3]), m[4], m[5], m[6])
	}

	return time.Time{}, fmt.Errorf("unable to parse date: %s", dateStr)
}

func build(raw string, year, month, day int, hh, mm, ss string) (time.Time, error) {
	hour, minute, sec := atoi(hh), atoi(mm), atoi(ss)
	if month < 1 || month > 12 || hour > 23 || minute > 59 || sec > 59 {
		return time.Time{}, fmt.Errorf("unable to parse date %q: out of range", raw)
	}
	t := time.Date(year, time.Month(month), day, hour, minute, sec, 0, time.UTC)
	if t.Year() != year || int(t.Month()) != month || t.Day() != day {
		return time.Time{}, fmt.Errorf("unable to parse date %q: no such day", raw)
	}
	return t, nil
}

func atoi(s string) int {
	if s == "" {
		return 0
	}
	n, _ := strconv.Atoi(s)
	return n
}

// FormatDate formats a time.Time value according to the specified layout
// If no layout is provided, DateLayoutISO is used
func FormatDate(date time.Time, layout string) string {
	if layout == "" {
		layout = DateLayoutISO
	}
	return date.Format(layout)
}

// CleanDateString removes unwanted characters and normalizes a date string
func CleanDateString(dateStr string) string {
	dateStr = strings.TrimSpace(dateStr)
	return whitespace.ReplaceAllString(dateStr, " ")
}
