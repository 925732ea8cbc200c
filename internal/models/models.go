// Package models provides domain models for the trading journal.
package models

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Timeframe selects the date window used by the statistics screens.
type Timeframe string

const (
	TimeframeDaily   Timeframe = "daily"
	TimeframeWeekly  Timeframe = "weekly"
	TimeframeMonthly Timeframe = "monthly"
	TimeframeYearly  Timeframe = "yearly"
	TimeframeAll     Timeframe = "all"
)

// Timeframes lists the selectable timeframes in display order.
var Timeframes = []Timeframe{TimeframeDaily, TimeframeWeekly, TimeframeMonthly, TimeframeYearly, TimeframeAll}

// ParseTimeframe parses a timeframe selector. The empty string maps to all.
func ParseTimeframe(s string) (Timeframe, error) {
	if s == "" {
		return TimeframeAll, nil
	}
	tf := Timeframe(strings.ToLower(strings.TrimSpace(s)))
	for _, known := range Timeframes {
		if tf == known {
			return tf, nil
		}
	}
	return "", fmt.Errorf("unknown timeframe %q (want daily, weekly, monthly, yearly or all)", s)
}

// AllStrategies is the strategy selector that disables strategy filtering.
const AllStrategies = "All"

// WeekScheme selects how weekly bucket keys are numbered.
type WeekScheme string

const (
	// WeekSchemeSunday numbers Sunday-start weeks from January 1st of the
	// trade's calendar year. Late-December weeks are not reconciled with
	// the following year.
	WeekSchemeSunday WeekScheme = "sunday"
	// WeekSchemeISO uses ISO-8601 week numbering with the ISO week-year.
	WeekSchemeISO WeekScheme = "iso"
)

// ParseWeekScheme parses a week numbering scheme. The empty string maps to sunday.
func ParseWeekScheme(s string) (WeekScheme, error) {
	switch WeekScheme(strings.ToLower(strings.TrimSpace(s))) {
	case "", WeekSchemeSunday:
		return WeekSchemeSunday, nil
	case WeekSchemeISO:
		return WeekSchemeISO, nil
	default:
		return "", fmt.Errorf("unknown week numbering %q (want sunday or iso)", s)
	}
}

// Date is a civil calendar date with no time-of-day or zone.
type Date struct {
	Year  int
	Month time.Month
	Day   int
}

// ParseDate parses a YYYY-MM-DD string by splitting it, so the result never
// shifts with the local zone offset. A trailing "T..." time part is ignored.
func ParseDate(s string) (Date, bool) {
	s = strings.TrimSpace(s)
	if len(s) > 10 && s[10] == 'T' {
		s = s[:10]
	}
	parts := strings.Split(s, "-")
	if len(parts) != 3 || len(parts[0]) != 4 || len(parts[1]) != 2 || len(parts[2]) != 2 {
		return Date{}, false
	}
	y, err := strconv.Atoi(parts[0])
	if err != nil {
		return Date{}, false
	}
	m, err := strconv.Atoi(parts[1])
	if err != nil || m < 1 || m > 12 {
		return Date{}, false
	}
	d, err := strconv.Atoi(parts[2])
	if err != nil || d < 1 || d > DaysIn(y, time.Month(m)) {
		return Date{}, false
	}
	return Date{Year: y, Month: time.Month(m), Day: d}, true
}

// DateOf returns the civil date of t in t's own location.
func DateOf(t time.Time) Date {
	y, m, d := t.Date()
	return Date{Year: y, Month: m, Day: d}
}

// DaysIn returns the number of days in the given month.
func DaysIn(year int, month time.Month) int {
	return time.Date(year, month+1, 0, 0, 0, 0, 0, time.UTC).Day()
}

// String formats the date as YYYY-MM-DD.
func (d Date) String() string {
	return fmt.Sprintf("%04d-%02d-%02d", d.Year, int(d.Month), d.Day)
}

// IsZero reports whether d is the zero date.
func (d Date) IsZero() bool {
	return d.Year == 0 && d.Month == 0 && d.Day == 0
}

// Compare returns -1, 0 or +1.
func (d Date) Compare(o Date) int {
	switch {
	case d.Year != o.Year:
		return cmpInt(d.Year, o.Year)
	case d.Month != o.Month:
		return cmpInt(int(d.Month), int(o.Month))
	default:
		return cmpInt(d.Day, o.Day)
	}
}

// Before reports whether d is strictly before o.
func (d Date) Before(o Date) bool { return d.Compare(o) < 0 }

// time returns midnight UTC of d. UTC has no DST, so day arithmetic is exact.
func (d Date) time() time.Time {
	return time.Date(d.Year, d.Month, d.Day, 0, 0, 0, 0, time.UTC)
}

// Weekday returns the day of the week.
func (d Date) Weekday() time.Weekday {
	return d.time().Weekday()
}

// YearDay returns the 1-based day of the year.
func (d Date) YearDay() int {
	return d.time().YearDay()
}

// AddDays returns d shifted by n days.
func (d Date) AddDays(n int) Date {
	return DateOf(d.time().AddDate(0, 0, n))
}

// ISOWeek returns the ISO-8601 year and week number.
func (d Date) ISOWeek() (year, week int) {
	return d.time().ISOWeek()
}

func cmpInt(a, b int) int {
	if a < b {
		return -1
	}
	if a > b {
		return 1
	}
	return 0
}
