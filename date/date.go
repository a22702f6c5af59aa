package date

import (
	"fmt"
	"strings"
	"time"
)

// Format is the ISO-8601 format used by broker activity statements.
const Format = "2006-01-02"

// RateFormat is the day format used by the exchange-rate archive files (DD.MM.YYYY).
const RateFormat = "02.01.2006"

// flexFormat is the compact day format used by FlexQuery exports.
const flexFormat = "20060102"

// Date represents a date with day-level granularity.
type Date struct {
	y int
	m time.Month
	d int
}

// time returns a time.Time that is a canonical representation of that day (at midnight UTC).
func (d Date) time() time.Time { return time.Date(d.y, d.m, d.d, 0, 0, 0, 0, time.UTC) }

// New returns a normalized Date for the given year, month, and day.
func New(year int, month time.Month, day int) Date {
	d := Date{year, month, day}
	d.y, d.m, d.d = d.time().Date()
	return d
}

// Today returns the current date.
func Today() Date { return New(time.Now().Date()) }

// Year returns the year of the date.
func (d Date) Year() int { return d.y }

// Month returns the month of the date.
func (d Date) Month() time.Month { return d.m }

// Day returns the day of the month.
func (d Date) Day() int { return d.d }

// Before reports whether the day d is before x.
func (d Date) Before(x Date) bool { return d.time().Before(x.time()) }

// After reports whether the day d is after x.
func (d Date) After(x Date) bool { return d.time().After(x.time()) }

// IsZero reports whether d is the zero date.
func (d Date) IsZero() bool { return d == Date{} }

// Add returns a new Date with the given number of days added.
func (d Date) Add(i int) Date { return New(d.y, d.m, d.d+i) }

// String formats the date in ISO-8601.
func (d Date) String() string { return d.time().Format(Format) }

// Rate formats the date the way the exchange-rate archive keys its rows.
func (d Date) Rate() string { return d.time().Format(RateFormat) }

// Parse parses an ISO-8601 date.
func Parse(str string) (Date, error) {
	on, err := time.Parse(Format, str)
	if err != nil {
		return Date{}, fmt.Errorf("invalid date %q want format %q: %w", str, Format, err)
	}
	return New(on.Date()), nil
}

// ParseRate parses a date in the exchange-rate archive format (DD.MM.YYYY).
func ParseRate(str string) (Date, error) {
	on, err := time.Parse(RateFormat, str)
	if err != nil {
		return Date{}, fmt.Errorf("invalid rate date %q want format %q: %w", str, RateFormat, err)
	}
	return New(on.Date()), nil
}

// ParseFlex parses a FlexQuery settle date, either compact (YYYYMMDD) or ISO-8601.
// A time part after a ';' separator is ignored here; callers that care about
// timezone-induced day shifts inspect it with TimePart.
func ParseFlex(str string) (Date, error) {
	day := str
	if i := strings.IndexByte(str, ';'); i >= 0 {
		day = str[:i]
	}
	layout := flexFormat
	if strings.Contains(day, "-") {
		layout = Format
	}
	on, err := time.Parse(layout, day)
	if err != nil {
		return Date{}, fmt.Errorf("invalid settle date %q: %w", str, err)
	}
	return New(on.Date()), nil
}

// TimePart returns the time-of-day of a FlexQuery date-time value ("YYYYMMDD;HHMMSS"),
// or ok=false when the value carries no time part.
func TimePart(str string) (t time.Time, ok bool) {
	i := strings.IndexByte(str, ';')
	if i < 0 || len(str[i+1:]) != 6 {
		return time.Time{}, false
	}
	t, err := time.Parse("150405", str[i+1:])
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}

// MustParse is like Parse but panics on error.
func MustParse(str string) Date {
	d, err := Parse(str)
	if err != nil {
		panic(err.Error())
	}
	return d
}
