// Package datetime provides the calendar helpers used by boarding pass
// fields: ordinal days without a year, DDMMM short dates and HHMM times.
//
// Boarding passes never carry a full year, so most conversions take either
// an explicit year or a reference time and a tolerance window in days used
// to pick the nearest plausible year.
package datetime

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// MaxAdaptDays bounds the window used for nearest-year inference.
const MaxAdaptDays = 31

var (
	ErrInvalidDayOfYear   = errors.New("invalid day of year")
	ErrInvalidAdaptRange  = errors.New("invalid adapt range")
	ErrNotLeapYear        = errors.New("day does not exist outside a leap year")
	ErrInvalidDayForMonth = errors.New("invalid day for month")
	ErrInvalidInput       = errors.New("invalid input")
	ErrInvalidMonth       = errors.New("invalid month")
	ErrInvalidHour        = errors.New("invalid hour")
	ErrInvalidMinute      = errors.New("invalid minute")
	ErrInvalidSecond      = errors.New("invalid second")
	ErrInvalidTimezoneTag = errors.New("invalid timezone tag")
)

// Error wraps one of the package sentinels with the offending value.
type Error struct {
	Kind  error
	Value string
}

func (e *Error) Error() string {
	return fmt.Sprintf("%v: %q", e.Kind, e.Value)
}

func (e *Error) Unwrap() error { return e.Kind }

func newErr(kind error, v any) error {
	return &Error{Kind: kind, Value: fmt.Sprint(v)}
}

// IsLeapYear reports whether year has 366 days.
func IsLeapYear(year int) bool {
	return year%4 == 0 && (year%100 != 0 || year%400 == 0)
}

func checkAdapt(days int) error {
	if days <= 0 || days > MaxAdaptDays {
		return newErr(ErrInvalidAdaptRange, days)
	}
	return nil
}

// DayOfYear is an ordinal day, 1 to 366.
type DayOfYear int

// NewDayOfYear validates day.
func NewDayOfYear(day int) (DayOfYear, error) {
	if day < 1 || day > 366 {
		return 0, newErr(ErrInvalidDayOfYear, day)
	}
	return DayOfYear(day), nil
}

// Date returns the calendar date of the day in year (UTC midnight).
func (d DayOfYear) Date(year int) (time.Time, error) {
	if d < 1 || d > 366 {
		return time.Time{}, newErr(ErrInvalidDayOfYear, int(d))
	}
	if d == 366 && !IsLeapYear(year) {
		return time.Time{}, newErr(ErrNotLeapYear, year)
	}
	return time.Date(year, time.January, int(d), 0, 0, 0, 0, time.UTC), nil
}

// DateNear resolves the day against the year of ref. When ref sits within
// days of a year boundary and the ordinal sits near the opposite boundary,
// the adjacent year is chosen instead.
func (d DayOfYear) DateNear(ref time.Time, days int) (time.Time, error) {
	if err := checkAdapt(days); err != nil {
		return time.Time{}, err
	}
	year := ref.Year()
	upper := 365 - days
	switch {
	case int(d) < days && ref.YearDay() > upper:
		year++
	case int(d) > upper && ref.YearDay() < days:
		year--
	}
	return d.Date(year)
}

var monthNames = [...]string{"JAN", "FEB", "MAR", "APR", "MAY", "JUN", "JUL", "AUG", "SEP", "OCT", "NOV", "DEC"}

var monthDays = [...]int{31, 29, 31, 30, 31, 30, 31, 31, 30, 31, 30, 31}

// ParseMonth parses JAN..DEC.
func ParseMonth(s string) (time.Month, error) {
	for i, name := range monthNames {
		if name == s {
			return time.Month(i + 1), nil
		}
	}
	return 0, newErr(ErrInvalidMonth, s)
}

// MonthName returns the three letter form of m.
func MonthName(m time.Month) string {
	if m < time.January || m > time.December {
		return ""
	}
	return monthNames[m-1]
}

// ShortDate is a day and month without a year, written as 08MAY.
type ShortDate struct {
	Month time.Month
	Day   int
}

// NewShortDate validates the day against the longest possible month.
func NewShortDate(m time.Month, day int) (ShortDate, error) {
	if m < time.January || m > time.December {
		return ShortDate{}, newErr(ErrInvalidMonth, int(m))
	}
	if day < 1 || day > monthDays[m-1] {
		return ShortDate{}, newErr(ErrInvalidDayForMonth, fmt.Sprintf("%s %d", MonthName(m), day))
	}
	return ShortDate{Month: m, Day: day}, nil
}

// ParseShortDate parses DDMMM.
func ParseShortDate(s string) (ShortDate, error) {
	if len(s) != 5 {
		return ShortDate{}, newErr(ErrInvalidInput, s)
	}
	day, err := strconv.Atoi(s[:2])
	if err != nil {
		return ShortDate{}, newErr(ErrInvalidInput, s[:2])
	}
	m, err := ParseMonth(strings.ToUpper(s[2:]))
	if err != nil {
		return ShortDate{}, err
	}
	return NewShortDate(m, day)
}

func (d ShortDate) String() string {
	return fmt.Sprintf("%02d%s", d.Day, MonthName(d.Month))
}

// Date returns the date in year.
func (d ShortDate) Date(year int) (time.Time, error) {
	if d.Month == time.February && d.Day == 29 && !IsLeapYear(year) {
		return time.Time{}, newErr(ErrNotLeapYear, year)
	}
	return time.Date(year, d.Month, d.Day, 0, 0, 0, 0, time.UTC), nil
}

// DateNear resolves the date against ref the same way DayOfYear.DateNear does,
// rolling late-December dates back and early-January dates forward.
func (d ShortDate) DateNear(ref time.Time, days int) (time.Time, error) {
	if err := checkAdapt(days); err != nil {
		return time.Time{}, err
	}
	year := ref.Year()
	switch {
	case d.Month == time.December && d.Day > 31-days && ref.YearDay() <= days:
		year--
	case d.Month == time.January && d.Day <= days && ref.YearDay() > 365-days:
		year++
	}
	return d.Date(year)
}

// TzTag marks a time as local or UTC.
type TzTag int

const (
	TzNone TzTag = iota
	TzLocal
	TzUTC
)

// ParseTzTag parses L or Z, in either case.
func ParseTzTag(s string) (TzTag, error) {
	switch s {
	case "L", "l":
		return TzLocal, nil
	case "Z", "z":
		return TzUTC, nil
	}
	return TzNone, newErr(ErrInvalidTimezoneTag, s)
}

func (t TzTag) String() string {
	switch t {
	case TzLocal:
		return "L"
	case TzUTC:
		return "Z"
	}
	return ""
}

// Time is a wall clock time with optional seconds and timezone tag.
type Time struct {
	Hour      int
	Minute    int
	Second    int
	HasSecond bool
	Zone      TzTag
}

func parseUnit(s string, max int, kind error) (int, error) {
	v, err := strconv.Atoi(s)
	if err != nil || v < 0 || v > max {
		return 0, newErr(kind, s)
	}
	return v, nil
}

// ParseShortTime parses HHMM.
func ParseShortTime(s string) (Time, error) {
	if len(s) != 4 {
		return Time{}, newErr(ErrInvalidInput, s)
	}
	h, err := parseUnit(s[:2], 23, ErrInvalidHour)
	if err != nil {
		return Time{}, err
	}
	m, err := parseUnit(s[2:], 59, ErrInvalidMinute)
	if err != nil {
		return Time{}, err
	}
	return Time{Hour: h, Minute: m}, nil
}

// ParseFullTime parses HHMM followed by optional SS and a mandatory L or Z tag.
func ParseFullTime(s string) (Time, error) {
	if len(s) != 5 && len(s) != 7 {
		return Time{}, newErr(ErrInvalidInput, s)
	}
	t, err := ParseShortTime(s[:4])
	if err != nil {
		return Time{}, err
	}
	rest := s[4:]
	if len(rest) == 3 {
		sec, err := parseUnit(rest[:2], 59, ErrInvalidSecond)
		if err != nil {
			return Time{}, err
		}
		t.Second, t.HasSecond = sec, true
		rest = rest[2:]
	}
	if t.Zone, err = ParseTzTag(rest); err != nil {
		return Time{}, err
	}
	return t, nil
}

func (t Time) String() string {
	s := fmt.Sprintf("%02d%02d", t.Hour, t.Minute)
	if t.HasSecond {
		s += fmt.Sprintf("%02d", t.Second)
	}
	return s + t.Zone.String()
}

// On returns the time on the given date. TzUTC and TzNone use UTC; TzLocal
// uses loc, or UTC when loc is nil.
func (t Time) On(date time.Time, loc *time.Location) time.Time {
	if t.Zone != TzLocal || loc == nil {
		loc = time.UTC
	}
	y, m, d := date.Date()
	return time.Date(y, m, d, t.Hour, t.Minute, t.Second, 0, loc)
}
