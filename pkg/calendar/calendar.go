// Package calendar encodes calendar dates as ordered YYYYMMDD integers.
//
// The integer form is the canonical representation throughout the engine:
// integer comparison is chronological comparison, which keeps interval
// predicates and SQL range queries trivial. Two reserved values bound the
// timeline: StartOfTime (no known origin) and EndOfTime (not yet terminated).
package calendar

import (
	"fmt"
	"regexp"
	"time"
)

// Date is an encoded calendar date (year*10000 + month*100 + day).
type Date int

const (
	// StartOfTime marks an unknown or unbounded origin ("since always").
	StartOfTime Date = 0
	// EndOfTime marks an open upper bound ("not yet terminated").
	EndOfTime Date = 99999999
)

// ISOLayout is the default formatting layout for decoded dates.
const ISOLayout = "2006-01-02"

var isoDate = regexp.MustCompile(`\A(\d{4})-(\d{2})-(\d{2})\z`)

// New encodes a year/month/day triple. The triple is not validated; use
// Decode on the result when calendar validity matters.
func New(year, month, day int) Date {
	return Date(year*10000 + month*100 + day)
}

// FromTime encodes the calendar day of t, ignoring the time of day.
func FromTime(t time.Time) Date {
	return New(t.Year(), int(t.Month()), t.Day())
}

// Parse accepts ISO "YYYY-MM-DD" text and returns the encoded date.
func Parse(s string) (Date, error) {
	m := isoDate.FindStringSubmatch(s)
	if m == nil {
		return 0, fmt.Errorf("parse date %q: not in YYYY-MM-DD form", s)
	}
	t, err := time.Parse(ISOLayout, s)
	if err != nil {
		return 0, fmt.Errorf("parse date %q: %w", s, err)
	}
	return FromTime(t), nil
}

// split applies the clamping decode policy: month is forced into [1, 12]
// and day into [1, 31]. Clamping guarantees the sentinels always decode
// (EndOfTime becomes 9999-12-31) at the price of reinterpreting malformed
// encodings instead of rejecting them.
func (d Date) split() (year, month, day int) {
	v := int(d)
	year = v / 10000
	month = (v % 10000) / 100
	if month < 1 {
		month = 1
	}
	if month > 12 {
		month = 12
	}
	day = v % 100
	if day < 1 {
		day = 1
	}
	if day > 31 {
		day = 31
	}
	return year, month, day
}

// Decode maps the encoded value to a calendar day. Clamped year/month/day
// combinations that still name no real day (e.g. February 31) return an
// error; sentinel values never do.
func (d Date) Decode() (time.Time, error) {
	if d < StartOfTime || d > EndOfTime {
		return time.Time{}, fmt.Errorf("decode date %d: outside encodable range", int(d))
	}
	year, month, day := d.split()
	t := time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)
	// time.Date normalizes overflow (Feb 31 -> Mar 3); a changed triple
	// means the combination was never a real calendar day.
	if t.Year() != year || int(t.Month()) != month || t.Day() != day {
		return time.Time{}, fmt.Errorf("decode date %d: %04d-%02d-%02d is not a calendar day", int(d), year, month, day)
	}
	return t, nil
}

// Prev returns the calendar day before d. Crossing month and year
// boundaries uses real calendar arithmetic, never integer subtraction.
func (d Date) Prev() (Date, error) {
	t, err := d.Decode()
	if err != nil {
		return 0, err
	}
	return FromTime(t.AddDate(0, 0, -1)), nil
}

// Next returns the calendar day after d.
func (d Date) Next() (Date, error) {
	t, err := d.Decode()
	if err != nil {
		return 0, err
	}
	return FromTime(t.AddDate(0, 0, 1)), nil
}

// Format renders the decoded day with the given time layout. Malformed
// values fall back to the raw integer form rather than panicking; callers
// that need the failure should Decode first.
func (d Date) Format(layout string) string {
	t, err := d.Decode()
	if err != nil {
		return fmt.Sprintf("%08d", int(d))
	}
	return t.Format(layout)
}

// String renders the date in ISO form.
func (d Date) String() string {
	return d.Format(ISOLayout)
}

// IsStartOfTime reports whether d is the lower sentinel.
func (d Date) IsStartOfTime() bool { return d == StartOfTime }

// IsEndOfTime reports whether d is the upper sentinel.
func (d Date) IsEndOfTime() bool { return d == EndOfTime }
