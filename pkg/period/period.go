// Package period provides the half-open date interval value type used to
// describe iteration lifespans, plus the algebra that tiles collections of
// intervals into boundary sequences.
package period

import (
	"fmt"

	"tempus/pkg/calendar"
)

// Period is a half-open interval [Start, End) over encoded dates. It is a
// transient value: it may describe one iteration's lifespan or stand free
// as an algebra result tied to no identity.
type Period struct {
	Start calendar.Date
	End   calendar.Date
}

// New builds a period from explicit bounds.
func New(start, end calendar.Date) Period {
	return Period{Start: start, End: end}
}

// Unbounded covers the whole timeline.
func Unbounded() Period {
	return Period{Start: calendar.StartOfTime, End: calendar.EndOfTime}
}

// Since is bounded below and open above.
func Since(start calendar.Date) Period {
	return Period{Start: start, End: calendar.EndOfTime}
}

// Until is open below and bounded above.
func Until(end calendar.Date) Period {
	return Period{Start: calendar.StartOfTime, End: end}
}

// Includes reports whether d falls inside the interval.
func (p Period) Includes(d calendar.Date) bool {
	return p.Start <= d && d < p.End
}

// Valid reports a non-empty duration.
func (p Period) Valid() bool { return p.Start < p.End }

// Empty is the negation of Valid.
func (p Period) Empty() bool { return !p.Valid() }

// PastLimited reports a bounded start.
func (p Period) PastLimited() bool { return p.Start > calendar.StartOfTime }

// FutureLimited reports a bounded end.
func (p Period) FutureLimited() bool { return p.End < calendar.EndOfTime }

// Limited reports a bound on either side.
func (p Period) Limited() bool { return p.PastLimited() || p.FutureLimited() }

// Unlimited reports no bound on either side.
func (p Period) Unlimited() bool { return !p.Limited() }

// Initial reports a start at the beginning of time.
func (p Period) Initial() bool { return p.Start == calendar.StartOfTime }

// Current reports an open end.
func (p Period) Current() bool { return p.End == calendar.EndOfTime }

// Overlaps reports whether two intervals share at least one day. Adjacent
// periods (p.End == q.Start) do not overlap.
func (p Period) Overlaps(q Period) bool {
	return p.Start < q.End && p.End > q.Start
}

// ReferenceDate derives a single representative date, used for default
// ordering and grouping. Unlimited periods have no date of their own and
// answer the caller-supplied present day; periods limited only in the
// future answer their last covered day; everything else answers its start.
func (p Period) ReferenceDate(today calendar.Date) calendar.Date {
	if p.Start <= calendar.StartOfTime {
		if p.End >= calendar.EndOfTime {
			return today
		}
		if prev, err := p.End.Prev(); err == nil {
			return prev
		}
		return p.End
	}
	return p.Start
}

// Formatted holds the rendered bounds and reference date of a period.
type Formatted struct {
	Start     string
	End       string
	Reference string
}

// Formatted renders the period bounds and reference date with the given
// time layout.
func (p Period) Formatted(layout string, today calendar.Date) Formatted {
	return Formatted{
		Start:     p.Start.Format(layout),
		End:       p.End.Format(layout),
		Reference: p.ReferenceDate(today).Format(layout),
	}
}

// String renders a compact human description of the bounds.
func (p Period) String() string {
	switch {
	case p.Unlimited():
		return "always"
	case !p.PastLimited():
		return fmt.Sprintf("until %s", p.End)
	case !p.FutureLimited():
		return fmt.Sprintf("since %s", p.Start)
	default:
		return fmt.Sprintf("%s - %s", p.Start, p.End)
	}
}
