package period

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"tempus/pkg/calendar"
)

func TestIncludes(t *testing.T) {
	p := New(20140101, 20140301)
	assert.False(t, p.Includes(20131231))
	assert.True(t, p.Includes(20140101), "start is inclusive")
	assert.True(t, p.Includes(20140215))
	assert.False(t, p.Includes(20140301), "end is exclusive")
}

func TestValidity(t *testing.T) {
	assert.True(t, New(20140101, 20140102).Valid())
	assert.True(t, Unbounded().Valid())
	assert.False(t, New(20140101, 20140101).Valid())
	assert.True(t, New(20140102, 20140101).Empty())
}

func TestLimits(t *testing.T) {
	tests := []struct {
		name                       string
		p                          Period
		initial, current           bool
		pastLimited, futureLimited bool
	}{
		{name: "unbounded", p: Unbounded(), initial: true, current: true},
		{name: "since", p: Since(20140101), current: true, pastLimited: true},
		{name: "until", p: Until(20140101), initial: true, futureLimited: true},
		{name: "closed", p: New(20140101, 20150101), pastLimited: true, futureLimited: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.initial, tt.p.Initial())
			assert.Equal(t, tt.current, tt.p.Current())
			assert.Equal(t, tt.pastLimited, tt.p.PastLimited())
			assert.Equal(t, tt.futureLimited, tt.p.FutureLimited())
			assert.Equal(t, tt.pastLimited || tt.futureLimited, tt.p.Limited())
			assert.Equal(t, !tt.pastLimited && !tt.futureLimited, tt.p.Unlimited())
		})
	}
}

func TestOverlaps(t *testing.T) {
	tests := []struct {
		name string
		a, b Period
		want bool
	}{
		{name: "disjoint", a: New(20140101, 20140201), b: New(20140301, 20140401), want: false},
		{name: "adjacent do not overlap", a: New(20140101, 20140201), b: New(20140201, 20140301), want: false},
		{name: "partial", a: New(20140101, 20140215), b: New(20140201, 20140301), want: true},
		{name: "contained", a: New(20140101, 20141231), b: New(20140601, 20140701), want: true},
		{name: "identical", a: New(20140101, 20140201), b: New(20140101, 20140201), want: true},
		{name: "unbounded covers all", a: Unbounded(), b: New(20140101, 20140102), want: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.a.Overlaps(tt.b))
			assert.Equal(t, tt.want, tt.b.Overlaps(tt.a), "overlap is symmetric")
		})
	}
}

func TestReferenceDate(t *testing.T) {
	today := calendar.Date(20140307)

	// Unlimited periods answer the supplied present day.
	assert.Equal(t, today, Unbounded().ReferenceDate(today))

	// Future-limited only: the last covered day, via calendar arithmetic.
	assert.Equal(t, calendar.Date(20140228), Until(20140301).ReferenceDate(today))
	assert.Equal(t, calendar.Date(20131231), Until(20140101).ReferenceDate(today))

	// Anything with a bounded start answers that start.
	assert.Equal(t, calendar.Date(20140101), Since(20140101).ReferenceDate(today))
	assert.Equal(t, calendar.Date(20140101), New(20140101, 20140301).ReferenceDate(today))
}

func TestFormatted(t *testing.T) {
	today := calendar.Date(20140307)
	f := New(0, 20140301).Formatted(calendar.ISOLayout, today)
	assert.Equal(t, "0000-01-01", f.Start)
	assert.Equal(t, "2014-03-01", f.End)
	assert.Equal(t, "2014-02-28", f.Reference)
}

func TestString(t *testing.T) {
	assert.Equal(t, "always", Unbounded().String())
	assert.Equal(t, "since 2014-01-01", Since(20140101).String())
	assert.Equal(t, "until 2014-01-01", Until(20140101).String())
	assert.Equal(t, "2014-01-01 - 2015-01-01", New(20140101, 20150101).String())
}
