package period

import (
	"sort"

	"tempus/pkg/calendar"
)

// Effective returns the distinct (start, end) pairs present in the input,
// sorted ascending by start then end. Nothing is merged: ranges observed on
// different identities stay separate entries, only exact duplicates drop.
func Effective(periods []Period) []Period {
	seen := make(map[Period]struct{}, len(periods))
	out := make([]Period, 0, len(periods))
	for _, p := range periods {
		if _, ok := seen[p]; ok {
			continue
		}
		seen[p] = struct{}{}
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Start != out[j].Start {
			return out[i].Start < out[j].Start
		}
		return out[i].End < out[j].End
	})
	return out
}

// Combined tiles the observed timeline into maximal segments bounded by any
// input period's edge: every distinct start and end value becomes a
// breakpoint, and one period is emitted per adjacent breakpoint pair. The
// tiling is gapless and non-overlapping by construction; stretches covered
// by no input period still appear as anonymous tiles.
func Combined(periods []Period) []Period {
	effective := Effective(periods)
	breaks := make([]calendar.Date, 0, 2*len(effective))
	seen := make(map[calendar.Date]struct{}, 2*len(effective))
	for _, p := range effective {
		for _, d := range [2]calendar.Date{p.Start, p.End} {
			if _, ok := seen[d]; !ok {
				seen[d] = struct{}{}
				breaks = append(breaks, d)
			}
		}
	}
	sort.Slice(breaks, func(i, j int) bool { return breaks[i] < breaks[j] })

	if len(breaks) < 2 {
		return nil
	}
	out := make([]Period, 0, len(breaks)-1)
	for i := 0; i+1 < len(breaks); i++ {
		out = append(out, Period{Start: breaks[i], End: breaks[i+1]})
	}
	return out
}

// ReferenceDates returns the deduplicated reference dates of the effective
// periods, in effective-period order.
func ReferenceDates(periods []Period, today calendar.Date) []calendar.Date {
	effective := Effective(periods)
	seen := make(map[calendar.Date]struct{}, len(effective))
	out := make([]calendar.Date, 0, len(effective))
	for _, p := range effective {
		ref := p.ReferenceDate(today)
		if _, ok := seen[ref]; ok {
			continue
		}
		seen[ref] = struct{}{}
		out = append(out, ref)
	}
	return out
}
