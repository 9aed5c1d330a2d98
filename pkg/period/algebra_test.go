package period

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tempus/pkg/calendar"
)

func TestEffective(t *testing.T) {
	in := []Period{
		New(20140301, 20150101),
		New(0, 20140201),
		New(20140301, 20150101), // duplicate drops
		New(20140301, 20140401), // same start, earlier end sorts first
		Since(20140201),
	}
	got := Effective(in)
	assert.Equal(t, []Period{
		New(0, 20140201),
		Since(20140201),
		New(20140301, 20140401),
		New(20140301, 20150101),
	}, got)
}

func TestEffectiveKeepsOverlapsAcrossIdentities(t *testing.T) {
	// Overlapping ranges from different identities all stay visible.
	in := []Period{New(20140101, 20140601), New(20140301, 20140901)}
	assert.Len(t, Effective(in), 2)
}

func TestCombinedTiling(t *testing.T) {
	in := []Period{
		New(0, 20140202),
		New(20140202, 20140302),
		Since(20140302),
	}
	got := Combined(in)
	assert.Equal(t, []Period{
		New(0, 20140202),
		New(20140202, 20140302),
		Since(20140302),
	}, got)
}

func TestCombinedSplitsOverlaps(t *testing.T) {
	in := []Period{New(20140101, 20140601), New(20140301, 20140901)}
	got := Combined(in)
	assert.Equal(t, []Period{
		New(20140101, 20140301),
		New(20140301, 20140601),
		New(20140601, 20140901),
	}, got)
}

func TestCombinedEmitsGapTiles(t *testing.T) {
	// A stretch covered by no input period still appears as a tile.
	in := []Period{New(20140101, 20140201), New(20140601, 20140701)}
	got := Combined(in)
	assert.Equal(t, []Period{
		New(20140101, 20140201),
		New(20140201, 20140601),
		New(20140601, 20140701),
	}, got)
}

func TestCombinedBoundaryCount(t *testing.T) {
	// |B|-1 tiles whose bounds are drawn consecutively from sorted B, and
	// every input edge appears among the tile boundaries.
	in := []Period{
		New(0, 20140202),
		New(20140115, 20140302),
		Since(20140202),
		New(20140115, 20140302), // duplicate
	}
	got := Combined(in)

	bounds := map[calendar.Date]struct{}{}
	for _, p := range Effective(in) {
		bounds[p.Start] = struct{}{}
		bounds[p.End] = struct{}{}
	}
	require.Len(t, got, len(bounds)-1)
	for i, p := range got {
		assert.True(t, p.Valid())
		if i > 0 {
			assert.Equal(t, got[i-1].End, p.Start, "tiles are contiguous")
		}
		_, startKnown := bounds[p.Start]
		_, endKnown := bounds[p.End]
		assert.True(t, startKnown && endKnown, "tile bounds come from input edges")
	}
	for d := range bounds {
		found := false
		for _, p := range got {
			if p.Start == d || p.End == d {
				found = true
				break
			}
		}
		assert.True(t, found, "input edge %v missing from tiling", d)
	}
}

func TestCombinedDegenerate(t *testing.T) {
	assert.Nil(t, Combined(nil))
	assert.Nil(t, Combined([]Period{}))
	// A single period tiles to itself.
	assert.Equal(t, []Period{New(20140101, 20140201)}, Combined([]Period{New(20140101, 20140201)}))
}

func TestReferenceDates(t *testing.T) {
	today := calendar.Date(20140307)
	in := []Period{
		New(0, 20140301), // future-limited: day before end
		New(20140301, 20140601),
		Since(20140601),
		Unbounded(),
	}
	// Effective order sorts the unbounded period directly after the
	// future-limited one (both start at the beginning of time).
	got := ReferenceDates(in, today)
	assert.Equal(t, []calendar.Date{20140228, today, 20140301, 20140601}, got)
}

func TestReferenceDatesDeduplicates(t *testing.T) {
	today := calendar.Date(20140307)
	in := []Period{
		New(20140301, 20140601),
		New(20140301, 20140901), // same reference date (start)
	}
	assert.Equal(t, []calendar.Date{20140301}, ReferenceDates(in, today))
}
