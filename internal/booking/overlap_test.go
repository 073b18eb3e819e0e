package booking

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func rng(ci, co time.Time) DateRange {
	return DateRange{CheckIn: ci, CheckOut: co}
}

func TestDateRangeValid(t *testing.T) {
	assert.True(t, rng(day(2026, 1, 10), day(2026, 1, 12)).Valid())
	assert.False(t, rng(day(2026, 1, 10), day(2026, 1, 10)).Valid(), "zero nights")
	assert.False(t, rng(day(2026, 1, 12), day(2026, 1, 10)).Valid(), "inverted")
}

func TestDateRangeNights(t *testing.T) {
	assert.Equal(t, 2, rng(day(2026, 1, 10), day(2026, 1, 12)).Nights())
	assert.Equal(t, 1, rng(day(2026, 1, 31), day(2026, 2, 1)).Nights())
}

func TestOverlapsPermutations(t *testing.T) {
	base := rng(day(2026, 1, 10), day(2026, 1, 15))

	cases := []struct {
		name  string
		other DateRange
		want  bool
	}{
		{"disjoint before", rng(day(2026, 1, 1), day(2026, 1, 5)), false},
		{"disjoint after", rng(day(2026, 1, 20), day(2026, 1, 25)), false},
		{"touching left boundary", rng(day(2026, 1, 5), day(2026, 1, 10)), false},
		{"touching right boundary", rng(day(2026, 1, 15), day(2026, 1, 20)), false},
		{"overlap from left", rng(day(2026, 1, 8), day(2026, 1, 11)), true},
		{"overlap from right", rng(day(2026, 1, 14), day(2026, 1, 18)), true},
		{"contained", rng(day(2026, 1, 11), day(2026, 1, 13)), true},
		{"containing", rng(day(2026, 1, 5), day(2026, 1, 20)), true},
		{"identical", base, true},
		{"single night inside", rng(day(2026, 1, 12), day(2026, 1, 13)), true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, base.Overlaps(tc.other))
			assert.Equal(t, tc.want, tc.other.Overlaps(base), "overlap must be symmetric")
		})
	}
}

func TestContains(t *testing.T) {
	r := rng(day(2026, 1, 10), day(2026, 1, 12))
	assert.True(t, r.Contains(day(2026, 1, 10)), "check-in day is inside")
	assert.True(t, r.Contains(day(2026, 1, 11)))
	assert.False(t, r.Contains(day(2026, 1, 12)), "checkout day is exclusive")
	assert.False(t, r.Contains(day(2026, 1, 9)))
}

func TestIsAvailable(t *testing.T) {
	active := []DateRange{
		rng(day(2026, 1, 10), day(2026, 1, 12)),
		rng(day(2026, 1, 20), day(2026, 1, 25)),
	}

	assert.True(t, IsAvailable(rng(day(2026, 1, 12), day(2026, 1, 14)), active),
		"checkout day of an existing stay can be a new check-in day")
	assert.False(t, IsAvailable(rng(day(2026, 1, 11), day(2026, 1, 13)), active))
	assert.True(t, IsAvailable(rng(day(2026, 1, 14), day(2026, 1, 20)), active))
	assert.True(t, IsAvailable(rng(day(2026, 1, 1), day(2026, 1, 3)), nil),
		"no active bookings means everything is free")
}

func TestDateTruncation(t *testing.T) {
	late := time.Date(2026, 1, 10, 23, 59, 59, 0, time.UTC)
	require.Equal(t, day(2026, 1, 10), Date(late))

	// A non-UTC instant truncates to its UTC calendar date.
	loc := time.FixedZone("UTC+5", 5*3600)
	early := time.Date(2026, 1, 11, 2, 0, 0, 0, loc) // 21:00 Jan 10 UTC
	require.Equal(t, day(2026, 1, 10), Date(early))
}
