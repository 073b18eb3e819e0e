package handler

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/hotel-reservation/internal/booking"
)

func TestParseRange(t *testing.T) {
	r, err := parseRange("2026-01-10", "2026-01-12")
	require.NoError(t, err)
	assert.Equal(t, time.Date(2026, 1, 10, 0, 0, 0, 0, time.UTC), r.CheckIn)
	assert.Equal(t, time.Date(2026, 1, 12, 0, 0, 0, 0, time.UTC), r.CheckOut)

	_, err = parseRange("not-a-date", "2026-01-12")
	assert.Error(t, err)

	_, err = parseRange("2026-01-10", "2026/01/12")
	assert.Error(t, err)

	_, err = parseRange("2026-01-12", "2026-01-10")
	assert.Error(t, err, "inverted range")

	_, err = parseRange("2026-01-10", "2026-01-10")
	assert.Error(t, err, "zero nights")
}

func TestParseRangeCapsStayLength(t *testing.T) {
	// One night past the cap is rejected before any repository work.
	over := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC).
		AddDate(0, 0, booking.MaxStayNights+1)
	_, err := parseRange("2026-01-01", over.Format("2006-01-02"))
	assert.Error(t, err)

	atCap := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC).
		AddDate(0, 0, booking.MaxStayNights)
	r, err := parseRange("2026-01-01", atCap.Format("2006-01-02"))
	require.NoError(t, err)
	assert.Equal(t, booking.MaxStayNights, r.Nights())
}
