package slot

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizeToHourStart(t *testing.T) {
	in := time.Date(2024, 5, 1, 10, 7, 42, 123456789, time.UTC)
	assert.Equal(t, time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC), NormalizeToHourStart(in, time.UTC))

	aligned := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)
	assert.Equal(t, aligned, NormalizeToHourStart(aligned, nil))
}

func TestNormalizeToHourStartUsesTargetLocation(t *testing.T) {
	ist := time.FixedZone("IST", 5*3600+1800)
	in := time.Date(2024, 5, 1, 15, 45, 0, 0, ist)

	got := NormalizeToHourStart(in, time.UTC)
	assert.True(t, got.Equal(time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)))
	assert.Equal(t, 0, got.Minute())

	brt := time.FixedZone("BRT", -3*3600)
	got = NormalizeToHourStart(in, brt)
	assert.Equal(t, brt, got.Location())
	assert.Equal(t, 7, got.Hour())
	assert.Equal(t, 0, got.UTC().Minute())
}

func TestIsPast(t *testing.T) {
	now := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)
	assert.True(t, IsPast(now.Add(-time.Nanosecond), now))
	assert.False(t, IsPast(now, now))
	assert.False(t, IsPast(now.Add(time.Hour), now))
}

func TestIsWithinLeadTime(t *testing.T) {
	slotTime := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)

	tests := []struct {
		name string
		now  time.Time
		want bool
	}{
		{"three hours before", time.Date(2024, 5, 1, 7, 0, 0, 0, time.UTC), false},
		{"exactly at window start", time.Date(2024, 5, 1, 8, 0, 0, 0, time.UTC), false},
		{"ninety minutes before", time.Date(2024, 5, 1, 8, 30, 0, 0, time.UTC), true},
		{"after the slot", time.Date(2024, 5, 1, 11, 0, 0, 0, time.UTC), true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, IsWithinLeadTime(slotTime, DefaultCancellationLead, tt.now))
		})
	}
}

func TestParseDate(t *testing.T) {
	loc := time.FixedZone("BRT", -3*3600)

	got, err := ParseDate("2024-05-01T10:07:00Z", loc)
	require.NoError(t, err)
	assert.True(t, got.Equal(time.Date(2024, 5, 1, 10, 7, 0, 0, time.UTC)))

	got, err = ParseDate("2024-05-01T10:07", loc)
	require.NoError(t, err)
	assert.True(t, got.Equal(time.Date(2024, 5, 1, 10, 7, 0, 0, loc)))

	got, err = ParseDate("2024-05-01T10:07:00.500-03:00", nil)
	require.NoError(t, err)
	assert.Equal(t, 500*int(time.Millisecond), got.Nanosecond())

	_, err = ParseDate("", loc)
	assert.Error(t, err)
	_, err = ParseDate("tomorrow", loc)
	assert.Error(t, err)
	_, err = ParseDate("2024-13-01T10:00:00Z", loc)
	assert.Error(t, err)
}

func TestFixedClock(t *testing.T) {
	at := time.Date(2024, 5, 1, 7, 0, 0, 0, time.UTC)
	var c Clock = FixedClock(at)
	assert.Equal(t, at, c.Now())
}
