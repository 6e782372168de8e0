package candle

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizeTimeTime(t *testing.T) {
	in := time.Date(2025, 1, 1, 12, 0, 0, 0, time.FixedZone("EST", -5*3600))
	got, ok := Normalize(in)
	require.True(t, ok)
	assert.Equal(t, in.UTC(), got)
}

func TestNormalizeEpochSeconds(t *testing.T) {
	got, ok := Normalize(int64(1735732800))
	require.True(t, ok)
	assert.Equal(t, time.Unix(1735732800, 0).UTC(), got)
}

func TestNormalizeEpochFloatSeconds(t *testing.T) {
	got, ok := Normalize(1735732800.5)
	require.True(t, ok)
	assert.Equal(t, int64(1735732800), got.Unix())
	assert.InDelta(t, 5e8, float64(got.Nanosecond()), 1e6)
}

func TestNormalizeEpochMillis(t *testing.T) {
	got, ok := Normalize(float64(1735732800123))
	require.True(t, ok)
	assert.Equal(t, int64(1735732800), got.Unix())
}

func TestNormalizeSecondsNanos(t *testing.T) {
	got, ok := Normalize(SecondsNanos{Seconds: 1735732800, Nanos: 500})
	require.True(t, ok)
	assert.Equal(t, int64(1735732800), got.Unix())
	assert.Equal(t, 500, got.Nanosecond())
}

func TestNormalizeISOString(t *testing.T) {
	got, ok := Normalize("2025-01-01T12:00:00Z")
	require.True(t, ok)
	assert.Equal(t, time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC), got)
}

func TestNormalizeUnparseable(t *testing.T) {
	_, ok := Normalize("not-a-timestamp")
	assert.False(t, ok)

	_, ok = Normalize(struct{}{})
	assert.False(t, ok)
}
