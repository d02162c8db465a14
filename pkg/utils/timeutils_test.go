package utils

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDateFormatsUseUTC(t *testing.T) {
	// 23:30 em UTC-3 já é o dia seguinte em UTC
	loc := time.FixedZone("BRT", -3*60*60)
	instant := time.Date(2024, 3, 9, 23, 30, 0, 0, loc)

	assert.Equal(t, "2024/03/10", DatePath(instant))
	assert.Equal(t, "20240310", DateStamp(instant))
}

func TestParseDate(t *testing.T) {
	d, err := ParseDate("2024-01-05")
	require.NoError(t, err)
	assert.Equal(t, time.Date(2024, 1, 5, 0, 0, 0, 0, time.UTC), d)

	d, err = ParseDate("20240105")
	require.NoError(t, err)
	assert.Equal(t, 5, d.Day())

	_, err = ParseDate("05/01/2024")
	assert.Error(t, err)
}

func TestFormatDuration(t *testing.T) {
	assert.Equal(t, "45s", FormatDuration(45*time.Second))
	assert.Equal(t, "2m 5s", FormatDuration(125*time.Second))
	assert.Equal(t, "1h 0m 1s", FormatDuration(time.Hour+time.Second))
}
