package model

import (
	"testing"
	"time"
	_ "time/tzdata"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseStatus(t *testing.T) {
	for token, want := range map[string]Status{
		"active":    StatusActive,
		"ACTIVE":    StatusActive,
		" Inactive": StatusInactive,
		"inactive":  StatusInactive,
	} {
		got, err := ParseStatus(token)
		require.NoError(t, err, token)
		assert.Equal(t, want, got, token)
	}

	_, err := ParseStatus("unknown")
	assert.Error(t, err)
}

func TestParseTimeOfDay(t *testing.T) {
	tod, err := ParseTimeOfDay("09:30:15")
	require.NoError(t, err)
	assert.Equal(t, NewTimeOfDay(9, 30, 15), tod)
	assert.Equal(t, "09:30:15", tod.String())

	tod, err = ParseTimeOfDay("23:59")
	require.NoError(t, err)
	assert.Equal(t, NewTimeOfDay(23, 59, 0), tod)

	_, err = ParseTimeOfDay("25:00:00")
	assert.Error(t, err)
}

func TestClockOfKeepsSubSecondPrecision(t *testing.T) {
	ts := time.Date(2023, 1, 23, 17, 0, 0, 500, time.UTC)
	tod := ClockOf(ts)

	assert.True(t, tod > NewTimeOfDay(17, 0, 0))
	h, m, s, ns := tod.Split()
	assert.Equal(t, []int{17, 0, 0, 500}, []int{h, m, s, ns})
}

func TestTimeOfDayOn(t *testing.T) {
	loc, err := time.LoadLocation("America/Chicago")
	require.NoError(t, err)

	at := NewTimeOfDay(9, 0, 0).On(2023, time.January, 23, loc)
	assert.Equal(t, time.Date(2023, 1, 23, 15, 0, 0, 0, time.UTC), at.UTC())
}
