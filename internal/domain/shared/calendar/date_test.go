package calendar_test

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"eventbook/internal/domain/shared/calendar"
)

func TestDateOfIgnoresTimeOfDay(t *testing.T) {
	loc := time.FixedZone("WAT", 3600)
	late := time.Date(2025, 12, 1, 23, 30, 0, 0, loc)
	assert.Equal(t, "2025-12-01", calendar.DateOf(late).String())
}

func TestDaysUntil(t *testing.T) {
	from := calendar.MustParse("2025-11-21")
	to := calendar.MustParse("2025-12-01")
	assert.Equal(t, 10, from.DaysUntil(to))
	assert.Equal(t, -10, to.DaysUntil(from))
	assert.Equal(t, 0, to.DaysUntil(to))
}

func TestParseRejectsGarbage(t *testing.T) {
	_, err := calendar.Parse("01/12/2025")
	assert.ErrorIs(t, err, calendar.ErrInvalidDate)
	_, err = calendar.Parse("")
	assert.ErrorIs(t, err, calendar.ErrInvalidDate)
}

func TestDateJSONRoundTrip(t *testing.T) {
	var payload struct {
		Date calendar.Date `json:"date"`
	}
	require.NoError(t, json.Unmarshal([]byte(`{"date":"2026-02-28"}`), &payload))
	assert.Equal(t, calendar.NewDate(2026, time.February, 28), payload.Date)

	out, err := json.Marshal(payload)
	require.NoError(t, err)
	assert.JSONEq(t, `{"date":"2026-02-28"}`, string(out))
}

func TestRange(t *testing.T) {
	r, err := calendar.NewRange(calendar.MustParse("2025-12-01"), calendar.MustParse("2025-12-07"))
	require.NoError(t, err)
	assert.Equal(t, 7, r.Days())
	assert.True(t, r.Contains(calendar.MustParse("2025-12-07")))
	assert.False(t, r.Contains(calendar.MustParse("2025-12-08")))

	_, err = calendar.NewRange(calendar.MustParse("2025-12-07"), calendar.MustParse("2025-12-01"))
	assert.ErrorIs(t, err, calendar.ErrInvalidRange)
}
