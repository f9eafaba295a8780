package validate

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var saoPaulo = mustLocation("America/Sao_Paulo")

func mustLocation(name string) *time.Location {
	loc, err := time.LoadLocation(name)
	if err != nil {
		panic(err)
	}
	return loc
}

// Monday 2026-10-19, late evening local time.
var now = time.Date(2026, time.October, 19, 22, 45, 0, 0, saoPaulo)

func TestDate(t *testing.T) {
	tests := []struct {
		name string
		date string
		want error
	}{
		{"today", "2026-10-19", nil},
		{"tomorrow", "2026-10-20", nil},
		{"saturday", "2026-10-24", nil},
		{"yesterday", "2026-10-18", ErrPastDate},
		{"last year", "2025-10-21", ErrPastDate},
		{"next sunday", "2026-10-25", ErrClosedDay},
		{"far sunday", "2027-01-03", ErrClosedDay},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d, err := ParseDate(tt.date, saoPaulo)
			require.NoError(t, err)
			assert.ErrorIs(t, Date(d, now, time.Sunday), tt.want)
		})
	}
}

func TestDate_EveryPastDayFails(t *testing.T) {
	for i := 1; i <= 60; i++ {
		d := now.AddDate(0, 0, -i)
		assert.Error(t, Date(d, now, time.Sunday), d.Format(dateLayout))
	}
}

func TestDate_FutureDaysOnlyFailOnSunday(t *testing.T) {
	for i := 0; i <= 60; i++ {
		d := now.AddDate(0, 0, i)
		err := Date(d, now, time.Sunday)
		if d.Weekday() == time.Sunday {
			assert.ErrorIs(t, err, ErrClosedDay, d.Format(dateLayout))
		} else {
			assert.NoError(t, err, d.Format(dateLayout))
		}
	}
}

func TestDate_UsesCalendarDayOfNowLocation(t *testing.T) {
	// 01:30 UTC on the 20th is still the 19th in São Paulo.
	utcNow := time.Date(2026, time.October, 20, 1, 30, 0, 0, time.UTC).In(saoPaulo)
	d, err := ParseDate("2026-10-19", saoPaulo)
	require.NoError(t, err)

	assert.NoError(t, Date(d, utcNow, time.Sunday))
}

func TestParseDate_Invalid(t *testing.T) {
	for _, v := range []string{"", "19/10/2026", "2026-13-01", "amanhã"} {
		_, err := ParseDate(v, saoPaulo)
		assert.ErrorIs(t, err, ErrInvalidDate, v)
	}
}

func TestTime(t *testing.T) {
	hours := Hours{Open: "06:00", Close: "18:30"}

	tests := []struct {
		value string
		want  error
	}{
		{"", nil},
		{"06:00", nil},
		{"05:59", ErrOutsideHours},
		{"10:00", nil},
		{"18:30", nil},
		{"18:31", ErrOutsideHours},
		{"23:59", ErrOutsideHours},
		{"00:00", ErrOutsideHours},
		{"10h", ErrInvalidTime},
		{"25:00", ErrInvalidTime},
		{"10:7", ErrInvalidTime},
	}

	for _, tt := range tests {
		t.Run(tt.value, func(t *testing.T) {
			assert.ErrorIs(t, Time(tt.value, hours), tt.want)
		})
	}
}

func TestTime_InclusiveForEveryMinute(t *testing.T) {
	hours := Hours{Open: "06:00", Close: "18:30"}
	for m := 0; m < 24*60; m++ {
		value := time.Date(2026, 1, 1, m/60, m%60, 0, 0, time.UTC).Format("15:04")
		err := Time(value, hours)
		if m >= 6*60 && m <= 18*60+30 {
			assert.NoError(t, err, value)
		} else {
			assert.ErrorIs(t, err, ErrOutsideHours, value)
		}
	}
}
