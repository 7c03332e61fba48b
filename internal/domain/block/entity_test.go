package block

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"teesheet/internal/pkg/clock"
)

var bkk = mustLoad("Asia/Bangkok")

func mustLoad(name string) *time.Location {
	loc, err := time.LoadLocation(name)
	if err != nil {
		panic(err)
	}
	return loc
}

func day(s string) clock.Date {
	d, err := clock.ParseDate(s)
	if err != nil {
		panic(err)
	}
	return d
}

func TestParseRecurrence(t *testing.T) {
	rec, err := ParseRecurrence("weekly:mon, wed")
	require.NoError(t, err)
	assert.Equal(t, "WEEKLY:MON,WED", rec.String())
	assert.True(t, rec.Matches(day("2026-05-04")))  // Monday
	assert.False(t, rec.Matches(day("2026-05-05"))) // Tuesday

	rec, err = ParseRecurrence("")
	require.NoError(t, err)
	assert.Nil(t, rec)

	_, err = ParseRecurrence("WEEKLY:")
	assert.Error(t, err)
	_, err = ParseRecurrence("MONTHLY")
	assert.Error(t, err)
}

func TestOccurrences_SingleSpan(t *testing.T) {
	b := Block{
		ID:       uuid.New(),
		Type:     TypeMaintenance,
		StartsAt: time.Date(2026, 5, 4, 6, 0, 0, 0, bkk),
		EndsAt:   time.Date(2026, 5, 4, 7, 0, 0, 0, bkk),
		Reason:   "aeration",
	}

	occ := b.Occurrences(day("2026-05-04"), bkk)
	require.Len(t, occ, 1)
	assert.Equal(t, "aeration", occ[0].Reason)
	assert.Empty(t, b.Occurrences(day("2026-05-05"), bkk))
}

func TestOccurrences_WeeklyWithUntil(t *testing.T) {
	until := "2026-05-18"
	b := Block{
		ID:         uuid.New(),
		Type:       TypePrivate,
		StartsAt:   time.Date(2026, 5, 4, 7, 0, 0, 0, bkk),
		EndsAt:     time.Date(2026, 5, 4, 8, 30, 0, 0, bkk),
		Recurrence: Weekly{Days: NewWeekdaySet(time.Monday)},
		Until:      &until,
	}

	occ := b.Occurrences(day("2026-05-11"), bkk)
	require.Len(t, occ, 1)
	assert.Equal(t, time.Date(2026, 5, 11, 7, 0, 0, 0, bkk), occ[0].Start)
	assert.Equal(t, time.Date(2026, 5, 11, 8, 30, 0, 0, bkk), occ[0].End)

	assert.Empty(t, b.Occurrences(day("2026-05-12"), bkk), "tuesday")
	assert.Empty(t, b.Occurrences(day("2026-05-25"), bkk), "after until")
	assert.Empty(t, b.Occurrences(day("2026-04-27"), bkk), "before first")
}

func TestOccurrences_DailyAcrossMidnight(t *testing.T) {
	b := Block{
		ID:         uuid.New(),
		Type:       TypeMaintenance,
		StartsAt:   time.Date(2026, 5, 1, 22, 0, 0, 0, bkk),
		EndsAt:     time.Date(2026, 5, 2, 6, 30, 0, 0, bkk),
		Recurrence: Daily{},
	}

	occ := b.Occurrences(day("2026-05-04"), bkk)
	require.Len(t, occ, 2)
	assert.Equal(t, time.Date(2026, 5, 3, 22, 0, 0, 0, bkk), occ[0].Start)
	assert.Equal(t, time.Date(2026, 5, 4, 6, 30, 0, 0, bkk), occ[0].End)
	assert.Equal(t, time.Date(2026, 5, 4, 22, 0, 0, 0, bkk), occ[1].Start)
}

func TestExpandOrdersDeterministically(t *testing.T) {
	start := time.Date(2026, 5, 4, 9, 0, 0, 0, bkk)
	a := Block{ID: uuid.MustParse("00000000-0000-0000-0000-000000000002"), Type: TypeWeather, StartsAt: start, EndsAt: start.Add(time.Hour)}
	b := Block{ID: uuid.MustParse("00000000-0000-0000-0000-000000000001"), Type: TypeTournament, StartsAt: start, EndsAt: start.Add(time.Hour)}
	c := Block{ID: uuid.New(), Type: TypeStarter, StartsAt: start.Add(-time.Hour), EndsAt: start}

	first := Expand([]Block{a, b, c}, day("2026-05-04"), bkk)
	second := Expand([]Block{c, b, a}, day("2026-05-04"), bkk)

	require.Len(t, first, 3)
	assert.Equal(t, first, second)
	assert.Equal(t, TypeStarter, first[0].Type)
	assert.Equal(t, TypeTournament, first[1].Type)
	assert.Equal(t, TypeWeather, first[2].Type)
}
