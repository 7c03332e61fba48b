package block

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"teesheet/internal/database"
	"teesheet/internal/pkg/apperr"
)

func setupManager(t *testing.T) *Manager {
	t.Helper()
	db, err := database.OpenMemory("block_" + t.Name())
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&Block{}))
	return NewManager(NewRepository(db))
}

func TestCreate_Validation(t *testing.T) {
	m := setupManager(t)
	ctx := context.Background()
	start := time.Date(2026, 5, 4, 6, 0, 0, 0, bkk)

	_, err := m.Create(ctx, Input{CourseID: 1, Type: TypeWeather, StartsAt: start, EndsAt: start}, bkk)
	assert.ErrorIs(t, err, ErrInvalidRange)
	assert.ErrorIs(t, err, apperr.ErrValidation)

	_, err = m.Create(ctx, Input{CourseID: 1, Type: "SNOW", StartsAt: start, EndsAt: start.Add(time.Hour)}, bkk)
	assert.ErrorIs(t, err, ErrInvalidType)

	until := day("2026-05-01")
	_, err = m.Create(ctx, Input{CourseID: 1, Type: TypePrivate, StartsAt: start, EndsAt: start.Add(time.Hour), Recurrence: Daily{}, Until: &until}, bkk)
	assert.ErrorIs(t, err, ErrUntilBeforeFrom)
}

func TestCreate_IdenticalRuleUpdatesReason(t *testing.T) {
	m := setupManager(t)
	ctx := context.Background()
	start := time.Date(2026, 5, 4, 6, 0, 0, 0, bkk)
	in := Input{CourseID: 1, Type: TypeMaintenance, StartsAt: start, EndsAt: start.Add(time.Hour), Reason: "mowing"}

	first, err := m.Create(ctx, in, bkk)
	require.NoError(t, err)

	in.Reason = "mowing + bunkers"
	second, err := m.Create(ctx, in, bkk)
	require.NoError(t, err)
	assert.Equal(t, first.ID, second.ID)

	// a different type over the same range is its own block
	in.Type = TypeWeather
	third, err := m.Create(ctx, in, bkk)
	require.NoError(t, err)
	assert.NotEqual(t, first.ID, third.ID)

	blocks, err := m.ListActive(ctx, 1, day("2026-05-04"), day("2026-05-04"), bkk)
	require.NoError(t, err)
	require.Len(t, blocks, 2)
	for _, b := range blocks {
		if b.ID == first.ID {
			assert.Equal(t, "mowing + bunkers", b.Reason)
		}
	}
}

func TestListActive_RecurringAndDeleted(t *testing.T) {
	m := setupManager(t)
	ctx := context.Background()
	start := time.Date(2026, 5, 4, 7, 0, 0, 0, bkk)

	weekly, err := m.Create(ctx, Input{
		CourseID:   1,
		Type:       TypePrivate,
		StartsAt:   start,
		EndsAt:     start.Add(90 * time.Minute),
		Recurrence: Weekly{Days: NewWeekdaySet(time.Monday)},
		Reason:     "members league",
	}, bkk)
	require.NoError(t, err)

	occ, err := m.OccurrencesOn(ctx, 1, day("2026-05-18"), bkk)
	require.NoError(t, err)
	require.Len(t, occ, 1)
	assert.Equal(t, weekly.ID, occ[0].BlockID)

	occ, err = m.OccurrencesOn(ctx, 1, day("2026-05-19"), bkk)
	require.NoError(t, err)
	assert.Empty(t, occ)

	got, err := m.Get(ctx, weekly.ID)
	require.NoError(t, err)
	assert.Equal(t, "WEEKLY:MON", got.Recurrence.String())

	m.now = func() time.Time { return time.Date(2026, 5, 11, 9, 0, 0, 0, bkk) }
	require.NoError(t, m.Delete(ctx, weekly.ID))
	occ, err = m.OccurrencesOn(ctx, 1, day("2026-05-18"), bkk)
	require.NoError(t, err)
	assert.Empty(t, occ)

	// deletion day and later are free; earlier Mondays keep their block
	occ, err = m.OccurrencesOn(ctx, 1, day("2026-05-11"), bkk)
	require.NoError(t, err)
	assert.Empty(t, occ)
	occ, err = m.OccurrencesOn(ctx, 1, day("2026-05-04"), bkk)
	require.NoError(t, err)
	require.Len(t, occ, 1)
	assert.Equal(t, weekly.ID, occ[0].BlockID)

	_, err = m.Get(ctx, weekly.ID)
	assert.ErrorIs(t, err, ErrBlockNotFound)

	assert.ErrorIs(t, m.Delete(ctx, weekly.ID), ErrBlockNotFound)
}
