package schedule

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"teesheet/internal/database"
	"teesheet/internal/domain/block"
	"teesheet/internal/pkg/clock"
)

func setupService(t *testing.T) (*Service, *block.Manager) {
	t.Helper()
	db, err := database.OpenMemory("schedule_" + t.Name())
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&Config{}, &block.Block{}))
	blocks := block.NewManager(block.NewRepository(db))
	return NewService(NewRepository(db), blocks), blocks
}

func TestSaveConfig_VersionsByEffectiveDate(t *testing.T) {
	svc, _ := setupService(t)
	ctx := context.Background()

	first, err := svc.SaveConfig(ctx, &Config{CourseID: 1, EffectiveFrom: "2026-01-01", OpensAt: tod("06:00"), ClosesAt: tod("17:30"), IntervalMinutes: 8})
	require.NoError(t, err)
	assert.Equal(t, 1, first.Version)
	assert.Equal(t, DefaultTimezone, first.Timezone)

	second, err := svc.SaveConfig(ctx, &Config{CourseID: 1, EffectiveFrom: "2026-06-01", OpensAt: tod("05:30"), ClosesAt: tod("18:00"), IntervalMinutes: 10})
	require.NoError(t, err)
	assert.Equal(t, 2, second.Version)

	may, _ := clock.ParseDate("2026-05-31")
	cfg, err := svc.GetConfig(ctx, 1, may)
	require.NoError(t, err)
	assert.Equal(t, 8, cfg.IntervalMinutes)

	june, _ := clock.ParseDate("2026-06-01")
	cfg, err = svc.GetConfig(ctx, 1, june)
	require.NoError(t, err)
	assert.Equal(t, 10, cfg.IntervalMinutes)

	dec, _ := clock.ParseDate("2025-12-31")
	_, err = svc.GetConfig(ctx, 1, dec)
	assert.ErrorIs(t, err, ErrConfigNotFound)

	_, err = svc.SaveConfig(ctx, &Config{CourseID: 1, EffectiveFrom: "2026-07-01", OpensAt: tod("06:00"), ClosesAt: tod("05:00"), IntervalMinutes: 8})
	assert.ErrorIs(t, err, ErrInvalidConfig)
}

func TestGetSlots_AppliesStoredBlocks(t *testing.T) {
	svc, blocks := setupService(t)
	ctx := context.Background()

	_, err := svc.SaveConfig(ctx, &Config{CourseID: 1, EffectiveFrom: "2026-01-01", OpensAt: tod("06:00"), ClosesAt: tod("08:00"), IntervalMinutes: 10, Crossover: true})
	require.NoError(t, err)

	loc, err := svc.Location(ctx, 1)
	require.NoError(t, err)
	start := time.Date(2026, 5, 4, 7, 0, 0, 0, loc)
	_, err = blocks.Create(ctx, block.Input{
		CourseID: 1, Type: block.TypeStarter, StartsAt: start, EndsAt: start.Add(20 * time.Minute), Reason: "shotgun prep",
	}, loc)
	require.NoError(t, err)

	date, _ := clock.ParseDate("2026-05-04")
	sheet, err := svc.GetSlots(ctx, 1, date)
	require.NoError(t, err)
	assert.True(t, sheet.Crossover)
	require.Len(t, sheet.Slots, 12)

	var blocked []string
	for _, s := range sheet.Slots {
		if s.Status == SlotBlocked {
			blocked = append(blocked, s.TeeTime.String())
		}
	}
	assert.Equal(t, []string{"07:00", "07:10"}, blocked)

	// same inputs, same sheet
	again, err := svc.GetSlots(ctx, 1, date)
	require.NoError(t, err)
	assert.Equal(t, sheet.Slots, again.Slots)
}

func TestLocation_DefaultsWithoutConfig(t *testing.T) {
	svc, _ := setupService(t)
	loc, err := svc.Location(context.Background(), 99)
	require.NoError(t, err)
	assert.Equal(t, DefaultTimezone, loc.String())
}
