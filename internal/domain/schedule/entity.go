package schedule

import (
	"time"

	"github.com/google/uuid"

	"teesheet/internal/domain/block"
	"teesheet/internal/pkg/clock"
)

const (
	DefaultTimezone = "Asia/Bangkok"
	SlotCapacity    = 4
)

// Config is one effective-dated version of a course's tee-time grid.
// The config for a date is the latest version with EffectiveFrom <= date.
type Config struct {
	ID              int64           `json:"id" gorm:"primaryKey"`
	CourseID        int64           `json:"course_id" gorm:"not null;uniqueIndex:idx_schedule_course_effective,priority:1"`
	EffectiveFrom   string          `json:"effective_from" gorm:"type:varchar(10);not null;uniqueIndex:idx_schedule_course_effective,priority:2"`
	Timezone        string          `json:"timezone" gorm:"type:varchar(64);not null"`
	OpensAt         clock.TimeOfDay `json:"opens_at" gorm:"not null"`
	ClosesAt        clock.TimeOfDay `json:"closes_at" gorm:"not null"`
	IntervalMinutes int             `json:"interval_minutes" gorm:"not null"`
	Crossover       bool            `json:"crossover"`
	Shotgun         bool            `json:"shotgun"`
	Version         int             `json:"version" gorm:"not null"`
	CreatedBy       string          `json:"created_by,omitempty"`
	CreatedAt       time.Time       `json:"created_at"`
}

func (Config) TableName() string { return "schedule_configs" }

func (c *Config) Location() (*time.Location, error) {
	tz := c.Timezone
	if tz == "" {
		tz = DefaultTimezone
	}
	loc, err := time.LoadLocation(tz)
	if err != nil {
		return nil, ErrInvalidConfig.Wrap(err)
	}
	return loc, nil
}

type SlotStatus string

const (
	SlotOpen    SlotStatus = "OPEN"
	SlotBlocked SlotStatus = "BLOCKED"
)

// TeeTimeSlot is one generated start on the grid. It is never persisted.
type TeeTimeSlot struct {
	CourseID    int64           `json:"course_id"`
	Date        string          `json:"date"`
	TeeTime     clock.TimeOfDay `json:"tee_time"`
	StartsAt    time.Time       `json:"starts_at"`
	EndsAt      time.Time       `json:"ends_at"`
	Status      SlotStatus      `json:"status"`
	Capacity    int             `json:"capacity"`
	BlockID     *uuid.UUID      `json:"block_id,omitempty"`
	BlockType   block.Type      `json:"block_type,omitempty"`
	BlockReason string          `json:"block_reason,omitempty"`
}

// Sheet is the generated grid for one course and date.
type Sheet struct {
	CourseID  int64         `json:"course_id"`
	Date      string        `json:"date"`
	Timezone  string        `json:"timezone"`
	Crossover bool          `json:"crossover"`
	Shotgun   bool          `json:"shotgun"`
	Slots     []TeeTimeSlot `json:"slots"`
}

// Find returns the slot starting at t.
func (s *Sheet) Find(t clock.TimeOfDay) (TeeTimeSlot, bool) {
	for _, slot := range s.Slots {
		if slot.TeeTime == t {
			return slot, true
		}
	}
	return TeeTimeSlot{}, false
}
