package block

import (
	"time"

	"teesheet/internal/pkg/clock"
)

type BlockRequest struct {
	Type       Type      `json:"type" validate:"required,oneof=MAINTENANCE TOURNAMENT WEATHER PRIVATE STARTER"`
	StartsAt   time.Time `json:"starts_at" validate:"required"`
	EndsAt     time.Time `json:"ends_at" validate:"required"`
	Recurrence string    `json:"recurrence"`
	Until      string    `json:"until" validate:"omitempty,civildate"`
	Reason     string    `json:"reason" validate:"max=255"`
}

func (r BlockRequest) toInput(courseID int64, editor string) (Input, error) {
	rec, err := ParseRecurrence(r.Recurrence)
	if err != nil {
		return Input{}, ErrInvalidRule.Wrap(err)
	}
	in := Input{
		CourseID:   courseID,
		Type:       r.Type,
		StartsAt:   r.StartsAt,
		EndsAt:     r.EndsAt,
		Recurrence: rec,
		Reason:     r.Reason,
		Editor:     editor,
	}
	if r.Until != "" {
		u, err := clock.ParseDate(r.Until)
		if err != nil {
			return Input{}, ErrInvalidRule.Wrap(err)
		}
		in.Until = &u
	}
	return in, nil
}
