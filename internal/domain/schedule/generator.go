package schedule

import (
	"fmt"

	"teesheet/internal/domain/block"
	"teesheet/internal/pkg/clock"
)

// Validate checks the grid parameters.
func (c *Config) Validate() error {
	if c.IntervalMinutes <= 0 {
		return ErrInvalidConfig.Wrap(fmt.Errorf("interval must be positive, got %d", c.IntervalMinutes))
	}
	if c.ClosesAt <= c.OpensAt {
		return ErrInvalidConfig.Wrap(fmt.Errorf("closes_at %s must be after opens_at %s", c.ClosesAt, c.OpensAt))
	}
	if c.OpensAt < 0 || c.ClosesAt > clock.EndOfDay {
		return ErrInvalidConfig.Wrap(fmt.Errorf("hours must fall within one day"))
	}
	if _, err := c.Location(); err != nil {
		return err
	}
	return nil
}

// Generate lays out the tee-time grid for date. A slot at t exists while
// t + interval <= ClosesAt. A slot whose range intersects any block
// occurrence is BLOCKED and carries the earliest such block.
//
// Generate is pure: the same inputs always give the same slots.
func Generate(cfg Config, date clock.Date, blocks []block.Block) ([]TeeTimeSlot, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	loc, _ := cfg.Location()
	occurrences := block.Expand(blocks, date, loc)

	var slots []TeeTimeSlot
	for t := cfg.OpensAt; t.Add(cfg.IntervalMinutes) <= cfg.ClosesAt; t = t.Add(cfg.IntervalMinutes) {
		start := t.On(date, loc)
		end := t.Add(cfg.IntervalMinutes).On(date, loc)
		slot := TeeTimeSlot{
			CourseID: cfg.CourseID,
			Date:     date.String(),
			TeeTime:  t,
			StartsAt: start,
			EndsAt:   end,
			Status:   SlotOpen,
			Capacity: SlotCapacity,
		}
		for _, occ := range occurrences {
			if occ.Overlaps(start, end) {
				id := occ.BlockID
				slot.Status = SlotBlocked
				slot.BlockID = &id
				slot.BlockType = occ.Type
				slot.BlockReason = occ.Reason
				break
			}
		}
		slots = append(slots, slot)
	}
	return slots, nil
}
