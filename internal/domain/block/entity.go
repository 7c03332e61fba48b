package block

import (
	"sort"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"teesheet/internal/pkg/clock"
)

type Type string

const (
	TypeMaintenance Type = "MAINTENANCE"
	TypeTournament  Type = "TOURNAMENT"
	TypeWeather     Type = "WEATHER"
	TypePrivate     Type = "PRIVATE"
	TypeStarter     Type = "STARTER"
)

func (t Type) Valid() bool {
	switch t {
	case TypeMaintenance, TypeTournament, TypeWeather, TypePrivate, TypeStarter:
		return true
	}
	return false
}

// Block removes a time range from bookable inventory on a course.
type Block struct {
	ID       uuid.UUID `json:"id" gorm:"type:uuid;primaryKey"`
	CourseID int64     `json:"course_id" gorm:"not null;index:idx_blocks_course_start,priority:1"`
	Type     Type      `json:"type" gorm:"type:varchar(16);not null"`
	StartsAt time.Time `json:"starts_at" gorm:"not null;index:idx_blocks_course_start,priority:2"`
	EndsAt   time.Time `json:"ends_at" gorm:"not null"`
	// RecurrenceRule is the stored form of Recurrence.
	RecurrenceRule string  `json:"recurrence,omitempty" gorm:"column:recurrence;type:varchar(64);not null;default:''"`
	Until          *string `json:"until,omitempty" gorm:"type:varchar(10)"`
	Reason         string  `json:"reason"`
	CreatedBy      string  `json:"created_by,omitempty"`

	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `json:"-" gorm:"index"`

	Recurrence Recurrence `json:"-" gorm:"-"`
}

func (Block) TableName() string { return "blocks" }

func (b *Block) BeforeCreate(_ *gorm.DB) error {
	if b.ID == uuid.Nil {
		b.ID = uuid.New()
	}
	return nil
}

func (b *Block) BeforeSave(_ *gorm.DB) error {
	b.StartsAt = b.StartsAt.UTC()
	b.EndsAt = b.EndsAt.UTC()
	b.RecurrenceRule = ""
	if b.Recurrence != nil {
		b.RecurrenceRule = b.Recurrence.String()
	}
	return nil
}

func (b *Block) AfterFind(_ *gorm.DB) error {
	rec, err := ParseRecurrence(b.RecurrenceRule)
	if err != nil {
		return err
	}
	b.Recurrence = rec
	return nil
}

// LiveOn reports whether the block still shapes the sheet for d. A deleted
// block keeps applying to days that ended before it was deleted.
func (b *Block) LiveOn(d clock.Date, loc *time.Location) bool {
	if !b.DeletedAt.Valid {
		return true
	}
	return !d.AddDays(1).In(loc).After(b.DeletedAt.Time)
}

// Occurrence is one concrete blocked range.
type Occurrence struct {
	BlockID uuid.UUID `json:"block_id"`
	Type    Type      `json:"type"`
	Reason  string    `json:"reason"`
	Start   time.Time `json:"start"`
	End     time.Time `json:"end"`
}

// Overlaps reports whether [start, end) intersects the occurrence.
func (o Occurrence) Overlaps(start, end time.Time) bool {
	return o.Start.Before(end) && start.Before(o.End)
}

// Occurrences returns the ranges of b that intersect civil date d in loc.
// Recurring blocks repeat the time-of-day of StartsAt with the same duration.
func (b *Block) Occurrences(d clock.Date, loc *time.Location) []Occurrence {
	dayStart := d.In(loc)
	dayEnd := d.AddDays(1).In(loc)

	if b.Recurrence == nil {
		if b.StartsAt.Before(dayEnd) && dayStart.Before(b.EndsAt) {
			return []Occurrence{b.occurrence(b.StartsAt, b.EndsAt)}
		}
		return nil
	}

	anchor := b.StartsAt.In(loc)
	first := clock.DateOf(anchor)
	dur := b.EndsAt.Sub(b.StartsAt)
	var until *clock.Date
	if b.Until != nil {
		if u, err := clock.ParseDate(*b.Until); err == nil {
			until = &u
		}
	}

	// an occurrence starting on an earlier day can run past midnight into d
	back := int(dur/(24*time.Hour)) + 1
	var out []Occurrence
	for k := back; k >= 0; k-- {
		c := d.AddDays(-k)
		if c.Before(first) || (until != nil && c.After(*until)) || !b.Recurrence.Matches(c) {
			continue
		}
		start := time.Date(c.Year, c.Month, c.Day, anchor.Hour(), anchor.Minute(), anchor.Second(), 0, loc)
		end := start.Add(dur)
		if start.Before(dayEnd) && dayStart.Before(end) {
			out = append(out, b.occurrence(start, end))
		}
	}
	return out
}

func (b *Block) occurrence(start, end time.Time) Occurrence {
	return Occurrence{BlockID: b.ID, Type: b.Type, Reason: b.Reason, Start: start, End: end}
}

// Expand collects the occurrences of blocks on d in a deterministic order.
func Expand(blocks []Block, d clock.Date, loc *time.Location) []Occurrence {
	var out []Occurrence
	for i := range blocks {
		out = append(out, blocks[i].Occurrences(d, loc)...)
	}
	sort.SliceStable(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if !a.Start.Equal(b.Start) {
			return a.Start.Before(b.Start)
		}
		if !a.End.Equal(b.End) {
			return a.End.Before(b.End)
		}
		if a.Type != b.Type {
			return a.Type < b.Type
		}
		return a.BlockID.String() < b.BlockID.String()
	})
	return out
}

// sameRule reports whether two blocks describe the same (course, type, range, recurrence, until).
func sameRule(a, b *Block) bool {
	if a.CourseID != b.CourseID || a.Type != b.Type {
		return false
	}
	if !a.StartsAt.Equal(b.StartsAt) || !a.EndsAt.Equal(b.EndsAt) {
		return false
	}
	if ruleOf(a) != ruleOf(b) {
		return false
	}
	switch {
	case a.Until == nil && b.Until == nil:
		return true
	case a.Until == nil || b.Until == nil:
		return false
	default:
		return *a.Until == *b.Until
	}
}

func ruleOf(b *Block) string {
	if b.Recurrence == nil {
		return ""
	}
	return b.Recurrence.String()
}
