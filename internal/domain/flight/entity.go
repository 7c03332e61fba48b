package flight

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"teesheet/internal/domain/member"
	"teesheet/internal/pkg/clock"
)

const MaxPlayers = 4

// Flight is a booked tee-time occurrence. Version gates flight edits and
// CartVersion gates cart edits; they move independently so a desk editing a
// cart never conflicts with a starter adjusting the group.
type Flight struct {
	ID       uuid.UUID       `json:"id" gorm:"type:uuid;primaryKey"`
	CourseID int64           `json:"course_id" gorm:"not null;index:idx_flights_course_date,priority:1;uniqueIndex:idx_flights_slot,priority:1,where:status <> 'CANCELLED' AND status <> 'NO_SHOW'"`
	PlayDate string          `json:"play_date" gorm:"type:varchar(10);not null;index:idx_flights_course_date,priority:2;uniqueIndex:idx_flights_slot,priority:2"`
	TeeTime  clock.TimeOfDay `json:"tee_time" gorm:"not null;uniqueIndex:idx_flights_slot,priority:3"`
	Status   Status          `json:"status" gorm:"type:varchar(16);not null"`
	Notes    string          `json:"notes"`
	CartID   *int64          `json:"cart_id,omitempty"`
	CaddyID  *int64          `json:"caddy_id,omitempty"`

	Version     int64 `json:"version" gorm:"not null;default:1"`
	CartVersion int64 `json:"cart_version" gorm:"not null;default:1"`
	// SettlementHold is the batch id currently charging this flight's carts.
	SettlementHold      *string    `json:"settlement_hold,omitempty" gorm:"type:varchar(36)"`
	SettlementHoldUntil *time.Time `json:"settlement_hold_until,omitempty"`

	CreatedBy string    `json:"created_by,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	Players []PlayerSlot `json:"players" gorm:"foreignKey:FlightID"`
}

func (Flight) TableName() string { return "flights" }

func (f *Flight) BeforeCreate(_ *gorm.DB) error {
	if f.ID == uuid.Nil {
		f.ID = uuid.New()
	}
	return nil
}

// HoldActive reports whether a settlement currently owns the flight's carts.
func (f *Flight) HoldActive(now time.Time) bool {
	return f.SettlementHold != nil && f.SettlementHoldUntil != nil && f.SettlementHoldUntil.After(now)
}

// Date returns the parsed play date.
func (f *Flight) Date() clock.Date {
	d, _ := clock.ParseDate(f.PlayDate)
	return d
}

// Player returns the slot at position.
func (f *Flight) Player(position int) (*PlayerSlot, bool) {
	for i := range f.Players {
		if f.Players[i].Position == position {
			return &f.Players[i], true
		}
	}
	return nil, false
}

func (f *Flight) PlayerByID(id uuid.UUID) (*PlayerSlot, bool) {
	for i := range f.Players {
		if f.Players[i].ID == id {
			return &f.Players[i], true
		}
	}
	return nil, false
}

// AllCheckedIn is true when the flight has players and every one is checked in.
func (f *Flight) AllCheckedIn() bool {
	if len(f.Players) == 0 {
		return false
	}
	for _, p := range f.Players {
		if p.CheckedInAt == nil {
			return false
		}
	}
	return true
}

func (f *Flight) AnyCheckedIn() bool {
	for _, p := range f.Players {
		if p.CheckedInAt != nil {
			return true
		}
	}
	return false
}

// PlayerSlot is an occupied position. Empty positions have no row.
type PlayerSlot struct {
	ID       uuid.UUID   `json:"id" gorm:"type:uuid;primaryKey"`
	FlightID uuid.UUID   `json:"flight_id" gorm:"type:uuid;not null;uniqueIndex:idx_player_slots_position,priority:1"`
	Position int         `json:"position" gorm:"not null;uniqueIndex:idx_player_slots_position,priority:2"`
	RefKind  member.Kind `json:"ref_kind" gorm:"type:varchar(16);not null"`
	// RefID is the directory ref. Walk-ups have none and carry DisplayName instead.
	RefID       string     `json:"ref_id,omitempty" gorm:"type:varchar(64)"`
	DisplayName string     `json:"display_name,omitempty"`
	CheckedInAt *time.Time `json:"checked_in_at,omitempty"`
	PayLater    bool       `json:"pay_later" gorm:"not null;default:false"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

func (PlayerSlot) TableName() string { return "player_slots" }

func (p *PlayerSlot) BeforeCreate(_ *gorm.DB) error {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	return nil
}
