package cart

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"teesheet/internal/domain/catalog"
)

// ChargeLineItem is a committed charge on one player's cart. Amounts are satang.
type ChargeLineItem struct {
	ID           uuid.UUID        `json:"id" gorm:"type:uuid;primaryKey"`
	FlightID     uuid.UUID        `json:"flight_id" gorm:"type:uuid;not null;index"`
	PlayerSlotID uuid.UUID        `json:"player_slot_id" gorm:"type:uuid;not null;index"`
	Description  string           `json:"description" gorm:"not null"`
	Category     catalog.Category `json:"category" gorm:"type:varchar(16);not null"`
	ProductCode  string           `json:"product_code,omitempty" gorm:"type:varchar(32)"`
	Amount       int64            `json:"amount" gorm:"not null"`
	PaidAmount   int64            `json:"paid_amount" gorm:"not null;default:0"`
	CreatedAt    time.Time        `json:"created_at"`
	UpdatedAt    time.Time        `json:"updated_at"`
}

func (ChargeLineItem) TableName() string { return "charge_line_items" }

func (i *ChargeLineItem) BeforeCreate(_ *gorm.DB) error {
	if i.ID == uuid.Nil {
		i.ID = uuid.New()
	}
	return nil
}

// Item is a line item as carried inside a draft snapshot.
type Item struct {
	ID           uuid.UUID        `json:"id"`
	PlayerSlotID uuid.UUID        `json:"player_slot_id"`
	Description  string           `json:"description"`
	Category     catalog.Category `json:"category"`
	ProductCode  string           `json:"product_code,omitempty"`
	Amount       int64            `json:"amount"`
	PaidAmount   int64            `json:"paid_amount"`
	CreatedAt    time.Time        `json:"created_at"`
}

func (i Item) Balance() int64 { return i.Amount - i.PaidAmount }

// Draft is the durable, versioned snapshot of unsettled cart edits for a
// flight. Version always equals the flight's cart version. The draft survives
// lease expiry so the next terminal resumes where the last one stopped.
type Draft struct {
	FlightID       uuid.UUID `json:"flight_id" gorm:"type:uuid;primaryKey"`
	CourseID       int64     `json:"course_id" gorm:"not null"`
	PlayDate       string    `json:"play_date" gorm:"type:varchar(10);not null"`
	Version        int64     `json:"version" gorm:"not null"`
	Items          []Item    `json:"items" gorm:"type:text;serializer:json"`
	LastEditedBy   string    `json:"last_edited_by"`
	LeaseExpiresAt time.Time `json:"lease_expires_at"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`

	// Committed is set on snapshots built from line items when no draft exists.
	Committed bool `json:"committed" gorm:"-"`
}

func (Draft) TableName() string { return "cart_drafts" }

func (d *Draft) BeforeSave(_ *gorm.DB) error {
	d.LeaseExpiresAt = d.LeaseExpiresAt.UTC()
	return nil
}

// LeaseHeld reports whether the last editor still holds the lease.
func (d *Draft) LeaseHeld(now time.Time) bool {
	return !d.Committed && d.LeaseExpiresAt.After(now)
}

func itemsFromLines(lines []ChargeLineItem) []Item {
	out := make([]Item, 0, len(lines))
	for _, l := range lines {
		out = append(out, Item{
			ID:           l.ID,
			PlayerSlotID: l.PlayerSlotID,
			Description:  l.Description,
			Category:     l.Category,
			ProductCode:  l.ProductCode,
			Amount:       l.Amount,
			PaidAmount:   l.PaidAmount,
			CreatedAt:    l.CreatedAt,
		})
	}
	return out
}

func linesFromItems(flightID uuid.UUID, items []Item) []ChargeLineItem {
	out := make([]ChargeLineItem, 0, len(items))
	for _, it := range items {
		out = append(out, ChargeLineItem{
			ID:           it.ID,
			FlightID:     flightID,
			PlayerSlotID: it.PlayerSlotID,
			Description:  it.Description,
			Category:     it.Category,
			ProductCode:  it.ProductCode,
			Amount:       it.Amount,
			PaidAmount:   it.PaidAmount,
			CreatedAt:    it.CreatedAt,
		})
	}
	return out
}

// Balance sums amount minus paid over the items owned by slot.
func Balance(items []Item, slot uuid.UUID) int64 {
	var total int64
	for _, it := range items {
		if it.PlayerSlotID == slot {
			total += it.Balance()
		}
	}
	return total
}

// ItemsFor filters items owned by slot.
func ItemsFor(items []Item, slot uuid.UUID) []Item {
	out := []Item{}
	for _, it := range items {
		if it.PlayerSlotID == slot {
			out = append(out, it)
		}
	}
	return out
}
