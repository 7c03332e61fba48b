package member

import "time"

type Kind string

const (
	KindMember    Kind = "member"
	KindDependent Kind = "dependent"
	KindGuest     Kind = "guest"
	KindWalkup    Kind = "walkup"
)

func (k Kind) Valid() bool {
	switch k {
	case KindMember, KindDependent, KindGuest, KindWalkup:
		return true
	}
	return false
}

// Person is a directory entry. Walk-ups are never stored here.
type Person struct {
	ID          int64     `json:"id" gorm:"primaryKey"`
	Ref         string    `json:"ref" gorm:"type:varchar(64);uniqueIndex;not null"`
	Kind        Kind      `json:"kind" gorm:"type:varchar(16);not null"`
	DisplayName string    `json:"display_name" gorm:"not null"`
	Handicap    *float64  `json:"handicap,omitempty"`
	SponsorRef  string    `json:"sponsor_ref,omitempty" gorm:"type:varchar(64)"`
	Active      bool      `json:"active" gorm:"not null;default:true"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

func (Person) TableName() string { return "people" }
