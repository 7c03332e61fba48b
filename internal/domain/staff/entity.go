package staff

import "time"

// Staff is a front-desk, starter or admin account. Terminals sign in with code + PIN.
type Staff struct {
	ID                  int64      `json:"id" gorm:"primaryKey"`
	Code                string     `json:"code" gorm:"type:varchar(32);uniqueIndex;not null"`
	Name                string     `json:"name" gorm:"not null"`
	Role                string     `json:"role" gorm:"type:varchar(16);not null"`
	PinHash             string     `json:"-" gorm:"not null"`
	Active              bool       `json:"active" gorm:"not null;default:true"`
	FailedLoginAttempts int        `json:"-" gorm:"not null;default:0"`
	LockedUntil         *time.Time `json:"-"`
	LastLoginAt         *time.Time `json:"last_login_at,omitempty"`
	CreatedAt           time.Time  `json:"created_at"`
	UpdatedAt           time.Time  `json:"updated_at"`
}

func (Staff) TableName() string { return "staff" }
