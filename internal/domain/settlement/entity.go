// Package settlement collects payment for a set of player slots and checks
// them in as one all-or-nothing step.
package settlement

import (
	"sort"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type Outcome string

const (
	OutcomePending   Outcome = "PENDING"
	OutcomeSucceeded Outcome = "SUCCEEDED"
	OutcomeFailed    Outcome = "FAILED"
)

type MethodKind string

const (
	MethodCard    MethodKind = "card"
	MethodSource  MethodKind = "source"
	MethodCash    MethodKind = "cash"
	MethodAccount MethodKind = "account"
)

// Method is how the batch is paid. Token is the card token for card
// payments, the source id for source payments and the member ref for
// on-account charges.
type Method struct {
	Kind  MethodKind `json:"kind"`
	Token string     `json:"token,omitempty"`
}

// Local reports whether the method settles without a gateway call.
func (m Method) Local() bool {
	return m.Kind == MethodCash || m.Kind == MethodAccount
}

func (m Method) validate() error {
	switch m.Kind {
	case MethodCash:
		return nil
	case MethodCard, MethodSource, MethodAccount:
		if m.Token == "" {
			return ErrMethodToken
		}
		return nil
	default:
		return ErrUnknownMethod
	}
}

// Batch is one settlement attempt. Rows are append-only: a retry under the
// same idempotency key after a failure records a new batch.
type Batch struct {
	ID             uuid.UUID   `json:"id" gorm:"type:uuid;primaryKey"`
	IdempotencyKey string      `json:"idempotency_key" gorm:"type:varchar(128);not null;index"`
	CourseID       int64       `json:"course_id" gorm:"not null;index:idx_settlement_course_date,priority:1"`
	PlayDate       string      `json:"play_date" gorm:"type:varchar(10);not null;index:idx_settlement_course_date,priority:2"`
	PlayerSlotIDs  []uuid.UUID `json:"player_slot_ids" gorm:"type:text;serializer:json"`
	FlightIDs      []uuid.UUID `json:"flight_ids" gorm:"type:text;serializer:json"`
	MethodKind     MethodKind  `json:"method" gorm:"type:varchar(16);not null"`
	Currency       string      `json:"currency" gorm:"type:varchar(8);not null"`
	TotalAmount    int64       `json:"total_amount"`
	FixedAmount    *int64      `json:"fixed_amount,omitempty"`
	Outcome        Outcome     `json:"outcome" gorm:"type:varchar(16);not null;index"`
	ChargeRef      string      `json:"charge_ref,omitempty"`
	FailureReason  string      `json:"failure_reason,omitempty"`
	CreatedBy      string      `json:"created_by,omitempty"`
	CreatedAt      time.Time   `json:"created_at"`
	CompletedAt    *time.Time  `json:"completed_at,omitempty"`
}

func (Batch) TableName() string { return "settlement_batches" }

func (b *Batch) BeforeCreate(_ *gorm.DB) error {
	if b.ID == uuid.Nil {
		b.ID = uuid.New()
	}
	b.CreatedAt = b.CreatedAt.UTC()
	return nil
}

// Covers reports whether the batch settled exactly ids.
func (b *Batch) Covers(ids []uuid.UUID) bool {
	a, c := sortedIDs(b.PlayerSlotIDs), sortedIDs(ids)
	if len(a) != len(c) {
		return false
	}
	for i := range a {
		if a[i] != c[i] {
			return false
		}
	}
	return true
}

func sortedIDs(ids []uuid.UUID) []uuid.UUID {
	out := append([]uuid.UUID(nil), ids...)
	sort.Slice(out, func(i, j int) bool { return out[i].String() < out[j].String() })
	return out
}

// dedupe drops repeated ids, keeping the first occurrence.
func dedupe(ids []uuid.UUID) []uuid.UUID {
	seen := make(map[uuid.UUID]bool, len(ids))
	out := make([]uuid.UUID, 0, len(ids))
	for _, id := range ids {
		if id == uuid.Nil || seen[id] {
			continue
		}
		seen[id] = true
		out = append(out, id)
	}
	return out
}
