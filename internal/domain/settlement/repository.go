package settlement

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Ledger stores settlement batches.
type Ledger struct {
	db *gorm.DB
}

func NewLedger(db *gorm.DB) *Ledger {
	return &Ledger{db: db}
}

func (l *Ledger) WithTx(tx *gorm.DB) *Ledger {
	return &Ledger{db: tx}
}

func (l *Ledger) Create(ctx context.Context, b *Batch) error {
	return l.db.WithContext(ctx).Create(b).Error
}

// Complete records the outcome of a pending batch.
func (l *Ledger) Complete(ctx context.Context, id uuid.UUID, outcome Outcome, ref, reason string, at time.Time) error {
	at = at.UTC()
	return l.db.WithContext(ctx).Model(&Batch{}).
		Where("id = ? AND outcome = ?", id, OutcomePending).
		Updates(map[string]any{
			"outcome":        outcome,
			"charge_ref":     ref,
			"failure_reason": reason,
			"completed_at":   &at,
		}).Error
}

// SetChargeRef records the gateway reference on a batch that is still pending.
func (l *Ledger) SetChargeRef(ctx context.Context, id uuid.UUID, ref string) error {
	return l.db.WithContext(ctx).Model(&Batch{}).Where("id = ?", id).Update("charge_ref", ref).Error
}

// SucceededByKey returns the successful batch for key, or nil.
func (l *Ledger) SucceededByKey(ctx context.Context, key string) (*Batch, error) {
	var b Batch
	err := l.db.WithContext(ctx).
		Where("idempotency_key = ? AND outcome = ?", key, OutcomeSucceeded).
		Order("created_at ASC").
		First(&b).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &b, nil
}

// OpenByKey returns the oldest batch for key that is still pending, or nil.
func (l *Ledger) OpenByKey(ctx context.Context, key string) (*Batch, error) {
	var b Batch
	err := l.db.WithContext(ctx).
		Where("idempotency_key = ? AND outcome = ?", key, OutcomePending).
		Order("created_at ASC").
		First(&b).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &b, nil
}

func (l *Ledger) Get(ctx context.Context, id uuid.UUID) (*Batch, error) {
	var b Batch
	if err := l.db.WithContext(ctx).First(&b, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrBatchNotFound.WithIDs(id.String())
		}
		return nil, err
	}
	return &b, nil
}

// ListByDate returns every attempt for the course and date, newest first.
func (l *Ledger) ListByDate(ctx context.Context, courseID int64, date string) ([]Batch, error) {
	var out []Batch
	err := l.db.WithContext(ctx).
		Where("course_id = ? AND play_date = ?", courseID, date).
		Order("created_at DESC").
		Find(&out).Error
	return out, err
}
