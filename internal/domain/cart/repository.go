package cart

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type Store struct {
	db *gorm.DB
}

func NewStore(db *gorm.DB) *Store {
	return &Store{db: db}
}

func (s *Store) WithTx(tx *gorm.DB) *Store {
	return &Store{db: tx}
}

// Draft returns the flight's draft, or nil when none exists.
func (s *Store) Draft(ctx context.Context, flightID uuid.UUID) (*Draft, error) {
	var d Draft
	err := s.db.WithContext(ctx).First(&d, "flight_id = ?", flightID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &d, nil
}

func (s *Store) SaveDraft(ctx context.Context, d *Draft) error {
	return s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "flight_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"version", "items", "last_edited_by", "lease_expires_at", "updated_at"}),
	}).Create(d).Error
}

func (s *Store) DeleteDraft(ctx context.Context, flightID uuid.UUID) (bool, error) {
	res := s.db.WithContext(ctx).Where("flight_id = ?", flightID).Delete(&Draft{})
	return res.RowsAffected > 0, res.Error
}

func (s *Store) LineItems(ctx context.Context, flightID uuid.UUID) ([]ChargeLineItem, error) {
	var out []ChargeLineItem
	err := s.db.WithContext(ctx).
		Where("flight_id = ?", flightID).
		Order("created_at ASC, id ASC").
		Find(&out).Error
	return out, err
}

func (s *Store) InsertLineItems(ctx context.Context, items []ChargeLineItem) error {
	if len(items) == 0 {
		return nil
	}
	return s.db.WithContext(ctx).Create(&items).Error
}

// Commit makes items the flight's committed cart: rows are upserted and rows
// no longer present are deleted.
func (s *Store) Commit(ctx context.Context, flightID uuid.UUID, items []Item) error {
	lines := linesFromItems(flightID, items)
	keep := make([]uuid.UUID, 0, len(lines))
	for _, l := range lines {
		keep = append(keep, l.ID)
	}

	del := s.db.WithContext(ctx).Where("flight_id = ?", flightID)
	if len(keep) > 0 {
		del = del.Where("id NOT IN ?", keep)
	}
	if err := del.Delete(&ChargeLineItem{}).Error; err != nil {
		return err
	}
	if len(lines) == 0 {
		return nil
	}
	return s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "id"}},
		DoUpdates: clause.AssignmentColumns([]string{"player_slot_id", "description", "category", "product_code", "amount", "paid_amount", "updated_at"}),
	}).Create(&lines).Error
}
