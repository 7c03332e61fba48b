package staff

import (
	"context"
	"time"

	"gorm.io/gorm"
)

type Repository interface {
	GetByCode(ctx context.Context, code string) (*Staff, error)
	RecordFailure(ctx context.Context, id int64, attempts int, lockedUntil *time.Time) error
	RecordSuccess(ctx context.Context, id int64, at time.Time) error
}

type GormRepository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) *GormRepository {
	return &GormRepository{db: db}
}

func (r *GormRepository) Create(ctx context.Context, s *Staff) error {
	return r.db.WithContext(ctx).Create(s).Error
}

func (r *GormRepository) GetByCode(ctx context.Context, code string) (*Staff, error) {
	var s Staff
	if err := r.db.WithContext(ctx).Where("code = ?", code).First(&s).Error; err != nil {
		return nil, err
	}
	return &s, nil
}

func (r *GormRepository) RecordFailure(ctx context.Context, id int64, attempts int, lockedUntil *time.Time) error {
	updates := map[string]any{"failed_login_attempts": attempts}
	if lockedUntil != nil {
		updates["locked_until"] = lockedUntil.UTC()
	}
	return r.db.WithContext(ctx).Model(&Staff{}).Where("id = ?", id).Updates(updates).Error
}

func (r *GormRepository) RecordSuccess(ctx context.Context, id int64, at time.Time) error {
	return r.db.WithContext(ctx).Model(&Staff{}).Where("id = ?", id).Updates(map[string]any{
		"failed_login_attempts": 0,
		"locked_until":          nil,
		"last_login_at":         at.UTC(),
	}).Error
}
