package schedule

import (
	"context"
	"errors"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type Repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// EffectiveOn returns the latest config with EffectiveFrom <= date (YYYY-MM-DD sorts lexically).
func (r *Repository) EffectiveOn(ctx context.Context, courseID int64, date string) (*Config, error) {
	var cfg Config
	err := r.db.WithContext(ctx).
		Where("course_id = ? AND effective_from <= ?", courseID, date).
		Order("effective_from DESC").
		First(&cfg).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrConfigNotFound.WithIDs(date)
	}
	if err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Latest returns the most recently effective config regardless of date.
func (r *Repository) Latest(ctx context.Context, courseID int64) (*Config, error) {
	var cfg Config
	err := r.db.WithContext(ctx).
		Where("course_id = ?", courseID).
		Order("effective_from DESC").
		First(&cfg).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrConfigNotFound
	}
	if err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Upsert stores cfg as a new version. A config for the same effective date is replaced.
func (r *Repository) Upsert(ctx context.Context, cfg *Config) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var maxVersion int
		if err := tx.Model(&Config{}).
			Where("course_id = ?", cfg.CourseID).
			Select("COALESCE(MAX(version), 0)").
			Scan(&maxVersion).Error; err != nil {
			return err
		}
		cfg.Version = maxVersion + 1
		cfg.ID = 0
		return tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "course_id"}, {Name: "effective_from"}},
			DoUpdates: clause.AssignmentColumns([]string{"timezone", "opens_at", "closes_at", "interval_minutes", "crossover", "shotgun", "version", "created_by"}),
		}).Create(cfg).Error
	})
}

// Courses lists every course with a schedule config.
func (r *Repository) Courses(ctx context.Context) ([]int64, error) {
	var ids []int64
	err := r.db.WithContext(ctx).Model(&Config{}).Distinct("course_id").Order("course_id ASC").Pluck("course_id", &ids).Error
	return ids, err
}
