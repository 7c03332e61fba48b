package block

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type Repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

func (r *Repository) Create(ctx context.Context, b *Block) error {
	return r.db.WithContext(ctx).Create(b).Error
}

func (r *Repository) Save(ctx context.Context, b *Block) error {
	return r.db.WithContext(ctx).Save(b).Error
}

func (r *Repository) GetByID(ctx context.Context, id uuid.UUID) (*Block, error) {
	var b Block
	if err := r.db.WithContext(ctx).First(&b, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrBlockNotFound.WithIDs(id.String())
		}
		return nil, err
	}
	return &b, nil
}

// Delete soft-deletes the block as of at. Flights already booked inside it stay as they are.
func (r *Repository) Delete(ctx context.Context, id uuid.UUID, at time.Time) error {
	res := r.db.WithContext(ctx).Model(&Block{}).
		Where("id = ?", id).
		UpdateColumn("deleted_at", at.UTC())
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrBlockNotFound.WithIDs(id.String())
	}
	return nil
}

// FindSameKind returns live blocks of the course with the given type and start.
func (r *Repository) FindSameKind(ctx context.Context, courseID int64, t Type, startsAt time.Time) ([]Block, error) {
	var out []Block
	err := r.db.WithContext(ctx).
		Where("course_id = ? AND type = ? AND starts_at = ?", courseID, t, startsAt.UTC()).
		Find(&out).Error
	return out, err
}

// Candidates returns blocks that may touch [from, to): single spans that
// overlap it, plus recurring blocks that started before it ends. Deleted
// blocks are included; callers decide per date with LiveOn.
func (r *Repository) Candidates(ctx context.Context, courseID int64, from, to time.Time) ([]Block, error) {
	var out []Block
	err := r.db.WithContext(ctx).Unscoped().
		Where("course_id = ?", courseID).
		Where(
			r.db.Where("recurrence = '' AND starts_at < ? AND ends_at > ?", to.UTC(), from.UTC()).
				Or("recurrence <> '' AND starts_at < ?", to.UTC()),
		).
		Order("starts_at ASC").
		Find(&out).Error
	return out, err
}
