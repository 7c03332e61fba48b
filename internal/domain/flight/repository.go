package flight

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"teesheet/internal/database"
	"teesheet/internal/pkg/apperr"
)

const holdFree = "(settlement_hold IS NULL OR settlement_hold_until < ?)"

type Repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// WithTx returns a repository bound to tx.
func (r *Repository) WithTx(tx *gorm.DB) *Repository {
	return &Repository{db: tx}
}

func (r *Repository) DB() *gorm.DB { return r.db }

func (r *Repository) Create(ctx context.Context, f *Flight) error {
	if err := r.db.WithContext(ctx).Create(f).Error; err != nil {
		if database.IsUniqueViolation(err) {
			return ErrDuplicateFlight.WithIDs(f.PlayDate + " " + f.TeeTime.String())
		}
		return err
	}
	return nil
}

func players(db *gorm.DB) *gorm.DB {
	return db.Order("position ASC")
}

func (r *Repository) Get(ctx context.Context, id uuid.UUID) (*Flight, error) {
	var f Flight
	if err := r.db.WithContext(ctx).Preload("Players", players).First(&f, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrFlightNotFound.WithIDs(id.String())
		}
		return nil, err
	}
	return &f, nil
}

// GetForUpdate locks the flight row on postgres. sqlite ignores the clause.
func (r *Repository) GetForUpdate(ctx context.Context, id uuid.UUID) (*Flight, error) {
	var f Flight
	err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Preload("Players", players).
		First(&f, "id = ?", id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrFlightNotFound.WithIDs(id.String())
		}
		return nil, err
	}
	return &f, nil
}

func (r *Repository) ListByDate(ctx context.Context, courseID int64, date string) ([]Flight, error) {
	var out []Flight
	err := r.db.WithContext(ctx).
		Preload("Players", players).
		Where("course_id = ? AND play_date = ?", courseID, date).
		Order("tee_time ASC, created_at ASC").
		Find(&out).Error
	return out, err
}

func (r *Repository) ListByIDs(ctx context.Context, ids []uuid.UUID) ([]Flight, error) {
	var out []Flight
	if len(ids) == 0 {
		return out, nil
	}
	err := r.db.WithContext(ctx).
		Preload("Players", players).
		Where("id IN ?", ids).
		Order("tee_time ASC").
		Find(&out).Error
	return out, err
}

// PlayerSlots loads player slots by id. Missing ids are absent from the result.
func (r *Repository) PlayerSlots(ctx context.Context, ids []uuid.UUID) ([]PlayerSlot, error) {
	var out []PlayerSlot
	if len(ids) == 0 {
		return out, nil
	}
	err := r.db.WithContext(ctx).Where("id IN ?", ids).Find(&out).Error
	return out, err
}

func (r *Repository) GetPlayerSlot(ctx context.Context, id uuid.UUID) (*PlayerSlot, error) {
	var p PlayerSlot
	if err := r.db.WithContext(ctx).First(&p, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrPlayerNotFound.WithIDs(id.String())
		}
		return nil, err
	}
	return &p, nil
}

func (r *Repository) AddPlayer(ctx context.Context, p *PlayerSlot) error {
	if err := r.db.WithContext(ctx).Create(p).Error; err != nil {
		if database.IsUniqueViolation(err) {
			return ErrPositionTaken.WithIDs(p.FlightID.String())
		}
		return err
	}
	return nil
}

func (r *Repository) UpdatePlayer(ctx context.Context, id uuid.UUID, updates map[string]any) error {
	return r.db.WithContext(ctx).Model(&PlayerSlot{}).Where("id = ?", id).Updates(updates).Error
}

// Bump advances the flight version when it still equals version and no
// settlement holds the flight. updates are applied in the same statement.
func (r *Repository) Bump(ctx context.Context, id uuid.UUID, version int64, now time.Time, updates map[string]any) error {
	if updates == nil {
		updates = map[string]any{}
	}
	updates["version"] = gorm.Expr("version + 1")
	updates["updated_at"] = now.UTC()
	res := r.db.WithContext(ctx).Model(&Flight{}).
		Where("id = ? AND version = ?", id, version).
		Where(holdFree, now.UTC()).
		Updates(updates)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return r.classify(ctx, id, now, ErrStaleVersion)
	}
	return nil
}

// BumpCart is the single compare-and-swap point for cart edits. It returns
// the new cart version.
func (r *Repository) BumpCart(ctx context.Context, id uuid.UUID, cartVersion int64, now time.Time) (int64, error) {
	res := r.db.WithContext(ctx).Model(&Flight{}).
		Where("id = ? AND cart_version = ?", id, cartVersion).
		Where(holdFree, now.UTC()).
		Updates(map[string]any{"cart_version": gorm.Expr("cart_version + 1"), "updated_at": now.UTC()})
	if res.Error != nil {
		return 0, res.Error
	}
	if res.RowsAffected == 0 {
		return 0, r.classify(ctx, id, now, ErrStaleCart)
	}
	return cartVersion + 1, nil
}

// ForceBumpCart advances the cart version without a compare. Used when the
// server itself edits a cart, e.g. seeding green fees at booking.
func (r *Repository) ForceBumpCart(ctx context.Context, id uuid.UUID) (int64, error) {
	if err := r.db.WithContext(ctx).Model(&Flight{}).Where("id = ?", id).
		Update("cart_version", gorm.Expr("cart_version + 1")).Error; err != nil {
		return 0, err
	}
	var f Flight
	if err := r.db.WithContext(ctx).Select("cart_version").First(&f, "id = ?", id).Error; err != nil {
		return 0, err
	}
	return f.CartVersion, nil
}

// PlaceHold reserves the flight's carts for a settlement batch.
func (r *Repository) PlaceHold(ctx context.Context, id uuid.UUID, cartVersion int64, batchID string, until, now time.Time) error {
	res := r.db.WithContext(ctx).Model(&Flight{}).
		Where("id = ? AND cart_version = ?", id, cartVersion).
		Where(holdFree, now.UTC()).
		Updates(map[string]any{"settlement_hold": batchID, "settlement_hold_until": until.UTC()})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return r.classify(ctx, id, now, ErrStaleCart)
	}
	return nil
}

// ReleaseHold clears a hold owned by batchID. A hold already taken over is left alone.
func (r *Repository) ReleaseHold(ctx context.Context, id uuid.UUID, batchID string) error {
	return r.db.WithContext(ctx).Model(&Flight{}).
		Where("id = ? AND settlement_hold = ?", id, batchID).
		Updates(map[string]any{"settlement_hold": nil, "settlement_hold_until": nil}).Error
}

// CommitHold clears the hold and advances the cart version, provided the cart
// has not moved since the hold was placed.
func (r *Repository) CommitHold(ctx context.Context, id uuid.UUID, cartVersion int64, batchID string, now time.Time) error {
	res := r.db.WithContext(ctx).Model(&Flight{}).
		Where("id = ? AND cart_version = ? AND settlement_hold = ?", id, cartVersion, batchID).
		Updates(map[string]any{
			"settlement_hold":       nil,
			"settlement_hold_until": nil,
			"cart_version":          gorm.Expr("cart_version + 1"),
			"updated_at":            now.UTC(),
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrStaleCart.WithIDs(id.String())
	}
	return nil
}

func (r *Repository) classify(ctx context.Context, id uuid.UUID, now time.Time, stale *apperr.Error) error {
	var f Flight
	if err := r.db.WithContext(ctx).First(&f, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrFlightNotFound.WithIDs(id.String())
		}
		return err
	}
	if f.HoldActive(now) {
		return ErrSettlementHold.WithIDs(id.String())
	}
	return stale.WithIDs(id.String())
}
