// Package fleet is the registry of carts and caddies a flight can be assigned.
package fleet

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"

	"teesheet/internal/pkg/apperr"
)

type Kind string

const (
	KindCart  Kind = "cart"
	KindCaddy Kind = "caddy"
)

var (
	ErrResourceNotFound = apperr.New(apperr.KindNotFound, "resource not found")
	ErrWrongKind        = apperr.New(apperr.KindValidation, "resource is not of the requested kind")
	ErrInactive         = apperr.New(apperr.KindValidation, "resource is out of service")
)

type Resource struct {
	ID        int64     `json:"id" gorm:"primaryKey"`
	CourseID  int64     `json:"course_id" gorm:"not null;uniqueIndex:idx_fleet_course_code,priority:1"`
	Kind      Kind      `json:"kind" gorm:"type:varchar(8);not null;index"`
	Code      string    `json:"code" gorm:"type:varchar(32);not null;uniqueIndex:idx_fleet_course_code,priority:2"`
	Name      string    `json:"name"`
	Active    bool      `json:"active" gorm:"not null;default:true"`
	CreatedAt time.Time `json:"created_at"`
}

func (Resource) TableName() string { return "fleet_resources" }

type Registry struct {
	db *gorm.DB
}

func NewRegistry(db *gorm.DB) *Registry {
	return &Registry{db: db}
}

func (r *Registry) Create(ctx context.Context, res *Resource) error {
	return r.db.WithContext(ctx).Create(res).Error
}

func (r *Registry) Get(ctx context.Context, id int64) (*Resource, error) {
	var res Resource
	if err := r.db.WithContext(ctx).First(&res, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrResourceNotFound
		}
		return nil, err
	}
	return &res, nil
}

// Require returns the resource when it exists, matches kind and is in service.
func (r *Registry) Require(ctx context.Context, id int64, kind Kind) (*Resource, error) {
	res, err := r.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if res.Kind != kind {
		return nil, ErrWrongKind
	}
	if !res.Active {
		return nil, ErrInactive
	}
	return res, nil
}

// Available lists active resources of kind on the course, excluding busy ids.
func (r *Registry) Available(ctx context.Context, courseID int64, kind Kind, busy []int64) ([]Resource, error) {
	q := r.db.WithContext(ctx).
		Where("course_id = ? AND kind = ? AND active = ?", courseID, kind, true)
	if len(busy) > 0 {
		q = q.Where("id NOT IN ?", busy)
	}
	var out []Resource
	err := q.Order("code ASC").Find(&out).Error
	return out, err
}

func (r *Registry) List(ctx context.Context, courseID int64) ([]Resource, error) {
	var out []Resource
	err := r.db.WithContext(ctx).Where("course_id = ?", courseID).Order("kind ASC, code ASC").Find(&out).Error
	return out, err
}
