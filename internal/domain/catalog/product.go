// Package catalog holds the priced products the front desk can add to a cart.
package catalog

import (
	"context"
	"errors"
	"strings"
	"time"

	"gorm.io/gorm"

	"teesheet/internal/pkg/apperr"
)

type Category string

const (
	CategoryGreenFee Category = "GREEN_FEE"
	CategoryCart     Category = "CART"
	CategoryCaddy    Category = "CADDY"
	CategoryRental   Category = "RENTAL"
	CategoryProShop  Category = "PRO_SHOP"
	CategoryOther    Category = "OTHER"
)

func (c Category) Valid() bool {
	switch c {
	case CategoryGreenFee, CategoryCart, CategoryCaddy, CategoryRental, CategoryProShop, CategoryOther:
		return true
	}
	return false
}

var ErrProductNotFound = apperr.New(apperr.KindNotFound, "product not found")

// Product amounts are in satang.
type Product struct {
	ID          int64     `json:"id" gorm:"primaryKey"`
	Code        string    `json:"code" gorm:"type:varchar(32);uniqueIndex;not null"`
	Description string    `json:"description" gorm:"not null"`
	Category    Category  `json:"category" gorm:"type:varchar(16);not null"`
	Amount      int64     `json:"amount" gorm:"not null"`
	AutoApply   bool      `json:"auto_apply" gorm:"not null;default:false"`
	Active      bool      `json:"active" gorm:"not null;default:true"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

type Catalog struct {
	db *gorm.DB
}

func New(db *gorm.DB) *Catalog {
	return &Catalog{db: db}
}

func (c *Catalog) WithTx(tx *gorm.DB) *Catalog {
	return &Catalog{db: tx}
}

func (c *Catalog) Lookup(ctx context.Context, code string) (*Product, error) {
	var p Product
	err := c.db.WithContext(ctx).
		Where("code = ? AND active = ?", strings.ToUpper(strings.TrimSpace(code)), true).
		First(&p).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrProductNotFound.WithIDs(code)
		}
		return nil, err
	}
	return &p, nil
}

func (c *Catalog) List(ctx context.Context) ([]Product, error) {
	var out []Product
	err := c.db.WithContext(ctx).Where("active = ?", true).Order("category ASC, code ASC").Find(&out).Error
	return out, err
}

// AutoApplied returns the products seeded onto every player's cart at booking.
func (c *Catalog) AutoApplied(ctx context.Context) ([]Product, error) {
	var out []Product
	err := c.db.WithContext(ctx).
		Where("active = ? AND auto_apply = ?", true, true).
		Order("code ASC").
		Find(&out).Error
	return out, err
}

func (c *Catalog) Upsert(ctx context.Context, p *Product) error {
	p.Code = strings.ToUpper(strings.TrimSpace(p.Code))
	var existing Product
	err := c.db.WithContext(ctx).Where("code = ?", p.Code).First(&existing).Error
	switch {
	case err == nil:
		p.ID = existing.ID
		p.CreatedAt = existing.CreatedAt
		return c.db.WithContext(ctx).Save(p).Error
	case errors.Is(err, gorm.ErrRecordNotFound):
		return c.db.WithContext(ctx).Create(p).Error
	default:
		return err
	}
}
