package member

import (
	"context"
	"errors"
	"strings"

	"gorm.io/gorm"

	"teesheet/internal/pkg/apperr"
)

var ErrPersonNotFound = apperr.New(apperr.KindNotFound, "person not found")

// Directory resolves member, dependent and guest references.
type Directory struct {
	db *gorm.DB
}

func NewDirectory(db *gorm.DB) *Directory {
	return &Directory{db: db}
}

// Resolve looks up refs in one query. Unknown refs are absent from the map.
func (d *Directory) Resolve(ctx context.Context, refs []string) (map[string]Person, error) {
	out := make(map[string]Person, len(refs))
	if len(refs) == 0 {
		return out, nil
	}
	var people []Person
	if err := d.db.WithContext(ctx).Where("ref IN ?", refs).Find(&people).Error; err != nil {
		return nil, err
	}
	for _, p := range people {
		out[p.Ref] = p
	}
	return out, nil
}

func (d *Directory) Get(ctx context.Context, ref string) (*Person, error) {
	var p Person
	if err := d.db.WithContext(ctx).Where("ref = ?", ref).First(&p).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrPersonNotFound.WithIDs(ref)
		}
		return nil, err
	}
	return &p, nil
}

// Search matches refs and names for the front-desk lookup box.
func (d *Directory) Search(ctx context.Context, q string, limit int) ([]Person, error) {
	if limit <= 0 || limit > 50 {
		limit = 20
	}
	like := "%" + strings.ToLower(strings.TrimSpace(q)) + "%"
	var people []Person
	err := d.db.WithContext(ctx).
		Where("active = ?", true).
		Where("LOWER(ref) LIKE ? OR LOWER(display_name) LIKE ?", like, like).
		Order("display_name ASC").
		Limit(limit).
		Find(&people).Error
	return people, err
}

func (d *Directory) Upsert(ctx context.Context, p *Person) error {
	var existing Person
	err := d.db.WithContext(ctx).Where("ref = ?", p.Ref).First(&existing).Error
	switch {
	case err == nil:
		p.ID = existing.ID
		p.CreatedAt = existing.CreatedAt
		return d.db.WithContext(ctx).Save(p).Error
	case errors.Is(err, gorm.ErrRecordNotFound):
		return d.db.WithContext(ctx).Create(p).Error
	default:
		return err
	}
}
