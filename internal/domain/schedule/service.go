package schedule

import (
	"context"
	"errors"
	"time"

	"teesheet/internal/domain/block"
	"teesheet/internal/pkg/clock"
)

// BlockSource lists the blocks that touch a date range.
type BlockSource interface {
	ListActive(ctx context.Context, courseID int64, from, to clock.Date, loc *time.Location) ([]block.Block, error)
}

type Service struct {
	repo   *Repository
	blocks BlockSource
}

func NewService(repo *Repository, blocks BlockSource) *Service {
	return &Service{repo: repo, blocks: blocks}
}

// GetSlots generates the grid for a course on date.
func (s *Service) GetSlots(ctx context.Context, courseID int64, date clock.Date) (*Sheet, error) {
	cfg, err := s.repo.EffectiveOn(ctx, courseID, date.String())
	if err != nil {
		return nil, err
	}
	loc, err := cfg.Location()
	if err != nil {
		return nil, err
	}
	blocks, err := s.blocks.ListActive(ctx, courseID, date, date, loc)
	if err != nil {
		return nil, err
	}
	slots, err := Generate(*cfg, date, blocks)
	if err != nil {
		return nil, err
	}
	return &Sheet{
		CourseID:  courseID,
		Date:      date.String(),
		Timezone:  loc.String(),
		Crossover: cfg.Crossover,
		Shotgun:   cfg.Shotgun,
		Slots:     slots,
	}, nil
}

// Location returns the course timezone, falling back to the default when no
// config exists yet.
func (s *Service) Location(ctx context.Context, courseID int64) (*time.Location, error) {
	cfg, err := s.repo.Latest(ctx, courseID)
	if errors.Is(err, ErrConfigNotFound) {
		return time.LoadLocation(DefaultTimezone)
	}
	if err != nil {
		return nil, err
	}
	return cfg.Location()
}

func (s *Service) GetConfig(ctx context.Context, courseID int64, date clock.Date) (*Config, error) {
	return s.repo.EffectiveOn(ctx, courseID, date.String())
}

// SaveConfig validates and stores a new config version.
func (s *Service) SaveConfig(ctx context.Context, cfg *Config) (*Config, error) {
	if cfg.Timezone == "" {
		cfg.Timezone = DefaultTimezone
	}
	if _, err := clock.ParseDate(cfg.EffectiveFrom); err != nil {
		return nil, ErrInvalidConfig.Wrap(err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if err := s.repo.Upsert(ctx, cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (s *Service) Courses(ctx context.Context) ([]int64, error) {
	return s.repo.Courses(ctx)
}
