package block

import (
	"context"
	"time"

	"github.com/google/uuid"

	"teesheet/internal/pkg/clock"
)

// Input describes a block to create or the new shape of an existing one.
type Input struct {
	CourseID   int64
	Type       Type
	StartsAt   time.Time
	EndsAt     time.Time
	Recurrence Recurrence
	Until      *clock.Date
	Reason     string
	Editor     string
}

// Manager owns block lifecycle and expansion.
type Manager struct {
	repo *Repository
	now  func() time.Time
}

func NewManager(repo *Repository) *Manager {
	return &Manager{repo: repo, now: time.Now}
}

func validate(in Input, loc *time.Location) error {
	if !in.Type.Valid() {
		return ErrInvalidType.WithIDs(string(in.Type))
	}
	if !in.EndsAt.After(in.StartsAt) {
		return ErrInvalidRange
	}
	if w, ok := in.Recurrence.(Weekly); ok && w.Days.Empty() {
		return ErrInvalidRule
	}
	if in.Until != nil && in.Until.Before(clock.DateOf(in.StartsAt.In(loc))) {
		return ErrUntilBeforeFrom
	}
	return nil
}

func toBlock(in Input) *Block {
	b := &Block{
		CourseID:   in.CourseID,
		Type:       in.Type,
		StartsAt:   in.StartsAt.UTC(),
		EndsAt:     in.EndsAt.UTC(),
		Recurrence: in.Recurrence,
		Reason:     in.Reason,
		CreatedBy:  in.Editor,
	}
	if in.Until != nil {
		u := in.Until.String()
		b.Until = &u
	}
	return b
}

// Create stores a block. Blocks of different types may overlap; an identical
// rule (course, type, range, recurrence, until) updates the existing block's
// reason instead of adding a duplicate.
func (m *Manager) Create(ctx context.Context, in Input, loc *time.Location) (*Block, error) {
	if err := validate(in, loc); err != nil {
		return nil, err
	}
	b := toBlock(in)

	existing, err := m.repo.FindSameKind(ctx, b.CourseID, b.Type, b.StartsAt)
	if err != nil {
		return nil, err
	}
	for i := range existing {
		if sameRule(&existing[i], b) {
			cur := existing[i]
			cur.Reason = b.Reason
			if err := m.repo.Save(ctx, &cur); err != nil {
				return nil, err
			}
			return &cur, nil
		}
	}

	if err := m.repo.Create(ctx, b); err != nil {
		return nil, err
	}
	return b, nil
}

func (m *Manager) Update(ctx context.Context, id uuid.UUID, in Input, loc *time.Location) (*Block, error) {
	cur, err := m.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	in.CourseID = cur.CourseID
	if err := validate(in, loc); err != nil {
		return nil, err
	}
	next := toBlock(in)
	next.ID = cur.ID
	next.CreatedAt = cur.CreatedAt
	next.CreatedBy = cur.CreatedBy
	if err := m.repo.Save(ctx, next); err != nil {
		return nil, err
	}
	return next, nil
}

// Delete retires the block from the day of deletion on. Earlier dates keep
// generating as they did.
func (m *Manager) Delete(ctx context.Context, id uuid.UUID) error {
	return m.repo.Delete(ctx, id, m.now())
}

func (m *Manager) Get(ctx context.Context, id uuid.UUID) (*Block, error) {
	return m.repo.GetByID(ctx, id)
}

// ListActive returns blocks with at least one occurrence in [from, to].
func (m *Manager) ListActive(ctx context.Context, courseID int64, from, to clock.Date, loc *time.Location) ([]Block, error) {
	// widen by a day to catch spans that cross midnight
	candidates, err := m.repo.Candidates(ctx, courseID, from.AddDays(-1).In(loc), to.AddDays(2).In(loc))
	if err != nil {
		return nil, err
	}
	var out []Block
	for i := range candidates {
		for d := from; !d.After(to); d = d.AddDays(1) {
			if !candidates[i].LiveOn(d, loc) {
				continue
			}
			if len(candidates[i].Occurrences(d, loc)) > 0 {
				out = append(out, candidates[i])
				break
			}
		}
	}
	return out, nil
}

// OccurrencesOn expands every block of the course that touches date d.
func (m *Manager) OccurrencesOn(ctx context.Context, courseID int64, d clock.Date, loc *time.Location) ([]Occurrence, error) {
	blocks, err := m.ListActive(ctx, courseID, d, d, loc)
	if err != nil {
		return nil, err
	}
	return Expand(blocks, d, loc), nil
}
