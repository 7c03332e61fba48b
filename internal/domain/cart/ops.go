package cart

import (
	"time"

	"github.com/google/uuid"

	"teesheet/internal/domain/catalog"
)

// Operation is one cart edit. Apply returns the new item list and never
// mutates its input.
type Operation interface {
	Name() string
	Apply(items []Item, slots map[uuid.UUID]bool, now time.Time) ([]Item, error)
}

// AddItem appends an unpaid charge. ProductCode, when set, is resolved
// through the catalog before Apply runs.
type AddItem struct {
	PlayerSlotID uuid.UUID
	Description  string
	Category     catalog.Category
	Amount       int64
	ProductCode  string
}

func (AddItem) Name() string { return "add" }

func (op AddItem) Apply(items []Item, slots map[uuid.UUID]bool, now time.Time) ([]Item, error) {
	if !slots[op.PlayerSlotID] {
		return nil, ErrForeignSlot.WithIDs(op.PlayerSlotID.String())
	}
	if op.Description == "" {
		return nil, ErrDescription
	}
	if op.Amount < 0 {
		return nil, ErrNegativeAmount
	}
	cat := op.Category
	if cat == "" {
		cat = catalog.CategoryOther
	}
	if !cat.Valid() {
		return nil, ErrUnknownCategory.WithIDs(string(cat))
	}
	out := append(append([]Item(nil), items...), Item{
		ID:           uuid.New(),
		PlayerSlotID: op.PlayerSlotID,
		Description:  op.Description,
		Category:     cat,
		ProductCode:  op.ProductCode,
		Amount:       op.Amount,
		CreatedAt:    now.UTC(),
	})
	return out, nil
}

type RemoveItem struct {
	LineItemID uuid.UUID
}

func (RemoveItem) Name() string { return "remove" }

func (op RemoveItem) Apply(items []Item, _ map[uuid.UUID]bool, _ time.Time) ([]Item, error) {
	idx := indexOf(items, op.LineItemID)
	if idx < 0 {
		return nil, ErrItemNotFound.WithIDs(op.LineItemID.String())
	}
	if items[idx].PaidAmount > 0 {
		return nil, ErrItemPaid.WithIDs(op.LineItemID.String())
	}
	out := make([]Item, 0, len(items)-1)
	out = append(out, items[:idx]...)
	return append(out, items[idx+1:]...), nil
}

// TransferItem moves a whole line item, paid amount included, to another
// player of the same flight.
type TransferItem struct {
	LineItemID       uuid.UUID
	FromPlayerSlotID uuid.UUID
	ToPlayerSlotID   uuid.UUID
}

func (TransferItem) Name() string { return "transfer" }

func (op TransferItem) Apply(items []Item, slots map[uuid.UUID]bool, _ time.Time) ([]Item, error) {
	if op.FromPlayerSlotID == op.ToPlayerSlotID {
		return nil, ErrSameSlot.WithIDs(op.ToPlayerSlotID.String())
	}
	for _, s := range []uuid.UUID{op.FromPlayerSlotID, op.ToPlayerSlotID} {
		if !slots[s] {
			return nil, ErrForeignSlot.WithIDs(s.String())
		}
	}
	idx := indexOf(items, op.LineItemID)
	if idx < 0 {
		return nil, ErrItemNotFound.WithIDs(op.LineItemID.String())
	}
	if items[idx].PlayerSlotID != op.FromPlayerSlotID {
		return nil, ErrWrongOwner.WithIDs(op.LineItemID.String())
	}
	out := append([]Item(nil), items...)
	out[idx].PlayerSlotID = op.ToPlayerSlotID
	return out, nil
}

func indexOf(items []Item, id uuid.UUID) int {
	for i, it := range items {
		if it.ID == id {
			return i
		}
	}
	return -1
}
