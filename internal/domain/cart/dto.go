package cart

import (
	"github.com/google/uuid"

	"teesheet/internal/domain/catalog"
	"teesheet/internal/pkg/apperr"
)

// MutationRequest carries one cart operation. Fields are read according to Op.
type MutationRequest struct {
	Version int64  `json:"version" validate:"required,min=1"`
	Op      string `json:"op" validate:"required,oneof=add remove transfer"`

	PlayerSlotID string `json:"player_slot_id" validate:"omitempty,uuid"`
	ProductCode  string `json:"product_code" validate:"max=32"`
	Description  string `json:"description" validate:"max=255"`
	Category     string `json:"category" validate:"omitempty,oneof=GREEN_FEE CART CADDY RENTAL PRO_SHOP OTHER"`
	Amount       int64  `json:"amount" validate:"min=0"`

	LineItemID       string `json:"line_item_id" validate:"omitempty,uuid"`
	FromPlayerSlotID string `json:"from_player_slot_id" validate:"omitempty,uuid"`
	ToPlayerSlotID   string `json:"to_player_slot_id" validate:"omitempty,uuid"`
}

func (r MutationRequest) toOperation() (Operation, error) {
	switch r.Op {
	case "add":
		slot, err := parseID("player_slot_id", r.PlayerSlotID)
		if err != nil {
			return nil, err
		}
		return AddItem{
			PlayerSlotID: slot,
			ProductCode:  r.ProductCode,
			Description:  r.Description,
			Category:     catalog.Category(r.Category),
			Amount:       r.Amount,
		}, nil
	case "remove":
		item, err := parseID("line_item_id", r.LineItemID)
		if err != nil {
			return nil, err
		}
		return RemoveItem{LineItemID: item}, nil
	case "transfer":
		item, err := parseID("line_item_id", r.LineItemID)
		if err != nil {
			return nil, err
		}
		from, err := parseID("from_player_slot_id", r.FromPlayerSlotID)
		if err != nil {
			return nil, err
		}
		to, err := parseID("to_player_slot_id", r.ToPlayerSlotID)
		if err != nil {
			return nil, err
		}
		return TransferItem{LineItemID: item, FromPlayerSlotID: from, ToPlayerSlotID: to}, nil
	}
	return nil, apperr.New(apperr.KindValidation, "unknown operation").WithIDs(r.Op)
}

func parseID(field, v string) (uuid.UUID, error) {
	id, err := uuid.Parse(v)
	if err != nil {
		return uuid.Nil, apperr.New(apperr.KindValidation, field+" is required").Wrap(err)
	}
	return id, nil
}
