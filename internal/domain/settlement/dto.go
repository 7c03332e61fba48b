package settlement

import (
	"github.com/google/uuid"
)

// SettleBody is the POST /settlements payload. The idempotency key may also
// arrive in the Idempotency-Key header.
type SettleBody struct {
	PlayerSlotIDs  []string `json:"player_slot_ids" validate:"required,min=1,max=64,dive,uuid"`
	Method         string   `json:"method" validate:"required,oneof=card source cash account"`
	Token          string   `json:"token" validate:"max=128"`
	IdempotencyKey string   `json:"idempotency_key" validate:"max=128"`
	FixedAmount    *int64   `json:"fixed_amount" validate:"omitempty,min=0"`
}

func (b SettleBody) toRequest(editor string) SettleRequest {
	ids := make([]uuid.UUID, 0, len(b.PlayerSlotIDs))
	for _, s := range b.PlayerSlotIDs {
		// validated as uuid
		ids = append(ids, uuid.MustParse(s))
	}
	return SettleRequest{
		PlayerSlotIDs:  ids,
		Method:         Method{Kind: MethodKind(b.Method), Token: b.Token},
		IdempotencyKey: b.IdempotencyKey,
		FixedAmount:    b.FixedAmount,
		Editor:         editor,
	}
}
