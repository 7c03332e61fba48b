package cart

import "teesheet/internal/pkg/apperr"

var (
	ErrItemNotFound    = apperr.New(apperr.KindNotFound, "line item not found")
	ErrNoDraft         = apperr.New(apperr.KindNotFound, "no draft for flight")
	ErrItemPaid        = apperr.New(apperr.KindConflict, "line item has payments and cannot be removed")
	ErrNegativeAmount  = apperr.New(apperr.KindValidation, "amount must not be negative")
	ErrDescription     = apperr.New(apperr.KindValidation, "description is required")
	ErrForeignSlot     = apperr.New(apperr.KindValidation, "player slot is not on this flight")
	ErrWrongOwner      = apperr.New(apperr.KindValidation, "line item does not belong to the source player")
	ErrSameSlot        = apperr.New(apperr.KindValidation, "source and target player are the same")
	ErrUnknownCategory = apperr.New(apperr.KindValidation, "unknown category")
)
