package block

import "teesheet/internal/pkg/apperr"

var (
	ErrBlockNotFound   = apperr.New(apperr.KindNotFound, "block not found")
	ErrInvalidType     = apperr.New(apperr.KindValidation, "unknown block type")
	ErrInvalidRange    = apperr.New(apperr.KindValidation, "block must end after it starts")
	ErrInvalidRule     = apperr.New(apperr.KindValidation, "invalid recurrence")
	ErrUntilBeforeFrom = apperr.New(apperr.KindValidation, "until is before the first occurrence")
)
