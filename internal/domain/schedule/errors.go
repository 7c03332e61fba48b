package schedule

import "teesheet/internal/pkg/apperr"

var (
	ErrInvalidConfig  = apperr.New(apperr.KindValidation, "invalid schedule config")
	ErrConfigNotFound = apperr.New(apperr.KindNotFound, "no schedule config for date")
)
