package flight

import "teesheet/internal/pkg/apperr"

var (
	ErrFlightNotFound     = apperr.New(apperr.KindNotFound, "flight not found")
	ErrPlayerNotFound     = apperr.New(apperr.KindNotFound, "player slot not found")
	ErrDuplicateFlight    = apperr.New(apperr.KindConflict, "tee time already booked")
	ErrPositionTaken      = apperr.New(apperr.KindConflict, "position already taken")
	ErrStaleVersion       = apperr.New(apperr.KindConflict, "flight was modified, refetch and retry")
	ErrStaleCart          = apperr.New(apperr.KindConflict, "cart was modified, refetch and retry")
	ErrSettlementHold     = apperr.New(apperr.KindConflict, "flight is being settled")
	ErrResourceBusy       = apperr.New(apperr.KindConflict, "resource assigned to another flight")
	ErrIllegalTransition  = apperr.New(apperr.KindState, "transition not allowed")
	ErrOutstandingBalance = apperr.New(apperr.KindState, "player slots have an outstanding balance")
	ErrFlightClosed       = apperr.New(apperr.KindState, "flight is closed")
	ErrSlotBlocked        = apperr.New(apperr.KindState, "tee time is blocked")
	ErrAlreadyCheckedIn   = apperr.New(apperr.KindState, "player already checked in")
	ErrNotOnGrid          = apperr.New(apperr.KindValidation, "tee time is not on the sheet")
	ErrInvalidPosition    = apperr.New(apperr.KindValidation, "position must be between 1 and 4")
	ErrInvalidPlayer      = apperr.New(apperr.KindValidation, "invalid player")
	ErrUnknownPerson      = apperr.New(apperr.KindValidation, "unknown member or guest reference")
	ErrInvalidStatus      = apperr.New(apperr.KindValidation, "unknown status")
)

var (
	ErrNoPlayers   = apperr.New(apperr.KindState, "flight has no players")
	ErrGroupLocked = apperr.New(apperr.KindState, "players can only be added before check-in")
)
