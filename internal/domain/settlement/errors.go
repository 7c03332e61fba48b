package settlement

import "teesheet/internal/pkg/apperr"

var (
	ErrBatchNotFound = apperr.New(apperr.KindNotFound, "settlement batch not found")

	ErrNoPlayers      = apperr.New(apperr.KindValidation, "at least one player slot is required")
	ErrNoKey          = apperr.New(apperr.KindValidation, "idempotency key is required")
	ErrUnknownMethod  = apperr.New(apperr.KindValidation, "unknown payment method")
	ErrMethodToken    = apperr.New(apperr.KindValidation, "payment method requires a token")
	ErrKeyReused      = apperr.New(apperr.KindValidation, "idempotency key was used for a different set of players")
	ErrMixedFlights   = apperr.New(apperr.KindValidation, "player slots span more than one course or date")
	ErrAmountMismatch = apperr.New(apperr.KindValidation, "fixed amount does not match the outstanding total")

	ErrInFlight  = apperr.New(apperr.KindConflict, "a settlement with this idempotency key is in progress")
	ErrUnsettled = apperr.New(apperr.KindConflict, "payment may have been captured but the batch did not commit; left pending for reconciliation")

	ErrDeclined       = apperr.New(apperr.KindPayment, "payment declined")
	ErrGatewayTimeout = apperr.New(apperr.KindPayment, "payment gateway timed out")
	ErrChargePending  = apperr.New(apperr.KindPayment, "payment not confirmed by the gateway")
	ErrGateway        = apperr.New(apperr.KindPayment, "payment gateway error")
)
