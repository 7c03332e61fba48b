package settlement

import (
	"context"
	"fmt"

	"github.com/omise/omise-go"
	"github.com/omise/omise-go/operations"
)

// Charge is one call to the payment collaborator. Amount is in the minor
// unit of Currency (satang for thb).
type Charge struct {
	Amount         int64
	Currency       string
	Method         Method
	IdempotencyKey string
	BatchID        string
	Description    string
}

type ChargeResult struct {
	Ref    string
	Status string
}

// Gateway charges a payment method. Failures are PaymentErrors: ErrDeclined,
// ErrGatewayTimeout, ErrChargePending or ErrGateway.
type Gateway interface {
	Charge(ctx context.Context, ch Charge) (ChargeResult, error)
}

// OmiseGateway charges cards and payment sources through Omise.
type OmiseGateway struct {
	do func(context.Context, *omise.Charge, *operations.CreateCharge) error
}

func NewOmiseClient(publicKey, secretKey string) (*omise.Client, error) {
	c, err := omise.NewClient(publicKey, secretKey)
	if err != nil {
		return nil, err
	}
	c.SetDebug(false)
	return c, nil
}

func NewOmiseGateway(client *omise.Client) *OmiseGateway {
	return &OmiseGateway{do: func(ctx context.Context, ch *omise.Charge, op *operations.CreateCharge) error {
		// WithContext sets the context on the client itself, so each call
		// works on its own copy.
		c := *client
		c.WithContext(ctx)
		return c.Do(ch, op)
	}}
}

// Charge waits for the gateway until ctx is done and cancels the request with
// it. Omise may still have created the charge before the request was cut; the
// idempotency key in the charge metadata lets an operator reconcile it.
func (g *OmiseGateway) Charge(ctx context.Context, ch Charge) (ChargeResult, error) {
	req := &operations.CreateCharge{
		Amount:      ch.Amount,
		Currency:    ch.Currency,
		Description: ch.Description,
		Metadata: map[string]any{
			"idempotency_key": ch.IdempotencyKey,
			"batch_id":        ch.BatchID,
		},
	}
	switch ch.Method.Kind {
	case MethodCard:
		req.Card = ch.Method.Token
	case MethodSource:
		req.Source = ch.Method.Token
	default:
		return ChargeResult{}, ErrUnknownMethod.WithIDs(string(ch.Method.Kind))
	}

	type result struct {
		charge *omise.Charge
		err    error
	}
	done := make(chan result, 1)
	go func() {
		out := &omise.Charge{}
		err := g.do(ctx, out, req)
		done <- result{charge: out, err: err}
	}()

	select {
	case <-ctx.Done():
		return ChargeResult{}, ErrGatewayTimeout.Wrap(ctx.Err())
	case r := <-done:
		if r.err != nil {
			return ChargeResult{}, ErrGateway.Wrap(r.err)
		}
		return classifyCharge(r.charge)
	}
}

func classifyCharge(ch *omise.Charge) (ChargeResult, error) {
	res := ChargeResult{Ref: ch.ID, Status: string(ch.Status)}
	switch res.Status {
	case "successful":
		return res, nil
	case "failed":
		var code, msg string
		if ch.FailureCode != nil {
			code = *ch.FailureCode
		}
		if ch.FailureMessage != nil {
			msg = *ch.FailureMessage
		}
		return res, ErrDeclined.WithIDs(ch.ID).Wrap(fmt.Errorf("%s: %s", code, msg))
	default:
		return res, ErrChargePending.WithIDs(ch.ID, res.Status)
	}
}

// CashGateway settles cash and on-account methods at the desk. Nothing is
// sent over the network; the reference ties the batch to the till or the
// member account.
type CashGateway struct{}

func (CashGateway) Charge(_ context.Context, ch Charge) (ChargeResult, error) {
	switch ch.Method.Kind {
	case MethodCash:
		return ChargeResult{Ref: "cash:" + ch.BatchID, Status: "successful"}, nil
	case MethodAccount:
		return ChargeResult{Ref: "account:" + ch.Method.Token + ":" + ch.BatchID, Status: "successful"}, nil
	default:
		return ChargeResult{}, ErrUnknownMethod.WithIDs(string(ch.Method.Kind))
	}
}

// MethodRouter sends local methods to Local and everything else to Remote.
// A nil Remote rejects card and source payments.
type MethodRouter struct {
	Local  Gateway
	Remote Gateway
}

func (r MethodRouter) Charge(ctx context.Context, ch Charge) (ChargeResult, error) {
	if ch.Method.Local() {
		local := r.Local
		if local == nil {
			local = CashGateway{}
		}
		return local.Charge(ctx, ch)
	}
	if r.Remote == nil {
		return ChargeResult{}, ErrGateway.WithIDs(string(ch.Method.Kind)).Wrap(fmt.Errorf("no card gateway configured"))
	}
	return r.Remote.Charge(ctx, ch)
}
