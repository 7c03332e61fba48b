package settlement

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"gorm.io/gorm"

	"teesheet/internal/domain/cart"
	"teesheet/internal/domain/flight"
	"teesheet/internal/pkg/apperr"
	"teesheet/internal/pkg/lock"
	"teesheet/internal/pkg/mq"
	"teesheet/internal/pkg/obs"
	"teesheet/internal/realtime"
)

type Notifier interface {
	Notify(courseID int64, date, eventType string, payload any)
}

type Config struct {
	Currency       string
	PaymentTimeout time.Duration
	// HoldTTL bounds how long a crashed attempt can keep carts frozen. It
	// must outlast PaymentTimeout.
	HoldTTL time.Duration
}

type Deps struct {
	DB       *gorm.DB
	Flights  *flight.Repository
	Carts    *cart.Engine
	Ledger   *Ledger
	Gateway  Gateway
	Locker   lock.Locker
	Events   mq.Events
	Notifier Notifier
	Loggerf  func(format string, args ...any)
	Config   Config
}

type Coordinator struct {
	db       *gorm.DB
	flights  *flight.Repository
	carts    *cart.Engine
	ledger   *Ledger
	gateway  Gateway
	locker   lock.Locker
	events   mq.Events
	notifier Notifier
	logf     func(format string, args ...any)
	cfg      Config
	now      func() time.Time
}

func NewCoordinator(d Deps) *Coordinator {
	cfg := d.Config
	if cfg.Currency == "" {
		cfg.Currency = "thb"
	}
	if cfg.PaymentTimeout <= 0 {
		cfg.PaymentTimeout = 20 * time.Second
	}
	if cfg.HoldTTL <= cfg.PaymentTimeout {
		cfg.HoldTTL = 3 * cfg.PaymentTimeout
	}
	c := &Coordinator{
		db:       d.DB,
		flights:  d.Flights,
		carts:    d.Carts,
		ledger:   d.Ledger,
		gateway:  d.Gateway,
		locker:   d.Locker,
		events:   d.Events,
		notifier: d.Notifier,
		logf:     d.Loggerf,
		cfg:      cfg,
		now:      time.Now,
	}
	if c.ledger == nil {
		c.ledger = NewLedger(d.DB)
	}
	if c.gateway == nil {
		c.gateway = MethodRouter{}
	}
	if c.locker == nil {
		c.locker = lock.NewLocal()
	}
	if c.events == nil {
		c.events = mq.LogPublisher{}
	}
	if c.logf == nil {
		c.logf = func(string, ...any) {}
	}
	return c
}

type SettleRequest struct {
	PlayerSlotIDs  []uuid.UUID
	Method         Method
	IdempotencyKey string
	FixedAmount    *int64
	Editor         string
}

// plan is the priced selection, read before any hold is placed.
type plan struct {
	courseID int64
	date     string
	slots    map[uuid.UUID]bool
	flights  []planFlight
	total    int64
}

type planFlight struct {
	flight      *flight.Flight
	cartVersion int64
	items       []cart.Item
}

// Settle charges the outstanding balance of the selected player slots and
// checks them in. Either every slot is paid and checked in or none is. A
// repeated call with the key of a successful batch returns that batch.
func (c *Coordinator) Settle(ctx context.Context, req SettleRequest) (*Batch, error) {
	ctx, span := obs.Start(ctx, "settlement.Settle")
	defer span.End()

	ids := dedupe(req.PlayerSlotIDs)
	span.SetAttributes(
		attribute.String("settlement.key", req.IdempotencyKey),
		attribute.String("settlement.method", string(req.Method.Kind)),
		attribute.Int("settlement.slots", len(ids)),
	)
	if len(ids) == 0 {
		return nil, ErrNoPlayers
	}
	if req.IdempotencyKey == "" {
		return nil, ErrNoKey
	}
	if err := req.Method.validate(); err != nil {
		return nil, err
	}

	if prev, err := c.replay(ctx, req.IdempotencyKey, ids); prev != nil || err != nil {
		return prev, err
	}

	lease, err := c.locker.Acquire(ctx, req.IdempotencyKey, c.cfg.HoldTTL)
	if err != nil {
		if errors.Is(err, lock.ErrNotAcquired) {
			return nil, ErrInFlight.WithIDs(req.IdempotencyKey)
		}
		return nil, fmt.Errorf("settle: %w", err)
	}
	defer func() {
		if err := lease.Release(context.WithoutCancel(ctx)); err != nil {
			c.logf("settlement_lock_release_failed key=%s error=%q", req.IdempotencyKey, err.Error())
		}
	}()

	// A concurrent attempt may have finished while we waited for the lock.
	if prev, err := c.replay(ctx, req.IdempotencyKey, ids); prev != nil || err != nil {
		return prev, err
	}
	// With the lock held, a pending batch under the key belongs to an attempt
	// that ended between charge and commit. Its money may have moved.
	if open, err := c.ledger.OpenByKey(ctx, req.IdempotencyKey); err != nil {
		return nil, err
	} else if open != nil {
		c.logf("settlement_retry_refused key=%s batch=%s charge_ref=%s", req.IdempotencyKey, open.ID, open.ChargeRef)
		return nil, ErrUnsettled.WithIDs(open.ID.String())
	}

	p, err := c.plan(ctx, ids)
	if err != nil {
		return nil, err
	}
	if req.FixedAmount != nil && *req.FixedAmount != p.total {
		return nil, ErrAmountMismatch.WithIDs(fmt.Sprintf("expected=%d", p.total), fmt.Sprintf("fixed=%d", *req.FixedAmount))
	}
	span.SetAttributes(attribute.Int64("settlement.total", p.total))

	batch := &Batch{
		ID:             uuid.New(),
		IdempotencyKey: req.IdempotencyKey,
		CourseID:       p.courseID,
		PlayDate:       p.date,
		PlayerSlotIDs:  ids,
		MethodKind:     req.Method.Kind,
		Currency:       c.cfg.Currency,
		TotalAmount:    p.total,
		FixedAmount:    req.FixedAmount,
		Outcome:        OutcomePending,
		CreatedBy:      req.Editor,
		CreatedAt:      c.now(),
	}
	for _, pf := range p.flights {
		batch.FlightIDs = append(batch.FlightIDs, pf.flight.ID)
	}

	if err := c.hold(ctx, batch.ID.String(), p); err != nil {
		return nil, err
	}
	if err := c.ledger.Create(ctx, batch); err != nil {
		c.release(ctx, batch.ID.String(), p)
		return nil, err
	}

	// Last point at which the caller can still back out.
	if err := ctx.Err(); err != nil {
		c.fail(ctx, batch, p, "", "cancelled before charge")
		return nil, err
	}

	result, err := c.charge(ctx, batch, req.Method)
	if err != nil {
		span.RecordError(err)
		c.fail(ctx, batch, p, result.Ref, err.Error())
		var ae *apperr.Error
		if !errors.As(err, &ae) || ae.Kind != apperr.KindPayment {
			err = ErrGateway.Wrap(err)
		}
		return nil, err
	}

	// The money has moved; the commit must run to completion.
	commitCtx := context.WithoutCancel(ctx)
	if err := c.commit(commitCtx, batch, p, result.Ref); err != nil {
		span.RecordError(err)
		c.logf("settlement_commit_failed batch=%s charge_ref=%s error=%q", batch.ID, result.Ref, err.Error())
		if refErr := c.ledger.SetChargeRef(commitCtx, batch.ID, result.Ref); refErr != nil {
			c.logf("settlement_charge_ref_failed batch=%s error=%q", batch.ID, refErr.Error())
		}
		c.release(commitCtx, batch.ID.String(), p)
		return nil, ErrUnsettled.WithIDs(batch.ID.String()).Wrap(err)
	}

	done, err := c.ledger.Get(commitCtx, batch.ID)
	if err != nil {
		return nil, err
	}
	c.publish(commitCtx, mq.KeySettlementSucceeded, done)
	c.notifyDone(commitCtx, done, p)
	return done, nil
}

func (c *Coordinator) replay(ctx context.Context, key string, ids []uuid.UUID) (*Batch, error) {
	prev, err := c.ledger.SucceededByKey(ctx, key)
	if err != nil || prev == nil {
		return nil, err
	}
	if !prev.Covers(ids) {
		return nil, ErrKeyReused.WithIDs(key)
	}
	return prev, nil
}

func (c *Coordinator) plan(ctx context.Context, ids []uuid.UUID) (*plan, error) {
	slots, err := c.flights.PlayerSlots(ctx, ids)
	if err != nil {
		return nil, err
	}
	if len(slots) != len(ids) {
		found := make(map[uuid.UUID]bool, len(slots))
		for _, s := range slots {
			found[s.ID] = true
		}
		var missing []string
		for _, id := range ids {
			if !found[id] {
				missing = append(missing, id.String())
			}
		}
		return nil, flight.ErrPlayerNotFound.WithIDs(missing...)
	}

	p := &plan{slots: make(map[uuid.UUID]bool, len(ids))}
	var flightIDs []uuid.UUID
	seen := map[uuid.UUID]bool{}
	for _, s := range slots {
		p.slots[s.ID] = true
		if !seen[s.FlightID] {
			seen[s.FlightID] = true
			flightIDs = append(flightIDs, s.FlightID)
		}
	}

	flights, err := c.flights.ListByIDs(ctx, flightIDs)
	if err != nil {
		return nil, err
	}
	now := c.now()
	for i := range flights {
		f := &flights[i]
		if i == 0 {
			p.courseID, p.date = f.CourseID, f.PlayDate
		} else if f.CourseID != p.courseID || f.PlayDate != p.date {
			return nil, ErrMixedFlights.WithIDs(flights[0].ID.String(), f.ID.String())
		}
		if f.Status.Closed() {
			return nil, flight.ErrFlightClosed.WithIDs(f.ID.String())
		}
		if f.HoldActive(now) {
			return nil, flight.ErrSettlementHold.WithIDs(f.ID.String())
		}
		items, _, err := c.carts.Effective(ctx, c.db, f.ID)
		if err != nil {
			return nil, err
		}
		for _, pl := range f.Players {
			if p.slots[pl.ID] {
				p.total += cart.Balance(items, pl.ID)
			}
		}
		p.flights = append(p.flights, planFlight{flight: f, cartVersion: f.CartVersion, items: items})
	}
	return p, nil
}

// hold freezes every cart in the plan, or none of them.
func (c *Coordinator) hold(ctx context.Context, batchID string, p *plan) error {
	now := c.now()
	until := now.Add(c.cfg.HoldTTL)
	for i, pf := range p.flights {
		if err := c.flights.PlaceHold(ctx, pf.flight.ID, pf.cartVersion, batchID, until, now); err != nil {
			c.release(ctx, batchID, &plan{flights: p.flights[:i]})
			return err
		}
	}
	return nil
}

func (c *Coordinator) release(ctx context.Context, batchID string, p *plan) {
	ctx = context.WithoutCancel(ctx)
	for _, pf := range p.flights {
		if err := c.flights.ReleaseHold(ctx, pf.flight.ID, batchID); err != nil {
			c.logf("settlement_hold_release_failed batch=%s flight=%s error=%q", batchID, pf.flight.ID, err.Error())
		}
	}
}

func (c *Coordinator) charge(ctx context.Context, b *Batch, m Method) (ChargeResult, error) {
	if b.TotalAmount == 0 {
		return ChargeResult{Status: "skipped"}, nil
	}
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), c.cfg.PaymentTimeout)
	defer cancel()
	ctx, span := obs.Start(ctx, "settlement.Charge")
	defer span.End()
	return c.gateway.Charge(ctx, Charge{
		Amount:         b.TotalAmount,
		Currency:       b.Currency,
		Method:         m,
		IdempotencyKey: b.IdempotencyKey,
		BatchID:        b.ID.String(),
		Description:    fmt.Sprintf("Tee sheet %s course %d", b.PlayDate, b.CourseID),
	})
}

func (c *Coordinator) fail(ctx context.Context, b *Batch, p *plan, ref, reason string) {
	ctx = context.WithoutCancel(ctx)
	c.release(ctx, b.ID.String(), p)
	if err := c.ledger.Complete(ctx, b.ID, OutcomeFailed, ref, reason, c.now()); err != nil {
		c.logf("settlement_fail_record_failed batch=%s error=%q", b.ID, err.Error())
	}
	b.Outcome, b.ChargeRef, b.FailureReason = OutcomeFailed, ref, reason
	c.publish(ctx, mq.KeySettlementFailed, b)
}

// commit marks the selected items paid, checks the players in and clears
// the holds in one transaction.
func (c *Coordinator) commit(ctx context.Context, b *Batch, p *plan, ref string) error {
	now := c.now()
	batchID := b.ID.String()
	return c.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		flights := c.flights.WithTx(tx)
		for _, pf := range p.flights {
			items := make([]cart.Item, len(pf.items))
			for i, it := range pf.items {
				if p.slots[it.PlayerSlotID] {
					it.PaidAmount = it.Amount
				}
				items[i] = it
			}
			if err := c.carts.CommitSettled(ctx, tx, pf.flight.ID, items); err != nil {
				return err
			}
			for _, pl := range pf.flight.Players {
				if !p.slots[pl.ID] || pl.CheckedInAt != nil {
					continue
				}
				if err := flights.UpdatePlayer(ctx, pl.ID, map[string]any{"checked_in_at": now.UTC(), "updated_at": now.UTC()}); err != nil {
					return err
				}
			}
			if _, err := flight.Reevaluate(ctx, tx, pf.flight.ID, now); err != nil {
				return err
			}
			if err := flights.CommitHold(ctx, pf.flight.ID, pf.cartVersion, batchID, now); err != nil {
				return err
			}
		}
		return c.ledger.WithTx(tx).Complete(ctx, b.ID, OutcomeSucceeded, ref, "", now)
	})
}

func (c *Coordinator) publish(ctx context.Context, key string, b *Batch) {
	if err := c.events.PublishJSON(ctx, key, b); err != nil {
		c.logf("settlement_event_publish_failed key=%s batch=%s error=%q", key, b.ID, err.Error())
	}
}

// notifyDone pushes the batch and the reloaded flights to terminals and
// publishes any status change the check-ins caused.
func (c *Coordinator) notifyDone(ctx context.Context, b *Batch, p *plan) {
	for _, pf := range p.flights {
		f, err := c.flights.Get(ctx, pf.flight.ID)
		if err != nil {
			c.logf("settlement_flight_reload_failed flight=%s error=%q", pf.flight.ID, err.Error())
			continue
		}
		if c.notifier != nil {
			c.notifier.Notify(b.CourseID, b.PlayDate, realtime.EventFlightUpdated, f)
		}
		if f.Status == pf.flight.Status {
			continue
		}
		ev := flight.StatusEvent{
			FlightID: f.ID,
			CourseID: f.CourseID,
			Date:     f.PlayDate,
			TeeTime:  f.TeeTime.String(),
			From:     pf.flight.Status,
			To:       f.Status,
			Editor:   b.CreatedBy,
			At:       c.now().UTC(),
		}
		if err := c.events.PublishJSON(ctx, mq.KeyFlightStatus, ev); err != nil {
			c.logf("settlement_event_publish_failed key=%s batch=%s error=%q", mq.KeyFlightStatus, b.ID, err.Error())
		}
	}
	if c.notifier != nil {
		c.notifier.Notify(b.CourseID, b.PlayDate, realtime.EventSettlementCompleted, b)
	}
}

func (c *Coordinator) Get(ctx context.Context, id uuid.UUID) (*Batch, error) {
	return c.ledger.Get(ctx, id)
}

func (c *Coordinator) ListByDate(ctx context.Context, courseID int64, date string) ([]Batch, error) {
	return c.ledger.ListByDate(ctx, courseID, date)
}
