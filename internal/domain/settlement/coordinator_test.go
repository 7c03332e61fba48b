package settlement

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"teesheet/internal/database"
	"teesheet/internal/domain/cart"
	"teesheet/internal/domain/catalog"
	"teesheet/internal/domain/flight"
	"teesheet/internal/domain/member"
	"teesheet/internal/pkg/apperr"
	"teesheet/internal/pkg/clock"
	"teesheet/internal/pkg/lock"
	"teesheet/internal/pkg/mq"
	"teesheet/internal/realtime"
)

type fakeGateway struct {
	mu    sync.Mutex
	calls int
	last  Charge
	hang  bool
	err   error
	// onCharge runs before a successful charge returns.
	onCharge func()
}

func (g *fakeGateway) Charge(ctx context.Context, ch Charge) (ChargeResult, error) {
	g.mu.Lock()
	g.calls++
	g.last = ch
	hang, err, onCharge := g.hang, g.err, g.onCharge
	g.mu.Unlock()
	if hang {
		<-ctx.Done()
		return ChargeResult{}, ErrGatewayTimeout.Wrap(ctx.Err())
	}
	if err != nil {
		return ChargeResult{}, err
	}
	if onCharge != nil {
		onCharge()
	}
	return ChargeResult{Ref: "chrg_test_" + ch.BatchID[:8], Status: "successful"}, nil
}

func (g *fakeGateway) Calls() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.calls
}

type recordingNotifier struct {
	mu    sync.Mutex
	types []string
}

func (n *recordingNotifier) Notify(_ int64, _ string, eventType string, _ any) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.types = append(n.types, eventType)
}

type env struct {
	db       *gorm.DB
	flights  *flight.Repository
	engine   *cart.Engine
	coord    *Coordinator
	gateway  *fakeGateway
	locker   *lock.Local
	events   *mq.Recorder
	notifier *recordingNotifier
	// a has two players, b has two players.
	a, b *flight.Flight
}

func setup(t *testing.T) *env {
	t.Helper()
	db, err := database.OpenMemory("settlement_" + t.Name())
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&flight.Flight{}, &flight.PlayerSlot{}, &cart.ChargeLineItem{}, &cart.Draft{}, &catalog.Product{}, &Batch{}))

	ctx := context.Background()
	cat := catalog.New(db)
	require.NoError(t, cat.Upsert(ctx, &catalog.Product{Code: "GF18", Description: "Green fee 18", Category: catalog.CategoryGreenFee, Amount: 180000, AutoApply: true, Active: true}))
	require.NoError(t, cat.Upsert(ctx, &catalog.Product{Code: "CART", Description: "Cart fee", Category: catalog.CategoryCart, Amount: 80000, Active: true}))

	e := &env{
		db:       db,
		flights:  flight.NewRepository(db),
		gateway:  &fakeGateway{},
		locker:   lock.NewLocal(),
		events:   &mq.Recorder{},
		notifier: &recordingNotifier{},
	}
	e.engine = cart.NewEngine(db, e.flights, cart.NewStore(db), cat, e.notifier, time.Minute)
	e.coord = NewCoordinator(Deps{
		DB:       db,
		Flights:  e.flights,
		Carts:    e.engine,
		Gateway:  e.gateway,
		Locker:   e.locker,
		Events:   e.events,
		Notifier: e.notifier,
		Config:   Config{Currency: "thb", PaymentTimeout: 50 * time.Millisecond, HoldTTL: time.Minute},
	})
	e.a = e.book(t, "07:04", "M-1", "M-2")
	e.b = e.book(t, "07:12", "M-3", "M-4")
	return e
}

func (e *env) book(t *testing.T, tee, ref1, ref2 string) *flight.Flight {
	t.Helper()
	ctx := context.Background()
	tt, err := clock.ParseTimeOfDay(tee)
	require.NoError(t, err)
	f := &flight.Flight{
		CourseID: 1, PlayDate: "2026-05-04", TeeTime: tt, Status: flight.StatusBooked, Version: 1, CartVersion: 1,
		Players: []flight.PlayerSlot{
			{Position: 1, RefKind: member.KindMember, RefID: ref1},
			{Position: 2, RefKind: member.KindMember, RefID: ref2},
		},
	}
	require.NoError(t, e.db.Transaction(func(tx *gorm.DB) error {
		if err := e.flights.WithTx(tx).Create(ctx, f); err != nil {
			return err
		}
		return e.engine.SeedCharges(ctx, tx, f, f.Players)
	}))
	got, err := e.flights.Get(ctx, f.ID)
	require.NoError(t, err)
	return got
}

func (e *env) reload(t *testing.T, id uuid.UUID) *flight.Flight {
	t.Helper()
	f, err := e.flights.Get(context.Background(), id)
	require.NoError(t, err)
	return f
}

func (e *env) balance(t *testing.T, slot uuid.UUID) int64 {
	t.Helper()
	b, err := e.engine.Balance(context.Background(), slot)
	require.NoError(t, err)
	return b
}

// threeSlots selects both players of a and the first player of b.
func (e *env) threeSlots() []uuid.UUID {
	return []uuid.UUID{e.a.Players[0].ID, e.a.Players[1].ID, e.b.Players[0].ID}
}

func TestSettleChecksInAcrossFlights(t *testing.T) {
	e := setup(t)
	ctx := context.Background()

	// an unselected player's draft edit survives the commit unpaid
	_, err := e.engine.Mutate(ctx, e.b.ID, e.b.CartVersion, "staff:1@T1", cart.AddItem{PlayerSlotID: e.b.Players[1].ID, ProductCode: "CART"})
	require.NoError(t, err)

	total := int64(540000)
	batch, err := e.coord.Settle(ctx, SettleRequest{
		PlayerSlotIDs:  e.threeSlots(),
		Method:         Method{Kind: MethodCard, Token: "tokn_test_1"},
		IdempotencyKey: "desk1-0001",
		FixedAmount:    &total,
		Editor:         "staff:1@T1",
	})
	require.NoError(t, err)
	assert.Equal(t, OutcomeSucceeded, batch.Outcome)
	assert.Equal(t, total, batch.TotalAmount)
	assert.NotEmpty(t, batch.ChargeRef)
	assert.NotNil(t, batch.CompletedAt)
	assert.ElementsMatch(t, []uuid.UUID{e.a.ID, e.b.ID}, batch.FlightIDs)
	assert.Equal(t, 1, e.gateway.Calls())
	assert.Equal(t, total, e.gateway.last.Amount)
	assert.Equal(t, "desk1-0001", e.gateway.last.IdempotencyKey)

	for _, id := range e.threeSlots() {
		assert.Equal(t, int64(0), e.balance(t, id))
	}
	assert.Equal(t, int64(260000), e.balance(t, e.b.Players[1].ID))

	a := e.reload(t, e.a.ID)
	assert.Equal(t, flight.StatusCheckedIn, a.Status)
	assert.Nil(t, a.SettlementHold)
	assert.Equal(t, e.a.CartVersion+1, a.CartVersion)

	b := e.reload(t, e.b.ID)
	assert.Equal(t, flight.StatusBooked, b.Status)
	assert.NotNil(t, b.Players[0].CheckedInAt)
	assert.Nil(t, b.Players[1].CheckedInAt)

	d, err := e.engine.GetDraft(ctx, e.b.ID)
	require.NoError(t, err)
	assert.True(t, d.Committed, "draft is consumed by settlement")

	assert.Equal(t, []string{mq.KeySettlementSucceeded, mq.KeyFlightStatus}, e.events.Keys())
	assert.Contains(t, e.notifier.types, realtime.EventSettlementCompleted)
}

func TestSettleReplaysSucceededKey(t *testing.T) {
	e := setup(t)
	ctx := context.Background()
	req := SettleRequest{
		PlayerSlotIDs:  e.threeSlots(),
		Method:         Method{Kind: MethodCard, Token: "tokn_test_1"},
		IdempotencyKey: "desk1-0002",
	}

	first, err := e.coord.Settle(ctx, req)
	require.NoError(t, err)

	// same set, different order
	req.PlayerSlotIDs = []uuid.UUID{e.b.Players[0].ID, e.a.Players[1].ID, e.a.Players[0].ID}
	second, err := e.coord.Settle(ctx, req)
	require.NoError(t, err)
	assert.Equal(t, first.ID, second.ID)
	assert.Equal(t, first.TotalAmount, second.TotalAmount)
	assert.Equal(t, 1, e.gateway.Calls())

	req.PlayerSlotIDs = []uuid.UUID{e.b.Players[1].ID}
	_, err = e.coord.Settle(ctx, req)
	assert.ErrorIs(t, err, ErrKeyReused)
	assert.ErrorIs(t, err, apperr.ErrValidation)
	assert.Equal(t, 1, e.gateway.Calls())
}

func TestSettleRefusesRetryAfterUncommittedCharge(t *testing.T) {
	e := setup(t)
	ctx := context.Background()
	// another writer moves the cart while the card is being charged
	e.gateway.onCharge = func() {
		require.NoError(t, e.db.Model(&flight.Flight{}).Where("id = ?", e.a.ID).
			Update("cart_version", gorm.Expr("cart_version + 1")).Error)
	}
	req := SettleRequest{
		PlayerSlotIDs:  e.threeSlots(),
		Method:         Method{Kind: MethodCard, Token: "tokn_test_1"},
		IdempotencyKey: "desk1-0010",
	}

	_, err := e.coord.Settle(ctx, req)
	require.ErrorIs(t, err, ErrUnsettled)
	require.Equal(t, 1, e.gateway.Calls())

	batches, err := e.coord.ListByDate(ctx, 1, "2026-05-04")
	require.NoError(t, err)
	require.Len(t, batches, 1)
	pending := batches[0]
	assert.Equal(t, OutcomePending, pending.Outcome)
	assert.NotEmpty(t, pending.ChargeRef)

	e.gateway.onCharge = nil
	_, err = e.coord.Settle(ctx, req)
	require.ErrorIs(t, err, ErrUnsettled)
	assert.ErrorIs(t, err, apperr.ErrConflict)
	var ae *apperr.Error
	require.ErrorAs(t, err, &ae)
	assert.Equal(t, []string{pending.ID.String()}, ae.IDs)
	assert.Equal(t, 1, e.gateway.Calls(), "same key must not be charged twice")

	batches, err = e.coord.ListByDate(ctx, 1, "2026-05-04")
	require.NoError(t, err)
	assert.Len(t, batches, 1)
	for _, id := range e.threeSlots() {
		assert.Equal(t, int64(180000), e.balance(t, id))
	}
}

func TestSettleTimeoutLeavesBalancesUnchanged(t *testing.T) {
	e := setup(t)
	ctx := context.Background()
	e.gateway.hang = true

	_, err := e.coord.Settle(ctx, SettleRequest{
		PlayerSlotIDs:  e.threeSlots(),
		Method:         Method{Kind: MethodCard, Token: "tokn_test_1"},
		IdempotencyKey: "desk1-0003",
	})
	assert.ErrorIs(t, err, ErrGatewayTimeout)
	assert.ErrorIs(t, err, apperr.ErrPayment)

	for _, id := range e.threeSlots() {
		assert.Equal(t, int64(180000), e.balance(t, id))
	}
	for _, id := range []uuid.UUID{e.a.ID, e.b.ID} {
		f := e.reload(t, id)
		assert.Equal(t, flight.StatusBooked, f.Status)
		assert.Nil(t, f.SettlementHold)
		for _, p := range f.Players {
			assert.Nil(t, p.CheckedInAt)
		}
	}

	batches, err := e.coord.ListByDate(ctx, 1, "2026-05-04")
	require.NoError(t, err)
	require.Len(t, batches, 1)
	assert.Equal(t, OutcomeFailed, batches[0].Outcome)
	assert.Equal(t, int64(540000), batches[0].TotalAmount)
	assert.NotEmpty(t, batches[0].FailureReason)
	assert.Equal(t, []string{mq.KeySettlementFailed}, e.events.Keys())

	// the caller may retry under the same key once the gateway recovers
	e.gateway.hang = false
	batch, err := e.coord.Settle(ctx, SettleRequest{
		PlayerSlotIDs:  e.threeSlots(),
		Method:         Method{Kind: MethodCard, Token: "tokn_test_1"},
		IdempotencyKey: "desk1-0003",
	})
	require.NoError(t, err)
	assert.Equal(t, OutcomeSucceeded, batch.Outcome)
	assert.NotEqual(t, batches[0].ID, batch.ID)
}

func TestSettleRejectsAmountMismatch(t *testing.T) {
	e := setup(t)
	wrong := int64(500000)
	_, err := e.coord.Settle(context.Background(), SettleRequest{
		PlayerSlotIDs:  e.threeSlots(),
		Method:         Method{Kind: MethodCash},
		IdempotencyKey: "desk1-0004",
		FixedAmount:    &wrong,
	})
	assert.ErrorIs(t, err, ErrAmountMismatch)
	assert.ErrorIs(t, err, apperr.ErrValidation)
	assert.Equal(t, 0, e.gateway.Calls())

	batches, err := e.coord.ListByDate(context.Background(), 1, "2026-05-04")
	require.NoError(t, err)
	assert.Empty(t, batches)
	assert.Nil(t, e.reload(t, e.a.ID).SettlementHold)
}

func TestSettleValidation(t *testing.T) {
	e := setup(t)
	ctx := context.Background()

	_, err := e.coord.Settle(ctx, SettleRequest{Method: Method{Kind: MethodCash}, IdempotencyKey: "k"})
	assert.ErrorIs(t, err, ErrNoPlayers)

	_, err = e.coord.Settle(ctx, SettleRequest{PlayerSlotIDs: e.threeSlots(), Method: Method{Kind: MethodCash}})
	assert.ErrorIs(t, err, ErrNoKey)

	_, err = e.coord.Settle(ctx, SettleRequest{PlayerSlotIDs: e.threeSlots(), Method: Method{Kind: MethodCard}, IdempotencyKey: "k"})
	assert.ErrorIs(t, err, ErrMethodToken)

	_, err = e.coord.Settle(ctx, SettleRequest{PlayerSlotIDs: []uuid.UUID{uuid.New()}, Method: Method{Kind: MethodCash}, IdempotencyKey: "k"})
	assert.ErrorIs(t, err, flight.ErrPlayerNotFound)

	other := e.book(t, "07:20", "M-5", "M-6")
	require.NoError(t, e.db.Model(&flight.Flight{}).Where("id = ?", other.ID).Update("play_date", "2026-05-05").Error)
	_, err = e.coord.Settle(ctx, SettleRequest{
		PlayerSlotIDs:  []uuid.UUID{e.a.Players[0].ID, other.Players[0].ID},
		Method:         Method{Kind: MethodCash},
		IdempotencyKey: "k",
	})
	assert.ErrorIs(t, err, ErrMixedFlights)

	require.NoError(t, e.db.Model(&flight.Flight{}).Where("id = ?", e.b.ID).Update("status", flight.StatusCancelled).Error)
	_, err = e.coord.Settle(ctx, SettleRequest{PlayerSlotIDs: []uuid.UUID{e.b.Players[0].ID}, Method: Method{Kind: MethodCash}, IdempotencyKey: "k"})
	assert.ErrorIs(t, err, flight.ErrFlightClosed)
	assert.Equal(t, 0, e.gateway.Calls())
}

func TestSettleInFlightKeyConflicts(t *testing.T) {
	e := setup(t)
	ctx := context.Background()

	lease, err := e.locker.Acquire(ctx, "desk1-0005", time.Minute)
	require.NoError(t, err)

	_, err = e.coord.Settle(ctx, SettleRequest{PlayerSlotIDs: e.threeSlots(), Method: Method{Kind: MethodCash}, IdempotencyKey: "desk1-0005"})
	assert.ErrorIs(t, err, ErrInFlight)
	assert.ErrorIs(t, err, apperr.ErrConflict)

	require.NoError(t, lease.Release(ctx))
	_, err = e.coord.Settle(ctx, SettleRequest{PlayerSlotIDs: e.threeSlots(), Method: Method{Kind: MethodCash}, IdempotencyKey: "desk1-0005"})
	assert.NoError(t, err)
}

func TestSettleBlockedByForeignHold(t *testing.T) {
	e := setup(t)
	ctx := context.Background()
	now := time.Now()
	require.NoError(t, e.flights.PlaceHold(ctx, e.a.ID, e.a.CartVersion, "other-batch", now.Add(time.Minute), now))

	_, err := e.coord.Settle(ctx, SettleRequest{PlayerSlotIDs: e.threeSlots(), Method: Method{Kind: MethodCash}, IdempotencyKey: "desk1-0006"})
	assert.ErrorIs(t, err, flight.ErrSettlementHold)
	assert.ErrorIs(t, err, apperr.ErrConflict)

	// the other flight was not left frozen
	assert.Nil(t, e.reload(t, e.b.ID).SettlementHold)
}

func TestSettleZeroBalanceSkipsGateway(t *testing.T) {
	e := setup(t)
	ctx := context.Background()
	slots := []uuid.UUID{e.a.Players[0].ID}

	_, err := e.coord.Settle(ctx, SettleRequest{PlayerSlotIDs: slots, Method: Method{Kind: MethodCard, Token: "tokn_1"}, IdempotencyKey: "desk1-0007"})
	require.NoError(t, err)
	require.Equal(t, 1, e.gateway.Calls())

	again, err := e.coord.Settle(ctx, SettleRequest{PlayerSlotIDs: slots, Method: Method{Kind: MethodCard, Token: "tokn_1"}, IdempotencyKey: "desk1-0008"})
	require.NoError(t, err)
	assert.Equal(t, int64(0), again.TotalAmount)
	assert.Equal(t, OutcomeSucceeded, again.Outcome)
	assert.Equal(t, 1, e.gateway.Calls())
}

func TestSettleCancelledBeforeCharge(t *testing.T) {
	e := setup(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := e.coord.Settle(ctx, SettleRequest{PlayerSlotIDs: e.threeSlots(), Method: Method{Kind: MethodCash}, IdempotencyKey: "desk1-0009"})
	require.Error(t, err)
	assert.Equal(t, 0, e.gateway.Calls())
	assert.Equal(t, int64(180000), e.balance(t, e.a.Players[0].ID))
	assert.Nil(t, e.reload(t, e.a.ID).SettlementHold)
}

func TestDailySummary(t *testing.T) {
	e := setup(t)
	ctx := context.Background()
	_, err := e.coord.Settle(ctx, SettleRequest{PlayerSlotIDs: []uuid.UUID{e.a.Players[0].ID}, Method: Method{Kind: MethodCash}, IdempotencyKey: "s-1"})
	require.NoError(t, err)
	e.gateway.err = ErrDeclined
	_, err = e.coord.Settle(ctx, SettleRequest{PlayerSlotIDs: []uuid.UUID{e.a.Players[1].ID}, Method: Method{Kind: MethodCard, Token: "tokn_x"}, IdempotencyKey: "s-2"})
	require.ErrorIs(t, err, ErrDeclined)

	reports, err := NewReports(e.db)
	require.NoError(t, err)
	rows, err := reports.DailySummary(ctx, 1, "2026-05-04")
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, SummaryRow{Method: MethodCard, Outcome: OutcomeFailed, Attempts: 1, Amount: 180000}, rows[0])
	assert.Equal(t, SummaryRow{Method: MethodCash, Outcome: OutcomeSucceeded, Attempts: 1, Amount: 180000}, rows[1])
}
