package flight

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"teesheet/internal/database"
	"teesheet/internal/domain/block"
	"teesheet/internal/domain/fleet"
	"teesheet/internal/domain/member"
	"teesheet/internal/domain/schedule"
	"teesheet/internal/pkg/apperr"
	"teesheet/internal/pkg/clock"
	"teesheet/internal/pkg/mq"
)

type fakeSlots struct {
	blocks []block.Block
}

func (f *fakeSlots) config(courseID int64) schedule.Config {
	return schedule.Config{
		CourseID:        courseID,
		EffectiveFrom:   "2026-01-01",
		Timezone:        "Asia/Bangkok",
		OpensAt:         tod("06:00"),
		ClosesAt:        tod("17:30"),
		IntervalMinutes: 8,
	}
}

func (f *fakeSlots) GetSlots(_ context.Context, courseID int64, date clock.Date) (*schedule.Sheet, error) {
	cfg := f.config(courseID)
	slots, err := schedule.Generate(cfg, date, f.blocks)
	if err != nil {
		return nil, err
	}
	return &schedule.Sheet{CourseID: courseID, Date: date.String(), Timezone: cfg.Timezone, Slots: slots}, nil
}

func (f *fakeSlots) Location(context.Context, int64) (*time.Location, error) {
	return time.LoadLocation("Asia/Bangkok")
}

type fakeCarts struct {
	balances map[uuid.UUID]int64
	seeded   int
}

func (f *fakeCarts) PlayerBalances(context.Context, uuid.UUID) (map[uuid.UUID]int64, error) {
	out := make(map[uuid.UUID]int64, len(f.balances))
	for k, v := range f.balances {
		out[k] = v
	}
	return out, nil
}

func (f *fakeCarts) SeedCharges(_ context.Context, _ *gorm.DB, _ *Flight, players []PlayerSlot) error {
	f.seeded += len(players)
	return nil
}

type env struct {
	svc    *Service
	repo   *Repository
	carts  *fakeCarts
	slots  *fakeSlots
	fleet  *fleet.Registry
	events *mq.Recorder
	date   clock.Date
}

func setup(t *testing.T) *env {
	t.Helper()
	db, err := database.OpenMemory("flight_" + t.Name())
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&Flight{}, &PlayerSlot{}, &member.Person{}, &fleet.Resource{}))

	ctx := context.Background()
	dir := member.NewDirectory(db)
	require.NoError(t, dir.Upsert(ctx, &member.Person{Ref: "M-1", Kind: member.KindMember, DisplayName: "Anan K.", Active: true}))
	require.NoError(t, dir.Upsert(ctx, &member.Person{Ref: "G-7", Kind: member.KindGuest, DisplayName: "Guest of M-1", SponsorRef: "M-1", Active: true}))

	e := &env{
		repo:   NewRepository(db),
		carts:  &fakeCarts{balances: map[uuid.UUID]int64{}},
		slots:  &fakeSlots{},
		fleet:  fleet.NewRegistry(db),
		events: &mq.Recorder{},
	}
	e.date, _ = clock.ParseDate("2026-05-04")
	e.svc = NewService(Deps{
		DB:        db,
		Repo:      e.repo,
		Slots:     e.slots,
		Directory: dir,
		Resources: e.fleet,
		Carts:     e.carts,
		Events:    e.events,
	})
	return e
}

func (e *env) book(t *testing.T, at string, players ...PlayerInput) *Flight {
	t.Helper()
	f, err := e.svc.Book(context.Background(), BookInput{CourseID: 1, Date: e.date, TeeTime: tod(at), Players: players, Editor: "staff:1"})
	require.NoError(t, err)
	return f
}

func twoPlayers() []PlayerInput {
	return []PlayerInput{
		{Position: 1, Kind: member.KindMember, Ref: "M-1"},
		{Position: 2, Kind: member.KindWalkup, DisplayName: "Walk-in"},
	}
}

func TestBook(t *testing.T) {
	e := setup(t)
	f := e.book(t, "07:04", twoPlayers()...)

	assert.Equal(t, StatusBooked, f.Status)
	require.Len(t, f.Players, 2)
	assert.Equal(t, "M-1", f.Players[0].RefID)
	assert.Equal(t, "Walk-in", f.Players[1].DisplayName)
	assert.Equal(t, 2, e.carts.seeded)

	_, err := e.svc.Book(context.Background(), BookInput{CourseID: 1, Date: e.date, TeeTime: tod("07:04")})
	assert.ErrorIs(t, err, ErrDuplicateFlight)
	assert.ErrorIs(t, err, apperr.ErrConflict)

	empty := e.book(t, "07:12")
	assert.Equal(t, StatusOpen, empty.Status)
}

func TestBookRejectsOffGridBlockedAndUnknown(t *testing.T) {
	e := setup(t)
	loc, _ := time.LoadLocation("Asia/Bangkok")
	e.slots.blocks = []block.Block{{
		ID: uuid.New(), CourseID: 1, Type: block.TypeMaintenance, Reason: "aeration",
		StartsAt: time.Date(2026, 5, 4, 8, 0, 0, 0, loc),
		EndsAt:   time.Date(2026, 5, 4, 9, 0, 0, 0, loc),
	}}
	ctx := context.Background()

	_, err := e.svc.Book(ctx, BookInput{CourseID: 1, Date: e.date, TeeTime: tod("07:05")})
	assert.ErrorIs(t, err, ErrNotOnGrid)

	_, err = e.svc.Book(ctx, BookInput{CourseID: 1, Date: e.date, TeeTime: tod("08:16")})
	assert.ErrorIs(t, err, ErrSlotBlocked)
	assert.ErrorIs(t, err, apperr.ErrState)

	_, err = e.svc.Book(ctx, BookInput{CourseID: 1, Date: e.date, TeeTime: tod("07:04"), Players: []PlayerInput{{Position: 1, Kind: member.KindMember, Ref: "M-404"}}})
	var ae *apperr.Error
	require.True(t, errors.As(err, &ae))
	assert.Equal(t, apperr.KindValidation, ae.Kind)
	assert.Equal(t, []string{"M-404"}, ae.IDs)

	_, err = e.svc.Book(ctx, BookInput{CourseID: 1, Date: e.date, TeeTime: tod("07:04"), Players: []PlayerInput{
		{Position: 1, Kind: member.KindMember, Ref: "M-1"},
		{Position: 1, Kind: member.KindGuest, Ref: "G-7"},
	}})
	assert.ErrorIs(t, err, ErrPositionTaken)
}

func TestCancelFreesTeeTime(t *testing.T) {
	e := setup(t)
	f := e.book(t, "07:04", twoPlayers()...)

	cancelled, err := e.svc.Transition(context.Background(), f.ID, f.Version, StatusCancelled, nil, "staff:1")
	require.NoError(t, err)
	assert.Equal(t, StatusCancelled, cancelled.Status)

	again := e.book(t, "07:04", twoPlayers()...)
	assert.NotEqual(t, f.ID, again.ID)

	board, err := e.svc.GetFlights(context.Background(), 1, e.date)
	require.NoError(t, err)
	for _, v := range board.Flights {
		if v.TeeTime == tod("07:04") {
			require.NotNil(t, v.FlightID)
			assert.Equal(t, again.ID, *v.FlightID)
			assert.Equal(t, "Anan K.", v.Players[0].Name)
		}
	}
}

func TestTransitionToCheckedInRequiresSettledCarts(t *testing.T) {
	e := setup(t)
	ctx := context.Background()
	f := e.book(t, "07:04", twoPlayers()...)
	p1, p2 := f.Players[0], f.Players[1]
	e.carts.balances[p1.ID] = 0
	e.carts.balances[p2.ID] = 150000

	_, err := e.svc.Transition(ctx, f.ID, f.Version, StatusCheckedIn, nil, "staff:1")
	require.ErrorIs(t, err, ErrOutstandingBalance)
	var ae *apperr.Error
	require.True(t, errors.As(err, &ae))
	assert.Equal(t, []string{p2.ID.String()}, ae.IDs)

	unchanged, err := e.repo.Get(ctx, f.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusBooked, unchanged.Status)
	assert.Equal(t, f.Version, unchanged.Version)
	assert.Nil(t, unchanged.Players[0].CheckedInAt)

	done, err := e.svc.Transition(ctx, f.ID, f.Version, StatusCheckedIn, []int{2}, "staff:1")
	require.NoError(t, err)
	assert.Equal(t, StatusCheckedIn, done.Status)
	assert.NotNil(t, done.Players[0].CheckedInAt)
	assert.True(t, done.Players[1].PayLater)
	assert.Contains(t, e.events.Keys(), mq.KeyFlightStatus)
}

func TestTransitionRejectsIllegalAndStale(t *testing.T) {
	e := setup(t)
	ctx := context.Background()
	f := e.book(t, "07:04", twoPlayers()...)

	_, err := e.svc.Transition(ctx, f.ID, f.Version, StatusCompleted, nil, "")
	assert.ErrorIs(t, err, ErrIllegalTransition)

	_, err = e.svc.Transition(ctx, f.ID, f.Version+1, StatusCancelled, nil, "")
	assert.ErrorIs(t, err, apperr.ErrConflict)

	_, err = e.svc.Transition(ctx, f.ID, f.Version, StatusCancelled, nil, "")
	require.NoError(t, err)
	_, err = e.svc.Transition(ctx, f.ID, f.Version+1, StatusBooked, nil, "")
	assert.ErrorIs(t, err, apperr.ErrState)
}

func TestOpenFlightCanBeMarkedNoShow(t *testing.T) {
	e := setup(t)
	ctx := context.Background()
	f := e.book(t, "07:20")
	require.Equal(t, StatusOpen, f.Status)

	got, err := e.svc.Transition(ctx, f.ID, f.Version, StatusNoShow, nil, "staff:1")
	require.NoError(t, err)
	assert.Equal(t, StatusNoShow, got.Status)

	_, err = e.svc.Transition(ctx, got.ID, got.Version, StatusOpen, nil, "staff:1")
	assert.ErrorIs(t, err, ErrIllegalTransition)
}

func TestCheckInPlayerPromotesFlight(t *testing.T) {
	e := setup(t)
	ctx := context.Background()
	f := e.book(t, "07:04", twoPlayers()...)
	e.carts.balances[f.Players[1].ID] = 70000

	got, err := e.svc.CheckInPlayer(ctx, f.ID, 1, false, "staff:1")
	require.NoError(t, err)
	assert.Equal(t, StatusBooked, got.Status)

	_, err = e.svc.CheckInPlayer(ctx, f.ID, 2, false, "staff:1")
	assert.ErrorIs(t, err, ErrOutstandingBalance)

	got, err = e.svc.CheckInPlayer(ctx, f.ID, 2, true, "staff:1")
	require.NoError(t, err)
	assert.Equal(t, StatusCheckedIn, got.Status)
	assert.True(t, got.Players[1].PayLater)

	_, err = e.svc.CheckInPlayer(ctx, f.ID, 2, true, "staff:1")
	assert.ErrorIs(t, err, ErrAlreadyCheckedIn)
}

func TestAddPlayer(t *testing.T) {
	e := setup(t)
	ctx := context.Background()
	f := e.book(t, "07:04")

	got, err := e.svc.AddPlayer(ctx, f.ID, f.Version, PlayerInput{Position: 3, Kind: member.KindGuest, Ref: "G-7"}, "staff:1")
	require.NoError(t, err)
	assert.Equal(t, StatusBooked, got.Status)
	assert.Equal(t, f.Version+1, got.Version)

	_, err = e.svc.AddPlayer(ctx, f.ID, got.Version, PlayerInput{Position: 3, Kind: member.KindMember, Ref: "M-1"}, "staff:1")
	assert.ErrorIs(t, err, ErrPositionTaken)

	_, err = e.svc.AddPlayer(ctx, f.ID, f.Version, PlayerInput{Position: 4, Kind: member.KindMember, Ref: "M-1"}, "staff:1")
	assert.ErrorIs(t, err, ErrStaleVersion)
}

func TestSettlementHoldBlocksFlightEdits(t *testing.T) {
	e := setup(t)
	ctx := context.Background()
	f := e.book(t, "07:04", twoPlayers()...)
	now := time.Now()
	require.NoError(t, e.repo.PlaceHold(ctx, f.ID, f.CartVersion, "batch-1", now.Add(time.Minute), now))

	_, err := e.svc.Transition(ctx, f.ID, f.Version, StatusCancelled, nil, "")
	assert.ErrorIs(t, err, ErrSettlementHold)

	_, err = e.repo.BumpCart(ctx, f.ID, f.CartVersion, now)
	assert.ErrorIs(t, err, ErrSettlementHold)

	require.NoError(t, e.repo.ReleaseHold(ctx, f.ID, "batch-1"))
	v, err := e.repo.BumpCart(ctx, f.ID, f.CartVersion, now)
	require.NoError(t, err)
	assert.Equal(t, f.CartVersion+1, v)
}

func TestAssignResources(t *testing.T) {
	e := setup(t)
	ctx := context.Background()
	cart := &fleet.Resource{CourseID: 1, Kind: fleet.KindCart, Code: "C01", Active: true}
	caddy := &fleet.Resource{CourseID: 1, Kind: fleet.KindCaddy, Code: "K01", Active: true}
	require.NoError(t, e.fleet.Create(ctx, cart))
	require.NoError(t, e.fleet.Create(ctx, caddy))

	early := e.book(t, "07:04", twoPlayers()...)
	later := e.book(t, "08:00", PlayerInput{Position: 1, Kind: member.KindGuest, Ref: "G-7"})

	got, err := e.svc.AssignResources(ctx, early.ID, early.Version, &cart.ID, &caddy.ID, "staff:1")
	require.NoError(t, err)
	assert.Equal(t, cart.ID, *got.CartID)

	_, err = e.svc.AssignResources(ctx, later.ID, later.Version, &cart.ID, nil, "staff:1")
	assert.ErrorIs(t, err, ErrResourceBusy)

	_, err = e.svc.AssignResources(ctx, later.ID, later.Version, &caddy.ID, nil, "staff:1")
	assert.ErrorIs(t, err, fleet.ErrWrongKind)

	free, err := e.svc.AvailableResources(ctx, 1, fleet.KindCart, e.date, tod("08:00"))
	require.NoError(t, err)
	assert.Empty(t, free)

	free, err = e.svc.AvailableResources(ctx, 1, fleet.KindCart, e.date, tod("12:00"))
	require.NoError(t, err)
	assert.Len(t, free, 1)
}

func TestMarkNoShows(t *testing.T) {
	e := setup(t)
	ctx := context.Background()
	late := e.book(t, "07:04", twoPlayers()...)
	arrived := e.book(t, "07:12", twoPlayers()...)
	_, err := e.svc.CheckInPlayer(ctx, arrived.ID, 1, false, "staff:1")
	require.NoError(t, err)
	future := e.book(t, "09:04", twoPlayers()...)

	loc, _ := time.LoadLocation("Asia/Bangkok")
	now := time.Date(2026, 5, 4, 7, 40, 0, 0, loc)
	marked, err := e.svc.MarkNoShows(ctx, 1, e.date, now, 15*time.Minute)
	require.NoError(t, err)
	assert.Equal(t, []uuid.UUID{late.ID}, marked)

	got, err := e.repo.Get(ctx, late.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusNoShow, got.Status)
	got, err = e.repo.Get(ctx, future.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusBooked, got.Status)
}
