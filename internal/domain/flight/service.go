package flight

import (
	"context"
	"sort"
	"strconv"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"teesheet/internal/domain/fleet"
	"teesheet/internal/domain/member"
	"teesheet/internal/domain/schedule"
	"teesheet/internal/pkg/clock"
	"teesheet/internal/pkg/mq"
	"teesheet/internal/realtime"
)

// RoundDuration is how long a cart or caddy stays out with a flight.
const RoundDuration = 270 * time.Minute

type SlotSource interface {
	GetSlots(ctx context.Context, courseID int64, date clock.Date) (*schedule.Sheet, error)
	Location(ctx context.Context, courseID int64) (*time.Location, error)
}

type Directory interface {
	Resolve(ctx context.Context, refs []string) (map[string]member.Person, error)
}

type Resources interface {
	Require(ctx context.Context, id int64, kind fleet.Kind) (*fleet.Resource, error)
	Available(ctx context.Context, courseID int64, kind fleet.Kind, busy []int64) ([]fleet.Resource, error)
}

// Carts is the cart engine as seen from the flight lifecycle.
type Carts interface {
	PlayerBalances(ctx context.Context, flightID uuid.UUID) (map[uuid.UUID]int64, error)
	SeedCharges(ctx context.Context, tx *gorm.DB, f *Flight, players []PlayerSlot) error
}

type Notifier interface {
	Notify(courseID int64, date, eventType string, payload any)
}

type Deps struct {
	DB        *gorm.DB
	Repo      *Repository
	Slots     SlotSource
	Directory Directory
	Resources Resources
	Carts     Carts
	Notifier  Notifier
	Events    mq.Events
	Loggerf   func(format string, args ...any)
}

type Service struct {
	db        *gorm.DB
	repo      *Repository
	slots     SlotSource
	directory Directory
	resources Resources
	carts     Carts
	notifier  Notifier
	events    mq.Events
	now       func() time.Time
	loggerf   func(format string, args ...any)
}

func NewService(d Deps) *Service {
	s := &Service{
		db:        d.DB,
		repo:      d.Repo,
		slots:     d.Slots,
		directory: d.Directory,
		resources: d.Resources,
		carts:     d.Carts,
		notifier:  d.Notifier,
		events:    d.Events,
		now:       time.Now,
		loggerf:   d.Loggerf,
	}
	if s.loggerf == nil {
		s.loggerf = func(string, ...any) {}
	}
	if s.events == nil {
		s.events = mq.LogPublisher{}
	}
	return s
}

type PlayerInput struct {
	Position    int
	Kind        member.Kind
	Ref         string
	DisplayName string
}

type BookInput struct {
	CourseID int64
	Date     clock.Date
	TeeTime  clock.TimeOfDay
	Players  []PlayerInput
	Notes    string
	Editor   string
}

// Board is the projected tee sheet for one course and date.
type Board struct {
	CourseID  int64  `json:"course_id"`
	Date      string `json:"date"`
	Timezone  string `json:"timezone"`
	Crossover bool   `json:"crossover"`
	Shotgun   bool   `json:"shotgun"`
	Flights   []View `json:"flights"`
}

// StatusEvent is published on every lifecycle change.
type StatusEvent struct {
	FlightID uuid.UUID `json:"flight_id"`
	CourseID int64     `json:"course_id"`
	Date     string    `json:"date"`
	TeeTime  string    `json:"tee_time"`
	From     Status    `json:"from"`
	To       Status    `json:"to"`
	Editor   string    `json:"editor,omitempty"`
	At       time.Time `json:"at"`
}

func (s *Service) Get(ctx context.Context, id uuid.UUID) (*Flight, error) {
	return s.repo.Get(ctx, id)
}

// GetFlights projects the generated grid and persisted flights into the sheet.
func (s *Service) GetFlights(ctx context.Context, courseID int64, date clock.Date) (*Board, error) {
	sheet, err := s.slots.GetSlots(ctx, courseID, date)
	if err != nil {
		return nil, err
	}
	flights, err := s.repo.ListByDate(ctx, courseID, date.String())
	if err != nil {
		return nil, err
	}
	people, err := s.directory.Resolve(ctx, refsOf(flights))
	if err != nil {
		return nil, err
	}
	return &Board{
		CourseID:  courseID,
		Date:      sheet.Date,
		Timezone:  sheet.Timezone,
		Crossover: sheet.Crossover,
		Shotgun:   sheet.Shotgun,
		Flights:   Project(sheet, flights, people),
	}, nil
}

// Book creates a flight on an open slot of the generated grid.
func (s *Service) Book(ctx context.Context, in BookInput) (*Flight, error) {
	sheet, err := s.slots.GetSlots(ctx, in.CourseID, in.Date)
	if err != nil {
		return nil, err
	}
	slot, ok := sheet.Find(in.TeeTime)
	if !ok {
		return nil, ErrNotOnGrid.WithIDs(in.TeeTime.String())
	}
	if slot.Status != schedule.SlotOpen {
		ids := []string{in.TeeTime.String()}
		if slot.BlockID != nil {
			ids = append(ids, slot.BlockID.String())
		}
		return nil, ErrSlotBlocked.WithIDs(ids...)
	}
	if len(in.Players) > MaxPlayers {
		return nil, ErrInvalidPlayer.WithIDs("players")
	}
	ps, err := s.resolvePlayers(ctx, in.Players, nil)
	if err != nil {
		return nil, err
	}

	status := StatusOpen
	if len(ps) > 0 {
		status = StatusBooked
	}
	f := &Flight{
		CourseID:    in.CourseID,
		PlayDate:    in.Date.String(),
		TeeTime:     in.TeeTime,
		Status:      status,
		Notes:       in.Notes,
		Version:     1,
		CartVersion: 1,
		CreatedBy:   in.Editor,
		Players:     ps,
	}
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := s.repo.WithTx(tx).Create(ctx, f); err != nil {
			return err
		}
		if len(f.Players) > 0 && s.carts != nil {
			return s.carts.SeedCharges(ctx, tx, f, f.Players)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	booked, err := s.repo.Get(ctx, f.ID)
	if err != nil {
		return nil, err
	}
	s.changed(ctx, booked, "", in.Editor)
	return booked, nil
}

// AddPlayer fills a free position. An OPEN flight becomes BOOKED.
func (s *Service) AddPlayer(ctx context.Context, flightID uuid.UUID, version int64, in PlayerInput, editor string) (*Flight, error) {
	f, err := s.repo.Get(ctx, flightID)
	if err != nil {
		return nil, err
	}
	if f.Status.Closed() {
		return nil, ErrFlightClosed.WithIDs(f.ID.String())
	}
	if f.Status != StatusOpen && f.Status != StatusBooked {
		return nil, ErrGroupLocked.WithIDs(f.ID.String())
	}
	if f.Version != version {
		return nil, ErrStaleVersion.WithIDs(f.ID.String())
	}
	occupied := make(map[int]bool, len(f.Players))
	for _, p := range f.Players {
		occupied[p.Position] = true
	}
	ps, err := s.resolvePlayers(ctx, []PlayerInput{in}, occupied)
	if err != nil {
		return nil, err
	}
	p := ps[0]
	p.FlightID = f.ID

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		updates := map[string]any{}
		if f.Status == StatusOpen {
			updates["status"] = StatusBooked
		}
		if err := repo.Bump(ctx, f.ID, version, s.now(), updates); err != nil {
			return err
		}
		if err := repo.AddPlayer(ctx, &p); err != nil {
			return err
		}
		if s.carts != nil {
			return s.carts.SeedCharges(ctx, tx, f, []PlayerSlot{p})
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	updated, err := s.repo.Get(ctx, f.ID)
	if err != nil {
		return nil, err
	}
	s.changed(ctx, updated, f.Status, editor)
	return updated, nil
}

// CheckInPlayer checks one player in. The player's cart must be settled
// unless payLater records an on-account override.
func (s *Service) CheckInPlayer(ctx context.Context, flightID uuid.UUID, position int, payLater bool, editor string) (*Flight, error) {
	f, err := s.repo.Get(ctx, flightID)
	if err != nil {
		return nil, err
	}
	if f.Status.Closed() {
		return nil, ErrFlightClosed.WithIDs(f.ID.String())
	}
	p, ok := f.Player(position)
	if !ok {
		return nil, ErrPlayerNotFound.WithIDs(f.ID.String(), strconv.Itoa(position))
	}
	if f.Status != StatusBooked || p.CheckedInAt != nil {
		return nil, ErrAlreadyCheckedIn.WithIDs(p.ID.String())
	}
	balances, err := s.carts.PlayerBalances(ctx, f.ID)
	if err != nil {
		return nil, err
	}
	if balances[p.ID] != 0 && !payLater {
		return nil, ErrOutstandingBalance.WithIDs(p.ID.String())
	}

	now := s.now()
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		if err := repo.Bump(ctx, f.ID, f.Version, now, nil); err != nil {
			return err
		}
		if err := s.sameCart(ctx, repo, f); err != nil {
			return err
		}
		if err := repo.UpdatePlayer(ctx, p.ID, map[string]any{
			"checked_in_at": now.UTC(),
			"pay_later":     payLater || p.PayLater,
		}); err != nil {
			return err
		}
		_, err := Reevaluate(ctx, tx, f.ID, now)
		return err
	})
	if err != nil {
		return nil, err
	}

	updated, err := s.repo.Get(ctx, f.ID)
	if err != nil {
		return nil, err
	}
	s.changed(ctx, updated, f.Status, editor)
	return updated, nil
}

// Transition moves the flight along the lifecycle table. Moving to
// CHECKED_IN checks in every player whose cart is settled or who carries a
// pay-later override; if any player is still owing, nothing changes and the
// error names those player slots.
func (s *Service) Transition(ctx context.Context, flightID uuid.UUID, version int64, target Status, payLaterPositions []int, editor string) (*Flight, error) {
	if !target.Valid() {
		return nil, ErrInvalidStatus.WithIDs(string(target))
	}
	f, err := s.repo.Get(ctx, flightID)
	if err != nil {
		return nil, err
	}
	if f.Version != version {
		return nil, ErrStaleVersion.WithIDs(f.ID.String())
	}
	if !CanTransition(f.Status, target) {
		return nil, ErrIllegalTransition.WithIDs(f.ID.String(), string(f.Status)+"->"+string(target))
	}
	if target == StatusBooked && len(f.Players) == 0 {
		return nil, ErrNoPlayers.WithIDs(f.ID.String())
	}

	var toCheckIn []PlayerSlot
	if target == StatusCheckedIn {
		override := make(map[int]bool, len(payLaterPositions))
		for _, pos := range payLaterPositions {
			override[pos] = true
		}
		balances, err := s.carts.PlayerBalances(ctx, f.ID)
		if err != nil {
			return nil, err
		}
		var owing []string
		for _, p := range f.Players {
			if p.CheckedInAt != nil {
				continue
			}
			if override[p.Position] {
				p.PayLater = true
			}
			if balances[p.ID] != 0 && !p.PayLater {
				owing = append(owing, p.ID.String())
				continue
			}
			toCheckIn = append(toCheckIn, p)
		}
		if len(owing) > 0 {
			return nil, ErrOutstandingBalance.WithIDs(owing...)
		}
	}

	now := s.now()
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		if err := repo.Bump(ctx, f.ID, version, now, map[string]any{"status": target}); err != nil {
			return err
		}
		if len(toCheckIn) == 0 {
			return nil
		}
		if err := s.sameCart(ctx, repo, f); err != nil {
			return err
		}
		for _, p := range toCheckIn {
			if err := repo.UpdatePlayer(ctx, p.ID, map[string]any{
				"checked_in_at": now.UTC(),
				"pay_later":     p.PayLater,
			}); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	updated, err := s.repo.Get(ctx, f.ID)
	if err != nil {
		return nil, err
	}
	s.changed(ctx, updated, f.Status, editor)
	return updated, nil
}

// AssignResources records the cart and caddy on the flight. Nil clears.
func (s *Service) AssignResources(ctx context.Context, flightID uuid.UUID, version int64, cartID, caddyID *int64, editor string) (*Flight, error) {
	f, err := s.repo.Get(ctx, flightID)
	if err != nil {
		return nil, err
	}
	if !f.Status.Active() {
		return nil, ErrFlightClosed.WithIDs(f.ID.String())
	}
	busyCarts, busyCaddies, err := s.busy(ctx, f.CourseID, f.PlayDate, f.TeeTime, f.ID)
	if err != nil {
		return nil, err
	}
	if err := s.checkResource(ctx, cartID, fleet.KindCart, busyCarts); err != nil {
		return nil, err
	}
	if err := s.checkResource(ctx, caddyID, fleet.KindCaddy, busyCaddies); err != nil {
		return nil, err
	}

	if err := s.repo.Bump(ctx, f.ID, version, s.now(), map[string]any{
		"cart_id":  cartID,
		"caddy_id": caddyID,
	}); err != nil {
		return nil, err
	}
	updated, err := s.repo.Get(ctx, f.ID)
	if err != nil {
		return nil, err
	}
	s.changed(ctx, updated, f.Status, editor)
	return updated, nil
}

func (s *Service) checkResource(ctx context.Context, id *int64, kind fleet.Kind, busy []int64) error {
	if id == nil {
		return nil
	}
	res, err := s.resources.Require(ctx, *id, kind)
	if err != nil {
		return err
	}
	for _, b := range busy {
		if b == *id {
			return ErrResourceBusy.WithIDs(res.Code)
		}
	}
	return nil
}

// AvailableResources lists resources of kind free around date/time.
func (s *Service) AvailableResources(ctx context.Context, courseID int64, kind fleet.Kind, date clock.Date, t clock.TimeOfDay) ([]fleet.Resource, error) {
	busyCarts, busyCaddies, err := s.busy(ctx, courseID, date.String(), t, uuid.Nil)
	if err != nil {
		return nil, err
	}
	busy := busyCarts
	if kind == fleet.KindCaddy {
		busy = busyCaddies
	}
	return s.resources.Available(ctx, courseID, kind, busy)
}

// busy collects resources held by other active flights whose round overlaps t.
func (s *Service) busy(ctx context.Context, courseID int64, date string, t clock.TimeOfDay, exclude uuid.UUID) (carts, caddies []int64, err error) {
	flights, err := s.repo.ListByDate(ctx, courseID, date)
	if err != nil {
		return nil, nil, err
	}
	window := clock.TimeOfDay(RoundDuration / time.Minute)
	for _, f := range flights {
		if f.ID == exclude || !f.Status.Active() {
			continue
		}
		d := f.TeeTime - t
		if d < 0 {
			d = -d
		}
		if d >= window {
			continue
		}
		if f.CartID != nil {
			carts = append(carts, *f.CartID)
		}
		if f.CaddyID != nil {
			caddies = append(caddies, *f.CaddyID)
		}
	}
	return carts, caddies, nil
}

// MarkNoShows moves BOOKED flights nobody checked in for to NO_SHOW once
// their tee time plus grace has passed. Flights edited concurrently are skipped.
func (s *Service) MarkNoShows(ctx context.Context, courseID int64, date clock.Date, now time.Time, grace time.Duration) ([]uuid.UUID, error) {
	loc, err := s.slots.Location(ctx, courseID)
	if err != nil {
		return nil, err
	}
	flights, err := s.repo.ListByDate(ctx, courseID, date.String())
	if err != nil {
		return nil, err
	}
	var marked []uuid.UUID
	for i := range flights {
		f := &flights[i]
		if f.Status != StatusBooked || f.AnyCheckedIn() {
			continue
		}
		if !f.TeeTime.On(date, loc).Add(grace).Before(now) {
			continue
		}
		if err := s.repo.Bump(ctx, f.ID, f.Version, now, map[string]any{"status": StatusNoShow}); err != nil {
			s.loggerf("no_show_skip flight=%s error=%q", f.ID, err.Error())
			continue
		}
		from := f.Status
		f.Status = StatusNoShow
		f.Version++
		s.changed(ctx, f, from, "system:no-show")
		marked = append(marked, f.ID)
	}
	return marked, nil
}

// Reevaluate promotes a BOOKED flight to CHECKED_IN once every player is
// checked in. It runs inside the caller's transaction.
func Reevaluate(ctx context.Context, tx *gorm.DB, flightID uuid.UUID, now time.Time) (bool, error) {
	f, err := NewRepository(tx).Get(ctx, flightID)
	if err != nil {
		return false, err
	}
	if f.Status != StatusBooked || !f.AllCheckedIn() {
		return false, nil
	}
	res := tx.WithContext(ctx).Model(&Flight{}).
		Where("id = ? AND status = ?", flightID, StatusBooked).
		Updates(map[string]any{
			"status":     StatusCheckedIn,
			"version":    gorm.Expr("version + 1"),
			"updated_at": now.UTC(),
		})
	return res.RowsAffected > 0, res.Error
}

// sameCart fails when the cart moved after balances were read.
func (s *Service) sameCart(ctx context.Context, repo *Repository, f *Flight) error {
	cur, err := repo.Get(ctx, f.ID)
	if err != nil {
		return err
	}
	if cur.CartVersion != f.CartVersion {
		return ErrStaleCart.WithIDs(f.ID.String())
	}
	return nil
}

func (s *Service) resolvePlayers(ctx context.Context, in []PlayerInput, occupied map[int]bool) ([]PlayerSlot, error) {
	taken := make(map[int]bool, MaxPlayers)
	for pos := range occupied {
		taken[pos] = true
	}
	var refs []string
	for _, p := range in {
		if p.Position < 1 || p.Position > MaxPlayers {
			return nil, ErrInvalidPosition.WithIDs(strconv.Itoa(p.Position))
		}
		if taken[p.Position] {
			return nil, ErrPositionTaken.WithIDs(strconv.Itoa(p.Position))
		}
		taken[p.Position] = true
		if p.Kind != "" && !p.Kind.Valid() {
			return nil, ErrInvalidPlayer.WithIDs(string(p.Kind))
		}
		if p.Kind == member.KindWalkup {
			if p.DisplayName == "" || p.Ref != "" {
				return nil, ErrInvalidPlayer.WithIDs(strconv.Itoa(p.Position))
			}
			continue
		}
		if p.Ref == "" {
			return nil, ErrInvalidPlayer.WithIDs(strconv.Itoa(p.Position))
		}
		refs = append(refs, p.Ref)
	}

	people, err := s.directory.Resolve(ctx, refs)
	if err != nil {
		return nil, err
	}
	var missing []string
	for _, ref := range refs {
		if _, ok := people[ref]; !ok {
			missing = append(missing, ref)
		}
	}
	if len(missing) > 0 {
		return nil, ErrUnknownPerson.WithIDs(missing...)
	}

	out := make([]PlayerSlot, 0, len(in))
	for _, p := range in {
		slot := PlayerSlot{Position: p.Position, RefKind: member.KindWalkup, DisplayName: p.DisplayName}
		if p.Kind != member.KindWalkup {
			person := people[p.Ref]
			slot.RefKind = person.Kind
			slot.RefID = person.Ref
			slot.DisplayName = ""
		}
		out = append(out, slot)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Position < out[j].Position })
	return out, nil
}

// changed pushes the new flight to terminals and publishes status changes.
func (s *Service) changed(ctx context.Context, f *Flight, from Status, editor string) {
	if s.notifier != nil {
		s.notifier.Notify(f.CourseID, f.PlayDate, realtime.EventFlightUpdated, f)
	}
	if from == f.Status {
		return
	}
	ev := StatusEvent{
		FlightID: f.ID,
		CourseID: f.CourseID,
		Date:     f.PlayDate,
		TeeTime:  f.TeeTime.String(),
		From:     from,
		To:       f.Status,
		Editor:   editor,
		At:       s.now().UTC(),
	}
	if err := s.events.PublishJSON(ctx, mq.KeyFlightStatus, ev); err != nil {
		s.loggerf("flight_event_publish_failed flight=%s error=%q", f.ID, err.Error())
	}
}
