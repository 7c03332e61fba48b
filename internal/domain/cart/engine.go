package cart

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"gorm.io/gorm"

	"teesheet/internal/domain/catalog"
	"teesheet/internal/domain/flight"
	"teesheet/internal/pkg/obs"
	"teesheet/internal/realtime"
)

const DefaultLeaseTTL = 2 * time.Minute

type Notifier interface {
	Notify(courseID int64, date, eventType string, payload any)
}

type Engine struct {
	db       *gorm.DB
	flights  *flight.Repository
	store    *Store
	catalog  *catalog.Catalog
	notifier Notifier
	leaseTTL time.Duration
	now      func() time.Time
}

func NewEngine(db *gorm.DB, flights *flight.Repository, store *Store, products *catalog.Catalog, notifier Notifier, leaseTTL time.Duration) *Engine {
	if leaseTTL <= 0 {
		leaseTTL = DefaultLeaseTTL
	}
	return &Engine{
		db:       db,
		flights:  flights,
		store:    store,
		catalog:  products,
		notifier: notifier,
		leaseTTL: leaseTTL,
		now:      time.Now,
	}
}

// Mutate applies op to the flight's effective cart. version must equal the
// flight's current cart version; the accepted edit is written through to the
// draft with version+1 in the same transaction.
func (e *Engine) Mutate(ctx context.Context, flightID uuid.UUID, version int64, editor string, op Operation) (*Draft, error) {
	ctx, span := obs.Start(ctx, "cart.Mutate")
	defer span.End()
	span.SetAttributes(
		attribute.String("flight.id", flightID.String()),
		attribute.String("cart.op", op.Name()),
		attribute.Int64("cart.version", version),
	)

	if add, ok := op.(AddItem); ok && add.ProductCode != "" {
		p, err := e.catalog.Lookup(ctx, add.ProductCode)
		if err != nil {
			return nil, err
		}
		add.ProductCode = p.Code
		add.Description = p.Description
		add.Category = p.Category
		add.Amount = p.Amount
		op = add
	}

	now := e.now()
	var draft *Draft
	err := e.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		flights := e.flights.WithTx(tx)
		f, err := flights.Get(ctx, flightID)
		if err != nil {
			return err
		}
		if f.Status.Closed() {
			return flight.ErrFlightClosed.WithIDs(f.ID.String())
		}
		next, err := flights.BumpCart(ctx, f.ID, version, now)
		if err != nil {
			return err
		}
		items, _, err := e.effective(ctx, tx, f.ID)
		if err != nil {
			return err
		}
		items, err = op.Apply(items, slotSet(f), now)
		if err != nil {
			return err
		}
		draft = &Draft{
			FlightID:       f.ID,
			CourseID:       f.CourseID,
			PlayDate:       f.PlayDate,
			Version:        next,
			Items:          items,
			LastEditedBy:   editor,
			LeaseExpiresAt: now.Add(e.leaseTTL),
		}
		return e.store.WithTx(tx).SaveDraft(ctx, draft)
	})
	if err != nil {
		span.RecordError(err)
		return nil, err
	}

	e.notify(draft.CourseID, draft.PlayDate, realtime.EventDraftUpdated, draft)
	return draft, nil
}

// GetDraft returns the flight's draft, or a committed snapshot carrying the
// current cart version when no draft exists.
func (e *Engine) GetDraft(ctx context.Context, flightID uuid.UUID) (*Draft, error) {
	f, err := e.flights.Get(ctx, flightID)
	if err != nil {
		return nil, err
	}
	d, err := e.store.Draft(ctx, flightID)
	if err != nil {
		return nil, err
	}
	if d != nil {
		return d, nil
	}
	lines, err := e.store.LineItems(ctx, flightID)
	if err != nil {
		return nil, err
	}
	return &Draft{
		FlightID:  f.ID,
		CourseID:  f.CourseID,
		PlayDate:  f.PlayDate,
		Version:   f.CartVersion,
		Items:     itemsFromLines(lines),
		Committed: true,
	}, nil
}

// Discard drops unsettled edits. The cart falls back to its committed items.
func (e *Engine) Discard(ctx context.Context, flightID uuid.UUID, version int64, editor string) error {
	var f *flight.Flight
	err := e.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		flights := e.flights.WithTx(tx)
		var err error
		if f, err = flights.Get(ctx, flightID); err != nil {
			return err
		}
		d, err := e.store.WithTx(tx).Draft(ctx, flightID)
		if err != nil {
			return err
		}
		if d == nil {
			return ErrNoDraft.WithIDs(flightID.String())
		}
		if _, err := flights.BumpCart(ctx, flightID, version, e.now()); err != nil {
			return err
		}
		_, err = e.store.WithTx(tx).DeleteDraft(ctx, flightID)
		return err
	})
	if err != nil {
		return err
	}
	e.notify(f.CourseID, f.PlayDate, realtime.EventDraftDiscarded, map[string]any{
		"flight_id": flightID,
		"version":   version + 1,
		"editor":    editor,
	})
	return nil
}

// Cart returns the effective items owned by one player slot.
func (e *Engine) Cart(ctx context.Context, playerSlotID uuid.UUID) ([]Item, error) {
	p, err := e.flights.GetPlayerSlot(ctx, playerSlotID)
	if err != nil {
		return nil, err
	}
	items, _, err := e.effective(ctx, e.db, p.FlightID)
	if err != nil {
		return nil, err
	}
	return ItemsFor(items, playerSlotID), nil
}

func (e *Engine) Balance(ctx context.Context, playerSlotID uuid.UUID) (int64, error) {
	items, err := e.Cart(ctx, playerSlotID)
	if err != nil {
		return 0, err
	}
	return Balance(items, playerSlotID), nil
}

// FlightBalance sums the balances of every occupied position.
func (e *Engine) FlightBalance(ctx context.Context, flightID uuid.UUID) (int64, error) {
	balances, err := e.PlayerBalances(ctx, flightID)
	if err != nil {
		return 0, err
	}
	var total int64
	for _, b := range balances {
		total += b
	}
	return total, nil
}

// PlayerBalances maps every player slot of the flight to its balance.
func (e *Engine) PlayerBalances(ctx context.Context, flightID uuid.UUID) (map[uuid.UUID]int64, error) {
	f, err := e.flights.Get(ctx, flightID)
	if err != nil {
		return nil, err
	}
	items, _, err := e.effective(ctx, e.db, flightID)
	if err != nil {
		return nil, err
	}
	out := make(map[uuid.UUID]int64, len(f.Players))
	for _, p := range f.Players {
		out[p.ID] = Balance(items, p.ID)
	}
	return out, nil
}

// SeedCharges adds the catalog's auto-applied products to each new player.
// It runs inside the booking transaction.
func (e *Engine) SeedCharges(ctx context.Context, tx *gorm.DB, f *flight.Flight, players []flight.PlayerSlot) error {
	products, err := e.catalog.WithTx(tx).AutoApplied(ctx)
	if err != nil || len(products) == 0 || len(players) == 0 {
		return err
	}
	now := e.now().UTC()
	var items []Item
	for _, p := range players {
		for _, prod := range products {
			items = append(items, Item{
				ID:           uuid.New(),
				PlayerSlotID: p.ID,
				Description:  prod.Description,
				Category:     prod.Category,
				ProductCode:  prod.Code,
				Amount:       prod.Amount,
				CreatedAt:    now,
			})
		}
	}

	store := e.store.WithTx(tx)
	next, err := e.flights.WithTx(tx).ForceBumpCart(ctx, f.ID)
	if err != nil {
		return err
	}
	d, err := store.Draft(ctx, f.ID)
	if err != nil {
		return err
	}
	if d == nil {
		return store.InsertLineItems(ctx, linesFromItems(f.ID, items))
	}
	d.Items = append(d.Items, items...)
	d.Version = next
	return store.SaveDraft(ctx, d)
}

// Effective returns the flight's cart as the draft snapshot when a draft
// exists, else the committed line items. db may be a transaction.
func (e *Engine) Effective(ctx context.Context, db *gorm.DB, flightID uuid.UUID) ([]Item, bool, error) {
	return e.effective(ctx, db, flightID)
}

func (e *Engine) effective(ctx context.Context, db *gorm.DB, flightID uuid.UUID) ([]Item, bool, error) {
	store := e.store.WithTx(db)
	d, err := store.Draft(ctx, flightID)
	if err != nil {
		return nil, false, err
	}
	if d != nil {
		return d.Items, true, nil
	}
	lines, err := store.LineItems(ctx, flightID)
	if err != nil {
		return nil, false, err
	}
	return itemsFromLines(lines), false, nil
}

// CommitSettled writes items as the flight's committed cart and drops the draft.
func (e *Engine) CommitSettled(ctx context.Context, tx *gorm.DB, flightID uuid.UUID, items []Item) error {
	store := e.store.WithTx(tx)
	if err := store.Commit(ctx, flightID, items); err != nil {
		return err
	}
	_, err := store.DeleteDraft(ctx, flightID)
	return err
}

func (e *Engine) notify(courseID int64, date, eventType string, payload any) {
	if e.notifier != nil {
		e.notifier.Notify(courseID, date, eventType, payload)
	}
}

func slotSet(f *flight.Flight) map[uuid.UUID]bool {
	out := make(map[uuid.UUID]bool, len(f.Players))
	for _, p := range f.Players {
		out[p.ID] = true
	}
	return out
}
