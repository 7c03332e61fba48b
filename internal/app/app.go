// Package app assembles the tee sheet service: models, domain services and
// the gin router.
package app

import (
	"log"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"teesheet/internal/config"
	"teesheet/internal/domain/block"
	"teesheet/internal/domain/cart"
	"teesheet/internal/domain/catalog"
	"teesheet/internal/domain/fleet"
	"teesheet/internal/domain/flight"
	"teesheet/internal/domain/member"
	"teesheet/internal/domain/schedule"
	"teesheet/internal/domain/settlement"
	"teesheet/internal/domain/staff"
	"teesheet/internal/pkg/jwt"
	"teesheet/internal/pkg/lock"
	"teesheet/internal/pkg/mq"
	"teesheet/internal/realtime"
)

// Models lists every persisted type in migration order.
func Models() []any {
	return []any{
		&staff.Staff{},
		&member.Person{},
		&fleet.Resource{},
		&catalog.Product{},
		&block.Block{},
		&schedule.Config{},
		&flight.Flight{},
		&flight.PlayerSlot{},
		&cart.ChargeLineItem{},
		&cart.Draft{},
		&settlement.Batch{},
	}
}

func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(Models()...)
}

// Options carries the infrastructure picked by the caller. Nil fields fall
// back to in-process implementations.
type Options struct {
	Config  *config.Config
	DB      *gorm.DB
	Locker  lock.Locker
	Events  mq.Events
	Gateway settlement.Gateway
	Loggerf func(format string, args ...any)
}

type App struct {
	Router *gin.Engine
	Hub    *realtime.Hub
	JWT    *jwt.Service

	Staff       *staff.Service
	Schedule    *schedule.Service
	Blocks      *block.Manager
	Members     *member.Directory
	Fleet       *fleet.Registry
	Catalog     *catalog.Catalog
	Flights     *flight.Service
	Carts       *cart.Engine
	Settlements *settlement.Coordinator
}

func New(opts Options) (*App, error) {
	cfg, db := opts.Config, opts.DB
	if opts.Events == nil {
		opts.Events = mq.LogPublisher{}
	}
	if opts.Locker == nil {
		opts.Locker = lock.NewLocal()
	}
	if opts.Gateway == nil {
		opts.Gateway = settlement.MethodRouter{Local: settlement.CashGateway{}}
	}
	if opts.Loggerf == nil {
		opts.Loggerf = log.Printf
	}

	a := &App{
		Hub: realtime.NewHub(),
		JWT: jwt.New(cfg.JWTSecret, cfg.JWTTTL),
	}

	a.Staff = staff.NewService(staff.NewRepository(db), a.JWT)
	a.Blocks = block.NewManager(block.NewRepository(db))
	a.Schedule = schedule.NewService(schedule.NewRepository(db), a.Blocks)
	a.Members = member.NewDirectory(db)
	a.Fleet = fleet.NewRegistry(db)
	a.Catalog = catalog.New(db)

	flights := flight.NewRepository(db)
	a.Carts = cart.NewEngine(db, flights, cart.NewStore(db), a.Catalog, a.Hub, cfg.DraftLeaseTTL)
	a.Flights = flight.NewService(flight.Deps{
		DB:        db,
		Repo:      flights,
		Slots:     a.Schedule,
		Directory: a.Members,
		Resources: a.Fleet,
		Carts:     a.Carts,
		Notifier:  a.Hub,
		Events:    opts.Events,
		Loggerf:   opts.Loggerf,
	})
	a.Settlements = settlement.NewCoordinator(settlement.Deps{
		DB:       db,
		Flights:  flights,
		Carts:    a.Carts,
		Ledger:   settlement.NewLedger(db),
		Gateway:  opts.Gateway,
		Locker:   opts.Locker,
		Events:   opts.Events,
		Notifier: a.Hub,
		Loggerf:  opts.Loggerf,
		Config: settlement.Config{
			Currency:       cfg.PaymentCurrency,
			PaymentTimeout: cfg.PaymentTimeout,
			HoldTTL:        cfg.SettlementHoldTTL,
		},
	})

	reports, err := settlement.NewReports(db)
	if err != nil {
		return nil, err
	}
	a.Router = a.routes(cfg, reports)
	return a, nil
}
