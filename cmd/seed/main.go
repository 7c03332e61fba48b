package main

import (
	"context"
	"fmt"
	"log"
	"time"

	"teesheet/internal/app"
	"teesheet/internal/config"
	"teesheet/internal/database"
	"teesheet/internal/domain/block"
	"teesheet/internal/domain/catalog"
	"teesheet/internal/domain/fleet"
	"teesheet/internal/domain/flight"
	"teesheet/internal/domain/member"
	"teesheet/internal/domain/schedule"
	"teesheet/internal/domain/staff"
	"teesheet/internal/middleware"
	"teesheet/internal/pkg/clock"
)

const courseID = 1

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal(err)
	}
	db, err := database.Connect(cfg.DatabaseURL)
	if err != nil {
		log.Fatal("DB connection failed:", err)
	}

	log.Println("Running AutoMigrate...")
	if err := app.Migrate(db); err != nil {
		log.Fatal("AutoMigrate failed:", err)
	}

	// Cleanup old data (children first)
	log.Println("Cleaning old data...")
	for _, table := range []string{
		"settlement_batches", "cart_drafts", "charge_line_items", "player_slots", "flights",
		"blocks", "schedule_configs", "products", "fleet_resources", "people", "staff",
	} {
		if err := db.Exec("DELETE FROM " + table).Error; err != nil {
			log.Fatalf("cleanup %s failed: %v", table, err)
		}
	}

	a, err := app.New(app.Options{Config: cfg, DB: db, Loggerf: log.Printf})
	if err != nil {
		log.Fatal(err)
	}
	ctx := context.Background()

	// ================== STAFF ==================
	log.Println("Creating staff...")
	staffRepo := staff.NewRepository(db)
	for _, s := range []struct{ code, name, role, pin string }{
		{"ADMIN", "Course Admin", middleware.RoleAdmin, "9999"},
		{"DESK1", "Front Desk 1", middleware.RoleDesk, "1234"},
		{"DESK2", "Front Desk 2", middleware.RoleDesk, "1234"},
		{"START1", "Starter", middleware.RoleStarter, "5678"},
	} {
		hash, err := staff.HashPin(s.pin)
		if err != nil {
			log.Fatal(err)
		}
		if err := staffRepo.Create(ctx, &staff.Staff{Code: s.code, Name: s.name, Role: s.role, PinHash: hash, Active: true}); err != nil {
			log.Fatalf("create staff %s: %v", s.code, err)
		}
		log.Printf("Staff created: %s / %s (%s)", s.code, s.pin, s.role)
	}

	// ================== SCHEDULE ==================
	log.Println("Creating schedule config...")
	today := clock.DateOf(time.Now())
	if _, err := a.Schedule.SaveConfig(ctx, &schedule.Config{
		CourseID:        courseID,
		EffectiveFrom:   today.AddDays(-30).String(),
		Timezone:        schedule.DefaultTimezone,
		OpensAt:         clock.NewTimeOfDay(6, 0),
		ClosesAt:        clock.NewTimeOfDay(17, 20),
		IntervalMinutes: 8,
		Crossover:       true,
		CreatedBy:       "seed",
	}); err != nil {
		log.Fatalf("schedule config: %v", err)
	}

	loc, err := a.Schedule.Location(ctx, courseID)
	if err != nil {
		log.Fatal(err)
	}
	if _, err := a.Blocks.Create(ctx, block.Input{
		CourseID:   courseID,
		Type:       block.TypeMaintenance,
		StartsAt:   clock.NewTimeOfDay(12, 0).On(today, loc),
		EndsAt:     clock.NewTimeOfDay(12, 48).On(today, loc),
		Recurrence: block.Weekly{Days: block.NewWeekdaySet(time.Monday)},
		Reason:     "Greens mowing",
		Editor:     "seed",
	}, loc); err != nil {
		log.Fatalf("block: %v", err)
	}

	// ================== CATALOG ==================
	log.Println("Creating catalog products...")
	for _, p := range []catalog.Product{
		{Code: "GF18", Description: "Green fee 18 holes", Category: catalog.CategoryGreenFee, Amount: 180000, AutoApply: true},
		{Code: "GF9", Description: "Green fee 9 holes", Category: catalog.CategoryGreenFee, Amount: 100000},
		{Code: "CART", Description: "Golf cart (shared)", Category: catalog.CategoryCart, Amount: 80000},
		{Code: "CADDY", Description: "Caddy fee", Category: catalog.CategoryCaddy, Amount: 45000},
		{Code: "CLUBS", Description: "Club rental set", Category: catalog.CategoryRental, Amount: 120000},
		{Code: "BALLS", Description: "Golf balls (dozen)", Category: catalog.CategoryProShop, Amount: 90000},
	} {
		p.Active = true
		if err := a.Catalog.Upsert(ctx, &p); err != nil {
			log.Fatalf("product %s: %v", p.Code, err)
		}
	}

	// ================== MEMBERS ==================
	log.Println("Creating members...")
	hcp := []float64{8.2, 14.5, 21.0, 3.9}
	names := []string{"Somchai Prasert", "Niran Wong", "Malee Suksai", "Arthit Chai"}
	for i, name := range names {
		h := hcp[i]
		ref := fmt.Sprintf("M-%03d", 100+i)
		if err := a.Members.Upsert(ctx, &member.Person{Ref: ref, Kind: member.KindMember, DisplayName: name, Handicap: &h, Active: true}); err != nil {
			log.Fatal(err)
		}
	}
	if err := a.Members.Upsert(ctx, &member.Person{Ref: "D-100-1", Kind: member.KindDependent, DisplayName: "Nok Prasert", SponsorRef: "M-100", Active: true}); err != nil {
		log.Fatal(err)
	}
	if err := a.Members.Upsert(ctx, &member.Person{Ref: "G-001", Kind: member.KindGuest, DisplayName: "Guest of M-101", SponsorRef: "M-101", Active: true}); err != nil {
		log.Fatal(err)
	}

	// ================== FLEET ==================
	log.Println("Creating fleet...")
	for i := 1; i <= 12; i++ {
		if err := a.Fleet.Create(ctx, &fleet.Resource{CourseID: courseID, Kind: fleet.KindCart, Code: fmt.Sprintf("C%02d", i), Active: true}); err != nil {
			log.Fatal(err)
		}
	}
	for i, name := range []string{"Ploy", "Fon", "Joy", "Mint"} {
		if err := a.Fleet.Create(ctx, &fleet.Resource{CourseID: courseID, Kind: fleet.KindCaddy, Code: fmt.Sprintf("K%02d", i+1), Name: name, Active: true}); err != nil {
			log.Fatal(err)
		}
	}

	// ================== FLIGHTS ==================
	log.Println("Creating demo flights...")
	tomorrow := today.AddDays(1)
	demo := []struct {
		tee     string
		players []flight.PlayerInput
	}{
		{"07:04", []flight.PlayerInput{
			{Position: 1, Kind: member.KindMember, Ref: "M-100"},
			{Position: 2, Kind: member.KindDependent, Ref: "D-100-1"},
		}},
		{"07:12", []flight.PlayerInput{
			{Position: 1, Kind: member.KindMember, Ref: "M-101"},
			{Position: 2, Kind: member.KindGuest, Ref: "G-001"},
			{Position: 3, Kind: member.KindWalkup, DisplayName: "Walk-in"},
		}},
		{"08:00", nil},
	}
	for _, d := range demo {
		tee, _ := clock.ParseTimeOfDay(d.tee)
		f, err := a.Flights.Book(ctx, flight.BookInput{
			CourseID: courseID,
			Date:     tomorrow,
			TeeTime:  tee,
			Players:  d.players,
			Editor:   "seed",
		})
		if err != nil {
			log.Fatalf("book %s: %v", d.tee, err)
		}
		log.Printf("Flight %s %s %s players=%d", f.ID, f.PlayDate, f.TeeTime, len(f.Players))
	}

	log.Println("Seed completed!")
}
