package main

import (
	"context"
	"log"
	"time"

	"teesheet/internal/app"
	"teesheet/internal/config"
	"teesheet/internal/database"
	"teesheet/internal/pkg/clock"
	"teesheet/internal/pkg/mq"
)

// noshow marks today's BOOKED flights that nobody checked in for as NO_SHOW
// once their tee time plus NO_SHOW_GRACE has passed. Run it from cron.
func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal(err)
	}

	db, err := database.Connect(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("db connect failed: %v", err)
	}

	var events mq.Events = mq.LogPublisher{}
	if cfg.AMQPURL != "" {
		pub, err := mq.NewPublisher(cfg.AMQPURL, cfg.AMQPExchange)
		if err != nil {
			log.Fatalf("amqp connect failed: %v", err)
		}
		defer pub.Close()
		events = pub
	}

	a, err := app.New(app.Options{Config: cfg, DB: db, Events: events, Loggerf: log.Printf})
	if err != nil {
		log.Fatal(err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	courses, err := a.Schedule.Courses(ctx)
	if err != nil {
		log.Fatalf("list courses failed: %v", err)
	}

	now := time.Now()
	total := 0
	for _, courseID := range courses {
		loc, err := a.Schedule.Location(ctx, courseID)
		if err != nil {
			log.Printf("no_show_course_skipped course=%d error=%q", courseID, err.Error())
			continue
		}
		date := clock.DateOf(now.In(loc))
		marked, err := a.Flights.MarkNoShows(ctx, courseID, date, now, cfg.NoShowGrace)
		if err != nil {
			log.Printf("no_show_course_failed course=%d date=%s error=%q", courseID, date, err.Error())
			continue
		}
		total += len(marked)
		log.Printf("no_show course=%d date=%s marked=%d", courseID, date, len(marked))
	}

	log.Printf("no-show sweep completed: courses=%d flights=%d", len(courses), total)
}
