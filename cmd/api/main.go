package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"

	"teesheet/internal/app"
	"teesheet/internal/config"
	"teesheet/internal/database"
	"teesheet/internal/domain/settlement"
	"teesheet/internal/pkg/lock"
	"teesheet/internal/pkg/mq"
	"teesheet/internal/pkg/obs"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal(err)
	}
	if cfg.ProdLike() {
		gin.SetMode(gin.ReleaseMode)
	}

	db, err := database.Connect(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("db connect failed: %v", err)
	}
	if err := app.Migrate(db); err != nil {
		log.Fatalf("AutoMigrate failed: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if cfg.OTelEnabled {
		shutdown, err := obs.InitTracer(ctx, "teesheet-api", cfg.AppEnv, cfg.OTelEndpoint)
		if err != nil {
			log.Fatalf("tracer init failed: %v", err)
		}
		defer func() {
			flushCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = shutdown(flushCtx)
		}()
	}

	var locker lock.Locker = lock.NewLocal()
	if cfg.RedisAddr != "" {
		rdb := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
		if err := rdb.Ping(ctx).Err(); err != nil {
			log.Fatalf("redis ping failed: %v", err)
		}
		defer rdb.Close()
		locker = lock.NewRedisLocker(rdb, "teesheet:settle:")
		log.Println("Redis connected:", cfg.RedisAddr)
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

	gateway := settlement.MethodRouter{Local: settlement.CashGateway{}}
	if cfg.OmiseSecretKey != "" {
		omc, err := settlement.NewOmiseClient(cfg.OmisePublicKey, cfg.OmiseSecretKey)
		if err != nil {
			log.Fatalf("omise client failed: %v", err)
		}
		gateway.Remote = settlement.NewOmiseGateway(omc)
	}

	a, err := app.New(app.Options{
		Config:  cfg,
		DB:      db,
		Locker:  locker,
		Events:  events,
		Gateway: gateway,
		Loggerf: log.Printf,
	})
	if err != nil {
		log.Fatal(err)
	}

	server := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           a.Router,
		ReadHeaderTimeout: 5 * time.Second,
		// settlements wait up to PAYMENT_TIMEOUT on the gateway
		WriteTimeout: cfg.PaymentTimeout + 10*time.Second,
		IdleTimeout:  120 * time.Second,
	}

	go func() {
		log.Println("Server starting on", cfg.HTTPAddr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("Server startup failed: %v", err)
		}
	}()

	<-ctx.Done()
	log.Println("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.PaymentTimeout+5*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Printf("Server forced to shutdown: %v", err)
	}
	log.Println("Server exiting")
}
