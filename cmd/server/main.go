package main

import (
	"context"
	"log"
	"time"

	"github.com/joho/godotenv"
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/event-booking/internal/booking"
	"github.com/iliyamo/event-booking/internal/config"
	"github.com/iliyamo/event-booking/internal/database"
	"github.com/iliyamo/event-booking/internal/handler"
	"github.com/iliyamo/event-booking/internal/mailer"
	"github.com/iliyamo/event-booking/internal/notifier"
	"github.com/iliyamo/event-booking/internal/payment"
	"github.com/iliyamo/event-booking/internal/queue"
	"github.com/iliyamo/event-booking/internal/repository"
	"github.com/iliyamo/event-booking/internal/router"
)

func main() {
	// .env is optional; real deployments set the environment directly.
	_ = godotenv.Load()
	cfg := config.Load()

	db, err := database.Open(cfg.DBUser, cfg.DBPass, cfg.DBHost, cfg.DBPort, cfg.DBName)
	if err != nil {
		log.Fatalf("database connect failed: %v", err)
	}
	defer db.Close()
	if err := database.Migrate(context.Background(), db); err != nil {
		log.Fatalf("database migrate failed: %v", err)
	}

	// Redis is optional: without it the stream is single-instance and the
	// booking routes run unthrottled.
	rdb := config.NewRedisClient()
	if rdb == nil {
		log.Println("redis unavailable; continuing without cross-instance broadcast and rate limiting")
	}

	hub := notifier.NewHub()
	bridge := notifier.NewRedisBridge(hub, rdb)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go bridge.Run(ctx)
	go hub.RunPresence(ctx, 30*time.Second)

	users := repository.NewUserRepo(db)
	tokens := repository.NewTokenRepo(db)
	events := repository.NewEventRepo(db)
	bookings := repository.NewBookingRepo(db)

	gateway := payment.NewStripeGateway(cfg.StripeSecret, cfg.StripeAPIBase)
	svc := booking.NewService(events, bookings, users, gateway, bridge,
		queue.PublishBookingPaid, cfg.Currency, cfg.PendingTTL)

	go svc.RunReaper(ctx, cfg.ReaperEvery)
	go func() {
		if err := queue.StartReceiptConsumer(&mailer.FileSender{}); err != nil {
			log.Printf("receipt consumer stopped: %v", err)
		}
	}()

	e := echo.New()
	e.HideBanner = true
	router.Register(e, router.Handlers{
		Auth:    handler.NewAuthHandler(cfg, users, tokens),
		Events:  handler.NewEventHandler(events, bookings, bridge),
		Booking: handler.NewBookingHandler(svc, bookings),
		Stream:  handler.NewStreamHandler(hub),
	}, cfg.JWTSecret, rdb, cfg.RateLimitRPM)

	addr := ":" + cfg.Port
	log.Printf("listening on %s (env=%s)", addr, cfg.Env)
	if err := e.Start(addr); err != nil {
		log.Fatal(err)
	}
}
