package main // Entry point package

import (
	"context"
	"log"

	"github.com/joho/godotenv"
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/hotel-reservation/internal/booking"
	"github.com/iliyamo/hotel-reservation/internal/config"
	"github.com/iliyamo/hotel-reservation/internal/database"
	"github.com/iliyamo/hotel-reservation/internal/gateway"
	"github.com/iliyamo/hotel-reservation/internal/handler"
	"github.com/iliyamo/hotel-reservation/internal/queue"
	"github.com/iliyamo/hotel-reservation/internal/repository"
	"github.com/iliyamo/hotel-reservation/internal/router"
	notifier "github.com/iliyamo/hotel-reservation/internal/service"
)

func main() {
	// Load .env if present; real deployments set the environment directly.
	if err := godotenv.Load(); err != nil {
		log.Println("no .env file found, relying on environment")
	}

	cfg := config.Load()
	settleCfg := config.LoadSettlementConfig()

	db, err := database.Open(cfg.DBUser, cfg.DBPass, cfg.DBHost, cfg.DBPort, cfg.DBName)
	if err != nil {
		log.Fatalf("database: %v", err)
	}
	defer db.Close()

	// Redis is optional: without it the rate limiter and browse cache
	// become no-ops, bookings are unaffected.
	rdb := config.NewRedisClient()
	if rdb == nil {
		log.Println("redis unavailable, rate limiting and caching disabled")
	}

	users := repository.NewUserRepo(db)
	tokens := repository.NewTokenRepo(db)
	rooms := repository.NewRoomRepo(db)
	bookings := repository.NewBookingRepo(db)

	policy := booking.RefundPolicy{PeakWindows: peakRanges(settleCfg.PeakWindows)}
	svc := booking.NewService(bookings, notifier.New(), policy)
	gw := gateway.New(settleCfg.GatewayBaseURL, settleCfg.GatewayAPIKey, settleCfg.GatewayTimeout)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Background workers: payment-window sweep and notification dispatch.
	sweep := booking.NewSweep(bookings, settleCfg.PaymentWindow, settleCfg.SweepInterval)
	go sweep.Run(ctx)
	go func() {
		if err := queue.StartNotificationConsumer(); err != nil {
			log.Printf("notify-consumer: %v", err)
		}
	}()

	e := echo.New()
	e.HideBanner = true
	router.Register(e, router.Handlers{
		Auth:    handler.NewAuthHandler(cfg, users, tokens),
		Room:    handler.NewRoomHandler(rooms, bookings),
		Booking: handler.NewBookingHandler(svc, bookings, rooms),
		Payment: handler.NewPaymentHandler(svc, bookings, gw, settleCfg),
	}, cfg.JWTSecret, rdb, config.LoadRateLimitConfig(), config.LoadCacheConfig())

	addr := ":" + cfg.Port
	log.Printf("listening on %s (env=%s)", addr, cfg.Env)
	if err := e.Start(addr); err != nil {
		log.Fatal(err)
	}
}

// peakRanges converts configured peak windows into the policy's
// date-range form.
func peakRanges(windows []config.PeakWindow) []booking.DateRange {
	out := make([]booking.DateRange, 0, len(windows))
	for _, w := range windows {
		out = append(out, booking.DateRange{CheckIn: booking.Date(w.From), CheckOut: booking.Date(w.To)})
	}
	return out
}
