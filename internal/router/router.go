package router // package router defines how HTTP routes are registered for the API

import (
	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"

	"github.com/iliyamo/hotel-reservation/internal/config"
	"github.com/iliyamo/hotel-reservation/internal/handler"
	"github.com/iliyamo/hotel-reservation/internal/middleware"
)

// Handlers groups everything the router wires up.
type Handlers struct {
	Auth    *handler.AuthHandler
	Room    *handler.RoomHandler
	Booking *handler.BookingHandler
	Payment *handler.PaymentHandler
}

// Register wires all routes onto the Echo instance.
//
// Route groups:
//   - /healthz            liveness probe, no middleware
//   - /v1/auth/*          session management, unauthenticated
//   - /v1/rooms (GET)     public browse, cached
//   - /v1/rooms (writes)  MANAGER only
//   - /v1/bookings/*      authenticated guests (and managers)
//   - /v1/payments/*      gateway webhook, shared-secret authenticated
//
// The rate limiter wraps everything under /v1; the response cache only
// the public browse reads.
func Register(e *echo.Echo, h Handlers, jwtSecret string, rdb *redis.Client, rlCfg config.RateLimitConfig, cacheCfg config.CacheConfig) {
	e.GET("/healthz", handler.Health)

	limited := middleware.NewTokenBucket(rlCfg, rdb)
	cached := middleware.NewBrowseCache(cacheCfg, rdb)

	// Session management.
	auth := e.Group("/v1/auth", limited)
	auth.POST("/register", h.Auth.Register)
	auth.POST("/login", h.Auth.Login)
	auth.POST("/refresh", h.Auth.Refresh)
	auth.POST("/refresh-access", h.Auth.RefreshAccess)
	auth.POST("/logout", h.Auth.Logout)

	// Public browse, cached.
	pub := e.Group("/v1", limited, cached)
	pub.GET("/rooms", h.Room.ListRooms)
	pub.GET("/rooms/:id", h.Room.GetRoom)
	pub.GET("/rooms/:id/availability", h.Room.Availability)

	// Gateway webhook: authenticated by shared secret, not JWT.
	e.POST("/v1/payments/webhook", h.Payment.Webhook, limited)

	// Everything below requires a valid access token.
	v1 := e.Group("/v1", limited, middleware.JWTAuth(jwtSecret))

	v1.GET("/me", h.Auth.Me, middleware.RequireRole("GUEST", "MANAGER"))

	// Room catalogue management.
	manage := v1.Group("", middleware.RequireRole("MANAGER"))
	manage.POST("/rooms", h.Room.CreateRoom)
	manage.PUT("/rooms/:id", h.Room.UpdateRoom)

	// Booking lifecycle.
	bookings := v1.Group("/bookings", middleware.RequireRole("GUEST", "MANAGER"))
	bookings.POST("", h.Booking.Create)
	bookings.GET("", h.Booking.List)
	bookings.GET("/:id", h.Booking.Get)
	bookings.GET("/:id/refund-quote", h.Booking.RefundQuote)
	bookings.DELETE("/:id", h.Booking.Cancel)
	bookings.POST("/:id/payment/verify", h.Payment.Verify)
}
