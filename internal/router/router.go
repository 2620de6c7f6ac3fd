// Package router defines how HTTP routes are registered for the API.
package router

import (
	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"

	"github.com/iliyamo/cinema-ticketing/internal/config"
	"github.com/iliyamo/cinema-ticketing/internal/handler"
	"github.com/iliyamo/cinema-ticketing/internal/middleware"
)

// RegisterRoutes registers routes that do not require authentication on
// the provided Echo instance.  The health check is used by load
// balancers; the seat map and payment return are public because guests
// browse seat maps before logging in and the gateway redirect carries
// its own signature instead of a session.
func RegisterRoutes(e *echo.Echo, b *handler.BookingHandler) {
	e.GET("/healthz", handler.Health)
	e.GET("/v1/showtimes/:id/seats", b.SeatMap)
	e.GET("/v1/payments/return", b.PaymentReturn)
}

// RegisterBooking registers the authenticated booking endpoints under
// /v1.  Every route in the group passes JWT validation and the Redis
// rate limiter before reaching a handler.
func RegisterBooking(e *echo.Echo, b *handler.BookingHandler, jwtSecret string, rlCfg config.RateLimitConfig, rdb *redis.Client) {
	auth := e.Group("/v1")
	auth.Use(middleware.JWTAuth(jwtSecret))
	auth.Use(middleware.NewRateLimiter(rlCfg, rdb))

	auth.POST("/showtimes/:id/select", b.SelectSeats)
	auth.POST("/showtimes/:id/release", b.ReleaseSeats)
	auth.POST("/bookings", b.CreateBooking)
	auth.GET("/bookings", b.MyBookings)
	auth.GET("/bookings/:id", b.GetBooking)
	auth.POST("/bookings/:id/cancel", b.CancelBooking)
}
