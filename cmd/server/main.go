package main // Entry point package

import (
	"log"

	"github.com/joho/godotenv"
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/cinema-ticketing/internal/booking"
	"github.com/iliyamo/cinema-ticketing/internal/config"
	"github.com/iliyamo/cinema-ticketing/internal/database"
	"github.com/iliyamo/cinema-ticketing/internal/handler"
	"github.com/iliyamo/cinema-ticketing/internal/holdstore"
	"github.com/iliyamo/cinema-ticketing/internal/notify"
	"github.com/iliyamo/cinema-ticketing/internal/payment"
	"github.com/iliyamo/cinema-ticketing/internal/queue"
	"github.com/iliyamo/cinema-ticketing/internal/repository"
	"github.com/iliyamo/cinema-ticketing/internal/router"
	"github.com/iliyamo/cinema-ticketing/internal/sweeper"
)

func main() {
	// .env is optional; real deployments set the environment directly.
	_ = godotenv.Load()
	cfg := config.Load()

	db, err := database.Open(cfg.DBUser, cfg.DBPass, cfg.DBHost, cfg.DBPort, cfg.DBName)
	if err != nil {
		log.Fatalf("server: database connection failed: %v", err)
	}
	defer db.Close()

	rdb := config.NewRedisClient()
	if rdb == nil {
		// Holds degrade to "cannot hold" and rate limiting turns off;
		// reads and payment callbacks keep working.
		log.Printf("server: redis unavailable, seat holds disabled")
	}

	ledger := repository.NewLedger(db)
	holds := holdstore.NewRedisStore(rdb)
	sink := notify.NewRabbitBroadcaster()
	coord := booking.NewCoordinator(ledger, holds, sink, cfg.HoldTTL)

	// Background workers: the seat-events audit consumer and the
	// pending-booking sweep.
	go func() {
		if err := queue.StartSeatEventsConsumer(); err != nil {
			log.Printf("server: seat events consumer stopped: %v", err)
		}
	}()
	if rdb != nil {
		sw := sweeper.New(coord, holds, cfg.PendingTimeout, cfg.SweepSpec)
		go func() {
			if err := sw.Run(); err != nil {
				log.Printf("server: sweeper stopped: %v", err)
			}
		}()
	}

	b := handler.NewBookingHandler(coord, payment.NewHMACVerifier(cfg.PaymentSecret))

	e := echo.New()
	router.RegisterRoutes(e, b)
	router.RegisterBooking(e, b, cfg.JWTSecret, config.LoadRateLimitConfig(), rdb)

	addr := ":" + cfg.Port
	log.Printf("listening on %s (env=%s)", addr, cfg.Env)
	if err := e.Start(addr); err != nil {
		log.Fatal(err)
	}
}
