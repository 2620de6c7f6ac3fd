// Package sweeper runs the periodic pending-booking sweep on asynq.
// Seats are consumed when a booking is created, so a customer who never
// completes payment would pin seats indefinitely; the sweep cancels
// PENDING bookings older than the configured timeout, which reverts
// their seats to AVAILABLE and announces the release.
package sweeper

import (
	"context"
	"encoding/json"
	"log"
	"os"
	"time"

	"github.com/hibiken/asynq"

	"github.com/iliyamo/cinema-ticketing/internal/booking"
)

// TypeSweepPending is the asynq task type for the periodic sweep.
const TypeSweepPending = "booking:sweep_pending"

// sweepLockName keys the distributed mutex that keeps concurrent server
// instances from sweeping the same bookings at once.
const sweepLockName = "booking-sweep"

// Locker is a short-lived distributed mutex.  *holdstore.RedisStore
// satisfies it.
type Locker interface {
	AcquireLock(ctx context.Context, name string, expiry time.Duration) (string, bool, error)
	ReleaseLock(ctx context.Context, name, token string) error
}

// sweepPayload carries the cutoff policy into the task so a manually
// enqueued sweep can use a different age than the scheduled one.
type sweepPayload struct {
	MaxAgeMinutes int `json:"max_age_minutes"`
}

// Sweeper owns the asynq server and scheduler for the sweep.
type Sweeper struct {
	coord    *booking.Coordinator
	locker   Locker
	maxAge   time.Duration
	cronSpec string
	redisOpt asynq.RedisClientOpt
}

// New builds a Sweeper.  maxAge is how old a PENDING booking must be
// before it is cancelled; cronSpec controls how often the sweep runs.
// locker may be nil in single-instance setups.
func New(coord *booking.Coordinator, locker Locker, maxAge time.Duration, cronSpec string) *Sweeper {
	addr := os.Getenv("REDIS_ADDR")
	if addr == "" {
		host := os.Getenv("REDIS_HOST")
		port := os.Getenv("REDIS_PORT")
		if host == "" {
			host = "localhost"
		}
		if port == "" {
			port = "6379"
		}
		addr = host + ":" + port
	}
	return &Sweeper{
		coord:    coord,
		locker:   locker,
		maxAge:   maxAge,
		cronSpec: cronSpec,
		redisOpt: asynq.RedisClientOpt{
			Addr:     addr,
			Password: os.Getenv("REDIS_PASSWORD"),
		},
	}
}

// Run starts the scheduler and the worker and blocks until either
// fails.  Callers run it in a goroutine next to the HTTP server.
func (s *Sweeper) Run() error {
	scheduler := asynq.NewScheduler(s.redisOpt, nil)
	payload, err := json.Marshal(sweepPayload{MaxAgeMinutes: int(s.maxAge / time.Minute)})
	if err != nil {
		return err
	}
	if _, err := scheduler.Register(s.cronSpec, asynq.NewTask(TypeSweepPending, payload)); err != nil {
		return err
	}
	go func() {
		if err := scheduler.Run(); err != nil {
			log.Printf("sweeper: scheduler stopped: %v", err)
		}
	}()

	srv := asynq.NewServer(s.redisOpt, asynq.Config{
		Concurrency: 1, // the sweep must not race itself
		Queues:      map[string]int{"default": 1},
	})
	mux := asynq.NewServeMux()
	mux.HandleFunc(TypeSweepPending, s.handleSweep)
	return srv.Run(mux)
}

// handleSweep is the task handler: cancel every PENDING booking older
// than the cutoff.  Individual cancellation failures are logged and
// skipped inside SweepPending, so one bad row never blocks the rest.
func (s *Sweeper) handleSweep(ctx context.Context, t *asynq.Task) error {
	var p sweepPayload
	if err := json.Unmarshal(t.Payload(), &p); err != nil {
		return err
	}
	maxAge := s.maxAge
	if p.MaxAgeMinutes > 0 {
		maxAge = time.Duration(p.MaxAgeMinutes) * time.Minute
	}

	// Every instance runs a scheduler, so the same tick can fire more
	// than once; the lock makes overlapping sweeps skip instead of race.
	if s.locker != nil {
		token, ok, err := s.locker.AcquireLock(ctx, sweepLockName, time.Minute)
		if err != nil || !ok {
			return nil
		}
		defer func() {
			if err := s.locker.ReleaseLock(ctx, sweepLockName, token); err != nil {
				log.Printf("sweeper: release sweep lock failed: %v", err)
			}
		}()
	}

	swept, err := s.coord.SweepPending(ctx, maxAge)
	if err != nil {
		return err
	}
	if swept > 0 {
		log.Printf("sweeper: cancelled %d stale pending booking(s)", swept)
	}
	return nil
}
