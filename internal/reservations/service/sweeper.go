package service

import (
	"context"
	"fmt"
	"os"
	"time"

	bookingsservice "flightbook/internal/bookings/service"
	"flightbook/internal/reservations/repository"
	seatsservice "flightbook/internal/seats/service"
	"flightbook/pkg/config"

	"github.com/google/uuid"
)

const sweepLockName = "hold-sweeper"

type SweepResult struct {
	Expired  int   `json:"expired"`
	Failed   int   `json:"failed"`
	Released int64 `json:"released"`
	Skipped  bool  `json:"skipped,omitempty"`
}

// Sweeper expires lapsed pending bookings and releases seat holds that no
// booking owns any more. Only the replica holding the sweep lease runs it.
type Sweeper struct {
	coordinator Coordinator
	bookings    bookingsservice.BookingService
	seats       seatsservice.SeatService
	locks       repository.SweepLockRepository
	cfg         *config.Config
	owner       string
}

func NewSweeper(
	coordinator Coordinator,
	bookings bookingsservice.BookingService,
	seats seatsservice.SeatService,
	locks repository.SweepLockRepository,
	cfg *config.Config,
) *Sweeper {
	host, err := os.Hostname()
	if err != nil {
		host = "unknown"
	}
	return &Sweeper{
		coordinator: coordinator,
		bookings:    bookings,
		seats:       seats,
		locks:       locks,
		cfg:         cfg,
		owner:       fmt.Sprintf("%s-%s", host, uuid.NewString()),
	}
}

// Sweep runs one pass as of now.
func (s *Sweeper) Sweep(ctx context.Context, now time.Time) (SweepResult, error) {
	var result SweepResult

	acquired, err := s.locks.Acquire(ctx, sweepLockName, s.owner, s.leaseTTL())
	if err != nil {
		return result, fmt.Errorf("failed to acquire sweep lease: %w", err)
	}
	if !acquired {
		result.Skipped = true
		return result, nil
	}

	expired, err := s.bookings.FindExpiredPending(ctx, now, s.batchSize())
	if err != nil {
		return result, err
	}
	for _, booking := range expired {
		if err := s.coordinator.ExpireBooking(ctx, booking, now); err != nil {
			result.Failed++
			s.cfg.Log.Error("Failed to expire booking", "booking_id", booking.ID, "reference", booking.Reference, "error", err)
			continue
		}
		result.Expired++
	}

	released, err := s.seats.ExpireHolds(ctx, now.Add(-s.cfg.OrphanHoldGrace))
	if err != nil {
		return result, err
	}
	result.Released = released
	return result, nil
}

// Run sweeps every HoldSweepInterval until ctx is cancelled.
func (s *Sweeper) Run(ctx context.Context) error {
	ticker := time.NewTicker(s.cfg.HoldSweepInterval)
	defer ticker.Stop()

	s.cfg.Log.Info("Hold sweeper started", "owner", s.owner, "interval", s.cfg.HoldSweepInterval)
	for {
		select {
		case <-ctx.Done():
			releaseCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
			if err := s.locks.Release(releaseCtx, sweepLockName, s.owner); err != nil {
				s.cfg.Log.Warn("Failed to release sweep lease", "owner", s.owner, "error", err)
			}
			cancel()
			s.cfg.Log.Info("Hold sweeper stopped", "owner", s.owner)
			return nil
		case <-ticker.C:
			result, err := s.Sweep(ctx, time.Now().UTC())
			if err != nil {
				s.cfg.Log.Error("Hold sweep failed", "error", err)
				continue
			}
			if result.Expired > 0 || result.Failed > 0 || result.Released > 0 {
				s.cfg.Log.Info("Hold sweep finished",
					"expired", result.Expired,
					"failed", result.Failed,
					"released", result.Released,
				)
			}
		}
	}
}

func (s *Sweeper) leaseTTL() time.Duration {
	if s.cfg.HoldSweepInterval <= 0 {
		return 2 * config.DefaultHoldSweepInterval
	}
	return 2 * s.cfg.HoldSweepInterval
}

func (s *Sweeper) batchSize() int {
	if s.cfg.SweepBatchSize <= 0 {
		return config.DefaultSweepBatchSize
	}
	return s.cfg.SweepBatchSize
}
