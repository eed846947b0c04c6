package service

import (
	"context"
	"errors"
	"time"

	"flightbook/internal/audit"
	seatserrors "flightbook/internal/seats/errors"
	"flightbook/internal/seats/repository"
	"flightbook/internal/seats/validator"
	"flightbook/pkg/config"
	mongotx "flightbook/pkg/db/mongo"
	apperrors "flightbook/pkg/errors"
	"flightbook/pkg/model"
	"flightbook/pkg/retry"
	"flightbook/pkg/sanitizer"
	"flightbook/pkg/validation"

	"github.com/google/uuid"
)

const maxSeatsPerFlight = 853

type SeatService interface {
	AddSeats(ctx context.Context, flightID string, seats []*model.Seat) ([]*model.Seat, error)
	List(ctx context.Context, flightID string, onlyAvailable bool) ([]*model.Seat, error)
	Reserve(ctx context.Context, flightID string, numbers []string, holdDuration time.Duration) (*model.Hold, error)
	Commit(ctx context.Context, hold *model.Hold) error
	Release(ctx context.Context, flightID string, numbers []string, holdID string) error
	ExpireHolds(ctx context.Context, cutoff time.Time) (int64, error)
	MarkBlocked(ctx context.Context, flightID, number, reason string) (*model.Seat, error)
	Unblock(ctx context.Context, flightID, number string) (*model.Seat, error)
}

type seatService struct {
	repo      repository.SeatRepository
	validator *validator.SeatValidator
	audit     audit.Sink
	cfg       *config.Config
}

func NewSeatService(
	repo repository.SeatRepository,
	validator *validator.SeatValidator,
	sink audit.Sink,
	cfg *config.Config,
) SeatService {
	return &seatService{
		repo:      repo,
		validator: validator,
		audit:     sink,
		cfg:       cfg,
	}
}

func (s *seatService) AddSeats(ctx context.Context, flightID string, seats []*model.Seat) ([]*model.Seat, error) {
	flightID = sanitizer.SanitizeFlightID(flightID)
	if len(seats) == 0 || len(seats) > maxSeatsPerFlight {
		return nil, apperrors.InvalidInput("A seat map must contain between 1 and 853 seats")
	}

	seen := make(map[string]struct{}, len(seats))
	for _, seat := range seats {
		seat.FlightID = flightID
		seat.Number = sanitizer.SanitizeSeatNumber(seat.Number)
		seat.Available = true
		seat.Blocked = seat.BlockReason != ""
		seat.HoldID = ""
		seat.HoldExpiresAt = nil

		if err := s.validator.Validate(seat); err != nil {
			var verrs validation.ValidationErrors
			if errors.As(err, &verrs) {
				s.cfg.Log.Warn("Seat validation failed", "flight_id", flightID, "number", seat.Number, "error", err)
				return nil, verrs.ToAppError("Invalid seat")
			}
			return nil, apperrors.Internal("Failed to validate seat", err)
		}
		if _, dup := seen[seat.Number]; dup {
			return nil, apperrors.Conflict("Seat " + seat.Number + " appears more than once")
		}
		seen[seat.Number] = struct{}{}
	}

	if err := s.repo.InsertMany(ctx, seats); err != nil {
		if errors.Is(err, seatserrors.ErrDuplicateSeat) {
			return nil, apperrors.Conflict("One or more seats already exist on this flight").WithCause(err)
		}
		s.cfg.Log.Error("Failed to add seats", "flight_id", flightID, "error", err)
		return nil, s.infraError("Failed to add seats", err)
	}

	s.cfg.Log.Info("Seats added", "flight_id", flightID, "count", len(seats))
	return seats, nil
}

func (s *seatService) List(ctx context.Context, flightID string, onlyAvailable bool) ([]*model.Seat, error) {
	flightID = sanitizer.SanitizeFlightID(flightID)
	if flightID == "" {
		return nil, apperrors.InvalidInput("Flight ID cannot be empty")
	}

	seats, err := retry.Read(ctx, retry.DefaultPolicy(), func(ctx context.Context) ([]*model.Seat, error) {
		seats, err := s.repo.FindByFlight(ctx, flightID, onlyAvailable)
		if err != nil {
			return nil, s.infraError("Failed to list seats", err)
		}
		return seats, nil
	})
	if err != nil {
		s.cfg.Log.Error("Failed to list seats", "flight_id", flightID, "error", err)
		return nil, err
	}
	return seats, nil
}

// Reserve holds every requested seat for holdDuration or fails without
// holding any. Duplicate numbers are collapsed.
func (s *seatService) Reserve(ctx context.Context, flightID string, numbers []string, holdDuration time.Duration) (*model.Hold, error) {
	flightID = sanitizer.SanitizeFlightID(flightID)
	numbers = sanitizer.SanitizeSeatNumbers(numbers)

	if err := s.validator.ValidateNumbers(numbers); err != nil {
		return nil, s.validationError("Invalid seat selection", err)
	}
	if holdDuration <= 0 {
		return nil, apperrors.InvalidInput("Hold duration must be positive")
	}

	hold := &model.Hold{
		ID:        uuid.NewString(),
		FlightID:  flightID,
		ExpiresAt: time.Now().UTC().Add(holdDuration).Truncate(time.Millisecond),
	}

	seats, err := s.repo.Hold(ctx, flightID, numbers, hold.ID, hold.ExpiresAt)
	if err != nil {
		var unavailable *seatserrors.UnavailableError
		if errors.As(err, &unavailable) {
			s.cfg.Log.Info("Seats unavailable", "flight_id", flightID, "seats", unavailable.Seats)
			return nil, apperrors.SeatUnavailable("One or more seats are not available", unavailable.Seats).WithCause(err)
		}
		s.cfg.Log.Error("Failed to hold seats", "flight_id", flightID, "seats", numbers, "error", err)
		return nil, s.infraError("Failed to hold seats", err)
	}

	for _, seat := range seats {
		hold.Seats = append(hold.Seats, seat.Snapshot())
	}

	s.cfg.Log.Info("Seats held",
		"flight_id", flightID,
		"hold_id", hold.ID,
		"seats", numbers,
		"expires_at", hold.ExpiresAt,
	)
	s.audit.Record(ctx, model.ActionSeatsHeld, model.EntitySeat, flightID, map[string]any{
		"hold_id":    hold.ID,
		"seats":      numbers,
		"expires_at": hold.ExpiresAt,
	})
	return hold, nil
}

// Commit makes a hold permanent. It fails with HoldExpired when any seat no
// longer carries the hold.
func (s *seatService) Commit(ctx context.Context, hold *model.Hold) error {
	numbers := snapshotNumbers(hold.Seats)
	if err := s.repo.Commit(ctx, hold.FlightID, numbers, hold.ID); err != nil {
		if errors.Is(err, seatserrors.ErrHoldExpired) {
			s.cfg.Log.Warn("Seat hold lapsed before commit", "flight_id", hold.FlightID, "hold_id", hold.ID)
			return apperrors.HoldExpired("The seat hold has expired").WithCause(err)
		}
		s.cfg.Log.Error("Failed to commit seats", "flight_id", hold.FlightID, "hold_id", hold.ID, "error", err)
		return s.infraError("Failed to commit seats", err)
	}

	s.cfg.Log.Info("Seats committed", "flight_id", hold.FlightID, "hold_id", hold.ID, "seats", numbers)
	s.audit.Record(ctx, model.ActionSeatsCommitted, model.EntitySeat, hold.FlightID, map[string]any{
		"hold_id": hold.ID,
		"seats":   numbers,
	})
	return nil
}

// Release frees the given seats. Releasing seats that are already free is a
// no-op. A non-empty holdID restricts the release to seats it still owns.
func (s *seatService) Release(ctx context.Context, flightID string, numbers []string, holdID string) error {
	numbers = sanitizer.SanitizeSeatNumbers(numbers)
	if len(numbers) == 0 {
		return nil
	}

	released, err := s.repo.Release(ctx, flightID, numbers, holdID)
	if err != nil {
		s.cfg.Log.Error("Failed to release seats", "flight_id", flightID, "hold_id", holdID, "error", err)
		return s.infraError("Failed to release seats", err)
	}

	if released > 0 {
		s.cfg.Log.Info("Seats released", "flight_id", flightID, "hold_id", holdID, "seats", numbers, "released", released)
		s.audit.Record(ctx, model.ActionSeatsReleased, model.EntitySeat, flightID, map[string]any{
			"hold_id":  holdID,
			"seats":    numbers,
			"released": released,
		})
	}
	return nil
}

func (s *seatService) ExpireHolds(ctx context.Context, cutoff time.Time) (int64, error) {
	released, err := s.repo.ReleaseExpired(ctx, cutoff)
	if err != nil {
		s.cfg.Log.Error("Failed to expire seat holds", "cutoff", cutoff, "error", err)
		return 0, s.infraError("Failed to expire seat holds", err)
	}
	if released > 0 {
		s.cfg.Log.Info("Expired seat holds released", "released", released, "cutoff", cutoff)
		s.audit.Record(ctx, model.ActionSeatsReleased, model.EntitySeat, "*", map[string]any{
			"reason":   "hold_expired",
			"cutoff":   cutoff,
			"released": released,
		})
	}
	return released, nil
}

func (s *seatService) MarkBlocked(ctx context.Context, flightID, number, reason string) (*model.Seat, error) {
	req := &model.SeatBlockRequest{Reason: reason}
	if err := s.validator.ValidateBlock(req); err != nil {
		return nil, s.validationError("Invalid block request", err)
	}
	return s.setBlocked(ctx, flightID, number, true, reason)
}

func (s *seatService) Unblock(ctx context.Context, flightID, number string) (*model.Seat, error) {
	return s.setBlocked(ctx, flightID, number, false, "")
}

func (s *seatService) setBlocked(ctx context.Context, flightID, number string, blocked bool, reason string) (*model.Seat, error) {
	flightID = sanitizer.SanitizeFlightID(flightID)
	number = sanitizer.SanitizeSeatNumber(number)

	seat, err := s.repo.SetBlocked(ctx, flightID, number, blocked, reason)
	if err != nil {
		if errors.Is(err, seatserrors.ErrSeatNotFound) {
			return nil, apperrors.SeatNotFound(flightID, number).WithCause(err)
		}
		s.cfg.Log.Error("Failed to update seat block", "flight_id", flightID, "number", number, "error", err)
		return nil, s.infraError("Failed to update seat", err)
	}

	action := model.ActionSeatBlocked
	if !blocked {
		action = model.ActionSeatUnblocked
	}
	s.cfg.Log.Info("Seat block updated", "flight_id", flightID, "number", number, "blocked", blocked, "reason", reason)
	s.audit.Record(ctx, action, model.EntitySeat, flightID, map[string]any{
		"number": number,
		"reason": reason,
	})
	return seat, nil
}

func (s *seatService) validationError(message string, err error) error {
	var verrs validation.ValidationErrors
	if errors.As(err, &verrs) {
		s.cfg.Log.Warn(message, "error", err)
		return verrs.ToAppError(message)
	}
	return apperrors.Internal("Failed to validate input", err)
}

func (s *seatService) infraError(message string, err error) error {
	if apperrors.IsAppError(err) {
		return err
	}
	if mongotx.IsTransient(err) {
		return apperrors.Unavailable("seat inventory", err)
	}
	return apperrors.Internal(message, err)
}

func snapshotNumbers(snapshots []model.SeatSnapshot) []string {
	numbers := make([]string, 0, len(snapshots))
	for _, s := range snapshots {
		numbers = append(numbers, s.Number)
	}
	return numbers
}
