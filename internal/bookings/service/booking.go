package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"flightbook/internal/audit"
	bookingserrors "flightbook/internal/bookings/errors"
	"flightbook/internal/bookings/repository"
	"flightbook/internal/bookings/validator"
	"flightbook/pkg/config"
	mongotx "flightbook/pkg/db/mongo"
	apperrors "flightbook/pkg/errors"
	"flightbook/pkg/model"
	"flightbook/pkg/retry"
	"flightbook/pkg/sanitizer"
	"flightbook/pkg/validation"
)

const (
	CancelReasonHoldExpired = "hold_expired"

	maxCancelReason = 200
)

type BookingService interface {
	// Prepare normalises and validates a booking attempt. It never mutates state.
	Prepare(req *model.CreateBookingRequest) error
	Create(ctx context.Context, req *model.CreateBookingRequest, hold *model.Hold) (*model.Booking, error)
	GetByID(ctx context.Context, id string) (*model.Booking, error)
	GetByReference(ctx context.Context, reference string) (*model.Booking, error)
	ListByUser(ctx context.Context, userID string, limit int, offset int64) ([]*model.Booking, int64, error)
	FindExpiredPending(ctx context.Context, now time.Time, limit int) ([]*model.Booking, error)
	Confirm(ctx context.Context, id string) (*model.Booking, error)
	Cancel(ctx context.Context, id, reason string) (*model.Booking, error)
	Complete(ctx context.Context, id string) (*model.Booking, error)
	// Expire cancels a pending booking whose hold lapsed at or before now.
	Expire(ctx context.Context, id string, now time.Time) (*model.Booking, error)
}

type bookingService struct {
	repo      repository.BookingRepository
	validator *validator.BookingValidator
	audit     audit.Sink
	cfg       *config.Config
}

func NewBookingService(
	repo repository.BookingRepository,
	validator *validator.BookingValidator,
	sink audit.Sink,
	cfg *config.Config,
) BookingService {
	return &bookingService{
		repo:      repo,
		validator: validator,
		audit:     sink,
		cfg:       cfg,
	}
}

func (s *bookingService) Prepare(req *model.CreateBookingRequest) error {
	s.sanitizeRequest(req)
	if err := s.validator.ValidateRequest(req); err != nil {
		return s.validationError("Invalid booking request", err)
	}
	return nil
}

func (s *bookingService) sanitizeRequest(req *model.CreateBookingRequest) {
	req.FlightID = sanitizer.SanitizeFlightID(req.FlightID)
	req.ContactEmail = sanitizer.SanitizeEmail(req.ContactEmail)
	req.ContactPhone = sanitizer.SanitizePhone(req.ContactPhone)
	for i := range req.SeatNumbers {
		req.SeatNumbers[i] = sanitizer.SanitizeSeatNumber(req.SeatNumbers[i])
	}
	for i := range req.Passengers {
		req.Passengers[i].FirstName = sanitizer.SanitizeName(req.Passengers[i].FirstName)
		req.Passengers[i].LastName = sanitizer.SanitizeName(req.Passengers[i].LastName)
	}
}

// Create records a pending booking for the seats in hold. Passenger i sits
// in req.SeatNumbers[i]; its snapshot is taken from the hold.
func (s *bookingService) Create(ctx context.Context, req *model.CreateBookingRequest, hold *model.Hold) (*model.Booking, error) {
	if err := s.Prepare(req); err != nil {
		return nil, err
	}
	if len(hold.Seats) != len(req.Passengers) {
		return nil, validation.ValidationErrors{{
			Field:   "seat_numbers",
			Message: fmt.Sprintf("passenger count (%d) must match held seat count (%d)", len(req.Passengers), len(hold.Seats)),
		}}.ToAppError("Invalid booking request")
	}

	snapshots := make(map[string]model.SeatSnapshot, len(hold.Seats))
	for _, snap := range hold.Seats {
		snapshots[snap.Number] = snap
	}

	passengers := make([]model.Passenger, 0, len(req.Passengers))
	for i, p := range req.Passengers {
		snap, ok := snapshots[req.SeatNumbers[i]]
		if !ok {
			return nil, validation.ValidationErrors{{
				Field:   fmt.Sprintf("seat_numbers[%d]", i),
				Message: "no held seat " + req.SeatNumbers[i],
			}}.ToAppError("Invalid booking request")
		}
		passengers = append(passengers, model.Passenger{
			FirstName:   p.FirstName,
			LastName:    p.LastName,
			DateOfBirth: p.DateOfBirth,
			Gender:      p.Gender,
			Seat:        snap,
		})
	}

	booking := &model.Booking{
		UserID:        req.UserID,
		FlightID:      req.FlightID,
		Passengers:    passengers,
		TotalAmount:   model.SumSeatPrices(passengers),
		Currency:      s.cfg.PaymentCurrency,
		Status:        model.BookingPending,
		ContactEmail:  req.ContactEmail,
		ContactPhone:  req.ContactPhone,
		HoldID:        hold.ID,
		HoldExpiresAt: hold.ExpiresAt,
	}
	if err := s.validator.Validate(booking); err != nil {
		return nil, s.validationError("Invalid booking", err)
	}

	if err := s.repo.Create(ctx, booking); err != nil {
		s.cfg.Log.Error("Failed to create booking", "flight_id", booking.FlightID, "hold_id", hold.ID, "error", err)
		return nil, s.infraError("Failed to create booking", err)
	}

	s.cfg.Log.Info("Booking created",
		"booking_id", booking.ID,
		"reference", booking.Reference,
		"flight_id", booking.FlightID,
		"hold_id", booking.HoldID,
		"total_amount", booking.TotalAmount,
	)
	s.audit.Record(ctx, model.ActionBookingCreated, model.EntityBooking, booking.ID, map[string]any{
		"reference":    booking.Reference,
		"status":       booking.Status,
		"seats":        booking.SeatNumbers(),
		"total_amount": booking.TotalAmount,
	})
	return booking, nil
}

func (s *bookingService) GetByID(ctx context.Context, id string) (*model.Booking, error) {
	if id == "" {
		return nil, apperrors.InvalidInput("Booking ID cannot be empty")
	}
	return s.read(ctx, "id", id, func(ctx context.Context) (*model.Booking, error) {
		return s.repo.FindByID(ctx, id)
	})
}

func (s *bookingService) GetByReference(ctx context.Context, reference string) (*model.Booking, error) {
	reference = sanitizer.SanitizeReference(reference)
	if reference == "" {
		return nil, apperrors.InvalidInput("Booking reference cannot be empty")
	}
	return s.read(ctx, "reference", reference, func(ctx context.Context) (*model.Booking, error) {
		return s.repo.FindByReference(ctx, reference)
	})
}

func (s *bookingService) read(ctx context.Context, key, value string, find func(context.Context) (*model.Booking, error)) (*model.Booking, error) {
	booking, err := retry.Read(ctx, retry.DefaultPolicy(), func(ctx context.Context) (*model.Booking, error) {
		booking, err := find(ctx)
		if err != nil {
			if errors.Is(err, bookingserrors.ErrNotFound) {
				return nil, apperrors.NotFoundWithID("Booking", value).WithCause(err)
			}
			return nil, s.infraError("Failed to retrieve booking", err)
		}
		return booking, nil
	})
	if err != nil && !apperrors.HasCode(err, apperrors.CodeNotFound) {
		s.cfg.Log.Error("Failed to retrieve booking", key, value, "error", err)
	}
	return booking, err
}

func (s *bookingService) ListByUser(ctx context.Context, userID string, limit int, offset int64) ([]*model.Booking, int64, error) {
	if userID == "" {
		return nil, 0, apperrors.InvalidInput("User ID cannot be empty")
	}

	var count int64
	var bookings []*model.Booking
	var errCount, errFind error
	var wg sync.WaitGroup
	wg.Add(2)

	go func() {
		defer wg.Done()
		count, errCount = s.repo.CountByUser(ctx, userID)
		if errCount != nil {
			s.cfg.Log.Error("Failed to count bookings", "user_id", userID, "error", errCount)
			errCount = s.infraError("Failed to count bookings", errCount)
		}
	}()

	go func() {
		defer wg.Done()
		bookings, errFind = s.repo.FindByUser(ctx, userID, limit, offset)
		if errFind != nil {
			s.cfg.Log.Error("Failed to list bookings", "user_id", userID, "error", errFind)
			errFind = s.infraError("Failed to retrieve bookings", errFind)
		}
	}()

	wg.Wait()
	if errCount != nil {
		return nil, 0, errCount
	}
	if errFind != nil {
		return nil, 0, errFind
	}

	return bookings, count, nil
}

func (s *bookingService) FindExpiredPending(ctx context.Context, now time.Time, limit int) ([]*model.Booking, error) {
	bookings, err := s.repo.FindExpiredPending(ctx, now, limit)
	if err != nil {
		s.cfg.Log.Error("Failed to find expired bookings", "error", err)
		return nil, s.infraError("Failed to find expired bookings", err)
	}
	return bookings, nil
}

// Confirm succeeds only while the booking is pending and its hold is live.
// A pending booking whose hold lapsed yields HoldExpired.
func (s *bookingService) Confirm(ctx context.Context, id string) (*model.Booking, error) {
	now := time.Now().UTC()
	return s.transition(ctx, id, repository.Transition{
		To:         model.BookingConfirmed,
		From:       model.BookingSources(model.BookingConfirmed),
		At:         now,
		HoldLiveAt: &now,
	}, model.ActionBookingConfirmed)
}

func (s *bookingService) Cancel(ctx context.Context, id, reason string) (*model.Booking, error) {
	req := &model.CancelBookingRequest{Reason: sanitizer.SanitizeFreeText(reason, maxCancelReason)}
	if err := s.validator.ValidateCancel(req); err != nil {
		return nil, s.validationError("Invalid cancellation", err)
	}
	return s.transition(ctx, id, repository.Transition{
		To:     model.BookingCancelled,
		From:   model.BookingSources(model.BookingCancelled),
		At:     time.Now().UTC(),
		Reason: req.Reason,
	}, model.ActionBookingCancelled)
}

func (s *bookingService) Complete(ctx context.Context, id string) (*model.Booking, error) {
	return s.transition(ctx, id, repository.Transition{
		To:   model.BookingCompleted,
		From: model.BookingSources(model.BookingCompleted),
		At:   time.Now().UTC(),
	}, model.ActionBookingCompleted)
}

func (s *bookingService) Expire(ctx context.Context, id string, now time.Time) (*model.Booking, error) {
	return s.transition(ctx, id, repository.Transition{
		To:           model.BookingCancelled,
		From:         []string{model.BookingPending},
		At:           now,
		Reason:       CancelReasonHoldExpired,
		HoldLapsedAt: &now,
	}, model.ActionBookingCancelled)
}

func (s *bookingService) transition(ctx context.Context, id string, t repository.Transition, action string) (*model.Booking, error) {
	if id == "" {
		return nil, apperrors.InvalidInput("Booking ID cannot be empty")
	}

	booking, err := s.repo.Apply(ctx, id, t)
	if err != nil {
		switch {
		case errors.Is(err, bookingserrors.ErrNotFound):
			return nil, apperrors.NotFoundWithID("Booking", id).WithCause(err)
		case errors.Is(err, bookingserrors.ErrTransitionRejected):
			return booking, s.rejected(booking, t, err)
		}
		s.cfg.Log.Error("Failed to update booking status", "booking_id", id, "to", t.To, "error", err)
		return nil, s.infraError("Failed to update booking", err)
	}

	s.cfg.Log.Info("Booking status changed",
		"booking_id", booking.ID,
		"reference", booking.Reference,
		"status", booking.Status,
	)
	changes := map[string]any{"status": booking.Status}
	if booking.CancelReason != "" && booking.Status == model.BookingCancelled {
		changes["reason"] = booking.CancelReason
	}
	s.audit.Record(ctx, action, model.EntityBooking, booking.ID, changes)
	return booking, nil
}

func (s *bookingService) rejected(current *model.Booking, t repository.Transition, cause error) error {
	if t.HoldLiveAt != nil && current.Status == model.BookingPending {
		s.cfg.Log.Warn("Booking hold lapsed before confirmation", "booking_id", current.ID, "hold_expires_at", current.HoldExpiresAt)
		return apperrors.HoldExpired("The seat hold for this booking has expired").WithCause(cause)
	}
	if t.HoldLapsedAt != nil && current.Status == model.BookingPending {
		return apperrors.Conflict("Booking hold has not expired yet").WithCause(cause)
	}
	s.cfg.Log.Warn("Booking transition rejected", "booking_id", current.ID, "from", current.Status, "to", t.To)
	return apperrors.InvalidTransition("Booking", current.Status, t.To).WithCause(cause)
}

func (s *bookingService) validationError(message string, err error) error {
	var verrs validation.ValidationErrors
	if errors.As(err, &verrs) {
		s.cfg.Log.Warn(message, "error", err)
		return verrs.ToAppError(message)
	}
	return apperrors.Internal("Failed to validate input", err)
}

func (s *bookingService) infraError(message string, err error) error {
	if apperrors.IsAppError(err) {
		return err
	}
	if mongotx.IsTransient(err) {
		return apperrors.Unavailable("booking store", err)
	}
	return apperrors.Internal(message, err)
}
