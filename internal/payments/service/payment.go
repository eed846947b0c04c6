package service

import (
	"context"
	"errors"
	"slices"
	"time"

	"flightbook/internal/audit"
	paymentserrors "flightbook/internal/payments/errors"
	"flightbook/internal/payments/repository"
	"flightbook/internal/payments/validator"
	"flightbook/pkg/config"
	mongotx "flightbook/pkg/db/mongo"
	apperrors "flightbook/pkg/errors"
	"flightbook/pkg/model"
	"flightbook/pkg/retry"
	"flightbook/pkg/validation"
)

// BookingReader is the part of the booking aggregate the ledger reads.
type BookingReader interface {
	GetByID(ctx context.Context, id string) (*model.Booking, error)
}

// OutcomeResult is the payment after an outcome was recorded. Replayed is
// set when the same outcome had already been recorded. Reversal is set when
// a failure arrived for a payment that had already succeeded; the payment is
// returned unchanged and the caller owns the refund.
type OutcomeResult struct {
	Payment  *model.Payment
	Replayed bool
	Reversal bool
}

type PaymentService interface {
	Initiate(ctx context.Context, bookingID string, amount int64, method string) (*model.Payment, error)
	RecordOutcome(ctx context.Context, paymentID string, req *model.PaymentOutcomeRequest) (*OutcomeResult, error)
	Refund(ctx context.Context, paymentID string) (*model.Payment, error)
	GetByID(ctx context.Context, id string) (*model.Payment, error)
	FindByBooking(ctx context.Context, bookingID string) ([]*model.Payment, error)
}

type paymentService struct {
	repo      repository.PaymentRepository
	bookings  BookingReader
	validator *validator.PaymentValidator
	audit     audit.Sink
	cfg       *config.Config
}

func NewPaymentService(
	repo repository.PaymentRepository,
	bookings BookingReader,
	validator *validator.PaymentValidator,
	sink audit.Sink,
	cfg *config.Config,
) PaymentService {
	return &paymentService{
		repo:      repo,
		bookings:  bookings,
		validator: validator,
		audit:     sink,
		cfg:       cfg,
	}
}

// Initiate opens a pending payment for a pending booking. The amount must
// equal the booking total exactly.
func (s *paymentService) Initiate(ctx context.Context, bookingID string, amount int64, method string) (*model.Payment, error) {
	if err := s.validator.ValidateMethod(method); err != nil {
		return nil, s.validationError("Invalid payment", err)
	}

	booking, err := s.bookings.GetByID(ctx, bookingID)
	if err != nil {
		return nil, err
	}
	if booking.Status != model.BookingPending {
		return nil, apperrors.InvalidTransition("Booking", booking.Status, "payment")
	}
	if amount != booking.TotalAmount {
		s.cfg.Log.Warn("Payment amount mismatch",
			"booking_id", bookingID,
			"expected", booking.TotalAmount,
			"got", amount,
		)
		return nil, apperrors.AmountMismatch(booking.TotalAmount, amount)
	}

	existing, err := s.repo.FindByBooking(ctx, bookingID)
	if err != nil {
		return nil, s.infraError("Failed to check existing payments", err)
	}
	if slices.ContainsFunc(existing, func(p *model.Payment) bool { return p.Status == model.PaymentPaid }) {
		return nil, apperrors.Conflict("Booking is already paid").WithCause(paymentserrors.ErrAlreadyPaid)
	}

	payment := &model.Payment{
		BookingID: bookingID,
		Amount:    amount,
		Currency:  booking.Currency,
		Method:    method,
		Status:    model.PaymentPending,
	}
	if err := s.repo.Create(ctx, payment); err != nil {
		s.cfg.Log.Error("Failed to create payment", "booking_id", bookingID, "error", err)
		return nil, s.infraError("Failed to create payment", err)
	}

	s.cfg.Log.Info("Payment initiated",
		"payment_id", payment.ID,
		"booking_id", bookingID,
		"amount", amount,
		"currency", payment.Currency,
	)
	s.audit.Record(ctx, model.ActionPaymentInitiated, model.EntityPayment, payment.ID, map[string]any{
		"booking_id": bookingID,
		"amount":     amount,
		"method":     method,
	})
	return payment, nil
}

// RecordOutcome moves a pending payment to paid or failed. Repeating an
// outcome that was already recorded is a replay and changes nothing. A
// failure for a paid payment is reported as a reversal; once refunded, later
// failures are replays. A success that contradicts a recorded failure is an
// invalid transition.
func (s *paymentService) RecordOutcome(ctx context.Context, paymentID string, req *model.PaymentOutcomeRequest) (*OutcomeResult, error) {
	if err := s.validator.ValidateOutcome(req); err != nil {
		return nil, s.validationError("Invalid payment outcome", err)
	}

	to := model.PaymentFailed
	action := model.ActionPaymentFailed
	if req.Outcome == model.OutcomeSuccess {
		to = model.PaymentPaid
		action = model.ActionPaymentPaid
	}

	payment, err := s.repo.Apply(ctx, paymentID, repository.Transition{
		To:            to,
		From:          model.PaymentPending,
		At:            time.Now().UTC(),
		TransactionID: req.TransactionID,
		FailureReason: req.Reason,
	})
	if err != nil {
		switch {
		case errors.Is(err, paymentserrors.ErrNotFound):
			return nil, apperrors.NotFoundWithID("Payment", paymentID).WithCause(err)
		case errors.Is(err, paymentserrors.ErrAlreadyPaid):
			s.cfg.Log.Warn("Second successful payment rejected", "payment_id", paymentID)
			return nil, apperrors.Conflict("Booking is already paid").WithCause(err)
		case errors.Is(err, paymentserrors.ErrTransitionRejected):
			if isReplay(payment, req) {
				s.cfg.Log.Info("Payment outcome replayed", "payment_id", paymentID, "outcome", req.Outcome)
				return &OutcomeResult{Payment: payment, Replayed: true}, nil
			}
			if req.Outcome == model.OutcomeFailure && payment != nil {
				switch payment.Status {
				case model.PaymentPaid:
					s.cfg.Log.Warn("Payment reversed after success",
						"payment_id", paymentID,
						"booking_id", payment.BookingID,
						"transaction_id", req.TransactionID,
						"reason", req.Reason,
					)
					s.audit.Record(ctx, model.ActionPaymentFailed, model.EntityPayment, payment.ID, map[string]any{
						"booking_id":     payment.BookingID,
						"status":         payment.Status,
						"transaction_id": req.TransactionID,
						"reversal":       true,
					})
					return &OutcomeResult{Payment: payment, Reversal: true}, nil
				case model.PaymentRefunded:
					s.cfg.Log.Info("Reversal for refunded payment replayed", "payment_id", paymentID)
					return &OutcomeResult{Payment: payment, Replayed: true, Reversal: true}, nil
				}
			}
			s.cfg.Log.Warn("Payment outcome rejected", "payment_id", paymentID, "status", payment.Status, "outcome", req.Outcome)
			return nil, apperrors.InvalidTransition("Payment", payment.Status, to).WithCause(err)
		}
		s.cfg.Log.Error("Failed to record payment outcome", "payment_id", paymentID, "error", err)
		return nil, s.infraError("Failed to record payment outcome", err)
	}

	s.cfg.Log.Info("Payment outcome recorded",
		"payment_id", payment.ID,
		"booking_id", payment.BookingID,
		"status", payment.Status,
		"transaction_id", payment.TransactionID,
	)
	s.audit.Record(ctx, action, model.EntityPayment, payment.ID, map[string]any{
		"booking_id":     payment.BookingID,
		"status":         payment.Status,
		"transaction_id": payment.TransactionID,
	})
	return &OutcomeResult{Payment: payment}, nil
}

func isReplay(current *model.Payment, req *model.PaymentOutcomeRequest) bool {
	if current == nil || current.TransactionID != req.TransactionID {
		return false
	}
	if req.Outcome == model.OutcomeSuccess {
		return current.Status == model.PaymentPaid || current.Status == model.PaymentRefunded
	}
	return current.Status == model.PaymentFailed
}

// Refund moves a paid payment to refunded. It never touches the booking.
func (s *paymentService) Refund(ctx context.Context, paymentID string) (*model.Payment, error) {
	payment, err := s.repo.Apply(ctx, paymentID, repository.Transition{
		To:   model.PaymentRefunded,
		From: model.PaymentPaid,
		At:   time.Now().UTC(),
	})
	if err != nil {
		switch {
		case errors.Is(err, paymentserrors.ErrNotFound):
			return nil, apperrors.NotFoundWithID("Payment", paymentID).WithCause(err)
		case errors.Is(err, paymentserrors.ErrTransitionRejected):
			return nil, apperrors.InvalidTransition("Payment", payment.Status, model.PaymentRefunded).WithCause(err)
		}
		s.cfg.Log.Error("Failed to refund payment", "payment_id", paymentID, "error", err)
		return nil, s.infraError("Failed to refund payment", err)
	}

	s.cfg.Log.Info("Payment refunded", "payment_id", payment.ID, "booking_id", payment.BookingID, "amount", payment.Amount)
	s.audit.Record(ctx, model.ActionPaymentRefunded, model.EntityPayment, payment.ID, map[string]any{
		"booking_id": payment.BookingID,
		"amount":     payment.Amount,
	})
	return payment, nil
}

func (s *paymentService) GetByID(ctx context.Context, id string) (*model.Payment, error) {
	if id == "" {
		return nil, apperrors.InvalidInput("Payment ID cannot be empty")
	}
	return retry.Read(ctx, retry.DefaultPolicy(), func(ctx context.Context) (*model.Payment, error) {
		payment, err := s.repo.FindByID(ctx, id)
		if err != nil {
			if errors.Is(err, paymentserrors.ErrNotFound) {
				return nil, apperrors.NotFoundWithID("Payment", id).WithCause(err)
			}
			return nil, s.infraError("Failed to retrieve payment", err)
		}
		return payment, nil
	})
}

func (s *paymentService) FindByBooking(ctx context.Context, bookingID string) ([]*model.Payment, error) {
	return retry.Read(ctx, retry.DefaultPolicy(), func(ctx context.Context) ([]*model.Payment, error) {
		payments, err := s.repo.FindByBooking(ctx, bookingID)
		if err != nil {
			return nil, s.infraError("Failed to retrieve payments", err)
		}
		return payments, nil
	})
}

func (s *paymentService) validationError(message string, err error) error {
	var verrs validation.ValidationErrors
	if errors.As(err, &verrs) {
		s.cfg.Log.Warn(message, "error", err)
		return verrs.ToAppError(message)
	}
	return apperrors.Internal("Failed to validate input", err)
}

func (s *paymentService) infraError(message string, err error) error {
	if apperrors.IsAppError(err) {
		return err
	}
	if mongotx.IsTransient(err) {
		return apperrors.Unavailable("payment ledger", err)
	}
	return apperrors.Internal(message, err)
}
