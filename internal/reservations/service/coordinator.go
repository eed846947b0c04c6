package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"flightbook/internal/audit"
	bookingsservice "flightbook/internal/bookings/service"
	"flightbook/internal/documents"
	"flightbook/internal/notifications"
	paymentsservice "flightbook/internal/payments/service"
	seatsservice "flightbook/internal/seats/service"
	"flightbook/pkg/config"
	apperrors "flightbook/pkg/errors"
	"flightbook/pkg/model"
	"flightbook/pkg/retry"
)

const (
	compensationTimeout = 10 * time.Second

	CancelReasonPaymentFailed     = "payment_failed"
	CancelReasonReservationFailed = "reservation_failed"
	CancelReasonCustomer          = "customer_request"
)

type BookingStatus struct {
	Booking  *model.Booking   `json:"booking"`
	Payments []*model.Payment `json:"payments"`
}

type PaymentResult struct {
	Booking  *model.Booking `json:"booking"`
	Payment  *model.Payment `json:"payment"`
	Replayed bool           `json:"replayed,omitempty"`
}

// Coordinator drives a booking across seats, bookings and payments. Every
// step that fails after seats were held is undone before the error returns.
type Coordinator interface {
	CreateBooking(ctx context.Context, req *model.CreateBookingRequest) (*model.Reservation, error)
	RecordPaymentOutcome(ctx context.Context, paymentID string, req *model.PaymentOutcomeRequest) (*PaymentResult, error)
	Cancel(ctx context.Context, reference, reason string) (*model.Booking, error)
	Complete(ctx context.Context, reference string) (*model.Booking, error)
	GetStatus(ctx context.Context, reference string) (*BookingStatus, error)
	// ExpireBooking cancels a pending booking whose hold lapsed at now and
	// frees its seats. A paid payment is refunded first.
	ExpireBooking(ctx context.Context, booking *model.Booking, now time.Time) error
	RenderTicket(ctx context.Context, reference string) ([]byte, error)
	RenderInvoice(ctx context.Context, reference string) ([]byte, error)
}

type coordinator struct {
	seats    seatsservice.SeatService
	bookings bookingsservice.BookingService
	payments paymentsservice.PaymentService
	mailer   notifications.Dispatcher
	docs     documents.Renderer
	audit    audit.Sink
	cfg      *config.Config
}

func NewCoordinator(
	seats seatsservice.SeatService,
	bookings bookingsservice.BookingService,
	payments paymentsservice.PaymentService,
	mailer notifications.Dispatcher,
	docs documents.Renderer,
	sink audit.Sink,
	cfg *config.Config,
) Coordinator {
	return &coordinator{
		seats:    seats,
		bookings: bookings,
		payments: payments,
		mailer:   mailer,
		docs:     docs,
		audit:    sink,
		cfg:      cfg,
	}
}

// CreateBooking holds the seats, records a pending booking and opens its
// payment. The booking stays pending until a payment outcome arrives.
func (c *coordinator) CreateBooking(ctx context.Context, req *model.CreateBookingRequest) (*model.Reservation, error) {
	if err := c.bookings.Prepare(req); err != nil {
		return nil, err
	}

	hold, err := c.seats.Reserve(ctx, req.FlightID, req.SeatNumbers, c.cfg.SeatHoldDuration)
	if err != nil {
		return nil, err
	}

	booking, err := c.bookings.Create(ctx, req, hold)
	if err != nil {
		c.cfg.Log.Warn("Booking creation failed, releasing hold", "hold_id", hold.ID, "error", err)
		cctx, cancel := compensationContext(ctx)
		defer cancel()
		c.releaseSeats(cctx, hold.FlightID, holdNumbers(hold), hold.ID, "", err)
		return nil, err
	}

	payment, err := c.payments.Initiate(ctx, booking.ID, booking.TotalAmount, req.PaymentMethod)
	if err != nil {
		c.cfg.Log.Warn("Payment initiation failed, abandoning booking", "booking_id", booking.ID, "error", err)
		c.abandon(ctx, booking, err)
		return nil, err
	}

	c.cfg.Log.Info("Reservation created",
		"booking_id", booking.ID,
		"reference", booking.Reference,
		"payment_id", payment.ID,
		"amount", payment.Amount,
	)
	return &model.Reservation{
		Booking: booking,
		Payment: model.PaymentInstructions{
			PaymentID: payment.ID,
			Amount:    payment.Amount,
			Currency:  payment.Currency,
			Method:    payment.Method,
			ExpiresAt: booking.HoldExpiresAt,
		},
	}, nil
}

// abandon cancels a booking that never got a payment and frees its seats.
func (c *coordinator) abandon(ctx context.Context, booking *model.Booking, cause error) {
	cctx, cancel := compensationContext(ctx)
	defer cancel()

	if _, err := c.bookings.Cancel(cctx, booking.ID, CancelReasonReservationFailed); err != nil {
		c.reconcile(cctx, model.EntityBooking, booking.ID, "cancel_booking", cause, err)
	}
	c.releaseSeats(cctx, booking.FlightID, booking.SeatNumbers(), booking.HoldID, booking.ID, cause)
}

// RecordPaymentOutcome records the outcome and brings the booking in line
// with it. Replays re-drive the same steps so a partially applied outcome
// converges.
func (c *coordinator) RecordPaymentOutcome(ctx context.Context, paymentID string, req *model.PaymentOutcomeRequest) (*PaymentResult, error) {
	result, err := c.payments.RecordOutcome(ctx, paymentID, req)
	if err != nil {
		return nil, err
	}
	payment := result.Payment

	booking, err := c.bookings.GetByID(ctx, payment.BookingID)
	if err != nil {
		c.cfg.Log.Error("Payment recorded but booking lookup failed",
			"payment_id", payment.ID,
			"booking_id", payment.BookingID,
			"error", err,
		)
		return nil, err
	}

	switch {
	case result.Reversal:
		booking, err = c.reverse(ctx, booking, payment)
	case payment.Status == model.PaymentPaid:
		booking, err = c.settle(ctx, booking, payment)
	case payment.Status == model.PaymentFailed:
		booking, err = c.fail(ctx, booking)
	case payment.Status == model.PaymentRefunded:
		if !booking.IsActive() {
			err = apperrors.HoldExpired("The seat hold expired before payment; the payment was refunded")
		}
	}
	if err != nil {
		return nil, err
	}
	if result.Reversal && payment.Status == model.PaymentPaid {
		if refreshed, err := c.payments.GetByID(ctx, payment.ID); err == nil {
			payment = refreshed
		}
	}
	return &PaymentResult{Booking: booking, Payment: payment, Replayed: result.Replayed}, nil
}

// settle confirms the booking for a paid payment and makes its seats
// permanent. A payment that lands after the hold lapsed is refunded.
func (c *coordinator) settle(ctx context.Context, booking *model.Booking, payment *model.Payment) (*model.Booking, error) {
	switch booking.Status {
	case model.BookingCancelled:
		return nil, c.refundLate(ctx, booking, nil)
	case model.BookingCompleted:
		return booking, nil
	}

	confirmedNow := false
	if booking.Status == model.BookingPending {
		confirmed, err := c.bookings.Confirm(ctx, booking.ID)
		switch {
		case err == nil:
			booking, confirmedNow = confirmed, true
		case confirmed != nil && confirmed.Status == model.BookingConfirmed:
			// confirmed by a concurrent replay of the same outcome
			booking = confirmed
		case apperrors.HasCode(err, apperrors.CodeHoldExpired), apperrors.HasCode(err, apperrors.CodeInvalidTransition):
			if confirmed != nil {
				booking = confirmed
			}
			return nil, c.refundLate(ctx, booking, err)
		default:
			c.cfg.Log.Error("Failed to confirm paid booking", "booking_id", booking.ID, "payment_id", payment.ID, "error", err)
			return nil, err
		}
	}

	err := retry.Do(ctx, retry.DefaultPolicy(), func(ctx context.Context) error {
		return c.seats.Commit(ctx, holdOf(booking))
	})
	if err != nil {
		c.cfg.Log.Warn("Seats could not be committed for confirmed booking", "booking_id", booking.ID, "error", err)
		return nil, c.refundLate(ctx, booking, err)
	}
	if confirmedNow {
		c.notify(ctx, booking, notifications.KindBookingConfirmed)
	}
	return booking, nil
}

// refundLate unwinds a paid booking that can no longer keep its seats.
func (c *coordinator) refundLate(ctx context.Context, booking *model.Booking, cause error) error {
	if cause == nil {
		cause = errors.New("payment arrived for a cancelled booking")
	}
	if _, err := c.unwind(ctx, booking, bookingsservice.CancelReasonHoldExpired); err != nil {
		cctx, cancel := compensationContext(ctx)
		defer cancel()
		c.reconcile(cctx, model.EntityBooking, booking.ID, "refund_late_payment", cause, err)
	}
	return apperrors.HoldExpired("The seat hold expired before payment; the payment has been refunded").WithCause(cause)
}

func (c *coordinator) fail(ctx context.Context, booking *model.Booking) (*model.Booking, error) {
	if booking.Status != model.BookingPending {
		return booking, nil
	}
	cancelled, err := c.unwind(ctx, booking, CancelReasonPaymentFailed)
	if err != nil {
		return nil, err
	}
	return cancelled, nil
}

// reverse unwinds a booking whose payment failed after it had succeeded.
// The refund is re-driven until the booking is no longer active so a
// partially applied reversal converges on replay.
func (c *coordinator) reverse(ctx context.Context, booking *model.Booking, payment *model.Payment) (*model.Booking, error) {
	if !booking.IsActive() {
		if payment.Status != model.PaymentPaid {
			return booking, nil
		}
		cctx, cancel := compensationContext(ctx)
		defer cancel()
		if err := c.refundPaid(cctx, booking.ID); err != nil {
			return nil, err
		}
		return booking, nil
	}
	c.cfg.Log.Warn("Unwinding booking after payment reversal",
		"booking_id", booking.ID,
		"payment_id", payment.ID,
		"status", booking.Status,
	)
	return c.unwind(ctx, booking, CancelReasonPaymentFailed)
}

// unwind refunds any paid payment, cancels the booking while it is still
// active and frees its seats. Nothing is cancelled when the refund fails.
func (c *coordinator) unwind(ctx context.Context, booking *model.Booking, reason string) (*model.Booking, error) {
	cctx, cancel := compensationContext(ctx)
	defer cancel()

	if err := c.refundPaid(cctx, booking.ID); err != nil {
		return nil, err
	}

	current := booking
	if booking.IsActive() {
		cancelled, err := c.bookings.Cancel(cctx, booking.ID, reason)
		if err != nil {
			if !apperrors.HasCode(err, apperrors.CodeInvalidTransition) || cancelled == nil {
				return nil, err
			}
			if cancelled.Status != model.BookingCancelled {
				return nil, err
			}
		} else {
			c.notify(cctx, cancelled, notifications.KindBookingCancelled)
		}
		current = cancelled
	}

	if current.Status == model.BookingCancelled {
		c.releaseSeats(cctx, current.FlightID, current.SeatNumbers(), current.HoldID, current.ID, errors.New(reason))
	}
	return current, nil
}

// refundPaid refunds every paid payment of a booking. A payment refunded
// concurrently is not an error.
func (c *coordinator) refundPaid(ctx context.Context, bookingID string) error {
	payments, err := c.payments.FindByBooking(ctx, bookingID)
	if err != nil {
		return err
	}
	for _, p := range payments {
		if p.Status != model.PaymentPaid {
			continue
		}
		if _, err := c.payments.Refund(ctx, p.ID); err != nil {
			if apperrors.HasCode(err, apperrors.CodeInvalidTransition) {
				continue
			}
			c.cfg.Log.Error("Failed to refund payment", "payment_id", p.ID, "booking_id", bookingID, "error", err)
			return err
		}
	}
	return nil
}

func (c *coordinator) releaseSeats(ctx context.Context, flightID string, numbers []string, holdID, bookingID string, cause error) {
	if err := c.seats.Release(ctx, flightID, numbers, holdID); err != nil {
		entity, id := model.EntitySeat, flightID
		if bookingID != "" {
			entity, id = model.EntityBooking, bookingID
		}
		c.reconcile(ctx, entity, id, "release_seats", cause, err)
	}
}

// reconcile records a compensation step that could not be applied.
func (c *coordinator) reconcile(ctx context.Context, entity, entityID, step string, cause, err error) {
	causeText := ""
	if cause != nil {
		causeText = cause.Error()
	}
	c.cfg.Log.Reconciliation("Compensation failed",
		"entity", entity,
		"entity_id", entityID,
		"step", step,
		"cause", causeText,
		"error", err,
	)
	c.audit.Record(ctx, model.ActionReconciliationRequired, entity, entityID, map[string]any{
		"step":  step,
		"cause": causeText,
		"error": err.Error(),
	})
}

// Cancel cancels an active booking on the customer's behalf. A paid booking
// is refunded before its seats are freed.
func (c *coordinator) Cancel(ctx context.Context, reference, reason string) (*model.Booking, error) {
	booking, err := c.bookings.GetByReference(ctx, reference)
	if err != nil {
		return nil, err
	}
	if !booking.IsActive() {
		return nil, apperrors.InvalidTransition("Booking", booking.Status, model.BookingCancelled)
	}
	if reason == "" {
		reason = CancelReasonCustomer
	}

	cancelled, err := c.unwind(ctx, booking, reason)
	if err != nil {
		return nil, err
	}
	if cancelled.Status != model.BookingCancelled {
		return nil, apperrors.InvalidTransition("Booking", cancelled.Status, model.BookingCancelled)
	}
	return cancelled, nil
}

func (c *coordinator) Complete(ctx context.Context, reference string) (*model.Booking, error) {
	booking, err := c.bookings.GetByReference(ctx, reference)
	if err != nil {
		return nil, err
	}
	return c.bookings.Complete(ctx, booking.ID)
}

func (c *coordinator) GetStatus(ctx context.Context, reference string) (*BookingStatus, error) {
	booking, err := c.bookings.GetByReference(ctx, reference)
	if err != nil {
		return nil, err
	}
	payments, err := c.payments.FindByBooking(ctx, booking.ID)
	if err != nil {
		return nil, err
	}
	if payments == nil {
		payments = []*model.Payment{}
	}
	return &BookingStatus{Booking: booking, Payments: payments}, nil
}

func (c *coordinator) ExpireBooking(ctx context.Context, booking *model.Booking, now time.Time) error {
	if err := c.refundPaid(ctx, booking.ID); err != nil {
		return err
	}

	expired, err := c.bookings.Expire(ctx, booking.ID, now)
	if err != nil {
		if apperrors.HasCode(err, apperrors.CodeConflict) || apperrors.HasCode(err, apperrors.CodeInvalidTransition) {
			c.cfg.Log.Info("Booking changed before expiry, skipping", "booking_id", booking.ID, "error", err)
			return nil
		}
		return err
	}

	c.releaseSeats(ctx, expired.FlightID, expired.SeatNumbers(), expired.HoldID, expired.ID, errors.New(bookingsservice.CancelReasonHoldExpired))
	c.notify(ctx, expired, notifications.KindBookingCancelled)
	return nil
}

func (c *coordinator) RenderTicket(ctx context.Context, reference string) ([]byte, error) {
	booking, err := c.bookings.GetByReference(ctx, reference)
	if err != nil {
		return nil, err
	}
	ticket, err := c.docs.Ticket(booking)
	if err != nil {
		if errors.Is(err, documents.ErrNotIssuable) {
			return nil, apperrors.Conflict("Tickets are issued only for confirmed bookings").WithCause(err)
		}
		return nil, apperrors.Internal("Failed to render ticket", err)
	}
	return ticket, nil
}

func (c *coordinator) RenderInvoice(ctx context.Context, reference string) ([]byte, error) {
	booking, err := c.bookings.GetByReference(ctx, reference)
	if err != nil {
		return nil, err
	}
	payments, err := c.payments.FindByBooking(ctx, booking.ID)
	if err != nil {
		return nil, err
	}

	var settled *model.Payment
	for _, p := range payments {
		if p.Status == model.PaymentPaid || p.Status == model.PaymentRefunded {
			settled = p
		}
	}
	if settled == nil {
		return nil, apperrors.NotFound("Invoice")
	}

	invoice, err := c.docs.Invoice(settled, booking)
	if err != nil {
		if errors.Is(err, documents.ErrNotIssuable) || errors.Is(err, documents.ErrNotPaid) {
			return nil, apperrors.Conflict("No invoice can be issued for this booking").WithCause(err)
		}
		return nil, apperrors.Internal("Failed to render invoice", err)
	}
	return invoice, nil
}

func (c *coordinator) notify(ctx context.Context, booking *model.Booking, kind string) {
	subject := fmt.Sprintf("Booking %s confirmed", booking.Reference)
	body := fmt.Sprintf("Your booking %s on flight %s for seats %v is confirmed. Total %s %s.",
		booking.Reference, booking.FlightID, booking.SeatNumbers(),
		documents.FormatMinor(booking.TotalAmount), booking.Currency)
	if kind == notifications.KindBookingCancelled {
		subject = fmt.Sprintf("Booking %s cancelled", booking.Reference)
		body = fmt.Sprintf("Your booking %s on flight %s has been cancelled (%s).",
			booking.Reference, booking.FlightID, booking.CancelReason)
	}

	email := notifications.Email{
		Kind:      kind,
		To:        booking.ContactEmail,
		Subject:   subject,
		Body:      body,
		Reference: booking.Reference,
	}
	if err := c.mailer.Send(ctx, email); err != nil {
		c.cfg.Log.Warn("Failed to send booking email", "reference", booking.Reference, "kind", kind, "error", err)
	}
}

func holdOf(booking *model.Booking) *model.Hold {
	hold := &model.Hold{
		ID:        booking.HoldID,
		FlightID:  booking.FlightID,
		ExpiresAt: booking.HoldExpiresAt,
	}
	for _, p := range booking.Passengers {
		hold.Seats = append(hold.Seats, p.Seat)
	}
	return hold
}

func holdNumbers(hold *model.Hold) []string {
	numbers := make([]string, 0, len(hold.Seats))
	for _, s := range hold.Seats {
		numbers = append(numbers, s.Number)
	}
	return numbers
}

func compensationContext(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.WithoutCancel(ctx), compensationTimeout)
}
