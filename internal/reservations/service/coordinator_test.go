package service

import (
	"bytes"
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"flightbook/internal/audit"
	bookingsrepo "flightbook/internal/bookings/repository"
	bookingsservice "flightbook/internal/bookings/service"
	bookingsvalidator "flightbook/internal/bookings/validator"
	"flightbook/internal/documents"
	"flightbook/internal/notifications"
	paymentsrepo "flightbook/internal/payments/repository"
	paymentsservice "flightbook/internal/payments/service"
	paymentsvalidator "flightbook/internal/payments/validator"
	"flightbook/internal/reservations/repository"
	seatsrepo "flightbook/internal/seats/repository"
	seatsservice "flightbook/internal/seats/service"
	seatsvalidator "flightbook/internal/seats/validator"
	"flightbook/pkg/config"
	apperrors "flightbook/pkg/errors"
	"flightbook/pkg/logger"
	"flightbook/pkg/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const flight = "FB101"

type recordingMailer struct {
	mu     sync.Mutex
	emails []notifications.Email
}

func (m *recordingMailer) Send(_ context.Context, email notifications.Email) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.emails = append(m.emails, email)
	return nil
}

func (m *recordingMailer) kinds() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	var kinds []string
	for _, e := range m.emails {
		kinds = append(kinds, e.Kind)
	}
	return kinds
}

type failingInitiate struct{ paymentsservice.PaymentService }

func (failingInitiate) Initiate(context.Context, string, int64, string) (*model.Payment, error) {
	return nil, apperrors.Unavailable("payment store", errors.New("connection refused"))
}

type failingCreate struct{ bookingsservice.BookingService }

func (failingCreate) Create(context.Context, *model.CreateBookingRequest, *model.Hold) (*model.Booking, error) {
	return nil, apperrors.Unavailable("booking store", errors.New("connection refused"))
}

type failingRelease struct{ seatsservice.SeatService }

func (failingRelease) Release(context.Context, string, []string, string) error {
	return apperrors.Unavailable("seat store", errors.New("primary stepped down"))
}

type fixture struct {
	coordinator Coordinator
	sweeper     *Sweeper
	seats       seatsservice.SeatService
	seatRepo    seatsrepo.SeatRepository
	bookings    bookingsservice.BookingService
	payments    paymentsservice.PaymentService
	locks       repository.SweepLockRepository
	entries     *audit.MemoryRepository
	sink        *audit.AsyncSink
	mailer      *recordingMailer
	cfg         *config.Config
}

// newFixture wires the real services over in-memory stores. wrap may swap
// any service for a failing stand-in before the coordinator is built.
func newFixture(t *testing.T, wrap func(f *fixture)) *fixture {
	t.Helper()

	log := logger.Discard()
	cfg := &config.Config{
		Log:               log,
		PaymentCurrency:   "USD",
		SeatHoldDuration:  15 * time.Minute,
		HoldSweepInterval: time.Second,
		OrphanHoldGrace:   time.Minute,
		SweepBatchSize:    10,
	}
	entries := audit.NewMemoryRepository()
	sink := audit.NewAsyncSink(entries, log)

	f := &fixture{
		seatRepo: seatsrepo.NewMemorySeatRepository(),
		locks:    repository.NewMemorySweepLockRepository(),
		entries:  entries,
		sink:     sink,
		mailer:   &recordingMailer{},
		cfg:      cfg,
	}
	f.seats = seatsservice.NewSeatService(f.seatRepo, seatsvalidator.NewSeatValidator(log), sink, cfg)
	f.bookings = bookingsservice.NewBookingService(
		bookingsrepo.NewMemoryBookingRepository(),
		bookingsvalidator.NewBookingValidator(log),
		sink,
		cfg,
	)
	f.payments = paymentsservice.NewPaymentService(
		paymentsrepo.NewMemoryPaymentRepository(),
		f.bookings,
		paymentsvalidator.NewPaymentValidator(log),
		sink,
		cfg,
	)

	_, err := f.seats.AddSeats(context.Background(), flight, []*model.Seat{
		{Number: "1A", Class: model.ClassEconomy, Price: 150},
		{Number: "1B", Class: model.ClassBusiness, Price: 300},
		{Number: "2C", Class: model.ClassEconomy, Price: 120},
		{Number: "12A", Class: model.ClassEconomy, Price: 90},
		{Number: "12B", Class: model.ClassEconomy, Price: 90},
	})
	require.NoError(t, err)

	if wrap != nil {
		wrap(f)
	}
	f.coordinator = NewCoordinator(f.seats, f.bookings, f.payments, f.mailer, documents.NewRenderer(), sink, cfg)
	f.sweeper = NewSweeper(f.coordinator, f.bookings, f.seats, f.locks, cfg)
	return f
}

func request(seats ...string) *model.CreateBookingRequest {
	req := &model.CreateBookingRequest{
		UserID:        "user-1",
		FlightID:      flight,
		SeatNumbers:   seats,
		ContactEmail:  "ada@example.com",
		PaymentMethod: "card",
	}
	for range seats {
		req.Passengers = append(req.Passengers, model.PassengerInput{
			FirstName:   "Ada",
			LastName:    "Lovelace",
			DateOfBirth: "1990-12-10",
			Gender:      "female",
		})
	}
	return req
}

func (f *fixture) reserve(t *testing.T, seats ...string) *model.Reservation {
	t.Helper()
	reservation, err := f.coordinator.CreateBooking(context.Background(), request(seats...))
	require.NoError(t, err)
	return reservation
}

func (f *fixture) pay(t *testing.T, r *model.Reservation, outcome string) (*PaymentResult, error) {
	t.Helper()
	return f.coordinator.RecordPaymentOutcome(context.Background(), r.Payment.PaymentID, &model.PaymentOutcomeRequest{
		Outcome:       outcome,
		TransactionID: "tx-" + r.Booking.Reference,
	})
}

func (f *fixture) seat(t *testing.T, number string) *model.Seat {
	t.Helper()
	seat, err := f.seatRepo.FindOne(context.Background(), flight, number)
	require.NoError(t, err)
	return seat
}

func (f *fixture) booking(t *testing.T, r *model.Reservation) *model.Booking {
	t.Helper()
	booking, err := f.bookings.GetByID(context.Background(), r.Booking.ID)
	require.NoError(t, err)
	return booking
}

func (f *fixture) payment(t *testing.T, r *model.Reservation) *model.Payment {
	t.Helper()
	payment, err := f.payments.GetByID(context.Background(), r.Payment.PaymentID)
	require.NoError(t, err)
	return payment
}

func TestCreateBooking_HoldsSeatsAndOpensPayment(t *testing.T) {
	f := newFixture(t, nil)

	r := f.reserve(t, "1A", "1B")

	assert.Equal(t, model.BookingPending, r.Booking.Status)
	assert.Equal(t, int64(450), r.Booking.TotalAmount)
	assert.Equal(t, int64(450), r.Payment.Amount)
	assert.Equal(t, "USD", r.Payment.Currency)
	assert.Equal(t, r.Booking.HoldExpiresAt, r.Payment.ExpiresAt)
	assert.False(t, f.seat(t, "1A").Available)
	assert.False(t, f.seat(t, "1B").Available)
	assert.Equal(t, model.PaymentPending, f.payment(t, r).Status)
}

func TestCreateBooking_UnavailableSeatLeavesNothingBehind(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()

	_, err := f.seats.Reserve(ctx, flight, []string{"12B"}, time.Minute)
	require.NoError(t, err)

	_, err = f.coordinator.CreateBooking(ctx, request("12A", "12B"))
	require.Error(t, err)
	assert.True(t, apperrors.HasCode(err, apperrors.CodeSeatUnavailable))

	assert.True(t, f.seat(t, "12A").Available)
	_, total, err := f.bookings.ListByUser(ctx, "user-1", 10, 0)
	require.NoError(t, err)
	assert.Zero(t, total)
}

func TestCreateBooking_BookingFailureReleasesHold(t *testing.T) {
	f := newFixture(t, func(f *fixture) {
		f.bookings = failingCreate{f.bookings}
	})

	_, err := f.coordinator.CreateBooking(context.Background(), request("1A"))
	require.Error(t, err)
	assert.True(t, apperrors.HasCode(err, apperrors.CodeUnavailable))
	assert.True(t, f.seat(t, "1A").Available)
}

func TestCreateBooking_PaymentFailureCancelsBookingAndReleasesSeats(t *testing.T) {
	f := newFixture(t, func(f *fixture) {
		f.payments = failingInitiate{f.payments}
	})
	ctx := context.Background()

	_, err := f.coordinator.CreateBooking(ctx, request("1A", "1B"))
	require.Error(t, err)
	assert.True(t, apperrors.HasCode(err, apperrors.CodeUnavailable))

	assert.True(t, f.seat(t, "1A").Available)
	assert.True(t, f.seat(t, "1B").Available)

	bookings, _, err := f.bookings.ListByUser(ctx, "user-1", 10, 0)
	require.NoError(t, err)
	require.Len(t, bookings, 1)
	assert.Equal(t, model.BookingCancelled, bookings[0].Status)
	assert.Equal(t, CancelReasonReservationFailed, bookings[0].CancelReason)
}

func TestCreateBooking_FailedCompensationIsFlagged(t *testing.T) {
	f := newFixture(t, func(f *fixture) {
		f.payments = failingInitiate{f.payments}
		f.seats = failingRelease{f.seats}
	})

	_, err := f.coordinator.CreateBooking(context.Background(), request("2C"))
	require.Error(t, err)
	assert.Equal(t, "payment store is temporarily unavailable", apperrors.AsAppError(err).Message)

	f.sink.Flush()
	flagged := f.entries.Entries(model.ActionReconciliationRequired)
	require.Len(t, flagged, 1)
	assert.Equal(t, "release_seats", flagged[0].Changes["step"])
	assert.Equal(t, model.EntityBooking, flagged[0].Entity)
}

func TestRecordPaymentOutcome_SuccessConfirmsAndCommits(t *testing.T) {
	f := newFixture(t, nil)
	r := f.reserve(t, "1A")

	result, err := f.pay(t, r, model.OutcomeSuccess)
	require.NoError(t, err)

	assert.Equal(t, model.BookingConfirmed, result.Booking.Status)
	assert.Equal(t, model.PaymentPaid, result.Payment.Status)
	assert.False(t, result.Replayed)

	seat := f.seat(t, "1A")
	assert.False(t, seat.Available)
	assert.Nil(t, seat.HoldExpiresAt, "committed seats carry no expiry")
	assert.Equal(t, []string{notifications.KindBookingConfirmed}, f.mailer.kinds())
}

func TestRecordPaymentOutcome_ReplayChangesNothing(t *testing.T) {
	f := newFixture(t, nil)
	r := f.reserve(t, "1A")

	_, err := f.pay(t, r, model.OutcomeSuccess)
	require.NoError(t, err)
	result, err := f.pay(t, r, model.OutcomeSuccess)
	require.NoError(t, err)

	assert.True(t, result.Replayed)
	assert.Equal(t, model.BookingConfirmed, result.Booking.Status)
	assert.Len(t, f.mailer.kinds(), 1)
}

func TestRecordPaymentOutcome_FailureCancelsAndReleases(t *testing.T) {
	f := newFixture(t, nil)
	r := f.reserve(t, "1A")

	result, err := f.pay(t, r, model.OutcomeFailure)
	require.NoError(t, err)

	assert.Equal(t, model.PaymentFailed, result.Payment.Status)
	assert.Equal(t, model.BookingCancelled, result.Booking.Status)
	assert.Equal(t, CancelReasonPaymentFailed, result.Booking.CancelReason)
	assert.True(t, f.seat(t, "1A").Available)
	assert.Equal(t, []string{notifications.KindBookingCancelled}, f.mailer.kinds())
}

func TestRecordPaymentOutcome_ReversalAfterSuccessUnwinds(t *testing.T) {
	f := newFixture(t, nil)
	r := f.reserve(t, "1A")
	_, err := f.pay(t, r, model.OutcomeSuccess)
	require.NoError(t, err)

	reversal := &model.PaymentOutcomeRequest{
		Outcome:       model.OutcomeFailure,
		TransactionID: "tx-reversal",
		Reason:        "chargeback",
	}
	result, err := f.coordinator.RecordPaymentOutcome(context.Background(), r.Payment.PaymentID, reversal)
	require.NoError(t, err)

	assert.Equal(t, model.BookingCancelled, result.Booking.Status)
	assert.Equal(t, CancelReasonPaymentFailed, result.Booking.CancelReason)
	assert.Equal(t, model.PaymentRefunded, result.Payment.Status)
	assert.Equal(t, model.PaymentRefunded, f.payment(t, r).Status)
	assert.True(t, f.seat(t, "1A").Available)
	assert.Equal(t, []string{notifications.KindBookingConfirmed, notifications.KindBookingCancelled}, f.mailer.kinds())

	again, err := f.coordinator.RecordPaymentOutcome(context.Background(), r.Payment.PaymentID, reversal)
	require.NoError(t, err)
	assert.True(t, again.Replayed)
	assert.Equal(t, model.BookingCancelled, again.Booking.Status)
	assert.Len(t, f.mailer.kinds(), 2)

	// the released seat belongs to the next customer, not the replay
	next := f.reserve(t, "1A")
	_, err = f.coordinator.RecordPaymentOutcome(context.Background(), r.Payment.PaymentID, reversal)
	require.NoError(t, err)
	assert.False(t, f.seat(t, "1A").Available)
	assert.Equal(t, model.BookingPending, f.booking(t, next).Status)
}

func TestRecordPaymentOutcome_LateSuccessAfterSweepIsRefunded(t *testing.T) {
	f := newFixture(t, nil)
	r := f.reserve(t, "1A")

	_, err := f.sweeper.Sweep(context.Background(), r.Booking.HoldExpiresAt.Add(time.Second))
	require.NoError(t, err)
	require.Equal(t, model.BookingCancelled, f.booking(t, r).Status)

	_, err = f.pay(t, r, model.OutcomeSuccess)
	require.Error(t, err)
	assert.True(t, apperrors.HasCode(err, apperrors.CodeHoldExpired))

	assert.Equal(t, model.PaymentRefunded, f.payment(t, r).Status)
	assert.Equal(t, model.BookingCancelled, f.booking(t, r).Status)
	assert.True(t, f.seat(t, "1A").Available)
}

func TestRecordPaymentOutcome_LateSuccessBeforeSweepIsRefunded(t *testing.T) {
	f := newFixture(t, nil)
	f.cfg.SeatHoldDuration = 100 * time.Millisecond
	r := f.reserve(t, "1A")

	time.Sleep(200 * time.Millisecond)

	_, err := f.pay(t, r, model.OutcomeSuccess)
	require.Error(t, err)
	assert.True(t, apperrors.HasCode(err, apperrors.CodeHoldExpired))

	booking := f.booking(t, r)
	assert.Equal(t, model.BookingCancelled, booking.Status)
	assert.Equal(t, bookingsservice.CancelReasonHoldExpired, booking.CancelReason)
	assert.Equal(t, model.PaymentRefunded, f.payment(t, r).Status)
	assert.True(t, f.seat(t, "1A").Available)
}

func TestCancel_ConfirmedBookingIsRefunded(t *testing.T) {
	f := newFixture(t, nil)
	r := f.reserve(t, "1A", "1B")
	_, err := f.pay(t, r, model.OutcomeSuccess)
	require.NoError(t, err)

	cancelled, err := f.coordinator.Cancel(context.Background(), r.Booking.Reference, "")
	require.NoError(t, err)

	assert.Equal(t, model.BookingCancelled, cancelled.Status)
	assert.Equal(t, CancelReasonCustomer, cancelled.CancelReason)
	assert.Equal(t, model.PaymentRefunded, f.payment(t, r).Status)
	assert.True(t, f.seat(t, "1A").Available)
	assert.True(t, f.seat(t, "1B").Available)
}

func TestCancel_PendingBookingReleasesSeats(t *testing.T) {
	f := newFixture(t, nil)
	r := f.reserve(t, "2C")

	cancelled, err := f.coordinator.Cancel(context.Background(), r.Booking.Reference, "change of plans")
	require.NoError(t, err)

	assert.Equal(t, "change of plans", cancelled.CancelReason)
	assert.True(t, f.seat(t, "2C").Available)
	assert.Equal(t, model.PaymentPending, f.payment(t, r).Status)
}

func TestTerminalBookingsRejectFurtherTransitions(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()

	cancelled := f.reserve(t, "1A")
	_, err := f.coordinator.Cancel(ctx, cancelled.Booking.Reference, "")
	require.NoError(t, err)

	_, err = f.coordinator.Cancel(ctx, cancelled.Booking.Reference, "")
	assert.True(t, apperrors.HasCode(err, apperrors.CodeInvalidTransition))
	_, err = f.coordinator.Complete(ctx, cancelled.Booking.Reference)
	assert.True(t, apperrors.HasCode(err, apperrors.CodeInvalidTransition))

	completed := f.reserve(t, "1B")
	_, err = f.pay(t, completed, model.OutcomeSuccess)
	require.NoError(t, err)
	booking, err := f.coordinator.Complete(ctx, completed.Booking.Reference)
	require.NoError(t, err)
	assert.Equal(t, model.BookingCompleted, booking.Status)

	_, err = f.coordinator.Cancel(ctx, completed.Booking.Reference, "")
	assert.True(t, apperrors.HasCode(err, apperrors.CodeInvalidTransition))
	assert.False(t, f.seat(t, "1B").Available)
}

func TestComplete_RequiresConfirmation(t *testing.T) {
	f := newFixture(t, nil)
	r := f.reserve(t, "1A")

	_, err := f.coordinator.Complete(context.Background(), r.Booking.Reference)
	assert.True(t, apperrors.HasCode(err, apperrors.CodeInvalidTransition))
}

func TestAmountIntegrity(t *testing.T) {
	f := newFixture(t, nil)
	r := f.reserve(t, "1A", "1B")

	assert.Equal(t, model.SumSeatPrices(r.Booking.Passengers), r.Payment.Amount)

	_, err := f.payments.Initiate(context.Background(), r.Booking.ID, 400, "card")
	require.Error(t, err)
	assert.True(t, apperrors.HasCode(err, apperrors.CodeAmountMismatch))
}

func TestSweep_ExpiresLapsedBookings(t *testing.T) {
	f := newFixture(t, nil)
	r := f.reserve(t, "2C")

	result, err := f.sweeper.Sweep(context.Background(), r.Booking.HoldExpiresAt.Add(time.Second))
	require.NoError(t, err)

	assert.Equal(t, 1, result.Expired)
	booking := f.booking(t, r)
	assert.Equal(t, model.BookingCancelled, booking.Status)
	assert.Equal(t, bookingsservice.CancelReasonHoldExpired, booking.CancelReason)
	assert.True(t, f.seat(t, "2C").Available)
}

func TestSweep_LeavesLiveAndConfirmedBookings(t *testing.T) {
	f := newFixture(t, nil)
	live := f.reserve(t, "1A")
	paid := f.reserve(t, "1B")
	_, err := f.pay(t, paid, model.OutcomeSuccess)
	require.NoError(t, err)

	result, err := f.sweeper.Sweep(context.Background(), time.Now().UTC())
	require.NoError(t, err)
	assert.Zero(t, result.Expired)
	assert.Equal(t, model.BookingPending, f.booking(t, live).Status)

	result, err = f.sweeper.Sweep(context.Background(), paid.Booking.HoldExpiresAt.Add(time.Hour))
	require.NoError(t, err)
	assert.Equal(t, model.BookingConfirmed, f.booking(t, paid).Status)
	assert.False(t, f.seat(t, "1B").Available, "committed seats never expire")
}

func TestSweep_ReleasesOrphanHoldsAfterGrace(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()

	hold, err := f.seats.Reserve(ctx, flight, []string{"12A"}, time.Minute)
	require.NoError(t, err)

	result, err := f.sweeper.Sweep(ctx, hold.ExpiresAt.Add(time.Second))
	require.NoError(t, err)
	assert.Zero(t, result.Released, "grace period still running")
	assert.False(t, f.seat(t, "12A").Available)

	result, err = f.sweeper.Sweep(ctx, hold.ExpiresAt.Add(f.cfg.OrphanHoldGrace+time.Second))
	require.NoError(t, err)
	assert.Equal(t, int64(1), result.Released)
	assert.True(t, f.seat(t, "12A").Available)
}

func TestSweep_ReleasesLapsedHoldWithDefaultGrace(t *testing.T) {
	f := newFixture(t, nil)
	f.cfg.OrphanHoldGrace = config.DefaultOrphanHoldGrace
	ctx := context.Background()

	live := f.reserve(t, "1A")
	_, err := f.seats.Reserve(ctx, flight, []string{"2C"}, time.Second)
	require.NoError(t, err)

	time.Sleep(2 * time.Second)

	result, err := f.sweeper.Sweep(ctx, time.Now().UTC())
	require.NoError(t, err)
	assert.Equal(t, int64(1), result.Released)
	assert.True(t, f.seat(t, "2C").Available)

	assert.Equal(t, model.BookingPending, f.booking(t, live).Status)
	assert.False(t, f.seat(t, "1A").Available)
}

func TestSweep_SkipsWhileLeaseHeldElsewhere(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()
	r := f.reserve(t, "1A")

	ok, err := f.locks.Acquire(ctx, sweepLockName, "other-replica", time.Minute)
	require.NoError(t, err)
	require.True(t, ok)

	result, err := f.sweeper.Sweep(ctx, r.Booking.HoldExpiresAt.Add(time.Second))
	require.NoError(t, err)
	assert.True(t, result.Skipped)
	assert.Equal(t, model.BookingPending, f.booking(t, r).Status)
}

func TestSweeper_RunStopsOnCancel(t *testing.T) {
	f := newFixture(t, nil)
	f.cfg.HoldSweepInterval = 10 * time.Millisecond
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan error, 1)
	go func() { done <- f.sweeper.Run(ctx) }()
	time.Sleep(30 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("sweeper did not stop")
	}

	ok, err := f.locks.Acquire(context.Background(), sweepLockName, "other-replica", time.Minute)
	require.NoError(t, err)
	assert.True(t, ok, "lease is released on shutdown")
}

func TestGetStatus(t *testing.T) {
	f := newFixture(t, nil)
	r := f.reserve(t, "1A")

	status, err := f.coordinator.GetStatus(context.Background(), r.Booking.Reference)
	require.NoError(t, err)
	assert.Equal(t, r.Booking.ID, status.Booking.ID)
	require.Len(t, status.Payments, 1)
	assert.Equal(t, r.Payment.PaymentID, status.Payments[0].ID)

	_, err = f.coordinator.GetStatus(context.Background(), "ZZZZZZ")
	assert.True(t, apperrors.HasCode(err, apperrors.CodeNotFound))
}

func TestRenderDocuments(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()
	r := f.reserve(t, "1A")

	_, err := f.coordinator.RenderTicket(ctx, r.Booking.Reference)
	assert.True(t, apperrors.HasCode(err, apperrors.CodeConflict))
	_, err = f.coordinator.RenderInvoice(ctx, r.Booking.Reference)
	assert.True(t, apperrors.HasCode(err, apperrors.CodeNotFound))

	_, err = f.pay(t, r, model.OutcomeSuccess)
	require.NoError(t, err)

	ticket, err := f.coordinator.RenderTicket(ctx, r.Booking.Reference)
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(ticket, []byte("\x89PNG")))

	invoice, err := f.coordinator.RenderInvoice(ctx, r.Booking.Reference)
	require.NoError(t, err)
	assert.Contains(t, string(invoice), r.Booking.Reference)
	assert.Contains(t, string(invoice), "1.50")
}
