package repository

import (
	"context"
	"slices"
	"sort"
	"sync"
	"time"

	bookingserrors "flightbook/internal/bookings/errors"
	"flightbook/pkg/model"

	"github.com/google/uuid"
)

type memoryBookingRepository struct {
	mu          sync.Mutex
	bookings    map[string]*model.Booking
	byReference map[string]string
}

func NewMemoryBookingRepository() BookingRepository {
	return &memoryBookingRepository{
		bookings:    make(map[string]*model.Booking),
		byReference: make(map[string]string),
	}
}

func copyBooking(b *model.Booking) *model.Booking {
	c := *b
	c.Passengers = append([]model.Passenger(nil), b.Passengers...)
	return &c
}

func (r *memoryBookingRepository) Create(_ context.Context, booking *model.Booking) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if booking.ID == "" {
		booking.ID = uuid.NewString()
	}
	ts := time.Now().UTC().Truncate(time.Millisecond)
	booking.CreatedAt = ts
	booking.UpdatedAt = ts

	for attempt := 0; attempt < referenceAttempts; attempt++ {
		ref, err := newReference()
		if err != nil {
			return err
		}
		if _, taken := r.byReference[ref]; taken {
			continue
		}
		booking.Reference = ref
		r.byReference[ref] = booking.ID
		r.bookings[booking.ID] = copyBooking(booking)
		return nil
	}
	return bookingserrors.ErrReferenceExhausted
}

func (r *memoryBookingRepository) FindByID(_ context.Context, id string) (*model.Booking, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	b, ok := r.bookings[id]
	if !ok {
		return nil, bookingserrors.ErrNotFound
	}
	return copyBooking(b), nil
}

func (r *memoryBookingRepository) FindByReference(ctx context.Context, reference string) (*model.Booking, error) {
	r.mu.Lock()
	id, ok := r.byReference[reference]
	r.mu.Unlock()
	if !ok {
		return nil, bookingserrors.ErrNotFound
	}
	return r.FindByID(ctx, id)
}

func (r *memoryBookingRepository) userBookings(userID string) []*model.Booking {
	var out []*model.Booking
	for _, b := range r.bookings {
		if b.UserID == userID {
			out = append(out, b)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out
}

func (r *memoryBookingRepository) FindByUser(_ context.Context, userID string, limit int, offset int64) ([]*model.Booking, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	all := r.userBookings(userID)
	bookings := []*model.Booking{}
	for i := int(offset); i < len(all) && len(bookings) < limit; i++ {
		bookings = append(bookings, copyBooking(all[i]))
	}
	return bookings, nil
}

func (r *memoryBookingRepository) CountByUser(_ context.Context, userID string) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return int64(len(r.userBookings(userID))), nil
}

func (r *memoryBookingRepository) FindExpiredPending(_ context.Context, now time.Time, limit int) ([]*model.Booking, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	bookings := []*model.Booking{}
	for _, b := range r.bookings {
		if b.Status == model.BookingPending && !b.HoldExpiresAt.After(now) {
			bookings = append(bookings, copyBooking(b))
		}
	}
	sort.Slice(bookings, func(i, j int) bool { return bookings[i].HoldExpiresAt.Before(bookings[j].HoldExpiresAt) })
	if len(bookings) > limit {
		bookings = bookings[:limit]
	}
	return bookings, nil
}

func (r *memoryBookingRepository) Apply(_ context.Context, id string, t Transition) (*model.Booking, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	b, ok := r.bookings[id]
	if !ok {
		return nil, bookingserrors.ErrNotFound
	}

	matches := slices.Contains(t.From, b.Status)
	if t.HoldLiveAt != nil && !b.HoldExpiresAt.After(*t.HoldLiveAt) {
		matches = false
	}
	if t.HoldLapsedAt != nil && b.HoldExpiresAt.After(*t.HoldLapsedAt) {
		matches = false
	}
	if !matches {
		return copyBooking(b), bookingserrors.ErrTransitionRejected
	}

	at := t.At.UTC().Truncate(time.Millisecond)
	b.Status = t.To
	b.UpdatedAt = at
	switch t.To {
	case model.BookingConfirmed:
		b.ConfirmedAt = &at
	case model.BookingCancelled:
		b.CancelledAt = &at
		if t.Reason != "" {
			b.CancelReason = t.Reason
		}
	case model.BookingCompleted:
		b.CompletedAt = &at
	}
	return copyBooking(b), nil
}
