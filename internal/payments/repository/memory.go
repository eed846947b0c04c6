package repository

import (
	"context"
	"sort"
	"sync"
	"time"

	paymentserrors "flightbook/internal/payments/errors"
	"flightbook/pkg/model"

	"github.com/google/uuid"
)

type memoryPaymentRepository struct {
	mu       sync.Mutex
	payments map[string]*model.Payment
}

func NewMemoryPaymentRepository() PaymentRepository {
	return &memoryPaymentRepository{payments: make(map[string]*model.Payment)}
}

func copyPayment(p *model.Payment) *model.Payment {
	c := *p
	return &c
}

func (r *memoryPaymentRepository) Create(_ context.Context, payment *model.Payment) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if payment.ID == "" {
		payment.ID = uuid.NewString()
	}
	ts := time.Now().UTC().Truncate(time.Millisecond)
	payment.CreatedAt = ts
	payment.UpdatedAt = ts
	r.payments[payment.ID] = copyPayment(payment)
	return nil
}

func (r *memoryPaymentRepository) FindByID(_ context.Context, id string) (*model.Payment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	p, ok := r.payments[id]
	if !ok {
		return nil, paymentserrors.ErrNotFound
	}
	return copyPayment(p), nil
}

func (r *memoryPaymentRepository) FindByBooking(_ context.Context, bookingID string) ([]*model.Payment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	payments := []*model.Payment{}
	for _, p := range r.payments {
		if p.BookingID == bookingID {
			payments = append(payments, copyPayment(p))
		}
	}
	sort.Slice(payments, func(i, j int) bool { return payments[i].CreatedAt.Before(payments[j].CreatedAt) })
	return payments, nil
}

func (r *memoryPaymentRepository) Apply(_ context.Context, id string, t Transition) (*model.Payment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	p, ok := r.payments[id]
	if !ok {
		return nil, paymentserrors.ErrNotFound
	}
	if p.Status != t.From {
		return copyPayment(p), paymentserrors.ErrTransitionRejected
	}
	if t.To == model.PaymentPaid {
		for _, other := range r.payments {
			if other.ID != id && other.BookingID == p.BookingID && other.Status == model.PaymentPaid {
				return nil, paymentserrors.ErrAlreadyPaid
			}
		}
	}

	at := t.At.UTC().Truncate(time.Millisecond)
	p.Status = t.To
	p.UpdatedAt = at
	if t.TransactionID != "" {
		p.TransactionID = t.TransactionID
	}
	switch t.To {
	case model.PaymentPaid:
		p.PaidAt = &at
	case model.PaymentFailed:
		p.FailureReason = t.FailureReason
	case model.PaymentRefunded:
		p.RefundedAt = &at
	}
	return copyPayment(p), nil
}
