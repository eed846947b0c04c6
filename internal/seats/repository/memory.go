package repository

import (
	"context"
	"sort"
	"sync"
	"time"

	seatserrors "flightbook/internal/seats/errors"
	"flightbook/pkg/model"

	"github.com/google/uuid"
)

// flightSeats is the coordination point for one flight: every mutation of its
// seats happens under mu.
type flightSeats struct {
	mu    sync.Mutex
	seats map[string]*model.Seat
}

type memorySeatRepository struct {
	mu      sync.RWMutex
	flights map[string]*flightSeats
}

func NewMemorySeatRepository() SeatRepository {
	return &memorySeatRepository{flights: make(map[string]*flightSeats)}
}

func (r *memorySeatRepository) flight(flightID string, create bool) *flightSeats {
	r.mu.RLock()
	f, ok := r.flights[flightID]
	r.mu.RUnlock()
	if ok || !create {
		return f
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if f, ok = r.flights[flightID]; !ok {
		f = &flightSeats{seats: make(map[string]*model.Seat)}
		r.flights[flightID] = f
	}
	return f
}

func (r *memorySeatRepository) allFlights() []*flightSeats {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*flightSeats, 0, len(r.flights))
	for _, f := range r.flights {
		out = append(out, f)
	}
	return out
}

func copySeat(s *model.Seat) *model.Seat {
	c := *s
	if s.HoldExpiresAt != nil {
		t := *s.HoldExpiresAt
		c.HoldExpiresAt = &t
	}
	c.Features = append([]string(nil), s.Features...)
	return &c
}

func (r *memorySeatRepository) InsertMany(_ context.Context, seats []*model.Seat) error {
	if len(seats) == 0 {
		return nil
	}
	f := r.flight(seats[0].FlightID, true)
	f.mu.Lock()
	defer f.mu.Unlock()

	for _, seat := range seats {
		if _, exists := f.seats[seat.Number]; exists {
			return seatserrors.ErrDuplicateSeat
		}
	}
	ts := now()
	for _, seat := range seats {
		if seat.ID == "" {
			seat.ID = uuid.NewString()
		}
		seat.CreatedAt = ts
		seat.UpdatedAt = ts
		f.seats[seat.Number] = copySeat(seat)
	}
	return nil
}

func (r *memorySeatRepository) FindByFlight(_ context.Context, flightID string, onlyAvailable bool) ([]*model.Seat, error) {
	seats := []*model.Seat{}
	f := r.flight(flightID, false)
	if f == nil {
		return seats, nil
	}
	f.mu.Lock()
	defer f.mu.Unlock()

	for _, seat := range f.seats {
		if onlyAvailable && !seat.Biddable() {
			continue
		}
		seats = append(seats, copySeat(seat))
	}
	sort.Slice(seats, func(i, j int) bool { return seats[i].Number < seats[j].Number })
	return seats, nil
}

func (r *memorySeatRepository) FindOne(_ context.Context, flightID, number string) (*model.Seat, error) {
	f := r.flight(flightID, false)
	if f == nil {
		return nil, seatserrors.ErrSeatNotFound
	}
	f.mu.Lock()
	defer f.mu.Unlock()

	seat, ok := f.seats[number]
	if !ok {
		return nil, seatserrors.ErrSeatNotFound
	}
	return copySeat(seat), nil
}

func (r *memorySeatRepository) Hold(_ context.Context, flightID string, numbers []string, holdID string, expiresAt time.Time) ([]*model.Seat, error) {
	f := r.flight(flightID, false)
	if f == nil {
		return nil, &seatserrors.UnavailableError{Seats: numbers}
	}
	f.mu.Lock()
	defer f.mu.Unlock()

	var missing []string
	for _, number := range numbers {
		seat, ok := f.seats[number]
		if !ok || !seat.Biddable() {
			missing = append(missing, number)
		}
	}
	if len(missing) > 0 {
		return nil, &seatserrors.UnavailableError{Seats: missing}
	}

	ts := now()
	held := make([]*model.Seat, 0, len(numbers))
	for _, number := range numbers {
		seat := f.seats[number]
		exp := expiresAt
		seat.Available = false
		seat.HoldID = holdID
		seat.HoldExpiresAt = &exp
		seat.UpdatedAt = ts
		held = append(held, copySeat(seat))
	}
	return held, nil
}

func (r *memorySeatRepository) Commit(_ context.Context, flightID string, numbers []string, holdID string) error {
	f := r.flight(flightID, false)
	if f == nil {
		return seatserrors.ErrHoldExpired
	}
	f.mu.Lock()
	defer f.mu.Unlock()

	for _, number := range numbers {
		seat, ok := f.seats[number]
		if !ok || seat.Available || seat.HoldID != holdID {
			return seatserrors.ErrHoldExpired
		}
	}
	ts := now()
	for _, number := range numbers {
		seat := f.seats[number]
		seat.HoldExpiresAt = nil
		seat.UpdatedAt = ts
	}
	return nil
}

func (r *memorySeatRepository) Release(_ context.Context, flightID string, numbers []string, holdID string) (int64, error) {
	f := r.flight(flightID, false)
	if f == nil {
		return 0, nil
	}
	f.mu.Lock()
	defer f.mu.Unlock()

	var released int64
	for _, number := range numbers {
		seat, ok := f.seats[number]
		if !ok || seat.Available {
			continue
		}
		if holdID != "" && seat.HoldID != holdID {
			continue
		}
		releaseSeat(seat)
		released++
	}
	return released, nil
}

func (r *memorySeatRepository) ReleaseExpired(_ context.Context, cutoff time.Time) (int64, error) {
	var released int64
	for _, f := range r.allFlights() {
		f.mu.Lock()
		for _, seat := range f.seats {
			if seat.Available || seat.HoldExpiresAt == nil || seat.HoldExpiresAt.After(cutoff) {
				continue
			}
			releaseSeat(seat)
			released++
		}
		f.mu.Unlock()
	}
	return released, nil
}

func releaseSeat(seat *model.Seat) {
	seat.Available = true
	seat.HoldID = ""
	seat.HoldExpiresAt = nil
	seat.UpdatedAt = now()
}

func (r *memorySeatRepository) SetBlocked(_ context.Context, flightID, number string, blocked bool, reason string) (*model.Seat, error) {
	f := r.flight(flightID, false)
	if f == nil {
		return nil, seatserrors.ErrSeatNotFound
	}
	f.mu.Lock()
	defer f.mu.Unlock()

	seat, ok := f.seats[number]
	if !ok {
		return nil, seatserrors.ErrSeatNotFound
	}
	seat.Blocked = blocked
	seat.BlockReason = reason
	if !blocked {
		seat.BlockReason = ""
	}
	seat.UpdatedAt = now()
	return copySeat(seat), nil
}
