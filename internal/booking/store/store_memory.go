package store

import (
	"context"
	"sync"

	"ranchdesk/internal/booking/models"
	id "ranchdesk/pkg/domain"
	"ranchdesk/pkg/platform/sentinel"
)

// InMemoryStore is the booking reader used in tests and local development.
type InMemoryStore struct {
	mu       sync.RWMutex
	bookings map[id.BookingID]models.Booking
}

func NewInMemory() *InMemoryStore {
	return &InMemoryStore{bookings: make(map[id.BookingID]models.Booking)}
}

// Save inserts or replaces a booking snapshot.
func (s *InMemoryStore) Save(b models.Booking) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.bookings[b.ID] = b
}

func (s *InMemoryStore) FindBookingByID(_ context.Context, bookingID id.BookingID) (*models.Booking, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	b, ok := s.bookings[bookingID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	return &b, nil
}
