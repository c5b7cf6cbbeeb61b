// Package store persists contracts.
package store

import (
	"context"
	"fmt"
	"maps"
	"sync"

	"ranchdesk/internal/contract/models"
	id "ranchdesk/pkg/domain"
	"ranchdesk/pkg/platform/sentinel"
)

type memTxKey struct{}

// InMemoryStore is the test and local-dev contract store. RunInTx holds an
// exclusive lock for the whole callback and restores the previous state when
// the callback fails, so it offers the same all-or-nothing guarantee as the
// PostgreSQL store. Writes outside RunInTx take the same lock per call.
type InMemoryStore struct {
	txMu      sync.Mutex
	mu        sync.RWMutex
	contracts map[id.ContractID]models.Contract
	byBooking map[id.BookingID]id.ContractID
}

func NewInMemory() *InMemoryStore {
	return &InMemoryStore{
		contracts: make(map[id.ContractID]models.Contract),
		byBooking: make(map[id.BookingID]id.ContractID),
	}
}

func inTx(ctx context.Context) bool {
	return ctx.Value(memTxKey{}) != nil
}

func (s *InMemoryStore) RunInTx(ctx context.Context, fn func(ctx context.Context) error) error {
	if inTx(ctx) {
		return fn(ctx)
	}
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("transaction aborted: %w", err)
	}
	s.txMu.Lock()
	defer s.txMu.Unlock()

	s.mu.RLock()
	contracts := maps.Clone(s.contracts)
	byBooking := maps.Clone(s.byBooking)
	s.mu.RUnlock()

	if err := fn(context.WithValue(ctx, memTxKey{}, true)); err != nil {
		s.mu.Lock()
		s.contracts = contracts
		s.byBooking = byBooking
		s.mu.Unlock()
		return err
	}
	return nil
}

// write runs a single mutation under the tx lock unless ctx already holds it.
func (s *InMemoryStore) write(ctx context.Context, fn func() error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if !inTx(ctx) {
		s.txMu.Lock()
		defer s.txMu.Unlock()
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return fn()
}

func (s *InMemoryStore) FindByID(ctx context.Context, contractID id.ContractID) (*models.Contract, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.contracts[contractID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	return copyContract(c), nil
}

func (s *InMemoryStore) FindByBookingID(ctx context.Context, bookingID id.BookingID) (*models.Contract, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	contractID, ok := s.byBooking[bookingID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	return copyContract(s.contracts[contractID]), nil
}

// FindByBookingIDForUpdate is FindByBookingID; RunInTx already serializes.
func (s *InMemoryStore) FindByBookingIDForUpdate(ctx context.Context, bookingID id.BookingID) (*models.Contract, error) {
	return s.FindByBookingID(ctx, bookingID)
}

func (s *InMemoryStore) Create(ctx context.Context, c *models.Contract) error {
	return s.write(ctx, func() error {
		if _, exists := s.byBooking[c.BookingID]; exists {
			return fmt.Errorf("contract for booking %s: %w", c.BookingID, sentinel.ErrConflict)
		}
		if _, exists := s.contracts[c.ID]; exists {
			return fmt.Errorf("contract %s: %w", c.ID, sentinel.ErrConflict)
		}
		s.contracts[c.ID] = *copyContract(*c)
		s.byBooking[c.BookingID] = c.ID
		return nil
	})
}

func (s *InMemoryStore) UpdateArtifact(ctx context.Context, c *models.Contract) error {
	return s.write(ctx, func() error {
		current, ok := s.contracts[c.ID]
		if !ok {
			return sentinel.ErrNotFound
		}
		if current.Status == models.StatusSigned {
			return fmt.Errorf("contract %s is signed: %w", c.ID, sentinel.ErrInvalidState)
		}
		current.Path = c.Path
		current.Hash = c.Hash
		current.Status = c.Status
		current.UpdatedAt = c.UpdatedAt
		s.contracts[c.ID] = current
		return nil
	})
}

func (s *InMemoryStore) MarkSigned(ctx context.Context, c *models.Contract) error {
	return s.write(ctx, func() error {
		current, ok := s.contracts[c.ID]
		if !ok {
			return sentinel.ErrNotFound
		}
		if current.Status == models.StatusSigned || current.SignedPath != "" {
			return fmt.Errorf("contract %s is signed: %w", c.ID, sentinel.ErrInvalidState)
		}
		current.Status = models.StatusSigned
		current.SignedPath = c.SignedPath
		current.SignedHash = c.SignedHash
		if c.SignedAt != nil {
			t := *c.SignedAt
			current.SignedAt = &t
		}
		current.UpdatedAt = c.UpdatedAt
		s.contracts[c.ID] = current
		return nil
	})
}

// Overwrite replaces a stored row without any guard. Tests use it to set up
// states the public API refuses to produce.
func (s *InMemoryStore) Overwrite(c models.Contract) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.contracts[c.ID] = *copyContract(c)
	s.byBooking[c.BookingID] = c.ID
}

func (s *InMemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.contracts)
}

func copyContract(c models.Contract) *models.Contract {
	if c.SignedAt != nil {
		t := *c.SignedAt
		c.SignedAt = &t
	}
	return &c
}
