package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"ranchdesk/internal/booking/models"
	id "ranchdesk/pkg/domain"
	"ranchdesk/pkg/platform/sentinel"
)

// PostgresStore reads the booking subsystem's bookings table. It never writes.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) FindBookingByID(ctx context.Context, bookingID id.BookingID) (*models.Booking, error) {
	query := `
		SELECT id, status, label, unit, start_date, end_date, price_minor, currency
		FROM bookings
		WHERE id = $1
	`
	var (
		rawID  uuid.UUID
		status string
		b      models.Booking
	)
	err := s.db.QueryRowContext(ctx, query, uuid.UUID(bookingID)).Scan(
		&rawID, &status, &b.Label, &b.Unit, &b.StartDate, &b.EndDate, &b.Price.Minor, &b.Price.Currency,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, sentinel.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("find booking by id: %w", err)
	}
	b.ID = id.BookingID(rawID)
	b.Status = models.Status(status)
	b.StartDate = b.StartDate.UTC()
	b.EndDate = b.EndDate.UTC()
	return &b, nil
}
