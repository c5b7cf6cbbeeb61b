// Package models holds the read-only booking snapshot the contract workflow
// consumes. Bookings are owned by the booking subsystem.
package models

import (
	"fmt"
	"strings"
	"time"

	id "ranchdesk/pkg/domain"
)

// Status is the booking lifecycle state as reported by the booking subsystem.
type Status string

const (
	StatusPending   Status = "pending"
	StatusConfirmed Status = "confirmed"
	StatusCancelled Status = "cancelled"
	StatusCompleted Status = "completed"
)

// Money is an amount in minor units of Currency (cents for USD).
type Money struct {
	Minor    int64
	Currency string
}

// zeroDecimalCurrencies have no minor unit.
var zeroDecimalCurrencies = map[string]bool{"JPY": true, "KRW": true, "CLP": true, "ISK": true}

// String renders the amount as "<CUR> <major>.<minor>", e.g. "USD 1250.00".
// The output depends only on the value, never on locale.
func (m Money) String() string {
	cur := strings.ToUpper(m.Currency)
	if zeroDecimalCurrencies[cur] {
		return fmt.Sprintf("%s %d", cur, m.Minor)
	}
	sign := ""
	mag := uint64(m.Minor)
	if m.Minor < 0 {
		sign = "-"
		// -(Minor+1) cannot overflow, even for math.MinInt64
		mag = uint64(-(m.Minor + 1)) + 1
	}
	return fmt.Sprintf("%s %s%d.%02d", cur, sign, mag/100, mag%100)
}

// Booking is the snapshot: identifier, confirmation status, label, unit,
// occupancy dates and price.
type Booking struct {
	ID        id.BookingID
	Status    Status
	Label     string
	Unit      string
	StartDate time.Time
	EndDate   time.Time
	Price     Money
}

// IsContractEligible reports whether the booking has reached the confirmed
// state that permits contract generation.
func (b Booking) IsContractEligible() bool {
	return b.Status == StatusConfirmed
}

// Nights is the occupancy length in whole days, counted on UTC calendar
// dates like the rendered contract.
func (b Booking) Nights() int {
	s, e := b.StartDate.UTC(), b.EndDate.UTC()
	start := time.Date(s.Year(), s.Month(), s.Day(), 0, 0, 0, 0, time.UTC)
	end := time.Date(e.Year(), e.Month(), e.Day(), 0, 0, 0, 0, time.UTC)
	return int(end.Sub(start).Hours() / 24)
}
