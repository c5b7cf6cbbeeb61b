// Package domain holds typed identifiers shared across ranchdesk packages.
//
// Each ID is a distinct named UUID type so a BookingID can never be passed
// where a ContractID is expected. Construct IDs from external input with the
// Parse* functions; direct conversion from uuid.UUID is reserved for code that
// allocates fresh identifiers.
package domain

import (
	"unicode/utf8"

	"github.com/google/uuid"

	dErrors "ranchdesk/pkg/domain-errors"
)

type (
	ContractID   uuid.UUID
	BookingID    uuid.UUID
	AuditEntryID uuid.UUID
)

// NewContractID allocates a fresh random contract identifier.
func NewContractID() ContractID { return ContractID(uuid.New()) }

// NewBookingID allocates a booking identifier. Bookings are created by the
// booking subsystem; this exists for fixtures and local seeding.
func NewBookingID() BookingID { return BookingID(uuid.New()) }

// NewAuditEntryID allocates a fresh random audit entry identifier.
func NewAuditEntryID() AuditEntryID { return AuditEntryID(uuid.New()) }

func ParseContractID(s string) (ContractID, error) {
	u, err := parseUUID(s, "contract")
	return ContractID(u), err
}

func ParseBookingID(s string) (BookingID, error) {
	u, err := parseUUID(s, "booking")
	return BookingID(u), err
}

func ParseAuditEntryID(s string) (AuditEntryID, error) {
	u, err := parseUUID(s, "audit entry")
	return AuditEntryID(u), err
}

func (id ContractID) String() string   { return uuid.UUID(id).String() }
func (id BookingID) String() string    { return uuid.UUID(id).String() }
func (id AuditEntryID) String() string { return uuid.UUID(id).String() }

func (id ContractID) IsNil() bool   { return uuid.UUID(id) == uuid.Nil }
func (id BookingID) IsNil() bool    { return uuid.UUID(id) == uuid.Nil }
func (id AuditEntryID) IsNil() bool { return uuid.UUID(id) == uuid.Nil }

// parseUUID enforces the shared trust-boundary rules: non-empty, valid UTF-8,
// a parseable UUID, and not the nil UUID.
func parseUUID(s, kind string) (uuid.UUID, error) {
	if s == "" {
		return uuid.Nil, dErrors.New(dErrors.CodeInvalidInput, kind+" id cannot be empty")
	}
	if !utf8.ValidString(s) || len(s) > 64 {
		return uuid.Nil, dErrors.New(dErrors.CodeInvalidInput, "invalid "+kind+" id")
	}
	u, err := uuid.Parse(s)
	if err != nil {
		return uuid.Nil, dErrors.New(dErrors.CodeInvalidInput, "invalid "+kind+" id")
	}
	if u == uuid.Nil {
		return uuid.Nil, dErrors.New(dErrors.CodeInvalidInput, kind+" id cannot be nil")
	}
	return u, nil
}
