package models

import "time"

// ValidationStatus classifies a contract's signature trust state.
type ValidationStatus string

const (
	ValidationValid    ValidationStatus = "VALID"
	ValidationTampered ValidationStatus = "TAMPERED"
	ValidationUnsigned ValidationStatus = "UNSIGNED"
	ValidationExpired  ValidationStatus = "EXPIRED"
)

// ValidationResult is the outcome of one validation. It is not stored; the
// validation itself is recorded as a CONTRACT_VERIFIED audit entry.
type ValidationResult struct {
	Status         ValidationStatus `json:"status"`
	CalculatedHash string           `json:"calculated_hash"`
	CheckedAt      time.Time        `json:"checked_at"`
}

// ExpiryPolicy decides whether a signature is still within its validity
// window. signedAt is never nil when called.
type ExpiryPolicy interface {
	Expired(signedAt time.Time, now time.Time) bool
}

// NoExpiry keeps signatures valid forever.
type NoExpiry struct{}

func (NoExpiry) Expired(time.Time, time.Time) bool { return false }

// FixedWindow expires a signature once Window has elapsed since signing.
type FixedWindow struct {
	Window time.Duration
}

func (f FixedWindow) Expired(signedAt time.Time, now time.Time) bool {
	return now.Sub(signedAt) > f.Window
}

// PolicyFor returns NoExpiry for a zero window and FixedWindow otherwise.
func PolicyFor(window time.Duration) ExpiryPolicy {
	if window <= 0 {
		return NoExpiry{}
	}
	return FixedWindow{Window: window}
}
