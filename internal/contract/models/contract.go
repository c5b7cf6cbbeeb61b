package models

import (
	"time"

	id "ranchdesk/pkg/domain"
	dErrors "ranchdesk/pkg/domain-errors"
)

// Contract is the generated legal document for one booking.
//
// Invariants:
//   - At most one Contract per BookingID (UNIQUE in storage)
//   - Hash is the SHA-256 of the bytes stored at Path, computed by the generator
//   - Path and Hash change only while Status != SIGNED
//   - SignedPath, SignedHash and SignedAt are write-once; SignedHash is supplied
//     by the signer and never recomputed here
//
// A Contract value with Status QUEUED exists only in memory between id
// allocation and the first artifact write; storage never holds QUEUED rows.
type Contract struct {
	ID         id.ContractID `json:"id"`
	BookingID  id.BookingID  `json:"booking_id"`
	Path       string        `json:"path"`
	Hash       string        `json:"hash"`
	Status     Status        `json:"status"`
	SignedPath string        `json:"signed_path,omitempty"`
	SignedHash string        `json:"signed_hash,omitempty"`
	SignedAt   *time.Time    `json:"signed_at,omitempty"`
	CreatedAt  time.Time     `json:"created_at"`
	UpdatedAt  time.Time     `json:"updated_at"`
}

// NewContract allocates a QUEUED contract for a booking.
func NewContract(contractID id.ContractID, bookingID id.BookingID, now time.Time) (*Contract, error) {
	if contractID.IsNil() {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "contract id cannot be nil")
	}
	if bookingID.IsNil() {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "booking id cannot be nil")
	}
	return &Contract{
		ID:        contractID,
		BookingID: bookingID,
		Status:    StatusQueued,
		CreatedAt: now,
		UpdatedAt: now,
	}, nil
}

func (c *Contract) IsSigned() bool {
	return c.Status == StatusSigned
}

// HasSignedArtifact reports whether a signer has recorded a signed document.
func (c *Contract) HasSignedArtifact() bool {
	return c.SignedPath != ""
}

// ApplyArtifact records a freshly written unsigned artifact. On a SIGNED
// contract it changes nothing and returns false.
func (c *Contract) ApplyArtifact(path, hash string, now time.Time) (bool, error) {
	next, err := Transition(c.Status, EventArtifactWritten)
	if err != nil {
		return false, err
	}
	if c.Status == StatusSigned {
		return false, nil
	}
	c.Path = path
	c.Hash = hash
	c.Status = next
	c.UpdatedAt = now
	return true, nil
}

// SignedArtifact is what an external signer reports once signing completes.
type SignedArtifact struct {
	Path     string
	Hash     string
	SignedAt time.Time
}

// Validate checks the signer's report is complete.
func (s SignedArtifact) Validate() error {
	if s.Path == "" {
		return dErrors.New(dErrors.CodeInvalidInput, "signed_path is required")
	}
	if !isSHA256Hex(s.Hash) {
		return dErrors.New(dErrors.CodeInvalidInput, "signed_hash must be a lowercase hex SHA-256 digest")
	}
	if s.SignedAt.IsZero() {
		return dErrors.New(dErrors.CodeInvalidInput, "signed_at is required")
	}
	return nil
}

// ApplySignature moves a GENERATED contract to SIGNED. Signature fields are
// write-once: a second call fails with CodeConflict.
func (c *Contract) ApplySignature(s SignedArtifact, now time.Time) error {
	if c.IsSigned() || c.HasSignedArtifact() {
		return dErrors.New(dErrors.CodeConflict, "contract is already signed")
	}
	next, err := Transition(c.Status, EventSigned)
	if err != nil {
		return err
	}
	signedAt := s.SignedAt.UTC()
	c.SignedPath = s.Path
	c.SignedHash = s.Hash
	c.SignedAt = &signedAt
	c.Status = next
	c.UpdatedAt = now
	return nil
}

func isSHA256Hex(s string) bool {
	if len(s) != 64 {
		return false
	}
	for _, r := range s {
		if (r < '0' || r > '9') && (r < 'a' || r > 'f') {
			return false
		}
	}
	return true
}
