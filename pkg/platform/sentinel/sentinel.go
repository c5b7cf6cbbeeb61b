package sentinel

import "errors"

// Sentinel errors for infrastructure facts. Stores and adapters return these
// (optionally wrapped) and services translate them into domain error codes.
//
//   - ErrNotFound: row, object, or booking does not exist
//   - ErrConflict: a uniqueness constraint rejected the write
//   - ErrInvalidState: the row is in a state that forbids the write (e.g. already signed)
//   - ErrUnavailable: backend temporarily unreachable or a transaction aborted transiently
var (
	ErrNotFound     = errors.New("not found")
	ErrConflict     = errors.New("conflict")
	ErrInvalidState = errors.New("invalid state")
	ErrUnavailable  = errors.New("unavailable")
)
