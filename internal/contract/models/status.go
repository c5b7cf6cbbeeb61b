package models

import (
	dErrors "ranchdesk/pkg/domain-errors"
)

// Status is the contract lifecycle state.
type Status string

const (
	StatusQueued    Status = "QUEUED"
	StatusGenerated Status = "GENERATED"
	StatusSigned    Status = "SIGNED"
)

func (s Status) IsValid() bool {
	switch s {
	case StatusQueued, StatusGenerated, StatusSigned:
		return true
	}
	return false
}

func (s Status) String() string { return string(s) }

// Event drives a status transition.
type Event string

const (
	// EventArtifactWritten fires when the generator stores a new unsigned artifact.
	EventArtifactWritten Event = "artifact_written"
	// EventSigned fires when an external signer reports a completed signature.
	EventSigned Event = "signed"
)

// Transition is total over every (status, event) pair:
//
//	QUEUED    + artifact_written -> GENERATED
//	GENERATED + artifact_written -> GENERATED
//	SIGNED    + artifact_written -> SIGNED     (no-op)
//	GENERATED + signed           -> SIGNED
//	SIGNED    + signed           -> SIGNED     (no-op)
//	QUEUED    + signed           -> error      (nothing to sign)
//
// Unknown statuses or events are invariant violations.
func Transition(from Status, ev Event) (Status, error) {
	switch ev {
	case EventArtifactWritten:
		switch from {
		case StatusQueued, StatusGenerated:
			return StatusGenerated, nil
		case StatusSigned:
			return StatusSigned, nil
		}
	case EventSigned:
		switch from {
		case StatusGenerated, StatusSigned:
			return StatusSigned, nil
		case StatusQueued:
			return from, dErrors.New(dErrors.CodeInvariantViolation, "cannot sign a contract that has no artifact")
		}
	default:
		return from, dErrors.New(dErrors.CodeInvariantViolation, "unknown contract event: "+string(ev))
	}
	return from, dErrors.New(dErrors.CodeInvariantViolation, "unknown contract status: "+string(from))
}
