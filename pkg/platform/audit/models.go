// Package audit implements the append-only audit trail.
//
// Entries are created once and never mutated or deleted. Ordering within an
// entity is by Timestamp ascending with ties broken by Seq, the insertion
// sequence assigned by the primary store at append time.
package audit

import (
	"context"
	"maps"
	"time"

	id "ranchdesk/pkg/domain"
)

// EntityType names the kind of entity an entry is recorded against.
type EntityType string

const (
	EntityContract EntityType = "CONTRACT"
)

// Action names what happened to the entity.
type Action string

const (
	ActionContractGenerated Action = "CONTRACT_GENERATED"
	ActionContractVerified  Action = "CONTRACT_VERIFIED"
	ActionContractSigned    Action = "CONTRACT_SIGNED"
)

// Entity identifies the subject of an audit entry.
type Entity struct {
	Type EntityType
	ID   string
}

// ContractEntity is a convenience constructor for contract trails.
func ContractEntity(contractID id.ContractID) Entity {
	return Entity{Type: EntityContract, ID: contractID.String()}
}

// Entry is one immutable audit record.
type Entry struct {
	ID         id.AuditEntryID
	Seq        int64
	EntityType EntityType
	EntityID   string
	Action     Action
	Timestamp  time.Time
	Metadata   map[string]string
}

// Clone returns a copy whose metadata map is not shared with e.
func (e Entry) Clone() Entry {
	e.Metadata = maps.Clone(e.Metadata)
	if e.Metadata == nil {
		e.Metadata = map[string]string{}
	}
	return e
}

// Before reports whether e sorts before other in trail order.
func (e Entry) Before(other Entry) bool {
	if e.Timestamp.Equal(other.Timestamp) {
		return e.Seq < other.Seq
	}
	return e.Timestamp.Before(other.Timestamp)
}

// Store is the durable primary backend. Append must not return until the
// entry is recoverable by a later read; it assigns entry.Seq.
type Store interface {
	Append(ctx context.Context, entry *Entry) error
	FindForEntity(ctx context.Context, entityType EntityType, entityID string) ([]Entry, error)
	FindForEntityByActions(ctx context.Context, entityType EntityType, entityID string, actions []Action) ([]Entry, error)
	FindLatestForEntity(ctx context.Context, entityType EntityType, entityID string) (*Entry, error)
}

// Mirror is a secondary, independently fallible append target.
type Mirror interface {
	Name() string
	Append(ctx context.Context, entry Entry) error
}
