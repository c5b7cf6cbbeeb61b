package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	id "ranchdesk/pkg/domain"
	audit "ranchdesk/pkg/platform/audit"
	txcontext "ranchdesk/pkg/platform/tx"

	"github.com/google/uuid"
	"github.com/lib/pq"
)

// Store implements audit.Store on the audit_log table. The table rejects
// UPDATE and DELETE through a trigger; this type only ever inserts.
type Store struct {
	db *sql.DB
}

// New creates a PostgreSQL audit store.
func New(db *sql.DB) *Store {
	return &Store{db: db}
}

type dbExecutor interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func (s *Store) execer(ctx context.Context) dbExecutor {
	if tx, ok := txcontext.From(ctx); ok {
		return tx
	}
	return s.db
}

const selectColumns = `SELECT id, seq, entity_type, entity_id, action, metadata, created_at FROM audit_log`

// Append inserts the entry and returns once the insert is committed (or is
// part of the caller's transaction). Seq is assigned by the database.
func (s *Store) Append(ctx context.Context, entry *audit.Entry) error {
	metadata, err := json.Marshal(entry.Metadata)
	if err != nil {
		return fmt.Errorf("marshal audit metadata: %w", err)
	}
	query := `
		INSERT INTO audit_log (id, entity_type, entity_id, action, metadata, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING seq
	`
	err = s.execer(ctx).QueryRowContext(ctx, query,
		uuid.UUID(entry.ID),
		string(entry.EntityType),
		entry.EntityID,
		string(entry.Action),
		metadata,
		entry.Timestamp,
	).Scan(&entry.Seq)
	if err != nil {
		return fmt.Errorf("insert audit entry: %w", err)
	}
	return nil
}

func (s *Store) FindForEntity(ctx context.Context, entityType audit.EntityType, entityID string) ([]audit.Entry, error) {
	query := selectColumns + `
		WHERE entity_type = $1 AND entity_id = $2
		ORDER BY created_at ASC, seq ASC
	`
	rows, err := s.execer(ctx).QueryContext(ctx, query, string(entityType), entityID)
	if err != nil {
		return nil, fmt.Errorf("query audit entries: %w", err)
	}
	defer rows.Close()
	return scanEntries(rows)
}

func (s *Store) FindForEntityByActions(ctx context.Context, entityType audit.EntityType, entityID string, actions []audit.Action) ([]audit.Entry, error) {
	names := make([]string, len(actions))
	for i, a := range actions {
		names[i] = string(a)
	}
	query := selectColumns + `
		WHERE entity_type = $1 AND entity_id = $2 AND action = ANY($3)
		ORDER BY created_at ASC, seq ASC
	`
	rows, err := s.execer(ctx).QueryContext(ctx, query, string(entityType), entityID, pq.Array(names))
	if err != nil {
		return nil, fmt.Errorf("query audit entries by action: %w", err)
	}
	defer rows.Close()
	return scanEntries(rows)
}

func (s *Store) FindLatestForEntity(ctx context.Context, entityType audit.EntityType, entityID string) (*audit.Entry, error) {
	query := selectColumns + `
		WHERE entity_type = $1 AND entity_id = $2
		ORDER BY created_at DESC, seq DESC
		LIMIT 1
	`
	entry, err := scanEntry(s.execer(ctx).QueryRowContext(ctx, query, string(entityType), entityID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("query latest audit entry: %w", err)
	}
	return entry, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanEntry(row scanner) (*audit.Entry, error) {
	var (
		entryID    uuid.UUID
		entityType string
		action     string
		metadata   []byte
		entry      audit.Entry
	)
	if err := row.Scan(&entryID, &entry.Seq, &entityType, &entry.EntityID, &action, &metadata, &entry.Timestamp); err != nil {
		return nil, err
	}
	entry.ID = id.AuditEntryID(entryID)
	entry.EntityType = audit.EntityType(entityType)
	entry.Action = audit.Action(action)
	entry.Timestamp = entry.Timestamp.UTC()
	entry.Metadata = map[string]string{}
	if len(metadata) > 0 {
		if err := json.Unmarshal(metadata, &entry.Metadata); err != nil {
			return nil, fmt.Errorf("unmarshal audit metadata: %w", err)
		}
	}
	return &entry, nil
}

func scanEntries(rows *sql.Rows) ([]audit.Entry, error) {
	var entries []audit.Entry
	for rows.Next() {
		entry, err := scanEntry(rows)
		if err != nil {
			return nil, fmt.Errorf("scan audit entry: %w", err)
		}
		entries = append(entries, *entry)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate audit entries: %w", err)
	}
	return entries, nil
}
