package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"ranchdesk/internal/contract/models"
	"ranchdesk/internal/platform/postgres"
	id "ranchdesk/pkg/domain"
	"ranchdesk/pkg/platform/sentinel"
	txcontext "ranchdesk/pkg/platform/tx"
)

const bookingUniqueConstraint = "contracts_booking_id_key"

// PostgresStore persists contracts in PostgreSQL. Methods join the
// transaction carried by ctx when there is one.
type PostgresStore struct {
	db     *sql.DB
	runner *txcontext.Runner
}

// NewPostgres constructs a PostgreSQL-backed contract store.
func NewPostgres(db *sql.DB, opts ...txcontext.Option) *PostgresStore {
	return &PostgresStore{db: db, runner: txcontext.NewRunner(db, opts...)}
}

type dbExecutor interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func (s *PostgresStore) execer(ctx context.Context) dbExecutor {
	if tx, ok := txcontext.From(ctx); ok {
		return tx
	}
	return s.db
}

// RunInTx wraps fn in a transaction. Nested calls reuse the outer one.
// Serialization failures and deadlocks come back as sentinel.ErrUnavailable.
func (s *PostgresStore) RunInTx(ctx context.Context, fn func(ctx context.Context) error) error {
	return classifyTxErr(s.runner.RunInTx(ctx, fn))
}

func classifyTxErr(err error) error {
	if err == nil || !postgres.IsRetryable(err) || errors.Is(err, sentinel.ErrUnavailable) {
		return err
	}
	return fmt.Errorf("contract transaction: %w: %w", sentinel.ErrUnavailable, err)
}

const selectContract = `
	SELECT id, booking_id, path, hash, status, signed_path, signed_hash, signed_at, created_at, updated_at
	FROM contracts
`

func (s *PostgresStore) FindByID(ctx context.Context, contractID id.ContractID) (*models.Contract, error) {
	return s.findOne(ctx, selectContract+`WHERE id = $1`, uuid.UUID(contractID))
}

func (s *PostgresStore) FindByBookingID(ctx context.Context, bookingID id.BookingID) (*models.Contract, error) {
	return s.findOne(ctx, selectContract+`WHERE booking_id = $1`, uuid.UUID(bookingID))
}

// FindByBookingIDForUpdate locks the row until the surrounding transaction
// ends. Outside a transaction the lock is released immediately.
func (s *PostgresStore) FindByBookingIDForUpdate(ctx context.Context, bookingID id.BookingID) (*models.Contract, error) {
	return s.findOne(ctx, selectContract+`WHERE booking_id = $1 FOR UPDATE`, uuid.UUID(bookingID))
}

func (s *PostgresStore) findOne(ctx context.Context, query string, arg any) (*models.Contract, error) {
	c, err := scanContract(s.execer(ctx).QueryRowContext(ctx, query, arg))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, sentinel.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("find contract: %w", err)
	}
	return c, nil
}

// Create inserts a new contract. A second contract for the same booking
// fails with sentinel.ErrConflict.
func (s *PostgresStore) Create(ctx context.Context, c *models.Contract) error {
	query := `
		INSERT INTO contracts (id, booking_id, path, hash, status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`
	_, err := s.execer(ctx).ExecContext(ctx, query,
		uuid.UUID(c.ID),
		uuid.UUID(c.BookingID),
		c.Path,
		c.Hash,
		string(c.Status),
		c.CreatedAt,
		c.UpdatedAt,
	)
	if postgres.IsUniqueViolation(err, bookingUniqueConstraint) {
		return fmt.Errorf("contract for booking %s: %w", c.BookingID, sentinel.ErrConflict)
	}
	if err != nil {
		return fmt.Errorf("insert contract: %w", err)
	}
	return nil
}

// UpdateArtifact replaces path, hash and status. Signed rows are never
// touched; updating one returns sentinel.ErrInvalidState.
func (s *PostgresStore) UpdateArtifact(ctx context.Context, c *models.Contract) error {
	query := `
		UPDATE contracts
		SET path = $2, hash = $3, status = $4, updated_at = $5
		WHERE id = $1 AND status <> 'SIGNED'
	`
	res, err := s.execer(ctx).ExecContext(ctx, query, uuid.UUID(c.ID), c.Path, c.Hash, string(c.Status), c.UpdatedAt)
	if err != nil {
		return fmt.Errorf("update contract artifact: %w", err)
	}
	return s.expectOneRow(ctx, res, c.ID)
}

// MarkSigned records the signer's artifact. It succeeds once per contract.
func (s *PostgresStore) MarkSigned(ctx context.Context, c *models.Contract) error {
	query := `
		UPDATE contracts
		SET status = 'SIGNED', signed_path = $2, signed_hash = $3, signed_at = $4, updated_at = $5
		WHERE id = $1 AND status <> 'SIGNED' AND signed_path IS NULL
	`
	res, err := s.execer(ctx).ExecContext(ctx, query, uuid.UUID(c.ID), c.SignedPath, c.SignedHash, c.SignedAt, c.UpdatedAt)
	if err != nil {
		return fmt.Errorf("mark contract signed: %w", err)
	}
	return s.expectOneRow(ctx, res, c.ID)
}

func (s *PostgresStore) expectOneRow(ctx context.Context, res sql.Result, contractID id.ContractID) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 1 {
		return nil
	}
	if _, err := s.FindByID(ctx, contractID); err != nil {
		return err
	}
	return fmt.Errorf("contract %s is signed: %w", contractID, sentinel.ErrInvalidState)
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanContract(row rowScanner) (*models.Contract, error) {
	var (
		contractID uuid.UUID
		bookingID  uuid.UUID
		status     string
		signedPath sql.NullString
		signedHash sql.NullString
		signedAt   sql.NullTime
		c          models.Contract
	)
	if err := row.Scan(&contractID, &bookingID, &c.Path, &c.Hash, &status,
		&signedPath, &signedHash, &signedAt, &c.CreatedAt, &c.UpdatedAt); err != nil {
		return nil, err
	}
	c.ID = id.ContractID(contractID)
	c.BookingID = id.BookingID(bookingID)
	c.Status = models.Status(status)
	if !c.Status.IsValid() {
		return nil, fmt.Errorf("contract %s has unknown status %q", c.ID, status)
	}
	c.SignedPath = signedPath.String
	c.SignedHash = signedHash.String
	if signedAt.Valid {
		t := signedAt.Time.UTC()
		c.SignedAt = &t
	}
	c.CreatedAt = c.CreatedAt.UTC()
	c.UpdatedAt = c.UpdatedAt.UTC()
	return &c, nil
}
