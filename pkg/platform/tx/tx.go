package tx

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

type ctxKey struct{}

var txKey = ctxKey{}

// DefaultTimeout bounds a transaction when the caller supplied no deadline.
const DefaultTimeout = 5 * time.Second

// WithTx stores a SQL transaction in context for downstream store usage.
func WithTx(ctx context.Context, tx *sql.Tx) context.Context {
	if tx == nil {
		return ctx
	}
	return context.WithValue(ctx, txKey, tx)
}

// From extracts a SQL transaction from context if present.
func From(ctx context.Context) (*sql.Tx, bool) {
	tx, ok := ctx.Value(txKey).(*sql.Tx)
	return tx, ok
}

// Runner opens one database transaction per RunInTx call. Nested calls reuse
// the transaction already present in the context.
type Runner struct {
	db      *sql.DB
	timeout time.Duration
	opts    *sql.TxOptions
}

// Option configures a Runner.
type Option func(*Runner)

// WithTimeout overrides DefaultTimeout.
func WithTimeout(d time.Duration) Option {
	return func(r *Runner) {
		if d > 0 {
			r.timeout = d
		}
	}
}

// WithIsolation sets the isolation level for transactions started by the runner.
func WithIsolation(level sql.IsolationLevel) Option {
	return func(r *Runner) {
		r.opts = &sql.TxOptions{Isolation: level}
	}
}

func NewRunner(db *sql.DB, opts ...Option) *Runner {
	r := &Runner{db: db, timeout: DefaultTimeout}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// RunInTx executes fn inside a transaction carried by the context passed to fn.
// The transaction commits when fn returns nil and rolls back otherwise.
func (r *Runner) RunInTx(ctx context.Context, fn func(ctx context.Context) error) error {
	if _, ok := From(ctx); ok {
		return fn(ctx)
	}
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("transaction aborted: %w", err)
	}
	if _, hasDeadline := ctx.Deadline(); !hasDeadline {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.timeout)
		defer cancel()
	}

	sqlTx, err := r.db.BeginTx(ctx, r.opts)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() {
		_ = sqlTx.Rollback()
	}()

	if err := fn(WithTx(ctx, sqlTx)); err != nil {
		return err
	}
	if err := sqlTx.Commit(); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}
