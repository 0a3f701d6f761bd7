// Package tx carries a SQL transaction through context so stores can join a
// transaction started by a service without changing their signatures.
package tx

import (
	"context"
	"database/sql"
	"sync"
	"time"

	dErrors "govportal/pkg/domain-errors"
)

type ctxKey struct{}

var txKey = ctxKey{}

// DefaultTimeout bounds a transaction when the caller set no deadline.
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

// Executor is the subset of *sql.DB and *sql.Tx used by stores.
type Executor interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// Exec returns the transaction in ctx, or db when there is none.
func Exec(ctx context.Context, db *sql.DB) Executor {
	if tx, ok := From(ctx); ok {
		return tx
	}
	return db
}

// Runner executes fn atomically.
type Runner interface {
	RunInTx(ctx context.Context, fn func(ctx context.Context) error) error
}

// Postgres runs functions inside a database transaction.
type Postgres struct {
	db      *sql.DB
	timeout time.Duration
}

// Option configures a Postgres runner.
type Option func(*Postgres)

// WithTimeout overrides DefaultTimeout.
func WithTimeout(d time.Duration) Option {
	return func(p *Postgres) {
		if d > 0 {
			p.timeout = d
		}
	}
}

func NewPostgres(db *sql.DB, opts ...Option) *Postgres {
	p := &Postgres{db: db, timeout: DefaultTimeout}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// RunInTx begins a transaction, exposes it through the context passed to fn,
// and commits when fn returns nil. Nested calls join the outer transaction.
func (p *Postgres) RunInTx(ctx context.Context, fn func(ctx context.Context) error) error {
	if err := ctx.Err(); err != nil {
		return dErrors.Wrap(err, dErrors.CodeTimeout, "transaction aborted: context cancelled")
	}
	if _, ok := From(ctx); ok {
		return fn(ctx)
	}

	if _, hasDeadline := ctx.Deadline(); !hasDeadline {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.timeout)
		defer cancel()
	}

	tx, err := p.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() {
		_ = tx.Rollback()
	}()

	if err := fn(WithTx(ctx, tx)); err != nil {
		return err
	}
	return tx.Commit()
}

type localKey struct{}

// Local serializes units of work for the in-memory stores. Nested calls join
// the outer unit instead of deadlocking.
type Local struct {
	mu sync.Mutex
}

func NewLocal() *Local {
	return &Local{}
}

func (l *Local) RunInTx(ctx context.Context, fn func(ctx context.Context) error) error {
	if err := ctx.Err(); err != nil {
		return dErrors.Wrap(err, dErrors.CodeTimeout, "transaction aborted: context cancelled")
	}
	if owner, ok := ctx.Value(localKey{}).(*Local); ok && owner == l {
		return fn(ctx)
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	return fn(context.WithValue(ctx, localKey{}, l))
}
