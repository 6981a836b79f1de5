package sqlw

import (
	"context"
	"database/sql"
	"errors"

	"github.com/jmoiron/sqlx"
)

type Interceptor func(ctx context.Context, query string, args []interface{}) error

// WithInterceptor calls interceptor before each statement,
// and returns its error instead of running the statement.
// QueryRowxContext cannot return an error, so it panics with it.
// Usually this is used for mocking and for refusing writes.
func WithInterceptor(db Interface, interceptor Interceptor) Interface {
	return &dbintercept{interceptor: interceptor, db: db}
}

// ReadOnly refuses any ExecContext call with ErrReadOnly.
func ReadOnly(db Interface) Interface {
	return &readonly{Interface: db}
}

var ErrReadOnly = errors.New("statement refused by read-only connection")

type readonly struct {
	Interface
}

func (r *readonly) ExecContext(context.Context, string, ...interface{}) (sql.Result, error) {
	return nil, ErrReadOnly
}

type dbintercept struct {
	interceptor Interceptor
	db          Interface
}

func (p *dbintercept) ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error) {
	if err := p.interceptor(ctx, query, args); err != nil {
		return nil, err
	}
	return p.db.ExecContext(ctx, query, args...)
}

func (p *dbintercept) QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error) {
	if err := p.interceptor(ctx, query, args); err != nil {
		return nil, err
	}
	return p.db.QueryContext(ctx, query, args...)
}

func (p *dbintercept) QueryxContext(ctx context.Context, query string, args ...interface{}) (*sqlx.Rows, error) {
	if err := p.interceptor(ctx, query, args); err != nil {
		return nil, err
	}
	return p.db.QueryxContext(ctx, query, args...)
}

func (p *dbintercept) QueryRowxContext(ctx context.Context, query string, args ...interface{}) *sqlx.Row {
	if err := p.interceptor(ctx, query, args); err != nil {
		panic(err)
	}
	return p.db.QueryRowxContext(ctx, query, args...)
}

func (p *dbintercept) Rebind(query string) string {
	return p.db.Rebind(query)
}

func (p *dbintercept) DriverName() string {
	return p.db.DriverName()
}

var _ Interface = &dbintercept{}
