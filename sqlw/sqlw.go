// Package sqlw composes behavior (logging, interception) around the
// sqlx calls made by database-backed validators.
package sqlw

import (
	"context"
	"database/sql"

	"github.com/jmoiron/sqlx"
)

// Interface is the subset of *sqlx.DB that schema validators use,
// so wrappers can be layered over it.
type Interface interface {
	sqlx.QueryerContext
	sqlx.ExecerContext
	QueryRowxContext(ctx context.Context, query string, args ...interface{}) *sqlx.Row
	Rebind(query string) string
	DriverName() string
}

var _ Interface = &sqlx.DB{}

// Wrap returns db as a composable Interface.
func Wrap(db *sqlx.DB) Interface {
	if db == nil {
		panic("must provide db")
	}
	return db
}

// Open connects to dsn with driverName, and pings the database.
func Open(ctx context.Context, driverName, dsn string) (Interface, error) {
	db, err := sqlx.ConnectContext(ctx, driverName, dsn)
	if err != nil {
		return nil, err
	}
	return Wrap(db), nil
}

// Exists is true if query returns at least one row.
func Exists(ctx context.Context, db Interface, query string, args ...interface{}) (bool, error) {
	var one interface{}
	err := db.QueryRowxContext(ctx, db.Rebind(query), args...).Scan(&one)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}
