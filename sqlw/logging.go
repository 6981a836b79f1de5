package sqlw

import (
	"context"
	"database/sql"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/sirupsen/logrus"

	"github.com/lithictech/go-contentvalidation/logctx"
)

// WithLogging logs every statement at debug level,
// using the logger in the call context or defaultLogger.
func WithLogging(db Interface, defaultLogger *logrus.Entry) Interface {
	if db == nil {
		panic("must provide db")
	}
	if defaultLogger == nil {
		panic("must provide logger")
	}
	return &dblogger{defaultLogger: defaultLogger, db: db}
}

type dblogger struct {
	defaultLogger *logrus.Entry
	db            Interface
}

func (p *dblogger) logger(ctx context.Context) *logrus.Entry {
	if logger := logctx.LoggerOrNil(ctx); logger != nil {
		return logger
	}
	return p.defaultLogger
}

func (p *dblogger) log(ctx context.Context, cmd, q string, args []interface{}, start time.Time) {
	p.logger(ctx).WithFields(logrus.Fields{
		"sql_statement": q,
		"sql_args":      args,
		"sql_elapsed":   time.Since(start).Seconds(),
	}).Debug("sql_" + cmd)
}

func (p *dblogger) ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error) {
	defer p.log(ctx, "exec", query, args, time.Now())
	return p.db.ExecContext(ctx, query, args...)
}

func (p *dblogger) QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error) {
	defer p.log(ctx, "query", query, args, time.Now())
	return p.db.QueryContext(ctx, query, args...)
}

func (p *dblogger) QueryxContext(ctx context.Context, query string, args ...interface{}) (*sqlx.Rows, error) {
	defer p.log(ctx, "queryx", query, args, time.Now())
	return p.db.QueryxContext(ctx, query, args...)
}

func (p *dblogger) QueryRowxContext(ctx context.Context, query string, args ...interface{}) *sqlx.Row {
	defer p.log(ctx, "queryxrow", query, args, time.Now())
	return p.db.QueryRowxContext(ctx, query, args...)
}

func (p *dblogger) Rebind(query string) string {
	return p.db.Rebind(query)
}

func (p *dblogger) DriverName() string {
	return p.db.DriverName()
}
