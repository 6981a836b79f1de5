// Package dbvalidator provides validators that check input values against database rows,
// like requiring a referenced record to exist, or a unique value to be unused.
package dbvalidator

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/pkg/errors"

	"github.com/lithictech/go-contentvalidation/inputfilter"
	"github.com/lithictech/go-contentvalidation/logctx"
	"github.com/lithictech/go-contentvalidation/sqlw"
)

const (
	RecordExistsName   = "db_record_exists"
	NoRecordExistsName = "db_no_record_exists"
)

// ErrAdapterNotFound is returned when building a validator for an adapter name that was not registered.
var ErrAdapterNotFound = errors.New("database adapter not found")

var identifierRe = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// Exclude skips rows where Field equals Value, such as the record being updated.
type Exclude struct {
	Field string
	Value interface{}
}

// Lookup locates the column a value is checked against.
type Lookup struct {
	Schema  string
	Table   string
	Field   string
	Exclude *Exclude
}

func (l Lookup) query() (string, error) {
	for _, id := range []string{l.Table, l.Field} {
		if !identifierRe.MatchString(id) {
			return "", fmt.Errorf("invalid identifier %q", id)
		}
	}
	table := quote(l.Table)
	if l.Schema != "" {
		if !identifierRe.MatchString(l.Schema) {
			return "", fmt.Errorf("invalid identifier %q", l.Schema)
		}
		table = quote(l.Schema) + "." + table
	}
	q := strings.Builder{}
	q.WriteString("SELECT 1 FROM ")
	q.WriteString(table)
	q.WriteString(" WHERE ")
	q.WriteString(quote(l.Field))
	q.WriteString(" = ?")
	if l.Exclude != nil {
		if !identifierRe.MatchString(l.Exclude.Field) {
			return "", fmt.Errorf("invalid identifier %q", l.Exclude.Field)
		}
		q.WriteString(" AND ")
		q.WriteString(quote(l.Exclude.Field))
		q.WriteString(" <> ?")
	}
	q.WriteString(" LIMIT 1")
	return q.String(), nil
}

func (l Lookup) args(value interface{}) []interface{} {
	if l.Exclude != nil {
		return []interface{}{value, l.Exclude.Value}
	}
	return []interface{}{value}
}

func quote(id string) string {
	return `"` + id + `"`
}

// RecordExists fails unless a row matching the value exists.
// If db is nil, every value fails.
func RecordExists(db sqlw.Interface, l Lookup) (inputfilter.Validator, error) {
	return newValidator(RecordExistsName, db, l, true)
}

// NoRecordExists fails if a row matching the value exists.
func NoRecordExists(db sqlw.Interface, l Lookup) (inputfilter.Validator, error) {
	return newValidator(NoRecordExistsName, db, l, false)
}

var (
	failNoRecord = inputfilter.Failure{Key: "noRecordFound", Message: "No record matching the input was found"}
	failRecord   = inputfilter.Failure{Key: "recordFound", Message: "A record matching the input was found"}
	failRuntime  = inputfilter.Failure{Key: "runtimeError", Message: "The input could not be checked"}
	failNoDB     = inputfilter.Failure{Key: "noAdapter", Message: "No database adapter is configured"}
)

func newValidator(name string, db sqlw.Interface, l Lookup, wantExists bool) (inputfilter.Validator, error) {
	q, err := l.query()
	if err != nil {
		return nil, err
	}
	return inputfilter.NewValidator(name, func(ctx context.Context, value interface{}) error {
		if db == nil {
			return failNoDB
		}
		exists, err := sqlw.Exists(ctx, db, q, l.args(value)...)
		if err != nil {
			logctx.Logger(ctx).WithError(err).WithField("validator", name).Error("db_validator_error")
			return failRuntime
		}
		if wantExists && !exists {
			return failNoRecord
		}
		if !wantExists && exists {
			return failRecord
		}
		return nil
	}), nil
}

// Register adds db_record_exists and db_no_record_exists to r.
// Their options are adapter (a key of adapters, defaulting to the only adapter if there is one),
// table, field, schema, and exclude (an object with field and value).
// Adapters are registered read-only.
func Register(r *inputfilter.ValidatorRegistry, adapters map[string]sqlw.Interface) {
	readonly := make(map[string]sqlw.Interface, len(adapters))
	for k, db := range adapters {
		readonly[k] = sqlw.ReadOnly(db)
	}
	factory := func(wantExists bool) inputfilter.ValidatorFactory {
		name := NoRecordExistsName
		if wantExists {
			name = RecordExistsName
		}
		return func(o inputfilter.Options) (inputfilter.Validator, error) {
			db, err := adapterFor(readonly, o)
			if err != nil {
				return nil, err
			}
			l, err := lookupFor(o)
			if err != nil {
				return nil, err
			}
			return newValidator(name, db, l, wantExists)
		}
	}
	r.Register(RecordExistsName, factory(true))
	r.Register(NoRecordExistsName, factory(false))
}

func adapterFor(adapters map[string]sqlw.Interface, o inputfilter.Options) (sqlw.Interface, error) {
	name, err := o.String("adapter", "")
	if err != nil {
		return nil, err
	}
	if name == "" {
		if len(adapters) == 1 {
			for _, db := range adapters {
				return db, nil
			}
		}
		return nil, nil
	}
	db, ok := adapters[name]
	if !ok {
		return nil, errors.Wrapf(ErrAdapterNotFound, "%q", name)
	}
	return db, nil
}

func lookupFor(o inputfilter.Options) (Lookup, error) {
	var l Lookup
	var err error
	if l.Table, err = o.String("table", ""); err != nil {
		return l, err
	}
	if l.Field, err = o.String("field", ""); err != nil {
		return l, err
	}
	if l.Schema, err = o.String("schema", ""); err != nil {
		return l, err
	}
	if ex, ok := o["exclude"]; ok && ex != nil {
		exm, ok := ex.(map[string]interface{})
		if !ok {
			return l, errors.New("option \"exclude\" must be an object")
		}
		field, _ := exm["field"].(string)
		l.Exclude = &Exclude{Field: field, Value: exm["value"]}
	}
	return l, nil
}
