package inputfilter

import (
	"context"
	"fmt"
)

// Messages are validation failures.
// For a single record, it maps field name to a map of failure key to message
// (or to nested Messages for nested schemas).
// For a collection, it maps record key to that record's Messages.
type Messages map[string]interface{}

// ValidationGroup restricts validation to a subset of fields.
// Fields applies to a single record (or to every record of a collection),
// Records applies a per-record subset to a collection, keyed by record key.
type ValidationGroup struct {
	Fields  []string
	Records map[string][]string
}

func (g ValidationGroup) IsZero() bool {
	return len(g.Fields) == 0 && len(g.Records) == 0
}

// InvalidGroupError is returned from SetValidationGroup when a field name
// in the group is not declared by the schema.
type InvalidGroupError struct {
	Field string
}

func (e InvalidGroupError) Error() string {
	return fmt.Sprintf(`validation group expects a list of valid input names; "%s" was not found`, e.Field)
}

// Schema validates and filters a decoded payload.
type Schema interface {
	// SetData sets the payload to validate.
	// Object-shaped data is a map[string]interface{};
	// lists are []interface{}. nil is treated as an empty object.
	SetData(data interface{}) error
	// IsValid validates the data set with SetData.
	IsValid(ctx context.Context) bool
	// SetValidationGroup restricts validation to the given fields.
	// It returns an InvalidGroupError for undeclared field names.
	SetValidationGroup(group ValidationGroup) error
	// Messages returns the failures from the last IsValid.
	Messages() Messages
	// Values returns the filtered values.
	Values() interface{}
}

// UnknownReporter is implemented by schemas that can report
// submitted fields they do not declare.
// For a collection, Unknown maps record key to that record's unknown fields.
type UnknownReporter interface {
	HasUnknown() bool
	Unknown() map[string]interface{}
}

// CollectionSchema is implemented by schemas that validate a list of records,
// each using RecordSchema.
type CollectionSchema interface {
	Schema
	RecordSchema() Schema
}

// Cloner is implemented by schemas that can copy their definition
// into a new schema with no data, group, or results.
type Cloner interface {
	Clone() Schema
}

// Fresh returns a copy of s ready for a new use if s is a Cloner.
// Otherwise s itself is returned, and it must be safe to share.
func Fresh(s Schema) Schema {
	if c, ok := s.(Cloner); ok {
		return c.Clone()
	}
	return s
}

// IsCollection is true if s already validates lists of records.
func IsCollection(s Schema) bool {
	_, ok := s.(CollectionSchema)
	return ok
}
