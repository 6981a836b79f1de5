package contentvalidation

import (
	"github.com/lithictech/go-contentvalidation/apiproblem"
	"github.com/lithictech/go-contentvalidation/inputfilter"
)

// DataContainer holds a request's decoded parameters.
// Body params are read before validation, and the final data is written with SetBodyParams.
type DataContainer interface {
	QueryParams() map[string]interface{}
	BodyParams() interface{}
	SetBodyParams(data interface{})
}

// FieldOrderer is implemented by data containers that remember the order fields were submitted in.
// FieldOrder returns the keys of the object at path (the root object for an empty path),
// in submission order, or nil if unknown.
type FieldOrderer interface {
	FieldOrder(path ...string) []string
}

// Request is what the dispatcher needs to know about a routed request.
type Request struct {
	Method string
	// ServiceID identifies the matched controller/service. Requests without one are not validated.
	ServiceID   string
	RouteParams map[string]string
	// Data is the request's parameter container. A nil Data fails dispatch with a 500.
	Data DataContainer
	// Files is uploaded file metadata keyed by form field.
	Files map[string]interface{}
}

// Outcome is the result of Dispatch.
// A nil Problem means the request may proceed.
type Outcome struct {
	Problem *apiproblem.Problem
	// Schema is the schema the request was validated with.
	// It is nil when validation was skipped.
	Schema inputfilter.Schema
	// Data is the data written to the container on success.
	Data interface{}
}

func (o Outcome) Passed() bool {
	return o.Problem == nil
}

func (o Outcome) Skipped() bool {
	return o.Problem == nil && o.Schema == nil
}
