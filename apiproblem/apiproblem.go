/*
Package apiproblem is the problem response returned whenever request validation
short-circuits a request.

It renders as application/problem+json:

	{
	  "type": "http://www.w3.org/Protocols/rfc2616/rfc2616-sec10.html",
	  "title": "Unprocessable Entity",
	  "status": 422,
	  "detail": "Failed Validation",
	  "validation_messages": {"foo": {"isEmpty": "Value is required and can't be empty"}}
	}

A Problem is also an error, so it can be returned from echo handlers
and passed through by api.NewHTTPErrorHandler.
*/
package apiproblem

import (
	"fmt"
	"net/http"

	"github.com/goccy/go-json"
)

const ContentType = "application/problem+json"

const DefaultType = "http://www.w3.org/Protocols/rfc2616/rfc2616-sec10.html"

// ValidationMessagesKey is the key validation messages are rendered under.
const ValidationMessagesKey = "validation_messages"

type Problem struct {
	Status int
	Type   string
	Title  string
	Detail string
	// Additional members are rendered alongside the standard ones.
	// They cannot override status, type, title or detail.
	Additional map[string]interface{}
}

// New returns a problem with the given status and detail.
// The title is the status text for the status code.
func New(status int, detail string) *Problem {
	return &Problem{
		Status: status,
		Type:   DefaultType,
		Title:  http.StatusText(status),
		Detail: detail,
	}
}

// Newf is New with a format string.
func Newf(status int, format string, args ...interface{}) *Problem {
	return New(status, fmt.Sprintf(format, args...))
}

// NewValidation returns a 422 "Failed Validation" problem carrying messages.
func NewValidation(messages interface{}) *Problem {
	p := New(http.StatusUnprocessableEntity, "Failed Validation")
	return p.With(ValidationMessagesKey, messages)
}

// With sets an additional member and returns the problem.
func (p *Problem) With(key string, value interface{}) *Problem {
	if p.Additional == nil {
		p.Additional = make(map[string]interface{}, 1)
	}
	p.Additional[key] = value
	return p
}

// ValidationMessages returns the validation_messages member, or nil.
func (p *Problem) ValidationMessages() interface{} {
	if p.Additional == nil {
		return nil
	}
	return p.Additional[ValidationMessagesKey]
}

func (p *Problem) Error() string {
	return fmt.Sprintf("[%d] %s: %s", p.Status, p.Title, p.Detail)
}

func (p *Problem) ToMap() map[string]interface{} {
	m := make(map[string]interface{}, len(p.Additional)+4)
	for k, v := range p.Additional {
		m[k] = v
	}
	typ := p.Type
	if typ == "" {
		typ = DefaultType
	}
	title := p.Title
	if title == "" {
		title = http.StatusText(p.Status)
	}
	m["type"] = typ
	m["title"] = title
	m["status"] = p.Status
	m["detail"] = p.Detail
	return m
}

func (p *Problem) MarshalJSON() ([]byte, error) {
	return json.Marshal(p.ToMap())
}
