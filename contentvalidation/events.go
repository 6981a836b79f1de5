package contentvalidation

import (
	"context"
	"sync"

	"github.com/lithictech/go-contentvalidation/apiproblem"
	"github.com/lithictech/go-contentvalidation/inputfilter"
)

// EventBeforeValidate fires after a schema is selected and before the payload is validated.
const EventBeforeValidate = "contentvalidation.beforevalidate"

// BeforeValidateEvent is passed to EventBeforeValidate listeners.
// Listeners may replace or modify Data; the result is merged over the payload before validation.
type BeforeValidateEvent struct {
	Name    string
	Request *Request
	Schema  inputfilter.Schema
	Data    interface{}
}

// Listener handles an event. Returning a problem stops the event and fails the request with it.
type Listener func(ctx context.Context, e *BeforeValidateEvent) *apiproblem.Problem

// Bus runs listeners synchronously, in subscription order.
type Bus struct {
	mu        sync.RWMutex
	listeners map[string][]Listener
}

func NewBus() *Bus {
	return &Bus{listeners: map[string][]Listener{}}
}

func (b *Bus) Subscribe(event string, l Listener) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.listeners[event] = append(b.listeners[event], l)
}

// FireUntilProblem runs the listeners of event until one returns a problem, and returns it.
func (b *Bus) FireUntilProblem(ctx context.Context, event string, e *BeforeValidateEvent) *apiproblem.Problem {
	b.mu.RLock()
	listeners := b.listeners[event]
	b.mu.RUnlock()
	e.Name = event
	for _, l := range listeners {
		if p := l(ctx, e); p != nil {
			return p
		}
	}
	return nil
}
