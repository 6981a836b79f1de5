package inputfilter

import (
	"context"
	"fmt"

	"github.com/lithictech/go-contentvalidation/convext"
)

type entry struct {
	name  string
	input *Input
	child Schema
}

// InputFilter is a Schema for a single record: an ordered set of inputs
// and nested schemas.
type InputFilter struct {
	entries []entry
	index   map[string]int

	data      map[string]interface{}
	group     []string
	values    map[string]interface{}
	messages  Messages
	validated bool
}

func New(inputs ...*Input) *InputFilter {
	f := &InputFilter{index: map[string]int{}}
	return f.Add(inputs...)
}

// Add declares inputs, replacing any declared input with the same name.
func (f *InputFilter) Add(inputs ...*Input) *InputFilter {
	for _, in := range inputs {
		f.put(entry{name: in.Name, input: in})
	}
	return f
}

// AddSchema declares a nested schema under name.
// The nested schema receives the submitted value at name
// (or an empty object if none was submitted).
func (f *InputFilter) AddSchema(name string, s Schema) *InputFilter {
	f.put(entry{name: name, child: s})
	return f
}

func (f *InputFilter) put(e entry) {
	if i, ok := f.index[e.name]; ok {
		f.entries[i] = e
		return
	}
	f.index[e.name] = len(f.entries)
	f.entries = append(f.entries, e)
}

func (f *InputFilter) Has(name string) bool {
	_, ok := f.index[name]
	return ok
}

// Names are the declared input names, in declaration order.
func (f *InputFilter) Names() []string {
	names := make([]string, len(f.entries))
	for i, e := range f.entries {
		names[i] = e.name
	}
	return names
}

func (f *InputFilter) SetData(data interface{}) error {
	switch t := data.(type) {
	case nil:
		f.data = map[string]interface{}{}
	case map[string]interface{}:
		f.data = t
	case []interface{}:
		f.data = convext.ListToObject(t)
	default:
		return fmt.Errorf("input filter expects an object or list of values, got %T", data)
	}
	f.values = nil
	f.messages = nil
	f.validated = false
	return nil
}

func (f *InputFilter) SetValidationGroup(group ValidationGroup) error {
	if len(group.Records) > 0 {
		return fmt.Errorf("per-record validation groups require a collection")
	}
	for _, name := range group.Fields {
		if !f.Has(name) {
			return InvalidGroupError{Field: name}
		}
	}
	f.group = append([]string(nil), group.Fields...)
	return nil
}

func (f *InputFilter) activeEntries() []entry {
	if len(f.group) == 0 {
		return f.entries
	}
	result := make([]entry, 0, len(f.group))
	for _, name := range f.group {
		result = append(result, f.entries[f.index[name]])
	}
	return result
}

func (f *InputFilter) IsValid(ctx context.Context) bool {
	f.values = make(map[string]interface{}, len(f.entries))
	f.messages = Messages{}
	for _, e := range f.activeEntries() {
		raw, present := f.data[e.name]
		if e.child != nil {
			f.validateChild(ctx, e, raw, present)
			continue
		}
		value, failures := e.input.Validate(ctx, raw, present)
		f.values[e.name] = value
		if failures != nil {
			f.messages[e.name] = failures
		}
	}
	f.validated = true
	return len(f.messages) == 0
}

func (f *InputFilter) validateChild(ctx context.Context, e entry, raw interface{}, present bool) {
	var childData interface{} = map[string]interface{}{}
	if present && convext.IsNested(raw) {
		childData = raw
	}
	if err := e.child.SetData(childData); err != nil {
		f.messages[e.name] = map[string]string{FailureInvalidData: err.Error()}
		return
	}
	if !e.child.IsValid(ctx) {
		f.messages[e.name] = e.child.Messages()
	}
	f.values[e.name] = e.child.Values()
}

func (f *InputFilter) Messages() Messages {
	if f.messages == nil {
		return Messages{}
	}
	return f.messages
}

// Values returns the filtered values of the active inputs.
// Inputs that were not submitted have a nil value.
// Before IsValid is called, values are filtered but not validated.
func (f *InputFilter) Values() interface{} {
	if f.validated {
		return f.values
	}
	values := make(map[string]interface{}, len(f.entries))
	for _, e := range f.activeEntries() {
		raw, present := f.data[e.name]
		if e.child != nil {
			if present && convext.IsNested(raw) && e.child.SetData(raw) == nil {
				values[e.name] = e.child.Values()
			} else {
				values[e.name] = nil
			}
			continue
		}
		values[e.name] = e.input.FilterValue(raw, present)
	}
	return values
}

func (f *InputFilter) HasUnknown() bool {
	for k := range f.data {
		if !f.Has(k) {
			return true
		}
	}
	return false
}

// Unknown returns submitted fields that are not declared, regardless of the validation group.
func (f *InputFilter) Unknown() map[string]interface{} {
	result := map[string]interface{}{}
	for k, v := range f.data {
		if !f.Has(k) {
			result[k] = v
		}
	}
	return result
}

func (f *InputFilter) Clone() Schema {
	c := &InputFilter{
		entries: make([]entry, len(f.entries)),
		index:   make(map[string]int, len(f.index)),
	}
	for i, e := range f.entries {
		if e.child != nil {
			e.child = Fresh(e.child)
		}
		c.entries[i] = e
		c.index[e.name] = i
	}
	return c
}
