package inputfilter

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"

	"github.com/xeipuuv/gojsonschema"

	"github.com/lithictech/go-contentvalidation/convext"
)

const jsonSchemaRoot = "(root)"

// compiledJSONSchema is shared by every copy of a JSONSchema.
type compiledJSONSchema struct {
	doc        map[string]interface{}
	full       *gojsonschema.Schema
	properties map[string]bool

	mu      sync.Mutex
	partial map[string]*gojsonschema.Schema
}

// JSONSchema is a Schema for a single record described by a JSON Schema document.
// Declared fields are the document's top-level properties.
// With a validation group, only the grouped properties are required.
type JSONSchema struct {
	c *compiledJSONSchema

	data     map[string]interface{}
	group    []string
	messages Messages
}

func NewJSONSchema(doc map[string]interface{}) (*JSONSchema, error) {
	full, err := gojsonschema.NewSchema(gojsonschema.NewGoLoader(doc))
	if err != nil {
		return nil, fmt.Errorf("invalid json schema: %w", err)
	}
	c := &compiledJSONSchema{
		doc:        doc,
		full:       full,
		properties: map[string]bool{},
		partial:    map[string]*gojsonschema.Schema{},
	}
	if props, ok := doc["properties"].(map[string]interface{}); ok {
		for k := range props {
			c.properties[k] = true
		}
	}
	return &JSONSchema{c: c}, nil
}

func NewJSONSchemaString(s string) (*JSONSchema, error) {
	var doc map[string]interface{}
	if err := json.Unmarshal([]byte(s), &doc); err != nil {
		return nil, fmt.Errorf("invalid json schema: %w", err)
	}
	return NewJSONSchema(doc)
}

func (j *JSONSchema) Has(name string) bool {
	return j.c.properties[name]
}

func (j *JSONSchema) SetData(data interface{}) error {
	switch t := data.(type) {
	case nil:
		j.data = map[string]interface{}{}
	case map[string]interface{}:
		j.data = t
	case []interface{}:
		j.data = convext.ListToObject(t)
	default:
		return fmt.Errorf("json schema expects an object, got %T", data)
	}
	j.messages = nil
	return nil
}

func (j *JSONSchema) SetValidationGroup(group ValidationGroup) error {
	if len(group.Records) > 0 {
		return fmt.Errorf("per-record validation groups require a collection")
	}
	for _, name := range group.Fields {
		if !j.Has(name) {
			return InvalidGroupError{Field: name}
		}
	}
	j.group = append([]string(nil), group.Fields...)
	return nil
}

func (j *JSONSchema) schema() (*gojsonschema.Schema, error) {
	if len(j.group) == 0 {
		return j.c.full, nil
	}
	key := strings.Join(j.group, "\x00")
	j.c.mu.Lock()
	defer j.c.mu.Unlock()
	if s, ok := j.c.partial[key]; ok {
		return s, nil
	}
	doc := convext.DeepCopyObject(j.c.doc)
	grouped := make(map[string]bool, len(j.group))
	for _, g := range j.group {
		grouped[g] = true
	}
	if req, ok := doc["required"].([]interface{}); ok {
		kept := make([]interface{}, 0, len(req))
		for _, r := range req {
			if name, ok := r.(string); ok && grouped[name] {
				kept = append(kept, name)
			}
		}
		if len(kept) == 0 {
			delete(doc, "required")
		} else {
			doc["required"] = kept
		}
	}
	s, err := gojsonschema.NewSchema(gojsonschema.NewGoLoader(doc))
	if err != nil {
		return nil, err
	}
	j.c.partial[key] = s
	return s, nil
}

func (j *JSONSchema) IsValid(_ context.Context) bool {
	j.messages = Messages{}
	schema, err := j.schema()
	if err != nil {
		j.messages[jsonSchemaRoot] = map[string]string{FailureInvalidData: err.Error()}
		return false
	}
	result, err := schema.Validate(gojsonschema.NewGoLoader(j.Values()))
	if err != nil {
		j.messages[jsonSchemaRoot] = map[string]string{FailureInvalidData: err.Error()}
		return false
	}
	for _, re := range result.Errors() {
		field := re.Field()
		if re.Type() == "required" {
			if prop, ok := re.Details()["property"].(string); ok {
				if field == jsonSchemaRoot {
					field = prop
				} else {
					field = field + "." + prop
				}
			}
		}
		fm, ok := j.messages[field].(map[string]string)
		if !ok {
			fm = map[string]string{}
			j.messages[field] = fm
		}
		fm[re.Type()] = re.Description()
	}
	return result.Valid()
}

func (j *JSONSchema) Messages() Messages {
	if j.messages == nil {
		return Messages{}
	}
	return j.messages
}

// Values returns the data, restricted to the validation group if one is set.
// JSON Schema has no filters, so values are never transformed.
func (j *JSONSchema) Values() interface{} {
	if len(j.group) == 0 {
		if j.data == nil {
			return map[string]interface{}{}
		}
		return j.data
	}
	result := make(map[string]interface{}, len(j.group))
	for _, g := range j.group {
		if v, ok := j.data[g]; ok {
			result[g] = v
		}
	}
	return result
}

func (j *JSONSchema) HasUnknown() bool {
	return len(j.Unknown()) > 0
}

// Unknown returns submitted fields that are not top-level properties.
// A document without properties declares no fields, so everything is unknown.
func (j *JSONSchema) Unknown() map[string]interface{} {
	result := map[string]interface{}{}
	for k, v := range j.data {
		if !j.Has(k) {
			result[k] = v
		}
	}
	return result
}

func (j *JSONSchema) Clone() Schema {
	return &JSONSchema{c: j.c}
}
