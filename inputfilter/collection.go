package inputfilter

import (
	"context"
	"fmt"
	"sort"

	"github.com/lithictech/go-contentvalidation/convext"
)

// CollectionInputFilter validates every record of a list with a record schema.
// Each record is validated with a fresh copy of the record schema,
// so the record schema should be a Cloner.
type CollectionInputFilter struct {
	record Schema

	keys     []string
	records  map[string]interface{}
	list     bool
	group    ValidationGroup
	messages Messages
	values   map[string]interface{}
	unknown  map[string]interface{}
}

func NewCollection(record Schema) *CollectionInputFilter {
	return &CollectionInputFilter{record: record}
}

func (c *CollectionInputFilter) RecordSchema() Schema {
	return c.record
}

// SetData accepts a list of records or an object of records keyed by any key.
func (c *CollectionInputFilter) SetData(data interface{}) error {
	c.records = map[string]interface{}{}
	c.keys = nil
	c.list = true
	switch t := data.(type) {
	case nil:
	case []interface{}:
		c.records = convext.ListToObject(t)
		c.keys = convext.SortedIndexKeys(convext.SortedObjectKeys(c.records))
	case map[string]interface{}:
		c.records = t
		c.keys = convext.SortedIndexKeys(convext.SortedObjectKeys(t))
		c.list = false
	default:
		return fmt.Errorf("collection input filter expects a list of records, got %T", data)
	}
	c.messages = nil
	c.values = nil
	c.unknown = nil
	return nil
}

// SetValidationGroup restricts fields for every record (group.Fields),
// or for specific records by key (group.Records).
// Field names are checked against the record schema immediately.
func (c *CollectionInputFilter) SetValidationGroup(group ValidationGroup) error {
	if len(group.Fields) > 0 {
		if err := Fresh(c.record).SetValidationGroup(ValidationGroup{Fields: group.Fields}); err != nil {
			return err
		}
	}
	keys := make([]string, 0, len(group.Records))
	for k := range group.Records {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		if err := Fresh(c.record).SetValidationGroup(ValidationGroup{Fields: group.Records[k]}); err != nil {
			return err
		}
	}
	c.group = group
	return nil
}

func (c *CollectionInputFilter) groupFor(key string) []string {
	if fields, ok := c.group.Records[key]; ok {
		return fields
	}
	return c.group.Fields
}

// IsValid validates every record. An empty collection is valid.
func (c *CollectionInputFilter) IsValid(ctx context.Context) bool {
	c.messages = Messages{}
	c.values = make(map[string]interface{}, len(c.keys))
	c.unknown = map[string]interface{}{}
	for _, key := range c.keys {
		rec := Fresh(c.record)
		if err := rec.SetData(c.records[key]); err != nil {
			c.messages[key] = Messages{FailureInvalidData: err.Error()}
			c.values[key] = c.records[key]
			continue
		}
		if fields := c.groupFor(key); len(fields) > 0 {
			if err := rec.SetValidationGroup(ValidationGroup{Fields: fields}); err != nil {
				c.messages[key] = Messages{FailureInvalidData: err.Error()}
				c.values[key] = c.records[key]
				continue
			}
		}
		if !rec.IsValid(ctx) {
			c.messages[key] = rec.Messages()
		}
		c.values[key] = rec.Values()
		if ur, ok := rec.(UnknownReporter); ok && ur.HasUnknown() {
			c.unknown[key] = ur.Unknown()
		}
	}
	return len(c.messages) == 0
}

func (c *CollectionInputFilter) Messages() Messages {
	if c.messages == nil {
		return Messages{}
	}
	return c.messages
}

// Values returns the filtered records, as a list if the collection was set from a list.
func (c *CollectionInputFilter) Values() interface{} {
	if !c.list {
		if c.values == nil {
			return map[string]interface{}{}
		}
		return c.values
	}
	result := make([]interface{}, 0, len(c.keys))
	for _, k := range c.keys {
		result = append(result, c.values[k])
	}
	return result
}

func (c *CollectionInputFilter) HasUnknown() bool {
	return len(c.unknown) > 0
}

// Unknown maps record key to the unknown fields of that record.
// Records without unknown fields are absent.
func (c *CollectionInputFilter) Unknown() map[string]interface{} {
	if c.unknown == nil {
		return map[string]interface{}{}
	}
	return c.unknown
}

func (c *CollectionInputFilter) Clone() Schema {
	return NewCollection(c.record)
}
