package contentvalidation

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/lithictech/go-contentvalidation/inputfilter"
)

const (
	KeyInputFilter              = "input_filter"
	KeyUseRawData               = "use_raw_data"
	KeyAllowsOnlyFieldsInFilter = "allows_only_fields_in_filter"
	KeyRemoveEmptyData          = "remove_empty_data"

	// CollectionSuffix is appended to a method to name the schema used for collection requests,
	// like POST_COLLECTION.
	CollectionSuffix = "_COLLECTION"
)

// Settings configure validation for one service.
type Settings struct {
	// InputFilter is the schema used when no method-specific schema applies.
	InputFilter string
	// Filters maps a method (like "POST") or a method with CollectionSuffix
	// (like "POST_COLLECTION") to a schema name.
	Filters map[string]string
	// UseRawData, when nil or true, commits the submitted data rather than the schema's filtered values.
	UseRawData *bool
	// AllowsOnlyFieldsInFilter, when true, rejects payloads with undeclared fields.
	AllowsOnlyFieldsInFilter *bool
	// RemoveEmptyData, when true, prunes empty values from the committed data.
	RemoveEmptyData *bool
}

func (s Settings) UsesRawData() bool {
	return s.UseRawData == nil || *s.UseRawData
}

func (s Settings) AllowsOnlyFields() bool {
	return s.AllowsOnlyFieldsInFilter != nil && *s.AllowsOnlyFieldsInFilter
}

func (s Settings) RemovesEmptyData() bool {
	return s.RemoveEmptyData != nil && *s.RemoveEmptyData
}

// SchemaNames returns every schema name the settings refer to.
func (s Settings) SchemaNames() []string {
	var result []string
	if s.InputFilter != "" {
		result = append(result, s.InputFilter)
	}
	for _, n := range s.Filters {
		if n != "" {
			result = append(result, n)
		}
	}
	return result
}

// ParseSettings reads settings from their configuration form:
// input_filter, the three flags, and any other key as a method schema name.
// Method keys are upper-cased. Flags may be booleans or boolean strings.
func ParseSettings(raw map[string]interface{}) (Settings, error) {
	s := Settings{Filters: map[string]string{}}
	for k, v := range raw {
		var err error
		switch k {
		case KeyInputFilter:
			s.InputFilter, err = stringSetting(k, v)
		case KeyUseRawData:
			s.UseRawData, err = boolSetting(k, v)
		case KeyAllowsOnlyFieldsInFilter:
			s.AllowsOnlyFieldsInFilter, err = boolSetting(k, v)
		case KeyRemoveEmptyData:
			s.RemoveEmptyData, err = boolSetting(k, v)
		default:
			var name string
			name, err = stringSetting(k, v)
			if name != "" {
				s.Filters[strings.ToUpper(k)] = name
			}
		}
		if err != nil {
			return Settings{}, err
		}
	}
	return s, nil
}

func stringSetting(k string, v interface{}) (string, error) {
	switch t := v.(type) {
	case nil:
		return "", nil
	case string:
		return t, nil
	}
	return "", fmt.Errorf("%s must be a schema name, got %T", k, v)
}

func boolSetting(k string, v interface{}) (*bool, error) {
	switch t := v.(type) {
	case nil:
		return nil, nil
	case bool:
		return &t, nil
	case string:
		b, err := strconv.ParseBool(t)
		if err != nil {
			return nil, fmt.Errorf("%s must be a boolean, got %q", k, t)
		}
		return &b, nil
	}
	return nil, fmt.Errorf("%s must be a boolean, got %T", k, v)
}

// SchemaRegistry resolves schemas by name.
// *inputfilter.Manager is the usual implementation.
// Get should return an error wrapping inputfilter.ErrSchemaNotFound for unknown names.
type SchemaRegistry interface {
	Has(name string) bool
	Get(name string) (inputfilter.Schema, error)
}

type Config struct {
	// Services maps a service id to its settings. Services without settings are never validated.
	Services map[string]Settings
	// RestResources maps a service id to the name of its route identifier parameter, like "id".
	RestResources map[string]string
	Schemas       SchemaRegistry
	// MethodsWithoutBodies are added to GET, HEAD, and OPTIONS.
	MethodsWithoutBodies []string
	// Events is the bus fired before validation. If nil, a new bus is used.
	Events *Bus
	// Logger is used when the dispatch context has no logger.
	Logger *logrus.Entry
}
