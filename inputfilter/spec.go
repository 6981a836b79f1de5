package inputfilter

import (
	"github.com/pkg/errors"
)

// PluginSpec names a registered filter or validator, and its options.
type PluginSpec struct {
	Name    string  `json:"name" koanf:"name" validate:"required"`
	Options Options `json:"options" koanf:"options"`
}

// InputSpec declares an input in configuration.
// Required defaults to true.
// An InputSpec with Inputs declares a nested schema instead of a value input.
type InputSpec struct {
	Name       string       `json:"name" koanf:"name" validate:"required"`
	Required   *bool        `json:"required" koanf:"required"`
	AllowEmpty bool         `json:"allow_empty" koanf:"allow_empty"`
	Filters    []PluginSpec `json:"filters" koanf:"filters" validate:"dive"`
	Validators []PluginSpec `json:"validators" koanf:"validators" validate:"dive"`
	Inputs     []InputSpec  `json:"inputs" koanf:"inputs" validate:"dive"`
}

// Spec declares a schema in configuration.
// If JSONSchema is set, the schema is a JSONSchema and Inputs must be empty;
// otherwise it is an InputFilter. An empty Spec is an InputFilter with no inputs.
type Spec struct {
	Inputs     []InputSpec            `json:"inputs" koanf:"inputs" validate:"dive"`
	JSONSchema map[string]interface{} `json:"json_schema" koanf:"json_schema"`
}

// Builder builds schemas from specs using its plugin registries.
type Builder struct {
	Filters    *FilterRegistry
	Validators *ValidatorRegistry
}

// NewBuilder returns a Builder with the builtin plugins.
func NewBuilder() *Builder {
	return &Builder{Filters: NewFilterRegistry(), Validators: NewValidatorRegistry()}
}

func (b *Builder) Build(spec Spec) (Schema, error) {
	if spec.JSONSchema != nil {
		if len(spec.Inputs) > 0 {
			return nil, errors.New("a spec cannot declare both inputs and json_schema")
		}
		return NewJSONSchema(spec.JSONSchema)
	}
	return b.buildInputFilter(spec.Inputs)
}

func (b *Builder) buildInputFilter(specs []InputSpec) (*InputFilter, error) {
	f := New()
	for _, is := range specs {
		if is.Name == "" {
			return nil, errors.New("input is missing a name")
		}
		if len(is.Inputs) > 0 {
			child, err := b.buildInputFilter(is.Inputs)
			if err != nil {
				return nil, errors.Wrapf(err, "input %q", is.Name)
			}
			f.AddSchema(is.Name, child)
			continue
		}
		in, err := b.buildInput(is)
		if err != nil {
			return nil, errors.Wrapf(err, "input %q", is.Name)
		}
		f.Add(in)
	}
	return f, nil
}

func (b *Builder) buildInput(is InputSpec) (*Input, error) {
	in := NewInput(is.Name).WithAllowEmpty(is.AllowEmpty)
	if is.Required != nil {
		in.WithRequired(*is.Required)
	}
	for _, ps := range is.Filters {
		f, err := b.Filters.Build(ps.Name, ps.Options)
		if err != nil {
			return nil, err
		}
		in.WithFilters(f)
	}
	for _, ps := range is.Validators {
		v, err := b.Validators.Build(ps.Name, ps.Options)
		if err != nil {
			return nil, err
		}
		in.WithValidators(v)
	}
	return in, nil
}
