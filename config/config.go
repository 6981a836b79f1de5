/*
Package config loads content validation configuration.

Configuration is layered, later layers winning:
built-in defaults, then YAML files, then environment variables.
Environment variables use the CONTENTVALIDATION_ prefix and "__" for nesting,
so CONTENTVALIDATION_LOG__LEVEL=debug sets log.level.
Optional .env files are loaded into the environment first.

A configuration file looks like:

	content_validation_defaults:
	  allows_only_fields_in_filter: true
	content_validation:
	  Users:
	    input_filter: UserValidator
	    PATCH: UserPatchValidator
	rest:
	  Users:
	    route_identifier_name: user_id
	input_filter_specs:
	  UserValidator:
	    inputs:
	      - name: email
	        validators: [{name: tag, options: {tag: email}}]
	methods_without_bodies: [LINK]
	log:
	  level: debug
*/
package config

import (
	"os"
	"sort"
	"strings"

	"dario.cat/mergo"
	"github.com/go-playground/validator/v10"
	"github.com/hashicorp/go-multierror"
	"github.com/joho/godotenv"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/lithictech/go-contentvalidation/contentvalidation"
	"github.com/lithictech/go-contentvalidation/inputfilter"
	"github.com/lithictech/go-contentvalidation/logctx"
)

const EnvPrefix = "CONTENTVALIDATION_"

// delim separates nested keys. Service ids often contain dots, so "." cannot be used.
const delim = "::"

type Log struct {
	Level  string `koanf:"level" validate:"omitempty,oneof=trace debug info warn warning error fatal panic"`
	Format string `koanf:"format" validate:"omitempty,oneof=json text"`
	File   string `koanf:"file"`
}

type Rest struct {
	RouteIdentifierName string `koanf:"route_identifier_name"`
}

type Config struct {
	ContentValidation         map[string]map[string]interface{} `koanf:"content_validation"`
	ContentValidationDefaults map[string]interface{}            `koanf:"content_validation_defaults"`
	Rest                      map[string]Rest                   `koanf:"rest"`
	InputFilterSpecs          map[string]inputfilter.Spec       `koanf:"input_filter_specs" validate:"dive"`
	MethodsWithoutBodies      []string                          `koanf:"methods_without_bodies" validate:"dive,alpha"`
	Log                       Log                               `koanf:"log"`

	settings map[string]contentvalidation.Settings
}

type LoadInput struct {
	// YAML files, loaded in order. Files that do not exist are skipped.
	Files []string
	// .env files loaded into the environment. Files that do not exist are skipped.
	// Variables already in the environment are not overwritten.
	EnvFiles []string
}

type defaultConfig struct {
	Log Log `koanf:"log"`
}

var defaults = defaultConfig{Log: Log{Level: "info"}}

func Load(in LoadInput) (*Config, error) {
	k := koanf.New(delim)
	if err := k.Load(structs.Provider(defaults, "koanf"), nil); err != nil {
		return nil, errors.Wrap(err, "loading defaults")
	}
	for _, path := range existing(in.Files) {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, errors.Wrapf(err, "loading %s", path)
		}
	}
	if envFiles := existing(in.EnvFiles); len(envFiles) > 0 {
		if err := godotenv.Load(envFiles...); err != nil {
			return nil, errors.Wrap(err, "loading env files")
		}
	}
	if err := k.Load(env.Provider(EnvPrefix, delim, envKey), nil); err != nil {
		return nil, errors.Wrap(err, "loading environment")
	}
	cfg := &Config{}
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, errors.Wrap(err, "unmarshaling config")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// envKey turns CONTENTVALIDATION_LOG__LEVEL into log::level.
func envKey(s string) string {
	s = strings.ToLower(strings.TrimPrefix(s, EnvPrefix))
	return strings.ReplaceAll(s, "__", delim)
}

func existing(paths []string) []string {
	var result []string
	for _, p := range paths {
		if _, err := os.Stat(p); err == nil {
			result = append(result, p)
		}
	}
	return result
}

var structValidator = validator.New(validator.WithRequiredStructEnabled())

// Validate checks the config and parses service settings,
// reporting every problem found.
func (c *Config) Validate() error {
	var result *multierror.Error
	if err := structValidator.Struct(c); err != nil {
		result = multierror.Append(result, errors.Wrap(err, "invalid config"))
	}
	serviceDefaults, err := contentvalidation.ParseSettings(c.ContentValidationDefaults)
	if err != nil {
		result = multierror.Append(result, errors.Wrap(err, "content_validation_defaults"))
	}
	c.settings = make(map[string]contentvalidation.Settings, len(c.ContentValidation))
	for _, svc := range sortedKeys(c.ContentValidation) {
		s, err := contentvalidation.ParseSettings(c.ContentValidation[svc])
		if err != nil {
			result = multierror.Append(result, errors.Wrapf(err, "content_validation %q", svc))
			continue
		}
		// Without dereferencing, a flag a service sets to false is not replaced by a default.
		if err := mergo.Merge(&s, serviceDefaults, mergo.WithoutDereference); err != nil {
			result = multierror.Append(result, errors.Wrapf(err, "content_validation %q defaults", svc))
			continue
		}
		c.settings[svc] = s
	}
	for name, spec := range c.InputFilterSpecs {
		if spec.JSONSchema != nil && len(spec.Inputs) > 0 {
			result = multierror.Append(result, errors.Errorf("input_filter_specs %q declares both inputs and json_schema", name))
		}
	}
	return result.ErrorOrNil()
}

// Settings are the parsed service settings, with defaults applied.
func (c *Config) Settings() map[string]contentvalidation.Settings {
	return c.settings
}

// RestResources maps services to their route identifier names,
// leaving out services that have none.
func (c *Config) RestResources() map[string]string {
	result := make(map[string]string, len(c.Rest))
	for svc, r := range c.Rest {
		if r.RouteIdentifierName != "" {
			result[svc] = r.RouteIdentifierName
		}
	}
	return result
}

// NewManager returns a schema manager that can create every configured spec.
// If b is nil, the builtin plugins are used.
func (c *Config) NewManager(b *inputfilter.Builder) *inputfilter.Manager {
	m := inputfilter.NewManager(b)
	for name, spec := range c.InputFilterSpecs {
		m.RegisterSpec(name, spec)
	}
	return m
}

// Dispatcher returns a dispatcher for the configured services.
// If schemas is nil, a manager from NewManager is used.
func (c *Config) Dispatcher(schemas contentvalidation.SchemaRegistry, logger *logrus.Entry) *contentvalidation.Dispatcher {
	if schemas == nil {
		schemas = c.NewManager(nil)
	}
	return contentvalidation.New(contentvalidation.Config{
		Services:             c.Settings(),
		RestResources:        c.RestResources(),
		Schemas:              schemas,
		MethodsWithoutBodies: c.MethodsWithoutBodies,
		Logger:               logger,
	})
}

func (c *Config) NewLogger(fields logrus.Fields) (*logrus.Entry, error) {
	return logctx.NewLogger(logctx.NewLoggerInput{
		Level:  c.Log.Level,
		Format: c.Log.Format,
		File:   c.Log.File,
		Fields: fields,
	})
}

func sortedKeys[T any](m map[string]T) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
