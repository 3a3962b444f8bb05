package config

import (
	"fmt"
	"os"
	"reflect"
	"regexp"
	"strings"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"github.com/ynnoj/gatsby-source-printful/pkg/errors"
)

type ValidationError struct {
	Field   string
	Message string
}

// Validator checks a loaded config and reports every problem it finds
type Validator interface {
	Validate(cfg *Config) []ValidationError
}

// Returns the string representation of validation error
func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// DefaultValueSetter fills in unset values
type DefaultValueSetter interface {
	SetDefaults(cfg *Config)
}

// VariableExpander defines the interface for expanding variables
type VariableExpander interface {
	Expand(data []byte) []byte
}

// EnvExpander implements VariableExpander using environment variables
type EnvExpander struct{}

// Expand expands environment variables with the given data
func (e *EnvExpander) Expand(data []byte) []byte {
	return []byte(os.Expand(string(data), os.Getenv))
}

// Loader reads, defaults and validates a Config
type Loader struct {
	expander      VariableExpander
	validators    []Validator
	defaultSetter DefaultValueSetter
}

// NewLoader creates a new Loader with the given components
func NewLoader(
	expander VariableExpander,
	defaultSetter DefaultValueSetter,
	validators ...Validator,
) *Loader {
	return &Loader{
		expander:      expander,
		validators:    validators,
		defaultSetter: defaultSetter,
	}
}

// DefaultLoader returns a Loader with env expansion, defaults and all validators
func DefaultLoader() *Loader {
	return NewLoader(
		&EnvExpander{},
		&Defaults{},
		&StructValidator{},
		&DestinationValidator{},
	)
}

// Load a config from a YAML file
func (l *Loader) Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.WrapError(err, errors.ErrConfiguration, "read config file")
	}

	return l.Parse(data)
}

// Parse parses a yaml config
func (l *Loader) Parse(data []byte) (*Config, error) {
	if l.expander != nil {
		data = l.expander.Expand(data)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, errors.WrapError(err, errors.ErrConfiguration, "parse YAML")
	}

	return l.finish(&cfg)
}

func (l *Loader) finish(cfg *Config) (*Config, error) {
	if l.defaultSetter != nil {
		l.defaultSetter.SetDefaults(cfg)
	}

	var allErrors []ValidationError
	for _, v := range l.validators {
		allErrors = append(allErrors, v.Validate(cfg)...)
	}

	if len(allErrors) > 0 {
		return nil, errors.WrapError(
			fmt.Errorf("%v", allErrors),
			errors.ErrConfiguration,
			"validate config",
		)
	}

	return cfg, nil
}

// FromOptions builds a validated config from plugin style options.
// A pageSize of 0 selects the default.
func FromOptions(apiKey string, pageSize int) (*Config, error) {
	cfg := &Config{
		Source: Source{
			APIKey:   apiKey,
			PageSize: pageSize,
		},
	}
	return DefaultLoader().finish(cfg)
}

// Defaults implements DefaultValueSetter for Config
type Defaults struct{}

// SetDefaults sets default values for Config
func (d *Defaults) SetDefaults(cfg *Config) {
	s := &cfg.Source
	if s.BaseURL == "" {
		s.BaseURL = DefaultBaseURL
	}
	s.BaseURL = strings.TrimRight(s.BaseURL, "/")
	if s.Auth == "" {
		s.Auth = AuthTypeBearer
	}
	if s.PageSize == 0 {
		s.PageSize = DefaultPageSize
	}
	if s.Concurrency == 0 {
		s.Concurrency = DefaultConcurrency
	}
	if s.RateLimit == 0 {
		s.RateLimit = DefaultRateLimit
	}
	if s.Timeout == 0 {
		s.Timeout = DefaultTimeout
	}

	r := &s.Retry
	if r.MaxAttempts == 0 {
		r.MaxAttempts = 3
	}
	if r.InitialBackoff == 0 {
		r.InitialBackoff = 0.5
	}
	if r.BackoffMultiplier == 0 {
		r.BackoffMultiplier = 2
	}
	if r.RetryableStatuses == nil {
		r.RetryableStatuses = []int{429, 500, 502, 503, 504}
	}

	if cfg.Assets.Dir == "" {
		cfg.Assets.Dir = DefaultAssetDir
	}

	if cfg.Destination.Type == "" {
		cfg.Destination.Type = DestinationMemory
	}
	if cfg.Destination.Table == "" {
		cfg.Destination.Table = DefaultTable
	}
	if cfg.Name == "" {
		cfg.Name = "printful"
	}
}

var validate = newStructValidate()

func newStructValidate() *validator.Validate {
	v := validator.New()
	// report yaml names so messages match the config file
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("yaml"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// StructValidator checks the validate tags on Config
type StructValidator struct{}

// Validate runs the tag rules and converts failures into ValidationErrors
func (v *StructValidator) Validate(cfg *Config) []ValidationError {
	err := validate.Struct(cfg)
	if err == nil {
		return nil
	}

	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return []ValidationError{{Field: "config", Message: err.Error()}}
	}

	out := make([]ValidationError, 0, len(fieldErrs))
	for _, fe := range fieldErrs {
		out = append(out, ValidationError{
			Field:   trimRoot(fe.Namespace()),
			Message: describe(fe),
		})
	}
	return out
}

func trimRoot(ns string) string {
	if i := strings.Index(ns, "."); i >= 0 {
		return ns[i+1:]
	}
	return ns
}

func describe(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "min", "gte":
		return fmt.Sprintf("must be at least %s", fe.Param())
	case "max":
		return fmt.Sprintf("must be at most %s", fe.Param())
	case "oneof":
		return fmt.Sprintf("must be one of [%s]", fe.Param())
	case "url":
		return "must be a valid URL"
	}
	return fmt.Sprintf("failed %q validation", fe.Tag())
}

var tableName = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// DestinationValidator validates node store settings
type DestinationValidator struct{}

// Validate checks that postgres has a DSN and a safe table name
func (v *DestinationValidator) Validate(cfg *Config) []ValidationError {
	var errs []ValidationError

	if cfg.Destination.Type != DestinationPostgres {
		return errs
	}
	if cfg.Destination.DSN == "" {
		errs = append(errs, ValidationError{Field: "destination.dsn", Message: "is required for postgres"})
	}
	if !tableName.MatchString(cfg.Destination.Table) {
		errs = append(errs, ValidationError{Field: "destination.table", Message: "must be a plain SQL identifier"})
	}
	return errs
}
