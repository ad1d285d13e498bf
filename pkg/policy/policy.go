// Package policy declares how each record attribute is read, merged and written back.
//
// The policy table is the only place attribute names appear. The read side of a record (as
// returned by a bulk query) and the write side (as required by an update call) may name the
// same attribute differently; each FieldPolicy carries both.
package policy

import (
	"errors"
	"fmt"
	"os"

	"github.com/Gobusters/ectolinq"
	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"github.com/Ramsey-B/sorrel/pkg/models"
)

// ErrInvalidPolicy is returned when a policy fails validation
var ErrInvalidPolicy = errors.New("invalid field policy")

// IdentityPolicy declares where the identity key is read from and how it is normalized
type IdentityPolicy struct {
	Name        string   `yaml:"name" json:"name" validate:"required"`
	ReadPath    string   `yaml:"read_path" json:"read_path" validate:"required"`
	Normalizers []string `yaml:"normalizers,omitempty" json:"normalizers,omitempty"`
}

// FieldPolicy declares the merge strategy and read/write representation of one attribute
type FieldPolicy struct {
	Name                string               `yaml:"name" json:"name" validate:"required"`
	Kind                models.AttributeKind `yaml:"kind" json:"kind" validate:"required,oneof=scalar set relation"`
	SourceReadPath      string               `yaml:"source_read_path" json:"source_read_path" validate:"required"`
	DestinationReadPath string               `yaml:"destination_read_path,omitempty" json:"destination_read_path,omitempty"`
	WriteFormatter      string               `yaml:"write_formatter,omitempty" json:"write_formatter,omitempty"`
	Default             any                  `yaml:"default,omitempty" json:"default,omitempty"`
}

// DestinationPath returns the destination read path, falling back to the source read path
func (f FieldPolicy) DestinationPath() string {
	if f.DestinationReadPath != "" {
		return f.DestinationReadPath
	}
	return f.SourceReadPath
}

// Formatter returns the write formatter name, falling back to raw
func (f FieldPolicy) Formatter() string {
	if f.WriteFormatter != "" {
		return f.WriteFormatter
	}
	return FormatterRaw
}

// Policy is the static field table for one collection
type Policy struct {
	Collection string         `yaml:"collection" json:"collection" validate:"required"`
	Identity   IdentityPolicy `yaml:"identity" json:"identity"`
	Fields     []FieldPolicy  `yaml:"fields" json:"fields" validate:"required,min=1,dive"`
}

// Field looks up a field policy by attribute name
func (p *Policy) Field(name string) (FieldPolicy, bool) {
	for _, f := range p.Fields {
		if f.Name == name {
			return f, true
		}
	}
	return FieldPolicy{}, false
}

// FieldsOfKind returns the names of every attribute of the given kind
func (p *Policy) FieldsOfKind(kind models.AttributeKind) []string {
	fields := ectolinq.Filter(p.Fields, func(f FieldPolicy) bool {
		return f.Kind == kind
	})
	return ectolinq.Map(fields, func(f FieldPolicy) string {
		return f.Name
	})
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// Validate checks the policy table for structural errors
func (p *Policy) Validate() error {
	if err := validate.Struct(p); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidPolicy, err)
	}

	var errs []error
	seen := map[string]bool{p.Identity.Name: true}
	for _, f := range p.Fields {
		if seen[f.Name] {
			errs = append(errs, fmt.Errorf("duplicate attribute %q", f.Name))
		}
		seen[f.Name] = true

		if _, ok := formatters[f.Formatter()]; !ok {
			errs = append(errs, fmt.Errorf("attribute %q: unknown write formatter %q", f.Name, f.Formatter()))
		}
		if f.Default != nil && f.Kind != models.AttributeKindScalar {
			errs = append(errs, fmt.Errorf("attribute %q: defaults are only supported on scalar attributes", f.Name))
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("%w: %w", ErrInvalidPolicy, errors.Join(errs...))
	}
	return nil
}

// Load reads and validates a YAML policy file
func Load(path string) (*Policy, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read policy file %s: %w", path, err)
	}
	return Parse(data)
}

// Parse decodes and validates a YAML policy document
func Parse(data []byte) (*Policy, error) {
	var p Policy
	if err := yaml.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("failed to parse policy: %w", err)
	}
	if err := p.Validate(); err != nil {
		return nil, err
	}
	return &p, nil
}

// DefaultPolicy returns the contacts policy keyed by email
func DefaultPolicy() *Policy {
	return &Policy{
		Collection: "contacts",
		Identity: IdentityPolicy{
			Name:        "email",
			ReadPath:    "email",
			Normalizers: []string{"trim", "lowercase"},
		},
		Fields: []FieldPolicy{
			{Name: "name", Kind: models.AttributeKindScalar, SourceReadPath: "name", WriteFormatter: FormatterText},
			{Name: "phone", Kind: models.AttributeKindScalar, SourceReadPath: "phone", WriteFormatter: FormatterText},
			{Name: "company", Kind: models.AttributeKindScalar, SourceReadPath: "company", WriteFormatter: FormatterText},
			{Name: "status", Kind: models.AttributeKindScalar, SourceReadPath: "status", WriteFormatter: FormatterSelect, Default: "lead"},
			{Name: "last_contacted", Kind: models.AttributeKindScalar, SourceReadPath: "last_contacted", WriteFormatter: FormatterDate},
			{Name: "tags", Kind: models.AttributeKindSet, SourceReadPath: "tags", WriteFormatter: FormatterMultiSelect},
			{Name: "deals", Kind: models.AttributeKindRelation, SourceReadPath: "deals", WriteFormatter: FormatterRelation},
			{Name: "companies", Kind: models.AttributeKindRelation, SourceReadPath: "companies", WriteFormatter: FormatterRelation},
		},
	}
}
