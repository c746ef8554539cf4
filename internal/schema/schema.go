// Package schema defines versioned, per-device-class evidence schemas.
// Field declaration order is significant: drift findings are emitted in this
// order so reports are reproducible.
package schema

import (
	"fmt"

	"github.com/cacmlabs/cacm/internal/model"
)

// FieldType names the value type a schema field must carry.
type FieldType string

const (
	TypeString FieldType = "string"
	TypeNumber FieldType = "number"
	TypeBool   FieldType = "bool"
	TypeSet    FieldType = "set"
	TypeDigest FieldType = "digest"
)

// Kind maps the field type to its model value kind.
func (t FieldType) Kind() model.Kind {
	switch t {
	case TypeNumber:
		return model.KindNumber
	case TypeBool:
		return model.KindBool
	case TypeSet:
		return model.KindSet
	case TypeDigest:
		return model.KindDigest
	default:
		return model.KindString
	}
}

// FieldSpec describes one expected evidence field.
// Significant fields participate in drift comparison; the rest are
// informational-only. Volatile marks fields expected to change between
// collections (uptime counters). Sensitive fields are stored as digests,
// never verbatim.
type FieldSpec struct {
	Name        string    `yaml:"name"`
	Type        FieldType `yaml:"type"`
	Significant bool      `yaml:"significant"`
	Volatile    bool      `yaml:"volatile,omitempty"`
	Sensitive   bool      `yaml:"sensitive,omitempty"`
}

// Schema is one versioned evidence schema for a device class.
type Schema struct {
	Name    string      `yaml:"name"`
	Class   string      `yaml:"class"`
	Version int         `yaml:"version"`
	Fields  []FieldSpec `yaml:"fields"`
}

// Key identifies a schema by name and version.
func (s *Schema) Key() string {
	return fmt.Sprintf("%s@v%d", s.Name, s.Version)
}

// Field returns the spec for a field name and whether it is declared.
func (s *Schema) Field(name string) (FieldSpec, bool) {
	for _, f := range s.Fields {
		if f.Name == name {
			return f, true
		}
	}
	return FieldSpec{}, false
}

// Validate checks structural invariants before a schema enters the registry.
func (s *Schema) Validate() error {
	if s.Name == "" {
		return fmt.Errorf("schema has no name")
	}
	if s.Version < 1 {
		return fmt.Errorf("schema %s: version must be >= 1", s.Name)
	}
	if len(s.Fields) == 0 {
		return fmt.Errorf("schema %s: no fields declared", s.Key())
	}
	seen := map[string]bool{}
	for _, f := range s.Fields {
		if f.Name == "" {
			return fmt.Errorf("schema %s: field with empty name", s.Key())
		}
		if seen[f.Name] {
			return fmt.Errorf("schema %s: duplicate field %q", s.Key(), f.Name)
		}
		seen[f.Name] = true
		switch f.Type {
		case TypeString, TypeNumber, TypeBool, TypeSet, TypeDigest:
		default:
			return fmt.Errorf("schema %s: field %q has unknown type %q", s.Key(), f.Name, f.Type)
		}
		if f.Sensitive && f.Type != TypeDigest {
			return fmt.Errorf("schema %s: sensitive field %q must be type digest", s.Key(), f.Name)
		}
	}
	return nil
}
