// Package normalize maps raw, adapter-specific payloads into typed evidence
// records using the per-class schema registry. Evidence of differing
// confidence from the same class normalizes through the same schema without
// forcing false equivalence: the confidence tag rides along into drift
// evaluation.
package normalize

import (
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"time"

	"github.com/cacmlabs/cacm/internal/model"
	"github.com/cacmlabs/cacm/internal/schema"
)

// SchemaMismatchError is returned when a raw payload cannot be mapped to any
// known schema for its asset class. Operator-fixable; aborts that asset's
// cycle only.
type SchemaMismatchError struct {
	Schema  string
	Version int
	Reason  string
}

func (e *SchemaMismatchError) Error() string {
	return fmt.Sprintf("schema mismatch for %s@v%d: %s", e.Schema, e.Version, e.Reason)
}

// Normalizer turns raw payload maps into evidence records.
type Normalizer struct {
	schemas *schema.Registry
}

// New creates a Normalizer over a schema registry.
func New(schemas *schema.Registry) *Normalizer {
	return &Normalizer{schemas: schemas}
}

// Normalize maps a raw payload into an EvidenceRecord.
//
// Fails with SchemaMismatchError when the schema is unknown or a
// comparison-significant field carries an uncoercible value. Expected fields
// absent from the payload become non-fatal warnings on the record. Fields
// the schema does not declare are preserved (best-effort typed) and flagged
// in Unknown, never dropped.
func (n *Normalizer) Normalize(schemaName string, version int, assetID string, raw map[string]any, conf model.Confidence, collectedAt time.Time) (*model.EvidenceRecord, error) {
	s, ok := n.schemas.Lookup(schemaName, version)
	if !ok {
		return nil, &SchemaMismatchError{Schema: schemaName, Version: version, Reason: "no such schema"}
	}

	rec := &model.EvidenceRecord{
		AssetID:       assetID,
		Schema:        s.Name,
		SchemaVersion: s.Version,
		CollectedAt:   collectedAt.UTC(),
		Confidence:    conf,
		Fields:        make(map[string]model.Value, len(raw)),
	}

	for _, spec := range s.Fields {
		rv, present := raw[spec.Name]
		if !present {
			rec.Warnings = append(rec.Warnings,
				fmt.Sprintf("expected field %q absent (%s collection)", spec.Name, conf))
			continue
		}
		v, err := Coerce(rv, spec.Type, spec.Sensitive)
		if err != nil {
			if spec.Significant {
				return nil, &SchemaMismatchError{
					Schema:  s.Name,
					Version: s.Version,
					Reason:  fmt.Sprintf("field %q: %v", spec.Name, err),
				}
			}
			rec.Warnings = append(rec.Warnings,
				fmt.Sprintf("informational field %q dropped: %v", spec.Name, err))
			continue
		}
		rec.Fields[spec.Name] = v
	}

	// Unknown fields: keep them, flag them. Sorted for reproducible records.
	var unknown []string
	for name := range raw {
		if _, declared := s.Field(name); !declared {
			unknown = append(unknown, name)
		}
	}
	sort.Strings(unknown)
	for _, name := range unknown {
		rec.Fields[name] = coerceLoose(raw[name])
	}
	rec.Unknown = unknown

	return rec, nil
}

// Coerce converts a raw payload value to the schema field type. Sensitive
// fields are reduced to a digest of their canonical JSON form so the
// verbatim data never enters the record.
func Coerce(rv any, t schema.FieldType, sensitive bool) (model.Value, error) {
	if sensitive || t == schema.TypeDigest {
		if s, ok := rv.(string); ok && len(s) > 7 && s[:7] == "sha256:" {
			return model.DigestValue(s), nil
		}
		data, err := json.Marshal(rv)
		if err != nil {
			return model.Value{}, fmt.Errorf("cannot digest value: %w", err)
		}
		return model.DigestOf(data), nil
	}

	switch t {
	case schema.TypeString:
		switch v := rv.(type) {
		case string:
			return model.StringValue(v), nil
		case float64:
			return model.StringValue(strconv.FormatFloat(v, 'f', -1, 64)), nil
		case int:
			return model.StringValue(strconv.Itoa(v)), nil
		case bool:
			return model.StringValue(strconv.FormatBool(v)), nil
		}
	case schema.TypeNumber:
		switch v := rv.(type) {
		case float64:
			return model.NumberValue(v), nil
		case int:
			return model.NumberValue(float64(v)), nil
		case int64:
			return model.NumberValue(float64(v)), nil
		case uint32:
			return model.NumberValue(float64(v)), nil
		case string:
			f, err := strconv.ParseFloat(v, 64)
			if err != nil {
				return model.Value{}, fmt.Errorf("%q is not numeric", v)
			}
			return model.NumberValue(f), nil
		}
	case schema.TypeBool:
		if v, ok := rv.(bool); ok {
			return model.BoolValue(v), nil
		}
		if v, ok := rv.(string); ok {
			b, err := strconv.ParseBool(v)
			if err == nil {
				return model.BoolValue(b), nil
			}
		}
	case schema.TypeSet:
		switch v := rv.(type) {
		case []string:
			return model.SetValue(v), nil
		case []any:
			members := make([]string, 0, len(v))
			for _, m := range v {
				s, ok := m.(string)
				if !ok {
					return model.Value{}, fmt.Errorf("set member %v is not a string", m)
				}
				members = append(members, s)
			}
			return model.SetValue(members), nil
		}
	}

	return model.Value{}, fmt.Errorf("cannot coerce %T to %s", rv, t)
}

// coerceLoose types an undeclared field as best it can, falling back to the
// JSON rendering. Unknown evidence is worth keeping even when untyped.
func coerceLoose(rv any) model.Value {
	switch v := rv.(type) {
	case string:
		return model.StringValue(v)
	case float64:
		return model.NumberValue(v)
	case int:
		return model.NumberValue(float64(v))
	case bool:
		return model.BoolValue(v)
	case []string:
		return model.SetValue(v)
	case []any:
		members := make([]string, 0, len(v))
		for _, m := range v {
			if s, ok := m.(string); ok {
				members = append(members, s)
			} else {
				data, _ := json.Marshal(m)
				members = append(members, string(data))
			}
		}
		return model.SetValue(members)
	default:
		data, _ := json.Marshal(rv)
		return model.StringValue(string(data))
	}
}
