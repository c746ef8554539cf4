package model

import "time"

// EvidenceRecord is one normalized fact set about an asset at a point in
// time. Fields hold schema-typed values; names the schema does not know are
// preserved in Fields and listed in Unknown, never dropped. Warnings carries
// non-fatal partial-collection notes attached by the normalizer.
type EvidenceRecord struct {
	AssetID       string           `json:"asset_id"`
	Schema        string           `json:"schema"`
	SchemaVersion int              `json:"schema_version"`
	CollectedAt   time.Time        `json:"collected_at"`
	Confidence    Confidence       `json:"confidence"`
	Fields        map[string]Value `json:"fields"`
	Unknown       []string         `json:"unknown,omitempty"`
	Warnings      []string         `json:"warnings,omitempty"`
}

// Field returns the named field and whether it is present.
func (r *EvidenceRecord) Field(name string) (Value, bool) {
	v, ok := r.Fields[name]
	return v, ok
}

// Baseline is the accepted evidence set for an asset. Exactly one baseline is
// current per asset; prior versions are immutable history.
type Baseline struct {
	AssetID    string           `json:"asset_id"`
	Version    int              `json:"version"`
	Records    []EvidenceRecord `json:"records"`
	ApprovedBy string           `json:"approved_by"`
	ApprovedAt time.Time        `json:"approved_at"`
}

// Record returns the baseline's evidence record for the given schema, or nil
// when the baseline holds no evidence of that schema.
func (b *Baseline) Record(schema string) *EvidenceRecord {
	for i := range b.Records {
		if b.Records[i].Schema == schema {
			return &b.Records[i]
		}
	}
	return nil
}
