// Package drift compares newly normalized evidence against an asset's
// current baseline and produces classified, severity-scored reports.
package drift

import (
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/cacmlabs/cacm/internal/model"
	"github.com/cacmlabs/cacm/internal/ruleset"
	"github.com/cacmlabs/cacm/internal/schema"
)

// ConfigurationError marks an evaluation that cannot run at all: missing or
// unversioned rule set, unknown schema. Operator-fixable; aborts that
// asset's cycle only.
type ConfigurationError struct {
	Reason string
}

func (e *ConfigurationError) Error() string {
	return "configuration error: " + e.Reason
}

// Engine evaluates evidence records against baselines. It is stateless and
// safe for concurrent use across assets.
type Engine struct {
	schemas *schema.Registry
}

// NewEngine creates an Engine over a schema registry.
func NewEngine(schemas *schema.Registry) *Engine {
	return &Engine{schemas: schemas}
}

// Evaluate compares rec against baseline b under the given rule set.
//
// Findings are emitted in schema field-declaration order (then sorted
// undeclared fields) so reports are reproducible. A comparator failure on
// one field becomes a collection-gap finding and evaluation continues:
// OT evidence is unreliable enough that partial-failure isolation is
// mandatory.
func (e *Engine) Evaluate(b *model.Baseline, rec *model.EvidenceRecord, rs *ruleset.RuleSet) (*model.Report, error) {
	if rs == nil || rs.Version == "" {
		return nil, &ConfigurationError{Reason: fmt.Sprintf("no versioned rule set for schema %q", rec.Schema)}
	}
	if rs.Schema != rec.Schema {
		return nil, &ConfigurationError{Reason: fmt.Sprintf("rule set covers schema %q, record is %q", rs.Schema, rec.Schema)}
	}
	s, ok := e.schemas.Lookup(rec.Schema, rec.SchemaVersion)
	if !ok {
		return nil, &ConfigurationError{Reason: fmt.Sprintf("unknown schema %s@v%d", rec.Schema, rec.SchemaVersion)}
	}

	var base *model.EvidenceRecord
	baselineVersion := 0
	if b != nil {
		base = b.Record(rec.Schema)
		baselineVersion = b.Version
	}

	var findings []model.Finding

	// Declared comparison-significant fields, in declaration order.
	for _, spec := range s.Fields {
		if !spec.Significant {
			continue
		}
		if f := e.evalField(spec.Name, spec.Volatile, base, rec, rs); f != nil {
			findings = append(findings, *f)
		}
	}

	// Fields outside the schema: preserved by the normalizer or carried in
	// an approved baseline. Sorted union for determinism.
	for _, name := range undeclaredFields(s, base, rec) {
		if f := e.evalField(name, false, base, rec, rs); f != nil {
			findings = append(findings, *f)
		}
	}

	return &model.Report{
		ID:              uuid.NewString(),
		AssetID:         rec.AssetID,
		Schema:          rec.Schema,
		BaselineVersion: baselineVersion,
		RuleSetVersion:  rs.Version,
		RuleSetHash:     rs.Hash,
		ComparedAt:      time.Now().UTC(),
		Confidence:      rec.Confidence,
		Findings:        findings,
		Overall:         model.OverallSeverity(findings),
		Disposition:     model.DispositionPending,
	}, nil
}

// evalField produces at most one finding for a field. Returns nil when the
// field shows no drift.
func (e *Engine) evalField(name string, volatile bool, base, rec *model.EvidenceRecord, rs *ruleset.RuleSet) *model.Finding {
	rule, explicit := rs.Lookup(name)
	sev := model.ParseSeverity(rule.Severity)
	volatile = volatile || rule.Volatile

	var oldV, newV model.Value
	var oldOK, newOK bool
	if base != nil {
		oldV, oldOK = base.Field(name)
	}
	newV, newOK = rec.Field(name)

	switch {
	case !oldOK && !newOK:
		return nil

	case oldOK && newOK:
		pass, err := safeCompare(rule, oldV, newV)
		if err != nil {
			// Isolated comparator failure: degrade to a gap, keep going.
			return &model.Finding{
				Field:          name,
				Old:            &oldV,
				New:            &newV,
				Severity:       model.CapSeverity(sev, model.SevLow),
				Classification: model.ClassCollectionGap,
				Detail:         fmt.Sprintf("comparator %s failed: %v", rule.Comparator, err),
			}
		}
		if pass {
			return nil
		}
		class := model.ClassUnauthorizedChange
		if volatile {
			class = model.ClassExpectedChange
		}
		return &model.Finding{
			Field:          name,
			Old:            &oldV,
			New:            &newV,
			Severity:       sev,
			Classification: class,
			Detail:         rule.Reason,
		}

	case oldOK && !newOK:
		// Removed, or simply invisible to a thinner collection method.
		if model.ConfidenceRank[rec.Confidence] >= model.ConfidenceRank[base.Confidence] {
			return &model.Finding{
				Field:          name,
				Old:            &oldV,
				Severity:       sev,
				Classification: model.ClassUnauthorizedChange,
				Detail:         fmt.Sprintf("present in baseline, absent at %s confidence", rec.Confidence),
			}
		}
		return &model.Finding{
			Field:          name,
			Old:            &oldV,
			Severity:       model.CapSeverity(sev, model.SevLow),
			Classification: model.ClassCollectionGap,
			Detail: fmt.Sprintf("baseline established at %s confidence, current collection is %s",
				base.Confidence, rec.Confidence),
		}

	default: // !oldOK && newOK
		if !explicit {
			sev = model.SevMedium
		}
		return &model.Finding{
			Field:          name,
			New:            &newV,
			Severity:       sev,
			Classification: model.ClassAnomalousBehavior,
			Detail:         "field not present in baseline",
		}
	}
}

// safeCompare runs the comparator with panic isolation. A panicking
// comparator must cost one finding, not the whole evaluation.
func safeCompare(rule ruleset.Rule, old, new model.Value) (pass bool, err error) {
	defer func() {
		if r := recover(); r != nil {
			pass = false
			err = fmt.Errorf("comparator panic: %v", r)
		}
	}()
	return ruleset.Compare(rule, old, new)
}

// undeclaredFields returns the sorted union of field names present in the
// baseline record or new record but not declared by the schema.
func undeclaredFields(s *schema.Schema, base, rec *model.EvidenceRecord) []string {
	seen := map[string]bool{}
	add := func(r *model.EvidenceRecord) {
		if r == nil {
			return
		}
		for name := range r.Fields {
			if _, declared := s.Field(name); !declared {
				seen[name] = true
			}
		}
	}
	add(base)
	add(rec)

	out := make([]string, 0, len(seen))
	for name := range seen {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}
