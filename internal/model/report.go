package model

import "time"

// Finding is one field-level discrepancy between a new evidence record and
// the current baseline. Old/New are nil when the field is absent on that
// side. Severity and classification are derived deterministically from the
// rule set plus confidence context.
type Finding struct {
	Field          string         `json:"field"`
	Old            *Value         `json:"old,omitempty"`
	New            *Value         `json:"new,omitempty"`
	Severity       Severity       `json:"severity"`
	Classification Classification `json:"classification"`
	Detail         string         `json:"detail,omitempty"`
}

// Report is the ordered finding set for one asset at one comparison time.
// RuleSetVersion and RuleSetHash pin the exact rules used, so later rule
// changes never retroactively alter an emitted report.
type Report struct {
	ID              string      `json:"id"`
	AssetID         string      `json:"asset_id"`
	Schema          string      `json:"schema"`
	BaselineVersion int         `json:"baseline_version"`
	RuleSetVersion  string      `json:"ruleset_version"`
	RuleSetHash     string      `json:"ruleset_hash"`
	ComparedAt      time.Time   `json:"compared_at"`
	Confidence      Confidence  `json:"confidence"`
	Findings        []Finding   `json:"findings"`
	Overall         Severity    `json:"overall"`
	Disposition     Disposition `json:"disposition"`
	ReviewedBy      string      `json:"reviewed_by,omitempty"`
	ResolvedAt      *time.Time  `json:"resolved_at,omitempty"`
}

// OverallSeverity folds findings into the report-level severity: the maximum
// among findings not classified expected-change. A report with no qualifying
// findings is informational.
func OverallSeverity(findings []Finding) Severity {
	overall := SevInformational
	for _, f := range findings {
		if f.Classification == ClassExpectedChange {
			continue
		}
		overall = MaxSeverity(overall, f.Severity)
	}
	return overall
}

// HasDrift reports whether the report contains any finding above
// informational that is not an expected change.
func (r *Report) HasDrift() bool {
	for _, f := range r.Findings {
		if f.Classification == ClassExpectedChange {
			continue
		}
		if SeverityRank[f.Severity] > SeverityRank[SevInformational] {
			return true
		}
	}
	return false
}
