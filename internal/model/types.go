package model

// Severity classifies how serious a drift finding is.
type Severity string

const (
	SevInformational Severity = "informational"
	SevLow           Severity = "low"
	SevMedium        Severity = "medium"
	SevHigh          Severity = "high"
	SevCritical      Severity = "critical"
)

// SeverityRank maps severity to a comparable integer for max-severity folding.
var SeverityRank = map[Severity]int{
	SevInformational: 0,
	SevLow:           1,
	SevMedium:        2,
	SevHigh:          3,
	SevCritical:      4,
}

// MaxSeverity returns the higher of two severities.
func MaxSeverity(a, b Severity) Severity {
	if SeverityRank[b] > SeverityRank[a] {
		return b
	}
	return a
}

// CapSeverity returns s lowered to cap when s ranks above it.
func CapSeverity(s, cap Severity) Severity {
	if SeverityRank[s] > SeverityRank[cap] {
		return cap
	}
	return s
}

// ParseSeverity maps a string to a Severity. Unknown input defaults to
// informational so a bad rule file never inflates a report.
func ParseSeverity(s string) Severity {
	switch Severity(s) {
	case SevInformational, SevLow, SevMedium, SevHigh, SevCritical:
		return Severity(s)
	default:
		return SevInformational
	}
}

// Classification categorizes the nature of a drift finding.
type Classification string

const (
	ClassExpectedChange     Classification = "expected-change"
	ClassUnauthorizedChange Classification = "unauthorized-change"
	ClassAnomalousBehavior  Classification = "anomalous-behavior"
	ClassCollectionGap      Classification = "collection-gap"
)

// Confidence tags how complete/invasive the collection method was.
// OT appliances that reject intrusive probing produce signature-only
// evidence; full config dumps from IT hosts produce full evidence.
type Confidence string

const (
	ConfidenceFull          Confidence = "full"
	ConfidencePartial       Confidence = "partial"
	ConfidenceSignatureOnly Confidence = "signature-only"
)

// ConfidenceRank maps confidence to a comparable integer. A record may only
// be judged against baseline fields it could plausibly have observed.
var ConfidenceRank = map[Confidence]int{
	ConfidenceSignatureOnly: 0,
	ConfidencePartial:       1,
	ConfidenceFull:          2,
}

// ParseConfidence maps a string to a Confidence. Unknown input defaults to
// signature-only: never assume evidence is better than declared.
func ParseConfidence(s string) Confidence {
	switch Confidence(s) {
	case ConfidenceFull, ConfidencePartial, ConfidenceSignatureOnly:
		return Confidence(s)
	default:
		return ConfidenceSignatureOnly
	}
}

// Disposition is the review state of a drift report.
type Disposition string

const (
	DispositionPending      Disposition = "pending-review"
	DispositionAcknowledged Disposition = "acknowledged"
	DispositionApproved     Disposition = "approved-as-new-baseline"
	DispositionRejected     Disposition = "rejected"
)
