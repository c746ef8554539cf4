package collector

import "github.com/cacmlabs/cacm/internal/model"

// Merge reconciles evidence from multiple adapters for the same asset and
// schema into one payload, deterministically:
//
//   - per field, the payload with higher collection confidence wins;
//   - on equal confidence, the later CollectedAt wins;
//   - the merged payload carries the highest confidence and latest
//     CollectedAt among its sources.
//
// Payloads for different schemas must not be merged; callers group by
// schema first. An empty input returns a zero payload.
func Merge(payloads []Payload) Payload {
	if len(payloads) == 0 {
		return Payload{}
	}
	if len(payloads) == 1 {
		return payloads[0]
	}

	merged := Payload{
		AssetName:     payloads[0].AssetName,
		Class:         payloads[0].Class,
		Schema:        payloads[0].Schema,
		SchemaVersion: payloads[0].SchemaVersion,
		Raw:           make(map[string]any),
		Confidence:    payloads[0].Confidence,
		CollectedAt:   payloads[0].CollectedAt,
	}

	// Track which payload supplied each field so a stronger source can
	// displace a weaker one.
	origin := make(map[string]Payload)

	for _, p := range payloads {
		if model.ConfidenceRank[p.Confidence] > model.ConfidenceRank[merged.Confidence] {
			merged.Confidence = p.Confidence
		}
		if p.CollectedAt.After(merged.CollectedAt) {
			merged.CollectedAt = p.CollectedAt
		}
		if p.SchemaVersion > merged.SchemaVersion {
			merged.SchemaVersion = p.SchemaVersion
		}

		for name, val := range p.Raw {
			prev, seen := origin[name]
			if !seen || wins(p, prev) {
				merged.Raw[name] = val
				origin[name] = p
			}
		}
	}
	return merged
}

// wins reports whether payload a beats payload b for a contested field.
func wins(a, b Payload) bool {
	ra, rb := model.ConfidenceRank[a.Confidence], model.ConfidenceRank[b.Confidence]
	if ra != rb {
		return ra > rb
	}
	return a.CollectedAt.After(b.CollectedAt)
}
