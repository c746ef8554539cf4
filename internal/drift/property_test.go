package drift

import (
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"

	"github.com/cacmlabs/cacm/internal/model"
)

// Comparing any record against itself under the same rules must never
// produce drift: every comparator is reflexive.
func TestPropertyEvaluateReflexive(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 100

	properties := gopter.NewProperties(parameters)

	genFirmware := gen.RegexMatch(`R[0-9]{2,4}`)
	genElements := gen.SliceOfN(4, gen.OneConstOf("50", "51", "87", "21", "67", "79"))
	genTicks := gen.Float64Range(0, 1e9)

	properties.Property("identical records never drift", prop.ForAll(
		func(firmware string, elements []string, ticks float64) bool {
			e := testEngine()
			fields := map[string]model.Value{
				"sys_name":            model.StringValue("SUB-A-RELAY-1"),
				"firmware_version":    model.StringValue(firmware),
				"cert_fingerprint":    model.StringValue("AA:BB:CC"),
				"settings_digest":     model.DigestOf([]byte(firmware)),
				"protection_elements": model.SetValue(elements),
				"uptime_ticks":        model.NumberValue(ticks),
			}
			b := &model.Baseline{
				AssetID: "asset-1",
				Version: 1,
				Records: []model.EvidenceRecord{*relayRecord(model.ConfidenceSignatureOnly, fields)},
			}
			r, err := e.Evaluate(b, relayRecord(model.ConfidenceSignatureOnly, fields), relayRules())
			if err != nil {
				t.Logf("Evaluate failed: %v", err)
				return false
			}
			if len(r.Findings) != 0 {
				t.Logf("self-comparison produced findings: %+v", r.Findings)
				return false
			}
			return true
		},
		genFirmware,
		genElements,
		genTicks,
	))

	properties.TestingRun(t)
}

// Any change to a volatile field is expected-change and never raises the
// report's overall severity.
func TestPropertyVolatileChangesNeverRaiseOverall(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 100

	properties := gopter.NewProperties(parameters)

	properties.Property("volatile drift stays expected-change", prop.ForAll(
		func(oldTicks, newTicks float64) bool {
			e := testEngine()
			base := relayBaseline(model.ConfidenceSignatureOnly)
			base.Records[0].Fields["uptime_ticks"] = model.NumberValue(oldTicks)
			fields := relayFields()
			fields["uptime_ticks"] = model.NumberValue(newTicks)

			r, err := e.Evaluate(base, relayRecord(model.ConfidenceSignatureOnly, fields), relayRules())
			if err != nil {
				return false
			}
			if r.Overall != model.SevInformational {
				t.Logf("overall raised to %s by volatile field", r.Overall)
				return false
			}
			for _, f := range r.Findings {
				if f.Field == "uptime_ticks" && f.Classification != model.ClassExpectedChange {
					t.Logf("uptime_ticks classified %s", f.Classification)
					return false
				}
			}
			return true
		},
		gen.Float64Range(0, 1e9),
		gen.Float64Range(0, 1e9),
	))

	properties.TestingRun(t)
}

// Fields missing from a strictly lower-confidence record are always
// collection gaps at low-or-below severity, never unauthorized changes.
func TestPropertyConfidenceLoweringNeverFlagsRemoval(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 50

	properties := gopter.NewProperties(parameters)

	genMissing := gen.OneConstOf("firmware_version", "cert_fingerprint", "settings_digest", "protection_elements")

	properties.Property("lower-confidence absence is a gap", prop.ForAll(
		func(missing string) bool {
			e := testEngine()
			fields := relayFields()
			delete(fields, missing)

			r, err := e.Evaluate(relayBaseline(model.ConfidenceFull),
				relayRecord(model.ConfidenceSignatureOnly, fields), relayRules())
			if err != nil {
				return false
			}
			for _, f := range r.Findings {
				if f.Field != missing {
					continue
				}
				if f.Classification != model.ClassCollectionGap {
					t.Logf("%s classified %s", missing, f.Classification)
					return false
				}
				if model.SeverityRank[f.Severity] > model.SeverityRank[model.SevLow] {
					t.Logf("%s severity %s above low", missing, f.Severity)
					return false
				}
			}
			return true
		},
		genMissing,
	))

	properties.TestingRun(t)
}
