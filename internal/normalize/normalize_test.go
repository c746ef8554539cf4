package normalize

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/cacmlabs/cacm/internal/model"
	"github.com/cacmlabs/cacm/internal/schema"
)

func testNormalizer() *Normalizer {
	return New(schema.NewRegistry())
}

func relayRaw() map[string]any {
	return map[string]any{
		"sys_name":            "SUB-A-RELAY-1",
		"firmware_version":    "SEL-451-R118",
		"cert_fingerprint":    "AA:BB:CC",
		"settings_digest":     "sha256:0011223344556677889900112233445566778899001122334455667788990011",
		"protection_elements": []any{"50", "51", "87"},
		"uptime_ticks":        float64(123456),
	}
}

func TestNormalizeRelay(t *testing.T) {
	n := testNormalizer()
	at := time.Date(2026, 8, 30, 12, 0, 0, 0, time.UTC)

	rec, err := n.Normalize("ot-relay", 1, "asset-1", relayRaw(), model.ConfidenceSignatureOnly, at)
	if err != nil {
		t.Fatalf("Normalize: %v", err)
	}

	if rec.Schema != "ot-relay" || rec.SchemaVersion != 1 {
		t.Errorf("unexpected schema identity %s@v%d", rec.Schema, rec.SchemaVersion)
	}
	if rec.Confidence != model.ConfidenceSignatureOnly {
		t.Errorf("confidence must ride along, got %s", rec.Confidence)
	}
	if !rec.CollectedAt.Equal(at) {
		t.Errorf("collection time changed: %v", rec.CollectedAt)
	}

	if v, ok := rec.Field("protection_elements"); !ok || v.Kind != model.KindSet {
		t.Errorf("protection_elements should be a set, got %+v", v)
	}
	if v, ok := rec.Field("settings_digest"); !ok || v.Kind != model.KindDigest {
		t.Errorf("settings_digest should stay a digest, got %+v", v)
	}
	if len(rec.Warnings) != 0 {
		t.Errorf("complete payload should produce no warnings: %v", rec.Warnings)
	}
}

func TestNormalizeUnknownSchema(t *testing.T) {
	n := testNormalizer()
	_, err := n.Normalize("toaster", 1, "a", map[string]any{}, model.ConfidenceFull, time.Now())

	var mismatch *SchemaMismatchError
	if !errors.As(err, &mismatch) {
		t.Fatalf("expected SchemaMismatchError, got %v", err)
	}
}

func TestNormalizeAbsentFieldsWarnNotFail(t *testing.T) {
	n := testNormalizer()
	raw := relayRaw()
	delete(raw, "cert_fingerprint")
	delete(raw, "settings_digest")

	rec, err := n.Normalize("ot-relay", 1, "a", raw, model.ConfidenceSignatureOnly, time.Now())
	if err != nil {
		t.Fatalf("absent fields must not fail normalization: %v", err)
	}
	if len(rec.Warnings) != 2 {
		t.Errorf("expected 2 absence warnings, got %v", rec.Warnings)
	}
	if _, ok := rec.Field("cert_fingerprint"); ok {
		t.Errorf("absent field must not be synthesized")
	}
}

func TestNormalizeUncoercibleSignificantFieldFails(t *testing.T) {
	n := testNormalizer()
	raw := relayRaw()
	raw["protection_elements"] = map[string]any{"not": "a set"}

	_, err := n.Normalize("ot-relay", 1, "a", raw, model.ConfidenceSignatureOnly, time.Now())
	var mismatch *SchemaMismatchError
	if !errors.As(err, &mismatch) {
		t.Fatalf("uncoercible significant field should be a schema mismatch, got %v", err)
	}
	if !strings.Contains(mismatch.Reason, "protection_elements") {
		t.Errorf("mismatch should name the field: %s", mismatch.Reason)
	}
}

func TestNormalizeUncoercibleInformationalFieldWarns(t *testing.T) {
	n := testNormalizer()
	raw := map[string]any{
		"sys_descr":        "switch",
		"sys_object_id":    "1.3.6.1.4.1.9",
		"sys_name":         "SW-1",
		"sys_location":     []any{1, 2}, // informational, uncoercible to string
		"firmware_version": "15.2",
		"interface_count":  float64(24),
		"interfaces_up":    []any{"Gi0/1"},
		"config_digest":    "sha256:00112233445566778899001122334455667788990011223344556677889900aa",
		"uptime_ticks":     float64(1),
	}

	rec, err := n.Normalize("network-device", 1, "a", raw, model.ConfidencePartial, time.Now())
	if err != nil {
		t.Fatalf("informational coercion failure must not abort: %v", err)
	}
	found := false
	for _, w := range rec.Warnings {
		if strings.Contains(w, "sys_location") {
			found = true
		}
	}
	if !found {
		t.Errorf("expected a warning naming sys_location, got %v", rec.Warnings)
	}
}

func TestNormalizePreservesUnknownFields(t *testing.T) {
	n := testNormalizer()
	raw := relayRaw()
	raw["vendor_extra"] = "surprise"
	raw["sys_contact"] = "ops@example.com"

	rec, err := n.Normalize("ot-relay", 1, "a", raw, model.ConfidenceSignatureOnly, time.Now())
	if err != nil {
		t.Fatalf("Normalize: %v", err)
	}

	if len(rec.Unknown) != 2 {
		t.Fatalf("expected 2 unknown fields, got %v", rec.Unknown)
	}
	// Sorted for reproducibility.
	if rec.Unknown[0] != "sys_contact" || rec.Unknown[1] != "vendor_extra" {
		t.Errorf("unknown list should be sorted, got %v", rec.Unknown)
	}
	if v, ok := rec.Field("vendor_extra"); !ok || v.Str != "surprise" {
		t.Errorf("unknown field value must be preserved, got %+v", v)
	}
}

func TestCoerceSensitiveNeverStoresVerbatim(t *testing.T) {
	v, err := Coerce("TOP SECRET SETTINGS", schema.TypeDigest, true)
	if err != nil {
		t.Fatalf("Coerce: %v", err)
	}
	if v.Kind != model.KindDigest {
		t.Fatalf("sensitive value must become a digest, got %s", v.Kind)
	}
	if strings.Contains(v.Digest, "SECRET") {
		t.Errorf("verbatim data leaked into digest value")
	}

	// A precomputed digest passes through untouched.
	pre := "sha256:aabbccddeeff00112233445566778899aabbccddeeff00112233445566778899"
	v2, err := Coerce(pre, schema.TypeDigest, true)
	if err != nil || v2.Digest != pre {
		t.Errorf("precomputed digest should pass through, got %+v err=%v", v2, err)
	}
}

func TestCoerceNumericString(t *testing.T) {
	v, err := Coerce("42.5", schema.TypeNumber, false)
	if err != nil || v.Num != 42.5 {
		t.Errorf("numeric string should coerce, got %+v err=%v", v, err)
	}
	if _, err := Coerce("not-a-number", schema.TypeNumber, false); err == nil {
		t.Errorf("non-numeric string must not coerce to number")
	}
}
