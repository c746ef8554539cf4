package model

import (
	"encoding/json"
	"testing"
)

func TestSetValueOrderIndependent(t *testing.T) {
	a := SetValue([]string{"ntp", "ssh", "https"})
	b := SetValue([]string{"https", "ntp", "ssh"})

	if !a.Equal(b) {
		t.Errorf("sets with same members in different order should be equal")
	}

	aj, _ := json.Marshal(a)
	bj, _ := json.Marshal(b)
	if string(aj) != string(bj) {
		t.Errorf("set marshalling not canonical: %s vs %s", aj, bj)
	}
}

func TestSetValueCopiesInput(t *testing.T) {
	members := []string{"b", "a"}
	v := SetValue(members)
	members[0] = "mutated"
	if v.Set[0] != "a" || v.Set[1] != "b" {
		t.Errorf("SetValue must copy and sort, got %v", v.Set)
	}
}

func TestValueEqual(t *testing.T) {
	tests := []struct {
		name string
		a, b Value
		want bool
	}{
		{"same string", StringValue("v7.2"), StringValue("v7.2"), true},
		{"different string", StringValue("v7.2"), StringValue("v7.3"), false},
		{"same number", NumberValue(22), NumberValue(22), true},
		{"different number", NumberValue(22), NumberValue(23), false},
		{"same bool", BoolValue(true), BoolValue(true), true},
		{"different bool", BoolValue(true), BoolValue(false), false},
		{"kind mismatch", StringValue("22"), NumberValue(22), false},
		{"same digest", DigestValue("sha256:ab"), DigestValue("sha256:ab"), true},
		{"different digest", DigestValue("sha256:ab"), DigestValue("sha256:cd"), false},
		{"set subset", SetValue([]string{"a", "b"}), SetValue([]string{"a"}), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.a.Equal(tt.b); got != tt.want {
				t.Errorf("Equal() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestDigestOfDeterministic(t *testing.T) {
	a := DigestOf([]byte("ruleset-v1"))
	b := DigestOf([]byte("ruleset-v1"))
	if a.Digest != b.Digest {
		t.Errorf("same input must hash identically")
	}
	if a.Digest[:7] != "sha256:" {
		t.Errorf("digest must carry sha256: prefix, got %q", a.Digest)
	}
	if DigestOf([]byte("other")).Equal(a) {
		t.Errorf("different input must not collide")
	}
}

func TestSeverityFolding(t *testing.T) {
	if MaxSeverity(SevLow, SevCritical) != SevCritical {
		t.Errorf("max of low/critical should be critical")
	}
	if MaxSeverity(SevHigh, SevMedium) != SevHigh {
		t.Errorf("max of high/medium should be high")
	}
	if CapSeverity(SevCritical, SevLow) != SevLow {
		t.Errorf("critical capped at low should be low")
	}
	if CapSeverity(SevInformational, SevLow) != SevInformational {
		t.Errorf("cap must not raise severity")
	}
}

func TestParseSeverityUnknownDefaultsInformational(t *testing.T) {
	if got := ParseSeverity("catastrophic"); got != SevInformational {
		t.Errorf("unknown severity should parse as informational, got %s", got)
	}
	if got := ParseSeverity("high"); got != SevHigh {
		t.Errorf("known severity should round-trip, got %s", got)
	}
}

func TestParseConfidenceUnknownDefaultsSignatureOnly(t *testing.T) {
	if got := ParseConfidence("superb"); got != ConfidenceSignatureOnly {
		t.Errorf("unknown confidence should parse as signature-only, got %s", got)
	}
}

func TestOverallSeverityExcludesExpectedChange(t *testing.T) {
	findings := []Finding{
		{Field: "uptime_ticks", Severity: SevCritical, Classification: ClassExpectedChange},
		{Field: "firmware", Severity: SevMedium, Classification: ClassUnauthorizedChange},
	}
	if got := OverallSeverity(findings); got != SevMedium {
		t.Errorf("expected-change findings must not raise overall, got %s", got)
	}
	if got := OverallSeverity(nil); got != SevInformational {
		t.Errorf("empty findings should be informational, got %s", got)
	}
}

func TestBaselineRecordBySchema(t *testing.T) {
	b := Baseline{
		AssetID: "a1",
		Version: 3,
		Records: []EvidenceRecord{
			{Schema: "ot-relay", Fields: map[string]Value{"firmware": StringValue("v7.2")}},
			{Schema: "network-device"},
		},
	}
	rec := b.Record("ot-relay")
	if rec == nil {
		t.Fatalf("expected ot-relay record")
	}
	if v, ok := rec.Field("firmware"); !ok || v.Str != "v7.2" {
		t.Errorf("unexpected firmware field: %v %v", v, ok)
	}
	if b.Record("windows-host") != nil {
		t.Errorf("missing schema should return nil")
	}
}
