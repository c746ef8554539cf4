package schema

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/cacmlabs/cacm/internal/model"
)

func TestBuiltinsRegistered(t *testing.T) {
	r := NewRegistry()

	for _, name := range []string{"windows-host", "linux-host", "network-device", "firewall", "ot-relay", "ot-rtu"} {
		s, ok := r.Lookup(name, 1)
		if !ok {
			t.Errorf("builtin schema %s@v1 missing", name)
			continue
		}
		if err := s.Validate(); err != nil {
			t.Errorf("builtin schema %s invalid: %v", name, err)
		}
	}
}

func TestFieldTypeKinds(t *testing.T) {
	tests := []struct {
		ft   FieldType
		want model.Kind
	}{
		{TypeString, model.KindString},
		{TypeNumber, model.KindNumber},
		{TypeBool, model.KindBool},
		{TypeSet, model.KindSet},
		{TypeDigest, model.KindDigest},
	}
	for _, tt := range tests {
		if got := tt.ft.Kind(); got != tt.want {
			t.Errorf("%s.Kind() = %s, want %s", tt.ft, got, tt.want)
		}
	}
}

func TestValidateSensitiveRequiresDigest(t *testing.T) {
	s := &Schema{
		Name:    "bad",
		Class:   "linux",
		Version: 1,
		Fields:  []FieldSpec{{Name: "secret", Type: TypeString, Sensitive: true}},
	}
	if err := s.Validate(); err == nil {
		t.Errorf("sensitive non-digest field must fail validation")
	}
}

func TestForClassSorted(t *testing.T) {
	r := NewRegistry()
	schemas := r.ForClass("ot-relay")
	if len(schemas) == 0 {
		t.Fatalf("expected at least one ot-relay schema")
	}
	for i := 1; i < len(schemas); i++ {
		if schemas[i-1].Name > schemas[i].Name {
			t.Errorf("ForClass output not sorted: %s after %s", schemas[i].Name, schemas[i-1].Name)
		}
	}
}

func TestLoadDirOverridesBuiltin(t *testing.T) {
	dir := t.TempDir()
	override := `name: ot-relay
class: ot-relay
version: 1
fields:
  - name: sys_name
    type: string
    significant: true
  - name: firmware_version
    type: string
    significant: true
`
	if err := os.WriteFile(filepath.Join(dir, "ot-relay.yaml"), []byte(override), 0600); err != nil {
		t.Fatalf("write: %v", err)
	}

	r := NewRegistry()
	if err := r.LoadDir(dir); err != nil {
		t.Fatalf("LoadDir: %v", err)
	}

	s, ok := r.Lookup("ot-relay", 1)
	if !ok {
		t.Fatalf("ot-relay@v1 missing after override")
	}
	if len(s.Fields) != 2 {
		t.Errorf("override should replace builtin, got %d fields", len(s.Fields))
	}
}

func TestLoadDirMissingDirOK(t *testing.T) {
	r := NewRegistry()
	if err := r.LoadDir(filepath.Join(t.TempDir(), "nope")); err != nil {
		t.Errorf("missing schema dir should be fine: %v", err)
	}
}

func TestLatestPicksHighestVersion(t *testing.T) {
	r := NewRegistry()
	v2 := &Schema{Name: "ot-relay", Class: "ot-relay", Version: 2,
		Fields: []FieldSpec{{Name: "sys_name", Type: TypeString, Significant: true}}}
	if err := r.Register(v2); err != nil {
		t.Fatalf("Register: %v", err)
	}

	s, ok := r.Latest("ot-relay")
	if !ok || s.Version != 2 {
		t.Errorf("Latest should return v2, got %+v ok=%v", s, ok)
	}
	if _, ok := r.Lookup("ot-relay", 1); !ok {
		t.Errorf("v1 must remain addressable after v2 registration")
	}
}
