// Package ruleset holds the declarative comparison rules driving drift
// evaluation. Rules are data, not code branches: versioned YAML tables that
// can be audited and diffed independently of the engine.
package ruleset

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"

	"github.com/cacmlabs/cacm/internal/model"
)

// Comparator names how a field is compared between baseline and new record.
type Comparator string

const (
	CompareExact     Comparator = "exact"
	CompareSet       Comparator = "set"
	CompareTolerance Comparator = "tolerance"
	CompareRegex     Comparator = "regex"
	CompareHash      Comparator = "hash"
)

// Rule binds one field path to a comparator, severity, and classification
// hint. Volatile marks expected-volatile fields whose changes are reported
// as expected-change and excluded from overall severity.
type Rule struct {
	Field      string     `yaml:"field"`
	Comparator Comparator `yaml:"comparator"`
	Tolerance  float64    `yaml:"tolerance,omitempty"`
	Pattern    string     `yaml:"pattern,omitempty"`
	Severity   string     `yaml:"severity"`
	Volatile   bool       `yaml:"volatile,omitempty"`
	Reason     string     `yaml:"reason,omitempty"`
}

// RuleSet is the rule table for one schema. Version must be set: emitted
// reports pin the version and raw-bytes hash, so a missing version makes the
// table unusable for evaluation.
type RuleSet struct {
	Schema  string `yaml:"schema"`
	Version string `yaml:"version"`
	Rules   []Rule `yaml:"rules"`

	// Hash is "sha256:<hex>" over the raw YAML bytes on disk, or of the
	// canonical marshalled form for built-in defaults.
	Hash string `yaml:"-"`
}

// DefaultRule is applied to any field without an explicit rule:
// informational severity, exact comparison.
var DefaultRule = Rule{Comparator: CompareExact, Severity: string(model.SevInformational)}

// Lookup returns the rule for a field and whether it was explicitly
// declared. Undeclared fields fall back to DefaultRule.
func (rs *RuleSet) Lookup(field string) (Rule, bool) {
	for _, r := range rs.Rules {
		if r.Field == field {
			return r, true
		}
	}
	d := DefaultRule
	d.Field = field
	return d, false
}

// For returns the rule for a field, falling back to DefaultRule.
func (rs *RuleSet) For(field string) Rule {
	r, _ := rs.Lookup(field)
	return r
}

// Validate checks the table before it enters the active set.
func (rs *RuleSet) Validate() error {
	if rs.Schema == "" {
		return fmt.Errorf("ruleset has no schema")
	}
	if rs.Version == "" {
		return fmt.Errorf("ruleset for schema %q has no version", rs.Schema)
	}
	for _, r := range rs.Rules {
		if r.Field == "" {
			return fmt.Errorf("ruleset %s@%s: rule with empty field", rs.Schema, rs.Version)
		}
		switch r.Comparator {
		case CompareExact, CompareSet, CompareTolerance, CompareRegex, CompareHash, "":
		default:
			return fmt.Errorf("ruleset %s@%s: field %q has unknown comparator %q",
				rs.Schema, rs.Version, r.Field, r.Comparator)
		}
		if r.Comparator == CompareRegex && r.Pattern == "" {
			return fmt.Errorf("ruleset %s@%s: regex rule for %q has no pattern",
				rs.Schema, rs.Version, r.Field)
		}
	}
	return nil
}

// Load reads one rule set from a YAML file and pins its content hash.
func Load(path string) (*RuleSet, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read ruleset: %w", err)
	}

	var rs RuleSet
	if err := yaml.Unmarshal(data, &rs); err != nil {
		return nil, fmt.Errorf("parse ruleset %s: %w", filepath.Base(path), err)
	}
	if err := rs.Validate(); err != nil {
		return nil, err
	}

	h := sha256.Sum256(data)
	rs.Hash = "sha256:" + hex.EncodeToString(h[:])
	return &rs, nil
}

// Table maps schema name to its active rule set. Safe for concurrent reads;
// Replace swaps the whole table (hot reload happens between cycles, never
// mid-evaluation).
type Table struct {
	mu   sync.RWMutex
	sets map[string]*RuleSet
}

// NewTable creates an empty table.
func NewTable() *Table {
	return &Table{sets: make(map[string]*RuleSet)}
}

// For returns the rule set for a schema name, or nil when none is loaded.
func (t *Table) For(schema string) *RuleSet {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.sets[schema]
}

// Put inserts or replaces one rule set.
func (t *Table) Put(rs *RuleSet) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.sets[rs.Schema] = rs
}

// Replace swaps the full table contents.
func (t *Table) Replace(sets map[string]*RuleSet) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.sets = sets
}

// Schemas lists the schema names with loaded rule sets.
func (t *Table) Schemas() []string {
	t.mu.RLock()
	defer t.mu.RUnlock()
	out := make([]string, 0, len(t.sets))
	for k := range t.sets {
		out = append(out, k)
	}
	return out
}

// LoadDir loads every .yaml/.yml rule set in dir into a fresh table,
// merged over the built-in defaults.
func LoadDir(dir string) (*Table, error) {
	sets := make(map[string]*RuleSet)
	for _, rs := range Defaults() {
		sets[rs.Schema] = rs
	}

	entries, err := os.ReadDir(dir)
	if err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("read ruleset directory: %w", err)
	}
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		name := e.Name()
		if !strings.HasSuffix(name, ".yaml") && !strings.HasSuffix(name, ".yml") {
			continue
		}
		rs, err := Load(filepath.Join(dir, name))
		if err != nil {
			return nil, fmt.Errorf("ruleset %s: %w", name, err)
		}
		sets[rs.Schema] = rs
	}

	t := NewTable()
	t.Replace(sets)
	return t, nil
}
