package schema

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"
)

// Registry holds all known schemas keyed by name and version. Built-in
// schemas are always present; site-specific schemas loaded from a directory
// override built-ins with the same key.
type Registry struct {
	mu      sync.RWMutex
	schemas map[string]*Schema
}

// NewRegistry creates a registry populated with the built-in schemas.
func NewRegistry() *Registry {
	r := &Registry{schemas: make(map[string]*Schema)}
	for _, s := range builtins() {
		r.schemas[s.Key()] = s
	}
	return r
}

// Lookup returns the schema for a name and version.
func (r *Registry) Lookup(name string, version int) (*Schema, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.schemas[fmt.Sprintf("%s@v%d", name, version)]
	return s, ok
}

// Latest returns the highest-versioned schema for a name.
func (r *Registry) Latest(name string) (*Schema, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var best *Schema
	for _, s := range r.schemas {
		if s.Name != name {
			continue
		}
		if best == nil || s.Version > best.Version {
			best = s
		}
	}
	return best, best != nil
}

// ForClass returns the latest schema for each schema name declared for the
// given device class, sorted by name for determinism.
func (r *Registry) ForClass(class string) []*Schema {
	r.mu.RLock()
	defer r.mu.RUnlock()
	latest := map[string]*Schema{}
	for _, s := range r.schemas {
		if s.Class != class {
			continue
		}
		if cur, ok := latest[s.Name]; !ok || s.Version > cur.Version {
			latest[s.Name] = s
		}
	}
	out := make([]*Schema, 0, len(latest))
	for _, s := range latest {
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// Register validates and adds a schema, replacing any existing schema with
// the same name and version.
func (r *Registry) Register(s *Schema) error {
	if err := s.Validate(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.schemas[s.Key()] = s
	return nil
}

// LoadDir loads every .yaml/.yml schema file in dir into the registry.
// A missing directory is not an error: built-ins still apply.
func (r *Registry) LoadDir(dir string) error {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("read schema directory: %w", err)
	}

	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		name := e.Name()
		if !strings.HasSuffix(name, ".yaml") && !strings.HasSuffix(name, ".yml") {
			continue
		}
		data, err := os.ReadFile(filepath.Join(dir, name))
		if err != nil {
			return fmt.Errorf("read schema %s: %w", name, err)
		}
		var s Schema
		if err := yaml.Unmarshal(data, &s); err != nil {
			return fmt.Errorf("parse schema %s: %w", name, err)
		}
		if err := r.Register(&s); err != nil {
			return fmt.Errorf("schema %s: %w", name, err)
		}
	}
	return nil
}
