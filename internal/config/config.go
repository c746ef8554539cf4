// Package config loads daemon configuration from YAML, merged over built-in
// defaults so a partial file only overrides what it names.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/cacmlabs/cacm/internal/collector"
	"github.com/cacmlabs/cacm/internal/emit"
	"github.com/cacmlabs/cacm/internal/model"
)

// AssetEntry declares one managed device in the inventory. Names are the
// stable operator-facing identity; the store assigns UUIDs on first sight.
type AssetEntry struct {
	Name   string `yaml:"name"`
	Class  string `yaml:"class"`
	Impact string `yaml:"impact"`
	IP     string `yaml:"ip"`
	Site   string `yaml:"site"`
	Owner  string `yaml:"owner"`
}

// Config holds all daemon parameters.
type Config struct {
	DBPath     string `yaml:"db_path"`
	SchemaDir  string `yaml:"schema_dir"`
	RulesetDir string `yaml:"ruleset_dir"`
	ReportDir  string `yaml:"report_dir"`
	AuditLog   string `yaml:"audit_log"`
	DumpDir    string `yaml:"dump_dir"`

	Workers  int           `yaml:"workers"`
	Timeout  time.Duration `yaml:"timeout"`
	Interval time.Duration `yaml:"interval"`

	SNMP collector.SNMPConfig `yaml:"snmp"`

	Assets []AssetEntry `yaml:"assets"`

	Webhooks []emit.WebhookConfig `yaml:"webhooks"`
}

// DefaultConfig returns the built-in configuration.
func DefaultConfig() *Config {
	base := baseDir()
	return &Config{
		DBPath:     filepath.Join(base, "cacm.db"),
		SchemaDir:  filepath.Join(base, "schemas"),
		RulesetDir: filepath.Join(base, "rulesets"),
		ReportDir:  filepath.Join(base, "reports"),
		AuditLog:   filepath.Join(base, "audit.log"),
		DumpDir:    filepath.Join(base, "dumps"),
		Workers:    8,
		Timeout:    30 * time.Second,
		Interval:   15 * time.Minute,
	}
}

// Load reads configuration from a YAML file. Empty path falls back to
// ~/.cacm/config.yaml. Missing file returns defaults. Invalid YAML or an
// invalid inventory returns an error.
func Load(path string) (*Config, error) {
	if path == "" {
		path = filepath.Join(baseDir(), "config.yaml")
	}

	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate rejects inventory entries the cycle could not act on.
func (c *Config) Validate() error {
	seen := make(map[string]bool, len(c.Assets))
	for i, a := range c.Assets {
		if a.Name == "" {
			return fmt.Errorf("assets[%d]: name required", i)
		}
		if seen[a.Name] {
			return fmt.Errorf("assets[%d]: duplicate asset name %q", i, a.Name)
		}
		seen[a.Name] = true
		switch model.DeviceClass(a.Class) {
		case model.ClassWindows, model.ClassLinux, model.ClassNetworkDevice,
			model.ClassFirewall, model.ClassOTRelay, model.ClassOTRTU,
			model.ClassPLC, model.ClassHMI, model.ClassHistorian:
		default:
			return fmt.Errorf("assets[%d] (%s): unknown device class %q", i, a.Name, a.Class)
		}
		switch model.ImpactLevel(a.Impact) {
		case "", model.ImpactHigh, model.ImpactMedium:
		default:
			return fmt.Errorf("assets[%d] (%s): unknown impact level %q", i, a.Name, a.Impact)
		}
	}
	if c.Workers < 0 {
		return fmt.Errorf("workers must not be negative")
	}
	return nil
}

// Asset converts an inventory entry into the model type. The store fills in
// the UUID and timestamps.
func (a AssetEntry) Asset() model.Asset {
	return model.Asset{
		Name:        a.Name,
		DeviceClass: model.DeviceClass(a.Class),
		ImpactLevel: model.ImpactLevel(a.Impact),
		IPAddress:   a.IP,
		Site:        a.Site,
		Owner:       a.Owner,
	}
}

func baseDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(os.TempDir(), "cacm")
	}
	return filepath.Join(home, ".cacm")
}

// DefaultYAML returns a commented starter config for `cacmd init`.
func DefaultYAML() string {
	return `# cacmd configuration
# Generated by: cacmd init
#
# Paths default under ~/.cacm/ when omitted.

# db_path: ~/.cacm/cacm.db          # asset registry and baseline versions
# schema_dir: ~/.cacm/schemas       # extra schema definitions (YAML)
# ruleset_dir: ~/.cacm/rulesets     # rule set files, hot-reloaded
# report_dir: ~/.cacm/reports       # drift reports pending review
# audit_log: ~/.cacm/audit.log      # hash-chained evidence trail
# dump_dir: ~/.cacm/dumps           # agent evidence dumps (<asset>.json)

workers: 8          # collection concurrency
timeout: 30s        # per-asset collection deadline
interval: 15m       # cycle period for the daemon

snmp:
  version: "2c"     # "2c" or "3"
  community: public
  timeout: 5s
  retries: 2
  # SNMPv3 credentials (version: "3"):
  # username: cacm
  # auth_key: ...
  # priv_key: ...

# Managed device inventory. class is one of:
#   windows linux network_device firewall ot-relay ot-rtu plc hmi historian
assets: []
#  - name: sub-a-relay-1
#    class: ot-relay
#    impact: high
#    ip: 10.20.0.11
#    site: substation-a
#    owner: protection-eng

# Webhook destinations for drift and collection-gap events.
webhooks: []
#  - url: https://hooks.example.com/cacm
#    format: generic          # generic | slack | pagerduty
#    events: [drift_report, collection_gap]
#    min_severity: medium
`
}
