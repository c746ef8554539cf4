package ruleset

import (
	"crypto/sha256"
	"encoding/hex"

	"gopkg.in/yaml.v3"
)

// Defaults returns the built-in rule tables for the shipped schemas. Sites
// override these by dropping YAML files with the same schema name into the
// ruleset directory. Hashes are computed over the canonical marshalled form
// so built-in tables are pinnable like file-loaded ones.
func Defaults() []*RuleSet {
	sets := []*RuleSet{
		{
			Schema:  "windows-host",
			Version: "builtin-1",
			Rules: []Rule{
				{Field: "os_version", Comparator: CompareExact, Severity: "high"},
				{Field: "hostname", Comparator: CompareExact, Severity: "medium"},
				{Field: "installed_software", Comparator: CompareSet, Severity: "medium"},
				{Field: "hotfixes", Comparator: CompareSet, Severity: "low"},
				{Field: "services_running", Comparator: CompareSet, Severity: "medium"},
				{Field: "local_admins", Comparator: CompareSet, Severity: "critical"},
				{Field: "listening_ports", Comparator: CompareSet, Severity: "high"},
				{Field: "firewall_enabled", Comparator: CompareExact, Severity: "critical"},
				{Field: "antivirus_enabled", Comparator: CompareExact, Severity: "high"},
				{Field: "local_policy_digest", Comparator: CompareHash, Severity: "high"},
				{Field: "uptime_seconds", Comparator: CompareExact, Severity: "informational", Volatile: true},
				{Field: "logged_on_users", Comparator: CompareExact, Severity: "informational", Volatile: true},
			},
		},
		{
			Schema:  "linux-host",
			Version: "builtin-1",
			Rules: []Rule{
				{Field: "kernel_version", Comparator: CompareExact, Severity: "high"},
				{Field: "hostname", Comparator: CompareExact, Severity: "medium"},
				{Field: "packages", Comparator: CompareSet, Severity: "medium"},
				{Field: "services_enabled", Comparator: CompareSet, Severity: "medium"},
				{Field: "listening_ports", Comparator: CompareSet, Severity: "high"},
				{Field: "kernel_modules", Comparator: CompareSet, Severity: "high"},
				{Field: "sshd_config_digest", Comparator: CompareHash, Severity: "high"},
				{Field: "sudoers_digest", Comparator: CompareHash, Severity: "critical"},
				{Field: "selinux_enforcing", Comparator: CompareExact, Severity: "high"},
				{Field: "uptime_seconds", Comparator: CompareExact, Severity: "informational", Volatile: true},
				{Field: "load_average", Comparator: CompareExact, Severity: "informational", Volatile: true},
			},
		},
		{
			Schema:  "network-device",
			Version: "builtin-1",
			Rules: []Rule{
				{Field: "sys_descr", Comparator: CompareExact, Severity: "medium"},
				{Field: "sys_object_id", Comparator: CompareExact, Severity: "high"},
				{Field: "sys_name", Comparator: CompareExact, Severity: "medium"},
				{Field: "firmware_version", Comparator: CompareExact, Severity: "medium"},
				{Field: "interface_count", Comparator: CompareExact, Severity: "medium"},
				{Field: "interfaces_up", Comparator: CompareSet, Severity: "low"},
				{Field: "config_digest", Comparator: CompareHash, Severity: "high"},
				{Field: "uptime_ticks", Comparator: CompareExact, Severity: "informational", Volatile: true},
			},
		},
		{
			Schema:  "firewall",
			Version: "builtin-1",
			Rules: []Rule{
				{Field: "sys_descr", Comparator: CompareExact, Severity: "medium"},
				{Field: "sys_name", Comparator: CompareExact, Severity: "medium"},
				{Field: "firmware_version", Comparator: CompareExact, Severity: "high"},
				{Field: "ruleset_digest", Comparator: CompareHash, Severity: "critical"},
				{Field: "open_ports", Comparator: CompareSet, Severity: "critical"},
				{Field: "uptime_ticks", Comparator: CompareExact, Severity: "informational", Volatile: true},
			},
		},
		{
			Schema:  "ot-relay",
			Version: "builtin-1",
			Rules: []Rule{
				{Field: "sys_name", Comparator: CompareExact, Severity: "medium"},
				{Field: "firmware_version", Comparator: CompareExact, Severity: "critical"},
				{Field: "cert_fingerprint", Comparator: CompareExact, Severity: "critical"},
				{Field: "settings_digest", Comparator: CompareHash, Severity: "critical"},
				{Field: "protection_elements", Comparator: CompareSet, Severity: "critical"},
				{Field: "uptime_ticks", Comparator: CompareExact, Severity: "informational", Volatile: true},
			},
		},
		{
			Schema:  "ot-rtu",
			Version: "builtin-1",
			Rules: []Rule{
				{Field: "sys_name", Comparator: CompareExact, Severity: "medium"},
				{Field: "firmware_version", Comparator: CompareExact, Severity: "critical"},
				{Field: "point_map_digest", Comparator: CompareHash, Severity: "critical"},
				{Field: "protocol_versions", Comparator: CompareSet, Severity: "high"},
				{Field: "comm_paths", Comparator: CompareSet, Severity: "high"},
				{Field: "uptime_ticks", Comparator: CompareExact, Severity: "informational", Volatile: true},
			},
		},
	}

	for _, rs := range sets {
		data, err := yaml.Marshal(rs)
		if err != nil {
			continue
		}
		h := sha256.Sum256(data)
		rs.Hash = "sha256:" + hex.EncodeToString(h[:])
	}
	return sets
}

// DefaultYAML returns a commented starter rule set for `cacmd ruleset init`.
func DefaultYAML() string {
	return `# cacm rule set
# Generated by: cacmd ruleset init
#
# One file per schema. Fields without a rule default to
# informational severity with exact comparison.
#
# Comparators:
#   exact     - values must be identical
#   set       - order-independent membership comparison
#   tolerance - numeric, passes while |old-new| <= tolerance
#   regex     - new value must still match pattern
#   hash      - sha256 digest equality (for fields stored as digests)
#
# volatile: true marks expected-volatile fields (uptime counters).
# Their changes are classified expected-change and excluded from the
# report's overall severity.

schema: network-device
version: "2026.09-1"
rules:
  - field: firmware_version
    comparator: exact
    severity: medium
  - field: config_digest
    comparator: hash
    severity: high
  - field: interfaces_up
    comparator: set
    severity: low
  - field: uptime_ticks
    comparator: exact
    severity: informational
    volatile: true
`
}
