package schema

// builtins returns the schemas shipped with cacmd. Network and OT field sets
// follow the SNMP system group (sysDescr, sysName, sysUpTime and friends);
// IT host field sets cover the configuration surface CIP-010-4 baselines
// track: OS version, installed software, enabled services, open ports,
// security controls.
func builtins() []*Schema {
	return []*Schema{
		{
			Name:    "windows-host",
			Class:   "windows",
			Version: 1,
			Fields: []FieldSpec{
				{Name: "os_version", Type: TypeString, Significant: true},
				{Name: "hostname", Type: TypeString, Significant: true},
				{Name: "installed_software", Type: TypeSet, Significant: true},
				{Name: "hotfixes", Type: TypeSet, Significant: true},
				{Name: "services_running", Type: TypeSet, Significant: true},
				{Name: "local_admins", Type: TypeSet, Significant: true},
				{Name: "listening_ports", Type: TypeSet, Significant: true},
				{Name: "firewall_enabled", Type: TypeBool, Significant: true},
				{Name: "antivirus_enabled", Type: TypeBool, Significant: true},
				{Name: "local_policy_digest", Type: TypeDigest, Significant: true, Sensitive: true},
				{Name: "uptime_seconds", Type: TypeNumber, Significant: true, Volatile: true},
				{Name: "logged_on_users", Type: TypeNumber, Volatile: true},
			},
		},
		{
			Name:    "linux-host",
			Class:   "linux",
			Version: 1,
			Fields: []FieldSpec{
				{Name: "kernel_version", Type: TypeString, Significant: true},
				{Name: "hostname", Type: TypeString, Significant: true},
				{Name: "packages", Type: TypeSet, Significant: true},
				{Name: "services_enabled", Type: TypeSet, Significant: true},
				{Name: "listening_ports", Type: TypeSet, Significant: true},
				{Name: "kernel_modules", Type: TypeSet, Significant: true},
				{Name: "sshd_config_digest", Type: TypeDigest, Significant: true, Sensitive: true},
				{Name: "sudoers_digest", Type: TypeDigest, Significant: true, Sensitive: true},
				{Name: "selinux_enforcing", Type: TypeBool, Significant: true},
				{Name: "uptime_seconds", Type: TypeNumber, Significant: true, Volatile: true},
				{Name: "load_average", Type: TypeNumber, Volatile: true},
			},
		},
		{
			Name:    "network-device",
			Class:   "network_device",
			Version: 1,
			Fields: []FieldSpec{
				{Name: "sys_descr", Type: TypeString, Significant: true},
				{Name: "sys_object_id", Type: TypeString, Significant: true},
				{Name: "sys_name", Type: TypeString, Significant: true},
				{Name: "sys_location", Type: TypeString},
				{Name: "sys_contact", Type: TypeString},
				{Name: "firmware_version", Type: TypeString, Significant: true},
				{Name: "interface_count", Type: TypeNumber, Significant: true},
				{Name: "interfaces_up", Type: TypeSet, Significant: true},
				{Name: "config_digest", Type: TypeDigest, Significant: true, Sensitive: true},
				{Name: "uptime_ticks", Type: TypeNumber, Significant: true, Volatile: true},
			},
		},
		{
			Name:    "firewall",
			Class:   "firewall",
			Version: 1,
			Fields: []FieldSpec{
				{Name: "sys_descr", Type: TypeString, Significant: true},
				{Name: "sys_name", Type: TypeString, Significant: true},
				{Name: "firmware_version", Type: TypeString, Significant: true},
				{Name: "ruleset_digest", Type: TypeDigest, Significant: true, Sensitive: true},
				{Name: "open_ports", Type: TypeSet, Significant: true},
				{Name: "uptime_ticks", Type: TypeNumber, Significant: true, Volatile: true},
			},
		},
		{
			Name:    "ot-relay",
			Class:   "ot-relay",
			Version: 1,
			Fields: []FieldSpec{
				{Name: "sys_name", Type: TypeString, Significant: true},
				{Name: "firmware_version", Type: TypeString, Significant: true},
				{Name: "cert_fingerprint", Type: TypeString, Significant: true},
				{Name: "settings_digest", Type: TypeDigest, Significant: true, Sensitive: true},
				{Name: "protection_elements", Type: TypeSet, Significant: true},
				{Name: "uptime_ticks", Type: TypeNumber, Significant: true, Volatile: true},
			},
		},
		{
			Name:    "ot-rtu",
			Class:   "ot-rtu",
			Version: 1,
			Fields: []FieldSpec{
				{Name: "sys_name", Type: TypeString, Significant: true},
				{Name: "firmware_version", Type: TypeString, Significant: true},
				{Name: "point_map_digest", Type: TypeDigest, Significant: true, Sensitive: true},
				{Name: "protocol_versions", Type: TypeSet, Significant: true},
				{Name: "comm_paths", Type: TypeSet, Significant: true},
				{Name: "uptime_ticks", Type: TypeNumber, Significant: true, Volatile: true},
			},
		},
	}
}
