package collector

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/gosnmp/gosnmp"

	"github.com/cacmlabs/cacm/internal/model"
)

// SNMPv2-MIB system group. The only probing surface hardened OT appliances
// reliably tolerate.
const (
	oidSysDescr    = "1.3.6.1.2.1.1.1.0"
	oidSysObjectID = "1.3.6.1.2.1.1.2.0"
	oidSysUpTime   = "1.3.6.1.2.1.1.3.0"
	oidSysContact  = "1.3.6.1.2.1.1.4.0"
	oidSysName     = "1.3.6.1.2.1.1.5.0"
	oidSysLocation = "1.3.6.1.2.1.1.6.0"

	// IF-MIB ifOperStatus column, walked only for IT network gear.
	oidIfOperStatus = "1.3.6.1.2.1.2.2.1.8"
	oidIfDescr      = "1.3.6.1.2.1.2.2.1.2"
)

// SNMPConfig configures the SNMP adapter.
type SNMPConfig struct {
	Port      uint16        `yaml:"port"`
	Community string        `yaml:"community"`
	Version   string        `yaml:"version"` // "2c" or "3"
	Timeout   time.Duration `yaml:"timeout"`
	Retries   int           `yaml:"retries"`

	// SNMPv3 (USM, SHA auth + AES privacy)
	Username string `yaml:"username"`
	AuthKey  string `yaml:"auth_key"`
	PrivKey  string `yaml:"priv_key"`
}

// SNMPAdapter collects evidence over SNMP. Network gear gets the system
// group plus an interface walk at partial confidence; OT classes get the
// system group only, tagged signature-only. The adapter never walks or
// probes beyond that on OT devices.
type SNMPAdapter struct {
	cfg SNMPConfig
}

// NewSNMPAdapter creates an SNMP adapter with defaults filled in.
func NewSNMPAdapter(cfg SNMPConfig) *SNMPAdapter {
	if cfg.Port == 0 {
		cfg.Port = 161
	}
	if cfg.Community == "" {
		cfg.Community = "public"
	}
	if cfg.Version == "" {
		cfg.Version = "2c"
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 5 * time.Second
	}
	if cfg.Retries == 0 {
		cfg.Retries = 2
	}
	return &SNMPAdapter{cfg: cfg}
}

// Name implements Adapter.
func (a *SNMPAdapter) Name() string { return "snmp" }

// Supports implements Adapter. SNMP covers addressable network and OT
// classes; agent-class hosts (windows/linux) arrive via evidence dumps.
func (a *SNMPAdapter) Supports(asset model.Asset) bool {
	if asset.IPAddress == "" {
		return false
	}
	switch asset.DeviceClass {
	case model.ClassNetworkDevice, model.ClassFirewall,
		model.ClassOTRelay, model.ClassOTRTU, model.ClassPLC, model.ClassHMI:
		return true
	}
	return false
}

// Collect implements Adapter.
func (a *SNMPAdapter) Collect(ctx context.Context, asset model.Asset) (Payload, error) {
	if !a.Supports(asset) {
		return Payload{}, fmt.Errorf("%s (%s): %w", asset.Name, asset.DeviceClass, ErrUnsupported)
	}

	client, err := a.client(ctx, asset.IPAddress)
	if err != nil {
		return Payload{}, err
	}
	if err := client.Connect(); err != nil {
		return Payload{}, fmt.Errorf("%s: %v: %w", asset.Name, err, ErrUnreachable)
	}
	defer client.Conn.Close()

	raw, missing, err := a.systemGroup(client)
	if err != nil {
		return Payload{}, err
	}

	p := Payload{
		AssetName:     asset.Name,
		Class:         asset.DeviceClass,
		Schema:        schemaFor(asset.DeviceClass),
		SchemaVersion: 1,
		Raw:           raw,
		Confidence:    model.ConfidenceSignatureOnly,
		CollectedAt:   time.Now().UTC(),
	}

	// Interface walk only on IT network gear. OT stays non-interfering.
	if !asset.DeviceClass.IsOT() {
		p.Confidence = model.ConfidencePartial
		if err := a.interfaces(client, raw); err != nil {
			missing = append(missing, "interface_count", "interfaces_up")
			return p, &PartialResponseError{Payload: p, Missing: missing, Err: err}
		}
	}

	if len(missing) > 0 {
		return p, &PartialResponseError{Payload: p, Missing: missing,
			Err: fmt.Errorf("%d system-group variables unavailable", len(missing))}
	}
	return p, nil
}

func (a *SNMPAdapter) client(ctx context.Context, target string) (*gosnmp.GoSNMP, error) {
	g := &gosnmp.GoSNMP{
		Context:   ctx,
		Target:    target,
		Port:      a.cfg.Port,
		Timeout:   a.cfg.Timeout,
		Retries:   a.cfg.Retries,
		MaxOids:   gosnmp.MaxOids,
		Transport: "udp",
	}

	switch a.cfg.Version {
	case "2c":
		g.Version = gosnmp.Version2c
		g.Community = a.cfg.Community
	case "3":
		g.Version = gosnmp.Version3
		g.SecurityModel = gosnmp.UserSecurityModel
		g.MsgFlags = gosnmp.AuthPriv
		g.SecurityParameters = &gosnmp.UsmSecurityParameters{
			UserName:                 a.cfg.Username,
			AuthenticationProtocol:   gosnmp.SHA,
			AuthenticationPassphrase: a.cfg.AuthKey,
			PrivacyProtocol:          gosnmp.AES,
			PrivacyPassphrase:        a.cfg.PrivKey,
		}
	default:
		return nil, fmt.Errorf("unsupported SNMP version %q", a.cfg.Version)
	}
	return g, nil
}

// systemGroup reads the SNMPv2-MIB system group into raw payload fields.
func (a *SNMPAdapter) systemGroup(client *gosnmp.GoSNMP) (map[string]any, []string, error) {
	oids := []string{oidSysDescr, oidSysObjectID, oidSysUpTime, oidSysContact, oidSysName, oidSysLocation}
	names := []string{"sys_descr", "sys_object_id", "uptime_ticks", "sys_contact", "sys_name", "sys_location"}

	pkt, err := client.Get(oids)
	if err != nil {
		return nil, nil, fmt.Errorf("system group get: %v: %w", err, ErrUnreachable)
	}
	if pkt.Error == gosnmp.AuthorizationError || pkt.Error == gosnmp.NoAccess {
		return nil, nil, fmt.Errorf("system group get: %s: %w", pkt.Error, ErrAuthFailure)
	}

	raw := make(map[string]any, len(oids))
	var missing []string
	for i, v := range pkt.Variables {
		if i >= len(names) {
			break
		}
		val := pduValue(v)
		if val == nil {
			missing = append(missing, names[i])
			continue
		}
		raw[names[i]] = val
	}
	return raw, missing, nil
}

// interfaces walks ifOperStatus/ifDescr and fills interface_count and the
// interfaces_up set.
func (a *SNMPAdapter) interfaces(client *gosnmp.GoSNMP, raw map[string]any) error {
	status, err := client.WalkAll(oidIfOperStatus)
	if err != nil {
		return fmt.Errorf("ifOperStatus walk: %w", err)
	}
	descr, err := client.WalkAll(oidIfDescr)
	if err != nil {
		return fmt.Errorf("ifDescr walk: %w", err)
	}

	namesByIndex := make(map[string]string, len(descr))
	for _, v := range descr {
		if s, ok := pduValue(v).(string); ok {
			namesByIndex[indexOf(v.Name)] = s
		}
	}

	var up []string
	for _, v := range status {
		n, ok := pduValue(v).(float64)
		if !ok || n != 1 { // 1 = up
			continue
		}
		idx := indexOf(v.Name)
		if name, ok := namesByIndex[idx]; ok {
			up = append(up, name)
		} else {
			up = append(up, "if"+idx)
		}
	}

	raw["interface_count"] = float64(len(status))
	raw["interfaces_up"] = up
	return nil
}

// pduValue flattens a PDU into the raw payload value space (string, float64
// or nil).
func pduValue(v gosnmp.SnmpPDU) any {
	switch v.Type {
	case gosnmp.OctetString:
		if b, ok := v.Value.([]byte); ok {
			return string(b)
		}
	case gosnmp.ObjectIdentifier:
		if s, ok := v.Value.(string); ok {
			return s
		}
	case gosnmp.TimeTicks, gosnmp.Counter32, gosnmp.Counter64, gosnmp.Gauge32, gosnmp.Integer, gosnmp.Uinteger32:
		return float64(gosnmp.ToBigInt(v.Value).Int64())
	}
	return nil
}

// indexOf extracts the table index suffix from a walked OID name.
func indexOf(oid string) string {
	i := strings.LastIndex(oid, ".")
	if i < 0 {
		return oid
	}
	return oid[i+1:]
}

// schemaFor maps a device class to its built-in schema name.
func schemaFor(class model.DeviceClass) string {
	switch class {
	case model.ClassWindows:
		return "windows-host"
	case model.ClassLinux:
		return "linux-host"
	case model.ClassFirewall:
		return "firewall"
	case model.ClassOTRelay:
		return "ot-relay"
	case model.ClassOTRTU:
		return "ot-rtu"
	default:
		return "network-device"
	}
}
