package model

import "time"

// DeviceClass determines collection strategy. IT classes support agent-based
// or full-dump collection; OT classes are typically restricted to agentless,
// signature-based evidence.
type DeviceClass string

const (
	ClassWindows       DeviceClass = "windows"
	ClassLinux         DeviceClass = "linux"
	ClassNetworkDevice DeviceClass = "network_device"
	ClassFirewall      DeviceClass = "firewall"
	ClassOTRelay       DeviceClass = "ot-relay"
	ClassOTRTU         DeviceClass = "ot-rtu"
	ClassPLC           DeviceClass = "plc"
	ClassHMI           DeviceClass = "hmi"
	ClassHistorian     DeviceClass = "historian"
)

// IsOT reports whether the class is an operational-technology device that
// must not be probed intrusively.
func (c DeviceClass) IsOT() bool {
	switch c {
	case ClassOTRelay, ClassOTRTU, ClassPLC, ClassHMI, ClassHistorian:
		return true
	}
	return false
}

// ImpactLevel is the BES Cyber System impact rating per CIP-002.
type ImpactLevel string

const (
	ImpactHigh   ImpactLevel = "high"
	ImpactMedium ImpactLevel = "medium"
)

// Asset is a managed device. Identity (ID, Name, DeviceClass) is immutable;
// metadata may change. Assets are never deleted; retired assets are
// tombstoned so historical baselines remain available for audit.
type Asset struct {
	ID          string      `json:"id"`
	Name        string      `json:"name"`
	DeviceClass DeviceClass `json:"device_class"`
	ImpactLevel ImpactLevel `json:"impact_level,omitempty"`
	IPAddress   string      `json:"ip_address,omitempty"`
	Site        string      `json:"site,omitempty"`
	Owner       string      `json:"owner,omitempty"`
	Retired     bool        `json:"retired"`
	CreatedAt   time.Time   `json:"created_at"`
	UpdatedAt   time.Time   `json:"updated_at"`
}
