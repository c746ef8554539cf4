package audit

// Entry event types.
const (
	EventCycle    = "cycle"
	EventReport   = "report"
	EventDecision = "decision"
	EventBaseline = "baseline"
	EventRetired  = "asset_retired"
)

// Entry is one line in the hash-chained JSONL audit log.
// All fields are flat scalars (no map[string]any) to guarantee deterministic
// json.Marshal field order for reproducible hashing. This log is the
// compliance evidence trail: who approved what, against which rule set.
type Entry struct {
	Timestamp       string `json:"ts"`
	Event           string `json:"event"`
	AssetID         string `json:"asset_id,omitempty"`
	AssetName       string `json:"asset_name,omitempty"`
	ReportID        string `json:"report_id,omitempty"`
	Schema          string `json:"schema,omitempty"`
	Overall         string `json:"overall,omitempty"`
	Disposition     string `json:"disposition,omitempty"`
	Actor           string `json:"actor,omitempty"`
	BaselineVersion int    `json:"baseline_version,omitempty"`
	RuleSetVersion  string `json:"ruleset_version,omitempty"`
	RuleSetHash     string `json:"ruleset_hash,omitempty"`
	Detail          string `json:"detail,omitempty"`
	PrevHash        string `json:"prev_hash"`
}
