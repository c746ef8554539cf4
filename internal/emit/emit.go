// Package emit publishes finalized drift reports and baseline transitions
// as structured webhook events. Consumers (evidence stores, SIEM) subscribe
// but cannot alter core state.
package emit

import (
	"github.com/cacmlabs/cacm/internal/model"
)

// Event types.
const (
	EventDriftReport        = "drift_report"
	EventBaselineTransition = "baseline_transition"
	EventCollectionGap      = "collection_gap"
)

// WebhookConfig defines one webhook destination.
type WebhookConfig struct {
	URL         string            `yaml:"url"     json:"url"`
	Format      string            `yaml:"format"  json:"format"` // "generic", "slack", "pagerduty"
	Events      []string          `yaml:"events"  json:"events"`
	MinSeverity string            `yaml:"min_severity" json:"min_severity"`
	Headers     map[string]string `yaml:"headers" json:"headers"`
}

// Event is the payload sent to webhook endpoints.
type Event struct {
	Timestamp       string         `json:"timestamp"`
	Type            string         `json:"type"`
	AssetID         string         `json:"asset_id"`
	AssetName       string         `json:"asset_name,omitempty"`
	ReportID        string         `json:"report_id,omitempty"`
	Schema          string         `json:"schema,omitempty"`
	Overall         model.Severity `json:"overall,omitempty"`
	Findings        int            `json:"findings,omitempty"`
	Disposition     string         `json:"disposition,omitempty"`
	BaselineVersion int            `json:"baseline_version,omitempty"`
	ApprovedBy      string         `json:"approved_by,omitempty"`
	RuleSetVersion  string         `json:"ruleset_version,omitempty"`
	RuleSetHash     string         `json:"ruleset_hash,omitempty"`
	Detail          string         `json:"detail,omitempty"`
}

// Dispatcher fans out events to matching webhook configurations.
type Dispatcher struct {
	configs []WebhookConfig
}

// NewDispatcher creates a Dispatcher from webhook configurations.
// Returns nil if configs is empty (callers should nil-check).
func NewDispatcher(configs []WebhookConfig) *Dispatcher {
	if len(configs) == 0 {
		return nil
	}
	return &Dispatcher{configs: configs}
}

// Dispatch sends the event to all webhooks whose filters match.
// Fires goroutines and does not block the caller.
func (d *Dispatcher) Dispatch(event Event) {
	if d == nil {
		return
	}
	for _, cfg := range d.configs {
		if matches(cfg, event) {
			go Send(cfg, event) //nolint:errcheck
		}
	}
}

func matches(cfg WebhookConfig, event Event) bool {
	if cfg.MinSeverity != "" && event.Overall != "" {
		if model.SeverityRank[event.Overall] < model.SeverityRank[model.ParseSeverity(cfg.MinSeverity)] {
			return false
		}
	}
	if len(cfg.Events) == 0 {
		return true
	}
	for _, e := range cfg.Events {
		if e == event.Type {
			return true
		}
	}
	return false
}
