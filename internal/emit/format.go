package emit

import (
	"encoding/json"
	"fmt"

	"github.com/cacmlabs/cacm/internal/model"
)

// FormatPayload builds the webhook body for the given format.
func FormatPayload(format string, event Event) ([]byte, error) {
	switch format {
	case "slack":
		return formatSlack(event)
	case "pagerduty":
		return formatPagerDuty(event)
	default:
		return formatGeneric(event)
	}
}

func formatGeneric(event Event) ([]byte, error) {
	return json.Marshal(event)
}

func formatSlack(event Event) ([]byte, error) {
	payload := map[string]any{
		"blocks": []any{
			map[string]any{
				"type": "header",
				"text": map[string]any{
					"type": "plain_text",
					"text": fmt.Sprintf("cacm: %s", event.Type),
				},
			},
			map[string]any{
				"type": "section",
				"fields": []any{
					map[string]any{"type": "mrkdwn", "text": fmt.Sprintf("*Asset:* %s", event.AssetName)},
					map[string]any{"type": "mrkdwn", "text": fmt.Sprintf("*Schema:* %s", event.Schema)},
					map[string]any{"type": "mrkdwn", "text": fmt.Sprintf("*Severity:* %s", event.Overall)},
					map[string]any{"type": "mrkdwn", "text": fmt.Sprintf("*Findings:* %d", event.Findings)},
					map[string]any{"type": "mrkdwn", "text": fmt.Sprintf("*Rule set:* %s", event.RuleSetVersion)},
				},
			},
		},
	}
	return json.Marshal(payload)
}

func formatPagerDuty(event Event) ([]byte, error) {
	severity := "info"
	switch model.SeverityRank[event.Overall] {
	case model.SeverityRank[model.SevCritical]:
		severity = "critical"
	case model.SeverityRank[model.SevHigh]:
		severity = "error"
	case model.SeverityRank[model.SevMedium], model.SeverityRank[model.SevLow]:
		severity = "warning"
	}

	payload := map[string]any{
		"event_action": "trigger",
		"payload": map[string]any{
			"summary":  fmt.Sprintf("cacm %s: %s (%s)", event.Type, event.AssetName, event.Overall),
			"severity": severity,
			"source":   "cacm",
			"custom_details": map[string]any{
				"asset_id":        event.AssetID,
				"report_id":       event.ReportID,
				"schema":          event.Schema,
				"findings":        event.Findings,
				"disposition":     event.Disposition,
				"ruleset_version": event.RuleSetVersion,
				"ruleset_hash":    event.RuleSetHash,
			},
		},
	}
	return json.Marshal(payload)
}
