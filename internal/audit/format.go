package audit

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"strings"
)

const separator = "──────────────────────────────────────────────────────────────────"

// Read loads all entries from a JSONL audit log.
func Read(path string) ([]Entry, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("audit: open: %w", err)
	}
	defer f.Close()

	var entries []Entry
	scanner := bufio.NewScanner(f)
	line := 0
	for scanner.Scan() {
		line++
		var e Entry
		if err := json.Unmarshal(scanner.Bytes(), &e); err != nil {
			return nil, fmt.Errorf("audit: parse line %d: %w", line, err)
		}
		entries = append(entries, e)
	}
	return entries, scanner.Err()
}

// FormatTimeline renders audit entries as a human-readable text timeline.
func FormatTimeline(entries []Entry) string {
	if len(entries) == 0 {
		return "No audit entries.\n"
	}

	var b strings.Builder
	b.WriteString(fmt.Sprintf("Audit trail | %s – %s\n",
		entries[0].Timestamp, entries[len(entries)-1].Timestamp))
	b.WriteString(separator + "\n")

	for _, e := range entries {
		subject := e.AssetName
		if subject == "" {
			subject = e.AssetID
		}
		detail := e.Detail
		if e.Event == EventDecision {
			detail = fmt.Sprintf("%s by %s", e.Disposition, e.Actor)
		}
		if e.Event == EventBaseline {
			detail = fmt.Sprintf("v%d approved by %s", e.BaselineVersion, e.Actor)
		}
		b.WriteString(fmt.Sprintf("%-24s %-14s %-20s %-13s %s\n",
			e.Timestamp, e.Event, truncate(subject, 20), e.Overall, truncate(detail, 48)))
	}

	b.WriteString(separator + "\n")
	b.WriteString(fmt.Sprintf("%d entries\n", len(entries)))
	return b.String()
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	if n <= 1 {
		return s[:n]
	}
	return s[:n-1] + "…"
}
