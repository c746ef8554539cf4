package review

import (
	"context"
	"errors"
	"fmt"

	"github.com/cacmlabs/cacm/internal/model"
	"github.com/cacmlabs/cacm/internal/store"
)

// BaselineStore is the slice of the persistence layer the review workflow
// needs: read the current baseline, append the next version.
type BaselineStore interface {
	CurrentBaseline(ctx context.Context, assetID string) (*model.Baseline, error)
	AppendBaseline(ctx context.Context, assetID string, records []model.EvidenceRecord, approver string, expectVersion int) (*model.Baseline, error)
}

// Manager applies reviewer decisions to stored reports. Approve is the only
// path that mutates the baseline store; acknowledge and reject leave the
// current baseline untouched.
type Manager struct {
	Reports   *Store
	Baselines BaselineStore
}

// Approve transitions a pending report to approved-as-new-baseline and
// appends the reviewed evidence as the asset's next baseline version.
//
// The append is checked against the baseline version the report was
// evaluated against. If another approval landed in between, the append
// fails with store.ErrConflict, the report stays pending, and the caller
// must re-evaluate against the fresh baseline.
func (m *Manager) Approve(ctx context.Context, reportID, reviewer string) (*model.Baseline, error) {
	item, err := m.Reports.Get(reportID)
	if err != nil {
		return nil, err
	}
	if item.Report.Disposition != model.DispositionPending {
		return nil, fmt.Errorf("report %q is %s: %w", reportID, item.Report.Disposition, ErrResolved)
	}
	if len(item.Records) == 0 {
		return nil, fmt.Errorf("report %q carries no evidence records to approve", reportID)
	}

	records, err := m.nextRecords(ctx, item)
	if err != nil {
		return nil, err
	}

	b, err := m.Baselines.AppendBaseline(ctx, item.Report.AssetID, records, reviewer, item.Report.BaselineVersion)
	if err != nil {
		// On conflict the report must remain pending so it can be retried
		// or superseded after re-evaluation.
		return nil, err
	}

	if _, err := m.Reports.transition(reportID, model.DispositionApproved, reviewer); err != nil {
		// Baseline committed but the report file failed to update: surface
		// loudly, the baseline side is authoritative.
		return b, fmt.Errorf("baseline v%d committed but report update failed: %w", b.Version, err)
	}
	return b, nil
}

// Acknowledge marks a report as seen without changing any baseline.
func (m *Manager) Acknowledge(reportID, reviewer string) error {
	_, err := m.Reports.transition(reportID, model.DispositionAcknowledged, reviewer)
	return err
}

// Reject dismisses a report without changing any baseline.
func (m *Manager) Reject(reportID, reviewer string) error {
	_, err := m.Reports.transition(reportID, model.DispositionRejected, reviewer)
	return err
}

// nextRecords builds the full evidence set for the next baseline version:
// the current baseline's records with this report's schema replaced by the
// newly reviewed evidence. Schemas the report does not cover carry forward.
func (m *Manager) nextRecords(ctx context.Context, item *Item) ([]model.EvidenceRecord, error) {
	cur, err := m.Baselines.CurrentBaseline(ctx, item.Report.AssetID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return item.Records, nil
		}
		return nil, err
	}

	replaced := map[string]bool{}
	for _, r := range item.Records {
		replaced[r.Schema] = true
	}

	out := make([]model.EvidenceRecord, 0, len(cur.Records)+len(item.Records))
	for _, r := range cur.Records {
		if !replaced[r.Schema] {
			out = append(out, r)
		}
	}
	out = append(out, item.Records...)
	return out, nil
}
