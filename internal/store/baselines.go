package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/cacmlabs/cacm/internal/model"
)

// CurrentBaseline returns the highest-versioned baseline for an asset, or
// ErrNotFound when the asset has never had one approved.
func (d *DB) CurrentBaseline(ctx context.Context, assetID string) (*model.Baseline, error) {
	row := d.sql.QueryRowContext(ctx, `
		SELECT asset_id, version, records, approved_by, approved_at
		FROM baselines WHERE asset_id = ?
		ORDER BY version DESC LIMIT 1`, assetID)
	return scanBaseline(row)
}

// BaselineHistory returns all baseline versions for an asset, oldest first.
func (d *DB) BaselineHistory(ctx context.Context, assetID string) ([]model.Baseline, error) {
	rows, err := d.sql.QueryContext(ctx, `
		SELECT asset_id, version, records, approved_by, approved_at
		FROM baselines WHERE asset_id = ?
		ORDER BY version ASC`, assetID)
	if err != nil {
		return nil, fmt.Errorf("store: baseline history: %w", err)
	}
	defer rows.Close()

	var out []model.Baseline
	for rows.Next() {
		b, err := scanBaseline(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *b)
	}
	return out, rows.Err()
}

// AppendBaseline commits a new baseline version for an asset.
//
// expectVersion is the version the approver reviewed against (0 for a first
// baseline). The append runs under the per-asset lock and re-checks the
// current version inside the transaction; a stale expectVersion fails with
// ErrConflict and the caller must retry against the now-current baseline.
// Cancellation rolls back: a partially-applied baseline is impossible.
func (d *DB) AppendBaseline(ctx context.Context, assetID string, records []model.EvidenceRecord, approver string, expectVersion int) (*model.Baseline, error) {
	if approver == "" {
		return nil, fmt.Errorf("store: append baseline: approver identity required")
	}

	lock := d.assetLock(assetID)
	lock.Lock()
	defer lock.Unlock()

	tx, err := d.sql.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("store: begin append: %w", err)
	}
	defer tx.Rollback()

	var exists int
	if err := tx.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM assets WHERE id = ?`, assetID).Scan(&exists); err != nil {
		return nil, fmt.Errorf("store: check asset: %w", err)
	}
	if exists == 0 {
		return nil, fmt.Errorf("asset %s: %w", assetID, ErrNotFound)
	}

	var current int
	if err := tx.QueryRowContext(ctx,
		`SELECT COALESCE(MAX(version), 0) FROM baselines WHERE asset_id = ?`,
		assetID).Scan(&current); err != nil {
		return nil, fmt.Errorf("store: read current version: %w", err)
	}
	if current != expectVersion {
		return nil, fmt.Errorf("asset %s: baseline moved from v%d to v%d: %w",
			assetID, expectVersion, current, ErrConflict)
	}

	data, err := json.Marshal(records)
	if err != nil {
		return nil, fmt.Errorf("store: encode records: %w", err)
	}

	b := &model.Baseline{
		AssetID:    assetID,
		Version:    current + 1,
		Records:    records,
		ApprovedBy: approver,
		ApprovedAt: time.Now().UTC(),
	}
	_, err = tx.ExecContext(ctx, `
		INSERT INTO baselines (asset_id, version, records, approved_by, approved_at)
		VALUES (?, ?, ?, ?, ?)`,
		b.AssetID, b.Version, string(data), b.ApprovedBy,
		b.ApprovedAt.Format(time.RFC3339Nano))
	if err != nil {
		return nil, fmt.Errorf("store: insert baseline: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("store: commit baseline: %w", err)
	}
	return b, nil
}

func scanBaseline(row rowScanner) (*model.Baseline, error) {
	var b model.Baseline
	var records, approvedAt string
	err := row.Scan(&b.AssetID, &b.Version, &records, &b.ApprovedBy, &approvedAt)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("store: scan baseline: %w", err)
	}
	if err := json.Unmarshal([]byte(records), &b.Records); err != nil {
		return nil, fmt.Errorf("store: decode baseline records: %w", err)
	}
	b.ApprovedAt, _ = time.Parse(time.RFC3339Nano, approvedAt)
	return &b, nil
}
