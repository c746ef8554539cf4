package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/cacmlabs/cacm/internal/model"
)

// EnsureAsset returns the asset with the given name and class, creating it
// on first sight. This is the only path that creates assets: the first
// successful collection registers the device.
func (d *DB) EnsureAsset(ctx context.Context, name string, class model.DeviceClass, ip string) (*model.Asset, error) {
	a, err := d.assetByName(ctx, name)
	if err == nil {
		return a, nil
	}
	if !isNotFound(err) {
		return nil, err
	}

	now := time.Now().UTC()
	a = &model.Asset{
		ID:          uuid.NewString(),
		Name:        name,
		DeviceClass: class,
		IPAddress:   ip,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	_, err = d.sql.ExecContext(ctx, `
		INSERT INTO assets (id, name, device_class, ip_address, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)`,
		a.ID, a.Name, string(a.DeviceClass), a.IPAddress,
		now.Format(time.RFC3339Nano), now.Format(time.RFC3339Nano))
	if err != nil {
		return nil, fmt.Errorf("store: create asset: %w", err)
	}
	return a, nil
}

// Asset returns an asset by ID. ErrNotFound for unknown IDs; assets are
// never created implicitly here.
func (d *DB) Asset(ctx context.Context, id string) (*model.Asset, error) {
	row := d.sql.QueryRowContext(ctx, assetSelect+` WHERE id = ?`, id)
	return scanAsset(row)
}

// ListAssets returns all assets ordered by name, including retired ones.
func (d *DB) ListAssets(ctx context.Context) ([]model.Asset, error) {
	rows, err := d.sql.QueryContext(ctx, assetSelect+` ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("store: list assets: %w", err)
	}
	defer rows.Close()

	var out []model.Asset
	for rows.Next() {
		a, err := scanAsset(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *a)
	}
	return out, rows.Err()
}

// RetireAsset tombstones an asset. Historical baselines stay intact:
// CIP-010-4 evidence retention forbids hard deletes.
func (d *DB) RetireAsset(ctx context.Context, id string) error {
	res, err := d.sql.ExecContext(ctx, `
		UPDATE assets SET retired = 1, updated_at = ? WHERE id = ?`,
		time.Now().UTC().Format(time.RFC3339Nano), id)
	if err != nil {
		return fmt.Errorf("store: retire asset: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("asset %s: %w", id, ErrNotFound)
	}
	return nil
}

// UpdateAssetMeta updates mutable metadata. Identity fields never change.
func (d *DB) UpdateAssetMeta(ctx context.Context, id string, impact model.ImpactLevel, site, owner string) error {
	res, err := d.sql.ExecContext(ctx, `
		UPDATE assets SET impact_level = ?, site = ?, owner = ?, updated_at = ?
		WHERE id = ?`,
		string(impact), site, owner, time.Now().UTC().Format(time.RFC3339Nano), id)
	if err != nil {
		return fmt.Errorf("store: update asset: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("asset %s: %w", id, ErrNotFound)
	}
	return nil
}

const assetSelect = `
	SELECT id, name, device_class, impact_level, ip_address, site, owner,
	       retired, created_at, updated_at
	FROM assets`

func (d *DB) assetByName(ctx context.Context, name string) (*model.Asset, error) {
	row := d.sql.QueryRowContext(ctx, assetSelect+` WHERE name = ?`, name)
	return scanAsset(row)
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanAsset(row rowScanner) (*model.Asset, error) {
	var a model.Asset
	var class, impact, created, updated string
	var retired int
	err := row.Scan(&a.ID, &a.Name, &class, &impact, &a.IPAddress, &a.Site,
		&a.Owner, &retired, &created, &updated)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("store: scan asset: %w", err)
	}
	a.DeviceClass = model.DeviceClass(class)
	a.ImpactLevel = model.ImpactLevel(impact)
	a.Retired = retired != 0
	a.CreatedAt, _ = time.Parse(time.RFC3339Nano, created)
	a.UpdatedAt, _ = time.Parse(time.RFC3339Nano, updated)
	return &a, nil
}

func isNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}
