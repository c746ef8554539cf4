package collector

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/cacmlabs/cacm/internal/model"
)

// dump is the JSON envelope out-of-scope collectors (WinRM, SSH, vendor
// exports) drop into the evidence directory, one file per asset.
type dump struct {
	Schema        string         `json:"schema"`
	SchemaVersion int            `json:"schema_version"`
	Confidence    string         `json:"confidence"`
	CollectedAt   time.Time      `json:"collected_at"`
	Fields        map[string]any `json:"fields"`
}

// FileAdapter ingests evidence dumps from a drop directory. It looks for
// <asset name>.json; a missing file means the external collector has not
// delivered, reported as unreachable so the cycle records a gap rather than
// silence.
type FileAdapter struct {
	dir string
}

// NewFileAdapter creates a file adapter over the given drop directory.
func NewFileAdapter(dir string) *FileAdapter {
	return &FileAdapter{dir: dir}
}

// Name implements Adapter.
func (a *FileAdapter) Name() string { return "file" }

// Supports implements Adapter. Dumps cover the agent-class hosts that SNMP
// does not.
func (a *FileAdapter) Supports(asset model.Asset) bool {
	switch asset.DeviceClass {
	case model.ClassWindows, model.ClassLinux, model.ClassHistorian:
		return true
	}
	return false
}

// Collect implements Adapter.
func (a *FileAdapter) Collect(ctx context.Context, asset model.Asset) (Payload, error) {
	if err := ctx.Err(); err != nil {
		return Payload{}, err
	}

	path := filepath.Join(a.dir, asset.Name+".json")

	// Reject symlinks: a symlinked dump could read arbitrary files.
	fi, err := os.Lstat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Payload{}, fmt.Errorf("no evidence dump for %s: %w", asset.Name, ErrUnreachable)
		}
		return Payload{}, fmt.Errorf("stat dump: %w", err)
	}
	if fi.Mode()&os.ModeSymlink != 0 {
		return Payload{}, fmt.Errorf("rejected symlink dump for %s: %w", asset.Name, ErrUnsupported)
	}

	return parseDump(path, asset, fi.ModTime().UTC())
}

// ReadDump parses a single dump file for an asset, regardless of the asset's
// device class. Offline evaluation uses this to replay vendor exports.
func ReadDump(path string, asset model.Asset) (Payload, error) {
	fi, err := os.Lstat(path)
	if err != nil {
		return Payload{}, fmt.Errorf("stat dump: %w", err)
	}
	if fi.Mode()&os.ModeSymlink != 0 {
		return Payload{}, fmt.Errorf("rejected symlink dump %s: %w", path, ErrUnsupported)
	}
	return parseDump(path, asset, fi.ModTime().UTC())
}

func parseDump(path string, asset model.Asset, modTime time.Time) (Payload, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Payload{}, fmt.Errorf("read dump: %w", err)
	}

	var d dump
	if err := json.Unmarshal(data, &d); err != nil {
		return Payload{}, fmt.Errorf("parse dump for %s: %w", asset.Name, err)
	}
	if len(d.Fields) == 0 {
		return Payload{}, fmt.Errorf("dump for %s has no fields: %w", asset.Name, ErrUnreachable)
	}

	schema := d.Schema
	if schema == "" {
		schema = schemaFor(asset.DeviceClass)
	}
	version := d.SchemaVersion
	if version == 0 {
		version = 1
	}
	conf := model.ConfidenceFull
	if d.Confidence != "" {
		conf = model.ParseConfidence(d.Confidence)
	}
	at := d.CollectedAt
	if at.IsZero() {
		at = modTime
	}

	return Payload{
		AssetName:     asset.Name,
		Class:         asset.DeviceClass,
		Schema:        schema,
		SchemaVersion: version,
		Raw:           d.Fields,
		Confidence:    conf,
		CollectedAt:   at,
	}, nil
}
