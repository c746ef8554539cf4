// Package collector defines the adapter boundary through which all device
// evidence enters the core. Adapters own the device-class-specific protocol
// work; the core consumes only the declared Payload contract and never
// issues device-specific commands itself.
package collector

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cacmlabs/cacm/internal/model"
)

// Typed collection errors. Retry policy for transient failures belongs to
// the adapter layer, not the core.
var (
	ErrUnreachable = errors.New("device unreachable")
	ErrAuthFailure = errors.New("authentication failure")
	ErrUnsupported = errors.New("asset class not supported by this adapter")
)

// PartialResponseError reports a truncated collection. Non-fatal: Payload
// carries what was observed, at reduced confidence, and Missing names the
// fields the adapter expected but could not read.
type PartialResponseError struct {
	Payload Payload
	Missing []string
	Err     error
}

func (e *PartialResponseError) Error() string {
	return fmt.Sprintf("partial response (missing %d fields): %v", len(e.Missing), e.Err)
}

func (e *PartialResponseError) Unwrap() error { return e.Err }

// Payload is the raw evidence tuple an adapter returns for one asset.
type Payload struct {
	AssetName     string
	Class         model.DeviceClass
	Schema        string
	SchemaVersion int
	Raw           map[string]any
	Confidence    model.Confidence
	CollectedAt   time.Time
}

// Adapter is the capability contract every collector implements.
// Collect must honor ctx cancellation and deadlines: slow or unresponsive
// devices bound the asset's cycle, never the whole pool.
type Adapter interface {
	// Name identifies the adapter in logs and collection-gap reports.
	Name() string

	// Supports reports whether this adapter can collect the asset.
	Supports(asset model.Asset) bool

	// Collect gathers raw evidence for one asset.
	Collect(ctx context.Context, asset model.Asset) (Payload, error)
}
