package cycle

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/cacmlabs/cacm/internal/collector"
	"github.com/cacmlabs/cacm/internal/drift"
	"github.com/cacmlabs/cacm/internal/model"
	"github.com/cacmlabs/cacm/internal/normalize"
	"github.com/cacmlabs/cacm/internal/review"
	"github.com/cacmlabs/cacm/internal/ruleset"
	"github.com/cacmlabs/cacm/internal/schema"
	"github.com/cacmlabs/cacm/internal/store"
)

type fakeAdapter struct {
	name     string
	supports func(model.Asset) bool
	collect  func(context.Context, model.Asset) (collector.Payload, error)
}

func (f *fakeAdapter) Name() string                { return f.name }
func (f *fakeAdapter) Supports(a model.Asset) bool { return f.supports(a) }
func (f *fakeAdapter) Collect(ctx context.Context, a model.Asset) (collector.Payload, error) {
	return f.collect(ctx, a)
}

func supportsAll(model.Asset) bool { return true }

func relayPayload(asset model.Asset, firmware string) collector.Payload {
	return collector.Payload{
		AssetName:     asset.Name,
		Class:         asset.DeviceClass,
		Schema:        "ot-relay",
		SchemaVersion: 1,
		Confidence:    model.ConfidenceSignatureOnly,
		CollectedAt:   time.Now().UTC(),
		Raw: map[string]any{
			"sys_name":            asset.Name,
			"firmware_version":    firmware,
			"cert_fingerprint":    "AA:BB:CC",
			"settings_digest":     "sha256:00112233445566778899001122334455667788990011223344556677889900aa",
			"protection_elements": []any{"50", "51"},
			"uptime_ticks":        float64(1000),
		},
	}
}

type harness struct {
	runner *Runner
	db     *store.DB
	asset  model.Asset
}

func newHarness(t *testing.T, adapters ...collector.Adapter) *harness {
	t.Helper()

	db, err := store.Open(filepath.Join(t.TempDir(), "cacm.db"))
	if err != nil {
		t.Fatalf("store.Open: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	a, err := db.EnsureAsset(context.Background(), "sub-a-relay-1", model.ClassOTRelay, "10.0.0.1")
	if err != nil {
		t.Fatalf("EnsureAsset: %v", err)
	}

	reports, err := review.NewStore(t.TempDir())
	if err != nil {
		t.Fatalf("review.NewStore: %v", err)
	}

	schemas := schema.NewRegistry()
	rules, err := ruleset.LoadDir(filepath.Join(t.TempDir(), "none"))
	if err != nil {
		t.Fatalf("ruleset.LoadDir: %v", err)
	}

	return &harness{
		runner: &Runner{
			Adapters:   adapters,
			Normalizer: normalize.New(schemas),
			Engine:     drift.NewEngine(schemas),
			Baselines:  db,
			Rules:      rules,
			Reports:    reports,
			Workers:    4,
			Timeout:    2 * time.Second,
		},
		db:    db,
		asset: *a,
	}
}

func (h *harness) approveBaseline(t *testing.T, rec model.EvidenceRecord) {
	t.Helper()
	rec.AssetID = h.asset.ID
	if _, err := h.db.AppendBaseline(context.Background(), h.asset.ID,
		[]model.EvidenceRecord{rec}, "engineer", 0); err != nil {
		t.Fatalf("AppendBaseline: %v", err)
	}
}

func (h *harness) baselineFromPayload(t *testing.T, p collector.Payload) {
	t.Helper()
	rec, err := h.runner.Normalizer.Normalize(p.Schema, p.SchemaVersion, h.asset.ID,
		p.Raw, p.Confidence, p.CollectedAt)
	if err != nil {
		t.Fatalf("Normalize: %v", err)
	}
	h.approveBaseline(t, *rec)
}

func TestRunDetectsDrift(t *testing.T) {
	adapter := &fakeAdapter{
		name:     "fake",
		supports: supportsAll,
		collect: func(_ context.Context, a model.Asset) (collector.Payload, error) {
			return relayPayload(a, "R119"), nil
		},
	}
	h := newHarness(t, adapter)
	h.baselineFromPayload(t, relayPayload(h.asset, "R118"))

	outcomes := h.runner.Run(context.Background(), []model.Asset{h.asset})
	if len(outcomes) != 1 {
		t.Fatalf("expected 1 outcome, got %d", len(outcomes))
	}
	o := outcomes[0]
	if o.Gap || o.Err != nil {
		t.Fatalf("unexpected gap/error: %+v", o)
	}
	if len(o.Reports) != 1 {
		t.Fatalf("expected 1 report, got %d", len(o.Reports))
	}

	r := o.Reports[0]
	if !r.HasDrift() {
		t.Errorf("firmware change should be drift")
	}
	found := false
	for _, f := range r.Findings {
		if f.Field == "firmware_version" && f.Classification == model.ClassUnauthorizedChange {
			found = true
		}
	}
	if !found {
		t.Errorf("expected unauthorized firmware_version finding, got %+v", r.Findings)
	}

	// Report must be filed for review with its evidence attached.
	item, err := h.runner.Reports.Get(r.ID)
	if err != nil {
		t.Fatalf("report not stored: %v", err)
	}
	if len(item.Records) != 1 || item.Records[0].Schema != "ot-relay" {
		t.Errorf("evidence records not attached: %+v", item.Records)
	}
}

func TestRunBootstrapsMissingBaseline(t *testing.T) {
	adapter := &fakeAdapter{
		name:     "fake",
		supports: supportsAll,
		collect: func(_ context.Context, a model.Asset) (collector.Payload, error) {
			return relayPayload(a, "R118"), nil
		},
	}
	h := newHarness(t, adapter)

	outcomes := h.runner.Run(context.Background(), []model.Asset{h.asset})
	if len(outcomes) != 1 || len(outcomes[0].Reports) != 1 {
		t.Fatalf("expected 1 report, got %+v", outcomes)
	}

	r := outcomes[0].Reports[0]
	if r.BaselineVersion != 0 || len(r.Findings) != 0 {
		t.Errorf("bootstrap report should be empty against v0, got %+v", r)
	}
	if r.Disposition != model.DispositionPending {
		t.Errorf("bootstrap still requires approval, got %s", r.Disposition)
	}

	// Approving the bootstrap report creates v1.
	m := &review.Manager{Reports: h.runner.Reports, Baselines: h.db}
	b, err := m.Approve(context.Background(), r.ID, "engineer")
	if err != nil {
		t.Fatalf("Approve: %v", err)
	}
	if b.Version != 1 {
		t.Errorf("expected v1, got v%d", b.Version)
	}
}

func TestRunCollectionFailureFilesGapReport(t *testing.T) {
	adapter := &fakeAdapter{
		name:     "fake",
		supports: supportsAll,
		collect: func(context.Context, model.Asset) (collector.Payload, error) {
			return collector.Payload{}, collector.ErrUnreachable
		},
	}
	h := newHarness(t, adapter)

	outcomes := h.runner.Run(context.Background(), []model.Asset{h.asset})
	if len(outcomes) != 1 || !outcomes[0].Gap {
		t.Fatalf("expected a gap outcome, got %+v", outcomes)
	}

	r := outcomes[0].Reports[0]
	if len(r.Findings) != 1 || r.Findings[0].Classification != model.ClassCollectionGap {
		t.Errorf("gap report malformed: %+v", r.Findings)
	}
	if r.Overall != model.SevLow {
		t.Errorf("gap overall should be low, got %s", r.Overall)
	}

	// The gap is on the record, not silently dropped.
	if _, err := h.runner.Reports.Get(r.ID); err != nil {
		t.Errorf("gap report must be stored: %v", err)
	}
}

func TestRunTimeoutDegradesToGap(t *testing.T) {
	adapter := &fakeAdapter{
		name:     "slow",
		supports: supportsAll,
		collect: func(ctx context.Context, _ model.Asset) (collector.Payload, error) {
			<-ctx.Done()
			return collector.Payload{}, ctx.Err()
		},
	}
	h := newHarness(t, adapter)
	h.runner.Timeout = 50 * time.Millisecond

	start := time.Now()
	outcomes := h.runner.Run(context.Background(), []model.Asset{h.asset})
	if time.Since(start) > time.Second {
		t.Errorf("timeout should bound the asset cycle")
	}
	if len(outcomes) != 1 || !outcomes[0].Gap {
		t.Fatalf("expected a gap outcome on timeout, got %+v", outcomes)
	}
}

func TestRunPanicIsolatedPerAsset(t *testing.T) {
	adapter := &fakeAdapter{
		name:     "flaky",
		supports: supportsAll,
		collect: func(_ context.Context, a model.Asset) (collector.Payload, error) {
			if a.Name == "sub-a-relay-1" {
				panic("adapter bug")
			}
			return relayPayload(a, "R118"), nil
		},
	}
	h := newHarness(t, adapter)

	other, err := h.db.EnsureAsset(context.Background(), "sub-b-relay-2", model.ClassOTRelay, "10.0.0.2")
	if err != nil {
		t.Fatalf("EnsureAsset: %v", err)
	}

	outcomes := h.runner.Run(context.Background(), []model.Asset{h.asset, *other})
	if len(outcomes) != 2 {
		t.Fatalf("both assets must produce outcomes, got %d", len(outcomes))
	}

	var panicked, clean bool
	for _, o := range outcomes {
		switch o.Asset.Name {
		case "sub-a-relay-1":
			panicked = o.Gap
		case "sub-b-relay-2":
			clean = !o.Gap && len(o.Reports) == 1
		}
	}
	if !panicked {
		t.Errorf("panicking asset should degrade to a gap")
	}
	if !clean {
		t.Errorf("panic must not leak into the other asset")
	}
}

func TestRunSkipsRetiredAssets(t *testing.T) {
	calls := 0
	adapter := &fakeAdapter{
		name:     "fake",
		supports: supportsAll,
		collect: func(_ context.Context, a model.Asset) (collector.Payload, error) {
			calls++
			return relayPayload(a, "R118"), nil
		},
	}
	h := newHarness(t, adapter)

	retired := h.asset
	retired.Retired = true

	outcomes := h.runner.Run(context.Background(), []model.Asset{retired})
	if len(outcomes) != 0 || calls != 0 {
		t.Errorf("retired assets must be skipped, got %d outcomes, %d collects", len(outcomes), calls)
	}
}

func TestRunMergesAdaptersForSameSchema(t *testing.T) {
	sig := &fakeAdapter{
		name:     "snmp-like",
		supports: supportsAll,
		collect: func(_ context.Context, a model.Asset) (collector.Payload, error) {
			p := relayPayload(a, "R000")
			p.Confidence = model.ConfidenceSignatureOnly
			return p, nil
		},
	}
	full := &fakeAdapter{
		name:     "dump-like",
		supports: supportsAll,
		collect: func(_ context.Context, a model.Asset) (collector.Payload, error) {
			p := relayPayload(a, "R118")
			p.Confidence = model.ConfidenceFull
			p.CollectedAt = p.CollectedAt.Add(-time.Hour)
			return p, nil
		},
	}
	h := newHarness(t, sig, full)
	h.baselineFromPayload(t, relayPayload(h.asset, "R118"))

	outcomes := h.runner.Run(context.Background(), []model.Asset{h.asset})
	if len(outcomes) != 1 || len(outcomes[0].Reports) != 1 {
		t.Fatalf("expected one merged report, got %+v", outcomes)
	}
	// The full-confidence firmware value wins the merge: no drift.
	r := outcomes[0].Reports[0]
	for _, f := range r.Findings {
		if f.Field == "firmware_version" {
			t.Errorf("full-confidence value should have won the merge, got finding %+v", f)
		}
	}
}

func TestRunPartialResponseStillEvaluates(t *testing.T) {
	adapter := &fakeAdapter{
		name:     "partial",
		supports: supportsAll,
		collect: func(_ context.Context, a model.Asset) (collector.Payload, error) {
			p := relayPayload(a, "R118")
			delete(p.Raw, "cert_fingerprint")
			return p, &collector.PartialResponseError{
				Payload: p,
				Missing: []string{"cert_fingerprint"},
				Err:     errors.New("variable unavailable"),
			}
		},
	}
	h := newHarness(t, adapter)
	h.baselineFromPayload(t, relayPayload(h.asset, "R118"))

	outcomes := h.runner.Run(context.Background(), []model.Asset{h.asset})
	if len(outcomes) != 1 || outcomes[0].Gap {
		t.Fatalf("partial response should still evaluate, got %+v", outcomes)
	}
	r := outcomes[0].Reports[0]
	f := func() *model.Finding {
		for i := range r.Findings {
			if r.Findings[i].Field == "cert_fingerprint" {
				return &r.Findings[i]
			}
		}
		return nil
	}()
	if f == nil {
		t.Fatalf("missing field should produce a finding")
	}
	if f.Classification != model.ClassUnauthorizedChange {
		t.Errorf("same-confidence absence should be unauthorized-change, got %s", f.Classification)
	}
}
