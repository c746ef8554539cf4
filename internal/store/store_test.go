package store

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"testing"

	"github.com/cacmlabs/cacm/internal/model"
)

func testDB(t *testing.T) *DB {
	t.Helper()
	db, err := Open(filepath.Join(t.TempDir(), "cacm.db"))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func record(schema string, fields map[string]model.Value) model.EvidenceRecord {
	return model.EvidenceRecord{
		AssetID:       "ignored",
		Schema:        schema,
		SchemaVersion: 1,
		Confidence:    model.ConfidenceSignatureOnly,
		Fields:        fields,
	}
}

func TestEnsureAssetIdempotent(t *testing.T) {
	db := testDB(t)
	ctx := context.Background()

	a, err := db.EnsureAsset(ctx, "sub-a-relay-1", model.ClassOTRelay, "10.20.0.11")
	if err != nil {
		t.Fatalf("EnsureAsset: %v", err)
	}
	if a.ID == "" {
		t.Fatalf("expected generated asset ID")
	}

	again, err := db.EnsureAsset(ctx, "sub-a-relay-1", model.ClassOTRelay, "10.20.0.11")
	if err != nil {
		t.Fatalf("EnsureAsset again: %v", err)
	}
	if again.ID != a.ID {
		t.Errorf("second EnsureAsset must return the same asset, got %s vs %s", again.ID, a.ID)
	}

	assets, err := db.ListAssets(ctx)
	if err != nil {
		t.Fatalf("ListAssets: %v", err)
	}
	if len(assets) != 1 {
		t.Errorf("expected 1 asset, got %d", len(assets))
	}
}

func TestAssetNotFound(t *testing.T) {
	db := testDB(t)
	if _, err := db.Asset(context.Background(), "nope"); !errors.Is(err, ErrNotFound) {
		t.Errorf("unknown asset should be ErrNotFound, got %v", err)
	}
}

func TestRetireAssetKeepsHistory(t *testing.T) {
	db := testDB(t)
	ctx := context.Background()

	a, err := db.EnsureAsset(ctx, "old-rtu", model.ClassOTRTU, "")
	if err != nil {
		t.Fatalf("EnsureAsset: %v", err)
	}
	if _, err := db.AppendBaseline(ctx, a.ID,
		[]model.EvidenceRecord{record("ot-rtu", nil)}, "engineer", 0); err != nil {
		t.Fatalf("AppendBaseline: %v", err)
	}

	if err := db.RetireAsset(ctx, a.ID); err != nil {
		t.Fatalf("RetireAsset: %v", err)
	}

	got, err := db.Asset(ctx, a.ID)
	if err != nil {
		t.Fatalf("retired asset must remain readable: %v", err)
	}
	if !got.Retired {
		t.Errorf("asset should be flagged retired")
	}
	if _, err := db.CurrentBaseline(ctx, a.ID); err != nil {
		t.Errorf("baseline history must survive retirement: %v", err)
	}

	if err := db.RetireAsset(ctx, "nope"); !errors.Is(err, ErrNotFound) {
		t.Errorf("retiring unknown asset should be ErrNotFound, got %v", err)
	}
}

func TestUpdateAssetMeta(t *testing.T) {
	db := testDB(t)
	ctx := context.Background()

	a, err := db.EnsureAsset(ctx, "fw-1", model.ClassFirewall, "10.0.0.1")
	if err != nil {
		t.Fatalf("EnsureAsset: %v", err)
	}
	if err := db.UpdateAssetMeta(ctx, a.ID, model.ImpactHigh, "substation-a", "net-eng"); err != nil {
		t.Fatalf("UpdateAssetMeta: %v", err)
	}

	got, err := db.Asset(ctx, a.ID)
	if err != nil {
		t.Fatalf("Asset: %v", err)
	}
	if got.ImpactLevel != model.ImpactHigh || got.Site != "substation-a" || got.Owner != "net-eng" {
		t.Errorf("metadata not persisted: %+v", got)
	}
	if got.Name != "fw-1" || got.DeviceClass != model.ClassFirewall {
		t.Errorf("identity fields must not change: %+v", got)
	}
}

func TestBaselineAppendAndHistory(t *testing.T) {
	db := testDB(t)
	ctx := context.Background()

	a, err := db.EnsureAsset(ctx, "relay", model.ClassOTRelay, "")
	if err != nil {
		t.Fatalf("EnsureAsset: %v", err)
	}

	if _, err := db.CurrentBaseline(ctx, a.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("no baseline yet should be ErrNotFound, got %v", err)
	}

	r1 := record("ot-relay", map[string]model.Value{"firmware_version": model.StringValue("R118")})
	b1, err := db.AppendBaseline(ctx, a.ID, []model.EvidenceRecord{r1}, "engineer-a", 0)
	if err != nil {
		t.Fatalf("AppendBaseline v1: %v", err)
	}
	if b1.Version != 1 {
		t.Errorf("first baseline should be v1, got v%d", b1.Version)
	}

	r2 := record("ot-relay", map[string]model.Value{"firmware_version": model.StringValue("R119")})
	b2, err := db.AppendBaseline(ctx, a.ID, []model.EvidenceRecord{r2}, "engineer-b", 1)
	if err != nil {
		t.Fatalf("AppendBaseline v2: %v", err)
	}
	if b2.Version != 2 {
		t.Errorf("second baseline should be v2, got v%d", b2.Version)
	}

	cur, err := db.CurrentBaseline(ctx, a.ID)
	if err != nil {
		t.Fatalf("CurrentBaseline: %v", err)
	}
	if cur.Version != 2 || cur.ApprovedBy != "engineer-b" {
		t.Errorf("current should be v2 by engineer-b, got v%d by %s", cur.Version, cur.ApprovedBy)
	}
	if v, ok := cur.Records[0].Field("firmware_version"); !ok || v.Str != "R119" {
		t.Errorf("records not round-tripped: %+v", cur.Records)
	}

	history, err := db.BaselineHistory(ctx, a.ID)
	if err != nil {
		t.Fatalf("BaselineHistory: %v", err)
	}
	if len(history) != 2 || history[0].Version != 1 || history[1].Version != 2 {
		t.Errorf("history should be [v1 v2], got %+v", history)
	}
	if v, ok := history[0].Records[0].Field("firmware_version"); !ok || v.Str != "R118" {
		t.Errorf("v1 must be immutable history, got %+v", history[0].Records)
	}
}

func TestAppendBaselineRequiresApprover(t *testing.T) {
	db := testDB(t)
	ctx := context.Background()
	a, _ := db.EnsureAsset(ctx, "relay", model.ClassOTRelay, "")

	if _, err := db.AppendBaseline(ctx, a.ID, nil, "", 0); err == nil {
		t.Errorf("append without approver identity must fail")
	}
}

func TestAppendBaselineUnknownAsset(t *testing.T) {
	db := testDB(t)
	if _, err := db.AppendBaseline(context.Background(), "ghost", nil, "engineer", 0); !errors.Is(err, ErrNotFound) {
		t.Errorf("append for unknown asset should be ErrNotFound, got %v", err)
	}
}

func TestAppendBaselineStaleVersionConflicts(t *testing.T) {
	db := testDB(t)
	ctx := context.Background()
	a, _ := db.EnsureAsset(ctx, "relay", model.ClassOTRelay, "")

	if _, err := db.AppendBaseline(ctx, a.ID, []model.EvidenceRecord{record("ot-relay", nil)}, "engineer", 0); err != nil {
		t.Fatalf("AppendBaseline: %v", err)
	}

	// Still expecting v0: another approval landed first.
	_, err := db.AppendBaseline(ctx, a.ID, []model.EvidenceRecord{record("ot-relay", nil)}, "engineer", 0)
	if !errors.Is(err, ErrConflict) {
		t.Fatalf("stale expectVersion should be ErrConflict, got %v", err)
	}

	cur, err := db.CurrentBaseline(ctx, a.ID)
	if err != nil || cur.Version != 1 {
		t.Errorf("conflict must not advance the baseline, got %+v err=%v", cur, err)
	}
}

// Two approvals racing from the same reviewed version: exactly one commits.
func TestConcurrentApprovalsExactlyOneWins(t *testing.T) {
	db := testDB(t)
	ctx := context.Background()
	a, _ := db.EnsureAsset(ctx, "relay", model.ClassOTRelay, "")

	const racers = 8
	var wg sync.WaitGroup
	results := make(chan error, racers)

	for i := 0; i < racers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := db.AppendBaseline(ctx, a.ID,
				[]model.EvidenceRecord{record("ot-relay", nil)}, "engineer", 0)
			results <- err
		}()
	}
	wg.Wait()
	close(results)

	var wins, conflicts int
	for err := range results {
		switch {
		case err == nil:
			wins++
		case errors.Is(err, ErrConflict):
			conflicts++
		default:
			t.Errorf("unexpected error: %v", err)
		}
	}
	if wins != 1 {
		t.Errorf("exactly one approval must win, got %d", wins)
	}
	if conflicts != racers-1 {
		t.Errorf("expected %d conflicts, got %d", racers-1, conflicts)
	}

	cur, err := db.CurrentBaseline(ctx, a.ID)
	if err != nil || cur.Version != 1 {
		t.Errorf("baseline should land at v1, got %+v err=%v", cur, err)
	}
}
