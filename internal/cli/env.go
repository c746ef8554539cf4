package cli

import (
	"context"
	"fmt"

	"github.com/cacmlabs/cacm/internal/audit"
	"github.com/cacmlabs/cacm/internal/collector"
	"github.com/cacmlabs/cacm/internal/config"
	"github.com/cacmlabs/cacm/internal/cycle"
	"github.com/cacmlabs/cacm/internal/drift"
	"github.com/cacmlabs/cacm/internal/emit"
	"github.com/cacmlabs/cacm/internal/model"
	"github.com/cacmlabs/cacm/internal/normalize"
	"github.com/cacmlabs/cacm/internal/review"
	"github.com/cacmlabs/cacm/internal/ruleset"
	"github.com/cacmlabs/cacm/internal/schema"
	"github.com/cacmlabs/cacm/internal/store"
)

// env bundles everything a command needs: config, stores, the rule table,
// and a ready-to-run cycle runner.
type env struct {
	cfg     *config.Config
	db      *store.DB
	schemas *schema.Registry
	rules   *ruleset.Table
	reports *review.Store
	auditor *audit.Log
	runner  *cycle.Runner
}

// openEnv loads config and opens all stores. Callers must call close.
func openEnv() (*env, error) {
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return nil, err
	}

	schemas := schema.NewRegistry()
	if err := schemas.LoadDir(cfg.SchemaDir); err != nil {
		return nil, fmt.Errorf("load schemas: %w", err)
	}

	rules, err := ruleset.LoadDir(cfg.RulesetDir)
	if err != nil {
		return nil, fmt.Errorf("load rulesets: %w", err)
	}

	db, err := store.Open(cfg.DBPath)
	if err != nil {
		return nil, err
	}

	reports, err := review.NewStore(cfg.ReportDir)
	if err != nil {
		db.Close()
		return nil, err
	}

	auditor, err := audit.Open(cfg.AuditLog)
	if err != nil {
		db.Close()
		return nil, err
	}

	e := &env{
		cfg:     cfg,
		db:      db,
		schemas: schemas,
		rules:   rules,
		reports: reports,
		auditor: auditor,
	}
	e.runner = &cycle.Runner{
		Adapters: []collector.Adapter{
			collector.NewSNMPAdapter(cfg.SNMP),
			collector.NewFileAdapter(cfg.DumpDir),
		},
		Normalizer: normalize.New(schemas),
		Engine:     drift.NewEngine(schemas),
		Baselines:  db,
		Rules:      rules,
		Reports:    reports,
		Audit:      auditor,
		Emitter:    emit.NewDispatcher(cfg.Webhooks),
		Workers:    cfg.Workers,
		Timeout:    cfg.Timeout,
	}
	return e, nil
}

func (e *env) close() {
	if e.auditor != nil {
		e.auditor.Close()
	}
	if e.db != nil {
		e.db.Close()
	}
}

// syncInventory registers configured assets in the store and refreshes their
// mutable metadata. Returns all non-retired assets ready for a cycle.
func (e *env) syncInventory(ctx context.Context) ([]model.Asset, error) {
	for _, entry := range e.cfg.Assets {
		want := entry.Asset()
		a, err := e.db.EnsureAsset(ctx, want.Name, want.DeviceClass, want.IPAddress)
		if err != nil {
			return nil, fmt.Errorf("register asset %s: %w", want.Name, err)
		}
		if a.ImpactLevel != want.ImpactLevel || a.Site != want.Site || a.Owner != want.Owner {
			if err := e.db.UpdateAssetMeta(ctx, a.ID, want.ImpactLevel, want.Site, want.Owner); err != nil {
				return nil, fmt.Errorf("update asset %s: %w", want.Name, err)
			}
		}
	}

	all, err := e.db.ListAssets(ctx)
	if err != nil {
		return nil, err
	}
	var active []model.Asset
	for _, a := range all {
		if !a.Retired {
			active = append(active, a)
		}
	}
	return active, nil
}

// reviewManager returns the disposition workflow over the open stores.
func (e *env) reviewManager() *review.Manager {
	return &review.Manager{Reports: e.reports, Baselines: e.db}
}
