// Package cycle drives one collection cycle: a bounded worker pool runs one
// task per asset, each strictly collect → normalize → evaluate → report.
// Assets fail independently; absence of evidence is always reported as a
// collection gap, never silently treated as "no drift".
package cycle

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/cacmlabs/cacm/internal/audit"
	"github.com/cacmlabs/cacm/internal/collector"
	"github.com/cacmlabs/cacm/internal/drift"
	"github.com/cacmlabs/cacm/internal/emit"
	"github.com/cacmlabs/cacm/internal/model"
	"github.com/cacmlabs/cacm/internal/normalize"
	"github.com/cacmlabs/cacm/internal/review"
	"github.com/cacmlabs/cacm/internal/ruleset"
	"github.com/cacmlabs/cacm/internal/store"
)

const (
	defaultWorkers = 8
	defaultTimeout = 30 * time.Second
)

// BaselineReader is the read-only slice of the store the cycle needs.
// The cycle never writes baselines: only review approval does.
type BaselineReader interface {
	CurrentBaseline(ctx context.Context, assetID string) (*model.Baseline, error)
}

// Runner executes collection cycles.
type Runner struct {
	Adapters   []collector.Adapter
	Normalizer *normalize.Normalizer
	Engine     *drift.Engine
	Baselines  BaselineReader
	Rules      *ruleset.Table
	Reports    *review.Store
	Audit      *audit.Log
	Emitter    *emit.Dispatcher

	Workers int
	Timeout time.Duration
}

// Outcome is the result of one asset's cycle.
type Outcome struct {
	Asset   model.Asset
	Reports []*model.Report
	Gap     bool
	Err     error
}

// Run processes all assets through a fixed worker pool and returns one
// outcome per non-retired asset. Per-asset timeouts and panics degrade to
// collection-gap outcomes; nothing here aborts the run.
func (r *Runner) Run(ctx context.Context, assets []model.Asset) []Outcome {
	workers := r.Workers
	if workers <= 0 {
		workers = defaultWorkers
	}

	jobs := make(chan model.Asset)
	results := make(chan Outcome)

	for i := 0; i < workers; i++ {
		go func() {
			for a := range jobs {
				results <- r.runAsset(ctx, a)
			}
		}()
	}

	go func() {
		defer close(jobs)
		for _, a := range assets {
			if a.Retired {
				continue
			}
			select {
			case jobs <- a:
			case <-ctx.Done():
				return
			}
		}
	}()

	var out []Outcome
	active := 0
	for _, a := range assets {
		if !a.Retired {
			active++
		}
	}
	for i := 0; i < active; i++ {
		select {
		case o := <-results:
			out = append(out, o)
		case <-ctx.Done():
			return out
		}
	}
	return out
}

// runAsset executes one asset's pipeline under its own timeout. A panic
// anywhere in the pipeline is contained to this asset.
func (r *Runner) runAsset(ctx context.Context, asset model.Asset) (o Outcome) {
	o = Outcome{Asset: asset}

	defer func() {
		if rec := recover(); rec != nil {
			o = r.gapOutcome(asset, fmt.Sprintf("cycle panic: %v", rec), nil)
		}
	}()

	timeout := r.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	payloads, notes := r.collect(ctx, asset)
	if len(payloads) == 0 {
		reason := "no adapter produced evidence"
		if len(notes) > 0 {
			reason = notes[0]
		}
		if ctx.Err() != nil {
			reason = "collection timeout: " + reason
		}
		return r.gapOutcome(asset, reason, ctx.Err())
	}

	// One evidence record (and report) per schema observed this cycle.
	bySchema := map[string][]collector.Payload{}
	for _, p := range payloads {
		bySchema[p.Schema] = append(bySchema[p.Schema], p)
	}
	schemas := make([]string, 0, len(bySchema))
	for s := range bySchema {
		schemas = append(schemas, s)
	}
	sort.Strings(schemas)

	for _, schemaName := range schemas {
		merged := collector.Merge(bySchema[schemaName])

		rec, err := r.Normalizer.Normalize(merged.Schema, merged.SchemaVersion,
			asset.ID, merged.Raw, merged.Confidence, merged.CollectedAt)
		if err != nil {
			// Operator-fixable: surface it, record the gap, keep the asset
			// visible in output.
			return r.gapOutcome(asset, fmt.Sprintf("normalize %s: %v", schemaName, err), err)
		}

		report, err := r.Evaluate(ctx, asset, rec)
		if err != nil {
			return r.gapOutcome(asset, fmt.Sprintf("evaluate %s: %v", schemaName, err), err)
		}

		if err := r.Reports.Put(review.Item{Report: *report, Records: []model.EvidenceRecord{*rec}}); err != nil {
			o.Err = errors.Join(o.Err, fmt.Errorf("store report: %w", err))
			continue
		}
		o.Reports = append(o.Reports, report)
		r.announce(asset, report)
	}
	return o
}

// collect gathers payloads from every adapter that supports the asset.
// Partial responses contribute their payload; hard failures contribute a
// diagnostic note only.
func (r *Runner) collect(ctx context.Context, asset model.Asset) ([]collector.Payload, []string) {
	var payloads []collector.Payload
	var notes []string

	for _, a := range r.Adapters {
		if !a.Supports(asset) {
			continue
		}
		p, err := a.Collect(ctx, asset)
		if err != nil {
			var partial *collector.PartialResponseError
			if errors.As(err, &partial) {
				payloads = append(payloads, partial.Payload)
				notes = append(notes, fmt.Sprintf("%s: %v", a.Name(), err))
				continue
			}
			notes = append(notes, fmt.Sprintf("%s: %v", a.Name(), err))
			continue
		}
		payloads = append(payloads, p)
	}
	return payloads, notes
}

// Evaluate runs the drift engine against the asset's current baseline.
// A missing baseline bootstraps: the evidence is proposed as the initial
// baseline via an empty pending report.
func (r *Runner) Evaluate(ctx context.Context, asset model.Asset, rec *model.EvidenceRecord) (*model.Report, error) {
	rs := r.Rules.For(rec.Schema)

	b, err := r.Baselines.CurrentBaseline(ctx, asset.ID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return r.bootstrapReport(rec, rs)
		}
		return nil, err
	}

	return r.Engine.Evaluate(b, rec, rs)
}

// bootstrapReport proposes first-seen evidence as the initial baseline.
// No findings: there is nothing to drift from yet, but the evidence still
// requires an approver before it becomes authoritative.
func (r *Runner) bootstrapReport(rec *model.EvidenceRecord, rs *ruleset.RuleSet) (*model.Report, error) {
	if rs == nil || rs.Version == "" {
		return nil, &drift.ConfigurationError{Reason: fmt.Sprintf("no versioned rule set for schema %q", rec.Schema)}
	}
	return &model.Report{
		ID:              uuid.NewString(),
		AssetID:         rec.AssetID,
		Schema:          rec.Schema,
		BaselineVersion: 0,
		RuleSetVersion:  rs.Version,
		RuleSetHash:     rs.Hash,
		ComparedAt:      time.Now().UTC(),
		Confidence:      rec.Confidence,
		Overall:         model.SevInformational,
		Disposition:     model.DispositionPending,
	}, nil
}

// gapOutcome files a collection-gap report so the asset's absence of
// evidence stays visible, then returns the degraded outcome.
func (r *Runner) gapOutcome(asset model.Asset, reason string, err error) Outcome {
	report := &model.Report{
		ID:         uuid.NewString(),
		AssetID:    asset.ID,
		ComparedAt: time.Now().UTC(),
		Findings: []model.Finding{{
			Field:          "collection",
			Severity:       model.SevLow,
			Classification: model.ClassCollectionGap,
			Detail:         reason,
		}},
		Overall:     model.SevLow,
		Disposition: model.DispositionPending,
	}

	if r.Reports != nil {
		if perr := r.Reports.Put(review.Item{Report: *report}); perr != nil {
			fmt.Fprintf(os.Stderr, "cacmd: store gap report for %s: %v\n", asset.Name, perr)
		}
	}
	r.announceGap(asset, report, reason)

	return Outcome{Asset: asset, Reports: []*model.Report{report}, Gap: true, Err: err}
}

func (r *Runner) announce(asset model.Asset, report *model.Report) {
	if r.Audit != nil {
		_ = r.Audit.Record(audit.Entry{
			Event:           audit.EventReport,
			AssetID:         asset.ID,
			AssetName:       asset.Name,
			ReportID:        report.ID,
			Schema:          report.Schema,
			Overall:         string(report.Overall),
			BaselineVersion: report.BaselineVersion,
			RuleSetVersion:  report.RuleSetVersion,
			RuleSetHash:     report.RuleSetHash,
			Detail:          fmt.Sprintf("%d findings", len(report.Findings)),
		})
	}
	if report.HasDrift() {
		r.Emitter.Dispatch(emit.Event{
			Timestamp:       time.Now().UTC().Format(time.RFC3339),
			Type:            emit.EventDriftReport,
			AssetID:         asset.ID,
			AssetName:       asset.Name,
			ReportID:        report.ID,
			Schema:          report.Schema,
			Overall:         report.Overall,
			Findings:        len(report.Findings),
			Disposition:     string(report.Disposition),
			BaselineVersion: report.BaselineVersion,
			RuleSetVersion:  report.RuleSetVersion,
			RuleSetHash:     report.RuleSetHash,
		})
	}
}

func (r *Runner) announceGap(asset model.Asset, report *model.Report, reason string) {
	if r.Audit != nil {
		_ = r.Audit.Record(audit.Entry{
			Event:     audit.EventCycle,
			AssetID:   asset.ID,
			AssetName: asset.Name,
			ReportID:  report.ID,
			Overall:   string(report.Overall),
			Detail:    reason,
		})
	}
	r.Emitter.Dispatch(emit.Event{
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Type:      emit.EventCollectionGap,
		AssetID:   asset.ID,
		AssetName: asset.Name,
		ReportID:  report.ID,
		Overall:   report.Overall,
		Detail:    reason,
	})
}
