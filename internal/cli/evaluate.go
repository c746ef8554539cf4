package cli

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/cacmlabs/cacm/internal/collector"
	"github.com/cacmlabs/cacm/internal/model"
	"github.com/cacmlabs/cacm/internal/review"
)

var (
	evalAsset string
	evalSave  bool
	evalJSON  bool
)

func init() {
	evaluateCmd.Flags().StringVar(&evalAsset, "asset", "", "asset name the dump belongs to (required)")
	evaluateCmd.Flags().BoolVar(&evalSave, "save", false, "file the report for review instead of printing only")
	evaluateCmd.Flags().BoolVar(&evalJSON, "json", false, "print the full report as JSON")
	_ = evaluateCmd.MarkFlagRequired("asset")
	rootCmd.AddCommand(evaluateCmd)
}

var evaluateCmd = &cobra.Command{
	Use:   "evaluate <dump.json>",
	Short: "Evaluate an evidence dump against the asset's current baseline",
	Long: "Reads one evidence dump file, normalizes it, and runs drift evaluation\n" +
		"without touching the live collection cycle. Useful for pre-change review\n" +
		"and for replaying vendor exports.",
	Args: cobra.ExactArgs(1),
	RunE: runEvaluate,
}

func runEvaluate(cmd *cobra.Command, args []string) error {
	e, err := openEnv()
	if err != nil {
		return err
	}
	defer e.close()

	ctx := cmd.Context()

	asset, err := findAsset(ctx, e, evalAsset)
	if err != nil {
		return err
	}

	payload, err := collector.ReadDump(args[0], *asset)
	if err != nil {
		return err
	}

	rec, err := e.runner.Normalizer.Normalize(payload.Schema, payload.SchemaVersion,
		asset.ID, payload.Raw, payload.Confidence, payload.CollectedAt)
	if err != nil {
		return fmt.Errorf("normalize: %w", err)
	}
	for _, w := range rec.Warnings {
		fmt.Fprintf(cmd.ErrOrStderr(), "warning: %s\n", w)
	}

	report, err := e.runner.Evaluate(ctx, *asset, rec)
	if err != nil {
		return err
	}

	if evalJSON {
		out, err := json.MarshalIndent(report, "", "  ")
		if err != nil {
			return err
		}
		fmt.Println(string(out))
	} else {
		printReport(report)
	}

	if evalSave {
		if err := e.reports.Put(review.Item{Report: *report, Records: []model.EvidenceRecord{*rec}}); err != nil {
			return fmt.Errorf("file report: %w", err)
		}
		fmt.Printf("Report %s filed for review.\n", report.ID)
	}
	return nil
}

func printReport(r *model.Report) {
	fmt.Printf("Report %s\n", r.ID)
	fmt.Printf("  schema:   %s (baseline v%d, ruleset %s)\n", r.Schema, r.BaselineVersion, r.RuleSetVersion)
	fmt.Printf("  overall:  %s (%s confidence)\n", r.Overall, r.Confidence)
	if len(r.Findings) == 0 {
		fmt.Println("  no findings")
		return
	}
	fmt.Printf("  %-24s %-22s %-14s %s\n", "FIELD", "CLASSIFICATION", "SEVERITY", "DETAIL")
	for _, f := range r.Findings {
		fmt.Printf("  %-24s %-22s %-14s %s\n", f.Field, f.Classification, f.Severity, f.Detail)
	}
}

// findAsset resolves a configured asset by name, syncing the inventory so
// first-time evaluation works without a prior cycle.
func findAsset(ctx context.Context, e *env, name string) (*model.Asset, error) {
	assets, err := e.syncInventory(ctx)
	if err != nil {
		return nil, err
	}
	for i := range assets {
		if assets[i].Name == name {
			return &assets[i], nil
		}
	}
	return nil, fmt.Errorf("no active asset named %q", name)
}
