package cli

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/cacmlabs/cacm/internal/audit"
	"github.com/cacmlabs/cacm/internal/emit"
	"github.com/cacmlabs/cacm/internal/model"
)

var reviewer string

func init() {
	for _, c := range []*cobra.Command{reportApproveCmd, reportAckCmd, reportRejectCmd} {
		c.Flags().StringVar(&reviewer, "reviewer", "", "reviewer identity recorded in the audit trail (required)")
		_ = c.MarkFlagRequired("reviewer")
	}
	reportCmd.AddCommand(reportListCmd)
	reportCmd.AddCommand(reportShowCmd)
	reportCmd.AddCommand(reportApproveCmd)
	reportCmd.AddCommand(reportAckCmd)
	reportCmd.AddCommand(reportRejectCmd)
	rootCmd.AddCommand(reportCmd)
}

var reportCmd = &cobra.Command{
	Use:   "report",
	Short: "Review drift reports and decide dispositions",
}

var reportListCmd = &cobra.Command{
	Use:   "list",
	Short: "List drift reports, newest first",
	RunE: func(cmd *cobra.Command, args []string) error {
		e, err := openEnv()
		if err != nil {
			return err
		}
		defer e.close()

		items, err := e.reports.List()
		if err != nil {
			return err
		}
		if len(items) == 0 {
			fmt.Println("No reports.")
			return nil
		}

		fmt.Printf("%-36s %-16s %-14s %-9s %s\n", "ID", "SCHEMA", "OVERALL", "FINDINGS", "DISPOSITION")
		for _, it := range items {
			r := it.Report
			schema := r.Schema
			if schema == "" {
				schema = "-"
			}
			fmt.Printf("%-36s %-16s %-14s %-9d %s\n",
				r.ID, schema, r.Overall, len(r.Findings), r.Disposition)
		}
		return nil
	},
}

var reportShowCmd = &cobra.Command{
	Use:   "show <report-id>",
	Short: "Show one report with all findings",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		e, err := openEnv()
		if err != nil {
			return err
		}
		defer e.close()

		item, err := e.reports.Get(args[0])
		if err != nil {
			return err
		}
		out, err := json.MarshalIndent(item, "", "  ")
		if err != nil {
			return err
		}
		fmt.Println(string(out))
		return nil
	},
}

var reportApproveCmd = &cobra.Command{
	Use:   "approve <report-id>",
	Short: "Approve reviewed evidence as the asset's next baseline version",
	Long: "Commits the report's evidence records as a new baseline version and marks\n" +
		"the report approved-as-new-baseline. Fails with a conflict when another\n" +
		"approval landed since the report was evaluated; re-run a cycle and review\n" +
		"the fresh report.",
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		e, err := openEnv()
		if err != nil {
			return err
		}
		defer e.close()

		b, err := e.reviewManager().Approve(cmd.Context(), args[0], reviewer)
		if err != nil {
			return err
		}

		_ = e.auditor.Record(audit.Entry{
			Event:           audit.EventBaseline,
			AssetID:         b.AssetID,
			ReportID:        args[0],
			Actor:           reviewer,
			BaselineVersion: b.Version,
		})
		recordDecision(e, args[0], b.AssetID, model.DispositionApproved)

		if e.runner.Emitter != nil {
			e.runner.Emitter.Dispatch(emit.Event{
				Timestamp:       time.Now().UTC().Format(time.RFC3339),
				Type:            emit.EventBaselineTransition,
				AssetID:         b.AssetID,
				ReportID:        args[0],
				BaselineVersion: b.Version,
				ApprovedBy:      reviewer,
			})
		}

		fmt.Printf("Baseline v%d committed for asset %s.\n", b.Version, b.AssetID)
		return nil
	},
}

var reportAckCmd = &cobra.Command{
	Use:   "ack <report-id>",
	Short: "Acknowledge a report without changing the baseline",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		e, err := openEnv()
		if err != nil {
			return err
		}
		defer e.close()

		if err := e.reviewManager().Acknowledge(args[0], reviewer); err != nil {
			return err
		}
		recordDecision(e, args[0], "", model.DispositionAcknowledged)
		fmt.Printf("Report %s acknowledged.\n", args[0])
		return nil
	},
}

var reportRejectCmd = &cobra.Command{
	Use:   "reject <report-id>",
	Short: "Reject a report without changing the baseline",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		e, err := openEnv()
		if err != nil {
			return err
		}
		defer e.close()

		if err := e.reviewManager().Reject(args[0], reviewer); err != nil {
			return err
		}
		recordDecision(e, args[0], "", model.DispositionRejected)
		fmt.Printf("Report %s rejected.\n", args[0])
		return nil
	},
}

func recordDecision(e *env, reportID, assetID string, d model.Disposition) {
	_ = e.auditor.Record(audit.Entry{
		Event:       audit.EventDecision,
		AssetID:     assetID,
		ReportID:    reportID,
		Disposition: string(d),
		Actor:       reviewer,
	})
}
