package cli

import (
	"fmt"
	"sort"

	"github.com/spf13/cobra"

	"github.com/cacmlabs/cacm/internal/model"
)

func init() {
	baselineCmd.AddCommand(baselineShowCmd)
	baselineCmd.AddCommand(baselineHistoryCmd)
	rootCmd.AddCommand(baselineCmd)
}

var baselineCmd = &cobra.Command{
	Use:   "baseline",
	Short: "Inspect approved baselines",
}

var baselineShowCmd = &cobra.Command{
	Use:   "show <asset-id>",
	Short: "Show the current baseline for an asset",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		e, err := openEnv()
		if err != nil {
			return err
		}
		defer e.close()

		b, err := e.db.CurrentBaseline(cmd.Context(), args[0])
		if err != nil {
			return err
		}

		fmt.Printf("Baseline v%d for %s\n", b.Version, b.AssetID)
		fmt.Printf("  approved by %s at %s\n", b.ApprovedBy, b.ApprovedAt.Format("2006-01-02 15:04:05 MST"))
		for _, rec := range b.Records {
			fmt.Printf("  %s@v%d (%s confidence, %d fields)\n",
				rec.Schema, rec.SchemaVersion, rec.Confidence, len(rec.Fields))
			for _, name := range sortedFieldNames(rec) {
				fmt.Printf("    %-24s %s\n", name, rec.Fields[name].String())
			}
		}
		return nil
	},
}

var baselineHistoryCmd = &cobra.Command{
	Use:   "history <asset-id>",
	Short: "List all baseline versions for an asset",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		e, err := openEnv()
		if err != nil {
			return err
		}
		defer e.close()

		history, err := e.db.BaselineHistory(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		if len(history) == 0 {
			fmt.Println("No baselines approved yet.")
			return nil
		}

		fmt.Printf("%-8s %-20s %-25s %s\n", "VERSION", "APPROVED BY", "APPROVED AT", "SCHEMAS")
		for _, b := range history {
			schemas := ""
			for i, rec := range b.Records {
				if i > 0 {
					schemas += ", "
				}
				schemas += rec.Schema
			}
			fmt.Printf("%-8d %-20s %-25s %s\n",
				b.Version, b.ApprovedBy, b.ApprovedAt.Format("2006-01-02 15:04:05"), schemas)
		}
		return nil
	},
}

func sortedFieldNames(rec model.EvidenceRecord) []string {
	names := make([]string, 0, len(rec.Fields))
	for n := range rec.Fields {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}
