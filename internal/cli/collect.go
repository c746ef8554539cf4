package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/cacmlabs/cacm/internal/cycle"
	"github.com/cacmlabs/cacm/internal/model"
)

var collectAsset string

func init() {
	collectCmd.Flags().StringVar(&collectAsset, "asset", "", "collect a single asset by name")
	rootCmd.AddCommand(collectCmd)
}

var collectCmd = &cobra.Command{
	Use:   "collect",
	Short: "Run one collection cycle now",
	Long: "Collects evidence from configured assets, evaluates drift against current\n" +
		"baselines, and files reports for review. Exit code 2 when drift was detected.",
	RunE: runCollect,
}

func runCollect(cmd *cobra.Command, args []string) error {
	e, err := openEnv()
	if err != nil {
		return err
	}
	defer e.close()

	ctx := cmd.Context()

	assets, err := e.syncInventory(ctx)
	if err != nil {
		return err
	}
	if collectAsset != "" {
		assets = filterByName(assets, collectAsset)
		if len(assets) == 0 {
			return fmt.Errorf("no active asset named %q", collectAsset)
		}
	}
	if len(assets) == 0 {
		fmt.Println("No active assets. Add them to the config inventory.")
		return nil
	}

	outcomes := e.runner.Run(ctx, assets)

	drifted := printOutcomes(outcomes)
	if drifted > 0 {
		cmd.SilenceUsage = true
		cmd.SilenceErrors = true
		return exitCodeError{code: 2, msg: fmt.Sprintf("%d reports with drift pending review", drifted)}
	}
	return nil
}

func printOutcomes(outcomes []cycle.Outcome) int {
	fmt.Printf("%-20s %-16s %-14s %-10s %s\n", "ASSET", "SCHEMA", "OVERALL", "FINDINGS", "STATUS")
	drifted := 0
	for _, o := range outcomes {
		if len(o.Reports) == 0 {
			fmt.Printf("%-20s %-16s %-14s %-10s %v\n", o.Asset.Name, "-", "-", "-", o.Err)
			continue
		}
		for _, r := range o.Reports {
			status := "clean"
			switch {
			case o.Gap:
				status = "collection gap"
			case r.BaselineVersion == 0:
				status = "bootstrap (approve to set v1)"
			case r.HasDrift():
				status = "DRIFT"
				drifted++
			}
			schema := r.Schema
			if schema == "" {
				schema = "-"
			}
			fmt.Printf("%-20s %-16s %-14s %-10d %s\n",
				o.Asset.Name, schema, r.Overall, len(r.Findings), status)
		}
	}
	return drifted
}

func filterByName(assets []model.Asset, name string) []model.Asset {
	var out []model.Asset
	for _, a := range assets {
		if a.Name == name {
			out = append(out, a)
		}
	}
	return out
}

// exitCodeError carries a non-zero exit code through cobra without the usage
// banner.
type exitCodeError struct {
	code int
	msg  string
}

func (e exitCodeError) Error() string { return e.msg }

// ExitCode is read by Execute to map the error to a process exit status.
func (e exitCodeError) ExitCode() int { return e.code }
