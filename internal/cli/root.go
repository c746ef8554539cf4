// Package cli wires the cacmd command tree: the collection daemon, one-shot
// cycles, offline evaluation, and the review/baseline/audit workflows.
package cli

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var cfgPath string

var rootCmd = &cobra.Command{
	Use:   "cacmd",
	Short: "Baseline normalization and drift detection for CIP-010-4 assets",
	Long: "Collects configuration evidence from IT hosts and OT appliances, normalizes it\n" +
		"into schema-typed records, and detects drift against approved baselines.\n" +
		"Every report and baseline transition lands in a hash-chained audit trail.",
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgPath, "config", "", "config file (default ~/.cacm/config.yaml)")
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		var ec exitCodeError
		if errors.As(err, &ec) {
			fmt.Fprintln(os.Stderr, ec.msg)
			os.Exit(ec.code)
		}
		os.Exit(1)
	}
}
