package cli

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/cacmlabs/cacm/internal/audit"
	"github.com/cacmlabs/cacm/internal/config"
)

func init() {
	auditCmd.AddCommand(auditVerifyCmd)
	auditCmd.AddCommand(auditShowCmd)
	rootCmd.AddCommand(auditCmd)
}

var auditCmd = &cobra.Command{
	Use:   "audit",
	Short: "Inspect and verify the audit evidence trail",
}

// auditPath resolves an optional positional log path against the config.
func auditPath(args []string) (string, error) {
	if len(args) > 0 {
		return args[0], nil
	}
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return "", err
	}
	return cfg.AuditLog, nil
}

var auditVerifyCmd = &cobra.Command{
	Use:   "verify [log-file]",
	Short: "Verify the audit log hash chain",
	Long: "Walks the JSONL audit log and validates every prev_hash link. A broken\n" +
		"chain means the log was edited after the fact and cannot serve as\n" +
		"compliance evidence.",
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		path, err := auditPath(args)
		if err != nil {
			return err
		}

		result := audit.Verify(path)
		out, _ := json.MarshalIndent(result, "", "  ")
		fmt.Println(string(out))

		if !result.Valid {
			cmd.SilenceUsage = true
			cmd.SilenceErrors = true
			return exitCodeError{code: 3, msg: "audit chain verification FAILED"}
		}
		return nil
	},
}

var auditShowCmd = &cobra.Command{
	Use:   "show [log-file]",
	Short: "Print the audit trail as a timeline",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		path, err := auditPath(args)
		if err != nil {
			return err
		}
		entries, err := audit.Read(path)
		if err != nil {
			return err
		}
		fmt.Print(audit.FormatTimeline(entries))
		return nil
	},
}
