package cli

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/cacmlabs/cacm/internal/config"
	"github.com/cacmlabs/cacm/internal/ruleset"
)

func init() {
	rulesetCmd.AddCommand(rulesetInitCmd)
	rulesetCmd.AddCommand(rulesetHashCmd)
	rulesetCmd.AddCommand(rulesetListCmd)
	rootCmd.AddCommand(rulesetCmd)
}

var rulesetCmd = &cobra.Command{
	Use:   "ruleset",
	Short: "Manage drift comparison rule sets",
}

var rulesetInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Write a commented starter rule set to the ruleset directory",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(cfgPath)
		if err != nil {
			return err
		}
		if err := os.MkdirAll(cfg.RulesetDir, 0700); err != nil {
			return err
		}
		path := filepath.Join(cfg.RulesetDir, "example.yaml")
		if _, err := os.Stat(path); err == nil {
			return fmt.Errorf("%s already exists, refusing to overwrite", path)
		}
		if err := os.WriteFile(path, []byte(ruleset.DefaultYAML()), 0600); err != nil {
			return err
		}
		fmt.Printf("Wrote %s. Edit it and bump its version before use.\n", path)
		return nil
	},
}

var rulesetHashCmd = &cobra.Command{
	Use:   "hash <ruleset.yaml>",
	Short: "Print the version and content hash a report would pin",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		rs, err := ruleset.Load(args[0])
		if err != nil {
			return err
		}
		fmt.Printf("schema:  %s\nversion: %s\nhash:    %s\nrules:   %d\n",
			rs.Schema, rs.Version, rs.Hash, len(rs.Rules))
		return nil
	},
}

var rulesetListCmd = &cobra.Command{
	Use:   "list",
	Short: "List active rule sets (built-in defaults plus directory overrides)",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(cfgPath)
		if err != nil {
			return err
		}
		table, err := ruleset.LoadDir(cfg.RulesetDir)
		if err != nil {
			return err
		}
		fmt.Printf("%-18s %-10s %-8s %s\n", "SCHEMA", "VERSION", "RULES", "HASH")
		for _, name := range table.Schemas() {
			rs := table.For(name)
			fmt.Printf("%-18s %-10s %-8d %s\n", rs.Schema, rs.Version, len(rs.Rules), rs.Hash)
		}
		return nil
	},
}
