package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/cacmlabs/cacm/internal/audit"
)

func init() {
	assetsCmd.AddCommand(assetsListCmd)
	assetsCmd.AddCommand(assetsRetireCmd)
	rootCmd.AddCommand(assetsCmd)
}

var assetsCmd = &cobra.Command{
	Use:   "assets",
	Short: "Manage the asset registry",
}

var assetsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List registered assets, including retired ones",
	RunE: func(cmd *cobra.Command, args []string) error {
		e, err := openEnv()
		if err != nil {
			return err
		}
		defer e.close()

		assets, err := e.db.ListAssets(cmd.Context())
		if err != nil {
			return err
		}
		if len(assets) == 0 {
			fmt.Println("No assets registered.")
			return nil
		}

		fmt.Printf("%-36s %-20s %-15s %-8s %-15s %s\n",
			"ID", "NAME", "CLASS", "IMPACT", "IP", "STATUS")
		for _, a := range assets {
			status := "active"
			if a.Retired {
				status = "retired"
			}
			fmt.Printf("%-36s %-20s %-15s %-8s %-15s %s\n",
				a.ID, a.Name, a.DeviceClass, a.ImpactLevel, a.IPAddress, status)
		}
		return nil
	},
}

var assetsRetireCmd = &cobra.Command{
	Use:   "retire <asset-id>",
	Short: "Tombstone an asset, keeping its baselines for audit",
	Long: "Marks an asset retired so it is skipped by collection cycles. Baseline\n" +
		"history and reports stay on record: evidence retention forbids deletion.",
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		e, err := openEnv()
		if err != nil {
			return err
		}
		defer e.close()

		ctx := cmd.Context()
		a, err := e.db.Asset(ctx, args[0])
		if err != nil {
			return err
		}
		if err := e.db.RetireAsset(ctx, a.ID); err != nil {
			return err
		}
		_ = e.auditor.Record(audit.Entry{
			Event:     audit.EventRetired,
			AssetID:   a.ID,
			AssetName: a.Name,
		})
		fmt.Printf("Asset %s (%s) retired.\n", a.Name, a.ID)
		return nil
	},
}
