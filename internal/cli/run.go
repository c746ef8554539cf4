package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/cacmlabs/cacm/internal/audit"
	"github.com/cacmlabs/cacm/internal/ruleset"
)

func init() {
	rootCmd.AddCommand(runCmd)
}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the collection daemon",
	Long: "Runs collection cycles on the configured interval until interrupted.\n" +
		"Rule set files are hot-reloaded between cycles; a broken file keeps the\n" +
		"previous rules active.",
	RunE: runDaemon,
}

func runDaemon(cmd *cobra.Command, args []string) error {
	e, err := openEnv()
	if err != nil {
		return err
	}
	defer e.close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	watcher := ruleset.NewWatcher(e.cfg.RulesetDir, e.rules, nil)
	go func() {
		if err := watcher.Run(ctx); err != nil && ctx.Err() == nil {
			fmt.Fprintf(os.Stderr, "cacmd: ruleset watcher: %v\n", err)
		}
	}()

	fmt.Printf("cacmd: %d assets configured, cycle interval %s\n",
		len(e.cfg.Assets), e.cfg.Interval)

	ticker := time.NewTicker(e.cfg.Interval)
	defer ticker.Stop()

	for {
		if err := runCycle(ctx, e); err != nil {
			fmt.Fprintf(os.Stderr, "cacmd: cycle: %v\n", err)
		}
		select {
		case <-ctx.Done():
			fmt.Println("cacmd: shutting down")
			return nil
		case <-ticker.C:
		}
	}
}

// runCycle syncs the inventory, runs one full cycle, and prints a summary.
func runCycle(ctx context.Context, e *env) error {
	assets, err := e.syncInventory(ctx)
	if err != nil {
		return err
	}
	if len(assets) == 0 {
		fmt.Println("cacmd: no active assets, nothing to collect")
		return nil
	}

	start := time.Now()
	outcomes := e.runner.Run(ctx, assets)

	var reports, gaps, drifted int
	for _, o := range outcomes {
		reports += len(o.Reports)
		if o.Gap {
			gaps++
		}
		for _, r := range o.Reports {
			if r.HasDrift() {
				drifted++
			}
		}
	}

	_ = e.auditor.Record(audit.Entry{
		Event:  audit.EventCycle,
		Detail: fmt.Sprintf("%d assets, %d reports, %d drifted, %d gaps", len(outcomes), reports, drifted, gaps),
	})
	fmt.Printf("cacmd: cycle done in %s: %d assets, %d reports, %d drifted, %d gaps\n",
		time.Since(start).Round(time.Millisecond), len(outcomes), reports, drifted, gaps)
	return nil
}
