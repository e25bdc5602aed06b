package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/hbruhn/devprobe/packages/history"
)

var historyCmd = &cobra.Command{
	Use:   "history [run-id]",
	Short: "Show recorded runs",
	Long: `Show recent runs from the history database, or the attempts of one
run when a run id is given.

Examples:
  devprobe history
  devprobe history --limit 50
  devprobe history 6e1f6c0a-...`,
	Args: cobra.MaximumNArgs(1),
	RunE: historyCommand,
}

var historyLimitFlag int

func init() {
	historyCmd.Flags().StringVar(&configFlag, "config", getEnvString("DEVPROBE_CONFIG", ""), "Path to config file (env: DEVPROBE_CONFIG)")
	historyCmd.Flags().IntVar(&historyLimitFlag, "limit", 20, "Number of runs to show")
}

func historyCommand(cmd *cobra.Command, args []string) error {
	settings, err := loadSettings()
	if err != nil {
		return err
	}

	store, err := history.Open(settings.HistoryDB)
	if err != nil {
		return err
	}
	defer store.Close()

	if len(args) == 1 {
		return showAttempts(cmd, store, args[0])
	}

	runs, err := store.RecentRuns(historyLimitFlag)
	if err != nil {
		return err
	}
	if len(runs) == 0 {
		fmt.Fprintf(cmd.OutOrStdout(), "No recorded runs in %s\n", settings.HistoryDB)
		return nil
	}

	for _, r := range runs {
		fmt.Fprintf(cmd.OutOrStdout(), "%s  %-6s  %-9s  %d ok / %d failed  %s\n",
			r.ID, r.Kind, r.State, r.OK, r.Errors,
			r.Started.Local().Format("2006-01-02 15:04:05"))
	}
	return nil
}

func showAttempts(cmd *cobra.Command, store *history.Store, runID string) error {
	attempts, err := store.Attempts(runID)
	if err != nil {
		return err
	}
	if len(attempts) == 0 {
		fmt.Fprintf(cmd.OutOrStdout(), "No attempts recorded for run %s\n", runID)
		return nil
	}

	for _, a := range attempts {
		fmt.Fprintf(cmd.OutOrStdout(), "%-40s %-13s", a.Preset, a.Tag)
		if a.StatusCode > 0 {
			fmt.Fprintf(cmd.OutOrStdout(), " [%d]", a.StatusCode)
		}
		fmt.Fprintf(cmd.OutOrStdout(), " %dms", a.ElapsedMS)
		if a.Detail != "" {
			fmt.Fprintf(cmd.OutOrStdout(), "  %s", a.Detail)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "\n")
	}
	return nil
}
