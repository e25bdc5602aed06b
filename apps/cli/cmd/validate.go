package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/hbruhn/devprobe/packages/preset"
)

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate the preset store and its payload files",
	Long: `Validate the presets file against the schema, then check that every
referenced payload file exists and holds valid JSON.

Examples:
  devprobe validate
  devprobe validate --config lab.yaml`,
	RunE: validateCommand,
}

func init() {
	validateCmd.Flags().StringVar(&configFlag, "config", getEnvString("DEVPROBE_CONFIG", ""), "Path to config file (env: DEVPROBE_CONFIG)")
}

func validateCommand(cmd *cobra.Command, args []string) error {
	settings, err := loadSettings()
	if err != nil {
		return err
	}

	store := preset.NewStore(settings.PresetsFile, settings.ConfigsDir)
	if err := store.Load(); err != nil {
		fmt.Fprintf(cmd.OutOrStderr(), "✗ %v\n", err)
		os.Exit(ExitPresetError)
	}

	presets := store.All()
	failed := 0
	for _, p := range presets {
		if _, err := store.LoadPayload(p); err != nil {
			fmt.Fprintf(cmd.OutOrStdout(), "✗ %s: %v\n", p.Name, err)
			failed++
			continue
		}
		fmt.Fprintf(cmd.OutOrStdout(), "✓ %s\n", p.Name)
	}

	fmt.Fprintf(cmd.OutOrStdout(), "\n%d presets, %d invalid\n", len(presets), failed)
	if failed > 0 {
		os.Exit(ExitPresetError)
	}
	return nil
}
