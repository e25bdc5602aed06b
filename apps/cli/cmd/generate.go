package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/hbruhn/devprobe/packages/preset"
)

var generateCmd = &cobra.Command{
	Use:   "generate",
	Short: "Generate presets and payload files for the device API catalog",
	Long: `Generate payload files under the configs directory and a preset per
endpoint and wire format, plus mutated unhappy presets for every
endpoint that carries a payload. Existing presets with the same names
are replaced.`,
	RunE: generateCommand,
}

func init() {
	generateCmd.Flags().StringVar(&configFlag, "config", getEnvString("DEVPROBE_CONFIG", ""), "Path to config file (env: DEVPROBE_CONFIG)")
}

func generateCommand(cmd *cobra.Command, args []string) error {
	settings, err := loadSettings()
	if err != nil {
		return err
	}

	store := preset.NewStore(settings.PresetsFile, settings.ConfigsDir)
	if err := store.Load(); err != nil {
		return err
	}

	result, err := preset.Generate(settings.ConfigsDir)
	if err != nil {
		return err
	}

	for _, p := range result.Presets {
		if err := store.Add(p); err != nil {
			return err
		}
	}
	if err := store.Save(); err != nil {
		return err
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Generated %d happy and %d unhappy presets into %s\n",
		result.HappyCount, result.UnhappyCount, store.Path())
	fmt.Fprintf(cmd.OutOrStdout(), "Payload files written under %s\n", settings.ConfigsDir)
	return nil
}
