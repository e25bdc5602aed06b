package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/hbruhn/devprobe/packages/preset"
)

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List presets in the preset store",
	Long: `List the presets in the configured presets file.

Examples:
  devprobe list
  devprobe list --mode unhappy
  devprobe list --search SIPAccount`,
	RunE: listCommand,
}

var (
	listModeFlag   string
	listSearchFlag string
)

func init() {
	listCmd.Flags().StringVar(&configFlag, "config", getEnvString("DEVPROBE_CONFIG", ""), "Path to config file (env: DEVPROBE_CONFIG)")
	listCmd.Flags().StringVarP(&listModeFlag, "mode", "m", "", "Filter by mode: happy, unhappy")
	listCmd.Flags().StringVarP(&listSearchFlag, "search", "s", "", "Name substring filter")
}

func listCommand(cmd *cobra.Command, args []string) error {
	settings, err := loadSettings()
	if err != nil {
		return err
	}

	store := preset.NewStore(settings.PresetsFile, settings.ConfigsDir)
	if err := store.Load(); err != nil {
		return err
	}

	var presets []preset.Preset
	switch listModeFlag {
	case "":
		presets = store.Filter(preset.Happy, listSearchFlag)
		presets = append(presets, store.Filter(preset.Unhappy, listSearchFlag)...)
	case string(preset.Happy), string(preset.Unhappy):
		presets = store.Filter(preset.Mode(listModeFlag), listSearchFlag)
	default:
		return fmt.Errorf("invalid mode %q: use happy or unhappy", listModeFlag)
	}

	if len(presets) == 0 {
		fmt.Fprintf(cmd.OutOrStdout(), "No presets in %s\n", store.Path())
		return nil
	}

	fmt.Fprintf(cmd.OutOrStdout(), "\n%s:\n", store.Path())
	for _, p := range presets {
		fmt.Fprintf(cmd.OutOrStdout(), "  - %s\n", p.Name)
		fmt.Fprintf(cmd.OutOrStdout(), "    %s %s/%s [%s]", p.Mode, p.Endpoint, p.Method, p.Format)
		if p.PayloadFile != "" {
			fmt.Fprintf(cmd.OutOrStdout(), " payload: %s", p.PayloadFile)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "\n")
	}
	fmt.Fprintf(cmd.OutOrStdout(), "\n%d presets\n", len(presets))

	return nil
}
