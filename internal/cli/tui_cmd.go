package cli

import (
	"time"

	"github.com/haskel/benchfox/internal/cli/tui"
	"github.com/spf13/cobra"
)

var (
	refreshInterval time.Duration
)

var tuiCmd = &cobra.Command{
	Use:   "tui",
	Short: "Launch interactive TUI dashboard",
	Long: `Launch an interactive terminal dashboard that follows the running
benchmark or pull and shows the results of the last finished run.

Examples:
  benchfox tui                    # Basic launch with default settings
  benchfox tui --refresh 500ms    # Faster refresh rate
  benchfox tui --host 10.0.0.1    # Connect to a remote server`,
	RunE: runTUI,
}

func init() {
	tuiCmd.Flags().DurationVar(&refreshInterval, "refresh", time.Second, "dashboard refresh interval")
	rootCmd.AddCommand(tuiCmd)
}

func runTUI(cmd *cobra.Command, args []string) error {
	config := tui.Config{
		ServerURL:       GetServerURL(),
		RefreshInterval: refreshInterval,
		User:            user,
		Password:        password,
	}

	return tui.Run(config)
}
