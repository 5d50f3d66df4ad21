package cli

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/haskel/benchfox/internal/server"
)

var modelsCmd = &cobra.Command{
	Use:   "models",
	Short: "List configured and installed models",
	Long: `List the models benchfox knows about: the configured benchmark models
and any other model installed on the Ollama server.`,
	RunE: runModels,
}

func init() {
	rootCmd.AddCommand(modelsCmd)
}

func runModels(cmd *cobra.Command, args []string) error {
	client := NewClient()

	var resp server.ModelsResponse
	if err := client.GetJSON("/api/models", &resp); err != nil {
		return fmt.Errorf("failed to list models: %w", err)
	}

	if jsonOut {
		return json.NewEncoder(os.Stdout).Encode(resp)
	}

	if !resp.OllamaAvailable {
		fmt.Printf("Ollama is not available: %s\n\n", resp.Error)
	}

	fmt.Printf("%-32s %-12s %-10s %s\n", "MODEL", "DOWNLOADED", "SIZE", "CONFIGURED")
	for _, m := range resp.Models {
		fmt.Printf("%-32s %-12s %-10s %s\n", m.Name, yesNo(m.Downloaded), formatBytes(m.SizeBytes), yesNo(m.Configured))
	}

	return nil
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}
