package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/haskel/benchfox/internal/server"
)

var pullCmd = &cobra.Command{
	Use:   "pull MODEL",
	Short: "Download a model on the Ollama server",
	Long: `Ask the server to pull a model. With --wait, follow the download until it
finishes.

Examples:
  benchfox pull llama3.2:1b
  benchfox pull mistral:7b --wait`,
	Args: cobra.ExactArgs(1),
	RunE: runPull,
}

var pullWait bool

func init() {
	pullCmd.Flags().BoolVar(&pullWait, "wait", false, "follow the pull until it finishes")
	rootCmd.AddCommand(pullCmd)
}

func runPull(cmd *cobra.Command, args []string) error {
	client := NewClient()

	resp, err := startOperation(client, "/api/pull", server.PullRequest{Model: args[0]})
	if err != nil {
		return fmt.Errorf("failed to start pull: %w", err)
	}

	if !pullWait {
		if jsonOut {
			return json.NewEncoder(os.Stdout).Encode(resp)
		}
		fmt.Printf("Pulling %s (%s)\n", resp.Model, resp.ID)
		return nil
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	last, err := follow(ctx, client, "/api/pull/progress", resp.ID)
	if err != nil {
		return err
	}
	return terminalError(last)
}
