package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/haskel/benchfox/internal/progress"
)

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Follow the progress of the active operation",
	Long: `Follow the server's progress stream until the running benchmark or pull
finishes. When nothing is running, watch waits for the next operation.`,
	RunE: runWatch,
}

var watchPull bool

func init() {
	watchCmd.Flags().BoolVar(&watchPull, "pull", false, "follow model pulls only")
	rootCmd.AddCommand(watchCmd)
}

func runWatch(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	path := "/api/progress"
	if watchPull {
		path = "/api/pull/progress"
	}

	last, err := follow(ctx, NewClient(), path, "")
	if err != nil {
		return err
	}
	return terminalError(last)
}

// follow prints every state from the stream at path until the operation
// with the given id reaches a terminal state. An empty id follows
// whatever runs next.
func follow(ctx context.Context, client *Client, path, id string) (progress.State, error) {
	var last progress.State
	idleShown := false

	err := client.Stream(ctx, path, func(data []byte) error {
		var st progress.State
		if err := json.Unmarshal(data, &st); err != nil {
			return fmt.Errorf("failed to parse progress event: %w", err)
		}

		if st.Status == progress.StatusIdle {
			if !idleShown && !jsonOut && id == "" {
				fmt.Println("Nothing is running; waiting for the next operation...")
			}
			idleShown = true
			return nil
		}
		if id != "" && st.ID != id {
			return nil
		}

		last = st
		printEvent(st)

		if st.Status.Terminal() {
			return errStopStream
		}
		return nil
	})

	return last, err
}

func printEvent(st progress.State) {
	if jsonOut {
		_ = json.NewEncoder(os.Stdout).Encode(st)
		return
	}

	switch {
	case st.Status.Terminal():
		fmt.Printf("[%s] %s\n", st.Status, firstNonEmpty(st.Error, st.Message))
	case st.TotalBytes > 0:
		fmt.Printf("[%3.0f%%] %s %s\n", st.Progress*100, st.Message, formatTransfer(st.CompletedBytes, st.TotalBytes))
	default:
		fmt.Printf("[%3.0f%%] %d/%d %s\n", st.Progress*100, st.Step, st.TotalSteps, st.Message)
	}
}

// terminalError maps a final state to the command's error.
func terminalError(st progress.State) error {
	switch st.Status {
	case progress.StatusError:
		return &ExitError{Code: exitFailed, Err: fmt.Errorf("%s failed: %s", st.Operation, st.Error)}
	case progress.StatusCancelled:
		return &ExitError{Code: exitCancelled, Err: fmt.Errorf("%s cancelled", st.Operation)}
	}
	return nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
