package cli

import (
	"errors"
	"fmt"
	"os"
	"syscall"
	"time"

	"github.com/spf13/cobra"
)

var (
	stopWait    bool
	stopTimeout time.Duration
)

var stopCmd = &cobra.Command{
	Use:   "stop",
	Short: "Stop the running benchfox server",
	Long: `Stop the benchfox server by sending SIGTERM to the process in the PID file.
A running benchmark is cancelled and its partial results are saved; with
--wait the command returns once the process has exited.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		pid, err := signalServer(syscall.SIGTERM)
		if err != nil {
			return err
		}

		status := "stop_requested"
		if stopWait {
			if err := waitExit(pid, stopTimeout, 100*time.Millisecond); err != nil {
				return err
			}
			status = "stopped"
		}

		if jsonOut {
			fmt.Printf(`{"status":%q,"pid":%d}`+"\n", status, pid)
		} else if stopWait {
			fmt.Printf("Server process %d stopped\n", pid)
		} else {
			fmt.Printf("Sent SIGTERM to process %d\n", pid)
		}
		return nil
	},
}

var reloadCmd = &cobra.Command{
	Use:   "reload",
	Short: "Reload the benchfox server configuration",
	Long: `Send SIGHUP to the server process. Auth, rate limits, log level, the
model and prompt catalog and the schedule are re-read; host and port are not.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		pid, err := signalServer(syscall.SIGHUP)
		if err != nil {
			return err
		}

		if jsonOut {
			fmt.Printf(`{"status":"reload_requested","pid":%d}`+"\n", pid)
		} else {
			fmt.Printf("Sent SIGHUP to process %d (configuration reload requested)\n", pid)
		}
		return nil
	},
}

func init() {
	for _, cmd := range []*cobra.Command{stopCmd, reloadCmd} {
		cmd.Flags().StringVar(&pidFile, "pid-file", "", "PID file path (overrides config)")
		rootCmd.AddCommand(cmd)
	}
	stopCmd.Flags().BoolVar(&stopWait, "wait", false, "wait for the process to exit")
	stopCmd.Flags().DurationVar(&stopTimeout, "timeout", 45*time.Second, "how long --wait waits")
}

// processAlive reports whether pid still exists, using signal 0.
func processAlive(pid int) bool {
	p, err := os.FindProcess(pid)
	if err != nil {
		return false
	}
	err = p.Signal(syscall.Signal(0))
	return err == nil || errors.Is(err, syscall.EPERM)
}

// waitExit polls until pid is gone or timeout passes.
func waitExit(pid int, timeout, interval time.Duration) error {
	deadline := time.Now().Add(timeout)
	for processAlive(pid) {
		if time.Now().After(deadline) {
			return fmt.Errorf("process %d still running after %s", pid, timeout)
		}
		time.Sleep(interval)
	}
	return nil
}
