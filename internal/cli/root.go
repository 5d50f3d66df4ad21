package cli

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var (
	// Global flags
	cfgFile  string
	host     string
	port     int
	jsonOut  bool
	verbose  bool
	user     string
	password string

	// Version info (set from main)
	Version = "0.2.0"
)

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "benchfox",
	Short: "Local LLM benchmarking against an Ollama server",
	Long: `Benchfox runs repeatable inference benchmarks against an Ollama server.
It drives models through a fixed prompt catalog, streams progress while
a benchmark runs, and keeps a history of results that can be exported
and compared across machines.`,
	// Execute reports the error; usage only helps for flag mistakes.
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Exit codes beyond the generic failure.
const (
	exitFailed    = 1
	exitCancelled = 2
	exitBusy      = 75 // EX_TEMPFAIL from sysexits.h
)

// ExitError carries a specific process exit code.
type ExitError struct {
	Code int
	Err  error
}

func (e *ExitError) Error() string { return e.Err.Error() }
func (e *ExitError) Unwrap() error { return e.Err }

// exitCode returns the process exit code for err.
func exitCode(err error) int {
	var ee *ExitError
	if errors.As(err, &ee) {
		return ee.Code
	}
	return exitFailed
}

// Execute runs the root command
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(exitCode(err))
	}
}

func init() {
	// Global flags
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "", "config file path")
	rootCmd.PersistentFlags().StringVar(&host, "host", "localhost", "server host")
	rootCmd.PersistentFlags().IntVarP(&port, "port", "p", 5555, "server port")
	rootCmd.PersistentFlags().BoolVar(&jsonOut, "json", false, "output in JSON format")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
	rootCmd.PersistentFlags().StringVar(&user, "user", "", "auth username")
	rootCmd.PersistentFlags().StringVar(&password, "password", "", "auth password")
}

// SetVersion sets the version for the CLI
func SetVersion(v string) {
	Version = v
	rootCmd.Version = v
}

// GetServerURL returns the server URL based on flags
func GetServerURL() string {
	return fmt.Sprintf("http://%s:%d", host, port)
}
