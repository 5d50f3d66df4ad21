package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/haskel/benchfox/internal/config"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Show the effective configuration",
	Long: `Load the configuration the way "benchfox start" does (env file, config
file, --host/--port overrides), validate it and print the result.`,
	RunE: runConfig,
}

var validateOnly bool

func init() {
	configCmd.Flags().BoolVar(&validateOnly, "validate", false, "only validate config, don't print")
	rootCmd.AddCommand(configCmd)
}

func runConfig(cmd *cobra.Command, args []string) error {
	out := cmd.OutOrStdout()

	if err := config.LoadDotEnv(envFile); err != nil {
		return err
	}

	cfg, err := loadConfig(cmd)
	if err != nil {
		if jsonOut {
			data, _ := json.Marshal(map[string]any{"valid": false, "errors": problems(err)})
			fmt.Fprintln(out, string(data))
		} else {
			fmt.Fprintln(out, "Configuration invalid:")
			for _, p := range problems(err) {
				fmt.Fprintf(out, "  - %s\n", p)
			}
		}
		return &ExitError{Code: exitFailed, Err: err}
	}

	if validateOnly {
		if jsonOut {
			fmt.Fprintln(out, `{"valid":true}`)
		} else {
			fmt.Fprintf(out, "Configuration is valid: %s\n", configSummary(cfg))
		}
		return nil
	}

	return printConfig(out, cfg)
}

func printConfig(out io.Writer, cfg *config.Config) error {
	var (
		data []byte
		err  error
	)
	if jsonOut {
		data, err = json.MarshalIndent(cfg, "", "  ")
	} else {
		data, err = yaml.Marshal(cfg)
	}
	if err != nil {
		return err
	}
	fmt.Fprintln(out, strings.TrimRight(string(data), "\n"))
	return nil
}

// problems flattens a joined validation error into one line per problem.
func problems(err error) []string {
	joined, ok := err.(interface{ Unwrap() []error })
	if !ok {
		return []string{err.Error()}
	}

	var out []string
	for _, e := range joined.Unwrap() {
		out = append(out, problems(e)...)
	}
	return out
}

func configSummary(cfg *config.Config) string {
	backend := cfg.Persistence.Backend
	if backend == "" {
		backend = "file"
	}

	schedule := "off"
	if cfg.Schedule.Enabled {
		schedule = cfg.Schedule.Cron
	}

	return fmt.Sprintf("%d models, %d prompts, history %s in %s, schedule %s",
		len(cfg.Benchmark.Models), len(cfg.Benchmark.Prompts), backend, cfg.Persistence.DataDir, schedule)
}
