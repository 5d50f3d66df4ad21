package cli

import (
	"fmt"
	"net/http"
	"net/url"
	"os"

	"github.com/spf13/cobra"
)

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export a benchmark as JSON or CSV",
	Long: `Download a benchmark run. The JSON document carries the raw samples and
their statistics and can be re-imported or compared on another machine.

Examples:
  benchfox export -o run.json
  benchfox export --format csv --id 6f1c... -o run.csv`,
	RunE: runExport,
}

var (
	exportFormat string
	exportID     string
	exportOutput string
)

func init() {
	exportCmd.Flags().StringVar(&exportFormat, "format", "json", "export format: json or csv")
	exportCmd.Flags().StringVar(&exportID, "id", "", "run id (default: latest run)")
	exportCmd.Flags().StringVarP(&exportOutput, "output", "o", "", "output file (default: stdout)")
	rootCmd.AddCommand(exportCmd)
}

func runExport(cmd *cobra.Command, args []string) error {
	if exportFormat != "json" && exportFormat != "csv" {
		return fmt.Errorf("unknown format %q: use json or csv", exportFormat)
	}

	q := url.Values{"format": {exportFormat}}
	if exportID != "" {
		q.Set("id", exportID)
	}

	data, status, err := NewClient().Get("/api/export?" + q.Encode())
	if err != nil {
		return fmt.Errorf("failed to export: %w", err)
	}
	if status != http.StatusOK {
		return apiError(status, data)
	}

	if exportOutput == "" {
		_, err := os.Stdout.Write(data)
		return err
	}

	if err := os.WriteFile(exportOutput, data, 0644); err != nil {
		return fmt.Errorf("failed to write %s: %w", exportOutput, err)
	}
	fmt.Fprintf(os.Stderr, "Wrote %s\n", exportOutput)
	return nil
}
