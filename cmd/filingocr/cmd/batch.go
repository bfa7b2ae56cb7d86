package cmd

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/MeKo-Tech/filingocr/internal/batch"
	"github.com/MeKo-Tech/filingocr/internal/config"
	"github.com/MeKo-Tech/filingocr/internal/extraction"
)

// batchCmd represents the batch command for parallel document processing.
var batchCmd = &cobra.Command{
	Use:   "batch PATH...",
	Short: "Extract text from many filings in parallel",
	Long: `Extract text from every matching document under the given files and
directories using a pool of workers. Each document is processed independently;
a failure is recorded in the results and, unless --stop-on-error is set, does
not stop the run.

Examples:
  filingocr batch ./filings
  filingocr batch ./filings --recursive --workers 8 --progress
  filingocr batch a.pdf b.pdf --format csv --output results.csv
  filingocr batch ./filings --output-dir ./texts --report summary.xlsx`,
	Args: cobra.MinimumNArgs(1),
	RunE: runBatchCommand,
}

// configToBatchConfig maps centralized configuration to batch.Config.
func configToBatchConfig(cfg *config.Config, cmd *cobra.Command) *batch.Config {
	bc := batch.DefaultConfig()
	bc.Workers = cfg.Batch.Workers
	bc.Recursive = cfg.Batch.Recursive
	bc.IncludePatterns = cfg.Batch.Include
	bc.ExcludePatterns = cfg.Batch.Exclude
	bc.OutputDir = cfg.Batch.OutputDir
	bc.ContinueOnError = cfg.Batch.ContinueOnError
	bc.Format = cfg.Output.Format

	setIntWithFlag(cmd, "workers", &bc.Workers)
	setBoolWithFlag(cmd, "recursive", &bc.Recursive)
	setStringSliceWithFlag(cmd, "include", &bc.IncludePatterns)
	setStringSliceWithFlag(cmd, "exclude", &bc.ExcludePatterns)
	setStringWithFlag(cmd, "output-dir", &bc.OutputDir)
	setStringWithFlag(cmd, "format", &bc.Format)
	if stop, _ := cmd.Flags().GetBool("stop-on-error"); stop {
		bc.ContinueOnError = false
	}

	if ft, _ := cmd.Flags().GetString("filing-type"); ft != "" {
		bc.FilingType = extraction.ParseFilingType(ft)
	}
	bc.OutputFile, _ = cmd.Flags().GetString("output")
	bc.ReportFile, _ = cmd.Flags().GetString("report")
	bc.ShowProgress, _ = cmd.Flags().GetBool("progress")
	bc.Quiet, _ = cmd.Flags().GetBool("quiet")
	bc.ProgressWriter = cmd.ErrOrStderr()
	bc.Logger = slog.Default()
	return bc
}

func runBatchCommand(cmd *cobra.Command, args []string) error {
	cfg := GetConfig()
	applyStrategyFlags(cmd, cfg)
	bc := configToBatchConfig(cfg, cmd)

	a, err := buildApp(cmd.Context(), cfg)
	if err != nil {
		return err
	}
	defer func() { _ = a.Close() }()

	result, err := batch.ProcessBatch(cmd.Context(), a.Pipeline, args, bc)
	if result == nil {
		return fmt.Errorf("batch processing failed: %w", err)
	}

	if saveErr := result.SaveResults(cmd.OutOrStdout(), bc.Format, bc.OutputFile, bc.Quiet); saveErr != nil {
		return fmt.Errorf("failed to save results: %w", saveErr)
	}
	result.PrintStats(cmd.ErrOrStderr(), bc.Quiet)

	if err != nil {
		return fmt.Errorf("batch processing failed: %w", err)
	}
	return nil
}

func init() {
	rootCmd.AddCommand(batchCmd)
	addStrategyFlags(batchCmd)

	batchCmd.Flags().IntP("workers", "w", 4, "number of documents processed concurrently")
	batchCmd.Flags().BoolP("recursive", "r", false, "descend into subdirectories")
	batchCmd.Flags().StringSlice("include", nil, "file patterns to include (default *.pdf)")
	batchCmd.Flags().StringSlice("exclude", nil, "file patterns to exclude")
	batchCmd.Flags().Bool("stop-on-error", false, "stop at the first failed document")

	batchCmd.Flags().StringP("format", "f", "json", "output format: json, csv, text")
	batchCmd.Flags().StringP("output", "o", "", "output file (default: stdout)")
	batchCmd.Flags().String("output-dir", "", "directory receiving one <document_id>.json per document")
	batchCmd.Flags().String("report", "", "write an .xlsx summary report to this path")

	batchCmd.Flags().Bool("progress", false, "show a progress bar")
	batchCmd.Flags().BoolP("quiet", "q", false, "suppress statistics and status messages")
}
