package cmd

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"slices"
	"strings"

	"github.com/spf13/cobra"

	"github.com/MeKo-Tech/filingocr/internal/batch"
	"github.com/MeKo-Tech/filingocr/internal/config"
	"github.com/MeKo-Tech/filingocr/internal/extraction"
)

var extractFormats = []string{"json", "text", "csv"}

// extractCmd represents the extract command.
var extractCmd = &cobra.Command{
	Use:   "extract FILE",
	Short: "Extract text from a single filing",
	Long: `Extract text from one filing document and print the scored result.

Strategies run cheapest first. The first result that clears its confidence
threshold is returned; otherwise the best result seen is returned with a
warning. A document no strategy could read exits with an error listing the
reason each strategy gave.

Examples:
  filingocr extract filing.pdf
  filingocr extract scan.pdf --filing-type P --expected-pages 4
  filingocr extract scan.pdf --remote-endpoint https://ocr.example.com/v1/analyze
  filingocr extract filing.pdf --format text --output filing.txt`,
	Args: cobra.ExactArgs(1),
	RunE: runExtract,
}

func runExtract(cmd *cobra.Command, args []string) error {
	cfg := GetConfig()
	applyStrategyFlags(cmd, cfg)

	format := cfg.Output.Format
	setStringWithFlag(cmd, "format", &format)
	if !slices.Contains(extractFormats, format) {
		return fmt.Errorf("invalid output format: %s (must be one of: %s)", format, strings.Join(extractFormats, ", "))
	}

	doc, err := extraction.LoadDocument(args[0])
	if err != nil {
		return err
	}
	setStringWithFlag(cmd, "document-id", &doc.ID)
	if ft, _ := cmd.Flags().GetString("filing-type"); ft != "" {
		doc.FilingType = extraction.ParseFilingType(ft)
	}
	doc.ExpectedPageCount, _ = cmd.Flags().GetInt("expected-pages")

	a, err := buildApp(cmd.Context(), cfg)
	if err != nil {
		return err
	}
	defer func() { _ = a.Close() }()

	result, err := a.Pipeline.Extract(cmd.Context(), doc)
	if err != nil {
		if u, ok := extraction.AsUnextractable(err); ok {
			for _, f := range u.Failures {
				_, _ = fmt.Fprintf(cmd.ErrOrStderr(), "  %s: %s\n", f.Method, f.Reason)
			}
		}
		return fmt.Errorf("extraction failed: %w", err)
	}

	slog.Debug("Extraction complete",
		"document_id", result.DocumentID,
		"method", result.Method,
		"confidence", result.Score(),
		"band", result.Band)

	output, err := formatExtractResult(args[0], result, format)
	if err != nil {
		return err
	}
	outputFile, _ := cmd.Flags().GetString("output")
	return writeOutput(cmd, output, outputFile)
}

// applyStrategyFlags folds the strategy switches shared by extract and batch
// into cfg.
func applyStrategyFlags(cmd *cobra.Command, cfg *config.Config) {
	if endpoint, _ := cmd.Flags().GetString("remote-endpoint"); endpoint != "" {
		cfg.Pipeline.RemoteOCR.Enabled = true
		cfg.Pipeline.RemoteOCR.Endpoint = endpoint
	}
	if off, _ := cmd.Flags().GetBool("no-local-ocr"); off {
		cfg.Pipeline.LocalOCR.Enabled = false
	}
	if off, _ := cmd.Flags().GetBool("no-remote-ocr"); off {
		cfg.Pipeline.RemoteOCR.Enabled = false
	}
}

func formatExtractResult(file string, result *extraction.Result, format string) (string, error) {
	switch format {
	case "text":
		return result.Text + "\n", nil
	case "csv":
		single := &batch.Result{Items: []batch.Item{{File: file, DocumentID: result.DocumentID, Result: result}}}
		return single.FormatResults("csv")
	default:
		data, err := json.MarshalIndent(result, "", "  ")
		if err != nil {
			return "", fmt.Errorf("failed to format output: %w", err)
		}
		return string(data) + "\n", nil
	}
}

func addStrategyFlags(cmd *cobra.Command) {
	cmd.Flags().String("filing-type", "", "filing type code applied to the document(s) (e.g. A, P, T)")
	cmd.Flags().String("remote-endpoint", "", "remote OCR endpoint; enables the remote strategy")
	cmd.Flags().Bool("no-local-ocr", false, "disable the local OCR strategy")
	cmd.Flags().Bool("no-remote-ocr", false, "disable the remote OCR strategy")
}

func init() {
	rootCmd.AddCommand(extractCmd)
	addStrategyFlags(extractCmd)
	extractCmd.Flags().String("document-id", "", "document id (default: file name without extension)")
	extractCmd.Flags().Int("expected-pages", 0, "expected page count; a mismatch adds a warning")
	extractCmd.Flags().StringP("format", "f", "json", "output format: json, text, csv")
	extractCmd.Flags().StringP("output", "o", "", "output file (default: stdout)")
}
