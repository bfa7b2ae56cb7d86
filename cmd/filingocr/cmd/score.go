package cmd

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/MeKo-Tech/filingocr/internal/extraction"
	"github.com/MeKo-Tech/filingocr/internal/pipeline"
	"github.com/MeKo-Tech/filingocr/internal/quality"
)

var scoreCmd = &cobra.Command{
	Use:   "score FILE",
	Short: "Score a plain-text file with the confidence scorer",
	Long: `Score extracted text the way the pipeline scores strategy output, and
print every signal behind the score together with its confidence band.

Pages in FILE are separated by form feeds. Without --pages the page count is
taken from the number of form feeds.

Examples:
  filingocr score page.txt --pages 1
  filingocr score filing.txt`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		data, err := os.ReadFile(args[0])
		if err != nil {
			return fmt.Errorf("failed to read text: %w", err)
		}
		text := string(data)

		cfg := GetConfig()
		patterns, err := quality.CompilePatterns(cfg.Pipeline.ExpectedPatterns)
		if err != nil {
			return err
		}

		in := quality.Input{Text: text, ExpectedPatterns: patterns}
		if strings.Contains(text, extraction.PageBreak) {
			in.PageTexts = strings.Split(text, extraction.PageBreak)
		}
		in.PageCount, _ = cmd.Flags().GetInt("pages")
		if in.PageCount <= 0 {
			in.PageCount = max(len(in.PageTexts), 1)
		}

		b := quality.NewScorer(cfg.Pipeline.Scorer).Explain(in)
		out := struct {
			quality.Breakdown
			Band pipeline.Band `json:"band"`
		}{b, pipeline.ClassifyBand(b.Total, cfg.Pipeline.Thresholds)}

		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(out)
	},
}

func init() {
	rootCmd.AddCommand(scoreCmd)
	scoreCmd.Flags().IntP("pages", "n", 0, "page count the text came from")
}
