package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"image"
	"image/png"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/MeKo-Tech/filingocr/internal/extraction"
	"github.com/MeKo-Tech/filingocr/internal/testutil"
)

// fixture describes what the pipeline is expected to make of a generated file.
type fixture struct {
	Name          string                `json:"name"`
	Description   string                `json:"description"`
	InputFile     string                `json:"input_file"`
	FilingType    extraction.FilingType `json:"filing_type"`
	Pages         int                   `json:"pages"`
	ExpectMethod  extraction.Method     `json:"expect_method,omitempty"`
	ExpectFailure bool                  `json:"expect_failure,omitempty"`
}

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	var (
		generateFilings = flag.Bool("filings", true, "Generate synthetic filing PDFs and fixtures")
		generateImages  = flag.Bool("images", true, "Generate synthetic page scans")
		outDir          = flag.String("out", testutil.TestDataDir, "Output directory, relative to the project root")
		verbose         = flag.Bool("v", false, "Verbose output")
		help            = flag.Bool("h", false, "Show help")
	)

	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: %s [OPTIONS]\n\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "Generate test data for filingocr testing.\n\n")
		fmt.Fprintf(os.Stderr, "OPTIONS:\n")
		flag.PrintDefaults()
		fmt.Fprintf(os.Stderr, "\nEXAMPLES:\n")
		fmt.Fprintf(os.Stderr, "  %s                 # Generate all test data\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "  %s -images=false   # Generate only filings\n", os.Args[0])
	}

	flag.Parse()

	if *help {
		flag.Usage()
		return
	}

	root, err := testutil.GetProjectRoot()
	if err != nil {
		slog.Error("Failed to find project root", "error", err)
		os.Exit(1)
	}
	if *verbose {
		slog.Info("Project root", "path", root)
	}
	if err := os.Chdir(root); err != nil {
		slog.Error("Failed to change to project root", "error", err)
		os.Exit(1)
	}

	if *generateFilings {
		n, err := writeFilings(*outDir)
		if err != nil {
			slog.Error("Failed to generate filings", "error", err)
			os.Exit(1)
		}
		slog.Info("Generated filings", "count", n, "dir", filepath.Join(*outDir, testutil.FilingsDir))
	}

	if *generateImages {
		n, err := writeScans(*outDir)
		if err != nil {
			slog.Error("Failed to generate page scans", "error", err)
			os.Exit(1)
		}
		slog.Info("Generated page scans", "count", n, "dir", filepath.Join(*outDir, testutil.ScansDir))
	}

	slog.Info("Test data generation completed")
}

// writeFilings writes one PDF per fixture and the fixture index next to them.
func writeFilings(out string) (int, error) {
	dir := filepath.Join(out, testutil.FilingsDir)
	if err := testutil.EnsureDir(dir); err != nil {
		return 0, fmt.Errorf("failed to create filings directory: %w", err)
	}

	mixed := testutil.NewPDFBuilder().
		AddTextPage(testutil.DisclosurePageText(1)).
		AddImagePage(testutil.ScanPage(testutil.ScanLines(), testutil.LargeSize)).
		Bytes()

	files := []struct {
		fixture
		content []byte
	}{
		{fixture{Name: "annual_text", Description: "Three-page annual report with a text layer",
			FilingType: extraction.FilingAnnual, Pages: 3, ExpectMethod: extraction.MethodDirectText},
			testutil.DisclosurePDF(3)},
		{fixture{Name: "ptr_text", Description: "Single-page periodic transaction report with a text layer",
			FilingType: extraction.FilingPeriodicTransaction, Pages: 1, ExpectMethod: extraction.MethodDirectText},
			testutil.DisclosurePDF(1)},
		{fixture{Name: "ptr_scanned", Description: "Two scanned pages without a text layer",
			FilingType: extraction.FilingPeriodicTransaction, Pages: 2, ExpectMethod: extraction.MethodLocalOCR},
			testutil.ScannedPDF(2)},
		{fixture{Name: "amendment_mixed", Description: "One text page followed by one scanned page",
			FilingType: extraction.FilingAmendment, Pages: 2},
			mixed},
		{fixture{Name: "corrupt", Description: "Truncated file with a PDF header",
			FilingType: extraction.FilingAnnual, ExpectFailure: true},
			testutil.CorruptPDF()},
	}

	index := make([]fixture, 0, len(files))
	for _, f := range files {
		f.InputFile = filepath.Join(testutil.FilingsDir, f.Name+".pdf")
		if err := os.WriteFile(filepath.Join(out, f.InputFile), f.content, 0o600); err != nil {
			return 0, fmt.Errorf("failed to write %s: %w", f.InputFile, err)
		}
		index = append(index, f.fixture)
	}

	data, err := json.MarshalIndent(index, "", "  ")
	if err != nil {
		return 0, err
	}
	if err := os.WriteFile(filepath.Join(dir, "fixtures.json"), data, 0o600); err != nil {
		return 0, fmt.Errorf("failed to write fixtures: %w", err)
	}

	text := strings.Join(testutil.DisclosurePages(2), extraction.PageBreak)
	if err := os.WriteFile(filepath.Join(dir, "annual_text.txt"), []byte(text), 0o600); err != nil {
		return 0, fmt.Errorf("failed to write reference text: %w", err)
	}
	return len(files), nil
}

// writeScans renders page scans with the defects preprocessing removes.
func writeScans(out string) (int, error) {
	dir := filepath.Join(out, testutil.ScansDir)
	if err := testutil.EnsureDir(dir); err != nil {
		return 0, fmt.Errorf("failed to create images directory: %w", err)
	}

	variants := []struct {
		name   string
		adjust func(*testutil.PageImageConfig)
	}{
		{"clean", func(*testutil.PageImageConfig) {}},
		{"noisy", func(c *testutil.PageImageConfig) { c.Noise = 0.03 }},
		{"skewed", func(c *testutil.PageImageConfig) { c.Rotation = 3 }},
		{"bordered", func(c *testutil.PageImageConfig) { c.Border = 24 }},
	}

	for _, v := range variants {
		cfg := testutil.DefaultPageImageConfig()
		cfg.Lines = testutil.ScanLines()
		cfg.Size = testutil.LargeSize
		v.adjust(&cfg)

		img, err := testutil.GeneratePageImage(cfg)
		if err != nil {
			return 0, fmt.Errorf("failed to render %s scan: %w", v.name, err)
		}
		if err := savePNG(img, filepath.Join(dir, "scan_"+v.name+".png")); err != nil {
			return 0, err
		}
	}
	return len(variants), nil
}

func savePNG(img image.Image, path string) error {
	file, err := os.Create(path) //nolint:gosec // G304: Test data generation uses controlled paths
	if err != nil {
		return fmt.Errorf("failed to create image file: %w", err)
	}
	if err := png.Encode(file, img); err != nil {
		_ = file.Close()
		return fmt.Errorf("failed to save image: %w", err)
	}
	return file.Close()
}
