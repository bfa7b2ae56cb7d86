package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/MeKo-Tech/filingocr/internal/app"
	"github.com/MeKo-Tech/filingocr/internal/config"
	"github.com/MeKo-Tech/filingocr/internal/metrics"
)

// buildApp validates cfg after flag overrides and assembles the pipeline.
func buildApp(ctx context.Context, cfg *config.Config) (*app.App, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	a, err := app.NewBuilder(*cfg).
		WithLogger(slog.Default()).
		WithRecorder(metrics.NewRecorder()).
		Build(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize pipeline: %w", err)
	}
	return a, nil
}

// writeOutput writes output to file, or to the command's stdout when file is empty.
func writeOutput(cmd *cobra.Command, output, file string) error {
	if file == "" {
		_, err := fmt.Fprint(cmd.OutOrStdout(), output)
		return err
	}
	if err := os.WriteFile(file, []byte(output), 0o600); err != nil {
		return fmt.Errorf("failed to write output file: %w", err)
	}
	_, _ = fmt.Fprintf(cmd.ErrOrStderr(), "Results written to %s\n", file)
	return nil
}

func setStringWithFlag(cmd *cobra.Command, name string, target *string) {
	if cmd.Flags().Changed(name) {
		*target, _ = cmd.Flags().GetString(name)
	}
}

func setIntWithFlag(cmd *cobra.Command, name string, target *int) {
	if cmd.Flags().Changed(name) {
		*target, _ = cmd.Flags().GetInt(name)
	}
}

func setBoolWithFlag(cmd *cobra.Command, name string, target *bool) {
	if cmd.Flags().Changed(name) {
		*target, _ = cmd.Flags().GetBool(name)
	}
}

func setStringSliceWithFlag(cmd *cobra.Command, name string, target *[]string) {
	if cmd.Flags().Changed(name) {
		*target, _ = cmd.Flags().GetStringSlice(name)
	}
}
