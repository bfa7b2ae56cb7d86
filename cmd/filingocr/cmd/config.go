package cmd

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/MeKo-Tech/filingocr/internal/config"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Inspect or create the configuration file",
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the effective configuration",
	Long: `Print the configuration after merging defaults, the config file, .env,
FILINGOCR_* environment variables and flags. Secrets are masked.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		if sources, _ := cmd.Flags().GetBool("sources"); sources {
			GetConfigLoader().WriteSources(cmd.OutOrStdout())
			return nil
		}
		cfg := GetConfig().Redacted()

		var (
			data []byte
			err  error
		)
		if asJSON, _ := cmd.Flags().GetBool("json"); asJSON {
			data, err = json.MarshalIndent(cfg, "", "  ")
			data = append(data, '\n')
		} else {
			data, err = config.MarshalYAML(cfg)
		}
		if err != nil {
			return fmt.Errorf("failed to render configuration: %w", err)
		}

		if used := GetConfigLoader().GetConfigFileUsed(); used != "" {
			_, _ = fmt.Fprintf(cmd.ErrOrStderr(), "# config file: %s\n", used)
		}
		_, err = cmd.OutOrStdout().Write(data)
		return err
	},
}

var configInitCmd = &cobra.Command{
	Use:   "init [FILE]",
	Short: "Write a configuration file with every default",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		path := config.ConfigFileName + ".yaml"
		if len(args) == 1 {
			path = args[0]
		}
		force, _ := cmd.Flags().GetBool("force")
		if err := config.GenerateDefaultConfigFile(path, force); err != nil {
			return err
		}
		_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Configuration written to %s\n", path)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(configCmd)
	configCmd.AddCommand(configShowCmd, configInitCmd)
	configShowCmd.Flags().Bool("json", false, "print JSON instead of YAML")
	configShowCmd.Flags().Bool("sources", false, "print the config file, search paths and env prefix instead")
	configInitCmd.Flags().Bool("force", false, "overwrite an existing file")
}
