package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/fluxgatelabs/coilscope/configs"
)

var configShowDefaults bool

// configCmd represents the config command
var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Show the resolved configuration",
	Long: `Print the effective configuration as YAML after applying defaults,
the config file, environment variables and flags.

Examples:
  # Show the resolved configuration
  coilscope config

  # Show the built-in defaults, ignoring any config file
  coilscope config --defaults`,
	RunE: runConfig,
}

func init() {
	rootCmd.AddCommand(configCmd)

	configCmd.Flags().BoolVar(&configShowDefaults, "defaults", false,
		"show built-in defaults instead of the resolved configuration")
}

func runConfig(cmd *cobra.Command, args []string) error {
	var config *configs.Config

	if configShowDefaults {
		config = configs.GetDefaultConfig()
	} else {
		loaded, err := configs.LoadConfig()
		if err != nil {
			return err
		}
		config = loaded
	}

	data, err := yaml.Marshal(config)
	if err != nil {
		return fmt.Errorf("failed to encode configuration: %w", err)
	}

	if _, err := os.Stdout.Write(data); err != nil {
		return err
	}
	return nil
}
