package cmd

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"firestige.xyz/rtuport/internal/config"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Inspect configuration",
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Validate the configuration and print the effective values",
	Long: `Load the configuration file (plus defaults and RTUPORT_* environment
overrides), validate it and print the result as YAML.

Examples:
  rtuport config show -c config.yml
  RTUPORT_LOG_LEVEL=debug rtuport config show`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runConfigShow(cfg, cmd.OutOrStdout())
	},
}

func init() {
	configCmd.AddCommand(configShowCmd)
}

func runConfigShow(cfg *config.GlobalConfig, out io.Writer) error {
	data, err := yaml.Marshal(map[string]*config.GlobalConfig{"rtuport": cfg})
	if err != nil {
		return fmt.Errorf("failed to render config: %w", err)
	}
	_, err = out.Write(data)
	return err
}
