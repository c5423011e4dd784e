// Package cmd implements CLI commands using cobra framework.
package cmd

import (
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"firestige.xyz/rtuport/internal/config"
	"firestige.xyz/rtuport/internal/log"
)

var (
	// Global flags
	configFile string
	logLevel   string

	// cfg is loaded before any subcommand runs
	cfg *config.GlobalConfig
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "rtuport",
	Short: "rtuport - Modbus RTU response framing over serial and TCP links",
	Long: `rtuport predicts Modbus RTU response lengths and extracts checksum-validated
response frames from unframed byte streams.

Features:
  - Length prediction for read/write function codes 1-6, 15, 16
  - Resynchronisation on noisy lines by CRC-16 scanning
  - Serial and raw TCP (serial gateway) transports
  - Offline replay of pcap captures`,
	Version:           "0.1.0",
	SilenceUsage:      true,
	SilenceErrors:     true,
	PersistentPreRunE: loadConfig,
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configFile, "config", "c", "",
		"config file path (defaults only when empty)")
	rootCmd.PersistentFlags().StringVarP(&logLevel, "log-level", "l", "",
		"override log level (trace|debug|info|warn|error)")

	rootCmd.AddCommand(predictCmd)
	rootCmd.AddCommand(pollCmd)
	rootCmd.AddCommand(replayCmd)
	rootCmd.AddCommand(configCmd)
}

func loadConfig(cmd *cobra.Command, args []string) error {
	loaded, err := config.Load(configFile)
	if err != nil {
		return err
	}
	if logLevel != "" {
		loaded.Log.Level = logLevel
	}
	if err := log.Init(loaded.Log); err != nil {
		return err
	}
	cfg = loaded
	return nil
}

// parseHex accepts "01 03 00 00 00 0A", "0103 0000 000a" or "01:03:...".
func parseHex(s string) ([]byte, error) {
	clean := strings.NewReplacer(" ", "", ":", "", "-", "", "0x", "", "0X", "").Replace(s)
	b, err := hex.DecodeString(clean)
	if err != nil {
		return nil, fmt.Errorf("invalid hex %q: %w", s, err)
	}
	return b, nil
}
