// Lumenctl is a control utility for Yeelight-compatible smart lights.
//
// It discovers lights on the local network over UDP multicast, opens a
// TCP control session per light, and issues validated protocol commands:
// power, brightness, color, color flows, and music-mode side channels.
//
// Usage:
//
//	lumenctl [command] [flags]
//
// See 'lumenctl --help' for available commands.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/lumenlab/lumen/internal/config"
	"github.com/lumenlab/lumen/internal/logging"
	"github.com/lumenlab/lumen/internal/version"
)

func main() {
	initLogging()
	defer logging.Sync()

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "lumenctl",
	Short: "Smart Light Control Utility",
	Long: `A standalone utility for controlling Yeelight-compatible smart lights.

Provides LAN discovery, direct light control (power, brightness, color,
color temperature, flows), alias assignment, and music-mode side channels.`,
	Version:       version.Version,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	// Disable automatic completion command generation
	rootCmd.CompletionOptions.DisableDefaultCmd = true

	rootCmd.AddCommand(versionCmd)
}

// initLogging wires the logger. The env var wins; the config file's
// log_level preference fills in when the env var is unset.
func initLogging() {
	if os.Getenv(logging.LogLevelEnvVar) != "" {
		_ = logging.InitializeFromEnv()
		return
	}
	if settings, err := config.Load(); err == nil && settings.Preferences.LogLevel != "" {
		_ = logging.Initialize(settings.Preferences.LogLevel)
	}
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("lumenctl %s (commit: %s)\n", version.Version, version.Commit)
	},
}
