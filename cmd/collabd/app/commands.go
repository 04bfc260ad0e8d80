// Package app provides the entry point for the collabd command-line
// application.
package app

import (
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/mcp-collab/collabd/internal/logging"
)

var rootCmd = &cobra.Command{
	Use:               "collabd",
	DisableAutoGenTag: true,
	Short:             "collabd is a multi-client collaboration-fabric server for shared editing, terminals, and extension state",
	Long: `collabd is a lightweight server that lets multiple clients share one workspace:
a terminal session, an open file, or arbitrary extension state, kept in sync and
broadcast to every participant over a small framed JSON protocol.`,
	Run: func(cmd *cobra.Command, _ []string) {
		if err := cmd.Help(); err != nil {
			logging.Errorf("error displaying help: %v", err)
		}
	},
	PersistentPreRun: func(_ *cobra.Command, _ []string) {
		logging.Initialize()
	},
}

// NewRootCmd creates the root command for the collabd CLI.
func NewRootCmd() *cobra.Command {
	rootCmd.PersistentFlags().Bool("debug", false, "Enable debug logging")
	if err := viper.BindPFlag("debug", rootCmd.PersistentFlags().Lookup("debug")); err != nil {
		logging.Errorf("error binding debug flag: %v", err)
	}

	rootCmd.PersistentFlags().StringP("config", "c", "", "Path to a collabd configuration file")
	if err := viper.BindPFlag("config", rootCmd.PersistentFlags().Lookup("config")); err != nil {
		logging.Errorf("error binding config flag: %v", err)
	}

	rootCmd.AddCommand(newServeCmd())

	rootCmd.SilenceUsage = true
	return rootCmd
}
