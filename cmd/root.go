package cmd

import (
	"github.com/spf13/cobra"
)

var configFile string

var rootCmd = &cobra.Command{
	Use:          "pnodelogger",
	Short:        "pNode network monitor: discovery, stats enrichment, analytics and REST API",
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", "optional config file (yaml, toml or json); environment variables override it")
}

func Execute() error {
	return rootCmd.Execute()
}
