package main

import (
	"github.com/spf13/cobra"
)

var configPath string

var rootCmd = &cobra.Command{
	Use:   "dragonsort",
	Short: "DRAGON recoil-separator coincidence-matching core",
	Long: "dragonsort runs the head/tail coincidence-matching core over a stream of framed\n" +
		"VME events, either from a YAML fixture file (for replay and testing) or, once\n" +
		"wired to a live source, from the MIDAS front end itself.",
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "run configuration file (TOML/YAML/JSON, viper-compatible)")
	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(versionCmd)
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}
