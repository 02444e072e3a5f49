package main

import (
	"github.com/spf13/cobra"
)

var (
	serverURL string
	outputFmt string
	actor     string
)

var rootCmd = &cobra.Command{
	Use:   "datahubctl",
	Short: "CLI for the dataset hub server",
	Long: `datahubctl talks to a running datahub server: browse datasets and their
version history, create versions, compare them, publish datasets to the
archive and inspect trending rankings.`,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&serverURL, "server", "http://localhost:8080", "Datahub server URL")
	rootCmd.PersistentFlags().StringVarP(&outputFmt, "output", "o", "table", "Output format: table, json, yaml")
	rootCmd.PersistentFlags().StringVar(&actor, "user", "", "Acting user recorded on writes (X-User header)")

	rootCmd.AddCommand(datasetsCmd)
	rootCmd.AddCommand(versionsCmd)
	rootCmd.AddCommand(trendingCmd)
	rootCmd.AddCommand(healthCmd)
}
