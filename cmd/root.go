// Package cmd implements the neti command line interface.
package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// Version is set at build time.
var Version = "dev"

var rootCmd = &cobra.Command{
	Use:   "neti",
	Short: "Neti, the Intynet customer support bot",
	Long:  "Neti receives Qiscus webhooks, coalesces message bursts, runs the support dialogue flow and escalates unresolved complaints to the ticketing system.",
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Println("neti", Version)
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}

// Execute runs the CLI.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
