package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "homescore",
	Short: "Property confidence scores for insurers and buyers",
	Long: `homescore computes insurance and buyer confidence scores for residential
properties from their asset records, EPC rating and postcode flood risk.

Without a subcommand the HTTP API and the monthly scheduler run together.`,
	SilenceUsage: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		return serveCmd.RunE(cmd, args)
	},
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(apiCmd)
	rootCmd.AddCommand(schedulerCmd)
	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(migrateCmd)
}
