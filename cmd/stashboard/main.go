// Package main provides the entry point for the Stashboard server and its
// companion commands.
package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

var configPath string

var rootCmd = &cobra.Command{
	Use:   "stashboard",
	Short: "Job application artifact pipeline",
	Long:  "Stashboard captures job listings, extracts structure from them with an LLM, stores them in a durable local hoard, and generates tailored resumes and cover letters.",
}

func main() {
	// Load .env file if it exists
	_ = godotenv.Load()

	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Path to JSON config file")

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
