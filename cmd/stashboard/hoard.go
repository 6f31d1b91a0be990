package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/jonathan/stashboard/internal/config"
	"github.com/jonathan/stashboard/internal/hoard"
)

var hoardCmd = &cobra.Command{
	Use:   "hoard",
	Short: "Inspect the stored job listings",
}

var hoardListCmd = &cobra.Command{
	Use:   "list",
	Short: "List stored job listings",
	RunE:  runHoardList,
}

func init() {
	hoardCmd.AddCommand(hoardListCmd)
	rootCmd.AddCommand(hoardCmd)
}

func runHoardList(cmd *cobra.Command, _ []string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	store := hoard.NewStore(cfg.HoardPath, nil)
	h, err := store.Load()
	if err != nil {
		return err
	}

	if len(h.JobListings) == 0 {
		fmt.Fprintln(cmd.OutOrStdout(), "hoard is empty")
		return nil
	}
	for _, note := range h.JobListings {
		fmt.Fprintf(cmd.OutOrStdout(), "%s - %s (%s) resumes=%d coverLetters=%d\n",
			note.Company, note.JobTitle, note.Location, len(note.HTML), len(note.CoverLetter))
	}
	return nil
}
