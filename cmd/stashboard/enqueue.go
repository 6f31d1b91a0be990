package main

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/jonathan/stashboard/internal/config"
	"github.com/jonathan/stashboard/internal/queue"
)

var enqueueCmd = &cobra.Command{
	Use:   "enqueue <file>",
	Short: "Add a captured page to the job queue",
	Long:  `Add an HTML capture file to the durable job queue. A running serve process picks it up on its next poll.`,
	Args:  cobra.ExactArgs(1),
	RunE:  runEnqueue,
}

func init() {
	rootCmd.AddCommand(enqueueCmd)
}

func runEnqueue(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	if err := cfg.EnsureDirs(); err != nil {
		return err
	}

	content, err := os.ReadFile(args[0])
	if err != nil {
		return fmt.Errorf("failed to read capture file: %w", err)
	}

	// No processor: this process only writes the file, the server consumes it.
	q, err := queue.NewJobQueue(cfg.QueueDir, time.Duration(cfg.PollIntervalSeconds)*time.Second, nil, nil, nil)
	if err != nil {
		return err
	}
	jobID, err := q.Add(string(content))
	if err != nil {
		return err
	}

	fmt.Fprintf(cmd.OutOrStdout(), "queued job %s\n", jobID)
	return nil
}
