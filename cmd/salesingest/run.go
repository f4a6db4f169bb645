package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/rpattn/salesingest/internal/ingestion"
)

var skipFetch bool

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Fetch the drive folder and ingest every new file",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		a, err := newApp(ctx, appOptions{withDrive: !skipFetch})
		if err != nil {
			return err
		}
		defer a.Close()

		runLog, err := a.ingestion.Run(ctx, ingestion.RunOptions{SkipFetch: skipFetch})
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		for _, line := range runLog.Lines() {
			fmt.Fprintln(out, line)
		}
		return nil
	},
}

func init() {
	runCmd.Flags().BoolVar(&skipFetch, "skip-fetch", false, "ingest the local directory without downloading from drive")
}
