package main

import (
	"time"

	"github.com/jedib0t/go-pretty/table"
	"github.com/jedib0t/go-pretty/text"
	"github.com/spf13/cobra"
)

var ledgerCmd = &cobra.Command{
	Use:   "ledger",
	Short: "Inspect the ingestion ledger",
}

var ledgerListCmd = &cobra.Command{
	Use:   "list",
	Short: "List the files already ingested",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		a, err := newApp(ctx, appOptions{})
		if err != nil {
			return err
		}
		defer a.Close()

		entries, err := a.ingestion.Ledger(ctx)
		if err != nil {
			return err
		}

		t := table.NewWriter()
		t.SetOutputMirror(cmd.OutOrStdout())
		t.Style().Format.Header = text.FormatDefault
		t.AppendHeader(table.Row{"nome_arquivo", "horario_processamento"})
		for _, entry := range entries {
			t.AppendRow(table.Row{entry.Filename, entry.ProcessedAt.Format(time.RFC3339)})
		}
		t.Render()
		return nil
	},
}

func init() {
	ledgerCmd.AddCommand(ledgerListCmd)
}
