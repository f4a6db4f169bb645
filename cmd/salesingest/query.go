package main

import (
	"fmt"
	"io"
	"os"

	"github.com/jedib0t/go-pretty/table"
	"github.com/jedib0t/go-pretty/text"
	"github.com/spf13/cobra"

	"github.com/rpattn/salesingest/internal/query"
)

const nullValue = "NULL"

var (
	queryFormat string
	queryOut    string
)

var queryCmd = &cobra.Command{
	Use:   "query <statement>",
	Short: "Run a SQL statement against the warehouse",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		a, err := newApp(ctx, appOptions{})
		if err != nil {
			return err
		}
		defer a.Close()

		result, err := a.query.Execute(ctx, args[0])
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		if queryOut != "" {
			f, err := os.Create(queryOut)
			if err != nil {
				return fmt.Errorf("failed to create %s: %w", queryOut, err)
			}
			defer f.Close()
			out = f
		}

		switch queryFormat {
		case "table":
			writeResultTable(out, result)
			return nil
		case "csv":
			return result.WriteCSV(out)
		case "xlsx":
			if queryOut == "" {
				return fmt.Errorf("--out is required for xlsx output")
			}
			return result.WriteXLSX(out)
		default:
			return fmt.Errorf("unknown format %q", queryFormat)
		}
	},
}

func init() {
	queryCmd.Flags().StringVar(&queryFormat, "format", "table", "output format: table, csv or xlsx")
	queryCmd.Flags().StringVar(&queryOut, "out", "", "write the result to this file")
}

func writeResultTable(w io.Writer, result query.ResultSet) {
	if len(result.Columns) == 0 {
		fmt.Fprintln(w, result.Command)
		return
	}

	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.Style().Format.Header = text.FormatDefault

	header := make(table.Row, len(result.Columns))
	for i, name := range result.Columns {
		header[i] = name
	}
	t.AppendHeader(header)

	for _, row := range result.Rows {
		// go-pretty does not expect nil values.
		out := make(table.Row, len(row))
		for i, value := range row {
			if value == nil {
				value = nullValue
			}
			out[i] = value
		}
		t.AppendRow(out)
	}
	t.Render()
	fmt.Fprintf(w, "(%d rows)\n", len(result.Rows))
}
