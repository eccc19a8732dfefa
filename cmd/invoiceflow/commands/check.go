package commands

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(checkCmd)
}

var checkCmd = &cobra.Command{
	Use:   "check",
	Short: "Lists archived invoices whose amount still needs manual review.",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}

		files, err := newArchiveManager(cfg).MissingAmount()
		if err != nil {
			return err
		}
		if len(files) == 0 {
			fmt.Println("No documents require manual review.")
			return nil
		}

		t := table.NewWriter()
		t.SetOutputMirror(os.Stdout)
		t.AppendHeader(table.Row{"Document"})
		for _, f := range files {
			t.AppendRow(table.Row{filepath.Base(f)})
		}
		t.AppendFooter(table.Row{fmt.Sprintf("%d total", len(files))})
		t.SetStyle(table.StyleRounded)
		t.Render()
		return nil
	},
}
