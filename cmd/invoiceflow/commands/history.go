package commands

import (
	"fmt"
	"os"
	"time"

	"invoiceflow/lib/runstore"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
)

var historyLimit *int

func init() {
	rootCmd.AddCommand(historyCmd)
	historyLimit = historyCmd.Flags().Int("limit", 20, "Maximum number of runs to show.")
}

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Shows the summaries of past runs, newest first.",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		if cfg.Database.File == "" {
			return fmt.Errorf("no database configured, run history is not being recorded")
		}

		db, err := cfg.Database.OpenDB()
		if err != nil {
			return err
		}
		defer db.Close()
		store, err := runstore.NewStore(db)
		if err != nil {
			return err
		}

		runs, err := store.List(cmd.Context(), *historyLimit)
		if err != nil {
			return err
		}
		if len(runs) == 0 {
			fmt.Println("No runs recorded yet.")
			return nil
		}

		t := table.NewWriter()
		t.SetOutputMirror(os.Stdout)
		t.AppendHeader(table.Row{"Started", "Duration", "OK", "Downloaded", "Failed", "Processed", "Recognized", "Review", "Errors"})
		for _, run := range runs {
			t.AppendRow(table.Row{
				run.StartedAt.Local().Format("2006-01-02 15:04"),
				run.FinishedAt.Sub(run.StartedAt).Round(time.Second).String(),
				run.Success,
				run.DownloadsSucceeded,
				run.DownloadsFailed,
				run.ItemsProcessed,
				run.AmountsRecognized,
				run.ItemsMissingAmount,
				run.Errors,
			})
		}
		t.SetStyle(table.StyleRounded)
		t.Render()
		return nil
	},
}
