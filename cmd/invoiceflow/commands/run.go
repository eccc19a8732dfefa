package commands

import (
	"fmt"
	"log/slog"
	"os"
	"time"

	"invoiceflow/lib/archive"
	"invoiceflow/lib/browser"
	"invoiceflow/lib/notify"
	"invoiceflow/lib/pdfutil"
	"invoiceflow/lib/runstore"
	"invoiceflow/lib/scrapers/storefront"
	"invoiceflow/services/pipeline"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
)

var (
	runYear         *int
	runDownloadOnly *bool
	runProcessOnly  *bool
)

func init() {
	rootCmd.AddCommand(runCmd)
	runYear = runCmd.Flags().Int("year", 0, "Restrict acquisition to one order year, 0 means all years.")
	runDownloadOnly = runCmd.Flags().Bool("download-only", false, "Stop after acquiring invoices, skip processing.")
	runProcessOnly = runCmd.Flags().Bool("process-only", false, "Skip acquisition, only process already downloaded invoices.")
}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Downloads new invoices and files them for bookkeeping.",
	RunE: func(cmd *cobra.Command, args []string) error {
		if *runDownloadOnly && *runProcessOnly {
			return fmt.Errorf("--download-only and --process-only are mutually exclusive")
		}
		mode := pipeline.ModeFull
		if *runDownloadOnly {
			mode = pipeline.ModeDownloadOnly
		}
		if *runProcessOnly {
			mode = pipeline.ModeProcessOnly
		}

		cfg, err := loadConfig()
		if err != nil {
			return err
		}

		opts := pipeline.Options{
			Signal: storefront.ConsoleSignal{},
			Resolver: storefront.Resolver{
				Dir:       cfg.Download.Directory,
				GraceWait: time.Duration(*cfg.Download.GraceSeconds * float64(time.Second)),
				PaceDelay: time.Duration(*cfg.Download.DelaySeconds * float64(time.Second)),
			},
			Archive:  newArchiveManager(cfg),
			Extract:  pdfutil.ExtractAmount,
			Notifier: newNotifier(cfg),
			BaseUrl:  cfg.Browser.BaseUrl,
			Year:     *runYear,
		}

		// the ledger opens before the browsing agent so a ledger
		// failure cannot leak an unclosed browsing context
		if cfg.Database.File != "" {
			db, err := cfg.Database.OpenDB()
			if err != nil {
				return fmt.Errorf("failed to open the run ledger: %w", err)
			}
			defer db.Close()
			store, err := runstore.NewStore(db)
			if err != nil {
				return fmt.Errorf("failed to initialize the run ledger: %w", err)
			}
			opts.Store = &store
		}

		if mode != pipeline.ModeProcessOnly {
			agent, err := browser.NewHttpAgent(browser.HttpAgentOptions{
				BaseUrl:     cfg.Browser.BaseUrl,
				UserAgent:   cfg.Browser.UserAgent,
				Timeout:     time.Duration(cfg.Browser.TimeoutSeconds) * time.Second,
				DownloadDir: cfg.Download.Directory,
			})
			if err != nil {
				return fmt.Errorf("failed to start the browsing agent: %w", err)
			}
			opts.Agent = agent
		}

		stats, ok := pipeline.NewService(opts).Run(cmd.Context(), mode)
		printSummary(stats, ok)
		if !ok {
			return fmt.Errorf("the run finished with failures")
		}
		return nil
	},
}

func newArchiveManager(cfg Config) archive.Manager {
	return archive.Manager{
		DownloadDir:   cfg.Download.Directory,
		ArchiveDir:    cfg.Archive.Directory,
		ReviewDir:     cfg.Archive.ReviewDirectory,
		MaxPartialAge: time.Duration(cfg.Archive.CleanupMaxAgeHours) * time.Hour,
	}
}

func newNotifier(cfg Config) notify.Notifier {
	var notifiers []notify.Notifier
	if cfg.Notify.Smtp.Server != "" {
		notifiers = append(notifiers, notify.NewEmailNotifier(cfg.Notify.Smtp))
	}
	if cfg.Notify.WebhookUrl != "" {
		notifiers = append(notifiers, notify.NewWebhookNotifier(cfg.Notify.WebhookUrl))
	}
	switch len(notifiers) {
	case 0:
		slog.Debug("no notification channel configured")
		return notify.NoopNotifier{}
	case 1:
		return notifiers[0]
	default:
		return notify.NewMultiNotifier(notifiers...)
	}
}

func printSummary(stats pipeline.RunStatistics, ok bool) {
	t := table.NewWriter()
	t.SetOutputMirror(os.Stdout)
	t.AppendHeader(table.Row{"Metric", "Value"})
	t.AppendRows([]table.Row{
		{"Downloads succeeded", stats.DownloadsSucceeded},
		{"Downloads failed", stats.DownloadsFailed},
		{"Documents processed", stats.ItemsProcessed},
		{"Amounts recognized", stats.AmountsRecognized},
		{"Missing amount", stats.ItemsMissingAmount},
		{"Errors", stats.Errors},
		{"Duration", stats.Duration().Round(time.Second).String()},
	})
	t.AppendFooter(table.Row{"Success", ok})
	t.SetStyle(table.StyleRounded)
	t.Render()
}
