package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"time"

	"invoiceflow/lib/archive"
	"invoiceflow/lib/browser"
	"invoiceflow/lib/notify"
	"invoiceflow/lib/runstore"
	"invoiceflow/lib/scrapers/storefront"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

var tracer = otel.Tracer("services/pipeline")

type Mode int

const (
	ModeFull Mode = iota
	ModeDownloadOnly
	ModeProcessOnly
)

// RunStatistics is owned by the orchestrator for the duration of one
// run and returned when it completes. it is never shared across runs.
type RunStatistics struct {
	DownloadsSucceeded int
	DownloadsFailed    int
	ItemsProcessed     int
	AmountsRecognized  int
	ItemsMissingAmount int
	Errors             int
	StartTime          time.Time
	EndTime            time.Time
}

func (s RunStatistics) Duration() time.Duration {
	return s.EndTime.Sub(s.StartTime)
}

// ExtractAmount reads the invoice total out of a document, returning
// (0, nil) when the document is readable but carries no amount.
type ExtractAmount func(path string) (float64, error)

type Options struct {
	// Agent may be nil when only the processing stages run.
	Agent browser.Agent
	// Signal defaults to the console signal when unset.
	Signal   storefront.OperatorSignal
	Waits    storefront.SessionWaits
	Resolver storefront.Resolver
	Archive  archive.Manager
	Extract  ExtractAmount
	// Notifier defaults to a no-op when unset.
	Notifier notify.Notifier
	// Store, when set, receives the summary of every completed run.
	Store   *runstore.Store
	BaseUrl string
	// Year restricts acquisition to one order year, 0 means all.
	Year int
}

// Service sequences acquisition, processing, cleanup and notification.
// stages are isolated: a failing stage is logged and counted, later
// stages still run.
type Service struct {
	opts Options
}

func NewService(opts Options) Service {
	if opts.Notifier == nil {
		opts.Notifier = notify.NoopNotifier{}
	}
	if opts.Signal == nil {
		opts.Signal = storefront.ConsoleSignal{}
	}
	return Service{opts: opts}
}

// Run executes the pipeline. the returned flag reports run-level
// success: true iff neither acquisition nor processing failed at the
// stage level. cleanup and notification failures never flip it.
func (s Service) Run(ctx context.Context, mode Mode) (RunStatistics, bool) {
	ctx, span := tracer.Start(ctx, "service:Run")
	defer span.End()
	span.SetAttributes(attribute.Int("mode", int(mode)))

	stats := RunStatistics{StartTime: time.Now()}
	success := true

	if mode != ModeProcessOnly {
		err := s.acquire(ctx, &stats)
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, "acquisition stage failed")
			slog.ErrorContext(ctx, "acquisition stage failed", "err", err)
			stats.Errors++
			success = false
		}
	}

	if mode != ModeDownloadOnly {
		err := s.process(ctx, &stats)
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, "processing stage failed")
			slog.ErrorContext(ctx, "processing stage failed", "err", err)
			stats.Errors++
			success = false
		}
	}

	if mode == ModeFull {
		err := s.opts.Archive.Cleanup()
		if err != nil {
			slog.WarnContext(ctx, "cleanup finished with a warning", "err", err)
		}
	}

	stats.EndTime = time.Now()

	if mode == ModeFull {
		err := s.opts.Notifier.Send(ctx, summarySubject(success), RenderSummary(stats))
		if err != nil {
			slog.WarnContext(ctx, "failed to deliver the summary notification", "err", err)
		}
	}

	slog.InfoContext(ctx, "run finished",
		"success", success,
		"downloads_succeeded", stats.DownloadsSucceeded,
		"downloads_failed", stats.DownloadsFailed,
		"items_processed", stats.ItemsProcessed,
		"amounts_recognized", stats.AmountsRecognized,
		"items_missing_amount", stats.ItemsMissingAmount,
		"errors", stats.Errors,
		"duration", stats.Duration().Round(time.Second).String(),
	)
	if stats.ItemsMissingAmount > 0 {
		slog.WarnContext(ctx, "documents require manual review", "count", stats.ItemsMissingAmount)
	}

	if s.opts.Store != nil {
		err := s.opts.Store.Push(ctx, runstore.Run{
			StartedAt:          stats.StartTime,
			FinishedAt:         stats.EndTime,
			Success:            success,
			DownloadsSucceeded: stats.DownloadsSucceeded,
			DownloadsFailed:    stats.DownloadsFailed,
			ItemsProcessed:     stats.ItemsProcessed,
			AmountsRecognized:  stats.AmountsRecognized,
			ItemsMissingAmount: stats.ItemsMissingAmount,
			Errors:             stats.Errors,
		})
		if err != nil {
			slog.WarnContext(ctx, "failed to record the run in the ledger", "err", err)
		}
	}

	return stats, success
}

// acquire runs session gate, catalog scrape and invoice resolution.
// the browsing context is released on every exit path.
func (s Service) acquire(ctx context.Context, stats *RunStatistics) error {
	ctx, span := tracer.Start(ctx, "service:acquire")
	defer span.End()

	agent := s.opts.Agent
	if agent == nil {
		return fmt.Errorf("no browsing agent configured")
	}
	defer func() {
		if err := agent.Close(); err != nil {
			slog.WarnContext(ctx, "failed to release the browsing context", "err", err)
		}
	}()

	err := storefront.EnsureAuthenticated(ctx, agent, s.opts.BaseUrl, s.opts.Signal, s.opts.Waits)
	if err != nil {
		return err
	}

	records, err := storefront.ScrapeOrders(ctx, agent, s.opts.BaseUrl, s.opts.Year)
	if err != nil {
		return err
	}
	if len(records) == 0 {
		slog.InfoContext(ctx, "no orders with invoices found")
		return nil
	}
	slog.InfoContext(ctx, "resolving invoices", "count", len(records))

	for i, record := range records {
		outcome := s.opts.Resolver.Resolve(ctx, agent, record)
		if outcome.Status == storefront.StatusFailed {
			stats.DownloadsFailed++
		} else {
			stats.DownloadsSucceeded++
		}
		slog.InfoContext(ctx, "resolved invoice",
			"order_id", outcome.OrderID,
			"status", string(outcome.Status),
			"progress", fmt.Sprintf("%d/%d", i+1, len(records)),
		)

		if i < len(records)-1 {
			if err := s.opts.Resolver.Pause(ctx); err != nil {
				return err
			}
		}
	}
	return ctx.Err()
}

// process extracts the amount of every newly acquired document and
// files it. one bad document never aborts the batch.
func (s Service) process(ctx context.Context, stats *RunStatistics) error {
	ctx, span := tracer.Start(ctx, "service:process")
	defer span.End()

	files, err := s.opts.Archive.FindUnprocessed()
	if err != nil {
		return err
	}
	if len(files) == 0 {
		slog.InfoContext(ctx, "no new documents to process")
		return nil
	}
	slog.InfoContext(ctx, "processing documents", "count", len(files))

	for _, path := range files {
		if err := ctx.Err(); err != nil {
			return err
		}

		amount, err := s.opts.Extract(path)
		if err != nil {
			slog.ErrorContext(ctx, "failed to read document", "path", path, "err", err)
			stats.Errors++
			continue
		}

		dest, err := s.opts.Archive.Archive(path, amount)
		if err != nil {
			slog.ErrorContext(ctx, "failed to archive document", "path", path, "err", err)
			stats.Errors++
			continue
		}

		stats.ItemsProcessed++
		if amount > 0 {
			stats.AmountsRecognized++
		} else {
			stats.ItemsMissingAmount++
			slog.WarnContext(ctx, "no amount recognized", "path", filepath.Base(path))
		}
		slog.InfoContext(ctx, "processed document",
			"from", filepath.Base(path),
			"to", filepath.Base(dest),
		)
	}
	return nil
}
