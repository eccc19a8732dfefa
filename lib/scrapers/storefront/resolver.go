package storefront

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"invoiceflow/lib/browser"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

var ErrDownloadNotFound = errors.New("no downloaded pdf appeared in the download directory")

type OutcomeStatus string

const (
	StatusDownloaded     OutcomeStatus = "downloaded"
	StatusAlreadyPresent OutcomeStatus = "already_present"
	StatusFailed         OutcomeStatus = "failed"
)

// DownloadOutcome is the result of resolving one order record.
type DownloadOutcome struct {
	OrderID string
	Status  OutcomeStatus
	Path    string
}

// CanonicalName derives the on-disk invoice filename from the order id.
// it is the sole de-duplication key across runs.
func CanonicalName(orderId string) string {
	return fmt.Sprintf("Amazon_Rechnung_%s.pdf", orderId)
}

// Resolver materializes invoice pdfs under their canonical names.
//
// resolutions must run strictly one at a time: the newest-file matching
// heuristic is ambiguous when several downloads land concurrently.
type Resolver struct {
	// Dir is the browser's download directory.
	Dir string
	// GraceWait is how long to wait for the asynchronous download side
	// effect before scanning the directory.
	GraceWait time.Duration
	// PaceDelay is the pause between successive resolutions, keeping
	// request cadence below the storefront's abuse defenses.
	PaceDelay time.Duration
}

// Resolve downloads the invoice for one record. if the canonical file
// already exists, neither the agent nor the filesystem is touched.
func (r Resolver) Resolve(ctx context.Context, agent browser.Agent, record OrderRecord) DownloadOutcome {
	ctx, span := tracer.Start(ctx, "Resolve")
	defer span.End()
	span.SetAttributes(attribute.String("order_id", record.OrderID))

	canonical := filepath.Join(r.Dir, CanonicalName(record.OrderID))
	if _, err := os.Stat(canonical); err == nil {
		slog.DebugContext(ctx, "invoice already present", "order_id", record.OrderID)
		return DownloadOutcome{
			OrderID: record.OrderID,
			Status:  StatusAlreadyPresent,
			Path:    canonical,
		}
	}

	err := agent.Navigate(ctx, record.InvoiceURL)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to open invoice link")
		slog.ErrorContext(ctx, "failed to open invoice link", "order_id", record.OrderID, "err", err)
		return DownloadOutcome{OrderID: record.OrderID, Status: StatusFailed}
	}

	// the download side effect is out of our hands, give it a moment to land
	if err := sleepCtx(ctx, r.GraceWait); err != nil {
		return DownloadOutcome{OrderID: record.OrderID, Status: StatusFailed}
	}

	path, err := r.claimNewestPdf(canonical)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "download not found")
		slog.ErrorContext(ctx, "download not found", "order_id", record.OrderID, "err", err)
		return DownloadOutcome{OrderID: record.OrderID, Status: StatusFailed}
	}

	slog.InfoContext(ctx, "invoice downloaded", "order_id", record.OrderID, "path", path)
	return DownloadOutcome{
		OrderID: record.OrderID,
		Status:  StatusDownloaded,
		Path:    path,
	}
}

// Pause applies the configured pacing delay, honoring cancellation.
func (r Resolver) Pause(ctx context.Context) error {
	return sleepCtx(ctx, r.PaceDelay)
}

// claimNewestPdf renames the most recently modified pdf in the download
// directory onto the canonical path. os.Rename within one directory is
// atomic, an interrupt can never leave a half-renamed file behind.
func (r Resolver) claimNewestPdf(canonical string) (string, error) {
	if _, err := os.Stat(canonical); err == nil {
		// the storefront downloaded straight to the canonical name
		return canonical, nil
	}

	newest, err := newestPdf(r.Dir)
	if err != nil {
		return "", err
	}
	err = os.Rename(newest, canonical)
	if err != nil {
		return "", err
	}
	return canonical, nil
}

func newestPdf(dir string) (string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return "", err
	}

	var newest string
	var newestMod time.Time
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(strings.ToLower(entry.Name()), ".pdf") {
			continue
		}
		// files already claimed for another order are not downloads
		if strings.HasPrefix(entry.Name(), "Amazon_Rechnung_") {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			continue
		}
		if newest == "" || info.ModTime().After(newestMod) {
			newest = filepath.Join(dir, entry.Name())
			newestMod = info.ModTime()
		}
	}

	if newest == "" {
		return "", ErrDownloadNotFound
	}
	return newest, nil
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
