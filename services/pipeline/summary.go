package pipeline

import (
	"fmt"
	"strings"
	"time"
)

func summarySubject(success bool) string {
	if success {
		return "Invoice run completed"
	}
	return "Invoice run finished with failures"
}

// RenderSummary produces the plain-text summary block that is logged
// and handed to the notification channel.
func RenderSummary(stats RunStatistics) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Downloads succeeded:  %d\n", stats.DownloadsSucceeded)
	fmt.Fprintf(&b, "Downloads failed:     %d\n", stats.DownloadsFailed)
	fmt.Fprintf(&b, "Documents processed:  %d\n", stats.ItemsProcessed)
	fmt.Fprintf(&b, "Amounts recognized:   %d\n", stats.AmountsRecognized)
	fmt.Fprintf(&b, "Missing amount:       %d\n", stats.ItemsMissingAmount)
	fmt.Fprintf(&b, "Errors:               %d\n", stats.Errors)
	fmt.Fprintf(&b, "Duration:             %s", stats.Duration().Round(time.Second))
	if stats.ItemsMissingAmount > 0 {
		fmt.Fprintf(&b, "\n\n%d document(s) require manual review.", stats.ItemsMissingAmount)
	}
	return b.String()
}
