package archive

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"
)

const canonicalPrefix = "Amazon_Rechnung_"

var partialSuffixes = []string{".crdownload", ".part", ".tmp"}

// Manager moves acquired invoices from the download directory into
// their bookkeeping location based on the extracted amount.
type Manager struct {
	DownloadDir string
	ArchiveDir  string
	// ReviewDir receives documents whose amount could not be read.
	ReviewDir string
	// MaxPartialAge is how old a leftover partial-download artifact
	// must be before Cleanup removes it.
	MaxPartialAge time.Duration
}

// FindUnprocessed lists the acquired invoices still sitting in the
// download directory, oldest name first.
func (m Manager) FindUnprocessed() ([]string, error) {
	paths, err := filepath.Glob(filepath.Join(m.DownloadDir, canonicalPrefix+"*.pdf"))
	if err != nil {
		return nil, err
	}
	sort.Strings(paths)
	return paths, nil
}

// Archive moves one invoice to its archival location. documents with a
// recognized amount are filed under the archive directory, the rest go
// to the review directory for manual inspection.
func (m Manager) Archive(path string, amount float64) (string, error) {
	orderId := orderIdFromName(filepath.Base(path))
	date := time.Now().Format("2006-01-02")

	var dir, name string
	if amount > 0 {
		dir = m.ArchiveDir
		name = fmt.Sprintf("%s_Amazon_%sEUR_%s.pdf", date, FormatAmount(amount), orderId)
	} else {
		dir = m.ReviewDir
		name = fmt.Sprintf("%s_Amazon_PRUEFEN_%s.pdf", date, orderId)
	}

	err := os.MkdirAll(dir, 0755)
	if err != nil {
		return "", err
	}
	dest := filepath.Join(dir, name)
	err = os.Rename(path, dest)
	if err != nil {
		return "", err
	}
	return dest, nil
}

// MissingAmount lists the archived documents that still need a manual
// amount review.
func (m Manager) MissingAmount() ([]string, error) {
	paths, err := filepath.Glob(filepath.Join(m.ReviewDir, "*.pdf"))
	if err != nil {
		return nil, err
	}
	sort.Strings(paths)
	return paths, nil
}

// Cleanup removes stale partial-download artifacts the browser left
// behind in the download directory.
func (m Manager) Cleanup() error {
	entries, err := os.ReadDir(m.DownloadDir)
	if err != nil {
		return err
	}

	cutoff := time.Now().Add(-m.MaxPartialAge)
	for _, entry := range entries {
		if entry.IsDir() || !isPartial(entry.Name()) {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			continue
		}
		if info.ModTime().After(cutoff) {
			continue
		}

		path := filepath.Join(m.DownloadDir, entry.Name())
		err = os.Remove(path)
		if err != nil {
			return err
		}
		slog.Debug("removed stale partial download", "path", path)
	}
	return nil
}

// FormatAmount renders an amount the way it appears on the invoice,
// with a decimal comma.
func FormatAmount(amount float64) string {
	return strings.Replace(strconv.FormatFloat(amount, 'f', 2, 64), ".", ",", 1)
}

func orderIdFromName(name string) string {
	name = strings.TrimSuffix(name, filepath.Ext(name))
	return strings.TrimPrefix(name, canonicalPrefix)
}

func isPartial(name string) bool {
	for _, suffix := range partialSuffixes {
		if strings.HasSuffix(name, suffix) {
			return true
		}
	}
	return false
}
