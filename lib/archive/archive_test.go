package archive

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func setup(t *testing.T) Manager {
	t.Helper()
	base := t.TempDir()
	return Manager{
		DownloadDir:   filepath.Join(base, "downloads"),
		ArchiveDir:    filepath.Join(base, "archive"),
		ReviewDir:     filepath.Join(base, "review"),
		MaxPartialAge: time.Hour,
	}
}

func write(t *testing.T, path string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
	require.NoError(t, os.WriteFile(path, []byte("%PDF-1.4"), 0644))
}

func TestFindUnprocessed(t *testing.T) {
	m := setup(t)
	write(t, filepath.Join(m.DownloadDir, "Amazon_Rechnung_B-2.pdf"))
	write(t, filepath.Join(m.DownloadDir, "Amazon_Rechnung_A-1.pdf"))
	write(t, filepath.Join(m.DownloadDir, "unrelated.pdf"))
	write(t, filepath.Join(m.DownloadDir, "Amazon_Rechnung_C-3.crdownload"))

	paths, err := m.FindUnprocessed()
	require.NoError(t, err)
	require.Len(t, paths, 2)
	require.Equal(t, "Amazon_Rechnung_A-1.pdf", filepath.Base(paths[0]))
	require.Equal(t, "Amazon_Rechnung_B-2.pdf", filepath.Base(paths[1]))
}

func TestArchiveWithAmount(t *testing.T) {
	m := setup(t)
	src := filepath.Join(m.DownloadDir, "Amazon_Rechnung_A-1.pdf")
	write(t, src)

	dest, err := m.Archive(src, 49.99)
	require.NoError(t, err)
	require.FileExists(t, dest)
	require.NoFileExists(t, src)

	date := time.Now().Format("2006-01-02")
	require.Equal(t, date+"_Amazon_49,99EUR_A-1.pdf", filepath.Base(dest))
	require.Equal(t, m.ArchiveDir, filepath.Dir(dest))
}

func TestArchiveWithoutAmount(t *testing.T) {
	m := setup(t)
	src := filepath.Join(m.DownloadDir, "Amazon_Rechnung_A-1.pdf")
	write(t, src)

	dest, err := m.Archive(src, 0)
	require.NoError(t, err)
	require.Equal(t, m.ReviewDir, filepath.Dir(dest))

	review, err := m.MissingAmount()
	require.NoError(t, err)
	require.Len(t, review, 1)
	require.Equal(t, dest, review[0])
}

func TestCleanup(t *testing.T) {
	m := setup(t)
	stale := filepath.Join(m.DownloadDir, "invoice.pdf.crdownload")
	fresh := filepath.Join(m.DownloadDir, "inflight.part")
	keep := filepath.Join(m.DownloadDir, "Amazon_Rechnung_A-1.pdf")
	write(t, stale)
	write(t, fresh)
	write(t, keep)

	old := time.Now().Add(-time.Hour * 2)
	require.NoError(t, os.Chtimes(stale, old, old))

	require.NoError(t, m.Cleanup())
	require.NoFileExists(t, stale)
	require.FileExists(t, fresh)
	require.FileExists(t, keep)
}

func TestFormatAmount(t *testing.T) {
	require.Equal(t, "1234,50", FormatAmount(1234.5))
	require.Equal(t, "0,99", FormatAmount(0.99))
}
