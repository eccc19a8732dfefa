package commands

import (
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, dir, contents string) {
	t.Helper()
	path := filepath.Join(dir, "invoiceflow.json5")
	require.NoError(t, os.WriteFile(path, []byte(contents), 0644))

	previous := *configPath
	*configPath = path
	t.Cleanup(func() { *configPath = previous })
}

func TestValidateKeepsExplicitZeroDelay(t *testing.T) {
	zero := 0.0
	cfg := Config{
		Download: DownloadConfig{Directory: "downloads", DelaySeconds: &zero},
		Browser:  BrowserConfig{BaseUrl: "https://www.amazon.de"},
		Archive:  ArchiveConfig{Directory: "archive", ReviewDirectory: "review"},
	}

	require.NoError(t, cfg.validate())
	require.Equal(t, 0.0, *cfg.Download.DelaySeconds)
	// absent values still get defaults
	require.Equal(t, 3.0, *cfg.Download.GraceSeconds)
	require.Equal(t, 30, cfg.Browser.TimeoutSeconds)
}

func TestLoadConfigZeroDelayFromFile(t *testing.T) {
	base := t.TempDir()
	writeConfig(t, base, fmt.Sprintf(`{
	download: { directory: %q, delay_seconds: 0 },
	browser: { base_url: "https://www.amazon.de" },
	archive: { directory: %q, review_directory: %q },
}`,
		filepath.Join(base, "downloads"),
		filepath.Join(base, "archive"),
		filepath.Join(base, "review"),
	))

	cfg, err := loadConfig()
	require.NoError(t, err)
	require.Equal(t, 0.0, *cfg.Download.DelaySeconds)
}

func TestValidateDefaultsAbsentDelay(t *testing.T) {
	cfg := Config{
		Download: DownloadConfig{Directory: "downloads"},
		Browser:  BrowserConfig{BaseUrl: "https://www.amazon.de"},
		Archive:  ArchiveConfig{Directory: "archive", ReviewDirectory: "review"},
	}

	require.NoError(t, cfg.validate())
	require.Equal(t, 2.0, *cfg.Download.DelaySeconds)
}

func TestRunLedgerFailureLeavesAgentUnstarted(t *testing.T) {
	base := t.TempDir()
	downloadDir := filepath.Join(base, "downloads")

	// a plain file where the ledger wants a directory
	blocker := filepath.Join(base, "blocker")
	require.NoError(t, os.WriteFile(blocker, []byte("x"), 0644))

	writeConfig(t, base, fmt.Sprintf(`{
	download: { directory: %q },
	browser: { base_url: "https://www.amazon.de" },
	archive: { directory: %q, review_directory: %q },
	database: { file: %q },
}`,
		downloadDir,
		filepath.Join(base, "archive"),
		filepath.Join(base, "review"),
		filepath.Join(blocker, "ledger.db"),
	))

	err := runCmd.RunE(runCmd, nil)
	require.ErrorContains(t, err, "run ledger")

	// the browsing agent creates the download directory on startup,
	// so it must not exist when the ledger fails first
	require.NoDirExists(t, downloadDir)
}
