package commands

import (
	"fmt"
	"os"

	"invoiceflow/lib/configutil"
	"invoiceflow/lib/notify"
	"invoiceflow/lib/telemetry"
)

type DownloadConfig struct {
	Directory string `json:"directory"`
	// DelaySeconds paces successive invoice downloads. an explicit 0
	// disables pacing, absence selects the default of 2.
	DelaySeconds *float64 `json:"delay_seconds"`
	// GraceSeconds is the wait for the download side effect to land.
	// an explicit 0 skips the wait, absence selects the default of 3.
	GraceSeconds *float64 `json:"grace_seconds"`
}

type BrowserConfig struct {
	BaseUrl   string `json:"base_url"`
	UserAgent string `json:"user_agent"`
	// 0 selects the default of 30.
	TimeoutSeconds int `json:"timeout_seconds"`
}

type ArchiveConfig struct {
	Directory       string `json:"directory"`
	ReviewDirectory string `json:"review_directory"`
	// 0 selects the default of 24.
	CleanupMaxAgeHours int `json:"cleanup_max_age_hours"`
}

type NotifyConfig struct {
	Smtp       notify.SmtpConfig `json:"smtp"`
	WebhookUrl string            `json:"webhook_url"`
}

type LogConfig struct {
	Verbose bool `json:"verbose"`
}

type Config struct {
	Download DownloadConfig      `json:"download"`
	Browser  BrowserConfig       `json:"browser"`
	Archive  ArchiveConfig       `json:"archive"`
	Notify   NotifyConfig        `json:"notify"`
	Database configutil.Database `json:"database"`
	Log      LogConfig           `json:"log"`
}

func (c *Config) validate() error {
	if c.Download.Directory == "" {
		return fmt.Errorf("download.directory is required")
	}
	if c.Browser.BaseUrl == "" {
		return fmt.Errorf("browser.base_url is required")
	}
	if c.Archive.Directory == "" {
		return fmt.Errorf("archive.directory is required")
	}
	if c.Archive.ReviewDirectory == "" {
		return fmt.Errorf("archive.review_directory is required")
	}

	if c.Download.DelaySeconds == nil {
		delay := 2.0
		c.Download.DelaySeconds = &delay
	}
	if c.Download.GraceSeconds == nil {
		grace := 3.0
		c.Download.GraceSeconds = &grace
	}
	if c.Browser.TimeoutSeconds == 0 {
		c.Browser.TimeoutSeconds = 30
	}
	if c.Archive.CleanupMaxAgeHours == 0 {
		c.Archive.CleanupMaxAgeHours = 24
	}
	return nil
}

func loadConfig() (Config, error) {
	config, err := configutil.ReadConfig[Config](*configPath)
	if os.IsNotExist(err) {
		return Config{}, fmt.Errorf("configuration file not found: %s", *configPath)
	}
	if err != nil {
		return Config{}, err
	}
	err = config.validate()
	if err != nil {
		return Config{}, fmt.Errorf("invalid configuration: %w", err)
	}
	if config.Log.Verbose && !*verbose {
		telemetry.InitSlog(true)
	}
	return config, nil
}
