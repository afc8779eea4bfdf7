package cfg

import (
	"cmp"
	"fmt"
	"time"

	"github.com/jessevdk/go-flags"
)

// Version is set at build time via -ldflags
var Version = "dev"

func GetVersion() string {
	return cmp.Or(Version, "unknown")
}

type rawCfg struct {
	// Persistence
	DBPath string `long:"db-path" env:"DB_PATH" default:"./gram-mirror.db" description:"Path to the SQLite database file"`

	// Application configuration
	CreatorsDir   string `long:"creators-dir" env:"CREATORS_DIR" default:"./creators" description:"Directory containing creator watch configuration files"`
	Port          string `long:"port" env:"PORT" default:"8080" description:"HTTP server port"`
	WorkerCount   int    `long:"worker-count" env:"WORKER_COUNT" default:"1" description:"Number of background workers for reconciliation passes"`
	CheckInterval int    `long:"check-interval" env:"CHECK_INTERVAL" default:"60" description:"Content check interval in seconds"`
	APIAccessKey  string `long:"api-key" env:"API_ACCESS_KEY" description:"API access key for authentication (optional)"`

	// Content source
	SourceBaseURL string   `long:"source-base-url" env:"SOURCE_BASE_URL" default:"https://source.local/api/v1" description:"Base URL of the content source API"`
	SourceTokens  []string `long:"source-token" env:"SOURCE_TOKENS" env-delim:"," description:"Authenticated source identity tokens, rotated round-robin (at least one required)" required:"true"`

	// Notification sink
	SinkBaseURL   string `long:"sink-base-url" env:"SINK_BASE_URL" default:"https://chat.local/api/v10" description:"Base URL of the notification sink API"`
	SinkToken     string `long:"sink-token" env:"SINK_TOKEN" description:"Bot token for the notification sink (required)" required:"true"`
	SinkFileLimit int64  `long:"sink-file-limit" env:"SINK_FILE_LIMIT" default:"8388608" description:"Attachment size ceiling in bytes"`

	// Application metadata
	UserAgent string `long:"user-agent" env:"USER_AGENT" default:"Gram Mirror/1.0" description:"User agent string for HTTP requests"`
	Timezone  string `long:"timezone" env:"TZ" default:"UTC" description:"Timezone for timestamps (e.g., UTC, America/New_York)"`
	Debug     bool   `long:"debug" env:"DEBUG" description:"Enable debug logging"`
}

var globalCfg *Cfg

func Load() (*Cfg, error) {
	var raw rawCfg

	parser := flags.NewParser(&raw, flags.Default)

	if _, err := parser.Parse(); err != nil {
		if flagsErr, ok := err.(*flags.Error); ok {
			if flagsErr.Type == flags.ErrHelp {
				return nil, nil
			}
		}
		return nil, fmt.Errorf("failed to parse configuration: %w", err)
	}

	cfg := &Cfg{
		DBPath:        raw.DBPath,
		CreatorsDir:   raw.CreatorsDir,
		Port:          raw.Port,
		WorkerCount:   raw.WorkerCount,
		CheckInterval: raw.CheckInterval,
		APIAccessKey:  raw.APIAccessKey,
		SourceBaseURL: raw.SourceBaseURL,
		SourceTokens:  raw.SourceTokens,
		SinkBaseURL:   raw.SinkBaseURL,
		SinkToken:     raw.SinkToken,
		SinkFileLimit: raw.SinkFileLimit,
		UserAgent:     raw.UserAgent,
		Timezone:      raw.Timezone,
		Debug:         raw.Debug,
		Version:       GetVersion(),
	}

	if len(cfg.SourceTokens) == 0 {
		return nil, fmt.Errorf("at least one source identity token is required")
	}

	if err := applyTimezone(cfg.Timezone); err != nil {
		fmt.Printf("Warning: Invalid timezone '%s', using system default: %v\n", cfg.Timezone, err)
	}

	globalCfg = cfg

	return cfg, nil
}

func Get() *Cfg {
	if globalCfg == nil {
		panic("configuration not loaded - call cfg.Load() first")
	}
	return globalCfg
}

func applyTimezone(timezone string) error {
	if timezone != "" {
		if loc, err := time.LoadLocation(timezone); err != nil {
			return err
		} else {
			time.Local = loc
		}
	}
	return nil
}
