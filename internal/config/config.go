// Package config loads, defaults, and validates the JSON configuration
// file. Every top-level key maps onto a typed field so the rest of the
// codebase gets strong typing without manual key lookups.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/wagsendc/eas-listener/internal/filter"
)

// Config is the daemon's full runtime configuration, loaded from a single
// JSON document.
type Config struct {
	SharedStateDir        string
	DedicatedAlertLogFile string
	AlertLogFile          string
	RecordingDir          string

	ShouldLogAllAlerts bool
	ShouldRelay        bool
	ShouldRelayIcecast bool
	IcecastRelayURL    string
	ShouldRelayDASDEC  bool
	DASDECURL          string

	IcecastStreamURLs []string
	WatchedFIPS       map[string]struct{}
	Timezone          string

	MonitoringBindAddr           string
	MonitoringMaxLogEntries      int
	MonitoringActivityWindowSecs int

	EASRelayName string
	LogLevel     string

	Filters        []filter.Rule
	FilterWarnings []string
}

// rawConfig mirrors the JSON document's key names exactly (upper snake
// case), matching the format this daemon has always shipped config in.
type rawConfig struct {
	SharedStateDir        *string         `json:"SHARED_STATE_DIR"`
	DedicatedAlertLogFile *string         `json:"DEDICATED_ALERT_LOG_FILE"`
	AlertLogFile          *string         `json:"ALERT_LOG_FILE"`
	RecordingDir          *string         `json:"RECORDING_DIR"`
	ShouldLogAllAlerts    *bool           `json:"SHOULD_LOG_ALL_ALERTS"`
	ShouldRelay           *bool           `json:"SHOULD_RELAY"`
	ShouldRelayIcecast    *bool           `json:"SHOULD_RELAY_ICECAST"`
	IcecastRelay          *string         `json:"ICECAST_RELAY"`
	ShouldRelayDASDEC     *bool           `json:"SHOULD_RELAY_DASDEC"`
	DASDECURL             *string         `json:"DASDEC_URL"`
	IcecastStreamURLArray []string        `json:"ICECAST_STREAM_URL_ARRAY"`
	WatchedFIPS           *string         `json:"WATCHED_FIPS"`
	TZ                    *string         `json:"TZ"`
	MonitoringBindAddr    *string         `json:"MONITORING_BIND_ADDR"`
	MonitoringMaxLogs     *int            `json:"MONITORING_MAX_LOGS"`
	MonitoringWindowSecs  *int            `json:"MONITORING_ACTIVITY_WINDOW_SECS"`
	EASRelayName          *string         `json:"EAS_RELAY_NAME"`
	LogLevel              *string         `json:"RUST_LOG"`
	Filters               json.RawMessage `json:"filters"`
}

// Load reads and validates the JSON configuration file at path.
func Load(path string) (Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("read config file %s: %w", path, err)
	}

	var raw rawConfig
	if err := json.Unmarshal(b, &raw); err != nil {
		return Config{}, fmt.Errorf("parse config file %s: %w", path, err)
	}

	return fromRaw(raw)
}

func fromRaw(raw rawConfig) (Config, error) {
	var cfg Config

	if raw.SharedStateDir == nil || *raw.SharedStateDir == "" {
		return cfg, fmt.Errorf("SHARED_STATE_DIR must be set in config")
	}
	cfg.SharedStateDir = *raw.SharedStateDir

	if raw.DedicatedAlertLogFile == nil || *raw.DedicatedAlertLogFile == "" {
		return cfg, fmt.Errorf("DEDICATED_ALERT_LOG_FILE must be set in config")
	}
	cfg.DedicatedAlertLogFile = filepath.Join(cfg.SharedStateDir, *raw.DedicatedAlertLogFile)

	if raw.ShouldLogAllAlerts == nil {
		return cfg, fmt.Errorf("SHOULD_LOG_ALL_ALERTS must be true or false in config")
	}
	cfg.ShouldLogAllAlerts = *raw.ShouldLogAllAlerts

	if raw.ShouldRelay == nil {
		return cfg, fmt.Errorf("SHOULD_RELAY must be true or false in config")
	}
	cfg.ShouldRelay = *raw.ShouldRelay

	if raw.ShouldRelayIcecast == nil {
		return cfg, fmt.Errorf("SHOULD_RELAY_ICECAST must be true or false in config")
	}
	cfg.ShouldRelayIcecast = *raw.ShouldRelayIcecast

	if raw.IcecastRelay != nil {
		cfg.IcecastRelayURL = *raw.IcecastRelay
	}
	if cfg.ShouldRelay && cfg.ShouldRelayIcecast && cfg.IcecastRelayURL == "" {
		return cfg, fmt.Errorf("ICECAST_RELAY must be set if SHOULD_RELAY and SHOULD_RELAY_ICECAST are true")
	}

	if raw.ShouldRelayDASDEC == nil {
		return cfg, fmt.Errorf("SHOULD_RELAY_DASDEC must be true or false in config")
	}
	cfg.ShouldRelayDASDEC = *raw.ShouldRelayDASDEC
	if raw.DASDECURL != nil {
		cfg.DASDECURL = *raw.DASDECURL
	}

	if raw.AlertLogFile == nil || *raw.AlertLogFile == "" {
		return cfg, fmt.Errorf("ALERT_LOG_FILE must be set in config")
	}
	cfg.AlertLogFile = *raw.AlertLogFile

	if len(raw.IcecastStreamURLArray) == 0 {
		return cfg, fmt.Errorf("ICECAST_STREAM_URL_ARRAY must contain at least one stream URL")
	}
	cfg.IcecastStreamURLs = raw.IcecastStreamURLArray

	cfg.Timezone = "UTC"
	if raw.TZ != nil && *raw.TZ != "" {
		cfg.Timezone = *raw.TZ
	}

	cfg.WatchedFIPS = map[string]struct{}{}
	if raw.WatchedFIPS != nil {
		for _, f := range strings.Split(*raw.WatchedFIPS, ",") {
			f = strings.TrimSpace(f)
			if f != "" {
				cfg.WatchedFIPS[f] = struct{}{}
			}
		}
	}

	recDir := "recordings"
	if raw.RecordingDir != nil && *raw.RecordingDir != "" {
		recDir = *raw.RecordingDir
	}
	cfg.RecordingDir = filepath.Join(cfg.SharedStateDir, recDir)

	if raw.MonitoringBindAddr == nil || *raw.MonitoringBindAddr == "" {
		return cfg, fmt.Errorf("MONITORING_BIND_ADDR must be set in config")
	}
	cfg.MonitoringBindAddr = *raw.MonitoringBindAddr

	cfg.MonitoringMaxLogEntries = 500
	if raw.MonitoringMaxLogs != nil {
		cfg.MonitoringMaxLogEntries = *raw.MonitoringMaxLogs
	}

	cfg.MonitoringActivityWindowSecs = 45
	if raw.MonitoringWindowSecs != nil && *raw.MonitoringWindowSecs > 0 {
		cfg.MonitoringActivityWindowSecs = *raw.MonitoringWindowSecs
	}

	cfg.EASRelayName = "WAGSENDC"
	if raw.EASRelayName != nil && *raw.EASRelayName != "" {
		cfg.EASRelayName = *raw.EASRelayName
	}

	cfg.LogLevel = "INFO"
	if raw.LogLevel != nil && *raw.LogLevel != "" {
		cfg.LogLevel = *raw.LogLevel
	}

	cfg.Filters, cfg.FilterWarnings = filter.ParseRules(raw.Filters)

	return cfg, nil
}

// EnsureDirectories creates the shared state and recording directories.
func EnsureDirectories(cfg Config) error {
	if err := os.MkdirAll(cfg.SharedStateDir, 0o755); err != nil {
		return fmt.Errorf("create shared state dir: %w", err)
	}
	if err := os.MkdirAll(cfg.RecordingDir, 0o755); err != nil {
		return fmt.Errorf("create recording dir: %w", err)
	}
	return nil
}

// IsFIPSRelevant reports whether a header's FIPS codes are relevant given
// the watched list: an empty watch list matches everything, and both a
// watched "000000" entry and a header "000000" code mean "all counties".
func (c Config) IsFIPSRelevant(headerFIPS []string) bool {
	if len(c.WatchedFIPS) == 0 {
		return true
	}
	if _, all := c.WatchedFIPS["000000"]; all {
		return true
	}
	if _, all := c.WatchedFIPS[""]; all {
		return true
	}
	for _, f := range headerFIPS {
		if f == "000000" {
			return true
		}
		if _, ok := c.WatchedFIPS[f]; ok {
			return true
		}
	}
	return false
}
