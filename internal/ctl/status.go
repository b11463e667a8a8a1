package ctl

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"
)

// StatusResponse mirrors the JSON returned by GET /api/status.
type StatusResponse struct {
	Name           string         `json:"name"`
	UptimeSeconds  int64          `json:"uptime_seconds"`
	StreamsTotal   int            `json:"streams_total"`
	StreamsUp      int            `json:"streams_up"`
	ActiveAlerts   int            `json:"active_alerts"`
	RecordingDir   string         `json:"recording_dir"`
	SharedStateDir string         `json:"shared_state_dir"`
	Disk           map[string]any `json:"disk,omitempty"`
}

// Status fetches the daemon status and prints a formatted summary.
func Status(baseURL string, jsonOutput bool) error {
	baseURL = strings.TrimRight(baseURL, "/")

	client := &http.Client{Timeout: 5 * time.Second}
	resp, err := client.Get(baseURL + "/api/status")
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("unexpected status: %s", resp.Status)
	}

	var s StatusResponse
	if err := json.NewDecoder(resp.Body).Decode(&s); err != nil {
		return err
	}

	if jsonOutput {
		return printJSON(s)
	}

	uptime := formatDuration(time.Duration(s.UptimeSeconds) * time.Second)
	streamsStr := fmt.Sprintf("%d/%d up", s.StreamsUp, s.StreamsTotal)
	if s.StreamsUp < s.StreamsTotal {
		streamsStr = colorize(yellow, streamsStr)
	} else {
		streamsStr = colorize(green, streamsStr)
	}

	fmt.Println()
	fmt.Println(header("  EAS LISTENER STATUS"))
	fmt.Println(colorize(dim, "  "+strings.Repeat("─", 38)))
	fmt.Printf("  %-14s %s\n", colorize(dim, "Daemon:"), s.Name)
	fmt.Printf("  %-14s %s\n", colorize(dim, "Uptime:"), uptime)
	fmt.Printf("  %-14s %s\n", colorize(dim, "Streams:"), streamsStr)
	fmt.Printf("  %-14s %d\n", colorize(dim, "Active alerts:"), s.ActiveAlerts)
	fmt.Printf("  %-14s %s\n", colorize(dim, "Recordings:"), s.RecordingDir)
	fmt.Printf("  %-14s %s\n", colorize(dim, "State dir:"), s.SharedStateDir)
	if s.Disk != nil {
		if total, ok := s.Disk["total_bytes"].(float64); ok {
			used, _ := s.Disk["used_bytes"].(float64)
			fmt.Printf("  %-14s %s / %s\n", colorize(dim, "Disk:"), formatBytes(int64(used)), formatBytes(int64(total)))
		}
	}
	fmt.Printf("  %-14s %s\n", colorize(dim, "Host:"), baseURL)
	fmt.Println()

	return nil
}
