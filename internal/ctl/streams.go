package ctl

import (
	"fmt"
	"strings"
	"time"
)

// Streams lists the per-stream connection telemetry from GET /api/streams.
func Streams(baseURL string, jsonOutput bool) error {
	baseURL = strings.TrimRight(baseURL, "/")

	var resp struct {
		Streams []struct {
			StreamURL          string `json:"stream_url"`
			IsConnected        bool   `json:"is_connected"`
			IsReceivingAudio   bool   `json:"is_receiving_audio"`
			ConnectionAttempts uint64 `json:"connection_attempts"`
			AlertsReceived     uint64 `json:"alerts_received"`
			LastError          string `json:"last_error,omitempty"`
			UptimeSeconds      *int64 `json:"uptime_seconds,omitempty"`
		} `json:"streams"`
	}
	if err := getJSON(baseURL, "/api/streams", &resp); err != nil {
		return err
	}

	if jsonOutput {
		return printJSON(resp)
	}

	fmt.Println()
	fmt.Println(header("  STREAMS"))
	fmt.Println("  " + strings.Repeat("─", 70))

	if len(resp.Streams) == 0 {
		fmt.Println("  No streams configured.")
	}

	for _, s := range resp.Streams {
		statusWord := colorize(red, "DOWN")
		if s.IsConnected {
			statusWord = colorize(green, "UP")
			if s.IsReceivingAudio {
				statusWord = colorize(cyan, "RECEIVING")
			}
		}
		fmt.Printf("  %-10s %s\n", statusWord, s.StreamURL)
		fmt.Printf("             attempts=%d alerts=%d", s.ConnectionAttempts, s.AlertsReceived)
		if s.UptimeSeconds != nil {
			fmt.Printf(" uptime=%s", formatDuration(time.Duration(*s.UptimeSeconds)*time.Second))
		}
		if s.LastError != "" {
			fmt.Printf(" last_error=%q", s.LastError)
		}
		fmt.Println()
	}
	fmt.Println()
	return nil
}
