package ctl

import (
	"fmt"
	"strings"
	"time"
)

// Alerts lists the currently active alerts from GET /api/alerts.
func Alerts(baseURL string, jsonOutput bool) error {
	baseURL = strings.TrimRight(baseURL, "/")

	var resp struct {
		Alerts []struct {
			Data struct {
				EASText    string   `json:"eas_text"`
				EventText  string   `json:"event_text"`
				EventCode  string   `json:"event_code"`
				FIPS       []string `json:"fips"`
				Originator string   `json:"originator"`
			} `json:"data"`
			RawHeader  string    `json:"raw_header"`
			ReceivedAt time.Time `json:"received_at"`
			ExpiresAt  time.Time `json:"expires_at"`
		} `json:"alerts"`
	}
	if err := getJSON(baseURL, "/api/alerts", &resp); err != nil {
		return err
	}

	if jsonOutput {
		return printJSON(resp)
	}

	fmt.Println()
	fmt.Println(header("  ACTIVE ALERTS"))
	fmt.Println("  " + strings.Repeat("─", 70))

	if len(resp.Alerts) == 0 {
		fmt.Println("  No active alerts.")
	}

	for _, a := range resp.Alerts {
		fmt.Printf("  %-6s %s\n", colorize(bold, a.Data.EventCode), a.Data.EventText)
		fmt.Printf("         %s\n", a.Data.EASText)
		fmt.Printf("         fips=%s received=%s expires=%s\n",
			strings.Join(a.Data.FIPS, ","),
			a.ReceivedAt.Local().Format("15:04:05"),
			a.ExpiresAt.Local().Format("15:04:05"),
		)
	}
	fmt.Println()
	return nil
}
